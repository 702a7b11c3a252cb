package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	settings, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if settings.MaxConcurrentDownloads != DefaultSettings().MaxConcurrentDownloads {
		t.Errorf("expected defaults, got %+v", settings)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	settings := DefaultSettings()
	settings.MaxConcurrentDownloads = 3
	settings.StrictLocation = true
	settings.JPEGQuality = 80

	if err := settings.Save(path); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.MaxConcurrentDownloads != 3 || !loaded.StrictLocation || loaded.JPEGQuality != 80 {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestLoad_PartialOverridesKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"max_attempts": 7}`), 0644); err != nil {
		t.Fatal(err)
	}

	settings, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if settings.MaxAttempts != 7 {
		t.Errorf("MaxAttempts = %d, want 7", settings.MaxAttempts)
	}
	if settings.JPEGQuality != DefaultSettings().JPEGQuality {
		t.Errorf("JPEGQuality = %d, want default %d", settings.JPEGQuality, DefaultSettings().JPEGQuality)
	}
}
