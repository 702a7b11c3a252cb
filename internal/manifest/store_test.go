package manifest

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memories_history.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const threeItems = `{
  "Saved Media": [
    {"Date": "2023-04-17 10:35:12 UTC", "Media Type": "Image", "Media Download Url": "https://cdn.example.com/a"},
    {"Date": "2023-04-18 11:00:00 UTC", "Media Type": "Video", "Media Download Url": "https://cdn.example.com/b"},
    {"Date": "2023-04-19 12:00:00 UTC", "Media Type": "Image", "Media Download Url": "https://cdn.example.com/c"}
  ]
}`

func TestStore_LoadPending(t *testing.T) {
	store := NewStore(writeManifest(t, threeItems), nil)

	records, err := store.LoadPending()
	if err != nil {
		t.Fatalf("LoadPending returned error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[1].PreferredURL() != "https://cdn.example.com/b" {
		t.Errorf("records[1] URL = %q", records[1].PreferredURL())
	}
}

func TestStore_LoadPending_MissingKey(t *testing.T) {
	store := NewStore(writeManifest(t, `{"Other": []}`), nil)

	records, err := store.LoadPending()
	if err != nil {
		t.Fatalf("LoadPending returned error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

func TestStore_LoadPending_Unreadable(t *testing.T) {
	tests := []struct {
		name  string
		store *Store
	}{
		{"missing file", NewStore(filepath.Join(t.TempDir(), "nope.json"), nil)},
		{"invalid json", NewStore(writeManifest(t, "{broken"), nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.store.LoadPending(); !errors.Is(err, ErrUnreadable) {
				t.Errorf("err = %v, want ErrUnreadable", err)
			}
		})
	}
}

func TestStore_Remove(t *testing.T) {
	path := writeManifest(t, threeItems)
	store := NewStore(path, nil)

	if err := store.Remove("https://cdn.example.com/b"); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}

	records, err := store.LoadPending()
	if err != nil {
		t.Fatalf("LoadPending returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	for _, rec := range records {
		if rec.PreferredURL() == "https://cdn.example.com/b" {
			t.Error("removed record still present")
		}
	}
}

func TestStore_Remove_Idempotent(t *testing.T) {
	path := writeManifest(t, threeItems)
	store := NewStore(path, nil)

	if err := store.Remove("https://cdn.example.com/a"); err != nil {
		t.Fatalf("first Remove: %v", err)
	}
	// Second removal of the same identity must not raise and must not
	// touch an unrelated record.
	if err := store.Remove("https://cdn.example.com/a"); err != nil {
		t.Fatalf("second Remove: %v", err)
	}

	records, err := store.LoadPending()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}
}

func TestStore_Remove_Batch(t *testing.T) {
	store := NewStore(writeManifest(t, threeItems), nil)

	if err := store.Remove("https://cdn.example.com/a", "https://cdn.example.com/c"); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}

	records, err := store.LoadPending()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].PreferredURL() != "https://cdn.example.com/b" {
		t.Errorf("unexpected remaining records: %+v", records)
	}
}

func TestStore_Remove_Concurrent(t *testing.T) {
	store := NewStore(writeManifest(t, threeItems), nil)

	urls := []string{
		"https://cdn.example.com/a",
		"https://cdn.example.com/b",
		"https://cdn.example.com/c",
	}

	var wg sync.WaitGroup
	for _, url := range urls {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			if err := store.Remove(u); err != nil {
				t.Errorf("Remove(%q): %v", u, err)
			}
		}(url)
	}
	wg.Wait()

	records, err := store.LoadPending()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records after concurrent removal, want 0", len(records))
	}
}

func TestStore_Remove_PreservesOtherKeys(t *testing.T) {
	path := writeManifest(t, `{
  "Export Date": "2023-05-01",
  "Saved Media": [
    {"Date": "2023-04-17 10:35:12 UTC", "Media Type": "Image", "Media Download Url": "https://cdn.example.com/a"}
  ]
}`)
	store := NewStore(path, nil)

	if err := store.Remove("https://cdn.example.com/a"); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("manifest no longer valid JSON: %v", err)
	}
	if _, ok := doc["Export Date"]; !ok {
		t.Error("unrelated manifest key lost during rewrite")
	}
}
