package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Settings holds all configuration options.
type Settings struct {
	// Paths
	ManifestPath string `json:"manifest_path"`
	OutputDir    string `json:"output_dir"`

	// Download settings
	MaxConcurrentDownloads int     `json:"max_concurrent_downloads"`
	RequestTimeoutSeconds  int     `json:"request_timeout_seconds"`
	MaxAttempts            int     `json:"max_attempts"`
	AttemptCooldownSeconds float64 `json:"attempt_cooldown_seconds"`

	// Processing settings
	ApplyOverlay  bool `json:"apply_overlay"`
	WriteMetadata bool `json:"write_metadata"`
	ConvertToJXL  bool `json:"convert_to_jxl"`
	JPEGQuality   int  `json:"jpeg_quality"`

	// StrictLocation rejects records that carry no resolvable
	// coordinates before any network call is made.
	StrictLocation bool `json:"strict_location"`

	// PruneBatchSize controls manifest pruning: 0 removes each success
	// immediately; N > 1 accumulates successes and flushes every N,
	// plus a final flush at the end of the batch.
	PruneBatchSize int `json:"prune_batch_size"`

	// External binaries
	FFmpegPath           string `json:"ffmpeg_path"`
	FFprobePath          string `json:"ffprobe_path"`
	CJXLPath             string `json:"cjxl_path"`
	FFmpegTimeoutSeconds int    `json:"ffmpeg_timeout_seconds"`
	CJXLTimeoutSeconds   int    `json:"cjxl_timeout_seconds"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		ManifestPath: filepath.Join("data", "memories_history.json"),
		OutputDir:    "downloads",

		MaxConcurrentDownloads: 8,
		RequestTimeoutSeconds:  30,
		MaxAttempts:            3,
		AttemptCooldownSeconds: 2.0,

		ApplyOverlay:  true,
		WriteMetadata: true,
		ConvertToJXL:  false,
		JPEGQuality:   95,

		StrictLocation: false,
		PruneBatchSize: 0,

		FFmpegPath:           "ffmpeg",
		FFprobePath:          "ffprobe",
		CJXLPath:             "cjxl",
		FFmpegTimeoutSeconds: 60,
		CJXLTimeoutSeconds:   60,
	}
}

// RequestTimeout returns the per-request HTTP timeout.
func (s *Settings) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// FFmpegTimeout returns the per-invocation transcoder timeout.
func (s *Settings) FFmpegTimeout() time.Duration {
	return time.Duration(s.FFmpegTimeoutSeconds) * time.Second
}

// CJXLTimeout returns the per-invocation image encoder timeout.
func (s *Settings) CJXLTimeout() time.Duration {
	return time.Duration(s.CJXLTimeoutSeconds) * time.Second
}

// AttemptCooldown returns the pause between whole-batch retry attempts.
func (s *Settings) AttemptCooldown() time.Duration {
	return time.Duration(s.AttemptCooldownSeconds * float64(time.Second))
}

// Load reads settings from a JSON file.
//
// A missing file is not an error: defaults are returned, so a config
// file is only needed to override them.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
