package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/gofrs/flock"

	"github.com/avelter/memories-downloader/internal/model"
)

// pendingKey is the manifest object key holding the pending records.
const pendingKey = "Saved Media"

// ErrUnreadable reports a manifest file that is missing or not valid
// JSON. This is fatal to a run: without a readable manifest there is
// nothing to download.
var ErrUnreadable = errors.New("manifest unreadable")

// Store owns the JSON manifest file.
//
// The manifest only ever shrinks: records are removed once their media
// has been fully processed, which makes a run resumable. Every removal
// re-reads the file first so concurrent prunes never act on a stale
// in-memory copy, and the rewrite goes through a temp sibling plus
// rename so a crash cannot leave a truncated manifest.
//
// A file lock guards the read-modify-write cycle against other
// processes; an in-process mutex guards it against sibling goroutines.
type Store struct {
	path   string
	mu     sync.Mutex
	flk    *flock.Flock
	logger *slog.Logger
}

// NewStore creates a Store for the manifest at path.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:   path,
		flk:    flock.New(path + ".lock"),
		logger: logger,
	}
}

// LoadPending returns the pending records in manifest order.
//
// A missing pending key yields an empty slice; a missing or malformed
// file yields an error wrapping ErrUnreadable.
func (s *Store) LoadPending() ([]model.RawRecord, error) {
	_, raw, err := s.read()
	if err != nil {
		return nil, err
	}

	records := make([]model.RawRecord, 0, len(raw))
	for _, entry := range raw {
		var rec model.RawRecord
		if err := json.Unmarshal(entry, &rec); err != nil {
			return nil, fmt.Errorf("%w: decode record: %v", ErrUnreadable, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Remove deletes the records whose download URL matches one of urls and
// rewrites the manifest atomically.
//
// The identity is the record's preferred download URL, not its array
// position: positions go stale as soon as another worker has pruned.
// Removing a URL that is already absent is a no-op, so repeated removal
// of the same identity is safe.
func (s *Store) Remove(urls ...string) error {
	if len(urls) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.flk.Lock(); err != nil {
		return fmt.Errorf("lock manifest: %w", err)
	}
	defer func() {
		if err := s.flk.Unlock(); err != nil {
			s.logger.Warn("unlock manifest", "error", err)
		}
	}()

	doc, raw, err := s.read()
	if err != nil {
		return err
	}

	drop := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		drop[u] = struct{}{}
	}

	remaining := make([]json.RawMessage, 0, len(raw))
	for _, entry := range raw {
		var rec model.RawRecord
		if err := json.Unmarshal(entry, &rec); err != nil {
			remaining = append(remaining, entry)
			continue
		}
		if _, ok := drop[rec.PreferredURL()]; ok {
			continue
		}
		remaining = append(remaining, entry)
	}

	if len(remaining) == len(raw) {
		return nil
	}

	encoded, err := json.Marshal(remaining)
	if err != nil {
		return fmt.Errorf("encode pending records: %w", err)
	}
	doc[pendingKey] = encoded

	return s.write(doc)
}

// read loads the manifest as a key map plus the raw pending entries.
func (s *Store) read() (map[string]json.RawMessage, []json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	var raw []json.RawMessage
	if pending, ok := doc[pendingKey]; ok {
		if err := json.Unmarshal(pending, &raw); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
	}

	return doc, raw, nil
}

// write rewrites the manifest through a temp sibling and rename.
func (s *Store) write(doc map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}
