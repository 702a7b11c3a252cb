package ioutils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// NameResolver hands out collision-free output filenames.
//
// Many records share a capture second, and re-runs encounter files left
// by earlier runs, so the resolver seeds itself from the names already
// present in the output directory and then appends numeric suffixes
// (_1, _2, ...) until a name is free.
//
// Claiming is a single check-membership-then-add step under a mutex:
// two tasks racing for the same base name can never both get it.
//
// Example:
//
//	resolver := ioutils.NewNameResolver("/downloads")
//	path := resolver.Claim("2023-04-17_10-35-12.jpg")
//	// "/downloads/2023-04-17_10-35-12.jpg", or the _1 variant if taken
type NameResolver struct {
	dir  string
	mu   sync.Mutex
	used map[string]struct{}
}

// NewNameResolver creates a resolver for dir, pre-seeded with the
// filenames already present there. A missing or unreadable directory
// seeds an empty set.
func NewNameResolver(dir string) *NameResolver {
	used := make(map[string]struct{})
	if entries, err := os.ReadDir(dir); err == nil {
		for _, entry := range entries {
			if !entry.IsDir() {
				used[entry.Name()] = struct{}{}
			}
		}
	}
	return &NameResolver{dir: dir, used: used}
}

// Claim reserves a unique variant of filename and returns its full
// path. The reservation holds for the life of the resolver; names are
// not released on task failure, which keeps the scheme simple and only
// costs a skipped suffix.
func (r *NameResolver) Claim(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	r.mu.Lock()
	defer r.mu.Unlock()

	candidate := filename
	for suffix := 1; ; suffix++ {
		if _, taken := r.used[candidate]; !taken {
			break
		}
		candidate = fmt.Sprintf("%s_%d%s", base, suffix, ext)
	}
	r.used[candidate] = struct{}{}

	return filepath.Join(r.dir, candidate)
}
