// Package ioutils provides file system utilities for the downloader.
//
// This package contains:
//   - File writing and directory creation helpers
//   - The NameResolver that hands out collision-free output filenames
//     to concurrently running download tasks
package ioutils
