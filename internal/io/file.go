package ioutils

import (
	"os"
)

// WriteFile writes data to a file, creating it if necessary.
//
// The file is created with mode 0644. If the file already exists,
// it is truncated before writing.
func WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0644)
}

// EnsureDir creates a directory and all parent directories if they
// don't exist. Directories are created with mode 0755.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
