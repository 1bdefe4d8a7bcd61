// Package entities defines core domain models and data structures.
package entities

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileReference identifies the local file being analyzed
type FileReference struct {
	Path string // absolute path
	Name string
	Size int64
}

// NewFileReference resolves path to an absolute location and checks that it
// names a regular file
func NewFileReference(path string) (*FileReference, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is required")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to access file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", abs)
	}

	return &FileReference{
		Path: abs,
		Name: filepath.Base(abs),
		Size: info.Size(),
	}, nil
}
