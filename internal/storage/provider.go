// Package storage defines the file-system abstraction over the source vault
// and the output tree.
package storage

import "github.com/starford/mdorg/internal/models"

// Provider is the interface for file operations rooted at one directory.
// All paths are relative to the root and use forward slashes.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// List returns metadata for every file under dir whose name ends with ext,
	// in lexical walk order. Hidden files and directories are skipped.
	List(dir, ext string) ([]models.FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path and prunes parent directories left empty.
	Delete(path string) error
	// Exists reports whether a regular file exists at path.
	Exists(path string) bool
	// EnsureDir creates dir if needed and returns its absolute path.
	EnsureDir(dir string) (string, error)
}
