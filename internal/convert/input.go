package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/mdorg/internal/apperr"
)

// Input is a classified command-line path argument.
type Input struct {
	// Root is the source root directory.
	Root string
	// File is the single source to convert, relative to Root. Empty means
	// the whole tree.
	File string
}

// ResolveInput classifies p as a source directory or a single source file
// with extension ext. Anything else yields apperr.ErrInvalidInput.
func ResolveInput(p, ext string) (Input, error) {
	info, err := os.Stat(p)
	if err != nil {
		return Input{}, fmt.Errorf("%s: %w", p, apperr.ErrInvalidInput)
	}
	if info.IsDir() {
		return Input{Root: p}, nil
	}
	if info.Mode().IsRegular() && strings.HasSuffix(p, ext) {
		return Input{Root: filepath.Dir(p), File: filepath.Base(p)}, nil
	}
	return Input{}, fmt.Errorf("%s: %w", p, apperr.ErrInvalidInput)
}
