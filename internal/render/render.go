// Package render turns rewritten Markdown into Org markup.
//
// The converter depends only on the Renderer interface; Pandoc shells out to
// the pandoc binary and Builtin renders in-process with goldmark.
package render

import (
	"context"
	"errors"
	"fmt"
)

// Kinds of renderer selectable from configuration.
const (
	KindPandoc  = "pandoc"
	KindBuiltin = "builtin"
)

// ErrRender is matched by every RenderError via errors.Is.
var ErrRender = errors.New("render failed")

// Options carries per-call rendering parameters.
type Options struct {
	// Name identifies the note in errors.
	Name string
	// WorkDir is where temporary files are created. Empty means os.TempDir.
	WorkDir string
}

// Renderer converts Markdown text to Org text.
type Renderer interface {
	Render(ctx context.Context, markdown string, opts Options) (string, error)
}

// Func adapts a plain function to the Renderer interface.
type Func func(ctx context.Context, markdown string, opts Options) (string, error)

// Render calls f.
func (f Func) Render(ctx context.Context, markdown string, opts Options) (string, error) {
	return f(ctx, markdown, opts)
}

// RenderError reports a failed render of one note.
type RenderError struct {
	Source string
	Stderr string
	Err    error
}

func (e *RenderError) Error() string {
	msg := fmt.Sprintf("render %s: %v", e.Source, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *RenderError) Unwrap() error { return e.Err }

func (e *RenderError) Is(target error) bool {
	return target == ErrRender
}
