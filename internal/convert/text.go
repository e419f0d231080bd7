package convert

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/mdorg/internal/apperr"
	"github.com/starford/mdorg/internal/links"
	"github.com/starford/mdorg/internal/parser"
	"github.com/starford/mdorg/internal/render"
)

// TextResult is the outcome of converting a note supplied as text.
type TextResult struct {
	Title      string      `json:"title"`
	ID         string      `json:"id"`
	Org        string      `json:"org"`
	Unresolved []links.Ref `json:"unresolved"`
}

// ConvertText runs the pipeline over markdown held in memory. Nothing is
// written and the index is not extended. A title already in the index
// keeps its identifier; otherwise a fresh one is generated.
func (c *Converter) ConvertText(ctx context.Context, title, markdown string) (*TextResult, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("convert: title is required: %w", apperr.ErrInvalidInput)
	}

	note := parser.Parse([]byte(markdown))
	body, refs := c.rewriter.Rewrite(note.Body)

	rendered, err := c.renderer.Render(ctx, body, render.Options{Name: title})
	if err != nil {
		return nil, err
	}

	id, ok := c.index.Lookup(title)
	if !ok {
		id, _ = c.index.Assign(title, "")
	}

	unresolved := links.Unresolved(refs)
	if unresolved == nil {
		unresolved = []links.Ref{}
	}
	return &TextResult{
		Title:      title,
		ID:         id,
		Org:        c.headers.Generate(title, note.Tags, note.Aliases, id) + rendered,
		Unresolved: unresolved,
	}, nil
}
