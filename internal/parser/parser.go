// Package parser extracts the tags block, front-matter header, and aliases
// from Obsidian-flavoured Markdown notes.
package parser

import (
	"path"
	"path/filepath"
	"strings"
)

// Result holds a note after front-matter extraction.
type Result struct {
	// Body is the note text with the tags block and front-matter header removed.
	Body string
	// Tags are the words from the tags block in source order, duplicates kept.
	Tags []string
	// Aliases come from an `aliases` list in the front matter, if any.
	Aliases []string
}

// Parse runs the extraction steps in order: aliases are read from the raw
// text, then the tags block is removed, then the front-matter header.
func Parse(data []byte) *Result {
	raw := string(data)
	aliases := Aliases(raw)

	body, tags := ExtractTags(raw)
	body = StripHeader(body)

	return &Result{
		Body:    body,
		Tags:    tags,
		Aliases: aliases,
	}
}

// Title derives a note title from its file name: base name, extension stripped.
func Title(p string) string {
	base := path.Base(filepath.ToSlash(p))
	return strings.TrimSuffix(base, path.Ext(base))
}
