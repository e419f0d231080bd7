// Package header synthesizes the Org-roam metadata block that is prepended
// to every converted note.
//
// Two conventions are supported. The drawer convention puts the identifier
// and aliases in a property drawer followed by title and filetags directives:
//
//	:PROPERTIES:
//	:ID: 0f6c...
//	:ROAM_ALIASES: "Alt"
//	:END:
//	#+title: Note
//	#+filetags: :a:b:
//
// The directive convention writes every field as a directive line:
//
//	#+title: Note
//	#+filetags: :a:b:
//	#+roam_aliases: "Alt"
//	#+id: 0f6c...
//
// Both end with one blank line, and both identifier lines are recognized by
// ids.ExtractID.
package header

import (
	"fmt"
	"strings"
)

// Convention selects the header layout.
type Convention string

// Header conventions.
const (
	Drawer    Convention = "drawer"
	Directive Convention = "directive"
)

// TagStyle selects how the tag set is rendered.
type TagStyle string

// Tag styles.
const (
	// TagsColon renders `:a:b:`.
	TagsColon TagStyle = "colon"
	// TagsBracketed renders `:a: :b:`.
	TagsBracketed TagStyle = "bracketed"
)

// Fields are the already-rendered header values.
type Fields struct {
	Title   string
	Tags    string
	Aliases string
	ID      string
}

// Generator renders headers with one convention and tag style for a whole run.
type Generator struct {
	convention Convention
	tagStyle   TagStyle
}

// NewGenerator creates a Generator. Empty values fall back to Drawer and TagsColon.
func NewGenerator(convention Convention, style TagStyle) *Generator {
	if convention == "" {
		convention = Drawer
	}
	if style == "" {
		style = TagsColon
	}
	return &Generator{convention: convention, tagStyle: style}
}

// Convention returns the generator's header convention.
func (g *Generator) Convention() Convention { return g.convention }

// Generate renders the header for one note.
func (g *Generator) Generate(title string, tags, aliases []string, id string) string {
	return Render(g.convention, Fields{
		Title:   title,
		Tags:    FormatTags(tags, g.tagStyle),
		Aliases: FormatAliases(aliases),
		ID:      id,
	})
}

// Render lays out f according to convention.
func Render(convention Convention, f Fields) string {
	var b strings.Builder
	switch convention {
	case Directive:
		writeLine(&b, "#+title:", f.Title)
		writeLine(&b, "#+filetags:", f.Tags)
		writeLine(&b, "#+roam_aliases:", f.Aliases)
		writeLine(&b, "#+id:", f.ID)
	default:
		b.WriteString(":PROPERTIES:\n")
		writeLine(&b, ":ID:", f.ID)
		writeLine(&b, ":ROAM_ALIASES:", f.Aliases)
		b.WriteString(":END:\n")
		writeLine(&b, "#+title:", f.Title)
		writeLine(&b, "#+filetags:", f.Tags)
	}
	b.WriteString("\n")
	return b.String()
}

func writeLine(b *strings.Builder, key, value string) {
	b.WriteString(key)
	if value != "" {
		b.WriteString(" ")
		b.WriteString(value)
	}
	b.WriteString("\n")
}

// FormatTags renders tags in the given style. No tags yield "".
func FormatTags(tags []string, style TagStyle) string {
	if len(tags) == 0 {
		return ""
	}
	if style == TagsBracketed {
		parts := make([]string, len(tags))
		for i, t := range tags {
			parts[i] = ":" + t + ":"
		}
		return strings.Join(parts, " ")
	}
	return ":" + strings.Join(tags, ":") + ":"
}

// FormatAliases renders aliases as space-separated quoted strings.
func FormatAliases(aliases []string) string {
	parts := make([]string, 0, len(aliases))
	for _, a := range aliases {
		parts = append(parts, fmt.Sprintf("%q", a))
	}
	return strings.Join(parts, " ")
}
