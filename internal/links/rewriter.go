// Package links rewrites Obsidian wiki-links, embeds, and Markdown images
// into Org link syntax.
package links

import (
	"fmt"
	"regexp"
	"strings"
)

// Mode selects how wiki-links are rewritten.
type Mode string

// Link modes.
const (
	// ModeID addresses known targets by identifier and leaves unknown ones untouched.
	ModeID Mode = "id"
	// ModePlain always addresses the target by its literal title.
	ModePlain Mode = "plain"
	// ModeIDOrPlain addresses by identifier when known, otherwise by title.
	ModeIDOrPlain Mode = "id-or-plain"
)

var (
	// [[target]], [[target#sub]], [[target|alias]], [[target#sub|alias]].
	// Brackets are excluded from every part so Org links are never re-matched.
	wikiRe  = regexp.MustCompile(`\[\[([^\[\]#|]*)(?:#([^\[\]|]*))?(?:\|([^\[\]]*))?\]\]`)
	embedRe = regexp.MustCompile(`!\[\[([^\[\]#|]+\.[A-Za-z0-9]+)(?:\|[^\[\]]*)?\]\]`)
	imageRe = regexp.MustCompile(`!\[([^\[\]]*)\]\(([^()\s]+)\)`)
)

// schemeRe spots targets such as "file:x.png" or "id:..." that are already Org links.
var schemeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*:`)

// Resolver looks up the identifier previously assigned to a note title.
type Resolver interface {
	Lookup(title string) (string, bool)
}

// Ref is one wiki-link occurrence found during a rewrite.
type Ref struct {
	Target     string `json:"target"`
	Subheading string `json:"subheading,omitempty"`
	Alias      string `json:"alias,omitempty"`
	ID         string `json:"id,omitempty"`
}

// Resolved reports whether the reference was addressed by identifier.
func (r Ref) Resolved() bool { return r.ID != "" }

// Display is the link description: the alias when given, else the target.
func (r Ref) Display() string {
	if r.Alias != "" {
		return r.Alias
	}
	return r.Target
}

// Rewriter converts link syntax in a single non-recursive pass per pattern.
type Rewriter struct {
	mode Mode
	ids  Resolver
}

// NewRewriter creates a Rewriter. ids may be nil in ModePlain.
func NewRewriter(mode Mode, ids Resolver) *Rewriter {
	if mode == "" {
		mode = ModeID
	}
	return &Rewriter{mode: mode, ids: ids}
}

// Mode returns the rewriter's link mode.
func (rw *Rewriter) Mode() Mode { return rw.mode }

// Rewrite returns text with embeds, wiki-links, and images converted, plus
// every wiki-link reference it saw in order of appearance.
func (rw *Rewriter) Rewrite(text string) (string, []Ref) {
	text = embedRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := embedRe.FindStringSubmatch(m)
		return fmt.Sprintf("[[file:%s]]", sub[1])
	})

	var refs []Ref
	text = wikiRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := wikiRe.FindStringSubmatch(m)
		ref := Ref{
			Target:     strings.TrimSpace(sub[1]),
			Subheading: strings.TrimSpace(sub[2]),
			Alias:      strings.TrimSpace(sub[3]),
		}
		if ref.Target == "" || schemeRe.MatchString(ref.Target) {
			return m
		}
		out := rw.rewriteRef(&ref, m)
		refs = append(refs, ref)
		return out
	})

	text = imageRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := imageRe.FindStringSubmatch(m)
		return FileLink(sub[2], sub[1])
	})

	return text, refs
}

func (rw *Rewriter) rewriteRef(ref *Ref, raw string) string {
	if rw.mode != ModePlain && rw.ids != nil {
		if id, ok := rw.ids.Lookup(ref.Target); ok {
			ref.ID = id
			return IDLink(id, ref.Subheading, ref.Display())
		}
	}
	if rw.mode == ModeID {
		return raw
	}
	return TitleLink(ref.Target, ref.Subheading, ref.Alias)
}

// IDLink formats an identifier-addressed Org link.
func IDLink(id, subheading, display string) string {
	dest := "id:" + id
	if subheading != "" {
		dest += "::" + subheading
	}
	return fmt.Sprintf("[[%s][%s]]", dest, display)
}

// TitleLink formats a title-addressed Org link; alias may be empty.
func TitleLink(target, subheading, alias string) string {
	dest := target
	if subheading != "" {
		dest += "::" + subheading
	}
	if alias == "" {
		return fmt.Sprintf("[[%s]]", dest)
	}
	return fmt.Sprintf("[[%s][%s]]", dest, alias)
}

// FileLink formats an Org file link; an empty description is omitted.
func FileLink(path, description string) string {
	if description == "" {
		return fmt.Sprintf("[[file:%s]]", path)
	}
	return fmt.Sprintf("[[file:%s][%s]]", path, description)
}

// Unresolved filters refs down to those not addressed by identifier.
func Unresolved(refs []Ref) []Ref {
	var out []Ref
	for _, r := range refs {
		if !r.Resolved() {
			out = append(out, r)
		}
	}
	return out
}
