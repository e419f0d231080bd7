package parser

import "regexp"

// headerRe matches a `---` delimited header at the very start of the text.
// The body group is lazy-optional so an empty header stops at the first
// closing delimiter instead of swallowing a later one.
var headerRe = regexp.MustCompile(`\A---[ \t]*\r?\n(?s:.*?\r?\n)??---[ \t]*(?:\r?\n|\z)`)

// StripHeader removes the first front-matter header when text opens with one.
func StripHeader(text string) string {
	loc := headerRe.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return text[loc[1]:]
}
