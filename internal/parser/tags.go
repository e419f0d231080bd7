package parser

import "regexp"

var (
	// tagsBlockRe matches a `tags:` line followed by one or more `- word` items.
	// Quoted, multi-word, or `*`-bulleted items end the block.
	tagsBlockRe = regexp.MustCompile(`(?m)^tags:[ \t]*\r?\n(?:[ \t]*-[ \t]+[\p{L}\p{N}_]+[ \t]*(?:\r?\n|\z))+`)
	tagItemRe   = regexp.MustCompile(`-[ \t]+([\p{L}\p{N}_]+)`)
)

// ExtractTags removes every tags block from text and returns the remaining
// text with the tag words in order of appearance. Text without a tags block
// is returned unchanged with a nil tag slice.
func ExtractTags(text string) (string, []string) {
	var tags []string
	out := tagsBlockRe.ReplaceAllStringFunc(text, func(block string) string {
		for _, m := range tagItemRe.FindAllStringSubmatch(block, -1) {
			tags = append(tags, m[1])
		}
		return ""
	})
	return out, tags
}
