package parser

import (
	"strings"

	"github.com/adrg/frontmatter"
)

type aliasMatter struct {
	Aliases []string `yaml:"aliases"`
}

// Aliases returns the `aliases` list of a note's front matter. Notes without
// front matter, with invalid YAML, or with a scalar `aliases` value yield nil.
func Aliases(text string) []string {
	var fm aliasMatter
	if _, err := frontmatter.Parse(strings.NewReader(text), &fm); err != nil {
		return nil
	}
	var out []string
	for _, a := range fm.Aliases {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
