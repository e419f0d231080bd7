package ids

import (
	"fmt"
	"regexp"

	"github.com/starford/mdorg/internal/parser"
	"github.com/starford/mdorg/internal/storage"
)

// markerRe matches the identifier line of both header conventions:
// `:ID: <id>` inside a property drawer, or a `#+id: <id>` directive.
var markerRe = regexp.MustCompile(`(?im)^[ \t]*(?::ID:|#\+id:)[ \t]+(\S+)`)

// ExtractID returns the first identifier marker value in content.
func ExtractID(content []byte) (string, bool) {
	m := markerRe.FindSubmatch(content)
	if m == nil {
		return "", false
	}
	return string(m[1]), true
}

// Build scans every file with extension ext under the output store and
// records title → identifier for each file carrying an identifier marker.
// Files without a marker are skipped. On title collisions the first file
// in walk order wins.
func Build(store storage.Provider, ext string, opts ...Option) (*Index, error) {
	x := New(opts...)

	metas, err := store.List("", ext)
	if err != nil {
		return nil, fmt.Errorf("ids: scan output: %w", err)
	}
	for _, m := range metas {
		data, err := store.Read(m.Path)
		if err != nil {
			return nil, fmt.Errorf("ids: %w", err)
		}
		id, ok := ExtractID(data)
		if !ok {
			continue
		}
		x.Record(Entry{
			Title: parser.Title(m.Path),
			ID:    id,
			Path:  m.Path,
		})
	}
	return x, nil
}
