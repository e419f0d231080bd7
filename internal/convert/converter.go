// Package convert drives the per-file pipeline: read, tag extraction, header
// stripping, link rewriting, render, header injection and write.
package convert

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/starford/mdorg/internal/header"
	"github.com/starford/mdorg/internal/ids"
	"github.com/starford/mdorg/internal/ledger"
	"github.com/starford/mdorg/internal/links"
	"github.com/starford/mdorg/internal/models"
	"github.com/starford/mdorg/internal/render"
	"github.com/starford/mdorg/internal/storage"
)

// Notifier receives conversion outcomes. The SSE broker implements it.
type Notifier interface {
	ConversionDone(c models.Conversion)
	OutputRemoved(source, output string)
}

// Converter converts sources from one store into Org files in another.
// File conversions are serialized so that a file is fully converted, and
// recorded in the index, before the next one starts.
type Converter struct {
	src      storage.Provider
	out      storage.Provider
	renderer render.Renderer

	index    *ids.Index
	mode     links.Mode
	rewriter *links.Rewriter
	headers  *header.Generator
	ledger   ledger.Store
	notifier Notifier
	logger   *slog.Logger

	sourceExt       string
	outputExt       string
	force           bool
	continueOnError bool

	mu sync.Mutex
}

// Option configures a Converter.
type Option func(*Converter)

// WithIndex sets the identifier index. Defaults to an empty index.
func WithIndex(x *ids.Index) Option { return func(c *Converter) { c.index = x } }

// WithLinkMode sets the link rewrite mode. Defaults to links.ModeID.
func WithLinkMode(m links.Mode) Option { return func(c *Converter) { c.mode = m } }

// WithHeader sets the header generator. Defaults to drawer headers with colon tags.
func WithHeader(g *header.Generator) Option { return func(c *Converter) { c.headers = g } }

// WithLedger enables the conversion ledger.
func WithLedger(l ledger.Store) Option { return func(c *Converter) { c.ledger = l } }

// WithNotifier sets the receiver of conversion events.
func WithNotifier(n Notifier) Option { return func(c *Converter) { c.notifier = n } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(c *Converter) { c.logger = l } }

// WithExtensions sets the source and output file extensions.
func WithExtensions(source, output string) Option {
	return func(c *Converter) {
		c.sourceExt = source
		c.outputExt = output
	}
}

// WithForce disables the incremental checksum skip.
func WithForce(force bool) Option { return func(c *Converter) { c.force = force } }

// WithContinueOnError controls whether a tree run continues past a failed file.
func WithContinueOnError(v bool) Option { return func(c *Converter) { c.continueOnError = v } }

// New creates a Converter reading from src and writing to out.
func New(src, out storage.Provider, r render.Renderer, opts ...Option) *Converter {
	c := &Converter{
		src:             src,
		out:             out,
		renderer:        r,
		mode:            links.ModeID,
		sourceExt:       ".md",
		outputExt:       ".org",
		continueOnError: true,
	}
	for _, o := range opts {
		o(c)
	}
	if c.index == nil {
		c.index = ids.New()
	}
	if c.headers == nil {
		c.headers = header.NewGenerator(header.Drawer, header.TagsColon)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.rewriter = links.NewRewriter(c.mode, c.index)
	return c
}

// Index returns the identifier index the converter reads and extends.
func (c *Converter) Index() *ids.Index { return c.index }

// Ledger returns the configured ledger, or nil.
func (c *Converter) Ledger() ledger.Store { return c.ledger }

// OutputPath maps a source path to its output path: same relative
// directory and base name, output extension.
func (c *Converter) OutputPath(source string) string {
	return strings.TrimSuffix(source, c.sourceExt) + c.outputExt
}

// IsSource reports whether rel names a convertible source file.
func (c *Converter) IsSource(rel string) bool {
	if !strings.HasSuffix(rel, c.sourceExt) {
		return false
	}
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return false
		}
	}
	return true
}
