package render

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
)

//go:embed remove-header-attr.lua
var headerAttrFilter []byte

// PandocConfig configures the external pandoc renderer.
type PandocConfig struct {
	Binary string `yaml:"binary"`
	From   string `yaml:"from"`
	Wrap   string `yaml:"wrap"`
	// Filter is a Lua filter path. Empty uses the embedded header-attribute filter.
	Filter string `yaml:"filter"`
}

// Pandoc renders by invoking the pandoc binary once per note.
type Pandoc struct {
	cfg PandocConfig

	once       sync.Once
	filterPath string
	filterErr  error
	tempFilter string
}

// NewPandoc creates a Pandoc renderer, filling unset fields with defaults.
func NewPandoc(cfg PandocConfig) *Pandoc {
	if cfg.Binary == "" {
		cfg.Binary = "pandoc"
	}
	if cfg.From == "" {
		cfg.From = "markdown"
	}
	if cfg.Wrap == "" {
		cfg.Wrap = "preserve"
	}
	return &Pandoc{cfg: cfg}
}

// Render writes markdown to a temporary file in opts.WorkDir, runs pandoc
// against it with an explicit output path, and returns the produced Org text.
// Both temporary files are removed before returning.
func (p *Pandoc) Render(ctx context.Context, markdown string, opts Options) (string, error) {
	filter, err := p.filter()
	if err != nil {
		return "", &RenderError{Source: opts.Name, Err: err}
	}

	in, err := os.CreateTemp(opts.WorkDir, ".mdorg-*.md")
	if err != nil {
		return "", fmt.Errorf("render: create temp input: %w", err)
	}
	inName := in.Name()
	defer os.Remove(inName)

	if _, err := in.WriteString(markdown); err != nil {
		_ = in.Close()
		return "", fmt.Errorf("render: write temp input: %w", err)
	}
	if err := in.Close(); err != nil {
		return "", fmt.Errorf("render: close temp input: %w", err)
	}

	outName := strings.TrimSuffix(inName, ".md") + ".org"
	defer os.Remove(outName)

	cmd := exec.CommandContext(ctx, p.cfg.Binary, p.Args(inName, outName, filter)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &RenderError{Source: opts.Name, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}

	data, err := os.ReadFile(outName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = errors.New("no output file produced")
		}
		return "", &RenderError{Source: opts.Name, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return string(data), nil
}

// Args builds the pandoc argument list.
func (p *Pandoc) Args(input, output, filter string) []string {
	return []string{
		"-f", p.cfg.From,
		input,
		"-t", "org",
		"--lua-filter=" + filter,
		"--wrap=" + p.cfg.Wrap,
		"-o", output,
	}
}

// filter returns the configured filter path, materializing the embedded
// filter on first use when none is configured.
func (p *Pandoc) filter() (string, error) {
	if p.cfg.Filter != "" {
		return p.cfg.Filter, nil
	}
	p.once.Do(func() {
		f, err := os.CreateTemp("", "mdorg-remove-header-attr-*.lua")
		if err != nil {
			p.filterErr = fmt.Errorf("render: create filter: %w", err)
			return
		}
		defer f.Close()
		if _, err := f.Write(headerAttrFilter); err != nil {
			p.filterErr = fmt.Errorf("render: write filter: %w", err)
			_ = os.Remove(f.Name())
			return
		}
		p.filterPath = f.Name()
		p.tempFilter = f.Name()
	})
	return p.filterPath, p.filterErr
}

// Close removes the materialized filter, if any.
func (p *Pandoc) Close() error {
	if p.tempFilter == "" {
		return nil
	}
	err := os.Remove(p.tempFilter)
	p.tempFilter = ""
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("render: remove filter: %w", err)
	}
	return nil
}
