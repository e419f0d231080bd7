package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/mdorg/internal/header"
	"github.com/starford/mdorg/internal/links"
	"github.com/starford/mdorg/internal/render"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Source   SourceConfig      `yaml:"source"`
	Output   OutputConfig      `yaml:"output"`
	Header   HeaderConfig      `yaml:"header"`
	Links    LinksConfig       `yaml:"links"`
	Renderer RendererConfig    `yaml:"renderer"`
	Ledger   LedgerConfig      `yaml:"ledger"`
	Run      RunConfig         `yaml:"run"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if c.Source.Extension == c.Output.Extension {
		return fmt.Errorf("output: extension must differ from source extension %q", c.Source.Extension)
	}
	if err := c.Header.Validate(); err != nil {
		return fmt.Errorf("header: %w", err)
	}
	if err := c.Links.Validate(); err != nil {
		return fmt.Errorf("links: %w", err)
	}
	if err := c.Renderer.Validate(); err != nil {
		return fmt.Errorf("renderer: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
	HTTP      HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.Required, validation.In(LogFormatText, LogFormatJSON)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SourceConfig describes the Markdown input files.
type SourceConfig struct {
	Extension string `yaml:"extension"`
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Extension, validation.Required, validation.By(dotted)),
	)
}

// OutputConfig describes the Org output tree. A relative Dir is resolved
// against the working directory.
type OutputConfig struct {
	Dir       string `yaml:"dir"`
	Extension string `yaml:"extension"`
}

// Validate validates the output configuration.
func (c *OutputConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Extension, validation.Required, validation.By(dotted)),
	)
}

// HeaderConfig selects the generated header layout.
type HeaderConfig struct {
	Convention header.Convention `yaml:"convention"`
	TagStyle   header.TagStyle   `yaml:"tag_style"`
}

// Validate validates the header configuration.
func (c *HeaderConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Convention, validation.Required, validation.In(header.Drawer, header.Directive)),
		validation.Field(&c.TagStyle, validation.Required, validation.In(header.TagsColon, header.TagsBracketed)),
	)
}

// LinksConfig selects how wiki-links are rewritten.
type LinksConfig struct {
	Mode links.Mode `yaml:"mode"`
}

// Validate validates the links configuration.
func (c *LinksConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(links.ModeID, links.ModePlain, links.ModeIDOrPlain)),
	)
}

// RendererConfig selects the Markdown to Org body renderer.
type RendererConfig struct {
	Kind   string              `yaml:"kind"`
	Pandoc render.PandocConfig `yaml:"pandoc"`
}

// Validate validates the renderer configuration.
func (c *RendererConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Kind, validation.Required, validation.In(render.KindPandoc, render.KindBuiltin)),
	)
}

// LedgerConfig holds the SQLite ledger location. An empty Path disables
// the ledger and with it incremental runs. The default name is hidden so
// the ledger files are never scanned as output.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// Resolve returns the ledger file path. Relative paths are taken from
// outputDir so the ledger travels with the output tree.
func (c *LedgerConfig) Resolve(outputDir string) string {
	if filepath.IsAbs(c.Path) {
		return c.Path
	}
	return filepath.Join(outputDir, c.Path)
}

// Enabled reports whether a ledger is configured.
func (c *LedgerConfig) Enabled() bool {
	return c.Path != ""
}

// RunConfig controls tree runs.
type RunConfig struct {
	ContinueOnError bool `yaml:"continue_on_error"`
	Force           bool `yaml:"force"`
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

func dotted(value interface{}) error {
	s, _ := value.(string)
	if s != "" && !strings.HasPrefix(s, ".") {
		return fmt.Errorf("must start with a dot")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatText,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Source: SourceConfig{
			Extension: ".md",
		},
		Output: OutputConfig{
			Dir:       "out",
			Extension: ".org",
		},
		Header: HeaderConfig{
			Convention: header.Drawer,
			TagStyle:   header.TagsColon,
		},
		Links: LinksConfig{
			Mode: links.ModeID,
		},
		Renderer: RendererConfig{
			Kind: render.KindPandoc,
		},
		Ledger: LedgerConfig{
			Path: ".mdorg.db",
		},
		Run: RunConfig{
			ContinueOnError: true,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
