// Package config loads per-project settings from .strsync.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/strsync/strsync/lint"
	"github.com/strsync/strsync/translate"
)

// FileName is the project configuration file looked up in the project root.
const FileName = ".strsync.yaml"

// Error is a fatal configuration problem.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return "config: " + e.Msg }

// LintSection toggles individual lint checks. Absent keys default to on.
type LintSection struct {
	DuplicateKeys *bool `yaml:"duplicate_keys"`
	EmptyValues   *bool `yaml:"empty_values"`
}

// ProviderSection configures the translation backend.
type ProviderSection struct {
	// ID names the provider in diagnostics (default "openai").
	ID string `yaml:"id"`
	// BaseURL is the API root, e.g. https://api.openai.com/v1.
	BaseURL string `yaml:"base_url"`
	// APIKey supports ${ENV} expansion so keys stay out of the file.
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
	// Format selects the request shape: "openai" or "gemini".
	Format string `yaml:"format"`
	// Batch caps texts per request; 0 means unlimited.
	Batch int `yaml:"batch"`
	// Timeout is the per-request limit in seconds.
	Timeout int `yaml:"timeout"`
	// Retries caps transient-failure attempts per request.
	Retries int `yaml:"retries"`
	// Prompt overrides the built-in system prompt; {{targetLang}} is
	// substituted with the native target language name.
	Prompt string `yaml:"prompt"`
	// ProxyURL routes provider traffic through an HTTP proxy.
	ProxyURL string `yaml:"proxy_url"`
}

// Config is the full project configuration.
type Config struct {
	// SourceLang is the locale whose catalog holds the text of record.
	SourceLang string `yaml:"source_lang"`
	// Languages lists target locales; empty means every locale found on
	// disk.
	Languages []string `yaml:"languages"`
	// ResourcesDir holds the <locale>.lproj catalog directories.
	ResourcesDir string `yaml:"resources_dir"`
	// SourceDirs are scanned for Go source to harvest.
	SourceDirs []string `yaml:"source_dirs"`
	// LayoutDirs are scanned for XML layout files to harvest.
	LayoutDirs []string `yaml:"layout_dirs"`
	// Keywords are extraction specs, e.g. "Localized:1,2,3".
	Keywords []string `yaml:"keywords"`
	// LookupFunc is the replacement call emitted in rewrite mode.
	LookupFunc string `yaml:"lookup_func"`
	// Workers bounds catalog-level concurrency.
	Workers int `yaml:"workers"`

	Lint     LintSection     `yaml:"lint"`
	Provider ProviderSection `yaml:"provider"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		SourceLang:   "en",
		ResourcesDir: "Resources",
		SourceDirs:   []string{"."},
		Keywords:     []string{"Localized:1,2,3"},
		LookupFunc:   "L",
		Workers:      4,
		Provider: ProviderSection{
			ID:      "openai",
			Format:  "openai",
			Batch:   50,
			Timeout: 120,
			Retries: 3,
		},
	}
}

// Load reads .strsync.yaml from rootDir. A missing file yields defaults;
// an unreadable or invalid file is fatal.
func Load(rootDir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(rootDir, FileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &Error{Msg: fmt.Sprintf("parsing %s: %v", path, err)}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SourceLang == "" {
		return &Error{Msg: "source_lang must not be empty"}
	}
	for _, lang := range c.Languages {
		if lang == "" {
			return &Error{Msg: "languages entries must not be empty"}
		}
	}
	if c.Workers < 0 {
		return &Error{Msg: fmt.Sprintf("workers must not be negative, got %d", c.Workers)}
	}
	switch c.Provider.Format {
	case "", "openai", "gemini":
	default:
		return &Error{Msg: fmt.Sprintf("unknown provider format %q (want openai or gemini)", c.Provider.Format)}
	}
	if c.Provider.Batch < 0 {
		return &Error{Msg: fmt.Sprintf("provider batch must not be negative, got %d", c.Provider.Batch)}
	}
	return nil
}

// LintOptions maps the lint section onto analyzer options.
func (c *Config) LintOptions() lint.Options {
	opts := lint.DefaultOptions()
	if c.Lint.DuplicateKeys != nil {
		opts.DuplicateKeys = *c.Lint.DuplicateKeys
	}
	if c.Lint.EmptyValues != nil {
		opts.EmptyValues = *c.Lint.EmptyValues
	}
	return opts
}

// AIConfig maps the provider section onto the HTTP provider configuration,
// expanding ${ENV} references in the API key.
func (c *Config) AIConfig() translate.AIConfig {
	format := translate.FormatOpenAIChat
	if c.Provider.Format == "gemini" {
		format = translate.FormatGemini
	}
	return translate.AIConfig{
		ID:           c.Provider.ID,
		BaseURL:      c.Provider.BaseURL,
		APIKey:       os.ExpandEnv(c.Provider.APIKey),
		Model:        c.Provider.Model,
		Format:       format,
		Batch:        c.Provider.Batch,
		Timeout:      time.Duration(c.Provider.Timeout) * time.Second,
		MaxRetries:   c.Provider.Retries,
		SystemPrompt: c.Provider.Prompt,
		Proxy:        c.Provider.ProxyURL,
	}
}
