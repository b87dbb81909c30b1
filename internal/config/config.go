package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"trialscope/internal/catalog"
	"trialscope/internal/ingest"
)

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// DefaultPattern matches dataset files, compressed or not, at any depth.
const DefaultPattern = "**/*.{json,ndjson,jsonl}{,.gz,.zst,.xz}"

type Config struct {
	Dir            string   `mapstructure:"dir" yaml:"dir"`
	Pattern        string   `mapstructure:"pattern" yaml:"pattern"`
	Exclude        []string `mapstructure:"exclude" yaml:"exclude"`
	MaxFiles       int      `mapstructure:"max_files" yaml:"max_files"`
	MaxRows        int      `mapstructure:"max_rows" yaml:"max_rows"`
	ChunkSizeKB    int      `mapstructure:"chunk_size_kb" yaml:"chunk_size_kb"`
	HeaderBudgetKB int      `mapstructure:"header_budget_kb" yaml:"header_budget_kb"`
	PageSize       int      `mapstructure:"page_size" yaml:"page_size"`
	ValueCap       int      `mapstructure:"value_cap" yaml:"value_cap"`
	FilterSlice    int      `mapstructure:"filter_slice" yaml:"filter_slice"`
	Theme          Theme    `mapstructure:"theme" yaml:"theme"`
	LogLevel       string   `mapstructure:"log_level" yaml:"log_level"`

	// InputFormat forces json or ndjson for files given by path; empty
	// infers it from the name, then from the content.
	InputFormat string `mapstructure:"input_format" yaml:"input_format"`

	Offline          bool   `mapstructure:"offline" yaml:"offline"`
	OpenAIModel      string `mapstructure:"openai_model" yaml:"openai_model"`
	OpenAIBase       string `mapstructure:"openai_base_url" yaml:"openai_base_url"`
	OpenAITimeoutSec int    `mapstructure:"openai_timeout_sec" yaml:"openai_timeout_sec"`
}

var defaults = map[string]any{
	"dir":                ".",
	"pattern":            DefaultPattern,
	"exclude":            []string{},
	"max_files":          0,
	"input_format":       "",
	"max_rows":           460000,
	"chunk_size_kb":      1024,
	"header_budget_kb":   64,
	"page_size":          30,
	"value_cap":          100,
	"filter_slice":       5000,
	"theme":              string(ThemeDark),
	"log_level":          "info",
	"offline":            false,
	"openai_model":       "gpt-4o-mini",
	"openai_base_url":    "",
	"openai_timeout_sec": 60,
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	var c Config
	_ = v.Unmarshal(&c)
	return &c
}

// Load resolves configuration. Precedence: changed flags > env
// (TRIALSCOPE_*) > config file > defaults. Flags are matched to keys by
// name with dashes turned into underscores; flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRIALSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
		v.SetConfigName("trialscope")
		v.SetConfigType("yaml")
		// optional
		var nf viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &nf) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if _, known := defaults[key]; !known || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(key, f)
		})
		if bindErr != nil {
			return nil, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	switch {
	case c.MaxRows <= 0:
		return fmt.Errorf("max_rows must be positive, got %d", c.MaxRows)
	case c.ChunkSizeKB <= 0:
		return fmt.Errorf("chunk_size_kb must be positive, got %d", c.ChunkSizeKB)
	case c.HeaderBudgetKB <= 0:
		return fmt.Errorf("header_budget_kb must be positive, got %d", c.HeaderBudgetKB)
	case c.PageSize <= 0:
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	case c.ValueCap <= 0:
		return fmt.Errorf("value_cap must be positive, got %d", c.ValueCap)
	case c.FilterSlice <= 0:
		return fmt.Errorf("filter_slice must be positive, got %d", c.FilterSlice)
	case c.MaxFiles < 0:
		return fmt.Errorf("max_files must not be negative, got %d", c.MaxFiles)
	}
	if c.InputFormat != "" {
		if _, err := ingest.ParseFormat(c.InputFormat); err != nil {
			return fmt.Errorf("input_format: %w", err)
		}
	}
	for _, p := range c.Exclude {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("exclude: invalid pattern %q", p)
		}
	}
	switch c.Theme {
	case ThemeDark, ThemeLight:
	default:
		return fmt.Errorf("theme must be dark or light, got %q", c.Theme)
	}
	return nil
}

// Dir is the per-user configuration directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".trialscope"), nil
}

// Save writes c as YAML to path, or to trialscope.yaml in Dir when path
// is empty.
func Save(c *Config, path string) (string, error) {
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return "", err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "trialscope.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}

// SourceFormat is the forced input format, or "" to infer it.
func (c *Config) SourceFormat() ingest.Format {
	f, _ := ingest.ParseFormat(c.InputFormat)
	return f
}

// CatalogOptions selects dataset files under Dir.
func (c *Config) CatalogOptions() catalog.Options {
	return catalog.Options{Pattern: c.Pattern, Exclude: c.Exclude, MaxFiles: c.MaxFiles}
}

// IngestOptions converts the size settings to loader options.
func (c *Config) IngestOptions() ingest.Options {
	return ingest.Options{
		MaxRows:      c.MaxRows,
		ChunkSize:    c.ChunkSizeKB << 10,
		HeaderBudget: c.HeaderBudgetKB << 10,
	}
}

func (c *Config) OpenAIKey() string { return os.Getenv("OPENAI_API_KEY") }

func (c *Config) OpenAITimeout() time.Duration {
	return time.Duration(c.OpenAITimeoutSec) * time.Second
}

// AIEnabled reports whether the assistant may call out.
func (c *Config) AIEnabled() bool { return !c.Offline && c.OpenAIKey() != "" }

func (c *Config) String() string {
	return fmt.Sprintf("dir=%s pattern=%s max_rows=%d page_size=%d value_cap=%d theme=%s offline=%v",
		c.Dir, c.Pattern, c.MaxRows, c.PageSize, c.ValueCap, c.Theme, c.Offline)
}
