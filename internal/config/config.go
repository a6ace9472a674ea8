package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/hyp3rd/ewrap"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/docloom-insights/internal/parser"
)

// EnvPrefix is prepended to every key when read from the environment,
// e.g. DOCLOOM_INSIGHTS_LISTEN_ADDR.
const EnvPrefix = "DOCLOOM_INSIGHTS"

// Global configuration structure.
type Global struct {
	// HTTP service
	ListenAddr         string   `mapstructure:"listen_addr" yaml:"listen_addr"`
	MaxUploadMB        int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	ReadTimeoutSec     int      `mapstructure:"read_timeout_sec" yaml:"read_timeout_sec"`
	WriteTimeoutSec    int      `mapstructure:"write_timeout_sec" yaml:"write_timeout_sec"`
	ShutdownTimeoutSec int      `mapstructure:"shutdown_timeout_sec" yaml:"shutdown_timeout_sec"`
	CORSAllowOrigins   []string `mapstructure:"cors_allow_origins" yaml:"cors_allow_origins"`

	// Analysis
	ZThreshold         float64 `mapstructure:"z_threshold" yaml:"z_threshold"`
	Delimiter          string  `mapstructure:"delimiter" yaml:"delimiter"`
	DecimalSeparator   string  `mapstructure:"decimal_separator" yaml:"decimal_separator"`
	ThousandsSeparator string  `mapstructure:"thousands_separator" yaml:"thousands_separator"`

	// Observability
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat   string `mapstructure:"log_format" yaml:"log_format"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
}

// DefaultPath returns ~/.docloom-insights/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", ewrap.Wrap(err, "resolve home dir")
	}
	return filepath.Join(home, ".docloom-insights", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to DefaultPath, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ewrap.Wrap(err, "mkdir config dir")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return ewrap.Wrap(err, "marshal yaml")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return ewrap.Wrap(err, "write config")
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Command flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":8000")
	v.SetDefault("max_upload_mb", 10)
	v.SetDefault("read_timeout_sec", 30)
	v.SetDefault("write_timeout_sec", 30)
	v.SetDefault("shutdown_timeout_sec", 10)
	v.SetDefault("cors_allow_origins", []string{})
	v.SetDefault("z_threshold", 3.0)
	v.SetDefault("delimiter", "")
	v.SetDefault("decimal_separator", ".")
	v.SetDefault("thousands_separator", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("service_name", "docloom-insights")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(p))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, ewrap.Wrap(err, "read config")
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, ewrap.Wrap(err, "unmarshal config")
	}
	return &c, nil
}

// Validate rejects settings the service cannot run with.
func (c *Global) Validate() error {
	switch {
	case c.MaxUploadMB <= 0:
		return ewrap.Newf("max_upload_mb must be positive, got %d", c.MaxUploadMB)
	case c.ZThreshold <= 0:
		return ewrap.Newf("z_threshold must be positive, got %g", c.ZThreshold)
	case c.ReadTimeoutSec < 0 || c.WriteTimeoutSec < 0 || c.ShutdownTimeoutSec < 0:
		return ewrap.New("timeouts must not be negative")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return ewrap.Newf("log_format must be json or console, got %q", c.LogFormat)
	}
	_, err := c.ParserOptions()
	return err
}

// ParserOptions converts the analysis settings into parser options.
func (c *Global) ParserOptions() (parser.Options, error) {
	opt := parser.DefaultOptions()
	opt.ZThreshold = c.ZThreshold
	var err error
	if opt.Delimiter, err = ParseRune("delimiter", c.Delimiter); err != nil {
		return opt, err
	}
	if c.DecimalSeparator != "" {
		if opt.DecimalSeparator, err = ParseRune("decimal_separator", c.DecimalSeparator); err != nil {
			return opt, err
		}
	}
	if opt.ThousandsSeparator, err = ParseRune("thousands_separator", c.ThousandsSeparator); err != nil {
		return opt, err
	}
	if opt.ThousandsSeparator != 0 && opt.ThousandsSeparator == opt.DecimalSeparator {
		return opt, ewrap.New("thousands_separator and decimal_separator must differ")
	}
	return opt, nil
}

// ParseRune reads a single-character setting. The empty string yields 0 and
// "tab" or `\t` yield a tab.
func ParseRune(key, s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, ewrap.Newf("%s must be a single character, got %q", key, s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}
