// Package config loads the settings of the key resolver, the drivers and
// the geeq command.
//
// Values are layered, lowest priority first: built-in defaults, a YAML file,
// GEEQUERY_ environment variables and explicitly set command-line flags.
// Nested keys are separated by a double underscore in the environment, so
// GEEQUERY_LOG__LEVEL sets log.level.
package config

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/GeeQuery/geequery-orm/dialect/profile"
	"github.com/GeeQuery/geequery-orm/dialect/sql/keygen"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "GEEQUERY_"

// Defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultSlowQuery = 200 * time.Millisecond
)

// Log configures the process logger.
type Log struct {
	Level  string `koanf:"level" yaml:"level"`   // debug, info, warn or error
	Format string `koanf:"format" yaml:"format"` // text or json
}

// Config holds every setting.
type Config struct {
	// ManualSequence keeps caller-assigned positive keys.
	ManualSequence bool `koanf:"manual_sequence" yaml:"manual_sequence"`
	// SingleSite turns off datasource routing of partitioned tables.
	SingleSite    bool              `koanf:"single_site" yaml:"single_site"`
	SchemaMapping map[string]string `koanf:"schema_mapping" yaml:"schema_mapping,omitempty"`
	SiteMapping   map[string]string `koanf:"site_mapping" yaml:"site_mapping,omitempty"`
	// Dialect is the default profile name when none can be derived from a URL.
	Dialect string `koanf:"dialect" yaml:"dialect,omitempty"`
	// DSN is the connection URL used by the probe command.
	DSN       string        `koanf:"dsn" yaml:"dsn,omitempty"`
	Log       Log           `koanf:"log" yaml:"log"`
	SlowQuery time.Duration `koanf:"slow_query" yaml:"-"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Log:       Log{Level: DefaultLogLevel, Format: DefaultLogFormat},
		SlowQuery: DefaultSlowQuery,
	}
}

func defaults() map[string]any {
	return map[string]any{
		"manual_sequence": false,
		"single_site":     false,
		"log.level":       DefaultLogLevel,
		"log.format":      DefaultLogFormat,
		"slow_query":      DefaultSlowQuery.String(),
	}
}

// Load reads the configuration. path may be empty to skip the file and
// flags may be nil. Only flags changed on the command line override.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}
	if flags != nil {
		err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil)
		if err != nil {
			return nil, fmt.Errorf("config: load flags: %w", err)
		}
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey turns GEEQUERY_LOG__LEVEL into log.level.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// flagKey turns --log-level into log.level and --slow-query into slow_query.
func flagKey(name string) string {
	if rest, ok := strings.CutPrefix(name, "log-"); ok {
		return "log." + rest
	}
	return strings.ReplaceAll(name, "-", "_")
}

// Validate checks the values that cannot be decoded wrong silently.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: invalid log level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: invalid log format %q", c.Log.Format)
	}
	if c.SlowQuery < 0 {
		return fmt.Errorf("config: negative slow_query %s", c.SlowQuery)
	}
	if c.Dialect != "" {
		if _, ok := profile.Lookup(c.Dialect); !ok {
			return fmt.Errorf("config: unknown dialect %q", c.Dialect)
		}
	}
	return nil
}

// Keygen returns the key resolver settings.
func (c *Config) Keygen() keygen.Config {
	return keygen.Config{
		ManualSequence: c.ManualSequence,
		SingleSite:     c.SingleSite,
		SchemaMapping:  c.SchemaMapping,
		SiteMapping:    c.SiteMapping,
	}
}

// YAML renders the configuration as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yamlv3.NewEncoder(&buf)
	enc.SetIndent(2)
	doc := struct {
		Config    `yaml:",inline"`
		SlowQuery string `yaml:"slow_query"`
	}{*c, c.SlowQuery.String()}
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("config: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
