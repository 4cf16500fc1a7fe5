package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/volvulus/untwist/pkg/errors"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "UNTWIST_"

// Bindings maps flag names to config keys.
type Bindings map[string]string

// Source describes where Load reads from.
type Source struct {
	// Path is the config file. Empty means DefaultFile, which may be
	// absent; an explicit path must exist.
	Path string

	// Flags and Bindings select the command-line overrides. Only flags
	// named in Bindings are read, and only when set on the command line.
	Flags    *pflag.FlagSet
	Bindings Bindings
}

// Load merges defaults, the config file, the environment and flags, then
// validates the result.
func Load(src Source) (*Config, error) {
	k := koanf.New(".")

	defaults, err := toMap(Default())
	if err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if err := k.Load(mapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	path := src.Path
	if path == "" && exists(DefaultFile) {
		path = DefaultFile
	}
	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config file %s", path)
		}
	}

	// UNTWIST_CACHE_REDIS_ADDR sets cache.redis_addr: a variable maps to
	// the known key whose dots and underscores both spell as underscores.
	known := make(map[string]string)
	for _, key := range k.Keys() {
		known[strings.ReplaceAll(key, ".", "_")] = key
	}
	err = k.Load(env.Provider(EnvPrefix, ".", func(name string) string {
		return known[strings.ToLower(strings.TrimPrefix(name, EnvPrefix))]
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if src.Flags != nil && len(src.Bindings) > 0 {
		p := posflag.ProviderWithFlag(src.Flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := src.Bindings[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(src.Flags, f)
		})
		if err := k.Load(p, nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("koanf")
	})
	return v
}()

// Validate checks every field constraint and reports all violations in one
// INVALID_CONFIG error.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid config")
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(errors.ErrCodeInvalidConfig, "%s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port", field)
	case "uri":
		return fmt.Sprintf("%s must be a URI", field)
	}
	return fmt.Sprintf("%s is invalid", field)
}

// mapProvider serves an in-memory map to koanf.
type mapProvider map[string]any

func (p mapProvider) Read() (map[string]any, error) { return p, nil }

func (p mapProvider) ReadBytes() ([]byte, error) {
	return nil, stderrors.New("mapProvider does not support ReadBytes")
}

// toMap returns c as the nested map koanf merges, keyed like the TOML file.
func toMap(c *Config) (map[string]any, error) {
	var buf bytes.Buffer
	if err := c.WriteTOML(&buf); err != nil {
		return nil, err
	}
	return toml.Parser().Unmarshal(buf.Bytes())
}

// exists reports whether a file exists at path.
func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
