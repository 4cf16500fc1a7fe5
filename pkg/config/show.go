package config

import (
	"io"

	"github.com/BurntSushi/toml"
)

// WriteTOML writes c in config file form.
func (c *Config) WriteTOML(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
