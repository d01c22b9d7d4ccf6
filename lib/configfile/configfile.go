// Package configfile reads widget configurations from disk.
//
// The format is chosen by extension: .yaml/.yml, .json or .toml. Keys the
// Config struct does not name are ignored except under "extra", which is
// passed to the widget untouched.
package configfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/pthm/webchat"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for an unknown file extension.
var ErrUnsupportedFormat = errors.New("configfile: unsupported extension")

// Load reads path and returns the config it holds. The config is not
// validated; call Validate on the result.
func Load(path string) (*webchat.Config, error) {
	if path == "" {
		return nil, errors.New("configfile: empty path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Decode(filepath.Ext(path), b)
	if err != nil {
		return nil, fmt.Errorf("configfile: %s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses b as the format named by ext (".yaml", "json", ...).
func Decode(ext string, b []byte) (*webchat.Config, error) {
	var cfg webchat.Config
	switch strings.TrimPrefix(strings.ToLower(ext), ".") {
	case "yaml", "yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, err
		}
	case "json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return nil, err
		}
	case "toml":
		if err := toml.NewDecoder(bytes.NewReader(b)).Decode(&cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return &cfg, nil
}
