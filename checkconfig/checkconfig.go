// Package checkconfig finds and loads rule files.
//
// A rule file wraps the rule set in a "config" key:
//
//	{"config": {"unique_names": ["lsass.exe"], "reference_parents": {"smss.exe": "System"}}}
//
// Files ending in .yaml or .yml carry the same structure in YAML.
package checkconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"checkpstree/rules"

	"gopkg.in/yaml.v3"
)

// ConfigDir is the directory under the plugins directory that holds profile rule files
const ConfigDir = "checkpstree_configs"

var (
	ErrNotExist   = errors.New("does not exist")
	ErrNotRegular = errors.New("is not a regular file")
	ErrUnreadable = errors.New("is not readable")
	ErrMalformed  = errors.New("is not a valid rule file")
)

// ConfigError names the rule file and the reason it could not be used
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config file %s %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

type document struct {
	Config *rules.Config `json:"config" yaml:"config"`
}

// ResolvePath returns explicit when set, else the profile's file under pluginsDir
func ResolvePath(explicit, pluginsDir, profile string) string {
	if explicit != "" {
		return explicit
	}
	return filepath.Join(pluginsDir, ConfigDir, profile+".json")
}

// Load reads and decodes the rule file at path
func Load(path string) (*rules.Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigError{Path: path, Err: ErrNotExist}
		}
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("%w: %v", ErrUnreadable, err)}
	}
	if !info.Mode().IsRegular() {
		return nil, &ConfigError{Path: path, Err: ErrNotRegular}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("%w: %v", ErrUnreadable, err)}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("%w: %v", ErrUnreadable, err)}
	}

	cfg, err := decode(path, data)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	return cfg, nil
}

func decode(path string, data []byte) (*rules.Config, error) {
	var doc document

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	}

	if doc.Config == nil {
		return nil, errors.New(`missing "config" key`)
	}
	return doc.Config, nil
}
