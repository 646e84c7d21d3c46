// Package config persists tool settings such as API keys in an INI file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/ini.v1"
)

const (
	// Section holds every setting.
	Section = "GLOBAL"

	// EnvPath overrides the config file location.
	EnvPath = "VALKYRIE_CONFIG"

	KeyVirusTotalAPIKey = "virustotalapikey"
	KeyIPInfoToken      = "ipinfotoken"
)

// Defaults are written to a new config file.
var Defaults = map[string]string{
	KeyVirusTotalAPIKey: "",
}

var ErrKeyNotFound = errors.New("key not found")

// Config is a flat key/value store backed by one INI section. Keys are
// case-insensitive.
type Config struct {
	path string
	file *ini.File
}

// DefaultPath returns the config file location, honouring VALKYRIE_CONFIG.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config directory: %w", err)
	}
	return filepath.Join(dir, "valkyrie", ".valkyrie"), nil
}

// Open loads the config at path. A missing file is created holding
// defaults.
func Open(path string, defaults map[string]string) (*Config, error) {
	opts := ini.LoadOptions{InsensitiveKeys: true}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		c := &Config{path: path, file: ini.Empty(opts)}
		sec := c.file.Section(Section)
		for k, v := range defaults {
			sec.Key(k).SetValue(v)
		}
		if err := c.save(); err != nil {
			return nil, err
		}
		return c, nil
	} else if err != nil {
		return nil, err
	}

	f, err := ini.LoadSources(opts, path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return &Config{path: path, file: f}, nil
}

// Path returns the backing file path.
func (c *Config) Path() string {
	return c.path
}

// Get returns the value for key.
func (c *Config) Get(key string) (string, error) {
	sec := c.file.Section(Section)
	if !sec.HasKey(normalize(key)) {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return sec.Key(normalize(key)).String(), nil
}

// Lookup returns the value for key, or "" when it is unset.
func (c *Config) Lookup(key string) string {
	v, _ := c.Get(key)
	return v
}

// Set stores value under key and saves the file.
func (c *Config) Set(key, value string) error {
	c.file.Section(Section).Key(normalize(key)).SetValue(value)
	return c.save()
}

// Delete removes key and saves the file.
func (c *Config) Delete(key string) error {
	sec := c.file.Section(Section)
	if !sec.HasKey(normalize(key)) {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	sec.DeleteKey(normalize(key))
	return c.save()
}

// Keys returns every key, sorted.
func (c *Config) Keys() []string {
	keys := c.file.Section(Section).KeyStrings()
	sort.Strings(keys)
	return keys
}

func (c *Config) save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := c.file.SaveTo(c.path); err != nil {
		return fmt.Errorf("saving %s: %w", c.path, err)
	}
	return os.Chmod(c.path, 0o600)
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
