// Package config loads the generator configuration document: rename and
// ignore rules consumed by the name allocator and the normalizer, plus
// project metadata passed through to the renderer.
package config

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/pixie-sh/errors-go"
	"gopkg.in/yaml.v3"
)

// Config is the recognized configuration surface. Unknown keys are rejected
// at load time.
type Config struct {
	NameMapping     NameMapping     `yaml:"name_mapping"`
	Ignore          Ignore          `yaml:"ignore"`
	ProjectMetadata ProjectMetadata `yaml:"project_metadata"`
}

// NameMapping holds the user-supplied rename tables. Struct and property
// mappings are keyed by JSON pointer; status code mappings by status string.
type NameMapping struct {
	StructMapping     map[string]string `yaml:"struct_mapping"`
	PropertyMapping   map[string]string `yaml:"property_mapping"`
	StatusCodeMapping map[string]string `yaml:"status_code_mapping"`
	ModuleMapping     map[string]string `yaml:"module_mapping"`
}

// Ignore lists path templates and component names to drop from generation.
type Ignore struct {
	Paths      []string `yaml:"paths"`
	Components []string `yaml:"components"`
}

// ProjectMetadata is passed through to the renderer for manifest files.
type ProjectMetadata struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// Default returns an empty configuration with all maps initialized.
func Default() Config {
	return Config{
		NameMapping: NameMapping{
			StructMapping:     map[string]string{},
			PropertyMapping:   map[string]string{},
			StatusCodeMapping: map[string]string{},
			ModuleMapping:     map[string]string{},
		},
	}
}

// Load reads and parses the configuration file at path. Unknown keys fail
// with a diagnostic naming the file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), errors.Wrap(err, "could not read config file: %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return cfg, errors.Wrap(err, "invalid config file: %s", path)
	}
	return cfg, nil
}

// Parse decodes a configuration document, rejecting unknown keys.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	err := dec.Decode(&cfg)
	if err == io.EOF {
		return cfg, nil
	}
	if err != nil {
		return Default(), errors.Wrap(err, "failed to parse config")
	}
	return cfg, nil
}

// Discover loads configuration from .clientgen.yaml or clientgen.yaml in the
// working directory. When neither exists, the defaults are returned with no
// error.
func Discover() (Config, error) {
	for _, path := range []string{".clientgen.yaml", "clientgen.yaml"} {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		cfg, err := Parse(data)
		if err != nil {
			return cfg, errors.Wrap(err, "invalid config file: %s", path)
		}
		return cfg, nil
	}
	return Default(), nil
}

// IgnoredPath reports whether operations under path should be dropped. A rule
// matches the exact template or any template the path nests under.
func (c *Config) IgnoredPath(path string) bool {
	for _, rule := range c.Ignore.Paths {
		rule = strings.TrimSuffix(rule, "/")
		if path == rule || strings.HasPrefix(path, rule+"/") {
			return true
		}
	}
	return false
}

// IgnoredComponent reports whether the named component schema is dropped.
func (c *Config) IgnoredComponent(name string) bool {
	for _, n := range c.Ignore.Components {
		if n == name {
			return true
		}
	}
	return false
}

// StructOverride returns the user override for a type at the given pointer.
func (c *Config) StructOverride(pointer string) (string, bool) {
	name, ok := c.NameMapping.StructMapping[pointer]
	return name, ok
}

// PropertyOverride returns the user override for a field or parameter at the
// given pointer.
func (c *Config) PropertyOverride(pointer string) (string, bool) {
	name, ok := c.NameMapping.PropertyMapping[pointer]
	return name, ok
}

// StatusVariant returns the user-supplied variant name for a status string.
func (c *Config) StatusVariant(status string) (string, bool) {
	name, ok := c.NameMapping.StatusCodeMapping[status]
	return name, ok
}
