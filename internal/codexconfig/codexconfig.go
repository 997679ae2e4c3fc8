// Package codexconfig reads the Codex CLI's own configuration file to
// discover which models the user has set up locally.
package codexconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound means none of the candidate config files exist.
	ErrNotFound = errors.New("no Codex config file found in ~/.codex (config.toml, config.yaml, config.json). Please create one to enable dynamic model listing")
	// ErrNoModels means a config file parsed but names no model.
	ErrNoModels = errors.New("no models found in Codex config file")
)

// ParseError reports a config file that exists but cannot be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse Codex config file at %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Candidate file names, in lookup order.
var fileNames = []string{"config.toml", "config.yaml", "config.json"}

// userHomeDir is a package-level var to allow test injection.
var userHomeDir = os.UserHomeDir

// Model is one configured model.
type Model struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type profile struct {
	Model         string `toml:"model" yaml:"model" json:"model"`
	ModelProvider string `toml:"model_provider" yaml:"model_provider" json:"model_provider"`
}

// File is the subset of the Codex config that describes models.
type File struct {
	Model         string             `toml:"model" yaml:"model" json:"model"`
	ModelProvider string             `toml:"model_provider" yaml:"model_provider" json:"model_provider"`
	Profiles      map[string]profile `toml:"profiles" yaml:"profiles" json:"profiles"`
}

// Dir returns the Codex home directory: $CODEX_HOME, else ~/.codex.
func Dir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("CODEX_HOME")); dir != "" {
		return dir, nil
	}
	home, err := userHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".codex"), nil
}

// Load finds the first config file in dir that parses. A file that exists
// but fails to parse is skipped in favour of the next candidate; if no
// candidate parses, the last parse failure is returned.
func Load(dir string) (*File, string, error) {
	var parseErr error
	for _, name := range fileNames {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", path, err)
		}

		cfg, err := decode(name, data)
		if err != nil {
			parseErr = &ParseError{Path: path, Err: err}
			continue
		}
		return cfg, path, nil
	}
	if parseErr != nil {
		return nil, "", parseErr
	}
	return nil, "", ErrNotFound
}

func decode(name string, data []byte) (*File, error) {
	var cfg File
	var err error
	switch filepath.Ext(name) {
	case ".toml":
		_, err = toml.Decode(string(data), &cfg)
	case ".yaml":
		err = yaml.Unmarshal(data, &cfg)
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default:
		err = fmt.Errorf("unsupported config format %q", name)
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Models lists the top-level model followed by each profile's model, in
// profile-name order. A duplicate name keeps its first position and takes
// the description of its last occurrence.
func (f *File) Models() []Model {
	var models []Model
	index := make(map[string]int)
	add := func(m Model) {
		if m.Name == "" {
			return
		}
		if i, ok := index[m.Name]; ok {
			models[i].Description = m.Description
			return
		}
		index[m.Name] = len(models)
		models = append(models, m)
	}

	if f.Model != "" {
		m := Model{Name: f.Model}
		if f.ModelProvider != "" {
			m.Description = "Provider: " + f.ModelProvider
		}
		add(m)
	}

	names := make([]string, 0, len(f.Profiles))
	for name := range f.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := f.Profiles[name]
		desc := "Profile: " + name
		if p.ModelProvider != "" {
			desc += ", Provider: " + p.ModelProvider
		}
		add(Model{Name: p.Model, Description: desc})
	}
	return models
}

// Discover loads the config in dir and returns its models.
func Discover(dir string) ([]Model, error) {
	cfg, _, err := Load(dir)
	if err != nil {
		return nil, err
	}
	models := cfg.Models()
	if len(models) == 0 {
		return nil, ErrNoModels
	}
	return models, nil
}

// Format renders models one per line as "- name: description".
func Format(models []Model) string {
	lines := make([]string, 0, len(models))
	for _, m := range models {
		line := "- " + m.Name
		if m.Description != "" {
			line += ": " + m.Description
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
