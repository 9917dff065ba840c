// Package file loads funnel scripts from YAML or JSON documents on any fs.FS.
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/aretw0/lander/internal/logging"
	"github.com/aretw0/lander/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Extensions lists the recognised script documents, in lookup order.
var Extensions = []string{".yaml", ".yml", ".json"}

// Loader implements ports.ScriptLoader over a filesystem.
// A script ID is its file name without extension.
type Loader struct {
	fsys   fs.FS
	dir    string
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithDir restricts lookups to a sub-directory of the filesystem.
func WithDir(dir string) Option {
	return func(l *Loader) {
		l.dir = dir
	}
}

// WithLogger configures the loader logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// New creates a loader reading from fsys.
func New(fsys fs.FS, opts ...Option) *Loader {
	l := &Loader{
		fsys:   fsys,
		dir:    ".",
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewDir creates a loader for a directory on disk.
func NewDir(dir string, opts ...Option) *Loader {
	return New(os.DirFS(dir), opts...)
}

// Load reads, decodes and validates the script with the given ID.
func (l *Loader) Load(id string) (*domain.Script, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("%w: %q", domain.ErrFunnelNotFound, id)
	}
	for _, ext := range Extensions {
		name := path.Join(l.dir, id+ext)
		data, err := fs.ReadFile(l.fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}

		s, err := Decode(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", name, err)
		}
		if s.ID == "" {
			s.ID = id
		}
		if s.ID != id {
			return nil, fmt.Errorf("%s declares id %q, expected %q", name, s.ID, id)
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("invalid script %s: %w", name, err)
		}
		l.logger.Debug("Script loaded", "id", id, "file", name)
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrFunnelNotFound, id)
}

// List returns the IDs of every script document in the directory.
func (l *Loader) List() ([]string, error) {
	entries, err := fs.ReadDir(l.fsys, l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}
	seen := make(map[string]bool)
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := path.Ext(e.Name())
		if !recognised(ext) {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ext)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func recognised(ext string) bool {
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Decode parses a YAML (or JSON) document into a Script without validating it.
// Durations are written as Go duration strings such as "850ms" or "5m".
// Unknown keys are rejected so typos surface early.
func Decode(data []byte) (*domain.Script, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	if raw == nil {
		return nil, errors.New("empty document")
	}

	var s domain.Script
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
		ErrorUnused: true,
		TagName:     "mapstructure",
		Result:      &s,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, err
	}
	return &s, nil
}
