// Package config loads tmap settings from .tmap/config.yaml (or a TOML
// file), applies defaults and validates the result.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/topicmap/pkg/layout"
	"github.com/vanderheijden86/topicmap/pkg/model"
)

// DirName is the per-project directory holding config, logs and caches.
const DirName = ".tmap"

// ViewportConfig bounds the zoom.
type ViewportConfig struct {
	MinZoom float64 `yaml:"min_zoom" toml:"min_zoom" validate:"gt=0"`
	MaxZoom float64 `yaml:"max_zoom" toml:"max_zoom" validate:"gtefield=MinZoom"`
}

// InteractionConfig tunes gestures.
type InteractionConfig struct {
	DefaultRelation string  `yaml:"default_relation" toml:"default_relation" validate:"required"`
	DragThreshold   float64 `yaml:"drag_threshold" toml:"drag_threshold" validate:"gte=0"`
	ZoomStep        float64 `yaml:"zoom_step" toml:"zoom_step" validate:"gt=1"`
	PanStep         float64 `yaml:"pan_step" toml:"pan_step" validate:"gt=0"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string `yaml:"backend" toml:"backend" validate:"oneof=file sqlite badger redis"`
	DSN     string `yaml:"dsn,omitempty" toml:"dsn,omitempty"`
	Name    string `yaml:"name,omitempty" toml:"name,omitempty"`
	Breaker bool   `yaml:"breaker" toml:"breaker"`
	// History is how many earlier saves the badger backend retains.
	History int `yaml:"history" toml:"history" validate:"gte=0"`
}

// AutosaveConfig controls background saving after edits.
type AutosaveConfig struct {
	Enabled bool          `yaml:"enabled" toml:"enabled"`
	Delay   time.Duration `yaml:"delay" toml:"delay" validate:"gte=0"`
}

// SessionConfig controls when layout moves off the owner goroutine.
type SessionConfig struct {
	// Graphs with more nodes than this are laid out by the background worker.
	AsyncLayoutThreshold int `yaml:"async_layout_threshold" toml:"async_layout_threshold" validate:"gte=0"`
	Subscribers          int `yaml:"subscriber_buffer" toml:"subscriber_buffer" validate:"gte=1"`
}

// KindSpec declares a host-specific node kind.
type KindSpec struct {
	Name  string `yaml:"name" toml:"name" validate:"required,kebab"`
	Label string `yaml:"label,omitempty" toml:"label,omitempty"`
	Order int    `yaml:"order" toml:"order"`
}

// KindsConfig extends the built-in kinds.
type KindsConfig struct {
	Nodes     []KindSpec `yaml:"nodes,omitempty" toml:"nodes,omitempty" validate:"dive"`
	Relations []string   `yaml:"relations,omitempty" toml:"relations,omitempty" validate:"dive,required"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level" toml:"level" validate:"oneof=debug info warn error"`
	File  string `yaml:"file,omitempty" toml:"file,omitempty"`
}

// Config is the full settings tree.
type Config struct {
	Viewport    ViewportConfig    `yaml:"viewport" toml:"viewport"`
	Layout      layout.Config     `yaml:"layout" toml:"layout"`
	Interaction InteractionConfig `yaml:"interaction" toml:"interaction"`
	Store       StoreConfig       `yaml:"store" toml:"store"`
	Autosave    AutosaveConfig    `yaml:"autosave" toml:"autosave"`
	Session     SessionConfig     `yaml:"session" toml:"session"`
	Kinds       KindsConfig       `yaml:"kinds" toml:"kinds"`
	Log         LogConfig         `yaml:"log" toml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Viewport: ViewportConfig{MinZoom: 0.1, MaxZoom: 4},
		Layout:   layout.DefaultConfig(),
		Interaction: InteractionConfig{
			DefaultRelation: string(model.RelRelatesTo),
			DragThreshold:   3,
			ZoomStep:        1.1,
			PanStep:         40,
		},
		Store:    StoreConfig{Backend: "file", History: 20},
		Autosave: AutosaveConfig{Enabled: true, Delay: 2 * time.Second},
		Session:  SessionConfig{AsyncLayoutThreshold: 200, Subscribers: 16},
		Log:      LogConfig{Level: "info"},
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("kebab", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s != "" && model.KebabCase(s) == s
	})
	return v
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	known := make(map[string]bool)
	for _, name := range layout.NewRegistry().Names() {
		known[name] = true
	}
	if !known[c.Layout.DefaultStrategy] {
		return fmt.Errorf("invalid config: layout.default_strategy: %w: %q", layout.ErrUnknownStrategy, c.Layout.DefaultStrategy)
	}
	for _, g := range c.Layout.Groups {
		if !known[g.Strategy] {
			return fmt.Errorf("invalid config: layout group %q: %w: %q", g.Name, layout.ErrUnknownStrategy, g.Strategy)
		}
	}
	if err := c.Registry().CheckRelation(model.RelationKind(c.Interaction.DefaultRelation)); err != nil {
		return fmt.Errorf("invalid config: interaction.default_relation: %w", err)
	}
	return nil
}

// Registry builds the kind registry: the built-ins plus configured extras.
func (c *Config) Registry() *model.Kinds {
	k := model.DefaultKinds()
	base := len(k.NodeKinds())
	for i, nk := range c.Kinds.Nodes {
		order := nk.Order
		if order == 0 {
			order = base + i
		}
		k.RegisterNode(model.KindInfo{Kind: model.NodeKind(nk.Name), Label: nk.Label, Order: order})
	}
	for _, rel := range c.Kinds.Relations {
		k.RegisterRelation(model.RelationKind(rel))
	}
	return k
}

// Load reads path over the defaults. The format follows the extension:
// .toml is TOML, anything else YAML. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := decode(path, data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if isTOML(path) {
		_, err := toml.Decode(string(data), cfg)
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Save writes cfg to path in the format implied by its extension.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if isTOML(path) {
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
	} else {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		enc.Close()
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
