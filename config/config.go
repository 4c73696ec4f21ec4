// Package config loads the server configuration from yaml, validated against an embedded schema.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/tngame/art"
	"github.com/lixenwraith/tngame/particle"
	"github.com/lixenwraith/tngame/scene"
	"github.com/lixenwraith/tngame/terminal"
)

// Session modes
const (
	ModeScene = "scene"
	ModeRelay = "relay"
)

//go:embed schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("config.schema.json", schemaJSON)

// ErrInvalid wraps every semantic validation failure
var ErrInvalid = errors.New("invalid config")

type Config struct {
	Listen           string        `yaml:"listen"`
	WSListen         string        `yaml:"ws_listen"`
	Mode             string        `yaml:"mode"`
	MaxSessions      int           `yaml:"max_sessions"`
	AcceptRate       float64       `yaml:"accept_rate"`
	AcceptBurst      int           `yaml:"accept_burst"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	TickInterval     time.Duration `yaml:"tick_interval"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	Debug            bool          `yaml:"debug"`
	Greeting         string        `yaml:"greeting"`

	Snow  Snow  `yaml:"snow"`
	Actor Actor `yaml:"actor"`
	Relay Relay `yaml:"relay"`

	JournalDir string `yaml:"journal_dir"`
	IndexPath  string `yaml:"index_path"`
	LogDir     string `yaml:"log_dir"`
}

type Snow struct {
	Density float64  `yaml:"density"`
	Speed   float64  `yaml:"speed"`
	XRand   float64  `yaml:"x_rand"`
	MinFall float64  `yaml:"min_fall"`
	Glyph   string   `yaml:"glyph"`
	Palette []string `yaml:"palette"`
}

type Actor struct {
	Art   string `yaml:"art"`
	Color string `yaml:"color"`
}

// Relay names the child program; an empty command runs this binary's child subcommand
type Relay struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Listen:           ":2323",
		Mode:             ModeScene,
		MaxSessions:      64,
		AcceptRate:       10,
		AcceptBurst:      20,
		HandshakeTimeout: 5 * time.Second,
		TickInterval:     50 * time.Millisecond,
		WriteTimeout:     5 * time.Second,
		Snow: Snow{
			Density: 0.05,
			Speed:   8.0,
			XRand:   0.8,
			MinFall: 0.5,
			Glyph:   "*",
			Palette: []string{"#F6AAB7", "#FFFFFF", "#55CDFD"},
		},
		Actor: Actor{
			Art:   "cat",
			Color: "#FFFFFF",
		},
	}
}

// Load reads a yaml file over the defaults; an empty path returns the defaults
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := Parse(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse checks raw yaml against the schema and decodes it over cfg
func Parse(b []byte, cfg *Config) error {
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil // Empty document keeps cfg as is
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return yaml.Unmarshal(b, cfg)
}

// Validate checks semantic ranges the schema cannot express
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Listen == "" {
		fail("listen address is empty")
	}
	if c.Mode != ModeScene && c.Mode != ModeRelay {
		fail("mode %q (want %s or %s)", c.Mode, ModeScene, ModeRelay)
	}
	if c.MaxSessions < 1 {
		fail("max_sessions %d", c.MaxSessions)
	}
	if c.AcceptRate <= 0 || c.AcceptBurst < 1 {
		fail("accept_rate %v / accept_burst %d", c.AcceptRate, c.AcceptBurst)
	}
	if c.HandshakeTimeout <= 0 {
		fail("handshake_timeout %v", c.HandshakeTimeout)
	}
	if c.TickInterval < time.Millisecond {
		fail("tick_interval %v", c.TickInterval)
	}
	if c.WriteTimeout <= 0 {
		fail("write_timeout %v", c.WriteTimeout)
	}

	s := c.Snow
	if s.Density < 0 || s.Density > 1 {
		fail("snow.density %v", s.Density)
	}
	if s.Speed <= 0 {
		fail("snow.speed %v", s.Speed)
	}
	if s.XRand < 0 {
		fail("snow.x_rand %v", s.XRand)
	}
	if s.MinFall <= 0 || s.MinFall > 1 {
		fail("snow.min_fall %v", s.MinFall)
	}
	if utf8.RuneCountInString(s.Glyph) != 1 || runewidth.StringWidth(s.Glyph) != 1 {
		fail("snow.glyph %q must be a single one-column character", s.Glyph)
	}
	if len(s.Palette) == 0 {
		fail("snow.palette is empty")
	}
	for _, hex := range s.Palette {
		if _, err := terminal.ParseHex(hex); err != nil {
			fail("snow.palette: %v", err)
		}
	}

	if _, err := art.Named(c.Actor.Art); err != nil {
		fail("actor.art: %v", err)
	}
	if _, err := terminal.ParseHex(c.Actor.Color); err != nil {
		fail("actor.color: %v", err)
	}

	return errors.Join(errs...)
}

// SnowConfig converts the snow section; call after Validate
func (c *Config) SnowConfig() particle.Config {
	pc := particle.Config{
		Density: c.Snow.Density,
		Speed:   c.Snow.Speed,
		XRand:   c.Snow.XRand,
		MinFall: c.Snow.MinFall,
	}
	if r, _ := utf8.DecodeRuneInString(c.Snow.Glyph); r != utf8.RuneError {
		pc.Glyph = r
	}
	for _, hex := range c.Snow.Palette {
		if rgb, err := terminal.ParseHex(hex); err == nil {
			pc.Palette = append(pc.Palette, rgb)
		}
	}
	return pc
}

// SceneConfig builds the per-session scene description
func (c *Config) SceneConfig() (scene.Config, error) {
	a, err := art.Named(c.Actor.Art)
	if err != nil {
		return scene.Config{}, err
	}
	color, err := terminal.ParseHex(c.Actor.Color)
	if err != nil {
		return scene.Config{}, err
	}
	return scene.Config{
		Snow:       c.SnowConfig(),
		Actor:      a,
		ActorColor: color,
		Greeting:   c.Greeting,
	}, nil
}
