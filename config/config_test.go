package config

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lixenwraith/tngame/scene"
	"github.com/lixenwraith/tngame/terminal"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tngame.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected defaults to validate, got %v", err)
	}
	if cfg.Listen != ":2323" {
		t.Errorf("Expected :2323, got %s", cfg.Listen)
	}
	if cfg.TickInterval != 50*time.Millisecond {
		t.Errorf("Expected 50ms tick, got %v", cfg.TickInterval)
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Mode != ModeScene {
		t.Errorf("Expected default mode, got %s", cfg.Mode)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
listen: ":4000"
mode: relay
tick_interval: 100ms
greeting: "hello there"
snow:
  density: 0.1
  palette: ["#fff", "#000000"]
relay:
  command: /usr/bin/env
  args: [cat]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Listen != ":4000" || cfg.Mode != ModeRelay {
		t.Errorf("Expected :4000/relay, got %s/%s", cfg.Listen, cfg.Mode)
	}
	if cfg.TickInterval != 100*time.Millisecond {
		t.Errorf("Expected 100ms, got %v", cfg.TickInterval)
	}
	if cfg.Snow.Density != 0.1 {
		t.Errorf("Expected density 0.1, got %v", cfg.Snow.Density)
	}
	// Untouched keys in a touched section keep their defaults
	if cfg.Snow.Speed != 8.0 {
		t.Errorf("Expected default speed 8.0, got %v", cfg.Snow.Speed)
	}
	if len(cfg.Relay.Args) != 1 || cfg.Relay.Args[0] != "cat" {
		t.Errorf("Expected relay args [cat], got %v", cfg.Relay.Args)
	}

	sc := cfg.SnowConfig()
	if len(sc.Palette) != 2 || sc.Palette[0] != terminal.White || sc.Palette[1] != terminal.Black {
		t.Errorf("Expected white/black palette, got %v", sc.Palette)
	}
}

func TestLoad_SchemaRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown key", "listne: \":1\"\n"},
		{"bad mode", "mode: chess\n"},
		{"bad duration", "tick_interval: 5\n"},
		{"bad color", "actor:\n  color: pink\n"},
		{"negative sessions", "max_sessions: 0\n"},
		{"density too high", "snow:\n  density: 2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("Expected schema error, got nil")
			}
		})
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Listen != Default().Listen {
		t.Errorf("Expected defaults, got %s", cfg.Listen)
	}
}

func TestValidate_Semantic(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"multi rune glyph", func(c *Config) { c.Snow.Glyph = "**" }, "snow.glyph"},
		{"wide glyph", func(c *Config) { c.Snow.Glyph = "雪" }, "snow.glyph"},
		{"zero-width glyph", func(c *Config) { c.Snow.Glyph = "\u0301" }, "snow.glyph"},
		{"unknown art", func(c *Config) { c.Actor.Art = "dragon" }, "actor.art"},
		{"zero tick", func(c *Config) { c.TickInterval = 0 }, "tick_interval"},
		{"empty palette", func(c *Config) { c.Snow.Palette = nil }, "snow.palette"},
		{"empty listen", func(c *Config) { c.Listen = "" }, "listen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("Expected error to mention %s, got %v", tt.field, err)
			}
		})
	}
}

func TestSceneConfig(t *testing.T) {
	cfg := Default()
	cfg.Actor.Art = "bunny"
	cfg.Actor.Color = "#55cdfd"
	sc, err := cfg.SceneConfig()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sc.Actor.Name != "bunny" {
		t.Errorf("Expected bunny, got %s", sc.Actor.Name)
	}
	if sc.ActorColor != terminal.SnowBlue {
		t.Errorf("Expected %v, got %v", terminal.SnowBlue, sc.ActorColor)
	}
	if sc.Snow.Glyph != '*' {
		t.Errorf("Expected '*', got %q", sc.Snow.Glyph)
	}
}

func TestSceneConfig_BlackActor(t *testing.T) {
	cfg := Default()
	cfg.Actor.Color = "#000000"
	sc, err := cfg.SceneConfig()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	s := scene.New(terminal.Size{Rows: 24, Cols: 80}, sc, rand.New(rand.NewSource(1)))
	if got := s.Actor().Color; got != (terminal.RGB{}) {
		t.Errorf("Expected black actor, got %v", got)
	}
}
