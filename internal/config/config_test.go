package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/draeath/s76-kbd-led-statemgr/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statemgr.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `{
		"brightness": {"path": "/tmp/b", "default": "100"},
		"color": {"path": "/tmp/c", "default": "FFFFFF", "pattern": "[0-9A-F]{6}"},
		"state_dir": "/tmp/state"
	}`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Brightness.Path != "/tmp/b" {
		t.Errorf("Brightness.Path = %q, want %q", cfg.Brightness.Path, "/tmp/b")
	}
	if cfg.Brightness.Default != "100" {
		t.Errorf("Brightness.Default = %q, want %q", cfg.Brightness.Default, "100")
	}
	if cfg.StateDir != "/tmp/state" {
		t.Errorf("StateDir = %q, want %q", cfg.StateDir, "/tmp/state")
	}
	if !cfg.Color.Valid("ABCDEF") {
		t.Error("Color.Valid(ABCDEF) = false, want true with custom pattern")
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `{"state_dir": "/tmp/state"}`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := config.Default()
	if cfg.Brightness.Path != def.Brightness.Path {
		t.Errorf("Brightness.Path = %q, want default %q", cfg.Brightness.Path, def.Brightness.Path)
	}
	if cfg.StateDir != "/tmp/state" {
		t.Errorf("StateDir = %q, want %q", cfg.StateDir, "/tmp/state")
	}
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		contents string
	}{
		{name: "corrupt JSON", contents: `{not json`},
		{name: "empty device path", contents: `{"brightness": {"path": ""}}`},
		{name: "bad pattern", contents: `{"color": {"path": "/tmp/c", "pattern": "("}}`},
		{name: "empty state dir", contents: `{"state_dir": ""}`},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.contents)
			if _, err := config.Load(path); err == nil {
				t.Error("Load() error = nil, want error")
			}
		})
	}
}

func TestFind_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, from := config.Find(filepath.Join(t.TempDir(), "nope.json"))
	if from != "" {
		t.Errorf("Find() from = %q, want empty", from)
	}
	def := config.Default()
	if cfg.Brightness.Path != def.Brightness.Path {
		t.Errorf("Brightness.Path = %q, want default %q", cfg.Brightness.Path, def.Brightness.Path)
	}
}

func TestFind_CorruptFileFallsBackToDefaults(t *testing.T) {
	path := writeConfig(t, `{broken`)

	cfg, from := config.Find(path)
	if from != "" {
		t.Errorf("Find() from = %q, want empty", from)
	}
	if cfg.StateDir != config.Default().StateDir {
		t.Errorf("StateDir = %q, want default", cfg.StateDir)
	}
}

func TestFind_ExplicitPath(t *testing.T) {
	path := writeConfig(t, `{"state_dir": "/tmp/elsewhere"}`)

	cfg, from := config.Find(path)
	if from != path {
		t.Errorf("Find() from = %q, want %q", from, path)
	}
	if cfg.StateDir != "/tmp/elsewhere" {
		t.Errorf("StateDir = %q, want %q", cfg.StateDir, "/tmp/elsewhere")
	}
}

func TestDevice_Valid(t *testing.T) {
	def := config.Default()

	testCases := []struct {
		name   string
		device *config.Device
		value  string
		want   bool
	}{
		{name: "brightness accepts anything", device: &def.Brightness, value: "garbage", want: true},
		{name: "color accepts red", device: &def.Color, value: "FF0000", want: true},
		{name: "color accepts white", device: &def.Color, value: "FFFFFF", want: true},
		{name: "color rejects lowercase", device: &def.Color, value: "ff0000", want: false},
		{name: "color rejects partial match", device: &def.Color, value: "FF0000ZZ", want: false},
		{name: "color rejects arbitrary hex", device: &def.Color, value: "123456", want: false},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.device.Valid(tt.value); got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
