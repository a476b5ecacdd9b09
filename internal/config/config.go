// Package config loads the statemgr configuration file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
)

// SearchPaths are tried in order when no explicit config path is given.
var SearchPaths = []string{
	"/usr/local/etc/s76-kbd-led-statemgr.json",
	"/etc/s76-kbd-led-statemgr.json",
}

// Device describes one LED attribute node.
type Device struct {
	// Path is the sysfs attribute file.
	Path string `json:"path"`
	// Default is written on restore when a saved value fails Pattern.
	Default string `json:"default"`
	// Pattern, when set, is a regexp a saved value must fully match before
	// it is written back to the device. Empty means the value is copied
	// back untouched.
	Pattern string `json:"pattern,omitempty"`

	re *regexp.Regexp
}

// Valid reports whether a saved value may be written to this device.
func (d *Device) Valid(value string) bool {
	if d.Pattern == "" {
		return true
	}
	if d.re == nil {
		d.re = regexp.MustCompile("^(?:" + d.Pattern + ")$")
	}
	return d.re.MatchString(value)
}

// Config holds the device paths and the state directory. Both attribute
// paths and the state location are injected from here so the capture and
// restore logic can run against temporary paths in tests.
type Config struct {
	Brightness Device `json:"brightness"`
	Color      Device `json:"color"`
	StateDir   string `json:"state_dir"`
}

// Attribute pairs a device with the sidecar name its value is stored under.
type Attribute struct {
	Name   string
	Device *Device
}

// Attributes returns the managed attributes in capture/restore order.
func (c *Config) Attributes() []Attribute {
	return []Attribute{
		{Name: "brightness", Device: &c.Brightness},
		{Name: "color", Device: &c.Color},
	}
}

// Default returns the built-in configuration for System76 ACPI keyboards.
func Default() *Config {
	return &Config{
		Brightness: Device{
			Path:    "/sys/class/leds/system76_acpi::kbd_backlight/brightness",
			Default: "48",
		},
		Color: Device{
			Path:    "/sys/class/leds/system76_acpi::kbd_backlight/color",
			Default: "FF0000",
			Pattern: "(00|FF){3}",
		},
		StateDir: "/var/lib/s76-kbd-led-statemgr",
	}
}

// Load reads the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	if err := cfg.check(); err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", path, err)
	}
	return cfg, nil
}

// Find loads the config from the explicit path if given, otherwise from the
// first readable file in SearchPaths. A missing or broken file falls back
// to the built-in defaults so a bad config never blocks a power transition.
// It returns the path the config came from ("" for defaults).
func Find(explicit string) (*Config, string) {
	paths := SearchPaths
	if explicit != "" {
		paths = []string{explicit}
	}
	for _, path := range paths {
		cfg, err := Load(path)
		if err == nil {
			return cfg, path
		}
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("config: ignoring unusable config file", "path", path, "err", err)
		}
	}
	return Default(), ""
}

func (c *Config) check() error {
	for _, attr := range c.Attributes() {
		if attr.Device.Path == "" {
			return fmt.Errorf("%s: missing device path", attr.Name)
		}
		if attr.Device.Pattern != "" {
			if _, err := regexp.Compile(attr.Device.Pattern); err != nil {
				return fmt.Errorf("%s: bad pattern: %w", attr.Name, err)
			}
		}
	}
	if c.StateDir == "" {
		return errors.New("missing state_dir")
	}
	return nil
}
