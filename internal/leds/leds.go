// Package leds reads and writes keyboard-backlight attribute nodes under
// /sys/class/leds. Each attribute (brightness, color) is a plain-text file
// owned by the kernel driver; values are copied as text, not interpreted.
package leds

import (
	"fmt"
	"os"
	"strings"
)

// Node is a single sysfs attribute file.
type Node struct {
	Path string
}

// Read returns the node's current value with surrounding whitespace trimmed.
// The driver terminates values with a newline; callers never want it.
func (n Node) Read() (string, error) {
	data, err := os.ReadFile(n.Path)
	if err != nil {
		return "", err
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("empty value read from %q", n.Path)
	}
	return value, nil
}

// Write sets the node's value. Sysfs control files expect a newline-terminated
// token and either accept the write immediately or fail; there is no retry.
func (n Node) Write(value string) error {
	if err := os.WriteFile(n.Path, []byte(value+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing %q to %q: %w", value, n.Path, err)
	}
	return nil
}
