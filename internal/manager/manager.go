// Package manager implements the capture and restore sides of the
// suspend hook. The embedded controller resets the keyboard backlight on
// every power transition, so "pre" copies the live attribute values into
// the state store and "post" copies them back.
package manager

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/draeath/s76-kbd-led-statemgr/internal/config"
	"github.com/draeath/s76-kbd-led-statemgr/internal/leds"
	"github.com/draeath/s76-kbd-led-statemgr/internal/state"
)

// Phase tokens passed by systemd-suspend.service and friends.
const (
	PhasePre  = "pre"
	PhasePost = "post"
)

// Manager captures and restores LED attribute values.
type Manager struct {
	cfg    *config.Config
	store  *state.Store
	dryRun bool
}

// New creates a Manager for the given configuration. With dryRun set,
// Capture and Restore log what they would write and touch nothing.
func New(cfg *config.Config, dryRun bool) *Manager {
	return &Manager{
		cfg:    cfg,
		store:  state.New(cfg.StateDir),
		dryRun: dryRun,
	}
}

// Config returns the configuration the manager was built with.
func (m *Manager) Config() *config.Config { return m.cfg }

// Store returns the manager's state store.
func (m *Manager) Store() *state.Store { return m.store }

// Dispatch runs the action for a hook invocation. Exactly one argument
// equal to "pre" or "post" selects Capture or Restore. Anything else (no
// argument, an unknown phase, trailing extras) is a no-op, so the hook can
// be wired into sleep hook directories that pass phases this tool does not
// handle.
func (m *Manager) Dispatch(args []string) error {
	if len(args) != 1 {
		slog.Debug("ignoring invocation", "args", args)
		return nil
	}
	switch args[0] {
	case PhasePre:
		return m.Capture()
	case PhasePost:
		return m.Restore()
	default:
		slog.Debug("ignoring unknown phase", "phase", args[0])
		return nil
	}
}

// Capture copies the current value of every attribute node into the state
// store. The store writes are durable before Capture returns; the suspend
// that follows must not race an unflushed state file.
func (m *Manager) Capture() error {
	for _, attr := range m.cfg.Attributes() {
		value, err := leds.Node{Path: attr.Device.Path}.Read()
		if err != nil {
			return fmt.Errorf("capture %s: %w", attr.Name, err)
		}
		if m.dryRun {
			slog.Info("capture: dry-run, not saving", "attribute", attr.Name, "value", value)
			continue
		}
		if err := m.store.Save(attr.Name, value); err != nil {
			return fmt.Errorf("capture %s: %w", attr.Name, err)
		}
		slog.Debug("capture: saved", "attribute", attr.Name, "value", value)
	}
	return nil
}

// Restore writes the saved value of every attribute back to its node.
// An attribute with no saved state is skipped: a machine that has never
// suspended has nothing to restore, and that must not block resume.
// Each node gets a single write attempt.
func (m *Manager) Restore() error {
	for _, attr := range m.cfg.Attributes() {
		value, err := m.store.Load(attr.Name)
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("restore: no saved state", "attribute", attr.Name)
			continue
		}
		if err != nil {
			return fmt.Errorf("restore %s: %w", attr.Name, err)
		}
		if !attr.Device.Valid(value) {
			slog.Warn("restore: saved value failed validation, using default",
				"attribute", attr.Name, "value", value, "default", attr.Device.Default)
			value = attr.Device.Default
		}
		if m.dryRun {
			slog.Info("restore: dry-run, not writing", "attribute", attr.Name, "value", value)
			continue
		}
		if err := (leds.Node{Path: attr.Device.Path}).Write(value); err != nil {
			return fmt.Errorf("restore %s: %w", attr.Name, err)
		}
		slog.Debug("restore: wrote", "attribute", attr.Name, "value", value)
	}
	return nil
}
