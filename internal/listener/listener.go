// Package listener implements the daemon mode: instead of being invoked by
// a sleep hook with a phase argument, it subscribes to logind's
// PrepareForSleep signal and runs the capture/restore pair itself. A delay
// inhibitor lock is held while awake so logind waits for the capture to hit
// disk before suspending.
package listener

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/godbus/dbus/v5"

	"github.com/draeath/s76-kbd-led-statemgr/internal/config"
	"github.com/draeath/s76-kbd-led-statemgr/internal/manager"
)

const (
	login1Dest  = "org.freedesktop.login1"
	login1Path  = dbus.ObjectPath("/org/freedesktop/login1")
	login1Iface = "org.freedesktop.login1.Manager"
)

// Listener reacts to sleep transitions signalled over the system bus.
type Listener struct {
	mu      sync.Mutex
	mgr     *manager.Manager
	cfgPath string
	dryRun  bool

	// inhibit acquires a sleep delay lock; swapped out in tests.
	inhibit func() (io.Closer, error)
	lock    io.Closer
}

// New creates a Listener around the given manager. cfgPath is the config
// file to watch for reloads ("" when running on built-in defaults).
func New(mgr *manager.Manager, cfgPath string, dryRun bool) *Listener {
	return &Listener{
		mgr:     mgr,
		cfgPath: cfgPath,
		dryRun:  dryRun,
	}
}

// Manager returns the active manager. It changes when the config reloads.
func (l *Listener) Manager() *manager.Manager {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mgr
}

// Run connects to the system bus and processes PrepareForSleep signals
// until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("connecting to system bus: %w", err)
	}
	defer conn.Close()

	if l.inhibit == nil {
		l.inhibit = func() (io.Closer, error) { return inhibitSleep(conn) }
	}
	l.acquireLock()
	defer l.releaseLock()

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(login1Path),
		dbus.WithMatchInterface(login1Iface),
		dbus.WithMatchMember("PrepareForSleep"),
	); err != nil {
		return fmt.Errorf("subscribing to PrepareForSleep: %w", err)
	}

	signals := make(chan *dbus.Signal, 8)
	conn.Signal(signals)

	watcher := l.watchConfig()
	if watcher != nil {
		defer watcher.Close()
	}

	slog.Info("listener: waiting for sleep transitions")
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-signals:
			if !ok {
				return fmt.Errorf("system bus connection lost")
			}
			if len(sig.Body) != 1 {
				continue
			}
			if sleeping, ok := sig.Body[0].(bool); ok {
				l.OnPrepareForSleep(sleeping)
			}
		case event, ok := <-watcherEvents(watcher):
			if !ok {
				watcher = nil
				continue
			}
			if event.Name == l.cfgPath && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				l.Reload()
			}
		case err, ok := <-watcherErrors(watcher):
			if ok {
				slog.Warn("listener: config watcher error", "err", err)
			}
		}
	}
}

// OnPrepareForSleep runs the hook action for one side of a transition.
// Going to sleep: capture, then drop the inhibitor so the suspend proceeds.
// Waking up: restore, then take the inhibitor again for the next round.
// Failures are logged and swallowed; a transition is never blocked for good.
func (l *Listener) OnPrepareForSleep(sleeping bool) {
	if sleeping {
		slog.Info("listener: preparing for sleep")
		if err := l.Manager().Capture(); err != nil {
			slog.Error("listener: capture failed", "err", err)
		}
		l.releaseLock()
		return
	}

	slog.Info("listener: resumed")
	if err := l.Manager().Restore(); err != nil {
		slog.Error("listener: restore failed", "err", err)
	}
	l.acquireLock()
}

// Reload re-reads the config file and swaps in a fresh manager.
func (l *Listener) Reload() {
	cfg, from := config.Find(l.cfgPath)
	l.mu.Lock()
	l.mgr = manager.New(cfg, l.dryRun)
	l.mu.Unlock()
	slog.Info("listener: config reloaded", "path", from)
}

func (l *Listener) acquireLock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lock != nil {
		return
	}
	lock, err := l.inhibit()
	if err != nil {
		slog.Warn("listener: could not take sleep inhibitor", "err", err)
		return
	}
	l.lock = lock
}

func (l *Listener) releaseLock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lock == nil {
		return
	}
	if err := l.lock.Close(); err != nil {
		slog.Warn("listener: closing sleep inhibitor", "err", err)
	}
	l.lock = nil
}

// inhibitSleep takes a "delay" inhibitor lock from logind. The returned
// file descriptor holds the lock; closing it releases it.
func inhibitSleep(conn *dbus.Conn) (io.Closer, error) {
	var fd dbus.UnixFD
	obj := conn.Object(login1Dest, login1Path)
	call := obj.Call(login1Iface+".Inhibit", 0,
		"sleep", "s76-kbd-led-statemgr", "saving keyboard backlight state", "delay")
	if err := call.Store(&fd); err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(fd), "login1-sleep-inhibitor"), nil
}

// watchConfig sets up an fsnotify watcher on the config file's directory.
// Watching is best-effort: without it the listener still works, it just
// needs a restart to pick up config changes.
func (l *Listener) watchConfig() *fsnotify.Watcher {
	if l.cfgPath == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("listener: could not create config watcher", "err", err)
		return nil
	}
	if err := watcher.Add(filepath.Dir(l.cfgPath)); err != nil {
		slog.Warn("listener: could not watch config directory", "err", err)
		watcher.Close()
		return nil
	}
	return watcher
}

// watcherEvents and watcherErrors tolerate a nil watcher so the select in
// Run can keep its shape when config watching is disabled.
func watcherEvents(w *fsnotify.Watcher) chan fsnotify.Event {
	if w == nil {
		return nil
	}
	return w.Events
}

func watcherErrors(w *fsnotify.Watcher) chan error {
	if w == nil {
		return nil
	}
	return w.Errors
}
