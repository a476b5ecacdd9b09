// Command s76-kbd-led-statemgr saves and restores keyboard backlight state
// across power transitions. Hooked into the service manager's sleep hook
// directory it is called with "pre" before suspend and "post" after resume;
// with -listen it runs as a daemon and reacts to logind directly.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/draeath/s76-kbd-led-statemgr/internal/api"
	"github.com/draeath/s76-kbd-led-statemgr/internal/config"
	"github.com/draeath/s76-kbd-led-statemgr/internal/listener"
	"github.com/draeath/s76-kbd-led-statemgr/internal/manager"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "config file (default: search /usr/local/etc then /etc)")
		debug   = flag.Bool("debug", false, "enable debug logging")
		dryRun  = flag.Bool("dry-run", false, "log intended writes without touching the device or state")
		listen  = flag.Bool("listen", false, "run as a daemon reacting to logind PrepareForSleep")
		addr    = flag.String("addr", "", "status API listen address (listen mode only, empty disables)")
	)
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	cfg, cfgFrom := config.Find(*cfgPath)
	if cfgFrom != "" {
		slog.Debug("using config file", "path", cfgFrom)
	}

	// Writing sysfs nodes and /var/lib needs root; anyone else gets a dry run.
	dry := *dryRun
	if !dry && os.Geteuid() != 0 {
		slog.Info("not running as root, forcing dry-run")
		dry = true
	}
	mgr := manager.New(cfg, dry)

	if *listen {
		if err := runListener(mgr, cfgFrom, dry, *addr); err != nil {
			slog.Error("listener failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := mgr.Dispatch(flag.Args()); err != nil {
		slog.Error("hook failed", "err", err)
		os.Exit(1)
	}
}

func runListener(mgr *manager.Manager, cfgPath string, dry bool, addr string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	l := listener.New(mgr, cfgPath, dry)

	if addr != "" {
		srv := &http.Server{Addr: addr, Handler: api.NewRouter(l.Manager)}
		go func() {
			slog.Info("status API listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("status API failed", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	return l.Run(ctx)
}
