package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"sumobridge/cli/internal/bridgeapi"
	"sumobridge/cli/internal/config"
	"sumobridge/cli/internal/db"
	"sumobridge/cli/internal/global"
	"sumobridge/cli/internal/launchlog"
	"sumobridge/cli/internal/lifecycle"
)

type Application struct {
	addr     string
	listener net.Listener
	store    *global.ConfigStore
	live     *liveSettings
	debounce time.Duration
	gdb      *gorm.DB
	server   *http.Server
	mgr      *lifecycle.Manager
	log      *slog.Logger
}

// StartApplication binds the listener and wires the bridge. Run serves
// until ctx is done.
func StartApplication(_ context.Context, opts StartOptions) (*Application, error) {
	lg := opts.Logger
	if lg == nil {
		lg = slog.New(slog.DiscardHandler)
	}
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = config.DefaultHost
	}
	port := opts.Port
	if port < 0 {
		return nil, fmt.Errorf("invalid port %d", port)
	}
	configDir := strings.TrimSpace(opts.ConfigDir)
	if configDir == "" {
		dir, err := global.DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}
	store := global.NewConfigStore(configDir)
	settings, err := store.LoadOrInit()
	if err != nil {
		return nil, fmt.Errorf("load bridge settings: %w", err)
	}

	dsn := strings.TrimSpace(opts.DBDSN)
	if dsn == "" {
		dsn = db.MemoryDSN("launches")
	}
	gdb, err := db.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("open launch journal: %w", err)
	}
	journal, err := launchlog.NewStore(gdb)
	if err != nil {
		_ = db.Close(gdb)
		return nil, err
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(host, fmt.Sprint(port)))
	if err != nil {
		_ = db.Close(gdb)
		return nil, err
	}
	boundPort := ln.Addr().(*net.TCPAddr).Port

	live := newLiveSettings(settings, opts.Hooks)
	api := bridgeapi.NewServer(bridgeapi.Deps{
		Port:     boundPort,
		Scripts:  live,
		Launcher: live,
		Journal:  journal,
		Logger:   lg.With("module", "bridgeapi"),
	})

	app := &Application{
		addr:     ln.Addr().String(),
		listener: ln,
		store:    store,
		live:     live,
		debounce: opts.Hooks.WatchDebounce,
		gdb:      gdb,
		server: &http.Server{
			Handler:           api.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: lg,
	}
	app.mgr = lifecycle.NewManager(lg.With("module", "lifecycle"))
	app.mgr.AddRun("bridge-http", app.serve)
	if !opts.DisableConfigWatch {
		app.mgr.AddRun("config-watch", app.watchSettings)
	}
	app.mgr.AddShutdown("bridge-http-shutdown", app.Shutdown)
	app.mgr.AddShutdown("ws-hub-close", func(context.Context) error {
		api.Hub().Close()
		return nil
	})
	app.mgr.AddShutdown("close-launch-journal", func(context.Context) error {
		return db.Close(app.gdb)
	})
	return app, nil
}

func (a *Application) serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), lifecycle.DefaultShutdownTimeout)
		defer cancel()
		_ = a.server.Shutdown(shutdownCtx)
	}()
	a.log.Info("bridge listening", "addr", a.addr, "terminal", a.live.Settings().Terminal.App)
	err := a.server.Serve(a.listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *Application) Addr() string {
	if a == nil {
		return ""
	}
	return a.addr
}

func (a *Application) BaseURL() string {
	if a == nil {
		return ""
	}
	return "http://" + a.addr
}

// Settings reports the terminal and script settings currently in effect.
func (a *Application) Settings() global.BridgeConfig {
	return a.live.Settings()
}

func (a *Application) watchSettings(ctx context.Context) error {
	lg := a.log.With("module", "config-watch")
	err := a.store.Watch(ctx, a.debounce, func(cfg global.BridgeConfig) {
		a.live.apply(cfg)
		lg.Info("bridge settings reloaded", "path", a.store.Path(), "terminal", cfg.Terminal.App, "shell", cfg.Terminal.Shell)
	}, func(err error) {
		lg.Warn("bridge settings reload failed", "path", a.store.Path(), "err", err)
	})
	if err != nil {
		// The bridge keeps serving with the settings it started with.
		lg.Warn("config watch unavailable", "err", err)
		<-ctx.Done()
	}
	return nil
}

func (a *Application) Run(ctx context.Context) error {
	if a == nil || a.mgr == nil {
		return nil
	}
	return a.mgr.StartAndWait(ctx)
}

// Shutdown stops the HTTP server. Safe to call more than once and before Run.
func (a *Application) Shutdown(ctx context.Context) error {
	if a == nil || a.server == nil {
		return nil
	}
	err := a.server.Shutdown(ctx)
	_ = a.listener.Close()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
