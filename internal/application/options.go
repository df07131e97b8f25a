package application

import (
	"log/slog"
	"time"

	"sumobridge/cli/internal/terminal"
)

// StartOptions defines startup options for the bridge server.
type StartOptions struct {
	Host      string
	Port      int
	ConfigDir string
	// DBDSN overrides the private in-memory journal DSN.
	DBDSN  string
	Logger *slog.Logger
	// DisableConfigWatch keeps the settings loaded at start for the whole run.
	DisableConfigWatch bool
	Hooks              Hooks
}

// Hooks replaces OS-facing pieces, mostly for tests.
type Hooks struct {
	// GOOS pins the launcher platform; empty uses runtime.GOOS.
	GOOS   string
	Runner terminal.Runner
	// WatchDebounce overrides the config.toml reload debounce.
	WatchDebounce time.Duration
}
