package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"sumobridge/cli/internal/application"
	"sumobridge/cli/internal/bridgeclient"
	"sumobridge/cli/internal/command"
	"sumobridge/cli/internal/config"
	"sumobridge/cli/internal/logging"
)

var version = "dev"

var startApplication = application.StartApplication

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(rootCtx, os.Args, os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	app := command.BuildApp(command.Deps{
		LoadConfig: config.LoadConfig,
		RunServe: func(ctx context.Context, cfg config.Config) error {
			return runServe(ctx, cfg, newRuntimeLogger(stderr, cfg.LogLevel))
		},
		NewClient: func(cfg config.Config) *bridgeclient.Client {
			return bridgeclient.New(bridgeclient.Options{
				BaseURL:    cfg.BridgeURL,
				Downloader: &bridgeclient.FileDownloader{Dir: cfg.DownloadDir},
				Logger:     newRuntimeLogger(stderr, cfg.LogLevel).With("module", "bridgeclient"),
			})
		},
		Stdin: stdin,
		Out:   stdout,
	})
	app.Version = version
	app.Writer = stdout
	app.ErrWriter = stderr

	if err := app.RunContext(ctx, args); err != nil {
		newRuntimeLogger(stderr, "error").Error("sumobridge failed", "err", err)
		return 1
	}
	return 0
}

func runServe(ctx context.Context, cfg config.Config, lg *slog.Logger) error {
	app, err := startApplication(ctx, application.StartOptions{
		Host:   cfg.Host,
		Port:   cfg.Port,
		Logger: lg,
	})
	if err != nil {
		return err
	}
	lg.Info("sumobridge started", "version", version, "url", app.BaseURL())
	return app.Run(ctx)
}

func newRuntimeLogger(w io.Writer, level string) *slog.Logger {
	return logging.NewLogger(logging.Options{Level: level, Writer: w, Component: "sumobridge"})
}
