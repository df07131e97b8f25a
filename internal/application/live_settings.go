package application

import (
	"context"
	"strings"
	"sync/atomic"

	"sumobridge/cli/internal/global"
	"sumobridge/cli/internal/scriptfile"
	"sumobridge/cli/internal/terminal"
)

type launchParts struct {
	settings global.BridgeConfig
	writer   *scriptfile.Writer
	launcher *terminal.Launcher
}

// liveSettings serves the script writer and launcher built from the most
// recent config.toml. A request keeps the parts it started with.
type liveSettings struct {
	hooks Hooks
	cur   atomic.Pointer[launchParts]
}

func newLiveSettings(cfg global.BridgeConfig, hooks Hooks) *liveSettings {
	l := &liveSettings{hooks: hooks}
	l.apply(cfg)
	return l
}

func (l *liveSettings) apply(cfg global.BridgeConfig) {
	opts := terminal.Options{App: cfg.Terminal.App, Shell: cfg.Terminal.Shell}
	launcher := terminal.NewLauncher(opts, l.hooks.Runner)
	if goos := strings.TrimSpace(l.hooks.GOOS); goos != "" {
		launcher = terminal.NewLauncherForOS(goos, opts, l.hooks.Runner)
	}
	l.cur.Store(&launchParts{
		settings: cfg,
		writer:   scriptfile.NewWriter(cfg.Scripts.TempDir, cfg.Scripts.Prefix),
		launcher: launcher,
	})
}

func (l *liveSettings) Settings() global.BridgeConfig {
	return l.cur.Load().settings
}

func (l *liveSettings) Write(projectName, content string) (string, error) {
	return l.cur.Load().writer.Write(projectName, content)
}

func (l *liveSettings) Launch(ctx context.Context, scriptPath string) error {
	return l.cur.Load().launcher.Launch(ctx, scriptPath)
}
