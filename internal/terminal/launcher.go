package terminal

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

var ErrUnsupportedPlatform = errors.New("opening a terminal window is only supported on macOS")

const (
	DefaultApp   = "Terminal"
	DefaultShell = "bash"
)

type Options struct {
	App   string
	Shell string
}

// Runner executes an automation command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return out, fmt.Errorf("%w: %s", err, msg)
		}
		return out, err
	}
	return out, nil
}

func normalizeOptions(opts Options) Options {
	opts.App = strings.TrimSpace(opts.App)
	if opts.App == "" {
		opts.App = DefaultApp
	}
	opts.Shell = strings.TrimSpace(opts.Shell)
	if opts.Shell == "" {
		opts.Shell = DefaultShell
	}
	return opts
}

// BuildLaunchCommand returns the automation command that opens a new
// terminal window running scriptPath through the configured shell.
func BuildLaunchCommand(goos string, opts Options, scriptPath string) (string, []string, error) {
	opts = normalizeOptions(opts)
	switch goos {
	case "darwin":
		shellLine := opts.Shell + " " + shellQuote(scriptPath)
		app := appleScriptString(opts.App)
		return "osascript", []string{
			"-e", fmt.Sprintf("tell application %s to activate", app),
			"-e", fmt.Sprintf("tell application %s to do script %s", app, appleScriptString(shellLine)),
		}, nil
	default:
		return "", nil, ErrUnsupportedPlatform
	}
}

type Launcher struct {
	opts Options
	goos string
	run  Runner
}

func NewLauncher(opts Options, run Runner) *Launcher {
	if run == nil {
		run = ExecRunner
	}
	return &Launcher{opts: normalizeOptions(opts), goos: runtime.GOOS, run: run}
}

// NewLauncherForOS pins the target platform, mostly for tests.
func NewLauncherForOS(goos string, opts Options, run Runner) *Launcher {
	l := NewLauncher(opts, run)
	l.goos = goos
	return l
}

// Launch returns once the automation command has returned; the script's own
// lifetime is not tracked.
func (l *Launcher) Launch(ctx context.Context, scriptPath string) error {
	name, args, err := BuildLaunchCommand(l.goos, l.opts, scriptPath)
	if err != nil {
		return err
	}
	_, err = l.run(ctx, name, args...)
	return err
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
