package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"sumobridge/cli/internal/bridgeclient"
	"sumobridge/cli/internal/config"
	"sumobridge/cli/internal/protocol"
)

var (
	ErrBridgeUnreachable = errors.New("bridge unreachable")
	ErrDispatchFailed    = errors.New("script dispatch failed")
)

type Deps struct {
	LoadConfig func() config.Config
	RunServe   func(context.Context, config.Config) error
	NewClient  func(config.Config) *bridgeclient.Client
	Stdin      io.Reader
	Out        io.Writer
}

func BuildApp(deps Deps) *cli.App {
	return &cli.App{
		Name:  "sumobridge",
		Usage: "local bridge that opens Sumo Studio scripts in a terminal",
		Action: func(ctx *cli.Context) error {
			return runServe(ctx.Context, deps, loadConfig(deps))
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start the bridge server",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "host", Usage: "listen host"},
					&cli.IntFlag{Name: "port", Usage: "listen port"},
				},
				Action: func(ctx *cli.Context) error {
					cfg := loadConfig(deps)
					if h := strings.TrimSpace(ctx.String("host")); h != "" {
						cfg.Host = h
					}
					if ctx.IsSet("port") {
						cfg.Port = ctx.Int("port")
					}
					return runServe(ctx.Context, deps, cfg)
				},
			},
			{
				Name:  "health",
				Usage: "check whether the bridge is reachable",
				Action: func(ctx *cli.Context) error {
					return runHealth(ctx.Context, deps, loadConfig(deps))
				},
			},
			{
				Name:      "run",
				Usage:     "send a script to the bridge, saving it locally if the bridge is unavailable",
				ArgsUsage: "[SCRIPT|-]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "project name", Required: true},
					&cli.StringFlag{Name: "path", Usage: "project path substituted for {{PROJECT_PATH}}"},
					&cli.StringFlag{Name: "template", Aliases: []string{"t"}, Usage: "template file; the built-in scaffold is used when neither a template nor a script is given"},
					&cli.BoolFlag{Name: "json", Usage: "print the result as JSON"},
				},
				Action: func(ctx *cli.Context) error {
					return runDispatch(ctx, deps, loadConfig(deps))
				},
			},
			{
				Name:  "watch",
				Usage: "print launch events from a running bridge",
				Action: func(ctx *cli.Context) error {
					return runWatch(ctx.Context, deps, loadConfig(deps))
				},
			},
		},
	}
}

func loadConfig(deps Deps) config.Config {
	if deps.LoadConfig != nil {
		return deps.LoadConfig()
	}
	return config.LoadConfig()
}

func output(deps Deps) io.Writer {
	if deps.Out != nil {
		return deps.Out
	}
	return os.Stdout
}

func newClient(deps Deps, cfg config.Config) *bridgeclient.Client {
	if deps.NewClient != nil {
		return deps.NewClient(cfg)
	}
	return bridgeclient.New(bridgeclient.Options{
		BaseURL:    cfg.BridgeURL,
		Downloader: &bridgeclient.FileDownloader{Dir: cfg.DownloadDir},
	})
}

func runServe(ctx context.Context, deps Deps, cfg config.Config) error {
	if deps.RunServe == nil {
		return errors.New("serve runner is not configured")
	}
	return deps.RunServe(ctx, cfg)
}

func runHealth(ctx context.Context, deps Deps, cfg config.Config) error {
	out := output(deps)
	c := newClient(deps, cfg)
	if !c.ProbeHealth(ctx) {
		_, _ = fmt.Fprintf(out, "bridge unreachable at %s\n", c.BaseURL())
		return ErrBridgeUnreachable
	}
	_, _ = fmt.Fprintf(out, "bridge running at %s\n", c.BaseURL())
	return nil
}

func runDispatch(ctx *cli.Context, deps Deps, cfg config.Config) error {
	if ctx.NArg() > 1 {
		return errors.New("run accepts at most one script argument")
	}
	scriptArg := strings.TrimSpace(ctx.Args().First())
	templateFile := strings.TrimSpace(ctx.String("template"))
	if scriptArg != "" && templateFile != "" {
		return errors.New("pass either a script or --template, not both")
	}
	source := templateFile
	if scriptArg != "" {
		source = scriptArg
	}
	tpl := ""
	if source != "" {
		raw, err := readSource(deps, source)
		if err != nil {
			return err
		}
		tpl = raw
	}

	c := newClient(deps, cfg)
	res, err := c.Build(ctx.Context, bridgeclient.BuildRequest{
		Template:    tpl,
		ProjectName: ctx.String("project"),
		ProjectPath: ctx.String("path"),
	})
	if err != nil {
		return err
	}
	out := output(deps)
	if ctx.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintln(out, res.Message)
		if res.BridgeError != "" {
			_, _ = fmt.Fprintf(out, "bridge: %s\n", res.BridgeError)
		}
	}
	if res.State != bridgeclient.StateSuccess {
		return fmt.Errorf("%w: %s", ErrDispatchFailed, res.Message)
	}
	return nil
}

func readSource(deps Deps, source string) (string, error) {
	if source == "-" {
		in := deps.Stdin
		if in == nil {
			in = os.Stdin
		}
		raw, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read script from stdin: %w", err)
		}
		return string(raw), nil
	}
	raw, err := os.ReadFile(source)
	if err != nil {
		return "", fmt.Errorf("read script: %w", err)
	}
	return string(raw), nil
}

func runWatch(ctx context.Context, deps Deps, cfg config.Config) error {
	out := output(deps)
	c := newClient(deps, cfg)
	return c.WatchLaunches(ctx, func(msg protocol.Message) {
		_, _ = fmt.Fprintf(out, "%s %s\n", msg.Op, string(msg.Payload))
	})
}
