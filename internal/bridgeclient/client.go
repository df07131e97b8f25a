package bridgeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"sumobridge/cli/internal/bridgeerr"
	"sumobridge/cli/internal/projectname"
	"sumobridge/cli/internal/scripttpl"
)

const (
	DefaultBaseURL      = "http://127.0.0.1:3456"
	DefaultProbeTimeout = 2 * time.Second
	defaultPostTimeout  = 30 * time.Second
)

type State string

const (
	StateIdle        State = "idle"
	StateProbing     State = "probing"
	StateBridging    State = "bridging"
	StateDownloading State = "downloading"
	StateSuccess     State = "success"
	StateFailed      State = "failed"
)

type Mode string

const (
	ModeBridged    Mode = "bridged"
	ModeDownloaded Mode = "downloaded"
)

type Downloader interface {
	Save(fileName, content string) (string, error)
}

type Options struct {
	BaseURL      string
	HTTPClient   *http.Client
	ProbeTimeout time.Duration
	Downloader   Downloader
	OnState      func(State)
	Logger       *slog.Logger
}

type Client struct {
	baseURL      string
	http         *http.Client
	probeTimeout time.Duration
	downloader   Downloader
	onState      func(State)
	log          *slog.Logger
}

func New(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultPostTimeout}
	}
	probe := opts.ProbeTimeout
	if probe <= 0 {
		probe = DefaultProbeTimeout
	}
	dl := opts.Downloader
	if dl == nil {
		dl = &FileDownloader{}
	}
	lg := opts.Logger
	if lg == nil {
		lg = slog.New(slog.DiscardHandler)
	}
	return &Client{baseURL: base, http: hc, probeTimeout: probe, downloader: dl, onState: opts.OnState, log: lg}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// ProbeHealth performs a fresh, time-bounded GET /health. Any failure,
// including a timeout, reports the bridge as unreachable.
func (c *Client) ProbeHealth(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("bridge probe failed", "err", err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	var out struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false
	}
	return out.Status == "running"
}

type Response struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	LaunchID   string `json:"launchId,omitempty"`
	ScriptPath string `json:"scriptPath,omitempty"`
}

// RunScript posts one script to the bridge. A non-success response is
// returned together with an error.
func (c *Client) RunScript(ctx context.Context, content, project string) (Response, error) {
	body, err := json.Marshal(map[string]string{"content": content, "projectName": project})
	if err != nil {
		return Response{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/run-script", bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, bridgeerr.Wrap(bridgeerr.Unreachable, "bridge request failed", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Response{}, err
	}
	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return Response{}, fmt.Errorf("bridge returned status %d with unreadable body", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK || !out.Success {
		msg := strings.TrimSpace(out.Message)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return out, fmt.Errorf("bridge rejected script (status %d): %s", resp.StatusCode, msg)
	}
	return out, nil
}

type Result struct {
	State        State  `json:"state"`
	Mode         Mode   `json:"mode"`
	Message      string `json:"message"`
	LaunchID     string `json:"launchId,omitempty"`
	ScriptPath   string `json:"scriptPath,omitempty"`
	DownloadPath string `json:"downloadPath,omitempty"`
	BridgeError  string `json:"bridgeError,omitempty"`
}

// Dispatch routes content to the bridge when it is reachable and falls back
// to a local save on any bridge failure. Only a validation failure is
// returned as an error.
func (c *Client) Dispatch(ctx context.Context, content, project string) (Result, error) {
	c.transition(StateIdle)
	if err := projectname.Validate(project); err != nil {
		c.transition(StateFailed)
		return Result{State: StateFailed, Message: err.Error()}, bridgeerr.Wrap(bridgeerr.Validation, "invalid project name", err)
	}

	c.transition(StateProbing)
	bridgeErr := "bridge is not reachable"
	if c.ProbeHealth(ctx) {
		c.transition(StateBridging)
		resp, err := c.RunScript(ctx, content, project)
		if err == nil {
			c.transition(StateSuccess)
			c.log.Info("terminal opened", "project", project, "script", resp.ScriptPath)
			return Result{
				State:      StateSuccess,
				Mode:       ModeBridged,
				Message:    "Terminal opened",
				LaunchID:   resp.LaunchID,
				ScriptPath: resp.ScriptPath,
			}, nil
		}
		bridgeErr = err.Error()
		c.log.Warn("bridge dispatch failed, falling back to download", "project", project, "err", err)
	}
	return c.download(content, project, bridgeErr), nil
}

func (c *Client) download(content, project, bridgeErr string) Result {
	c.transition(StateDownloading)
	path, err := c.downloader.Save(project+".sh", content)
	if err != nil {
		c.transition(StateFailed)
		c.log.Error("script download failed", "project", project, "err", err)
		return Result{
			State:       StateFailed,
			Mode:        ModeDownloaded,
			Message:     "Could not save the script: " + err.Error(),
			BridgeError: bridgeErr,
		}
	}
	c.transition(StateSuccess)
	return Result{
		State:        StateSuccess,
		Mode:         ModeDownloaded,
		Message:      fmt.Sprintf("Script saved to %s. Start the bridge with `sumobridge serve` and try again to run it in a terminal.", path),
		DownloadPath: path,
		BridgeError:  bridgeErr,
	}
}

type BuildRequest struct {
	Template    string
	ProjectName string
	ProjectPath string
}

// Build renders the template and dispatches the script.
func (c *Client) Build(ctx context.Context, req BuildRequest) (Result, error) {
	tpl := req.Template
	if tpl == "" {
		tpl = scripttpl.Default()
	}
	script := scripttpl.Render(tpl, scripttpl.Values{ProjectName: req.ProjectName, ProjectPath: req.ProjectPath})
	return c.Dispatch(ctx, script, req.ProjectName)
}

func (c *Client) transition(s State) {
	if c.onState != nil {
		c.onState(s)
	}
}
