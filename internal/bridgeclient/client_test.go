package bridgeclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sumobridge/cli/internal/bridgeapi"
	"sumobridge/cli/internal/bridgeerr"
	"sumobridge/cli/internal/scriptfile"
	"sumobridge/cli/internal/scripttpl"
)

type okLauncher struct{}

func (okLauncher) Launch(context.Context, string) error { return nil }

type failingDownloader struct{}

func (failingDownloader) Save(string, string) (string, error) {
	return "", errors.New("read-only filesystem")
}

type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (l *stateLog) record(s State) {
	l.mu.Lock()
	l.states = append(l.states, s)
	l.mu.Unlock()
}

func (l *stateLog) get() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]State{}, l.states...)
}

func newBridge(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	dir := t.TempDir()
	srv := bridgeapi.NewServer(bridgeapi.Deps{
		Port:     3456,
		Scripts:  scriptfile.NewWriter(dir, ""),
		Launcher: okLauncher{},
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, dir
}

func unreachableURL(t *testing.T) string {
	t.Helper()
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()
	return url
}

func TestProbeHealth_Reachable(t *testing.T) {
	ts, _ := newBridge(t)
	c := New(Options{BaseURL: ts.URL})
	if !c.ProbeHealth(context.Background()) {
		t.Fatal("expected bridge to be reachable")
	}
}

func TestProbeHealth_UnreachableAndTimeout(t *testing.T) {
	c := New(Options{BaseURL: unreachableURL(t)})
	if c.ProbeHealth(context.Background()) {
		t.Fatal("expected closed port to be unreachable")
	}

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()
	c = New(Options{BaseURL: slow.URL, ProbeTimeout: 50 * time.Millisecond})
	start := time.Now()
	if c.ProbeHealth(context.Background()) {
		t.Fatal("expected timeout to report unreachable")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("probe did not honor timeout: %v", time.Since(start))
	}
}

func TestDispatch_BridgedSuccess(t *testing.T) {
	ts, scriptsDir := newBridge(t)
	states := &stateLog{}
	c := New(Options{BaseURL: ts.URL, Downloader: failingDownloader{}, OnState: states.record})

	res, err := c.Dispatch(context.Background(), "#!/bin/bash\necho hi", "demo")
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if res.State != StateSuccess || res.Mode != ModeBridged || res.Message != "Terminal opened" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if filepath.Dir(res.ScriptPath) != scriptsDir {
		t.Fatalf("unexpected script path: %s", res.ScriptPath)
	}
	want := []State{StateIdle, StateProbing, StateBridging, StateSuccess}
	if !slices.Equal(states.get(), want) {
		t.Fatalf("unexpected states: %v", states.get())
	}
}

func TestDispatch_UnreachableDownloads(t *testing.T) {
	dir := t.TempDir()
	states := &stateLog{}
	c := New(Options{BaseURL: unreachableURL(t), Downloader: &FileDownloader{Dir: dir}, OnState: states.record})

	res, err := c.Dispatch(context.Background(), "echo hi", "demo")
	if err != nil {
		t.Fatalf("dispatch must not error when bridge is down: %v", err)
	}
	if res.State != StateSuccess || res.Mode != ModeDownloaded {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.DownloadPath != filepath.Join(dir, "demo.sh") {
		t.Fatalf("unexpected download path: %s", res.DownloadPath)
	}
	raw, _ := os.ReadFile(res.DownloadPath)
	if string(raw) != "echo hi" {
		t.Fatalf("unexpected download content: %q", string(raw))
	}
	if !strings.Contains(res.Message, "sumobridge serve") {
		t.Fatalf("expected hint to start the bridge, got %q", res.Message)
	}
	want := []State{StateIdle, StateProbing, StateDownloading, StateSuccess}
	if !slices.Equal(states.get(), want) {
		t.Fatalf("unexpected states: %v", states.get())
	}
}

func TestDispatch_ServerFailureFallsThroughToDownload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/health" {
			_, _ = w.Write([]byte(`{"status":"running","port":3456}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"message":"failed to open terminal"}`))
	}))
	defer ts.Close()

	dir := t.TempDir()
	states := &stateLog{}
	c := New(Options{BaseURL: ts.URL, Downloader: &FileDownloader{Dir: dir}, OnState: states.record})
	res, err := c.Dispatch(context.Background(), "echo hi", "demo")
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if res.Mode != ModeDownloaded || res.State != StateSuccess {
		t.Fatalf("expected download fallback, got %+v", res)
	}
	if !strings.Contains(res.BridgeError, "failed to open terminal") {
		t.Fatalf("expected bridge error detail, got %q", res.BridgeError)
	}
	want := []State{StateIdle, StateProbing, StateBridging, StateDownloading, StateSuccess}
	if !slices.Equal(states.get(), want) {
		t.Fatalf("unexpected states: %v", states.get())
	}
}

func TestDispatch_DownloadFailureReportsFailed(t *testing.T) {
	c := New(Options{BaseURL: unreachableURL(t), Downloader: failingDownloader{}})
	res, err := c.Dispatch(context.Background(), "echo hi", "demo")
	if err != nil {
		t.Fatalf("dispatch must not error: %v", err)
	}
	if res.State != StateFailed || res.Mode != ModeDownloaded {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestDispatch_RejectsUnsafeNameBeforeNetwork(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer ts.Close()
	dir := t.TempDir()
	c := New(Options{BaseURL: ts.URL, Downloader: &FileDownloader{Dir: dir}})

	res, err := c.Dispatch(context.Background(), "echo hi", "my app")
	if !bridgeerr.Is(err, bridgeerr.Validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if res.State != StateFailed {
		t.Fatalf("unexpected state: %s", res.State)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no bridge requests, got %d", hits.Load())
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected no download, got %d files", len(entries))
	}
}

func TestBuild_SubstitutesAllPlaceholders(t *testing.T) {
	var posted string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/health" {
			_, _ = w.Write([]byte(`{"status":"running","port":3456}`))
			return
		}
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		posted = req["content"]
		_, _ = w.Write([]byte(`{"success":true,"message":"ok"}`))
	}))
	defer ts.Close()

	c := New(Options{BaseURL: ts.URL})
	tpl := "mkdir {{PROJECT_PATH}}/{{PROJECT_NAME}}\ncd {{PROJECT_PATH}}/{{PROJECT_NAME}}\necho {{PROJECT_NAME}}"
	res, err := c.Build(context.Background(), BuildRequest{Template: tpl, ProjectName: "demo", ProjectPath: "/work"})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if res.Mode != ModeBridged {
		t.Fatalf("expected bridged result, got %+v", res)
	}
	if posted != "mkdir /work/demo\ncd /work/demo\necho demo" {
		t.Fatalf("unexpected posted script: %q", posted)
	}
	if left := scripttpl.Leftover(posted); len(left) != 0 {
		t.Fatalf("placeholders left: %#v", left)
	}
}

func TestRunScript_ReturnsServerMessage(t *testing.T) {
	ts, _ := newBridge(t)
	c := New(Options{BaseURL: ts.URL})
	resp, err := c.RunScript(context.Background(), "", "demo")
	if err == nil {
		t.Fatal("expected error for empty content")
	}
	if resp.Success || !strings.Contains(err.Error(), "content is required") {
		t.Fatalf("unexpected response: %+v %v", resp, err)
	}
}
