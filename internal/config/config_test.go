package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SUMO_BRIDGE_HOST", "SUMO_BRIDGE_PORT", "SUMO_LOG_LEVEL", "SUMO_BRIDGE_URL", "SUMO_DOWNLOAD_DIR"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	cfg := LoadConfig()
	if cfg.Host != "127.0.0.1" || cfg.Port != 3456 {
		t.Fatalf("unexpected listen defaults: %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("unexpected log level: %s", cfg.LogLevel)
	}
	if cfg.BridgeURL != "http://127.0.0.1:3456" {
		t.Fatalf("unexpected bridge url: %s", cfg.BridgeURL)
	}
	if cfg.DownloadDir != "" {
		t.Fatalf("download dir should default empty, got %s", cfg.DownloadDir)
	}
	if cfg.Addr() != "127.0.0.1:3456" {
		t.Fatalf("unexpected addr: %s", cfg.Addr())
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SUMO_BRIDGE_PORT", "4700")
	t.Setenv("SUMO_LOG_LEVEL", "debug")
	t.Setenv("SUMO_BRIDGE_URL", "http://localhost:9999/")
	t.Setenv("SUMO_DOWNLOAD_DIR", "/tmp/dl")
	cfg := LoadConfig()
	if cfg.Port != 4700 || cfg.LogLevel != "debug" || cfg.DownloadDir != "/tmp/dl" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.BridgeURL != "http://localhost:9999" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.BridgeURL)
	}
}

func TestLoadConfig_MalformedPortFallsBack(t *testing.T) {
	clearEnv(t)
	for _, v := range []string{"abc", "0", "-1", "70000"} {
		t.Setenv("SUMO_BRIDGE_PORT", v)
		if cfg := LoadConfig(); cfg.Port != 3456 {
			t.Fatalf("port %q: expected fallback 3456, got %d", v, cfg.Port)
		}
	}
}

func TestGetConfig_CachesWithinTTL(t *testing.T) {
	clearEnv(t)
	current := time.Unix(1000, 0)
	oldNow := nowFunc
	nowFunc = func() time.Time { return current }
	t.Cleanup(func() { nowFunc = oldNow })

	t.Setenv("SUMO_LOG_LEVEL", "warn")
	_ = LoadConfig()
	t.Setenv("SUMO_LOG_LEVEL", "error")
	if got := GetConfig().LogLevel; got != "warn" {
		t.Fatalf("expected cached level warn, got %s", got)
	}
	current = current.Add(11 * time.Second)
	if got := GetConfig().LogLevel; got != "error" {
		t.Fatalf("expected refreshed level error, got %s", got)
	}
}
