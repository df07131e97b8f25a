package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 3456
)

type Config struct {
	Host        string
	Port        int
	LogLevel    string
	BridgeURL   string
	DownloadDir string
}

// Addr is the listen address of the bridge server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

var (
	cacheTTL   = 10 * time.Second
	nowFunc    = time.Now
	cacheMu    sync.RWMutex
	cachedCfg  Config
	cachedAt   time.Time
	cacheValid bool
)

func LoadConfig() Config {
	cfg := loadFromEnv()
	cacheMu.Lock()
	cachedCfg = cfg
	cachedAt = nowFunc()
	cacheValid = true
	cacheMu.Unlock()
	return cfg
}

func GetConfig() *Config {
	now := nowFunc()
	cacheMu.RLock()
	valid := cacheValid && now.Sub(cachedAt) < cacheTTL
	if valid {
		out := cachedCfg
		cacheMu.RUnlock()
		return &out
	}
	cacheMu.RUnlock()

	cfg := loadFromEnv()
	cacheMu.Lock()
	cachedCfg = cfg
	cachedAt = now
	cacheValid = true
	cacheMu.Unlock()

	out := cfg
	return &out
}

func loadFromEnv() Config {
	host := strings.TrimSpace(os.Getenv("SUMO_BRIDGE_HOST"))
	if host == "" {
		host = DefaultHost
	}
	port := DefaultPort
	if p := strings.TrimSpace(os.Getenv("SUMO_BRIDGE_PORT")); p != "" {
		// Malformed values fall back to the default port.
		if n := atoiOrDefault(p, DefaultPort); n > 0 && n < 65536 {
			port = n
		}
	}
	level := strings.TrimSpace(os.Getenv("SUMO_LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	bridgeURL := strings.TrimRight(strings.TrimSpace(os.Getenv("SUMO_BRIDGE_URL")), "/")
	if bridgeURL == "" {
		bridgeURL = fmt.Sprintf("http://%s:%d", host, port)
	}
	return Config{
		Host:        host,
		Port:        port,
		LogLevel:    level,
		BridgeURL:   bridgeURL,
		DownloadDir: strings.TrimSpace(os.Getenv("SUMO_DOWNLOAD_DIR")),
	}
}

func atoiOrDefault(v string, fallback int) int {
	n := 0
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return fallback
		}
		n = n*10 + int(v[i]-'0')
		if n > 1<<20 {
			return fallback
		}
	}
	if n == 0 {
		return fallback
	}
	return n
}
