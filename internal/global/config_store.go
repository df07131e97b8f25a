package global

import (
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	configTOMLFileName = "config.toml"
)

type TerminalSettings struct {
	App   string `json:"app" toml:"app"`
	Shell string `json:"shell" toml:"shell"`
}

type ScriptSettings struct {
	Prefix  string `json:"prefix" toml:"prefix"`
	TempDir string `json:"temp_dir" toml:"temp_dir"`
}

type BridgeConfig struct {
	Terminal TerminalSettings `json:"terminal" toml:"terminal"`
	Scripts  ScriptSettings   `json:"scripts" toml:"scripts"`
}

type ConfigStore struct {
	dir string
}

func NewConfigStore(dir string) *ConfigStore {
	return &ConfigStore{dir: dir}
}

func (s *ConfigStore) Path() string {
	return filepath.Join(s.dir, configTOMLFileName)
}

// LoadOrInit reads config.toml, writing a default one on first use.
func (s *ConfigStore) LoadOrInit() (BridgeConfig, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return BridgeConfig{}, err
	}

	cfg, err := s.load()
	if err == nil {
		return cfg, nil
	}
	if !os.IsNotExist(err) {
		return BridgeConfig{}, err
	}

	cfg = normalizeConfig(BridgeConfig{})
	if err := writeTOMLAtomically(s.Path(), cfg); err != nil {
		return BridgeConfig{}, err
	}
	return cfg, nil
}

func (s *ConfigStore) load() (BridgeConfig, error) {
	b, err := os.ReadFile(s.Path())
	if err != nil {
		return BridgeConfig{}, err
	}
	var cfg BridgeConfig
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return BridgeConfig{}, err
	}
	return normalizeConfig(cfg), nil
}

func (s *ConfigStore) Save(cfg BridgeConfig) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return writeTOMLAtomically(s.Path(), normalizeConfig(cfg))
}

func normalizeConfig(cfg BridgeConfig) BridgeConfig {
	cfg.Terminal.App = strings.TrimSpace(cfg.Terminal.App)
	if cfg.Terminal.App == "" {
		cfg.Terminal.App = "Terminal"
	}
	shell := strings.ToLower(strings.TrimSpace(cfg.Terminal.Shell))
	switch shell {
	case "bash", "zsh", "sh":
	default:
		shell = "bash"
	}
	cfg.Terminal.Shell = shell
	cfg.Scripts.Prefix = strings.TrimSpace(cfg.Scripts.Prefix)
	if cfg.Scripts.Prefix == "" {
		cfg.Scripts.Prefix = "sumo"
	}
	cfg.Scripts.TempDir = strings.TrimSpace(cfg.Scripts.TempDir)
	return cfg
}

func writeTOMLAtomically(path string, v any) error {
	b, err := toml.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
