package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type CtlConfig struct {
	Port       string `toml:"port"`
	FlatMemory bool   `toml:"flat_memory"`
	LPModeWait bool   `toml:"lpmode_wait"`
}

type DaemonConfig struct {
	Addr        string   `toml:"addr"`
	Port        string   `toml:"port"`
	FlatMemory  bool     `toml:"flat_memory"`
	CorsOrigins []string `toml:"cors_origins"`
}

func LoadCtlConfig(path string) (CtlConfig, error) {
	var cfg CtlConfig
	if err := loadToml(path, &cfg); err != nil {
		return CtlConfig{}, err
	}
	if cfg.Port == "" {
		cfg.Port = "Ethernet0"
	}
	if err := ValidateCtlConfig(cfg); err != nil {
		return CtlConfig{}, err
	}
	return cfg, nil
}

func LoadDaemonConfig(path string) (DaemonConfig, error) {
	var cfg DaemonConfig
	if err := loadToml(path, &cfg); err != nil {
		return DaemonConfig{}, err
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9000"
	}
	if cfg.Port == "" {
		cfg.Port = "Ethernet0"
	}
	if err := ValidateDaemonConfig(cfg); err != nil {
		return DaemonConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateCtlConfig(cfg CtlConfig) error {
	if strings.TrimSpace(cfg.Port) == "" {
		return fmt.Errorf("ctl config missing port")
	}
	return nil
}

func ValidateDaemonConfig(cfg DaemonConfig) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("daemon config missing addr")
	}
	if !strings.Contains(cfg.Addr, ":") {
		return fmt.Errorf("daemon addr must be host:port or :port")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return fmt.Errorf("daemon config missing port")
	}
	for i, origin := range cfg.CorsOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("cors_origins[%d] is empty", i)
		}
	}
	return nil
}
