package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// runConfig is the resolved tool configuration. Defaults target a paged
// simulated module on a single port.
type runConfig struct {
	Port       string
	FlatMemory bool
	LPModeWait bool
}

func defaultRunConfig() runConfig {
	return runConfig{
		Port:       "Ethernet0",
		FlatMemory: false,
		LPModeWait: true,
	}
}

type fileConfig struct {
	Port       string `toml:"port"`
	FlatMemory bool   `toml:"flat_memory"`
	LPModeWait bool   `toml:"lpmode_wait"`
}

func loadRunConfig(path string) (runConfig, error) {
	cfg := defaultRunConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return runConfig{}, fmt.Errorf("load cmisctl config: %w", err)
	}

	if meta.IsDefined("port") {
		port := strings.TrimSpace(raw.Port)
		if port != "" {
			cfg.Port = port
		}
	}

	if meta.IsDefined("flat_memory") {
		cfg.FlatMemory = raw.FlatMemory
	}

	if meta.IsDefined("lpmode_wait") {
		cfg.LPModeWait = raw.LPModeWait
	}

	return cfg, nil
}
