package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "ctl":
		return ctlTemplate, nil
	case "daemon":
		return daemonTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const ctlTemplate = `port = "Ethernet0"
flat_memory = false
lpmode_wait = true
`

const daemonTemplate = `addr = ":9000"
port = "Ethernet0"
flat_memory = false
cors_origins = ["http://localhost:3000"]
`
