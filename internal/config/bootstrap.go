package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EnsureUserConfig makes sure <dataDir>/config.yml exists, seeding it from
// defaultPath when given, or from Default otherwise.
func EnsureUserConfig(dataDir string, defaultPath string) (string, error) {
	userPath := filepath.Join(dataDir, "config.yml")

	_, err := os.Stat(userPath)
	if err == nil {
		return userPath, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", err
	}

	var b []byte
	if defaultPath != "" {
		b, err = os.ReadFile(defaultPath)
		if err != nil {
			return "", err
		}
	} else {
		cfg := Default()
		cfg.App.DataDir = dataDir
		b, err = yaml.Marshal(&cfg)
		if err != nil {
			return "", err
		}
	}

	if err := os.WriteFile(userPath, b, 0o600); err != nil {
		return "", err
	}
	return userPath, nil
}
