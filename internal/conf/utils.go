package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/tphakala/audioviz/internal/errors"
)

const (
	appName   = "audioviz"
	osWindows = "windows"
)

// GetDefaultConfigPaths returns the directories searched for config.yaml in
// priority order. The first entry is where a default config is created.
func GetDefaultConfigPaths() ([]string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategorySystem).
			Context("operation", "get-executable-path").
			Build()
	}
	exeDir := filepath.Dir(exePath)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	var configPaths []string
	switch runtime.GOOS {
	case osWindows:
		configPaths = []string{
			exeDir,
			filepath.Join(homeDir, "AppData", "Roaming", appName),
		}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", appName),
			filepath.Join("/etc", appName),
		}
	}

	// Prefer a directory that already holds a config file
	for i, path := range configPaths {
		if _, err := os.Stat(filepath.Join(path, "config.yaml")); err == nil {
			if i > 0 {
				configPaths[0], configPaths[i] = configPaths[i], configPaths[0]
			}
			break
		}
	}

	return configPaths, nil
}
