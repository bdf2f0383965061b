package pathing

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment overrides for the default locations.
const (
	ConfigDirEnv = "EMU2_CONFIG_DIR"
	DataDirEnv   = "EMU2_DATA_DIR"
)

// EnsureDirs creates the config and data directories when missing.
func EnsureDirs() error {
	for _, dir := range []string{GetConfigDir(), GetDataDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

func GetMeterDbPath() string {
	return filepath.Join(GetDataDir(), "emu2-meter.db")
}

func GetDeviceIdentityPath() string {
	return filepath.Join(GetConfigDir(), "device.toml")
}

func GetDataDir() string {
	if dir := os.Getenv(DataDirEnv); dir != "" {
		return dir
	}
	return "/var/lib/rainforest_emu2"
}

func GetConfigDir() string {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir
	}
	return "/etc/rainforest_emu2"
}
