package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/NotCoffee418/rainforest_emu2/pkg/pathing"
)

var (
	ActiveEmuAPIConfig         *EmuAPIConfig
	ActiveMeterCollectorConfig *MeterCollectorConfig
)

func DefaultEmuAPIConfig() EmuAPIConfig {
	return EmuAPIConfig{
		SerialDevice:            "/dev/ttyACM0",
		Baudrate:                115200,
		ListenAddress:           "0.0.0.0",
		ListenPort:              9039,
		LogLevel:                "info",
		PollIntervalSeconds:     60,
		ReconnectBackoffSeconds: 5,
		WriteThrottleMillis:     1000,
		MQTT: MQTTConfig{
			ClientID:    "emu2_api",
			TopicPrefix: "emu2",
			Retained:    true,
		},
	}
}

func DefaultMeterCollectorConfig() MeterCollectorConfig {
	return MeterCollectorConfig{
		EmuAPIHost:      "localhost:9039",
		TLSEnabled:      false,
		LogLevel:        "info",
		RetentionMonths: 3,
	}
}

func LoadEmuAPIConfig() error {
	cfg, err := LoadFile(filepath.Join(pathing.GetConfigDir(), "emu2_api.toml"), DefaultEmuAPIConfig())
	if err != nil {
		return err
	}
	ActiveEmuAPIConfig = cfg
	return nil
}

func LoadMeterCollectorConfig() error {
	cfg, err := LoadFile(filepath.Join(pathing.GetConfigDir(), "meter_collector.toml"), DefaultMeterCollectorConfig())
	if err != nil {
		return err
	}
	ActiveMeterCollectorConfig = cfg
	return nil
}

// LoadFile decodes path over defaults. When path does not exist the defaults
// are written there first.
func LoadFile[T any](path string, defaults T) (*T, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := writeFile(path, defaults); err != nil {
			return nil, err
		}
		return &defaults, nil
	}

	cfg := defaults
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return &cfg, nil
}

func writeFile(path string, v any) error {
	cfgFile, err := os.Create(path)
	if err != nil {
		return err
	}
	defer cfgFile.Close()
	return toml.NewEncoder(cfgFile).Encode(v)
}

func SaveDeviceIdentity(id DeviceIdentity) error {
	if id.ProbedAt == "" {
		id.ProbedAt = time.Now().UTC().Format(time.RFC3339)
	}
	return writeFile(pathing.GetDeviceIdentityPath(), id)
}

func LoadDeviceIdentity() (*DeviceIdentity, error) {
	var id DeviceIdentity
	if _, err := toml.DecodeFile(pathing.GetDeviceIdentityPath(), &id); err != nil {
		return nil, err
	}
	return &id, nil
}

func (c *EmuAPIConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c *EmuAPIConfig) ReconnectBackoff() time.Duration {
	return time.Duration(c.ReconnectBackoffSeconds) * time.Second
}

func (c *EmuAPIConfig) WriteThrottle() time.Duration {
	return time.Duration(c.WriteThrottleMillis) * time.Millisecond
}
