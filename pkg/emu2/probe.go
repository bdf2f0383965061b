package emu2

import (
	"context"
	"fmt"
	"time"

	"github.com/NotCoffee418/rainforest_emu2/pkg/observer"
	"github.com/NotCoffee418/rainforest_emu2/pkg/records"
)

// ProbeConnectTimeout bounds how long Probe waits for the transport.
const ProbeConnectTimeout = 8 * time.Second

// Identity describes the device answering on a port.
type Identity struct {
	DeviceMac    string `toml:"device_mac" json:"device_mac"`
	Manufacturer string `toml:"manufacturer" json:"manufacturer"`
	ModelID      string `toml:"model_id" json:"model_id"`
	FWVersion    string `toml:"fw_version" json:"fw_version"`
	HWVersion    string `toml:"hw_version" json:"hw_version"`
	DateCode     string `toml:"date_code" json:"date_code"`
}

// Probe asks a running engine for its DeviceInfo and returns the identity it
// reports. The engine's read loop must be started.
func Probe(ctx context.Context, e *Engine, timeout time.Duration) (Identity, error) {
	if !e.WaitConnected(ctx, ProbeConnectTimeout) {
		return Identity{}, ErrNotConnected
	}

	infoCh := make(chan records.DeviceInfo, 1)
	obs := observer.NewFunc(func(rec records.Record) {
		if info, ok := rec.(records.DeviceInfo); ok {
			select {
			case infoCh <- info:
			default:
			}
		}
	})
	e.Register(records.TagDeviceInfo, obs)
	defer e.Remove(records.TagDeviceInfo, obs)

	if err := e.GetDeviceInfo(ctx); err != nil {
		return Identity{}, fmt.Errorf("failed to request device info: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case info := <-infoCh:
		return Identity{
			DeviceMac:    info.DeviceMAC(),
			Manufacturer: info.Manufacturer,
			ModelID:      info.ModelID,
			FWVersion:    info.FWVersion,
			HWVersion:    info.HWVersion,
			DateCode:     info.DateCode,
		}, nil
	case <-timer.C:
		return Identity{}, fmt.Errorf("no device info within %s", timeout)
	case <-ctx.Done():
		return Identity{}, ctx.Err()
	}
}
