package emu2

import (
	"context"

	"github.com/NotCoffee418/rainforest_emu2/pkg/command"
)

// An empty mac lets the device pick its default meter.

func (e *Engine) Restart(ctx context.Context) error {
	return e.IssueCommand(ctx, command.NewRestart())
}

func (e *Engine) GetConnectionStatus(ctx context.Context) error {
	return e.IssueCommand(ctx, command.NewGetConnectionStatus())
}

func (e *Engine) GetDeviceInfo(ctx context.Context) error {
	return e.IssueCommand(ctx, command.NewGetDeviceInfo())
}

func (e *Engine) GetSchedule(ctx context.Context, mac string, event command.Event) error {
	cmd, err := command.NewGetSchedule(mac, event)
	if err != nil {
		return err
	}
	return e.IssueCommand(ctx, cmd)
}

func (e *Engine) SetSchedule(ctx context.Context, mac string, event command.Event, frequency uint32, enabled bool) error {
	cmd, err := command.NewSetSchedule(mac, event, frequency, enabled)
	if err != nil {
		return err
	}
	return e.IssueCommand(ctx, cmd)
}

func (e *Engine) SetScheduleDefault(ctx context.Context, mac string, event command.Event) error {
	cmd, err := command.NewSetScheduleDefault(mac, event)
	if err != nil {
		return err
	}
	return e.IssueCommand(ctx, cmd)
}

func (e *Engine) GetMeterList(ctx context.Context) error {
	return e.IssueCommand(ctx, command.NewGetMeterList())
}

func (e *Engine) GetMeterInfo(ctx context.Context, mac string) error {
	return e.IssueCommand(ctx, command.NewGetMeterInfo(mac))
}

func (e *Engine) GetNetworkInfo(ctx context.Context) error {
	return e.IssueCommand(ctx, command.NewGetNetworkInfo())
}

func (e *Engine) SetMeterInfo(ctx context.Context, mac string, info command.MeterInfo) error {
	return e.IssueCommand(ctx, command.NewSetMeterInfo(mac, info))
}

func (e *Engine) GetTime(ctx context.Context, mac string, refresh bool) error {
	return e.IssueCommand(ctx, command.NewGetTime(mac, refresh))
}

func (e *Engine) GetMessage(ctx context.Context, mac string, refresh bool) error {
	return e.IssueCommand(ctx, command.NewGetMessage(mac, refresh))
}

func (e *Engine) ConfirmMessage(ctx context.Context, mac string, messageID *uint32) error {
	cmd, err := command.NewConfirmMessage(mac, messageID)
	if err != nil {
		return err
	}
	return e.IssueCommand(ctx, cmd)
}

func (e *Engine) GetCurrentPrice(ctx context.Context, mac string) error {
	return e.IssueCommand(ctx, command.NewGetCurrentPrice(mac))
}

// SetCurrentPrice sets a price given in cents, e.g. "24.373".
func (e *Engine) SetCurrentPrice(ctx context.Context, mac string, priceCents string) error {
	cmd, err := command.NewSetCurrentPrice(mac, priceCents)
	if err != nil {
		return err
	}
	return e.IssueCommand(ctx, cmd)
}

func (e *Engine) GetInstantaneousDemand(ctx context.Context, mac string, refresh bool) error {
	return e.IssueCommand(ctx, command.NewGetInstantaneousDemand(mac, refresh))
}

func (e *Engine) GetCurrentSummationDelivered(ctx context.Context, mac string, refresh bool) error {
	return e.IssueCommand(ctx, command.NewGetCurrentSummationDelivered(mac, refresh))
}

func (e *Engine) GetCurrentPeriodUsage(ctx context.Context, mac string) error {
	return e.IssueCommand(ctx, command.NewGetCurrentPeriodUsage(mac))
}

func (e *Engine) GetLastPeriodUsage(ctx context.Context, mac string) error {
	return e.IssueCommand(ctx, command.NewGetLastPeriodUsage(mac))
}

func (e *Engine) CloseCurrentPeriod(ctx context.Context, mac string) error {
	return e.IssueCommand(ctx, command.NewCloseCurrentPeriod(mac))
}

func (e *Engine) SetFastPoll(ctx context.Context, mac string, frequency, duration uint16) error {
	return e.IssueCommand(ctx, command.NewSetFastPoll(mac, frequency, duration))
}
