package command

import "fmt"

// Builders for the supported command surface. An empty mac omits MeterMacId so
// the device falls back to its default meter.

func NewRestart() *Command             { return New(Restart) }
func NewGetConnectionStatus() *Command { return New(GetConnectionStatus) }
func NewGetDeviceInfo() *Command       { return New(GetDeviceInfo) }
func NewGetMeterList() *Command        { return New(GetMeterList) }
func NewGetNetworkInfo() *Command      { return New(GetNetworkInfo) }

func NewGetSchedule(mac string, event Event) (*Command, error) {
	if err := ValidateEvent(event, true); err != nil {
		return nil, err
	}
	return New(GetSchedule).
		WithOptional("MeterMacId", optional(mac)).
		WithOptional("Event", eventField(event)), nil
}

func NewSetSchedule(mac string, event Event, frequency uint32, enabled bool) (*Command, error) {
	if err := ValidateEvent(event, false); err != nil {
		return nil, err
	}
	return New(SetSchedule).
		WithOptional("MeterMacId", optional(mac)).
		With("Event", string(event)).
		With("Frequency", FormatHex(uint64(frequency), 0)).
		With("Enabled", FormatYN(enabled)), nil
}

func NewSetScheduleDefault(mac string, event Event) (*Command, error) {
	if err := ValidateEvent(event, true); err != nil {
		return nil, err
	}
	return New(SetScheduleDefault).
		WithOptional("MeterMacId", optional(mac)).
		WithOptional("Event", eventField(event)), nil
}

func NewGetMeterInfo(mac string) *Command {
	return New(GetMeterInfo).WithOptional("MeterMacId", optional(mac))
}

// MeterInfo holds the optional settings of set_meter_info. Nil fields are omitted.
type MeterInfo struct {
	NickName *string
	Account  *string
	Auth     *string
	Host     *string
	Enabled  *bool
}

func NewSetMeterInfo(mac string, info MeterInfo) *Command {
	return New(SetMeterInfo).
		WithOptional("MeterMacId", optional(mac)).
		WithOptional("NickName", info.NickName).
		WithOptional("Account", info.Account).
		WithOptional("Auth", info.Auth).
		WithOptional("Host", info.Host).
		WithOptional("Enabled", OptionalYN(info.Enabled))
}

func NewGetTime(mac string, refresh bool) *Command {
	return New(GetTime).
		WithOptional("MeterMacId", optional(mac)).
		With("Refresh", FormatYN(refresh))
}

func NewGetMessage(mac string, refresh bool) *Command {
	return New(GetMessage).
		WithOptional("MeterMacId", optional(mac)).
		With("Refresh", FormatYN(refresh))
}

// NewConfirmMessage requires the id of the message being confirmed.
func NewConfirmMessage(mac string, messageID *uint32) (*Command, error) {
	if messageID == nil {
		return nil, fmt.Errorf("%w: message id is required", ErrInvalidArgument)
	}
	return New(ConfirmMessage).
		WithOptional("MeterMacId", optional(mac)).
		With("Id", FormatHex(uint64(*messageID), 0)), nil
}

func NewGetCurrentPrice(mac string) *Command {
	return New(GetCurrentPrice).WithOptional("MeterMacId", optional(mac))
}

// NewSetCurrentPrice takes the price in cents with decimals, e.g. "24.373".
func NewSetCurrentPrice(mac string, priceCents string) (*Command, error) {
	price, trailing, err := ParsePriceCents(priceCents)
	if err != nil {
		return nil, err
	}
	return New(SetCurrentPrice).
		WithOptional("MeterMacId", optional(mac)).
		With("Price", FormatHex(price, 0)).
		With("TrailingDigits", FormatHex(trailing, 2)), nil
}

func NewGetInstantaneousDemand(mac string, refresh bool) *Command {
	return New(GetInstantaneousDemand).
		WithOptional("MeterMacId", optional(mac)).
		With("Refresh", FormatYN(refresh))
}

func NewGetCurrentSummationDelivered(mac string, refresh bool) *Command {
	return New(GetCurrentSummationDelivered).
		WithOptional("MeterMacId", optional(mac)).
		With("Refresh", FormatYN(refresh))
}

func NewGetCurrentPeriodUsage(mac string) *Command {
	return New(GetCurrentPeriodUsage).WithOptional("MeterMacId", optional(mac))
}

func NewGetLastPeriodUsage(mac string) *Command {
	return New(GetLastPeriodUsage).WithOptional("MeterMacId", optional(mac))
}

func NewCloseCurrentPeriod(mac string) *Command {
	return New(CloseCurrentPeriod).WithOptional("MeterMacId", optional(mac))
}

// NewSetFastPoll sets the fast poll frequency (seconds) and duration (minutes).
func NewSetFastPoll(mac string, frequency, duration uint16) *Command {
	return New(SetFastPoll).
		WithOptional("MeterMacId", optional(mac)).
		With("Frequency", FormatHex(uint64(frequency), 4)).
		With("Duration", FormatHex(uint64(duration), 4))
}

// Parameterless maps the commands that need no arguments to their builders.
var Parameterless = map[string]func() *Command{
	Restart:                      NewRestart,
	GetConnectionStatus:          NewGetConnectionStatus,
	GetDeviceInfo:                NewGetDeviceInfo,
	GetMeterList:                 NewGetMeterList,
	GetNetworkInfo:               NewGetNetworkInfo,
	GetMeterInfo:                 func() *Command { return NewGetMeterInfo("") },
	GetTime:                      func() *Command { return NewGetTime("", true) },
	GetMessage:                   func() *Command { return NewGetMessage("", true) },
	GetCurrentPrice:              func() *Command { return NewGetCurrentPrice("") },
	GetInstantaneousDemand:       func() *Command { return NewGetInstantaneousDemand("", true) },
	GetCurrentSummationDelivered: func() *Command { return NewGetCurrentSummationDelivered("", true) },
	GetCurrentPeriodUsage:        func() *Command { return NewGetCurrentPeriodUsage("") },
	GetLastPeriodUsage:           func() *Command { return NewGetLastPeriodUsage("") },
	CloseCurrentPeriod:           func() *Command { return NewCloseCurrentPeriod("") },
}
