package command

import "fmt"

var ErrInvalidArgument = fmt.Errorf("invalid command argument")

// Command names understood by the EMU-2.
const (
	Restart                      = "restart"
	GetConnectionStatus          = "get_connection_status"
	GetDeviceInfo                = "get_device_info"
	GetSchedule                  = "get_schedule"
	SetSchedule                  = "set_schedule"
	SetScheduleDefault           = "set_schedule_default"
	GetMeterList                 = "get_meter_list"
	GetMeterInfo                 = "get_meter_info"
	GetNetworkInfo               = "get_network_info"
	SetMeterInfo                 = "set_meter_info"
	GetTime                      = "get_time"
	GetMessage                   = "get_message"
	ConfirmMessage               = "confirm_message"
	GetCurrentPrice              = "get_current_price"
	SetCurrentPrice              = "set_current_price"
	GetInstantaneousDemand       = "get_instantaneous_demand"
	GetCurrentSummationDelivered = "get_current_summation_delivered"
	GetCurrentPeriodUsage        = "get_current_period_usage"
	GetLastPeriodUsage           = "get_last_period_usage"
	CloseCurrentPeriod           = "close_current_period"
	SetFastPoll                  = "set_fast_poll"
)

// Device defaults for the scheduling commands.
const (
	DefaultScheduleFrequency = 10 // seconds
	DefaultFastPollFrequency = 4  // seconds
	DefaultFastPollDuration  = 20 // minutes
)

// Event names a schedulable notification. The empty Event means "not given".
type Event string

const (
	EventNone            Event = ""
	EventTime            Event = "time"
	EventSummation       Event = "summation"
	EventBillingPeriod   Event = "billing_period"
	EventBlockPeriod     Event = "block_period"
	EventMessage         Event = "message"
	EventPrice           Event = "price"
	EventScheduledPrices Event = "scheduled_prices"
	EventDemand          Event = "demand"
)

var validEvents = map[Event]struct{}{
	EventTime:            {},
	EventSummation:       {},
	EventBillingPeriod:   {},
	EventBlockPeriod:     {},
	EventMessage:         {},
	EventPrice:           {},
	EventScheduledPrices: {},
	EventDemand:          {},
}

// Field is one named parameter element of a command.
type Field struct {
	Name  string
	Value string
}

// Command is an outbound <Command> element. Fields keep insertion order.
type Command struct {
	Name   string
	Fields []Field
}
