package meterdb

type MeterDbDemandReading struct {
	Timestamp int64  `db:"timestamp"`
	DeviceMac string `db:"device_mac"`
	// Negative while the premises export power.
	Watt int32 `db:"watt"`
}

type MeterDbSummationReading struct {
	Timestamp   int64  `db:"timestamp"`
	DeviceMac   string `db:"device_mac"`
	DeliveredWh uint64 `db:"delivered_wh"`
	ReceivedWh  uint64 `db:"received_wh"`
}

type MeterDbPriceReading struct {
	Timestamp int64  `db:"timestamp"`
	DeviceMac string `db:"device_mac"`
	// Nil when the utility publishes no price.
	PriceMillicents *int64 `db:"price_millicents"`
	Currency        string `db:"currency"`
	Tier            string `db:"tier"`
}

type MeterDbPeriodUsageReading struct {
	Timestamp int64  `db:"timestamp"`
	DeviceMac string `db:"device_mac"`
	UsageWh   uint64 `db:"usage_wh"`
	// Raw device seconds, see emuutils.DeviceTime.
	PeriodStart uint64 `db:"period_start"`
}

// Aggregate models
// Use timeframe specified types instead of this directly
type AggregateDemandTable struct {
	StartTime   int64  `db:"start_time"`
	AvgWatt     int32  `db:"avg_watt"`
	MinWatt     int32  `db:"min_watt"`
	MaxWatt     int32  `db:"max_watt"`
	SampleCount uint32 `db:"sample_count"`
}

type AggregateDemandHourly = AggregateDemandTable
type AggregateDemandDaily = AggregateDemandTable

// Snapshot models - retained meter standings
type SnapshotSummationHourly struct {
	Timestamp           int64  `db:"timestamp"`
	DeliveredStandingWh uint64 `db:"delivered_standing_wh"`
	ReceivedStandingWh  uint64 `db:"received_standing_wh"`
}
