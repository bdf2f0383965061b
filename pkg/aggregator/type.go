package aggregator

import "github.com/NotCoffee418/rainforest_emu2/pkg/meterdb"

type Timeframe string

const (
	Hourly Timeframe = "hourly"
	Daily  Timeframe = "daily"
)

// DefaultRetentionMonths applies when a non-positive retention is given.
const DefaultRetentionMonths = 3

type AggregateData struct {
	Timeframe Timeframe
	StartTime int64
	EndTime   int64
	Aggregate meterdb.AggregateDemandTable
}
