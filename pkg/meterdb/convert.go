package meterdb

import (
	"time"

	"github.com/NotCoffee418/rainforest_emu2/pkg/emuutils"
	"github.com/NotCoffee418/rainforest_emu2/pkg/records"
)

// readingTime prefers the device timestamp and falls back to when the host
// received the record.
func readingTime(deviceSeconds uint64, receivedAt time.Time) int64 {
	if deviceSeconds != 0 {
		return emuutils.DeviceTime(deviceSeconds).Unix()
	}
	return receivedAt.UTC().Unix()
}

func DemandReadingFromRecord(rec records.InstantaneousDemand, receivedAt time.Time) *MeterDbDemandReading {
	return &MeterDbDemandReading{
		Timestamp: readingTime(rec.TimeStamp, receivedAt),
		DeviceMac: rec.DeviceMAC(),
		Watt:      emuutils.KwToW(rec.Reading),
	}
}

func SummationReadingFromRecord(rec records.CurrentSummationDelivered, receivedAt time.Time) *MeterDbSummationReading {
	return &MeterDbSummationReading{
		Timestamp:   readingTime(rec.TimeStamp, receivedAt),
		DeviceMac:   rec.DeviceMAC(),
		DeliveredWh: emuutils.KwhToWh(rec.Delivered),
		ReceivedWh:  emuutils.KwhToWh(rec.Received),
	}
}

func PriceReadingFromRecord(rec records.PriceCluster, receivedAt time.Time) *MeterDbPriceReading {
	return &MeterDbPriceReading{
		Timestamp:       readingTime(rec.TimeStamp, receivedAt),
		DeviceMac:       rec.DeviceMAC(),
		PriceMillicents: emuutils.PriceToMillicents(rec.PriceDollars),
		Currency:        rec.Currency,
		Tier:            rec.Tier,
	}
}

func PeriodUsageReadingFromRecord(rec records.CurrentPeriodUsage, receivedAt time.Time) *MeterDbPeriodUsageReading {
	return &MeterDbPeriodUsageReading{
		Timestamp:   readingTime(rec.TimeStamp, receivedAt),
		DeviceMac:   rec.DeviceMAC(),
		UsageWh:     emuutils.KwhToWh(rec.Reading),
		PeriodStart: rec.StartDate,
	}
}

// StoreRecord persists the record kinds kept as history. It reports whether
// rec was one of them.
func StoreRecord(rec records.Record, receivedAt time.Time) (bool, error) {
	switch r := rec.(type) {
	case records.InstantaneousDemand:
		return true, InsertDemandReading(DemandReadingFromRecord(r, receivedAt))
	case records.CurrentSummationDelivered:
		return true, InsertSummationReading(SummationReadingFromRecord(r, receivedAt))
	case records.PriceCluster:
		return true, InsertPriceReading(PriceReadingFromRecord(r, receivedAt))
	case records.CurrentPeriodUsage:
		return true, InsertPeriodUsageReading(PeriodUsageReadingFromRecord(r, receivedAt))
	default:
		return false, nil
	}
}
