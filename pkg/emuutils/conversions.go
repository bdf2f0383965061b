package emuutils

import (
	"math"
	"time"
)

// DeviceEpoch is second zero of the EMU-2 clock, 2000-01-01T00:00:00Z.
const DeviceEpoch int64 = 946684800

// Demand can be negative when the premises export power.
func KwToW(kw float64) int32 {
	return int32(math.Round(kw * 1000))
}

func WToKw(w int32) float64 {
	return float64(w) / 1000
}

// No negative values
func KwhToWh(kwh float64) uint64 {
	if kwh < 0 {
		return 0
	}
	return uint64(math.Round(kwh * 1000))
}

func WhToKwh(wh uint64) float64 {
	return float64(wh) / 1000
}

// DeviceTime converts device seconds to wall time. Zero means unset and maps
// to the zero time.
func DeviceTime(seconds uint64) time.Time {
	if seconds == 0 {
		return time.Time{}
	}
	return time.Unix(DeviceEpoch+int64(seconds), 0).UTC()
}

func DeviceSeconds(t time.Time) uint64 {
	s := t.Unix() - DeviceEpoch
	if s < 0 {
		return 0
	}
	return uint64(s)
}

// PriceToMillicents stores a dollar price as an integer. Nil stays nil.
func PriceToMillicents(dollars *float64) *int64 {
	if dollars == nil {
		return nil
	}
	v := int64(math.Round(*dollars * 100000))
	return &v
}
