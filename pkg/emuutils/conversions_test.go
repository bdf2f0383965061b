package emuutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPowerConversions(t *testing.T) {
	assert.Equal(t, int32(1234), KwToW(1.234))
	assert.Equal(t, int32(-1), KwToW(-0.001))
	assert.Equal(t, 1.5, WToKw(1500))

	assert.Equal(t, uint64(27768600), KwhToWh(27768.6))
	assert.Equal(t, uint64(0), KwhToWh(-3))
	assert.Equal(t, 2.748, WhToKwh(2748))
}

func TestDeviceTime(t *testing.T) {
	assert.True(t, DeviceTime(0).IsZero())
	assert.Equal(t, time.Date(2000, 1, 1, 0, 0, 1, 0, time.UTC), DeviceTime(1))

	ts := time.Date(2022, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, ts, DeviceTime(DeviceSeconds(ts)))
	assert.Equal(t, uint64(0), DeviceSeconds(time.Unix(0, 0)))
}

func TestPriceToMillicents(t *testing.T) {
	assert.Nil(t, PriceToMillicents(nil))
	p := 0.24373
	assert.Equal(t, int64(24373), *PriceToMillicents(&p))
}
