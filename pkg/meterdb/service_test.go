package meterdb

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/NotCoffee418/rainforest_emu2/pkg/pathing"
	"github.com/NotCoffee418/rainforest_emu2/pkg/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain points the shared database at a temp dir and creates the schema
// from the up section of the migrations.
func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "meterdb")
	if err != nil {
		panic(err)
	}
	os.Setenv(pathing.DataDirEnv, dir)

	up, err := migrationFS.ReadFile("migrations/0001_init.sql")
	if err != nil {
		panic(err)
	}
	schema, _, _ := strings.Cut(string(up), "-- +down")
	if _, err := GetDB().Exec(schema); err != nil {
		panic(err)
	}

	code := m.Run()
	GetDB().Close()
	os.RemoveAll(dir)
	os.Exit(code)
}

func TestOpen(t *testing.T) {
	conn, err := Open(filepath.Join(t.TempDir(), "meter.db"))
	require.NoError(t, err)
	defer conn.Close()
	var one int
	require.NoError(t, conn.QueryRow("SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)

	_, err = Open(filepath.Join(t.TempDir(), "missing", "meter.db"))
	assert.Error(t, err)
}

func decode(t *testing.T, fragment string) records.Record {
	t.Helper()
	recs, err := records.DecodeFragment(fragment)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	return recs[0]
}

func TestDemandReadingFromRecord(t *testing.T) {
	rec := decode(t, `<InstantaneousDemand><DeviceMacId>0xd8d5b90000001234</DeviceMacId>`+
		`<TimeStamp>0x00000001</TimeStamp><Demand>0xFFFFFB2E</Demand>`+
		`<Multiplier>0x1</Multiplier><Divisor>0x3e8</Divisor><DigitsRight>0x3</DigitsRight></InstantaneousDemand>`)

	reading := DemandReadingFromRecord(rec.(records.InstantaneousDemand), time.Now())
	assert.Equal(t, int32(-1234), reading.Watt)
	assert.Equal(t, int64(946684801), reading.Timestamp)
	assert.Equal(t, "0xd8d5b90000001234", reading.DeviceMac)
}

func TestReadingTimeFallsBackToReceivedAt(t *testing.T) {
	rec := decode(t, `<PriceCluster><Price>0xffffffff</Price></PriceCluster>`)
	receivedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	reading := PriceReadingFromRecord(rec.(records.PriceCluster), receivedAt)
	assert.Equal(t, receivedAt.Unix(), reading.Timestamp)
	assert.Nil(t, reading.PriceMillicents)
}

func TestStoreRecord(t *testing.T) {
	receivedAt := time.Now().UTC()

	stored, err := StoreRecord(decode(t, `<InstantaneousDemand><Demand>0x000001f4</Demand>`+
		`<Multiplier>0x1</Multiplier><Divisor>0x3e8</Divisor><DigitsRight>0x3</DigitsRight></InstantaneousDemand>`), receivedAt)
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = StoreRecord(decode(t, `<CurrentSummationDelivered><SummationDelivered>0x10f4</SummationDelivered>`+
		`<SummationReceived>0x0</SummationReceived><Multiplier>0x1</Multiplier><Divisor>0x3e8</Divisor></CurrentSummationDelivered>`), receivedAt)
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = StoreRecord(decode(t, `<PriceCluster><Price>0x00005f35</Price><TrailingDigits>0x05</TrailingDigits></PriceCluster>`), receivedAt)
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = StoreRecord(decode(t, `<CurrentPeriodUsage><CurrentUsage>0xabc</CurrentUsage>`+
		`<Multiplier>0x1</Multiplier><Divisor>0x3e8</Divisor><DigitsRight>0x3</DigitsRight><StartDate>0x1c3ec840</StartDate></CurrentPeriodUsage>`), receivedAt)
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = StoreRecord(decode(t, `<TimeCluster></TimeCluster>`), receivedAt)
	require.NoError(t, err)
	assert.False(t, stored)

	latest, err := LatestDemandReadings(1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, int32(500), latest[0].Watt)

	var millicents int64
	require.NoError(t, GetDB().QueryRow("SELECT price_millicents FROM price_readings").Scan(&millicents))
	assert.Equal(t, int64(24373), millicents)

	var usage, start int64
	require.NoError(t, GetDB().QueryRow("SELECT usage_wh, period_start FROM period_usage_readings").Scan(&usage, &start))
	assert.Equal(t, int64(2748), usage)
	assert.Equal(t, int64(0x1c3ec840), start)
}
