package aggregator

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/NotCoffee418/rainforest_emu2/pkg/meterdb"
	"github.com/rs/zerolog/log"
)

// roundToHourStart returns the Unix timestamp of the start of the hour for the given time
func roundToHourStart(t time.Time) int64 {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC).Unix()
}

// roundToDayStart returns the Unix timestamp of the start of the day for the given time
func roundToDayStart(t time.Time) int64 {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix()
}

// getHourEnd returns the Unix timestamp of the last second of the hour
func getHourEnd(hourStart int64) int64 {
	return hourStart + int64(time.Hour/time.Second) - 1
}

// getDayEnd returns the Unix timestamp of the last second of the day
func getDayEnd(dayStart int64) int64 {
	return time.Unix(dayStart, 0).UTC().AddDate(0, 0, 1).Unix() - 1
}

func tableFor(timeframe Timeframe) (table, keyColumn string, err error) {
	switch timeframe {
	case Hourly:
		return "aggregate_demand_hourly", "hour_start", nil
	case Daily:
		return "aggregate_demand_daily", "day_start", nil
	}
	return "", "", fmt.Errorf("unknown timeframe %q", timeframe)
}

// aggregateDemand averages the demand readings between start and end into the
// aggregate table of timeframe. Empty windows are skipped.
func aggregateDemand(timeframe Timeframe, start, end int64) (*AggregateData, error) {
	table, keyColumn, err := tableFor(timeframe)
	if err != nil {
		return nil, err
	}
	db := meterdb.GetDB()

	query := `
		SELECT
			COUNT(*),
			COALESCE(ROUND(AVG(watt)), 0),
			COALESCE(MIN(watt), 0),
			COALESCE(MAX(watt), 0)
		FROM demand_readings
		WHERE timestamp >= ? AND timestamp <= ?
	`
	var agg meterdb.AggregateDemandTable
	var avg float64
	if err := db.QueryRow(query, start, end).Scan(&agg.SampleCount, &avg, &agg.MinWatt, &agg.MaxWatt); err != nil {
		return nil, err
	}
	if agg.SampleCount == 0 {
		return nil, nil
	}
	agg.StartTime = start
	agg.AvgWatt = int32(avg)

	insertQuery := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s
		(%s, avg_watt, min_watt, max_watt, sample_count)
		VALUES (?, ?, ?, ?, ?)
	`, table, keyColumn)
	if _, err := db.Exec(insertQuery, start, agg.AvgWatt, agg.MinWatt, agg.MaxWatt, agg.SampleCount); err != nil {
		return nil, err
	}

	return &AggregateData{Timeframe: timeframe, StartTime: start, EndTime: end, Aggregate: agg}, nil
}

// snapshotSummationHourly keeps the last meter standing seen within the hour
func snapshotSummationHourly(hourStart int64) error {
	db := meterdb.GetDB()
	hourEnd := getHourEnd(hourStart)

	query := `
		SELECT delivered_wh, received_wh
		FROM summation_readings
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp DESC
		LIMIT 1
	`
	var snap meterdb.SnapshotSummationHourly
	err := db.QueryRow(query, hourStart, hourEnd).Scan(&snap.DeliveredStandingWh, &snap.ReceivedStandingWh)
	if errors.Is(err, sql.ErrNoRows) {
		// No entry within timeframe, that's okay
		return nil
	}
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT OR REPLACE INTO snapshot_summation_hourly
		(timestamp, delivered_standing_wh, received_standing_wh)
		VALUES (?, ?, ?)
	`, hourStart, snap.DeliveredStandingWh, snap.ReceivedStandingWh)
	return err
}

// cleanupOldData removes raw readings older than retentionMonths once the
// hourly aggregates have caught up with the cutoff.
func cleanupOldData(now time.Time, retentionMonths int) error {
	if retentionMonths <= 0 {
		retentionMonths = DefaultRetentionMonths
	}
	db := meterdb.GetDB()
	cutoff := now.UTC().AddDate(0, -retentionMonths, 0)
	cutoffTimestamp := cutoff.Unix()

	var lastAggregateHour sql.NullInt64
	if err := db.QueryRow("SELECT MAX(hour_start) FROM aggregate_demand_hourly").Scan(&lastAggregateHour); err != nil {
		return err
	}
	if !lastAggregateHour.Valid || lastAggregateHour.Int64 < cutoffTimestamp {
		return nil
	}

	for _, table := range []string{"demand_readings", "summation_readings", "price_readings", "period_usage_readings"} {
		if _, err := db.Exec("DELETE FROM "+table+" WHERE timestamp < ?", cutoffTimestamp); err != nil {
			return err
		}
	}

	log.Info().Time("cutoff", cutoff).Msg("cleaned up raw readings")
	return nil
}

// AggregateAndCleanup performs all aggregation and cleanup tasks for the
// hour before now.
func AggregateAndCleanup(now time.Time, retentionMonths int) error {
	now = now.UTC()

	// Aggregate the previous hour (current hour is still ongoing)
	hourStart := roundToHourStart(now.Add(-time.Hour))
	log.Info().Time("hour_start", time.Unix(hourStart, 0).UTC()).Msg("aggregating hour")

	if _, err := aggregateDemand(Hourly, hourStart, getHourEnd(hourStart)); err != nil {
		return fmt.Errorf("hourly demand aggregate: %w", err)
	}
	if err := snapshotSummationHourly(hourStart); err != nil {
		return fmt.Errorf("summation snapshot: %w", err)
	}

	// Aggregate the previous day if it's a new day
	if now.Hour() == 0 {
		dayStart := roundToDayStart(now.AddDate(0, 0, -1))
		log.Info().Time("day_start", time.Unix(dayStart, 0).UTC()).Msg("aggregating day")
		if _, err := aggregateDemand(Daily, dayStart, getDayEnd(dayStart)); err != nil {
			return fmt.Errorf("daily demand aggregate: %w", err)
		}
	}

	if err := cleanupOldData(now, retentionMonths); err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}

	log.Debug().Msg("aggregation and cleanup completed")
	return nil
}
