package meterdb

func InsertDemandReading(reading *MeterDbDemandReading) error {
	_, err := GetDB().Exec(
		"INSERT INTO demand_readings (timestamp, device_mac, watt) VALUES (?, ?, ?)",
		reading.Timestamp,
		reading.DeviceMac,
		reading.Watt,
	)
	return err
}

func InsertSummationReading(reading *MeterDbSummationReading) error {
	_, err := GetDB().Exec(
		"INSERT INTO summation_readings (timestamp, device_mac, delivered_wh, received_wh) "+
			"VALUES (?, ?, ?, ?)",
		reading.Timestamp,
		reading.DeviceMac,
		reading.DeliveredWh,
		reading.ReceivedWh,
	)
	return err
}

func InsertPriceReading(reading *MeterDbPriceReading) error {
	_, err := GetDB().Exec(
		"INSERT INTO price_readings (timestamp, device_mac, price_millicents, currency, tier) "+
			"VALUES (?, ?, ?, ?, ?)",
		reading.Timestamp,
		reading.DeviceMac,
		reading.PriceMillicents,
		reading.Currency,
		reading.Tier,
	)
	return err
}

func InsertPeriodUsageReading(reading *MeterDbPeriodUsageReading) error {
	_, err := GetDB().Exec(
		"INSERT INTO period_usage_readings (timestamp, device_mac, usage_wh, period_start) "+
			"VALUES (?, ?, ?, ?)",
		reading.Timestamp,
		reading.DeviceMac,
		reading.UsageWh,
		reading.PeriodStart,
	)
	return err
}

// LatestDemandReadings returns up to limit readings, newest first.
func LatestDemandReadings(limit int) ([]MeterDbDemandReading, error) {
	rows, err := GetDB().Query(
		"SELECT timestamp, device_mac, watt FROM demand_readings ORDER BY timestamp DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MeterDbDemandReading
	for rows.Next() {
		var r MeterDbDemandReading
		if err := rows.Scan(&r.Timestamp, &r.DeviceMac, &r.Watt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
