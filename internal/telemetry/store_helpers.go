package telemetry

const recordColumns = "id, timestamp, lat, lng, speed, isMock, sent"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		rec    Record
		isMock int64
		sent   int64
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.Timestamp,
		&rec.Lat,
		&rec.Lng,
		&rec.Speed,
		&isMock,
		&sent,
	); err != nil {
		return Record{}, err
	}
	rec.IsMock = isMock != 0
	rec.Sent = sent != 0
	return rec, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
