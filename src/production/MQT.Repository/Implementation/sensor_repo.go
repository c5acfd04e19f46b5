package implementation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	mqtmodels "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Models"
)

type PostgresSensorRepository struct {
	db *sql.DB
}

func NewPostgresSensorRepository(db *sql.DB) *PostgresSensorRepository {
	return &PostgresSensorRepository{db: db}
}

func (r *PostgresSensorRepository) InsertSensorRecord(ctx context.Context, rec mqtmodels.SensorRecord) error {
	query := `
		INSERT INTO sensor_data (device_id, sensor_type, value, unit, status, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.DeviceID, string(rec.SensorType), rec.Value, nullString(rec.Unit), rec.Status, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("insert sensor record: %w", err)
	}
	return nil
}

func (r *PostgresSensorRepository) GetLatestSensorRecord(ctx context.Context, sensorType mqtmodels.Channel) (*mqtmodels.SensorRecord, error) {
	query := `
		SELECT id, device_id, sensor_type, value, unit, status, timestamp, created_at
		FROM sensor_data
		WHERE sensor_type = $1
		ORDER BY id DESC
		LIMIT 1
	`

	rec, err := scanSensorRecord(r.db.QueryRowContext(ctx, query, string(sensorType)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func (r *PostgresSensorRepository) GetSensorHistory(ctx context.Context, sensorType mqtmodels.Channel, limit int) ([]mqtmodels.SensorRecord, error) {
	// Newest N, flipped to oldest-first in the outer query
	query := `
		SELECT id, device_id, sensor_type, value, unit, status, timestamp, created_at
		FROM (
			SELECT id, device_id, sensor_type, value, unit, status, timestamp, created_at
			FROM sensor_data
			WHERE sensor_type = $1
			ORDER BY id DESC
			LIMIT $2
		) recent
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, string(sensorType), limit)
	if err != nil {
		return nil, fmt.Errorf("query sensor history: %w", err)
	}
	defer rows.Close()

	records := make([]mqtmodels.SensorRecord, 0, limit)
	for rows.Next() {
		rec, err := scanSensorRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

func (r *PostgresSensorRepository) CountSensorRecords(ctx context.Context) (int64, error) {
	return countRows(ctx, r.db, "sensor_data")
}

func scanSensorRecord(row rowScanner) (*mqtmodels.SensorRecord, error) {
	var (
		rec        mqtmodels.SensorRecord
		sensorType string
		unit       sql.NullString
		status     sql.NullString
	)

	err := row.Scan(&rec.ID, &rec.DeviceID, &sensorType, &rec.Value, &unit, &status, &rec.Timestamp, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}

	rec.SensorType = mqtmodels.Channel(sensorType)
	rec.Unit = unit.String
	if status.Valid {
		s := status.String
		rec.Status = &s
	}
	return &rec, nil
}
