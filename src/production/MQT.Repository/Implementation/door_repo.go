package implementation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	mqtmodels "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Models"
)

type PostgresDoorRepository struct {
	db *sql.DB
}

func NewPostgresDoorRepository(db *sql.DB) *PostgresDoorRepository {
	return &PostgresDoorRepository{db: db}
}

func (r *PostgresDoorRepository) InsertDoorStatus(ctx context.Context, rec mqtmodels.DoorStatusRecord) error {
	query := `INSERT INTO door_status (device_id, status, timestamp) VALUES ($1, $2, $3)`

	if _, err := r.db.ExecContext(ctx, query, rec.DeviceID, rec.Status, rec.Timestamp); err != nil {
		return fmt.Errorf("insert door status: %w", err)
	}
	return nil
}

func (r *PostgresDoorRepository) GetLatestDoorStatus(ctx context.Context) (*mqtmodels.DoorStatusRecord, error) {
	query := `
		SELECT id, device_id, status, timestamp, created_at
		FROM door_status
		ORDER BY id DESC
		LIMIT 1
	`

	var rec mqtmodels.DoorStatusRecord
	err := r.db.QueryRowContext(ctx, query).Scan(&rec.ID, &rec.DeviceID, &rec.Status, &rec.Timestamp, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &rec, nil
}

func (r *PostgresDoorRepository) CountDoorRecords(ctx context.Context) (int64, error) {
	return countRows(ctx, r.db, "door_status")
}
