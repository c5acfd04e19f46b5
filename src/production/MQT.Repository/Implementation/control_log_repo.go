package implementation

import (
	"context"
	"database/sql"
	"fmt"

	mqtmodels "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Models"
)

type PostgresControlLogRepository struct {
	db *sql.DB
}

func NewPostgresControlLogRepository(db *sql.DB) *PostgresControlLogRepository {
	return &PostgresControlLogRepository{db: db}
}

func (r *PostgresControlLogRepository) InsertControlLog(ctx context.Context, entry mqtmodels.ControlLogEntry) error {
	query := `
		INSERT INTO control_logs (device_type, command, value, source, timestamp)
		VALUES ($1, $2, $3, $4, $5)
	`

	source := entry.Source
	if source == "" {
		source = mqtmodels.DefaultCommandSource
	}

	_, err := r.db.ExecContext(ctx, query, string(entry.DeviceType), entry.Command, entry.Value, source, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("insert control log: %w", err)
	}
	return nil
}

func (r *PostgresControlLogRepository) ListControlLogs(ctx context.Context, limit int) ([]mqtmodels.ControlLogEntry, error) {
	query := `
		SELECT id, device_type, command, value, source, timestamp, created_at
		FROM control_logs
		ORDER BY id DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query control logs: %w", err)
	}
	defer rows.Close()

	entries := make([]mqtmodels.ControlLogEntry, 0, limit)
	for rows.Next() {
		var (
			entry      mqtmodels.ControlLogEntry
			deviceType string
			value      sql.NullString
		)
		if err := rows.Scan(&entry.ID, &deviceType, &entry.Command, &value, &entry.Source, &entry.Timestamp, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.DeviceType = mqtmodels.ControlDevice(deviceType)
		if value.Valid {
			v := value.String
			entry.Value = &v
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func (r *PostgresControlLogRepository) CountControlLogs(ctx context.Context) (int64, error) {
	return countRows(ctx, r.db, "control_logs")
}
