package implementation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	config "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Config"
	interfaces "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Repository/Interfaces"
)

var (
	_ interfaces.TelemetryStore = (*PostgresTelemetryStore)(nil)
	_ interfaces.TelemetryStore = (*MongoTelemetryStore)(nil)
)

// PostgresTelemetryStore bundles the Postgres repositories over one connection pool
type PostgresTelemetryStore struct {
	*PostgresSensorRepository
	*PostgresDoorRepository
	*PostgresControlLogRepository

	db *sql.DB
}

func NewPostgresTelemetryStore(db *sql.DB) *PostgresTelemetryStore {
	return &PostgresTelemetryStore{
		PostgresSensorRepository:     NewPostgresSensorRepository(db),
		PostgresDoorRepository:       NewPostgresDoorRepository(db),
		PostgresControlLogRepository: NewPostgresControlLogRepository(db),
		db:                           db,
	}
}

// DB exposes the pool for migrations
func (s *PostgresTelemetryStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresTelemetryStore) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.db.PingContext(ctx)
}

func (s *PostgresTelemetryStore) Close(_ context.Context) error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// OpenPostgres opens a pool and pings it once within timeout
func OpenPostgres(ctx context.Context, cfg *config.Config, timeout time.Duration) (*sql.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("unable to open PostgreSQL connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(cfg.Storage.Postgres.MaxConns)
	db.SetMaxIdleConns(cfg.Storage.Postgres.MinConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}
