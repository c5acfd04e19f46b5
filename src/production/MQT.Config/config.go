package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMongo    = "mongo"
)

// Flush modes
const (
	// FlushModeClear empties buffer slots when they are drained.
	FlushModeClear = "clear"
	// FlushModeRetain leaves drained readings in place, re-persisting them every tick.
	FlushModeRetain = "retain"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server"`

	// Storage configuration
	Storage StorageConfig `json:"storage"`

	// MQTT configuration
	MQTT MQTTConfig `json:"mqtt"`

	// Flush scheduler configuration
	Flush FlushConfig `json:"flush"`

	// Query configuration
	Query QueryConfig `json:"query"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// CORS configuration
	CORS CORSConfig `json:"cors"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         string        `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// StorageConfig selects and configures the durable store
type StorageConfig struct {
	Driver         string         `json:"driver"`
	ConnectTimeout time.Duration  `json:"connect_timeout"`
	Postgres       DatabaseConfig `json:"postgres"`
	Mongo          MongoConfig    `json:"mongo"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
	MaxConns int    `json:"max_conns"`
	MinConns int    `json:"min_conns"`
}

// MongoConfig holds MongoDB connection settings
type MongoConfig struct {
	URI      string `json:"uri"`
	Database string `json:"database"`
}

// MQTTConfig holds MQTT-related configuration
type MQTTConfig struct {
	BrokerHost     string        `json:"broker_host"`
	BrokerPort     int           `json:"broker_port"`
	BrokerUser     string        `json:"broker_user"`
	BrokerPass     string        `json:"broker_pass"`
	UseTLS         bool          `json:"use_tls"`
	CACertPath     string        `json:"ca_cert_path"`
	ClientID       string        `json:"client_id"`
	TopicPrefix    string        `json:"topic_prefix"`
	QOS            int           `json:"qos"`
	KeepAlive      time.Duration `json:"keep_alive"`
	PingTimeout    time.Duration `json:"ping_timeout"`
	PublishTimeout time.Duration `json:"publish_timeout"`
}

// FlushConfig holds configuration for the periodic buffer flush
type FlushConfig struct {
	Interval     time.Duration `json:"interval"`
	Mode         string        `json:"mode"`
	WriteTimeout time.Duration `json:"write_timeout"`
	OnShutdown   bool          `json:"on_shutdown"`
}

// QueryConfig bounds the history endpoints
type QueryConfig struct {
	HistoryDefaultLimit int `json:"history_default_limit"`
	HistoryMaxLimit     int `json:"history_max_limit"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level        string `json:"level"`
	Format       string `json:"format"` // json or text
	Output       string `json:"output"` // stdout or stderr
	EnableCaller bool   `json:"enable_caller"`
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	ExposedHeaders   []string `json:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

// Load loads configuration from environment variables with fallback defaults
func Load() (*Config, error) {
	// A missing .env file is fine; variables may be set directly
	_ = godotenv.Load()

	parser := &envParser{}

	config := &Config{
		Server: ServerConfig{
			Port:         parser.getEnv("PORT", "5000"),
			ReadTimeout:  parser.getDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: parser.getDuration("WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  parser.getDuration("IDLE_TIMEOUT", 120*time.Second),
		},
		Storage: StorageConfig{
			Driver:         strings.ToLower(parser.getEnv("STORAGE_DRIVER", StorageDriverPostgres)),
			ConnectTimeout: parser.getDuration("DB_CONNECT_TIMEOUT", 30*time.Second),
			Postgres: DatabaseConfig{
				Host:     parser.getEnv("POSTGRES_HOST", "localhost"),
				Port:     parser.getInt("POSTGRES_PORT", 5432),
				User:     parser.getEnv("POSTGRES_USER", ""),
				Password: parser.getEnv("POSTGRES_PASSWORD", ""),
				DBName:   parser.getEnv("POSTGRES_DB", "smart_home"),
				SSLMode:  parser.getEnv("POSTGRES_SSLMODE", "disable"),
				MaxConns: parser.getInt("POSTGRES_MAX_CONNS", 25),
				MinConns: parser.getInt("POSTGRES_MIN_CONNS", 5),
			},
			Mongo: MongoConfig{
				URI:      parser.getEnv("MONGODB_URI", "mongodb://localhost:27017"),
				Database: parser.getEnv("MONGODB_DATABASE", "smart_home"),
			},
		},
		MQTT: MQTTConfig{
			BrokerHost:     parser.getEnv("BROKER_HOST", "broker.hivemq.com"),
			BrokerPort:     parser.getInt("BROKER_PORT", 1883),
			BrokerUser:     parser.getEnv("BROKER_USER", ""),
			BrokerPass:     parser.getEnv("BROKER_PASS", ""),
			UseTLS:         parser.getBool("BROKER_TLS", false),
			CACertPath:     parser.getEnv("BROKER_CA_FILE", ""),
			ClientID:       parser.getEnv("MQTT_CLIENT_ID", "smarthome-backend"),
			TopicPrefix:    strings.Trim(parser.getEnv("MQTT_TOPIC_PREFIX", "smarthome"), "/"),
			QOS:            parser.getInt("MQTT_QOS", 0),
			KeepAlive:      parser.getDuration("MQTT_KEEP_ALIVE", 30*time.Second),
			PingTimeout:    parser.getDuration("MQTT_PING_TIMEOUT", 10*time.Second),
			PublishTimeout: parser.getDuration("MQTT_PUBLISH_TIMEOUT", 5*time.Second),
		},
		Flush: FlushConfig{
			Interval:     parser.getDuration("FLUSH_INTERVAL", 5*time.Second),
			Mode:         strings.ToLower(parser.getEnv("FLUSH_MODE", FlushModeClear)),
			WriteTimeout: parser.getDuration("FLUSH_WRITE_TIMEOUT", 3*time.Second),
			OnShutdown:   parser.getBool("FLUSH_ON_SHUTDOWN", true),
		},
		Query: QueryConfig{
			HistoryDefaultLimit: parser.getInt("HISTORY_DEFAULT_LIMIT", 100),
			HistoryMaxLimit:     parser.getInt("HISTORY_MAX_LIMIT", 1000),
		},
		Logging: LoggingConfig{
			Level:        parser.getEnv("LOG_LEVEL", "info"),
			Format:       parser.getEnv("LOG_FORMAT", "text"),
			Output:       parser.getEnv("LOG_OUTPUT", "stdout"),
			EnableCaller: parser.getBool("LOG_ENABLE_CALLER", false),
		},
		CORS: CORSConfig{
			AllowedOrigins:   parser.getStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods:   parser.getStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders:   parser.getStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "X-Request-ID"}),
			ExposedHeaders:   parser.getStringSlice("CORS_EXPOSED_HEADERS", []string{"Content-Length", "X-Request-ID"}),
			AllowCredentials: parser.getBool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           parser.getInt("CORS_MAX_AGE", 43200), // 12 hours
		},
	}

	if parser.err != nil {
		return nil, parser.err
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if c.Storage.Postgres.User == "" {
			return fmt.Errorf("POSTGRES_USER is required")
		}
		if c.Storage.Postgres.Password == "" {
			return fmt.Errorf("POSTGRES_PASSWORD is required")
		}
	case StorageDriverMongo:
		if c.Storage.Mongo.URI == "" {
			return fmt.Errorf("MONGODB_URI is required")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.MQTT.QOS < 0 || c.MQTT.QOS > 2 {
		return fmt.Errorf("MQTT_QOS must be 0, 1 or 2")
	}
	if c.Flush.Interval <= 0 {
		return fmt.Errorf("FLUSH_INTERVAL must be positive")
	}
	if c.Flush.Mode != FlushModeClear && c.Flush.Mode != FlushModeRetain {
		return fmt.Errorf("unsupported FLUSH_MODE %q", c.Flush.Mode)
	}
	if c.Query.HistoryDefaultLimit <= 0 || c.Query.HistoryMaxLimit < c.Query.HistoryDefaultLimit {
		return fmt.Errorf("history limits must satisfy 0 < HISTORY_DEFAULT_LIMIT <= HISTORY_MAX_LIMIT")
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	db := c.Storage.Postgres
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.User, db.Password, db.DBName, db.SSLMode)
}

// GetMQTTBrokerURL returns the MQTT broker URL
func (c *Config) GetMQTTBrokerURL() string {
	scheme := "tcp"
	if c.MQTT.UseTLS {
		scheme = "tcps"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.MQTT.BrokerHost, c.MQTT.BrokerPort)
}

// envParser reads typed environment values and keeps the first parse error
type envParser struct {
	err error
}

func (p *envParser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}

func (p *envParser) getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func (p *envParser) getInt(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		p.fail(key, err)
		return defaultValue
	}
	return intValue
}

func (p *envParser) getBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		p.fail(key, fmt.Errorf("%q (expected true/false or 1/0)", value))
		return defaultValue
	}
	return boolValue
}

func (p *envParser) getDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		p.fail(key, err)
		return defaultValue
	}
	return duration
}

func (p *envParser) getStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
