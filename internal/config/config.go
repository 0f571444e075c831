package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server"`

	// Database configuration
	Database DatabaseConfig `json:"database"`

	// Kafka configuration
	Kafka KafkaConfig `json:"kafka"`

	// Metrics configuration
	Metrics MetricsConfig `json:"metrics"`

	// Report generation service configuration
	ReportGen ReportGenConfig `json:"reportgen"`

	// Export polling configuration
	Export ExportConfig `json:"export"`

	// Auth configuration
	Auth AuthConfig `json:"auth"`

	// Scheduler configuration
	Scheduler SchedulerConfig `json:"scheduler"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	NotifierImpl string
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	// Port is the main HTTP server port
	Port int `json:"port"`

	// Host is the server bind address
	Host string `json:"host"`

	// ReadTimeout for HTTP requests
	ReadTimeout time.Duration `json:"read_timeout"`

	// WriteTimeout for HTTP responses
	WriteTimeout time.Duration `json:"write_timeout"`

	// ShutdownTimeout for graceful shutdown
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	// Type of database (memory, sqlite, postgres)
	Type string `json:"type"`

	// Path to SQLite database file
	Path string `json:"path"`

	// Host for external databases
	Host string `json:"host"`

	// Port for external databases
	Port int `json:"port"`

	// Name of the database
	Name string `json:"name"`

	// Username for database authentication
	Username string `json:"username"`

	// Password for database authentication
	Password string `json:"password"`

	// SSLMode for database connections (disable, require, verify-ca, verify-full)
	SSLMode string `json:"ssl_mode"`

	// MaxOpenConnections for connection pooling
	MaxOpenConnections int `json:"max_open_connections"`

	// MaxIdleConnections for connection pooling
	MaxIdleConnections int `json:"max_idle_connections"`

	// ConnectionMaxLifetime for connection recycling
	ConnectionMaxLifetime time.Duration `json:"connection_max_lifetime"`
}

// ConnectionString returns a PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Name, d.SSLMode)
}

// KafkaConfig contains Kafka connection settings
type KafkaConfig struct {
	// Enabled indicates if Kafka integration is active
	Enabled bool `json:"enabled"`

	// Brokers is a list of Kafka broker addresses
	Brokers []string `json:"brokers"`

	// Topic for export notification messages
	Topic string `json:"topic"`

	// ClientID for Kafka producer identification
	ClientID string `json:"client_id"`

	// Timeout for Kafka operations
	Timeout time.Duration `json:"timeout"`

	// Retries for failed message sends
	Retries int `json:"retries"`

	// CompressionType (none, gzip, snappy, lz4, zstd)
	CompressionType string `json:"compression_type"`

	// RequiredAcks (0=no ack, 1=leader ack, -1=all replicas ack)
	RequiredAcks int `json:"required_acks"`

	// SASL configuration for authentication
	SASL SASLConfig `json:"sasl"`

	// TLS configuration
	TLS TLSConfig `json:"tls"`
}

// SASLConfig contains SASL authentication settings
type SASLConfig struct {
	// Enabled indicates if SASL is active
	Enabled bool `json:"enabled"`

	// Mechanism (PLAIN, SCRAM-SHA-256, SCRAM-SHA-512)
	Mechanism string `json:"mechanism"`

	// Username for SASL authentication
	Username string `json:"username"`

	// Password for SASL authentication
	Password string `json:"password"`
}

// TLSConfig contains TLS settings
type TLSConfig struct {
	// Enabled indicates if TLS is active
	Enabled bool `json:"enabled"`

	// InsecureSkipVerify skips certificate verification
	InsecureSkipVerify bool `json:"insecure_skip_verify"`

	// CertFile path to client certificate
	CertFile string `json:"cert_file"`

	// KeyFile path to client private key
	KeyFile string `json:"key_file"`

	// CAFile path to CA certificate
	CAFile string `json:"ca_file"`
}

// MetricsConfig contains metrics and monitoring settings
type MetricsConfig struct {
	// Port for metrics endpoint
	Port int `json:"port"`

	// Path for metrics endpoint
	Path string `json:"path"`

	// Enabled indicates if metrics are active
	Enabled bool `json:"enabled"`

	// Namespace for metric names
	Namespace string `json:"namespace"`

	// Subsystem for metric names
	Subsystem string `json:"subsystem"`
}

// ReportGenConfig contains report generation service client settings
type ReportGenConfig struct {
	// BaseURL for the report generation service API
	BaseURL string `json:"base_url"`

	// Timeout for report generation service requests
	Timeout time.Duration `json:"timeout"`
}

// ExportConfig contains export polling settings
type ExportConfig struct {
	// PollInterval is the duration between status polls
	PollInterval time.Duration `json:"poll_interval"`

	// MaxPollDuration is the wall-clock budget for a single export
	MaxPollDuration time.Duration `json:"max_poll_duration"`

	// SpoolDir is where downloaded documents are written
	SpoolDir string `json:"spool_dir"`
}

// AuthConfig contains token validation settings
type AuthConfig struct {
	// ValidatorImpl selects the token validator (static, remote, fake)
	ValidatorImpl string `json:"validator_impl"`

	// Tokens holds static token entries (token:family_id:user_id:username)
	Tokens []string `json:"-"`

	// ServiceURL for the remote auth service
	ServiceURL string `json:"service_url"`
}

// SchedulerConfig contains scheduled export settings
type SchedulerConfig struct {
	// Enabled indicates if the export scheduler is active
	Enabled bool `json:"enabled"`

	// CheckInterval is how often due schedules are scanned
	CheckInterval time.Duration `json:"check_interval"`
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `json:"level"`

	// Format is the log output format (json, console)
	Format string `json:"format"`
}

// LoadConfig loads configuration from the environment, reading a .env file
// first when one is present.
func LoadConfig() (*Config, error) {
	// Best-effort: a missing .env file is not an error
	_ = godotenv.Load()

	config := &Config{}

	config.Server = loadServerConfig()
	config.Database = loadDatabaseConfig()
	config.Kafka = loadKafkaConfig()
	config.Metrics = loadMetricsConfig()
	config.ReportGen = loadReportGenConfig()
	config.Export = loadExportConfig()
	config.Auth = loadAuthConfig()
	config.Scheduler = loadSchedulerConfig()
	config.Logging = loadLoggingConfig()

	config.NotifierImpl = getEnv("NOTIFIER_IMPL", "log")

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:            getEnvAsInt("PORT", 8080),
		Host:            getEnv("HOST", "0.0.0.0"),
		ReadTimeout:     getEnvAsDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:    getEnvAsDuration("WRITE_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Type:                  getEnv("DB_TYPE", "sqlite"),
		Path:                  getEnv("DB_PATH", "./nestling.db"),
		Host:                  getEnv("DB_HOST", "localhost"),
		Port:                  getEnvAsInt("DB_PORT", 5432),
		Name:                  getEnv("DB_NAME", "nestling_tracker"),
		Username:              getEnv("DB_USERNAME", ""),
		Password:              getEnv("DB_PASSWORD", ""),
		SSLMode:               getEnv("DB_SSL_MODE", "disable"),
		MaxOpenConnections:    getEnvAsInt("DB_MAX_OPEN_CONNECTIONS", 25),
		MaxIdleConnections:    getEnvAsInt("DB_MAX_IDLE_CONNECTIONS", 5),
		ConnectionMaxLifetime: getEnvAsDuration("DB_CONNECTION_MAX_LIFETIME", 5*time.Minute),
	}
}

func loadKafkaConfig() KafkaConfig {
	brokers := getEnvAsStringSlice("KAFKA_BROKERS", []string{})

	saslConfig := SASLConfig{
		Enabled:   getEnvAsBool("KAFKA_SASL_ENABLED", false),
		Mechanism: getEnv("KAFKA_SASL_MECHANISM", "PLAIN"),
		Username:  getEnv("KAFKA_SASL_USERNAME", ""),
		Password:  getEnv("KAFKA_SASL_PASSWORD", ""),
	}

	tlsConfig := TLSConfig{
		Enabled:            getEnvAsBool("KAFKA_TLS_ENABLED", false),
		InsecureSkipVerify: getEnvAsBool("KAFKA_TLS_INSECURE_SKIP_VERIFY", false),
		CertFile:           getEnv("KAFKA_TLS_CERT_FILE", ""),
		KeyFile:            getEnv("KAFKA_TLS_KEY_FILE", ""),
		CAFile:             getEnv("KAFKA_TLS_CA_FILE", ""),
	}

	return KafkaConfig{
		Enabled:         len(brokers) > 0,
		Brokers:         brokers,
		Topic:           getEnv("KAFKA_TOPIC", "nestling.exports.notifications"),
		ClientID:        getEnv("KAFKA_CLIENT_ID", "nestling-tracker"),
		Timeout:         getEnvAsDuration("KAFKA_TIMEOUT", 30*time.Second),
		Retries:         getEnvAsInt("KAFKA_RETRIES", 5),
		CompressionType: getEnv("KAFKA_COMPRESSION", "snappy"),
		RequiredAcks:    getEnvAsInt("KAFKA_REQUIRED_ACKS", -1),
		SASL:            saslConfig,
		TLS:             tlsConfig,
	}
}

func loadMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Port:      getEnvAsInt("METRICS_PORT", 9090),
		Path:      getEnv("METRICS_PATH", "/metrics"),
		Enabled:   getEnvAsBool("METRICS_ENABLED", true),
		Namespace: getEnv("METRICS_NAMESPACE", "nestling"),
		Subsystem: getEnv("METRICS_SUBSYSTEM", "tracker"),
	}
}

func loadReportGenConfig() ReportGenConfig {
	return ReportGenConfig{
		BaseURL: getEnv("REPORTGEN_URL", "http://localhost:8091"),
		Timeout: getEnvAsDuration("REPORTGEN_TIMEOUT", 30*time.Second),
	}
}

func loadExportConfig() ExportConfig {
	return ExportConfig{
		PollInterval:    getEnvAsDuration("EXPORT_POLL_INTERVAL", 2*time.Second),
		MaxPollDuration: getEnvAsDuration("EXPORT_MAX_POLL_DURATION", 30*time.Minute),
		SpoolDir:        getEnv("EXPORT_SPOOL_DIR", "./exports"),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		ValidatorImpl: getEnv("AUTH_VALIDATOR_IMPL", "fake"),
		Tokens:        getEnvAsStringSlice("AUTH_TOKENS", []string{}),
		ServiceURL:    getEnv("AUTH_SERVICE_URL", ""),
	}
}

func loadSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:       getEnvAsBool("SCHEDULER_ENABLED", true),
		CheckInterval: getEnvAsDuration("SCHEDULER_CHECK_INTERVAL", time.Minute),
	}
}

func loadLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "json"),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Metrics.Port)
	}

	// Validate database configuration
	switch c.Database.Type {
	case "memory":
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for SQLite")
		}
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required for postgres")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database name is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	// Validate Kafka configuration
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic is required when kafka is enabled")
		}
	}

	// Validate report generation service configuration
	if c.ReportGen.BaseURL == "" {
		return fmt.Errorf("report generation service base URL is required")
	}

	// Validate export polling configuration
	if c.Export.PollInterval <= 0 {
		return fmt.Errorf("export poll interval must be positive")
	}
	if c.Export.MaxPollDuration <= 0 {
		return fmt.Errorf("export max poll duration must be positive")
	}

	// Validate auth configuration
	switch c.Auth.ValidatorImpl {
	case "fake":
	case "static":
		if len(c.Auth.Tokens) == 0 {
			return fmt.Errorf("auth tokens are required for the static validator")
		}
	case "remote":
		if c.Auth.ServiceURL == "" {
			return fmt.Errorf("auth service URL is required for the remote validator")
		}
	default:
		return fmt.Errorf("unsupported auth validator: %s", c.Auth.ValidatorImpl)
	}

	// Validate scheduler configuration
	if c.Scheduler.Enabled && c.Scheduler.CheckInterval <= 0 {
		return fmt.Errorf("scheduler check interval must be positive")
	}

	// Validate notifier implementation
	switch c.NotifierImpl {
	case "log", "kafka", "none":
	default:
		return fmt.Errorf("unsupported notifier implementation: %s", c.NotifierImpl)
	}

	if c.NotifierImpl == "kafka" && !c.Kafka.Enabled {
		return fmt.Errorf("kafka notifier requires kafka brokers to be configured")
	}

	// Validate logging configuration
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported log format: %s", c.Logging.Format)
	}

	return nil
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
