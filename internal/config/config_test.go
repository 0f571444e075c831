package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	// Save original environment
	originalEnv := make(map[string]string)
	envVars := []string{
		"PORT", "METRICS_PORT", "DB_TYPE", "DB_PATH",
		"KAFKA_BROKERS", "KAFKA_TOPIC", "REPORTGEN_URL",
		"EXPORT_POLL_INTERVAL", "EXPORT_MAX_POLL_DURATION",
		"AUTH_VALIDATOR_IMPL", "AUTH_TOKENS", "NOTIFIER_IMPL",
		"SCHEDULER_ENABLED", "LOG_LEVEL", "LOG_FORMAT",
	}

	for _, key := range envVars {
		originalEnv[key] = os.Getenv(key)
		os.Unsetenv(key)
	}

	// Restore environment after test
	defer func() {
		for key, value := range originalEnv {
			if value != "" {
				os.Setenv(key, value)
			} else {
				os.Unsetenv(key)
			}
		}
	}()

	// Test default configuration
	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	// Verify default values
	if config.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", config.Server.Port)
	}

	if config.Metrics.Port != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", config.Metrics.Port)
	}

	if config.Database.Type != "sqlite" {
		t.Errorf("Expected default database type 'sqlite', got %s", config.Database.Type)
	}

	if config.Database.Path != "./nestling.db" {
		t.Errorf("Expected default database path './nestling.db', got %s", config.Database.Path)
	}

	if config.Kafka.Enabled {
		t.Error("Kafka should be disabled when no brokers are configured")
	}

	if config.Export.PollInterval != 2*time.Second {
		t.Errorf("Expected default poll interval 2s, got %v", config.Export.PollInterval)
	}

	if config.Export.MaxPollDuration != 30*time.Minute {
		t.Errorf("Expected default max poll duration 30m, got %v", config.Export.MaxPollDuration)
	}

	if config.Auth.ValidatorImpl != "fake" {
		t.Errorf("Expected default auth validator 'fake', got %s", config.Auth.ValidatorImpl)
	}

	if config.NotifierImpl != "log" {
		t.Errorf("Expected default notifier 'log', got %s", config.NotifierImpl)
	}

	if !config.Scheduler.Enabled {
		t.Error("Scheduler should be enabled by default")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	overrides := map[string]string{
		"PORT":                     "3000",
		"DB_TYPE":                  "memory",
		"KAFKA_BROKERS":            "broker-1:9092,broker-2:9092",
		"KAFKA_TOPIC":              "exports.test",
		"EXPORT_POLL_INTERVAL":     "500ms",
		"EXPORT_MAX_POLL_DURATION": "1m",
		"AUTH_VALIDATOR_IMPL":      "static",
		"AUTH_TOKENS":              "tok:family-1:user-1:alice",
		"NOTIFIER_IMPL":            "kafka",
	}

	originalEnv := make(map[string]string)
	for key, value := range overrides {
		originalEnv[key] = os.Getenv(key)
		os.Setenv(key, value)
	}

	defer func() {
		for key, value := range originalEnv {
			if value != "" {
				os.Setenv(key, value)
			} else {
				os.Unsetenv(key)
			}
		}
	}()

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Server.Port != 3000 {
		t.Errorf("Expected port 3000, got %d", config.Server.Port)
	}

	if config.Database.Type != "memory" {
		t.Errorf("Expected database type 'memory', got %s", config.Database.Type)
	}

	if !config.Kafka.Enabled {
		t.Error("Kafka should be enabled when brokers are configured")
	}

	if len(config.Kafka.Brokers) != 2 {
		t.Errorf("Expected 2 brokers, got %d", len(config.Kafka.Brokers))
	}

	if config.Export.PollInterval != 500*time.Millisecond {
		t.Errorf("Expected poll interval 500ms, got %v", config.Export.PollInterval)
	}

	if config.Export.MaxPollDuration != time.Minute {
		t.Errorf("Expected max poll duration 1m, got %v", config.Export.MaxPollDuration)
	}

	if config.NotifierImpl != "kafka" {
		t.Errorf("Expected notifier 'kafka', got %s", config.NotifierImpl)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: 8080},
			Database:  DatabaseConfig{Type: "memory"},
			Metrics:   MetricsConfig{Port: 9090},
			ReportGen: ReportGenConfig{BaseURL: "http://localhost:8091"},
			Export: ExportConfig{
				PollInterval:    2 * time.Second,
				MaxPollDuration: 30 * time.Minute,
			},
			Auth:         AuthConfig{ValidatorImpl: "fake"},
			Scheduler:    SchedulerConfig{Enabled: true, CheckInterval: time.Minute},
			Logging:      LoggingConfig{Level: "info", Format: "json"},
			NotifierImpl: "log",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid configuration",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid server port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: true,
		},
		{
			name:    "unsupported database type",
			mutate:  func(c *Config) { c.Database.Type = "mongodb" },
			wantErr: true,
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.Database.Type = "sqlite"; c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "postgres without host",
			mutate:  func(c *Config) { c.Database.Type = "postgres"; c.Database.Host = "" },
			wantErr: true,
		},
		{
			name:    "kafka enabled without brokers",
			mutate:  func(c *Config) { c.Kafka.Enabled = true },
			wantErr: true,
		},
		{
			name:    "missing reportgen URL",
			mutate:  func(c *Config) { c.ReportGen.BaseURL = "" },
			wantErr: true,
		},
		{
			name:    "zero poll interval",
			mutate:  func(c *Config) { c.Export.PollInterval = 0 },
			wantErr: true,
		},
		{
			name:    "zero max poll duration",
			mutate:  func(c *Config) { c.Export.MaxPollDuration = 0 },
			wantErr: true,
		},
		{
			name:    "static validator without tokens",
			mutate:  func(c *Config) { c.Auth.ValidatorImpl = "static" },
			wantErr: true,
		},
		{
			name:    "remote validator without URL",
			mutate:  func(c *Config) { c.Auth.ValidatorImpl = "remote" },
			wantErr: true,
		},
		{
			name:    "unknown notifier",
			mutate:  func(c *Config) { c.NotifierImpl = "smoke-signals" },
			wantErr: true,
		},
		{
			name:    "kafka notifier without kafka",
			mutate:  func(c *Config) { c.NotifierImpl = "kafka" },
			wantErr: true,
		},
		{
			name:    "unsupported log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(config)

			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConnectionString(t *testing.T) {
	db := DatabaseConfig{
		Host:     "db.example.com",
		Port:     5432,
		Username: "nestling",
		Password: "secret",
		Name:     "nestling_tracker",
		SSLMode:  "require",
	}

	expected := "host=db.example.com port=5432 user=nestling password=secret dbname=nestling_tracker sslmode=require"
	if got := db.ConnectionString(); got != expected {
		t.Errorf("ConnectionString() = %q, want %q", got, expected)
	}
}
