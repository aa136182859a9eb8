package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Port:               "8080",
		JWTSecret:          strings.Repeat("s", 32),
		RateLimitPerMinute: 120,
		LogLevel:           "info",
		LogFormat:          "text",
		DataBackend:        "memory",
		AMQPExchange:       "expense_tracker",
		AMQPAlertQueue:     "limit_alerts",
		AMQPSummaryQueue:   "summary_requests",
		TimeZone:           "UTC",
		MetricsCacheTTL:    30 * time.Second,
		SummaryWindow:      24 * time.Hour,
		AlertSchedule:      "0 8 * * *",
		AlertScope:         AlertScopeMonth,
		AlertConcurrency:   4,
		GoogleSheetName:    "Alerts",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errorString string
	}{
		{
			name:   "valid memory backend config",
			mutate: func(*Config) {},
		},
		{
			name: "valid mongo backend config",
			mutate: func(c *Config) {
				c.DataBackend = "mongo"
				c.MongoURI = "mongodb://localhost:27017"
				c.MongoDatabase = "tracker"
			},
		},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range high",
			mutate:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "invalid data backend",
			mutate:      func(c *Config) { c.DataBackend = "sheets" },
			wantErr:     true,
			errorString: "invalid data backend 'sheets': must be one of [mongo sqlite memory]",
		},
		{
			name: "mongo backend with wrong scheme",
			mutate: func(c *Config) {
				c.DataBackend = "mongo"
				c.MongoURI = "http://localhost"
				c.MongoDatabase = "tracker"
			},
			wantErr:     true,
			errorString: "scheme must be 'mongodb' or 'mongodb+srv'",
		},
		{
			name: "sqlite backend missing database path",
			mutate: func(c *Config) {
				c.DataBackend = "sqlite"
				c.SQLiteDBPath = ""
			},
			wantErr:     true,
			errorString: "SQLite database path cannot be empty when using sqlite backend",
		},
		{
			name:        "invalid AMQP URL scheme",
			mutate:      func(c *Config) { c.AMQPURL = "http://localhost:5672/" },
			wantErr:     true,
			errorString: "invalid AMQP URL scheme 'http': must be 'amqp' or 'amqps'",
		},
		{
			name: "AMQP URL without exchange",
			mutate: func(c *Config) {
				c.AMQPURL = "amqp://localhost:5672/"
				c.AMQPExchange = ""
			},
			wantErr:     true,
			errorString: "AMQP exchange name cannot be empty when AMQP URL is provided",
		},
		{
			name:        "unknown time zone",
			mutate:      func(c *Config) { c.TimeZone = "Mars/Olympus" },
			wantErr:     true,
			errorString: "invalid time zone 'Mars/Olympus'",
		},
		{
			name:        "bad cron schedule",
			mutate:      func(c *Config) { c.AlertSchedule = "every day" },
			wantErr:     true,
			errorString: "invalid alert schedule 'every day'",
		},
		{
			name:        "unknown alert scope",
			mutate:      func(c *Config) { c.AlertScope = "week" },
			wantErr:     true,
			errorString: "invalid alert scope 'week'",
		},
		{
			name:        "alert concurrency too small",
			mutate:      func(c *Config) { c.AlertConcurrency = 0 },
			wantErr:     true,
			errorString: "invalid alert concurrency 0: must be at least 1",
		},
		{
			name:        "summary window too short",
			mutate:      func(c *Config) { c.SummaryWindow = time.Second },
			wantErr:     true,
			errorString: "invalid summary window 1s",
		},
		{
			name:        "telegram token without chat",
			mutate:      func(c *Config) { c.TelegramBotToken = "123:abc" },
			wantErr:     true,
			errorString: "TELEGRAM_CHAT_ID is required",
		},
		{
			name:        "sheets without credentials",
			mutate:      func(c *Config) { c.GoogleSpreadsheetID = "sheet-id" },
			wantErr:     true,
			errorString: "either GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON must be provided",
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.LogLevel = "trace" },
			wantErr:     true,
			errorString: "invalid log level 'trace'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Config.Validate() error = nil, wantErr %v", tt.wantErr)
					return
				}
				if tt.errorString != "" && !strings.Contains(err.Error(), tt.errorString) {
					t.Errorf("Config.Validate() error = %v, want error containing %v", err.Error(), tt.errorString)
				}
			} else if err != nil {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCollectsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "abc"
	cfg.AlertScope = "week"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Count(err.Error(), "\n- ") != 2 {
		t.Fatalf("expected two problems, got %q", err.Error())
	}
}

func TestConfig_ValidateServer(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = "short"
	if err := cfg.ValidateServer(); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got %v", err)
	}
	cfg.JWTSecret = strings.Repeat("x", 32)
	if err := cfg.ValidateServer(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.RateLimitPerMinute = 0
	if err := cfg.ValidateServer(); err == nil || !strings.Contains(err.Error(), "RATE_LIMIT_PER_MINUTE") {
		t.Fatalf("expected RATE_LIMIT_PER_MINUTE error, got %v", err)
	}
}

func TestConfig_ValidateWithCredentialsFile(t *testing.T) {
	credFile := filepath.Join(t.TempDir(), "service-account.json")
	if err := os.WriteFile(credFile, []byte(`{"type":"service_account"}`), 0644); err != nil {
		t.Fatalf("Failed to create test credentials file: %v", err)
	}

	cfg := validConfig()
	cfg.GoogleSpreadsheetID = "sheet-id"
	cfg.GoogleCredentialsFile = credFile
	if err := cfg.Validate(); err != nil {
		t.Errorf("Config.Validate() error = %v", err)
	}

	cfg.GoogleCredentialsFile = "/non/existent/file.json"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing credentials file")
	}
}

func TestLoad(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		for _, key := range []string{"PORT", "DATA_BACKEND", "SUMMARY_ALLOWED_USERS", "ALERT_CONCURRENCY", "METRICS_CACHE_TTL"} {
			t.Setenv(key, "")
		}
		cfg := Load()

		if cfg.Port != "8080" {
			t.Errorf("Load() Port = %v, want 8080", cfg.Port)
		}
		if cfg.DataBackend != "mongo" {
			t.Errorf("Load() DataBackend = %v, want mongo", cfg.DataBackend)
		}
		if cfg.SummaryAllowedUsers != nil {
			t.Errorf("Load() SummaryAllowedUsers = %v, want none", cfg.SummaryAllowedUsers)
		}
		if cfg.AlertConcurrency != 4 {
			t.Errorf("Load() AlertConcurrency = %v, want 4", cfg.AlertConcurrency)
		}
		if cfg.MetricsCacheTTL != 30*time.Second {
			t.Errorf("Load() MetricsCacheTTL = %v, want 30s", cfg.MetricsCacheTTL)
		}
	})

	t.Run("environment variables", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("DATA_BACKEND", "sqlite")
		t.Setenv("SUMMARY_ALLOWED_USERS", " alice, ,bob ")
		t.Setenv("ALERT_CONCURRENCY", "8")
		t.Setenv("TELEGRAM_CHAT_ID", "-100123")
		t.Setenv("METRICS_CACHE_TTL", "not-a-duration")

		cfg := Load()

		if cfg.Port != "9090" {
			t.Errorf("Load() Port = %v, want 9090", cfg.Port)
		}
		if cfg.DataBackend != "sqlite" {
			t.Errorf("Load() DataBackend = %v, want sqlite", cfg.DataBackend)
		}
		if len(cfg.SummaryAllowedUsers) != 2 || cfg.SummaryAllowedUsers[1] != "bob" {
			t.Errorf("Load() SummaryAllowedUsers = %v", cfg.SummaryAllowedUsers)
		}
		if cfg.AlertConcurrency != 8 {
			t.Errorf("Load() AlertConcurrency = %v, want 8", cfg.AlertConcurrency)
		}
		if cfg.TelegramChatID != -100123 {
			t.Errorf("Load() TelegramChatID = %v", cfg.TelegramChatID)
		}
		if cfg.MetricsCacheTTL != 30*time.Second {
			t.Errorf("Load() MetricsCacheTTL = %v, want fallback 30s", cfg.MetricsCacheTTL)
		}
	})
}

func TestLocation(t *testing.T) {
	cfg := validConfig()
	cfg.TimeZone = "not/a/zone"
	if cfg.Location() != time.UTC {
		t.Fatal("expected UTC fallback")
	}
}
