package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Database   DatabaseConfig
	JWT        JWTConfig
	App        AppConfig
	Attendance AttendanceConfig
	Terminal   TerminalConfig
	Redis      RedisConfig
	Telemetry  TelemetryConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration. Tokens are issued elsewhere; only the
// shared secret is needed to verify them.
type JWTConfig struct {
	Secret string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
}

// AttendanceConfig holds the organization's attendance policy
type AttendanceConfig struct {
	Timezone          string
	PunchInThreshold  string
	PunchOutThreshold string
	ExpectedHours     float64
	DeviceSerial      string
	Concurrency       int
}

// TerminalConfig holds the terminal bridge settings
type TerminalConfig struct {
	BaseURL      string
	Timeout      time.Duration
	SyncInterval time.Duration
}

// RedisConfig is optional; an empty Addr disables the distributed lock
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type TelemetryConfig struct {
	ServiceName string
	Exporter    string
	Endpoint    string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "hris_attendance")
	v.SetDefault("DB_SSL_MODE", "disable")

	v.SetDefault("APP_PORT", 8080)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("JWT_SECRET_KEY", "")

	v.SetDefault("ORG_TIMEZONE", "Asia/Kolkata")
	v.SetDefault("PUNCH_IN_THRESHOLD", "10:30")
	v.SetDefault("PUNCH_OUT_THRESHOLD", "19:00")
	v.SetDefault("EXPECTED_HOURS", 9)
	v.SetDefault("DEVICE_SERIAL", "TERMINAL-01")
	v.SetDefault("AGGREGATE_CONCURRENCY", 8)

	v.SetDefault("TERMINAL_BASE_URL", "http://localhost:8081")
	v.SetDefault("TERMINAL_TIMEOUT", "10s")
	v.SetDefault("SYNC_INTERVAL", "15m")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("OTEL_SERVICE_NAME", "hris-attendance")
	v.SetDefault("OTEL_EXPORTER", "none")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
}

// Load reads .env (when present) and the environment. Environment variables
// win over .env values.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	config := fromViper(v)

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	slog.Debug("Configuration loaded", "env", config.App.Env, "timezone", config.Attendance.Timezone)
	return config, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSL_MODE"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET_KEY"),
		},
		App: AppConfig{
			Port:     v.GetInt("APP_PORT"),
			Env:      v.GetString("APP_ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		Attendance: AttendanceConfig{
			Timezone:          v.GetString("ORG_TIMEZONE"),
			PunchInThreshold:  v.GetString("PUNCH_IN_THRESHOLD"),
			PunchOutThreshold: v.GetString("PUNCH_OUT_THRESHOLD"),
			ExpectedHours:     v.GetFloat64("EXPECTED_HOURS"),
			DeviceSerial:      v.GetString("DEVICE_SERIAL"),
			Concurrency:       v.GetInt("AGGREGATE_CONCURRENCY"),
		},
		Terminal: TerminalConfig{
			BaseURL:      v.GetString("TERMINAL_BASE_URL"),
			Timeout:      v.GetDuration("TERMINAL_TIMEOUT"),
			SyncInterval: v.GetDuration("SYNC_INTERVAL"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Telemetry: TelemetryConfig{
			ServiceName: v.GetString("OTEL_SERVICE_NAME"),
			Exporter:    v.GetString("OTEL_EXPORTER"),
			Endpoint:    v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	if c.Attendance.Concurrency < 1 {
		return fmt.Errorf("AGGREGATE_CONCURRENCY must be at least 1")
	}
	if c.Terminal.SyncInterval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive")
	}
	switch c.Telemetry.Exporter {
	case "none", "stdout", "otlp":
	default:
		return fmt.Errorf("OTEL_EXPORTER must be one of none, stdout, otlp")
	}
	return nil
}

// Policy builds the attendance policy. The morning threshold must come
// before the evening threshold.
func (c *Config) Policy() (attendance.Policy, error) {
	loc, err := time.LoadLocation(c.Attendance.Timezone)
	if err != nil {
		return attendance.Policy{}, fmt.Errorf("invalid ORG_TIMEZONE: %w", err)
	}

	in, err := attendance.ParseClockTime(c.Attendance.PunchInThreshold)
	if err != nil {
		return attendance.Policy{}, fmt.Errorf("invalid PUNCH_IN_THRESHOLD: %w", err)
	}
	out, err := attendance.ParseClockTime(c.Attendance.PunchOutThreshold)
	if err != nil {
		return attendance.Policy{}, fmt.Errorf("invalid PUNCH_OUT_THRESHOLD: %w", err)
	}
	if !in.Before(out) {
		return attendance.Policy{}, fmt.Errorf("PUNCH_IN_THRESHOLD must be before PUNCH_OUT_THRESHOLD")
	}
	if c.Attendance.ExpectedHours <= 0 || c.Attendance.ExpectedHours > 24 {
		return attendance.Policy{}, fmt.Errorf("EXPECTED_HOURS must be between 0 and 24")
	}

	return attendance.Policy{
		Location:          loc,
		PunchInThreshold:  in,
		PunchOutThreshold: out,
		ExpectedDuration:  time.Duration(c.Attendance.ExpectedHours * float64(time.Hour)),
	}, nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
