package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDataLimit           = 240
	DefaultWaterURL            = "https://api.maxhunt.design/water"
	DefaultSoilTempURL         = "https://ss.maxhunt.design/temp"
	DefaultGaugeStartTimestamp = 1603119000.4791155
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	// LogFile, when set, receives a rotated copy of every log line.
	LogFile  string
	HTTPAddr string

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration
	SQLiteLogStatements   bool

	// DataLimit is how many of the most recent readings the dashboard loads.
	DataLimit    int
	StoreTimeout time.Duration

	WaterURL            string
	SoilTempURL         string
	GaugeTimeout        time.Duration
	GaugeStartTimestamp float64

	// MQTT ingestion is disabled when MQTTBroker is empty.
	MQTTBroker   string
	MQTTPort     int
	MQTTTopic    string
	MQTTClientID string

	// The collector is disabled when CollectorAPIKey is empty.
	CollectorAPIKey          string
	CollectorCity            string
	CollectorInterval        time.Duration
	CollectorTimeout         time.Duration
	CollectorIsTest          bool
	CollectorWeatherURL      string
	CollectorSoilTempURL     string
	CollectorSoilHumidityURL string
}

// MQTTEnabled reports whether a broker is configured.
func (c Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

// CollectorEnabled reports whether the periodic collector should run.
func (c Config) CollectorEnabled() bool {
	return c.CollectorAPIKey != ""
}

// source resolves a key from the environment first, then from the optional
// YAML file named by CONFIG_FILE.
type source struct {
	file map[string]string
}

func (s source) get(key string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return strings.TrimSpace(s.file[key])
}

func (s source) getOr(key, def string) string {
	if v := s.get(key); v != "" {
		return v
	}
	return def
}

func loadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CONFIG_FILE %q: %w", path, err)
	}
	out := map[string]string{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse CONFIG_FILE %q: %w", path, err)
	}
	return out, nil
}

func LoadFromEnv() (Config, error) {
	src := source{}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		file, err := loadFile(path)
		if err != nil {
			return Config{}, err
		}
		src.file = file
	}

	appEnv := src.getOr("APP_ENV", "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(src.getOr("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:                   appEnv,
		LogLevel:                 level,
		LogFile:                  src.get("LOG_FILE"),
		HTTPAddr:                 src.getOr("HTTP_ADDR", ":8080"),
		SQLiteDriver:             src.getOr("DB_DRIVER", "sqlite3"),
		SQLiteDSN:                src.get("DB_DSN"),
		SQLitePath:               src.getOr("SQLITE_PATH", "../dev/sqlite/app.db"),
		WaterURL:                 src.getOr("WATER_URL", DefaultWaterURL),
		SoilTempURL:              src.getOr("SOIL_TEMP_URL", DefaultSoilTempURL),
		MQTTBroker:               src.get("MQTT_BROKER"),
		MQTTTopic:                src.getOr("MQTT_TOPIC", "siot/weather_data"),
		MQTTClientID:             src.getOr("MQTT_CLIENT_ID", "siot-dashboard"),
		CollectorAPIKey:          src.get("COLLECTOR_API_KEY"),
		CollectorCity:            src.getOr("COLLECTOR_CITY", "London"),
		CollectorWeatherURL:      src.getOr("COLLECTOR_WEATHER_URL", "https://api.openweathermap.org/data/2.5/weather"),
		CollectorSoilTempURL:     src.getOr("COLLECTOR_SOIL_TEMP_URL", "http://ss.maxhunt.design:3333/temp"),
		CollectorSoilHumidityURL: src.getOr("COLLECTOR_SOIL_HUMIDITY_URL", "http://ss.maxhunt.design:3333/hmdt"),
	}

	if cfg.SQLiteMaxOpenConns, err = parseInt(src, "DB_MAX_OPEN_CONNS", 1); err != nil {
		return Config{}, err
	}
	if cfg.SQLiteMaxIdleConns, err = parseInt(src, "DB_MAX_IDLE_CONNS", 1); err != nil {
		return Config{}, err
	}
	if cfg.SQLiteConnMaxLifetime, err = parseDuration(src, "DB_CONN_MAX_LIFETIME", 0); err != nil {
		return Config{}, err
	}
	if cfg.SQLiteLogStatements, err = parseBool(src, "DB_LOG_SQL", false); err != nil {
		return Config{}, err
	}

	if cfg.DataLimit, err = parseInt(src, "DATA_LIMIT", DefaultDataLimit); err != nil {
		return Config{}, err
	}
	if cfg.DataLimit < 0 || cfg.DataLimit > 1000 {
		return Config{}, fmt.Errorf("invalid DATA_LIMIT %d (must be 0-1000)", cfg.DataLimit)
	}
	if cfg.StoreTimeout, err = parseDuration(src, "STORE_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}

	if cfg.GaugeTimeout, err = parseDuration(src, "GAUGE_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	startStr := src.get("GAUGE_START_TIMESTAMP")
	cfg.GaugeStartTimestamp = DefaultGaugeStartTimestamp
	if startStr != "" {
		cfg.GaugeStartTimestamp, err = strconv.ParseFloat(startStr, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid GAUGE_START_TIMESTAMP %q: %w", startStr, err)
		}
	}

	if cfg.MQTTPort, err = parseInt(src, "MQTT_PORT", 1883); err != nil {
		return Config{}, err
	}
	if cfg.MQTTPort <= 0 || cfg.MQTTPort > 65535 {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %d", cfg.MQTTPort)
	}

	if cfg.CollectorInterval, err = parseDuration(src, "COLLECTOR_INTERVAL", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.CollectorInterval <= 0 {
		return Config{}, fmt.Errorf("invalid COLLECTOR_INTERVAL %s (must be > 0)", cfg.CollectorInterval)
	}
	if cfg.CollectorTimeout, err = parseDuration(src, "COLLECTOR_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.CollectorTimeout <= 0 {
		return Config{}, fmt.Errorf("invalid COLLECTOR_TIMEOUT %s (must be > 0)", cfg.CollectorTimeout)
	}
	if cfg.CollectorIsTest, err = parseBool(src, "COLLECTOR_IS_TEST", false); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func parseInt(src source, key string, def int) (int, error) {
	s := src.get(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func parseDuration(src source, key string, def time.Duration) (time.Duration, error) {
	s := src.get(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func parseBool(src source, key string, def bool) (bool, error) {
	s := src.get(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
