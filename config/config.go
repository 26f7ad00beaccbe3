package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Data     DataConfig
	Features FeaturesConfig
	Chat     ChatConfig
}

type ServerConfig struct {
	Port int
}

type AuthConfig struct {
	Enabled bool
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins string
}

// DataConfig points at the reference tables, the trained models and the
// append-only prediction logs.
type DataConfig struct {
	ItemsPath           string
	ReceptaclesPath     string
	ItemModelPath       string
	ReceptacleModelPath string
	ItemLogPath         string
	ReceptacleLogPath   string
}

// FeaturesConfig carries the calendar conventions baked into the trained
// models. WeekendDays defaults to Thursday and Friday: the historical data
// follows a regional work-week, and the models were trained with that
// convention, so it must not be "fixed" to Saturday/Sunday. EdgeDays are
// the week boundary days the models saw during training, Monday and Friday.
type FeaturesConfig struct {
	HomeCountry        string
	WeekendDays        []time.Weekday
	EdgeDays           []time.Weekday
	DelayThresholdDays int
	DeliveredCodes     []string
	DelayedCodes       []string
}

type ChatConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

func LoadConfig() (*Config, error) {
	serverPort, err := getIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := getIntEnv("DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	jwtExpiry, err := getIntEnv("JWT_EXPIRY_HOURS", 24)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRY_HOURS: %w", err)
	}

	redisPort, err := getIntEnv("REDIS_PORT", 6379)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}

	redisDB, err := getIntEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	delayDays, err := getIntEnv("DELAY_THRESHOLD_DAYS", 15)
	if err != nil {
		return nil, fmt.Errorf("invalid DELAY_THRESHOLD_DAYS: %w", err)
	}

	weekend, err := parseWeekdays(getEnv("WEEKEND_DAYS", "Thursday,Friday"))
	if err != nil {
		return nil, fmt.Errorf("invalid WEEKEND_DAYS: %w", err)
	}

	edgeDays, err := parseWeekdays(getEnv("WEEK_EDGE_DAYS", "Monday,Friday"))
	if err != nil {
		return nil, fmt.Errorf("invalid WEEK_EDGE_DAYS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: serverPort,
		},
		Auth: AuthConfig{
			Enabled: getEnv("AUTH_ENABLED", "false") == "true",
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postal"),
			Password: getEnv("DB_PASSWORD", "postal_dev_password"),
			Name:     getEnv("DB_NAME", "postal"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "dev-secret-change-me"),
			ExpiryHours: jwtExpiry,
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     redisPort,
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Data: DataConfig{
			ItemsPath:           getEnv("DATA_ITEMS_PATH", "data/item_events.csv"),
			ReceptaclesPath:     getEnv("DATA_RECEPTACLES_PATH", "data/receptacle_events.csv"),
			ItemModelPath:       getEnv("MODEL_ITEM_PATH", "models/item_route_duration.json"),
			ReceptacleModelPath: getEnv("MODEL_RECEPTACLE_PATH", "models/receptacle_route_duration.json"),
			ItemLogPath:         getEnv("PREDICTIONS_LOG_PATH", "data/predictions_log.csv"),
			ReceptacleLogPath:   getEnv("RECEPTACLE_PREDICTIONS_LOG_PATH", "data/receptacle_predictions_log.csv"),
		},
		Features: FeaturesConfig{
			HomeCountry:        getEnv("HOME_COUNTRY", "DZ"),
			WeekendDays:        weekend,
			EdgeDays:           edgeDays,
			DelayThresholdDays: delayDays,
			DeliveredCodes:     splitList(getEnv("STATS_DELIVERED_CODES", "59,I")),
			DelayedCodes:       splitList(getEnv("STATS_DELAYED_CODES", "82,83")),
		},
		Chat: ChatConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Model:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			BaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		},
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekdays(value string) ([]time.Weekday, error) {
	var out []time.Weekday
	for _, name := range splitList(value) {
		day, ok := weekdayNames[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		out = append(out, day)
	}
	return out, nil
}
