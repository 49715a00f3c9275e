package config

import (
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

// Config - конфигурация сервиса. Все значения имеют дефолты:
// сервис поднимается без единой переменной окружения.
type Config struct {
	AppName     string
	HTTPPort    string
	DatabaseURL string
	GinMode     string

	DefaultTimezone string

	// Пустой путь выключает кэш геолокации
	GeoCachePath     string
	GeoCacheTTLHours int

	// Пустой ключ выключает запасного провайдера геолокации
	IPGeolocationAPIKey string

	// Пустой токен выключает Telegram-бота
	TelegramBotToken string

	SeedDemoData bool

	// Пустой LogFile - лог только в stdout
	LogFile  string
	LogLevel string
}

var instance *Config
var once sync.Once

// Get загружает конфигурацию один раз на процесс.
// .env подхватывается, если есть; его отсутствие не ошибка.
func Get() *Config {
	once.Do(func() {
		_ = godotenv.Load()

		instance = &Config{
			AppName:             getEnv("APP_NAME", "time-tracker"),
			HTTPPort:            getEnv("HTTP_PORT", "8080"),
			DatabaseURL:         getEnv("DATABASE_URL", "time_tracking.db"),
			GinMode:             getEnv("GIN_MODE", "release"),
			DefaultTimezone:     getEnv("DEFAULT_TIMEZONE", "UTC"),
			GeoCachePath:        getEnv("GEO_CACHE_PATH", "geoip_cache.db"),
			GeoCacheTTLHours:    getEnvAsInt("GEO_CACHE_TTL_HOURS", 24),
			IPGeolocationAPIKey: getEnv("IPGEOLOCATION_API_KEY", ""),
			TelegramBotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
			SeedDemoData:        getEnvAsBool("SEED_DEMO_DATA", false),
			LogFile:             getEnv("LOG_FILE", ""),
			LogLevel:            getEnv("LOG_LEVEL", "info"),
		}
	})

	return instance
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultVal
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}

	return defaultVal
}

func getEnvAsInt(name string, defaultVal int) int {
	valStr := getEnv(name, "")
	if val, err := strconv.Atoi(valStr); err == nil {
		return val
	}

	return defaultVal
}
