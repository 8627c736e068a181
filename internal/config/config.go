package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	LogLevel string

	DB_HOST     string
	DB_PORT     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string

	PoolMinConns int
	PoolMaxConns int

	JWT_SECRET     string
	REFRESH_SECRET string

	RatePerMinute int
	RatePerHour   int
	RatePerDay    int

	TLSCertFile string
	TLSKeyFile  string

	KAFKA_ADDRESS string

	ES_URL      string
	ES_USER     string
	ES_PASSWORD string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DB_HOST:     getEnv("DB_HOST", "localhost"),
		DB_PORT:     getEnv("DB_PORT", "5432"),
		DB_USER:     getEnv("DB_USER", "ecommerce_user"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_NAME:     getEnv("DB_NAME", "ecommerce_db"),

		PoolMinConns: getEnvInt("DB_MIN_CONNECTIONS", 1),
		PoolMaxConns: getEnvInt("DB_MAX_CONNECTIONS", 20),

		JWT_SECRET:     os.Getenv("JWT_SECRET"),
		REFRESH_SECRET: os.Getenv("REFRESH_SECRET"),

		RatePerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		RatePerHour:   getEnvInt("RATE_LIMIT_PER_HOUR", 1000),
		RatePerDay:    getEnvInt("RATE_LIMIT_PER_DAY", 10000),

		TLSCertFile: os.Getenv("TLS_CERT_FILE"),
		TLSKeyFile:  os.Getenv("TLS_KEY_FILE"),

		KAFKA_ADDRESS: os.Getenv("KAFKA_ADDRESS"),

		ES_URL:      os.Getenv("ES_URL"),
		ES_USER:     os.Getenv("ES_USER"),
		ES_PASSWORD: os.Getenv("ES_PASSWORD"),
	}

	return config, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
