package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Env      string
	Port     string
	LogLevel string

	// Backend API
	APIBaseURL   string
	CableURL     string
	HTTPTimeout  time.Duration
	PollInterval time.Duration

	// Credential storage
	CredentialBackend string // "memory" or "redis"
	RedisAddr         string
	RedisPassword     string

	// Agent login
	AgentEmail    string
	AgentPassword string

	// Conversation archive (optional; empty disables archiving)
	DatabaseURL string

	// Appointment watcher
	AppointmentsInterval time.Duration
	AppointmentsPageSize int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		APIBaseURL:   getEnv("STYLESLOT_API_URL", "http://localhost:3000"),
		CableURL:     getEnv("STYLESLOT_CABLE_URL", "ws://localhost:3000/cable"),
		HTTPTimeout:  getEnvAsDuration("STYLESLOT_HTTP_TIMEOUT", 10*time.Second),
		PollInterval: getEnvAsDuration("STYLESLOT_POLL_INTERVAL", 3*time.Second),

		CredentialBackend: getEnv("CREDENTIAL_BACKEND", "memory"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),

		AgentEmail:    getEnv("AGENT_EMAIL", ""),
		AgentPassword: getEnv("AGENT_PASSWORD", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		AppointmentsInterval: getEnvAsDuration("APPOINTMENTS_INTERVAL", 30*time.Second),
		AppointmentsPageSize: getEnvAsInt("APPOINTMENTS_PAGE_SIZE", 50),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
