// Package config loads runtime settings from the environment
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/carematch/carematch/internal/constants"
)

// GetEnv retrieves the value of an environment variable with a fallback value if not set
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// GetEnvInt retrieves an integer environment variable, falling back when unset or malformed
func GetEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

// GetEnvDuration retrieves a duration environment variable (e.g. "90s"), falling back when unset or malformed
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Server holds the settings of the API server binary
type Server struct {
	ListenAddr string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSL      bool

	// JWTSecret verifies the bearer tokens minted by the auth provider
	JWTSecret string

	// ConfirmWindow is how long freelancers may confirm after a notification round
	ConfirmWindow time.Duration
	// ExpirySweepInterval is how often past-deadline windows are closed
	ExpirySweepInterval time.Duration
}

// DefaultConfirmWindow is the confirmation window length of a notification round
const DefaultConfirmWindow = 90 * time.Second

// DefaultExpirySweepInterval is the default period of the expiry worker
const DefaultExpirySweepInterval = 5 * time.Second

// LoadServer reads the server settings from the environment
func LoadServer() Server {
	return Server{
		ListenAddr:          GetEnv(constants.EnvListenAddr, ":8080"),
		DBHost:              GetEnv(constants.EnvDBHost, ""),
		DBPort:              GetEnvInt(constants.EnvDBPort, 0),
		DBUser:              GetEnv(constants.EnvDBUser, ""),
		DBPassword:          GetEnv(constants.EnvDBPassword, ""),
		DBName:              GetEnv(constants.EnvDBName, ""),
		DBSSL:               GetEnv(constants.EnvDBSSLMode, "disable") != "disable",
		JWTSecret:           GetEnv(constants.EnvJWTSecret, ""),
		ConfirmWindow:       GetEnvDuration(constants.EnvConfirmWindow, DefaultConfirmWindow),
		ExpirySweepInterval: GetEnvDuration(constants.EnvExpirySweepInterval, DefaultExpirySweepInterval),
	}
}
