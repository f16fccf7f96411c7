// Package constants provides centralized definitions of constants used throughout the application
package constants

// Environment variable names
const (
	// EnvListenAddr is the address the API server listens on
	EnvListenAddr = "CAREMATCH_LISTEN_ADDR"

	// EnvDBHost and friends describe the Postgres connection
	EnvDBHost     = "DB_HOST"
	EnvDBPort     = "DB_PORT"
	EnvDBUser     = "DB_USER"
	EnvDBPassword = "DB_PASSWORD"
	EnvDBName     = "DB_NAME"
	EnvDBSSLMode  = "DB_SSL_MODE"

	// EnvJWTSecret is the HS256 secret shared with the auth provider
	EnvJWTSecret = "CAREMATCH_JWT_SECRET"

	// EnvConfirmWindow overrides the length of a confirmation window (e.g. "90s")
	EnvConfirmWindow = "CAREMATCH_CONFIRM_WINDOW"

	// EnvExpirySweepInterval overrides how often expired windows are closed
	EnvExpirySweepInterval = "CAREMATCH_EXPIRY_SWEEP_INTERVAL"

	// EnvServerAddress is the API base URL used by the CLI
	EnvServerAddress = "CAREMATCH_SERVER_ADDRESS"

	// EnvAccessToken is the bearer token used by the CLI
	EnvAccessToken = "CAREMATCH_ACCESS_TOKEN"

	// EnvLogLevel sets the logrus level (trace, debug, info, warn, error)
	EnvLogLevel = "LOG_LEVEL"
)
