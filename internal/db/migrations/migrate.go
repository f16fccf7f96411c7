// Package migrations applies the versioned SQL schema under migrations/
package migrations

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/carematch/carematch/config"
	"github.com/carematch/carematch/internal/logger"
)

// Config holds migration configuration
type Config struct {
	MigrationsPath string
	DatabaseURL    string
	RetryAttempts  int
	RetryDelay     time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		MigrationsPath: "file://migrations",
		RetryAttempts:  5,
		RetryDelay:     time.Second * 3,
	}
}

// DatabaseURL builds a postgres URL from the server configuration
func DatabaseURL(cfg config.Server) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.DBUser, cfg.DBPassword),
		Host:     fmt.Sprintf("%s:%d", cfg.DBHost, cfg.DBPort),
		Path:     "/" + cfg.DBName,
		RawQuery: "sslmode=" + sslMode(cfg.DBSSL),
	}
	return u.String()
}

func sslMode(enabled bool) string {
	if enabled {
		return "require"
	}
	return "disable"
}

// MigrationService handles database migrations
type MigrationService struct {
	config  Config
	migrate *migrate.Migrate
}

// NewMigrationService creates a new migration service
func NewMigrationService(cfg Config) (*MigrationService, error) {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}

	var m *migrate.Migrate
	var err error

	// Retry connection a few times before giving up
	for i := 0; i < cfg.RetryAttempts; i++ {
		m, err = migrate.New(cfg.MigrationsPath, cfg.DatabaseURL)
		if err == nil {
			break
		}
		logger.Warnf("Failed to connect to database, attempt %d/%d: %v", i+1, cfg.RetryAttempts, err)
		time.Sleep(cfg.RetryDelay)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance after %d attempts: %w", cfg.RetryAttempts, err)
	}

	return &MigrationService{
		config:  cfg,
		migrate: m,
	}, nil
}

// Up runs all pending migrations
func (s *MigrationService) Up() error {
	if err := s.migrate.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("Migrations completed successfully")
	return nil
}

// Down rolls back all migrations
func (s *MigrationService) Down() error {
	if err := s.migrate.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to rollback migrations: %w", err)
	}
	logger.Info("Rollback completed successfully")
	return nil
}

// Steps runs n migrations up or down
func (s *MigrationService) Steps(n int) error {
	if err := s.migrate.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run %d migrations: %w", n, err)
	}
	return nil
}

// Version returns the current migration version
func (s *MigrationService) Version() (uint, bool, error) {
	return s.migrate.Version()
}

// Force forces a specific version
func (s *MigrationService) Force(version int) error {
	return s.migrate.Force(version)
}

// Close releases the source and database handles
func (s *MigrationService) Close() error {
	srcErr, dbErr := s.migrate.Close()
	return errors.Join(srcErr, dbErr)
}
