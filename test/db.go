package test

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/carematch/carematch/internal/db"
	"github.com/carematch/carematch/internal/events"
)

// NewFileBasedTestDB creates a new file-based SQLite database for testing.
// It returns the database connection and the path to the temporary directory.
func NewFileBasedTestDB() (*gorm.DB, string, error) {
	tmpDir, err := os.MkdirTemp("", "carematch_test")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create temporary directory: %w", err)
	}
	dbPath := filepath.Join(tmpDir, "carematch_test.db")
	database, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			fmt.Printf("Warning: failed to remove temporary directory after database error: %v\n", rmErr)
		}
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}
	return database, tmpDir, nil
}

// CleanupTestDB closes the database connection and removes the temporary directory.
func CleanupTestDB(database *gorm.DB, tmpDir string) {
	sqlDB, err := database.DB()
	if err == nil && sqlDB != nil {
		if closeErr := sqlDB.Close(); closeErr != nil {
			fmt.Printf("Error closing database connection: %v\n", closeErr)
		}
	}
	if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
		fmt.Printf("Error removing temporary directory: %v\n", rmErr)
	}
}

// SetupTestDB gives the suite a migrated database whose committed writes reach feed
func SetupTestDB(suite *Suite, feed *events.Feed) {
	database, tmpDir, err := NewFileBasedTestDB()
	suite.Require().NoError(err, "Failed to create file-based database")
	suite.Require().NoError(db.Setup(database, feed), "Failed to set up database")

	suite.DB = database
	suite.addCleanup(func() { CleanupTestDB(database, tmpDir) })
}
