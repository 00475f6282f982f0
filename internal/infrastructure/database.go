package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yourusername/mediagrab-go/internal/domain"
)

// OpenDatabase opens the job store database and migrates its schema
func OpenDatabase(config *domain.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch config.Driver {
	case "sqlite", "":
		if err := ensureSQLiteDir(config.DSN); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(config.DSN)
	case "mysql":
		dialector = mysql.Open(config.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", config.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if config.Driver != "mysql" {
		// One connection serializes writers and keeps ":memory:" databases shared
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&domain.DownloadJob{}, &domain.Subscription{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// CloseDatabase closes the underlying connection pool
func CloseDatabase(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func ensureSQLiteDir(dsn string) error {
	if dsn == "" || strings.HasPrefix(dsn, ":memory:") || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}
