package database

import (
	"fmt"
	"strings"
	"time"

	"identity-sync-service/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Dialector picks the gorm driver for a DATABASE_URL. Supported forms:
//
//	sqlite:///relative/path.db, sqlite:////absolute/path.db, sqlite:///:memory:
//	postgres://..., postgresql://..., host=... (key/value DSN)
func Dialector(databaseURL string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(databaseURL, "sqlite:"):
		return sqlite.Open(sqliteDSN(databaseURL)), nil
	case strings.HasPrefix(databaseURL, "postgres://"),
		strings.HasPrefix(databaseURL, "postgresql://"),
		strings.Contains(databaseURL, "host="):
		return postgres.Open(databaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL scheme: %q", databaseURL)
	}
}

func IsSQLite(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, "sqlite:")
}

func sqliteDSN(databaseURL string) string {
	path := strings.TrimPrefix(databaseURL, "sqlite:")
	if strings.HasPrefix(path, "///") {
		path = path[3:]
	} else {
		path = strings.TrimPrefix(path, "//")
	}
	if path == "" {
		path = ":memory:"
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on"
}

// Open connects to the database and applies pool settings.
func Open(databaseURL string) (*gorm.DB, error) {
	dialector, err := Dialector(databaseURL)
	if err != nil {
		return nil, err
	}

	config := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	if IsSQLite(databaseURL) {
		// SQLite allows one writer; a single connection also keeps
		// :memory: databases alive for the life of the pool.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return db, nil
}

// Migrate creates or updates the users and wallets tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Wallet{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
