package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the process-wide handle, set by Connect.
var DB *gorm.DB

func Connect(cfg *config.Config) error {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	DB = db
	slog.Info("database connected", "host", cfg.DBHost, "name", cfg.DBName, "sslmode", cfg.DBSSLMode)
	return nil
}

// MigrateShared creates the tables outside any collection module: user
// profiles, refresh tokens and the error log.
func MigrateShared() error {
	if err := DB.AutoMigrate(&models.User{}, &models.RefreshToken{}, &models.SystemLog{}); err != nil {
		return fmt.Errorf("migrate shared tables: %w", err)
	}
	return nil
}

// MigrateModels creates the tables of one collection module.
func MigrateModels(modelList []interface{}) error {
	if len(modelList) == 0 {
		return nil
	}
	if err := DB.AutoMigrate(modelList...); err != nil {
		return fmt.Errorf("migrate module tables: %w", err)
	}
	return nil
}

func Ping() error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close releases the pool. Safe before Connect.
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
