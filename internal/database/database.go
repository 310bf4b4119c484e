package database

import (
	"context"
	"fmt"

	"github.com/Rithish-Sripaul/mro-system/internal/config"
	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to postgres and configures the connection pool.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel(cfg.LogLevel)),
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

// Close releases the underlying pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks connectivity for readiness probes.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Models lists every table owned by the service.
func Models() []interface{} {
	return []interface{}{
		&entity.User{},
		&entity.Division{},
		&entity.Job{},
		&entity.Operation{},
		&entity.RawMaterial{},
		&entity.MaterialReservation{},
		&entity.MaterialCategory{},
		&entity.MaterialSupplier{},
		&entity.ProcurementRecord{},
		&entity.Machine{},
		&entity.Comment{},
		&entity.FileMetadata{},
	}
}

// Migrate creates or updates the schema and the constraints AutoMigrate cannot express.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	migrationSQL := []string{
		"ALTER TABLE jobs DROP CONSTRAINT IF EXISTS jobs_status_check",
		"ALTER TABLE jobs ADD CONSTRAINT jobs_status_check CHECK (status IN ('pending', 'in_progress', 'at_risk', 'completed'))",
		"ALTER TABLE operations DROP CONSTRAINT IF EXISTS operations_status_check",
		"ALTER TABLE operations ADD CONSTRAINT operations_status_check CHECK (status IN ('pending', 'suspended', 'completed'))",
		"ALTER TABLE machines DROP CONSTRAINT IF EXISTS machines_status_check",
		"ALTER TABLE machines ADD CONSTRAINT machines_status_check CHECK (current_status IN ('operating', 'idle', 'under_maintenance', 'out_of_service'))",
		"CREATE INDEX IF NOT EXISTS idx_machines_tags ON machines USING GIN (tags)",
		"CREATE INDEX IF NOT EXISTS idx_raw_materials_categories ON raw_materials USING GIN (categories)",
	}
	for _, sql := range migrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Warn("Migration SQL warning (may already exist)", zap.String("sql", sql), zap.Error(err))
		}
	}
	return nil
}

func logLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
