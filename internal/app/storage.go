package app

import (
	"fmt"
	"time"

	"propverse/internal/config"
	"propverse/internal/docstore"
	"propverse/internal/models"
	"propverse/internal/repositories"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Storage bundles the repositories of one backend.
type Storage struct {
	Name       string
	Users      repositories.UserRepository
	Properties repositories.PropertyRepository
	Amenities  repositories.AmenityRepository

	close func() error
}

// Close releases the backend's resources.
func (s *Storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStorage opens the backend selected by cfg.Driver.
func OpenStorage(cfg config.StorageConfig, env string, log *zap.Logger) (*Storage, error) {
	switch cfg.Driver {
	case config.DriverFile:
		store, err := docstore.NewOnDisk(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open document store: %w", err)
		}
		log.Info("document store opened", zap.String("dir", store.Dir()))
		return NewDocStorage(store), nil

	case config.DriverSQLite, config.DriverPostgres:
		var dialector gorm.Dialector
		if cfg.Driver == config.DriverPostgres {
			dialector = postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true})
		} else {
			dialector = sqlite.Open(cfg.DSN)
		}
		db, err := gorm.Open(dialector, &gorm.Config{
			Logger:         newGORMLogger(log, env),
			TranslateError: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database instance: %w", err)
		}
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

		storage, err := NewGORMStorage(db, cfg.Driver)
		if err != nil {
			sqlDB.Close()
			return nil, err
		}
		log.Info("database connected", zap.String("driver", cfg.Driver))
		return storage, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// NewDocStorage serves every repository from store.
func NewDocStorage(store *docstore.Store) *Storage {
	return &Storage{
		Name:       config.DriverFile,
		Users:      repositories.NewDocUserRepository(store),
		Properties: repositories.NewDocPropertyRepository(store),
		Amenities:  repositories.NewDocAmenityRepository(store),
	}
}

// NewGORMStorage migrates the schema and serves every repository from db.
func NewGORMStorage(db *gorm.DB, name string) (*Storage, error) {
	err := db.AutoMigrate(
		&models.User{},
		&models.Amenity{},
		&models.Property{},
		&models.PropertyImage{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	return &Storage{
		Name:       name,
		Users:      repositories.NewGORMUserRepository(db),
		Properties: repositories.NewGORMPropertyRepository(db),
		Amenities:  repositories.NewGORMAmenityRepository(db),
		close: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}, nil
}

// newGORMLogger sends GORM's slow query and error reports through log,
// named "gorm", at warn level.
func newGORMLogger(log *zap.Logger, env string) gormlogger.Interface {
	writer, err := zap.NewStdLogAt(log.Named("gorm"), zapcore.WarnLevel)
	if err != nil {
		writer = zap.NewStdLog(log.Named("gorm"))
	}
	return gormlogger.New(writer, gormlogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  gormLogLevel(env),
		IgnoreRecordNotFoundError: true,
	})
}

func gormLogLevel(env string) gormlogger.LogLevel {
	if env == "development" {
		return gormlogger.Warn
	}
	return gormlogger.Error
}
