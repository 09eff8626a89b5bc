package db

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/optocase-backend/internal/platform/envutil"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

// SQLiteService backs single-node deployments and the test suites. The
// schema avoids server-side column defaults so the same models migrate
// under both drivers.
type SQLiteService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSQLiteService(logg *logger.Logger) (*SQLiteService, error) {
	serviceLog := logg.With("service", "SQLiteService")

	path := envutil.Str("SQLITE_PATH", "optocase.db")
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite at %s: %w", path, err)
	}

	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	// churn under concurrent handlers.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access SQLite pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return &SQLiteService{db: db, log: serviceLog}, nil
}

func (s *SQLiteService) DB() *gorm.DB { return s.db }

func (s *SQLiteService) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLiteService) AutoMigrateAll() error {
	s.log.Info("Auto migrating sqlite tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureIndexes(s.db); err != nil {
		s.log.Error("Index migration failed", "error", err)
		return err
	}
	return nil
}

// Open selects the database service by DB_DRIVER (postgres by default).
func Open(logg *logger.Logger) (Service, error) {
	switch envutil.Str("DB_DRIVER", "postgres") {
	case "sqlite":
		return NewSQLiteService(logg)
	case "postgres":
		return NewPostgresService(logg)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", envutil.Str("DB_DRIVER", ""))
	}
}
