package testutil

import (
	"errors"
	"os"
	"sync"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	appdb "github.com/yungbote/optocase-backend/internal/data/db"
	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

var errMissingDSN = errors.New("no test database configured")

var (
	dbOnce sync.Once
	db     *gorm.DB
	dbErr  error

	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB opens the shared test database. Set TEST_DATABASE_URL to run against
// postgres, or TEST_SQLITE=1 for an in-memory database. With neither set the
// caller is skipped.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dbOnce.Do(func() {
		dsn := os.Getenv("TEST_DATABASE_URL")
		useSQLite := os.Getenv("TEST_SQLITE") == "1"
		if dsn == "" && !useSQLite {
			dbErr = errMissingDSN
			return
		}

		cfg := &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		}

		var err error
		if dsn != "" {
			db, err = gorm.Open(postgres.Open(dsn), cfg)
		} else {
			// Shared cache keeps the named in-memory database alive across
			// the pooled connections for the whole test binary.
			db, err = gorm.Open(sqlite.Open("file:optocase_test?mode=memory&cache=shared&_foreign_keys=on"), cfg)
		}
		if err != nil {
			dbErr = err
			return
		}
		if dsn == "" {
			sqlDB, err := db.DB()
			if err != nil {
				dbErr = err
				return
			}
			sqlDB.SetMaxOpenConns(1)
		}

		if err := appdb.AutoMigrateAll(db); err != nil {
			dbErr = err
			return
		}
		if err := appdb.EnsureIndexes(db); err != nil {
			dbErr = err
			return
		}
	})

	if errors.Is(dbErr, errMissingDSN) {
		tb.Skip("set TEST_DATABASE_URL or TEST_SQLITE=1 to run repo integration tests")
	}
	if dbErr != nil {
		tb.Fatalf("failed to init test db: %v", dbErr)
	}
	return db
}

func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}
