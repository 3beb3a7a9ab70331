package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options controls how the SQLite file backing the launcher is opened. Zero
// values keep the database/sql defaults.
type Options struct {
	Path         string
	Logger       logger.Interface
	BusyTimeout  time.Duration
	MaxOpenConns int
	MaxIdleConns int
	ConnMaxIdle  time.Duration
	ConnMaxLife  time.Duration
}

const defaultBusyTimeout = 5 * time.Second

type pragma struct {
	statement string
	purpose   string
}

// pragmas are re-applied after connecting because the mattn driver only reads
// some DSN parameters on the first connection of the pool.
func pragmas(busyTimeout time.Duration) []pragma {
	return []pragma{
		{statement: "PRAGMA foreign_keys = ON;", purpose: "enabling foreign keys"},
		{statement: fmt.Sprintf("PRAGMA busy_timeout = %d;", busyTimeout.Milliseconds()), purpose: "configuring busy timeout"},
		{statement: "PRAGMA journal_mode = WAL;", purpose: "switching to WAL journal"},
	}
}

// Open connects to the SQLite database at opts.Path, creating its parent
// directory when needed.
func Open(opts Options) (*gorm.DB, error) {
	if opts.Path == "" {
		return nil, eris.New("database path is required")
	}

	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "creating database directory %s", dir)
		}
	}

	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = defaultBusyTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default.LogMode(logger.Warn)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=1&_journal_mode=WAL", opts.Path, opts.BusyTimeout.Milliseconds())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: opts.Logger})
	if err != nil {
		return nil, eris.Wrapf(err, "opening sqlite database %s", opts.Path)
	}

	sqlDB, err := SQLDB(db)
	if err != nil {
		return nil, err
	}
	configurePool(sqlDB, opts)

	for _, p := range pragmas(opts.BusyTimeout) {
		if err := db.Exec(p.statement).Error; err != nil {
			_ = sqlDB.Close()
			return nil, eris.Wrap(err, p.purpose)
		}
	}

	return db, nil
}

func configurePool(sqlDB *sql.DB, opts Options) {
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxIdle > 0 {
		sqlDB.SetConnMaxIdleTime(opts.ConnMaxIdle)
	}
	if opts.ConnMaxLife > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLife)
	}
}

// Ping reports whether the store still answers queries.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := SQLDB(db)
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return eris.Wrap(err, "pinging database")
	}
	return nil
}

// Close releases the connection pool. Closing twice is harmless.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := SQLDB(db)
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		return eris.Wrap(err, "closing database connection")
	}
	return nil
}

func SQLDB(db *gorm.DB) (*sql.DB, error) {
	if db == nil {
		return nil, eris.New("gorm.DB is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, eris.Wrap(err, "retrieving sql.DB")
	}
	return sqlDB, nil
}
