package database

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTemp(t *testing.T, opts Options) *gorm.DB {
	t.Helper()
	if opts.Path == "" {
		opts.Path = filepath.Join(t.TempDir(), "quicklink.db")
	}

	db, err := Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, Close(db))
	})
	return db
}

func pragmaValue[T any](t *testing.T, db *gorm.DB, name string) T {
	t.Helper()
	var value T
	require.NoError(t, db.Raw("PRAGMA "+name+";").Scan(&value).Error)
	return value
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Options{})
	require.Error(t, err)
}

func TestOpenAppliesPragmas(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		busyTimeout time.Duration
		want        int
	}{
		{name: "default timeout", want: 5000},
		{name: "custom timeout", busyTimeout: 1500 * time.Millisecond, want: 1500},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			db := openTemp(t, Options{BusyTimeout: tc.busyTimeout})

			assert.Equal(t, 1, pragmaValue[int](t, db, "foreign_keys"))
			assert.Equal(t, tc.want, pragmaValue[int](t, db, "busy_timeout"))
			assert.True(t, strings.EqualFold(strings.TrimSpace(pragmaValue[string](t, db, "journal_mode")), "wal"))
		})
	}
}

func TestOpenConfiguresPool(t *testing.T) {
	t.Parallel()

	db := openTemp(t, Options{MaxOpenConns: 7, MaxIdleConns: 3, ConnMaxIdle: 2 * time.Second, ConnMaxLife: 5 * time.Second})

	sqlDB, err := SQLDB(db)
	require.NoError(t, err)
	assert.Equal(t, 7, sqlDB.Stats().MaxOpenConnections)
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "data", "quicklink.db")
	openTemp(t, Options{Path: path})

	_, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
}

func TestPingReflectsConnectionState(t *testing.T) {
	t.Parallel()

	db := openTemp(t, Options{})
	require.NoError(t, Ping(context.Background(), db))

	require.NoError(t, Close(db))
	assert.Error(t, Ping(context.Background(), db))
}

func TestNilDatabaseHelpers(t *testing.T) {
	assert.NoError(t, Close(nil))

	_, err := SQLDB(nil)
	assert.Error(t, err)

	assert.Error(t, Ping(context.Background(), nil))
}
