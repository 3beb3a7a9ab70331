package migrations

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	dataspeeddial "quicklink/app/internal/data/speeddial"
	domain "quicklink/app/internal/domain/speeddial"
)

const (
	createPagesTable = `CREATE TABLE IF NOT EXISTS pages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT DEFAULT 'New Page'
)`

	createLinksTable = `CREATE TABLE IF NOT EXISTS links (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    page_id INTEGER,
    url TEXT,
    position INTEGER,
    image BLOB,
    title TEXT,
    FOREIGN KEY (page_id) REFERENCES pages (id)
)`

	addLinksTitleColumn = `ALTER TABLE links ADD COLUMN title TEXT`

	createLinksPageIndex = `CREATE INDEX IF NOT EXISTS idx_links_page_position ON links (page_id, position)`
)

// MigrateSpeedDial creates the pages and links tables when absent and
// upgrades links tables that predate the title column. It is idempotent.
func MigrateSpeedDial(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	logFields := logrus.Fields{"component": "speeddial.migrate"}
	if logger != nil {
		logger.WithFields(logFields).Info("applying speed dial schema")
	}

	tx := db.WithContext(ctx)

	if err := tx.Exec(createPagesTable).Error; err != nil {
		return migrationError(logger, logFields, err, "creating pages table")
	}

	if err := ensureLinksTable(tx, logger, logFields); err != nil {
		return err
	}

	if err := tx.Exec(createLinksPageIndex).Error; err != nil {
		return migrationError(logger, logFields, err, "creating links index")
	}

	if logger != nil {
		logger.WithFields(logFields).Info("speed dial schema migration complete")
	}

	return nil
}

// ensureLinksTable adds the title column when it is missing. A failing ALTER
// on a database without a links table is expected on first run and answered
// by creating the table with the full schema.
func ensureLinksTable(tx *gorm.DB, logger *logrus.Logger, logFields logrus.Fields) error {
	migrator := tx.Migrator()
	if migrator.HasColumn(&dataspeeddial.LinkRecord{}, "title") {
		return nil
	}

	alterErr := tx.Exec(addLinksTitleColumn).Error
	if alterErr == nil {
		if logger != nil {
			logger.WithFields(logFields).Info("added title column to links table")
		}
		return nil
	}

	if migrator.HasTable(&dataspeeddial.LinkRecord{}) {
		return migrationError(logger, logFields, alterErr, "adding title column to links table")
	}

	if logger != nil {
		logger.WithFields(logFields).Debug("links table missing, creating it")
	}

	if err := tx.Exec(createLinksTable).Error; err != nil {
		return migrationError(logger, logFields, err, "creating links table")
	}

	return nil
}

func migrationError(logger *logrus.Logger, logFields logrus.Fields, err error, op string) error {
	if logger != nil {
		logger.WithFields(logFields).WithField("error", err.Error()).Error("speed dial schema migration failed")
	}
	return domain.NewStorageError(op, err)
}
