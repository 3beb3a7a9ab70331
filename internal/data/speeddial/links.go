package speeddial

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	domain "quicklink/app/internal/domain/speeddial"
)

// LinkRepository persists links using a Gorm database connection.
type LinkRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewLinkRepository constructs a Gorm-backed link repository.
func NewLinkRepository(db *gorm.DB, logger *logrus.Logger) (*LinkRepository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &LinkRepository{db: db, logger: logger}, nil
}

var _ domain.LinkRepository = (*LinkRepository)(nil)

// ListByPage returns the page's links ordered by grid position.
func (r *LinkRepository) ListByPage(ctx context.Context, pageID int64) ([]domain.Link, error) {
	var records []LinkRecord

	err := r.db.WithContext(ctx).
		Where("page_id = ?", pageID).
		Order("position ASC").
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, r.storageError(logrus.Fields{"page_id": pageID}, err, "listing links")
	}

	links := make([]domain.Link, 0, len(records))
	for i := range records {
		links = append(links, *toDomainLink(&records[i]))
	}

	return links, nil
}

// CountByPage returns the number of links on the page.
func (r *LinkRepository) CountByPage(ctx context.Context, pageID int64) (int64, error) {
	var count int64

	if err := r.db.WithContext(ctx).Model(&LinkRecord{}).Where("page_id = ?", pageID).Count(&count).Error; err != nil {
		return 0, r.storageError(logrus.Fields{"page_id": pageID}, err, "counting links")
	}

	return count, nil
}

// Get returns the link for the provided id or nil when not found.
func (r *LinkRepository) Get(ctx context.Context, id int64) (*domain.Link, error) {
	var record LinkRecord

	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, r.storageError(logrus.Fields{"link_id": id}, err, "fetching link")
	}

	return toDomainLink(&record), nil
}

// Create inserts the link and stores the generated id on it.
func (r *LinkRepository) Create(ctx context.Context, link *domain.Link) error {
	if link == nil {
		return eris.New("link is nil")
	}

	record := toLinkRecord(link)
	record.ID = 0
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return r.storageError(logrus.Fields{"page_id": link.PageID, "position": link.Position}, err, "creating link")
	}

	link.ID = record.ID
	return nil
}

// Delete removes the link. It reports false when no row matched.
func (r *LinkRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&LinkRecord{})
	if result.Error != nil {
		return false, r.storageError(logrus.Fields{"link_id": id}, result.Error, "deleting link")
	}

	return result.RowsAffected > 0, nil
}

func (r *LinkRepository) storageError(fields logrus.Fields, err error, op string) error {
	logStorageError(r.logger, fields, err, op)
	return domain.NewStorageError(op, err)
}

func logStorageError(logger *logrus.Logger, fields logrus.Fields, err error, message string) {
	if logger == nil || err == nil {
		return
	}

	entry := logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
