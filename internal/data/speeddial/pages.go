package speeddial

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	domain "quicklink/app/internal/domain/speeddial"
)

// PageRepository persists pages using a Gorm database connection.
type PageRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewPageRepository constructs a Gorm-backed page repository.
func NewPageRepository(db *gorm.DB, logger *logrus.Logger) (*PageRepository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &PageRepository{db: db, logger: logger}, nil
}

var _ domain.PageRepository = (*PageRepository)(nil)

// ListIDs returns every page id in creation order.
func (r *PageRepository) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64

	if err := r.db.WithContext(ctx).Model(&PageRecord{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, r.storageError(nil, err, "listing page ids")
	}

	return ids, nil
}

// Get returns the page for the provided id or nil when not found.
func (r *PageRepository) Get(ctx context.Context, id int64) (*domain.Page, error) {
	var record PageRecord

	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, r.storageError(logrus.Fields{"page_id": id}, err, "fetching page")
	}

	return toDomainPage(&record), nil
}

// First returns the page with the lowest id or nil when no page exists.
func (r *PageRepository) First(ctx context.Context) (*domain.Page, error) {
	var record PageRecord

	err := r.db.WithContext(ctx).Order("id ASC").First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, r.storageError(nil, err, "fetching first page")
	}

	return toDomainPage(&record), nil
}

// Count returns the number of persisted pages.
func (r *PageRepository) Count(ctx context.Context) (int64, error) {
	var count int64

	if err := r.db.WithContext(ctx).Model(&PageRecord{}).Count(&count).Error; err != nil {
		return 0, r.storageError(nil, err, "counting pages")
	}

	return count, nil
}

// Create inserts the page and stores the generated id on it.
func (r *PageRepository) Create(ctx context.Context, page *domain.Page) error {
	if page == nil {
		return eris.New("page is nil")
	}

	record := &PageRecord{Title: page.Title}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return r.storageError(logrus.Fields{"title": page.Title}, err, "creating page")
	}

	page.ID = record.ID
	return nil
}

// UpdateTitle replaces the title of the page.
func (r *PageRepository) UpdateTitle(ctx context.Context, id int64, title string) error {
	err := r.db.WithContext(ctx).Model(&PageRecord{}).Where("id = ?", id).Update("title", title).Error
	if err != nil {
		return r.storageError(logrus.Fields{"page_id": id}, err, "updating page title")
	}

	return nil
}

// PreviousID returns the largest page id below id.
func (r *PageRepository) PreviousID(ctx context.Context, id int64) (int64, bool, error) {
	var ids []int64

	err := r.db.WithContext(ctx).
		Model(&PageRecord{}).
		Where("id < ?", id).
		Order("id DESC").
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, false, r.storageError(logrus.Fields{"page_id": id}, err, "looking up previous page")
	}

	if len(ids) == 0 {
		return 0, false, nil
	}
	return ids[0], true, nil
}

// NextID returns the smallest page id above id.
func (r *PageRepository) NextID(ctx context.Context, id int64) (int64, bool, error) {
	var ids []int64

	err := r.db.WithContext(ctx).
		Model(&PageRecord{}).
		Where("id > ?", id).
		Order("id ASC").
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, false, r.storageError(logrus.Fields{"page_id": id}, err, "looking up next page")
	}

	if len(ids) == 0 {
		return 0, false, nil
	}
	return ids[0], true, nil
}

// DeleteWithLinks removes the page's links and then the page in one transaction.
func (r *PageRepository) DeleteWithLinks(ctx context.Context, id int64) (bool, error) {
	deleted := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("page_id = ?", id).Delete(&LinkRecord{}).Error; err != nil {
			return eris.Wrap(err, "deleting page links")
		}

		result := tx.Where("id = ?", id).Delete(&PageRecord{})
		if result.Error != nil {
			return eris.Wrap(result.Error, "deleting page row")
		}

		deleted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, r.storageError(logrus.Fields{"page_id": id}, err, "deleting page")
	}

	return deleted, nil
}

func (r *PageRepository) storageError(fields logrus.Fields, err error, op string) error {
	logStorageError(r.logger, fields, err, op)
	return domain.NewStorageError(op, err)
}
