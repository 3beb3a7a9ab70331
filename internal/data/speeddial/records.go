package speeddial

import (
	domain "quicklink/app/internal/domain/speeddial"
)

// PageRecord is the persisted form of a page.
type PageRecord struct {
	ID    int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Title string `gorm:"column:title"`
}

// TableName defines the table name for the PageRecord model.
func (PageRecord) TableName() string {
	return "pages"
}

// LinkRecord is the persisted form of a link. Title is nullable because
// databases created before the column existed hold NULL there.
type LinkRecord struct {
	ID       int64   `gorm:"column:id;primaryKey;autoIncrement"`
	PageID   int64   `gorm:"column:page_id"`
	URL      string  `gorm:"column:url"`
	Position int     `gorm:"column:position"`
	Image    []byte  `gorm:"column:image"`
	Title    *string `gorm:"column:title"`
}

// TableName defines the table name for the LinkRecord model.
func (LinkRecord) TableName() string {
	return "links"
}

func toDomainPage(record *PageRecord) *domain.Page {
	if record == nil {
		return nil
	}

	return &domain.Page{ID: record.ID, Title: record.Title}
}

func toDomainLink(record *LinkRecord) *domain.Link {
	if record == nil {
		return nil
	}

	link := &domain.Link{
		ID:       record.ID,
		PageID:   record.PageID,
		URL:      record.URL,
		Position: record.Position,
		Image:    record.Image,
	}
	if record.Title != nil {
		link.Title = *record.Title
	}
	if len(link.Image) == 0 {
		link.Image = nil
	}
	return link
}

func toLinkRecord(link *domain.Link) *LinkRecord {
	title := link.Title
	return &LinkRecord{
		ID:       link.ID,
		PageID:   link.PageID,
		URL:      link.URL,
		Position: link.Position,
		Image:    link.Image,
		Title:    &title,
	}
}
