package speeddial

import "context"

// PageRepository defines persistence operations for pages.
//
// Lookups return nil without an error when the page does not exist. Failures
// of the underlying store are reported as *StorageError.
type PageRepository interface {
	ListIDs(ctx context.Context) ([]int64, error)
	Get(ctx context.Context, id int64) (*Page, error)
	First(ctx context.Context) (*Page, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, page *Page) error
	UpdateTitle(ctx context.Context, id int64, title string) error
	// PreviousID returns the largest page id strictly below id.
	PreviousID(ctx context.Context, id int64) (int64, bool, error)
	// NextID returns the smallest page id strictly above id.
	NextID(ctx context.Context, id int64) (int64, bool, error)
	// DeleteWithLinks removes every link of the page and then the page itself
	// as one atomic unit. It reports false when the page did not exist.
	DeleteWithLinks(ctx context.Context, id int64) (bool, error)
}

// LinkRepository defines persistence operations for links.
type LinkRepository interface {
	ListByPage(ctx context.Context, pageID int64) ([]Link, error)
	CountByPage(ctx context.Context, pageID int64) (int64, error)
	Get(ctx context.Context, id int64) (*Link, error)
	Create(ctx context.Context, link *Link) error
	// Delete reports false when the link did not exist.
	Delete(ctx context.Context, id int64) (bool, error)
}
