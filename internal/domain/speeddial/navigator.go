package speeddial

import (
	"context"

	"github.com/rotisserie/eris"
)

// Navigator holds the current page pointer and walks pages in id order.
// Navigation is linear: there is no wraparound at either end.
type Navigator struct {
	pages   PageService
	current int64
}

// NewNavigator constructs a navigator. Call Start before use.
func NewNavigator(pages PageService) (*Navigator, error) {
	if pages == nil {
		return nil, eris.New("page service is required")
	}
	return &Navigator{pages: pages}, nil
}

// Start points the navigator at the first page, creating one when the store is empty.
func (n *Navigator) Start(ctx context.Context) (int64, error) {
	id, err := n.pages.EnsureAtLeastOnePage(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "starting navigator")
	}
	n.current = id
	return id, nil
}

// Current returns the current page id.
func (n *Navigator) Current() int64 {
	return n.current
}

// HasPrevious reports whether a page with a smaller id exists.
func (n *Navigator) HasPrevious(ctx context.Context) (bool, error) {
	_, found, err := n.pages.PreviousPageID(ctx, n.current)
	return found, err
}

// HasNext reports whether a page with a larger id exists.
func (n *Navigator) HasNext(ctx context.Context) (bool, error) {
	_, found, err := n.pages.NextPageID(ctx, n.current)
	return found, err
}

// GoToPrevious moves to the nearest page with a smaller id, if any.
func (n *Navigator) GoToPrevious(ctx context.Context) (int64, error) {
	prev, found, err := n.pages.PreviousPageID(ctx, n.current)
	if err != nil {
		return n.current, err
	}
	if found {
		n.current = prev
	}
	return n.current, nil
}

// GoToNext moves to the nearest page with a larger id, if any.
func (n *Navigator) GoToNext(ctx context.Context) (int64, error) {
	next, found, err := n.pages.NextPageID(ctx, n.current)
	if err != nil {
		return n.current, err
	}
	if found {
		n.current = next
	}
	return n.current, nil
}

// GoTo sets the current page directly. The page must exist.
func (n *Navigator) GoTo(ctx context.Context, id int64) error {
	if _, err := n.pages.GetPage(ctx, id); err != nil {
		return err
	}
	n.current = id
	return nil
}

// Position returns the 1-based index of the current page and the page count.
func (n *Navigator) Position(ctx context.Context) (int, int, error) {
	ids, err := n.pages.ListPageIDs(ctx)
	if err != nil {
		return 0, 0, err
	}
	for idx, id := range ids {
		if id == n.current {
			return idx + 1, len(ids), nil
		}
	}
	return 0, len(ids), nil
}
