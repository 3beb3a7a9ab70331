package speeddial

import (
	"context"
	"io"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// memoryStore backs both repository ports with maps so services can be tested
// without SQLite.
type memoryStore struct {
	pages    map[int64]Page
	links    map[int64]Link
	nextPage int64
	nextLink int64
	failWith error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		pages: make(map[int64]Page),
		links: make(map[int64]Link),
	}
}

func (m *memoryStore) seedPages(ids ...int64) {
	for _, id := range ids {
		m.pages[id] = Page{ID: id, Title: DefaultPageTitle}
		if id > m.nextPage {
			m.nextPage = id
		}
	}
}

func (m *memoryStore) pageRepo() *memoryPages { return &memoryPages{m} }
func (m *memoryStore) linkRepo() *memoryLinks { return &memoryLinks{m} }

type memoryPages struct{ *memoryStore }

var _ PageRepository = (*memoryPages)(nil)

func (r *memoryPages) sortedIDs() []int64 {
	ids := make([]int64, 0, len(r.pages))
	for id := range r.pages {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *memoryPages) ListIDs(_ context.Context) ([]int64, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	return r.sortedIDs(), nil
}

func (r *memoryPages) Get(_ context.Context, id int64) (*Page, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	page, ok := r.pages[id]
	if !ok {
		return nil, nil
	}
	return &page, nil
}

func (r *memoryPages) First(_ context.Context) (*Page, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	ids := r.sortedIDs()
	if len(ids) == 0 {
		return nil, nil
	}
	page := r.pages[ids[0]]
	return &page, nil
}

func (r *memoryPages) Count(_ context.Context) (int64, error) {
	if r.failWith != nil {
		return 0, r.failWith
	}
	return int64(len(r.pages)), nil
}

func (r *memoryPages) Create(_ context.Context, page *Page) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.nextPage++
	page.ID = r.nextPage
	r.pages[page.ID] = *page
	return nil
}

func (r *memoryPages) UpdateTitle(_ context.Context, id int64, title string) error {
	if r.failWith != nil {
		return r.failWith
	}
	page := r.pages[id]
	page.Title = title
	r.pages[id] = page
	return nil
}

func (r *memoryPages) PreviousID(_ context.Context, id int64) (int64, bool, error) {
	if r.failWith != nil {
		return 0, false, r.failWith
	}
	ids := r.sortedIDs()
	for i := len(ids) - 1; i >= 0; i-- {
		if ids[i] < id {
			return ids[i], true, nil
		}
	}
	return 0, false, nil
}

func (r *memoryPages) NextID(_ context.Context, id int64) (int64, bool, error) {
	if r.failWith != nil {
		return 0, false, r.failWith
	}
	for _, candidate := range r.sortedIDs() {
		if candidate > id {
			return candidate, true, nil
		}
	}
	return 0, false, nil
}

func (r *memoryPages) DeleteWithLinks(_ context.Context, id int64) (bool, error) {
	if r.failWith != nil {
		return false, r.failWith
	}
	if _, ok := r.pages[id]; !ok {
		return false, nil
	}
	for linkID, link := range r.links {
		if link.PageID == id {
			delete(r.links, linkID)
		}
	}
	delete(r.pages, id)
	return true, nil
}

type memoryLinks struct{ *memoryStore }

var _ LinkRepository = (*memoryLinks)(nil)

func (r *memoryLinks) ListByPage(_ context.Context, pageID int64) ([]Link, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	var links []Link
	for _, link := range r.links {
		if link.PageID == pageID {
			links = append(links, link)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Position < links[j].Position })
	return links, nil
}

func (r *memoryLinks) CountByPage(ctx context.Context, pageID int64) (int64, error) {
	links, err := r.ListByPage(ctx, pageID)
	return int64(len(links)), err
}

func (r *memoryLinks) Get(_ context.Context, id int64) (*Link, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	link, ok := r.links[id]
	if !ok {
		return nil, nil
	}
	return &link, nil
}

func (r *memoryLinks) Create(_ context.Context, link *Link) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.nextLink++
	link.ID = r.nextLink
	r.links[link.ID] = *link
	return nil
}

func (r *memoryLinks) Delete(_ context.Context, id int64) (bool, error) {
	if r.failWith != nil {
		return false, r.failWith
	}
	if _, ok := r.links[id]; !ok {
		return false, nil
	}
	delete(r.links, id)
	return true, nil
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func storageFailure() error {
	return NewStorageError("query", eris.New("disk I/O error"))
}
