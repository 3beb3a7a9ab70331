package speeddial

import (
	"context"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// PageService defines page operations and guards the "at least one page" rule.
type PageService interface {
	ListPageIDs(ctx context.Context) ([]int64, error)
	GetPage(ctx context.Context, id int64) (*Page, error)
	CountPages(ctx context.Context) (int64, error)
	CreatePage(ctx context.Context, title string) (*Page, error)
	RenamePage(ctx context.Context, id int64, title string) (*Page, error)
	DeletePage(ctx context.Context, id int64) (int64, error)
	EnsureAtLeastOnePage(ctx context.Context) (int64, error)
	PreviousPageID(ctx context.Context, id int64) (int64, bool, error)
	NextPageID(ctx context.Context, id int64) (int64, bool, error)
}

type pageService struct {
	repo     PageRepository
	recorder errorRecorder
}

var _ PageService = (*pageService)(nil)

// NewPageService wires the page service with its repository.
func NewPageService(repo PageRepository, logger *logrus.Logger, hub *sentry.Hub) (PageService, error) {
	if repo == nil {
		return nil, eris.New("page repository is required")
	}

	return &pageService{
		repo:     repo,
		recorder: newErrorRecorder(logger, hub, "speeddial.pages"),
	}, nil
}

func (s *pageService) ListPageIDs(ctx context.Context) ([]int64, error) {
	ids, err := s.repo.ListIDs(ctx)
	if err != nil {
		s.recorder.record(nil, err, "listing page ids")
		return nil, eris.Wrap(err, "listing page ids")
	}
	return ids, nil
}

func (s *pageService) GetPage(ctx context.Context, id int64) (*Page, error) {
	page, err := s.repo.Get(ctx, id)
	if err != nil {
		s.recorder.record(logrus.Fields{"page_id": id}, err, "loading page")
		return nil, eris.Wrapf(err, "loading page %d", id)
	}
	if page == nil {
		return nil, eris.Wrapf(ErrNotFound, "page %d", id)
	}
	return page, nil
}

func (s *pageService) CountPages(ctx context.Context) (int64, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		s.recorder.record(nil, err, "counting pages")
		return 0, eris.Wrap(err, "counting pages")
	}
	return count, nil
}

func (s *pageService) CreatePage(ctx context.Context, title string) (*Page, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		trimmed = DefaultPageTitle
	}

	page := &Page{Title: trimmed}
	if err := s.repo.Create(ctx, page); err != nil {
		s.recorder.record(logrus.Fields{"title": trimmed}, err, "creating page")
		return nil, eris.Wrap(err, "creating page")
	}

	s.recorder.info(logrus.Fields{"page_id": page.ID}, "page created")
	return page, nil
}

// RenamePage ignores blank titles and returns the page unchanged.
func (s *pageService) RenamePage(ctx context.Context, id int64, title string) (*Page, error) {
	page, err := s.GetPage(ctx, id)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(title)
	if trimmed == "" || trimmed == page.Title {
		return page, nil
	}

	if err := s.repo.UpdateTitle(ctx, id, trimmed); err != nil {
		s.recorder.record(logrus.Fields{"page_id": id}, err, "renaming page")
		return nil, eris.Wrapf(err, "renaming page %d", id)
	}

	page.Title = trimmed
	return page, nil
}

// DeletePage removes the page with all of its links and returns the id of the
// page to land on: the closest lower id, or failing that the closest higher id.
func (s *pageService) DeletePage(ctx context.Context, id int64) (int64, error) {
	if _, err := s.GetPage(ctx, id); err != nil {
		return 0, err
	}

	count, err := s.CountPages(ctx)
	if err != nil {
		return 0, err
	}
	if count <= 1 {
		return 0, eris.Wrap(ErrInvariantViolation, "cannot delete the last page")
	}

	landing, found, err := s.PreviousPageID(ctx, id)
	if err != nil {
		return 0, err
	}
	if !found {
		landing, found, err = s.NextPageID(ctx, id)
		if err != nil {
			return 0, err
		}
	}
	if !found {
		return 0, eris.Wrapf(ErrInvariantViolation, "no landing page for page %d", id)
	}

	deleted, err := s.repo.DeleteWithLinks(ctx, id)
	if err != nil {
		s.recorder.record(logrus.Fields{"page_id": id}, err, "deleting page")
		return 0, eris.Wrapf(err, "deleting page %d", id)
	}
	if !deleted {
		return 0, eris.Wrapf(ErrNotFound, "page %d", id)
	}

	s.recorder.info(logrus.Fields{"page_id": id, "landing_page_id": landing}, "page deleted")
	return landing, nil
}

func (s *pageService) EnsureAtLeastOnePage(ctx context.Context) (int64, error) {
	first, err := s.repo.First(ctx)
	if err != nil {
		s.recorder.record(nil, err, "loading first page")
		return 0, eris.Wrap(err, "loading first page")
	}
	if first != nil {
		return first.ID, nil
	}

	seeded, err := s.CreatePage(ctx, SeedPageTitle)
	if err != nil {
		return 0, err
	}
	return seeded.ID, nil
}

func (s *pageService) PreviousPageID(ctx context.Context, id int64) (int64, bool, error) {
	prev, found, err := s.repo.PreviousID(ctx, id)
	if err != nil {
		s.recorder.record(logrus.Fields{"page_id": id}, err, "looking up previous page")
		return 0, false, eris.Wrapf(err, "looking up page before %d", id)
	}
	return prev, found, nil
}

func (s *pageService) NextPageID(ctx context.Context, id int64) (int64, bool, error) {
	next, found, err := s.repo.NextID(ctx, id)
	if err != nil {
		s.recorder.record(logrus.Fields{"page_id": id}, err, "looking up next page")
		return 0, false, eris.Wrapf(err, "looking up page after %d", id)
	}
	return next, found, nil
}
