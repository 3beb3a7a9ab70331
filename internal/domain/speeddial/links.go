package speeddial

import (
	"context"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// DefaultMaxImageBytes bounds the size of a link image when no limit is configured.
const DefaultMaxImageBytes = 5 << 20

// LinkService defines link operations and enforces the grid rules of a page.
type LinkService interface {
	ListLinks(ctx context.Context, pageID int64) ([]Link, error)
	CountLinks(ctx context.Context, pageID int64) (int64, error)
	GetLink(ctx context.Context, id int64) (*Link, error)
	AddLink(ctx context.Context, pageID int64, input NewLink) (*Link, error)
	DeleteLink(ctx context.Context, id int64) error
}

// LinkServiceOptions configures NewLinkService.
type LinkServiceOptions struct {
	Links         LinkRepository
	Pages         PageRepository
	MaxImageBytes int
	Logger        *logrus.Logger
	SentryHub     *sentry.Hub
}

type linkService struct {
	links         LinkRepository
	pages         PageRepository
	maxImageBytes int
	recorder      errorRecorder
}

var _ LinkService = (*linkService)(nil)

// NewLinkService wires the link service with its repositories.
func NewLinkService(opts LinkServiceOptions) (LinkService, error) {
	if opts.Links == nil {
		return nil, eris.New("link repository is required")
	}
	if opts.Pages == nil {
		return nil, eris.New("page repository is required")
	}

	maxImageBytes := opts.MaxImageBytes
	if maxImageBytes <= 0 {
		maxImageBytes = DefaultMaxImageBytes
	}

	return &linkService{
		links:         opts.Links,
		pages:         opts.Pages,
		maxImageBytes: maxImageBytes,
		recorder:      newErrorRecorder(opts.Logger, opts.SentryHub, "speeddial.links"),
	}, nil
}

func (s *linkService) ListLinks(ctx context.Context, pageID int64) ([]Link, error) {
	links, err := s.links.ListByPage(ctx, pageID)
	if err != nil {
		s.recorder.record(logrus.Fields{"page_id": pageID}, err, "listing links")
		return nil, eris.Wrapf(err, "listing links of page %d", pageID)
	}
	return links, nil
}

func (s *linkService) CountLinks(ctx context.Context, pageID int64) (int64, error) {
	count, err := s.links.CountByPage(ctx, pageID)
	if err != nil {
		s.recorder.record(logrus.Fields{"page_id": pageID}, err, "counting links")
		return 0, eris.Wrapf(err, "counting links of page %d", pageID)
	}
	return count, nil
}

func (s *linkService) GetLink(ctx context.Context, id int64) (*Link, error) {
	link, err := s.links.Get(ctx, id)
	if err != nil {
		s.recorder.record(logrus.Fields{"link_id": id}, err, "loading link")
		return nil, eris.Wrapf(err, "loading link %d", id)
	}
	if link == nil {
		return nil, eris.Wrapf(ErrNotFound, "link %d", id)
	}
	return link, nil
}

// AddLink places a new link in the lowest free slot of the page.
func (s *linkService) AddLink(ctx context.Context, pageID int64, input NewLink) (*Link, error) {
	page, err := s.pages.Get(ctx, pageID)
	if err != nil {
		s.recorder.record(logrus.Fields{"page_id": pageID}, err, "loading page for new link")
		return nil, eris.Wrapf(err, "loading page %d", pageID)
	}
	if page == nil {
		return nil, eris.Wrapf(ErrNotFound, "page %d", pageID)
	}

	count, err := s.CountLinks(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if count >= SlotsPerPage {
		return nil, eris.Wrapf(ErrCapacityExceeded, "page %d already holds %d links", pageID, SlotsPerPage)
	}

	if strings.TrimSpace(input.URL) == "" {
		return nil, eris.Wrap(ErrValidation, "url is required")
	}
	if len(input.Image) > s.maxImageBytes {
		return nil, eris.Wrap(&ImageTooLargeError{Size: len(input.Image), Limit: s.maxImageBytes}, "validating link image")
	}

	existing, err := s.ListLinks(ctx, pageID)
	if err != nil {
		return nil, err
	}

	position, ok := OccupancyOf(existing).LowestFree()
	if !ok {
		s.recorder.warn(logrus.Fields{"page_id": pageID, "link_count": count}, "no free slot left after capacity check")
		return nil, eris.Wrapf(ErrInvariantViolation, "no free slot on page %d", pageID)
	}

	link := &Link{
		PageID:   pageID,
		URL:      input.URL,
		Title:    strings.TrimSpace(input.Title),
		Image:    input.Image,
		Position: position,
	}
	if len(link.Image) == 0 {
		link.Image = nil
	}

	if err := s.links.Create(ctx, link); err != nil {
		s.recorder.record(logrus.Fields{"page_id": pageID, "position": position}, err, "creating link")
		return nil, eris.Wrapf(err, "creating link on page %d", pageID)
	}

	s.recorder.info(logrus.Fields{"page_id": pageID, "link_id": link.ID, "position": position}, "link added")
	return link, nil
}

// DeleteLink frees the slot of the link; other links keep their positions.
func (s *linkService) DeleteLink(ctx context.Context, id int64) error {
	deleted, err := s.links.Delete(ctx, id)
	if err != nil {
		s.recorder.record(logrus.Fields{"link_id": id}, err, "deleting link")
		return eris.Wrapf(err, "deleting link %d", id)
	}
	if !deleted {
		return eris.Wrapf(ErrNotFound, "link %d", id)
	}

	s.recorder.info(logrus.Fields{"link_id": id}, "link deleted")
	return nil
}
