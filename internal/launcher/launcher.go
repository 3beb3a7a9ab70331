package launcher

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"quicklink/app/internal/domain/speeddial"
)

// Confirmation questions asked before destructive intents.
const (
	ConfirmDeleteLink = "Are you sure you want to delete this link?"
	ConfirmDeletePage = "Are you sure you want to delete this page and all its links? This action cannot be undone."
)

// NoticeImageTooLarge is shown when an image exceeds the configured limit. The
// web adapter also raises it for uploads refused before the form is parsed.
var NoticeImageTooLarge = Notice{Kind: NoticeWarning, Title: "Invalid Image", Message: "The selected image is too large."}

var (
	noticeLimitReached = Notice{Kind: NoticeInfo, Title: "Limit Reached", Message: "This page already contains the maximum of 16 links."}
	noticeInvalidURL   = Notice{Kind: NoticeWarning, Title: "Invalid URL", Message: "Please enter a valid URL."}
	noticeImageUnread  = Notice{Kind: NoticeWarning, Title: "Invalid Image", Message: "The selected image could not be read. The link was not saved."}
	noticeLinkRejected = Notice{Kind: NoticeWarning, Title: "Invalid Link", Message: "The link could not be saved."}
	noticeNoLinks      = Notice{Kind: NoticeInfo, Title: "No Link", Message: "There are no links that can be deleted on this page."}
	noticeNoSelection  = Notice{Kind: NoticeInfo, Title: "Selection required", Message: "Please select a link to delete."}
	noticeLinkMissing  = Notice{Kind: NoticeWarning, Title: "Link Not Found", Message: "The selected link no longer exists."}
	noticeLastPage     = Notice{Kind: NoticeInfo, Title: "Operation Denied", Message: "Cannot delete last page."}
	noticePageMissing  = Notice{Kind: NoticeWarning, Title: "Page Not Found", Message: "The requested page does not exist."}
	noticeOpenFailed   = Notice{Kind: NoticeError, Title: "Open Failed", Message: "The link could not be opened."}
)

// Options configures New.
type Options struct {
	Pages     speeddial.PageService
	Links     speeddial.LinkService
	Navigator *speeddial.Navigator
	Logger    *logrus.Logger
}

// Launcher turns user intents into page and link operations and hands the
// resulting view back to the presenter. Intents run one at a time.
type Launcher struct {
	mu     sync.Mutex
	pages  speeddial.PageService
	links  speeddial.LinkService
	nav    *speeddial.Navigator
	logger *logrus.Logger
}

// New wires a launcher. The navigator must already be started.
func New(opts Options) (*Launcher, error) {
	if opts.Pages == nil {
		return nil, eris.New("page service is required")
	}
	if opts.Links == nil {
		return nil, eris.New("link service is required")
	}
	if opts.Navigator == nil {
		return nil, eris.New("navigator is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Launcher{
		pages:  opts.Pages,
		links:  opts.Links,
		nav:    opts.Navigator,
		logger: logger,
	}, nil
}

// CurrentPageID returns the page the launcher is showing.
func (l *Launcher) CurrentPageID() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nav.Current()
}

// Show renders the current page.
func (l *Launcher) Show(ctx context.Context, p Presenter) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.render(ctx, p)
}

// AddLink asks for link details and places the link in the lowest free slot.
func (l *Launcher) AddLink(ctx context.Context, p Presenter) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pageID := l.nav.Current()

	count, err := l.links.CountLinks(ctx, pageID)
	if err != nil {
		return l.fail(p, err, "counting links")
	}
	if count >= speeddial.SlotsPerPage {
		p.Notify(noticeLimitReached)
		return l.render(ctx, p)
	}

	details, ok := p.PromptForLinkDetails()
	if !ok {
		return l.render(ctx, p)
	}
	if strings.TrimSpace(details.URL) == "" {
		p.Notify(noticeInvalidURL)
		return l.render(ctx, p)
	}

	input := speeddial.NewLink{URL: details.URL, Title: details.Title}
	if details.WantsImage {
		image, picked, err := p.PromptForImageFile()
		if err != nil {
			l.logger.WithFields(logrus.Fields{
				"component": "launcher",
				"page_id":   pageID,
				"error":     err.Error(),
			}).Warn("picked image could not be read")
			p.Notify(noticeImageUnread)
			return l.render(ctx, p)
		}
		if picked {
			input.Image = image
		}
	}

	if _, err := l.links.AddLink(ctx, pageID, input); err != nil {
		switch {
		case eris.Is(err, speeddial.ErrCapacityExceeded):
			p.Notify(noticeLimitReached)
		case speeddial.IsImageTooLarge(err):
			p.Notify(NoticeImageTooLarge)
		case eris.Is(err, speeddial.ErrValidation):
			p.Notify(noticeLinkRejected)
		case eris.Is(err, speeddial.ErrNotFound):
			return l.restart(ctx, p, err)
		default:
			return l.fail(p, err, "adding link")
		}
	}

	return l.render(ctx, p)
}

// DeleteLink lets the user pick a link of the current page and removes it
// after confirmation.
func (l *Launcher) DeleteLink(ctx context.Context, p Presenter) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	links, err := l.links.ListLinks(ctx, l.nav.Current())
	if err != nil {
		return l.fail(p, err, "listing links")
	}
	if len(links) == 0 {
		p.Notify(noticeNoLinks)
		return l.render(ctx, p)
	}

	linkID, ok := p.ChooseLink(withoutImages(links))
	if !ok {
		return l.render(ctx, p)
	}
	if !containsLink(links, linkID) {
		p.Notify(noticeNoSelection)
		return l.render(ctx, p)
	}

	if !p.Confirm(ConfirmDeleteLink) {
		return l.render(ctx, p)
	}

	if err := l.links.DeleteLink(ctx, linkID); err != nil {
		if !eris.Is(err, speeddial.ErrNotFound) {
			return l.fail(p, err, "deleting link")
		}
		p.Notify(noticeLinkMissing)
	}

	return l.render(ctx, p)
}

// ChangeTitle renames the current page. A blank answer keeps the old title.
func (l *Launcher) ChangeTitle(ctx context.Context, p Presenter) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	page, err := l.pages.GetPage(ctx, l.nav.Current())
	if err != nil {
		if eris.Is(err, speeddial.ErrNotFound) {
			return l.restart(ctx, p, err)
		}
		return l.fail(p, err, "loading page")
	}

	title, ok := p.PromptForText(TextPrompt{Title: "Change Title", Label: "Enter new page title:"}, page.Title)
	if !ok {
		return l.render(ctx, p)
	}

	if _, err := l.pages.RenamePage(ctx, page.ID, title); err != nil {
		return l.fail(p, err, "renaming page")
	}

	return l.render(ctx, p)
}

// AddPage creates a page and makes it current.
func (l *Launcher) AddPage(ctx context.Context, p Presenter) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	title, ok := p.PromptForText(TextPrompt{Title: "New Page", Label: "Enter the title of the new page:"}, speeddial.DefaultPageTitle)
	if !ok || strings.TrimSpace(title) == "" {
		return l.render(ctx, p)
	}

	page, err := l.pages.CreatePage(ctx, title)
	if err != nil {
		return l.fail(p, err, "creating page")
	}

	if err := l.nav.GoTo(ctx, page.ID); err != nil {
		return l.fail(p, err, "opening new page")
	}

	return l.render(ctx, p)
}

// DeletePage removes the current page with its links and moves to the
// neighbouring page. The last remaining page cannot be deleted.
func (l *Launcher) DeletePage(ctx context.Context, p Presenter) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	count, err := l.pages.CountPages(ctx)
	if err != nil {
		return l.fail(p, err, "counting pages")
	}
	if count <= 1 {
		p.Notify(noticeLastPage)
		return l.render(ctx, p)
	}

	if !p.Confirm(ConfirmDeletePage) {
		return l.render(ctx, p)
	}

	landing, err := l.pages.DeletePage(ctx, l.nav.Current())
	if err != nil {
		switch {
		case eris.Is(err, speeddial.ErrInvariantViolation):
			p.Notify(noticeLastPage)
			return l.render(ctx, p)
		case eris.Is(err, speeddial.ErrNotFound):
			return l.restart(ctx, p, err)
		default:
			return l.fail(p, err, "deleting page")
		}
	}

	if err := l.nav.GoTo(ctx, landing); err != nil {
		return l.fail(p, err, "opening landing page")
	}

	return l.render(ctx, p)
}

// Previous moves to the page before the current one, if any.
func (l *Launcher) Previous(ctx context.Context, p Presenter) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.nav.GoToPrevious(ctx); err != nil {
		return l.fail(p, err, "moving to previous page")
	}
	return l.render(ctx, p)
}

// Next moves to the page after the current one, if any.
func (l *Launcher) Next(ctx context.Context, p Presenter) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.nav.GoToNext(ctx); err != nil {
		return l.fail(p, err, "moving to next page")
	}
	return l.render(ctx, p)
}

// GoTo makes the given page current.
func (l *Launcher) GoTo(ctx context.Context, p Presenter, pageID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.nav.GoTo(ctx, pageID); err != nil {
		if !eris.Is(err, speeddial.ErrNotFound) {
			return l.fail(p, err, "opening page")
		}
		p.Notify(noticePageMissing)
	}
	return l.render(ctx, p)
}

// OpenLink hands the link's URL to the presenter. The page is only
// re-rendered when the link cannot be opened.
func (l *Launcher) OpenLink(ctx context.Context, p Presenter, linkID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	link, err := l.links.GetLink(ctx, linkID)
	if err != nil {
		if !eris.Is(err, speeddial.ErrNotFound) {
			return l.fail(p, err, "loading link")
		}
		p.Notify(noticeLinkMissing)
		return l.render(ctx, p)
	}

	if err := p.OpenExternal(link.URL); err != nil {
		l.logger.WithFields(logrus.Fields{
			"component": "launcher",
			"link_id":   linkID,
			"error":     err.Error(),
		}).Warn("opening link failed")
		p.Notify(noticeOpenFailed)
		return l.render(ctx, p)
	}

	return nil
}

// LinkImage returns the image bytes of a link, or ErrNotFound when the link
// is missing or has no image.
func (l *Launcher) LinkImage(ctx context.Context, linkID int64) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	link, err := l.links.GetLink(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if !link.HasImage() {
		return nil, eris.Wrapf(speeddial.ErrNotFound, "image of link %d", linkID)
	}
	return link.Image, nil
}

// render builds the view of the current page and passes it to the presenter.
func (l *Launcher) render(ctx context.Context, p Presenter) error {
	view, err := l.buildView(ctx)
	if err != nil {
		return l.fail(p, err, "rendering page")
	}
	p.Render(view)
	return nil
}

func (l *Launcher) buildView(ctx context.Context) (View, error) {
	page, err := l.pages.GetPage(ctx, l.nav.Current())
	if err != nil {
		if !eris.Is(err, speeddial.ErrNotFound) {
			return View{}, err
		}
		// The current page vanished underneath us; fall back to the first page.
		if _, err := l.nav.Start(ctx); err != nil {
			return View{}, err
		}
		if page, err = l.pages.GetPage(ctx, l.nav.Current()); err != nil {
			return View{}, err
		}
	}

	links, err := l.links.ListLinks(ctx, page.ID)
	if err != nil {
		return View{}, err
	}

	hasPrevious, err := l.nav.HasPrevious(ctx)
	if err != nil {
		return View{}, err
	}
	hasNext, err := l.nav.HasNext(ctx)
	if err != nil {
		return View{}, err
	}
	number, total, err := l.nav.Position(ctx)
	if err != nil {
		return View{}, err
	}

	view := View{
		PageID:      page.ID,
		Title:       page.Title,
		HasPrevious: hasPrevious,
		HasNext:     hasNext,
		PageNumber:  number,
		PageCount:   total,
		Links:       withoutImages(links),
	}
	for i := range view.Slots {
		view.Slots[i].Position = i
	}
	for _, link := range links {
		if link.Position < 0 || link.Position >= speeddial.SlotsPerPage {
			continue
		}
		view.Slots[link.Position] = Slot{
			Position: link.Position,
			LinkID:   link.ID,
			Label:    link.Label(),
			URL:      link.URL,
			HasImage: link.HasImage(),
		}
	}

	return view, nil
}

// restart handles a page that disappeared during an intent by showing the
// first page again.
func (l *Launcher) restart(ctx context.Context, p Presenter, cause error) error {
	l.logger.WithFields(logrus.Fields{
		"component": "launcher",
		"page_id":   l.nav.Current(),
		"error":     cause.Error(),
	}).Warn("current page is gone, returning to first page")

	if _, err := l.nav.Start(ctx); err != nil {
		return l.fail(p, err, "restarting navigation")
	}
	p.Notify(noticePageMissing)
	return l.render(ctx, p)
}

// fail reports an unexpected error to the user and aborts the intent.
func (l *Launcher) fail(p Presenter, err error, op string) error {
	l.logger.WithFields(logrus.Fields{
		"component": "launcher",
		"storage":   speeddial.IsStorage(err),
		"error":     err.Error(),
	}).Error(op)

	message := "Something went wrong while " + op + "."
	if speeddial.IsStorage(err) {
		message = "The launcher database could not be accessed while " + op + "."
	}
	p.Notify(Notice{Kind: NoticeError, Title: "Error", Message: message})

	return eris.Wrap(err, op)
}

func withoutImages(links []speeddial.Link) []speeddial.Link {
	out := make([]speeddial.Link, len(links))
	for i, link := range links {
		link.Image = nil
		out[i] = link
	}
	return out
}

func containsLink(links []speeddial.Link, id int64) bool {
	for _, link := range links {
		if link.ID == id {
			return true
		}
	}
	return false
}
