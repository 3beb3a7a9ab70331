package launcher

import (
	"quicklink/app/internal/domain/speeddial"
)

// LinkDetails holds the answers of the add-link form.
type LinkDetails struct {
	URL        string
	Title      string
	WantsImage bool
}

// TextPrompt describes a single-line text question.
type TextPrompt struct {
	Title string
	Label string
}

// NoticeKind classifies a notice shown to the user.
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeWarning
	NoticeError
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeWarning:
		return "warning"
	case NoticeError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a short message displayed to the user.
type Notice struct {
	Kind    NoticeKind
	Title   string
	Message string
}

// Slot is one cell of the grid. A zero LinkID marks an empty slot.
type Slot struct {
	Position int
	LinkID   int64
	Label    string
	URL      string
	HasImage bool
}

// Occupied reports whether a link sits in the slot.
func (s Slot) Occupied() bool {
	return s.LinkID != 0
}

// View is everything needed to draw the current page.
type View struct {
	PageID      int64
	Title       string
	Slots       [speeddial.SlotsPerPage]Slot
	HasPrevious bool
	HasNext     bool
	PageNumber  int
	PageCount   int
	Links       []speeddial.Link
}

// Presenter is the presentation shell the launcher talks to. Prompt methods
// block until the user answers; ok is false when the user cancelled.
type Presenter interface {
	PromptForLinkDetails() (LinkDetails, bool)
	// PromptForImageFile returns the picked image. ok is false when the user
	// picked nothing; a non-nil error means the picked file could not be read.
	PromptForImageFile() (image []byte, ok bool, err error)
	PromptForText(prompt TextPrompt, initial string) (string, bool)
	// ChooseLink returns the id of the selected link. A zero id with ok set
	// means the user confirmed without selecting anything.
	ChooseLink(links []speeddial.Link) (int64, bool)
	Confirm(message string) bool
	Notify(notice Notice)
	Render(view View)
	OpenExternal(url string) error
}
