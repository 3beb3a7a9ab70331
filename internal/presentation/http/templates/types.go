package templates

// SiteName is appended to every document title.
const SiteName = "QuickLink"

// NoticeView is a message rendered above the grid.
type NoticeView struct {
	Kind    string
	Title   string
	Message string
}

// SlotView represents one tile of the 4x4 grid.
type SlotView struct {
	Position  int
	Occupied  bool
	Label     string
	URL       string
	OpenPath  string
	ImagePath string
	HasImage  bool
}

// LinkOption is an entry of the delete-link picker.
type LinkOption struct {
	ID    int64
	Label string
	URL   string
}

// LauncherPageData bundles everything the launcher page renders.
type LauncherPageData struct {
	Title             string
	PageNumber        int
	PageCount         int
	HasPrevious       bool
	HasNext           bool
	Slots             []SlotView
	Links             []LinkOption
	Notices           []NoticeView
	DefaultPageTitle  string
	ConfirmDeleteLink string
	ConfirmDeletePage string
}

// ErrorPageData holds information for rendering an error view.
type ErrorPageData struct {
	Title       string
	StatusLabel string
	Message     string
}
