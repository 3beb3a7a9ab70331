package speeddial

const (
	// GridColumns is the number of tiles per row on a page.
	GridColumns = 4
	// GridRows is the number of rows on a page.
	GridRows = 4
	// SlotsPerPage is the maximum number of links a page can hold.
	SlotsPerPage = GridColumns * GridRows

	// DefaultPageTitle is used when a page is created without a title.
	DefaultPageTitle = "New Page"
	// SeedPageTitle names the page created on first run.
	SeedPageTitle = "Quick Access to Everything"
	// DefaultLinkLabel is displayed for links without a title.
	DefaultLinkLabel = "Link"
)

// Page is a named collection of up to SlotsPerPage links.
type Page struct {
	ID    int64
	Title string
}

// Link is a shortcut occupying exactly one slot on one page.
type Link struct {
	ID       int64
	PageID   int64
	URL      string
	Title    string
	Image    []byte
	Position int
}

// Label returns the text shown on the link's tile.
func (l Link) Label() string {
	if l.Title != "" {
		return l.Title
	}
	return DefaultLinkLabel
}

// HasImage reports whether the link carries image bytes.
func (l Link) HasImage() bool {
	return len(l.Image) > 0
}

// Row returns the zero-based grid row of the link.
func (l Link) Row() int {
	return l.Position / GridColumns
}

// Column returns the zero-based grid column of the link.
func (l Link) Column() int {
	return l.Position % GridColumns
}

// NewLink carries the user supplied values for a link that has not been placed yet.
type NewLink struct {
	URL   string
	Title string
	Image []byte
}
