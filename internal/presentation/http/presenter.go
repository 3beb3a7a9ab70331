package http

import (
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"quicklink/app/internal/domain/speeddial"
	"quicklink/app/internal/launcher"
)

// formPresenter answers launcher prompts from a submitted form and collects
// the output of one intent. It lives for a single request.
type formPresenter struct {
	values        map[string][]string
	files         map[string][]*multipart.FileHeader
	maxImageBytes int64

	notices  []launcher.Notice
	view     *launcher.View
	redirect string
}

var _ launcher.Presenter = (*formPresenter)(nil)

func newFormPresenter(form *multipart.Form, maxImageBytes int64) *formPresenter {
	p := &formPresenter{maxImageBytes: maxImageBytes}
	if form != nil {
		p.values = form.Value
		p.files = form.File
	}
	return p
}

func (p *formPresenter) value(name string) (string, bool) {
	values, ok := p.values[name]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func (p *formPresenter) imageHeader() *multipart.FileHeader {
	headers := p.files["image"]
	if len(headers) == 0 || headers[0] == nil || headers[0].Size == 0 {
		return nil
	}
	return headers[0]
}

func (p *formPresenter) PromptForLinkDetails() (launcher.LinkDetails, bool) {
	rawURL, ok := p.value("url")
	if !ok {
		return launcher.LinkDetails{}, false
	}
	title, _ := p.value("title")

	return launcher.LinkDetails{
		URL:        rawURL,
		Title:      title,
		WantsImage: p.imageHeader() != nil,
	}, true
}

// PromptForImageFile reads at most one byte past the limit so the link
// service can reject oversized images.
func (p *formPresenter) PromptForImageFile() ([]byte, bool, error) {
	header := p.imageHeader()
	if header == nil {
		return nil, false, nil
	}

	file, err := header.Open()
	if err != nil {
		return nil, false, eris.Wrapf(err, "opening uploaded image %q", header.Filename)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, p.maxImageBytes+1))
	if err != nil {
		return nil, false, eris.Wrapf(err, "reading uploaded image %q", header.Filename)
	}
	return data, true, nil
}

func (p *formPresenter) PromptForText(_ launcher.TextPrompt, _ string) (string, bool) {
	return p.value("title")
}

func (p *formPresenter) ChooseLink(_ []speeddial.Link) (int64, bool) {
	raw, _ := p.value("link_id")
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, true
	}
	return id, true
}

func (p *formPresenter) Confirm(_ string) bool {
	answer, _ := p.value("confirm")
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "yes", "on", "true", "1":
		return true
	default:
		return false
	}
}

func (p *formPresenter) Notify(notice launcher.Notice) {
	p.notices = append(p.notices, notice)
}

func (p *formPresenter) Render(view launcher.View) {
	p.view = &view
}

// OpenExternal redirects the browser to the stored target as typed. Only
// script-bearing schemes are refused.
func (p *formPresenter) OpenExternal(target string) error {
	if target == "" {
		return eris.New("link target is empty")
	}
	if scheme, ok := schemeOf(target); ok {
		switch scheme {
		case "javascript", "data", "vbscript":
			return eris.Errorf("refusing to open %s: link", scheme)
		}
	}

	p.redirect = target
	return nil
}

// schemeOf returns the lower-cased URL scheme of target, ignoring leading
// whitespace and control characters the way browsers do.
func schemeOf(target string) (string, bool) {
	trimmed := strings.TrimLeftFunc(target, func(r rune) bool {
		return r <= ' '
	})
	scheme, _, found := strings.Cut(trimmed, ":")
	if !found || scheme == "" {
		return "", false
	}

	var b strings.Builder
	for _, r := range scheme {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			continue
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '+', r == '-', r == '.':
			b.WriteRune(r)
		default:
			return "", false
		}
	}
	return strings.ToLower(b.String()), b.Len() > 0
}
