package http

import (
	"bytes"
	"context"
	"fmt"
	stdhttp "net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"quicklink/app/internal/domain/speeddial"
	"quicklink/app/internal/launcher"
	"quicklink/app/internal/presentation/http/templates"
)

const displayURLLimit = 40

func renderComponent(ctx context.Context, component templ.Component) ([]byte, error) {
	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		return nil, eris.Wrap(err, "error rendering component")
	}
	return buf.Bytes(), nil
}

func (s *Server) renderLauncher(ctx context.Context, p *formPresenter) (*htmlResponse, error) {
	if p.view == nil {
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	body, err := renderComponent(ctx, templates.LauncherPage(launcherPageData(*p.view, p.notices)))
	if err != nil {
		s.recordError(ctx, err, "rendering launcher page", logrus.Fields{"page_id": p.view.PageID})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't render this page.")
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func launcherPageData(view launcher.View, notices []launcher.Notice) templates.LauncherPageData {
	data := templates.LauncherPageData{
		Title:             view.Title,
		PageNumber:        view.PageNumber,
		PageCount:         view.PageCount,
		HasPrevious:       view.HasPrevious,
		HasNext:           view.HasNext,
		Slots:             make([]templates.SlotView, 0, len(view.Slots)),
		Links:             make([]templates.LinkOption, 0, len(view.Links)),
		Notices:           make([]templates.NoticeView, 0, len(notices)),
		DefaultPageTitle:  speeddial.DefaultPageTitle,
		ConfirmDeleteLink: launcher.ConfirmDeleteLink,
		ConfirmDeletePage: launcher.ConfirmDeletePage,
	}

	for _, slot := range view.Slots {
		item := templates.SlotView{Position: slot.Position}
		if slot.Occupied() {
			id := strconv.FormatInt(slot.LinkID, 10)
			item.Occupied = true
			item.Label = slot.Label
			item.URL = slot.URL
			item.OpenPath = "/links/" + id + "/open"
			item.HasImage = slot.HasImage
			if slot.HasImage {
				item.ImagePath = "/links/" + id + "/image"
			}
		}
		data.Slots = append(data.Slots, item)
	}

	for _, link := range view.Links {
		label := link.Title
		if label == "" {
			label = "Untitled link"
		}
		data.Links = append(data.Links, templates.LinkOption{
			ID:    link.ID,
			Label: label,
			URL:   shortenURL(link.URL),
		})
	}

	for _, notice := range notices {
		data.Notices = append(data.Notices, templates.NoticeView{
			Kind:    notice.Kind.String(),
			Title:   notice.Title,
			Message: notice.Message,
		})
	}

	return data
}

func shortenURL(raw string) string {
	runes := []rune(raw)
	if len(runes) <= displayURLLimit {
		return raw
	}
	return string(runes[:displayURLLimit-3]) + "..."
}

func newHTMLResponse(status int, body []byte) *htmlResponse {
	return &htmlResponse{
		Status:      status,
		ContentType: htmlContentType,
		Body:        body,
	}
}

func (s *Server) renderErrorResponse(ctx context.Context, status int, message string) (*htmlResponse, error) {
	label := fmt.Sprintf("%d %s", status, stdhttp.StatusText(status))
	template := templates.ErrorPage(templates.ErrorPageData{
		Title:       label,
		StatusLabel: label,
		Message:     message,
	})

	body, err := renderComponent(ctx, template)
	if err != nil {
		s.recordError(ctx, err, "rendering error page", logrus.Fields{"status": status})
		fallback := []byte(fmt.Sprintf("<html><body><h1>%s</h1><p>%s</p></body></html>", label, templ.EscapeString(message)))
		return newHTMLResponse(status, fallback), nil
	}

	return newHTMLResponse(status, body), nil
}
