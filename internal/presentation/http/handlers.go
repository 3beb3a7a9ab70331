package http

import (
	"context"
	"mime/multipart"
	stdhttp "net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"quicklink/app/internal/data/database"
	"quicklink/app/internal/domain/speeddial"
	"quicklink/app/internal/launcher"
)

const (
	htmlContentType      = "text/html; charset=utf-8"
	errorFallbackMessage = "We couldn't process your request right now."
	formBodyOverhead     = 64 * 1024
	defaultFormBodyBytes = 1 << 20
	linksPath            = "/links"
)

type htmlResponse struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Location    string `header:"Location"`
	Body        []byte
}

type imageResponse struct {
	Status       int
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

type pageInput struct {
	ID int64 `path:"id"`
}

type linkInput struct {
	ID int64 `path:"id"`
}

type formInput struct {
	RawBody multipart.Form
}

type healthResponse struct {
	Status int
	Body   struct {
		Status      string `json:"status"`
		Database    string `json:"database"`
		CurrentPage int64  `json:"current_page"`
	}
}

// intent runs one launcher intent against the request's presenter.
type intent func(ctx context.Context, p launcher.Presenter) error

func (s *Server) registerPageRoutes() {
	huma.Get(s.api, "/", s.showHandler, htmlOperation("Show current page", stdhttp.StatusInternalServerError))
	huma.Get(s.api, "/pages/{id}", s.goToHandler, htmlOperation("Go to page", stdhttp.StatusInternalServerError))

	huma.Post(s.api, "/pages/previous", s.previousHandler, htmlOperation(
		"Go to previous page",
		stdhttp.StatusSeeOther,
		stdhttp.StatusInternalServerError,
	))
	huma.Post(s.api, "/pages/next", s.nextHandler, htmlOperation(
		"Go to next page",
		stdhttp.StatusSeeOther,
		stdhttp.StatusInternalServerError,
	))
	huma.Post(s.api, "/pages", s.addPageHandler, formOperation("Add page", 0))
	huma.Post(s.api, "/pages/current/title", s.changeTitleHandler, formOperation("Change page title", 0))
	huma.Post(s.api, "/pages/current/delete", s.deletePageHandler, formOperation("Delete current page", 0))
}

func (s *Server) registerLinkRoutes() {
	huma.Post(s.api, linksPath, s.addLinkHandler, formOperation("Add link", s.maxImageBytes+formBodyOverhead))
	huma.Post(s.api, "/links/delete", s.deleteLinkHandler, formOperation("Delete link", 0))

	huma.Get(s.api, "/links/{id}/open", s.openLinkHandler, htmlOperation(
		"Open link",
		stdhttp.StatusFound,
		stdhttp.StatusInternalServerError,
	))
	huma.Get(s.api, "/links/{id}/image", s.linkImageHandler, func(op *huma.Operation) {
		op.Summary = "Link image"
	})
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

func (s *Server) showHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	return s.dispatch(ctx, newFormPresenter(nil, s.maxImageBytes), "showing page", false, s.launcher.Show)
}

func (s *Server) goToHandler(ctx context.Context, input *pageInput) (*htmlResponse, error) {
	return s.dispatch(ctx, newFormPresenter(nil, s.maxImageBytes), "opening page", false, func(ctx context.Context, p launcher.Presenter) error {
		return s.launcher.GoTo(ctx, p, input.ID)
	})
}

func (s *Server) previousHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	return s.dispatch(ctx, newFormPresenter(nil, s.maxImageBytes), "moving to previous page", true, s.launcher.Previous)
}

func (s *Server) nextHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	return s.dispatch(ctx, newFormPresenter(nil, s.maxImageBytes), "moving to next page", true, s.launcher.Next)
}

func (s *Server) addPageHandler(ctx context.Context, input *formInput) (*htmlResponse, error) {
	return s.dispatch(ctx, newFormPresenter(&input.RawBody, s.maxImageBytes), "adding page", true, s.launcher.AddPage)
}

func (s *Server) changeTitleHandler(ctx context.Context, input *formInput) (*htmlResponse, error) {
	return s.dispatch(ctx, newFormPresenter(&input.RawBody, s.maxImageBytes), "changing page title", true, s.launcher.ChangeTitle)
}

func (s *Server) deletePageHandler(ctx context.Context, input *formInput) (*htmlResponse, error) {
	return s.dispatch(ctx, newFormPresenter(&input.RawBody, s.maxImageBytes), "deleting page", true, s.launcher.DeletePage)
}

func (s *Server) addLinkHandler(ctx context.Context, input *formInput) (*htmlResponse, error) {
	defer func() {
		_ = input.RawBody.RemoveAll()
	}()

	return s.dispatch(ctx, newFormPresenter(&input.RawBody, s.maxImageBytes), "adding link", true, s.launcher.AddLink)
}

func (s *Server) deleteLinkHandler(ctx context.Context, input *formInput) (*htmlResponse, error) {
	return s.dispatch(ctx, newFormPresenter(&input.RawBody, s.maxImageBytes), "deleting link", true, s.launcher.DeleteLink)
}

func (s *Server) openLinkHandler(ctx context.Context, input *linkInput) (*htmlResponse, error) {
	p := newFormPresenter(nil, s.maxImageBytes)
	if err := s.launcher.OpenLink(ctx, p, input.ID); err != nil {
		return s.intentFailed(ctx, p, err, "opening link", logrus.Fields{"link_id": input.ID})
	}

	if p.redirect != "" {
		response := newHTMLResponse(stdhttp.StatusFound, nil)
		response.Location = p.redirect
		return response, nil
	}

	return s.renderLauncher(ctx, p)
}

func (s *Server) linkImageHandler(ctx context.Context, input *linkInput) (*imageResponse, error) {
	image, err := s.launcher.LinkImage(ctx, input.ID)
	if err != nil {
		if eris.Is(err, speeddial.ErrNotFound) {
			return nil, huma.Error404NotFound("link has no image")
		}
		s.recordError(ctx, err, "loading link image", logrus.Fields{"link_id": input.ID})
		return nil, huma.Error500InternalServerError(errorFallbackMessage)
	}

	return &imageResponse{
		Status:       stdhttp.StatusOK,
		ContentType:  stdhttp.DetectContentType(image),
		CacheControl: "private, max-age=300",
		Body:         image,
	}, nil
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{}
	resp.Body.Status = "ok"
	resp.Body.Database = "ok"
	resp.Body.CurrentPage = s.launcher.CurrentPageID()

	if err := database.Ping(ctx, s.db); err != nil {
		s.recordError(ctx, err, "database health check failed", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	}

	if resp.Status == 0 {
		resp.Status = stdhttp.StatusOK
	}

	return resp, nil
}

// dispatch runs the intent and turns its outcome into a response. Mutating
// requests that finish without notices redirect back to the launcher so a
// reload does not repeat them.
func (s *Server) dispatch(ctx context.Context, p *formPresenter, op string, mutating bool, run intent) (*htmlResponse, error) {
	if err := run(ctx, p); err != nil {
		return s.intentFailed(ctx, p, err, op, nil)
	}

	if mutating && len(p.notices) == 0 {
		response := newHTMLResponse(stdhttp.StatusSeeOther, nil)
		response.Location = "/"
		return response, nil
	}

	return s.renderLauncher(ctx, p)
}

func (s *Server) intentFailed(ctx context.Context, p *formPresenter, err error, op string, fields logrus.Fields) (*htmlResponse, error) {
	s.recordError(ctx, err, op, fields)

	message := errorFallbackMessage
	for _, notice := range p.notices {
		if notice.Kind == launcher.NoticeError {
			message = notice.Message
		}
	}
	return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, message)
}

func htmlOperation(summary string, statuses ...int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		if summary != "" {
			op.Summary = summary
		}
		if op.Responses == nil {
			op.Responses = map[string]*huma.Response{}
		}

		statusCodes := append([]int{stdhttp.StatusOK}, statuses...)
		for _, status := range statusCodes {
			code := strconv.Itoa(status)
			op.Responses[code] = &huma.Response{
				Description: stdhttp.StatusText(status),
				Content: map[string]*huma.MediaType{
					htmlContentType: {
						Schema: &huma.Schema{Type: "string"},
					},
				},
			}
		}
	}
}

// formOperation describes a multipart form submission. A positive maxBody
// overrides the default request body limit.
func formOperation(summary string, maxBody int64) func(op *huma.Operation) {
	describe := htmlOperation(summary, stdhttp.StatusSeeOther, stdhttp.StatusInternalServerError)
	return func(op *huma.Operation) {
		describe(op)
		if maxBody > 0 {
			op.MaxBodyBytes = maxBody
		}
	}
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		if requestID := RequestIDFromContext(ctx); requestID != "" {
			entry = entry.WithField("request_id", requestID)
		}
		entry.Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}
