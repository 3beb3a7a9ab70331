package http

import (
	"context"
	"fmt"
	"net"
	stdhttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"quicklink/app/internal/launcher"
)

const (
	rateLimitMessage   = "Too many requests from this browser. Please wait a moment and try again."
	panicMessage       = "The launcher hit an unexpected problem. Please reload the page."
	refusedMessage     = "This request did not come from the launcher page and was refused."
	sentryFlushTimeout = 2 * time.Second
)

var noticeFormTooLarge = launcher.Notice{Kind: launcher.NoticeWarning, Title: "Request Too Large", Message: "The submitted form is too large."}

type middleware func(huma.Context, func(huma.Context))

// requestFields collects the log fields shared by every middleware line.
func requestFields(ctx huma.Context) logrus.Fields {
	fields := logrus.Fields{
		"component": "http",
		"method":    ctx.Method(),
	}
	if op := ctx.Operation(); op != nil {
		fields["route"] = op.Path
	}
	if req, _ := humago.Unwrap(ctx); req != nil {
		fields["path"] = req.URL.Path
		fields["client_ip"] = clientIPFromRequest(req)
	}
	if requestID := RequestIDFromContext(ctx.Context()); requestID != "" {
		fields["request_id"] = requestID
	}
	return fields
}

// writeHTML flushes a rendered page outside of huma's response pipeline.
func writeHTML(ctx huma.Context, resp *htmlResponse) {
	ctx.SetHeader("Content-Type", htmlContentType)
	ctx.SetStatus(resp.Status)
	if len(resp.Body) > 0 {
		_, _ = ctx.BodyWriter().Write(resp.Body)
	}
}

func (s *Server) requestIDMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		reqID := uuid.NewString()
		ctx = huma.WithContext(ctx, context.WithValue(ctx.Context(), requestIDContextKey, reqID))
		ctx.SetHeader("X-Request-ID", reqID)

		if hub := sentry.GetHubFromContext(ctx.Context()); hub != nil {
			hub.Scope().SetTag("request_id", reqID)
		}

		next(ctx)
	}
}

// rateLimitMiddleware answers over-budget clients with a 429 page before the
// launcher is touched.
func (s *Server) rateLimitMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		req, _ := humago.Unwrap(ctx)
		if s.rateLimiter == nil || req == nil || s.rateLimiter.Allow(clientIPFromRequest(req)) {
			next(ctx)
			return
		}

		entry := s.logger.WithFields(requestFields(ctx))
		entry.WithError(eris.New("rate limit exceeded")).Warn("request rate limited")

		resp, err := s.renderErrorResponse(ctx.Context(), stdhttp.StatusTooManyRequests, rateLimitMessage)
		if err != nil {
			entry.WithError(err).Error("rendering rate limit response failed")
			ctx.SetStatus(stdhttp.StatusTooManyRequests)
			return
		}

		ctx.SetHeader("Retry-After", "1")
		writeHTML(ctx, resp)
	}
}

// originGuardMiddleware refuses requests addressed to a host name the launcher
// does not answer to, and form posts sent from another site.
func (s *Server) originGuardMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		req, _ := humago.Unwrap(ctx)
		if req == nil {
			next(ctx)
			return
		}

		reason := s.refusalReason(req)
		if reason == "" {
			next(ctx)
			return
		}

		entry := s.logger.WithFields(requestFields(ctx))
		entry.WithFields(logrus.Fields{
			"reason": reason,
			"host":   req.Host,
			"origin": req.Header.Get("Origin"),
		}).Warn("request refused")

		resp, err := s.renderErrorResponse(ctx.Context(), stdhttp.StatusForbidden, refusedMessage)
		if err != nil {
			entry.WithError(err).Error("rendering refusal response failed")
			ctx.SetStatus(stdhttp.StatusForbidden)
			return
		}
		writeHTML(ctx, resp)
	}
}

// refusalReason returns why req must not reach the launcher, or "" when it
// may. Safe methods only need an allowed Host.
func (s *Server) refusalReason(req *stdhttp.Request) string {
	if !s.hostAllowed(req.Host) {
		return "unexpected host"
	}

	switch req.Method {
	case stdhttp.MethodGet, stdhttp.MethodHead, stdhttp.MethodOptions:
		return ""
	}

	switch strings.ToLower(strings.TrimSpace(req.Header.Get("Sec-Fetch-Site"))) {
	case "", "same-origin", "none":
	default:
		return "cross-site request"
	}

	if origin := req.Header.Get("Origin"); origin != "" {
		parsed, err := url.Parse(origin)
		if err != nil || parsed.Host == "" || !strings.EqualFold(parsed.Host, req.Host) {
			return "origin mismatch"
		}
	}
	return ""
}

// hostAllowed accepts loopback names and addresses plus the configured hosts.
// Anything else is treated as a rebound DNS name.
func (s *Server) hostAllowed(hostport string) bool {
	host := hostName(hostport)
	switch {
	case host == "":
		return false
	case host == "localhost", strings.HasSuffix(host, ".localhost"):
		return true
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return true
	}
	_, ok := s.allowedHosts[host]
	return ok
}

// hostName strips the port and brackets from a Host value and lowercases it.
func hostName(hostport string) string {
	host := strings.TrimSpace(hostport)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.Trim(host, "[]"), ".")
	return strings.ToLower(host)
}

// bodyLimitMiddleware caps request bodies at the route limit. Uploads whose
// declared length is over the limit get the launcher page with a notice, and
// undeclared lengths are cut off while the form is read.
func (s *Server) bodyLimitMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		req, w := humago.Unwrap(ctx)
		if req == nil {
			next(ctx)
			return
		}

		limit := int64(defaultFormBodyBytes)
		path := ""
		if op := ctx.Operation(); op != nil {
			path = op.Path
			if op.MaxBodyBytes > 0 {
				limit = op.MaxBodyBytes
			}
		}

		if req.ContentLength <= limit {
			req.Body = stdhttp.MaxBytesReader(w, req.Body, limit)
			next(ctx)
			return
		}

		entry := s.logger.WithFields(requestFields(ctx)).WithFields(logrus.Fields{
			"content_length": req.ContentLength,
			"limit":          limit,
		})
		entry.Warn("request body too large")

		notice := noticeFormTooLarge
		if path == linksPath {
			notice = launcher.NoticeImageTooLarge
		}

		p := newFormPresenter(nil, s.maxImageBytes)
		var resp *htmlResponse
		err := s.launcher.Show(ctx.Context(), p)
		if err == nil {
			p.Notify(notice)
			resp, err = s.renderLauncher(ctx.Context(), p)
		} else {
			s.recordError(ctx.Context(), err, "showing page", nil)
			resp, err = s.renderErrorResponse(ctx.Context(), stdhttp.StatusRequestEntityTooLarge, notice.Message)
		}
		if err != nil {
			entry.WithError(err).Error("rendering body limit response failed")
			ctx.SetStatus(stdhttp.StatusRequestEntityTooLarge)
			return
		}

		if resp.Status == stdhttp.StatusOK {
			resp.Status = stdhttp.StatusRequestEntityTooLarge
		}
		ctx.SetHeader("Connection", "close")
		writeHTML(ctx, resp)
	}
}

func (s *Server) loggingMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()
		next(ctx)

		status := ctx.Status()
		if status == 0 {
			status = stdhttp.StatusOK
		}

		fields := requestFields(ctx)
		fields["status"] = status
		fields["duration_ms"] = float64(time.Since(start).Microseconds()) / 1000
		if s.launcher != nil {
			fields["page_id"] = s.launcher.CurrentPageID()
		}

		entry := s.logger.WithFields(fields)
		switch {
		case status >= stdhttp.StatusInternalServerError:
			entry.Error("request failed")
		case status == stdhttp.StatusTooManyRequests:
			entry.Warn("request throttled")
		default:
			entry.Info("request completed")
		}
	}
}

func (s *Server) recoveryMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			err, ok := rec.(error)
			if !ok {
				err = eris.New(fmt.Sprint(rec))
			}
			s.recordError(ctx.Context(), eris.Wrap(err, "panic while serving request"), "panic recovered", requestFields(ctx))

			if hub := sentry.GetHubFromContext(ctx.Context()); hub != nil {
				hub.RecoverWithContext(ctx.Context(), rec)
				hub.Flush(sentryFlushTimeout)
			}

			resp, renderErr := s.renderErrorResponse(ctx.Context(), stdhttp.StatusInternalServerError, panicMessage)
			if renderErr != nil {
				ctx.SetStatus(stdhttp.StatusInternalServerError)
				return
			}
			writeHTML(ctx, resp)
		}()

		next(ctx)
	}
}

// sentryMiddleware gives every request its own hub so scope tags do not leak
// between concurrent requests.
func (s *Server) sentryMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.sentry == nil {
			next(ctx)
			return
		}

		hub := s.sentry.Clone()
		hub.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetTag("http.method", ctx.Method())
			if op := ctx.Operation(); op != nil {
				scope.SetTag("http.route", op.Path)
			}
			if req, _ := humago.Unwrap(ctx); req != nil {
				scope.SetRequest(req)
			}
		})

		ctx = huma.WithContext(ctx, sentry.SetHubOnContext(ctx.Context(), hub))
		defer hub.Flush(sentryFlushTimeout)

		next(ctx)
	}
}

// clientIPFromRequest keys the limiter by peer address. Forwarding headers are
// honoured only when the peer itself is a loopback proxy.
func clientIPFromRequest(req *stdhttp.Request) string {
	if req == nil {
		return ""
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = strings.TrimSpace(req.RemoteAddr)
	}

	if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
		return host
	}

	if forwarded, _, _ := strings.Cut(req.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(forwarded) != "" {
		return strings.TrimSpace(forwarded)
	}
	if realIP := strings.TrimSpace(req.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return host
}
