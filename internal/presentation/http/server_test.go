package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	stdhttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"quicklink/app/internal/data/database"
	"quicklink/app/internal/data/migrations"
	dataspeeddial "quicklink/app/internal/data/speeddial"
	"quicklink/app/internal/domain/speeddial"
	"quicklink/app/internal/launcher"
)

const testHost = "127.0.0.1:8787"

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d}

func TestHomeRouteRendersSeedPage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 100)
	rec := env.do(t, httptest.NewRequest("GET", "/", nil))

	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	if ct := rec.Header().Get("Content-Type"); ct != htmlContentType {
		t.Fatalf("expected content type %q, got %q", htmlContentType, ct)
	}

	body := rec.Body.String()
	if !contains(body, speeddial.SeedPageTitle) {
		t.Fatalf("expected seed page title in body, got %q", body)
	}

	if !contains(body, "Page 1 of 1") {
		t.Fatalf("expected page indicator in body, got %q", body)
	}

	if count := strings.Count(body, `class="tile empty"`); count != speeddial.SlotsPerPage {
		t.Fatalf("expected %d empty tiles, got %d", speeddial.SlotsPerPage, count)
	}

	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header to be set")
	}
}

func TestAddLinkRedirectsAndRendersTile(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 100)
	rec := env.postForm(t, "/links", map[string]string{"url": "https://go.dev", "title": "Go <3"}, pngHeader)

	if rec.Code != stdhttp.StatusSeeOther {
		t.Fatalf("expected status 303, got %d: %s", rec.Code, rec.Body.String())
	}
	if location := rec.Header().Get("Location"); location != "/" {
		t.Fatalf("expected redirect to /, got %q", location)
	}

	links, err := env.links.ListLinks(context.Background(), env.launcher.CurrentPageID())
	if err != nil {
		t.Fatalf("ListLinks returned error: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(links))
	}
	if links[0].Position != 0 || links[0].Title != "Go <3" {
		t.Fatalf("unexpected stored link: %+v", links[0])
	}
	if !bytes.Equal(links[0].Image, pngHeader) {
		t.Fatalf("expected image bytes to be stored unchanged")
	}

	body := env.do(t, httptest.NewRequest("GET", "/", nil)).Body.String()
	linkID := strconv.FormatInt(links[0].ID, 10)
	if !contains(body, `href="/links/`+linkID+`/open"`) {
		t.Fatalf("expected tile link in body, got %q", body)
	}
	if !contains(body, `src="/links/`+linkID+`/image"`) {
		t.Fatalf("expected tile image in body, got %q", body)
	}
	if !contains(body, "Go &lt;3") {
		t.Fatalf("expected escaped link title in body, got %q", body)
	}
}

func TestAddLinkWithBlankURLRendersNotice(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 100)
	rec := env.postForm(t, "/links", map[string]string{"url": "  ", "title": "Nothing"}, nil)

	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); !contains(body, "Invalid URL") || !contains(body, "Please enter a valid URL.") {
		t.Fatalf("expected invalid url notice, got %q", body)
	}
}

func TestAddLinkOnFullPageRendersLimitNotice(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 100)
	for i := 0; i < speeddial.SlotsPerPage; i++ {
		rec := env.postForm(t, "/links", map[string]string{"url": "https://example.com/" + strconv.Itoa(i)}, nil)
		if rec.Code != stdhttp.StatusSeeOther {
			t.Fatalf("expected link %d to be added, got status %d", i, rec.Code)
		}
	}

	rec := env.postForm(t, "/links", map[string]string{"url": "https://overflow.example"}, nil)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); !contains(body, "This page already contains the maximum of 16 links.") {
		t.Fatalf("expected limit notice, got %q", body)
	}
}

func TestLinkImageRouteServesBytes(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 100)
	env.postForm(t, "/links", map[string]string{"url": "https://img.example"}, pngHeader)
	env.postForm(t, "/links", map[string]string{"url": "https://plain.example"}, nil)

	links, err := env.links.ListLinks(context.Background(), env.launcher.CurrentPageID())
	if err != nil || len(links) != 2 {
		t.Fatalf("expected 2 links, got %d (err %v)", len(links), err)
	}

	rec := env.do(t, httptest.NewRequest("GET", "/links/"+strconv.FormatInt(links[0].ID, 10)+"/image", nil))
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %q", ct)
	}
	if !bytes.Equal(rec.Body.Bytes(), pngHeader) {
		t.Fatalf("expected image bytes in body")
	}

	missing := env.do(t, httptest.NewRequest("GET", "/links/"+strconv.FormatInt(links[1].ID, 10)+"/image", nil))
	if missing.Code != stdhttp.StatusNotFound {
		t.Fatalf("expected status 404 for link without image, got %d", missing.Code)
	}
}

func TestOpenLinkRedirectsToTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		target  string
		blocked bool
	}{
		{name: "https", target: "https://example.com/docs?q=1"},
		{name: "scheme-less", target: "example.org"},
		{name: "local path", target: "/home/me/report.pdf"},
		{name: "file url", target: "file:///home/me/report.pdf"},
		{name: "mailto", target: "mailto:me@example.org"},
		{name: "javascript", target: "javascript:alert(1)", blocked: true},
		{name: "javascript with padding", target: " JavaScript:alert(1)", blocked: true},
		{name: "javascript with tab", target: "java\tscript:alert(1)", blocked: true},
		{name: "data", target: "data:text/html,<b>x</b>", blocked: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t, 100)
			env.postForm(t, "/links", map[string]string{"url": tt.target}, nil)

			links, err := env.links.ListLinks(context.Background(), env.launcher.CurrentPageID())
			if err != nil || len(links) != 1 {
				t.Fatalf("expected 1 link, got %d (err %v)", len(links), err)
			}

			rec := env.do(t, httptest.NewRequest("GET", "/links/"+strconv.FormatInt(links[0].ID, 10)+"/open", nil))
			if tt.blocked {
				if rec.Code != stdhttp.StatusOK {
					t.Fatalf("expected status 200 for refused target, got %d", rec.Code)
				}
				if !contains(rec.Body.String(), "The link could not be opened.") {
					t.Fatalf("expected open failure notice, got %q", rec.Body.String())
				}
				return
			}

			if rec.Code != stdhttp.StatusFound {
				t.Fatalf("expected status 302, got %d", rec.Code)
			}
			if location := rec.Header().Get("Location"); location != links[0].URL {
				t.Fatalf("expected redirect to stored target %q, got %q", links[0].URL, location)
			}
		})
	}
}

func TestDeleteLinkRequiresSelectionAndConfirmation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 100)

	empty := env.postForm(t, "/links/delete", map[string]string{"confirm": "yes"}, nil)
	if !contains(empty.Body.String(), "There are no links that can be deleted on this page.") {
		t.Fatalf("expected no link notice, got %q", empty.Body.String())
	}

	env.postForm(t, "/links", map[string]string{"url": "https://delete.example"}, nil)
	links, _ := env.links.ListLinks(context.Background(), env.launcher.CurrentPageID())
	if len(links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(links))
	}
	linkID := strconv.FormatInt(links[0].ID, 10)

	unselected := env.postForm(t, "/links/delete", map[string]string{"link_id": "", "confirm": "yes"}, nil)
	if !contains(unselected.Body.String(), "Please select a link to delete.") {
		t.Fatalf("expected selection notice, got %q", unselected.Body.String())
	}

	unconfirmed := env.postForm(t, "/links/delete", map[string]string{"link_id": linkID}, nil)
	if unconfirmed.Code != stdhttp.StatusSeeOther {
		t.Fatalf("expected status 303 when confirmation is missing, got %d", unconfirmed.Code)
	}
	if count, _ := env.links.CountLinks(context.Background(), env.launcher.CurrentPageID()); count != 1 {
		t.Fatalf("expected link to survive without confirmation, got %d links", count)
	}

	confirmed := env.postForm(t, "/links/delete", map[string]string{"link_id": linkID, "confirm": "yes"}, nil)
	if confirmed.Code != stdhttp.StatusSeeOther {
		t.Fatalf("expected status 303, got %d", confirmed.Code)
	}
	if count, _ := env.links.CountLinks(context.Background(), env.launcher.CurrentPageID()); count != 0 {
		t.Fatalf("expected link to be deleted, got %d links", count)
	}
}

func TestPageLifecycle(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 100)
	first := env.launcher.CurrentPageID()

	denied := env.postForm(t, "/pages/current/delete", map[string]string{"confirm": "yes"}, nil)
	if !contains(denied.Body.String(), "Cannot delete last page.") {
		t.Fatalf("expected last page notice, got %q", denied.Body.String())
	}

	if rec := env.postForm(t, "/pages", map[string]string{"title": "Work"}, nil); rec.Code != stdhttp.StatusSeeOther {
		t.Fatalf("expected status 303 after adding page, got %d", rec.Code)
	}
	second := env.launcher.CurrentPageID()
	if second == first {
		t.Fatalf("expected new page to become current")
	}

	if rec := env.postForm(t, "/pages/current/title", map[string]string{"title": "Work & Play"}, nil); rec.Code != stdhttp.StatusSeeOther {
		t.Fatalf("expected status 303 after renaming, got %d", rec.Code)
	}

	body := env.do(t, httptest.NewRequest("GET", "/", nil)).Body.String()
	if !contains(body, "Work &amp; Play") || !contains(body, "Page 2 of 2") {
		t.Fatalf("expected renamed second page, got %q", body)
	}

	env.do(t, httptest.NewRequest("POST", "/pages/previous", nil))
	if env.launcher.CurrentPageID() != first {
		t.Fatalf("expected previous to move to first page")
	}
	env.do(t, httptest.NewRequest("POST", "/pages/next", nil))
	if env.launcher.CurrentPageID() != second {
		t.Fatalf("expected next to move to second page")
	}

	goTo := env.do(t, httptest.NewRequest("GET", "/pages/"+strconv.FormatInt(first, 10), nil))
	if goTo.Code != stdhttp.StatusOK || env.launcher.CurrentPageID() != first {
		t.Fatalf("expected go to first page, got status %d", goTo.Code)
	}
	env.do(t, httptest.NewRequest("GET", "/pages/"+strconv.FormatInt(second, 10), nil))

	deleted := env.postForm(t, "/pages/current/delete", map[string]string{"confirm": "yes"}, nil)
	if deleted.Code != stdhttp.StatusSeeOther {
		t.Fatalf("expected status 303 after deleting page, got %d", deleted.Code)
	}
	if env.launcher.CurrentPageID() != first {
		t.Fatalf("expected to land on the previous page")
	}
}

func TestStaticAssetsAreServed(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 100)

	css := env.do(t, httptest.NewRequest("GET", "/static/style.css", nil))
	if css.Code != stdhttp.StatusOK || !contains(css.Body.String(), ".grid") {
		t.Fatalf("expected stylesheet, got status %d", css.Code)
	}

	icon := env.do(t, httptest.NewRequest("GET", "/favicon.ico", nil))
	if icon.Code != stdhttp.StatusOK {
		t.Fatalf("expected favicon, got status %d", icon.Code)
	}
	if ct := icon.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Fatalf("expected svg favicon, got %q", ct)
	}
}

func TestRateLimiterMiddlewareCapsRequests(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 3)

	current := time.Unix(0, 0)
	env.server.rateLimiter.now = func() time.Time {
		return current
	}

	for i := 0; i < 3; i++ {
		rec := env.do(t, httptest.NewRequest("GET", "/", nil))
		if rec.Code != stdhttp.StatusOK {
			t.Fatalf("expected request %d to be allowed, got status %d", i+1, rec.Code)
		}
	}

	fourth := env.do(t, httptest.NewRequest("GET", "/", nil))
	if fourth.Code != stdhttp.StatusTooManyRequests {
		t.Fatalf("expected status %d, got %d", stdhttp.StatusTooManyRequests, fourth.Code)
	}

	if header := fourth.Header().Get("Retry-After"); header != "1" {
		t.Fatalf("expected Retry-After header to be 1, got %q", header)
	}

	if body := fourth.Body.String(); !contains(body, "Too Many Requests") || !contains(body, "Please wait a moment") {
		t.Fatalf("expected rate limit message in body, got %q", body)
	}

	current = current.Add(time.Second)

	if rec := env.do(t, httptest.NewRequest("GET", "/", nil)); rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status %d after refill, got %d", stdhttp.StatusOK, rec.Code)
	}
}

func TestHealthRouteReportsDatabaseState(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 100)

	rec := env.do(t, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var payload struct {
		Status      string `json:"status"`
		Database    string `json:"database"`
		CurrentPage int64  `json:"current_page"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decoding health payload: %v", err)
	}
	if payload.Status != "ok" || payload.Database != "ok" || payload.CurrentPage != env.launcher.CurrentPageID() {
		t.Fatalf("unexpected health payload: %+v", payload)
	}

	if err := database.Close(env.db); err != nil {
		t.Fatalf("closing database: %v", err)
	}

	degraded := env.do(t, httptest.NewRequest("GET", "/healthz", nil))
	if degraded.Code != stdhttp.StatusServiceUnavailable {
		t.Fatalf("expected status 503 after closing the database, got %d", degraded.Code)
	}
}

func TestStorageFailureRendersErrorPage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 100)
	if err := database.Close(env.db); err != nil {
		t.Fatalf("closing database: %v", err)
	}

	rec := env.do(t, httptest.NewRequest("GET", "/", nil))
	if rec.Code != stdhttp.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	if !contains(rec.Body.String(), "could not be accessed") {
		t.Fatalf("expected storage error message, got %q", rec.Body.String())
	}
}

func TestNewServerValidatesOptions(t *testing.T) {
	t.Parallel()

	if _, err := NewServer(Options{}); err == nil {
		t.Fatalf("expected error without launcher")
	}

	env := newTestEnv(t, 100)
	if _, err := NewServer(Options{Launcher: env.launcher}); err == nil {
		t.Fatalf("expected error without rate limiter settings")
	}
}

func TestClientIPIgnoresForwardedHeadersFromRemotePeers(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	if ip := clientIPFromRequest(req); ip != "192.0.2.10" {
		t.Fatalf("expected peer address, got %q", ip)
	}

	req.RemoteAddr = "127.0.0.1:5555"
	if ip := clientIPFromRequest(req); ip != "203.0.113.9" {
		t.Fatalf("expected forwarded address from loopback proxy, got %q", ip)
	}
}

// helper utilities

func TestCrossSiteFormPostIsRefused(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		host    string
		headers map[string]string
	}{
		{
			name:    "cross-site fetch metadata",
			headers: map[string]string{"Sec-Fetch-Site": "cross-site", "Origin": "https://evil.example"},
		},
		{
			name:    "same-site neighbour",
			headers: map[string]string{"Sec-Fetch-Site": "same-site"},
		},
		{
			name:    "origin mismatch",
			headers: map[string]string{"Origin": "http://localhost:3000"},
		},
		{
			name:    "opaque origin",
			headers: map[string]string{"Origin": "null"},
		},
		{
			name: "rebound host",
			host: "evil.example:8787",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t, 100)
			if rec := env.postForm(t, "/pages", map[string]string{"title": "Second"}, nil); rec.Code != stdhttp.StatusSeeOther {
				t.Fatalf("expected same-origin add page to redirect, got %d", rec.Code)
			}
			pageID := env.launcher.CurrentPageID()

			req := newFormRequest(t, "/pages/current/delete", map[string]string{"confirm": "yes"}, nil)
			if tt.host != "" {
				req.Host = tt.host
			}
			for name, value := range tt.headers {
				req.Header.Set(name, value)
			}

			rec := env.do(t, req)
			if rec.Code != stdhttp.StatusForbidden {
				t.Fatalf("expected status 403, got %d", rec.Code)
			}
			if !contains(rec.Body.String(), refusedMessage) {
				t.Fatalf("expected refusal page, got %q", rec.Body.String())
			}

			var pages int64
			if err := env.db.Table("pages").Count(&pages).Error; err != nil {
				t.Fatalf("counting pages: %v", err)
			}
			if pages != 2 {
				t.Fatalf("expected both pages to survive, got %d", pages)
			}
			if env.launcher.CurrentPageID() != pageID {
				t.Fatalf("expected current page %d to stay selected, got %d", pageID, env.launcher.CurrentPageID())
			}
		})
	}
}

func TestSameOriginFormPostIsAccepted(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 100)

	req := newFormRequest(t, "/pages", map[string]string{"title": "Second"}, nil)
	req.Host = "localhost:8787"
	req.Header.Set("Origin", "http://localhost:8787")
	req.Header.Set("Sec-Fetch-Site", "same-origin")

	rec := env.do(t, req)
	if rec.Code != stdhttp.StatusSeeOther {
		t.Fatalf("expected status 303, got %d", rec.Code)
	}
	if location := rec.Header().Get("Location"); location != "/" {
		t.Fatalf("expected redirect to /, got %q", location)
	}
}

func TestReadsFromUnknownHostAreRefused(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 100)

	req := httptest.NewRequest("GET", "/", nil)
	req.Host = "rebind.example"
	if rec := env.do(t, req); rec.Code != stdhttp.StatusForbidden {
		t.Fatalf("expected status 403 for unknown host, got %d", rec.Code)
	}

	for _, host := range []string{"localhost", "dial.localhost:8787", "[::1]:8787", "127.0.0.2"} {
		req := httptest.NewRequest("GET", "/", nil)
		req.Host = host
		if rec := env.do(t, req); rec.Code != stdhttp.StatusOK {
			t.Fatalf("expected loopback host %q to be served, got %d", host, rec.Code)
		}
	}
}

func TestConfiguredHostsAreServed(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 100, withAllowedHosts("Dial.LAN"))

	req := httptest.NewRequest("GET", "/", nil)
	req.Host = "dial.lan:8787"
	if rec := env.do(t, req); rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected configured host to be served, got %d", rec.Code)
	}
}

func TestOversizedUploadRendersImageNotice(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 100, withMaxImageBytes(1024))

	image := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 1024+formBodyOverhead)...)
	rec := env.postForm(t, "/links", map[string]string{"url": "https://example.com", "title": "Big"}, image)

	if rec.Code != stdhttp.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != htmlContentType {
		t.Fatalf("expected html response, got %q", ct)
	}
	body := rec.Body.String()
	if !contains(body, "Invalid Image") || !contains(body, "The selected image is too large.") {
		t.Fatalf("expected image notice on launcher page, got %q", body)
	}
	if !contains(body, speeddial.SeedPageTitle) {
		t.Fatalf("expected launcher page to be rendered, got %q", body)
	}

	count, err := env.links.CountLinks(context.Background(), env.launcher.CurrentPageID())
	if err != nil {
		t.Fatalf("CountLinks returned error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no link to be saved, got %d", count)
	}
}

func TestOversizedFormRendersNotice(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 100)

	rec := env.postForm(t, "/pages", map[string]string{"title": strings.Repeat("x", defaultFormBodyBytes)}, nil)
	if rec.Code != stdhttp.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rec.Code)
	}
	if !contains(rec.Body.String(), "The submitted form is too large.") {
		t.Fatalf("expected form notice, got %q", rec.Body.String())
	}
}

type testEnv struct {
	server   *Server
	launcher *launcher.Launcher
	links    speeddial.LinkService
	db       *gorm.DB
}

type testOption func(*Options)

func withAllowedHosts(hosts ...string) testOption {
	return func(opts *Options) {
		opts.AllowedHosts = hosts
	}
}

func withMaxImageBytes(limit int64) testOption {
	return func(opts *Options) {
		opts.MaxImageBytes = limit
	}
}

func newTestEnv(t *testing.T, burst int, options ...testOption) *testEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	ctx := context.Background()

	db, err := database.Open(database.Options{Path: filepath.Join(t.TempDir(), "http.db")})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close(db)
	})

	if err := migrations.MigrateSpeedDial(ctx, db, logger); err != nil {
		t.Fatalf("migrating database: %v", err)
	}

	pageRepo, err := dataspeeddial.NewPageRepository(db, logger)
	if err != nil {
		t.Fatalf("NewPageRepository returned error: %v", err)
	}
	linkRepo, err := dataspeeddial.NewLinkRepository(db, logger)
	if err != nil {
		t.Fatalf("NewLinkRepository returned error: %v", err)
	}

	pages, err := speeddial.NewPageService(pageRepo, logger, nil)
	if err != nil {
		t.Fatalf("NewPageService returned error: %v", err)
	}
	links, err := speeddial.NewLinkService(speeddial.LinkServiceOptions{Links: linkRepo, Pages: pageRepo, Logger: logger})
	if err != nil {
		t.Fatalf("NewLinkService returned error: %v", err)
	}

	nav, err := speeddial.NewNavigator(pages)
	if err != nil {
		t.Fatalf("NewNavigator returned error: %v", err)
	}
	if _, err := nav.Start(ctx); err != nil {
		t.Fatalf("starting navigator: %v", err)
	}

	l, err := launcher.New(launcher.Options{Pages: pages, Links: links, Navigator: nav, Logger: logger})
	if err != nil {
		t.Fatalf("launcher.New returned error: %v", err)
	}

	opts := Options{
		Launcher: l,
		Database: db,
		Logger:   logger,
		RateLimiter: RateLimiterSettings{
			Burst:             burst,
			RequestsPerSecond: float64(burst),
			ClientTTL:         time.Minute,
		},
	}
	for _, option := range options {
		option(&opts)
	}

	srv, err := NewServer(opts)
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, launcher: l, links: links, db: db}
}

// do serves req. Requests left on httptest's default host are sent to the
// loopback address the launcher listens on.
func (e *testEnv) do(t *testing.T, req *stdhttp.Request) *httptest.ResponseRecorder {
	t.Helper()

	if req.Host == "example.com" {
		req.Host = testHost
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

// postForm submits a multipart form. A non-nil image is attached as the
// "image" file field.
func (e *testEnv) postForm(t *testing.T, path string, fields map[string]string, image []byte) *httptest.ResponseRecorder {
	t.Helper()

	return e.do(t, newFormRequest(t, path, fields, image))
}

func newFormRequest(t *testing.T, path string, fields map[string]string, image []byte) *stdhttp.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("writing field %s: %v", name, err)
		}
	}
	if image != nil {
		part, err := writer.CreateFormFile("image", "tile.png")
		if err != nil {
			t.Fatalf("creating file field: %v", err)
		}
		if _, err := part.Write(image); err != nil {
			t.Fatalf("writing file field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	req := httptest.NewRequest("POST", path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func contains(body, substring string) bool {
	return strings.Contains(body, substring)
}
