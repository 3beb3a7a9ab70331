package http

import (
	"bytes"
	"embed"
	"io/fs"
	stdhttp "net/http"
	"time"

	"github.com/rotisserie/eris"
)

//go:embed static/*
var staticFiles embed.FS

//go:embed static/favicon.svg
var favicon []byte

const assetCacheControl = "public, max-age=86400"

// faviconHandler answers the browser's implicit /favicon.ico request with the
// embedded SVG icon.
func faviconHandler(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", assetCacheControl)
	stdhttp.ServeContent(w, r, "favicon.svg", time.Time{}, bytes.NewReader(favicon))
}

func (s *Server) registerStaticRoute() {
	assets, err := fs.Sub(staticFiles, "static")
	if err != nil {
		s.logger.WithError(eris.Wrap(err, "preparing static assets filesystem")).Error("static assets unavailable")
		return
	}

	files := stdhttp.StripPrefix("/static/", stdhttp.FileServer(stdhttp.FS(assets)))
	handler := stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		w.Header().Set("Cache-Control", assetCacheControl)
		files.ServeHTTP(w, r)
	})

	s.mux.Handle("GET /static/", handler)
	s.mux.Handle("HEAD /static/", handler)
}
