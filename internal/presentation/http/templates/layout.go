package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

func documentTitle(title string) string {
	if title == "" || title == SiteName {
		return SiteName
	}
	return title + " • " + SiteName
}

// layout wraps body in the shared document shell.
func layout(title string, body func(ctx context.Context, h *htmlWriter)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		h := &htmlWriter{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(documentTitle(title))
		h.raw(`</title>`)
		h.raw(`<link rel="icon" type="image/svg+xml" href="/favicon.ico">`)
		h.raw(`<link rel="stylesheet" href="/static/style.css">`)
		h.raw(`</head><body><main>`)
		body(ctx, h)
		h.raw(`</main></body></html>`)
		return h.err
	})
}

// ErrorPage renders a full-page error message.
func ErrorPage(data ErrorPageData) templ.Component {
	return layout(data.Title, func(_ context.Context, h *htmlWriter) {
		h.raw(`<section class="error-page"><h1>`)
		h.text(data.StatusLabel)
		h.raw(`</h1><p>`)
		h.text(data.Message)
		h.raw(`</p><p><a class="button" href="/">Back to launcher</a></p></section>`)
	})
}
