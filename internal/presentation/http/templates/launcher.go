package templates

import (
	"context"
	"strconv"

	"github.com/a-h/templ"
)

const multipartForm = ` method="post" enctype="multipart/form-data"`

// LauncherPage renders the current page: toolbar, notices, grid and the
// forms behind each intent.
func LauncherPage(data LauncherPageData) templ.Component {
	return layout(data.Title, func(_ context.Context, h *htmlWriter) {
		renderHeader(h, data)
		renderNotices(h, data.Notices)
		renderGrid(h, data.Slots)
		renderPager(h, data)
		renderAddLinkForm(h)
		renderDeleteLinkForm(h, data)
		renderTitleForm(h, data.Title)
		renderAddPageForm(h, data.DefaultPageTitle)
		renderDeletePageForm(h, data)
	})
}

func renderHeader(h *htmlWriter, data LauncherPageData) {
	h.raw(`<header class="page-header"><h1 id="page-title">`)
	h.text(data.Title)
	h.raw(`</h1></header>`)
}

func renderNotices(h *htmlWriter, notices []NoticeView) {
	for _, notice := range notices {
		h.raw(`<div`)
		h.attr("class", "notice "+notice.Kind)
		h.raw(` role="alert"><strong>`)
		h.text(notice.Title)
		h.raw(`</strong>`)
		h.text(notice.Message)
		h.raw(`</div>`)
	}
}

func renderGrid(h *htmlWriter, slots []SlotView) {
	h.raw(`<section class="grid">`)
	for _, slot := range slots {
		if !slot.Occupied {
			h.rawf(`<div class="tile empty" data-position="%d"></div>`, slot.Position)
			continue
		}

		h.raw(`<a class="tile"`)
		h.attr("href", slot.OpenPath)
		h.attr("title", slot.URL)
		h.attr("data-position", strconv.Itoa(slot.Position))
		h.raw(`>`)
		if slot.HasImage {
			h.raw(`<img`)
			h.attr("src", slot.ImagePath)
			h.attr("alt", slot.Label)
			h.raw(`>`)
		} else {
			h.raw(`<span>`)
			h.text(slot.Label)
			h.raw(`</span>`)
		}
		h.raw(`</a>`)
	}
	h.raw(`</section>`)
}

func renderPager(h *htmlWriter, data LauncherPageData) {
	h.raw(`<nav class="pager">`)
	navButton(h, "/pages/previous", "Previous", data.HasPrevious)
	h.rawf(`<span class="page-indicator">Page %d of %d</span>`, data.PageNumber, data.PageCount)
	navButton(h, "/pages/next", "Next", data.HasNext)
	h.raw(`</nav>`)
}

func navButton(h *htmlWriter, action, label string, enabled bool) {
	h.raw(`<form method="post"`)
	h.attr("action", action)
	h.raw(`><button type="submit"`)
	if !enabled {
		h.raw(` disabled`)
	}
	h.raw(`>`)
	h.text(label)
	h.raw(`</button></form>`)
}

func renderAddLinkForm(h *htmlWriter) {
	h.raw(`<details class="panel"><summary>Add link</summary>`)
	h.raw(`<form class="stacked" action="/links"` + multipartForm + `>`)
	h.raw(`<label>Website URL<input type="text" name="url" required></label>`)
	h.raw(`<label>Link title<input type="text" name="title"></label>`)
	h.raw(`<label>Image (optional)<input type="file" name="image" accept=".png,.jpg,.jpeg,.gif,.bmp,image/*"></label>`)
	h.raw(`<button class="primary" type="submit">Add</button></form></details>`)
}

func renderDeleteLinkForm(h *htmlWriter, data LauncherPageData) {
	h.raw(`<details class="panel"><summary>Delete link</summary>`)
	h.raw(`<form class="stacked" action="/links/delete"` + multipartForm + `>`)
	h.raw(`<label>Select a link to delete<select name="link_id"><option value="">Choose a link</option>`)
	for _, option := range data.Links {
		h.raw(`<option`)
		h.attr("value", strconv.FormatInt(option.ID, 10))
		h.raw(`>`)
		h.text(option.Label + " (" + option.URL + ")")
		h.raw(`</option>`)
	}
	h.raw(`</select></label>`)
	confirmBox(h, data.ConfirmDeleteLink)
	h.raw(`<button class="danger" type="submit">Delete Selected Link</button></form></details>`)
}

func renderTitleForm(h *htmlWriter, current string) {
	h.raw(`<details class="panel"><summary>Change title</summary>`)
	h.raw(`<form class="stacked" action="/pages/current/title"` + multipartForm + `>`)
	h.raw(`<label>Enter new page title<input type="text" name="title"`)
	h.attr("value", current)
	h.raw(`></label><button type="submit">Save</button></form></details>`)
}

func renderAddPageForm(h *htmlWriter, defaultTitle string) {
	h.raw(`<details class="panel"><summary>New page</summary>`)
	h.raw(`<form class="stacked" action="/pages"` + multipartForm + `>`)
	h.raw(`<label>Enter the title of the new page<input type="text" name="title"`)
	h.attr("value", defaultTitle)
	h.raw(`></label><button type="submit">Create</button></form></details>`)
}

func renderDeletePageForm(h *htmlWriter, data LauncherPageData) {
	h.raw(`<details class="panel"><summary>Delete page</summary>`)
	h.raw(`<form class="stacked" action="/pages/current/delete"` + multipartForm + `>`)
	confirmBox(h, data.ConfirmDeletePage)
	h.raw(`<button class="danger" type="submit">Delete page</button></form></details>`)
}

func confirmBox(h *htmlWriter, question string) {
	h.raw(`<label><span><input type="checkbox" name="confirm" value="yes"> `)
	h.text(question)
	h.raw(`</span></label>`)
}
