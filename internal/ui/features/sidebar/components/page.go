package components

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/leapstack-labs/sidebar/internal/sidebar"
	"github.com/leapstack-labs/sidebar/internal/ui/resources"
)

// DatastarScript is the client runtime loaded by every page.
const DatastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

// Page renders the full document around the sidebar.
func Page(title string, isDev bool, v sidebar.View) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var h html
		h.WriteString("<!doctype html>")
		h.open("html", attr("lang", "en"))

		h.open("head")
		h.open("meta", attr("charset", "utf-8"))
		h.open("meta", attr("name", "viewport"), attr("content", "width=device-width, initial-scale=1"))
		h.element("title", title+" - Sidebar")
		h.open("link", attr("rel", "stylesheet"), attr("href", resources.StaticPath("sidebar.css")))
		h.element("script", "", attr("type", "module"), attr("src", DatastarScript))
		h.close("head")

		h.open("body",
			attr("data-signals:history-search", jsString(v.HistoryQuery)),
			attr("data-init", "@get('/updates')"),
		)
		if isDev {
			h.element("div", "", attr("data-init", "@get('/reload')"))
		}
		h.open("main", attr("class", "sidebar-shell"))
		writeSidebar(&h, v)
		h.close("main")
		h.close("body")

		h.close("html")
		_, err := io.WriteString(w, h.String())
		return err
	})
}
