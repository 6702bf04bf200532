// Package components renders the sidebar as HTML templ components.
package components

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/a-h/templ"

	"github.com/leapstack-labs/sidebar/internal/sidebar"
)

// html accumulates markup; every dynamic value goes through templ escaping.
type html struct {
	strings.Builder
}

func (h *html) open(tag string, attrs ...sidebar.Attr) {
	h.WriteByte('<')
	h.WriteString(tag)
	h.attrs(attrs)
	h.WriteByte('>')
}

func (h *html) close(tag string) {
	h.WriteString("</")
	h.WriteString(tag)
	h.WriteByte('>')
}

func (h *html) attrs(attrs []sidebar.Attr) {
	for _, a := range attrs {
		h.WriteByte(' ')
		h.WriteString(a.Name)
		if a.Value == "" && isBoolAttr(a.Name) {
			continue
		}
		h.WriteString(`="`)
		h.WriteString(templ.EscapeString(a.Value))
		h.WriteByte('"')
	}
}

func (h *html) text(s string) {
	h.WriteString(templ.EscapeString(s))
}

// element writes <tag attrs>text</tag>.
func (h *html) element(tag, text string, attrs ...sidebar.Attr) {
	h.open(tag, attrs...)
	h.text(text)
	h.close(tag)
}

func isBoolAttr(name string) bool {
	switch name {
	case "hidden", "disabled":
		return true
	default:
		return false
	}
}

func attr(name, value string) sidebar.Attr {
	return sidebar.Attr{Name: name, Value: value}
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// post returns a datastar expression posting to path.
func post(path string) string {
	return "@post(" + jsString(path) + ")"
}

func pathSegment(s string) string {
	return url.PathEscape(s)
}

// activateOnKeys runs action on Enter or Space.
func activateOnKeys(action string) string {
	return "(evt.key === 'Enter' || evt.key === ' ') && (evt.preventDefault(), " + action + ")"
}
