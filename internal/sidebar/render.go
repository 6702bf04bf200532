package sidebar

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/sidebar/pkg/core"
)

// Provider filters understood by the Providers panel.
const (
	FilterAll       = "all"
	FilterContext   = "context"
	FilterProviders = "providers"
)

// RenderOptions carries explicit user filters. The zero value renders everything.
type RenderOptions struct {
	HistoryQuery    string
	ProvidersFilter string
}

// RenderPanel returns the items of tabID's panel for snap. It is a pure
// function: the same inputs always give the same ordered output. Missing
// collections render as empty lists and unknown tabs render nothing.
func RenderPanel(tabID string, snap core.Snapshot, opts RenderOptions) []core.Item {
	switch tabID {
	case core.TabProviders:
		return renderProviders(snap, opts.ProvidersFilter)
	case core.TabHistory:
		return renderHistory(FilterHistory(snap.History, opts.HistoryQuery))
	case core.TabEnvironment:
		return renderEnvironment(snap.Environment)
	default:
		return []core.Item{}
	}
}

func renderProviders(snap core.Snapshot, filter string) []core.Item {
	items := make([]core.Item, 0, len(snap.ContextItems)+len(snap.Providers))
	if filter != FilterProviders {
		for _, c := range snap.ContextItems {
			items = append(items, catalogItem(c, core.ItemKindContext))
		}
	}
	if filter != FilterContext {
		for _, p := range snap.Providers {
			items = append(items, catalogItem(p, core.ItemKindProvider))
		}
	}
	return items
}

func catalogItem(c core.CatalogItem, kind core.ItemKind) core.Item {
	return core.Item{
		ID:          c.ID,
		Kind:        kind,
		Label:       c.Label,
		Description: c.Description,
		Icon:        c.Icon,
		Interactive: true,
	}
}

func renderHistory(entries []core.HistoryEntry) []core.Item {
	items := make([]core.Item, 0, len(entries))
	for _, e := range entries {
		item := core.Item{
			ID:          e.ID,
			Kind:        core.ItemKindHistory,
			Label:       e.Name,
			Status:      e.Status,
			StatusLabel: StatusLabel(e.Status),
			Time:        FormatTimestamp(e.Timestamp),
			Interactive: true,
			Restorable:  e.HasSnapshot(),
		}
		if n := len(e.PullRequests); n > 0 {
			item.PullRequests = n
			item.PullRequestURL = e.PullRequests[0].URL
		}
		items = append(items, item)
	}
	return items
}

func renderEnvironment(env map[string]string) []core.Item {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]core.Item, 0, len(keys))
	for _, k := range keys {
		items = append(items, core.Item{
			ID:    k,
			Kind:  core.ItemKindEnvironment,
			Label: k,
			Value: env[k],
		})
	}
	return items
}

// StatusLabel returns the upper-cased status shown next to a run.
func StatusLabel(s core.RunStatus) string {
	if s == "" {
		return "UNKNOWN"
	}
	// Casers carry state, so each call gets its own.
	return cases.Upper(language.Und).String(string(s))
}

// FormatTimestamp renders epoch millis as a UTC clock time.
func FormatTimestamp(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return core.HistoryEntry{Timestamp: ms}.Time().Format("15:04:05")
}

// FilterHistory keeps entries matching every whitespace-separated term of
// query against name, status, time and pull request fields. An empty query
// returns entries unchanged.
func FilterHistory(entries []core.HistoryEntry, query string) []core.HistoryEntry {
	terms := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	if len(terms) == 0 {
		return entries
	}

	out := make([]core.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		haystack := historyHaystack(e)
		matched := true
		for _, term := range terms {
			if !strings.Contains(haystack, term) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, e)
		}
	}
	return out
}

func historyHaystack(e core.HistoryEntry) string {
	var sb strings.Builder
	sb.WriteString(e.Name)
	sb.WriteByte(' ')
	sb.WriteString(string(e.Status))
	sb.WriteByte(' ')
	sb.WriteString(FormatTimestamp(e.Timestamp))
	for _, pr := range e.PullRequests {
		sb.WriteByte(' ')
		sb.WriteString(strings.Join([]string{pr.Title, pr.URL, pr.Head, pr.Base, pr.State}, " "))
		if pr.Number > 0 {
			sb.WriteByte(' ')
			sb.WriteString(strconv.Itoa(pr.Number))
		}
		if pr.IsDraft {
			sb.WriteString(" draft")
		}
	}
	return strings.ToLower(sb.String())
}
