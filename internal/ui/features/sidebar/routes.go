// Package sidebar provides the sidebar feature of the UI server.
package sidebar

import (
	"github.com/go-chi/chi/v5"
)

// SetupRoutes configures routes for the sidebar feature.
func SetupRoutes(router chi.Router, cfg Config) error {
	handlers, err := NewHandlers(cfg)
	if err != nil {
		return err
	}
	mount(router, handlers)
	return nil
}

func mount(router chi.Router, handlers *Handlers) {
	router.Get("/", handlers.SidebarPage)
	router.Get("/updates", handlers.SidebarUpdates)

	router.Route("/api", func(r chi.Router) {
		r.Post("/tabs/key", handlers.TabKeySSE)
		r.Post("/tabs/{tab}", handlers.SelectTabSSE)

		r.Post("/history/search", handlers.HistorySearchSSE)
		r.Post("/history/clear", handlers.ClearHistory)
		r.Post("/history/{id}/activate", handlers.ActivateHistory)
		r.Post("/history/{id}/restore", handlers.RestoreHistory)
		r.Post("/history/{id}/open-pr", handlers.OpenPullRequest)

		r.Post("/providers/filter/{filter}", handlers.ProvidersFilterSSE)
		r.Post("/items/{tab}/{id}/activate", handlers.ActivateItem)

		r.Post("/host/messages", handlers.HostMessage)
		r.Get("/host/outbox", handlers.HostOutbox)
	})
}
