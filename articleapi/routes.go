package articleapi

import (
	oryxrest "github.com/oryx-news/oryx/oryx-rest"

	"github.com/go-chi/chi/v5"
)

// Routes mounts the public surface on the given router. Three trust tiers:
// anonymous reads and pings, authenticated writes, and the system-to-system
// chat callback which the caller mounts separately.
func (a *API) Routes(router chi.Router) {
	router.Route("/articles", func(r chi.Router) {
		r.Get("/", oryxrest.CacheControl(a.ListArticles, 30))
		r.With(RequireAuth).Post("/", a.CreateArticle)

		r.Route("/{articleId}", func(r chi.Router) {
			r.Get("/", oryxrest.CacheControl(a.GetArticle, 60))
			r.With(RequireAuth).Delete("/", a.DeleteArticle)
			r.Post("/pings", a.RecordPing)
			r.With(RequireAuth).Put("/claps", a.SetClaps)
			r.With(RequireAuth).Get("/claps", a.GetClaps)
		})
	})
}
