// Package articleapi exposes the aggregator's public surface: listing,
// fetching, submitting and deleting articles, per-user claps, ping counters,
// and the chat-bot callback. It is a stateless translation layer between the
// HTTP surface and the article store.
package articleapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/oryx-news/oryx/articledao"
	oryxcli "github.com/oryx-news/oryx/oryx-cli"
	oryxrest "github.com/oryx-news/oryx/oryx-rest"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store is the slice of the article DAO the public surface needs.
type Store interface {
	PutArticle(ctx context.Context, article articledao.Article) error
	GetArticle(ctx context.Context, id string) (*articledao.Article, error)
	DeleteArticle(ctx context.Context, id, caller string) error
	IncrementPings(ctx context.Context, id string) error
	PutClaps(ctx context.Context, id, caller string, claps int64) (bool, error)
	GetClaps(ctx context.Context, id, caller string) (*articledao.Clap, error)
	ListRecent(ctx context.Context, limit int64, token string) ([]articledao.Article, string, error)
	ListByDomain(ctx context.Context, domain string, limit int64, token string) ([]articledao.Article, string, error)
}

var _ Store = (*articledao.DAO)(nil)

type API struct {
	store   Store
	metrics *oryxcli.Metrics
}

func New(store Store) *API {
	return &API{store: store}
}

// WithMetrics enables engagement metrics for mutating operations.
func (a *API) WithMetrics(metrics oryxcli.Metrics) *API {
	a.metrics = &metrics
	return a
}

// ListArticles handles GET /articles. The limit defaults to the page maximum
// when missing or unparsable, and is clamped by the store. An optional domain
// parameter scopes the listing to one derived domain.
func (a *API) ListArticles(w http.ResponseWriter, r *http.Request) {
	var limit int64
	if v, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64); err == nil {
		limit = v
	}
	token := r.URL.Query().Get("nextToken")
	domain := r.URL.Query().Get("domain")

	var (
		articles  []articledao.Article
		nextToken string
		err       error
	)
	if domain != "" {
		articles, nextToken, err = a.store.ListByDomain(r.Context(), domain, limit, token)
	} else {
		articles, nextToken, err = a.store.ListRecent(r.Context(), limit, token)
	}
	if err != nil {
		a.renderError(w, r, err)
		return
	}

	render.Render(w, r, NewArticleListResponse(articles, nextToken))
}

// GetArticle handles GET /articles/{articleId}.
func (a *API) GetArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "articleId")
	article, err := a.store.GetArticle(r.Context(), id)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	if article == nil {
		render.Render(w, r, ErrArticleNotFound(id))
		return
	}
	render.Render(w, r, NewArticleResponse(*article))
}

// CreateArticle handles POST /articles. The article id is assigned here, and
// the referrer is the verified caller, never a body field.
func (a *API) CreateArticle(w http.ResponseWriter, r *http.Request) {
	caller, _ := oryxrest.Caller(r.Context())

	data := &ArticleRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	article := articledao.NewArticle(uuid.NewString(), data.Link, caller, nil)
	if err := a.store.PutArticle(r.Context(), article); err != nil {
		a.renderError(w, r, err)
		return
	}

	if a.metrics != nil {
		a.metrics.Event(r.Context(), oryxcli.ArticleCreatedMetric)
	}
	w.Header().Set("Location", fmt.Sprintf("/articles/%v", article.ID))
	render.Status(r, http.StatusCreated)
	render.Render(w, r, NewArticleResponse(article))
}

// CreateFromChat creates an article on behalf of a chat-bot sender. It shares
// the create path with CreateArticle, minus the HTTP shaping.
func (a *API) CreateFromChat(ctx context.Context, link, referrer string) error {
	if !linkPattern.MatchString(link) {
		return fmt.Errorf("link: %q is not an absolute http(s) URL", link)
	}
	if err := a.store.PutArticle(ctx, articledao.NewArticle(uuid.NewString(), link, referrer, nil)); err != nil {
		return err
	}
	if a.metrics != nil {
		a.metrics.Event(ctx, oryxcli.ArticleCreatedMetric)
	}
	return nil
}

// DeleteArticle handles DELETE /articles/{articleId}. The referrer check and
// the delete are one conditional store operation.
func (a *API) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	caller, _ := oryxrest.Caller(r.Context())
	id := chi.URLParam(r, "articleId")

	if err := a.store.DeleteArticle(r.Context(), id, caller); err != nil {
		if errors.Is(err, articledao.ErrNotOwner) {
			render.Render(w, r, ErrForbidden())
			return
		}
		a.renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// RecordPing handles POST /articles/{articleId}/pings. Every call increments;
// pings are a raw view counter with no replay protection.
func (a *API) RecordPing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "articleId")
	if err := a.store.IncrementPings(r.Context(), id); err != nil {
		a.renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// SetClaps handles PUT /articles/{articleId}/claps. The stored value is the
// caller's latest count; 201 marks a first clap, 200 an overwrite.
func (a *API) SetClaps(w http.ResponseWriter, r *http.Request) {
	caller, _ := oryxrest.Caller(r.Context())
	id := chi.URLParam(r, "articleId")

	data := &ClapsRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	article, err := a.store.GetArticle(r.Context(), id)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	if article == nil {
		render.Render(w, r, ErrArticleNotFound(id))
		return
	}

	created, err := a.store.PutClaps(r.Context(), id, caller, *data.Claps)
	if err != nil {
		a.renderError(w, r, err)
		return
	}

	if created {
		render.Status(r, http.StatusCreated)
	}
	render.Render(w, r, &ClapsResponse{ID: id, Caller: caller, Claps: *data.Claps})
}

// GetClaps handles GET /articles/{articleId}/claps. A caller who never
// clapped gets a zero-value response, not an error.
func (a *API) GetClaps(w http.ResponseWriter, r *http.Request) {
	caller, _ := oryxrest.Caller(r.Context())
	id := chi.URLParam(r, "articleId")

	clap, err := a.store.GetClaps(r.Context(), id, caller)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	render.Render(w, r, NewClapsResponse(id, caller, clap))
}

func (a *API) renderError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, articledao.ErrBadToken) {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	zerolog.Ctx(r.Context()).Error().Err(err).Msg("store call failed")
	render.Render(w, r, ErrInternal(err))
}

// RequireAuth rejects requests lacking a verified identity before any store
// call is made.
func RequireAuth(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if _, ok := oryxrest.Caller(req.Context()); !ok {
			render.Render(w, req, ErrUnauthorized())
			return
		}
		handler.ServeHTTP(w, req)
	})
}
