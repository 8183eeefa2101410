// Package enricher consumes the article table's stream and fills in the
// metadata a bare link submission lacks: the page title and its tags. A failed
// page is logged and skipped so one dead link never wedges the stream.
package enricher

import (
	"context"
	"net/http"
	"time"

	"github.com/oryx-news/oryx/articledao"
	oryxcli "github.com/oryx-news/oryx/oryx-cli"
	oryxddb "github.com/oryx-news/oryx/oryx-ddb"

	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/rs/zerolog"
	"github.com/savaki/ddb"
)

// Store is the slice of the article DAO enrichment needs.
type Store interface {
	PutArticle(ctx context.Context, article articledao.Article) error
}

type Enricher struct {
	store   Store
	client  *http.Client
	logger  zerolog.Logger
	metrics *oryxcli.Metrics
}

func New(store Store, logger zerolog.Logger) *Enricher {
	return &Enricher{
		store: store,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

// WithClient overrides the HTTP client used to fetch article pages.
func (e *Enricher) WithClient(client *http.Client) *Enricher {
	e.client = client
	return e
}

// WithMetrics enables a count metric per enriched article.
func (e *Enricher) WithMetrics(metrics oryxcli.Metrics) *Enricher {
	e.metrics = &metrics
	return e
}

// OnInsert enriches a freshly submitted article.
func (e *Enricher) OnInsert(ctx context.Context, newValue map[string]*dynamodb.AttributeValue) error {
	return e.handleImage(ctx, newValue)
}

// OnUpdate picks up articles whose enrichment was reset.
func (e *Enricher) OnUpdate(ctx context.Context, _, newValue map[string]*dynamodb.AttributeValue) error {
	return e.handleImage(ctx, newValue)
}

// handleImage enriches one stream image. Failures are logged and dropped
// rather than returned, as failing the Lambda batch would retry the same dead
// page and wedge the stream.
func (e *Enricher) handleImage(ctx context.Context, image map[string]*dynamodb.AttributeValue) error {
	var article articledao.Article
	if err := oryxddb.ParseItem(image, &article); err != nil {
		e.logger.Error().Err(err).Msg("undecodable stream image")
		return nil
	}
	if article.Kind != articledao.ArticleSortKey {
		return nil // clap records share the stream
	}
	if article.Enriched {
		return nil
	}
	if err := e.enrich(ctx, article); err != nil {
		e.logger.Error().Err(err).Str("id", article.ID).Msg("unable to enrich article")
	}
	return nil
}

func (e *Enricher) enrich(ctx context.Context, article articledao.Article) error {
	meta, err := e.scrape(ctx, article.Link)
	if err != nil {
		return err
	}

	if meta.Title != "" {
		article.Title = meta.Title
	}
	if len(meta.Tags) > 0 {
		article.Tags = ddb.StringSet(meta.Tags)
	}
	article.Enriched = true
	article.LastEnriched = time.Now().UTC().Format(time.RFC3339)

	e.logger.Info().
		Str("id", article.ID).
		Str("title", article.Title).
		Int("tags", len(article.Tags)).
		Msg("enriched article")

	if err := e.store.PutArticle(ctx, article); err != nil {
		return err
	}
	if e.metrics != nil {
		e.metrics.Event(ctx, oryxcli.ArticleEnrichedMetric)
	}
	return nil
}

// Lister pages through articles newest-first.
type Lister interface {
	ListRecent(ctx context.Context, limit int64, token string) ([]articledao.Article, string, error)
}

// Sweep re-scrapes articles whose metadata is older than maxAge. It walks the
// whole recency index; failures are logged and skipped like stream records.
func (e *Enricher) Sweep(ctx context.Context, lister Lister, maxAge time.Duration) error {
	cutoff := time.Now().UTC().Add(-maxAge).Format(time.RFC3339)

	token := ""
	for {
		page, next, err := lister.ListRecent(ctx, articledao.MaxPageSize, token)
		if err != nil {
			return err
		}
		for _, article := range page {
			if article.LastEnriched >= cutoff {
				continue
			}
			if err := e.enrich(ctx, article); err != nil {
				e.logger.Error().Err(err).Str("id", article.ID).Msg("unable to refresh article")
			}
		}
		if next == "" {
			return nil
		}
		token = next
	}
}
