package enricher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/oryx-news/oryx/articledao"

	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/rs/zerolog"
	"github.com/tj/assert"
)

func TestParseMetadata(t *testing.T) {
	testCases := map[string]struct {
		page string
		want Metadata
	}{
		"title only": {
			page: `<html><head><title>Breaking News</title></head><body>hi</body></html>`,
			want: Metadata{Title: "Breaking News"},
		},
		"og:title wins over title": {
			page: `<html><head>
				<title>site | Breaking News | clutter</title>
				<meta property="og:title" content="Breaking News"/>
			</head><body></body></html>`,
			want: Metadata{Title: "Breaking News"},
		},
		"keywords split and normalized": {
			page: `<html><head>
				<title>t</title>
				<meta name="keywords" content="Cows, dairy , cows,,farming"/>
			</head><body></body></html>`,
			want: Metadata{Title: "t", Tags: []string{"cows", "dairy", "farming"}},
		},
		"article tags": {
			page: `<html><head>
				<meta property="article:tag" content="Economy"/>
				<meta property="article:tag" content="Milk"/>
			</head><body></body></html>`,
			want: Metadata{Tags: []string{"economy", "milk"}},
		},
		"truncated page": {
			page: `<html><head><title>Half a Page</title><meta name="keywo`,
			want: Metadata{Title: "Half a Page"},
		},
		"nothing useful": {
			page: `<html><head></head><body><h1>untitled</h1></body></html>`,
			want: Metadata{},
		},
	}

	for label, tc := range testCases {
		t.Run(label, func(t *testing.T) {
			got, err := ParseMetadata(strings.NewReader(tc.page))
			assert.Nil(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

type fakeStore struct {
	saved []articledao.Article
}

func (f *fakeStore) PutArticle(_ context.Context, article articledao.Article) error {
	f.saved = append(f.saved, article)
	return nil
}

func imageFor(t *testing.T, item interface{}) map[string]*dynamodb.AttributeValue {
	av, err := dynamodbattribute.MarshalMap(item)
	assert.Nil(t, err)
	return av
}

func TestStreamCallbacks(t *testing.T) {
	page := `<html><head>
		<title>Grass Futures Rally</title>
		<meta name="keywords" content="pasture,economy"/>
	</head><body></body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(page))
	}))
	defer server.Close()

	ctx := context.Background()

	t.Run("enriches a fresh article", func(t *testing.T) {
		store := &fakeStore{}
		e := New(store, zerolog.Nop())

		article := articledao.NewArticle("a1", server.URL+"/story", "alice@x.com", nil)
		err := e.OnInsert(ctx, imageFor(t, article))
		assert.Nil(t, err)
		assert.Equal(t, 1, len(store.saved))

		got := store.saved[0]
		assert.Equal(t, "a1", got.ID)
		assert.Equal(t, "Grass Futures Rally", got.Title)
		assert.EqualValues(t, []string{"pasture", "economy"}, []string(got.Tags))
		assert.True(t, got.Enriched)
		assert.NotEqual(t, "", got.LastEnriched)
	})

	t.Run("skips already enriched articles", func(t *testing.T) {
		store := &fakeStore{}
		e := New(store, zerolog.Nop())

		article := articledao.NewArticle("a1", server.URL+"/story", "alice@x.com", nil)
		article.Enriched = true
		err := e.OnUpdate(ctx, nil, imageFor(t, article))
		assert.Nil(t, err)
		assert.Equal(t, 0, len(store.saved))
	})

	t.Run("re-enriches after a reset", func(t *testing.T) {
		store := &fakeStore{}
		e := New(store, zerolog.Nop())

		article := articledao.NewArticle("a1", server.URL+"/story", "alice@x.com", nil)
		err := e.OnUpdate(ctx, nil, imageFor(t, article))
		assert.Nil(t, err)
		assert.Equal(t, 1, len(store.saved))
	})

	t.Run("skips clap records", func(t *testing.T) {
		store := &fakeStore{}
		e := New(store, zerolog.Nop())

		clap := articledao.Clap{ArticleID: "a1", Kind: articledao.ClapSortKey("bob@x.com"), Claps: 3}
		err := e.OnInsert(ctx, imageFor(t, clap))
		assert.Nil(t, err)
		assert.Equal(t, 0, len(store.saved))
	})

	t.Run("a dead link is skipped, not an error", func(t *testing.T) {
		store := &fakeStore{}
		e := New(store, zerolog.Nop())

		bad := articledao.NewArticle("a2", server.URL+"/boom", "alice@x.com", nil)
		assert.Nil(t, e.OnInsert(ctx, imageFor(t, bad)))
		assert.Equal(t, 0, len(store.saved))

		good := articledao.NewArticle("a3", server.URL+"/story", "alice@x.com", nil)
		assert.Nil(t, e.OnInsert(ctx, imageFor(t, good)))
		assert.Equal(t, 1, len(store.saved))
		assert.Equal(t, "a3", store.saved[0].ID)
	})
}

type fakeLister struct {
	articles []articledao.Article
}

func (f *fakeLister) ListRecent(_ context.Context, limit int64, token string) ([]articledao.Article, string, error) {
	start := 0
	if token != "" {
		start, _ = strconv.Atoi(token)
	}
	end := start + int(limit)
	next := ""
	if end >= len(f.articles) {
		end = len(f.articles)
	} else {
		next = strconv.Itoa(end)
	}
	return f.articles[start:end], next, nil
}

func TestSweep(t *testing.T) {
	page := `<html><head><title>Refetched</title></head><body></body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer server.Close()

	fresh := articledao.NewArticle("a1", server.URL+"/a", "alice@x.com", nil)
	fresh.Enriched = true
	fresh.LastEnriched = time.Now().UTC().Format(time.RFC3339)

	stale := articledao.NewArticle("a2", server.URL+"/b", "alice@x.com", nil)
	stale.Enriched = true
	stale.LastEnriched = time.Now().UTC().AddDate(0, -3, 0).Format(time.RFC3339)

	missed := articledao.NewArticle("a3", server.URL+"/c", "alice@x.com", nil)

	store := &fakeStore{}
	e := New(store, zerolog.Nop())
	lister := &fakeLister{articles: []articledao.Article{fresh, stale, missed}}

	err := e.Sweep(context.Background(), lister, 30*24*time.Hour)
	assert.Nil(t, err)

	assert.Equal(t, 2, len(store.saved))
	assert.Equal(t, "a2", store.saved[0].ID)
	assert.Equal(t, "a3", store.saved[1].ID)
	for _, article := range store.saved {
		assert.Equal(t, "Refetched", article.Title)
		assert.True(t, article.Enriched)
	}
}
