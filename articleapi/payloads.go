package articleapi

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/oryx-news/oryx/articledao"
)

// linkPattern accepts absolute http/https URLs only.
var linkPattern = regexp.MustCompile(`^https?://[-a-zA-Z0-9@:%._+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b[-a-zA-Z0-9()@:%_+.~#?/&=]*$`)

// ArticleRequest is the body of a create-article call. The caller identity is
// never taken from the body; it comes from the verified request context.
type ArticleRequest struct {
	Link string `json:"link"`
}

func (a *ArticleRequest) Bind(r *http.Request) error {
	if a.Link == "" {
		return errors.New("link: missing required field")
	}
	if !linkPattern.MatchString(a.Link) {
		return fmt.Errorf("link: %q is not an absolute http(s) URL", a.Link)
	}
	return nil
}

// ClapsRequest is the body of a set-claps call.
type ClapsRequest struct {
	Claps *int64 `json:"claps"`
}

func (c *ClapsRequest) Bind(r *http.Request) error {
	if c.Claps == nil {
		return errors.New("claps: missing required field")
	}
	if *c.Claps < 0 || *c.Claps > articledao.MaxClaps {
		return fmt.Errorf("claps: %v out of range [0, %v]", *c.Claps, articledao.MaxClaps)
	}
	return nil
}

// ArticleResponse is the public projection of an Article record. The fallback
// rules the original expressed in response templates live here as plain
// conditionals: title falls back to the link, tags default to an empty set.
type ArticleResponse struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Link     string   `json:"link"`
	Tags     []string `json:"tags"`
	Claps    int64    `json:"claps"`
	Clappers int64    `json:"clappers"`
	Pings    int64    `json:"pings"`
	Referrer string   `json:"referrer"`
	Date     string   `json:"date"`
	Domain   string   `json:"domain"`
}

func (a *ArticleResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func NewArticleResponse(article articledao.Article) *ArticleResponse {
	title := article.Title
	if title == "" {
		title = article.Link
	}
	tags := []string{}
	if len(article.Tags) > 0 {
		tags = append(tags, article.Tags...)
	}
	return &ArticleResponse{
		ID:       article.ID,
		Title:    title,
		Link:     article.Link,
		Tags:     tags,
		Claps:    article.Claps,
		Clappers: article.Clappers,
		Pings:    article.Pings,
		Referrer: article.Referrer,
		Date:     article.Date,
		Domain:   article.Domain,
	}
}

// ArticleListResponse carries one page of articles plus the token to fetch
// the next page, when more results exist.
type ArticleListResponse struct {
	Items     []*ArticleResponse `json:"items"`
	NextToken string             `json:"nextToken,omitempty"`
}

func (a *ArticleListResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func NewArticleListResponse(articles []articledao.Article, nextToken string) *ArticleListResponse {
	items := make([]*ArticleResponse, 0, len(articles))
	for _, article := range articles {
		items = append(items, NewArticleResponse(article))
	}
	return &ArticleListResponse{Items: items, NextToken: nextToken}
}

// ClapsResponse reports a caller's claps for an article. Absence of a clap
// record and a stored zero are deliberately indistinguishable here.
type ClapsResponse struct {
	ID     string `json:"id"`
	Caller string `json:"caller"`
	Claps  int64  `json:"claps"`
	Date   string `json:"date,omitempty"`
}

func (c *ClapsResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func NewClapsResponse(id, caller string, clap *articledao.Clap) *ClapsResponse {
	if clap == nil {
		return &ClapsResponse{ID: id, Caller: caller, Claps: 0}
	}
	return &ClapsResponse{ID: id, Caller: caller, Claps: clap.Claps, Date: clap.DateTime}
}
