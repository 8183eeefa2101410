// Package client is a thin consumer of the public article surface. It owns no
// state; every call hits the API and decodes the public JSON shapes.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

var (
	// ErrNotFound indicates the requested article does not exist.
	ErrNotFound = errors.New("article not found")

	// ErrForbidden indicates the caller is not allowed to perform the
	// operation, such as deleting someone else's article.
	ErrForbidden = errors.New("forbidden")
)

type Client struct {
	HTTPClient *http.Client
	Addr       string
	Token      string // bearer token sent on every call; optional for open reads
}

func New(addr string) *Client {
	return &Client{
		HTTPClient: http.DefaultClient,
		Addr:       addr,
	}
}

// Article mirrors the public article representation.
type Article struct {
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

// ArticleList is one page of articles plus the cursor for the next page.
type ArticleList struct {
	Items     []Article `json:"items"`
	NextToken string    `json:"nextToken"`
}

// Claps is the caller's engagement with one article.
type Claps struct {
	ID     string `json:"id"`
	Caller string `json:"caller"`
	Claps  int64  `json:"claps"`
	Date   string `json:"date"`
}

// ListInput scopes a listing call. Zero values mean server defaults.
type ListInput struct {
	Limit     int64
	NextToken string
	Domain    string
}

func (c *Client) ListArticles(ctx context.Context, input ListInput) (*ArticleList, error) {
	query := url.Values{}
	if input.Limit > 0 {
		query.Set("limit", strconv.FormatInt(input.Limit, 10))
	}
	if input.NextToken != "" {
		query.Set("nextToken", input.NextToken)
	}
	if input.Domain != "" {
		query.Set("domain", input.Domain)
	}

	path := "/articles"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var list ArticleList
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) GetArticle(ctx context.Context, id string) (*Article, error) {
	var article Article
	if err := c.do(ctx, http.MethodGet, "/articles/"+url.PathEscape(id), nil, &article); err != nil {
		return nil, err
	}
	return &article, nil
}

func (c *Client) CreateArticle(ctx context.Context, link string) (*Article, error) {
	var article Article
	body := map[string]string{"link": link}
	if err := c.do(ctx, http.MethodPost, "/articles", body, &article); err != nil {
		return nil, err
	}
	return &article, nil
}

func (c *Client) DeleteArticle(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/articles/"+url.PathEscape(id), nil, nil)
}

// RecordPing reports a view of the article. Every call counts.
func (c *Client) RecordPing(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/articles/"+url.PathEscape(id)+"/pings", nil, nil)
}

func (c *Client) SetClaps(ctx context.Context, id string, claps int64) (*Claps, error) {
	var out Claps
	body := map[string]int64{"claps": claps}
	if err := c.do(ctx, http.MethodPut, "/articles/"+url.PathEscape(id)+"/claps", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetClaps(ctx context.Context, id string) (*Claps, error) {
	var out Claps
	if err := c.do(ctx, http.MethodGet, "/articles/"+url.PathEscape(id)+"/claps", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("unable to encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.Addr+path, reader)
	if err != nil {
		return fmt.Errorf("unable to build %v %v: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("unable to call %v %v: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%v %v: %w", method, path, ErrNotFound)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%v %v: %w", method, path, ErrForbidden)
	case resp.StatusCode >= 400:
		var failure struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&failure); err == nil && failure.Message != "" {
			return fmt.Errorf("%v %v: %v (status %v)", method, path, failure.Message, resp.StatusCode)
		}
		return fmt.Errorf("%v %v: status %v", method, path, resp.StatusCode)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("unable to decode %v %v response: %w", method, path, err)
	}
	return nil
}
