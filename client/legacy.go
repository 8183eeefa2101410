package client

import "context"

// Story is the display shape the original front-end rendered. It carries stub
// fields for features that were never built server-side; keeping the shim in
// one place means the rest of the client never sees them. Delete this file
// once the last legacy view is gone.
type Story struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	URL          string   `json:"url"`
	Domain       string   `json:"domain"`
	Tags         []string `json:"tags"`
	Claps        int64    `json:"claps"`
	Clappers     int64    `json:"clappers"`
	Pings        int64    `json:"pings"`
	Referrer     string   `json:"referrer"`
	Date         string   `json:"date"`
	CommentCount int64    `json:"comment_count"` // no comments exist; always 0
	Hidden       bool     `json:"hidden"`        // never persisted; always false
	Saved        bool     `json:"saved"`         // never persisted; always false
}

// StoryFromArticle adapts one public article into the legacy shape.
func StoryFromArticle(article Article) Story {
	tags := article.Tags
	if tags == nil {
		tags = []string{}
	}
	return Story{
		ID:       article.ID,
		Title:    article.Title,
		URL:      article.Link,
		Domain:   article.Domain,
		Tags:     tags,
		Claps:    article.Claps,
		Clappers: article.Clappers,
		Pings:    article.Pings,
		Referrer: article.Referrer,
		Date:     article.Date,
	}
}

// Stories fetches one page of articles as legacy stories. A non-empty domain
// re-fetches scoped to that domain rather than filtering client-side, matching
// how the view reloads when its domain path parameter changes.
func (c *Client) Stories(ctx context.Context, domain string) ([]Story, error) {
	list, err := c.ListArticles(ctx, ListInput{Domain: domain})
	if err != nil {
		return nil, err
	}

	stories := make([]Story, 0, len(list.Items))
	for _, article := range list.Items {
		stories = append(stories, StoryFromArticle(article))
	}
	return stories, nil
}

// GroupByDomain buckets stories by their derived domain, preserving the input
// ordering within each bucket.
func GroupByDomain(stories []Story) map[string][]Story {
	grouped := map[string][]Story{}
	for _, story := range stories {
		grouped[story.Domain] = append(grouped[story.Domain], story)
	}
	return grouped
}
