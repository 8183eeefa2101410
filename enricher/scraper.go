package enricher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

const userAgent = "oryx-enricher/1.0"

// Metadata is what enrichment can learn from an article page.
type Metadata struct {
	Title string
	Tags  []string
}

func (e *Enricher) scrape(ctx context.Context, link string) (Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return Metadata{}, fmt.Errorf("unable to build request for %v: %w", link, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return Metadata{}, fmt.Errorf("unable to fetch %v: %w", link, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Metadata{}, fmt.Errorf("unable to fetch %v: status %v", link, resp.StatusCode)
	}

	return ParseMetadata(resp.Body)
}

// ParseMetadata tokenizes an HTML page and extracts the title plus any tags
// declared via keywords or article:tag metas. og:title wins over <title>.
// Truncated pages yield whatever was found before the cut.
func ParseMetadata(r io.Reader) (Metadata, error) {
	var (
		meta    Metadata
		ogTitle string
		seen    = map[string]bool{}
	)

	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if ogTitle != "" {
				meta.Title = ogTitle
			}
			if z.Err() == io.EOF {
				return meta, nil
			}
			return meta, fmt.Errorf("unable to parse page: %w", z.Err())

		case html.StartTagToken, html.SelfClosingTagToken:
			token := z.Token()
			switch token.Data {
			case "title":
				if z.Next() == html.TextToken {
					meta.Title = strings.TrimSpace(z.Token().Data)
				}

			case "meta":
				var name, property, content string
				for _, attr := range token.Attr {
					switch attr.Key {
					case "name":
						name = strings.ToLower(attr.Val)
					case "property":
						property = strings.ToLower(attr.Val)
					case "content":
						content = attr.Val
					}
				}
				switch {
				case property == "og:title":
					ogTitle = strings.TrimSpace(content)
				case name == "keywords":
					for _, keyword := range strings.Split(content, ",") {
						addTag(&meta, seen, keyword)
					}
				case property == "article:tag":
					addTag(&meta, seen, content)
				}

			case "body":
				// nothing useful past the head
				if ogTitle != "" {
					meta.Title = ogTitle
				}
				return meta, nil
			}
		}
	}
}

func addTag(meta *Metadata, seen map[string]bool, raw string) {
	tag := strings.ToLower(strings.TrimSpace(raw))
	if tag == "" || seen[tag] {
		return
	}
	seen[tag] = true
	meta.Tags = append(meta.Tags, tag)
}
