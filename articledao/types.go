package articledao

import (
	"strings"
	"time"

	"github.com/savaki/ddb"
)

const (
	// ArticleSortKey discriminates Article records from other records sharing
	// the same partition key.
	ArticleSortKey = "ART"

	// ArticleTypeMarker is the constant GSI1 partition value grouping all
	// Articles for the recency index.
	ArticleTypeMarker = "ART"

	// ClapSortKeyPrefix prefixes the acting user's identity to form the sort
	// key of a Clap record.
	ClapSortKeyPrefix = "CLAPS#"

	// RecencyIndex orders Articles newest-first by creation date.
	RecencyIndex = "GSI1"

	// DomainIndex groups Articles by the domain derived from their link.
	DomainIndex = "GSI2"
)

// MaxClaps bounds the clap count a single user may store for an article.
const MaxClaps = 100

// Article is a submitted link record.
type Article struct {
	ID   string `dynamodbav:"pk" ddb:"hash"`
	Kind string `dynamodbav:"sk" ddb:"range"` // always ArticleSortKey

	Link         string        `dynamodbav:"link"`
	Title        string        `dynamodbav:"title"`
	Tags         ddb.StringSet `dynamodbav:"tags,omitempty"`
	Claps        int64         `dynamodbav:"claps"`
	Clappers     int64         `dynamodbav:"clappers"`
	Pings        int64         `dynamodbav:"pings"`
	Referrer     string        `dynamodbav:"referrer"`
	Date         string        `dynamodbav:"date"`
	Domain       string        `dynamodbav:"domain"`
	Enriched     bool          `dynamodbav:"enriched"`
	LastEnriched string        `dynamodbav:"lastEnriched,omitempty"`

	TypeMarker string `dynamodbav:"type"`   // always ArticleTypeMarker
	RecencyKey string `dynamodbav:"gsi1sk"` // mirrors Date
}

// Clap is one user's latest engagement with one Article. The stored value is
// the user's last submitted count, not a running sum.
type Clap struct {
	ArticleID string `dynamodbav:"pk" ddb:"hash"`
	Kind      string `dynamodbav:"sk" ddb:"range"` // ClapSortKeyPrefix + caller

	Claps    int64  `dynamodbav:"claps"`
	DateTime string `dynamodbav:"datetime"`
}

// Caller returns the identity encoded in the Clap's sort key.
func (c Clap) Caller() string {
	return strings.TrimPrefix(c.Kind, ClapSortKeyPrefix)
}

// ClapSortKey builds the sort key of the Clap record for the given caller.
func ClapSortKey(caller string) string {
	return ClapSortKeyPrefix + caller
}

// NewArticle builds an Article record for a freshly submitted link. The title
// falls back to the link without its scheme until the enricher fills it in.
func NewArticle(id, link, referrer string, tags []string) Article {
	now := time.Now().UTC().Format(time.RFC3339)
	title := link
	if _, rest, ok := strings.Cut(link, "://"); ok {
		title = rest
	}
	return Article{
		ID:         id,
		Kind:       ArticleSortKey,
		Link:       link,
		Title:      title,
		Tags:       ddb.StringSet(tags),
		Referrer:   referrer,
		Date:       now,
		Domain:     DomainFromLink(link),
		TypeMarker: ArticleTypeMarker,
		RecencyKey: now,
	}
}

// DomainFromLink derives the grouping domain from a link: the last two labels
// of the host, ignoring any port.
func DomainFromLink(link string) string {
	rest := link
	if _, after, ok := strings.Cut(link, "://"); ok {
		rest = after
	}
	host := rest
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	host, _, _ = strings.Cut(host, ":")
	labels := strings.Split(host, ".")
	if len(labels) > 2 {
		labels = labels[len(labels)-2:]
	}
	return strings.Join(labels, ".")
}
