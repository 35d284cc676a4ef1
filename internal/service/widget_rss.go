package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/vizora/signage/internal/domain"
	"github.com/vizora/signage/pkg/breaker"
	"github.com/vizora/signage/pkg/cache"
	"github.com/vizora/signage/pkg/logger"
)

const (
	RSSWidgetType = "rss"

	DefaultRSSTimeout  = 15 * time.Second
	DefaultRSSCacheTTL = 5 * time.Minute

	rssBreakerName   = "rss-feed"
	rssUserAgent     = "Vizora-Widget/1.0"
	rssAccept        = "application/rss+xml, application/atom+xml, application/xml, text/xml"
	defaultFeedItems = 10
	maxFeedItems     = 50
	maxFeedBytes     = 5 << 20
)

type RSSWidgetConfig struct {
	Timeout    time.Duration
	CacheTTL   time.Duration
	HTTPClient *http.Client
}

// RSSWidget turns an RSS or Atom feed into {items, feedTitle, feedDescription}.
// Failures and an open circuit degrade to sample data.
type RSSWidget struct {
	httpClient *http.Client
	breakers   *breaker.Registry
	cache      cache.Cache[domain.MapOfAny]
	guard      *URLGuard
	logger     logger.Logger
	timeout    time.Duration
	cacheTTL   time.Duration
	now        func() time.Time
}

func NewRSSWidget(cfg RSSWidgetConfig, breakers *breaker.Registry, feedCache cache.Cache[domain.MapOfAny], log logger.Logger) *RSSWidget {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRSSTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultRSSCacheTTL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = NewSafeHTTPClient(cfg.Timeout)
	}

	return &RSSWidget{
		httpClient: client,
		breakers:   breakers,
		cache:      feedCache,
		guard:      NewURLGuard(false),
		logger:     log,
		timeout:    cfg.Timeout,
		cacheTTL:   cfg.CacheTTL,
		now:        time.Now,
	}
}

func (w *RSSWidget) Type() string {
	return RSSWidgetType
}

func (w *RSSWidget) FetchData(ctx context.Context, config domain.MapOfAny) (domain.MapOfAny, error) {
	feedURL, _ := config["feedUrl"].(string)
	if strings.TrimSpace(feedURL) == "" {
		w.logger.Warn("No feedUrl provided, returning sample data")
		return w.SampleData(), nil
	}

	u, err := w.guard.Check(feedURL)
	if err != nil {
		return nil, err
	}

	maxItems := feedItemLimit(config["maxItems"])
	key := fmt.Sprintf("%s|%d", u.String(), maxItems)
	if cached, ok := w.cache.Get(key); ok {
		return cached, nil
	}

	result, err := w.breakers.ExecuteWithFallback(rssBreakerName, func() (interface{}, error) {
		data, err := w.cache.GetOrLoad(key, w.cacheTTL, func() (domain.MapOfAny, error) {
			return w.load(ctx, u, maxItems)
		})
		if err != nil {
			return nil, err
		}
		return data, nil
	}, func(cause error) (interface{}, error) {
		w.logger.WithField("feed_url", u.Redacted()).Warn(fmt.Sprintf("RSS feed circuit open or failed, returning sample data: %v", cause))
		return w.SampleData(), nil
	})
	if err != nil {
		return nil, err
	}
	return result.(domain.MapOfAny), nil
}

func (w *RSSWidget) load(ctx context.Context, u *url.URL, maxItems int) (domain.MapOfAny, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %w", err)
	}
	req.Header.Set("Accept", rssAccept)
	req.Header.Set("User-Agent", rssUserAgent)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("feed returned HTTP %d", resp.StatusCode)
	}

	// gofeed parsers keep state between calls
	feed, err := gofeed.NewParser().Parse(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return feedToContext(feed, maxItems), nil
}

func feedToContext(feed *gofeed.Feed, maxItems int) domain.MapOfAny {
	items := make([]interface{}, 0, maxItems)
	for _, item := range feed.Items {
		if len(items) >= maxItems {
			break
		}

		body := item.Description
		if body == "" {
			body = item.Content
		}
		text, inlineImage := htmlToText(body)

		imageURL := itemImage(item)
		if imageURL == "" {
			imageURL = inlineImage
		}

		pubDate := item.Published
		if pubDate == "" {
			pubDate = item.Updated
		}

		items = append(items, map[string]interface{}{
			"title":       strings.TrimSpace(item.Title),
			"link":        item.Link,
			"description": text,
			"pubDate":     pubDate,
			"imageUrl":    imageURL,
		})
	}

	return domain.MapOfAny{
		"items":           items,
		"feedTitle":       strings.TrimSpace(feed.Title),
		"feedDescription": strings.TrimSpace(feed.Description),
	}
}

// itemImage looks at enclosures, then media:content, then the item image
func itemImage(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc != nil && enc.URL != "" {
			return enc.URL
		}
	}
	if media, ok := item.Extensions["media"]; ok {
		for _, name := range []string{"content", "thumbnail"} {
			for _, ext := range media[name] {
				if u := ext.Attrs["url"]; u != "" {
					return u
				}
			}
		}
	}
	if item.Image != nil {
		return item.Image.URL
	}
	return ""
}

// htmlToText returns the collapsed text of an HTML fragment and the src
// of its first image
func htmlToText(fragment string) (string, string) {
	if strings.TrimSpace(fragment) == "" {
		return "", ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment), ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.Join(strings.Fields(doc.Text()), " "), src
}

func feedItemLimit(v interface{}) int {
	n := defaultFeedItems
	switch t := v.(type) {
	case int:
		n = t
	case int64:
		n = int(t)
	case float64:
		n = int(t)
	case string:
		if parsed, err := strconv.Atoi(t); err == nil {
			n = parsed
		}
	}
	if n < 1 {
		return 1
	}
	if n > maxFeedItems {
		return maxFeedItems
	}
	return n
}

func (w *RSSWidget) ConfigSchema() domain.MapOfAny {
	return domain.MapOfAny{
		"type": "object",
		"properties": map[string]interface{}{
			"feedUrl": map[string]interface{}{
				"type":        "string",
				"description": "URL of the RSS or Atom feed",
			},
			"maxItems": map[string]interface{}{
				"type":        "number",
				"description": "Maximum number of items to display",
				"minimum":     1,
				"maximum":     maxFeedItems,
				"default":     defaultFeedItems,
			},
			"showImages": map[string]interface{}{
				"type":        "boolean",
				"description": "Whether to show item images",
				"default":     true,
			},
			"layout": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"list", "ticker", "cards"},
				"description": "Display layout for the feed",
				"default":     "list",
			},
		},
		"required": []string{"feedUrl"},
	}
}

func (w *RSSWidget) SampleData() domain.MapOfAny {
	now := w.now().UTC()
	ago := func(hours int) string {
		return now.Add(-time.Duration(hours) * time.Hour).Format(time.RFC3339)
	}

	return domain.MapOfAny{
		"items": []interface{}{
			map[string]interface{}{
				"title":       "Global Markets Rally as Tech Stocks Surge",
				"link":        "https://example.com/news/1",
				"description": "Major stock indices posted strong gains on Monday as technology companies reported better-than-expected earnings.",
				"pubDate":     ago(2),
				"imageUrl":    "https://picsum.photos/seed/news1/400/240",
			},
			map[string]interface{}{
				"title":       "New Study Reveals Benefits of Remote Work",
				"link":        "https://example.com/news/2",
				"description": "A comprehensive study spanning 50 companies found that hybrid work arrangements led to a 23% increase in employee satisfaction.",
				"pubDate":     ago(5),
				"imageUrl":    "https://picsum.photos/seed/news2/400/240",
			},
			map[string]interface{}{
				"title":       "City Council Approves Green Infrastructure Plan",
				"link":        "https://example.com/news/3",
				"description": "The $2.5 billion plan funds solar panel installations and EV charging stations across the metro area.",
				"pubDate":     ago(12),
				"imageUrl":    "https://picsum.photos/seed/news3/400/240",
			},
			map[string]interface{}{
				"title":       "New Satellite Constellation Reaches Orbit",
				"link":        "https://example.com/news/4",
				"description": "The latest batch of 60 satellites will provide high-speed internet to underserved regions.",
				"pubDate":     ago(24),
				"imageUrl":    "https://picsum.photos/seed/news4/400/240",
			},
			map[string]interface{}{
				"title":       "Breakthrough in Battery Technology Promises Faster Charging",
				"link":        "https://example.com/news/5",
				"description": "Researchers have developed a solid-state battery that charges to 80% in just 10 minutes.",
				"pubDate":     ago(48),
				"imageUrl":    "https://picsum.photos/seed/news5/400/240",
			},
		},
		"feedTitle":       "Tech & World News",
		"feedDescription": "The latest technology and world news from around the globe.",
	}
}
