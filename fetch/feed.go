package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/poiesic/newswire/core"
	"golang.org/x/time/rate"
)

// KeywordPlaceholder is replaced by the query-escaped keyword in a feed
// URL template.
const KeywordPlaceholder = "{keyword}"

// DefaultFeedTemplate searches Google News.
const DefaultFeedTemplate = "https://news.google.com/rss/search?q={keyword}&hl=en-US&gl=US&ceid=US:en"

const (
	defaultUserAgent     = "newswire/1.0"
	defaultMaxItems      = 20
	defaultPageRate      = 2
	defaultTimeout       = 20 * time.Second
	minBodyRunes         = 200
	maxResponseBodyBytes = 4 << 20
)

// FeedFetcher implements Fetcher over an RSS or Atom search feed.
type FeedFetcher struct {
	template   string
	client     *http.Client
	userAgent  string
	maxItems   int
	fetchPages bool
	limiter    *rate.Limiter
	logger     *slog.Logger
}

var _ Fetcher = (*FeedFetcher)(nil)

// FeedOption configures a FeedFetcher.
type FeedOption func(*FeedFetcher) error

// WithHTTPClient sets the HTTP client. Default has a 20s timeout.
func WithHTTPClient(client *http.Client) FeedOption {
	return func(f *FeedFetcher) error {
		if client != nil {
			f.client = client
		}
		return nil
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) FeedOption {
	return func(f *FeedFetcher) error {
		if ua = strings.TrimSpace(ua); ua != "" {
			f.userAgent = ua
		}
		return nil
	}
}

// WithMaxItems caps the items taken from one feed. Default is 20.
func WithMaxItems(n int) FeedOption {
	return func(f *FeedFetcher) error {
		if n < 1 {
			return fmt.Errorf("max items must be positive, got %d", n)
		}
		f.maxItems = n
		return nil
	}
}

// WithPageFetch toggles downloading the linked page when a feed entry
// carries too little text. Default is off.
func WithPageFetch(enabled bool) FeedOption {
	return func(f *FeedFetcher) error {
		f.fetchPages = enabled
		return nil
	}
}

// WithRequestRate limits page downloads to perSecond requests. Zero or
// less removes the limit. Default is 2.
func WithRequestRate(perSecond float64) FeedOption {
	return func(f *FeedFetcher) error {
		if perSecond <= 0 {
			f.limiter = rate.NewLimiter(rate.Inf, 1)
			return nil
		}
		f.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) FeedOption {
	return func(f *FeedFetcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		f.logger = logger
		return nil
	}
}

// NewFeedFetcher creates a fetcher for template, which must contain
// KeywordPlaceholder. An empty template selects DefaultFeedTemplate.
func NewFeedFetcher(template string, opts ...FeedOption) (*FeedFetcher, error) {
	if template == "" {
		template = DefaultFeedTemplate
	}
	if err := validateTemplate(template); err != nil {
		return nil, err
	}

	f := &FeedFetcher{
		template:  template,
		client:    &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
		maxItems:  defaultMaxItems,
		limiter:   rate.NewLimiter(rate.Limit(defaultPageRate), 1),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	f.logger = f.logger.With("component", "feed-fetcher")
	return f, nil
}

func validateTemplate(template string) error {
	if !strings.Contains(template, KeywordPlaceholder) {
		return fmt.Errorf("%w: missing %s", ErrInvalidTemplate, KeywordPlaceholder)
	}
	u, err := url.Parse(strings.ReplaceAll(template, KeywordPlaceholder, "x"))
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidTemplate, template)
	}
	return nil
}

// FeedURL returns the feed address for keyword.
func (f *FeedFetcher) FeedURL(keyword string) string {
	return strings.ReplaceAll(f.template, KeywordPlaceholder, url.QueryEscape(keyword))
}

// Fetch implements Fetcher.
func (f *FeedFetcher) Fetch(ctx context.Context, keyword string, known map[string]struct{}) ([]core.RawItem, error) {
	feed, err := f.parseFeed(ctx, f.FeedURL(keyword))
	if err != nil {
		return nil, fmt.Errorf("fetch feed for %q: %w", keyword, err)
	}

	seen := make(map[string]struct{})
	items := make([]core.RawItem, 0, min(len(feed.Items), f.maxItems))
	for _, entry := range feed.Items {
		if len(items) == f.maxItems {
			break
		}
		item, ok := f.toRawItem(entry)
		if !ok {
			continue
		}
		if _, dup := known[item.URL]; dup {
			continue
		}
		if _, dup := seen[item.URL]; dup {
			continue
		}
		seen[item.URL] = struct{}{}

		if f.fetchPages && len([]rune(item.Body)) < minBodyRunes {
			if body, err := f.fetchPage(ctx, item.URL); err != nil {
				f.logger.Debug("page fetch failed, keeping feed text", "url", item.URL, "err", err)
			} else if len(body) > len(item.Body) {
				item.Body = body
			}
		}
		items = append(items, item)
	}

	f.logger.Debug("feed fetched", "keyword", keyword, "entries", len(feed.Items), "count", len(items))
	return items, nil
}

func (f *FeedFetcher) toRawItem(entry *gofeed.Item) (core.RawItem, bool) {
	title := collapse(entry.Title)
	if title == "" {
		return core.RawItem{}, false
	}
	link, err := core.NormalizeURL(entry.Link)
	if err != nil {
		return core.RawItem{}, false
	}
	body := fragmentText(entry.Content)
	if body == "" {
		body = fragmentText(entry.Description)
	}
	return core.RawItem{Title: title, URL: link, Body: body}, true
}

func (f *FeedFetcher) parseFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	body, err := f.get(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	feed, err := gofeed.NewParser().Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

func (f *FeedFetcher) fetchPage(ctx context.Context, pageURL string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}
	body, err := f.get(ctx, pageURL)
	if err != nil {
		return "", err
	}
	defer body.Close()
	return pageText(body)
}

func (f *FeedFetcher) get(ctx context.Context, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", target, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %s", ErrUnexpectedStatus, target, resp.Status)
	}
	return readCloser{io.LimitReader(resp.Body, maxResponseBodyBytes), resp.Body}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}
