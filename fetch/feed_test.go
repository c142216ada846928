package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const longParagraph = "Researchers released a model that runs entirely on commodity laptops and matches larger systems on benchmarks."

func feedServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var pageHits atomic.Int32
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/rss", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "newswire-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "open ai", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, `<?xml version="1.0"?>
<rss version="2.0"><channel><title>search</title>
<item><title>Known story</title><link>%[1]s/known</link><description>seen before</description></item>
<item><title>Short story</title><link>%[1]s/short#comments</link><description>tiny</description></item>
<item><title>  Rich   story </title><link>%[1]s/rich</link><description><![CDATA[<p>%[2]s</p><p>%[2]s</p><p>%[2]s</p>]]></description></item>
<item><title>Rich story again</title><link>%[1]s/rich</link><description>duplicate</description></item>
<item><title></title><link>%[1]s/untitled</link><description>no title</description></item>
<item><title>Bad link</title><link>ftp://example.org/file</link><description>x</description></item>
</channel></rss>`, srv.URL, longParagraph)
	})
	mux.HandleFunc("/short", func(w http.ResponseWriter, r *http.Request) {
		pageHits.Add(1)
		fmt.Fprintf(w, `<html><body><nav><p>%[1]s nav</p></nav>
<article><p>%[1]s</p><p>too short</p><p>%[1]s Second.</p></article>
<p>%[1]s outside</p></body></html>`, longParagraph)
	})
	mux.HandleFunc("/rich", func(w http.ResponseWriter, r *http.Request) {
		pageHits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &pageHits
}

func TestNewFeedFetcher_Template(t *testing.T) {
	_, err := NewFeedFetcher("https://example.org/rss")
	assert.ErrorIs(t, err, ErrInvalidTemplate)

	_, err = NewFeedFetcher("not a url {keyword}")
	assert.ErrorIs(t, err, ErrInvalidTemplate)

	f, err := NewFeedFetcher("")
	require.NoError(t, err)
	assert.Contains(t, f.FeedURL("large language models"), "q=large+language+models")
}

func TestFeedFetcher_Fetch(t *testing.T) {
	srv, pageHits := feedServer(t)

	f, err := NewFeedFetcher(srv.URL+"/rss?q={keyword}",
		WithUserAgent("newswire-test"),
		WithPageFetch(true),
		WithRequestRate(0),
	)
	require.NoError(t, err)

	known := map[string]struct{}{srv.URL + "/known": {}}
	items, err := f.Fetch(context.Background(), "open ai", known)
	require.NoError(t, err)
	require.Len(t, items, 2)

	short := items[0]
	assert.Equal(t, "Short story", short.Title)
	assert.Equal(t, srv.URL+"/short", short.URL, "fragment is dropped")
	assert.Equal(t, longParagraph+"\n"+longParagraph+" Second.", short.Body)

	rich := items[1]
	assert.Equal(t, "Rich story", rich.Title)
	assert.Equal(t, strings.Repeat(longParagraph+"\n", 2)+longParagraph, rich.Body)

	assert.Equal(t, int32(1), pageHits.Load(), "only the thin entry is downloaded")
}

func TestFeedFetcher_MaxItems(t *testing.T) {
	srv, _ := feedServer(t)

	f, err := NewFeedFetcher(srv.URL+"/rss?q={keyword}", WithUserAgent("newswire-test"), WithMaxItems(1))
	require.NoError(t, err)

	items, err := f.Fetch(context.Background(), "open ai", nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Known story", items[0].Title)
	assert.Equal(t, "seen before", items[0].Body)
}

func TestFeedFetcher_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f, err := NewFeedFetcher(srv.URL + "/rss?q={keyword}")
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), "ai", nil)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestFragmentText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "   ", ""},
		{"plain", "just   some text", "just some text"},
		{"paragraphs", "<p>one</p><p> two  words </p>", "one\ntwo words"},
		{"list", "<ul><li>a</li><li>b</li></ul>", "a\nb"},
		{"inline", "<b>bold</b> and <i>italic</i>", "bold and italic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fragmentText(tt.in))
		})
	}
}
