package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizharvest"
	"bizharvest/scrape"
	"bizharvest/store"
)

func articlePage(title, author, date, body string) string {
	page := "<html><head>"
	if author != "" {
		page += fmt.Sprintf(`<meta name="author" content="%s">`, author)
	}
	page += "</head><body>"
	page += fmt.Sprintf("<h1>%s</h1>", title)
	if date != "" {
		page += fmt.Sprintf(`<time datetime="%s">%s</time>`, date, date)
	}
	page += fmt.Sprintf(`<div class="articleText"><p>%s</p></div>`, body)
	page += "</body></html>"
	return page
}

func indexPage(hrefs ...string) string {
	page := "<html><body>"
	for _, href := range hrefs {
		page += fmt.Sprintf(`<a href="%s">link</a>`, href)
	}
	page += "</body></html>"
	return page
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "articles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRunner(serverURL string, db *store.Store) *Runner {
	return NewRunner(Config{
		BaseURL:    serverURL + "/",
		PathMarker: "/business/",
		Rate:       NoDelay{},
	}, scrape.NewClient(), db)
}

// TestRun_EndToEnd verifies two full articles land in the store with
// increasing ids and normalized fields
func TestRun_EndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(indexPage("/business/markets-1", "/business/rbi-2", "/sports/cricket-3")))
	})
	mux.HandleFunc("/business/markets-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articlePage("Markets rally", "Priya Nair", "2025-11-11T10:30:00", "Stocks rose.")))
	})
	mux.HandleFunc("/business/rbi-2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articlePage("RBI holds rates", "Arun Shah", "2025-11-12T09:00:00", "Rates unchanged.")))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	db := testStore(t)
	summary, err := testRunner(server.URL, db).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Discovered)
	assert.Equal(t, 2, summary.Inserted)
	assert.Zero(t, summary.Duplicates)
	assert.Zero(t, summary.Failed)

	articles, err := db.List(0)
	require.NoError(t, err)
	require.Len(t, articles, 2)

	// Sorted link order: markets-1 before rbi-2.
	first, second := articles[0], articles[1]
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, "Markets rally", first.Title)
	assert.Equal(t, "Priya Nair", first.Author)
	require.NotNil(t, first.PublishedAt)
	assert.Equal(t, "2025-11-11T10:30:00", *first.PublishedAt)
	assert.Equal(t, server.URL+"/business/markets-1", first.URL)
	assert.Equal(t, "Stocks rose.", first.Content)

	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, "RBI holds rates", second.Title)
}

// TestRun_Idempotent verifies a second run against the same homepage adds
// zero rows
func TestRun_Idempotent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(indexPage("/business/a-1", "/business/b-2")))
	})
	mux.HandleFunc("/business/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articlePage("A title", "", "", "Some text.")))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	db := testStore(t)
	runner := testRunner(server.URL, db)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Inserted)

	summary, err = runner.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Inserted)
	assert.Equal(t, 2, summary.Duplicates)

	count, err := db.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

// TestRun_PartialFailureContinues verifies one bad article doesn't abort
// the run
func TestRun_PartialFailureContinues(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(indexPage("/business/a-1", "/business/b-2", "/business/c-3")))
	})
	mux.HandleFunc("/business/a-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articlePage("Article A", "", "", "Text A.")))
	})
	mux.HandleFunc("/business/b-2", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/business/c-3", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articlePage("Article C", "", "", "Text C.")))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	db := testStore(t)
	summary, err := testRunner(server.URL, db).Run(context.Background())
	require.NoError(t, err, "per-article failure must not abort the run")

	assert.Equal(t, 3, summary.Discovered)
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 1, summary.Failed)
}

// TestRun_MissingAuthorDegrades verifies a missing byline yields a stored
// row with the author sentinel, not a skipped article
func TestRun_MissingAuthorDegrades(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(indexPage("/business/anon-1")))
	})
	mux.HandleFunc("/business/anon-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articlePage("No byline here", "", "", "Body text.")))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	db := testStore(t)
	summary, err := testRunner(server.URL, db).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Inserted)
	assert.Zero(t, summary.Failed)

	articles, err := db.List(0)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, bizharvest.UnknownAuthor, articles[0].Author)
	assert.Nil(t, articles[0].PublishedAt)
}

// TestRun_ZeroLinks verifies an empty homepage is a successful run
func TestRun_ZeroLinks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(indexPage("/sports/only-1")))
	}))
	defer server.Close()

	db := testStore(t)
	summary, err := testRunner(server.URL, db).Run(context.Background())

	require.NoError(t, err)
	assert.Zero(t, summary.Discovered)
	assert.Zero(t, summary.Inserted)
}

// TestRun_HomepageFailureIsFatal verifies the run aborts with no homepage
func TestRun_HomepageFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	db := testStore(t)
	_, err := testRunner(server.URL, db).Run(context.Background())

	assert.Error(t, err)
}

// TestRun_KnownURLSkipsFetch verifies the pre-check saves the network
// round trip for already-stored articles
func TestRun_KnownURLSkipsFetch(t *testing.T) {
	var articleHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(indexPage("/business/seen-1")))
	})
	mux.HandleFunc("/business/seen-1", func(w http.ResponseWriter, r *http.Request) {
		articleHits.Add(1)
		w.Write([]byte(articlePage("Seen before", "", "", "Text.")))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	db := testStore(t)
	date := "2025-11-11T10:30:00"
	_, err := db.InsertIfNew(bizharvest.Article{
		Title:       "Seen before",
		Author:      bizharvest.UnknownAuthor,
		PublishedAt: &date,
		URL:         server.URL + "/business/seen-1",
		Content:     "Text.",
	})
	require.NoError(t, err)

	summary, err := testRunner(server.URL, db).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Duplicates)
	assert.Zero(t, summary.Inserted)
	assert.Zero(t, articleHits.Load(), "stored URLs should not be fetched again")
}

// countingPolicy records how many times the runner waited.
type countingPolicy struct {
	waits int
}

func (p *countingPolicy) Wait(context.Context) error {
	p.waits++
	return nil
}

// TestRun_DelayBetweenFetches verifies the rate policy runs between
// consecutive articles but not before the first
func TestRun_DelayBetweenFetches(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(indexPage("/business/a-1", "/business/b-2", "/business/c-3")))
	})
	mux.HandleFunc("/business/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articlePage("T", "", "", "Body.")))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	db := testStore(t)
	policy := &countingPolicy{}
	runner := NewRunner(Config{
		BaseURL:    server.URL + "/",
		PathMarker: "/business/",
		Rate:       policy,
	}, scrape.NewClient(), db)

	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, policy.waits)
}

// TestTruncate_RuneBoundary verifies truncation never splits a multibyte
// character
func TestTruncate_RuneBoundary(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 60))

	// Each character is three bytes; byte 4 falls mid-rune.
	assert.Equal(t, "日", truncate("日本語", 4))
	assert.Equal(t, "日本", truncate("日本語", 6))

	got := truncate(strings.Repeat("я", 50), 61)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("я", 30), got)
}

// TestRun_NonArticlePageSkipped verifies index-ish pages with no title or
// body are counted as failures, not stored
func TestRun_NonArticlePageSkipped(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(indexPage("/business/index-1")))
	})
	mux.HandleFunc("/business/index-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><div>nothing useful</div></body></html>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	db := testStore(t)
	summary, err := testRunner(server.URL, db).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Zero(t, summary.Inserted)

	count, err := db.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}
