package books

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookchat/internal/core"
	"bookchat/internal/restclient"
)

const searchFixture = `{
  "items": [
    {
      "id": "abc123",
      "volumeInfo": {
        "title": "Dune",
        "authors": ["Frank Herbert"],
        "publishedDate": "1965-08-01",
        "imageLinks": {"thumbnail": "http://books/thumb.jpg"}
      }
    },
    {
      "id": "def456",
      "volumeInfo": {
        "publishedDate": "19",
        "imageLinks": {"smallThumbnail": "http://books/small.jpg"}
      }
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := restclient.DefaultConfig("books", srv.URL)
	cfg.MaxRetries = 0
	cfg.CircuitBreaker = nil
	return NewWithRestClient(restclient.NewWithHTTPClient(srv.Client(), cfg), "test-key")
}

func TestSearchMapsResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/volumes", r.URL.Path)
		assert.Equal(t, "dune", r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("maxResults"))
		assert.Equal(t, "newest", r.URL.Query().Get("orderBy"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(searchFixture))
	})

	results, err := c.Search(context.Background(), SearchParams{Query: "dune", MaxResults: 5, OrderBy: "newest"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, Book{
		ID:            "abc123",
		Title:         "Dune",
		Authors:       []string{"Frank Herbert"},
		Thumbnail:     "http://books/thumb.jpg",
		PublishedYear: "1965",
	}, results[0])

	// Missing title falls back, short dates yield no year, small thumbnail
	// is used when the regular one is absent.
	assert.Equal(t, "Untitled", results[1].Title)
	assert.Empty(t, results[1].PublishedYear)
	assert.Equal(t, "http://books/small.jpg", results[1].Thumbnail)
	assert.Empty(t, results[1].Authors)
}

func TestSearchClampsMaxResults(t *testing.T) {
	tests := []struct {
		requested int
		expected  string
	}{
		{0, "10"},
		{-3, "1"},
		{100, "40"},
		{7, "7"},
	}

	for _, tt := range tests {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, tt.expected, r.URL.Query().Get("maxResults"))
			_, _ = w.Write([]byte(`{}`))
		})
		_, err := c.Search(context.Background(), SearchParams{Query: "x", MaxResults: tt.requested})
		require.NoError(t, err)
	}
}

func TestSearchNoItemsIsEmptySlice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"totalItems":0}`))
	})

	results, err := c.Search(context.Background(), SearchParams{Query: "zzzzz"})
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearchMissingAPIKey(t *testing.T) {
	c := NewWithRestClient(nil, "")

	_, err := c.Search(context.Background(), SearchParams{Query: "dune"})
	require.Error(t, err)

	var relayErr *core.RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, core.ErrorKindUpstreamAuth, relayErr.Kind)
}

func TestDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/volumes/abc123", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"id": "abc123",
			"volumeInfo": {
				"title": "Dune",
				"authors": ["Frank Herbert"],
				"description": "Desert planet epic.",
				"pageCount": 412,
				"categories": ["Fiction"],
				"publisher": "Chilton Books",
				"publishedDate": "1965-08-01",
				"averageRating": 4.5,
				"ratingsCount": 5000,
				"language": "en"
			}
		}`))
	})

	details, err := c.Details(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, "Dune", details.Title)
	assert.Equal(t, []string{"Frank Herbert"}, details.Authors)
	assert.Equal(t, 412, details.PageCount)
	assert.Equal(t, 4.5, details.AverageRating)
	assert.Equal(t, "en", details.Language)
}

func TestDetailsDefaultsOnSparseVolume(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	details, err := c.Details(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, "ghost", details.ID)
	assert.Equal(t, "Untitled", details.Title)
	assert.Empty(t, details.Authors)
}
