// Package books provides a read-only client for the Google Books volumes API.
package books

import (
	"context"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"bookchat/internal/core"
	"bookchat/internal/restclient"
)

const defaultBaseURL = "https://www.googleapis.com/books/v1"

// Search result bounds enforced by the volumes API.
const (
	MinResults = 1
	MaxResults = 40
)

// Book is the trimmed search-result shape.
type Book struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Thumbnail     string   `json:"thumbnail,omitempty"`
	PublishedYear string   `json:"publishedYear,omitempty"`
}

// BookDetails is the full volume shape returned by a detail lookup.
type BookDetails struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Description   string   `json:"description,omitempty"`
	PageCount     int      `json:"pageCount,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	Publisher     string   `json:"publisher,omitempty"`
	PublishedDate string   `json:"publishedDate,omitempty"`
	AverageRating float64  `json:"averageRating,omitempty"`
	RatingsCount  int      `json:"ratingsCount,omitempty"`
	Thumbnail     string   `json:"thumbnail,omitempty"`
	Language      string   `json:"language,omitempty"`
}

// SearchParams are the inputs to a volume search.
type SearchParams struct {
	Query string
	// MaxResults is clamped to [1, 40]; zero means the API default of 10.
	MaxResults int
	// OrderBy is "relevance" (default) or "newest".
	OrderBy string
}

// Client calls the Google Books API.
type Client struct {
	rest   *restclient.Client
	apiKey string
}

// New creates a catalog client. The API key is required by the upstream;
// a missing key surfaces as an upstream auth error on first use.
func New(apiKey string) *Client {
	return &Client{
		rest:   restclient.New(restclient.DefaultConfig("books", defaultBaseURL)),
		apiKey: apiKey,
	}
}

// NewWithRestClient creates a catalog client over a custom REST client,
// used by tests to point at an httptest server.
func NewWithRestClient(rest *restclient.Client, apiKey string) *Client {
	return &Client{rest: rest, apiKey: apiKey}
}

// Search queries the volumes endpoint and maps results to the trimmed shape.
// An absent or empty items array maps to an empty slice, not an error.
func (c *Client) Search(ctx context.Context, params SearchParams) ([]Book, error) {
	if c.apiKey == "" {
		return nil, core.NewUpstreamAuthError("books", "missing catalog API key")
	}

	maxResults := params.MaxResults
	if maxResults == 0 {
		maxResults = 10
	}
	if maxResults < MinResults {
		maxResults = MinResults
	}
	if maxResults > MaxResults {
		maxResults = MaxResults
	}

	orderBy := params.OrderBy
	if orderBy == "" {
		orderBy = "relevance"
	}

	query := url.Values{
		"q":          {params.Query},
		"maxResults": {strconv.Itoa(maxResults)},
		"orderBy":    {orderBy},
		"key":        {c.apiKey},
	}

	body, err := c.rest.Get(ctx, "/volumes", query)
	if err != nil {
		return nil, err
	}

	items := gjson.GetBytes(body, "items")
	if !items.IsArray() {
		return []Book{}, nil
	}

	results := make([]Book, 0, len(items.Array()))
	for _, item := range items.Array() {
		results = append(results, mapBook(item))
	}
	return results, nil
}

// Details fetches a single volume by ID.
func (c *Client) Details(ctx context.Context, bookID string) (*BookDetails, error) {
	if c.apiKey == "" {
		return nil, core.NewUpstreamAuthError("books", "missing catalog API key")
	}

	body, err := c.rest.Get(ctx, "/volumes/"+url.PathEscape(bookID), url.Values{"key": {c.apiKey}})
	if err != nil {
		return nil, err
	}

	doc := gjson.ParseBytes(body)
	info := doc.Get("volumeInfo")

	details := &BookDetails{
		ID:            stringOr(doc.Get("id"), bookID),
		Title:         stringOr(info.Get("title"), "Untitled"),
		Authors:       stringSlice(info.Get("authors")),
		Description:   info.Get("description").String(),
		PageCount:     int(info.Get("pageCount").Int()),
		Categories:    stringSlice(info.Get("categories")),
		Publisher:     info.Get("publisher").String(),
		PublishedDate: info.Get("publishedDate").String(),
		AverageRating: info.Get("averageRating").Float(),
		RatingsCount:  int(info.Get("ratingsCount").Int()),
		Thumbnail:     thumbnail(info),
		Language:      info.Get("language").String(),
	}
	return details, nil
}

func mapBook(item gjson.Result) Book {
	info := item.Get("volumeInfo")

	year := ""
	if published := info.Get("publishedDate").String(); len(published) >= 4 {
		year = published[:4]
	}

	return Book{
		ID:            item.Get("id").String(),
		Title:         stringOr(info.Get("title"), "Untitled"),
		Authors:       stringSlice(info.Get("authors")),
		Thumbnail:     thumbnail(info),
		PublishedYear: year,
	}
}

// thumbnail prefers the regular thumbnail and falls back to the small one.
func thumbnail(info gjson.Result) string {
	if t := info.Get("imageLinks.thumbnail").String(); t != "" {
		return t
	}
	return info.Get("imageLinks.smallThumbnail").String()
}

func stringOr(r gjson.Result, fallback string) string {
	if s := r.String(); s != "" {
		return s
	}
	return fallback
}

func stringSlice(r gjson.Result) []string {
	if !r.IsArray() {
		return []string{}
	}
	arr := r.Array()
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		out = append(out, v.String())
	}
	return out
}
