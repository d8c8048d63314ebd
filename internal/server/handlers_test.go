package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookchat/internal/books"
	"bookchat/internal/core"
	"bookchat/internal/ratelimit"
)

type fakeStreamer struct {
	fn func(ctx context.Context, messages []core.ChatMessage, onDelta func(string)) error
}

func (f *fakeStreamer) Stream(ctx context.Context, messages []core.ChatMessage, onDelta func(string)) error {
	return f.fn(ctx, messages, onDelta)
}

type fakeSearcher struct {
	results []books.Book
	err     error
	got     books.SearchParams
}

func (f *fakeSearcher) Search(_ context.Context, params books.SearchParams) ([]books.Book, error) {
	f.got = params
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func permissiveLimiter() *ratelimit.Limiter {
	return ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.Config{
		MinDelay: time.Nanosecond,
		Window:   time.Minute,
		Ceiling:  1000,
	})
}

func newTestServer(streamer Streamer, searcher BookSearcher, cfg *Config) *Server {
	if streamer == nil {
		streamer = &fakeStreamer{fn: func(context.Context, []core.ChatMessage, func(string)) error {
			return nil
		}}
	}
	if searcher == nil {
		searcher = &fakeSearcher{}
	}
	return New(NewHandler(permissiveLimiter(), streamer, searcher), cfg)
}

func postJSON(srv *Server, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestChatStreamsFramesAndSentinel(t *testing.T) {
	streamer := &fakeStreamer{fn: func(_ context.Context, messages []core.ChatMessage, onDelta func(string)) error {
		if assert.Len(t, messages, 1) {
			assert.Equal(t, "hi there", messages[0].Text())
		}
		onDelta("Hel")
		onDelta("lo")
		return nil
	}}

	srv := newTestServer(streamer, nil, nil)
	rec := postJSON(srv, "/chat", `{"messages":[{"role":"user","content":"hi there"}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "data: Hel\n\ndata: lo\n\ndata: [DONE]\n\n", rec.Body.String())
}

func TestChatEmptyGenerationStillTerminates(t *testing.T) {
	srv := newTestServer(nil, nil, nil)
	rec := postJSON(srv, "/chat", `{"messages":[{"role":"user","content":"hi"}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "data: [DONE]\n\n", rec.Body.String())
}

func TestChatRejectsMalformedMessages(t *testing.T) {
	srv := newTestServer(nil, nil, nil)
	rec := postJSON(srv, "/chat", `{"messages":{"role":"user"}}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(core.ErrorKindValidation), body["error"]["type"])
}

func TestChatPreStreamFailureIsJSON(t *testing.T) {
	streamer := &fakeStreamer{fn: func(context.Context, []core.ChatMessage, func(string)) error {
		return core.NewUpstreamError("openrouter", "connection refused", nil)
	}}

	srv := newTestServer(streamer, nil, nil)
	rec := postJSON(srv, "/chat", `{"messages":[{"role":"user","content":"hi"}]}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestChatMidStreamFailureOmitsSentinel(t *testing.T) {
	streamer := &fakeStreamer{fn: func(_ context.Context, _ []core.ChatMessage, onDelta func(string)) error {
		onDelta("partial")
		return core.NewUpstreamError("openrouter", "stream cut", nil)
	}}

	srv := newTestServer(streamer, nil, nil)
	rec := postJSON(srv, "/chat", `{"messages":[{"role":"user","content":"hi"}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "data: partial\n\n", rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "[DONE]")
}

func TestChatRateLimitsRepeatClients(t *testing.T) {
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.Config{
		MinDelay: time.Hour,
		Window:   24 * time.Hour,
		Ceiling:  10,
	})
	streamer := &fakeStreamer{fn: func(context.Context, []core.ChatMessage, func(string)) error {
		return nil
	}}
	srv := New(NewHandler(limiter, streamer, &fakeSearcher{}), nil)

	first := postJSON(srv, "/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, first.Code)

	second := postJSON(srv, "/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusTooManyRequests, second.Code)

	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &body))
	assert.Equal(t, string(core.ErrorKindRateLimit), body["error"]["type"])
}

func TestSearchBooksEnvelope(t *testing.T) {
	searcher := &fakeSearcher{results: []books.Book{
		{ID: "abc", Title: "Dune", Authors: []string{"Frank Herbert"}},
	}}

	srv := newTestServer(nil, searcher, nil)
	rec := postJSON(srv, "/tools/search", `{"query":"dune","maxResults":5,"orderBy":"newest"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		OK   bool         `json:"ok"`
		Data []books.Book `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.OK)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Dune", body.Data[0].Title)

	assert.Equal(t, "dune", searcher.got.Query)
	assert.Equal(t, 5, searcher.got.MaxResults)
	assert.Equal(t, "newest", searcher.got.OrderBy)
}

func TestSearchBooksRequiresQuery(t *testing.T) {
	srv := newTestServer(nil, nil, nil)
	rec := postJSON(srv, "/tools/search", `{"maxResults":5}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.OK)
	assert.Contains(t, body.Error, "query")
}

func TestSearchBooksValidatesInput(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{
			name:    "query too long",
			body:    `{"query":"` + strings.Repeat("a", 250) + `"}`,
			wantMsg: "query",
		},
		{
			name:    "maxResults above ceiling",
			body:    `{"query":"dune","maxResults":99}`,
			wantMsg: "maxResults",
		},
		{
			name:    "maxResults below floor",
			body:    `{"query":"dune","maxResults":-1}`,
			wantMsg: "maxResults",
		},
		{
			name:    "unknown orderBy",
			body:    `{"query":"dune","orderBy":"alphabetical"}`,
			wantMsg: "orderBy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &fakeSearcher{}
			srv := newTestServer(nil, searcher, nil)

			rec := postJSON(srv, "/tools/search", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var body struct {
				OK    bool   `json:"ok"`
				Error string `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.OK)
			assert.Contains(t, body.Error, tt.wantMsg)

			// Rejected input never reaches the catalog.
			assert.Empty(t, searcher.got.Query)
		})
	}
}

func TestSearchBooksUpstreamFailure(t *testing.T) {
	searcher := &fakeSearcher{err: core.NewUpstreamError("google-books", "boom", nil)}

	srv := newTestServer(nil, searcher, nil)
	rec := postJSON(srv, "/tools/search", `{"query":"dune"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.OK)
	assert.Equal(t, "book search failed", body.Error)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
