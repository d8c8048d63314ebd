// Package server provides HTTP handlers and server setup for the chat relay.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"bookchat/internal/books"
	"bookchat/internal/core"
	"bookchat/internal/observability"
	"bookchat/internal/ratelimit"
	"bookchat/internal/sse"
)

// Streamer relays a normalized conversation upstream, delivering text
// increments through the callback.
type Streamer interface {
	Stream(ctx context.Context, messages []core.ChatMessage, onDelta func(string)) error
}

// BookSearcher serves the direct (non-model) catalog search endpoint.
type BookSearcher interface {
	Search(ctx context.Context, params books.SearchParams) ([]books.Book, error)
}

// Handler holds the HTTP handlers
type Handler struct {
	limiter *ratelimit.Limiter
	relay   Streamer
	books   BookSearcher
}

// NewHandler creates a new handler
func NewHandler(limiter *ratelimit.Limiter, relay Streamer, catalog BookSearcher) *Handler {
	return &Handler{
		limiter: limiter,
		relay:   relay,
		books:   catalog,
	}
}

// Chat handles POST /chat: it admits, normalizes, relays, and streams the
// reply as SSE frames terminated by a single [DONE] sentinel.
func (h *Handler) Chat(c echo.Context) error {
	start := time.Now()

	clientID := c.RealIP()
	ctx := core.WithRequestID(c.Request().Context(), uuid.NewString())
	ctx = core.WithClientID(ctx, clientID)

	if !h.limiter.Admit(ctx, clientID) {
		observability.RateLimitRejections.Inc()
		observability.ChatRequests.WithLabelValues(observability.OutcomeRateLimited).Inc()
		return handleError(c, core.NewRateLimitError("too many requests, slow down"))
	}

	var req core.ChatRequest
	if err := c.Bind(&req); err != nil {
		observability.ChatRequests.WithLabelValues(observability.OutcomeRejected).Inc()
		return handleError(c, core.NewValidationError("invalid request body: "+err.Error(), err))
	}

	messages, err := core.NormalizeMessages(req.Messages)
	if err != nil {
		observability.ChatRequests.WithLabelValues(observability.OutcomeRejected).Inc()
		return handleError(c, err)
	}

	// The SSE headers go out lazily, on the first increment. Until then a
	// relay failure can still be reported as plain JSON.
	res := c.Response()
	var writer *sse.Writer
	openStream := func() {
		res.Header().Set("Content-Type", "text/event-stream")
		res.Header().Set("Cache-Control", "no-cache")
		res.Header().Set("Connection", "keep-alive")
		res.WriteHeader(http.StatusOK)
		writer = sse.NewWriter(res)
	}

	streamErr := h.relay.Stream(ctx, messages, func(delta string) {
		if writer == nil {
			openStream()
		}
		if err := writer.WriteIncrement(delta); err != nil {
			slog.Warn("client write failed mid-stream",
				"request_id", core.GetRequestID(ctx), "error", err)
			return
		}
		observability.StreamIncrements.Inc()
	})

	if streamErr != nil {
		slog.Error("chat relay failed",
			"request_id", core.GetRequestID(ctx),
			"client_id", clientID,
			"error", streamErr,
		)
		observability.ChatRequests.WithLabelValues(observability.OutcomeError).Inc()
		if writer == nil {
			return handleError(c, streamErr)
		}
		// Increments are already on the wire. Closing without the sentinel
		// is the only remaining way to signal failure.
		writer.Abort()
		return nil
	}

	if writer == nil {
		// The model produced no text. The stream contract still holds.
		openStream()
	}
	if err := writer.Done(); err != nil {
		slog.Warn("failed to write stream sentinel",
			"request_id", core.GetRequestID(ctx), "error", err)
	}

	observability.ChatRequests.WithLabelValues(observability.OutcomeOK).Inc()
	observability.StreamDuration.Observe(time.Since(start).Seconds())
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

type searchRequest struct {
	Query      string `json:"query" validate:"required,min=1,max=200"`
	MaxResults int    `json:"maxResults" validate:"omitempty,min=1,max=40"`
	OrderBy    string `json:"orderBy" validate:"omitempty,oneof=relevance newest"`
}

// SearchBooks handles POST /tools/search, the direct catalog lookup that
// bypasses the model.
func (h *Handler) SearchBooks(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return searchFailure(c, http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return searchFailure(c, http.StatusBadRequest, searchValidationMessage(err))
	}

	ctx := core.WithRequestID(c.Request().Context(), uuid.NewString())
	results, err := h.books.Search(ctx, books.SearchParams{
		Query:      req.Query,
		MaxResults: req.MaxResults,
		OrderBy:    req.OrderBy,
	})
	if err != nil {
		slog.Error("catalog search failed", "query", req.Query, "error", err)
		observability.CatalogRequests.WithLabelValues(observability.OutcomeError).Inc()

		status := http.StatusInternalServerError
		var relayErr *core.RelayError
		if errors.As(err, &relayErr) {
			status = relayErr.HTTPStatusCode()
		}
		return searchFailure(c, status, "book search failed")
	}

	observability.CatalogRequests.WithLabelValues(observability.OutcomeOK).Inc()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok":   true,
		"data": results,
	})
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// searchValidationMessage maps the first failed field to its client-facing
// message.
func searchValidationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		switch fieldErrs[0].Field() {
		case "Query":
			return "missing or invalid 'query' parameter (1 to 200 characters)"
		case "MaxResults":
			return "'maxResults' must be between 1 and 40"
		case "OrderBy":
			return "'orderBy' must be 'relevance' or 'newest'"
		}
	}
	return "invalid search parameters"
}

func searchFailure(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]interface{}{
		"ok":    false,
		"error": message,
	})
}

// handleError converts relay errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var relayErr *core.RelayError
	if errors.As(err, &relayErr) {
		return c.JSON(relayErr.HTTPStatusCode(), relayErr.ToJSON())
	}

	// Fallback for unexpected errors
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}
