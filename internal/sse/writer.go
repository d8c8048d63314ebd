// Package sse implements the Server-Sent-Events wire layer of the relay:
// re-framing the upstream token stream into SSE frames on the way out, and
// parsing frames back into assistant text on the way in.
package sse

import (
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
)

// DoneSentinel is the reserved payload that terminates every stream.
const DoneSentinel = "[DONE]"

var whitespaceRun = regexp.MustCompile(`\s+`)

// CleanChunk prepares one text increment for framing: Unicode replacement
// characters are stripped and every internal run of whitespace collapses to a
// single space. Collapsing favors readability over byte-for-byte fidelity;
// downstream consumers must treat the text as re-wrappable.
func CleanChunk(text string) string {
	text = strings.ReplaceAll(text, "�", "")
	return whitespaceRun.ReplaceAllString(text, " ")
}

// Writer re-frames a forward-only sequence of text increments as SSE frames.
// Frames are emitted strictly in increment arrival order, one frame per
// non-empty increment, with no coalescing window. The writer owns frame
// construction exclusively.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
	clean   func(string) string
	done    bool
}

// NewWriter wraps the outbound transport. When w implements http.Flusher
// each frame is flushed immediately so the client renders partial text.
func NewWriter(w io.Writer) *Writer {
	sw := &Writer{w: w, clean: CleanChunk}
	if f, ok := w.(http.Flusher); ok {
		sw.flusher = f
	}
	return sw
}

// WriteIncrement emits one frame for the given text increment. Empty
// increments, and increments that clean down to nothing, are skipped.
func (sw *Writer) WriteIncrement(text string) error {
	if sw.done || text == "" {
		return nil
	}

	cleaned := sw.clean(text)
	if cleaned == "" {
		return nil
	}

	return sw.writeFrame(cleaned)
}

// Done emits the terminal sentinel frame. Exactly one sentinel is emitted
// per stream; repeat calls are no-ops.
func (sw *Writer) Done() error {
	if sw.done {
		return nil
	}
	sw.done = true
	return sw.writeFrame(DoneSentinel)
}

// Abort attempts a best-effort teardown of the transport after a mid-stream
// failure. The response status is already on the wire, so the only honest
// signal left is an abrupt close; a secondary failure here is swallowed
// because the primary failure has already been reported upstream.
//
// On an HTTP/1 response the connection is hijacked and closed so the client
// observes the cut immediately. Where hijacking is unsupported (HTTP/2,
// recorders) the response falls back to a graceful sentinel-less close,
// which consumers still treat as a failed stream.
func (sw *Writer) Abort() {
	sw.done = true

	if rw, ok := sw.w.(http.ResponseWriter); ok {
		conn, _, err := http.NewResponseController(rw).Hijack()
		if err != nil {
			slog.Debug("sse transport hijack failed during abort", "error", err)
			return
		}
		if err := conn.Close(); err != nil {
			slog.Debug("sse transport close failed during abort", "error", err)
		}
		return
	}

	if closer, ok := sw.w.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			slog.Debug("sse transport close failed during abort", "error", err)
		}
	}
}

func (sw *Writer) writeFrame(payload string) error {
	if _, err := io.WriteString(sw.w, "data: "+payload+"\n\n"); err != nil {
		return err
	}
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
	return nil
}
