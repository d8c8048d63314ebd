package sse

import (
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"bookchat/internal/core"
)

var (
	multiSpace       = regexp.MustCompile(`\s{2,}`)
	spaceBeforePunct = regexp.MustCompile(`\s+([.,;!?])`)
	punctThenLetter  = regexp.MustCompile(`([.,;!?])(\p{L})`)
)

// FinalizeText applies the end-of-stream normalization pass: whitespace
// collapse plus punctuation spacing (no space before punctuation, one space
// after it when a letter follows).
func FinalizeText(text string) string {
	text = multiSpace.ReplaceAllString(text, " ")
	text = spaceBeforePunct.ReplaceAllString(text, "$1")
	text = punctThenLetter.ReplaceAllString(text, "$1 $2")
	return strings.TrimSpace(text)
}

// Consume reads an SSE byte stream to completion, accumulating `data:`
// payloads into assistant text. After every frame the running accumulator is
// republished through onUpdate so a UI can render partial text. The sentinel
// frame is recognized and dropped.
//
// Byte chunks may split frames, and even multi-byte characters, anywhere;
// partial bytes are carried to the next read. A stream that closes before
// the sentinel returns the text gathered so far alongside an upstream error,
// so callers can show fallback copy and offer a retry.
func Consume(r io.Reader, onUpdate func(string)) (string, error) {
	var (
		acc     strings.Builder
		buffer  string
		pending []byte
		done    bool
	)

	publish := func() {
		if onUpdate != nil {
			onUpdate(acc.String())
		}
	}

	chunk := make([]byte, 4096)
	for {
		n, readErr := r.Read(chunk)
		if n > 0 {
			data := append(pending, chunk[:n]...)
			complete, rest := splitCompleteRunes(data)
			pending = append([]byte(nil), rest...)
			buffer += string(complete)

			events := strings.Split(buffer, "\n\n")
			buffer = events[len(events)-1]
			for _, event := range events[:len(events)-1] {
				payload, ok := framePayload(event)
				if !ok {
					continue
				}
				if payload == DoneSentinel {
					done = true
					continue
				}
				acc.WriteString(payload)
				publish()
			}
		}

		if readErr != nil {
			if readErr != io.EOF {
				return FinalizeText(acc.String()), core.NewUpstreamError("stream", "read failed: "+readErr.Error(), readErr)
			}
			break
		}
	}

	// Flush whatever trails the last delimiter, pending bytes included.
	buffer += string(pending)
	if payload, ok := framePayload(buffer); ok {
		if payload == DoneSentinel {
			done = true
		} else {
			acc.WriteString(payload)
			publish()
		}
	}

	final := FinalizeText(acc.String())
	if !done {
		return final, core.NewUpstreamError("stream", "stream closed before completion", nil)
	}
	return final, nil
}

// framePayload extracts the payload from one SSE event block. Events without
// a data prefix (comments, keep-alives) are ignored.
func framePayload(event string) (string, bool) {
	if !strings.HasPrefix(event, "data:") {
		return "", false
	}
	payload := strings.TrimPrefix(event, "data:")
	payload = strings.TrimPrefix(payload, " ")
	return payload, true
}

// splitCompleteRunes splits data so that complete holds only whole UTF-8
// sequences and rest holds the trailing bytes of a rune still in flight.
func splitCompleteRunes(data []byte) (complete, rest []byte) {
	n := len(data)
	for i := 1; i <= utf8.UTFMax && i <= n; i++ {
		b := data[n-i]
		if utf8.RuneStart(b) {
			if utf8.Valid(data[n-i:]) {
				return data, nil
			}
			return data[:n-i], data[n-i:]
		}
	}
	return data, nil
}
