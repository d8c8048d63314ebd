package tools

import (
	"context"
	"fmt"
	"strings"

	"bookchat/internal/books"
)

// bookDetailsInput is the typed contract for the getBookDetails tool.
type bookDetailsInput struct {
	BookID string `json:"bookId" validate:"required,min=1"`
}

// NewBookDetailsTool declares the detail-lookup tool over the given client.
// Unlike searchBooks it returns a pre-formatted human-readable summary, which
// the system prompt instructs the model to reproduce verbatim.
func NewBookDetailsTool(client *books.Client) Tool {
	return Tool{
		Name:        "getBookDetails",
		Description: "Fetch detailed information about a book by its catalog ID.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"bookId": map[string]any{
					"type":        "string",
					"description": "Unique catalog ID of the book.",
				},
			},
			"required": []string{"bookId"},
		},
		Execute: func(ctx context.Context, input map[string]any) (string, error) {
			var in bookDetailsInput
			if err := decodeInput(input, &in); err != nil {
				return "", fmt.Errorf("invalid input: %w", err)
			}

			details, err := client.Details(ctx, in.BookID)
			if err != nil {
				return "", err
			}
			return formatDetails(details), nil
		},
	}
}

// formatDetails renders volume details as a readable summary.
func formatDetails(d *books.BookDetails) string {
	var b strings.Builder

	b.WriteString(d.Title)
	if len(d.Authors) > 0 {
		b.WriteString(" by ")
		b.WriteString(strings.Join(d.Authors, ", "))
	}
	if d.Publisher != "" || d.PublishedDate != "" {
		b.WriteString(" (")
		b.WriteString(strings.TrimSpace(strings.Join(nonEmpty(d.Publisher, d.PublishedDate), ", ")))
		b.WriteString(")")
	}
	b.WriteString(".")

	if d.PageCount > 0 {
		fmt.Fprintf(&b, " %d pages.", d.PageCount)
	}
	if d.AverageRating > 0 {
		fmt.Fprintf(&b, " Rated %.1f", d.AverageRating)
		if d.RatingsCount > 0 {
			fmt.Fprintf(&b, " by %d readers", d.RatingsCount)
		}
		b.WriteString(".")
	}
	if len(d.Categories) > 0 {
		b.WriteString(" Categories: ")
		b.WriteString(strings.Join(d.Categories, ", "))
		b.WriteString(".")
	}
	if d.Language != "" {
		b.WriteString(" Language: ")
		b.WriteString(d.Language)
		b.WriteString(".")
	}
	if d.Description != "" {
		b.WriteString("\n\n")
		b.WriteString(d.Description)
	}

	return b.String()
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
