package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"bookchat/internal/books"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// searchBooksInput is the typed contract for the searchBooks tool.
type searchBooksInput struct {
	Query      string `json:"query" validate:"required,min=1,max=200"`
	MaxResults int    `json:"maxResults" validate:"omitempty,min=1,max=40"`
	OrderBy    string `json:"orderBy" validate:"omitempty,oneof=relevance newest"`
}

// NewSearchBooksTool declares the catalog search tool over the given client.
// It returns the matching volumes as JSON, or a literal "no results" message
// so the model does not render an empty list as a list.
func NewSearchBooksTool(client *books.Client) Tool {
	return Tool{
		Name:        "searchBooks",
		Description: "Search the book catalog by title, author or topic.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search term (title, author or topic).",
				},
				"maxResults": map[string]any{
					"type":        "integer",
					"minimum":     books.MinResults,
					"maximum":     books.MaxResults,
					"description": "Number of results to return (1 to 40).",
				},
				"orderBy": map[string]any{
					"type":        "string",
					"enum":        []string{"relevance", "newest"},
					"description": "Result ordering.",
				},
			},
			"required": []string{"query"},
		},
		Execute: func(ctx context.Context, input map[string]any) (string, error) {
			var in searchBooksInput
			if err := decodeInput(input, &in); err != nil {
				return "", fmt.Errorf("invalid input: %w", err)
			}

			results, err := client.Search(ctx, books.SearchParams{
				Query:      in.Query,
				MaxResults: in.MaxResults,
				OrderBy:    in.OrderBy,
			})
			if err != nil {
				return "", err
			}

			if len(results) == 0 {
				return "no results found for " + in.Query, nil
			}

			data, err := json.Marshal(results)
			if err != nil {
				return "", err
			}
			return string(data), nil
		},
	}
}

// decodeInput coerces the untyped argument object into a typed input struct
// and validates it before any execution happens.
func decodeInput(input map[string]any, out any) error {
	data, err := json.Marshal(input)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return err
	}
	return validate.Struct(out)
}
