package trivia

import "context"

// Provider is a source of trivia categories and clues.
type Provider interface {
	ListCategories(ctx context.Context, count, offset int) ([]CategorySummary, error)
	GetCategory(ctx context.Context, id int) (CategoryDetail, error)
}

// CategorySummary is one entry of a paged category listing.
type CategorySummary struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	CluesCount int    `json:"clues_count"`
}

// CategoryDetail is a category along with every clue it holds.
type CategoryDetail struct {
	ID         int          `json:"id"`
	Title      string       `json:"title"`
	CluesCount int          `json:"clues_count"`
	Clues      []ClueDetail `json:"clues"`
}

type ClueDetail struct {
	ID       int    `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Value    int    `json:"value"`
}
