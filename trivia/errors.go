package trivia

import (
	"errors"
	"fmt"
)

var (
	ErrBoardShape       = errors.New("board must have 6 categories of 5 clues")
	ErrTooFewClues      = errors.New("category has too few usable clues")
	ErrNoSubstitute     = errors.New("no eligible substitute category")
	ErrCatalogExhausted = errors.New("category catalog exhausted")
	ErrStaleSetup       = errors.New("setup superseded by a newer one")
	ErrAlreadyFilled    = errors.New("board already filled")
	ErrNotPlaying       = errors.New("board is not in play")
	ErrOutOfRange       = errors.New("position out of range")
)

// StatusError is returned when the trivia provider answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("trivia provider returned %d for %s", e.StatusCode, e.URL)
}
