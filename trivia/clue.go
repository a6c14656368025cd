/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package trivia

// Showing tracks how much of a clue has been revealed.
type Showing int

const (
	ShowingNone     Showing = iota // placeholder only
	ShowingQuestion                // question text visible
	ShowingAnswer                  // answer text visible, terminal
)

// Placeholder is displayed for clues that have not been clicked yet.
const Placeholder = "?"

func (s Showing) String() string {
	switch s {
	case ShowingNone:
		return "none"
	case ShowingQuestion:
		return "question"
	case ShowingAnswer:
		return "answer"
	default:
		return "unknown"
	}
}

func (s Showing) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Clue is a single question/answer pair and its reveal state.
type Clue struct {
	Question string
	Answer   string
	Showing  Showing
}

// Cell is what a board cell currently displays.
type Cell struct {
	Text   string `json:"text"`
	Answer bool   `json:"answer"`
}

// Reveal advances the clue one step: none to question, question to answer.
// Clues already showing their answer are left alone and report false.
func (c *Clue) Reveal() (Cell, bool) {
	switch c.Showing {
	case ShowingNone:
		c.Showing = ShowingQuestion
	case ShowingQuestion:
		c.Showing = ShowingAnswer
	default:
		return c.Cell(), false
	}

	return c.Cell(), true
}

func (c *Clue) Cell() Cell {
	switch c.Showing {
	case ShowingQuestion:
		return Cell{Text: c.Question}
	case ShowingAnswer:
		return Cell{Text: c.Answer, Answer: true}
	default:
		return Cell{Text: Placeholder}
	}
}
