/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package trivia holds the game logic of a trivia board: the clue reveal
// state machine, the board itself, the provider client that fetches
// categories and clues, and the session that ties a setup to its board.
package trivia

import "fmt"

const (
	NumCategories    = 6
	CluesPerCategory = 5
)

// Category is a titled column of clues.
type Category struct {
	ID    int
	Title string
	Clues [CluesPerCategory]Clue
}

// Position addresses one cell of the board.
type Position struct {
	Category int `json:"category"`
	Clue     int `json:"clue"`
}

func (p Position) valid() bool {
	return p.Category >= 0 && p.Category < NumCategories &&
		p.Clue >= 0 && p.Clue < CluesPerCategory
}

func (p Position) String() string {
	return fmt.Sprintf("%d/%d", p.Category, p.Clue)
}

// Board is a full grid of categories, always NumCategories wide.
type Board struct {
	categories [NumCategories]Category
}

// NewBoard builds a board from exactly NumCategories categories, in column order.
func NewBoard(categories []Category) (*Board, error) {
	if len(categories) != NumCategories {
		return nil, fmt.Errorf("%w: got %d categories", ErrBoardShape, len(categories))
	}

	b := &Board{}
	copy(b.categories[:], categories)

	return b, nil
}

func (b *Board) Category(i int) Category {
	return b.categories[i]
}

func (b *Board) Titles() []string {
	titles := make([]string, NumCategories)
	for i, c := range b.categories {
		titles[i] = c.Title
	}
	return titles
}

// Reveal advances the clue at p and returns what its cell now shows.
func (b *Board) Reveal(p Position) (Cell, bool, error) {
	if !p.valid() {
		return Cell{}, false, fmt.Errorf("%w: %s", ErrOutOfRange, p)
	}

	cell, changed := b.categories[p.Category].Clues[p.Clue].Reveal()

	return cell, changed, nil
}

// Cells returns the grid column by column: Cells()[category][clue].
func (b *Board) Cells() [][]Cell {
	cells := make([][]Cell, NumCategories)
	for i := range b.categories {
		cells[i] = make([]Cell, CluesPerCategory)
		for j := range b.categories[i].Clues {
			cells[i][j] = b.categories[i].Clues[j].Cell()
		}
	}
	return cells
}
