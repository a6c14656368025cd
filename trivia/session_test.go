package trivia

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type boardFunc func(ctx context.Context) (*Board, error)

func (f boardFunc) Acquire(ctx context.Context) (*Board, error) {
	return f(ctx)
}

func TestSessionStartsIdle(t *testing.T) {
	s := NewSession()

	v := s.View()
	assert.Equal(t, PhaseIdle, v.Phase)
	assert.Equal(t, "Start", v.Button)
	assert.False(t, v.Loading)
	assert.False(t, v.ShowBoard)

	_, _, err := s.Reveal(Position{})
	assert.ErrorIs(t, err, ErrNotPlaying)
}

func TestSessionSetupFillsBoard(t *testing.T) {
	p := newFakeProvider()
	p.addPage(0, 1, 6, 5)

	s := NewSession()
	setup, ctx := s.Begin(context.Background())
	assert.NotEmpty(t, setup.ID)

	v := s.View()
	assert.Equal(t, PhaseLoading, v.Phase)
	assert.Equal(t, "Loading…", v.Button)
	assert.True(t, v.Loading)
	assert.False(t, v.ShowBoard)

	require.NoError(t, s.Load(ctx, setup, newTestAcquirer(p)))

	v = s.View()
	assert.Equal(t, PhasePlaying, v.Phase)
	assert.Equal(t, "Restart!", v.Button)
	assert.False(t, v.Loading)
	assert.True(t, v.ShowBoard)
	assert.Equal(t, setup.ID, v.Setup)
	assert.Len(t, v.Titles, NumCategories)

	require.Len(t, v.Cells, NumCategories)
	for _, column := range v.Cells {
		require.Len(t, column, CluesPerCategory)
		for _, c := range column {
			assert.Equal(t, Cell{Text: Placeholder}, c)
		}
	}
}

func TestSessionRevealSequence(t *testing.T) {
	s := NewSession()
	setup, _ := s.Begin(context.Background())
	require.NoError(t, s.Complete(setup, testBoard(t)))

	pos := Position{Category: 1, Clue: 3}

	cell, changed, err := s.Reveal(pos)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, Cell{Text: "question 2-3"}, cell)

	cell, changed, err = s.Reveal(pos)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, Cell{Text: "answer 2-3", Answer: true}, cell)

	before := s.View()

	cell, changed, err = s.Reveal(pos)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, Cell{Text: "answer 2-3", Answer: true}, cell)

	cell, changed, err = s.Reveal(pos)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, before, s.View())
}

func TestSessionRestartResetsClues(t *testing.T) {
	s := NewSession()
	setup, _ := s.Begin(context.Background())
	require.NoError(t, s.Complete(setup, testBoard(t)))

	_, _, err := s.Reveal(Position{})
	require.NoError(t, err)

	setup, _ = s.Begin(context.Background())
	_, _, err = s.Reveal(Position{})
	assert.ErrorIs(t, err, ErrNotPlaying)

	require.NoError(t, s.Complete(setup, testBoard(t)))
	assert.Equal(t, Placeholder, s.View().Cells[0][0].Text)
}

func TestSessionCompleteTwice(t *testing.T) {
	s := NewSession()
	setup, _ := s.Begin(context.Background())

	require.NoError(t, s.Complete(setup, testBoard(t)))
	assert.ErrorIs(t, s.Complete(setup, testBoard(t)), ErrAlreadyFilled)
	assert.ErrorIs(t, s.Fail(setup, errors.New("late")), ErrAlreadyFilled)
	assert.Equal(t, PhasePlaying, s.Phase())
}

func TestSessionStaleCompletionDiscarded(t *testing.T) {
	s := NewSession()
	first, firstCtx := s.Begin(context.Background())
	second, _ := s.Begin(context.Background())

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, second, s.Current())
	assert.ErrorIs(t, firstCtx.Err(), context.Canceled)

	assert.ErrorIs(t, s.Complete(first, testBoard(t)), ErrStaleSetup)
	assert.ErrorIs(t, s.Fail(first, errors.New("boom")), ErrStaleSetup)

	v := s.View()
	assert.Equal(t, PhaseLoading, v.Phase)
	assert.Nil(t, v.Titles)
}

func TestSessionRestartWhileFetching(t *testing.T) {
	p := newFakeProvider()
	p.addPage(0, 1, 6, 5)
	p.addPage(DefaultPageSize, 101, 6, 5)
	p.release = make(chan struct{})

	a := newTestAcquirer(p)
	s := NewSession()

	first, firstCtx := s.Begin(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- s.Load(firstCtx, first, a)
	}()

	second, secondCtx := s.Begin(context.Background())

	// The new setup clears the board straight away.
	v := s.View()
	assert.Equal(t, PhaseLoading, v.Phase)
	assert.Equal(t, second.ID, v.Setup)
	assert.Nil(t, v.Titles)
	assert.Nil(t, v.Cells)

	assert.ErrorIs(t, <-done, ErrStaleSetup)

	p.mu.Lock()
	close(p.release)
	p.mu.Unlock()

	require.NoError(t, s.Load(secondCtx, second, a))

	v = s.View()
	assert.Equal(t, PhasePlaying, v.Phase)
	assert.Len(t, v.Titles, NumCategories)
}

func TestSessionFailureView(t *testing.T) {
	s := NewSession()
	setup, ctx := s.Begin(context.Background())

	boom := &StatusError{URL: "/categories", StatusCode: 503}
	err := s.Load(ctx, setup, boardFunc(func(context.Context) (*Board, error) {
		return nil, boom
	}))
	assert.ErrorIs(t, err, boom)

	v := s.View()
	assert.Equal(t, PhaseFailed, v.Phase)
	assert.Equal(t, "Retry", v.Button)
	assert.Equal(t, "The trivia service is unavailable right now.", v.Error)
	assert.False(t, v.ShowBoard)
}

func TestSessionDeadlineDescribed(t *testing.T) {
	s := NewSession()
	setup, ctx := s.Begin(context.Background())

	_ = s.Load(ctx, setup, boardFunc(func(context.Context) (*Board, error) {
		return nil, context.DeadlineExceeded
	}))

	assert.Equal(t, "The trivia service took too long to answer.", s.View().Error)
}

func TestSessionCloseCancelsSetup(t *testing.T) {
	s := NewSession()
	_, ctx := s.Begin(context.Background())

	s.Close()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
