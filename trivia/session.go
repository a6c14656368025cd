package trivia

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Phase is the view a session is in.
type Phase int

const (
	PhaseIdle    Phase = iota // no game started yet
	PhaseLoading              // setup in flight, grid hidden
	PhasePlaying              // board filled and clickable
	PhaseFailed               // last setup returned an error
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhasePlaying:
		return "playing"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Button returns the label of the start/restart control for this phase.
func (p Phase) Button() string {
	switch p {
	case PhaseLoading:
		return "Loading…"
	case PhasePlaying:
		return "Restart!"
	case PhaseFailed:
		return "Retry"
	default:
		return "Start"
	}
}

// Setup identifies one attempt at filling a session's board.
type Setup struct {
	ID  string
	gen uint64
}

// BoardSource builds boards; *Acquirer is the production implementation.
type BoardSource interface {
	Acquire(ctx context.Context) (*Board, error)
}

// View is a snapshot of everything a client needs to draw the game.
type View struct {
	Phase     Phase    `json:"phase"`
	Setup     string   `json:"setup,omitempty"`
	Button    string   `json:"button"`
	Loading   bool     `json:"loading"`
	ShowBoard bool     `json:"show_board"`
	Titles    []string `json:"titles,omitempty"`
	Cells     [][]Cell `json:"cells,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Session owns the board of one game table. Only the most recent setup may
// fill it; completions from earlier setups are rejected with ErrStaleSetup.
type Session struct {
	mu     sync.Mutex
	phase  Phase
	board  *Board
	filled bool
	setup  Setup
	gen    uint64
	cancel context.CancelFunc
	err    error
}

func NewSession() *Session {
	return &Session{phase: PhaseIdle}
}

// Begin enters the loading phase for a new setup: any in-flight setup is
// cancelled and the board is cleared. The returned context is cancelled
// when a later setup begins or the session is closed.
func (s *Session) Begin(ctx context.Context) (Setup, context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	s.gen++
	s.setup = Setup{ID: uuid.NewString(), gen: s.gen}

	setupCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.board = nil
	s.filled = false
	s.err = nil
	s.phase = PhaseLoading

	return s.setup, setupCtx
}

// Load acquires a board from src and fills the session with it.
func (s *Session) Load(ctx context.Context, setup Setup, src BoardSource) error {
	board, err := src.Acquire(ctx)
	if err != nil {
		if ferr := s.Fail(setup, err); ferr != nil {
			return ferr
		}
		return err
	}

	return s.Complete(setup, board)
}

// Complete fills the board for setup and enters the playing phase.
func (s *Session) Complete(setup Setup, board *Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if setup.gen != s.gen {
		return ErrStaleSetup
	}
	if s.filled {
		return ErrAlreadyFilled
	}
	if board == nil {
		return ErrBoardShape
	}

	s.board = board
	s.filled = true
	s.phase = PhasePlaying
	s.releaseLocked()

	return nil
}

// Fail records err for setup and enters the failed phase.
func (s *Session) Fail(setup Setup, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if setup.gen != s.gen {
		return ErrStaleSetup
	}
	if s.filled {
		return ErrAlreadyFilled
	}

	s.err = err
	s.phase = PhaseFailed
	s.releaseLocked()

	return nil
}

// Reveal advances the clue at p. The bool reports whether the cell changed.
func (s *Session) Reveal(p Position) (Cell, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhasePlaying || s.board == nil {
		return Cell{}, false, ErrNotPlaying
	}

	return s.board.Reveal(p)
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Current returns the most recent setup, which may already be finished.
func (s *Session) Current() Setup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setup
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Phase:   s.phase,
		Setup:   s.setup.ID,
		Button:  s.phase.Button(),
		Loading: s.phase == PhaseLoading,
	}

	if s.phase == PhasePlaying && s.board != nil {
		v.ShowBoard = true
		v.Titles = s.board.Titles()
		v.Cells = s.board.Cells()
	}

	if s.phase == PhaseFailed && s.err != nil {
		v.Error = describe(s.err)
	}

	return v
}

// Close cancels any in-flight setup.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
}

func (s *Session) releaseLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// describe turns a setup error into text fit for players.
func describe(err error) string {
	var se *StatusError

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "The trivia service took too long to answer."
	case errors.As(err, &se):
		return "The trivia service is unavailable right now."
	case errors.Is(err, ErrTooFewClues), errors.Is(err, ErrNoSubstitute):
		return "Could not find enough clues for a full board."
	case errors.Is(err, ErrCatalogExhausted):
		return "The trivia service has no categories to offer."
	default:
		return "Could not load the board."
	}
}
