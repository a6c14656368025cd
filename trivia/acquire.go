package trivia

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPageSize = 100
	tracerName      = "github.com/Seednode/jeopardy/trivia"
)

// Acquirer samples categories and clues from a Provider to build boards.
// It keeps a catalog offset that advances by one page per board, so
// consecutive boards draw from different pages of the catalog.
type Acquirer struct {
	provider Provider
	pageSize int
	logger   log.FieldLogger
	tp       trace.TracerProvider

	mu     sync.Mutex
	rng    *rand.Rand
	offset int
}

type AcquirerOption func(*Acquirer)

func WithPageSize(n int) AcquirerOption {
	return func(a *Acquirer) {
		if n > 0 {
			a.pageSize = n
		}
	}
}

func WithOffset(n int) AcquirerOption {
	return func(a *Acquirer) {
		if n >= 0 {
			a.offset = n
		}
	}
}

func WithRand(r *rand.Rand) AcquirerOption {
	return func(a *Acquirer) {
		if r != nil {
			a.rng = r
		}
	}
}

func WithLogger(l log.FieldLogger) AcquirerOption {
	return func(a *Acquirer) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithTracerProvider(tp trace.TracerProvider) AcquirerOption {
	return func(a *Acquirer) {
		a.tp = tp
	}
}

func NewAcquirer(p Provider, opts ...AcquirerOption) *Acquirer {
	a := &Acquirer{
		provider: p,
		pageSize: DefaultPageSize,
		logger:   log.StandardLogger(),
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Offset is the catalog offset the next board will be listed from.
func (a *Acquirer) Offset() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.offset
}

func (a *Acquirer) tracer() trace.Tracer {
	if a.tp != nil {
		return a.tp.Tracer(tracerName)
	}
	return otel.Tracer(tracerName)
}

// Acquire selects NumCategories categories and fetches them all before
// returning a board. The first failed fetch cancels the rest.
func (a *Acquirer) Acquire(ctx context.Context) (*Board, error) {
	ctx, span := a.tracer().Start(ctx, "trivia.acquire")
	defer span.End()

	span.SetAttributes(attribute.Int("trivia.offset", a.Offset()))

	ids, err := a.SelectCategoryIDs(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select categories")
		return nil, err
	}

	categories := make([]Category, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			c, err := a.FetchCategory(gctx, id)
			if err != nil {
				return err
			}
			categories[i] = c
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch categories")
		return nil, err
	}

	return NewBoard(categories)
}

// SelectCategoryIDs samples NumCategories category ids from the current
// catalog page and advances the offset. Categories advertising fewer than
// CluesPerCategory clues are swapped, once, for a draw from the next page.
func (a *Acquirer) SelectCategoryIDs(ctx context.Context) ([]int, error) {
	a.mu.Lock()
	offset := a.offset
	a.mu.Unlock()

	page, err := a.provider.ListCategories(ctx, a.pageSize, offset)
	if err != nil {
		return nil, err
	}

	if len(page) < NumCategories && offset != 0 {
		a.logger.WithField("offset", offset).Info("category catalog exhausted, wrapping to start")

		offset = 0
		page, err = a.provider.ListCategories(ctx, a.pageSize, offset)
		if err != nil {
			return nil, err
		}
	}
	if len(page) < NumCategories {
		return nil, fmt.Errorf("%w: %d categories at offset %d", ErrCatalogExhausted, len(page), offset)
	}

	next := offset + a.pageSize

	a.mu.Lock()
	a.offset = next
	a.mu.Unlock()

	picks := draw(a, page, NumCategories)

	chosen := make(map[int]bool, len(picks))
	for _, c := range picks {
		chosen[c.ID] = true
	}

	var spares []CategorySummary
	fetchedSpares := false

	ids := make([]int, len(picks))
	for i, c := range picks {
		if c.CluesCount >= CluesPerCategory {
			ids[i] = c.ID
			continue
		}

		if !fetchedSpares {
			spares, err = a.provider.ListCategories(ctx, a.pageSize, next)
			if err != nil {
				return nil, err
			}
			fetchedSpares = true
		}

		eligible := make([]CategorySummary, 0, len(spares))
		for _, s := range spares {
			if s.CluesCount >= CluesPerCategory && !chosen[s.ID] {
				eligible = append(eligible, s)
			}
		}
		if len(eligible) == 0 {
			return nil, fmt.Errorf("%w: replacing category %d from offset %d", ErrNoSubstitute, c.ID, next)
		}

		sub := draw(a, eligible, 1)[0]
		chosen[sub.ID] = true
		ids[i] = sub.ID

		a.logger.WithFields(log.Fields{
			"category":   c.ID,
			"clues":      c.CluesCount,
			"substitute": sub.ID,
		}).Info("substituted category with too few clues")
	}

	return ids, nil
}

// FetchCategory loads one category and samples CluesPerCategory of its clues.
func (a *Acquirer) FetchCategory(ctx context.Context, id int) (Category, error) {
	ctx, span := a.tracer().Start(ctx, "trivia.fetch_category",
		trace.WithAttributes(attribute.Int("trivia.category_id", id)))
	defer span.End()

	detail, err := a.provider.GetCategory(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get category")
		return Category{}, err
	}

	usable := make([]ClueDetail, 0, len(detail.Clues))
	for _, c := range detail.Clues {
		if strings.TrimSpace(c.Question) == "" || strings.TrimSpace(c.Answer) == "" {
			continue
		}
		usable = append(usable, c)
	}

	if len(usable) < CluesPerCategory {
		err := fmt.Errorf("%w: category %d has %d", ErrTooFewClues, id, len(usable))
		span.RecordError(err)
		span.SetStatus(codes.Error, "too few clues")
		return Category{}, err
	}

	category := Category{
		ID:    id,
		Title: detail.Title,
	}
	for i, c := range draw(a, usable, CluesPerCategory) {
		category.Clues[i] = Clue{
			Question: c.Question,
			Answer:   c.Answer,
			Showing:  ShowingNone,
		}
	}

	return category, nil
}

// draw samples under a.mu; the shared rand.Rand is not safe for concurrent use.
func draw[T any](a *Acquirer, items []T, n int) []T {
	a.mu.Lock()
	defer a.mu.Unlock()
	return sample(a.rng, items, n)
}
