package main

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Policies applied when a single category fails to load.
const (
	PolicyAbort       = "abort"
	PolicyPlaceholder = "placeholder"
)

const placeholderText = "failed to load"

// Dealer builds boards from a CategorySource.
type Dealer struct {
	source      CategorySource
	categories  int
	clues       int
	concurrency int
	policy      string
	log         *zap.Logger
}

// NewDealer creates a dealer for boards of cfg.Categories x cfg.Clues.
func NewDealer(source CategorySource, cfg BoardConfig, log *zap.Logger) *Dealer {
	return &Dealer{
		source:      source,
		categories:  cfg.Categories,
		clues:       cfg.Clues,
		concurrency: max(cfg.Concurrency, 1),
		policy:      cfg.OnCategoryError,
		log:         log,
	}
}

// Width is the number of categories per board.
func (d *Dealer) Width() int { return d.categories }

// Deal fetches random categories and builds a fresh board. progress, when
// set, is called after each category with the number loaded so far; calls
// are serialized.
func (d *Dealer) Deal(ctx context.Context, progress func(loaded, total int)) (*Board, error) {
	ids, err := d.source.RandomCategoryIDs(ctx, d.categories)
	if err != nil {
		return nil, fmt.Errorf("fetch category ids: %w", err)
	}
	if len(ids) != d.categories {
		return nil, fmt.Errorf("%w: got %d ids, want %d", ErrPoolTooSmall, len(ids), d.categories)
	}

	var (
		mu     sync.Mutex
		loaded int
	)
	report := func() {
		mu.Lock()
		defer mu.Unlock()
		loaded++
		if progress != nil {
			progress(loaded, len(ids))
		}
	}

	cats := make([]Category, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			cat, err := d.source.Category(gctx, id)
			if err != nil {
				if d.policy != PolicyPlaceholder || gctx.Err() != nil {
					return fmt.Errorf("fetch category %s: %w", id, err)
				}
				d.log.Warn("category failed to load, using placeholder",
					zap.String("category_id", string(id)), zap.Error(err))
				cat = placeholderCategory(id, d.clues)
			}
			cats[i] = cat
			report()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return NewBoard(cats, d.clues)
}

func placeholderCategory(id CategoryID, clues int) Category {
	c := Category{ID: id, Title: placeholderText, Placeholder: true, Clues: make([]Clue, clues)}
	for i := range c.Clues {
		c.Clues[i] = Clue{Question: placeholderText, Answer: placeholderText}
	}
	return c
}
