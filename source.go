package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

var (
	ErrPoolTooSmall = errors.New("not enough usable categories in pool")
	ErrTooFewClues  = errors.New("category has too few clues")
)

// CategorySource supplies board data.
type CategorySource interface {
	// RandomCategoryIDs returns count distinct category ids in arbitrary order.
	RandomCategoryIDs(ctx context.Context, count int) ([]CategoryID, error)
	// Category returns one category with its clues truncated to the board
	// height, every clue Hidden.
	Category(ctx context.Context, id CategoryID) (Category, error)
}

// NetworkError reports a provider request that did not complete.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// newCategorySource builds the provider selected in cfg. The returned closer
// is never nil.
func newCategorySource(ctx context.Context, cfg *Config, log *zap.Logger) (CategorySource, io.Closer, error) {
	switch cfg.Quiz.Provider {
	case providerJService:
		log.Info("using jservice provider", zap.String("base_url", cfg.Quiz.BaseURL))
		return NewJServiceClient(cfg.Quiz.BaseURL, cfg.Quiz.Timeout, cfg.Quiz.PoolSize, cfg.Board.Clues), io.NopCloser(nil), nil
	case providerGemini:
		g, err := NewGeminiClient(ctx, cfg.GCP.ProjectID, cfg.GCP.Region, cfg.GCP.Model, cfg.Board.Clues)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using gemini provider", zap.String("project", cfg.GCP.ProjectID), zap.String("model", g.modelName))
		return g, g, nil
	default:
		return nil, nil, fmt.Errorf("unknown quiz provider %q", cfg.Quiz.Provider)
	}
}

var escapeReplacer = strings.NewReplacer(`\"`, `"`, `\'`, `'`, `\\`, `\`)

// plainText drops markup from upstream clue text and collapses whitespace.
func plainText(s string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			b.Write(z.Text())
		}
	}
	return strings.Join(strings.Fields(escapeReplacer.Replace(b.String())), " ")
}
