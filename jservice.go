package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultJServiceURL = "http://jservice.io"

// JServiceClient reads categories from a jService compatible API.
type JServiceClient struct {
	base     string
	http     *http.Client
	poolSize int // categories requested per sample
	clues    int // clues kept per category
}

// NewJServiceClient creates a client for the API rooted at base.
func NewJServiceClient(base string, timeout time.Duration, poolSize, clues int) *JServiceClient {
	if base == "" {
		base = defaultJServiceURL
	}
	return &JServiceClient{
		base:     strings.TrimRight(base, "/"),
		http:     &http.Client{Timeout: timeout},
		poolSize: poolSize,
		clues:    clues,
	}
}

type categorySummary struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	CluesCount int    `json:"clues_count"`
}

type categoryDetail struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Clues []struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	} `json:"clues"`
}

// RandomCategoryIDs samples count distinct ids from a pool of poolSize
// categories. Categories known to hold fewer clues than a board column are
// left out of the pool.
func (c *JServiceClient) RandomCategoryIDs(ctx context.Context, count int) ([]CategoryID, error) {
	var pool []categorySummary
	u := c.base + "/api/categories?count=" + strconv.Itoa(max(c.poolSize, count))
	if err := c.getJSON(ctx, "fetch categories", u, &pool); err != nil {
		return nil, err
	}

	seen := make(map[int]bool, len(pool))
	usable := make([]CategoryID, 0, len(pool))
	for _, s := range pool {
		// clues_count is absent on some mirrors; zero means unknown.
		if seen[s.ID] || (s.CluesCount != 0 && s.CluesCount < c.clues) {
			continue
		}
		seen[s.ID] = true
		usable = append(usable, CategoryID(strconv.Itoa(s.ID)))
	}
	if len(usable) < count {
		return nil, fmt.Errorf("%w: %d usable, %d requested", ErrPoolTooSmall, len(usable), count)
	}

	rand.Shuffle(len(usable), func(i, j int) { usable[i], usable[j] = usable[j], usable[i] })
	return usable[:count], nil
}

// Category fetches one category and keeps its first clues.
func (c *JServiceClient) Category(ctx context.Context, id CategoryID) (Category, error) {
	var raw categoryDetail
	u := c.base + "/api/category?id=" + url.QueryEscape(string(id))
	if err := c.getJSON(ctx, "fetch category", u, &raw); err != nil {
		return Category{}, err
	}

	clues := make([]Clue, 0, c.clues)
	for _, rc := range raw.Clues {
		if len(clues) == c.clues {
			break
		}
		q, a := plainText(rc.Question), plainText(rc.Answer)
		if q == "" || a == "" {
			continue
		}
		clues = append(clues, Clue{Question: q, Answer: a, State: Hidden})
	}
	if len(clues) < c.clues {
		return Category{}, fmt.Errorf("%w: category %s has %d, want %d", ErrTooFewClues, id, len(clues), c.clues)
	}

	return Category{ID: id, Title: plainText(raw.Title), Clues: clues}, nil
}

func (c *JServiceClient) getJSON(ctx context.Context, op, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return &NetworkError{Op: op, URL: u, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
