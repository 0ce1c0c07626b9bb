package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"

	"google.golang.org/genai"
)

const titlesPrompt = `Propose %d distinct Jeopardy categories on varied themes.

Answer with JSON in this exact shape:
{"categories": ["Category title", ...]}

Rules:
- Titles are short (at most 4 words), in English, without numbering.
- No two titles share a theme.
- Answer ONLY with the JSON, no comment and no markdown.`

const cluesPrompt = `Write %d Jeopardy clues for the category %q, from easiest to hardest.

Answer with JSON in this exact shape:
{"title": "<category title>", "clues": [{"question": "...", "answer": "..."}, ...]}

Rules:
- "question" is the clue read to players, "answer" is the short expected response.
- Plain text only, no HTML.
- Answer ONLY with the JSON, no comment and no markdown.`

// titlesOversample is how many extra titles are requested so that
// duplicates can be dropped and the rest sampled.
const titlesOversample = 4

// RandomCategoryIDs asks Gemini for category titles. The titles are the ids.
func (g *GeminiClient) RandomCategoryIDs(ctx context.Context, count int) ([]CategoryID, error) {
	text, err := g.generate(ctx, fmt.Sprintf(titlesPrompt, count+titlesOversample), 1.0)
	if err != nil {
		return nil, err
	}
	ids, err := parseGeneratedTitles(text)
	if err != nil {
		return nil, err
	}
	if len(ids) < count {
		return nil, fmt.Errorf("%w: %d usable, %d requested", ErrPoolTooSmall, len(ids), count)
	}

	rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	return ids[:count], nil
}

// Category asks Gemini for the clues of one category.
func (g *GeminiClient) Category(ctx context.Context, id CategoryID) (Category, error) {
	text, err := g.generate(ctx, fmt.Sprintf(cluesPrompt, g.clues, string(id)), 0.4)
	if err != nil {
		return Category{}, err
	}
	return parseGeneratedCategory(text, id, g.clues)
}

func (g *GeminiClient) generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.modelName,
		[]*genai.Content{{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		}},
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(temperature),
			TopP:             genai.Ptr(float32(1)),
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return "", &NetworkError{Op: "gemini generate", Err: err}
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty gemini response")
	}
	return text, nil
}

func parseGeneratedTitles(text string) ([]CategoryID, error) {
	var out struct {
		Categories []string `json:"categories"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("parse titles JSON: %w\nraw response: %s", err, text)
	}

	seen := make(map[string]bool, len(out.Categories))
	ids := make([]CategoryID, 0, len(out.Categories))
	for _, t := range out.Categories {
		t = plainText(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		ids = append(ids, CategoryID(t))
	}
	return ids, nil
}

func parseGeneratedCategory(text string, id CategoryID, clues int) (Category, error) {
	var out struct {
		Title string `json:"title"`
		Clues []struct {
			Question string `json:"question"`
			Answer   string `json:"answer"`
		} `json:"clues"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return Category{}, fmt.Errorf("parse category JSON: %w\nraw response: %s", err, text)
	}

	cat := Category{ID: id, Title: plainText(out.Title)}
	if cat.Title == "" {
		cat.Title = string(id)
	}
	for _, c := range out.Clues {
		if len(cat.Clues) == clues {
			break
		}
		q, a := plainText(c.Question), plainText(c.Answer)
		if q == "" || a == "" {
			continue
		}
		cat.Clues = append(cat.Clues, Clue{Question: q, Answer: a, State: Hidden})
	}
	if len(cat.Clues) < clues {
		return Category{}, fmt.Errorf("%w: category %s has %d, want %d", ErrTooFewClues, id, len(cat.Clues), clues)
	}
	return cat, nil
}
