// Package search ranks catalog entries against a free-text query.
package search

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// DefaultMinScore drops entries that matched nothing at all.
const DefaultMinScore = 0.1

// Fields exposes the searchable text of an item.
type Fields struct {
	Name        string
	Description string
	CompanyName string
	UpdatedAt   time.Time
	CreatedAt   time.Time
}

// Options tunes Search.
type Options struct {
	MinScore float64
	Now      func() time.Time
}

// Extractor maps an item to its searchable fields.
type Extractor[T any] func(T) Fields

type scored[T any] struct {
	item  T
	score float64
}

// Search returns the items relevant to query, best match first.
// An empty query returns every item ordered by recency.
func Search[T any](items []T, query string, fields Extractor[T], opts Options) []T {
	out := make([]T, len(items))
	copy(out, items)
	if strings.TrimSpace(query) == "" {
		sort.SliceStable(out, func(i, j int) bool {
			return recency(fields(out[i])).After(recency(fields(out[j])))
		})
		return out
	}
	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	now := time.Now()
	if opts.Now != nil {
		now = opts.Now()
	}
	tokens := Tokenize(query)

	ranked := make([]scored[T], 0, len(out))
	for _, item := range out {
		s := Score(fields(item), query, tokens, now)
		if s >= minScore {
			ranked = append(ranked, scored[T]{item: item, score: s})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	result := make([]T, len(ranked))
	for i, r := range ranked {
		result[i] = r.item
	}
	return result
}

// QuickSearch keeps items whose name, description or company contains query.
func QuickSearch[T any](items []T, query string, fields Extractor[T]) []T {
	if strings.TrimSpace(query) == "" {
		return items
	}
	q := strings.ToLower(query)
	result := make([]T, 0, len(items))
	for _, item := range items {
		f := fields(item)
		if strings.Contains(strings.ToLower(f.Name), q) ||
			strings.Contains(strings.ToLower(f.Description), q) ||
			strings.Contains(strings.ToLower(f.CompanyName), q) {
			result = append(result, item)
		}
	}
	return result
}

// Score computes the relevance of f for query.
func Score(f Fields, query string, tokens []string, now time.Time) float64 {
	var score float64
	q := strings.ToLower(query)
	name := strings.ToLower(f.Name)
	desc := strings.ToLower(f.Description)
	company := strings.ToLower(f.CompanyName)

	switch {
	case name == q:
		score += 100
	case strings.Contains(name, q):
		score += 80
	case strings.Contains(q, name):
		score += 60
	}
	if strings.HasPrefix(name, q) {
		score += 40
	}
	score += Similarity(q, name) * 30

	for _, tok := range tokens {
		if strings.Contains(name, tok) {
			score += 20
		}
	}
	if strings.Contains(desc, q) {
		score += 25
	}
	for _, tok := range tokens {
		if strings.Contains(desc, tok) {
			score += 15
		}
	}
	if strings.Contains(company, q) {
		score += 15
	}
	if containsAll(name+" "+desc, tokens) {
		score += 20
	}

	if !f.UpdatedAt.IsZero() {
		age := now.Sub(f.UpdatedAt)
		switch {
		case age < 7*24*time.Hour:
			score += 5
		case age < 30*24*time.Hour:
			score += 2
		}
	}
	return score
}

// Similarity returns 1 - distance/maxLen, case-insensitively, in [0,1].
func Similarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}

// Tokenize lower-cases query and splits it on whitespace.
func Tokenize(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

func containsAll(text string, tokens []string) bool {
	for _, tok := range tokens {
		if !strings.Contains(text, tok) {
			return false
		}
	}
	return true
}

func recency(f Fields) time.Time {
	if !f.UpdatedAt.IsZero() {
		return f.UpdatedAt
	}
	return f.CreatedAt
}
