package similarity

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rivo/uniseg"
)

// ErrUnknownMetric is returned when a metric name cannot be resolved.
var ErrUnknownMetric = errors.New("unknown edit distance metric")

// Metric computes an integer edit distance between two strings.
// Implementations must return 0 for identical strings, never return a
// negative value, and be deterministic.
type Metric interface {
	Name() string
	Distance(a, b string) int
}

// Levenshtein counts single-grapheme insertions, deletions and substitutions.
type Levenshtein struct{}

// Name returns the algorithm name.
func (Levenshtein) Name() string { return "Levenshtein" }

// Distance returns the Levenshtein distance between a and b.
func (Levenshtein) Distance(a, b string) int {
	return LevenshteinDistance(a, b)
}

// OSA is the optimal string alignment distance: Levenshtein plus adjacent
// transpositions, where no substring is edited more than once.
type OSA struct{}

// Name returns the algorithm name.
func (OSA) Name() string { return "Optimal String Alignment" }

// Distance returns the optimal string alignment distance between a and b.
func (OSA) Distance(a, b string) int {
	return OSADistance(a, b)
}

// MetricByName resolves a metric by identifier ("levenshtein", "osa") or by
// its human-readable name. Matching is case-insensitive.
func MetricByName(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "levenshtein", "lev":
		return Levenshtein{}, nil
	case "osa", "optimal string alignment", "optimal_string_alignment":
		return OSA{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
}

// MetricNames lists the identifiers accepted by MetricByName.
func MetricNames() []string {
	return []string{"levenshtein", "osa"}
}

// Counting wraps a metric and counts how many distances it computed.
// It is safe for concurrent use.
type Counting[M Metric] struct {
	Inner M
	calls atomic.Int64
}

// NewCounting wraps m.
func NewCounting[M Metric](m M) *Counting[M] {
	return &Counting[M]{Inner: m}
}

// Name returns the wrapped metric's name.
func (c *Counting[M]) Name() string { return c.Inner.Name() }

// Distance delegates to the wrapped metric and records the call.
func (c *Counting[M]) Distance(a, b string) int {
	c.calls.Add(1)
	return c.Inner.Distance(a, b)
}

// Calls returns the number of distances computed so far.
func (c *Counting[M]) Calls() int64 { return c.calls.Load() }

// Reset zeroes the call counter.
func (c *Counting[M]) Reset() { c.calls.Store(0) }

func (c *Counting[M]) isNil() bool { return c == nil }

// IsNil reports whether m is nil, including a nil *Counting held in the
// interface.
func IsNil(m Metric) bool {
	if m == nil {
		return true
	}
	n, ok := m.(interface{ isNil() bool })
	return ok && n.isNil()
}

// Graphemes splits s into extended grapheme clusters.
func Graphemes(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, len(s))
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		out = append(out, g.Str())
	}
	return out
}

// LevenshteinDistance calculates the edit distance between two strings.
// This is an optimized implementation using only two rows of the matrix.
func LevenshteinDistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}

	g1 := Graphemes(s1)
	g2 := Graphemes(s2)

	len1 := len(g1)
	len2 := len(g2)

	if len1 == 0 {
		return len2
	}
	if len2 == 0 {
		return len1
	}

	// Keep g1 as the shorter sequence so the rows stay small
	if len1 > len2 {
		g1, g2 = g2, g1
		len1, len2 = len2, len1
	}

	prev := make([]int, len1+1)
	curr := make([]int, len1+1)

	for i := 0; i <= len1; i++ {
		prev[i] = i
	}

	for j := 1; j <= len2; j++ {
		curr[0] = j

		for i := 1; i <= len1; i++ {
			cost := 0
			if g1[i-1] != g2[j-1] {
				cost = 1
			}

			curr[i] = min3(
				prev[i]+1,      // deletion
				curr[i-1]+1,    // insertion
				prev[i-1]+cost, // substitution
			)
		}

		prev, curr = curr, prev
	}

	return prev[len1]
}

// OSADistance calculates the optimal string alignment distance.
// Three rows are kept: the transposition case looks two rows back.
func OSADistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}

	g1 := Graphemes(s1)
	g2 := Graphemes(s2)

	len1 := len(g1)
	len2 := len(g2)

	if len1 == 0 {
		return len2
	}
	if len2 == 0 {
		return len1
	}

	// Rows are indexed by positions in g2, iterating over g1.
	prev2 := make([]int, len2+1)
	prev := make([]int, len2+1)
	curr := make([]int, len2+1)

	for j := 0; j <= len2; j++ {
		prev[j] = j
	}

	for i := 1; i <= len1; i++ {
		curr[0] = i

		for j := 1; j <= len2; j++ {
			cost := 0
			if g1[i-1] != g2[j-1] {
				cost = 1
			}

			curr[j] = min3(
				prev[j]+1,
				curr[j-1]+1,
				prev[j-1]+cost,
			)

			if i > 1 && j > 1 && g1[i-1] == g2[j-2] && g1[i-2] == g2[j-1] {
				if t := prev2[j-2] + 1; t < curr[j] {
					curr[j] = t
				}
			}
		}

		prev2, prev, curr = prev, curr, prev2
	}

	return prev[len2]
}

// min3 returns the minimum of three integers.
func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
