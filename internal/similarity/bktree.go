// Package similarity provides similarity search using BK-trees.
package similarity

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNilMetric is returned when a tree is constructed without a metric.
	ErrNilMetric = errors.New("bktree: metric is required")
	// ErrInvalidThreshold is returned for a negative search threshold.
	ErrInvalidThreshold = errors.New("bktree: threshold must be non-negative")
)

// BKTree is a BK-tree for similarity search using edit distance.
// Each stored value carries the set of records it was found in.
//
// A BKTree is never empty: it is created from a seed value. It is not safe
// for concurrent use while an Insert is in flight; see Synchronized.
type BKTree[R comparable, M Metric] struct {
	root             *bkNode[R]
	metric           M
	defaultThreshold int
	size             int
	records          int
}

// bkNode represents a node in the BK-tree. Each key in children is the
// distance between value and the child's value.
type bkNode[R comparable] struct {
	value    string
	records  map[R]struct{}
	children map[int]*bkNode[R]
}

func newNode[R comparable](value string, record R) *bkNode[R] {
	return &bkNode[R]{
		value:    value,
		records:  map[R]struct{}{record: {}},
		children: make(map[int]*bkNode[R]),
	}
}

// Option configures a BKTree.
type Option func(*options)

type options struct {
	defaultThreshold int
}

// WithDefaultThreshold sets the threshold used by SearchDefault.
func WithDefaultThreshold(n int) Option {
	return func(o *options) {
		o.defaultThreshold = n
	}
}

// Entry is a value and the record it was found in.
type Entry[R comparable] struct {
	Value  string
	Record R
}

// Match is a stored value within the search threshold of a query.
type Match[R comparable] struct {
	Value    string `json:"value"`
	Records  []R    `json:"records"`
	Distance int    `json:"distance"`
}

// New creates a BK-tree rooted at the seed value and record.
func New[R comparable, M Metric](metric M, value string, record R, opts ...Option) (*BKTree[R, M], error) {
	if m, ok := any(metric).(Metric); !ok || IsNil(m) {
		return nil, ErrNilMetric
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.defaultThreshold < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidThreshold, o.defaultThreshold)
	}

	return &BKTree[R, M]{
		root:             newNode(value, record),
		metric:           metric,
		defaultThreshold: o.defaultThreshold,
		size:             1,
		records:          1,
	}, nil
}

// Insert adds value with the record it was found in. It reports whether the
// tree changed; re-adding a known (value, record) pair returns false.
func (t *BKTree[R, M]) Insert(value string, record R) bool {
	added, created := t.insert(t.root, value, record)
	if created {
		t.size++
	}
	if added {
		t.records++
	}
	return added
}

// insert descends from node. Distinct values at the same distance from a
// node are pushed one level deeper, never merged.
func (t *BKTree[R, M]) insert(node *bkNode[R], value string, record R) (added, created bool) {
	for {
		dist := t.distance(node.value, value)
		if dist == 0 {
			if node.value != value {
				panic(fmt.Sprintf("similarity: %s returned 0 for distinct values %q and %q",
					t.metric.Name(), node.value, value))
			}
			if _, ok := node.records[record]; ok {
				return false, false
			}
			node.records[record] = struct{}{}
			return true, false
		}

		child, exists := node.children[dist]
		if !exists {
			node.children[dist] = newNode(value, record)
			return true, true
		}
		node = child
	}
}

// InsertAll adds multiple entries to the tree.
func (t *BKTree[R, M]) InsertAll(entries []Entry[R]) {
	for _, e := range entries {
		t.Insert(e.Value, e.Record)
	}
}

// Search finds all values within threshold edit distance from the query.
// The order of the results is unspecified; see SortMatches.
func (t *BKTree[R, M]) Search(query string, threshold int) []Match[R] {
	if threshold < 0 {
		return nil
	}

	var results []Match[R]
	t.searchNode(t.root, query, threshold, &results)
	return results
}

// SearchDefault searches with the tree's default threshold.
func (t *BKTree[R, M]) SearchDefault(query string) []Match[R] {
	return t.Search(query, t.defaultThreshold)
}

// searchNode recursively searches the tree.
func (t *BKTree[R, M]) searchNode(node *bkNode[R], query string, threshold int, results *[]Match[R]) {
	dist := t.distance(node.value, query)

	if dist <= threshold {
		*results = append(*results, Match[R]{
			Value:    node.value,
			Records:  recordSlice(node.records),
			Distance: dist,
		})
	}

	// Only children within [dist-threshold, dist+threshold] can hold a match
	minDist := dist - threshold
	if minDist < 0 {
		minDist = 0
	}
	maxDist := dist + threshold

	for childDist, child := range node.children {
		if childDist >= minDist && childDist <= maxDist {
			t.searchNode(child, query, threshold, results)
		}
	}
}

func (t *BKTree[R, M]) distance(a, b string) int {
	d := t.metric.Distance(a, b)
	if d < 0 {
		panic(fmt.Sprintf("similarity: %s returned negative distance %d for %q and %q",
			t.metric.Name(), d, a, b))
	}
	return d
}

// find returns the node holding value, or nil.
func (t *BKTree[R, M]) find(value string) *bkNode[R] {
	node := t.root
	for node != nil {
		dist := t.distance(node.value, value)
		if dist == 0 {
			return node
		}
		node = node.children[dist]
	}
	return nil
}

// Contains checks if a value exists in the tree.
func (t *BKTree[R, M]) Contains(value string) bool {
	return t.find(value) != nil
}

// Records returns the records stored for value, or nil if absent.
func (t *BKTree[R, M]) Records(value string) []R {
	node := t.find(value)
	if node == nil {
		return nil
	}
	return recordSlice(node.records)
}

// Size returns the number of distinct values in the tree.
func (t *BKTree[R, M]) Size() int {
	return t.size
}

// RecordCount returns the number of distinct (value, record) pairs.
func (t *BKTree[R, M]) RecordCount() int {
	return t.records
}

// Height returns the number of nodes on the longest root-to-leaf path.
func (t *BKTree[R, M]) Height() int {
	return height(t.root)
}

func height[R comparable](node *bkNode[R]) int {
	h := 0
	for _, child := range node.children {
		if ch := height(child); ch > h {
			h = ch
		}
	}
	return h + 1
}

// Walk calls fn for every stored value and its records until fn returns false.
func (t *BKTree[R, M]) Walk(fn func(value string, records []R) bool) {
	walk(t.root, fn)
}

func walk[R comparable](node *bkNode[R], fn func(string, []R) bool) bool {
	if !fn(node.value, recordSlice(node.records)) {
		return false
	}
	for _, child := range node.children {
		if !walk(child, fn) {
			return false
		}
	}
	return true
}

// Metric returns the tree's metric.
func (t *BKTree[R, M]) Metric() M {
	return t.metric
}

// DefaultThreshold returns the threshold used by SearchDefault.
func (t *BKTree[R, M]) DefaultThreshold() int {
	return t.defaultThreshold
}

func recordSlice[R comparable](set map[R]struct{}) []R {
	out := make([]R, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	return out
}

// SortMatches orders matches by distance, then by value.
func SortMatches[R comparable](matches []Match[R]) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Value < matches[j].Value
	})
}
