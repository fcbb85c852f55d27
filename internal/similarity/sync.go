package similarity

import "sync"

// Synchronized guards a BKTree with a single-writer/multiple-reader lock.
type Synchronized[R comparable, M Metric] struct {
	mu   sync.RWMutex
	tree *BKTree[R, M]
}

// NewSynchronized wraps tree. The caller must not use tree directly afterwards.
func NewSynchronized[R comparable, M Metric](tree *BKTree[R, M]) *Synchronized[R, M] {
	return &Synchronized[R, M]{tree: tree}
}

// Insert adds value and record under the write lock.
func (s *Synchronized[R, M]) Insert(value string, record R) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Insert(value, record)
}

// Search runs a search under the read lock.
func (s *Synchronized[R, M]) Search(query string, threshold int) []Match[R] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Search(query, threshold)
}

// SearchDefault runs a search with the default threshold under the read lock.
func (s *Synchronized[R, M]) SearchDefault(query string) []Match[R] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.SearchDefault(query)
}

// Contains reports whether value is stored.
func (s *Synchronized[R, M]) Contains(value string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Contains(value)
}

// Size returns the number of distinct values.
func (s *Synchronized[R, M]) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Size()
}
