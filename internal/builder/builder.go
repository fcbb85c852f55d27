// Package builder builds per-field similarity indexes over demographic records.
package builder

import (
	"errors"
	"fmt"
	"sort"

	"hippocratic/internal/normalizer"
	"hippocratic/internal/schema"
	"hippocratic/internal/similarity"
)

// ErrFieldNotIndexed is returned when searching a field the index was not built for.
var ErrFieldNotIndexed = errors.New("field is not indexed")

// Tree is the BK-tree type used for every field.
type Tree = similarity.BKTree[schema.RecordID, similarity.Metric]

// Options configures index construction.
type Options struct {
	Metric           similarity.Metric
	DefaultThreshold int
	Normalize        bool
	Fields           []schema.Field
}

// Validate rejects a missing metric, a negative threshold or unknown fields.
func (o Options) Validate() error {
	if similarity.IsNil(o.Metric) {
		return similarity.ErrNilMetric
	}
	if o.DefaultThreshold < 0 {
		return fmt.Errorf("%w: %d", similarity.ErrInvalidThreshold, o.DefaultThreshold)
	}
	if len(o.Fields) == 0 {
		return errors.New("builder: at least one field is required")
	}
	for _, f := range o.Fields {
		if _, err := schema.ParseField(string(f)); err != nil {
			return err
		}
	}
	return nil
}

// FieldStats describes one field's tree.
type FieldStats struct {
	Values  int `json:"values"`
	Records int `json:"records"`
	Height  int `json:"height"`
}

// BuildStats holds statistics from a build operation.
type BuildStats struct {
	TotalEntities int                         `json:"total_entities"`
	Duplicates    int                         `json:"duplicates"`
	ByField       map[schema.Field]FieldStats `json:"by_field"`
	ByKind        map[schema.Kind]int         `json:"by_kind"`
}

// NewBuildStats creates a new BuildStats.
func NewBuildStats() *BuildStats {
	return &BuildStats{
		ByField: make(map[schema.Field]FieldStats),
		ByKind:  make(map[schema.Kind]int),
	}
}

// IndexBuilder collects records and builds an Index.
type IndexBuilder struct {
	opts       Options
	entities   []schema.Entity
	seen       map[schema.RecordID]bool
	duplicates int
}

// NewIndexBuilder creates a new IndexBuilder.
func NewIndexBuilder(opts Options) (*IndexBuilder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.Fields = append([]schema.Field(nil), opts.Fields...)
	return &IndexBuilder{
		opts: opts,
		seen: make(map[schema.RecordID]bool),
	}, nil
}

// AddEntities adds records. A record whose id was already added is skipped.
func (b *IndexBuilder) AddEntities(entities []schema.Entity) {
	for _, e := range entities {
		if b.seen[e.RecordID()] {
			b.duplicates++
			continue
		}
		b.seen[e.RecordID()] = true
		b.entities = append(b.entities, e)
	}
}

// Len returns the number of records added.
func (b *IndexBuilder) Len() int {
	return len(b.entities)
}

// Build builds every field's tree sequentially.
func (b *IndexBuilder) Build() *Index {
	trees := make([]*Tree, len(b.opts.Fields))
	for i, field := range b.opts.Fields {
		trees[i] = b.buildTree(field)
	}
	return b.assemble(trees)
}

// buildTree inserts every value of field. It returns nil when no record has
// a value for the field, since a tree cannot be empty.
func (b *IndexBuilder) buildTree(field schema.Field) *Tree {
	var tree *Tree
	for _, e := range b.entities {
		for _, value := range e.FieldValues(field) {
			value = b.canonical(value)
			if tree == nil {
				t, err := similarity.New[schema.RecordID](b.opts.Metric, value, e.RecordID(),
					similarity.WithDefaultThreshold(b.opts.DefaultThreshold))
				if err != nil {
					// Options were validated by NewIndexBuilder.
					panic(err)
				}
				tree = t
				continue
			}
			tree.Insert(value, e.RecordID())
		}
	}
	return tree
}

func (b *IndexBuilder) canonical(value string) string {
	if b.opts.Normalize {
		return normalizer.NormalizeIdentity(value)
	}
	return value
}

func (b *IndexBuilder) assemble(trees []*Tree) *Index {
	stats := NewBuildStats()
	stats.TotalEntities = len(b.entities)
	stats.Duplicates = b.duplicates

	ix := &Index{
		opts:     b.opts,
		trees:    make(map[schema.Field]*Tree, len(trees)),
		entities: make(map[schema.RecordID]schema.Entity, len(b.entities)),
		stats:    stats,
	}
	for _, e := range b.entities {
		ix.entities[e.RecordID()] = e
		stats.ByKind[e.Kind()]++
	}
	for i, field := range b.opts.Fields {
		ix.trees[field] = trees[i]
		if trees[i] != nil {
			stats.ByField[field] = FieldStats{
				Values:  trees[i].Size(),
				Records: trees[i].RecordCount(),
				Height:  trees[i].Height(),
			}
		} else {
			stats.ByField[field] = FieldStats{}
		}
	}
	return ix
}

// Index holds one BK-tree per field. It is read-only once built, so
// concurrent searches are safe.
type Index struct {
	opts     Options
	trees    map[schema.Field]*Tree
	entities map[schema.RecordID]schema.Entity
	stats    *BuildStats
}

// FieldMatch is a stored field value close to a query.
type FieldMatch struct {
	Field    schema.Field      `json:"field"`
	Value    string            `json:"value"`
	Distance int               `json:"distance"`
	Records  []schema.RecordID `json:"records"`
}

// Search returns the values of field within threshold of query, nearest first.
func (ix *Index) Search(field schema.Field, query string, threshold int) ([]FieldMatch, error) {
	tree, ok := ix.trees[field]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFieldNotIndexed, field)
	}
	if threshold < 0 {
		return nil, fmt.Errorf("%w: %d", similarity.ErrInvalidThreshold, threshold)
	}
	if tree == nil {
		return nil, nil
	}

	if ix.opts.Normalize {
		query = normalizer.NormalizeIdentity(query)
	}

	matches := tree.Search(query, threshold)
	similarity.SortMatches(matches)

	out := make([]FieldMatch, len(matches))
	for i, m := range matches {
		records := append([]schema.RecordID(nil), m.Records...)
		sort.Slice(records, func(a, b int) bool { return records[a] < records[b] })
		out[i] = FieldMatch{Field: field, Value: m.Value, Distance: m.Distance, Records: records}
	}
	return out, nil
}

// SearchDefault searches field with the configured default threshold.
func (ix *Index) SearchDefault(field schema.Field, query string) ([]FieldMatch, error) {
	return ix.Search(field, query, ix.opts.DefaultThreshold)
}

// SearchAll searches every indexed field, in configuration order.
func (ix *Index) SearchAll(query string, threshold int) ([]FieldMatch, error) {
	var out []FieldMatch
	for _, field := range ix.opts.Fields {
		matches, err := ix.Search(field, query, threshold)
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}
	return out, nil
}

// Entity returns the record with the given id.
func (ix *Index) Entity(id schema.RecordID) (schema.Entity, bool) {
	e, ok := ix.entities[id]
	return e, ok
}

// Stats returns the statistics gathered while building.
func (ix *Index) Stats() *BuildStats {
	return ix.stats
}

// Len returns the number of indexed records.
func (ix *Index) Len() int {
	return len(ix.entities)
}

// Fields returns the indexed fields.
func (ix *Index) Fields() []schema.Field {
	return append([]schema.Field(nil), ix.opts.Fields...)
}

// MetricName returns the name of the metric every tree uses.
func (ix *Index) MetricName() string {
	return ix.opts.Metric.Name()
}

// DefaultThreshold returns the threshold used by SearchDefault.
func (ix *Index) DefaultThreshold() int {
	return ix.opts.DefaultThreshold
}
