package builder

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"hippocratic/internal/schema"
)

func manyEntities(t testing.TB, n int) []schema.Entity {
	t.Helper()
	first := []string{"Jane", "John", "Mary", "Richard", "Ana", "Zoë"}
	last := []string{"Doe", "Smith", "Major", "Roe", "García", "Møller"}
	entities := make([]schema.Entity, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("%s %s %d", first[i%len(first)], last[(i/len(first))%len(last)], i%17)
		entities = append(entities, createTestPerson(t, fmt.Sprintf("p%d", i), name, fmt.Sprintf("%09d", i*7919)))
	}
	return entities
}

func TestParallelBuildMatchesSequential(t *testing.T) {
	b, err := NewIndexBuilder(testOptions())
	if err != nil {
		t.Fatal(err)
	}
	b.AddEntities(manyEntities(t, 300))

	sequential := b.Build()
	parallel, err := b.ParallelBuild(context.Background(), ParallelBuildConfig{Workers: 4})
	if err != nil {
		t.Fatalf("ParallelBuild failed: %v", err)
	}

	for _, field := range []schema.Field{schema.FieldName, schema.FieldTIN} {
		if s, p := sequential.Stats().ByField[field], parallel.Stats().ByField[field]; s != p {
			t.Errorf("%s stats: sequential %+v, parallel %+v", field, s, p)
		}
	}

	queries := []struct {
		field schema.Field
		query string
	}{
		{schema.FieldName, "jane doe 3"},
		{schema.FieldName, "zoe moller 1"},
		{schema.FieldTIN, "1234"},
	}
	for _, q := range queries {
		want, err := sequential.Search(q.field, q.query, 2)
		if err != nil {
			t.Fatal(err)
		}
		got, err := parallel.Search(q.field, q.query, 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != len(want) {
			t.Fatalf("Search(%s, %q): parallel %d matches, sequential %d", q.field, q.query, len(got), len(want))
		}
		for i := range want {
			if got[i].Value != want[i].Value || got[i].Distance != want[i].Distance || len(got[i].Records) != len(want[i].Records) {
				t.Errorf("Search(%s, %q)[%d] = %+v, want %+v", q.field, q.query, i, got[i], want[i])
			}
		}
	}
}

func TestParallelBuildFallback(t *testing.T) {
	b := newTestBuilder(t)

	tests := []struct {
		name   string
		config ParallelBuildConfig
	}{
		{"zero value", ParallelBuildConfig{}},
		{"one worker", ParallelBuildConfig{Workers: 1}},
		{"negative", ParallelBuildConfig{Workers: -3}},
	}

	for _, tt := range tests {
		ix, err := b.ParallelBuild(context.Background(), tt.config)
		if err != nil {
			t.Fatalf("%s: ParallelBuild failed: %v", tt.name, err)
		}
		if ix.Stats().TotalEntities != 5 {
			t.Errorf("%s: TotalEntities = %d, want 5", tt.name, ix.Stats().TotalEntities)
		}
	}
}

func TestParallelBuildCancelled(t *testing.T) {
	b := newTestBuilder(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		if _, err := b.ParallelBuild(ctx, ParallelBuildConfig{Workers: workers}); !errors.Is(err, context.Canceled) {
			t.Errorf("workers=%d: error = %v, want context.Canceled", workers, err)
		}
	}
}

func BenchmarkBuild(b *testing.B) {
	builder, _ := NewIndexBuilder(testOptions())
	builder.AddEntities(manyEntities(b, 2000))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		builder.Build()
	}
}
