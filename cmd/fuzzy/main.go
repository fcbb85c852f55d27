// hippocratic-fuzzy - Edit distances and BK-tree search over a word list.
// Usage: hippocratic-fuzzy [options] <a> <b>
//
//	hippocratic-fuzzy [options] --words <file> <query>
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"hippocratic/internal/config"
	"hippocratic/internal/normalizer"
	"hippocratic/internal/similarity"

	"github.com/spf13/pflag"
)

// wordMatch is one search result. Lines are 1-based positions in the word list.
type wordMatch struct {
	Word     string `json:"word"`
	Distance int    `json:"distance"`
	Lines    []int  `json:"lines"`
}

func main() {
	// Flags
	wordsFile := pflag.StringP("words", "W", "", "Word list, one entry per line")
	metricName := pflag.StringP("metric", "m", "levenshtein", "Distance metric ("+config.MetricNames()+")")
	maxDistance := pflag.IntP("distance", "n", 2, "Maximum edit distance")
	limit := pflag.IntP("limit", "l", 10, "Maximum results to show")
	jsonOutput := pflag.BoolP("json", "j", false, "Output as JSON")
	normalize := pflag.BoolP("normalize", "N", false, "Fold case and strip diacritics before comparing")

	pflag.Parse()

	metric, err := similarity.MetricByName(*metricName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v (known: %s)\n", err, config.MetricNames())
		os.Exit(2)
	}
	prepare := func(s string) string {
		if *normalize {
			return normalizer.NormalizeIdentity(s)
		}
		return s
	}

	if *wordsFile == "" {
		if pflag.NArg() != 2 {
			usage()
		}
		a, b := prepare(pflag.Arg(0)), prepare(pflag.Arg(1))
		d := metric.Distance(a, b)
		if *jsonOutput {
			writeJSON(struct {
				Metric   string `json:"metric"`
				A        string `json:"a"`
				B        string `json:"b"`
				Distance int    `json:"distance"`
			}{metric.Name(), a, b, d})
			return
		}
		fmt.Printf("%s(%q, %q) = %d\n", metric.Name(), a, b, d)
		return
	}

	if pflag.NArg() != 1 {
		usage()
	}
	if *maxDistance < 0 {
		fmt.Fprintf(os.Stderr, "Error: %v: %d\n", similarity.ErrInvalidThreshold, *maxDistance)
		os.Exit(2)
	}
	query := prepare(pflag.Arg(0))

	entries, err := loadWords(*wordsFile, prepare)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "No words found in word list")
		os.Exit(1)
	}

	// Build BK-tree
	tree, err := similarity.New[int](metric, entries[0].Value, entries[0].Record)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	tree.InsertAll(entries[1:])

	// Search, sorted by distance, then alphabetically
	found := tree.Search(query, *maxDistance)
	similarity.SortMatches(found)

	total := len(found)
	if *limit > 0 && len(found) > *limit {
		found = found[:*limit]
	}

	results := make([]wordMatch, len(found))
	for i, m := range found {
		results[i] = wordMatch{Word: m.Value, Distance: m.Distance, Lines: sortedInts(m.Records)}
	}

	// Output
	if *jsonOutput {
		writeJSON(struct {
			Query   string      `json:"query"`
			Metric  string      `json:"metric"`
			MaxDist int         `json:"max_distance"`
			Count   int         `json:"count"`
			Total   int         `json:"total"`
			Results []wordMatch `json:"results"`
		}{
			Query:   query,
			Metric:  metric.Name(),
			MaxDist: *maxDistance,
			Count:   len(results),
			Total:   total,
			Results: results,
		})
		return
	}

	if len(results) == 0 {
		fmt.Printf("No matches found for %q within distance %d\n", query, *maxDistance)
		return
	}

	fmt.Printf("Fuzzy matches for %q (%s, max distance: %d):\n\n", query, metric.Name(), *maxDistance)
	for _, r := range results {
		fmt.Printf("  %s (distance: %d)\n", r.Word, r.Distance)
	}
	fmt.Printf("\n%d of %d result(s) shown, %d words indexed\n", len(results), total, tree.Size())
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: hippocratic-fuzzy [options] <a> <b>")
	fmt.Fprintln(os.Stderr, "       hippocratic-fuzzy [options] --words <file> <query>")
	fmt.Fprintln(os.Stderr, "\nOptions:")
	pflag.PrintDefaults()
	os.Exit(1)
}

// loadWords reads one entry per non-blank line, keyed by line number.
func loadWords(path string, prepare func(string) string) ([]similarity.Entry[int], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []similarity.Entry[int]
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		word := strings.TrimSpace(scanner.Text())
		if word == "" {
			continue
		}
		entries = append(entries, similarity.Entry[int]{Value: prepare(word), Record: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return entries, nil
}

func sortedInts(xs []int) []int {
	out := append([]int(nil), xs...)
	sort.Ints(out)
	return out
}

func writeJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
