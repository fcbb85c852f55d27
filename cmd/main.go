// hippocratic CLI - Fuzzy matching over demographic records.
// Usage: hippocratic [options] --records <file> [query...]
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"

	"hippocratic/internal/builder"
	"hippocratic/internal/config"
	"hippocratic/internal/ingest"
	"hippocratic/internal/metrics"
	"hippocratic/internal/schema"
	"hippocratic/internal/similarity"
	"hippocratic/internal/ui"

	"github.com/spf13/pflag"
)

// queryResult is the JSON form of one query's matches.
type queryResult struct {
	Query     string               `json:"query"`
	Threshold int                  `json:"threshold"`
	Count     int                  `json:"count"`
	Matches   []builder.FieldMatch `json:"matches"`
}

func main() {
	// Flags
	records := pflag.StringSliceP("records", "r", nil, "Record files (.csv, .jsonl); repeatable")
	configPath := pflag.StringP("config", "c", "", "Path to config.toml (default: search upward)")
	metricName := pflag.StringP("metric", "m", "", "Distance metric ("+config.MetricNames()+")")
	threshold := pflag.IntP("threshold", "n", 0, "Maximum edit distance")
	fields := pflag.StringSliceP("field", "f", nil, "Field(s) to search (default: all indexed)")
	limit := pflag.IntP("limit", "l", 0, "Maximum matches shown per query (0 = all)")
	jsonOutput := pflag.BoolP("json", "j", false, "Output matches as JSON")
	noNormalize := pflag.Bool("no-normalize", false, "Index and search raw values")
	outputDir := pflag.StringP("output-dir", "o", "", "Output directory for metrics")
	quiet := pflag.BoolP("quiet", "q", false, "Suppress progress output")
	verbose := pflag.BoolP("verbose", "v", false, "Verbose logging")
	writeMetrics := pflag.Bool("metrics", true, "Write metrics to output directory")

	// Parallel processing flags
	parallel := pflag.BoolP("parallel", "p", true, "Enable parallel processing")
	workers := pflag.IntP("workers", "w", 0, "Number of parallel workers (0 = auto)")

	pflag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	applyFlags(cfg, metricName, threshold, limit, outputDir, quiet, verbose, writeMetrics, parallel, workers, noNormalize)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if len(*records) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: hippocratic [options] --records <file> [query...]")
		fmt.Fprintln(os.Stderr, "\nQueries are read from stdin when none are given.")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		pflag.PrintDefaults()
		os.Exit(1)
	}

	searchFields, err := parseFields(*fields)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	nWorkers := config.EffectiveWorkers(cfg.Defaults.Workers, runtime.NumCPU())
	if !cfg.Defaults.Parallel {
		nWorkers = 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// JSON output goes to stdout, so progress output is silenced.
	term := ui.New(cfg.Defaults.Quiet || *jsonOutput, cfg.Defaults.Verbose)
	term.Banner()

	metric, _ := cfg.Metric()
	counting := similarity.NewCounting(metric)
	indexFields, _ := cfg.IndexFields()

	collector := metrics.NewCollector()
	collector.SetRunKey(metrics.RunKey{
		Metric:    metric.Name(),
		Threshold: cfg.Index.DefaultThreshold,
		Fields:    fieldNames(indexFields),
		Normalize: cfg.Index.Normalize,
		Sources:   *records,
	})
	collector.SetConfigMap(map[string]interface{}{
		"parallel": cfg.Defaults.Parallel,
		"workers":  nWorkers,
	})
	term.Config(metric.Name(), cfg.Index.DefaultThreshold, indexFields, cfg.Index.Normalize, *records)

	// Phase 1: Ingest
	collector.StartStage("ingest")
	term.Phase(1, 3, "Ingesting records")

	results := ingest.ParallelIngestFiles(ctx, *records, ingest.ParallelConfig{
		Workers: nWorkers,
		Ingest:  ingest.DefaultConfig(),
		Parse:   ingest.ParseConfig{Workers: nWorkers, ChunkSize: ingest.DefaultParseConfig().ChunkSize},
	}, func(path string, r *ingest.FileResult) {
		if r.Error != nil {
			term.FileStatus(path, "error", r.Error.Error())
			return
		}
		details := fmt.Sprintf("%d records", r.Result.TotalValid)
		if n := len(r.Result.Errors); n > 0 {
			details += fmt.Sprintf(", %d rejected", n)
		}
		term.FileStatus(path, "ok", details)
		for _, e := range r.Result.Errors {
			term.Debug(fmt.Sprintf("%s: %s", path, e))
		}
	})

	pstats := ingest.AggregateResults(results)
	collector.EndStage("ingest")
	collector.SetStageCounter("ingest", "files", int64(pstats.TotalFiles))
	collector.SetStageCounter("ingest", "failed", int64(pstats.Failed))
	collector.SetStageCounter("ingest", "records_raw", int64(pstats.TotalRaw))
	collector.SetStageCounter("ingest", "records_valid", int64(pstats.TotalValid))
	collector.SetStageCounter("ingest", "duplicates", int64(pstats.TotalDuplicates))

	if pstats.Successful == 0 {
		term.Error("No record files could be read")
		os.Exit(1)
	}

	// Phase 2: Build
	collector.StartStage("build")
	term.Phase(2, 3, "Building similarity index")

	indexBuilder, err := builder.NewIndexBuilder(builder.Options{
		Metric:           counting,
		DefaultThreshold: cfg.Index.DefaultThreshold,
		Normalize:        cfg.Index.Normalize,
		Fields:           indexFields,
	})
	if err != nil {
		term.Error(err.Error())
		os.Exit(2)
	}
	for _, r := range results {
		if r.Error == nil {
			indexBuilder.AddEntities(r.Result.Entities)
		}
	}

	spinner := term.Spinner(fmt.Sprintf("Indexing %d records...", indexBuilder.Len()))
	index, err := indexBuilder.ParallelBuild(ctx, builder.ParallelBuildConfig{Workers: nWorkers})
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		term.Error(fmt.Sprintf("Build interrupted: %v", err))
		os.Exit(1)
	}

	buildComparisons := counting.Calls()
	stats := index.Stats()
	collector.EndStage("build")
	collector.SetStageCounter("build", "records", int64(stats.TotalEntities))
	collector.SetStageCounter("build", "comparisons", buildComparisons)
	for field, fs := range stats.ByField {
		collector.SetStageCounter("build", string(field)+"_values", int64(fs.Values))
		collector.SetStageGauge("build", string(field)+"_height", float64(fs.Height))
	}
	term.FieldStats(stats)
	if stats.Duplicates > 0 {
		term.Warning(fmt.Sprintf("%d record(s) repeated an id from an earlier file and were skipped", stats.Duplicates))
	}

	// Phase 3: Search
	collector.StartStage("search")
	term.Phase(3, 3, "Searching")

	queries := pflag.Args()
	if len(queries) == 0 {
		queries, err = readQueries(os.Stdin)
		if err != nil {
			term.Error(fmt.Sprintf("Failed to read queries: %v", err))
			os.Exit(1)
		}
	}

	var output []queryResult
	for _, query := range queries {
		matches, err := search(index, searchFields, query, cfg.Index.DefaultThreshold)
		if err != nil {
			term.Error(err.Error())
			os.Exit(2)
		}
		collector.IncrementCounter("queries", 1)
		collector.IncrementCounter("matches", int64(len(matches)))

		if *jsonOutput {
			if cfg.Defaults.Limit > 0 && len(matches) > cfg.Defaults.Limit {
				matches = matches[:cfg.Defaults.Limit]
			}
			output = append(output, queryResult{
				Query:     query,
				Threshold: cfg.Index.DefaultThreshold,
				Count:     len(matches),
				Matches:   matches,
			})
			continue
		}
		term.Matches(query, matches, cfg.Defaults.Limit)
	}
	collector.EndStage("search")
	collector.SetStageCounter("search", "comparisons", counting.Calls()-buildComparisons)

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(output); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	// Finalize metrics
	runMetrics := collector.Finalize(metrics.Totals{
		RecordsIndexed: int64(stats.TotalEntities),
		Queries:        int64(len(queries)),
		Comparisons:    counting.Calls(),
	})

	if cfg.Defaults.Metrics {
		reporter := metrics.NewReporter(cfg.Defaults.OutputDir)

		// Only a run with the same metric, threshold, fields and sources is comparable.
		previousRun, err := reporter.LastComparable(runMetrics.Fingerprint)
		if err != nil {
			term.Debug(fmt.Sprintf("Reading metrics history: %v", err))
		}

		if err := reporter.Write(runMetrics); err != nil {
			term.Warning(fmt.Sprintf("Failed to write metrics: %v", err))
		} else {
			term.Debug(fmt.Sprintf("Metrics written: %s", runMetrics.RunID))
		}

		if previousRun != nil {
			term.Info(metrics.FormatComparison(metrics.CompareRuns(runMetrics, previousRun)))
		}
	}

	duration := collector.GetStageDuration("ingest") + collector.GetStageDuration("build") + collector.GetStageDuration("search")
	term.FinalReport(stats.TotalEntities, len(queries), counting.Calls(), duration)
	term.Done()
}

// loadConfig reads an explicit config file, or searches for one.
func loadConfig(path string) (*config.ConfigFile, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	// Load caches its result; flags must not mutate the shared copy.
	copied := *cfg
	copied.Index.Fields = append([]string(nil), cfg.Index.Fields...)
	return &copied, nil
}

// applyFlags overrides config values with flags given on the command line.
func applyFlags(cfg *config.ConfigFile, metricName *string, threshold, limit *int, outputDir *string,
	quiet, verbose, writeMetrics, parallel *bool, workers *int, noNormalize *bool) {
	changed := pflag.CommandLine.Changed

	if changed("metric") {
		cfg.Index.Metric = *metricName
	}
	if changed("threshold") {
		cfg.Index.DefaultThreshold = *threshold
	}
	if changed("no-normalize") {
		cfg.Index.Normalize = !*noNormalize
	}
	if changed("limit") {
		cfg.Defaults.Limit = *limit
	}
	if changed("output-dir") {
		cfg.Defaults.OutputDir = *outputDir
	}
	if changed("quiet") {
		cfg.Defaults.Quiet = *quiet
	}
	if changed("verbose") {
		cfg.Defaults.Verbose = *verbose
	}
	if changed("metrics") {
		cfg.Defaults.Metrics = *writeMetrics
	}
	if changed("parallel") {
		cfg.Defaults.Parallel = *parallel
	}
	if changed("workers") {
		cfg.Defaults.Workers = *workers
	}
}

func parseFields(names []string) ([]schema.Field, error) {
	var fields []schema.Field
	for _, name := range names {
		f, err := schema.ParseField(name)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// search runs query against the given fields, or every indexed field when none are given.
func search(index *builder.Index, fields []schema.Field, query string, threshold int) ([]builder.FieldMatch, error) {
	if len(fields) == 0 {
		return index.SearchAll(query, threshold)
	}
	var out []builder.FieldMatch
	for _, f := range fields {
		matches, err := index.Search(f, query, threshold)
		if err != nil {
			if errors.Is(err, builder.ErrFieldNotIndexed) {
				return nil, fmt.Errorf("%w (indexed: %s)", err, strings.Join(fieldNames(index.Fields()), ", "))
			}
			return nil, err
		}
		out = append(out, matches...)
	}
	return out, nil
}

func fieldNames(fields []schema.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return names
}

// readQueries reads one query per non-empty line.
func readQueries(f *os.File) ([]string, error) {
	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			queries = append(queries, line)
		}
	}
	return queries, scanner.Err()
}
