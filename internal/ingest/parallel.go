package ingest

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ParallelConfig configures multi-file ingestion.
type ParallelConfig struct {
	Workers int // Number of files ingested at once (<= 1 = sequential)
	Ingest  IngestConfig
	Parse   ParseConfig
}

// FileResult holds the result for a single file.
type FileResult struct {
	Path   string
	Result *IngestResult
	Error  error
}

// ProgressCallback is called when a file completes processing.
// Calls are serialized.
type ProgressCallback func(path string, result *FileResult)

// ParallelIngestFiles ingests several files concurrently. A failing file
// does not stop the others; its error is reported in its FileResult.
func ParallelIngestFiles(ctx context.Context, paths []string, config ParallelConfig, callback ProgressCallback) []*FileResult {
	results := make([]*FileResult, len(paths))

	if config.Workers <= 1 {
		for i, path := range paths {
			if ctx.Err() != nil {
				results[i] = &FileResult{Path: path, Error: ctx.Err()}
				continue
			}
			results[i] = ingestOne(path, config)
			if callback != nil {
				callback(path, results[i])
			}
		}
		return results
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.Workers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			var r *FileResult
			if err := gctx.Err(); err != nil {
				r = &FileResult{Path: path, Error: err}
			} else {
				r = ingestOne(path, config)
			}

			mu.Lock()
			defer mu.Unlock()
			results[i] = r
			if callback != nil {
				callback(path, r)
			}
			return nil
		})
	}
	g.Wait()

	return results
}

// ingestOne handles a single file, using the chunked CSV parser when allowed.
func ingestOne(path string, config ParallelConfig) *FileResult {
	var (
		result *IngestResult
		err    error
	)
	if config.Parse.Workers > 1 && isCSV(path) {
		result, err = ParallelIngestCSV(path, config.Ingest, config.Parse)
	} else {
		result, err = IngestFile(path, config.Ingest)
	}
	return &FileResult{Path: path, Result: result, Error: err}
}

// ParallelStats holds aggregate statistics from parallel processing.
type ParallelStats struct {
	TotalFiles      int
	Successful      int
	Failed          int
	TotalRaw        int
	TotalValid      int
	TotalDuplicates int
	TotalErrors     int
}

// AggregateResults computes statistics from parallel results.
func AggregateResults(results []*FileResult) *ParallelStats {
	stats := &ParallelStats{
		TotalFiles: len(results),
	}

	for _, r := range results {
		if r.Error != nil {
			stats.Failed++
			continue
		}
		stats.Successful++
		if r.Result != nil {
			stats.TotalRaw += r.Result.TotalRaw
			stats.TotalValid += r.Result.TotalValid
			stats.TotalDuplicates += r.Result.TotalDuplicates
			stats.TotalErrors += len(r.Result.Errors)
		}
	}

	return stats
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}
