package ingest

import (
	"sync"

	"hippocratic/internal/schema"
)

// ParseConfig configures parallel file parsing.
type ParseConfig struct {
	Workers   int // Number of parallel workers for row processing
	ChunkSize int // Rows per chunk (0 = auto)
}

// DefaultParseConfig returns sensible defaults.
func DefaultParseConfig() ParseConfig {
	return ParseConfig{
		Workers:   4,
		ChunkSize: 1000,
	}
}

// rowChunk represents a chunk of rows to process.
type rowChunk struct {
	header []string
	rows   []csvRow
	config IngestConfig
}

// ParallelIngestCSV ingests a CSV file, converting rows on a worker pool.
// The result matches IngestCSV: duplicates are resolved in file order.
func ParallelIngestCSV(filePath string, config IngestConfig, parseConfig ParseConfig) (*IngestResult, error) {
	header, rows, err := readCSV(filePath)
	if err != nil {
		return nil, err
	}

	// Sequential fallback for small files or single worker
	if parseConfig.Workers <= 1 || len(rows) < parseConfig.ChunkSize*2 {
		return ingestRows(filePath, header, rows, config), nil
	}

	chunkSize := parseConfig.ChunkSize
	if chunkSize <= 0 {
		chunkSize = len(rows) / parseConfig.Workers
		if chunkSize < 100 {
			chunkSize = 100
		}
	}

	var chunks []rowChunk
	for i := 0; i < len(rows); i += chunkSize {
		end := i + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, rowChunk{
			header: header,
			rows:   rows[i:end],
			config: config,
		})
	}

	// Process chunks in parallel
	results := make([][]parsedRow, len(chunks))
	var wg sync.WaitGroup

	jobs := make(chan int, len(chunks))
	for w := 0; w < parseConfig.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = processChunk(chunks[idx])
			}
		}()
	}

	for i := range chunks {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	// Merge in file order
	result := newResult(filePath)
	seen := make(map[schema.RecordID]bool)
	for _, chunk := range results {
		for _, row := range chunk {
			result.merge(row, seen)
		}
	}

	return result, nil
}

// processChunk converts a single chunk of rows.
func processChunk(chunk rowChunk) []parsedRow {
	out := make([]parsedRow, len(chunk.rows))
	for i, row := range chunk.rows {
		out[i] = convert(rowToRaw(chunk.header, row.fields), row.line, chunk.config)
	}
	return out
}
