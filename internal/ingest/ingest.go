// Package ingest loads demographic records from CSV and JSONL files.
package ingest

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"hippocratic/internal/schema"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor JSONL.
var ErrUnsupportedFormat = errors.New("unsupported record file format")

// IngestResult holds the result of ingesting a record file.
type IngestResult struct {
	Entities        []schema.Entity
	SourcePath      string
	TotalRaw        int
	TotalValid      int
	TotalDuplicates int
	GeneratedIDs    int
	Errors          []string
}

// IngestConfig configures ingestion behavior.
type IngestConfig struct {
	// DefaultKind applies to rows without a kind column or value.
	DefaultKind schema.Kind
	// GenerateIDs assigns a random UUID to rows without an id.
	GenerateIDs bool
}

// DefaultConfig returns default ingestion config.
func DefaultConfig() IngestConfig {
	return IngestConfig{
		DefaultKind: schema.KindPerson,
		GenerateIDs: true,
	}
}

// IngestFile dispatches on the file extension.
func IngestFile(path string, config IngestConfig) (*IngestResult, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return IngestCSV(path, config)
	case ".jsonl", ".ndjson", ".json":
		return IngestJSONL(path, config)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// IngestCSV ingests a CSV file with a header row.
//
// Recognized columns: id, kind, name, tin (or ssn), birth_date, address,
// address_<label>, phone_<label>, email_<label> and employers (";"-separated).
func IngestCSV(filePath string, config IngestConfig) (*IngestResult, error) {
	header, rows, err := readCSV(filePath)
	if err != nil {
		return nil, err
	}
	return ingestRows(filePath, header, rows, config), nil
}

// ingestRows converts rows in file order.
func ingestRows(filePath string, header []string, rows []csvRow, config IngestConfig) *IngestResult {
	result := newResult(filePath)
	seen := make(map[schema.RecordID]bool)
	for _, row := range rows {
		result.merge(convert(rowToRaw(header, row.fields), row.line, config), seen)
	}
	return result
}

// IngestJSONL ingests one JSON record per line.
func IngestJSONL(filePath string, config IngestConfig) (*IngestResult, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	result := newResult(filePath)
	seen := make(map[schema.RecordID]bool)

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var raw schema.RawRecord
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			result.merge(parsedRow{err: fmt.Sprintf("line %d: %v", lineNum, err)}, seen)
			continue
		}
		result.merge(convert(&raw, lineNum, config), seen)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	return result, nil
}

func newResult(filePath string) *IngestResult {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		absPath = filePath
	}
	return &IngestResult{SourcePath: absPath}
}

// parsedRow is one converted record, or the error that rejected it.
type parsedRow struct {
	entity    schema.Entity
	generated bool
	err       string
}

// convert applies config defaults to raw and builds its entity.
func convert(raw *schema.RawRecord, lineNum int, config IngestConfig) parsedRow {
	generated := prepare(raw, config)
	entity, err := raw.ToEntity()
	if err != nil {
		return parsedRow{err: fmt.Sprintf("line %d: %v", lineNum, err)}
	}
	return parsedRow{entity: entity, generated: generated}
}

// merge records the outcome of one row. Rows must be merged in file order:
// a later row with an id that was already seen is counted as a duplicate
// and dropped.
func (r *IngestResult) merge(row parsedRow, seen map[schema.RecordID]bool) {
	r.TotalRaw++
	if row.err != "" {
		r.Errors = append(r.Errors, row.err)
		return
	}
	if row.generated {
		r.GeneratedIDs++
	}

	id := row.entity.RecordID()
	if seen[id] {
		r.TotalDuplicates++
		return
	}
	seen[id] = true
	r.Entities = append(r.Entities, row.entity)
	r.TotalValid++
}

// prepare applies config defaults to raw and reports whether an id was generated.
func prepare(raw *schema.RawRecord, config IngestConfig) bool {
	if strings.TrimSpace(raw.Kind) == "" && config.DefaultKind != "" {
		raw.Kind = string(config.DefaultKind)
	}
	if strings.TrimSpace(raw.ID) == "" && config.GenerateIDs {
		raw.ID = uuid.NewString()
		return true
	}
	return false
}

// csvRow is one CSV record and the line it starts on. A quoted field may
// span several lines.
type csvRow struct {
	fields []string
	line   int
}

func readCSV(filePath string) ([]string, []csvRow, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%s: missing header row", filePath)
		}
		return nil, nil, fmt.Errorf("error reading header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var rows []csvRow
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("error reading file: %w", err)
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, csvRow{fields: fields, line: line})
	}
	return header, rows, nil
}

// rowToRaw maps a CSV row onto a RawRecord using the header names.
func rowToRaw(header, row []string) *schema.RawRecord {
	raw := &schema.RawRecord{}
	for i, col := range header {
		if i >= len(row) {
			break
		}
		value := strings.TrimSpace(row[i])
		if value == "" {
			continue
		}

		switch {
		case col == "id":
			raw.ID = value
		case col == "kind":
			raw.Kind = value
		case col == "name":
			raw.Name = value
		case col == "tin" || col == "ssn":
			raw.TIN = value
		case col == "birth_date":
			raw.BirthDate = value
		case col == "employers":
			for _, e := range strings.Split(value, ";") {
				if e = strings.TrimSpace(e); e != "" {
					raw.Employers = append(raw.Employers, e)
				}
			}
		case col == "address":
			setLabeled(&raw.Addresses, "primary", value)
		case strings.HasPrefix(col, "address_"):
			setLabeled(&raw.Addresses, strings.TrimPrefix(col, "address_"), value)
		case strings.HasPrefix(col, "phone_"):
			setLabeled(&raw.Phones, strings.TrimPrefix(col, "phone_"), value)
		case strings.HasPrefix(col, "email_"):
			setLabeled(&raw.Emails, strings.TrimPrefix(col, "email_"), value)
		}
	}
	return raw
}

func setLabeled(m *map[string]string, label, value string) {
	if *m == nil {
		*m = make(map[string]string)
	}
	(*m)[label] = value
}
