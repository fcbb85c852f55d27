package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hippocratic/internal/schema"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.DefaultKind != schema.KindPerson {
		t.Errorf("DefaultKind = %q, want person", config.DefaultKind)
	}
	if !config.GenerateIDs {
		t.Error("GenerateIDs = false, want true")
	}
}

func TestIngestCSV(t *testing.T) {
	content := `id,kind,name,tin,birth_date,address,address_work,phone_home,employers
p1,person,Jane Doe,123-45-6789,1970-01-01,"123 Main St, Anytown, NJ 01234, United States",,555-1212,o1;o2
o1,organization,ACME Widgets Inc.,987-65-4321,,"567 Main St, Anytown, NJ 01234, United States",,,
p1,person,Jane Duplicate,,,,,,
p2,person,John Smith,,not-a-date,,,,
,person,Anonymous,,,,,,
`
	path := writeFile(t, "records.csv", content)

	result, err := IngestCSV(path, DefaultConfig())
	if err != nil {
		t.Fatalf("IngestCSV failed: %v", err)
	}

	if result.TotalRaw != 5 {
		t.Errorf("TotalRaw = %d, want 5", result.TotalRaw)
	}
	if result.TotalValid != 3 {
		t.Errorf("TotalValid = %d, want 3", result.TotalValid)
	}
	if result.TotalDuplicates != 1 {
		t.Errorf("TotalDuplicates = %d, want 1", result.TotalDuplicates)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "line 5") {
		t.Errorf("Errors = %v, want one error on line 5", result.Errors)
	}
	if result.GeneratedIDs != 1 {
		t.Errorf("GeneratedIDs = %d, want 1", result.GeneratedIDs)
	}

	p, ok := result.Entities[0].(*schema.Person)
	if !ok {
		t.Fatalf("Entities[0] is %T, want *schema.Person", result.Entities[0])
	}
	if p.Name.String() != "Jane Doe" || p.SSN.LastFew() != "6789" {
		t.Errorf("person = %+v", p)
	}
	if len(p.Employers) != 2 || p.PhoneNumbers["home"] != "555-1212" {
		t.Errorf("employers/phones = %v/%v", p.Employers, p.PhoneNumbers)
	}
	if _, ok := p.Addresses["primary"]; !ok {
		t.Errorf("Addresses = %v, want primary", p.Addresses)
	}

	if result.Entities[1].Kind() != schema.KindOrganization {
		t.Errorf("Entities[1].Kind() = %q, want organization", result.Entities[1].Kind())
	}
	if id := result.Entities[2].RecordID(); id == "" {
		t.Error("generated id is empty")
	}
}

func TestIngestCSVWithoutGeneratedIDs(t *testing.T) {
	path := writeFile(t, "records.csv", "name\nJane Doe\n")
	config := DefaultConfig()
	config.GenerateIDs = false

	result, err := IngestCSV(path, config)
	if err != nil {
		t.Fatalf("IngestCSV failed: %v", err)
	}
	if result.TotalValid != 0 || len(result.Errors) != 1 {
		t.Errorf("TotalValid = %d, Errors = %v; want 0 valid and one error", result.TotalValid, result.Errors)
	}
}

func TestIngestCSVEmpty(t *testing.T) {
	path := writeFile(t, "empty.csv", "")
	if _, err := IngestCSV(path, DefaultConfig()); err == nil {
		t.Error("IngestCSV on empty file should fail")
	}
}

func TestIngestJSONL(t *testing.T) {
	content := `{"id":"p1","name":"Jane Doe","tin":"123-45-6789","addresses":{"home":"123 Main St, Anytown, NJ 01234, United States"}}

{"id":"o1","kind":"organization","name":"ACME Widgets Inc."}
{not json}
{"id":"p1","name":"Jane Again"}
`
	path := writeFile(t, "records.jsonl", content)

	result, err := IngestJSONL(path, DefaultConfig())
	if err != nil {
		t.Fatalf("IngestJSONL failed: %v", err)
	}
	if result.TotalRaw != 4 {
		t.Errorf("TotalRaw = %d, want 4", result.TotalRaw)
	}
	if result.TotalValid != 2 {
		t.Errorf("TotalValid = %d, want 2", result.TotalValid)
	}
	if result.TotalDuplicates != 1 {
		t.Errorf("TotalDuplicates = %d, want 1", result.TotalDuplicates)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "line 4") {
		t.Errorf("Errors = %v, want one error on line 4", result.Errors)
	}
}

func TestIngestFile(t *testing.T) {
	csvPath := writeFile(t, "a.csv", "id,name\np1,Jane Doe\n")
	if r, err := IngestFile(csvPath, DefaultConfig()); err != nil || r.TotalValid != 1 {
		t.Errorf("IngestFile(csv) = %v, %v", r, err)
	}

	jsonPath := writeFile(t, "a.jsonl", `{"id":"p1","name":"Jane Doe"}`+"\n")
	if r, err := IngestFile(jsonPath, DefaultConfig()); err != nil || r.TotalValid != 1 {
		t.Errorf("IngestFile(jsonl) = %v, %v", r, err)
	}

	txtPath := writeFile(t, "a.txt", "Jane Doe\n")
	if _, err := IngestFile(txtPath, DefaultConfig()); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("IngestFile(txt) error = %v, want ErrUnsupportedFormat", err)
	}

	if _, err := IngestFile(filepath.Join(t.TempDir(), "missing.csv"), DefaultConfig()); err == nil {
		t.Error("IngestFile on missing file should fail")
	}
}

func TestIngestCSVMultilineFieldLineNumbers(t *testing.T) {
	content := "id,name,notes,birth_date\n" +
		"p1,Jane Doe,\"first line\nsecond line\",1970-01-01\n" +
		"p2,John Smith,,1970-13-01\n" +
		"p3,Mary Major,\"a\nb\nc\",\n" +
		"p4,Richard Roe,,2023-02-29\n"
	path := writeFile(t, "multiline.csv", content)

	tests := []struct {
		name   string
		ingest func() (*IngestResult, error)
	}{
		{"sequential", func() (*IngestResult, error) { return IngestCSV(path, DefaultConfig()) }},
		{"parallel fallback", func() (*IngestResult, error) {
			return ParallelIngestCSV(path, DefaultConfig(), DefaultParseConfig())
		}},
		{"parallel", func() (*IngestResult, error) {
			return ParallelIngestCSV(path, DefaultConfig(), ParseConfig{Workers: 2, ChunkSize: 2})
		}},
	}

	want := []string{"line 4:", "line 8:"}
	for _, tt := range tests {
		result, err := tt.ingest()
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if result.TotalRaw != 4 || result.TotalValid != 2 {
			t.Errorf("%s: TotalRaw = %d, TotalValid = %d, want 4, 2", tt.name, result.TotalRaw, result.TotalValid)
		}
		if len(result.Errors) != len(want) {
			t.Fatalf("%s: Errors = %v, want %d errors", tt.name, result.Errors, len(want))
		}
		for i, prefix := range want {
			if !strings.HasPrefix(result.Errors[i], prefix) {
				t.Errorf("%s: Errors[%d] = %q, want prefix %q", tt.name, i, result.Errors[i], prefix)
			}
		}
	}
}
