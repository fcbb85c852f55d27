package metrics

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	latestFile  = "latest.json"
	historyFile = "history.jsonl"

	// maxHistoryLine bounds one history entry. Runs over many files carry
	// long source lists in their config.
	maxHistoryLine = 1 << 20
)

// Reporter persists finished runs under <output>/metrics and answers
// questions about earlier ones.
type Reporter struct {
	dir string
}

// NewReporter returns a reporter rooted at outputDir/metrics. Nothing is
// created until the first Write.
func NewReporter(outputDir string) *Reporter {
	return &Reporter{dir: filepath.Join(outputDir, "metrics")}
}

// Write stores the run as latest.json and run_<id>.json, and appends it to
// the history log.
func (r *Reporter) Write(run *RunMetrics) error {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", r.dir, err)
	}
	for _, name := range []string{latestFile, "run_" + run.RunID + ".json"} {
		if err := r.save(name, run); err != nil {
			return err
		}
	}
	return r.record(run)
}

func (r *Reporter) save(name string, run *RunMetrics) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run %s: %w", run.RunID, err)
	}
	if err := os.WriteFile(filepath.Join(r.dir, name), append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

func (r *Reporter) record(run *RunMetrics) error {
	line, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encoding run %s: %w", run.RunID, err)
	}
	f, err := os.OpenFile(filepath.Join(r.dir, historyFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("appending history: %w", err)
	}
	return f.Close()
}

// runs returns every readable history entry, oldest first. Lines that do not
// decode are skipped. A missing history is empty, not an error.
func (r *Reporter) runs() ([]*RunMetrics, error) {
	f, err := os.Open(filepath.Join(r.dir, historyFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []*RunMetrics
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxHistoryLine)
	for sc.Scan() {
		run := new(RunMetrics)
		if json.Unmarshal(sc.Bytes(), run) == nil {
			out = append(out, run)
		}
	}
	return out, sc.Err()
}

// ReadHistory returns up to limit of the most recent runs, oldest first.
// A limit of zero or less returns the whole history.
func (r *Reporter) ReadHistory(limit int) ([]*RunMetrics, error) {
	all, err := r.runs()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

// LastComparable returns the newest recorded run with the given fingerprint,
// or nil when no earlier run did the same work. An empty fingerprint matches
// nothing.
func (r *Reporter) LastComparable(fingerprint string) (*RunMetrics, error) {
	if fingerprint == "" {
		return nil, nil
	}
	all, err := r.runs()
	if err != nil {
		return nil, err
	}
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Fingerprint == fingerprint {
			return all[i], nil
		}
	}
	return nil, nil
}
