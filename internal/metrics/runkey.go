package metrics

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// RunKey is the part of a run's configuration that decides what work it did.
// Two runs are comparable only when their keys have the same fingerprint.
type RunKey struct {
	Metric    string
	Threshold int
	Fields    []string
	Normalize bool
	Sources   []string
}

// fingerprintSpace namespaces run fingerprints so they never collide with
// other name-based UUIDs.
var fingerprintSpace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("hippocratic/run"))

// Fingerprint returns a stable identifier for the key. Field and source order
// does not matter, and source paths are cleaned first.
func (k RunKey) Fingerprint() string {
	fields := append([]string(nil), k.Fields...)
	sort.Strings(fields)

	sources := make([]string, len(k.Sources))
	for i, s := range k.Sources {
		sources[i] = filepath.Clean(s)
	}
	sort.Strings(sources)

	canonical := fmt.Sprintf("metric=%s\nthreshold=%d\nnormalize=%t\nfields=%s\nsources=%s",
		k.Metric, k.Threshold, k.Normalize,
		strings.Join(fields, "\x1f"), strings.Join(sources, "\x1f"))
	return uuid.NewSHA1(fingerprintSpace, []byte(canonical)).String()
}

// config returns the key as run configuration entries.
func (k RunKey) config() map[string]interface{} {
	return map[string]interface{}{
		"metric":    k.Metric,
		"threshold": k.Threshold,
		"fields":    k.Fields,
		"normalize": k.Normalize,
		"sources":   k.Sources,
	}
}
