package resilience

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Entry records an invoice document that failed processing, kept so the
// batch command can retry it later.
type Entry struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	SourcePath string    `json:"source_path"`
	Error      string    `json:"error"`
	Kind       string    `json:"kind"` // "transient" or "permanent"
	FailedAt   time.Time `json:"failed_at"`
}

// Classify categorizes an error as "transient" or "permanent".
func Classify(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}

// Queue is a file-backed dead letter queue. Each entry is one JSON file in
// the queue directory, so entries survive restarts and can be inspected
// with standard tools.
type Queue struct {
	dir string
}

// NewQueue opens (creating if needed) a dead letter queue at dir.
func NewQueue(dir string) (*Queue, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "deadletter: create dir %s", dir)
	}
	return &Queue{dir: dir}, nil
}

// Push records a failed document. A missing ID or timestamp is filled in.
func (q *Queue) Push(e Entry) (string, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.FailedAt.IsZero() {
		e.FailedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "deadletter: marshal entry")
	}
	path := filepath.Join(q.dir, e.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "deadletter: write %s", path)
	}
	return e.ID, nil
}

// List returns all entries ordered oldest first. Unreadable files are
// skipped rather than failing the whole listing.
func (q *Queue) List() ([]Entry, error) {
	dirents, err := os.ReadDir(q.dir)
	if err != nil {
		return nil, eris.Wrapf(err, "deadletter: read dir %s", q.dir)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(q.dir, de.Name()))
		if err != nil {
			continue
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].FailedAt.Before(entries[j].FailedAt)
	})
	return entries, nil
}

// Remove drops an entry after a successful retry.
func (q *Queue) Remove(id string) error {
	path := filepath.Join(q.dir, id+".json")
	if err := os.Remove(path); err != nil {
		return eris.Wrapf(err, "deadletter: remove %s", id)
	}
	return nil
}
