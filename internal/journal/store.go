// Package journal keeps the user's journal entries together with the
// mentor's reflection. Entries are stored as append-only JSON lines in a
// local file.
package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is a single journal entry.
type Entry struct {
	ID         string    `json:"id"`
	Date       time.Time `json:"date"`
	Content    string    `json:"content"`
	Reflection string    `json:"reflection,omitempty"`
}

// FileStore persists entries as JSON lines in a local file.
// Safe for concurrent use.
type FileStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFileStore creates a FileStore backed by path. The file is created on
// the first [FileStore.Append].
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Path returns the backing file.
func (fs *FileStore) Path() string { return fs.path }

// Append stores content with its reflection and returns the new entry.
func (fs *FileStore) Append(content, reflection string) (Entry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	e := Entry{
		ID:         uuid.NewString(),
		Date:       fs.now().UTC(),
		Content:    content,
		Reflection: reflection,
	}
	data, err := json.Marshal(e)
	if err != nil {
		return Entry{}, fmt.Errorf("journal: marshal: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(fs.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return Entry{}, fmt.Errorf("journal: open file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return Entry{}, fmt.Errorf("journal: write: %w", err)
	}
	return e, nil
}

// List returns the most recent entries, newest first. limit <= 0 returns
// all of them. A missing file is an empty journal. Lines that fail to
// decode are skipped.
func (fs *FileStore) List(limit int) ([]Entry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.Open(fs.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("journal: open file: %w", err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("journal: read: %w", err)
	}

	out := make([]Entry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, entries[i])
	}
	return out, nil
}
