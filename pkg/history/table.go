// Package history keeps the outcome of the last reconciliation pass per task list.
package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/harrisonrobin/recur/pkg/reconcile"
)

type Entry struct {
	ListTitle string    `json:"list_title"`
	RunID     string    `json:"run_id"`
	RanAt     time.Time `json:"ran_at"`
	Today     string    `json:"today"`
	DryRun    bool      `json:"dry_run"`
	Planned   int       `json:"planned"`
	Applied   int       `json:"applied"`
	Failed    int       `json:"failed"`
	LoadError string    `json:"load_error,omitempty"`
}

type Table struct {
	Entries map[string]Entry `json:"entries"`
	Path    string           `json:"-"`
	dirty   bool
}

// NewTable loads the history file from the config directory, or starts an
// empty table when there is none yet.
func NewTable() (*Table, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return Open(filepath.Join(home, ".config", "recur", "history.json"))
}

func Open(path string) (*Table, error) {
	t := &Table{
		Path:    path,
		Entries: make(map[string]Entry),
	}

	if _, err := os.Stat(path); err == nil {
		if err := t.Load(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) Load() error {
	f, err := os.Open(t.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(t); err != nil {
		return err
	}
	if t.Entries == nil {
		t.Entries = make(map[string]Entry)
	}
	return nil
}

func (t *Table) Save() error {
	if !t.dirty {
		return nil
	}
	dir := filepath.Dir(t.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	f, err := os.Create(t.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	err = encoder.Encode(t)
	if err == nil {
		t.dirty = false
	}
	return err
}

// Record stores one entry per list touched by the run, replacing the
// previous one.
func (t *Table) Record(rep *reconcile.RunReport, ranAt time.Time) {
	today := rep.Today.Format(time.DateOnly)
	for _, l := range rep.Lists {
		t.Entries[l.ListID] = Entry{
			ListTitle: l.ListTitle,
			RunID:     rep.RunID,
			RanAt:     ranAt,
			Today:     today,
			DryRun:    l.DryRun,
			Planned:   l.Planned,
			Applied:   l.Applied,
			Failed:    len(l.Errors),
		}
		t.dirty = true
	}
	for _, le := range rep.ListErrors {
		t.Entries[le.ListID] = Entry{
			ListTitle: le.Title,
			RunID:     rep.RunID,
			RanAt:     ranAt,
			Today:     today,
			DryRun:    rep.DryRun,
			LoadError: le.Err.Error(),
		}
		t.dirty = true
	}
}

func (t *Table) Remove(listID string) {
	if _, exists := t.Entries[listID]; exists {
		delete(t.Entries, listID)
		t.dirty = true
	}
}

// Sorted returns the entries ordered by list title.
func (t *Table) Sorted() []Entry {
	entries := make([]Entry, 0, len(t.Entries))
	for _, e := range t.Entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ListTitle < entries[j].ListTitle
	})
	return entries
}
