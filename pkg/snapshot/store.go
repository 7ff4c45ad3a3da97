// Package snapshot is a task store backed by a JSON file. It lets a
// reconciliation pass be planned or applied without a network connection.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/harrisonrobin/recur/pkg/model"
)

type Store struct {
	Lists []List `json:"lists"`
	Path  string `json:"-"`
	dirty bool
}

// Parse decodes a snapshot from r.
func Parse(r io.Reader) (*Store, error) {
	var s Store
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot json: %w", err)
	}
	return &s, nil
}

// Open loads the snapshot at path. Save writes back to the same file.
func Open(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	return s, nil
}

// New builds a snapshot from lists and their tasks.
func New(lists []model.TaskList, tasks map[string][]model.Task) *Store {
	s := &Store{}
	for _, l := range lists {
		list := List{ID: l.ID, Title: l.Title, Tasks: []Task{}}
		for _, t := range tasks[l.ID] {
			list.Tasks = append(list.Tasks, fromModel(t))
		}
		s.Lists = append(s.Lists, list)
	}
	return s
}

// Encode writes the snapshot as indented JSON.
func (s *Store) Encode(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(s)
}

// Save writes the snapshot back to Path if any task was updated.
func (s *Store) Save() error {
	if !s.dirty || s.Path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		return err
	}

	f, err := os.Create(s.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := s.Encode(f); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

func (s *Store) ListTaskLists(ctx context.Context) ([]model.TaskList, error) {
	lists := make([]model.TaskList, 0, len(s.Lists))
	for _, l := range s.Lists {
		lists = append(lists, model.TaskList{ID: l.ID, Title: l.Title})
	}
	return lists, nil
}

func (s *Store) ListTasks(ctx context.Context, listID string) ([]model.Task, error) {
	l := s.list(listID)
	if l == nil {
		return nil, fmt.Errorf("task list %s not found", listID)
	}
	tasks := make([]model.Task, 0, len(l.Tasks))
	for _, t := range l.Tasks {
		tasks = append(tasks, t.toModel())
	}
	return tasks, nil
}

func (s *Store) UpdateTask(ctx context.Context, listID string, u model.Update) (*model.Task, error) {
	l := s.list(listID)
	if l == nil {
		return nil, fmt.Errorf("task list %s not found", listID)
	}
	for i := range l.Tasks {
		if l.Tasks[i].ID != u.ID {
			continue
		}
		updated := u.Apply(l.Tasks[i].toModel())
		l.Tasks[i] = fromModel(updated)
		s.dirty = true
		return &updated, nil
	}
	return nil, fmt.Errorf("task %s not found in list %s", u.ID, listID)
}

func (s *Store) list(id string) *List {
	for i := range s.Lists {
		if s.Lists[i].ID == id {
			return &s.Lists[i]
		}
	}
	return nil
}
