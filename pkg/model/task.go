package model

import "time"

const (
	StatusNeedsAction = "needsAction"
	StatusCompleted   = "completed"
)

// Task is a single entry of a task list as seen by the reconciler.
// Due carries date-only semantics; the time component is always midnight UTC.
type Task struct {
	ID     string     `json:"id" yaml:"id"`
	Title  string     `json:"title" yaml:"title"`
	Notes  string     `json:"notes,omitempty" yaml:"notes,omitempty"`
	Due    *time.Time `json:"due,omitempty" yaml:"due,omitempty"`
	Status string     `json:"status" yaml:"status"`
	Parent string     `json:"parent,omitempty" yaml:"parent,omitempty"`
}

func (t Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// TaskList is a named container of tasks.
type TaskList struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
}

// Update is the full set of mutable fields sent on every write. The store
// replaces all of them, so an Update must always start from the current task.
type Update struct {
	ID     string     `json:"id" yaml:"id"`
	Title  string     `json:"title" yaml:"title"`
	Notes  string     `json:"notes,omitempty" yaml:"notes,omitempty"`
	Parent string     `json:"parent,omitempty" yaml:"parent,omitempty"`
	Status string     `json:"status" yaml:"status"`
	Due    *time.Time `json:"due" yaml:"due"`
}

// UpdateFrom returns an Update that rewrites t unchanged.
func UpdateFrom(t Task) Update {
	u := Update{
		ID:     t.ID,
		Title:  t.Title,
		Notes:  t.Notes,
		Parent: t.Parent,
		Status: t.Status,
	}
	if t.Due != nil {
		d := *t.Due
		u.Due = &d
	}
	return u
}

func (u Update) WithStatus(status string) Update {
	u.Status = status
	return u
}

// WithDue sets the due date. A nil due clears it.
func (u Update) WithDue(due *time.Time) Update {
	if due == nil {
		u.Due = nil
		return u
	}
	d := *due
	u.Due = &d
	return u
}

func (u Update) WithoutDue() Update {
	u.Due = nil
	return u
}

func (u Update) WithParent(parentID string) Update {
	u.Parent = parentID
	return u
}

// Apply returns t with the fields of u written over it.
func (u Update) Apply(t Task) Task {
	t.Title = u.Title
	t.Notes = u.Notes
	t.Parent = u.Parent
	t.Status = u.Status
	t.Due = nil
	if u.Due != nil {
		d := *u.Due
		t.Due = &d
	}
	return t
}
