package util

import (
	"fmt"
	"time"

	"github.com/harrisonrobin/recur/pkg/cadence"
	"github.com/harrisonrobin/recur/pkg/model"
	"google.golang.org/api/tasks/v1"
)

// ParseDue parses a Google Tasks due timestamp into a calendar date. The API
// stores due dates as RFC 3339 midnight UTC and discards the time portion.
func ParseDue(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid due date %q: %w", s, err)
	}
	d := cadence.Date(t)
	return &d, nil
}

// FormatDue renders a calendar date the way the API expects it.
func FormatDue(due *time.Time) string {
	if due == nil {
		return ""
	}
	return cadence.Date(*due).Format(time.RFC3339)
}

// ConvertAPITask converts a Google Tasks resource into a model.Task.
func ConvertAPITask(t *tasks.Task) (model.Task, error) {
	if t == nil {
		return model.Task{}, fmt.Errorf("could not convert nil Task")
	}

	due, err := ParseDue(t.Due)
	if err != nil {
		return model.Task{}, fmt.Errorf("task %q (ID: %s): %w", t.Title, t.Id, err)
	}

	return model.Task{
		ID:     t.Id,
		Title:  t.Title,
		Notes:  t.Notes,
		Due:    due,
		Status: t.Status,
		Parent: t.Parent,
	}, nil
}

// ConvertAPITaskList converts a Google Tasks list resource.
func ConvertAPITaskList(l *tasks.TaskList) model.TaskList {
	return model.TaskList{ID: l.Id, Title: l.Title}
}

// ConvertUpdateToAPITask builds the full request body for tasks.update. A
// cleared due date is sent as an explicit null so the store drops it.
func ConvertUpdateToAPITask(u model.Update) *tasks.Task {
	t := &tasks.Task{
		Id:     u.ID,
		Title:  u.Title,
		Notes:  u.Notes,
		Parent: u.Parent,
		Status: u.Status,
		Due:    FormatDue(u.Due),
	}
	if u.Due == nil {
		t.NullFields = append(t.NullFields, "Due")
	}
	if u.Status == model.StatusNeedsAction {
		// A completion timestamp left on an unchecked task is rejected.
		t.NullFields = append(t.NullFields, "Completed")
	}
	return t
}
