package reconcile

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/harrisonrobin/recur/pkg/model"
)

func newTestStore() *fakeStore {
	return &fakeStore{
		lists: []model.TaskList{
			{ID: "home", Title: "Home"},
			{ID: "work", Title: "Work"},
			{ID: "broken", Title: "Broken"},
		},
		tasks: map[string][]model.Task{
			"home": {
				{ID: "rent", Title: "Pay rent", Notes: "#monthly", Due: dayPtr(2024, 1, 15), Status: model.StatusCompleted},
			},
			"work": {
				{ID: "standup", Title: "Standup notes", Notes: "#daily", Status: model.StatusCompleted},
				{ID: "gym", Title: "Gym", Notes: "#daily", Status: model.StatusNeedsAction},
			},
		},
		listErr: map[string]error{"broken": errBackend},
	}
}

func newTestRunner(store Store) *Runner {
	logger := log.New(io.Discard, "", 0)
	return &Runner{Store: store, Logger: logger, Reconciler: New(logger)}
}

func TestRunReconcilesEveryList(t *testing.T) {
	store := newTestStore()
	runner := newTestRunner(store)

	rep, err := runner.Run(context.Background(), time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.RunID == "" {
		t.Errorf("Expected a run id")
	}
	if !rep.Today.Equal(day(2024, 3, 10)) {
		t.Errorf("Expected today truncated to 2024-03-10, got %v", rep.Today)
	}
	if len(rep.Lists) != 2 {
		t.Fatalf("Expected 2 list reports, got %d", len(rep.Lists))
	}
	if len(rep.ListErrors) != 1 || rep.ListErrors[0].ListID != "broken" {
		t.Fatalf("Expected a list error for 'broken', got %v", rep.ListErrors)
	}
	if !errors.Is(rep.ListErrors[0], errBackend) {
		t.Errorf("Expected list error to wrap the backend error, got %v", rep.ListErrors[0])
	}
	if rep.Applied() != 2 {
		t.Errorf("Expected 2 applied writes, got %d", rep.Applied())
	}
	if rep.OK() {
		t.Errorf("Expected run not to be OK with a list error")
	}
	if rep.Lists[0].ListTitle != "Home" || rep.Lists[1].ListTitle != "Work" {
		t.Errorf("Expected list titles on reports, got %q and %q", rep.Lists[0].ListTitle, rep.Lists[1].ListTitle)
	}
	for _, c := range store.calls {
		if c.update.ID == "gym" {
			t.Errorf("Expected the uncompleted standalone task to be left alone")
		}
	}
}

func TestRunStopOnListError(t *testing.T) {
	store := newTestStore()
	store.lists = []model.TaskList{store.lists[2], store.lists[0]}
	runner := newTestRunner(store)
	runner.StopOnListError = true

	rep, err := runner.Run(context.Background(), day(2024, 3, 10))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rep.Lists) != 0 || len(store.calls) != 0 {
		t.Errorf("Expected the run to stop at the broken list, got %d reports and %d calls", len(rep.Lists), len(store.calls))
	}
}

func TestRunFiltersListsByTitle(t *testing.T) {
	store := newTestStore()
	runner := newTestRunner(store)
	runner.Lists = []string{"Work", "Missing"}

	rep, err := runner.Run(context.Background(), day(2024, 3, 10))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rep.Lists) != 1 || rep.Lists[0].ListID != "work" {
		t.Fatalf("Expected only the Work list, got %+v", rep.Lists)
	}
	if len(store.calls) != 1 || store.calls[0].update.ID != "standup" {
		t.Errorf("Expected one write for standup, got %+v", store.calls)
	}
}

func TestRunDryRunDoesNotWrite(t *testing.T) {
	store := newTestStore()
	runner := newTestRunner(store)
	runner.DryRun = true

	rep, err := runner.Run(context.Background(), day(2024, 3, 10))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(store.calls) != 0 {
		t.Errorf("Expected no update calls, got %d", len(store.calls))
	}
	if rep.Lists[0].Planned != 1 || !rep.Lists[0].DryRun {
		t.Errorf("Expected a dry run report with one planned write, got %+v", rep.Lists[0])
	}
}

func TestRunFailsWhenListsCannotBeRead(t *testing.T) {
	store := &fakeStore{listsErr: errBackend}
	runner := newTestRunner(store)

	if _, err := runner.Run(context.Background(), day(2024, 3, 10)); !errors.Is(err, errBackend) {
		t.Errorf("Expected backend error, got %v", err)
	}
}
