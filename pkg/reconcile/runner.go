package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/harrisonrobin/recur/pkg/cadence"
	"github.com/harrisonrobin/recur/pkg/model"
)

// Store is the task store a full run reads from and writes to.
type Store interface {
	Updater
	ListTaskLists(ctx context.Context) ([]model.TaskList, error)
	ListTasks(ctx context.Context, listID string) ([]model.Task, error)
}

// Runner reconciles every selected task list of a store.
type Runner struct {
	Store      Store
	Reconciler *Reconciler
	Logger     *log.Logger
	// Lists restricts the run to task lists with these titles. Empty means all.
	Lists []string
	// DryRun plans every list without writing to the store.
	DryRun bool
	// StopOnListError aborts the run at the first list that cannot be loaded.
	StopOnListError bool
}

// RunReport summarises a run over several task lists.
type RunReport struct {
	RunID      string
	Today      time.Time
	DryRun     bool
	Lists      []*Report
	ListErrors []*ListError
}

func (r *RunReport) Applied() int {
	n := 0
	for _, l := range r.Lists {
		n += l.Applied
	}
	return n
}

func (r *RunReport) Failed() int {
	n := 0
	for _, l := range r.Lists {
		n += len(l.Errors)
	}
	return n
}

// OK reports whether every list loaded and every entity succeeded.
func (r *RunReport) OK() bool {
	if len(r.ListErrors) > 0 {
		return false
	}
	for _, l := range r.Lists {
		if !l.OK() {
			return false
		}
	}
	return true
}

// Run reconciles each selected list against the same calendar date today. Only
// a failure to enumerate the task lists is returned as an error; per-list and
// per-entity failures are recorded in the report.
func (r *Runner) Run(ctx context.Context, today time.Time) (*RunReport, error) {
	logger := r.Logger
	if logger == nil {
		logger = log.Default()
	}
	rec := r.Reconciler
	if rec == nil {
		rec = New(logger)
	}

	today = cadence.Date(today)
	rep := &RunReport{RunID: uuid.NewString(), Today: today, DryRun: r.DryRun}

	lists, err := r.Store.ListTaskLists(ctx)
	if err != nil {
		return rep, fmt.Errorf("unable to retrieve task lists: %w", err)
	}
	if len(lists) == 0 {
		logger.Println("No task lists found.")
		return rep, nil
	}

	for _, list := range selectLists(lists, r.Lists, logger) {
		tasks, err := r.Store.ListTasks(ctx, list.ID)
		if err != nil {
			le := &ListError{ListID: list.ID, Title: list.Title, Err: err}
			logger.Printf("Error: %v", le)
			rep.ListErrors = append(rep.ListErrors, le)
			if r.StopOnListError {
				break
			}
			continue
		}

		plan := rec.Plan(list.ID, tasks, today)
		var lr *Report
		if r.DryRun {
			lr = plan.Report()
		} else {
			lr = rec.Apply(ctx, r.Store, plan)
		}
		lr.ListTitle = list.Title
		rep.Lists = append(rep.Lists, lr)

		if lr.Interrupted {
			break
		}
	}
	return rep, nil
}

func selectLists(lists []model.TaskList, titles []string, logger *log.Logger) []model.TaskList {
	if len(titles) == 0 {
		return lists
	}
	byTitle := make(map[string]model.TaskList, len(lists))
	for _, l := range lists {
		byTitle[l.Title] = l
	}
	var selected []model.TaskList
	for _, title := range titles {
		l, ok := byTitle[title]
		if !ok {
			logger.Printf("Warning: task list %q not found", title)
			continue
		}
		selected = append(selected, l)
	}
	return selected
}
