// Package reconcile advances recurring tasks to their next cycle and keeps
// their subtasks consistent with the parent's completion and overdue state.
//
// A pass is split in two: Plan derives every intended write from a read-only
// snapshot of one task list, and Apply sends those writes to the store in
// order. Decisions never depend on writes already issued in the same pass.
package reconcile

import (
	"context"
	"log"
	"time"

	"github.com/harrisonrobin/recur/pkg/cadence"
	"github.com/harrisonrobin/recur/pkg/model"
)

// Action names the rule that produced a write.
type Action string

const (
	// ArchiveSubtask stamps a subtask of a completed parent with the due date
	// the parent had when its cycle closed.
	ArchiveSubtask Action = "archive-subtask"
	// ResetSubtask unchecks a subtask and clears its due date.
	ResetSubtask Action = "reset-subtask"
	// CarrySubtask gives an unfinished subtask of an overdue parent the
	// parent's old due date.
	CarrySubtask Action = "carry-subtask"
	// ResetParent unchecks a completed parent and moves it to its next due date.
	ResetParent Action = "reset-parent"
	// AdvanceParent moves an uncompleted parent to its next due date.
	AdvanceParent Action = "advance-parent"
)

func (a Action) verb() string {
	switch a {
	case ArchiveSubtask:
		return "Archived subtask"
	case ResetSubtask:
		return "Reset subtask"
	case CarrySubtask:
		return "Assigned old due date to subtask"
	case ResetParent:
		return "Reset parent"
	case AdvanceParent:
		return "Updated parent due date"
	default:
		return string(a)
	}
}

// Write is one intended update call.
type Write struct {
	Action Action       `json:"action" yaml:"action"`
	Update model.Update `json:"update" yaml:"update"`
}

// Plan is the ordered set of writes for one task list.
type Plan struct {
	ListID string         `json:"list_id" yaml:"list_id"`
	Today  time.Time      `json:"today" yaml:"today"`
	Writes []Write        `json:"writes" yaml:"writes"`
	Errors []*EntityError `json:"-" yaml:"-"`
}

func (p *Plan) add(action Action, u model.Update) {
	p.Writes = append(p.Writes, Write{Action: action, Update: u})
}

func (p *Plan) fail(t model.Task, kind, err error) {
	p.Errors = append(p.Errors, &EntityError{TaskID: t.ID, Title: t.Title, Kind: kind, Err: err})
}

// Updater is the part of the task store the reconciler writes to.
type Updater interface {
	UpdateTask(ctx context.Context, listID string, u model.Update) (*model.Task, error)
}

// Reconciler plans and applies reconciliation passes.
type Reconciler struct {
	logger *log.Logger
}

// New returns a Reconciler that narrates its decisions to logger. A nil
// logger uses the standard logger.
func New(logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.Default()
	}
	return &Reconciler{logger: logger}
}

// Plan evaluates every tagged task in tasks against today and returns the
// writes a pass would issue. tasks is not modified.
func (r *Reconciler) Plan(listID string, tasks []model.Task, today time.Time) *Plan {
	p := &Plan{ListID: listID, Today: cadence.Date(today)}
	children := subtasksByParent(tasks)

	for _, task := range tasks {
		c := cadence.Parse(task.Notes)
		if c == cadence.None {
			continue
		}
		if task.ID == "" {
			r.logger.Printf("Task %q has no ID!", task.Title)
			p.fail(task, ErrMissingIdentifier, nil)
			continue
		}

		subtasks := children[task.ID]
		switch {
		case task.IsCompleted():
			r.planCompleted(p, task, c, subtasks)
		case len(subtasks) == 0:
			r.logger.Printf("Found uncompleted standalone task %q with no subtasks. Keeping it unchanged for accountability.", task.Title)
		default:
			r.planUncompleted(p, task, c, subtasks)
		}
	}
	return p
}

func (r *Reconciler) planCompleted(p *Plan, task model.Task, c cadence.Cadence, subtasks []model.Task) {
	r.logger.Printf("Found completed %s task: %q (ID: %s). Resetting...", c, task.Title, task.ID)

	next, err := cadence.NextDue(c, task.Due, p.Today)
	if err != nil {
		r.logger.Printf("  No next due date for %q: %v", task.Title, err)
		p.fail(task, ErrNoComputedDueDate, err)
		return
	}

	if len(subtasks) > 0 {
		r.logger.Printf("  Task has %d subtasks. Archiving them with old due date %s...", len(subtasks), formatDue(task.Due))
		valid := make([]model.Task, 0, len(subtasks))
		for _, sub := range subtasks {
			if sub.ID == "" {
				r.logger.Printf("  Subtask %q has no ID!", sub.Title)
				p.fail(sub, ErrMissingIdentifier, nil)
				continue
			}
			valid = append(valid, sub)
		}
		for _, sub := range valid {
			p.add(ArchiveSubtask, model.UpdateFrom(sub).WithParent(task.ID).WithDue(task.Due))
		}
		for _, sub := range valid {
			p.add(ResetSubtask, model.UpdateFrom(sub).
				WithParent(task.ID).
				WithStatus(model.StatusNeedsAction).
				WithoutDue())
		}
	}

	p.add(ResetParent, model.UpdateFrom(task).WithStatus(model.StatusNeedsAction).WithDue(&next))
}

func (r *Reconciler) planUncompleted(p *Plan, task model.Task, c cadence.Cadence, subtasks []model.Task) {
	var completed, open []model.Task
	for _, sub := range subtasks {
		if sub.IsCompleted() {
			completed = append(completed, sub)
		} else {
			open = append(open, sub)
		}
	}

	overdue := cadence.IsOverdue(task.Due, p.Today)
	if len(completed) == 0 && !overdue {
		r.logger.Printf("Skipping uncompleted parent %q - not overdue and no completed subtasks.", task.Title)
		return
	}

	state := "not overdue"
	if overdue {
		state = "OVERDUE"
	}
	r.logger.Printf("Found uncompleted %s parent %q (%s) with %d completed and %d uncompleted subtask(s).",
		c, task.Title, state, len(completed), len(open))

	next, err := cadence.NextDue(c, task.Due, p.Today)
	if err != nil {
		next = p.Today
	}

	if len(open) > 0 && overdue {
		for _, sub := range open {
			if sub.ID == "" {
				r.logger.Printf("  Subtask %q has no ID!", sub.Title)
				p.fail(sub, ErrMissingIdentifier, nil)
				continue
			}
			p.add(CarrySubtask, model.UpdateFrom(sub).WithParent(task.ID).WithDue(task.Due))
		}
	}

	for _, sub := range completed {
		if sub.ID == "" {
			r.logger.Printf("  Subtask %q has no ID!", sub.Title)
			p.fail(sub, ErrMissingIdentifier, nil)
			continue
		}
		p.add(ResetSubtask, model.UpdateFrom(sub).
			WithParent(task.ID).
			WithStatus(model.StatusNeedsAction).
			WithoutDue())
	}

	// Overdue or with a completed subtask, which is every case that gets here.
	p.add(AdvanceParent, model.UpdateFrom(task).WithDue(&next))
}

// subtasksByParent groups tasks by parent id, keeping snapshot order.
func subtasksByParent(tasks []model.Task) map[string][]model.Task {
	children := make(map[string][]model.Task)
	for _, t := range tasks {
		if t.Parent == "" {
			continue
		}
		children[t.Parent] = append(children[t.Parent], t)
	}
	return children
}

// Result is the outcome of one write.
type Result struct {
	Write Write
	Err   error
}

// Report summarises a pass over one task list.
type Report struct {
	ListID      string
	ListTitle   string
	Today       time.Time
	DryRun      bool
	Planned     int
	Applied     int
	Failed      int
	Interrupted bool
	Results     []Result
	Errors      []*EntityError
}

// OK reports whether every planned write succeeded and no entity was skipped
// with an error.
func (r *Report) OK() bool {
	return len(r.Errors) == 0 && !r.Interrupted
}

// Report returns a report for the plan without applying it.
func (p *Plan) Report() *Report {
	rep := &Report{
		ListID:  p.ListID,
		Today:   p.Today,
		DryRun:  true,
		Planned: len(p.Writes),
	}
	rep.Errors = append(rep.Errors, p.Errors...)
	for _, w := range p.Writes {
		rep.Results = append(rep.Results, Result{Write: w})
	}
	return rep
}

// Apply issues the plan's writes in order. A failed write is recorded and the
// remaining writes are still attempted. Apply stops early only when ctx is done.
func (r *Reconciler) Apply(ctx context.Context, store Updater, plan *Plan) *Report {
	rep := &Report{
		ListID:  plan.ListID,
		Today:   plan.Today,
		Planned: len(plan.Writes),
	}
	rep.Errors = append(rep.Errors, plan.Errors...)

	for _, w := range plan.Writes {
		if ctx.Err() != nil {
			r.logger.Printf("Interrupted: %v", ctx.Err())
			rep.Interrupted = true
			break
		}
		if w.Update.ID == "" {
			ee := &EntityError{Title: w.Update.Title, Kind: ErrMissingIdentifier}
			rep.Results = append(rep.Results, Result{Write: w, Err: ee})
			rep.Errors = append(rep.Errors, ee)
			rep.Failed++
			continue
		}

		updated, err := store.UpdateTask(ctx, plan.ListID, w.Update)
		if err != nil {
			ee := &EntityError{TaskID: w.Update.ID, Title: w.Update.Title, Kind: ErrStoreUpdate, Err: err}
			r.logger.Printf("  Failed to apply %s to %q (ID: %s): %v", w.Action, w.Update.Title, w.Update.ID, err)
			rep.Results = append(rep.Results, Result{Write: w, Err: ee})
			rep.Errors = append(rep.Errors, ee)
			rep.Failed++
			continue
		}

		title, due := w.Update.Title, w.Update.Due
		if updated != nil {
			title, due = updated.Title, updated.Due
		}
		r.logger.Printf("  %s: %q (due: %s)", w.Action.verb(), title, formatDue(due))
		rep.Results = append(rep.Results, Result{Write: w})
		rep.Applied++
	}
	return rep
}

// Reconcile plans and applies a pass over one task list.
func (r *Reconciler) Reconcile(ctx context.Context, store Updater, listID string, tasks []model.Task, today time.Time) *Report {
	return r.Apply(ctx, store, r.Plan(listID, tasks, today))
}

func formatDue(due *time.Time) string {
	if due == nil {
		return "none"
	}
	return due.Format(time.DateOnly)
}
