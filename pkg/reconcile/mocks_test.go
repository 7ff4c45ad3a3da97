package reconcile

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/harrisonrobin/recur/pkg/model"
)

type updateCall struct {
	listID string
	update model.Update
}

// fakeStore records update calls and can fail selected lists or tasks.
type fakeStore struct {
	lists    []model.TaskList
	tasks    map[string][]model.Task
	listsErr error
	listErr  map[string]error
	failIDs  map[string]error
	calls    []updateCall
}

func (f *fakeStore) ListTaskLists(ctx context.Context) ([]model.TaskList, error) {
	if f.listsErr != nil {
		return nil, f.listsErr
	}
	return f.lists, nil
}

func (f *fakeStore) ListTasks(ctx context.Context, listID string) ([]model.Task, error) {
	if err := f.listErr[listID]; err != nil {
		return nil, err
	}
	return f.tasks[listID], nil
}

func (f *fakeStore) UpdateTask(ctx context.Context, listID string, u model.Update) (*model.Task, error) {
	f.calls = append(f.calls, updateCall{listID: listID, update: u})
	if err := f.failIDs[u.ID]; err != nil {
		return nil, err
	}
	t := u.Apply(model.Task{ID: u.ID})
	return &t, nil
}

var errBackend = errors.New("backend error 503")

func quietReconciler() *Reconciler {
	return New(log.New(io.Discard, "", 0))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(y int, m time.Month, d int) *time.Time {
	t := day(y, m, d)
	return &t
}
