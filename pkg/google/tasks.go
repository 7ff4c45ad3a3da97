package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cenkalti/backoff/v4"
	"github.com/harrisonrobin/recur/pkg/model"
	"github.com/harrisonrobin/recur/pkg/util"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/tasks/v1"
)

const pageSize = 100

// TasksClient is a Google Tasks API client.
type TasksClient struct {
	srv        *tasks.Service
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

// NewTasksClient wraps srv. Retryable failures are retried up to maxRetries
// times with exponential backoff.
func NewTasksClient(srv *tasks.Service, maxRetries int) *TasksClient {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &TasksClient{
		srv:        srv,
		maxRetries: uint64(maxRetries),
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
}

// ListTaskLists returns every task list of the account.
func (c *TasksClient) ListTaskLists(ctx context.Context) ([]model.TaskList, error) {
	var lists []model.TaskList
	err := c.retry(ctx, func() error {
		lists = lists[:0]
		return c.srv.Tasklists.List().MaxResults(pageSize).Pages(ctx, func(page *tasks.TaskLists) error {
			for _, l := range page.Items {
				lists = append(lists, util.ConvertAPITaskList(l))
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list task lists: %w", err)
	}
	return lists, nil
}

// ListTasks returns every task of a list, completed and hidden ones included,
// flattened across pages.
func (c *TasksClient) ListTasks(ctx context.Context, listID string) ([]model.Task, error) {
	var out []model.Task
	err := c.retry(ctx, func() error {
		out = out[:0]
		call := c.srv.Tasks.List(listID).
			ShowCompleted(true).
			ShowHidden(true).
			MaxResults(pageSize)
		return call.Pages(ctx, func(page *tasks.Tasks) error {
			for _, item := range page.Items {
				t, err := util.ConvertAPITask(item)
				if err != nil {
					return err
				}
				out = append(out, t)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list tasks of %s: %w", listID, err)
	}
	return out, nil
}

// UpdateTask replaces the mutable fields of a task with u.
func (c *TasksClient) UpdateTask(ctx context.Context, listID string, u model.Update) (*model.Task, error) {
	if u.ID == "" {
		return nil, fmt.Errorf("cannot update task %q without an id", u.Title)
	}
	body := util.ConvertUpdateToAPITask(u)

	var updated *tasks.Task
	err := c.retry(ctx, func() error {
		var err error
		updated, err = c.srv.Tasks.Update(listID, u.ID, body).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	t, err := util.ConvertAPITask(updated)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *TasksClient) retry(ctx context.Context, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

func isRetryable(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
