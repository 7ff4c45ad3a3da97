package google

import (
	"context"
	"fmt"

	"github.com/harrisonrobin/recur/pkg/auth"
	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"
)

// NewClient creates an authenticated Google Tasks client.
func NewClient(ctx context.Context, maxRetries int) (*TasksClient, error) {
	client, err := auth.GetClient(ctx, auth.TasksScopes)
	if err != nil {
		return nil, err
	}

	srv, err := tasks.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Tasks client: %w", err)
	}

	return NewTasksClient(srv, maxRetries), nil
}
