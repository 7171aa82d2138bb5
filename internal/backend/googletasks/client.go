// Package googletasks implements service.TaskService on a single Google Tasks list.
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"todosync/internal/config"
	"todosync/internal/service"
)

const (
	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// PageSize is the number of tasks per page.
	PageSize = 100

	// APITimeout is the timeout for API calls when none is configured.
	APITimeout = 5 * time.Second

	// OAuth scope for Google Tasks
	tasksScope = "https://www.googleapis.com/auth/tasks"

	statusCompleted   = "completed"
	statusNeedsAction = "needsAction"
)

// Client implements service.TaskService using Google Tasks API.
type Client struct {
	svc     *tasks.Service
	listID  string
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a new Google Tasks client.
// Requires oauth_client.json and token.json to exist in the config dir.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Client, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}

	oauthConfig, err := google.ConfigFromJSON(clientJSON, tasksScope)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}

	tokenData, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}

	// Refreshes the access token as needed.
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, &token))

	c, err := NewWithHTTPClient(ctx, httpClient, cfg.TaskList)
	if err != nil {
		return nil, err
	}
	c.timeout = cfg.Timeout
	if logger != nil {
		c.logger = logger
	}
	return c, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, listID string, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	if listID == "" {
		listID = DefaultListID
	}
	return &Client{
		svc:     svc,
		listID:  listID,
		timeout: APITimeout,
		logger:  zap.NewNop(),
	}, nil
}

// List returns every task in the list, completed and hidden ones included.
func (c *Client) List(ctx context.Context) ([]service.Task, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	result := []service.Task{}
	err := c.svc.Tasks.List(c.listID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, t := range resp.Items {
				result = append(result, fromAPI(t))
			}
			return nil
		})
	if err != nil {
		return nil, wrapError("list", err)
	}
	c.logger.Debug("listed tasks", zap.String("list", c.listID), zap.Int("count", len(result)))
	return result, nil
}

// Create inserts a task at the top of the list.
func (c *Client) Create(ctx context.Context, draft service.Draft) (service.Task, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	created, err := c.svc.Tasks.Insert(c.listID, toAPI(draft)).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError("create", err)
	}
	return fromAPI(created), nil
}

// Update patches title and status. Reopening a task clears its completion time.
func (c *Client) Update(ctx context.Context, id string, draft service.Draft) (service.Task, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	patch := toAPI(draft)
	if !draft.Done {
		patch.NullFields = append(patch.NullFields, "Completed")
	}
	updated, err := c.svc.Tasks.Patch(c.listID, id, patch).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError("update", err)
	}
	return fromAPI(updated), nil
}

// Delete removes a task. The API answers 204 on success, so a nil error confirms it.
func (c *Client) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.svc.Tasks.Delete(c.listID, id).Context(ctx).Do(); err != nil {
		return false, wrapError("delete", err)
	}
	return true, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

func fromAPI(t *tasks.Task) service.Task {
	return service.Task{
		ID:    t.Id,
		Title: t.Title,
		Done:  t.Status == statusCompleted,
	}
}

func toAPI(d service.Draft) *tasks.Task {
	status := statusNeedsAction
	if d.Done {
		status = statusCompleted
	}
	return &tasks.Task{Title: d.Title, Status: status}
}

// wrapError maps API errors onto the RemoteFailure kinds.
func wrapError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		kind := service.KindRejected
		if apiErr.Code == http.StatusNotFound {
			kind = service.KindNotFound
		}
		return &service.RemoteFailure{Kind: kind, Op: op, Status: apiErr.Code, Err: errors.New(apiErr.Message)}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = errors.New("request timed out")
	}
	return service.NewRemoteFailure(service.KindUnavailable, op, err)
}
