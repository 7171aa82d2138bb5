// Package restapi implements service.TaskService against a JSON task
// resource served over HTTP:
//
//	GET    /tasks        -> 200 [Task]
//	POST   /tasks        -> 201 Task
//	PUT    /tasks/{id}   -> 200 Task
//	DELETE /tasks/{id}   -> 204 (confirmed), anything else 2xx (unconfirmed)
package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"todosync/internal/config"
	"todosync/internal/service"
)

const (
	// DefaultTimeout bounds a round-trip when the config does not.
	DefaultTimeout = 5 * time.Second

	// RequestIDHeader carries a per-request id for server-side correlation.
	RequestIDHeader = "X-Request-ID"

	tasksPath = "/tasks"
)

// Client implements service.TaskService over HTTP.
type Client struct {
	http    *fasthttp.Client
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a client for cfg.BaseURL.
func New(cfg *config.Config, logger *zap.Logger) *Client {
	return NewWithBaseURL(cfg.BaseURL, cfg.Timeout, logger)
}

// NewWithBaseURL creates a client for baseURL (for testing).
func NewWithBaseURL(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http: &fasthttp.Client{
			Name:                "todosync",
			MaxIdleConnDuration: 30 * time.Second,
			// Ids are opaque; the escaped path must reach the server untouched.
			DisablePathNormalizing: true,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		logger:  logger,
	}
}

// List implements service.TaskService.
func (c *Client) List(ctx context.Context) ([]service.Task, error) {
	status, body, err := c.do(ctx, "list", fasthttp.MethodGet, tasksPath, nil)
	if err != nil {
		return nil, err
	}
	if err := checkStatus("list", status, http.StatusOK); err != nil {
		return nil, err
	}
	var tasks []service.Task
	if err := json.Unmarshal(body, &tasks); err != nil {
		return nil, decodeError("list", status, err)
	}
	return tasks, nil
}

// Create implements service.TaskService.
func (c *Client) Create(ctx context.Context, draft service.Draft) (service.Task, error) {
	status, body, err := c.do(ctx, "create", fasthttp.MethodPost, tasksPath, draft)
	if err != nil {
		return service.Task{}, err
	}
	if err := checkStatus("create", status, http.StatusCreated, http.StatusOK); err != nil {
		return service.Task{}, err
	}
	return decodeTask("create", status, body)
}

// Update implements service.TaskService.
func (c *Client) Update(ctx context.Context, id string, draft service.Draft) (service.Task, error) {
	status, body, err := c.do(ctx, "update", fasthttp.MethodPut, taskPath(id), draft)
	if err != nil {
		return service.Task{}, err
	}
	if err := checkStatus("update", status, http.StatusOK); err != nil {
		return service.Task{}, err
	}
	return decodeTask("update", status, body)
}

// Delete implements service.TaskService. Only 204 No Content confirms removal.
func (c *Client) Delete(ctx context.Context, id string) (bool, error) {
	status, _, err := c.do(ctx, "delete", fasthttp.MethodDelete, taskPath(id), nil)
	if err != nil {
		return false, err
	}
	if status >= 200 && status < 300 {
		return status == http.StatusNoContent, nil
	}
	return false, statusError("delete", status)
}

// do performs one round-trip and returns the status and a copy of the body.
func (c *Client) do(ctx context.Context, op, method, path string, payload any) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, service.NewRemoteFailure(service.KindUnavailable, op, err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	requestID := uuid.NewString()
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, service.NewRemoteFailure(service.KindRejected, op, fmt.Errorf("encode request: %w", err))
		}
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	start := time.Now()
	err := c.http.DoDeadline(req, resp, deadline)
	logger := c.logger.With(
		zap.String("operation", op),
		zap.String("request_id", requestID),
		zap.Duration("elapsed", time.Since(start)),
	)
	if err != nil {
		logger.Debug("request failed", zap.Error(err))
		return 0, nil, wrapError(op, err)
	}

	status := resp.StatusCode()
	logger.Debug("request done", zap.Int("status", status))
	return status, append([]byte(nil), resp.Body()...), nil
}

// taskPath escapes id as a single path segment. Dot segments are
// percent-encoded so no server-side path cleaning can resolve them.
func taskPath(id string) string {
	seg := url.PathEscape(id)
	if seg == "." || seg == ".." {
		seg = strings.ReplaceAll(seg, ".", "%2E")
	}
	return tasksPath + "/" + seg
}

func checkStatus(op string, status int, ok ...int) error {
	for _, s := range ok {
		if status == s {
			return nil
		}
	}
	return statusError(op, status)
}

func statusError(op string, status int) error {
	kind := service.KindRejected
	if status == http.StatusNotFound {
		kind = service.KindNotFound
	}
	return &service.RemoteFailure{Kind: kind, Op: op, Status: status}
}

func decodeTask(op string, status int, body []byte) (service.Task, error) {
	var task service.Task
	if err := json.Unmarshal(body, &task); err != nil {
		return service.Task{}, decodeError(op, status, err)
	}
	if task.ID == "" {
		return service.Task{}, decodeError(op, status, errors.New("response carries no id"))
	}
	return task, nil
}

func decodeError(op string, status int, err error) error {
	return &service.RemoteFailure{
		Kind:   service.KindRejected,
		Op:     op,
		Status: status,
		Err:    fmt.Errorf("decode response: %w", err),
	}
}

// wrapError classifies transport errors. Timeouts get a short message.
func wrapError(op string, err error) error {
	if errors.Is(err, fasthttp.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		err = errors.New("request timed out")
	}
	return service.NewRemoteFailure(service.KindUnavailable, op, err)
}
