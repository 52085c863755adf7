package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rsilvagit/go-jobs/internal/filter"
	"github.com/rsilvagit/go-jobs/internal/model"
)

// JobService is the remote jobs collection as the rest of the client sees it.
type JobService interface {
	ListJobs(ctx context.Context, c filter.Criteria) (*ListResult, error)
	GetJob(ctx context.Context, id int) (*model.Job, error)
	CreateJob(ctx context.Context, in model.JobInput) (*model.Job, error)
	UpdateJob(ctx context.Context, id int, in model.JobInput) (*model.Job, error)
	DeleteJob(ctx context.Context, id int) error
	HealthCheck(ctx context.Context) (*Health, error)
}

// Doer sends HTTP requests. *httpclient.Client and *http.Client satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ListResult is the list endpoint's payload. Only Jobs is guaranteed.
type ListResult struct {
	Jobs        []model.Job `json:"jobs"`
	Total       int         `json:"total"`
	Pages       int         `json:"pages"`
	CurrentPage int         `json:"current_page"`
	PerPage     int         `json:"per_page"`
}

// Health is the liveness payload.
type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Client calls the jobs REST API.
type Client struct {
	baseURL string
	http    Doer
	log     *slog.Logger
}

var _ JobService = (*Client)(nil)

// NewClient returns a Client for baseURL. A nil doer uses http.DefaultClient.
func NewClient(baseURL string, doer Doer, logger *slog.Logger) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    doer,
		log:     logger.With("component", "api"),
	}
}

// ListJobs fetches the jobs matching the server-side part of c. A response
// without a jobs field is an empty list.
func (c *Client) ListJobs(ctx context.Context, criteria filter.Criteria) (*ListResult, error) {
	const op = "list jobs"
	payload, status, err := c.do(ctx, op, http.MethodGet, "/jobs", criteria.Query(), nil)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, serverError(op, status, payload)
	}

	var result ListResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, &ServerError{Op: op, StatusCode: status, Err: fmt.Errorf("decode response: %w", err)}
	}
	if result.Jobs == nil {
		result.Jobs = []model.Job{}
	}
	return &result, nil
}

// GetJob fetches a single job.
func (c *Client) GetJob(ctx context.Context, id int) (*model.Job, error) {
	const op = "get job"
	payload, status, err := c.do(ctx, op, http.MethodGet, jobPath(id), nil, nil)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, notFound(op, id, payload)
	case !isSuccess(status):
		return nil, serverError(op, status, payload)
	}

	var job model.Job
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, &ServerError{Op: op, StatusCode: status, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &job, nil
}

// CreateJob posts a new job and returns it with its server-assigned id.
func (c *Client) CreateJob(ctx context.Context, in model.JobInput) (*model.Job, error) {
	const op = "create job"
	payload, status, err := c.do(ctx, op, http.MethodPost, "/jobs", nil, normalizeInput(in))
	if err != nil {
		return nil, err
	}
	switch {
	case status >= 400 && status < 500:
		return nil, &ValidationError{Op: op, StatusCode: status, Messages: serverMessages(payload)}
	case !isSuccess(status):
		return nil, serverError(op, status, payload)
	}
	return decodeJobEnvelope(op, status, payload)
}

// UpdateJob replaces the editable fields of job id.
func (c *Client) UpdateJob(ctx context.Context, id int, in model.JobInput) (*model.Job, error) {
	const op = "update job"
	payload, status, err := c.do(ctx, op, http.MethodPut, jobPath(id), nil, normalizeInput(in))
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, notFound(op, id, payload)
	case status >= 400 && status < 500:
		return nil, &ValidationError{Op: op, StatusCode: status, Messages: serverMessages(payload)}
	case !isSuccess(status):
		return nil, serverError(op, status, payload)
	}
	return decodeJobEnvelope(op, status, payload)
}

// DeleteJob removes job id. Deleting an id twice fails with ErrNotFound.
func (c *Client) DeleteJob(ctx context.Context, id int) error {
	const op = "delete job"
	payload, status, err := c.do(ctx, op, http.MethodDelete, jobPath(id), nil, nil)
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusNotFound:
		return notFound(op, id, payload)
	case !isSuccess(status):
		return serverError(op, status, payload)
	}
	return nil
}

// HealthCheck probes the API's liveness endpoint.
func (c *Client) HealthCheck(ctx context.Context) (*Health, error) {
	const op = "health check"
	payload, status, err := c.do(ctx, op, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, serverError(op, status, payload)
	}

	var h Health
	if err := json.Unmarshal(payload, &h); err != nil {
		return nil, &ServerError{Op: op, StatusCode: status, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &h, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any) ([]byte, int, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("api: %s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("api: %s: create request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed", "op", op, "method", method, "path", path, "err", err)
		return nil, 0, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &NetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	c.log.Debug("request done", "op", op, "method", method, "path", path,
		"query", query.Encode(), "status", resp.StatusCode, "took", time.Since(start))
	return payload, resp.StatusCode, nil
}

func normalizeInput(in model.JobInput) model.JobInput {
	if in.Tags == nil {
		in.Tags = []string{}
	}
	return in
}

// decodeJobEnvelope accepts both {"message": ..., "data": Job} and a bare Job.
func decodeJobEnvelope(op string, status int, payload []byte) (*model.Job, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, &ServerError{Op: op, StatusCode: status, Err: fmt.Errorf("decode response: %w", err)}
	}

	raw := payload
	if len(envelope.Data) > 0 && !bytes.Equal(envelope.Data, []byte("null")) {
		raw = envelope.Data
	}

	var job model.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, &ServerError{Op: op, StatusCode: status, Err: fmt.Errorf("decode job: %w", err)}
	}
	return &job, nil
}

func jobPath(id int) string {
	return "/jobs/" + strconv.Itoa(id)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func notFound(op string, id int, payload []byte) error {
	return &NotFoundError{Op: op, ID: id, Message: strings.Join(serverMessages(payload), "; ")}
}

func serverError(op string, status int, payload []byte) error {
	return &ServerError{Op: op, StatusCode: status, Message: strings.Join(serverMessages(payload), "; ")}
}
