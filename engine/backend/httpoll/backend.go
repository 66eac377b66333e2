// Package httpoll is a reference Backend that dispatches a call as an HTTP
// request and polls a status endpoint until the job reaches a terminal
// state, grounded on cmd/workflow-runner/worker/http_worker.go's dispatch
// shape. Outbound URLs are validated with the same SSRF/protocol/path guards
// cmd/http-worker/security already implements, reused wholesale here as the
// Execution Core's only network-facing backend.
package httpoll

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lyzr/workflow-engine/cmd/http-worker/security"
	"github.com/lyzr/workflow-engine/common/cache"
	"github.com/lyzr/workflow-engine/engine/backend"
	"github.com/lyzr/workflow-engine/engine/model"
)

// dispatchResponse is the expected shape of the dispatch endpoint's reply.
type dispatchResponse struct {
	JobID string `json:"job_id"`
}

// pollResponse is the expected shape of the status endpoint's reply.
type pollResponse struct {
	Status     string          `json:"status"` // "running", "succeeded", "failed"
	ReturnCode int             `json:"return_code"`
	Outputs    json.RawMessage `json:"outputs"`
	Error      string          `json:"error"`
}

var _ backend.Backend = (*Backend)(nil)

// Backend dispatches each call to dispatchURL and polls statusURLFor(jobID)
// until terminal.
type Backend struct {
	client      *http.Client
	validator   *security.URLValidator
	dispatchURL func(key model.ExecutionKey, inputs map[string]any) (string, []byte)
	statusURL   func(jobID string) string
	pollEvery   time.Duration
	jobIDs      cache.Cache // ExecutionKey.String() -> dispatched job ID, written by Execute; nothing in this package reads it back
}

// Option configures a Backend.
type Option func(*Backend)

// WithPollInterval overrides the default 2s poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(b *Backend) { b.pollEvery = d }
}

// New creates a Backend. dispatchURL builds the request URL and JSON body
// for one call; statusURL builds the polling URL for a dispatched job ID.
func New(httpClient *http.Client, jobIDs cache.Cache, dispatchURL func(model.ExecutionKey, map[string]any) (string, []byte), statusURL func(string) string, opts ...Option) *Backend {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	b := &Backend{
		client:      httpClient,
		validator:   security.NewURLValidator(),
		dispatchURL: dispatchURL,
		statusURL:   statusURL,
		pollEvery:   2 * time.Second,
		jobIDs:      jobIDs,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) InitializeForWorkflow(ctx context.Context, wf model.WorkflowDescriptor) (backend.HostInputs, error) {
	return backend.HostInputs{}, nil
}

func (b *Backend) PrepareForRestart(ctx context.Context, wf model.WorkflowDescriptor) error {
	return nil
}

// FindResumableExecutions always returns an empty map: no call is ever
// reported as resumable, so a restart rolls every Running call back.
func (b *Backend) FindResumableExecutions(ctx context.Context, workflowID string) (map[string]backend.JobKey, error) {
	// The generic cache.Cache interface has no key-enumeration method, so the
	// job IDs Execute caches cannot be listed here. A durable job
	// registry (e.g. in DataAccess) is what a production deployment would
	// consult instead; out of scope for this reference implementation.
	return map[string]backend.JobKey{}, nil
}

func (b *Backend) Execute(ctx context.Context, key model.ExecutionKey, inputs map[string]any, wf model.WorkflowDescriptor) (backend.CallOutcome, error) {
	url, body := b.dispatchURL(key, inputs)
	if err := b.validator.Validate(url); err != nil {
		return backend.CallOutcome{}, &model.BackendError{Cause: fmt.Errorf("dispatch URL rejected: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return backend.CallOutcome{}, &model.BackendError{Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return backend.CallOutcome{}, &model.BackendError{Cause: fmt.Errorf("dispatch request failed: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return backend.CallOutcome{}, &model.BackendError{Cause: err}
	}
	var dr dispatchResponse
	if err := json.Unmarshal(raw, &dr); err != nil || dr.JobID == "" {
		return backend.CallOutcome{}, &model.BackendError{Cause: fmt.Errorf("dispatch response missing job_id: %w", err)}
	}

	_ = b.jobIDs.Set(ctx, key.String(), []byte(dr.JobID), 24*time.Hour)

	job := backend.JobKey{WorkflowID: wf.ID, Key: key, NativeJobID: dr.JobID}
	return b.poll(ctx, job)
}

func (b *Backend) Resume(ctx context.Context, key model.ExecutionKey, inputs map[string]any, job backend.JobKey, wf model.WorkflowDescriptor) (backend.CallOutcome, error) {
	return b.poll(ctx, job)
}

func (b *Backend) poll(ctx context.Context, job backend.JobKey) (backend.CallOutcome, error) {
	statusURL := b.statusURL(job.NativeJobID)
	if err := b.validator.Validate(statusURL); err != nil {
		return backend.CallOutcome{}, &model.BackendError{Cause: fmt.Errorf("status URL rejected: %w", err)}
	}

	ticker := time.NewTicker(b.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return backend.CallOutcome{}, &model.BackendError{Cause: ctx.Err()}
		case <-ticker.C:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
		if err != nil {
			return backend.CallOutcome{}, &model.BackendError{Cause: err}
		}
		resp, err := b.client.Do(req)
		if err != nil {
			return backend.CallOutcome{}, &model.BackendError{Cause: fmt.Errorf("poll request failed: %w", err)}
		}
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return backend.CallOutcome{}, &model.BackendError{Cause: err}
		}

		var pr pollResponse
		if err := json.Unmarshal(raw, &pr); err != nil {
			return backend.CallOutcome{}, &model.BackendError{Cause: fmt.Errorf("invalid poll response: %w", err)}
		}

		switch pr.Status {
		case "succeeded":
			outputs := model.CallOutputs{}
			if len(pr.Outputs) > 0 {
				if err := json.Unmarshal(pr.Outputs, &outputs); err != nil {
					return backend.CallOutcome{}, &model.BackendError{Cause: fmt.Errorf("invalid outputs payload: %w", err)}
				}
			}
			return backend.CallOutcome{Outputs: outputs, ReturnCode: pr.ReturnCode}, nil
		case "failed":
			return backend.CallOutcome{}, &model.BackendError{Cause: fmt.Errorf("job %s failed: %s", job.NativeJobID, pr.Error)}
		default:
			continue
		}
	}
}

func (b *Backend) CleanUpForWorkflow(ctx context.Context, wf model.WorkflowDescriptor) error {
	return nil
}
