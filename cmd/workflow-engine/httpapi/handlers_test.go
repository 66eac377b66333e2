package httpapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/workflow-engine/cmd/workflow-engine/httpapi"
	"github.com/lyzr/workflow-engine/common/logger"
	"github.com/lyzr/workflow-engine/engine/dataaccess/memory"
	"github.com/lyzr/workflow-engine/engine/model"
)

type fakeFSM struct {
	state   model.WorkflowState
	failMsg string
	failed  bool
}

func (f fakeFSM) State() model.WorkflowState      { return f.state }
func (f fakeFSM) FailureMessage() (string, bool) { return f.failMsg, f.failed }

type fakeLookup struct {
	fsms map[string]httpapi.RunningFSM
}

func (l fakeLookup) FSM(workflowID string) (httpapi.RunningFSM, bool) {
	f, ok := l.fsms[workflowID]
	return f, ok
}

func newTestServer(t *testing.T, data *memory.Store, lookup httpapi.FSMLookup) *httptest.Server {
	t.Helper()
	srv := httpapi.New(data, lookup, logger.New("error", "text"), 0)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthz(t *testing.T) {
	data := memory.New()
	ts := newTestServer(t, data, fakeLookup{fsms: map[string]httpapi.RunningFSM{}})

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatus_UnknownWorkflowReturns404(t *testing.T) {
	data := memory.New()
	ts := newTestServer(t, data, fakeLookup{fsms: map[string]httpapi.RunningFSM{}})

	resp, err := http.Get(ts.URL + "/workflows/wf-missing/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatus_ReportsExecutionsAndLiveState(t *testing.T) {
	ctx := context.Background()
	data := memory.New()
	wf := model.WorkflowDescriptor{ID: "wf-1"}
	key := model.NewCallKey("wf.task_a", nil)
	require.NoError(t, data.CreateWorkflow(ctx, wf, nil, []model.ExecutionKey{key}))
	require.NoError(t, data.SetStatus(ctx, "wf-1", key, model.Done, intPtr(0)))

	lookup := fakeLookup{fsms: map[string]httpapi.RunningFSM{
		"wf-1": fakeFSM{state: model.WorkflowRunning},
	}}
	ts := newTestServer(t, data, lookup)

	resp, err := http.Get(ts.URL + "/workflows/wf-1/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFailure_UntrackedWorkflowReturns404(t *testing.T) {
	data := memory.New()
	ts := newTestServer(t, data, fakeLookup{fsms: map[string]httpapi.RunningFSM{}})

	resp, err := http.Get(ts.URL + "/workflows/wf-1/failure")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFailure_ReportsRecordedMessage(t *testing.T) {
	data := memory.New()
	lookup := fakeLookup{fsms: map[string]httpapi.RunningFSM{
		"wf-1": fakeFSM{state: model.WorkflowFailed, failMsg: "backend error: boom", failed: true},
	}}
	ts := newTestServer(t, data, lookup)

	resp, err := http.Get(ts.URL + "/workflows/wf-1/failure")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func intPtr(i int) *int { return &i }
