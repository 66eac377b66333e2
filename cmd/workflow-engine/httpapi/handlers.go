package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lyzr/workflow-engine/common/logger"
	"github.com/lyzr/workflow-engine/engine/dataaccess"
	"github.com/lyzr/workflow-engine/engine/model"
)

// RunningFSM is the slice of workflowfsm.FSM that introspection reads:
// current lifecycle state and, once Failed, the recorded failure message.
type RunningFSM interface {
	State() model.WorkflowState
	FailureMessage() (string, bool)
}

// FSMLookup resolves a workflow ID to its live, in-process FSM, if this
// process is the one driving it.
type FSMLookup interface {
	FSM(workflowID string) (RunningFSM, bool)
}

type handler struct {
	data dataaccess.DataAccess
	fsms FSMLookup
	log  *logger.Logger
}

func (h *handler) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "workflow-engine"})
}

type statusResponse struct {
	WorkflowID string            `json:"workflow_id"`
	State      string            `json:"state,omitempty"`
	Executions map[string]string `json:"executions"`
}

// status reports the workflow's lifecycle state (if this process is driving
// it) and every execution's durable status, per §10.9.
func (h *handler) status(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	statuses, err := h.data.GetExecutionStatuses(ctx, id)
	if err != nil {
		h.log.Error("status lookup failed", "workflow_id", id, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load execution statuses"})
	}
	if len(statuses) == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "workflow not found"})
	}

	resp := statusResponse{WorkflowID: id, Executions: make(map[string]string, len(statuses))}
	for key, status := range statuses {
		resp.Executions[key] = status.Status.String()
	}
	if f, ok := h.fsms.FSM(id); ok {
		resp.State = f.State().String()
	}
	return c.JSON(http.StatusOK, resp)
}

type failureResponse struct {
	WorkflowID string `json:"workflow_id"`
	Failed     bool   `json:"failed"`
	Message    string `json:"message,omitempty"`
}

// failure reports the workflow's recorded failure message, if any and if
// this process is the one that drove it to Failed.
func (h *handler) failure(c echo.Context) error {
	id := c.Param("id")

	f, ok := h.fsms.FSM(id)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "workflow not tracked by this process"})
	}

	msg, failed := f.FailureMessage()
	return c.JSON(http.StatusOK, failureResponse{WorkflowID: id, Failed: failed, Message: msg})
}
