package callrunner

import (
	"context"

	"github.com/lyzr/workflow-engine/engine/model"
)

// Store is the subset of DataAccess the Call Runner needs: persisting its
// own status transitions, falling back to workflow-level literal inputs
// when a call declares none, and publishing outputs both as the canonical
// CallOutputs record (for the Collector, C5) and as a Symbol (for the
// Symbol Resolver's call-output precedence rule, C3).
type Store interface {
	SetStatus(ctx context.Context, workflowID string, key model.ExecutionKey, status model.ExecutionStatus, returnCode *int) error
	GetInputs(ctx context.Context, workflowID, callScope string) ([]model.Symbol, error)
	WriteCallOutputs(ctx context.Context, workflowID string, key model.ExecutionKey, outputs model.CallOutputs) error
	WriteSymbol(ctx context.Context, workflowID string, sym model.Symbol) error
}
