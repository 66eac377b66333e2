package scatter

import (
	"context"

	"github.com/lyzr/workflow-engine/engine/model"
)

// Store is the narrow DataAccess slice the Scatter Expander needs to
// persist its transactional sequence (spec §4.4).
type Store interface {
	SetStatus(ctx context.Context, workflowID string, key model.ExecutionKey, status model.ExecutionStatus, returnCode *int) error
	InsertExecutions(ctx context.Context, workflowID string, keys []model.ExecutionKey) error
	WriteSymbol(ctx context.Context, workflowID string, sym model.Symbol) error
}
