package symbols

import (
	"context"

	"github.com/lyzr/workflow-engine/engine/model"
)

// Source is the subset of DataAccess the Symbol Resolver needs to fetch
// persisted symbol values. Kept narrow so engine/symbols never imports
// engine/dataaccess and depends only on the one lookup it performs.
type Source interface {
	Lookup(ctx context.Context, workflowID, scope, name string, index *int) (model.Symbol, bool, error)
}
