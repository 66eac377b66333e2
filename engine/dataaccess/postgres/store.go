// Package postgres is the durable DataAccess implementation: Postgres holds
// the relational shape (workflow/execution/symbol rows), and large value
// payloads (symbol values, call outputs) are pushed out-of-row into
// engine/dataaccess/casstore, referenced by hash — grounded on
// common/repository/run.go's query-object style for the SQL side and
// common/clients/redis_cas.go for the blob side.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lyzr/workflow-engine/common/db"
	"github.com/lyzr/workflow-engine/engine/dataaccess"
	"github.com/lyzr/workflow-engine/engine/dataaccess/casstore"
	"github.com/lyzr/workflow-engine/engine/model"
)

var _ dataaccess.DataAccess = (*Store)(nil)

// Store is the Postgres + CAS-backed DataAccess.
type Store struct {
	db  *db.DB
	cas *casstore.Store
}

// New wires a Store onto an existing pool and blob store.
func New(database *db.DB, cas *casstore.Store) *Store {
	return &Store{db: database, cas: cas}
}

func indexValue(index *int) any {
	if index == nil {
		return nil
	}
	return *index
}

func (s *Store) CreateWorkflow(ctx context.Context, wf model.WorkflowDescriptor, symbols []model.Symbol, calls []model.ExecutionKey) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create workflow: %w", err)
	}
	defer tx.Rollback(ctx)

	optionsJSON, err := json.Marshal(wf.WorkflowOptions)
	if err != nil {
		return fmt.Errorf("marshal workflow options: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO workflow_execution (workflow_id, namespace_name, state, options)
		VALUES ($1, $2, $3, $4)
	`, wf.ID, wf.NamespaceName, model.WorkflowSubmitted.String(), optionsJSON)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}

	for _, key := range calls {
		if _, err := tx.Exec(ctx, `
			INSERT INTO execution (workflow_id, kind, scope, idx, status)
			VALUES ($1, $2, $3, $4, $5)
		`, wf.ID, key.Kind.String(), key.Scope, indexValue(key.Index), model.NotStarted.String()); err != nil {
			return fmt.Errorf("insert execution %s: %w", key.String(), err)
		}
	}

	for _, sym := range symbols {
		if err := s.writeSymbolTx(ctx, tx, wf.ID, sym); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) GetExecutionStatuses(ctx context.Context, workflowID string) (map[string]model.CallStatus, error) {
	rows, err := s.db.Query(ctx, `
		SELECT kind, scope, idx, status, return_code FROM execution WHERE workflow_id = $1
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("query execution statuses: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.CallStatus)
	for rows.Next() {
		var kind, scope, status string
		var idx *int
		var returnCode *int
		if err := rows.Scan(&kind, &scope, &idx, &status, &returnCode); err != nil {
			return nil, fmt.Errorf("scan execution status: %w", err)
		}
		key := model.ExecutionKey{Kind: parseKind(kind), Scope: scope, Index: idx}
		out[key.String()] = model.CallStatus{Status: parseStatus(status), ReturnCode: returnCode}
	}
	return out, rows.Err()
}

func (s *Store) SetStatus(ctx context.Context, workflowID string, key model.ExecutionKey, status model.ExecutionStatus, returnCode *int) error {
	_, err := s.db.Exec(ctx, `
		UPDATE execution SET status = $5, return_code = $4
		WHERE workflow_id = $1 AND kind = $2 AND scope = $3 AND idx IS NOT DISTINCT FROM $6
	`, workflowID, key.Kind.String(), key.Scope, returnCode, status.String(), indexValue(key.Index))
	if err != nil {
		return &model.PersistenceError{Op: "setStatus", Cause: err}
	}
	return nil
}

func (s *Store) InsertExecutions(ctx context.Context, workflowID string, keys []model.ExecutionKey) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return &model.PersistenceError{Op: "insertExecutions", Cause: err}
	}
	defer tx.Rollback(ctx)

	for _, key := range keys {
		if _, err := tx.Exec(ctx, `
			INSERT INTO execution (workflow_id, kind, scope, idx, status)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT DO NOTHING
		`, workflowID, key.Kind.String(), key.Scope, indexValue(key.Index), model.NotStarted.String()); err != nil {
			return &model.PersistenceError{Op: "insertExecutions", Cause: err}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return &model.PersistenceError{Op: "insertExecutions", Cause: err}
	}
	return nil
}

func (s *Store) UpdateWorkflowState(ctx context.Context, workflowID string, state model.WorkflowState) error {
	_, err := s.db.Exec(ctx, `UPDATE workflow_execution SET state = $2 WHERE workflow_id = $1`, workflowID, state.String())
	if err != nil {
		return &model.PersistenceError{Op: "updateWorkflowState", Cause: err}
	}
	return nil
}

func (s *Store) GetInputs(ctx context.Context, workflowID, callScope string) ([]model.Symbol, error) {
	rows, err := s.db.Query(ctx, `
		SELECT name, idx, wdl_type, cas_hash FROM symbol
		WHERE workflow_id = $1 AND scope = $2 AND is_input = true
	`, workflowID, callScope)
	if err != nil {
		return nil, fmt.Errorf("query inputs: %w", err)
	}
	defer rows.Close()

	var out []model.Symbol
	for rows.Next() {
		var name, hash string
		var idx *int
		var wdlType int
		if err := rows.Scan(&name, &idx, &wdlType, &hash); err != nil {
			return nil, fmt.Errorf("scan input symbol: %w", err)
		}
		var value any
		if err := s.cas.GetValue(ctx, hash, &value); err != nil {
			return nil, fmt.Errorf("load input symbol value: %w", err)
		}
		out = append(out, model.Symbol{Scope: callScope, Name: name, Index: idx, IsInput: true, WdlType: model.WdlType(wdlType), WdlValue: value})
	}
	return out, rows.Err()
}

func (s *Store) GetCallOutputs(ctx context.Context, workflowID string, key model.ExecutionKey) (model.CallOutputs, bool, error) {
	var hash string
	err := s.db.QueryRow(ctx, `
		SELECT cas_hash FROM call_output WHERE workflow_id = $1 AND kind = $2 AND scope = $3 AND idx IS NOT DISTINCT FROM $4
	`, workflowID, key.Kind.String(), key.Scope, indexValue(key.Index)).Scan(&hash)
	if err != nil {
		return nil, false, nil
	}

	var outputs model.CallOutputs
	if err := s.cas.GetValue(ctx, hash, &outputs); err != nil {
		return nil, false, fmt.Errorf("load call outputs: %w", err)
	}
	return outputs, true, nil
}

func (s *Store) WriteCallOutputs(ctx context.Context, workflowID string, key model.ExecutionKey, outputs model.CallOutputs) error {
	hash, err := s.cas.PutValue(ctx, outputs)
	if err != nil {
		return &model.PersistenceError{Op: "writeCallOutputs", Cause: err}
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO call_output (workflow_id, kind, scope, idx, cas_hash)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (workflow_id, kind, scope, idx) DO UPDATE SET cas_hash = EXCLUDED.cas_hash
	`, workflowID, key.Kind.String(), key.Scope, indexValue(key.Index), hash)
	if err != nil {
		return &model.PersistenceError{Op: "writeCallOutputs", Cause: err}
	}
	return nil
}

func (s *Store) Lookup(ctx context.Context, workflowID, scope, name string, index *int) (model.Symbol, bool, error) {
	var hash string
	var wdlType int
	var isInput bool
	err := s.db.QueryRow(ctx, `
		SELECT wdl_type, is_input, cas_hash FROM symbol
		WHERE workflow_id = $1 AND scope = $2 AND name = $3 AND idx IS NOT DISTINCT FROM $4
	`, workflowID, scope, name, indexValue(index)).Scan(&wdlType, &isInput, &hash)
	if err != nil {
		return model.Symbol{}, false, nil
	}

	var value any
	if err := s.cas.GetValue(ctx, hash, &value); err != nil {
		return model.Symbol{}, false, fmt.Errorf("load symbol value: %w", err)
	}
	return model.Symbol{Scope: scope, Name: name, Index: index, IsInput: isInput, WdlType: model.WdlType(wdlType), WdlValue: value}, true, nil
}

func (s *Store) WriteSymbol(ctx context.Context, workflowID string, sym model.Symbol) error {
	return s.writeSymbolTx(ctx, s.db, workflowID, sym)
}

// sqlExecer is satisfied by both *db.DB (via its embedded *pgxpool.Pool) and
// pgx.Tx, so symbol-writing logic is shared between a bare write and the
// CreateWorkflow transaction.
type sqlExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *Store) writeSymbolTx(ctx context.Context, exec sqlExecer, workflowID string, sym model.Symbol) error {
	hash, err := s.cas.PutValue(ctx, sym.WdlValue)
	if err != nil {
		return &model.PersistenceError{Op: "writeSymbol", Cause: err}
	}

	_, err = exec.Exec(ctx, `
		INSERT INTO symbol (workflow_id, scope, name, idx, is_input, wdl_type, cas_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (workflow_id, scope, name, idx) DO UPDATE SET cas_hash = EXCLUDED.cas_hash
	`, workflowID, sym.Scope, sym.Name, indexValue(sym.Index), sym.IsInput, int(sym.WdlType), hash)
	if err != nil {
		return &model.PersistenceError{Op: "writeSymbol", Cause: err}
	}
	return nil
}

func (s *Store) UpdateWorkflowOptions(ctx context.Context, workflowID string, patch []byte) error {
	return dataaccess.ApplyOptionsPatch(ctx, s, workflowID, patch)
}

func (s *Store) GetWorkflowOptions(ctx context.Context, workflowID string) (map[string]any, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT options FROM workflow_execution WHERE workflow_id = $1`, workflowID).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("query workflow options: %w", err)
	}
	var opts map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &opts); err != nil {
			return nil, fmt.Errorf("unmarshal workflow options: %w", err)
		}
	}
	if opts == nil {
		opts = map[string]any{}
	}
	return opts, nil
}

func (s *Store) SetWorkflowOptions(ctx context.Context, workflowID string, options map[string]any) error {
	raw, err := json.Marshal(options)
	if err != nil {
		return fmt.Errorf("marshal workflow options: %w", err)
	}
	_, err = s.db.Exec(ctx, `UPDATE workflow_execution SET options = $2 WHERE workflow_id = $1`, workflowID, raw)
	return err
}

func parseKind(s string) model.KeyKind {
	switch s {
	case "scatter":
		return model.ScatterKeyKind
	case "collector":
		return model.CollectorKeyKind
	default:
		return model.CallKeyKind
	}
}

func parseStatus(s string) model.ExecutionStatus {
	switch s {
	case "Starting":
		return model.Starting
	case "Running":
		return model.Running
	case "Done":
		return model.Done
	case "Failed":
		return model.Failed
	case "Aborted":
		return model.Aborted
	default:
		return model.NotStarted
	}
}
