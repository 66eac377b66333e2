// Package memory is an in-memory DataAccess implementation for tests and
// single-process deployments — no transactions needed since every operation
// already holds the store's single mutex for its duration.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/lyzr/workflow-engine/engine/dataaccess"
	"github.com/lyzr/workflow-engine/engine/model"
)

var _ dataaccess.DataAccess = (*Store)(nil)

type workflowState struct {
	descriptor model.WorkflowDescriptor
	state      model.WorkflowState
	statuses   map[string]model.CallStatus // ExecutionKey.String() -> status
	outputs    map[string]model.CallOutputs
	symbols    map[string]model.Symbol // FullyQualifiedName()+index -> symbol
}

// Store is a process-wide, mutex-guarded DataAccess.
type Store struct {
	mu        sync.Mutex
	workflows map[string]*workflowState
}

// New creates an empty Store.
func New() *Store {
	return &Store{workflows: make(map[string]*workflowState)}
}

func (s *Store) wf(workflowID string) *workflowState {
	w, ok := s.workflows[workflowID]
	if !ok {
		w = &workflowState{
			statuses: make(map[string]model.CallStatus),
			outputs:  make(map[string]model.CallOutputs),
			symbols:  make(map[string]model.Symbol),
		}
		s.workflows[workflowID] = w
	}
	return w
}

func symbolKey(scope, name string, index *int) string {
	idx := "_"
	if index != nil {
		idx = fmt.Sprintf("%d", *index)
	}
	return scope + "#" + name + "#" + idx
}

func (s *Store) CreateWorkflow(ctx context.Context, wfDesc model.WorkflowDescriptor, symbols []model.Symbol, calls []model.ExecutionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.wf(wfDesc.ID)
	w.descriptor = wfDesc
	w.state = model.WorkflowSubmitted
	for _, sym := range symbols {
		w.symbols[symbolKey(sym.Scope, sym.Name, sym.Index)] = sym
	}
	for _, key := range calls {
		w.statuses[key.String()] = model.CallStatus{Status: model.NotStarted}
	}
	return nil
}

func (s *Store) GetExecutionStatuses(ctx context.Context, workflowID string) (map[string]model.CallStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.wf(workflowID)
	out := make(map[string]model.CallStatus, len(w.statuses))
	for k, v := range w.statuses {
		out[k] = v
	}
	return out, nil
}

func (s *Store) SetStatus(ctx context.Context, workflowID string, key model.ExecutionKey, status model.ExecutionStatus, returnCode *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.wf(workflowID).statuses[key.String()] = model.CallStatus{Status: status, ReturnCode: returnCode}
	return nil
}

func (s *Store) InsertExecutions(ctx context.Context, workflowID string, keys []model.ExecutionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.wf(workflowID)
	for _, key := range keys {
		if _, exists := w.statuses[key.String()]; !exists {
			w.statuses[key.String()] = model.CallStatus{Status: model.NotStarted}
		}
	}
	return nil
}

func (s *Store) UpdateWorkflowState(ctx context.Context, workflowID string, state model.WorkflowState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.wf(workflowID).state = state
	return nil
}

func (s *Store) GetInputs(ctx context.Context, workflowID, callScope string) ([]model.Symbol, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.wf(workflowID)
	var out []model.Symbol
	for _, sym := range w.symbols {
		if sym.Scope == callScope && sym.IsInput {
			out = append(out, sym)
		}
	}
	return out, nil
}

func (s *Store) GetCallOutputs(ctx context.Context, workflowID string, key model.ExecutionKey) (model.CallOutputs, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.wf(workflowID)
	outputs, ok := w.outputs[key.String()]
	return outputs, ok, nil
}

func (s *Store) WriteCallOutputs(ctx context.Context, workflowID string, key model.ExecutionKey, outputs model.CallOutputs) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.wf(workflowID).outputs[key.String()] = outputs
	return nil
}

func (s *Store) Lookup(ctx context.Context, workflowID, scope, name string, index *int) (model.Symbol, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.wf(workflowID)
	sym, ok := w.symbols[symbolKey(scope, name, index)]
	return sym, ok, nil
}

func (s *Store) WriteSymbol(ctx context.Context, workflowID string, sym model.Symbol) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.wf(workflowID).symbols[symbolKey(sym.Scope, sym.Name, sym.Index)] = sym
	return nil
}

func (s *Store) UpdateWorkflowOptions(ctx context.Context, workflowID string, patch []byte) error {
	return dataaccess.ApplyOptionsPatch(ctx, s, workflowID, patch)
}

func (s *Store) GetWorkflowOptions(ctx context.Context, workflowID string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	opts := s.wf(workflowID).descriptor.WorkflowOptions
	if opts == nil {
		return map[string]any{}, nil
	}
	return opts, nil
}

func (s *Store) SetWorkflowOptions(ctx context.Context, workflowID string, options map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.wf(workflowID).descriptor.WorkflowOptions = options
	return nil
}
