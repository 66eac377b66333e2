package dataaccess

import (
	"context"
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// OptionsStore is the minimal slice any DataAccess implementation exposes so
// ApplyOptionsPatch can be shared rather than reimplemented per backend.
type OptionsStore interface {
	GetWorkflowOptions(ctx context.Context, workflowID string) (map[string]any, error)
	SetWorkflowOptions(ctx context.Context, workflowID string, options map[string]any) error
}

// ApplyOptionsPatch applies an RFC 6902 JSON Patch document to a workflow's
// stored options, read-modify-write. The caller's storage layer is
// responsible for serializing concurrent callers (a single workflow's
// options are only ever touched by its own Workflow FSM goroutine per
// spec §5, so no additional locking is required here).
func ApplyOptionsPatch(ctx context.Context, s OptionsStore, workflowID string, patch []byte) error {
	current, err := s.GetWorkflowOptions(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("load workflow options: %w", err)
	}

	doc, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("marshal current options: %w", err)
	}

	decoded, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return fmt.Errorf("decode options patch: %w", err)
	}

	modified, err := decoded.Apply(doc)
	if err != nil {
		return fmt.Errorf("apply options patch: %w", err)
	}

	var newOptions map[string]any
	if err := json.Unmarshal(modified, &newOptions); err != nil {
		return fmt.Errorf("unmarshal patched options: %w", err)
	}

	return s.SetWorkflowOptions(ctx, workflowID, newOptions)
}
