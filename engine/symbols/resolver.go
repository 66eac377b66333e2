// Package symbols implements the Symbol Resolver (C3): resolving an
// identifier reference against a CallKey's context with strict precedence
// (spec §4.3), field-path extraction grounded on
// cmd/workflow-runner/resolver/resolver.go's gjson-based node-output
// resolution idiom (SPEC_FULL.md §10.7).
package symbols

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/lyzr/workflow-engine/engine/model"
)

// Resolver resolves identifiers for one workflow run.
type Resolver struct {
	workflowID string
	graph      Graph
	source     Source
}

// New creates a Resolver bound to a workflow's structural graph and symbol source.
func New(workflowID string, graph Graph, source Source) *Resolver {
	return &Resolver{workflowID: workflowID, graph: graph, source: source}
}

// Resolve resolves identifier (optionally dotted, e.g. "call_b.out.field")
// against key's context, in the precedence order required by spec §4.3:
// scatter variable, imported namespace, call output, declaration. The first
// successful resolution wins; anything left after the head segment is
// extracted as a gjson field path (§10.7).
func (r *Resolver) Resolve(ctx context.Context, key model.ExecutionKey, identifier string) (any, error) {
	head, rest := splitHead(identifier)

	if value, ok, err := r.resolveScatterVar(ctx, key, head); err != nil {
		return nil, err
	} else if ok {
		return r.extract(value, rest, identifier)
	}

	if value, ok, err := r.resolveImportedNamespace(ctx, key, identifier); err != nil {
		return nil, err
	} else if ok {
		return value, nil // namespace resolution consumes the whole identifier itself
	}

	if value, ok, err := r.resolveCall(ctx, key, head); err != nil {
		return nil, err
	} else if ok {
		return r.extract(value, rest, identifier)
	}

	if value, ok, err := r.resolveDeclaration(ctx, key, head); err != nil {
		return nil, err
	} else if ok {
		return r.extract(value, rest, identifier)
	}

	return nil, &model.WdlExpressionError{Expression: identifier, Reason: "unresolved identifier"}
}

func splitHead(identifier string) (head, rest string) {
	parts := strings.SplitN(identifier, ".", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return parts[0], ""
}

// resolveScatterVar implements precedence rule 1.
func (r *Resolver) resolveScatterVar(ctx context.Context, key model.ExecutionKey, head string) (any, bool, error) {
	for _, anc := range r.graph.ScatterAncestors(key.Scope) {
		if anc.ItemName != head {
			continue
		}
		if key.Index == nil {
			return nil, false, &model.WdlExpressionError{
				Expression: head,
				Reason:     "scatter variable referenced outside any shard (no index on resolving key)",
			}
		}
		sym, ok, err := r.source.Lookup(ctx, r.workflowID, anc.Scope, head, key.Index)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, &model.WdlExpressionError{
				Expression: head,
				Reason:     fmt.Sprintf("scatter shard %d has no recorded value for %q", *key.Index, head),
			}
		}
		return sym.WdlValue, true, nil
	}
	return nil, false, nil
}

// resolveImportedNamespace implements precedence rule 2. A namespace
// reference takes the form "alias.call.output...": the alias is resolved to
// a scope prefix and the remainder is re-dispatched as a call/declaration
// lookup rooted at that namespace.
func (r *Resolver) resolveImportedNamespace(ctx context.Context, key model.ExecutionKey, identifier string) (any, bool, error) {
	alias, rest := splitHead(identifier)
	nsScope, ok := r.graph.ImportedNamespace(alias)
	if !ok || rest == "" {
		return nil, false, nil
	}
	// Re-resolve the remainder as if it were written directly in the
	// imported namespace's scope.
	value, err := r.Resolve(ctx, model.ExecutionKey{Kind: key.Kind, Scope: nsScope, Index: key.Index}, rest)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// resolveCall implements precedence rule 3: shard-aligned lookup when the
// matched call shares a scatter ancestor with the resolving key, otherwise
// the collected (array) form.
func (r *Resolver) resolveCall(ctx context.Context, key model.ExecutionKey, head string) (any, bool, error) {
	callScope, ok := r.graph.CallByName(key.Scope, head)
	if !ok {
		return nil, false, nil
	}

	if r.graph.SharesScatterAncestor(callScope, key.Scope) {
		sym, ok, err := r.source.Lookup(ctx, r.workflowID, callScope, "", key.Index)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, &model.WdlExpressionError{Expression: head, Reason: "call output not yet available"}
		}
		return sym.WdlValue, true, nil
	}

	// Collected (aggregated) form: the Collector (C5) persists this as the
	// call scope's unindexed symbol.
	sym, ok, err := r.source.Lookup(ctx, r.workflowID, callScope, "", nil)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, &model.WdlExpressionError{Expression: head, Reason: "collected call output not yet available"}
	}
	return sym.WdlValue, true, nil
}

// resolveDeclaration implements precedence rule 4.
func (r *Resolver) resolveDeclaration(ctx context.Context, key model.ExecutionKey, head string) (any, bool, error) {
	fqn, ok := r.graph.DeclarationByName(key.Scope, head)
	if !ok {
		return nil, false, nil
	}
	sym, ok, err := r.source.Lookup(ctx, r.workflowID, fqn, "", key.Index)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, &model.WdlExpressionError{Expression: head, Reason: "declaration not yet evaluated"}
	}
	return sym.WdlValue, true, nil
}

// extract applies a gjson field path to a resolved value when the
// identifier had more segments than the head (e.g. struct-typed call
// outputs addressed by sub-field, per SPEC_FULL.md §10.7).
func (r *Resolver) extract(value any, fieldPath, fullIdentifier string) (any, error) {
	if fieldPath == "" {
		return value, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, &model.WdlExpressionError{Expression: fullIdentifier, Reason: fmt.Sprintf("value not JSON-projectable: %v", err)}
	}
	result := gjson.GetBytes(raw, fieldPath)
	if !result.Exists() {
		return nil, &model.WdlExpressionError{Expression: fullIdentifier, Reason: fmt.Sprintf("field path %q not found", fieldPath)}
	}
	return result.Value(), nil
}

// Coerce converts a resolved value to the declared WdlType, failing the
// call per spec §4.3 ("coercion failure is fatal for that call").
func Coerce(value any, target model.WdlType) (any, error) {
	switch target {
	case model.TypeString:
		if s, ok := value.(string); ok {
			return s, nil
		}
		return fmt.Sprintf("%v", value), nil
	case model.TypeInt:
		switch v := value.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			return int(v), nil
		}
	case model.TypeFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		}
	case model.TypeBool:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case model.TypeArray:
		if arr, ok := value.([]any); ok {
			return arr, nil
		}
	case model.TypeMap, model.TypeObject:
		if m, ok := value.(map[string]any); ok {
			return m, nil
		}
	case model.TypeFile:
		if s, ok := value.(string); ok {
			return s, nil
		}
	}
	return nil, &model.WdlExpressionError{
		Reason: fmt.Sprintf("cannot coerce value of type %T to %s", value, target),
	}
}
