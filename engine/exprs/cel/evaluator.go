// Package cel is the reference Expression evaluator (SPEC_FULL.md §10.6),
// grounded on this codebase's CEL-based condition evaluator
// (cmd/workflow-runner/condition/evaluator.go) and generalized with
// singleflight so concurrent Call Runners resolving the same expression
// text compile it only once instead of racing on a plain mutex.
package cel

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"golang.org/x/sync/singleflight"
)

// Evaluator compiles and evaluates CEL expressions against a single
// "lookup" variable bound to the identifiers the Symbol Resolver assembled.
type Evaluator struct {
	programs sync.Map // expression string -> cel.Program
	group    singleflight.Group
}

// New creates an Evaluator with an empty compiled-program cache.
func New() *Evaluator {
	return &Evaluator{}
}

// Evaluate implements exprs.Evaluator.
func (e *Evaluator) Evaluate(expression string, lookup map[string]any) (any, error) {
	prg, err := e.compiled(expression)
	if err != nil {
		return nil, err
	}

	out, _, err := prg.Eval(map[string]any{"lookup": lookup})
	if err != nil {
		return nil, fmt.Errorf("CEL evaluation error: %w", err)
	}
	return out.Value(), nil
}

// compiled returns a cached program for expression, compiling it at most
// once even under concurrent callers for the same expression text.
func (e *Evaluator) compiled(expression string) (cel.Program, error) {
	if v, ok := e.programs.Load(expression); ok {
		return v.(cel.Program), nil
	}

	v, err, _ := e.group.Do(expression, func() (any, error) {
		if v, ok := e.programs.Load(expression); ok {
			return v.(cel.Program), nil
		}
		prg, err := e.compile(expression)
		if err != nil {
			return nil, err
		}
		e.programs.Store(expression, prg)
		return prg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(cel.Program), nil
}

func (e *Evaluator) compile(expression string) (cel.Program, error) {
	env, err := cel.NewEnv(cel.Variable("lookup", cel.DynType))
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error: %w", issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}
	return prg, nil
}
