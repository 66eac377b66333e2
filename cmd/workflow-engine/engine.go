// Package main wires the Workflow Execution Core's process-level
// collaborators together, grounded on cmd/workflow-runner/main.go's
// bootstrap -> clients -> actors -> signal-based shutdown shape.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/lyzr/workflow-engine/cmd/workflow-engine/httpapi"
	"github.com/lyzr/workflow-engine/common/bootstrap"
	"github.com/lyzr/workflow-engine/common/cache"
	"github.com/lyzr/workflow-engine/engine/backend"
	"github.com/lyzr/workflow-engine/engine/backend/httpoll"
	"github.com/lyzr/workflow-engine/engine/backend/inprocess"
	"github.com/lyzr/workflow-engine/engine/cachecopy"
	"github.com/lyzr/workflow-engine/engine/callrunner"
	"github.com/lyzr/workflow-engine/engine/collector"
	"github.com/lyzr/workflow-engine/engine/dataaccess"
	"github.com/lyzr/workflow-engine/engine/dataaccess/casstore"
	"github.com/lyzr/workflow-engine/engine/dataaccess/memory"
	"github.com/lyzr/workflow-engine/engine/dataaccess/postgres"
	"github.com/lyzr/workflow-engine/engine/dependency"
	"github.com/lyzr/workflow-engine/engine/exprs/cel"
	"github.com/lyzr/workflow-engine/engine/ioclient"
	iomemory "github.com/lyzr/workflow-engine/engine/ioclient/memory"
	"github.com/lyzr/workflow-engine/engine/model"
	"github.com/lyzr/workflow-engine/engine/scatter"
	"github.com/lyzr/workflow-engine/engine/symbols"
	"github.com/lyzr/workflow-engine/engine/workflowfsm"
)

// Namespace is the union of every Graph collaborator the Execution Core
// consults for structural facts about a parsed workflow (SPEC_FULL.md §1's
// "a reimplementation of the language front-end supplies this"). A real
// front-end implements all six methods sets on one Namespace/Scope type;
// engine.go only ever depends on the narrow slices.
type Namespace interface {
	dependency.Graph
	scatter.Graph
	collector.Graph
	callrunner.Graph
	workflowfsm.Graph
	symbols.Graph
}

// Engine holds the process-wide collaborators shared across every workflow
// run: the durable store, the execution backend, the cache-hit copy
// machinery, and the expression evaluator. Per-workflow FSMs are assembled
// on demand by NewWorkflowFSM.
type Engine struct {
	data      dataaccess.DataAccess
	be        backend.Backend
	io        ioclient.IoClient
	cacheCopy *cachecopy.FSM
	evaluator *cel.Evaluator
	events    workflowfsm.EventPublisher

	mu   sync.RWMutex
	fsms map[string]*workflowfsm.FSM
}

// NewEngine wires the DataAccess, Backend, and Cache-Hit Copy FSM (C8)
// implementations selected by components.Config.
func NewEngine(ctx context.Context, components *bootstrap.Components) (*Engine, error) {
	data, err := newDataAccess(components)
	if err != nil {
		return nil, fmt.Errorf("workflow-engine: data access: %w", err)
	}

	be, err := newBackend(components)
	if err != nil {
		return nil, fmt.Errorf("workflow-engine: backend: %w", err)
	}

	io := iomemory.New()

	if components.Blacklist == nil {
		return nil, fmt.Errorf("workflow-engine: blacklist cache is required (see WithoutBlacklist)")
	}

	e := &Engine{
		data:      data,
		be:        be,
		io:        io,
		cacheCopy: cachecopy.New(components.Blacklist, io, cachecopy.NoopCapability{}),
		evaluator: cel.New(),
		fsms:      make(map[string]*workflowfsm.FSM),
	}
	if components.EventBus != nil {
		e.events = components.EventBus
	}
	return e, nil
}

// Close releases the engine's own collaborators (currently just the
// IoClient's connection pool, if any).
func (e *Engine) Close() error {
	return e.io.Close()
}

// DataAccess exposes the engine's durable store for read-only introspection
// (cmd/workflow-engine/httpapi), since §10.9's surface is not itself a
// workflow-level collaborator.
func (e *Engine) DataAccess() dataaccess.DataAccess { return e.data }

// FSM returns the running Workflow FSM for workflowID, if this process
// created one via NewWorkflowFSM. Restart across processes rebuilds this
// registry from DataAccess, not from the registry itself — it only tracks
// what is live in this process's memory. Satisfies httpapi.FSMLookup.
func (e *Engine) FSM(workflowID string) (httpapi.RunningFSM, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	f, ok := e.fsms[workflowID]
	return f, ok
}

func newDataAccess(components *bootstrap.Components) (dataaccess.DataAccess, error) {
	if !components.Config.Features.EnablePostgres {
		return memory.New(), nil
	}

	if components.DB == nil {
		return nil, fmt.Errorf("postgres data access requested but database was not initialized")
	}
	if components.Redis == nil {
		return nil, fmt.Errorf("postgres data access requested but redis was not initialized (needed by casstore)")
	}
	cas := casstore.New(components.Redis, components.Logger)
	return postgres.New(components.DB, cas), nil
}

func newBackend(components *bootstrap.Components) (backend.Backend, error) {
	switch components.Config.Backend.Type {
	case "", "inprocess":
		return inprocess.New(), nil
	case "httpoll":
		base := components.Config.Backend.HTTPPollBaseURL
		if base == "" {
			return nil, fmt.Errorf("httpoll backend requires BACKEND_HTTPPOLL_BASE_URL")
		}
		httpClient := &http.Client{Timeout: components.Config.Backend.HTTPPollTimeout}
		dispatchURL := func(key model.ExecutionKey, inputs map[string]any) (string, []byte) {
			body, _ := json.Marshal(inputs)
			return base + "/dispatch/" + key.String(), body
		}
		statusURL := func(jobID string) string {
			return base + "/status/" + jobID
		}
		jobIDs := cache.NewMemoryCache(components.Logger)
		return httpoll.New(httpClient, jobIDs, dispatchURL, statusURL,
			httpoll.WithPollInterval(components.Config.Backend.HTTPPollInterval),
		), nil
	default:
		return nil, fmt.Errorf("unknown backend type %q", components.Config.Backend.Type)
	}
}

// NewWorkflowFSM assembles a Workflow FSM (C6) for one workflow run, wiring
// the Dependency Resolver (C2), Symbol Resolver (C3), Scatter Expander (C4),
// Collector (C5), and Call Runner (C7) around the engine's shared DataAccess
// and Backend.
func (e *Engine) NewWorkflowFSM(wf model.WorkflowDescriptor, ns Namespace, opts ...workflowfsm.Option) *workflowfsm.FSM {
	resolver := symbols.New(wf.ID, ns, e.data)
	depResolver := dependency.New(ns)
	expander := scatter.New(wf.ID, ns, e.data, e.evaluator)
	coll := collector.New(wf.ID, ns, e.data)
	runner := callrunner.New(wf.ID, wf, ns, e.data, resolver, e.be)

	if e.events != nil {
		opts = append([]workflowfsm.Option{workflowfsm.WithEventBus(e.events)}, opts...)
	}
	f := workflowfsm.New(wf.ID, wf, e.data, ns, resolver, depResolver, expander, coll, runner, e.be, opts...)

	e.mu.Lock()
	e.fsms[wf.ID] = f
	e.mu.Unlock()

	return f
}

// CacheHitCopyOption wires the engine's own Cache-Hit Copy FSM (C8) and
// DataAccess behind a caller-supplied CacheHitLookup, for passing to
// NewWorkflowFSM. The lookup itself (deciding whether a cache hit exists at
// all) is a call-cache hashing concern outside this module's scope.
func (e *Engine) CacheHitCopyOption(lookup workflowfsm.CacheHitLookup) workflowfsm.Option {
	return workflowfsm.WithCacheHitCopy(lookup, e.cacheCopy, e.data)
}

