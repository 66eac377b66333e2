package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/workflow-engine/common/config"
	"github.com/lyzr/workflow-engine/common/db"
	"github.com/lyzr/workflow-engine/common/logger"
	"github.com/lyzr/workflow-engine/engine/dataaccess/casstore"
	"github.com/lyzr/workflow-engine/engine/dataaccess/postgres"
	"github.com/lyzr/workflow-engine/engine/model"
)

// Requires Postgres reachable via PGHOST (schema: workflow_execution,
// execution, symbol, call_output tables) and Redis on localhost:6379 DB 15,
// same convention cmd/workflow-runner's integration tests use.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	host := os.Getenv("PGHOST")
	if host == "" {
		t.Skip("PGHOST not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log := logger.New("info", "json")
	cfg := &config.Config{}
	cfg.Database.Host = host
	cfg.Database.Port = 5432
	cfg.Database.Database = envOr("PGDATABASE", "workflow_engine_test")
	cfg.Database.User = envOr("PGUSER", "postgres")
	cfg.Database.Password = os.Getenv("PGPASSWORD")
	cfg.Database.MaxConns = 4
	cfg.Database.MinConns = 1
	database, err := db.New(ctx, cfg, log)
	require.NoError(t, err)
	t.Cleanup(database.Close)

	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	require.NoError(t, redisClient.Ping(ctx).Err(), "Redis must be running on localhost:6379")
	t.Cleanup(func() { redisClient.FlushDB(ctx) })

	cas := casstore.New(redisClient, log)
	return postgres.New(database, cas)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestStore_CreateWorkflowAndRoundTripStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key := model.NewCallKey("wf.task_a", nil)
	wfID := "pg-test-1"
	require.NoError(t, s.CreateWorkflow(ctx, model.WorkflowDescriptor{ID: wfID}, nil, []model.ExecutionKey{key}))

	statuses, err := s.GetExecutionStatuses(ctx, wfID)
	require.NoError(t, err)
	assert.Equal(t, model.NotStarted, statuses[key.String()].Status)

	require.NoError(t, s.SetStatus(ctx, wfID, key, model.Done, intPtr(0)))
	statuses, err = s.GetExecutionStatuses(ctx, wfID)
	require.NoError(t, err)
	assert.Equal(t, model.Done, statuses[key.String()].Status)
}

func TestStore_SymbolAndOutputsRoundTripThroughCAS(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	wfID := "pg-test-2"

	require.NoError(t, s.CreateWorkflow(ctx, model.WorkflowDescriptor{ID: wfID}, nil, nil))
	require.NoError(t, s.WriteSymbol(ctx, wfID, model.Symbol{Scope: "wf.decl_x", Name: "x", WdlValue: "hi"}))

	sym, ok, err := s.Lookup(ctx, wfID, "wf.decl_x", "x", nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hi", sym.WdlValue)

	key := model.NewCallKey("wf.task_a", nil)
	require.NoError(t, s.WriteCallOutputs(ctx, wfID, key, model.CallOutputs{"out": "v"}))
	outputs, ok, err := s.GetCallOutputs(ctx, wfID, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", outputs["out"])
}

func TestStore_UpdateWorkflowOptionsAppliesPatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	wfID := "pg-test-3"

	require.NoError(t, s.CreateWorkflow(ctx, model.WorkflowDescriptor{ID: wfID, WorkflowOptions: map[string]any{"a": 1.0}}, nil, nil))

	patch := []byte(`[{"op":"add","path":"/b","value":2}]`)
	require.NoError(t, s.UpdateWorkflowOptions(ctx, wfID, patch))

	opts, err := s.GetWorkflowOptions(ctx, wfID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, opts["a"])
	assert.Equal(t, 2.0, opts["b"])
}

func intPtr(i int) *int { return &i }
