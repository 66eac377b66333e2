package casstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/workflow-engine/engine/dataaccess/casstore"
)

type testLogger struct{ t *testing.T }

func (l *testLogger) Info(msg string, kv ...interface{})  { l.t.Logf("[INFO] %s %v", msg, kv) }
func (l *testLogger) Error(msg string, kv ...interface{}) { l.t.Logf("[ERROR] %s %v", msg, kv) }
func (l *testLogger) Warn(msg string, kv ...interface{})  { l.t.Logf("[WARN] %s %v", msg, kv) }
func (l *testLogger) Debug(msg string, kv ...interface{}) { l.t.Logf("[DEBUG] %s %v", msg, kv) }

// Requires Redis running on localhost:6379, same assumption as
// cmd/workflow-runner's integration tests.
func TestStore_PutGetRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	require.NoError(t, client.Ping(ctx).Err(), "Redis must be running on localhost:6379")
	defer client.FlushDB(ctx)

	s := casstore.New(client, &testLogger{t: t})

	hash, err := s.Put(ctx, []byte("hello world"))
	require.NoError(t, err)

	got, err := s.Get(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestStore_PutValueGetValueRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	require.NoError(t, client.Ping(ctx).Err(), "Redis must be running on localhost:6379")
	defer client.FlushDB(ctx)

	s := casstore.New(client, &testLogger{t: t})

	hash, err := s.PutValue(ctx, map[string]any{"out": []any{"a", "b"}})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, s.GetValue(ctx, hash, &out))
	assert.Equal(t, []any{"a", "b"}, out["out"])
}
