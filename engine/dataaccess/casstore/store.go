// Package casstore is a SHA-256-keyed content-addressable blob store on top
// of Redis, grounded on common/clients/redis_cas.go. engine/dataaccess/postgres
// uses it to store symbol/output payload bytes out-of-row, keeping the
// Postgres tables holding only the hash reference.
package casstore

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	redisWrapper "github.com/lyzr/workflow-engine/common/redis"
	"github.com/redis/go-redis/v9"
)

// Store is a write-once, content-addressed blob store.
type Store struct {
	redis *redisWrapper.Client
}

// New wraps an existing redis client.
func New(client *redis.Client, logger redisWrapper.Logger) *Store {
	return &Store{redis: redisWrapper.NewClient(client, logger)}
}

func key(hash string) string { return "cas:" + hash }

// Put stores data and returns its content hash ("sha256:<hex>").
func (s *Store) Put(ctx context.Context, data []byte) (string, error) {
	hash := fmt.Sprintf("sha256:%x", sha256.Sum256(data))
	if err := s.redis.SetWithExpiry(ctx, key(hash), string(data), 0); err != nil {
		return "", fmt.Errorf("cas put: %w", err)
	}
	return hash, nil
}

// PutValue JSON-encodes value and stores it.
func (s *Store) PutValue(ctx context.Context, value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("cas marshal: %w", err)
	}
	return s.Put(ctx, data)
}

// Get fetches the raw bytes for hash.
func (s *Store) Get(ctx context.Context, hash string) ([]byte, error) {
	data, err := s.redis.Get(ctx, key(hash))
	if err != nil {
		return nil, fmt.Errorf("cas get %s: %w", hash, err)
	}
	return []byte(data), nil
}

// GetValue fetches and JSON-decodes the value stored at hash into out.
func (s *Store) GetValue(ctx context.Context, hash string, out any) error {
	data, err := s.Get(ctx, hash)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
