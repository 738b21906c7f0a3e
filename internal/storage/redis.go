package storage

// redis.go provides a redis-backed Store for deployments where several
// API instances share connection and key state. The same idempotent
// single-record semantics as the SQLite backend apply.

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on top of redis.
//
// Key layout (prefixes come from the configured table names):
//
//	<connections>:conn:<id>   -> associated key (string)
//	<connections>:bykey:<key> -> set of connection IDs
//	<connections>:all         -> set of all connection IDs
//	<keys>:all                -> set of issued API keys
type RedisStore struct {
	client *redis.Client

	connPrefix string
	keysPrefix string
}

// NewRedisStore connects to redis at the given URL.
// Returns an error if the connection cannot be established.
func NewRedisStore(url, connectionsTable, keysTable string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection with timeout.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	log.Printf("storage: redis ready (prefixes %s, %s)", connectionsTable, keysTable)

	return &RedisStore{
		client:     client,
		connPrefix: connectionsTable,
		keysPrefix: keysTable,
	}, nil
}

func (s *RedisStore) connKey(id string) string   { return s.connPrefix + ":conn:" + id }
func (s *RedisStore) byKeyKey(key string) string { return s.connPrefix + ":bykey:" + key }
func (s *RedisStore) allKey() string             { return s.connPrefix + ":all" }
func (s *RedisStore) keySetKey() string          { return s.keysPrefix + ":all" }

// Insert records a connection and its associated key.
func (s *RedisStore) Insert(ctx context.Context, connectionID, associatedKey string) error {
	log.Printf("storage: inserting connection %s", connectionID)

	// Pipeline the three writes so a reader never sees the connection in
	// one structure but not the others for longer than a round trip.
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.connKey(connectionID), associatedKey, 0)
	pipe.SAdd(ctx, s.byKeyKey(associatedKey), connectionID)
	pipe.SAdd(ctx, s.allKey(), connectionID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insert connection: %w", err)
	}

	return nil
}

// Delete removes a connection record. Deleting an absent ID is a no-op.
func (s *RedisStore) Delete(ctx context.Context, connectionID string) error {
	log.Printf("storage: deleting connection %s", connectionID)

	// Look up the associated key first so the by-key set can be cleaned.
	associatedKey, err := s.client.Get(ctx, s.connKey(connectionID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("lookup connection for delete: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.connKey(connectionID))
	if associatedKey != "" {
		pipe.SRem(ctx, s.byKeyKey(associatedKey), connectionID)
	}
	pipe.SRem(ctx, s.allKey(), connectionID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}

	return nil
}

// ListByKey returns the connection IDs associated with the given key.
func (s *RedisStore) ListByKey(ctx context.Context, key string) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.byKeyKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("query connections by key: %w", err)
	}
	return ids, nil
}

// ListAll returns every live connection ID.
func (s *RedisStore) ListAll(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.allKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("query all connections: %w", err)
	}
	return ids, nil
}

// Empty reports whether no connections exist.
func (s *RedisStore) Empty(ctx context.Context) (bool, error) {
	n, err := s.client.SCard(ctx, s.allKey()).Result()
	if err != nil {
		return false, fmt.Errorf("probe connections: %w", err)
	}
	return n == 0, nil
}

// PutKey persists a newly issued API key.
func (s *RedisStore) PutKey(ctx context.Context, key string) error {
	log.Printf("storage: saving issued key")

	if err := s.client.SAdd(ctx, s.keySetKey(), key).Err(); err != nil {
		return fmt.Errorf("save key: %w", err)
	}
	return nil
}

// HasKey reports whether the given token is a currently valid key.
func (s *RedisStore) HasKey(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.keySetKey(), key).Result()
	if err != nil {
		return false, fmt.Errorf("lookup key: %w", err)
	}
	return ok, nil
}

// Close releases the redis client.
func (s *RedisStore) Close() error {
	log.Printf("storage: closing redis client")
	return s.client.Close()
}
