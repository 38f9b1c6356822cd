// Package redisstore implements store.DocumentStore on top of Redis,
// storing each collection as a hash of id -> JSON-encoded document, using
// github.com/redis/go-redis/v9 (a dependency the teacher already carried
// for its own keyspace caching and which this package now exercises for
// the full persistence façade rather than just caching).
package redisstore

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/ofscp/server/internal/apperr"
	"github.com/ofscp/server/internal/store"
)

// Store is a Redis-backed store.DocumentStore.
type Store struct {
	client *redis.Client
}

// New connects to addr and returns a Store. The connection is lazy:
// go-redis dials on first command.
func New(addr string) *Store {
	return &Store{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func key(collection string) string { return "ofscp:coll:" + collection }

func (s *Store) Insert(ctx context.Context, collection, id string, doc interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return apperr.PersistenceFault("encode document", err)
	}
	created, err := s.client.HSetNX(ctx, key(collection), id, raw).Result()
	if err != nil {
		return apperr.PersistenceFault("redis hsetnx", err)
	}
	if !created {
		return apperr.Conflict("document already exists")
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string, out interface{}) error {
	raw, err := s.client.HGet(ctx, key(collection), id).Bytes()
	if err == redis.Nil {
		return apperr.NotFound("document not found")
	}
	if err != nil {
		return apperr.PersistenceFault("redis hget", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.PersistenceFault("decode document", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, collection string, filter store.Filter, out interface{}) error {
	all, err := s.client.HGetAll(ctx, key(collection)).Result()
	if err != nil {
		return apperr.PersistenceFault("redis hgetall", err)
	}

	matches := make([]json.RawMessage, 0, len(all))
	for _, raw := range all {
		var generic map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &generic); err != nil {
			continue
		}
		if matchesFilter(generic, filter) {
			matches = append(matches, json.RawMessage(raw))
		}
	}

	combined, err := json.Marshal(matches)
	if err != nil {
		return apperr.PersistenceFault("encode query results", err)
	}
	return json.Unmarshal(combined, out)
}

func matchesFilter(doc map[string]interface{}, filter store.Filter) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok {
			return false
		}
		gb, _ := json.Marshal(got)
		wb, _ := json.Marshal(want)
		if string(gb) != string(wb) {
			return false
		}
	}
	return true
}

func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	var generic map[string]interface{}
	if err := s.Get(ctx, collection, id, &generic); err != nil {
		return err
	}
	for k, v := range fields {
		generic[k] = v
	}
	raw, err := json.Marshal(generic)
	if err != nil {
		return apperr.PersistenceFault("encode updated document", err)
	}
	if err := s.client.HSet(ctx, key(collection), id, raw).Err(); err != nil {
		return apperr.PersistenceFault("redis hset", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	return s.client.HDel(ctx, key(collection), id).Err()
}

func (s *Store) DeleteWhere(ctx context.Context, collection string, filter store.Filter) error {
	all, err := s.client.HGetAll(ctx, key(collection)).Result()
	if err != nil {
		return apperr.PersistenceFault("redis hgetall", err)
	}
	for id, raw := range all {
		var generic map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &generic); err != nil {
			continue
		}
		if matchesFilter(generic, filter) {
			if err := s.client.HDel(ctx, key(collection), id).Err(); err != nil {
				return apperr.PersistenceFault("redis hdel", err)
			}
		}
	}
	return nil
}

func (s *Store) Close() error { return s.client.Close() }
