// Package memstore is the in-process reference implementation of
// store.DocumentStore. It is the primary backend exercised by the test
// suite and is sufficient for a single-process deployment.
package memstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ofscp/server/internal/apperr"
	"github.com/ofscp/server/internal/store"
)

type record struct {
	data []byte
}

// Store is a mutex-guarded, in-memory implementation of store.DocumentStore.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]record
}

// New creates an empty Store.
func New() *Store {
	return &Store{collections: make(map[string]map[string]record)}
}

func (s *Store) coll(name string) map[string]record {
	c, ok := s.collections[name]
	if !ok {
		c = make(map[string]record)
		s.collections[name] = c
	}
	return c
}

func (s *Store) Insert(_ context.Context, collection, id string, doc interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return apperr.PersistenceFault("encode document", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(collection)
	if _, exists := c[id]; exists {
		return apperr.Conflict("document already exists")
	}
	c[id] = record{data: raw}
	return nil
}

func (s *Store) Get(_ context.Context, collection, id string, out interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[collection]
	if !ok {
		return apperr.NotFound("document not found")
	}
	rec, ok := c[id]
	if !ok {
		return apperr.NotFound("document not found")
	}
	if err := json.Unmarshal(rec.data, out); err != nil {
		return apperr.PersistenceFault("decode document", err)
	}
	return nil
}

func (s *Store) Query(_ context.Context, collection string, filter store.Filter, out interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]json.RawMessage, 0)
	for _, rec := range s.collections[collection] {
		var generic map[string]interface{}
		if err := json.Unmarshal(rec.data, &generic); err != nil {
			continue
		}
		if matchesFilter(generic, filter) {
			matches = append(matches, json.RawMessage(rec.data))
		}
	}

	combined, err := json.Marshal(matches)
	if err != nil {
		return apperr.PersistenceFault("encode query results", err)
	}
	if err := json.Unmarshal(combined, out); err != nil {
		return apperr.PersistenceFault("decode query results", err)
	}
	return nil
}

func matchesFilter(doc map[string]interface{}, filter store.Filter) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok {
			return false
		}
		if !equalLoose(got, want) {
			return false
		}
	}
	return true
}

// equalLoose compares values the way a JSON round trip would see them:
// bools and strings compare directly, every other value (numbers included)
// by its JSON encoding.
func equalLoose(got, want interface{}) bool {
	switch w := want.(type) {
	case bool, string:
		return got == w
	default:
		gb, _ := json.Marshal(got)
		wb, _ := json.Marshal(want)
		return string(gb) == string(wb)
	}
}

func (s *Store) Update(_ context.Context, collection, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		return apperr.NotFound("document not found")
	}
	rec, ok := c[id]
	if !ok {
		return apperr.NotFound("document not found")
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(rec.data, &generic); err != nil {
		return apperr.PersistenceFault("decode document for update", err)
	}
	for k, v := range fields {
		generic[k] = v
	}
	raw, err := json.Marshal(generic)
	if err != nil {
		return apperr.PersistenceFault("encode updated document", err)
	}
	c[id] = record{data: raw}
	return nil
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[collection]; ok {
		delete(c, id)
	}
	return nil
}

func (s *Store) DeleteWhere(_ context.Context, collection string, filter store.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		return nil
	}
	for id, rec := range c {
		var generic map[string]interface{}
		if err := json.Unmarshal(rec.data, &generic); err != nil {
			continue
		}
		if matchesFilter(generic, filter) {
			delete(c, id)
		}
	}
	return nil
}

func (s *Store) Close() error { return nil }
