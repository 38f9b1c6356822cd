// Package pgstore implements store.DocumentStore on Postgres, one JSONB
// column per collection row, using database/sql with
// github.com/lib/pq — a dependency the teacher's cmd/server already
// imported (blank, behind a never-opened *sql.DB) but never wired to a
// live connection. This package gives it the real job.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"

	_ "github.com/lib/pq"

	"github.com/ofscp/server/internal/apperr"
	"github.com/ofscp/server/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS ofscp_documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	data JSONB NOT NULL,
	PRIMARY KEY (collection, id)
);
`

// Store is a Postgres-backed store.DocumentStore.
type Store struct {
	db *sql.DB
}

// Open connects to dsn, creates the document table if absent, and returns
// a Store.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, apperr.PersistenceFault("open postgres connection", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperr.PersistenceFault("create document table", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Insert(ctx context.Context, collection, id string, doc interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return apperr.PersistenceFault("encode document", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO ofscp_documents (collection, id, data) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		collection, id, raw)
	if err != nil {
		return apperr.PersistenceFault("insert document", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.PersistenceFault("check insert result", err)
	}
	if n == 0 {
		return apperr.Conflict("document already exists")
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string, out interface{}) error {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM ofscp_documents WHERE collection = $1 AND id = $2`, collection, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return apperr.NotFound("document not found")
	}
	if err != nil {
		return apperr.PersistenceFault("select document", err)
	}
	return json.Unmarshal(raw, out)
}

func (s *Store) Query(ctx context.Context, collection string, filter store.Filter, out interface{}) error {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM ofscp_documents WHERE collection = $1`, collection)
	if err != nil {
		return apperr.PersistenceFault("query collection", err)
	}
	defer rows.Close()

	matches := make([]json.RawMessage, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return apperr.PersistenceFault("scan document", err)
		}
		var generic map[string]interface{}
		if err := json.Unmarshal(raw, &generic); err != nil {
			continue
		}
		if matchesFilter(generic, filter) {
			matches = append(matches, json.RawMessage(raw))
		}
	}
	if err := rows.Err(); err != nil {
		return apperr.PersistenceFault("iterate rows", err)
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
	_, err = s.db.ExecContext(ctx,
		`UPDATE ofscp_documents SET data = $3 WHERE collection = $1 AND id = $2`, collection, id, raw)
	if err != nil {
		return apperr.PersistenceFault("update document", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM ofscp_documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return apperr.PersistenceFault("delete document", err)
	}
	return nil
}

func (s *Store) DeleteWhere(ctx context.Context, collection string, filter store.Filter) error {
	var generics []map[string]interface{}
	if err := s.Query(ctx, collection, filter, &generics); err != nil {
		return err
	}
	for _, g := range generics {
		id, ok := g["id"].(string)
		if !ok {
			continue
		}
		if err := s.Delete(ctx, collection, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }
