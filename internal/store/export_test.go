package store

import "database/sql"

// DB exposes the internal *sql.DB for test helpers in store_test.
// This file only compiles during `go test`.
func (s *Store) DB() *sql.DB {
	return s.db
}

// FailNextCommit makes the next transaction commit fail with err.
func (s *Store) FailNextCommit(err error) {
	s.hooks.commit = func(tx *sql.Tx) error {
		s.hooks.commit = nil
		_ = tx.Rollback()
		return err
	}
}
