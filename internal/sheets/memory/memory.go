// Package memory is an in-process RowWriter used in tests and when no
// spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"spentee/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows []sheets.Row

	// FailNext makes the next Append return an error; tests use it to
	// exercise the worker's error path.
	FailNext bool
}

var _ sheets.RowWriter = (*Store)(nil)

func New() *Store { return &Store{} }

// Append stores the row and returns a synthetic reference.
func (s *Store) Append(_ context.Context, row sheets.Row) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailNext {
		s.FailNext = false
		return "", fmt.Errorf("append row: simulated failure")
	}
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []sheets.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.Row(nil), s.rows...)
}
