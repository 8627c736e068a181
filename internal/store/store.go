package store

import (
	"errors"

	"github.com/horseshoedev/mythrilmerch/internal/pool"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("already exists")
	ErrEmptyUpdate = errors.New("no valid fields to update")
)

// Store executes all SQL through pool leases, one commit/rollback scope
// per write sequence.
type Store struct {
	Pool *pool.Pool
}

func New(p *pool.Pool) *Store {
	return &Store{Pool: p}
}
