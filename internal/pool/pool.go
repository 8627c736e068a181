package pool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"gorm.io/gorm"
)

var (
	ErrExhausted = errors.New("connection pool exhausted")
	ErrClosed    = errors.New("connection pool closed")
)

// Pool bounds the number of database leases handed out at once. Physical
// connection reuse is left to database/sql underneath gorm; the pool adds
// the acquire/release contract and usage counters on top.
type Pool struct {
	db       *gorm.DB
	sqlDB    *sql.DB
	slots    chan struct{}
	timeout  time.Duration
	maxConns int

	closed   atomic.Bool
	acquired atomic.Uint64
	failed   atomic.Uint64
	released atomic.Uint64
}

// Conn is a single lease. It must not be used after Release.
type Conn struct {
	db       *gorm.DB
	pool     *Pool
	released atomic.Bool
}

func (c *Conn) DB() *gorm.DB { return c.db }

type Stats struct {
	MaxConns  int    `json:"max_connections"`
	InUse     int    `json:"current_connections"`
	Available int    `json:"available_connections"`
	OpenConns int    `json:"total_connections"`
	Acquired  uint64 `json:"connections_used"`
	Failed    uint64 `json:"connections_failed"`
	Released  uint64 `json:"connections_released"`
}

// New builds a pool over an open gorm handle. acquireTimeout bounds how
// long Acquire waits for a free slot before reporting exhaustion.
func New(db *gorm.DB, maxConns int, acquireTimeout time.Duration) (*Pool, error) {
	if maxConns < 1 {
		return nil, fmt.Errorf("pool size must be at least 1, got %d", maxConns)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}

	slots := make(chan struct{}, maxConns)
	for i := 0; i < maxConns; i++ {
		slots <- struct{}{}
	}

	return &Pool{
		db:       db,
		sqlDB:    sqlDB,
		slots:    slots,
		timeout:  acquireTimeout,
		maxConns: maxConns,
	}, nil
}

// Acquire leases a connection. It fails with ErrExhausted when no slot
// frees up within the acquire timeout. No retry is attempted.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	if p.closed.Load() {
		p.failed.Add(1)
		return nil, ErrClosed
	}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case <-p.slots:
	case <-ctx.Done():
		p.failed.Add(1)
		return nil, ctx.Err()
	case <-timer.C:
		p.failed.Add(1)
		return nil, ErrExhausted
	}

	if p.closed.Load() {
		p.slots <- struct{}{}
		p.failed.Add(1)
		return nil, ErrClosed
	}

	p.acquired.Add(1)
	return &Conn{db: p.db.WithContext(ctx), pool: p}, nil
}

// Release returns a lease to the pool. Releasing nil or an already
// released lease is a no-op.
func (p *Pool) Release(c *Conn) {
	if c == nil || !c.released.CompareAndSwap(false, true) {
		return
	}
	p.released.Add(1)
	p.slots <- struct{}{}
}

// WithConn runs fn on a leased connection and releases it on every exit
// path, including panics.
func (p *Pool) WithConn(ctx context.Context, fn func(db *gorm.DB) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(conn)
	return fn(conn.DB())
}

// WithTx is WithConn inside a transaction: commit when fn returns nil,
// rollback otherwise.
func (p *Pool) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(conn)
	return conn.DB().Transaction(fn)
}

// Shutdown closes the pool and the underlying connections. In-flight
// leases release into a closed pool harmlessly.
func (p *Pool) Shutdown() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.sqlDB.Close()
}

func (p *Pool) Stats() Stats {
	available := len(p.slots)
	return Stats{
		MaxConns:  p.maxConns,
		InUse:     p.maxConns - available,
		Available: available,
		OpenConns: p.sqlDB.Stats().OpenConnections,
		Acquired:  p.acquired.Load(),
		Failed:    p.failed.Load(),
		Released:  p.released.Load(),
	}
}

// Ping verifies the database answers through a pooled lease.
func (p *Pool) Ping(ctx context.Context) error {
	return p.WithConn(ctx, func(db *gorm.DB) error {
		var one int
		return db.Raw("SELECT 1").Scan(&one).Error
	})
}
