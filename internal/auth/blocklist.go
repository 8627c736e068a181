package auth

import "sync"

// Blocklist holds revoked token ids for the lifetime of the process. It is
// per-instance and lost on restart; revoking on one instance does not
// revoke on another.
type Blocklist struct {
	mu   sync.RWMutex
	jtis map[string]struct{}
}

func NewBlocklist() *Blocklist {
	return &Blocklist{jtis: make(map[string]struct{})}
}

func (b *Blocklist) Add(jti string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jtis[jti] = struct{}{}
}

func (b *Blocklist) Contains(jti string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.jtis[jti]
	return ok
}
