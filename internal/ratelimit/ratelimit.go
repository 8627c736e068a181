package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Budgets caps requests per route per client address. The minute budget is
// the primary limit; hour and day act as secondary ceilings.
type Budgets struct {
	PerMinute int
	PerHour   int
	PerDay    int
}

func DefaultBudgets() Budgets {
	return Budgets{PerMinute: 60, PerHour: 1000, PerDay: 10000}
}

type client struct {
	minute   *rate.Limiter
	hour     *rate.Limiter
	day      *rate.Limiter
	lastSeen time.Time
}

// Limiter tracks one token-bucket triple per (route, client address).
// State is process-local; instances do not share budgets.
type Limiter struct {
	budgets Budgets
	mu      sync.Mutex
	clients map[string]*client
}

func New(b Budgets) *Limiter {
	return &Limiter{budgets: b, clients: make(map[string]*client)}
}

// Allow reports whether a request for route from addr fits the budgets.
// When denied it returns a retry-after hint and consumes nothing.
func (l *Limiter) Allow(route, addr string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.get(route + "|" + addr)
	c.lastSeen = time.Now()

	taken := make([]*rate.Reservation, 0, 3)
	for _, lim := range []*rate.Limiter{c.minute, c.hour, c.day} {
		r := lim.Reserve()
		if !r.OK() || r.Delay() > 0 {
			retry := r.Delay()
			r.Cancel()
			for _, prev := range taken {
				prev.Cancel()
			}
			if retry <= 0 {
				retry = time.Second
			}
			return false, retry
		}
		taken = append(taken, r)
	}
	return true, 0
}

func (l *Limiter) get(key string) *client {
	if c, ok := l.clients[key]; ok {
		return c
	}
	if len(l.clients) >= 10000 {
		l.prune(24 * time.Hour)
	}
	c := &client{
		minute: newBucket(l.budgets.PerMinute, time.Minute),
		hour:   newBucket(l.budgets.PerHour, time.Hour),
		day:    newBucket(l.budgets.PerDay, 24*time.Hour),
	}
	l.clients[key] = c
	return c
}

func (l *Limiter) prune(idle time.Duration) {
	cutoff := time.Now().Add(-idle)
	for key, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, key)
		}
	}
}

func newBucket(budget int, window time.Duration) *rate.Limiter {
	if budget <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(window/time.Duration(budget)), budget)
}
