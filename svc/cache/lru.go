package cache

import (
	"context"
	"errors"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/GZTimeWalker/berry-pasty/pkg/domain"
)

// LRU keeps recently resolved pasties in memory. Pasties never expire on
// their own, so entries stay valid until an update or delete invalidates
// them.
type LRU struct {
	c  *lru.Cache[string, *domain.Pasty]
	mu sync.Mutex
}

func NewLRU(size int) (*LRU, error) {
	if size <= 0 {
		return nil, errors.New("cache size must be positive")
	}
	if size > 100000 {
		return nil, errors.New("cache size too large")
	}
	c, err := lru.New[string, *domain.Pasty](size)
	if err != nil {
		return nil, err
	}
	return &LRU{c: c}, nil
}

func (l *LRU) Get(ctx context.Context, id string) *domain.Pasty {
	select {
	case <-ctx.Done():
		return nil
	default:
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.c.Get(id)
	if !ok {
		return nil
	}
	return p
}

func (l *LRU) Set(ctx context.Context, p *domain.Pasty) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.c.Add(p.ID, p)
}

func (l *LRU) Delete(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.c.Remove(id)
}
