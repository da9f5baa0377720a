package svc

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GZTimeWalker/berry-pasty/cfg"
	"github.com/GZTimeWalker/berry-pasty/metrics"
	"github.com/GZTimeWalker/berry-pasty/pkg/domain"
	"github.com/GZTimeWalker/berry-pasty/svc/cache"
	"github.com/GZTimeWalker/berry-pasty/svc/db"
	"github.com/GZTimeWalker/berry-pasty/svc/util"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

type Pasty struct {
	store        *db.Store
	lru          *cache.LRU
	cfg          *cfg.Cfg
	group        singleflight.Group
	viewQueue    chan string
	viewWorkerWg sync.WaitGroup
	opWg         sync.WaitGroup
	shutdownCtx  context.Context
	shutdownFn   context.CancelFunc
	shutdown     atomic.Bool
}

func NewPasty(store *db.Store, lru *cache.LRU, c *cfg.Cfg) *Pasty {
	if store == nil || lru == nil || c == nil {
		panic("pasty service: nil dependency (store, lru, or cfg)")
	}
	shutdownCtx, shutdownFn := context.WithCancel(context.Background())
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = 20
	}
	p := &Pasty{
		store:       store,
		lru:         lru,
		cfg:         c,
		viewQueue:   make(chan string, c.WorkerPoolSize*100),
		shutdownCtx: shutdownCtx,
		shutdownFn:  shutdownFn,
	}
	p.startWorkers(c.WorkerPoolSize)
	return p
}
func (p *Pasty) startWorkers(n int) {
	for i := 0; i < n; i++ {
		p.viewWorkerWg.Add(1)
		go p.viewWorker()
	}
}
func (p *Pasty) viewWorker() {
	defer p.viewWorkerWg.Done()
	defer func() {
		if r := recover(); r != nil {
			util.Error().Interface("panic", r).Msg("viewWorker panicked")
		}
	}()
	for id := range p.viewQueue {
		ctx, cancel := context.WithTimeout(p.shutdownCtx, 5*time.Second)
		err := p.store.RecordView(ctx, id)
		cancel()
		switch {
		case err == nil:
			metrics.ViewsRecorded.Inc()
		case errors.Is(err, context.Canceled):
			return
		default:
			util.Warn().Err(err).Str("id", id).Msg("failed to record view")
		}
	}
}
func (p *Pasty) enqueueView(id string) {
	select {
	case p.viewQueue <- id:
	default:
		metrics.ViewQueueDropped.Inc()
		util.Warn().Str("id", id).Msg("view queue full, dropping increment")
	}
}
func (p *Pasty) Shutdown() {
	p.shutdown.Store(true)
	close(p.viewQueue)
	done := make(chan struct{})
	go func() {
		p.viewWorkerWg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		util.Warn().Msg("view workers didn't stop in time")
	}
	p.shutdownFn()
	p.opWg.Wait()
	util.Debug().Msg("pasty service shutdown complete")
}

// Get returns the pasty and queues a view increment. Concurrent misses on
// the same id share a single store read.
func (p *Pasty) Get(ctx context.Context, id string) (*domain.Pasty, error) {
	if pasty := p.lru.Get(ctx, id); pasty != nil {
		metrics.CacheHits.Inc()
		p.enqueueView(id)
		metrics.PastyRetrieved.Inc()
		return pasty, nil
	}
	metrics.CacheMisses.Inc()
	v, err, _ := p.group.Do(id, func() (interface{}, error) {
		return p.store.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	pasty := v.(*domain.Pasty)
	p.lru.Set(ctx, pasty)
	p.enqueueView(id)
	metrics.PastyRetrieved.Inc()
	return pasty, nil
}
func (p *Pasty) GetStats(ctx context.Context, id string) (domain.Stats, error) {
	return p.store.GetStats(ctx, id)
}
func (p *Pasty) List(ctx context.Context) ([]domain.PastyInfo, error) {
	infos, err := p.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	metrics.PastyListed.Inc()
	return infos, nil
}
func (p *Pasty) CreateOrUpdate(ctx context.Context, id, content string, t domain.ContentType, token string) (bool, error) {
	if p.shutdown.Load() {
		return false, errors.New("service shutting down")
	}
	p.opWg.Add(1)
	defer p.opWg.Done()
	if content == "" {
		return false, domain.ErrContentRequired
	}
	if int64(len(content)) > p.cfg.MaxContentSize {
		return false, domain.ErrContentTooLarge
	}
	created, err := p.store.CreateOrUpdate(ctx, id, content, t, token)
	if err != nil {
		return false, err
	}
	p.lru.Set(ctx, &domain.Pasty{ID: id, Type: t, Content: content})
	if created {
		metrics.PastyCreated.Inc()
	} else {
		metrics.PastyUpdated.Inc()
	}
	return created, nil
}

// CreateRandom creates a pasty under a fresh random id and returns it.
func (p *Pasty) CreateRandom(ctx context.Context, content string, t domain.ContentType, token string) (string, error) {
	if p.shutdown.Load() {
		return "", errors.New("service shutting down")
	}
	id, err := util.GenID(p.cfg.RandomIDLength, func(id string) (bool, error) {
		return p.store.Exists(ctx, id)
	})
	if err != nil {
		return "", domain.ErrIDGenerationFailed
	}
	if _, err := p.CreateOrUpdate(ctx, id, content, t, token); err != nil {
		return "", err
	}
	return id, nil
}
func (p *Pasty) Delete(ctx context.Context, id, token string) error {
	if p.shutdown.Load() {
		return errors.New("service shutting down")
	}
	p.opWg.Add(1)
	defer p.opWg.Done()
	if err := p.store.Delete(ctx, id, token); err != nil {
		return err
	}
	p.lru.Delete(id)
	metrics.PastyDeleted.Inc()
	util.Info().Str("id", id).Msg("pasty deleted")
	return nil
}
