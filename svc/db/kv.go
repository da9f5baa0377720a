package db

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"github.com/GZTimeWalker/berry-pasty/pkg/domain"
	"github.com/GZTimeWalker/berry-pasty/svc/util"
)

var ErrCircuitOpen = errors.New("storage circuit breaker open")

const (
	circuitClosed   = 0
	circuitOpen     = 1
	circuitHalfOpen = 2
	maxFailures     = 5
	cooldownSeconds = 30
)

// KV wraps a pebble database and exposes the transactional table-store
// contract the pasty store is built on: snapshot reads, serialized write
// batches and prefix-bounded tables. At most one write transaction runs at
// a time; its indexed batch reads its own pending writes, which is what
// makes an authorization check inside a mutation sound.
type KV struct {
	db            *pebble.DB
	writeMu       sync.Mutex
	failures      int32
	circuitState  int32
	circuitOpened int64
}

func OpenKV(path string) (*KV, error) {
	pdb, err := pebble.Open(path, &pebble.Options{Logger: engineLogger{}})
	if err != nil {
		return nil, errors.Wrap(err, "open store")
	}
	return &KV{db: pdb}, nil
}

func (k *KV) Close() error {
	return k.db.Close()
}

// Ping probes the engine with a point read.
func (k *KV) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, closer, err := k.db.Get([]byte("berry:ping"))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil
		}
		return errors.Wrap(err, "ping store")
	}
	return closer.Close()
}

// View runs fn against a stable snapshot of the database. Readers never
// block writers and never observe a half-committed batch.
func (k *KV) View(ctx context.Context, fn func(tx *ReadTx) error) error {
	if err := ctx.Err(); err != nil {
		return domain.WrapStorage(err, "begin read")
	}
	if err := k.checkCircuit(); err != nil {
		return domain.WrapStorage(err, "begin read")
	}
	snap := k.db.NewSnapshot()
	defer snap.Close()
	err := fn(&ReadTx{snap: snap})
	k.recordError(err)
	return err
}

// Update runs fn inside the single write transaction and commits it with
// fsync. fn returning an error discards the batch untouched.
func (k *KV) Update(ctx context.Context, fn func(tx *WriteTx) error) error {
	if err := ctx.Err(); err != nil {
		return domain.WrapStorage(err, "begin write")
	}
	if err := k.checkCircuit(); err != nil {
		return domain.WrapStorage(err, "begin write")
	}
	k.writeMu.Lock()
	defer k.writeMu.Unlock()
	batch := k.db.NewIndexedBatch()
	if err := fn(&WriteTx{batch: batch}); err != nil {
		_ = batch.Close()
		k.recordError(err)
		return err
	}
	err := batch.Commit(pebble.Sync)
	k.recordError(err)
	if err != nil {
		return domain.WrapStorage(err, "commit write")
	}
	return nil
}

func (k *KV) checkCircuit() error {
	state := atomic.LoadInt32(&k.circuitState)
	switch state {
	case circuitClosed, circuitHalfOpen:
		return nil
	case circuitOpen:
		opened := atomic.LoadInt64(&k.circuitOpened)
		if time.Now().Unix()-opened >= cooldownSeconds {
			if atomic.CompareAndSwapInt32(&k.circuitState, circuitOpen, circuitHalfOpen) {
				return nil
			}
		}
		return ErrCircuitOpen
	default:
		return nil
	}
}

func (k *KV) recordError(err error) {
	if err == nil {
		atomic.StoreInt32(&k.failures, 0)
		atomic.StoreInt32(&k.circuitState, circuitClosed)
		return
	}
	// Domain outcomes and cancelled contexts say nothing about engine health.
	var derr *domain.Err
	if errors.As(err, &derr) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return
	}
	failures := atomic.AddInt32(&k.failures, 1)
	if atomic.LoadInt32(&k.circuitState) == circuitHalfOpen {
		atomic.StoreInt32(&k.circuitState, circuitOpen)
		atomic.StoreInt64(&k.circuitOpened, time.Now().Unix())
		atomic.StoreInt32(&k.failures, 0)
		return
	}
	if failures >= maxFailures && atomic.LoadInt32(&k.circuitState) == circuitClosed {
		atomic.StoreInt32(&k.circuitState, circuitOpen)
		atomic.StoreInt64(&k.circuitOpened, time.Now().Unix())
	}
}

// ReadTx is a point-in-time view over the tables.
type ReadTx struct {
	snap *pebble.Snapshot
}

func (tx *ReadTx) Get(t Table, id string) ([]byte, bool, error) {
	return getCopy(tx.snap.Get(t.Key(id)))
}

// Scan walks every row of t in lexicographic byte order of id. The value
// slice passed to fn is only valid for the duration of the call.
func (tx *ReadTx) Scan(t Table, fn func(id string, val []byte) error) error {
	lower, upper := t.Bounds()
	iter, err := tx.snap.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return errors.Wrap(err, "open iterator")
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(t.ID(iter.Key()), iter.Value()); err != nil {
			return err
		}
	}
	return errors.Wrap(iter.Error(), "scan table")
}

// WriteTx is the mutable view of the single write transaction. Reads see
// the batch's own pending writes layered over the committed state.
type WriteTx struct {
	batch *pebble.Batch
}

func (tx *WriteTx) Get(t Table, id string) ([]byte, bool, error) {
	return getCopy(tx.batch.Get(t.Key(id)))
}

func (tx *WriteTx) Set(t Table, id string, val []byte) error {
	return tx.batch.Set(t.Key(id), val, nil)
}

// Delete removes a row. Deleting an absent row is not an error.
func (tx *WriteTx) Delete(t Table, id string) error {
	return tx.batch.Delete(t.Key(id), nil)
}

func getCopy(val []byte, closer io.Closer, err error) ([]byte, bool, error) {
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	out := append([]byte(nil), val...)
	return out, true, closer.Close()
}

// engineLogger routes pebble's internal logging through the service logger.
type engineLogger struct{}

func (engineLogger) Infof(format string, args ...interface{}) {
	util.Debug().Msgf("pebble: "+format, args...)
}

func (engineLogger) Errorf(format string, args ...interface{}) {
	util.Error().Msgf("pebble: "+format, args...)
}

func (engineLogger) Fatalf(format string, args ...interface{}) {
	util.Fatal().Msgf("pebble: "+format, args...)
}
