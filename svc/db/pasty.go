package db

import (
	"context"
	"crypto/subtle"

	"github.com/GZTimeWalker/berry-pasty/pkg/codec"
	"github.com/GZTimeWalker/berry-pasty/pkg/domain"
)

// Store is the pasty persistence and authorization core. It owns the four
// tables and is handed to its consumers as a dependency; nothing in this
// package holds global state.
type Store struct {
	kv *KV
}

func NewStore(kv *KV) *Store {
	if kv == nil {
		panic("pasty store: nil kv")
	}
	return &Store{kv: kv}
}

func (s *Store) KV() *KV {
	return s.kv
}

// Get resolves id to its pasty. A missing type or content row means the
// pasty does not exist. Stats are untouched; counting a view is the
// caller's explicit choice via RecordView.
func (s *Store) Get(ctx context.Context, id string) (*domain.Pasty, error) {
	var p domain.Pasty
	err := s.kv.View(ctx, func(tx *ReadTx) error {
		rawType, ok, err := tx.Get(TableType, id)
		if err != nil {
			return domain.WrapStorage(err, "read type")
		}
		if !ok {
			return domain.ErrPastyNotFound
		}
		ct, err := codec.DecodeType(rawType)
		if err != nil {
			return domain.WrapStorage(err, "decode type")
		}
		rawContent, ok, err := tx.Get(TableContent, id)
		if err != nil {
			return domain.WrapStorage(err, "read content")
		}
		if !ok {
			return domain.ErrPastyNotFound
		}
		p = domain.Pasty{ID: id, Type: ct, Content: codec.DecodeString(rawContent)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetStats returns the stored stats record for id.
func (s *Store) GetStats(ctx context.Context, id string) (domain.Stats, error) {
	var st domain.Stats
	err := s.kv.View(ctx, func(tx *ReadTx) error {
		raw, ok, err := tx.Get(TableStats, id)
		if err != nil {
			return domain.WrapStorage(err, "read stats")
		}
		if !ok {
			return domain.ErrPastyNotFound
		}
		st, err = codec.DecodeStats(raw)
		if err != nil {
			return domain.WrapStorage(err, "decode stats")
		}
		return nil
	})
	return st, err
}

// RecordView counts one view in its own write transaction. A missing
// record is replaced by a fresh one rather than failing, so accounting
// stays best-effort for callers that ignore the error.
func (s *Store) RecordView(ctx context.Context, id string) error {
	return s.kv.Update(ctx, func(tx *WriteTx) error {
		st := domain.NewStats()
		raw, ok, err := tx.Get(TableStats, id)
		if err != nil {
			return domain.WrapStorage(err, "read stats")
		}
		if ok {
			st, err = codec.DecodeStats(raw)
			if err != nil {
				return domain.WrapStorage(err, "decode stats")
			}
		}
		if err := tx.Set(TableStats, id, codec.EncodeStats(st.View())); err != nil {
			return domain.WrapStorage(err, "write stats")
		}
		return nil
	})
}

// ListAll walks every pasty in one snapshot, in byte order of id. Ids with
// a missing content row are skipped; a missing stats row is reported as a
// fresh zero-view record. Tokens are never read.
func (s *Store) ListAll(ctx context.Context) ([]domain.PastyInfo, error) {
	out := []domain.PastyInfo{}
	err := s.kv.View(ctx, func(tx *ReadTx) error {
		return tx.Scan(TableType, func(id string, rawType []byte) error {
			ct, err := codec.DecodeType(rawType)
			if err != nil {
				return domain.WrapStorage(err, "decode type")
			}
			rawContent, ok, err := tx.Get(TableContent, id)
			if err != nil {
				return domain.WrapStorage(err, "read content")
			}
			if !ok {
				return nil
			}
			st := domain.NewStats()
			rawStats, ok, err := tx.Get(TableStats, id)
			if err != nil {
				return domain.WrapStorage(err, "read stats")
			}
			if ok {
				st, err = codec.DecodeStats(rawStats)
				if err != nil {
					return domain.WrapStorage(err, "decode stats")
				}
			}
			out = append(out, domain.PastyInfo{
				ID:      id,
				Type:    ct,
				Content: codec.DecodeString(rawContent),
				Stats:   st,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Exists reports whether id already has a pasty, by its token row. The
// token row exists exactly as long as the pasty does.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var found bool
	err := s.kv.View(ctx, func(tx *ReadTx) error {
		_, ok, err := tx.Get(TableToken, id)
		if err != nil {
			return domain.WrapStorage(err, "read token")
		}
		found = ok
		return nil
	})
	return found, err
}

// CreateOrUpdate writes a pasty under id. The token check and every
// mutation share one write transaction, so no other writer can slip
// between authorization and the writes it authorizes.
//
// On first creation the caller's token (empty = unprotected) is stored and
// becomes immutable; later updates must present the original secret.
// Returns whether the pasty was newly created.
func (s *Store) CreateOrUpdate(ctx context.Context, id, content string, t domain.ContentType, userToken string) (bool, error) {
	var created bool
	err := s.kv.Update(ctx, func(tx *WriteTx) error {
		exists, err := authorize(tx, id, userToken)
		if err != nil {
			return err
		}
		created = !exists
		if created {
			enc := codec.EncodeOptString(userToken, userToken != "")
			if err := tx.Set(TableToken, id, enc); err != nil {
				return domain.WrapStorage(err, "write token")
			}
		}
		if err := tx.Set(TableType, id, codec.EncodeType(t)); err != nil {
			return domain.WrapStorage(err, "write type")
		}
		if err := tx.Set(TableContent, id, codec.EncodeString(content)); err != nil {
			return domain.WrapStorage(err, "write content")
		}
		st := domain.NewStats()
		raw, ok, err := tx.Get(TableStats, id)
		if err != nil {
			return domain.WrapStorage(err, "read stats")
		}
		if ok {
			st, err = codec.DecodeStats(raw)
			if err != nil {
				return domain.WrapStorage(err, "decode stats")
			}
		}
		if err := tx.Set(TableStats, id, codec.EncodeStats(st.Update())); err != nil {
			return domain.WrapStorage(err, "write stats")
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// Delete removes a pasty from all four tables in one authorized write
// transaction. Authorization failures leave everything in place.
func (s *Store) Delete(ctx context.Context, id, userToken string) error {
	return s.kv.Update(ctx, func(tx *WriteTx) error {
		exists, err := authorize(tx, id, userToken)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrPastyNotFound
		}
		for _, t := range []Table{TableType, TableContent, TableToken, TableStats} {
			if err := tx.Delete(t, id); err != nil {
				return domain.WrapStorage(err, "delete record")
			}
		}
		return nil
	})
}

// authorize evaluates the token protocol against the transaction's own
// view. exists reports whether a token row is present at all; false means
// the id is unclaimed and the caller is creating it. A present row with no
// secret leaves the pasty unprotected; a stored secret must be matched
// exactly, compared in constant time.
func authorize(tx *WriteTx, id, userToken string) (exists bool, err error) {
	raw, ok, err := tx.Get(TableToken, id)
	if err != nil {
		return false, domain.WrapStorage(err, "read token")
	}
	if !ok {
		return false, nil
	}
	secret, present, err := codec.DecodeOptString(raw)
	if err != nil {
		return true, domain.WrapStorage(err, "decode token")
	}
	if !present || secret == "" {
		return true, nil
	}
	if userToken == "" {
		return true, domain.ErrTokenRequired
	}
	if subtle.ConstantTimeCompare([]byte(userToken), []byte(secret)) != 1 {
		return true, domain.ErrTokenMismatch
	}
	return true, nil
}
