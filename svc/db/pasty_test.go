package db

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/GZTimeWalker/berry-pasty/pkg/codec"
	"github.com/GZTimeWalker/berry-pasty/pkg/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(openTestKV(t))
}

func mustCreate(t *testing.T, s *Store, id, content string, ct domain.ContentType, token string) {
	t.Helper()
	created, err := s.CreateOrUpdate(context.Background(), id, content, ct, token)
	if err != nil {
		t.Fatalf("CreateOrUpdate(%q) failed: %v", id, err)
	}
	if !created {
		t.Fatalf("CreateOrUpdate(%q): expected creation", id)
	}
}

func TestCreateThenGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, "abc", "hello", domain.ContentTypePlaintext, "")

	p, err := s.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p.ID != "abc" || p.Type != domain.ContentTypePlaintext || p.Content != "hello" {
		t.Errorf("got %+v, want {abc plain hello}", p)
	}

	// repeated reads return the same thing
	p2, err := s.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("second Get failed: %v", err)
	}
	if *p != *p2 {
		t.Errorf("reads disagree: %+v vs %+v", p, p2)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get(context.Background(), "ghost"); !errors.Is(err, domain.ErrPastyNotFound) {
		t.Errorf("Get on missing id: got %v, want not found", err)
	}
	if _, err := s.GetStats(context.Background(), "ghost"); !errors.Is(err, domain.ErrPastyNotFound) {
		t.Errorf("GetStats on missing id: got %v, want not found", err)
	}
}

func TestCreateInitializesStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, "a", "x", domain.ContentTypePlaintext, "")

	st, err := s.GetStats(ctx, "a")
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if st.Views != 0 {
		t.Errorf("fresh pasty views: got %d, want 0", st.Views)
	}
	if st.CreatedAt.IsZero() || st.UpdatedAt.IsZero() {
		t.Error("fresh pasty timestamps not set")
	}
}

func TestUpdateReplacesContentAndType(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, "a", "text", domain.ContentTypePlaintext, "")

	created, err := s.CreateOrUpdate(ctx, "a", "https://example.com", domain.ContentTypeRedirect, "")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if created {
		t.Error("update of an existing id reported as creation")
	}

	p, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p.Type != domain.ContentTypeRedirect || p.Content != "https://example.com" {
		t.Errorf("after update: got %+v", p)
	}
}

func TestUpdatePreservesCreatedAt(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, "a", "v1", domain.ContentTypePlaintext, "")

	st1, err := s.GetStats(ctx, "a")
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}

	for i, content := range []string{"v2", "v3"} {
		if _, err := s.CreateOrUpdate(ctx, "a", content, domain.ContentTypePlaintext, ""); err != nil {
			t.Fatalf("update %d failed: %v", i, err)
		}
	}

	st2, err := s.GetStats(ctx, "a")
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if !st2.CreatedAt.Equal(st1.CreatedAt) {
		t.Errorf("CreatedAt changed across updates: %v -> %v", st1.CreatedAt, st2.CreatedAt)
	}
	if st2.UpdatedAt.Before(st1.UpdatedAt) {
		t.Errorf("UpdatedAt went backwards: %v -> %v", st1.UpdatedAt, st2.UpdatedAt)
	}
	if st2.Views != st1.Views {
		t.Errorf("updates must not change views: %d -> %d", st1.Views, st2.Views)
	}
}

func TestTokenProtocol(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, "locked", "secret doc", domain.ContentTypePlaintext, "s3cret")

	if _, err := s.CreateOrUpdate(ctx, "locked", "x", domain.ContentTypePlaintext, ""); !errors.Is(err, domain.ErrTokenRequired) {
		t.Errorf("update without token: got %v, want token required", err)
	}
	if _, err := s.CreateOrUpdate(ctx, "locked", "x", domain.ContentTypePlaintext, "wrong"); !errors.Is(err, domain.ErrTokenMismatch) {
		t.Errorf("update with wrong token: got %v, want token mismatch", err)
	}
	if _, err := s.CreateOrUpdate(ctx, "locked", "new text", domain.ContentTypePlaintext, "s3cret"); err != nil {
		t.Errorf("update with correct token failed: %v", err)
	}

	// rejected writes left the content alone, the accepted one landed
	p, err := s.Get(ctx, "locked")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p.Content != "new text" {
		t.Errorf("content after token dance: got %q, want %q", p.Content, "new text")
	}

	if err := s.Delete(ctx, "locked", ""); !errors.Is(err, domain.ErrTokenRequired) {
		t.Errorf("delete without token: got %v, want token required", err)
	}
	if err := s.Delete(ctx, "locked", "nope"); !errors.Is(err, domain.ErrTokenMismatch) {
		t.Errorf("delete with wrong token: got %v, want token mismatch", err)
	}
	if err := s.Delete(ctx, "locked", "s3cret"); err != nil {
		t.Errorf("delete with correct token failed: %v", err)
	}
}

func TestUnprotectedIgnoresTokens(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, "open", "anyone", domain.ContentTypePlaintext, "")

	// any token value is accepted and none of them claim the pasty
	if _, err := s.CreateOrUpdate(ctx, "open", "v2", domain.ContentTypePlaintext, "whatever"); err != nil {
		t.Fatalf("update with a token on unprotected id failed: %v", err)
	}
	if _, err := s.CreateOrUpdate(ctx, "open", "v3", domain.ContentTypePlaintext, ""); err != nil {
		t.Fatalf("followup update without token failed: %v", err)
	}
	if err := s.Delete(ctx, "open", "still-ignored"); err != nil {
		t.Fatalf("delete with a token on unprotected id failed: %v", err)
	}
}

func TestTokenImmutableAfterCreation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, "a", "v1", domain.ContentTypePlaintext, "first")

	// an authorized update presenting the same token must not re-write it,
	// and no update can change it
	if _, err := s.CreateOrUpdate(ctx, "a", "v2", domain.ContentTypePlaintext, "first"); err != nil {
		t.Fatalf("authorized update failed: %v", err)
	}
	if _, err := s.CreateOrUpdate(ctx, "a", "v3", domain.ContentTypePlaintext, "second"); !errors.Is(err, domain.ErrTokenMismatch) {
		t.Errorf("update with a different token: got %v, want mismatch", err)
	}
	p, _ := s.Get(ctx, "a")
	if p.Content != "v2" {
		t.Errorf("rejected update mutated content: %q", p.Content)
	}
}

func TestDeleteRemovesAllTraces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, "gone", "bye", domain.ContentTypePlaintext, "")
	if err := s.RecordView(ctx, "gone"); err != nil {
		t.Fatalf("RecordView failed: %v", err)
	}

	if err := s.Delete(ctx, "gone", ""); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "gone"); !errors.Is(err, domain.ErrPastyNotFound) {
		t.Errorf("Get after delete: got %v, want not found", err)
	}
	if _, err := s.GetStats(ctx, "gone"); !errors.Is(err, domain.ErrPastyNotFound) {
		t.Errorf("GetStats after delete: got %v, want not found", err)
	}
	exists, err := s.Exists(ctx, "gone")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("Exists after delete: got true")
	}
	infos, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	for _, info := range infos {
		if info.ID == "gone" {
			t.Error("deleted id still listed")
		}
	}

	// a deleted id is indistinguishable from one that never existed
	err = s.kv.View(ctx, func(tx *ReadTx) error {
		for _, tab := range []Table{TableType, TableContent, TableToken, TableStats} {
			if _, ok, _ := tx.Get(tab, "gone"); ok {
				t.Errorf("row left behind under prefix %q", tab.Key(""))
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestDeleteMissing(t *testing.T) {
	s := openTestStore(t)
	if err := s.Delete(context.Background(), "ghost", ""); !errors.Is(err, domain.ErrPastyNotFound) {
		t.Errorf("Delete on missing id: got %v, want not found", err)
	}
}

func TestViewAccounting(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, "hot", "content", domain.ContentTypePlaintext, "")

	var last time.Time
	for i := 1; i <= 5; i++ {
		if err := s.RecordView(ctx, "hot"); err != nil {
			t.Fatalf("RecordView %d failed: %v", i, err)
		}
		st, err := s.GetStats(ctx, "hot")
		if err != nil {
			t.Fatalf("GetStats failed: %v", err)
		}
		if st.Views != uint32(i) {
			t.Errorf("views after %d records: got %d", i, st.Views)
		}
		if st.LastViewedAt.Before(last) {
			t.Errorf("last_viewed_at went backwards: %v -> %v", last, st.LastViewedAt)
		}
		last = st.LastViewedAt
	}
}

func TestRecordViewOnMissingID(t *testing.T) {
	s := openTestStore(t)
	// best-effort by contract: a missing record is materialized, not an error
	if err := s.RecordView(context.Background(), "phantom"); err != nil {
		t.Fatalf("RecordView on missing id failed: %v", err)
	}
	st, err := s.GetStats(context.Background(), "phantom")
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if st.Views != 1 {
		t.Errorf("materialized record views: got %d, want 1", st.Views)
	}
}

func TestListAll(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	infos, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll on empty store failed: %v", err)
	}
	if infos == nil || len(infos) != 0 {
		t.Errorf("empty store listing: got %v, want empty slice", infos)
	}

	mustCreate(t, s, "charlie", "c", domain.ContentTypePlaintext, "")
	mustCreate(t, s, "alpha", "a", domain.ContentTypeRedirect, "tok")
	mustCreate(t, s, "bravo", "b", domain.ContentTypePlaintext, "")
	if err := s.RecordView(ctx, "bravo"); err != nil {
		t.Fatalf("RecordView failed: %v", err)
	}

	infos, err = s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("listing size: got %d, want 3", len(infos))
	}
	for i, want := range []string{"alpha", "bravo", "charlie"} {
		if infos[i].ID != want {
			t.Errorf("listing order at %d: got %q, want %q", i, infos[i].ID, want)
		}
	}
	if infos[0].Type != domain.ContentTypeRedirect {
		t.Errorf("alpha type: got %v, want redirect", infos[0].Type)
	}
	if infos[1].Stats.Views != 1 {
		t.Errorf("bravo views: got %d, want 1", infos[1].Stats.Views)
	}
}

func TestListSkipsMissingContent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, "whole", "kept", domain.ContentTypePlaintext, "")
	mustCreate(t, s, "torn", "dropped", domain.ContentTypePlaintext, "")

	// tear one pasty apart to simulate a partially damaged store
	err := s.kv.Update(ctx, func(tx *WriteTx) error {
		return tx.Delete(TableContent, "torn")
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	infos, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(infos) != 1 || infos[0].ID != "whole" {
		t.Errorf("listing with torn row: got %v, want only %q", infos, "whole")
	}
}

func TestListSubstitutesMissingStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, "bare", "x", domain.ContentTypePlaintext, "")

	err := s.kv.Update(ctx, func(tx *WriteTx) error {
		return tx.Delete(TableStats, "bare")
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	infos, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("listing size: got %d, want 1", len(infos))
	}
	if infos[0].Stats.Views != 0 {
		t.Errorf("substituted stats views: got %d, want 0", infos[0].Stats.Views)
	}
}

func TestCorruptTypeByte(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, "bad", "x", domain.ContentTypePlaintext, "")

	err := s.kv.Update(ctx, func(tx *WriteTx) error {
		return tx.Set(TableType, "bad", []byte{0xff})
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if _, err := s.Get(ctx, "bad"); !errors.Is(err, domain.ErrStorage) {
		t.Errorf("Get with corrupt type byte: got %v, want storage failure", err)
	}
	if _, err := s.ListAll(ctx); !errors.Is(err, domain.ErrStorage) {
		t.Errorf("ListAll with corrupt type byte: got %v, want storage failure", err)
	}
}

func TestCorruptStatsRecord(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, "bad", "x", domain.ContentTypePlaintext, "")

	err := s.kv.Update(ctx, func(tx *WriteTx) error {
		return tx.Set(TableStats, "bad", []byte("short"))
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if _, err := s.GetStats(ctx, "bad"); !errors.Is(err, domain.ErrStorage) {
		t.Errorf("GetStats with corrupt record: got %v, want storage failure", err)
	}
	if err := s.RecordView(ctx, "bad"); !errors.Is(err, domain.ErrStorage) {
		t.Errorf("RecordView with corrupt record: got %v, want storage failure", err)
	}
}

func TestNoneTokenRowUnprotected(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// a row written as explicit "no token" must behave like an unprotected pasty
	err := s.kv.Update(ctx, func(tx *WriteTx) error {
		if err := tx.Set(TableType, "legacy", codec.EncodeType(domain.ContentTypePlaintext)); err != nil {
			return err
		}
		if err := tx.Set(TableContent, "legacy", codec.EncodeString("old data")); err != nil {
			return err
		}
		return tx.Set(TableToken, "legacy", codec.EncodeOptString("", false))
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	created, err := s.CreateOrUpdate(ctx, "legacy", "new data", domain.ContentTypePlaintext, "")
	if err != nil {
		t.Fatalf("update of legacy row failed: %v", err)
	}
	if created {
		t.Error("existing legacy row reported as creation")
	}
}

func TestConcurrentCreatorsSingleWinner(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	const n = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := []string{}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := string(rune('a' + i%26))
			created, err := s.CreateOrUpdate(ctx, "contested", "body", domain.ContentTypePlaintext, token)
			if err == nil && created {
				mu.Lock()
				winners = append(winners, token)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if len(winners) != 1 {
		t.Fatalf("creators claiming the id: got %d, want exactly 1", len(winners))
	}
	// the winner's token now rules the pasty
	if _, err := s.CreateOrUpdate(ctx, "contested", "v2", domain.ContentTypePlaintext, winners[0]); err != nil {
		t.Errorf("winner's token rejected: %v", err)
	}
}

func TestConcurrentViewsAllCounted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, "busy", "x", domain.ContentTypePlaintext, "")

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.RecordView(ctx, "busy"); err != nil {
				t.Errorf("RecordView failed: %v", err)
			}
		}()
	}
	wg.Wait()

	st, err := s.GetStats(ctx, "busy")
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if st.Views != n {
		t.Errorf("concurrent views: got %d, want %d", st.Views, n)
	}
}
