package test

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"github.com/GZTimeWalker/berry-pasty/cfg"
	"github.com/GZTimeWalker/berry-pasty/svc/cache"
	"github.com/GZTimeWalker/berry-pasty/svc/db"
	"github.com/GZTimeWalker/berry-pasty/svc/svc"
)

var (
	envLoadOnce sync.Once
	envLoadErr  error
)

func loadTestEnv() error {
	envLoadOnce.Do(func() {

		paths := []string{
			".env.test",
			"../.env.test",
			"../../.env.test",
		}

		for _, p := range paths {
			if absPath, err := filepath.Abs(p); err == nil {
				if _, err := os.Stat(absPath); err == nil {
					if err := godotenv.Load(absPath); err == nil {
						return
					}
				}
			}
		}
	})
	return envLoadErr
}

func createTestConfig(t *testing.T) *cfg.Cfg {

	_ = loadTestEnv()

	c, err := cfg.Load()
	if err != nil {
		fmt.Printf("DEBUG: cfg.Load() failed: %v\n", err)

		c = &cfg.Cfg{
			RandomIDLength: 6,
			IndexText:      "test index",
			MaxContentSize: 1024 * 1024,
			LRUCacheSize:   1000,
			WorkerPoolSize: 8,
			RateLimit: cfg.RateLimitCfg{
				RPM:   100000,
				Burst: 10000,
			},
			ContextTimeout:       30 * time.Second,
			StoreMetricsInterval: time.Minute,
		}
	}

	c.Port = "0"
	c.Environment = "test"
	c.LogLevel = "error"
	c.DatabasePath = filepath.Join(t.TempDir(), "store")
	c.AccessPassword = cfg.NewSecret("")
	c.RateLimit = cfg.RateLimitCfg{RPM: 100000, Burst: 10000}

	return c
}

func createTestStore(t *testing.T, c *cfg.Cfg) (*db.KV, *db.Store) {
	kv, err := db.OpenKV(c.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := kv.Close(); err != nil {
			t.Errorf("closing store: %v", err)
		}
	})
	return kv, db.NewStore(kv)
}

func createTestLRU(t *testing.T, size int) *cache.LRU {
	lru, err := cache.NewLRU(size)
	if err != nil {
		t.Fatal(err)
	}
	return lru
}

func newTestService(t *testing.T) (*svc.Pasty, *db.Store) {
	c := createTestConfig(t)
	_, store := createTestStore(t, c)
	lru := createTestLRU(t, c.LRUCacheSize)
	p := svc.NewPasty(store, lru, c)
	t.Cleanup(p.Shutdown)
	return p, store
}
