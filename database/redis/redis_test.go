// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package redis

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/nnsW3/signup-sequencer/database"
	"github.com/nnsW3/signup-sequencer/database/dbtest"
)

func TestRedis(t *testing.T) {
	t.Run("DatabaseSuite", func(t *testing.T) {
		dbtest.TestDatabaseSuite(t, func() database.Store {
			mr, err := miniredis.Run()
			if err != nil {
				t.Fatal(err)
			}
			client := redis.NewClient(&redis.Options{
				Addr: mr.Addr(),
			})
			return &Database{
				db: client,
			}
		})
	})
}

func TestRedisWithNamespace(t *testing.T) {
	t.Run("DatabaseSuite", func(t *testing.T) {
		dbtest.TestDatabaseSuite(t, func() database.Store {
			mr, err := miniredis.Run()
			if err != nil {
				t.Fatal(err)
			}
			client := redis.NewClient(&redis.Options{
				Addr: mr.Addr(),
			})

			return WrapWithNamespace(&Database{
				db: client,
			}, "test")
		})
	})
}

func TestNew(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer mr.Close()

	db, err := New(&RedisConfig{Addr: mr.Addr(), Namespace: "sequencer"})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := db.Set([]byte("snapshot"), []byte("1")); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("sequencer:snapshot") {
		t.Fatal("namespace not applied")
	}

	if _, err := New(&RedisConfig{Addr: "127.0.0.1:1"}); err == nil {
		t.Fatal("expected dial failure")
	}
}

type countingHook struct {
	commands  int64
	pipelines int64
}

func (h *countingHook) BeforeProcess(ctx context.Context, _ redis.Cmder) (context.Context, error) {
	return ctx, nil
}

func (h *countingHook) AfterProcess(context.Context, redis.Cmder) error {
	atomic.AddInt64(&h.commands, 1)
	return nil
}

func (h *countingHook) BeforeProcessPipeline(ctx context.Context, _ []redis.Cmder) (context.Context, error) {
	return ctx, nil
}

func (h *countingHook) AfterProcessPipeline(context.Context, []redis.Cmder) error {
	atomic.AddInt64(&h.pipelines, 1)
	return nil
}

func TestOptions(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer mr.Close()

	hook := &countingHook{}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	db := NewFromExistRedisClient(client, WithNamespace("ns"), WithHooks(hook))
	defer db.Close()

	if err := db.Set([]byte("a"), []byte("1")); err != nil {
		t.Fatal(err)
	}
	batch := db.NewBatch()
	if err := batch.Set([]byte("b"), []byte("2")); err != nil {
		t.Fatal(err)
	}
	if err := batch.Write(); err != nil {
		t.Fatal(err)
	}

	if !mr.Exists("ns:a") || !mr.Exists("ns:b") {
		t.Fatal("namespace not applied")
	}
	if got := atomic.LoadInt64(&hook.commands); got != 1 {
		t.Errorf("wrong command count: %d", got)
	}
	if got := atomic.LoadInt64(&hook.pipelines); got != 1 {
		t.Errorf("wrong pipeline count: %d", got)
	}
}

func TestRedisConfig_Options(t *testing.T) {
	conf := &RedisConfig{Addr: "127.0.0.1:6379", PoolSize: 8}
	if got := conf.clientOptions().DialTimeout; got != defaultDialTimeout {
		t.Errorf("wrong dial timeout: %v", got)
	}
	if got := conf.clientOptions().PoolSize; got != 8 {
		t.Errorf("wrong pool size: %d", got)
	}

	conf = &RedisConfig{ClusterAddr: []string{"a:1", "b:2"}, DialTimeout: defaultDialTimeout * 2}
	opts := conf.clusterOptions()
	if len(opts.Addrs) != 2 || opts.DialTimeout != 2*defaultDialTimeout {
		t.Errorf("wrong cluster options: %+v", opts)
	}
}
