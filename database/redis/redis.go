// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package redis

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/go-redis/redis/v8"
	stdErrors "github.com/pkg/errors"

	"github.com/nnsW3/signup-sequencer/database"
	"github.com/nnsW3/signup-sequencer/utils"
)

// scanCount is the SCAN page size used by Iterate.
const scanCount = 256

var (
	_ database.Store   = (*Database)(nil)
	_ database.Batcher = (*batch)(nil)
)

// New dials the node or cluster described by config and returns a wrapped
// Redis object.
func New(config *RedisConfig, opts ...Option) (*Database, error) {
	var client RedisClient
	if len(config.ClusterAddr) > 0 {
		client = redis.NewClusterClient(config.clusterOptions())
	} else {
		client = redis.NewClient(config.clientOptions())
	}
	ctx, cancel := context.WithTimeout(context.Background(), config.dialTimeout())
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	opts = append([]Option{WithNamespace(config.Namespace)}, opts...)
	return NewFromExistRedisClient(client, opts...), nil
}

// NewFromExistRedisClient returns a wrapped Redis object.
func NewFromExistRedisClient(client RedisClient, opts ...Option) *Database {
	db := &Database{
		db: client,
	}
	for _, opt := range opts {
		opt.Apply(db)
	}
	return db
}

// WrapWithNamespace returns a wrapped Redis object.
// The namespace is the prefix that the datastore.
func WrapWithNamespace(db *Database, namespace string) *Database {
	return &Database{
		namespace: []byte(namespace),
		db:        db.db,
	}
}

type Database struct {
	namespace []byte
	db        RedisClient // redis client
}

// wrapKey returns a wrapper key with namespace.
func wrapKey(namespace, key []byte) string {
	if len(namespace) > 0 {
		return utils.BytesToString((bytes.Join([][]byte{namespace, key}, []byte(":"))))
	}
	return utils.BytesToString(key)
}

// Close flushes any pending data to disk and closes
// all io accesses to the underlying key-value store.
func (db *Database) Close() error {
	return db.db.Close()
}

// Has retrieves if a key is present in the key-value store.
func (db *Database) Has(key []byte) (bool, error) {
	dat, err := db.db.Exists(context.Background(), wrapKey(db.namespace, key)).Result()
	if err != nil {
		return false, err
	}
	return dat > 0, nil
}

// Get retrieves the given key if it's present in the key-value store.
func (db *Database) Get(key []byte) ([]byte, error) {
	dat, err := db.db.Get(context.Background(), wrapKey(db.namespace, key)).Result()
	if err != nil && stdErrors.Is(redis.Nil, err) {
		return nil, database.ErrDatabaseNotFound
	}
	return utils.StringToBytes(dat), err
}

// Set inserts the given value into the key-value store.
func (db *Database) Set(key []byte, value []byte) error {
	return db.db.Set(context.Background(), wrapKey(db.namespace, key), value, 0).Err()
}

// Delete removes the key from the key-value store.
func (db *Database) Delete(key []byte) error {
	return db.db.Del(context.Background(), wrapKey(db.namespace, key)).Err()
}

// Iterate scans the keys under prefix and reads them back in key order.
// It is not a snapshot: keys written during the scan may or may not show.
func (db *Database) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	ctx := context.Background()
	strip := 0
	if len(db.namespace) > 0 {
		strip = len(db.namespace) + 1
	}
	match := wrapKey(db.namespace, prefix) + "*"

	var (
		keys   []string
		cursor uint64
	)
	for {
		page, next, err := db.db.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return err
		}
		keys = append(keys, page...)
		if next == 0 {
			break
		}
		cursor = next
	}
	sort.Strings(keys)

	for start := 0; start < len(keys); start += scanCount {
		end := start + scanCount
		if end > len(keys) {
			end = len(keys)
		}
		pipe := db.db.Pipeline()
		cmds := make([]*redis.StringCmd, 0, end-start)
		for _, key := range keys[start:end] {
			cmds = append(cmds, pipe.Get(ctx, key))
		}
		if _, err := pipe.Exec(ctx); err != nil && !stdErrors.Is(err, redis.Nil) {
			return err
		}
		for i, cmd := range cmds {
			value, err := cmd.Result()
			if stdErrors.Is(err, redis.Nil) {
				// deleted since the scan
				continue
			}
			if err != nil {
				return err
			}
			key := utils.StringToBytes(keys[start+i][strip:])
			if err := fn(key, utils.StringToBytes(value)); err != nil {
				return err
			}
		}
	}
	return nil
}

// NewBatch creates a write-only key-value store that buffers changes to its host
// database until a final write is called.
func (db *Database) NewBatch() database.Batcher {
	return &batch{
		db:        db.db,
		namespace: db.namespace,
		b:         db.db.Pipeline(),
	}
}

// batch is a write-only redis pipeline that commits changes to its host database
// when Write is called. A batch cannot be used concurrently.
type batch struct {
	namespace []byte
	db        RedisClient
	b         redis.Pipeliner
	size      int
	lock      sync.RWMutex
}

// Set inserts the given value into the batch for later committing.
func (b *batch) Set(key, value []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.b.Set(context.Background(), wrapKey(b.namespace, key), value, 0).Err()
	b.size += len(key) + len(value)
	return nil
}

// Delete inserts the a key removal into the batch for later committing.
func (b *batch) Delete(key []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.b.Del(context.Background(), wrapKey(b.namespace, key))
	b.size += len(key)
	return nil
}

// Write flushes any accumulated data to disk.
func (b *batch) Write() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.size == 0 {
		return nil
	}
	_, err := b.b.Exec(context.Background())
	if err != nil {
		return err
	}
	b.size = 0
	return nil
}

// ValueSize retrieves the amount of data queued up for writing.
func (b *batch) ValueSize() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.size
}

// Reset resets the batch for reuse.
func (b *batch) Reset() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.b.Discard()
	b.size = 0
}
