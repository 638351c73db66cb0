// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package redis

import (
	"time"

	"github.com/go-redis/redis/v8"
)

const defaultDialTimeout = 5 * time.Second

// RedisConfig describes how to reach a single node or, when ClusterAddr is
// set, a cluster. It is read from the [storage.redis] config section.
type RedisConfig struct {
	Addr        string        `toml:"addr"`
	ClusterAddr []string      `toml:"cluster_addr,omitempty"`
	Username    string        `toml:"username,omitempty"`
	Password    string        `toml:"password,omitempty"`
	PoolSize    int           `toml:"pool_size,omitempty"`
	MaxRetries  int           `toml:"max_retries,omitempty"`
	DialTimeout time.Duration `toml:"dial_timeout,omitempty"`
	ReadTimeout time.Duration `toml:"read_timeout,omitempty"`
	// Namespace prefixes every key as "<namespace>:<key>".
	Namespace string `toml:"namespace,omitempty"`
}

func (c *RedisConfig) dialTimeout() time.Duration {
	if c.DialTimeout == 0 {
		return defaultDialTimeout
	}
	return c.DialTimeout
}

func (c *RedisConfig) clientOptions() *redis.Options {
	return &redis.Options{
		Addr:        c.Addr,
		PoolSize:    c.PoolSize,
		Username:    c.Username,
		Password:    c.Password,
		MaxRetries:  c.MaxRetries,
		DialTimeout: c.dialTimeout(),
		ReadTimeout: c.ReadTimeout,
	}
}

func (c *RedisConfig) clusterOptions() *redis.ClusterOptions {
	return &redis.ClusterOptions{
		Addrs:       c.ClusterAddr,
		PoolSize:    c.PoolSize,
		Username:    c.Username,
		Password:    c.Password,
		MaxRetries:  c.MaxRetries,
		DialTimeout: c.dialTimeout(),
		ReadTimeout: c.ReadTimeout,
	}
}

// An Option configures a *Database
type Option interface {
	Apply(*Database)
}

// OptionFunc is a function that configures a *Database
type OptionFunc func(*Database)

func (f OptionFunc) Apply(db *Database) {
	f(db)
}

// WithNamespace stores every key under namespace.
func WithNamespace(namespace string) Option {
	return OptionFunc(func(db *Database) {
		if namespace != "" {
			db.namespace = []byte(namespace)
		}
	})
}

// WithHooks attaches command hooks, such as tracing or metrics, to the
// client.
func WithHooks(hooks ...redis.Hook) Option {
	return OptionFunc(func(db *Database) {
		if db.db == nil {
			return
		}
		for _, hook := range hooks {
			db.db.AddHook(hook)
		}
	})
}
