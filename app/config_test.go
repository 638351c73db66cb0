package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sequencer "github.com/nnsW3/signup-sequencer"
	"github.com/nnsW3/signup-sequencer/database/redis"
)

func TestConfig_SaveLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), DefaultConfigFile)
	conf := DefaultConfig()
	conf.Storage.Backend = StorageRedis
	conf.Storage.Redis = &redis.RedisConfig{Addr: "127.0.0.1:6379", Namespace: "sequencer"}
	conf.Ethereum.ContractAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	require.NoError(t, conf.Save(file))

	loaded, err := LoadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, conf, loaded)
	assert.Equal(t, sequencer.DefaultInitialLeaf, loaded.Tree.InitialLeaf)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	for name, mutate := range map[string]func(*Config){
		"depth":   func(c *Config) { c.Tree.Depth = 0 },
		"hasher":  func(c *Config) { c.Tree.Hasher = "sha256" },
		"backend": func(c *Config) { c.Storage.Backend = "s3" },
		"redis":   func(c *Config) { c.Storage.Backend = StorageRedis },
		"cache":   func(c *Config) { c.ProofCacheSize = 0 },
		"workers": func(c *Config) { c.Workers = -1 },
	} {
		conf := DefaultConfig()
		mutate(conf)
		assert.ErrorIs(t, conf.Validate(), ErrInvalidConfig, name)
	}
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	for _, conf := range []*StorageConfig{
		{Backend: StorageFile, Path: filepath.Join(dir, "commitments.json")},
		{Backend: StorageMemory},
		{Backend: StorageLevelDB, LevelDB: LevelDBConfig{Path: filepath.Join(dir, "db")}},
	} {
		store, err := OpenStore(conf)
		require.NoError(t, err, conf.Backend)
		require.NoError(t, store.Close())
	}

	_, err := OpenStore(&StorageConfig{Backend: "s3"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(&LoggerConfig{Environment: "development"})
	require.NoError(t, err)
	logger.Debug("hello", "key", 1)

	_, err = NewLogger(&LoggerConfig{Environment: "staging"})
	assert.Error(t, err)
}
