package app

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	sequencer "github.com/nnsW3/signup-sequencer"
	"github.com/nnsW3/signup-sequencer/database/redis"
	"github.com/nnsW3/signup-sequencer/field"
	"github.com/nnsW3/signup-sequencer/ledger"
	"github.com/nnsW3/signup-sequencer/storage"
)

const (
	StorageFile    = "file"
	StorageMemory  = "memory"
	StorageLevelDB = "leveldb"
	StorageRedis   = "redis"

	DefaultConfigFile     = "config.toml"
	DefaultAddress        = "127.0.0.1:8080"
	DefaultLevelDBPath    = "./commitments.db"
	DefaultProofCacheSize = 4096
	DefaultWorkers        = 16
)

var ErrInvalidConfig = errors.New("invalid config")

type TreeConfig struct {
	Depth       int           `toml:"depth"`
	InitialLeaf field.Element `toml:"initial_leaf"`
	Hasher      string        `toml:"hasher"`
}

// Options turns the section into tree options.
func (c *TreeConfig) Options() ([]sequencer.Option, error) {
	hasher, err := sequencer.NewHasher(c.Hasher)
	if err != nil {
		return nil, err
	}
	if c.Depth <= 0 || c.Depth > sequencer.MaxDepth {
		return nil, errors.Wrapf(sequencer.ErrInvalidDepth, "%d", c.Depth)
	}
	return []sequencer.Option{
		sequencer.TreeDepth(c.Depth),
		sequencer.InitialLeaf(c.InitialLeaf),
		sequencer.UseHasher(hasher),
	}, nil
}

type LevelDBConfig struct {
	Path string `toml:"path"`
	// Cache is in megabytes; zero sizes it from host memory.
	Cache   int `toml:"cache,omitempty"`
	Handles int `toml:"handles,omitempty"`
}

// StorageConfig picks where commitments are persisted: a JSON file, or a
// key-value backend (memory, leveldb, redis).
type StorageConfig struct {
	Backend string             `toml:"backend"`
	Path    string             `toml:"path,omitempty"`
	LevelDB LevelDBConfig      `toml:"leveldb"`
	Redis   *redis.RedisConfig `toml:"redis,omitempty"`
}

type Config struct {
	Address        string        `toml:"address"`
	ProofCacheSize int           `toml:"proof_cache_size"`
	Workers        int           `toml:"workers"`
	Tree           TreeConfig    `toml:"tree"`
	Storage        StorageConfig `toml:"storage"`
	Ethereum       ledger.Config `toml:"ethereum"`
	Logger         LoggerConfig  `toml:"logger"`
}

func DefaultConfig() *Config {
	return &Config{
		Address:        DefaultAddress,
		ProofCacheSize: DefaultProofCacheSize,
		Workers:        DefaultWorkers,
		Tree: TreeConfig{
			Depth:       sequencer.DefaultDepth,
			InitialLeaf: sequencer.DefaultInitialLeaf,
			Hasher:      sequencer.HasherPoseidon,
		},
		Storage: StorageConfig{
			Backend: StorageFile,
			Path:    storage.DefaultCommitmentsFile,
			LevelDB: LevelDBConfig{Path: DefaultLevelDBPath},
		},
		Ethereum: ledger.Config{
			URL: "http://localhost:8545",
		},
		Logger: LoggerConfig{
			Environment: "production",
		},
	}
}

// LoadConfig reads a TOML file over the defaults.
func LoadConfig(file string) (*Config, error) {
	conf := DefaultConfig()
	if _, err := toml.DecodeFile(file, conf); err != nil {
		return nil, errors.Wrapf(err, "load config %s", file)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Save writes the config as TOML.
func (c *Config) Save(file string) error {
	f, err := os.Create(file)
	if err != nil {
		return errors.Wrap(err, "create config")
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return errors.Wrap(err, "encode config")
	}
	return f.Sync()
}

func (c *Config) Validate() error {
	if _, err := c.Tree.Options(); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	switch strings.ToLower(c.Storage.Backend) {
	case StorageFile, StorageMemory, StorageLevelDB:
	case StorageRedis:
		if c.Storage.Redis == nil {
			return errors.Wrap(ErrInvalidConfig, "redis backend without [storage.redis]")
		}
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown storage backend %q", c.Storage.Backend)
	}
	if c.ProofCacheSize <= 0 {
		return errors.Wrap(ErrInvalidConfig, "proof_cache_size must be positive")
	}
	if c.Workers <= 0 {
		return errors.Wrap(ErrInvalidConfig, "workers must be positive")
	}
	return nil
}
