package app

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/nnsW3/signup-sequencer/database/leveldb"
	"github.com/nnsW3/signup-sequencer/database/memory"
	"github.com/nnsW3/signup-sequencer/database/redis"
	"github.com/nnsW3/signup-sequencer/storage"
)

// OpenStore builds the commitment store the config selects.
func OpenStore(conf *StorageConfig) (storage.Store, error) {
	switch strings.ToLower(conf.Backend) {
	case StorageFile:
		path := conf.Path
		if path == "" {
			path = storage.DefaultCommitmentsFile
		}
		return storage.NewFileStore(path), nil
	case StorageMemory:
		return storage.NewKVStore(memory.NewMemoryDB()), nil
	case StorageLevelDB:
		cache := conf.LevelDB.Cache
		if cache == 0 {
			cache = leveldb.CacheForHost()
		}
		db, err := leveldb.New(conf.LevelDB.Path, cache, conf.LevelDB.Handles, false)
		if err != nil {
			return nil, errors.Wrapf(err, "open leveldb %s", conf.LevelDB.Path)
		}
		return storage.NewKVStore(db), nil
	case StorageRedis:
		if conf.Redis == nil {
			return nil, errors.Wrap(ErrInvalidConfig, "missing redis config")
		}
		db, err := redis.New(conf.Redis)
		if err != nil {
			return nil, errors.Wrap(err, "connect redis")
		}
		return storage.NewKVStore(db), nil
	}
	return nil, errors.Wrapf(ErrInvalidConfig, "unknown storage backend %q", conf.Backend)
}
