package leveldb

import (
	"testing"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/nnsW3/signup-sequencer/database"
	"github.com/nnsW3/signup-sequencer/database/dbtest"
)

func TestLevelDB(t *testing.T) {
	t.Run("DatabaseSuite", func(t *testing.T) {
		dbtest.TestDatabaseSuite(t, func() database.Store {
			db, err := leveldb.Open(storage.NewMemStorage(), nil)
			if err != nil {
				t.Fatal(err)
			}
			return &Database{
				db: db,
			}
		})
	})
}

func TestLevelDBWithNamespace(t *testing.T) {
	t.Run("DatabaseSuite", func(t *testing.T) {
		dbtest.TestDatabaseSuite(t, func() database.Store {
			db, err := leveldb.Open(storage.NewMemStorage(), nil)
			if err != nil {
				t.Fatal(err)
			}

			return WrapWithNamespace(&Database{
				db: db,
			}, "test")
		})
	})
}

func TestNamespacesAreIsolated(t *testing.T) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		t.Fatal(err)
	}
	base := NewFromExistLevelDB(db)
	defer base.Close()
	a, b := WrapWithNamespace(base, "a"), WrapWithNamespace(base, "b")

	if err := a.Set([]byte("update:1"), []byte("x")); err != nil {
		t.Fatal(err)
	}
	if has, err := b.Has([]byte("update:1")); err != nil || has {
		t.Fatalf("key leaked across namespaces: %t %v", has, err)
	}
	calls := 0
	if err := b.Iterate([]byte("update:"), func(key, value []byte) error {
		calls++
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Fatalf("iterated %d foreign keys", calls)
	}
}

func TestCacheForHost(t *testing.T) {
	cache := CacheForHost()
	if cache < minCache || cache > maxCache {
		t.Fatalf("cache %d outside [%d, %d]", cache, minCache, maxCache)
	}
}
