package storage

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/nnsW3/signup-sequencer/database"
	"github.com/nnsW3/signup-sequencer/field"
	"github.com/nnsW3/signup-sequencer/utils"
)

var (
	headerKey    = []byte("snapshot")
	updatePrefix = []byte("update:")
)

var _ Store = (*KVStore)(nil)

type storageHeader struct {
	LastBlock uint64
	Count     uint64
}

type storageUpdate struct {
	LeafIndex uint64
	Element   field.Element
}

func updateKey(index uint64) []byte {
	return append(utils.CopyBytes(updatePrefix), utils.Uint64ToBytes(index)...)
}

// KVStore keeps one RLP record per commitment plus a header in a
// database.Store. Commitments are append-only, so a save only writes the
// records past the previously saved count.
type KVStore struct {
	db   database.Store
	lock sync.Mutex
}

func NewKVStore(db database.Store) *KVStore {
	return &KVStore{db: db}
}

func (s *KVStore) header() (*storageHeader, error) {
	buf, err := s.db.Get(headerKey)
	if errors.Is(err, database.ErrDatabaseNotFound) {
		return &storageHeader{}, nil
	}
	if err != nil {
		return nil, err
	}
	header := &storageHeader{}
	if err := rlp.DecodeBytes(buf, header); err != nil {
		return nil, errors.Wrapf(ErrCorruptSnapshot, "header: %v", err)
	}
	return header, nil
}

func (s *KVStore) Save(ctx context.Context, snapshot *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	prev, err := s.header()
	if err != nil {
		return err
	}
	count := uint64(len(snapshot.Commitments))

	batch := s.db.NewBatch()
	for i := prev.Count; i < count; i++ {
		buf, err := rlp.EncodeToBytes(&storageUpdate{LeafIndex: i, Element: snapshot.Commitments[i]})
		if err != nil {
			return err
		}
		if err := batch.Set(updateKey(i), buf); err != nil {
			return err
		}
	}
	for i := count; i < prev.Count; i++ {
		if err := batch.Delete(updateKey(i)); err != nil {
			return err
		}
	}
	buf, err := rlp.EncodeToBytes(&storageHeader{LastBlock: snapshot.LastBlock, Count: count})
	if err != nil {
		return err
	}
	if err := batch.Set(headerKey, buf); err != nil {
		return err
	}
	return errors.Wrap(batch.Write(), "write commitments")
}

func (s *KVStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	header, err := s.header()
	if err != nil {
		return nil, err
	}
	snapshot := &Snapshot{
		LastBlock:   header.LastBlock,
		Commitments: make([]field.Element, 0, header.Count),
	}
	err = s.db.Iterate(updatePrefix, func(key, value []byte) error {
		update := &storageUpdate{}
		if err := rlp.DecodeBytes(value, update); err != nil {
			return errors.Wrapf(ErrCorruptSnapshot, "record %x: %v", key, err)
		}
		if len(key) != len(updatePrefix)+8 || utils.BytesToUint64(key[len(updatePrefix):]) != update.LeafIndex {
			return errors.Wrapf(ErrCorruptSnapshot, "record %x holds leaf %d", key, update.LeafIndex)
		}
		if update.LeafIndex >= header.Count {
			return nil
		}
		if update.LeafIndex != uint64(len(snapshot.Commitments)) {
			return errors.Wrapf(ErrCorruptSnapshot, "missing leaf %d", len(snapshot.Commitments))
		}
		snapshot.Commitments = append(snapshot.Commitments, update.Element)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if uint64(len(snapshot.Commitments)) != header.Count {
		return nil, errors.Wrapf(ErrCorruptSnapshot, "have %d of %d leaves", len(snapshot.Commitments), header.Count)
	}
	return snapshot, nil
}

func (s *KVStore) Close() error {
	return s.db.Close()
}
