// Package storage persists the list of inserted commitments so the tree can
// be rebuilt on startup.
package storage

import (
	"context"

	"github.com/pkg/errors"

	sequencer "github.com/nnsW3/signup-sequencer"
	"github.com/nnsW3/signup-sequencer/field"
)

// DefaultCommitmentsFile is where FileStore writes by default.
const DefaultCommitmentsFile = "./commitments.json"

var ErrCorruptSnapshot = errors.New("corrupt commitments snapshot")

// Snapshot is the persisted state: the last ledger block observed at write
// time and every commitment, indexed by leaf.
type Snapshot struct {
	LastBlock   uint64          `json:"lastBlock"`
	Commitments []field.Element `json:"commitments"`
}

// Updates returns the commitments as tree updates in leaf order.
func (s *Snapshot) Updates() []sequencer.TreeUpdate {
	updates := make([]sequencer.TreeUpdate, len(s.Commitments))
	for i, c := range s.Commitments {
		updates[i] = sequencer.NewTreeUpdate(i, c)
	}
	return updates
}

// Store saves and loads snapshots. Load returns an empty snapshot when
// nothing was saved yet.
type Store interface {
	Save(ctx context.Context, snapshot *Snapshot) error
	Load(ctx context.Context) (*Snapshot, error)
	Close() error
}
