package sequencer

import (
	"github.com/pkg/errors"

	"github.com/nnsW3/signup-sequencer/field"
)

// Status selects the tree view a proof is read from.
type Status uint8

const (
	// StatusPending reads the latest view, including unconfirmed inserts.
	StatusPending Status = iota
	// StatusMined reads the ledger-confirmed view.
	StatusMined
)

// ParseStatus accepts "pending" and "mined".
func ParseStatus(s string) (Status, error) {
	switch s {
	case "pending":
		return StatusPending, nil
	case "mined":
		return StatusMined, nil
	}
	return 0, errors.Wrapf(ErrUnknownStatus, "%q", s)
}

func (s Status) String() string {
	if s == StatusMined {
		return "mined"
	}
	return "pending"
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// TreeItem addresses a leaf in one of the two views.
type TreeItem struct {
	Status    Status
	LeafIndex int
}

// InclusionProof certifies a leaf against the root of one view at the time
// it was read.
type InclusionProof struct {
	Status Status        `json:"status"`
	Root   field.Element `json:"root"`
	Proof  Proof         `json:"proof"`
}

// TreeState pairs the mined view with the latest view branched from it.
// The mined view never runs ahead of the latest one, and both agree on
// every leaf below the mined NextLeaf.
type TreeState struct {
	mined  *TreeVersion
	latest *TreeVersion
}

func NewTreeState(mined, latest *TreeVersion) TreeState {
	return TreeState{mined: mined, latest: latest}
}

func (s TreeState) Mined() *TreeVersion {
	return s.mined
}

func (s TreeState) Latest() *TreeVersion {
	return s.latest
}

// View returns the version status reads from.
func (s TreeState) View(status Status) *TreeVersion {
	if status == StatusMined {
		return s.mined
	}
	return s.latest
}

// GetProof reads the root and sibling path of item from the selected view.
func (s TreeState) GetProof(item TreeItem) (*InclusionProof, error) {
	root, proof, err := s.View(item.Status).Proof(item.LeafIndex)
	if err != nil {
		return nil, errors.Wrapf(err, "%s proof", item.Status)
	}
	return &InclusionProof{
		Status: item.Status,
		Root:   root,
		Proof:  proof,
	}, nil
}
