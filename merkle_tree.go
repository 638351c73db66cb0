package sequencer

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/nnsW3/signup-sequencer/field"
)

var _ Tree = (*MerkleTree)(nil)

// MerkleTree is an incremental Merkle tree of fixed depth. Only the touched
// prefix of every level is materialized; the rest of a level equals the
// hash of an empty subtree of that height.
type MerkleTree struct {
	depth  int
	hasher Hasher

	// empty[level] is the root of an empty subtree of height level,
	// empty[0] being the initial leaf. Shared between clones.
	empty []field.Element
	// nodes[0] are the leaves, nodes[depth] the root.
	nodes [][]field.Element
	root  field.Element
}

// NewMerkleTree creates a tree whose leaves all equal initialLeaf. It panics
// if depth is outside [1, MaxDepth].
func NewMerkleTree(depth int, initialLeaf field.Element, hasher Hasher) *MerkleTree {
	if depth < 1 || depth > MaxDepth {
		panic(errors.Wrapf(ErrInvalidDepth, "got %d", depth))
	}
	empty := make([]field.Element, depth+1)
	empty[0] = initialLeaf
	for level := 1; level <= depth; level++ {
		empty[level] = hasher.Hash(empty[level-1], empty[level-1])
	}
	return &MerkleTree{
		depth:  depth,
		hasher: hasher,
		empty:  empty,
		nodes:  make([][]field.Element, depth+1),
		root:   empty[depth],
	}
}

func (t *MerkleTree) Depth() int {
	return t.depth
}

// Capacity is the number of leaves, 2^depth.
func (t *MerkleTree) Capacity() int {
	return 1 << t.depth
}

func (t *MerkleTree) Root() field.Element {
	return t.root
}

func (t *MerkleTree) checkIndex(index int) error {
	if index < 0 || index >= t.Capacity() {
		return errors.Wrapf(ErrIndexOutOfRange, "index %d, depth %d", index, t.depth)
	}
	return nil
}

// Set replaces a leaf and rehashes its path to the root. An index outside
// the tree means the persisted state was built for another depth, which
// is unrecoverable, so Set panics.
func (t *MerkleTree) Set(index int, value field.Element) {
	if err := t.checkIndex(index); err != nil {
		panic(err)
	}
	t.grow(0, index)
	t.nodes[0][index] = value

	pos := index
	for level := 0; level < t.depth; level++ {
		left, right := t.node(level, pos&^1), t.node(level, pos|1)
		pos >>= 1
		t.grow(level+1, pos)
		t.nodes[level+1][pos] = t.hasher.Hash(left, right)
	}
	t.root = t.nodes[t.depth][0]
}

// Get returns the leaf at index, or the initial leaf if it was never set.
func (t *MerkleTree) Get(index int) field.Element {
	if err := t.checkIndex(index); err != nil {
		panic(err)
	}
	return t.node(0, index)
}

// Leaves returns a copy of the materialized leaf prefix.
func (t *MerkleTree) Leaves() []field.Element {
	leaves := make([]field.Element, len(t.nodes[0]))
	copy(leaves, t.nodes[0])
	return leaves
}

// Proof returns the siblings of the path from the leaf at index to the root.
func (t *MerkleTree) Proof(index int) (Proof, error) {
	if err := t.checkIndex(index); err != nil {
		return nil, err
	}
	proof := make(Proof, t.depth)
	pos := index
	for level := 0; level < t.depth; level++ {
		side := SideRight
		if pos&1 == 1 {
			side = SideLeft
		}
		proof[level] = Branch{Side: side, Sibling: t.node(level, pos^1)}
		pos >>= 1
	}
	return proof, nil
}

// Clone returns a deep copy that shares nothing mutable with t.
func (t *MerkleTree) Clone() *MerkleTree {
	nodes := make([][]field.Element, len(t.nodes))
	for level := range t.nodes {
		nodes[level] = make([]field.Element, len(t.nodes[level]))
		copy(nodes[level], t.nodes[level])
	}
	return &MerkleTree{
		depth:  t.depth,
		hasher: t.hasher,
		empty:  t.empty,
		nodes:  nodes,
		root:   t.root,
	}
}

func (t *MerkleTree) node(level, pos int) field.Element {
	if pos < len(t.nodes[level]) {
		return t.nodes[level][pos]
	}
	return t.empty[level]
}

// grow extends a level with empty subtrees up to and including pos.
func (t *MerkleTree) grow(level, pos int) {
	for len(t.nodes[level]) <= pos {
		t.nodes[level] = append(t.nodes[level], t.empty[level])
	}
}

// Side is the side of the path on which a sibling sits.
type Side uint8

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	if s == SideLeft {
		return "left"
	}
	return "right"
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(text []byte) error {
	switch string(text) {
	case "left":
		*s = SideLeft
	case "right":
		*s = SideRight
	default:
		return errors.Errorf("unknown branch side %q", text)
	}
	return nil
}

type Branch struct {
	Side    Side          `json:"side"`
	Sibling field.Element `json:"sibling"`
}

// Proof is an ordered sibling path from a leaf to the root.
type Proof []Branch

var _ json.Marshaler = Proof(nil)

func (p Proof) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Branch(p))
}

// LeafIndex recovers the position of the proven leaf from the branch sides.
func (p Proof) LeafIndex() int {
	index := 0
	for level, branch := range p {
		if branch.Side == SideLeft {
			index |= 1 << level
		}
	}
	return index
}

// Root recombines leaf with the siblings of the path.
func (p Proof) Root(leaf field.Element, hasher Hasher) field.Element {
	node := leaf
	for _, branch := range p {
		if branch.Side == SideRight {
			node = hasher.Hash(node, branch.Sibling)
		} else {
			node = hasher.Hash(branch.Sibling, node)
		}
	}
	return node
}

// VerifyProof checks that leaf is included under root.
func VerifyProof(root, leaf field.Element, proof Proof, hasher Hasher) bool {
	return proof.Root(leaf, hasher) == root
}
