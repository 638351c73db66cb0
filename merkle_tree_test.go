package sequencer

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nnsW3/signup-sequencer/field"
)

var testLeaf = field.FromUint64(0xabad1dea)

// naiveRoot rebuilds every level from the full leaf array.
func naiveRoot(leaves map[int]field.Element, depth int, initial field.Element, hasher Hasher) field.Element {
	level := make([]field.Element, 1<<depth)
	for i := range level {
		level[i] = initial
	}
	for i, leaf := range leaves {
		level[i] = leaf
	}
	for len(level) > 1 {
		next := make([]field.Element, len(level)/2)
		for i := range next {
			next[i] = hasher.Hash(level[2*i], level[2*i+1])
		}
		level = next
	}
	return level[0]
}

func TestMerkleTree_EmptyRoot(t *testing.T) {
	hasher := MimcHasher{}
	tree := NewMerkleTree(2, testLeaf, hasher)
	inner := hasher.Hash(testLeaf, testLeaf)
	assert.Equal(t, hasher.Hash(inner, inner), tree.Root())
	assert.Equal(t, 4, tree.Capacity())
	assert.Equal(t, 2, tree.Depth())
	assert.Empty(t, tree.Leaves())
	assert.Equal(t, testLeaf, tree.Get(3))
}

func TestMerkleTree_SetMatchesFullRebuild(t *testing.T) {
	const depth = 5
	hasher := MimcHasher{}
	tree := NewMerkleTree(depth, testLeaf, hasher)
	leaves := make(map[int]field.Element)
	rnd := rand.New(rand.NewSource(7))

	for i := 0; i < 40; i++ {
		index := rnd.Intn(1 << depth)
		value := field.FromUint64(rnd.Uint64())
		tree.Set(index, value)
		leaves[index] = value
		require.Equal(t, naiveRoot(leaves, depth, testLeaf, hasher), tree.Root(), "after set %d", i)
	}
	for index, value := range leaves {
		assert.Equal(t, value, tree.Get(index))
	}
}

func TestMerkleTree_Proof(t *testing.T) {
	const depth = 4
	for _, hasher := range []Hasher{MimcHasher{}, PoseidonHasher{}} {
		tree := NewMerkleTree(depth, testLeaf, hasher)
		for i := 0; i < 11; i++ {
			tree.Set(i, field.FromUint64(uint64(100+i)))
		}
		for i := 0; i < tree.Capacity(); i++ {
			proof, err := tree.Proof(i)
			require.NoError(t, err)
			require.Len(t, proof, depth)
			assert.Equal(t, i, proof.LeafIndex())
			assert.True(t, VerifyProof(tree.Root(), tree.Get(i), proof, hasher), "leaf %d", i)
			assert.False(t, VerifyProof(tree.Root(), field.FromUint64(1), proof, hasher), "leaf %d", i)
		}
	}
}

func TestMerkleTree_ProofSides(t *testing.T) {
	tree := NewMerkleTree(2, testLeaf, MimcHasher{})
	tree.Set(0, field.FromUint64(1))
	tree.Set(1, field.FromUint64(2))

	proof, err := tree.Proof(1)
	require.NoError(t, err)
	assert.Equal(t, Branch{Side: SideLeft, Sibling: field.FromUint64(1)}, proof[0])
	assert.Equal(t, SideRight, proof[1].Side)

	raw, err := json.Marshal(proof)
	require.NoError(t, err)
	var decoded Proof
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, proof, decoded)
	assert.Contains(t, string(raw), `"side":"left"`)
}

func TestMerkleTree_OutOfRange(t *testing.T) {
	tree := NewMerkleTree(3, testLeaf, MimcHasher{})
	assert.Panics(t, func() { tree.Set(8, testLeaf) })
	assert.Panics(t, func() { tree.Set(-1, testLeaf) })
	assert.Panics(t, func() { tree.Get(8) })

	_, err := tree.Proof(8)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	assert.Panics(t, func() { NewMerkleTree(0, testLeaf, MimcHasher{}) })
	assert.Panics(t, func() { NewMerkleTree(MaxDepth+1, testLeaf, MimcHasher{}) })
}

func TestMerkleTree_Clone(t *testing.T) {
	tree := NewMerkleTree(3, testLeaf, MimcHasher{})
	tree.Set(0, field.FromUint64(1))
	clone := tree.Clone()
	require.Equal(t, tree.Root(), clone.Root())

	clone.Set(1, field.FromUint64(2))
	assert.NotEqual(t, tree.Root(), clone.Root())
	assert.Equal(t, testLeaf, tree.Get(1))
	assert.Len(t, tree.Leaves(), 1)
	assert.Len(t, clone.Leaves(), 2)
}

func TestNewHasher(t *testing.T) {
	h, err := NewHasher("poseidon")
	require.NoError(t, err)
	assert.IsType(t, PoseidonHasher{}, h)

	h, err = NewHasher("MiMC")
	require.NoError(t, err)
	assert.IsType(t, MimcHasher{}, h)

	_, err = NewHasher("sha256")
	assert.ErrorIs(t, err, ErrUnknownHasher)
}

func TestPoseidonHasher(t *testing.T) {
	// circomlib poseidon([1, 2])
	want := field.MustFromDecimal("7853200120776062878684798364095072458815029376092732009249414926327459813530")
	assert.Equal(t, want, PoseidonHasher{}.Hash(field.FromUint64(1), field.FromUint64(2)))
}
