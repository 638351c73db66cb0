package sequencer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("pending")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, s)

	s, err = ParseStatus("mined")
	require.NoError(t, err)
	assert.Equal(t, StatusMined, s)

	_, err = ParseStatus("Mined")
	assert.ErrorIs(t, err, ErrUnknownStatus)
	_, err = ParseStatus("")
	assert.ErrorIs(t, err, ErrUnknownStatus)

	var decoded struct {
		Status Status `json:"status"`
	}
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"status":"confirmed"}`), &decoded), ErrUnknownStatus)
}

func TestTreeState_GetProof(t *testing.T) {
	mined := genesis(t, 2)
	latest := mined.NextVersion()
	latest.Update(2, commitment(2))
	state := NewTreeState(mined, latest)
	assert.Same(t, mined, state.Mined())
	assert.Same(t, latest, state.Latest())
	assert.Same(t, mined, state.View(StatusMined))
	assert.Same(t, latest, state.View(StatusPending))

	pending, err := state.GetProof(TreeItem{Status: StatusPending, LeafIndex: 2})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, pending.Status)
	assert.Equal(t, latest.Root(), pending.Root)
	assert.True(t, VerifyProof(pending.Root, commitment(2), pending.Proof, MimcHasher{}))

	minedProof, err := state.GetProof(TreeItem{Status: StatusMined, LeafIndex: 1})
	require.NoError(t, err)
	assert.Equal(t, mined.Root(), minedProof.Root)
	assert.NotEqual(t, pending.Root, minedProof.Root)
	assert.True(t, VerifyProof(minedProof.Root, commitment(1), minedProof.Proof, MimcHasher{}))

	_, err = state.GetProof(TreeItem{Status: StatusMined, LeafIndex: 1 << 6})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	raw, err := json.Marshal(pending)
	require.NoError(t, err)
	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, `"pending"`, string(decoded["status"]))
	assert.Equal(t, `"`+latest.Root().Hex()+`"`, string(decoded["root"]))
}

func TestCanonicalTreeBuilder(t *testing.T) {
	builder := NewCanonicalTreeBuilder(testOptions()...)
	for i := 0; i < 9; i++ {
		builder.Append(NewTreeUpdate(i, commitment(i)))
	}
	assert.Equal(t, 9, builder.NextLeaf())
	assert.Equal(t, commitment(4), builder.Get(4))
	assert.Equal(t, testLeaf, builder.Get(9))

	version := builder.Seal()
	assert.Equal(t, 9, version.NextLeaf())
	assert.Empty(t, version.Diff())
	for i := 0; i < 9; i++ {
		root, proof, err := version.Proof(i)
		require.NoError(t, err)
		assert.True(t, VerifyProof(root, commitment(i), proof, MimcHasher{}), "leaf %d", i)
	}

	assert.PanicsWithValue(t, ErrBuilderSealed, func() { builder.Seal() })
	assert.PanicsWithValue(t, ErrBuilderSealed, func() { builder.Append(NewTreeUpdate(9, commitment(9))) })
	assert.PanicsWithValue(t, ErrBuilderSealed, func() { builder.Get(0) })
}

func TestCanonicalTreeBuilder_DepthMismatch(t *testing.T) {
	builder := NewCanonicalTreeBuilder(TreeDepth(2), UseHasher(MimcHasher{}))
	assert.Panics(t, func() { builder.Append(NewTreeUpdate(4, commitment(4))) })
}
