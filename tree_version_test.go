package sequencer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nnsW3/signup-sequencer/field"
)

func testOptions() []Option {
	return []Option{TreeDepth(6), InitialLeaf(testLeaf), UseHasher(MimcHasher{})}
}

func commitment(i int) field.Element {
	return field.FromUint64(uint64(1000 + i))
}

func genesis(t *testing.T, n int) *TreeVersion {
	t.Helper()
	builder := NewCanonicalTreeBuilder(testOptions()...)
	for i := 0; i < n; i++ {
		builder.Append(NewTreeUpdate(i, commitment(i)))
	}
	return builder.Seal()
}

func TestTreeVersion_ReplayMatchesDirectApplication(t *testing.T) {
	for n := 0; n <= 12; n++ {
		parent := genesis(t, 3)
		reference := NewMerkleTree(6, testLeaf, MimcHasher{})
		for i := 0; i < 3; i++ {
			reference.Set(i, commitment(i))
		}

		child := parent.NextVersion()
		for i := 0; i < n; i++ {
			child.Update(3+i, commitment(100+i))
			reference.Set(3+i, commitment(100+i))
		}
		require.Equal(t, n, parent.PendingUpdates())

		for i := 0; i < n; i++ {
			require.True(t, parent.ApplyNextUpdate())
		}
		assert.False(t, parent.ApplyNextUpdate())
		assert.Equal(t, reference.Root(), parent.Root(), "n=%d", n)
		assert.Equal(t, reference.Leaves(), parent.Leaves(), "n=%d", n)
		assert.Equal(t, 3+n, parent.NextLeaf())
		assert.Equal(t, 0, parent.PendingUpdates())
		assert.Empty(t, parent.Diff(), "genesis records no diff")
	}
}

func TestTreeVersion_EndToEnd(t *testing.T) {
	mined := genesis(t, 0)
	latest := mined.NextVersion()

	for i := 0; i < 3; i++ {
		latest.Update(latest.NextLeaf(), commitment(i))
	}
	assert.Equal(t, 3, latest.NextLeaf())
	assert.Equal(t, 0, mined.NextLeaf())

	update, ok := mined.PeekNextUpdate()
	require.True(t, ok)
	assert.Equal(t, NewTreeUpdate(0, commitment(0)), update)

	// peeking does not consume
	again, ok := mined.PeekNextUpdate()
	require.True(t, ok)
	assert.Equal(t, update, again)

	for i := 0; i < 3; i++ {
		require.True(t, mined.ApplyNextUpdate())
	}
	assert.Equal(t, 3, mined.NextLeaf())
	assert.Equal(t, latest.Root(), mined.Root())

	_, ok = mined.PeekNextUpdate()
	assert.False(t, ok)
}

func TestTreeVersion_NoChild(t *testing.T) {
	v := genesis(t, 2)
	_, ok := v.PeekNextUpdate()
	assert.False(t, ok)
	assert.False(t, v.ApplyNextUpdate())
	assert.Equal(t, 0, v.PendingUpdates())

	v.Update(2, commitment(2))
	assert.Equal(t, 3, v.NextLeaf())
	assert.Empty(t, v.Diff())
}

func TestTreeVersion_AppendManyFresh(t *testing.T) {
	mined := genesis(t, 2)
	latest := mined.NextVersion()

	batch := []TreeUpdate{
		NewTreeUpdate(0, commitment(0)),
		NewTreeUpdate(3, commitment(3)),
		NewTreeUpdate(1, field.FromUint64(1)),
		NewTreeUpdate(2, commitment(2)),
	}
	latest.AppendManyFresh(batch)
	assert.Equal(t, 4, latest.NextLeaf())
	assert.Equal(t, commitment(1), latest.Get(1), "already assigned leaves are skipped")
	assert.Equal(t, []TreeUpdate{
		NewTreeUpdate(3, commitment(3)),
		NewTreeUpdate(2, commitment(2)),
	}, latest.Diff())

	root, leaves := latest.Root(), latest.Leaves()
	latest.AppendManyFresh(batch)
	assert.Equal(t, 4, latest.NextLeaf())
	assert.Equal(t, root, latest.Root())
	assert.Equal(t, leaves, latest.Leaves())
	assert.Len(t, latest.Diff(), 2)
}

func TestTreeVersion_NextVersionIsIndependent(t *testing.T) {
	parent := genesis(t, 1)
	child := parent.NextVersion()
	child.Update(1, commitment(1))

	assert.Equal(t, 1, parent.NextLeaf())
	assert.Equal(t, testLeaf, parent.Get(1))
	assert.NotEqual(t, parent.Root(), child.Root())
}

func TestTreeVersion_Chain(t *testing.T) {
	a := genesis(t, 0)
	b := a.NextVersion()
	c := b.NextVersion()
	for i := 0; i < 4; i++ {
		c.Update(i, commitment(i))
	}

	for b.ApplyNextUpdate() {
	}
	assert.Equal(t, c.Root(), b.Root())
	assert.Len(t, b.Diff(), 4, "intermediate versions keep the diff for their parent")

	for a.ApplyNextUpdate() {
	}
	assert.Equal(t, c.Root(), a.Root())
	assert.Empty(t, b.Diff())
}

func TestTreeVersion_ConcurrentReconciliation(t *testing.T) {
	const inserts = 40
	mined := genesis(t, 0)
	latest := mined.NextVersion()
	state := NewTreeState(mined, latest)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < inserts; i++ {
			latest.Update(latest.NextLeaf(), commitment(i))
		}
	}()

	applied := 0
	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for applied < inserts {
			if mined.ApplyNextUpdate() {
				applied++
			}
		}
		close(done)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			minedLeaf := mined.NextLeaf()
			if !assert.LessOrEqual(t, minedLeaf, latest.NextLeaf()) {
				return
			}
			for i := 0; i < minedLeaf; i++ {
				if !assert.Equal(t, mined.Get(i), latest.Get(i)) {
					return
				}
			}
			if minedLeaf > 0 {
				proof, err := state.GetProof(TreeItem{Status: StatusMined, LeafIndex: minedLeaf - 1})
				if !assert.NoError(t, err) {
					return
				}
				assert.Len(t, proof.Proof, 6)
			}
		}
	}()
	wg.Wait()

	assert.Equal(t, inserts, mined.NextLeaf())
	assert.Equal(t, latest.Root(), mined.Root())
}

func TestDiffLog(t *testing.T) {
	var d diffLog
	_, ok := d.pop()
	assert.False(t, ok)

	next := 0
	for i := 0; i < 1000; i++ {
		d.push(NewTreeUpdate(i, commitment(i)))
		if i%3 == 0 {
			update, ok := d.pop()
			require.True(t, ok)
			require.Equal(t, next, update.LeafIndex)
			next++
		}
	}
	require.Equal(t, 1000-next, d.len())
	assert.LessOrEqual(t, len(d.updates), 2*d.len()+compactThreshold)
	for d.len() > 0 {
		update, _ := d.pop()
		require.Equal(t, next, update.LeafIndex)
		next++
	}
	assert.Equal(t, 0, d.head)
	assert.Empty(t, d.updates)
}
