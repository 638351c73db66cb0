package sequencer

import "github.com/nnsW3/signup-sequencer/field"

// CanonicalTreeBuilder replays historical updates into the genesis version.
// It records no diff, since the genesis has no parent, and can be sealed
// exactly once.
type CanonicalTreeBuilder struct {
	data *treeVersionData
}

func NewCanonicalTreeBuilder(opts ...Option) *CanonicalTreeBuilder {
	return &CanonicalTreeBuilder{
		data: &treeVersionData{tree: newTree(opts...)},
	}
}

func (b *CanonicalTreeBuilder) Append(update TreeUpdate) {
	if b.data == nil {
		panic(ErrBuilderSealed)
	}
	b.data.updateWithoutDiff(update.LeafIndex, update.Element)
}

// Get returns the leaf replayed at leafIndex, or the initial leaf.
func (b *CanonicalTreeBuilder) Get(leafIndex int) field.Element {
	if b.data == nil {
		panic(ErrBuilderSealed)
	}
	return b.data.tree.Get(leafIndex)
}

// NextLeaf is the first leaf index not written by the replayed updates.
func (b *CanonicalTreeBuilder) NextLeaf() int {
	if b.data == nil {
		panic(ErrBuilderSealed)
	}
	return b.data.nextLeaf
}

// Seal hands the built tree over as a version. The builder is unusable
// afterwards.
func (b *CanonicalTreeBuilder) Seal() *TreeVersion {
	if b.data == nil {
		panic(ErrBuilderSealed)
	}
	data := b.data
	b.data = nil
	return &TreeVersion{data: *data}
}
