package sequencer

import (
	"sync"

	"github.com/nnsW3/signup-sequencer/field"
)

// TreeUpdate is the intent to write element at leaf index.
type TreeUpdate struct {
	LeafIndex int           `json:"leafIndex"`
	Element   field.Element `json:"element"`
}

func NewTreeUpdate(leafIndex int, element field.Element) TreeUpdate {
	return TreeUpdate{LeafIndex: leafIndex, Element: element}
}

type treeVersionData struct {
	tree     *MerkleTree
	nextLeaf int
	// diff holds the updates applied since branching, in order. Only a
	// version with a parent records it; nothing would ever drain it otherwise.
	diff       diffLog
	recordDiff bool
	next       *TreeVersion
}

func (data *treeVersionData) update(leafIndex int, element field.Element) {
	data.updateWithoutDiff(leafIndex, element)
	if data.recordDiff {
		data.diff.push(NewTreeUpdate(leafIndex, element))
	}
}

func (data *treeVersionData) updateWithoutDiff(leafIndex int, element field.Element) {
	data.tree.Set(leafIndex, element)
	if leafIndex >= data.nextLeaf {
		data.nextLeaf = leafIndex + 1
	}
}

var _ Version = (*TreeVersion)(nil)

// TreeVersion is a shared, lock-guarded tree snapshot. Versions form a
// forward chain, parent to child, created by NextVersion. Any number of
// goroutines may hold the same *TreeVersion.
type TreeVersion struct {
	lock sync.RWMutex
	data treeVersionData
}

// NextVersion branches a child holding a copy of the current tree and an
// empty diff, and links it as this version's child.
func (v *TreeVersion) NextVersion() *TreeVersion {
	v.lock.Lock()
	defer v.lock.Unlock()

	child := &TreeVersion{
		data: treeVersionData{
			tree:       v.data.tree.Clone(),
			nextLeaf:   v.data.nextLeaf,
			recordDiff: true,
		},
	}
	v.data.next = child
	return child
}

// Update writes element at leafIndex. The write is visible to readers of
// this version on return and is queued for the parent to replay.
func (v *TreeVersion) Update(leafIndex int, element field.Element) {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.data.update(leafIndex, element)
}

func (v *TreeVersion) child() *TreeVersion {
	v.lock.RLock()
	defer v.lock.RUnlock()
	return v.data.next
}

// PeekNextUpdate returns the oldest update of the child not yet replayed
// on this version.
func (v *TreeVersion) PeekNextUpdate() (TreeUpdate, bool) {
	next := v.child()
	if next == nil {
		return TreeUpdate{}, false
	}
	next.lock.RLock()
	defer next.lock.RUnlock()
	return next.data.diff.front()
}

// ApplyNextUpdate replays the oldest pending update of the child on this
// version and reports whether there was one. The two locks are never held
// together: the update is applied here first and only then dropped from the
// child, so a version branched in between already contains it. Calls must
// come from a single goroutine per chain.
func (v *TreeVersion) ApplyNextUpdate() bool {
	next := v.child()
	if next == nil {
		return false
	}

	next.lock.RLock()
	update, ok := next.data.diff.front()
	next.lock.RUnlock()
	if !ok {
		return false
	}

	v.lock.Lock()
	v.data.update(update.LeafIndex, update.Element)
	v.lock.Unlock()

	next.lock.Lock()
	next.data.diff.pop()
	next.lock.Unlock()
	return true
}

// AppendManyFresh applies the updates whose leaf index is not yet assigned
// in this version, skipping the rest.
func (v *TreeVersion) AppendManyFresh(updates []TreeUpdate) {
	v.lock.Lock()
	defer v.lock.Unlock()

	nextLeaf := v.data.nextLeaf
	for _, update := range updates {
		if update.LeafIndex >= nextLeaf {
			v.data.update(update.LeafIndex, update.Element)
		}
	}
}

// NextLeaf is the first unassigned leaf index.
func (v *TreeVersion) NextLeaf() int {
	v.lock.RLock()
	defer v.lock.RUnlock()
	return v.data.nextLeaf
}

func (v *TreeVersion) Root() field.Element {
	v.lock.RLock()
	defer v.lock.RUnlock()
	return v.data.tree.Root()
}

func (v *TreeVersion) Get(leafIndex int) field.Element {
	v.lock.RLock()
	defer v.lock.RUnlock()
	return v.data.tree.Get(leafIndex)
}

// Leaves returns the assigned leaves, index 0 to NextLeaf-1.
func (v *TreeVersion) Leaves() []field.Element {
	v.lock.RLock()
	defer v.lock.RUnlock()
	leaves := v.data.tree.Leaves()
	if len(leaves) > v.data.nextLeaf {
		leaves = leaves[:v.data.nextLeaf]
	}
	return leaves
}

// Proof returns the root and the sibling path of leafIndex read under one
// lock, so both belong to the same tree state.
func (v *TreeVersion) Proof(leafIndex int) (field.Element, Proof, error) {
	v.lock.RLock()
	defer v.lock.RUnlock()
	proof, err := v.data.tree.Proof(leafIndex)
	if err != nil {
		return field.Zero, nil, err
	}
	return v.data.tree.Root(), proof, nil
}

// PendingUpdates is the number of child updates not yet replayed here.
func (v *TreeVersion) PendingUpdates() int {
	next := v.child()
	if next == nil {
		return 0
	}
	next.lock.RLock()
	defer next.lock.RUnlock()
	return next.data.diff.len()
}

// Diff returns a copy of the updates this version recorded and its parent
// has not consumed yet.
func (v *TreeVersion) Diff() []TreeUpdate {
	v.lock.RLock()
	defer v.lock.RUnlock()
	return v.data.diff.entries()
}
