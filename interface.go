// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package sequencer

import "github.com/nnsW3/signup-sequencer/field"

type (
	// Hasher combines two sibling nodes into their parent.
	Hasher interface {
		Hash(left, right field.Element) field.Element
	}

	// Tree is a fixed-depth binary Merkle tree over field elements.
	Tree interface {
		Depth() int
		Capacity() int
		Set(index int, value field.Element)
		Get(index int) field.Element
		Root() field.Element
		Proof(index int) (Proof, error)
		Leaves() []field.Element
	}

	// Version is a lock-guarded tree snapshot that records the updates
	// applied to it since it was branched.
	Version interface {
		NextVersion() *TreeVersion
		Update(leafIndex int, element field.Element)
		PeekNextUpdate() (TreeUpdate, bool)
		ApplyNextUpdate() bool
		AppendManyFresh(updates []TreeUpdate)
		NextLeaf() int
	}
)
