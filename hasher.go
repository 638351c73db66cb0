// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package sequencer

import (
	"math/big"
	"strings"

	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/pkg/errors"

	"github.com/nnsW3/signup-sequencer/field"
	"github.com/nnsW3/signup-sequencer/mimc"
)

const (
	HasherPoseidon = "poseidon"
	HasherMimc     = "mimc"
)

var (
	_ Hasher = PoseidonHasher{}
	_ Hasher = MimcHasher{}
)

// NewHasher returns the node hasher registered under name.
func NewHasher(name string) (Hasher, error) {
	switch strings.ToLower(name) {
	case "", HasherPoseidon:
		return PoseidonHasher{}, nil
	case HasherMimc:
		return MimcHasher{}, nil
	}
	return nil, errors.Wrapf(ErrUnknownHasher, "%q", name)
}

// PoseidonHasher is the circom-compatible two-input Poseidon, used for
// production trees.
type PoseidonHasher struct{}

func (PoseidonHasher) Hash(left, right field.Element) field.Element {
	out, err := poseidon.Hash([]*big.Int{left.Big(), right.Big()})
	if err != nil {
		// inputs are reduced at parse time, so this is a corrupted element
		panic(errors.Wrap(err, "poseidon"))
	}
	e, err := field.FromBig(out)
	if err != nil {
		panic(err)
	}
	return e
}

// MimcHasher reproduces the MiMC sponge of the Semaphore circuit.
type MimcHasher struct{}

func (MimcHasher) Hash(left, right field.Element) field.Element {
	return mimc.Hash(left, right)
}
