// Package mimc implements the MiMC sponge permutation used by the Semaphore
// circuits, bit-compatible with circomlib's MiMCSponge(2, 220, 1).
package mimc

import (
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/nnsW3/signup-sequencer/field"
)

const (
	// NumRounds is fixed by the circuit.
	NumRounds = 220

	seed = "mimcsponge"
)

var (
	constantsOnce  sync.Once
	roundConstants [NumRounds]uint256.Int
)

func initConstants() {
	p := field.Modulus()
	digest := crypto.Keccak256([]byte(seed))
	// the first and last constants stay zero
	for i := 1; i < NumRounds-1; i++ {
		digest = crypto.Keccak256(digest)
		roundConstants[i].SetBytes(digest)
		roundConstants[i].Mod(&roundConstants[i], p)
	}
}

func constants() *[NumRounds]uint256.Int {
	constantsOnce.Do(initConstants)
	return &roundConstants
}

// RoundConstant returns c_i.
func RoundConstant(i int) *uint256.Int {
	return new(uint256.Int).Set(&constants()[i])
}

// Permute runs the Feistel permutation on (left, right) and returns the
// final state. Inputs are reduced modulo the field order first.
func Permute(left, right *uint256.Int) (*uint256.Int, *uint256.Int) {
	p := field.Modulus()
	rc := constants()

	l := new(uint256.Int).Mod(left, p)
	r := new(uint256.Int).Mod(right, p)

	var t, t2, t4, t5, next uint256.Int
	for i := range rc {
		// t^5 as two squarings and a multiply, matching the circuit
		t.AddMod(l, &rc[i], p)
		t2.MulMod(&t, &t, p)
		t4.MulMod(&t2, &t2, p)
		t5.MulMod(&t, &t4, p)
		next.AddMod(r, &t5, p)
		if i == NumRounds-1 {
			r.Set(&next)
		} else {
			r.Set(l)
			l.Set(&next)
		}
	}
	return l, r
}

// Hash combines two nodes: the left half of the permuted state.
func Hash(left, right field.Element) field.Element {
	l, _ := Permute(left.Uint256(), right.Uint256())
	return field.Element(l.Bytes32())
}
