// Package field implements elements of the BN254 scalar field, the domain
// of every leaf, node and root in the identity tree.
package field

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// Size is the width of an encoded element in bytes.
const Size = 32

// ModulusDecimal is the order of the BN254 scalar field.
const ModulusDecimal = "21888242871839275222246405745257275088548364400416034343698204186575808495617"

var (
	ErrNotInField = errors.New("value is not a field element")

	ErrInvalidEncoding = errors.New("invalid field element encoding")
)

var modulus = uint256.MustFromDecimal(ModulusDecimal)

// Modulus returns a copy of the field order.
func Modulus() *uint256.Int {
	return new(uint256.Int).Set(modulus)
}

// Element is a big-endian field element. The zero value is the element 0.
type Element [Size]byte

// Zero is the additive identity.
var Zero Element

func FromUint64(v uint64) Element {
	return Element(uint256.NewInt(v).Bytes32())
}

// FromUint256 converts x, failing if it is not reduced modulo the field order.
func FromUint256(x *uint256.Int) (Element, error) {
	if !x.Lt(modulus) {
		return Zero, errors.Wrapf(ErrNotInField, "%s", x.Dec())
	}
	return Element(x.Bytes32()), nil
}

// FromBig converts x, failing if it is negative or not reduced.
func FromBig(x *big.Int) (Element, error) {
	if x.Sign() < 0 {
		return Zero, errors.Wrapf(ErrNotInField, "%s", x.String())
	}
	v, overflow := uint256.FromBig(x)
	if overflow {
		return Zero, errors.Wrapf(ErrNotInField, "%s", x.String())
	}
	return FromUint256(v)
}

// FromDecimal parses a base-10 string.
func FromDecimal(s string) (Element, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return Zero, errors.Wrapf(ErrInvalidEncoding, "%q: %v", s, err)
	}
	return FromUint256(v)
}

// FromHex parses a hex string with or without the 0x prefix. Short inputs
// are left-padded.
func FromHex(s string) (Element, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(digits) == 0 || len(digits) > 2*Size {
		return Zero, errors.Wrapf(ErrInvalidEncoding, "%q", s)
	}
	if len(digits)%2 == 1 {
		digits = "0" + digits
	}
	raw, err := hexutil.Decode("0x" + digits)
	if err != nil {
		return Zero, errors.Wrapf(ErrInvalidEncoding, "%q: %v", s, err)
	}
	return FromUint256(new(uint256.Int).SetBytes(raw))
}

func MustFromHex(s string) Element {
	e, err := FromHex(s)
	if err != nil {
		panic(err)
	}
	return e
}

func MustFromDecimal(s string) Element {
	e, err := FromDecimal(s)
	if err != nil {
		panic(err)
	}
	return e
}

func (e Element) Uint256() *uint256.Int {
	return new(uint256.Int).SetBytes32(e[:])
}

func (e Element) Big() *big.Int {
	return new(big.Int).SetBytes(e[:])
}

func (e Element) IsZero() bool {
	return e == Zero
}

// Hex returns the 0x-prefixed, zero-padded encoding.
func (e Element) Hex() string {
	return hexutil.Encode(e[:])
}

func (e Element) Decimal() string {
	return e.Uint256().Dec()
}

func (e Element) String() string {
	return e.Hex()
}

func (e Element) MarshalText() ([]byte, error) {
	return []byte(e.Hex()), nil
}

func (e *Element) UnmarshalText(text []byte) error {
	parsed, err := FromHex(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
