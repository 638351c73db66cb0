// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package sequencer

import (
	"github.com/pkg/errors"
)

var (
	ErrIndexOutOfRange = errors.New("leaf index out of range")

	ErrInvalidDepth = errors.New("tree depth must be between 1 and 32")

	ErrUnknownStatus = errors.New("unknown status")

	ErrUnknownHasher = errors.New("unknown hasher")

	ErrBuilderSealed = errors.New("canonical tree builder already sealed")
)
