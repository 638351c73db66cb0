package app

import (
	"github.com/pkg/errors"
)

var (
	ErrDuplicateCommitment = errors.New("identity commitment already inserted")

	ErrCommitmentNotFound = errors.New("identity commitment not found")

	ErrLeafNotFound = errors.New("leaf not assigned")

	ErrTreeFull = errors.New("identity tree is full")

	ErrClosed = errors.New("sequencer closed")
)

const (
	StageBlockNumber = "block_number"
	StagePersist     = "persist"
	StageSubmit      = "submit"
	StageReceipt     = "receipt"
)

// LedgerError is a failed ledger round trip during an insertion.
type LedgerError struct {
	Stage string
	Err   error
}

func (e *LedgerError) Error() string {
	return "ledger " + e.Stage + ": " + e.Err.Error()
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

func (e *LedgerError) Cause() error {
	return e.Err
}
