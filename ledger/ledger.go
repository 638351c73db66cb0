// Package ledger talks to the Semaphore contract: it submits insertions,
// awaits their receipts and reads past insertions back at startup.
package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	sequencer "github.com/nnsW3/signup-sequencer"
	"github.com/nnsW3/signup-sequencer/field"
)

var (
	// ErrReceiptMissing means the node answered without a receipt. The
	// insertion is treated as failed and its leaf stays pending.
	ErrReceiptMissing = errors.New("transaction receipt missing")

	ErrTransactionReverted = errors.New("transaction reverted")

	ErrEventGap = errors.New("leaf insertion events are not contiguous")

	// ErrLedgerMismatch means the persisted commitments disagree with the
	// insertions the ledger recorded.
	ErrLedgerMismatch = errors.New("persisted commitments disagree with the ledger")
)

// Client is what the sequencer needs from the ledger.
type Client interface {
	InsertIdentity(ctx context.Context, commitment field.Element) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	// LeafInsertions returns the insertions recorded from fromBlock to the
	// head, in ledger order, along with the head it read up to.
	LeafInsertions(ctx context.Context, fromBlock uint64) ([]sequencer.TreeUpdate, uint64, error)
}

// CheckReceipt turns a missing or reverted receipt into an error.
func CheckReceipt(receipt *types.Receipt) error {
	if receipt == nil {
		return ErrReceiptMissing
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return errors.Wrapf(ErrTransactionReverted, "tx %s", receipt.TxHash.Hex())
	}
	return nil
}
