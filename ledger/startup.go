package ledger

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"

	sequencer "github.com/nnsW3/signup-sequencer"
	"github.com/nnsW3/signup-sequencer/storage"
)

// Config locates the node, the contract and the signing key.
type Config struct {
	URL             string `toml:"url"`
	ContractAddress string `toml:"contract_address"`
	PrivateKey      string `toml:"private_key"`
	// ChainID is read from the node when zero.
	ChainID uint64 `toml:"chain_id,omitempty"`
	// StartBlock is where event replay begins when nothing was persisted.
	StartBlock uint64 `toml:"start_block,omitempty"`
}

// InitializeSemaphore dials the node and binds the contract with a signer
// derived from the configured key.
func InitializeSemaphore(ctx context.Context, conf *Config) (*bind.TransactOpts, *Semaphore, error) {
	if !common.IsHexAddress(conf.ContractAddress) {
		return nil, nil, errors.Errorf("invalid contract address %q", conf.ContractAddress)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(conf.PrivateKey, "0x"))
	if err != nil {
		return nil, nil, errors.Wrap(err, "parse private key")
	}
	client, err := ethclient.DialContext(ctx, conf.URL)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "dial %s", conf.URL)
	}

	chainID := new(big.Int).SetUint64(conf.ChainID)
	if conf.ChainID == 0 {
		if chainID, err = client.ChainID(ctx); err != nil {
			client.Close()
			return nil, nil, errors.Wrap(err, "chain id")
		}
	}
	signer, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	semaphore, err := NewSemaphore(client, common.HexToAddress(conf.ContractAddress), signer)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return signer, semaphore, nil
}

// ParseIdentityCommitments replays the persisted snapshot into builder, then
// the insertions the ledger recorded after the snapshot's block. It returns
// the next free leaf index and the last block read. An event for a leaf the
// snapshot already holds must carry the same commitment. A nil client
// replays the snapshot only.
func ParseIdentityCommitments(ctx context.Context, builder *sequencer.CanonicalTreeBuilder, store storage.Store, client Client, startBlock uint64) (int, uint64, error) {
	snapshot, err := store.Load(ctx)
	if err != nil {
		return 0, 0, errors.Wrap(err, "load commitments")
	}
	for _, update := range snapshot.Updates() {
		builder.Append(update)
	}
	lastBlock := snapshot.LastBlock
	if client == nil {
		return builder.NextLeaf(), lastBlock, nil
	}

	fromBlock := startBlock
	if lastBlock+1 > fromBlock && (lastBlock > 0 || len(snapshot.Commitments) > 0) {
		fromBlock = lastBlock + 1
	}
	updates, head, err := client.LeafInsertions(ctx, fromBlock)
	if err != nil {
		return 0, 0, err
	}
	for _, update := range updates {
		next := builder.NextLeaf()
		if update.LeafIndex < next {
			if known := builder.Get(update.LeafIndex); known != update.Element {
				return 0, 0, errors.Wrapf(ErrLedgerMismatch, "leaf %d: have %s, ledger has %s", update.LeafIndex, known, update.Element)
			}
			continue
		}
		if update.LeafIndex != next {
			return 0, 0, errors.Wrapf(ErrEventGap, "expected leaf %d, got %d", next, update.LeafIndex)
		}
		builder.Append(update)
	}
	if head > lastBlock {
		lastBlock = head
	}
	return builder.NextLeaf(), lastBlock, nil
}
