package ledger

import (
	"context"
	"math/big"
	"strings"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	sequencer "github.com/nnsW3/signup-sequencer"
	"github.com/nnsW3/signup-sequencer/field"
)

// SemaphoreABI covers the parts of Semaphore.sol the sequencer uses.
const SemaphoreABI = `[
	{
		"type": "function",
		"name": "insertIdentity",
		"stateMutability": "nonpayable",
		"inputs": [{"name": "identityCommitment", "type": "uint256"}],
		"outputs": []
	},
	{
		"type": "event",
		"name": "LeafInsertion",
		"anonymous": false,
		"inputs": [
			{"name": "leaf", "type": "uint256", "indexed": true},
			{"name": "leafIndex", "type": "uint256", "indexed": true}
		]
	}
]`

const (
	insertIdentityMethod = "insertIdentity"
	leafInsertionEvent   = "LeafInsertion"
)

// Backend is the node connection; *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	BlockNumber(ctx context.Context) (uint64, error)
}

var _ Client = (*Semaphore)(nil)

// Semaphore is a Client bound to one deployed contract and one signer.
type Semaphore struct {
	backend  Backend
	address  common.Address
	abi      abi.ABI
	contract *bind.BoundContract
	signer   *bind.TransactOpts
}

func NewSemaphore(backend Backend, address common.Address, signer *bind.TransactOpts) (*Semaphore, error) {
	parsed, err := abi.JSON(strings.NewReader(SemaphoreABI))
	if err != nil {
		return nil, errors.Wrap(err, "parse semaphore abi")
	}
	return &Semaphore{
		backend:  backend,
		address:  address,
		abi:      parsed,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
		signer:   signer,
	}, nil
}

func (s *Semaphore) Address() common.Address {
	return s.address
}

func (s *Semaphore) InsertIdentity(ctx context.Context, commitment field.Element) (*types.Transaction, error) {
	opts := *s.signer
	opts.Context = ctx
	tx, err := s.contract.Transact(&opts, insertIdentityMethod, commitment.Big())
	if err != nil {
		return nil, errors.Wrap(err, "send insertIdentity")
	}
	return tx, nil
}

func (s *Semaphore) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, s.backend, tx)
	if err != nil {
		return nil, errors.Wrapf(err, "await tx %s", tx.Hash().Hex())
	}
	if err := CheckReceipt(receipt); err != nil {
		return receipt, err
	}
	return receipt, nil
}

func (s *Semaphore) BlockNumber(ctx context.Context) (uint64, error) {
	head, err := s.backend.BlockNumber(ctx)
	return head, errors.Wrap(err, "block number")
}

type leafInsertion struct {
	Leaf      *big.Int
	LeafIndex *big.Int
}

func (s *Semaphore) LeafInsertions(ctx context.Context, fromBlock uint64) ([]sequencer.TreeUpdate, uint64, error) {
	head, err := s.BlockNumber(ctx)
	if err != nil {
		return nil, 0, err
	}
	if fromBlock > head {
		return nil, head, nil
	}
	logs, err := s.backend.FilterLogs(ctx, geth.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(head),
		Addresses: []common.Address{s.address},
		Topics:    [][]common.Hash{{s.abi.Events[leafInsertionEvent].ID}},
	})
	if err != nil {
		return nil, 0, errors.Wrap(err, "filter LeafInsertion")
	}

	updates := make([]sequencer.TreeUpdate, 0, len(logs))
	for _, log := range logs {
		if log.Removed {
			continue
		}
		event := new(leafInsertion)
		if err := s.contract.UnpackLog(event, leafInsertionEvent, log); err != nil {
			return nil, 0, errors.Wrapf(err, "decode LeafInsertion in tx %s", log.TxHash.Hex())
		}
		element, err := field.FromBig(event.Leaf)
		if err != nil {
			return nil, 0, err
		}
		if !event.LeafIndex.IsInt64() {
			return nil, 0, errors.Errorf("leaf index %s out of range", event.LeafIndex)
		}
		updates = append(updates, sequencer.NewTreeUpdate(int(event.LeafIndex.Int64()), element))
	}
	return updates, head, nil
}
