// Package app runs the sequencer: it accepts identity commitments, submits
// them to the Semaphore contract and serves inclusion proofs against the
// mined and the latest tree.
package app

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"

	sequencer "github.com/nnsW3/signup-sequencer"
	"github.com/nnsW3/signup-sequencer/field"
	"github.com/nnsW3/signup-sequencer/ledger"
	"github.com/nnsW3/signup-sequencer/metrics"
	"github.com/nnsW3/signup-sequencer/storage"
)

// Option is a function that configures an App.
type Option func(*App)

func WithMetrics(m metrics.Metrics) Option {
	return func(a *App) {
		if m != nil {
			a.metrics = m
		}
	}
}

type App struct {
	client  ledger.Client
	store   storage.Store
	logger  *Logger
	metrics metrics.Metrics

	state    sequencer.TreeState
	capacity int

	// insertLock serializes leaf assignment and persistence.
	insertLock sync.Mutex
	// index maps every commitment of the latest tree to its leaf. Written
	// under insertLock after the tree update.
	indexLock sync.RWMutex
	index     map[field.Element]int
	// proofs caches inclusion proofs by TreeItem. An entry is served while
	// its root is still the root of the view.
	proofs *lru.Cache
	pool   *ants.Pool

	reconciler *reconciler
	cancel     context.CancelFunc
}

// New restores the tree from the store and the ledger, then starts the
// reconciler. The restored leaves seed the mined tree directly.
func New(ctx context.Context, conf *Config, client ledger.Client, store storage.Store, logger *Logger, opts ...Option) (*App, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, errors.New("nil ledger client")
	}
	treeOpts, _ := conf.Tree.Options()

	builder := sequencer.NewCanonicalTreeBuilder(treeOpts...)
	nextLeaf, lastBlock, err := ledger.ParseIdentityCommitments(ctx, builder, store, client, conf.Ethereum.StartBlock)
	if err != nil {
		return nil, errors.Wrap(err, "restore identity tree")
	}
	mined := builder.Seal()
	latest := mined.NextVersion()

	proofs, err := lru.New(conf.ProofCacheSize)
	if err != nil {
		return nil, err
	}
	pool, err := ants.NewPool(conf.Workers)
	if err != nil {
		return nil, errors.Wrap(err, "create worker pool")
	}

	a := &App{
		client:   client,
		store:    store,
		logger:   logger,
		metrics:  metrics.Nop{},
		state:    sequencer.NewTreeState(mined, latest),
		capacity: 1 << conf.Tree.Depth,
		index:    make(map[field.Element]int, nextLeaf),
		proofs:   proofs,
		pool:     pool,
	}
	for leaf, commitment := range mined.Leaves() {
		if _, ok := a.index[commitment]; !ok {
			a.index[commitment] = leaf
		}
	}
	for _, opt := range opts {
		opt(a)
	}

	a.metrics.MinedLeaf(nextLeaf)
	a.metrics.LatestLeaf(nextLeaf)
	a.metrics.PendingUpdates(0)

	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.reconciler = newReconciler(mined, a.metrics, logger)
	go a.reconciler.run(runCtx)

	logger.Info("identity tree restored",
		"leaves", nextLeaf,
		"lastBlock", lastBlock,
		"root", mined.Root(),
	)
	return a, nil
}

func (a *App) TreeState() sequencer.TreeState {
	return a.state
}

// InsertIdentity assigns commitment the next leaf of the latest tree,
// persists it, then submits it to the ledger and waits for the receipt.
// The returned leaf is valid even when the ledger round trip failed after
// the leaf was assigned; it then stays pending.
func (a *App) InsertIdentity(ctx context.Context, commitment field.Element) (int, error) {
	leaf, err := a.assignLeaf(ctx, commitment)
	if err != nil {
		return -1, err
	}

	tx, err := a.client.InsertIdentity(ctx, commitment)
	if err != nil {
		return leaf, a.insertFailed(StageSubmit, leaf, err)
	}
	a.logger.Debug("identity submitted", "leaf", leaf, "tx", tx.Hash().Hex())

	if _, err := a.client.WaitMined(ctx, tx); err != nil {
		return leaf, a.insertFailed(StageReceipt, leaf, err)
	}
	if !a.reconciler.confirm(ctx, leaf) {
		return leaf, ErrClosed
	}
	a.metrics.Inserted()
	a.logger.Info("identity inserted", "leaf", leaf, "commitment", commitment, "tx", tx.Hash().Hex())
	return leaf, nil
}

func (a *App) assignLeaf(ctx context.Context, commitment field.Element) (int, error) {
	a.insertLock.Lock()
	defer a.insertLock.Unlock()

	latest := a.state.Latest()
	if _, ok := a.leafOf(commitment); ok {
		return -1, errors.Wrapf(ErrDuplicateCommitment, "%s", commitment)
	}
	leaf := latest.NextLeaf()
	if leaf >= a.capacity {
		return -1, ErrTreeFull
	}

	block, err := a.client.BlockNumber(ctx)
	if err != nil {
		return -1, a.insertFailed(StageBlockNumber, leaf, err)
	}
	snapshot := &storage.Snapshot{
		LastBlock:   block,
		Commitments: append(latest.Leaves(), commitment),
	}
	if err := a.store.Save(ctx, snapshot); err != nil {
		a.metrics.InsertFailed(StagePersist)
		a.logger.Error("persist commitments", "leaf", leaf, "err", err)
		return -1, errors.Wrap(err, "persist commitments")
	}

	latest.Update(leaf, commitment)
	a.indexLock.Lock()
	a.index[commitment] = leaf
	a.indexLock.Unlock()
	a.metrics.LatestLeaf(leaf + 1)
	a.metrics.PendingUpdates(a.state.Mined().PendingUpdates())
	return leaf, nil
}

func (a *App) insertFailed(stage string, leaf int, err error) error {
	a.metrics.InsertFailed(stage)
	a.logger.Error("insert identity", "stage", stage, "leaf", leaf, "err", err)
	return &LedgerError{Stage: stage, Err: err}
}

// leafOf finds the leaf of commitment in the latest tree.
func (a *App) leafOf(commitment field.Element) (int, bool) {
	a.indexLock.RLock()
	defer a.indexLock.RUnlock()
	leaf, ok := a.index[commitment]
	return leaf, ok
}

// InclusionProof proves commitment against the tree status selects. A
// commitment that was not mined yet is not found in the mined tree.
func (a *App) InclusionProof(ctx context.Context, commitment field.Element, status sequencer.Status) (*sequencer.InclusionProof, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	leaf, ok := a.leafOf(commitment)
	if !ok {
		return nil, errors.Wrapf(ErrCommitmentNotFound, "%s", commitment)
	}
	proof, ok, err := a.proof(sequencer.TreeItem{Status: status, LeafIndex: leaf})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(ErrCommitmentNotFound, "%s not %s", commitment, status)
	}
	return proof, nil
}

// LeafProof proves the leaf at index against the tree status selects. Only
// assigned leaves of that tree are found.
func (a *App) LeafProof(ctx context.Context, status sequencer.Status, leaf int) (*sequencer.InclusionProof, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	proof, ok, err := a.proof(sequencer.TreeItem{Status: status, LeafIndex: leaf})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(ErrLeafNotFound, "%s leaf %d", status, leaf)
	}
	return proof, nil
}

// proof reads item from the cache or the tree. It reports false for a leaf
// the selected view has not assigned. The returned proof is shared and must
// not be modified.
func (a *App) proof(item sequencer.TreeItem) (*sequencer.InclusionProof, bool, error) {
	view := a.state.View(item.Status)
	if item.LeafIndex < 0 || item.LeafIndex >= view.NextLeaf() {
		return nil, false, nil
	}
	if v, ok := a.proofs.Get(item); ok {
		if cached := v.(*sequencer.InclusionProof); cached.Root == view.Root() {
			a.metrics.ProofServed(item.Status.String())
			return cached, true, nil
		}
	}
	proof, err := a.state.GetProof(item)
	if err != nil {
		return nil, false, err
	}
	a.proofs.Add(item, proof)
	a.metrics.ProofServed(item.Status.String())
	return proof, true, nil
}

type ProofResult struct {
	Commitment field.Element
	Proof      *sequencer.InclusionProof
	Err        error
}

// InclusionProofs runs InclusionProof for every commitment on the worker
// pool. Results keep the order of commitments.
func (a *App) InclusionProofs(ctx context.Context, commitments []field.Element, status sequencer.Status) ([]ProofResult, error) {
	results := make([]ProofResult, len(commitments))
	var wg sync.WaitGroup
	for i := range commitments {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		i := i
		wg.Add(1)
		err := a.pool.Submit(func() {
			defer wg.Done()
			proof, err := a.InclusionProof(ctx, commitments[i], status)
			results[i] = ProofResult{Commitment: commitments[i], Proof: proof, Err: err}
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, errors.Wrap(err, "submit proof task")
		}
	}
	wg.Wait()
	return results, nil
}

// Close stops the reconciler and releases the pool and the store.
func (a *App) Close() error {
	a.cancel()
	<-a.reconciler.done
	a.pool.Release()
	return a.store.Close()
}
