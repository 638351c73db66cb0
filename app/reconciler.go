package app

import (
	"context"

	sequencer "github.com/nnsW3/signup-sequencer"
	"github.com/nnsW3/signup-sequencer/metrics"
)

const confirmationBuffer = 1024

// reconciler advances the mined version through the updates of its child
// in order, as the ledger confirms them. Confirmations may arrive in any
// order; an update is only applied once every update before it was.
type reconciler struct {
	mined     *sequencer.TreeVersion
	confirmed chan int
	done      chan struct{}
	metrics   metrics.Metrics
	logger    *Logger
}

func newReconciler(mined *sequencer.TreeVersion, m metrics.Metrics, logger *Logger) *reconciler {
	return &reconciler{
		mined:     mined,
		confirmed: make(chan int, confirmationBuffer),
		done:      make(chan struct{}),
		metrics:   m,
		logger:    logger,
	}
}

// confirm hands over a leaf whose insertion was mined. It returns false if
// the reconciler already stopped.
func (r *reconciler) confirm(ctx context.Context, leaf int) bool {
	select {
	case r.confirmed <- leaf:
		return true
	case <-r.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (r *reconciler) run(ctx context.Context) {
	defer close(r.done)
	ready := make(map[int]struct{})
	for {
		select {
		case <-ctx.Done():
			if len(ready) > 0 {
				r.logger.Warn("reconciler stopped with unapplied confirmations", "count", len(ready))
			}
			return
		case leaf := <-r.confirmed:
			ready[leaf] = struct{}{}
			r.drain(ready)
		}
	}
}

func (r *reconciler) drain(ready map[int]struct{}) {
	applied := 0
	for {
		update, ok := r.mined.PeekNextUpdate()
		if !ok {
			break
		}
		if _, confirmed := ready[update.LeafIndex]; !confirmed {
			break
		}
		if !r.mined.ApplyNextUpdate() {
			break
		}
		delete(ready, update.LeafIndex)
		applied++
	}
	if applied == 0 {
		return
	}
	r.metrics.MinedLeaf(r.mined.NextLeaf())
	r.metrics.PendingUpdates(r.mined.PendingUpdates())
	r.logger.Debug("mined tree advanced", "applied", applied, "nextLeaf", r.mined.NextLeaf(), "root", r.mined.Root())
}
