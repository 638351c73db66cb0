package metrics

type Metrics interface {
	// The number of leaves in the mined view
	MinedLeaf(int)
	// The number of leaves in the latest view
	LatestLeaf(int)
	// The number of inserts not yet confirmed by the ledger
	PendingUpdates(int)
	// An identity was accepted by the ledger
	Inserted()
	// An insertion failed, by stage
	InsertFailed(stage string)
	// An inclusion proof was served, by status
	ProofServed(status string)
}

var _ Metrics = Nop{}

// Nop discards everything.
type Nop struct{}

func (Nop) MinedLeaf(int)       {}
func (Nop) LatestLeaf(int)      {}
func (Nop) PendingUpdates(int)  {}
func (Nop) Inserted()           {}
func (Nop) InsertFailed(string) {}
func (Nop) ProofServed(string)  {}
