package sequencer

// compactThreshold is the minimum number of consumed entries before the
// backing array is compacted.
const compactThreshold = 64

// diffLog is a FIFO of updates with amortized O(1) push and pop. Consumed
// entries are reclaimed once they make up half of the backing array.
type diffLog struct {
	updates []TreeUpdate
	head    int
}

func (d *diffLog) len() int {
	return len(d.updates) - d.head
}

func (d *diffLog) push(update TreeUpdate) {
	d.updates = append(d.updates, update)
}

func (d *diffLog) front() (TreeUpdate, bool) {
	if d.len() == 0 {
		return TreeUpdate{}, false
	}
	return d.updates[d.head], true
}

func (d *diffLog) pop() (TreeUpdate, bool) {
	update, ok := d.front()
	if !ok {
		return update, false
	}
	d.updates[d.head] = TreeUpdate{}
	d.head++
	switch {
	case d.head == len(d.updates):
		d.updates = d.updates[:0]
		d.head = 0
	case d.head >= compactThreshold && 2*d.head >= len(d.updates):
		n := copy(d.updates, d.updates[d.head:])
		d.updates = d.updates[:n]
		d.head = 0
	}
	return update, true
}

// entries returns a copy of the pending updates in order.
func (d *diffLog) entries() []TreeUpdate {
	out := make([]TreeUpdate, d.len())
	copy(out, d.updates[d.head:])
	return out
}
