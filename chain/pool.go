package chain

import "sync"

// PendingPool is the mutex-guarded FIFO queue of transactions awaiting
// inclusion in the next mined block (spec §3/§5). Grounded on the
// teacher's transaction pool, generalized to a plain slice since the
// teacher's priority-fee ordering does not apply here (spec §4.3 does
// not call for fee-based ordering).
type PendingPool struct {
	mu    sync.Mutex
	queue []*Transaction
}

// NewPendingPool returns an empty pool.
func NewPendingPool() *PendingPool {
	return &PendingPool{}
}

// Push enqueues a transaction at the back of the pool.
func (p *PendingPool) Push(tx *Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, tx)
}

// Len reports the number of queued transactions.
func (p *PendingPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// SnapshotAndClear atomically takes every queued transaction, in FIFO
// order, and empties the pool. This is the only way the mining loop
// reads the pool, so a concurrent Push can never be silently dropped
// between the read and the clear (spec §5).
func (p *PendingPool) SnapshotAndClear() []*Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.queue
	p.queue = nil
	return out
}

// Requeue puts txs back at the front of the pool, in their original
// order, used when consensus fails to reach quorum on a mined block
// (spec §7: "pending transactions are re-queued in their original
// order").
func (p *PendingPool) Requeue(txs []*Transaction) {
	if len(txs) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(txs, p.queue...)
}
