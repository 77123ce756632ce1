package forkchain

import (
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// We are avoiding defer Unlock() because rumors are it is slower than
// inline.

// The pool does not validate anything: a transaction is checked
// against the UTXO set of the branch it lands in when a block carrying
// it is committed. Entries are remembered with their arrival sequence
// so that Txs hands them out first come first served, which matters
// because block validation is order sensitive.
type poolEntry struct {
	tx  *Tx
	seq uint64
}

// poolRef is a slot in the arrival queue. Removing a tx leaves its
// slot behind, a slot only counts while seq matches the live entry.
type poolRef struct {
	hash chainhash.Hash
	seq  uint64
}

type TxPool struct {
	*sync.Mutex
	m    map[chainhash.Hash]*poolEntry
	fifo []poolRef // arrival order, including stale slots
	sz   int       // 0 is unbounded
	seq  uint64
	dups int
	hits int
	miss int
	evic int
}

// NewTxPool returns a pool holding at most sz transactions, the
// oldest is evicted to make room. sz <= 0 means no limit.
func NewTxPool(sz int) *TxPool {
	return &TxPool{
		Mutex: new(sync.Mutex),
		m:     make(map[chainhash.Hash]*poolEntry),
		sz:    sz,
	}
}

// Add a transaction. Adding one that is already there is a no-op, it
// keeps its original place in line.
func (p *TxPool) Add(tx *Tx) {
	hash := tx.Hash()

	p.Lock()
	if _, ok := p.m[hash]; ok {
		p.dups++
		p.Unlock()
		return
	}
	p.checkSize()
	p.seq++
	p.m[hash] = &poolEntry{tx: tx, seq: p.seq}
	p.fifo = append(p.fifo, poolRef{hash: hash, seq: p.seq})
	p.Unlock()
}

func (p *TxPool) live(r poolRef) bool {
	e, ok := p.m[r.hash]
	return ok && e.seq == r.seq
}

func (p *TxPool) checkSize() {
	// NB: locking is up to caller!
	if p.sz <= 0 || len(p.m) < p.sz {
		return
	}
	for len(p.fifo) > 0 {
		r := p.fifo[0]
		p.fifo = p.fifo[1:]
		if p.live(r) {
			log.Debugf("Pool full (%d), evicting tx %v", p.sz, r.hash)
			delete(p.m, r.hash)
			p.evic++
			return
		}
	}
}

// compact drops stale slots once they outnumber live ones.
func (p *TxPool) compact() {
	// NB: locking is up to caller!
	if len(p.fifo) <= 2*len(p.m)+16 {
		return
	}
	fifo := make([]poolRef, 0, len(p.m))
	for _, r := range p.fifo {
		if p.live(r) {
			fifo = append(fifo, r)
		}
	}
	p.fifo = fifo
}

// Remove reports whether the transaction was in the pool.
func (p *TxPool) Remove(hash chainhash.Hash) bool {
	p.Lock()
	_, ok := p.m[hash]
	if ok {
		p.hits++
		delete(p.m, hash)
		p.compact()
	} else {
		p.miss++
	}
	p.Unlock()
	return ok
}

func (p *TxPool) Has(hash chainhash.Hash) bool {
	p.Lock()
	_, ok := p.m[hash]
	p.Unlock()
	return ok
}

func (p *TxPool) Get(hash chainhash.Hash) (*Tx, bool) {
	p.Lock()
	e, ok := p.m[hash]
	p.Unlock()
	if !ok {
		return nil, false
	}
	return e.tx, true
}

func (p *TxPool) Len() int {
	p.Lock()
	n := len(p.m)
	p.Unlock()
	return n
}

// Txs returns a snapshot of the pool in arrival order. The slice is
// the caller's, the transactions are shared and must not be modified.
func (p *TxPool) Txs() TxList {
	p.Lock()
	result := make(TxList, 0, len(p.m))
	for _, r := range p.fifo {
		if p.live(r) {
			result = append(result, p.m[r.hash].tx)
		}
	}
	p.Unlock()
	return result
}

// Stats returns the number of removals that found their transaction,
// the number that did not, duplicate adds and evictions.
func (p *TxPool) Stats() (hits, miss, dups, evic int) {
	p.Lock()
	hits, miss, dups, evic = p.hits, p.miss, p.dups, p.evic
	p.Unlock()
	return
}
