package forkchain

import (
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"

	"github.com/blkchain/forkchain/secp"
)

// Reasons a block is refused.
var (
	ErrGenesisBlock   = errors.New("block has no parent")
	ErrUnknownParent  = errors.New("parent block unknown")
	ErrStaleBlock     = errors.New("block is behind the cutoff window")
	ErrDuplicateBlock = errors.New("block already committed")
	ErrBadCoinbase    = errors.New("missing or malformed coinbase")
	ErrBadMerkleRoot  = errors.New("merkle root does not match transactions")
	ErrInvalidTx      = errors.New("block contains an invalid transaction")
)

// rejectReason is the metrics label of a rejection.
func rejectReason(err error) string {
	switch err {
	case ErrGenesisBlock:
		return "genesis"
	case ErrUnknownParent:
		return "unknown_parent"
	case ErrStaleBlock:
		return "stale"
	case ErrDuplicateBlock:
		return "duplicate"
	case ErrBadCoinbase:
		return "coinbase"
	case ErrBadMerkleRoot:
		return "merkle_root"
	case ErrInvalidTx:
		return "invalid_tx"
	}
	return "other"
}

// BlockChain is a tree of blocks rooted at the genesis block. Every
// node carries the UTXO set resulting from its branch, so forks never
// see each other's spends. The highest node, first come first served
// among equals, is the best block that miners are expected to extend.
//
// All methods are safe for concurrent use, commits are serialized.
type BlockChain struct {
	mtx      sync.RWMutex
	graph    *blkGraph
	pool     *TxPool
	cfg      Config
	metrics  *chainMetrics
	advances int // best block advances since the last sweep
}

// New creates a chain holding only genesis, which the caller guarantees
// to be valid: no parent, a coinbase and no other transactions. A nil
// cfg means DefaultConfig.
func New(genesis *Block, cfg *Config) *BlockChain {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	bc := &BlockChain{cfg: *cfg}
	if bc.cfg.Verifier == nil {
		bc.cfg.Verifier = secp.Verifier{}
	}
	if bc.cfg.CutoffAge < 0 {
		bc.cfg.CutoffAge = 0
	}

	utxos := NewUTXOSet()
	if genesis.Coinbase != nil {
		utxos.AddTxOuts(genesis.Coinbase)
	}
	bc.graph = newBlkGraph(&blkNode{
		hash:  genesis.Hash(),
		block: genesis,
		utxos: utxos,
	})
	bc.pool = NewTxPool(bc.cfg.MaxPoolSize)
	bc.metrics = newChainMetrics(bc.cfg.Registerer)
	bc.metrics.treeSize.Set(1)

	log.Infof("Chain created with genesis %v (cutoff age %d)", bc.graph.root.hash, bc.cfg.CutoffAge)
	return bc
}

func (bc *BlockChain) MaxHeightBlock() *Block {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	return bc.graph.best.block
}

func (bc *BlockChain) MaxHeight() int {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	return bc.graph.best.height
}

// MaxHeightUTXOSet returns a copy of the UTXO set of the best block,
// which is what a new block on top of it is validated against.
func (bc *BlockChain) MaxHeightUTXOSet() *UTXOSet {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	return bc.graph.best.utxos.Clone()
}

// UTXOSetAt returns a copy of the UTXO set of block hash, or false if
// the block is unknown or too old to be extended.
func (bc *BlockChain) UTXOSetAt(hash chainhash.Hash) (*UTXOSet, bool) {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	n, ok := bc.graph.get(hash)
	if !ok || n.utxos == nil {
		return nil, false
	}
	return n.utxos.Clone(), true
}

func (bc *BlockChain) HasBlock(hash chainhash.Hash) bool {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	_, ok := bc.graph.get(hash)
	return ok
}

func (bc *BlockChain) BlockHeight(hash chainhash.Hash) (int, bool) {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	if n, ok := bc.graph.get(hash); ok {
		return n.height, true
	}
	return 0, false
}

// NumBlocks is the number of blocks currently held in the tree.
func (bc *BlockChain) NumBlocks() int {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	return bc.graph.size()
}

// AddTransaction puts tx in the pool of pending transactions. It is not
// validated until a block including it is committed.
func (bc *BlockChain) AddTransaction(tx *Tx) {
	bc.mtx.Lock()
	bc.pool.Add(tx)
	bc.metrics.poolSize.Set(float64(bc.pool.Len()))
	bc.mtx.Unlock()
}

// PendingTransactions returns the pool content in arrival order. It
// never contains a transaction of a block that is already committed
// when the call returns.
func (bc *BlockChain) PendingTransactions() TxList {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	return bc.pool.Txs()
}

func (bc *BlockChain) PendingCount() int {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	return bc.pool.Len()
}

// PoolStats are the TxPool.Stats of the pending pool.
func (bc *BlockChain) PoolStats() (hits, miss, dups, evic int) {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	return bc.pool.Stats()
}

// CommitBlock adds b to the tree if its parent is known, it is within
// the cutoff window, it is not known yet and every transaction is valid
// against the parent's UTXO set. A refused block leaves no trace.
func (bc *BlockChain) CommitBlock(b *Block) bool {
	return bc.commit(b) == nil
}

func (bc *BlockChain) commit(b *Block) error {
	bc.mtx.Lock()
	err := bc.commitBlock(b)
	bc.mtx.Unlock()
	if err != nil {
		bc.rejected(b, err)
	}
	return err
}

// retry commits a block that was already refused for its missing
// parent. Still missing it is not counted again.
func (bc *BlockChain) retry(b *Block) error {
	bc.mtx.Lock()
	err := bc.commitBlock(b)
	bc.mtx.Unlock()
	if err != nil && err != ErrUnknownParent {
		bc.rejected(b, err)
	}
	return err
}

func (bc *BlockChain) rejected(b *Block, err error) {
	log.Debugf("Rejected block %v: %v", b.Hash(), err)
	bc.metrics.blocksRejected.WithLabelValues(rejectReason(err)).Inc()
}

// NB: caller holds the write lock.
func (bc *BlockChain) commitBlock(b *Block) error {
	if !b.HasParent() {
		return ErrGenesisBlock
	}
	parent, ok := bc.graph.get(b.PrevHash)
	if !ok {
		return ErrUnknownParent
	}
	if parent.height+1 <= bc.graph.best.height-bc.cfg.CutoffAge {
		return ErrStaleBlock
	}
	hash := b.Hash()
	if _, ok := bc.graph.get(hash); ok {
		return ErrDuplicateBlock
	}
	if !validCoinbase(b.Coinbase) {
		return ErrBadCoinbase
	}
	if b.HashMerkleRoot != b.merkleRoot() {
		return ErrBadMerkleRoot
	}

	// The handler works on a private copy, if any tx fails the copy
	// is simply dropped.
	utxos := parent.utxos.Clone()
	accepted := NewTxHandler(utxos, bc.cfg.Verifier).HandleTxs(b.Txs)
	if len(accepted) != len(b.Txs) {
		return ErrInvalidTx
	}
	utxos.AddTxOuts(b.Coinbase)

	node := &blkNode{hash: hash, block: b, utxos: utxos}
	prevHeight := bc.graph.best.height
	if fork := bc.graph.add(node); fork != nil {
		log.Infof("Reorg: best branch now %v at height %d, forked at %v (height %d)",
			hash, node.height, fork.hash, fork.height)
		bc.metrics.reorgs.Inc()
	}

	for _, tx := range accepted {
		bc.pool.Remove(tx.Hash())
	}

	log.Debugf("Committed block %v at height %d: %d txs, coinbase %v",
		hash, node.height, len(b.Txs), btcutil.Amount(b.Coinbase.OutputValue()))

	if node.height > prevHeight {
		bc.metrics.maxHeight.Set(float64(node.height))
		bc.advances++
		if bc.cfg.PruneInterval > 0 && bc.advances >= bc.cfg.PruneInterval {
			bc.prune()
		}
	}

	bc.metrics.blocksCommitted.Inc()
	bc.metrics.txsAccepted.Add(float64(len(accepted)))
	bc.metrics.treeSize.Set(float64(bc.graph.size()))
	bc.metrics.poolSize.Set(float64(bc.pool.Len()))
	return nil
}

// Every output of a coinbase lands in the UTXO set unchecked, so it
// must at least not carry negative values that would break the sums
// of later spends.
func validCoinbase(tx *Tx) bool {
	if tx == nil || !tx.IsCoinbase() {
		return false
	}
	for _, out := range tx.TxOuts {
		if out.Value < 0 {
			return false
		}
	}
	return true
}

// Prune runs the sweep that forgets blocks which can no longer be
// extended and returns how many were removed. It also runs on its own
// according to Config.PruneInterval.
func (bc *BlockChain) Prune() int {
	bc.mtx.Lock()
	defer bc.mtx.Unlock()
	return bc.prune()
}

// NB: caller holds the write lock.
func (bc *BlockChain) prune() int {
	bc.advances = 0
	cut := bc.graph.best.height - bc.cfg.CutoffAge
	evicted := bc.graph.prune(cut, bc.cfg.AncestorRetention)
	if evicted > 0 {
		log.Debugf("Pruned %d blocks below height %d, %d left", evicted, cut, bc.graph.size())
		bc.metrics.blocksEvicted.Add(float64(evicted))
		bc.metrics.treeSize.Set(float64(bc.graph.size()))
	}
	return evicted
}
