package forkchain

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

type blkNode struct {
	hash     chainhash.Hash
	height   int
	block    *Block   // header only once the node is too old to be extended
	utxos    *UTXOSet // nil once the node is too old to be extended
	parent   *blkNode
	children []*blkNode
	orphan   bool // neither the best node nor one of its ancestors
}

// The purpose of this graph is two-fold. First, it computes the height
// of an incoming block by incrementing its parent and keeps track of
// the best (highest) node, flagging every node off the best branch as
// orphan. Second, it forgets the parts of the tree that fell behind the
// cutoff window so that memory stays bounded while the chain grows.
type blkGraph struct {
	root   *blkNode
	best   *blkNode
	byHash map[chainhash.Hash]*blkNode
}

func newBlkGraph(root *blkNode) *blkGraph {
	g := &blkGraph{
		root:   root,
		best:   root,
		byHash: make(map[chainhash.Hash]*blkNode),
	}
	g.byHash[root.hash] = root
	return g
}

func (g *blkGraph) get(hash chainhash.Hash) (*blkNode, bool) {
	n, ok := g.byHash[hash]
	return n, ok
}

func (g *blkGraph) size() int {
	return len(g.byHash)
}

// Add a node under its parent, which must be in the graph. The node
// becomes best only if it is strictly higher than the current best,
// so on a tie the first node to reach a height keeps the pointer. The
// returned node is the fork point when the best branch switched, nil
// otherwise.
func (g *blkGraph) add(node *blkNode) (reorgFrom *blkNode) {
	parent := g.byHash[node.block.PrevHash]
	node.parent = parent
	node.height = parent.height + 1
	node.orphan = true
	parent.children = append(parent.children, node)
	g.byHash[node.hash] = node

	if node.height <= g.best.height {
		return nil
	}
	oldBest := g.best
	fork := g.setBest(node)
	if fork != oldBest {
		return fork
	}
	return nil
}

// setBest moves the best pointer to node and flips orphan flags along
// both branches up to their common ancestor, which it returns.
func (g *blkGraph) setBest(node *blkNode) *blkNode {
	n := node
	for ; n.orphan; n = n.parent {
		n.orphan = false
	}
	fork := n
	for o := g.best; o != fork; o = o.parent {
		o.orphan = true
	}
	g.best = node
	return fork
}

// Figure out the chain length starting at node, if a split is
// detected, pick the longest chain (recursive).
func (g *blkGraph) chainLen(node *blkNode) (result int) {
	if node == nil {
		return 0
	}
	maxChild := 0
	result++
	for _, child := range node.children {
		l := g.chainLen(child)
		if l > maxChild {
			maxChild = l
		}
	}
	return result + maxChild
}

// Depth-first (pre-order) traversal
func (g *blkGraph) dft(start *blkNode, action func(*blkNode)) {
	stack := make(blkNodeStack, 0)

	stack.push(start)
	for len(stack) > 0 {
		n := stack.pop()
		action(n)
		for i := len(n.children) - 1; i >= 0; i-- {
			stack.push(n.children[i])
		}
	}
}

// prune forgets what can no longer matter once no block at height cut
// or below can be added, i.e. nodes lower than cut can no longer be
// extended:
//
//   - side branches whose every node is below cut are removed;
//   - nodes below cut that stay give up their UTXO snapshot and keep
//     only the block header;
//   - if retain > 0, the root moves up the best branch until at most
//     retain best-branch nodes below cut remain.
//
// It returns the number of nodes removed.
func (g *blkGraph) prune(cut, retain int) (evicted int) {
	for n := g.best; n != nil; n = n.parent {
		kept := n.children[:0]
		for _, child := range n.children {
			if child.orphan && child.height+g.chainLen(child)-1 < cut {
				g.dft(child, func(x *blkNode) {
					delete(g.byHash, x.hash)
					x.utxos = nil
					evicted++
				})
				continue
			}
			kept = append(kept, child)
		}
		for i := len(kept); i < len(n.children); i++ {
			n.children[i] = nil
		}
		n.children = kept
	}

	g.dft(g.root, func(x *blkNode) {
		if x.height < cut {
			x.utxos = nil
			if x.block.Coinbase != nil || x.block.Txs != nil {
				x.block = &Block{BlockHeader: x.block.BlockHeader}
			}
		}
	})

	if retain > 0 {
		for g.root.height < cut-retain && len(g.root.children) == 1 {
			delete(g.byHash, g.root.hash)
			g.root.children[0].parent = nil
			g.root = g.root.children[0]
			evicted++
		}
	}
	return evicted
}

// A simple stack for our dft
type blkNodeStack []*blkNode

// yes, these must be methods on the pointer

func (q *blkNodeStack) push(n *blkNode) {
	*q = append(*q, n)
}

func (q *blkNodeStack) pop() (n *blkNode) {
	if len(*q) == 0 {
		return nil
	}
	n, *q = (*q)[len(*q)-1], (*q)[:len(*q)-1]
	return n
}
