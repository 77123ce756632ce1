package forkchain

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const BlockVersion = 1

var zeroHash chainhash.Hash

// A Block is a header, exactly one coinbase and the regular
// transactions, which are applied in order.
type Block struct {
	*BlockHeader
	Coinbase *Tx
	Txs      TxList
}

// NewBlock builds a block on top of prevHash (the zero hash makes a
// genesis block) and commits the header to its transactions.
func NewBlock(prevHash chainhash.Hash, coinbase *Tx, txs TxList) *Block {
	b := &Block{
		BlockHeader: &BlockHeader{
			Version:  BlockVersion,
			PrevHash: prevHash,
		},
		Coinbase: coinbase,
		Txs:      txs,
	}
	b.HashMerkleRoot = b.merkleRoot()
	return b
}

// merkleRoot of the coinbase followed by the regular transactions,
// bitcoin style: an odd node at any level is paired with itself.
func (b *Block) merkleRoot() chainhash.Hash {
	hashes := make([]chainhash.Hash, 0, len(b.Txs)+1)
	if b.Coinbase != nil {
		hashes = append(hashes, b.Coinbase.Hash())
	}
	hashes = append(hashes, b.Txs.Hashes()...)
	return merkleRoot(hashes)
}

func merkleRoot(hashes []chainhash.Hash) chainhash.Hash {
	if len(hashes) == 0 {
		return zeroHash
	}
	var pair [chainhash.HashSize * 2]byte
	for len(hashes) > 1 {
		if len(hashes)%2 != 0 {
			hashes = append(hashes, hashes[len(hashes)-1])
		}
		next := hashes[:0:0]
		for i := 0; i < len(hashes); i += 2 {
			copy(pair[:chainhash.HashSize], hashes[i][:])
			copy(pair[chainhash.HashSize:], hashes[i+1][:])
			next = append(next, chainhash.DoubleHashH(pair[:]))
		}
		hashes = next
	}
	return hashes[0]
}
