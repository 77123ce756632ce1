package forkchain

import (
	"bytes"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

type BlockHeader struct {
	Version        uint32
	PrevHash       chainhash.Hash // zero for the genesis block
	HashMerkleRoot chainhash.Hash
	Time           uint32
	Nonce          uint32
}

func (bh *BlockHeader) Hash() chainhash.Hash {
	buf := new(bytes.Buffer)
	BinWrite(bh, buf)
	return chainhash.DoubleHashH(buf.Bytes())
}

func (bh *BlockHeader) HasParent() bool {
	return bh.PrevHash != zeroHash
}
