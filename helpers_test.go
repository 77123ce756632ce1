package forkchain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blkchain/forkchain/secp"
)

var (
	alice = secp.KeyFromSeed([]byte("alice"))
	bob   = secp.KeyFromSeed([]byte("bob"))
	carol = secp.KeyFromSeed([]byte("carol"))
	miner = secp.KeyFromSeed([]byte("miner"))
)

const blockReward = 25

func newGenesis(owner *secp.Key, value int64) *Block {
	return NewBlock(zeroHash, NewCoinbaseTx(owner.PubKey(), value, 0), nil)
}

// newBlockOn builds a block on parent with a coinbase paying the miner.
// nonce tells apart siblings that would otherwise be identical.
func newBlockOn(parent *Block, height int, nonce uint32, txs ...*Tx) *Block {
	b := NewBlock(parent.Hash(), NewCoinbaseTx(miner.PubKey(), blockReward, height), txs)
	b.Nonce = nonce
	return b
}

func coinbaseOut(b *Block) OutPoint {
	return OutPoint{Hash: b.Coinbase.Hash(), N: 0}
}

func outPoint(tx *Tx, n uint32) OutPoint {
	return OutPoint{Hash: tx.Hash(), N: n}
}

// spend builds a tx consuming ops, all owned by from, signed by from.
func spend(t *testing.T, from *secp.Key, ops []OutPoint, outs ...*TxOut) *Tx {
	tx := &Tx{Version: TxVersion}
	for _, op := range ops {
		tx.AddTxIn(op)
	}
	for _, out := range outs {
		tx.AddTxOut(out.Value, out.PubKey)
	}
	for i := range tx.TxIns {
		require.NoError(t, tx.SignInput(i, from))
	}
	return tx
}

func pay(k *secp.Key, value int64) *TxOut {
	return &TxOut{Value: value, PubKey: k.PubKey()}
}
