package forkchain

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blkchain/forkchain/secp"
)

// fundedHandler returns a handler over a set holding a single output
// of value owned by alice.
func fundedHandler(value int64) (*TxHandler, OutPoint) {
	funding := NewCoinbaseTx(alice.PubKey(), value, 0)
	utxos := NewUTXOSet()
	utxos.AddTxOuts(funding)
	return NewTxHandler(utxos, secp.Verifier{}), outPoint(funding, 0)
}

func TestCheckTx(t *testing.T) {
	h, op := fundedHandler(10)

	tests := []struct {
		name string
		tx   *Tx
		err  error
	}{
		{"valid", spend(t, alice, []OutPoint{op}, pay(bob, 10)), nil},
		{"with fee", spend(t, alice, []OutPoint{op}, pay(bob, 7)), nil},
		{"no outputs", spend(t, alice, []OutPoint{op}), nil},
		{"missing input", spend(t, alice, []OutPoint{{N: 7}}, pay(bob, 1)), ErrMissingInput},
		{"duplicate input", spend(t, alice, []OutPoint{op, op}, pay(bob, 1)), ErrDuplicateInput},
		{"wrong signer", spend(t, bob, []OutPoint{op}, pay(bob, 10)), ErrBadSignature},
		{"negative output", spend(t, alice, []OutPoint{op}, pay(bob, -1)), ErrNegativeOutput},
		{"negative output with plenty", spend(t, alice, []OutPoint{op}, pay(bob, -1), pay(carol, 2)), ErrNegativeOutput},
		{"value creation", spend(t, alice, []OutPoint{op}, pay(bob, 6), pay(carol, 5)), ErrInsufficientInput},
		{"overflow", spend(t, alice, []OutPoint{op}, pay(bob, math.MaxInt64), pay(carol, math.MaxInt64)), ErrValueOverflow},
		{"negative output after overflowing ones", spend(t, alice, []OutPoint{op},
			pay(bob, 1<<62), pay(bob, 1<<62), pay(bob, 1<<62), pay(carol, -1)), ErrNegativeOutput},
		{"coinbase", NewCoinbaseTx(carol.PubKey(), 1000, 3), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.err, h.CheckTx(tt.tx))
			assert.Equal(t, tt.err == nil, h.IsValidTx(tt.tx))
		})
	}
}

func TestCheckTx_unsigned(t *testing.T) {
	h, op := fundedHandler(10)
	tx := &Tx{Version: TxVersion}
	tx.AddTxIn(op)
	tx.AddTxOut(10, bob.PubKey())
	assert.Equal(t, ErrBadSignature, h.CheckTx(tx))
}

func TestCheckTx_tamperedAfterSigning(t *testing.T) {
	h, op := fundedHandler(10)
	tx := spend(t, alice, []OutPoint{op}, pay(bob, 10))
	tx.TxOuts[0].PubKey = carol.PubKey()
	assert.Equal(t, ErrBadSignature, h.CheckTx(tx))
}

func TestSignInput_outOfRange(t *testing.T) {
	_, op := fundedHandler(10)
	tx := &Tx{Version: TxVersion}
	tx.AddTxIn(op)
	assert.Error(t, tx.SignInput(1, alice))
	assert.Error(t, tx.SignInput(-1, alice))
	assert.Nil(t, tx.TxIns[0].Signature)
	assert.NoError(t, tx.SignInput(0, alice))
}

func TestHandleTxs_doubleSpend(t *testing.T) {
	h, op := fundedHandler(10)
	first := spend(t, alice, []OutPoint{op}, pay(bob, 10))
	second := spend(t, alice, []OutPoint{op}, pay(carol, 10))

	accepted := h.HandleTxs(TxList{first, second})
	require.Len(t, accepted, 1)
	assert.Equal(t, first.Hash(), accepted[0].Hash())

	utxos := h.UTXOSet()
	assert.False(t, utxos.Contains(op))
	assert.True(t, utxos.Contains(outPoint(first, 0)))
	assert.False(t, utxos.Contains(outPoint(second, 0)))
}

func TestHandleTxs_chained(t *testing.T) {
	h, op := fundedHandler(10)
	t1 := spend(t, alice, []OutPoint{op}, pay(bob, 6), pay(alice, 4))
	t2 := spend(t, bob, []OutPoint{outPoint(t1, 0)}, pay(carol, 6))

	// t2 first: its input does not exist yet and it is not retried
	accepted := h.HandleTxs(TxList{t2, t1})
	require.Len(t, accepted, 1)
	assert.Equal(t, t1.Hash(), accepted[0].Hash())

	h, op = fundedHandler(10)
	accepted = h.HandleTxs(TxList{t1, t2})
	require.Len(t, accepted, 2)
	assert.Equal(t, t1.Hash(), accepted[0].Hash())
	assert.Equal(t, t2.Hash(), accepted[1].Hash())

	utxos := h.UTXOSet()
	assert.Equal(t, 2, utxos.Len())
	assert.True(t, utxos.Contains(outPoint(t1, 1)))
	assert.True(t, utxos.Contains(outPoint(t2, 0)))
}

func TestHandleTxs_keepsOrder(t *testing.T) {
	funding := &Tx{Version: TxVersion}
	for i := 0; i < 5; i++ {
		funding.AddTxOut(int64(i+1), alice.PubKey())
	}
	utxos := NewUTXOSet()
	utxos.AddTxOuts(funding)
	h := NewTxHandler(utxos, secp.Verifier{})

	var txs TxList
	for i := 4; i >= 0; i-- {
		txs = append(txs, spend(t, alice, []OutPoint{outPoint(funding, uint32(i))}, pay(bob, int64(i+1))))
	}
	txs = append(txs[:2], append(TxList{spend(t, bob, []OutPoint{outPoint(funding, 0)})}, txs[2:]...)...)

	accepted := h.HandleTxs(txs)
	require.Len(t, accepted, 5)
	for i, tx := range accepted {
		assert.Equal(t, int64(5-i), tx.TxOuts[0].Value)
	}
}

// Whatever gets accepted conserves value and has no negative output.
func TestHandleTxs_conservation(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	keys := []*secp.Key{alice, bob, carol}

	funding := &Tx{Version: TxVersion}
	for i := 0; i < 30; i++ {
		funding.AddTxOut(rnd.Int63n(100), keys[i%3].PubKey())
	}
	utxos := NewUTXOSet()
	utxos.AddTxOuts(funding)
	h := NewTxHandler(utxos, secp.Verifier{})

	var txs TxList
	for i := 0; i < 60; i++ {
		n := uint32(rnd.Intn(30))
		owner := keys[int(n)%3]
		if rnd.Intn(5) == 0 {
			owner = keys[rnd.Intn(3)]
		}
		txs = append(txs, spend(t, owner, []OutPoint{outPoint(funding, n)},
			pay(keys[rnd.Intn(3)], rnd.Int63n(120)-10)))
	}

	snapshot := NewUTXOSet()
	snapshot.AddTxOuts(funding)
	for _, tx := range h.HandleTxs(txs) {
		var in, out int64
		for _, txin := range tx.TxIns {
			prev, ok := snapshot.Get(txin.PrevOut)
			require.True(t, ok)
			in += prev.Value
			snapshot.Remove(txin.PrevOut)
		}
		for _, txout := range tx.TxOuts {
			assert.GreaterOrEqual(t, txout.Value, int64(0))
			out += txout.Value
		}
		assert.GreaterOrEqual(t, in, out)
		snapshot.AddTxOuts(tx)
	}
	assert.Equal(t, snapshot.Len(), h.UTXOSet().Len())
}
