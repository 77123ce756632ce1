package forkchain

import (
	"math"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/pkg/errors"
)

// Reasons a transaction is refused, in the order they are checked.
var (
	ErrMissingInput      = errors.New("input refers to an unknown or spent output")
	ErrDuplicateInput    = errors.New("output claimed more than once")
	ErrBadSignature      = errors.New("signature does not verify")
	ErrNegativeOutput    = errors.New("negative output value")
	ErrValueOverflow     = errors.New("value sum overflows")
	ErrInsufficientInput = errors.New("outputs exceed inputs")
)

// SigVerifier checks that sig is a signature of payload by the owner
// of pubKey.
type SigVerifier interface {
	Verify(pubKey, payload, sig []byte) bool
}

// TxHandler validates transactions against an UTXOSet and applies the
// ones it accepts to that same set.
type TxHandler struct {
	utxos    *UTXOSet
	verifier SigVerifier
}

// NewTxHandler does not copy utxos, HandleTxs mutates it.
func NewTxHandler(utxos *UTXOSet, verifier SigVerifier) *TxHandler {
	return &TxHandler{utxos: utxos, verifier: verifier}
}

func (h *TxHandler) UTXOSet() *UTXOSet {
	return h.utxos
}

func (h *TxHandler) IsValidTx(tx *Tx) bool {
	return h.CheckTx(tx) == nil
}

// CheckTx returns nil if tx can be applied to the current set, or the
// first rule it breaks. Coinbase transactions are always valid.
func (h *TxHandler) CheckTx(tx *Tx) error {
	if tx.IsCoinbase() {
		return nil
	}

	claimed := make([]*TxOut, len(tx.TxIns))
	for i, in := range tx.TxIns {
		out, ok := h.utxos.Get(in.PrevOut)
		if !ok {
			return ErrMissingInput
		}
		claimed[i] = out
	}

	seen := make(map[OutPoint]bool, len(tx.TxIns))
	for _, in := range tx.TxIns {
		if seen[in.PrevOut] {
			return ErrDuplicateInput
		}
		seen[in.PrevOut] = true
	}

	for i, in := range tx.TxIns {
		if !h.verifier.Verify(claimed[i].PubKey, tx.SigPayload(i), in.Signature) {
			return ErrBadSignature
		}
	}

	for _, out := range tx.TxOuts {
		if out.Value < 0 {
			return ErrNegativeOutput
		}
	}

	var outSum int64
	for _, out := range tx.TxOuts {
		if outSum > math.MaxInt64-out.Value {
			return ErrValueOverflow
		}
		outSum += out.Value
	}

	// outputs in a set are never negative, see BlockChain.commitBlock
	var inSum int64
	for _, out := range claimed {
		if inSum > math.MaxInt64-out.Value {
			return ErrValueOverflow
		}
		inSum += out.Value
	}

	if inSum < outSum {
		return ErrInsufficientInput
	}
	return nil
}

// HandleTxs goes over txs once, in order, and applies every one that
// is valid at that point. A tx conflicting with one accepted earlier in
// the same call is dropped and not retried. The accepted txs are
// returned in their original relative order.
func (h *TxHandler) HandleTxs(txs TxList) TxList {
	accepted := make(TxList, 0, len(txs))
	for _, tx := range txs {
		if err := h.CheckTx(tx); err != nil {
			log.Debugf("Rejecting tx %v: %v", tx.Hash(), err)
			continue
		}
		h.apply(tx)
		accepted = append(accepted, tx)
	}
	return accepted
}

func (h *TxHandler) apply(tx *Tx) {
	for _, in := range tx.TxIns {
		h.utxos.Remove(in.PrevOut)
	}
	h.utxos.AddTxOuts(tx)
	log.Tracef("Applied tx %v (%d in, %d out, %v)", tx.Hash(), len(tx.TxIns), len(tx.TxOuts), btcutil.Amount(tx.OutputValue()))
}
