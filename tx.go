package forkchain

import (
	"bytes"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
)

const TxVersion = 1

type Tx struct {
	Version  uint32
	TxIns    TxInList
	TxOuts   TxOutList
	LockTime uint32
}

// Signer produces the signature stored in a TxIn. secp.Key is the
// implementation shipped with this package.
type Signer interface {
	Sign(payload []byte) []byte
}

// NewCoinbaseTx creates the reward transaction of a block. The height
// goes into LockTime so that coinbases paying the same key in one
// branch never share a hash.
func NewCoinbaseTx(pubKey []byte, value int64, height int) *Tx {
	return &Tx{
		Version:  TxVersion,
		TxOuts:   TxOutList{{Value: value, PubKey: pubKey}},
		LockTime: uint32(height),
	}
}

func (tx *Tx) IsCoinbase() bool {
	return len(tx.TxIns) == 0
}

// The hash covers signatures, so a transaction is only final once all
// of its inputs are signed.
func (tx *Tx) Hash() chainhash.Hash {
	buf := new(bytes.Buffer)
	tx.BinWrite(buf)
	return chainhash.DoubleHashH(buf.Bytes())
}

// AddTxIn appends an unsigned input spending op.
func (tx *Tx) AddTxIn(op OutPoint) {
	tx.TxIns = append(tx.TxIns, &TxIn{PrevOut: op})
}

func (tx *Tx) AddTxOut(value int64, pubKey []byte) {
	tx.TxOuts = append(tx.TxOuts, &TxOut{Value: value, PubKey: pubKey})
}

// SigPayload returns the bytes an owner signs to spend the output
// referenced by input i: that input's outpoint followed by every
// output of the transaction.
func (tx *Tx) SigPayload(i int) []byte {
	buf := new(bytes.Buffer)
	BinWrite(tx.Version, buf)
	BinWrite(tx.TxIns[i].PrevOut, buf)
	BinWrite(&tx.TxOuts, buf)
	BinWrite(tx.LockTime, buf)
	return buf.Bytes()
}

// SignInput signs input i with s. Inputs can be signed in any order,
// the payload of one input does not depend on other signatures.
func (tx *Tx) SignInput(i int, s Signer) error {
	if i < 0 || i >= len(tx.TxIns) {
		return errors.Errorf("input index %d out of range (%d inputs)", i, len(tx.TxIns))
	}
	tx.TxIns[i].Signature = s.Sign(tx.SigPayload(i))
	return nil
}

func (tx *Tx) BinWrite(w io.Writer) (err error) {
	if err = BinWrite(tx.Version, w); err != nil {
		return err
	}
	if err = BinWrite(&tx.TxIns, w); err != nil {
		return err
	}
	if err = BinWrite(&tx.TxOuts, w); err != nil {
		return err
	}
	if err = BinWrite(tx.LockTime, w); err != nil {
		return err
	}
	return nil
}

// OutputValue is the sum of all output values.
func (tx *Tx) OutputValue() (total int64) {
	for _, out := range tx.TxOuts {
		total += out.Value
	}
	return total
}

type TxList []*Tx

// Hashes returns the hashes of the list, in order.
func (tl TxList) Hashes() []chainhash.Hash {
	result := make([]chainhash.Hash, 0, len(tl))
	for _, tx := range tl {
		result = append(result, tx.Hash())
	}
	return result
}
