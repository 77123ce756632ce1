package forkchain

import (
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// OutPoint identifies exactly one output: the hash of the transaction
// that created it and its index in that transaction's output list.
type OutPoint struct {
	Hash chainhash.Hash
	N    uint32
}

func (o OutPoint) String() string {
	return fmt.Sprintf("%v:%d", o.Hash, o.N)
}

type TxIn struct {
	PrevOut   OutPoint
	Signature []byte // DER signature over the tx SigPayload for this input
}

func (tin *TxIn) BinWrite(w io.Writer) (err error) {
	if err = BinWrite(tin.PrevOut, w); err != nil {
		return err
	}
	if err = writeString(tin.Signature, w); err != nil {
		return err
	}
	return nil
}

type TxInList []*TxIn

func (tins *TxInList) BinWrite(w io.Writer) error {
	return writeList(w, len(*tins), func(w io.Writer, i int) error {
		return BinWrite((*tins)[i], w)
	})
}
