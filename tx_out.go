package forkchain

import (
	"bytes"
	"io"
)

type TxOut struct {
	Value  int64  // may be negative on the wire, such outputs never validate
	PubKey []byte // owner, compressed secp256k1 public key
}

func (tout *TxOut) BinRead(r io.Reader) (err error) {
	if err = BinRead(&tout.Value, r); err != nil {
		return err
	}
	if tout.PubKey, err = readString(r); err != nil {
		return err
	}
	return nil
}

func (tout *TxOut) BinWrite(w io.Writer) (err error) {
	if err = BinWrite(tout.Value, w); err != nil {
		return err
	}
	if err = writeString(tout.PubKey, w); err != nil {
		return err
	}
	return nil
}

// IsOwnedBy reports whether pubKey is the owner of the output.
func (tout *TxOut) IsOwnedBy(pubKey []byte) bool {
	return bytes.Equal(tout.PubKey, pubKey)
}

type TxOutList []*TxOut

func (touts *TxOutList) BinWrite(w io.Writer) error {
	return writeList(w, len(*touts), func(w io.Writer, i int) error {
		return BinWrite((*touts)[i], w)
	})
}
