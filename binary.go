package forkchain

import (
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/wire"
)

// Protocol version passed to the wire varint helpers. The encoding of
// varints and var-bytes does not depend on it.
const pver = 0

// Largest byte string (public key, signature) we agree to decode.
const MaxVarBytes = 1 << 16

type BinReader interface {
	BinRead(io.Reader) error
}
type BinWriter interface {
	BinWrite(io.Writer) error
}

// BinRead will see if BinReader interface is provided, otherwise it
// falls back to LittleEndian binary.Read.
func BinRead(s interface{}, r io.Reader) error {
	if br, ok := s.(BinReader); ok {
		return br.BinRead(r)
	}
	return binary.Read(r, binary.LittleEndian, s)
}

// Similar to BinRead, check for BinWriter, defer to binary.Write.
func BinWrite(s interface{}, w io.Writer) error {
	if bw, ok := s.(BinWriter); ok {
		return bw.BinWrite(w)
	}
	return binary.Write(w, binary.LittleEndian, s)
}

func readVarInt(r io.Reader) (uint64, error) {
	return wire.ReadVarInt(r, pver)
}

func writeVarInt(i uint64, w io.Writer) error {
	return wire.WriteVarInt(w, pver, i)
}

func readString(r io.Reader) ([]byte, error) {
	return wire.ReadVarBytes(r, pver, MaxVarBytes, "bytes")
}

func writeString(s []byte, w io.Writer) error {
	return wire.WriteVarBytes(w, pver, s)
}

func writeList(w io.Writer, size int, doWrite func(io.Writer, int) error) error {
	err := writeVarInt(uint64(size), w)
	if err != nil {
		return err
	}

	for i := 0; i < size; i++ {
		if err = doWrite(w, i); err != nil {
			return err
		}
	}
	return nil
}
