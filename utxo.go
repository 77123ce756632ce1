package forkchain

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb/comparer"
	"github.com/syndtr/goleveldb/leveldb/memdb"
)

// Initial arena size of a fresh memdb, it grows as needed.
const utxoSetCapacity = 4 * 1024

// An UTXOSet holds the unspent outputs of one branch snapshot. Entries
// live in a goleveldb memdb keyed the way Core keys its chainstate
// (hash followed by the varint output index), so iteration is ordered
// by outpoint.
//
// A set belongs to exactly one chain node. Use Clone to derive the
// snapshot of a child.
type UTXOSet struct {
	db *memdb.DB
}

func NewUTXOSet() *UTXOSet {
	return newUTXOSet(utxoSetCapacity)
}

func newUTXOSet(capacity int) *UTXOSet {
	return &UTXOSet{db: memdb.New(comparer.DefaultComparer, capacity)}
}

// An OutPoint which uses a varint for N such as the case in
// chainstate LevelDb keys
type DbOutPoint OutPoint

func (o *DbOutPoint) BinRead(r io.Reader) error {
	if err := BinRead(&o.Hash, r); err != nil {
		return err
	}
	if n, err := readVarInt(r); err != nil {
		return err
	} else {
		o.N = uint32(n)
	}
	return nil
}

func (o *DbOutPoint) BinWrite(w io.Writer) error {
	if err := BinWrite(o.Hash, w); err != nil {
		return err
	}
	if err := writeVarInt(uint64(o.N), w); err != nil {
		return err
	}
	return nil
}

func outPointKey(op OutPoint) []byte {
	var buf [40]byte
	w := bytes.NewBuffer(buf[:0])
	dop := DbOutPoint(op)
	BinWrite(&dop, w)
	return w.Bytes()
}

func (s *UTXOSet) Contains(op OutPoint) bool {
	return s.db.Contains(outPointKey(op))
}

// Get returns a copy of the output stored at op.
func (s *UTXOSet) Get(op OutPoint) (*TxOut, bool) {
	v, err := s.db.Get(outPointKey(op))
	if err != nil {
		return nil, false
	}
	var out TxOut
	if err := BinRead(&out, bytes.NewReader(v)); err != nil {
		log.Errorf("Corrupt UTXO entry at %v: %v", op, err)
		return nil, false
	}
	return &out, true
}

// Add stores out at op. Adding an outpoint that is already present
// replaces it; callers must not rely on that.
func (s *UTXOSet) Add(op OutPoint, out *TxOut) {
	buf := new(bytes.Buffer)
	BinWrite(out, buf)
	// memdb.Put only fails on a closed db, which we never have
	s.db.Put(outPointKey(op), buf.Bytes())
}

// Remove deletes op, it is not an error if op is absent.
func (s *UTXOSet) Remove(op OutPoint) {
	s.db.Delete(outPointKey(op))
}

// AddTxOuts adds every output of tx, keyed by the tx hash.
func (s *UTXOSet) AddTxOuts(tx *Tx) {
	hash := tx.Hash()
	for n, out := range tx.TxOuts {
		s.Add(OutPoint{Hash: hash, N: uint32(n)}, out)
	}
}

func (s *UTXOSet) Len() int {
	return s.db.Len()
}

// Clone returns a deep copy. The copy is compact: memdb never gives
// back the space of deleted entries, the clone only carries live ones.
func (s *UTXOSet) Clone() *UTXOSet {
	capacity := s.db.Size()
	if capacity < utxoSetCapacity {
		capacity = utxoSetCapacity
	}
	result := newUTXOSet(capacity)
	iter := s.db.NewIterator(nil)
	defer iter.Release()
	for iter.Next() {
		result.db.Put(iter.Key(), iter.Value())
	}
	return result
}

// ForEach calls fn for every entry in outpoint order until fn returns
// false.
func (s *UTXOSet) ForEach(fn func(OutPoint, *TxOut) bool) error {
	iter := s.db.NewIterator(nil)
	defer iter.Release()
	for iter.Next() {
		var (
			dop DbOutPoint
			out TxOut
		)
		if err := BinRead(&dop, bytes.NewReader(iter.Key())); err != nil {
			return errors.Wrap(err, "decoding outpoint")
		}
		if err := BinRead(&out, bytes.NewReader(iter.Value())); err != nil {
			return errors.Wrapf(err, "decoding output %v", OutPoint(dop))
		}
		if !fn(OutPoint(dop), &out) {
			break
		}
	}
	return iter.Error()
}

// Balance sums the values of all outputs owned by pubKey.
func (s *UTXOSet) Balance(pubKey []byte) (total int64, err error) {
	err = s.ForEach(func(_ OutPoint, out *TxOut) bool {
		if out.IsOwnedBy(pubKey) {
			total += out.Value
		}
		return true
	})
	return total, err
}
