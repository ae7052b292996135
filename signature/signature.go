// Package signature implements the destination-side signature table and
// index used by the delta engine.
package signature

import (
	"io"

	"github.com/saworbit/orbit-sub003/cid"
	"github.com/saworbit/orbit-sub003/orbiterrors"
)

// Signature describes one fixed-size block of a destination file.
type Signature struct {
	Offset     uint64
	Length     uint32
	WeakHash   uint64
	StrongHash cid.CID
}

// Table holds the ordered signatures generated over a destination file, plus
// an index from weak hash to candidate signatures for O(1) expected probing.
type Table struct {
	BlockSize uint32
	sigs      []Signature
	index     map[uint64][]int // weak hash -> indexes into sigs
}

// NewTable builds a signature table by reading r in fixed blockSize blocks.
// The final, possibly short, block is still indexed (its Length reflects
// the actual bytes read).
func NewTable(r io.Reader, blockSize uint32) (*Table, error) {
	if blockSize == 0 {
		return nil, orbiterrors.New(orbiterrors.PolicyViolation, "signature: block size must be > 0")
	}
	t := &Table{BlockSize: blockSize, index: make(map[uint64][]int)}
	buf := make([]byte, blockSize)
	var offset uint64
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			block := buf[:n]
			sig := Signature{
				Offset:     offset,
				Length:     uint32(n),
				WeakHash:   cid.WeakHash(block),
				StrongHash: cid.Sum(block),
			}
			idx := len(t.sigs)
			t.sigs = append(t.sigs, sig)
			t.index[sig.WeakHash] = append(t.index[sig.WeakHash], idx)
			offset += uint64(n)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, orbiterrors.Wrap(orbiterrors.IO, "signature: reading destination", err)
		}
		if n < int(blockSize) {
			break
		}
	}
	return t, nil
}

// Signatures returns every signature in file order.
func (t *Table) Signatures() []Signature {
	return t.sigs
}

// Len reports how many signatures the table holds.
func (t *Table) Len() int {
	return len(t.sigs)
}

// Candidates returns every signature sharing the given weak hash. The delta
// engine confirms a match by comparing strong hashes among these
// candidates.
func (t *Table) Candidates(weakHash uint64) []Signature {
	idxs := t.index[weakHash]
	if len(idxs) == 0 {
		return nil
	}
	out := make([]Signature, len(idxs))
	for i, idx := range idxs {
		out[i] = t.sigs[idx]
	}
	return out
}

// Match returns the first candidate (in registration order, giving a
// deterministic tie-break) whose strong hash equals strongHash, and true
// if one was found.
func (t *Table) Match(weakHash uint64, strongHash cid.CID) (Signature, bool) {
	for _, idx := range t.index[weakHash] {
		if t.sigs[idx].StrongHash == strongHash {
			return t.sigs[idx], true
		}
	}
	return Signature{}, false
}
