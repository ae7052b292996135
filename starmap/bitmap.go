package starmap

import "github.com/bits-and-blooms/bitset"

// presenceBitmap tracks, for one window, which chunks (relative to the
// window's first_chunk) are present locally. Bit k is set iff chunk
// first_chunk+k has been materialized on this node.
type presenceBitmap struct {
	bits *bitset.BitSet
	n    uint
}

func newPresenceBitmap(n uint) *presenceBitmap {
	return &presenceBitmap{bits: bitset.New(n), n: n}
}

func (p *presenceBitmap) set(k uint) {
	p.bits.Set(k)
}

func (p *presenceBitmap) test(k uint) bool {
	return p.bits.Test(k)
}

// nextMissing returns the lowest index >= from that is not present, and
// whether one exists within the window.
func (p *presenceBitmap) nextMissing(from uint) (uint, bool) {
	for i := from; i < p.n; i++ {
		if !p.test(i) {
			return i, true
		}
	}
	return 0, false
}

// encode packs the bitmap into ceil(n/8) bytes, LSB-first within each byte.
func (p *presenceBitmap) encode() []byte {
	out := make([]byte, bitmapByteLen(int(p.n)))
	for i := uint(0); i < p.n; i++ {
		if p.bits.Test(i) {
			out[i/8] |= 1 << (i % 8)
		}
	}
	return out
}

func decodePresenceBitmap(buf []byte, n uint) *presenceBitmap {
	p := newPresenceBitmap(n)
	for i := uint(0); i < n; i++ {
		if buf[i/8]&(1<<(i%8)) != 0 {
			p.bits.Set(i)
		}
	}
	return p
}
