package starmap

import (
	"encoding/binary"
	"math"

	"github.com/bits-and-blooms/bitset"

	"github.com/saworbit/orbit-sub003/cid"
)

// bloomFilter is a Kirsch-Mitzenmacher double-hashing bloom filter over
// content IDs, backed by a bitset.BitSet. Two independent base hashes are
// derived from BLAKE2b with distinct domain tags, then combined as
// h_i(x) = h1(x) + i*h2(x) to synthesize bloomHashes probe positions
// without running a separate hash function per probe.
type bloomFilter struct {
	bits *bitset.BitSet
	m    uint64 // bit count
	k    uint32 // hash count
}

const (
	bloomTagH1 byte = 0xB1
	bloomTagH2 byte = 0xB2
)

// newBloomFilter sizes a filter for n elements at the given target
// false-positive rate, per the standard m = -n*ln(p)/(ln2)^2, k = m/n*ln2
// formulas.
func newBloomFilter(n uint64, falsePositiveRate float64) *bloomFilter {
	if n == 0 {
		n = 1
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}
	m := optimalBits(n, falsePositiveRate)
	k := optimalHashes(m, n)
	return &bloomFilter{
		bits: bitset.New(uint(m)),
		m:    m,
		k:    k,
	}
}

func optimalBits(n uint64, p float64) uint64 {
	bits := -float64(n) * math.Log(p) / (math.Ln2 * math.Ln2)
	if bits < 8 {
		bits = 8
	}
	return uint64(bits) + 1
}

func optimalHashes(m, n uint64) uint32 {
	k := (float64(m) / float64(n)) * math.Ln2
	if k < 1 {
		k = 1
	}
	return uint32(k) + 1
}

func (b *bloomFilter) h1(c cid.CID) uint64 {
	sum := cid.SumAll([]byte{bloomTagH1}, c[:])
	return binary.LittleEndian.Uint64(sum[:8])
}

func (b *bloomFilter) h2(c cid.CID) uint64 {
	sum := cid.SumAll([]byte{bloomTagH2}, c[:])
	v := binary.LittleEndian.Uint64(sum[:8])
	if v == 0 {
		v = 1 // avoid a degenerate all-h1 probe sequence
	}
	return v
}

func (b *bloomFilter) add(c cid.CID) {
	h1, h2 := b.h1(c), b.h2(c)
	for i := uint32(0); i < b.k; i++ {
		pos := (h1 + uint64(i)*h2) % b.m
		b.bits.Set(uint(pos))
	}
}

func (b *bloomFilter) contains(c cid.CID) bool {
	h1, h2 := b.h1(c), b.h2(c)
	for i := uint32(0); i < b.k; i++ {
		pos := (h1 + uint64(i)*h2) % b.m
		if !b.bits.Test(uint(pos)) {
			return false
		}
	}
	return true
}

func (b *bloomFilter) encode() []byte {
	out := make([]byte, bitmapByteLen(int(b.m)))
	for i := uint64(0); i < b.m; i++ {
		if b.bits.Test(uint(i)) {
			out[i/8] |= 1 << (i % 8)
		}
	}
	return out
}

func decodeBloomFilter(buf []byte, m uint64, k uint32) *bloomFilter {
	bf := &bloomFilter{bits: bitset.New(uint(m)), m: m, k: k}
	for i := uint64(0); i < m; i++ {
		if buf[i/8]&(1<<(i%8)) != 0 {
			bf.bits.Set(uint(i))
		}
	}
	return bf
}
