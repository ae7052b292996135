// Package merkle computes domain-separated Merkle roots over a window's
// chunk CIDs, and verifies inclusion proofs for a single chunk against a
// stored root, giving incremental verification at a coarser granularity
// than per-chunk.
//
// Leaf and interior hashing are domain-separated (a 0x00 prefix byte for
// leaves, 0x01 for interior nodes) so that a leaf hash can never be
// confused with an interior hash of the same bytes — the second-preimage
// attack classic unprefixed Merkle trees are vulnerable to.
package merkle

import (
	"errors"

	"github.com/saworbit/orbit-sub003/cid"
)

const (
	leafPrefix     = 0x00
	interiorPrefix = 0x01
)

// ErrEmptyLeaves is returned by Root when given no leaves.
var ErrEmptyLeaves = errors.New("merkle: no leaves supplied")

// leafHash domain-separates a chunk CID before it enters the tree.
func leafHash(c cid.CID) cid.CID {
	return cid.SumAll([]byte{leafPrefix}, c[:])
}

// interiorHash combines two child hashes into their parent.
func interiorHash(left, right cid.CID) cid.CID {
	return cid.SumAll([]byte{interiorPrefix}, left[:], right[:])
}

// Root computes the Merkle root over leaves (chunk CIDs), domain-separating
// leaves from interior nodes. If the leaf count is not a power of two, the
// tree splits at the largest power of two below the leaf count, and the
// orphan subtree(s) are carried up unrehashed at that level.
func Root(leaves []cid.CID) (cid.CID, error) {
	if len(leaves) == 0 {
		return cid.CID{}, ErrEmptyLeaves
	}
	hashed := make([]cid.CID, len(leaves))
	for i, l := range leaves {
		hashed[i] = leafHash(l)
	}
	return reduce(hashed), nil
}

// reduce recursively folds already-leaf-hashed values into a single root.
func reduce(nodes []cid.CID) cid.CID {
	switch len(nodes) {
	case 1:
		return nodes[0]
	case 2:
		return interiorHash(nodes[0], nodes[1])
	}
	mid := largestPowerOfTwoBelow(len(nodes))
	return interiorHash(reduce(nodes[:mid]), reduce(nodes[mid:]))
}

func largestPowerOfTwoBelow(n int) int {
	mid := 1
	for mid < n/2+n%2 {
		mid *= 2
	}
	return mid
}

// ProofStep is one sibling hash and its side relative to the path being
// proven (SiblingLeft true = sibling is on the left).
type ProofStep struct {
	Hash        cid.CID
	SiblingLeft bool
}

// Proof builds an inclusion proof that leaves[index] is part of the tree
// whose root is Root(leaves).
func Proof(leaves []cid.CID, index int) ([]ProofStep, error) {
	if index < 0 || index >= len(leaves) {
		return nil, errors.New("merkle: index out of range")
	}
	hashed := make([]cid.CID, len(leaves))
	for i, l := range leaves {
		hashed[i] = leafHash(l)
	}
	var steps []ProofStep
	buildProof(hashed, index, &steps)
	return steps, nil
}

func buildProof(nodes []cid.CID, index int, steps *[]ProofStep) {
	if len(nodes) == 1 {
		return
	}
	if len(nodes) == 2 {
		if index == 0 {
			*steps = append(*steps, ProofStep{Hash: nodes[1], SiblingLeft: false})
		} else {
			*steps = append(*steps, ProofStep{Hash: nodes[0], SiblingLeft: true})
		}
		return
	}
	mid := largestPowerOfTwoBelow(len(nodes))
	if index < mid {
		*steps = append(*steps, ProofStep{Hash: reduce(nodes[mid:]), SiblingLeft: false})
		buildProof(nodes[:mid], index, steps)
	} else {
		*steps = append(*steps, ProofStep{Hash: reduce(nodes[:mid]), SiblingLeft: true})
		buildProof(nodes[mid:], index-mid, steps)
	}
}

// VerifyProof checks that leaf, combined with steps in order, reproduces
// root.
func VerifyProof(root cid.CID, leaf cid.CID, steps []ProofStep) bool {
	current := leafHash(leaf)
	for _, s := range steps {
		if s.SiblingLeft {
			current = interiorHash(s.Hash, current)
		} else {
			current = interiorHash(current, s.Hash)
		}
	}
	return current == root
}
