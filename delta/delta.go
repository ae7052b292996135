// Package delta implements Orbit's delta engine: given source bytes and
// a destination signature index, it emits a minimal instruction stream
// of Copy and Data operations that reconstructs the source when replayed
// against the destination.
package delta

import (
	"io"

	"github.com/saworbit/orbit-sub003/cid"
	"github.com/saworbit/orbit-sub003/signature"
)

// Op identifies an instruction kind.
type Op int

const (
	// OpCopy references a byte range already present at the destination.
	OpCopy Op = iota
	// OpData carries literal bytes not found at the destination.
	OpData
)

// Instruction is one step of a delta stream.
type Instruction struct {
	Op         Op
	DestOffset uint64 // valid when Op == OpCopy
	Length     uint64 // valid when Op == OpCopy
	Data       []byte // valid when Op == OpData
}

// Generate computes the instruction stream reconstructing src from dst's
// signature table, using a rolling-hash match algorithm. blockSize must
// match the block size the signature table was built with.
func Generate(src []byte, dst *signature.Table, blockSize uint32) []Instruction {
	var instructions []Instruction

	if len(src) == 0 {
		return instructions
	}
	if dst == nil || dst.Len() == 0 || blockSize == 0 || uint32(len(src)) < blockSize {
		return []Instruction{{Op: OpData, Data: append([]byte(nil), src...)}}
	}

	literalStart := 0
	i := 0
	flush := func(end int) {
		if end > literalStart {
			instructions = append(instructions, Instruction{
				Op:   OpData,
				Data: append([]byte(nil), src[literalStart:end]...),
			})
		}
	}

	roll := cid.NewRollingWeakHash(src[i : i+int(blockSize)])
	for i+int(blockSize) <= len(src) {
		weak := roll.Sum()
		if candidates := dst.Candidates(weak); len(candidates) > 0 {
			block := src[i : i+int(blockSize)]
			strong := cid.Sum(block)
			if sig, ok := dst.Match(weak, strong); ok {
				flush(i)
				instructions = append(instructions, Instruction{
					Op:         OpCopy,
					DestOffset: sig.Offset,
					Length:     uint64(sig.Length),
				})
				i += int(blockSize)
				literalStart = i
				if i+int(blockSize) <= len(src) {
					roll = cid.NewRollingWeakHash(src[i : i+int(blockSize)])
				}
				continue
			}
		}
		// Miss: advance the window by one byte.
		if i+int(blockSize) < len(src) {
			roll.Roll(src[i], src[i+int(blockSize)])
		}
		i++
	}

	flush(len(src))
	return instructions
}

// Apply replays instructions against dst, writing the reconstructed bytes
// to w. dstReaderAt must supply bytes for OpCopy instructions.
func Apply(w io.Writer, instructions []Instruction, dstReaderAt io.ReaderAt) error {
	for _, instr := range instructions {
		switch instr.Op {
		case OpData:
			if _, err := w.Write(instr.Data); err != nil {
				return err
			}
		case OpCopy:
			buf := make([]byte, instr.Length)
			if _, err := dstReaderAt.ReadAt(buf, int64(instr.DestOffset)); err != nil {
				return err
			}
			if _, err := w.Write(buf); err != nil {
				return err
			}
		}
	}
	return nil
}
