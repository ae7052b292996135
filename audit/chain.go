package audit

import (
	"bufio"
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saworbit/orbit-sub003/orbiterrors"
)

const maxLineBytes = 16 << 20

// genesisHash seeds the hash chain for a log's first event:
// integrity_hash_0 = HMAC(secret, genesisHash || canonical_bytes(event_0)).
var genesisHash = make([]byte, sha256.Size)

// Chain is an append-only, HMAC-chained JSON-Lines event log. Each line's
// integrity_hash covers the previous line's hash plus the current line's
// canonical bytes, so truncating, reordering, or editing any line breaks
// every hash computed after it.
type Chain struct {
	mu       sync.Mutex
	f        *os.File
	w        *bufio.Writer
	signer   *Signer
	nextSeq  uint64
	prevHash []byte
}

// Open appends to (or creates) the chain file at path. If the file
// already holds events, their tail sequence and hash are replayed so new
// events continue the same chain rather than restarting it. A nil signer
// disables integrity chaining: events are still written and sequenced,
// but IntegrityHash is left empty and Validate cannot verify them.
func Open(path string, signer *Signer) (*Chain, error) {
	if signer == nil {
		logrus.Warn("audit: opening chain without a signer, integrity hashing disabled")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o600)
	if err != nil {
		return nil, orbiterrors.Wrap(orbiterrors.IO, "audit: open chain", err)
	}
	seq, prev, err := replayTail(path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Chain{
		f:        f,
		w:        bufio.NewWriter(f),
		signer:   signer,
		nextSeq:  seq,
		prevHash: prev,
	}, nil
}

// PrevHash returns the hash the next emitted event will chain from. A
// future log-rotation implementation carries this value forward as the
// seed for the next segment's chain, so rotation never breaks
// continuity of the hash link.
func (c *Chain) PrevHash() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.prevHash...)
}

// Close flushes buffered writes and closes the underlying file.
func (c *Chain) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.w.Flush(); err != nil {
		return orbiterrors.Wrap(orbiterrors.IO, "audit: flush chain", err)
	}
	return c.f.Close()
}

// Emit appends event to the chain, assigning it the next sequence number,
// a timestamp (if unset), and its integrity hash. It returns the fully
// populated event as written.
func (c *Chain) Emit(e Event) (Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e.Sequence = c.nextSeq
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	e.IntegrityHash = ""

	if c.signer != nil {
		canon, err := canonicalBytes(e)
		if err != nil {
			return Event{}, orbiterrors.Wrap(orbiterrors.Corruption, "audit: canonicalize event", err)
		}
		hash := hashLink(c.signer, c.prevHash, canon)
		e.IntegrityHash = hex.EncodeToString(hash)
		c.prevHash = hash
	}

	line, err := json.Marshal(e)
	if err != nil {
		return Event{}, orbiterrors.Wrap(orbiterrors.Corruption, "audit: marshal event", err)
	}
	if _, err := c.w.Write(line); err != nil {
		return Event{}, orbiterrors.Wrap(orbiterrors.IO, "audit: write event", err)
	}
	if err := c.w.WriteByte('\n'); err != nil {
		return Event{}, orbiterrors.Wrap(orbiterrors.IO, "audit: write event", err)
	}
	if err := c.w.Flush(); err != nil {
		return Event{}, orbiterrors.Wrap(orbiterrors.IO, "audit: flush event", err)
	}
	if err := c.f.Sync(); err != nil {
		return Event{}, orbiterrors.Wrap(orbiterrors.IO, "audit: sync event", err)
	}

	c.nextSeq++
	return e, nil
}

// canonicalBytes produces the deterministic byte representation of e used
// for hashing: the integrity hash field is always cleared first, and the
// fixed field order of Event together with encoding/json's compact,
// map-free output gives a stable encoding without a hand-rolled canonical
// serializer.
func canonicalBytes(e Event) ([]byte, error) {
	e.IntegrityHash = ""
	return json.Marshal(e)
}

func hashLink(signer *Signer, prevHash, canon []byte) []byte {
	mac := hmac.New(sha256.New, signer.key)
	mac.Write(prevHash)
	mac.Write(canon)
	return mac.Sum(nil)
}

// Report summarizes a Validate pass over a chain file.
type Report struct {
	ValidEvents  int
	TotalEvents  int
	FirstFailure int // 1-based line number of the first broken entry, 0 if none
}

// OK reports whether every line in the chain validated.
func (r Report) OK() bool { return r.FirstFailure == 0 }

// Validate replays the chain file at path and verifies every entry's
// integrity_hash against the expected HMAC chain. It stops classifying
// events as valid at the first break but still reports TotalEvents for
// the whole file. A nil signer can only check structural well-formedness,
// not the hash chain itself.
//
// The hash comparison works directly on each line's raw bytes rather
// than decoding into an Event and re-marshaling it: a decode/re-encode
// round trip silently drops unrecognized JSON keys and would let an
// attacker rename a field without being noticed, since the field's
// zero-value reappears unchanged on re-encode. Operating on raw bytes
// means any byte changed anywhere in a committed line is caught.
func Validate(path string, signer *Signer) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, orbiterrors.Wrap(orbiterrors.IO, "audit: open chain for validation", err)
	}
	defer f.Close()

	var report Report
	prevHash := append([]byte(nil), genesisHash...)
	broken := false

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		report.TotalEvents++

		raw := scanner.Bytes()
		if !json.Valid(raw) {
			if !broken {
				report.FirstFailure = line
				broken = true
			}
			continue
		}

		if signer != nil {
			hashHex, hasHash := extractIntegrityHash(raw)
			canon := stripIntegrityHash(raw)
			want := hex.EncodeToString(hashLink(signer, prevHash, canon))
			if !broken && (!hasHash || hashHex != want) {
				report.FirstFailure = line
				broken = true
			}
			if hasHash {
				if h, err := hex.DecodeString(hashHex); err == nil {
					prevHash = h
				} else {
					prevHash = nil
				}
			} else {
				prevHash = nil
			}
		}

		if !broken {
			report.ValidEvents++
		}
	}
	if err := scanner.Err(); err != nil {
		return report, orbiterrors.Wrap(orbiterrors.IO, "audit: scan chain", err)
	}
	return report, nil
}

var integrityHashKey = []byte(`"integrity_hash":"`)

// extractIntegrityHash finds the integrity_hash field's value in a raw
// JSON line without fully decoding it.
func extractIntegrityHash(raw []byte) (string, bool) {
	i := bytes.Index(raw, integrityHashKey)
	if i < 0 {
		return "", false
	}
	start := i + len(integrityHashKey)
	end := start
	for end < len(raw) && raw[end] != '"' {
		end++
	}
	if end >= len(raw) {
		return "", false
	}
	return string(raw[start:end]), true
}

// stripIntegrityHash removes the integrity_hash member (and its trailing
// comma) from a raw JSON line, reconstructing the exact canonical bytes
// Emit hashed before the field was inserted. If the field is absent
// (unsigned chain), raw is already canonical and is returned unchanged.
func stripIntegrityHash(raw []byte) []byte {
	i := bytes.Index(raw, integrityHashKey)
	if i < 0 {
		return raw
	}
	end := i + len(integrityHashKey)
	for end < len(raw) && raw[end] != '"' {
		end++
	}
	end++ // consume closing quote
	if end < len(raw) && raw[end] == ',' {
		end++
	}
	out := make([]byte, 0, len(raw)-(end-i))
	out = append(out, raw[:i]...)
	out = append(out, raw[end:]...)
	return out
}

// replayTail scans an existing chain file (if any) to determine the next
// sequence number and hash link a newly opened Chain must continue from.
func replayTail(path string) (uint64, []byte, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, append([]byte(nil), genesisHash...), nil
	}
	if err != nil {
		return 0, nil, orbiterrors.Wrap(orbiterrors.IO, "audit: open chain for replay", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var seq uint64
	prevHash := append([]byte(nil), genesisHash...)
	seen := false
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			break
		}
		seq = e.Sequence + 1
		if e.IntegrityHash != "" {
			if h, err := hex.DecodeString(e.IntegrityHash); err == nil {
				prevHash = h
			}
		}
		seen = true
	}
	if err := scanner.Err(); err != nil {
		return 0, nil, orbiterrors.Wrap(orbiterrors.IO, "audit: replay chain", err)
	}
	if !seen {
		return 0, append([]byte(nil), genesisHash...), nil
	}
	return seq, prevHash, nil
}
