// Package universe implements the global, persistent content-addressed
// multimap from CID to the set of physical Locations holding a copy of
// that chunk.
package universe

import (
	"bytes"

	"go.etcd.io/bbolt"

	"github.com/saworbit/orbit-sub003/cid"
	"github.com/saworbit/orbit-sub003/codec"
	"github.com/saworbit/orbit-sub003/orbiterrors"
)

var locationsBucket = []byte("locations")

// Location describes where one copy of a chunk physically lives.
type Location struct {
	StarID string
	Path   string
	Offset uint64
	Length uint32
}

func (l Location) encode() []byte {
	var buf []byte
	buf = codec.PutUint32(buf, uint32(len(l.StarID)))
	buf = append(buf, l.StarID...)
	buf = codec.PutUint32(buf, uint32(len(l.Path)))
	buf = append(buf, l.Path...)
	buf = codec.PutUint64(buf, l.Offset)
	buf = codec.PutUint32(buf, l.Length)
	return buf
}

func decodeLocation(buf []byte) (Location, error) {
	starLen, err := codec.Uint32(buf)
	if err != nil {
		return Location{}, err
	}
	buf = buf[4:]
	if len(buf) < int(starLen) {
		return Location{}, codec.ErrShortBuffer
	}
	starID := string(buf[:starLen])
	buf = buf[starLen:]

	pathLen, err := codec.Uint32(buf)
	if err != nil {
		return Location{}, err
	}
	buf = buf[4:]
	if len(buf) < int(pathLen) {
		return Location{}, codec.ErrShortBuffer
	}
	path := string(buf[:pathLen])
	buf = buf[pathLen:]

	offset, err := codec.Uint64(buf)
	if err != nil {
		return Location{}, err
	}
	buf = buf[8:]
	length, err := codec.Uint32(buf)
	if err != nil {
		return Location{}, err
	}
	return Location{StarID: starID, Path: path, Offset: offset, Length: length}, nil
}

// DedupStats summarizes space savings achieved by content deduplication.
type DedupStats struct {
	UniqueChunks       uint64
	TotalRefs          uint64
	BytesSavedEstimate uint64
}

// Universe wraps a bbolt-backed store. Each (CID, Location) pair is stored
// as its own key, cid bytes followed by the encoded location, so insertion
// of a duplicate pair is a no-op overwrite and all locations for one CID
// sit together under a common key prefix for range scans.
type Universe struct {
	db *bbolt.DB
}

// Open opens or creates the store at path. Opening an existing path yields
// every previously-inserted (CID, Location) pair; opening a path for the
// first time creates an empty store. Both cases succeed from the same call.
func Open(path string) (*Universe, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, orbiterrors.Wrap(orbiterrors.IO, "universe: open", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(locationsBucket); err != nil {
			return err
		}
		// The on-disk format version lives in its own bucket so it never
		// mixes with the (CID, Location) keys. Format 1 is the current one.
		meta, err := tx.CreateBucketIfNotExists([]byte("meta"))
		if err != nil {
			return err
		}
		if meta.Get([]byte("version")) != nil {
			return nil
		}
		return meta.Put([]byte("version"), codec.PutUint32(nil, 1))
	})
	if err != nil {
		db.Close()
		return nil, orbiterrors.Wrap(orbiterrors.IO, "universe: initialize bucket", err)
	}
	return &Universe{db: db}, nil
}

// Close releases the underlying database handle.
func (u *Universe) Close() error {
	return u.db.Close()
}

func locationKey(id cid.CID, loc Location) []byte {
	return append(append([]byte{}, id[:]...), loc.encode()...)
}

// InsertChunk upserts (id, loc). A duplicate pair is idempotent: inserting
// the same pair twice leaves the store unchanged. The write is durable
// (bbolt commits the enclosing transaction to disk) before this returns.
func (u *Universe) InsertChunk(id cid.CID, loc Location) error {
	key := locationKey(id, loc)
	err := u.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(locationsBucket)
		return b.Put(key, []byte{1})
	})
	if err != nil {
		return orbiterrors.Wrap(orbiterrors.IO, "universe: insert chunk", err)
	}
	return nil
}

// FindChunk returns every currently-recorded Location for id.
func (u *Universe) FindChunk(id cid.CID) ([]Location, error) {
	var out []Location
	err := u.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(locationsBucket)
		c := b.Cursor()
		prefix := id[:]
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			loc, err := decodeLocation(k[len(prefix):])
			if err != nil {
				return orbiterrors.Wrap(orbiterrors.Corruption, "universe: decode location", err)
			}
			out = append(out, loc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// HasChunk reports whether any location is recorded for id.
func (u *Universe) HasChunk(id cid.CID) (bool, error) {
	locs, err := u.FindChunk(id)
	if err != nil {
		return false, err
	}
	return len(locs) > 0, nil
}

// CountLocations reports how many locations are recorded for id.
func (u *Universe) CountLocations(id cid.CID) (int, error) {
	locs, err := u.FindChunk(id)
	if err != nil {
		return 0, err
	}
	return len(locs), nil
}

// AllCIDs returns every distinct CID currently recorded, in key order.
// The Sentinel's resilience sweep uses this to enumerate candidates for
// classification; it is O(N) over stored (CID, Location) pairs.
func (u *Universe) AllCIDs() ([]cid.CID, error) {
	var ids []cid.CID
	var last cid.CID
	haveLast := false
	err := u.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(locationsBucket)
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if len(k) < 32 {
				continue
			}
			var id cid.CID
			copy(id[:], k[:32])
			if !haveLast || id != last {
				ids = append(ids, id)
				last = id
				haveLast = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// DedupStats scans the whole store. It is O(N) and intended for periodic
// reporting, not the hot insert/lookup path.
func (u *Universe) DedupStats() (DedupStats, error) {
	var stats DedupStats
	var currentCID cid.CID
	var haveCurrent bool
	var currentRefs uint64
	var currentLen uint64

	flush := func() {
		if !haveCurrent {
			return
		}
		stats.UniqueChunks++
		stats.TotalRefs += currentRefs
		if currentRefs > 1 {
			stats.BytesSavedEstimate += (currentRefs - 1) * currentLen
		}
	}

	err := u.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(locationsBucket)
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if len(k) < 32 {
				continue
			}
			var id cid.CID
			copy(id[:], k[:32])
			loc, err := decodeLocation(k[32:])
			if err != nil {
				return orbiterrors.Wrap(orbiterrors.Corruption, "universe: decode location", err)
			}
			if !haveCurrent || id != currentCID {
				flush()
				currentCID = id
				haveCurrent = true
				currentRefs = 0
				currentLen = uint64(loc.Length)
			}
			currentRefs++
		}
		flush()
		return nil
	})
	if err != nil {
		return DedupStats{}, err
	}
	return stats, nil
}
