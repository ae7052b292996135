// Package ledger implements the per-job chunk ledger: a crash-recoverable
// state machine over a job's chunks, with dependency edges and atomic
// claim semantics so no two workers ever process the same chunk.
package ledger

import (
	"go.etcd.io/bbolt"

	"github.com/saworbit/orbit-sub003/codec"
	"github.com/saworbit/orbit-sub003/metrics"
	"github.com/saworbit/orbit-sub003/orbiterrors"
)

// Status is a chunk's position in the per-job state machine.
type Status uint8

const (
	Pending Status = iota
	Processing
	Done
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Processing:
		return "processing"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ChunkSlot is one row of a job's ledger.
type ChunkSlot struct {
	Chunk  string
	Status Status
	Error  string
}

func (s ChunkSlot) encode() []byte {
	buf := []byte{byte(s.Status)}
	buf = codec.PutUint32(buf, uint32(len(s.Error)))
	buf = append(buf, s.Error...)
	return buf
}

func decodeChunkSlot(chunk string, buf []byte) (ChunkSlot, error) {
	if len(buf) < 1 {
		return ChunkSlot{}, codec.ErrShortBuffer
	}
	status := Status(buf[0])
	errLen, err := codec.Uint32(buf[1:])
	if err != nil {
		return ChunkSlot{}, err
	}
	rest := buf[5:]
	if len(rest) < int(errLen) {
		return ChunkSlot{}, codec.ErrShortBuffer
	}
	return ChunkSlot{Chunk: chunk, Status: status, Error: string(rest[:errLen])}, nil
}

// Stats summarizes a job's chunk counts by status.
type Stats struct {
	Total      int
	Pending    int
	Processing int
	Done       int
	Failed     int
}

// RestartPolicy governs how in-flight rows are treated when a ledger is
// opened, per the crash-recovery policy choice.
type RestartPolicy int

const (
	// ResetProcessingToPending assumes whoever held a processing row died
	// mid-chunk and makes it claimable again. This is the default.
	ResetProcessingToPending RestartPolicy = iota
	// SurfaceAsIs leaves processing rows untouched for the caller to
	// inspect via ResumePending and decide.
	SurfaceAsIs
)

var (
	jobsBucket   = []byte("jobs")
	chunksSubkey = []byte("chunks")
	depsSubkey   = []byte("deps")
)

var (
	ErrCyclicDependency = orbiterrors.New(orbiterrors.PolicyViolation, "ledger: dependency would introduce a cycle")
	ErrJobNotFound      = orbiterrors.New(orbiterrors.NotFound, "ledger: job not found")
	ErrChunkNotFound    = orbiterrors.New(orbiterrors.NotFound, "ledger: chunk not found")
)

// Ledger wraps a bbolt-backed store holding one nested bucket per job.
type Ledger struct {
	db      *bbolt.DB
	policy  RestartPolicy
	metrics *metrics.Metrics
}

// Open opens or creates the ledger at path and applies policy to any rows
// left in processing by a prior, abruptly-terminated process.
func Open(path string, policy RestartPolicy) (*Ledger, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, orbiterrors.Wrap(orbiterrors.IO, "ledger: open", err)
	}
	l := &Ledger{db: db, policy: policy, metrics: metrics.Default()}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(jobsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, orbiterrors.Wrap(orbiterrors.IO, "ledger: initialize", err)
	}
	if policy == ResetProcessingToPending {
		if err := l.resetAllProcessing(); err != nil {
			db.Close()
			return nil, err
		}
	}
	return l, nil
}

func (l *Ledger) resetAllProcessing() error {
	return l.db.Update(func(tx *bbolt.Tx) error {
		jobs := tx.Bucket(jobsBucket)
		return jobs.ForEach(func(jobID, v []byte) error {
			if v != nil {
				return nil // not a nested job bucket
			}
			jobBucket := jobs.Bucket(jobID)
			chunks := jobBucket.Bucket(chunksSubkey)
			if chunks == nil {
				return nil
			}
			c := chunks.Cursor()
			for k, v := c.First(); k != nil; k, v = c.Next() {
				slot, err := decodeChunkSlot(string(k), v)
				if err != nil {
					return err
				}
				if slot.Status == Processing {
					slot.Status = Pending
					if err := chunks.Put(k, slot.encode()); err != nil {
						return err
					}
				}
			}
			return nil
		})
	})
}

// Close releases the underlying database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func jobBucket(tx *bbolt.Tx, jobID string, create bool) (*bbolt.Bucket, error) {
	var jb *bbolt.Bucket
	var err error
	if create {
		jb, err = tx.Bucket(jobsBucket).CreateBucketIfNotExists([]byte(jobID))
	} else {
		jb = tx.Bucket(jobsBucket).Bucket([]byte(jobID))
	}
	if err != nil {
		return nil, err
	}
	if jb == nil {
		return nil, ErrJobNotFound
	}
	return jb, nil
}

// InitFromManifest seeds a job's chunk rows, all pending. Re-initializing
// an existing job overwrites its chunk rows but leaves dependency edges in
// place.
func (l *Ledger) InitFromManifest(jobID string, chunks []string) error {
	return l.db.Update(func(tx *bbolt.Tx) error {
		jb, err := jobBucket(tx, jobID, true)
		if err != nil {
			return err
		}
		chunkBucket, err := jb.CreateBucketIfNotExists(chunksSubkey)
		if err != nil {
			return err
		}
		if _, err := jb.CreateBucketIfNotExists(depsSubkey); err != nil {
			return err
		}
		for _, chunk := range chunks {
			slot := ChunkSlot{Chunk: chunk, Status: Pending}
			if err := chunkBucket.Put([]byte(chunk), slot.encode()); err != nil {
				return err
			}
		}
		return nil
	})
}

// ClaimPending atomically selects any pending row whose dependencies (if
// any) are all done, transitions it to processing, and returns it. The
// underlying bbolt write transaction serializes concurrent callers, so at
// most one caller ever observes a given row transition.
func (l *Ledger) ClaimPending(jobID string) (ChunkSlot, bool, error) {
	var claimed ChunkSlot
	var found bool
	err := l.db.Update(func(tx *bbolt.Tx) error {
		jb, err := jobBucket(tx, jobID, false)
		if err != nil {
			return err
		}
		chunkBucket := jb.Bucket(chunksSubkey)
		depsBucket := jb.Bucket(depsSubkey)
		c := chunkBucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			slot, err := decodeChunkSlot(string(k), v)
			if err != nil {
				return err
			}
			if slot.Status != Pending {
				continue
			}
			ready, err := depsSatisfied(chunkBucket, depsBucket, string(k))
			if err != nil {
				return err
			}
			if !ready {
				continue
			}
			slot.Status = Processing
			if err := chunkBucket.Put(k, slot.encode()); err != nil {
				return err
			}
			claimed = slot
			found = true
			return nil
		}
		return nil
	})
	if err != nil {
		return ChunkSlot{}, false, err
	}
	if found {
		l.reportStats(jobID)
	}
	return claimed, found, nil
}

// reportStats recomputes jobID's chunk counts and pushes them to the
// ledger_chunk_states gauge, so the most recently touched job's status
// mix is always reflected in the exported metrics.
func (l *Ledger) reportStats(jobID string) {
	stats, err := l.GetStats(jobID)
	if err != nil {
		return
	}
	l.metrics.SetLedgerChunkState(Pending.String(), float64(stats.Pending))
	l.metrics.SetLedgerChunkState(Processing.String(), float64(stats.Processing))
	l.metrics.SetLedgerChunkState(Done.String(), float64(stats.Done))
	l.metrics.SetLedgerChunkState(Failed.String(), float64(stats.Failed))
}

func depsSatisfied(chunkBucket, depsBucket *bbolt.Bucket, chunk string) (bool, error) {
	if depsBucket == nil {
		return true, nil
	}
	raw := depsBucket.Get([]byte(chunk))
	if raw == nil {
		return true, nil
	}
	deps, err := decodeStringList(raw)
	if err != nil {
		return false, err
	}
	for _, dep := range deps {
		v := chunkBucket.Get([]byte(dep))
		if v == nil {
			return false, nil
		}
		slot, err := decodeChunkSlot(dep, v)
		if err != nil {
			return false, err
		}
		if slot.Status != Done {
			return false, nil
		}
	}
	return true, nil
}

// MarkStatus records a terminal or intermediate status for chunk.
func (l *Ledger) MarkStatus(jobID, chunk string, status Status, errMsg string) error {
	err := l.db.Update(func(tx *bbolt.Tx) error {
		jb, err := jobBucket(tx, jobID, false)
		if err != nil {
			return err
		}
		chunkBucket := jb.Bucket(chunksSubkey)
		if chunkBucket.Get([]byte(chunk)) == nil {
			return ErrChunkNotFound
		}
		slot := ChunkSlot{Chunk: chunk, Status: status, Error: errMsg}
		return chunkBucket.Put([]byte(chunk), slot.encode())
	})
	if err == nil {
		l.reportStats(jobID)
	}
	return err
}

// MarkFailed is MarkStatus with status=Failed; failed chunks are excluded
// from ClaimPending until reset back to pending via MarkStatus.
func (l *Ledger) MarkFailed(jobID, chunk string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return l.MarkStatus(jobID, chunk, Failed, msg)
}

// ResumePending returns every row not in Done, for a caller resuming a job
// after a restart.
func (l *Ledger) ResumePending(jobID string) ([]ChunkSlot, error) {
	var out []ChunkSlot
	err := l.db.View(func(tx *bbolt.Tx) error {
		jb, err := jobBucket(tx, jobID, false)
		if err != nil {
			return err
		}
		chunkBucket := jb.Bucket(chunksSubkey)
		c := chunkBucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			slot, err := decodeChunkSlot(string(k), v)
			if err != nil {
				return err
			}
			if slot.Status != Done {
				out = append(out, slot)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func encodeStringList(items []string) []byte {
	var buf []byte
	buf = codec.PutUint32(buf, uint32(len(items)))
	for _, item := range items {
		buf = codec.PutUint32(buf, uint32(len(item)))
		buf = append(buf, item...)
	}
	return buf
}

func decodeStringList(buf []byte) ([]string, error) {
	n, err := codec.Uint32(buf)
	if err != nil {
		return nil, err
	}
	buf = buf[4:]
	out := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		l, err := codec.Uint32(buf)
		if err != nil {
			return nil, err
		}
		buf = buf[4:]
		if len(buf) < int(l) {
			return nil, codec.ErrShortBuffer
		}
		out = append(out, string(buf[:l]))
		buf = buf[l:]
	}
	return out, nil
}

// AddDependency records that chunk depends on every chunk in deps
// (deps must reach Done before chunk is claimable). Edges forming a cycle
// are rejected.
func (l *Ledger) AddDependency(jobID, chunk string, deps []string) error {
	return l.db.Update(func(tx *bbolt.Tx) error {
		jb, err := jobBucket(tx, jobID, false)
		if err != nil {
			return err
		}
		depsBucket, err := jb.CreateBucketIfNotExists(depsSubkey)
		if err != nil {
			return err
		}
		for _, dep := range deps {
			if dep == chunk {
				return ErrCyclicDependency
			}
			if reaches(depsBucket, dep, chunk, map[string]bool{}) {
				return ErrCyclicDependency
			}
		}
		existing, _ := decodeStringList(depsBucket.Get([]byte(chunk)))
		existing = append(existing, deps...)
		return depsBucket.Put([]byte(chunk), encodeStringList(existing))
	})
}

// reaches reports whether a dependency chain starting at `from` eventually
// depends on `target`, i.e. whether adding target->...->from->target would
// close a cycle.
func reaches(depsBucket *bbolt.Bucket, from, target string, visited map[string]bool) bool {
	if from == target {
		return true
	}
	if visited[from] {
		return false
	}
	visited[from] = true
	raw := depsBucket.Get([]byte(from))
	if raw == nil {
		return false
	}
	deps, err := decodeStringList(raw)
	if err != nil {
		return false
	}
	for _, dep := range deps {
		if reaches(depsBucket, dep, target, visited) {
			return true
		}
	}
	return false
}

// TopoSortReady returns chunks that are pending and whose dependencies (if
// any) are all done.
func (l *Ledger) TopoSortReady(jobID string) ([]string, error) {
	var ready []string
	err := l.db.View(func(tx *bbolt.Tx) error {
		jb, err := jobBucket(tx, jobID, false)
		if err != nil {
			return err
		}
		chunkBucket := jb.Bucket(chunksSubkey)
		depsBucket := jb.Bucket(depsSubkey)
		c := chunkBucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			slot, err := decodeChunkSlot(string(k), v)
			if err != nil {
				return err
			}
			if slot.Status != Pending {
				continue
			}
			ok, err := depsSatisfied(chunkBucket, depsBucket, string(k))
			if err != nil {
				return err
			}
			if ok {
				ready = append(ready, string(k))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ready, nil
}

// GetStats returns chunk counts by status for jobID.
func (l *Ledger) GetStats(jobID string) (Stats, error) {
	var stats Stats
	err := l.db.View(func(tx *bbolt.Tx) error {
		jb, err := jobBucket(tx, jobID, false)
		if err != nil {
			return err
		}
		chunkBucket := jb.Bucket(chunksSubkey)
		c := chunkBucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			slot, err := decodeChunkSlot(string(k), v)
			if err != nil {
				return err
			}
			stats.Total++
			switch slot.Status {
			case Pending:
				stats.Pending++
			case Processing:
				stats.Processing++
			case Done:
				stats.Done++
			case Failed:
				stats.Failed++
			}
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// DeleteJob removes a job and all of its chunk and dependency rows.
func (l *Ledger) DeleteJob(jobID string) error {
	return l.db.Update(func(tx *bbolt.Tx) error {
		jobs := tx.Bucket(jobsBucket)
		if jobs.Bucket([]byte(jobID)) == nil {
			return ErrJobNotFound
		}
		return jobs.DeleteBucket([]byte(jobID))
	})
}
