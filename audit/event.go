// Package audit implements the append-only, hash-chained event log that
// records every job, file, window, and backend operation Orbit performs.
// Each event is HMAC-chained to the one before it so that any tampering
// with a past entry is detectable during validation.
package audit

import (
	"encoding/json"
	"time"
)

// Event is one entry in the audit chain. Field order is fixed by this
// struct's declaration and is part of the canonical serialization used
// to compute IntegrityHash: re-ordering these fields changes the wire
// format and breaks every previously-written chain.
type Event struct {
	TraceID       string          `json:"trace_id"`
	SpanID        string          `json:"span_id"`
	ParentSpanID  string          `json:"parent_span_id,omitempty"`
	JobID         string          `json:"job_id,omitempty"`
	FileID        string          `json:"file_id,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	Sequence      uint64          `json:"sequence"`
	IntegrityHash string          `json:"integrity_hash,omitempty"`
	Payload       Payload         `json:"payload"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
}

// WithTrace returns a copy of e with trace/span correlation set.
func (e Event) WithTrace(traceID, spanID, parentSpanID string) Event {
	e.TraceID = traceID
	e.SpanID = spanID
	e.ParentSpanID = parentSpanID
	return e
}

// WithJob returns a copy of e correlated to a job.
func (e Event) WithJob(jobID string) Event {
	e.JobID = jobID
	return e
}

// WithFile returns a copy of e correlated to a file within a job.
func (e Event) WithFile(fileID string) Event {
	e.FileID = fileID
	return e
}

// WithMetadata attaches arbitrary structured metadata to e.
func (e Event) WithMetadata(metadata json.RawMessage) Event {
	e.Metadata = metadata
	return e
}

// Payload carries the event's discriminated-union body. Go has no native
// sum type, so Payload is one struct shared by every variant with
// omitempty fields; Type names which fields are meaningful. The
// constructor functions below (JobStart, FileComplete, ...) are the
// intended way to build one.
type Payload struct {
	Type string `json:"type"`

	Files      uint32 `json:"files,omitempty"`
	TotalBytes uint64 `json:"total_bytes,omitempty"`
	Protocol   string `json:"protocol,omitempty"`

	DurationMs uint64 `json:"duration_ms,omitempty"`
	Digest     string `json:"digest,omitempty"`

	Error            string `json:"error,omitempty"`
	Retries          uint32 `json:"retries,omitempty"`
	BytesTransferred uint64 `json:"bytes_transferred,omitempty"`

	Source string `json:"source,omitempty"`
	Dest   string `json:"dest,omitempty"`
	Bytes  uint64 `json:"bytes,omitempty"`

	Checksum string `json:"checksum,omitempty"`

	WindowID uint32 `json:"window_id,omitempty"`
	Repair   bool   `json:"repair,omitempty"`

	Path    string `json:"path,omitempty"`
	Entries uint64 `json:"entries,omitempty"`

	Name  string `json:"name,omitempty"`
	Level string `json:"level,omitempty"`

	EventType string          `json:"event_type,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func JobStart(files uint32, totalBytes uint64, protocol string) Payload {
	return Payload{Type: "job_start", Files: files, TotalBytes: totalBytes, Protocol: protocol}
}

func JobComplete(durationMs uint64, digest string) Payload {
	return Payload{Type: "job_complete", DurationMs: durationMs, Digest: digest}
}

func JobFailed(errMsg string, retries uint32) Payload {
	return Payload{Type: "job_failed", Error: errMsg, Retries: retries}
}

func FileStart(source, dest string, bytes uint64) Payload {
	return Payload{Type: "file_start", Source: source, Dest: dest, Bytes: bytes}
}

func FileProgress(bytesTransferred, totalBytes uint64) Payload {
	return Payload{Type: "file_progress", BytesTransferred: bytesTransferred, TotalBytes: totalBytes}
}

func FileComplete(bytes, durationMs uint64, checksum string) Payload {
	return Payload{Type: "file_complete", Bytes: bytes, DurationMs: durationMs, Checksum: checksum}
}

func FileFailed(errMsg string, bytesTransferred uint64) Payload {
	return Payload{Type: "file_failed", Error: errMsg, BytesTransferred: bytesTransferred}
}

func WindowOK(windowID uint32, bytes uint64, repair bool) Payload {
	return Payload{Type: "window_ok", WindowID: windowID, Bytes: bytes, Repair: repair}
}

func WindowFail(windowID uint32, errMsg string) Payload {
	return Payload{Type: "window_fail", WindowID: windowID, Error: errMsg}
}

func BackendRead(path string, bytes, durationMs uint64) Payload {
	return Payload{Type: "backend_read", Path: path, Bytes: bytes, DurationMs: durationMs}
}

func BackendWrite(path string, bytes, durationMs uint64) Payload {
	return Payload{Type: "backend_write", Path: path, Bytes: bytes, DurationMs: durationMs}
}

func BackendList(path string, entries, durationMs uint64) Payload {
	return Payload{Type: "backend_list", Path: path, Entries: entries, DurationMs: durationMs}
}

func SpanStart(name, level string) Payload {
	return Payload{Type: "span_start", Name: name, Level: level}
}

func SpanEnd(name string, durationMs uint64) Payload {
	return Payload{Type: "span_end", Name: name, DurationMs: durationMs}
}

func Custom(eventType string, data json.RawMessage) Payload {
	return Payload{Type: "custom", EventType: eventType, Data: data}
}
