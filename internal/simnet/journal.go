package simnet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Entry is one processed transaction (or faucet credit) as seen by the ledger.
type Entry struct {
	Signature    string   `json:"signature"`
	Slot         uint64   `json:"slot"`
	Kind         string   `json:"kind"`
	Fee          uint64   `json:"fee,omitempty"`
	Instructions []string `json:"instructions,omitempty"`
	Err          any      `json:"err,omitempty"`
	Logs         []string `json:"logs,omitempty"`
}

// Recorder captures ledger entries for later inspection.
type Recorder interface {
	Record(Entry)
}

// Journal stores entries in memory.
type Journal struct {
	mu      sync.Mutex
	entries []Entry
}

// NewJournal creates an empty journal optionally pre-sizing storage.
func NewJournal(capacity int) *Journal {
	if capacity < 0 {
		capacity = 0
	}
	return &Journal{entries: make([]Entry, 0, capacity)}
}

// Record appends an entry.
func (j *Journal) Record(e Entry) {
	j.mu.Lock()
	j.entries = append(j.entries, e)
	j.mu.Unlock()
}

// Snapshot returns a copy of the recorded entries.
func (j *Journal) Snapshot() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// Reset clears all stored entries.
func (j *Journal) Reset() {
	j.mu.Lock()
	j.entries = j.entries[:0]
	j.mu.Unlock()
}

// JSONLRecorder appends entries as JSON lines.
type JSONLRecorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewJSONLRecorder creates/opens the target file and returns a recorder.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLRecorder{file: file, enc: json.NewEncoder(file)}, nil
}

// Record writes a single entry; a closed recorder drops it.
func (r *JSONLRecorder) Record(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return
	}
	_ = r.enc.Encode(e)
}

// Close closes the file handle.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// Tee fans entries out to several recorders.
type Tee []Recorder

// Record forwards e to every recorder.
func (t Tee) Record(e Entry) {
	for _, r := range t {
		r.Record(e)
	}
}
