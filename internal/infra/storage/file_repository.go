package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"submission_bot/internal/domain/submission"

	"github.com/sirupsen/logrus"
)

var ErrSubmissionNotFound = submission.ErrNotFound

// FileRepository keeps all submission records in a lock-guarded map and
// snapshots the whole mapping to a JSON file on every mutation. The lock
// covers only map access; file I/O happens on the writer goroutine, so
// handler latency is never coupled to disk.
type FileRepository struct {
	mu      sync.RWMutex
	records map[submission.Key]*submission.Record

	writer *SnapshotWriter
	log    *logrus.Entry
}

// NewFileRepository loads the snapshot at path. A missing or malformed
// file degrades to an empty store rather than failing startup.
func NewFileRepository(path string, log *logrus.Entry) *FileRepository {
	r := &FileRepository{
		records: make(map[submission.Key]*submission.Record),
		log:     log,
	}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		log.WithField("path", path).Warn("No submission data file found, starting with an empty store")
	case err != nil:
		log.WithError(err).Error("Could not read submission data file, starting with an empty store")
	default:
		if err := json.Unmarshal(data, &r.records); err != nil {
			log.WithError(err).Warn("Submission data file is malformed, starting with an empty store")
			r.records = make(map[submission.Key]*submission.Record)
		} else {
			log.WithField("count", len(r.records)).Info("Submission records loaded")
		}
	}
	r.writer = NewSnapshotWriter(path, r.snapshot, log)
	return r
}

func (r *FileRepository) snapshot() ([]byte, error) {
	r.mu.RLock()
	copied := make(map[submission.Key]*submission.Record, len(r.records))
	for k, rec := range r.records {
		copied[k] = rec.Clone()
	}
	r.mu.RUnlock()
	return json.MarshalIndent(copied, "", "  ")
}

func (r *FileRepository) Get(key submission.Key) (*submission.Record, error) {
	r.mu.RLock()
	rec, ok := r.records[key]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	return rec.Clone(), nil
}

func (r *FileRepository) Put(key submission.Key, rec *submission.Record) error {
	if rec == nil {
		return fmt.Errorf("nil record for key %s", key)
	}
	r.mu.Lock()
	r.records[key] = rec.Clone()
	r.mu.Unlock()
	r.writer.Kick()
	return nil
}

func (r *FileRepository) Remove(key submission.Key) bool {
	r.mu.Lock()
	_, ok := r.records[key]
	if ok {
		delete(r.records, key)
	}
	r.mu.Unlock()
	if ok {
		r.writer.Kick()
	}
	return ok
}

func (r *FileRepository) CountPending() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, rec := range r.records {
		if !rec.Decided() {
			n++
		}
	}
	return n
}

// FindByBatchMember scans batch membership sets for messageID. It is the
// fallback lookup when a reviewer replied to a non-first item of an
// album, or when the key's own anchor is unknown (lost prompt).
func (r *FileRepository) FindByBatchMember(reviewGroupID int64, messageID int) (submission.Key, *submission.Record, error) {
	prefix := fmt.Sprintf("%d:", reviewGroupID)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for key, rec := range r.records {
		if strings.HasPrefix(string(key), prefix) && rec.HasBatchMember(messageID) {
			return key, rec.Clone(), nil
		}
	}
	return "", nil, ErrSubmissionNotFound
}

func (r *FileRepository) Flush() error {
	return r.writer.Flush()
}

// Close flushes the final snapshot and stops the background writer.
func (r *FileRepository) Close() error {
	return r.writer.Close()
}
