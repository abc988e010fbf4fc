package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// defaultSettle is how long the writer waits after a kick before writing,
// so a burst of mutations collapses into one snapshot.
const defaultSettle = 200 * time.Millisecond

// SnapshotWriter persists a whole-state snapshot to a single file. Every
// mutation kicks it; kicks received while a write is pending coalesce.
// Writes are atomic: marshal to a temp file, then rename over the target.
type SnapshotWriter struct {
	path    string
	marshal func() ([]byte, error)
	settle  time.Duration
	log     *logrus.Entry

	kicks chan struct{}
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewSnapshotWriter starts the background writer goroutine. marshal is
// called on the writer goroutine and must take its own locks.
func NewSnapshotWriter(path string, marshal func() ([]byte, error), log *logrus.Entry) *SnapshotWriter {
	w := &SnapshotWriter{
		path:    path,
		marshal: marshal,
		settle:  defaultSettle,
		log:     log,
		kicks:   make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// Kick schedules a durable write. Fire-and-forget; never blocks.
func (w *SnapshotWriter) Kick() {
	select {
	case w.kicks <- struct{}{}:
	default:
	}
}

// Flush writes the snapshot synchronously. Used at shutdown and by the
// periodic safety-net job.
func (w *SnapshotWriter) Flush() error {
	return w.write()
}

// Close stops the background writer and performs a final synchronous
// flush.
func (w *SnapshotWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	w.mu.Unlock()
	return w.write()
}

func (w *SnapshotWriter) run() {
	for {
		select {
		case <-w.done:
			return
		case <-w.kicks:
			// Let rapid successive mutations pile up behind this one
			// write instead of writing the full snapshot per mutation.
			timer := time.NewTimer(w.settle)
			select {
			case <-timer.C:
			case <-w.done:
				timer.Stop()
				return
			}
			if err := w.write(); err != nil {
				w.log.WithError(err).Error("Snapshot write failed")
			}
		}
	}
}

func (w *SnapshotWriter) write() error {
	data, err := w.marshal()
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	tmp := filepath.Join(filepath.Dir(w.path),
		fmt.Sprintf(".%s.%s.tmp", filepath.Base(w.path), uuid.NewString()))
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot temp file: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace snapshot file: %w", err)
	}
	w.log.WithField("bytes", len(data)).Debug("Snapshot written")
	return nil
}
