package app

import (
	"fmt"
	"sync"
	"time"

	"submission_bot/internal/domain/submission"

	"github.com/sirupsen/logrus"
)

// BatchDelay is the debounce window for media-group collection: Telegram
// delivers album items as a burst of discrete messages, and a batch is
// considered complete once no new item arrived for this long.
const BatchDelay = 1500 * time.Millisecond

// Batch is a finalized multi-item submission, ready for the attribution
// prompt.
type Batch struct {
	ChatID        int64
	BatchID       string
	SubmitterID   int64
	SubmitterName string
	Items         []submission.MediaItem
	// Origin is the forwarded-origin of the first item; it classifies
	// the whole batch.
	Origin *submission.ForwardOrigin
}

// UsableItems returns the items that can be republished, in order.
func (b *Batch) UsableItems() []submission.MediaItem {
	items := make([]submission.MediaItem, 0, len(b.Items))
	for _, it := range b.Items {
		if it.Usable() {
			items = append(items, it)
		}
	}
	return items
}

type pendingBatch struct {
	batch Batch
	timer *time.Timer
}

// Aggregator coalesces a burst of discrete inbound items sharing a batch
// id into one logical submission. Each arrival reschedules the debounce
// timer; when it fires uncontested the buffer is drained (pop, not peek)
// exactly once and handed to the finalize callback.
type Aggregator struct {
	mu      sync.Mutex
	pending map[string]*pendingBatch

	delay    time.Duration
	finalize func(*Batch)
	log      *logrus.Entry
}

func NewAggregator(delay time.Duration, finalize func(*Batch), log *logrus.Entry) *Aggregator {
	return &Aggregator{
		pending:  make(map[string]*pendingBatch),
		delay:    delay,
		finalize: finalize,
		log:      log,
	}
}

func batchKey(chatID int64, batchID string) string {
	return fmt.Sprintf("%d_%s", chatID, batchID)
}

// Add appends one inbound item to the batch buffer and re-arms the
// debounce timer, cancelling any previously scheduled fire for the same
// batch.
func (a *Aggregator) Add(chatID int64, batchID string, submitterID int64, submitterName string, item submission.MediaItem, origin *submission.ForwardOrigin) {
	key := batchKey(chatID, batchID)

	a.mu.Lock()
	pb, ok := a.pending[key]
	if !ok {
		pb = &pendingBatch{batch: Batch{
			ChatID:        chatID,
			BatchID:       batchID,
			SubmitterID:   submitterID,
			SubmitterName: submitterName,
			Origin:        origin,
		}}
		a.pending[key] = pb
	} else if pb.timer != nil {
		pb.timer.Stop()
	}
	pb.batch.Items = append(pb.batch.Items, item)
	n := len(pb.batch.Items)
	pb.timer = time.AfterFunc(a.delay, func() { a.fire(key) })
	a.mu.Unlock()

	a.log.WithFields(logrus.Fields{
		"batch_id": batchID,
		"chat_id":  chatID,
		"items":    n,
	}).Debug("Batch item collected, debounce timer rescheduled")
}

// fire drains the buffer for key. A late or duplicate fire after the
// buffer was already drained is a silent no-op.
func (a *Aggregator) fire(key string) {
	a.mu.Lock()
	pb, ok := a.pending[key]
	if ok {
		delete(a.pending, key)
	}
	a.mu.Unlock()
	if !ok {
		return
	}
	a.log.WithFields(logrus.Fields{
		"batch_id": pb.batch.BatchID,
		"items":    len(pb.batch.Items),
	}).Info("Batch settled, finalizing")
	a.finalize(&pb.batch)
}
