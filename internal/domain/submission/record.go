package submission

import (
	"fmt"
	"strconv"
	"strings"
)

// Key identifies a submission by the review-group message a reviewer
// replies to: "<review_group_id>:<anchor_message_id>".
type Key string

func MakeKey(reviewGroupID int64, anchorMessageID int) Key {
	return Key(fmt.Sprintf("%d:%d", reviewGroupID, anchorMessageID))
}

// AnchorMessageID returns the message-id half of the key, or 0 if the key
// is malformed.
func (k Key) AnchorMessageID() int {
	idx := strings.LastIndex(string(k), ":")
	if idx < 0 {
		return 0
	}
	id, err := strconv.Atoi(string(k)[idx+1:])
	if err != nil {
		return 0
	}
	return id
}

// Kind is the publication-identity mode chosen by the submitter.
type Kind string

const (
	KindAttributed Kind = "attributed"
	KindAnonymous  Kind = "anonymous"
)

// Outcome is the review decision state. pending is the only non-terminal
// state; once a record leaves pending it never transitions again.
type Outcome string

const (
	OutcomePending  Outcome = "pending"
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
)

// Status details stored alongside a terminal outcome.
const (
	StatusApprovedAttributed = "approved_attributed"
	StatusApprovedAnonymous  = "approved_anonymous"
	StatusRejected           = "rejected"
	StatusFailedPosting      = "failed_posting"
)

// MediaType classifies one item of a media batch.
type MediaType string

const (
	MediaPhoto       MediaType = "photo"
	MediaVideo       MediaType = "video"
	MediaUnsupported MediaType = "unsupported"
)

// MediaItem is one element of a batch submission, captured at aggregation
// time from the submitter's private chat.
type MediaItem struct {
	MessageID int       `json:"message_id"`
	Type      MediaType `json:"type"`
	FileID    string    `json:"file_id,omitempty"`
	Caption   string    `json:"caption,omitempty"`
	Spoiler   bool      `json:"spoiler,omitempty"`
}

// Usable reports whether the item can be republished.
func (m MediaItem) Usable() bool {
	return m.Type == MediaPhoto || m.Type == MediaVideo
}

// Record is a single submission as tracked through review. Records are
// never deleted in the normal flow; terminal records remain as an audit
// trail.
type Record struct {
	Kind          Kind   `json:"kind"`
	SubmitterID   int64  `json:"submitter_id"`
	SubmitterName string `json:"submitter_name"`

	// OriginMessageID is the message in the submitter's private chat;
	// replies and notifications are anchored to it.
	OriginMessageID int `json:"origin_message_id"`

	IsBatch bool        `json:"is_batch,omitempty"`
	Items   []MediaItem `json:"items,omitempty"`
	// BatchMessageIDs are the review-group message ids of every item in
	// the batch; a reviewer may reply to any of them.
	BatchMessageIDs []int `json:"batch_message_ids,omitempty"`

	ForwardOrigin *ForwardOrigin `json:"forward_origin,omitempty"`

	// ReviewPromptID is the review-group message carrying the decision
	// buttons; 0 when the send failed.
	ReviewPromptID int  `json:"review_prompt_id,omitempty"`
	PendingMarkup  bool `json:"pending_markup,omitempty"`

	Outcome      Outcome `json:"outcome"`
	StatusDetail string  `json:"status_detail,omitempty"`
}

// Decided reports whether the record reached a terminal outcome.
func (r *Record) Decided() bool {
	return r.Outcome != OutcomePending && r.Outcome != ""
}

// UsableItems returns the batch items that can be republished, in order.
func (r *Record) UsableItems() []MediaItem {
	items := make([]MediaItem, 0, len(r.Items))
	for _, it := range r.Items {
		if it.Usable() {
			items = append(items, it)
		}
	}
	return items
}

// HasBatchMember reports whether messageID belongs to this batch.
func (r *Record) HasBatchMember(messageID int) bool {
	for _, id := range r.BatchMessageIDs {
		if id == messageID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. The store hands out and accepts only copies
// so callers cannot mutate its internals.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.Items != nil {
		c.Items = make([]MediaItem, len(r.Items))
		copy(c.Items, r.Items)
	}
	if r.BatchMessageIDs != nil {
		c.BatchMessageIDs = make([]int, len(r.BatchMessageIDs))
		copy(c.BatchMessageIDs, r.BatchMessageIDs)
	}
	if r.ForwardOrigin != nil {
		o := *r.ForwardOrigin
		c.ForwardOrigin = &o
	}
	return &c
}
