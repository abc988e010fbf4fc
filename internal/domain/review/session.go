package review

import "sync"

// Reviewer identifies the acting member of the review group.
type Reviewer struct {
	ID   int64
	Name string
}

// Session is the modal reply-relay state of one reviewer: while it is
// active, their plain-text messages in the review group are relayed to
// the target submitter. Its lifecycle is independent of the submission's
// outcome.
type Session struct {
	TargetSubmitterID int64
	OriginMessageID   int
}

// Sessions is a keyed store of reply sessions, one per reviewer, with
// explicit enter/exit transitions.
type Sessions struct {
	mu     sync.Mutex
	active map[int64]Session
}

func NewSessions() *Sessions {
	return &Sessions{active: make(map[int64]Session)}
}

// Enter starts (or replaces) the reviewer's session.
func (s *Sessions) Enter(reviewerID int64, sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[reviewerID] = sess
}

// Get returns the reviewer's active session, if any.
func (s *Sessions) Get(reviewerID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.active[reviewerID]
	return sess, ok
}

// Exit ends the reviewer's session, returning it and whether one existed.
// A failed relay send does not exit the session; only this call does.
func (s *Sessions) Exit(reviewerID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.active[reviewerID]
	if ok {
		delete(s.active, reviewerID)
	}
	return sess, ok
}
