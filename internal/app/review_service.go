package app

import (
	"errors"
	"fmt"

	"submission_bot/internal/domain/review"
	"submission_bot/internal/domain/submission"
	tg "submission_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// WarnThreshold is the warning count at which a submitter is banned
// automatically.
const WarnThreshold = 3

// ReviewService executes reviewer actions against submissions. Every
// action resolves its target from the review-group message the reviewer
// replied to; commands and buttons run through the same guards.
type ReviewService struct {
	cfg       ConfigStore
	repo      submission.Repository
	client    tg.Client
	publisher *Publisher
	sessions  *review.Sessions
	log       *logrus.Entry
}

func NewReviewService(cfg ConfigStore, repo submission.Repository, client tg.Client, publisher *Publisher, sessions *review.Sessions, log *logrus.Entry) *ReviewService {
	return &ReviewService{
		cfg:       cfg,
		repo:      repo,
		client:    client,
		publisher: publisher,
		sessions:  sessions,
		log:       log,
	}
}

// Resolve maps a replied-to review-group message to its submission:
// exact anchor lookup first, then the batch-membership scan for replies
// to a non-first album item.
func (s *ReviewService) Resolve(groupID int64, repliedMsgID int) (submission.Key, *submission.Record, error) {
	key := submission.MakeKey(groupID, repliedMsgID)
	rec, err := s.repo.Get(key)
	if err == nil {
		return key, rec, nil
	}
	if !errors.Is(err, submission.ErrNotFound) {
		return "", nil, err
	}
	key, rec, err = s.repo.FindByBatchMember(groupID, repliedMsgID)
	if errors.Is(err, submission.ErrNotFound) {
		return "", nil, ErrNoSubmission
	}
	return key, rec, err
}

// resolveActive adds the shared decision guards: a terminal record
// short-circuits, and a banned submitter refuses the action.
func (s *ReviewService) resolveActive(groupID int64, repliedMsgID int) (submission.Key, *submission.Record, error) {
	key, rec, err := s.Resolve(groupID, repliedMsgID)
	if err != nil {
		return "", nil, err
	}
	if rec.Decided() {
		return "", nil, &AlreadyDecidedError{Status: rec.StatusDetail}
	}
	if s.cfg.IsBlocked(rec.SubmitterID) {
		return "", nil, ErrSubmitterBlocked
	}
	return key, rec, nil
}

// Approve publishes the submission under its chosen mode. content is the
// payload of the review-group message the reviewer replied to; comment
// is the optional editor note.
func (s *ReviewService) Approve(groupID int64, repliedMsgID int, content submission.Content, reviewer review.Reviewer, comment string) error {
	key, rec, err := s.resolveActive(groupID, repliedMsgID)
	if err != nil {
		return err
	}
	return s.publisher.Publish(key, rec, content, reviewer, comment)
}

// ApproveViaButton is Approve for the inline decision buttons, with one
// extra guard: the button encodes the mode it was created for, and a
// stale button whose mode no longer matches the record is refused.
func (s *ReviewService) ApproveViaButton(groupID int64, anchorMsgID int, content submission.Content, kind submission.Kind, reviewer review.Reviewer) error {
	key, rec, err := s.resolveActive(groupID, anchorMsgID)
	if err != nil {
		return err
	}
	if rec.Kind != kind {
		return ErrKindMismatch
	}
	return s.publisher.Publish(key, rec, content, reviewer, "")
}

// Reject marks the submission rejected and notifies the submitter.
func (s *ReviewService) Reject(groupID int64, repliedMsgID int, reviewer review.Reviewer, comment string) error {
	key, rec, err := s.resolveActive(groupID, repliedMsgID)
	if err != nil {
		return err
	}
	return s.publisher.Reject(key, rec, reviewer, comment)
}

// Ban blocks the submitter. Unlike decisions it works on terminal
// records too; moderation is independent of review state.
func (s *ReviewService) Ban(groupID int64, repliedMsgID int, reviewer review.Reviewer) error {
	_, rec, err := s.Resolve(groupID, repliedMsgID)
	if err != nil {
		return err
	}
	if !s.cfg.AddBlocked(rec.SubmitterID) {
		s.notifyGroup(fmt.Sprintf("%s is already banned.", userLink(rec.SubmitterID, rec.SubmitterName)))
		return nil
	}
	s.cfg.Save()
	s.log.WithFields(logrus.Fields{
		"submitter_id": rec.SubmitterID,
		"reviewer_id":  reviewer.ID,
	}).Info("Submitter banned")
	s.notifyGroup(fmt.Sprintf("🚫 %s has been banned. Their future submissions will be ignored.",
		userLink(rec.SubmitterID, rec.SubmitterName)))
	return nil
}

// Unban lifts the block on the submitter.
func (s *ReviewService) Unban(groupID int64, repliedMsgID int, reviewer review.Reviewer) error {
	_, rec, err := s.Resolve(groupID, repliedMsgID)
	if err != nil {
		return err
	}
	if !s.cfg.RemoveBlocked(rec.SubmitterID) {
		s.notifyGroup(fmt.Sprintf("%s is not banned.", userLink(rec.SubmitterID, rec.SubmitterName)))
		return nil
	}
	s.cfg.Save()
	s.log.WithFields(logrus.Fields{
		"submitter_id": rec.SubmitterID,
		"reviewer_id":  reviewer.ID,
	}).Info("Submitter unbanned")
	s.notifyGroup(fmt.Sprintf("✅ %s has been unbanned.", userLink(rec.SubmitterID, rec.SubmitterName)))
	return nil
}

// Warn issues one warning to the submitter; reaching the threshold bans
// them automatically.
func (s *ReviewService) Warn(groupID int64, repliedMsgID int, reviewer review.Reviewer) error {
	_, rec, err := s.Resolve(groupID, repliedMsgID)
	if err != nil {
		return err
	}
	if s.cfg.IsBlocked(rec.SubmitterID) {
		s.notifyGroup(fmt.Sprintf("%s is already banned; no warning issued.",
			userLink(rec.SubmitterID, rec.SubmitterName)))
		return nil
	}

	count := s.cfg.IncrementWarning(rec.SubmitterID)
	if count >= WarnThreshold {
		s.cfg.AddBlocked(rec.SubmitterID)
		s.cfg.Save()
		s.log.WithFields(logrus.Fields{
			"submitter_id": rec.SubmitterID,
			"warnings":     count,
		}).Info("Submitter auto-banned after reaching the warning threshold")
		s.notifyGroup(fmt.Sprintf("🚫 %s reached %d warnings and has been banned automatically.",
			userLink(rec.SubmitterID, rec.SubmitterName), count))
		s.notifySubmitter(rec,
			fmt.Sprintf("⚠️ You received your %d. warning and have been banned from submitting.", count))
		return nil
	}

	s.cfg.Save()
	s.notifyGroup(fmt.Sprintf("⚠️ Warning issued to %s (%d/%d).",
		userLink(rec.SubmitterID, rec.SubmitterName), count, WarnThreshold))
	s.notifySubmitter(rec,
		fmt.Sprintf("⚠️ You received a warning from the reviewers (%d/%d). At %d warnings you will be banned.",
			count, WarnThreshold, WarnThreshold))
	return nil
}

// ResetWarnings clears the submitter's warning count.
func (s *ReviewService) ResetWarnings(groupID int64, repliedMsgID int, reviewer review.Reviewer) error {
	_, rec, err := s.Resolve(groupID, repliedMsgID)
	if err != nil {
		return err
	}
	if !s.cfg.ResetWarnings(rec.SubmitterID) {
		s.notifyGroup(fmt.Sprintf("%s has no warnings.", userLink(rec.SubmitterID, rec.SubmitterName)))
		return nil
	}
	s.cfg.Save()
	s.notifyGroup(fmt.Sprintf("✅ Warnings for %s have been reset.", userLink(rec.SubmitterID, rec.SubmitterName)))
	return nil
}

// StartReply enters the reviewer's reply-relay session against the
// submission's submitter. The session is independent of the submission's
// outcome, so decided records are valid targets.
func (s *ReviewService) StartReply(groupID int64, repliedMsgID int, reviewer review.Reviewer) error {
	_, rec, err := s.Resolve(groupID, repliedMsgID)
	if err != nil {
		return err
	}
	if s.cfg.IsBlocked(rec.SubmitterID) {
		return ErrSubmitterBlocked
	}
	s.sessions.Enter(reviewer.ID, review.Session{
		TargetSubmitterID: rec.SubmitterID,
		OriginMessageID:   rec.OriginMessageID,
	})
	s.notifyGroup(fmt.Sprintf("💬 %s is now replying to %s. Plain messages are relayed until /unre.",
		userLink(reviewer.ID, reviewer.Name), userLink(rec.SubmitterID, rec.SubmitterName)))
	return nil
}

// EchoReply sends one message to the submitter without opening a
// session.
func (s *ReviewService) EchoReply(groupID int64, repliedMsgID int, reviewer review.Reviewer, text string) error {
	_, rec, err := s.Resolve(groupID, repliedMsgID)
	if err != nil {
		return err
	}
	if s.cfg.IsBlocked(rec.SubmitterID) {
		return ErrSubmitterBlocked
	}
	_, err = s.client.SendMessage(tg.Dest(rec.SubmitterID),
		"💬 Message from the reviewers:\n\n"+text,
		&tg.SendOptions{ReplyTo: rec.OriginMessageID, BestEffortReply: true})
	if err != nil {
		s.log.WithError(err).WithField("submitter_id", rec.SubmitterID).Error("Failed to deliver echo reply")
		return err
	}
	s.notifyGroup("✉️ Message delivered.")
	return nil
}

// Relay forwards one plain review-group message through the reviewer's
// active session. ErrNoSession means the text was not meant for the bot.
// A failed delivery keeps the session open.
func (s *ReviewService) Relay(reviewerID int64, text string) error {
	sess, ok := s.sessions.Get(reviewerID)
	if !ok {
		return ErrNoSession
	}
	if s.cfg.IsBlocked(sess.TargetSubmitterID) {
		return ErrSubmitterBlocked
	}
	_, err := s.client.SendMessage(tg.Dest(sess.TargetSubmitterID),
		"💬 Message from the reviewers:\n\n"+text,
		&tg.SendOptions{ReplyTo: sess.OriginMessageID, BestEffortReply: true})
	if err != nil {
		s.log.WithError(err).WithField("submitter_id", sess.TargetSubmitterID).Error("Failed to relay reply")
	}
	return err
}

// InReplySession reports whether the reviewer has an active relay
// session.
func (s *ReviewService) InReplySession(reviewerID int64) bool {
	_, ok := s.sessions.Get(reviewerID)
	return ok
}

// EndReply exits the reviewer's session, reporting whether one existed.
func (s *ReviewService) EndReply(reviewerID int64) bool {
	sess, ok := s.sessions.Exit(reviewerID)
	if !ok {
		return false
	}
	s.notifyGroup(fmt.Sprintf("💬 Reply mode off (target was %s).", userLink(sess.TargetSubmitterID, "submitter")))
	return true
}

// PendingCount exposes the store's pending total for status surfaces.
func (s *ReviewService) PendingCount() int {
	return s.repo.CountPending()
}

func (s *ReviewService) notifyGroup(text string) {
	groupID := s.cfg.GroupID()
	if groupID == 0 {
		return
	}
	_, err := s.client.SendMessage(tg.Dest(groupID), text, &tg.SendOptions{HTML: true})
	if err != nil {
		s.log.WithError(err).Error("Failed to send review group notice")
	}
}

func (s *ReviewService) notifySubmitter(rec *submission.Record, text string) {
	_, err := s.client.SendMessage(tg.Dest(rec.SubmitterID), text,
		&tg.SendOptions{ReplyTo: rec.OriginMessageID, BestEffortReply: true})
	if err != nil {
		s.log.WithError(err).WithField("submitter_id", rec.SubmitterID).Warn("Failed to notify submitter")
	}
}
