package app

import (
	"fmt"
	"sync"

	"submission_bot/internal/domain/submission"
	tg "submission_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// Callback actions for the submitter's attribution choice. Data layout:
// "<action>:sm:<original_msg_id>" for single messages,
// "<action>:mg:<batch_id>:<first_msg_id>" for batches.
const (
	ChoiceAttributed = "attr"
	ChoiceAnonymous  = "anon"
	ChoiceCancel     = "cancel"
)

// Callback data for the review-group decision buttons.
const (
	CallbackApproveAttributed = "approve:attributed"
	CallbackApproveAnonymous  = "approve:anonymous"
	CallbackReject            = "reject:submission"
)

// IntakeService handles the submitter-facing half of the lifecycle:
// receiving private messages, coalescing albums, offering the
// attribution choice and creating the pending submission record in the
// review group.
type IntakeService struct {
	cfg    ConfigStore
	repo   submission.Repository
	client tg.Client
	agg    *Aggregator
	log    *logrus.Entry

	mu sync.Mutex
	// finalized batches waiting for the submitter's attribution choice,
	// keyed by the choice-prompt message id
	awaitingChoice map[int]*Batch
}

func NewIntakeService(cfg ConfigStore, repo submission.Repository, client tg.Client, log *logrus.Entry) *IntakeService {
	s := &IntakeService{
		cfg:            cfg,
		repo:           repo,
		client:         client,
		log:            log,
		awaitingChoice: make(map[int]*Batch),
	}
	s.agg = NewAggregator(BatchDelay, s.finalizeBatch, log)
	return s
}

// HandleSingle processes one non-album private message: it offers the
// attribution choice, restricted to attributed-only when the forward
// origin demands it. Blocked submitters are dropped silently.
func (s *IntakeService) HandleSingle(submitterID int64, submitterName string, messageID int, origin *submission.ForwardOrigin) {
	if s.cfg.IsBlocked(submitterID) {
		s.log.WithField("submitter_id", submitterID).Info("Blocked submitter ignored at ingestion")
		return
	}

	forced := origin.ForcesAttribution(submitterID)
	suffix := fmt.Sprintf("sm:%d", messageID)
	text, keyboard := choicePrompt(forced, suffix, false)

	_, err := s.client.SendMessage(tg.Dest(submitterID), text, &tg.SendOptions{
		ReplyTo:  messageID,
		Keyboard: keyboard,
	})
	if err != nil {
		s.log.WithError(err).WithField("submitter_id", submitterID).Error("Failed to send attribution choice prompt")
	}
}

// CollectBatchItem feeds one album message into the aggregator. Blocked
// submitters are dropped before anything is buffered.
func (s *IntakeService) CollectBatchItem(submitterID int64, submitterName string, batchID string, item submission.MediaItem, origin *submission.ForwardOrigin) {
	if s.cfg.IsBlocked(submitterID) {
		s.log.WithField("submitter_id", submitterID).Info("Blocked submitter ignored at ingestion")
		return
	}
	s.agg.Add(submitterID, batchID, submitterID, submitterName, item, origin)
}

// finalizeBatch runs once per settled batch, on the aggregator's timer
// goroutine.
func (s *IntakeService) finalizeBatch(b *Batch) {
	first := 0
	if len(b.Items) > 0 {
		first = b.Items[0].MessageID
	}

	if len(b.UsableItems()) == 0 {
		s.log.WithField("batch_id", b.BatchID).Warn("Batch contains no usable media, aborting")
		_, err := s.client.SendMessage(tg.Dest(b.ChatID),
			"Sorry, this album contains no photos or videos I can publish.",
			&tg.SendOptions{ReplyTo: first, BestEffortReply: true})
		if err != nil {
			s.log.WithError(err).Error("Failed to send unusable-batch notice")
		}
		return
	}

	forced := b.Origin.ForcesAttribution(b.SubmitterID)
	suffix := fmt.Sprintf("mg:%s:%d", b.BatchID, first)
	text, keyboard := choicePrompt(forced, suffix, true)

	prompt, err := s.client.SendMessage(tg.Dest(b.ChatID), text, &tg.SendOptions{
		ReplyTo:         first,
		BestEffortReply: true,
		Keyboard:        keyboard,
	})
	if err != nil {
		s.log.WithError(err).WithField("batch_id", b.BatchID).Error("Failed to send batch choice prompt")
		return
	}

	s.mu.Lock()
	s.awaitingChoice[prompt.ID] = b
	s.mu.Unlock()
}

func choicePrompt(forced bool, dataSuffix string, isBatch bool) (string, [][]tg.Button) {
	text := "How would you like to submit this?"
	if isBatch {
		text = "I received an album from you. How would you like to submit it?"
	}

	var keyboard [][]tg.Button
	if forced {
		text += "\n(Forwarded content keeps its original source, so it can only be submitted with attribution.)"
		keyboard = [][]tg.Button{
			{{Text: "Keep source (attributed)", Data: ChoiceAttributed + ":" + dataSuffix}},
			{{Text: "Cancel", Data: ChoiceCancel + ":" + dataSuffix}},
		}
	} else {
		keyboard = [][]tg.Button{
			{
				{Text: "Keep source (attributed)", Data: ChoiceAttributed + ":" + dataSuffix},
				{Text: "Send anonymously", Data: ChoiceAnonymous + ":" + dataSuffix},
			},
			{{Text: "Cancel", Data: ChoiceCancel + ":" + dataSuffix}},
		}
	}
	return text, keyboard
}

// Cancel discards the submission attached to the choice prompt.
func (s *IntakeService) Cancel(submitterID int64, promptMsgID int, isBatch bool) {
	if isBatch {
		s.mu.Lock()
		delete(s.awaitingChoice, promptMsgID)
		s.mu.Unlock()
	}
	s.editPrompt(submitterID, promptMsgID, "🗑️ Submission cancelled.")
	s.log.WithField("submitter_id", submitterID).Info("Submission cancelled by submitter")
}

// ConfirmSingle handles the attribution choice for a single message: the
// original is forwarded into the review group (becoming the anchor) and
// the pending record is created.
func (s *IntakeService) ConfirmSingle(submitterID int64, submitterName string, kind submission.Kind, originalMsgID, promptMsgID int) error {
	if s.cfg.IsBlocked(submitterID) {
		s.editPrompt(submitterID, promptMsgID, "❌ You are not allowed to use this bot.")
		return ErrSubmitterBlocked
	}
	groupID := s.cfg.GroupID()
	if groupID == 0 {
		s.editPrompt(submitterID, promptMsgID, "❌ Submissions are temporarily unavailable.")
		return ErrGroupNotSet
	}

	fwd, origin, err := s.client.Forward(tg.Dest(groupID), submitterID, originalMsgID)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"submitter_id": submitterID,
			"message_id":   originalMsgID,
		}).Error("Failed to forward submission to review group")
		s.editPrompt(submitterID, promptMsgID, "❌ Processing failed: your message could not be forwarded.")
		return err
	}

	rec := &submission.Record{
		Kind:            kind,
		SubmitterID:     submitterID,
		SubmitterName:   submitterName,
		OriginMessageID: originalMsgID,
		ForwardOrigin:   origin,
		Outcome:         submission.OutcomePending,
	}
	key := submission.MakeKey(groupID, fwd.ID)
	return s.registerPending(key, rec, fwd.ID, submitterID, promptMsgID, false)
}

// ConfirmBatch handles the attribution choice for a finalized batch: the
// usable items are re-sent as one album into the review group and the
// pending record is created with full batch membership.
func (s *IntakeService) ConfirmBatch(submitterID int64, submitterName string, kind submission.Kind, batchID string, promptMsgID int) error {
	if s.cfg.IsBlocked(submitterID) {
		s.editPrompt(submitterID, promptMsgID, "❌ You are not allowed to use this bot.")
		return ErrSubmitterBlocked
	}

	s.mu.Lock()
	b := s.awaitingChoice[promptMsgID]
	delete(s.awaitingChoice, promptMsgID)
	s.mu.Unlock()
	if b == nil || b.BatchID != batchID {
		s.editPrompt(submitterID, promptMsgID, "⏳ This submission prompt has expired.")
		return ErrNoSubmission
	}

	groupID := s.cfg.GroupID()
	if groupID == 0 {
		s.editPrompt(submitterID, promptMsgID, "❌ Submissions are temporarily unavailable.")
		return ErrGroupNotSet
	}

	usable := b.UsableItems()
	caption := ""
	if len(usable) > 0 {
		caption = usable[0].Caption
	}
	sent, err := s.client.SendAlbum(tg.Dest(groupID), usable, caption, false)
	if err != nil || len(sent) == 0 {
		s.log.WithError(err).WithField("batch_id", batchID).Error("Failed to send album to review group")
		s.editPrompt(submitterID, promptMsgID, "❌ Processing failed: the album could not be forwarded.")
		if err == nil {
			err = fmt.Errorf("album send returned no messages")
		}
		return err
	}

	memberIDs := make([]int, len(sent))
	for i, m := range sent {
		memberIDs[i] = m.ID
	}

	rec := &submission.Record{
		Kind:            kind,
		SubmitterID:     submitterID,
		SubmitterName:   submitterName,
		OriginMessageID: b.Items[0].MessageID,
		IsBatch:         true,
		Items:           b.Items,
		BatchMessageIDs: memberIDs,
		ForwardOrigin:   b.Origin,
		Outcome:         submission.OutcomePending,
	}
	key := submission.MakeKey(groupID, sent[0].ID)
	return s.registerPending(key, rec, sent[0].ID, submitterID, promptMsgID, true)
}

// registerPending posts the decision prompt into the review group and
// persists the record. A prompt send failure does not lose the
// submission: the record is stored with PendingMarkup set and the status
// message is sent fresh at decision time.
func (s *IntakeService) registerPending(key submission.Key, rec *submission.Record, anchorMsgID int, submitterID int64, promptMsgID int, isBatch bool) error {
	groupID := s.cfg.GroupID()

	batchNote := ""
	if isBatch {
		batchNote = " (album)"
	}
	mode := "attributed"
	if rec.Kind == submission.KindAnonymous {
		mode = "anonymous"
	}
	text := fmt.Sprintf("📩 <b>New submission</b>%s\n\n<b>Submitter:</b> %s\n<b>Mode:</b> %s\n\nMore commands: /pwshelp",
		batchNote, userLink(rec.SubmitterID, rec.SubmitterName), mode)

	var approve tg.Button
	if rec.Kind == submission.KindAttributed {
		approve = tg.Button{Text: "✅ Approve (attributed)", Data: CallbackApproveAttributed}
	} else {
		approve = tg.Button{Text: "✅ Approve (anonymous)", Data: CallbackApproveAnonymous}
	}
	keyboard := [][]tg.Button{
		{approve},
		{{Text: "❌ Reject", Data: CallbackReject}},
	}

	prompt, err := s.client.SendMessage(tg.Dest(groupID), text, &tg.SendOptions{
		ReplyTo:  anchorMsgID,
		HTML:     true,
		Keyboard: keyboard,
	})
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Decision prompt failed to send, storing record with pending markup")
		rec.PendingMarkup = true
	} else {
		rec.ReviewPromptID = prompt.ID
	}

	if perr := s.repo.Put(key, rec); perr != nil {
		s.log.WithError(perr).WithField("key", key).Error("Failed to store submission record")
		return perr
	}
	s.log.WithFields(logrus.Fields{
		"key":          key,
		"submitter_id": rec.SubmitterID,
		"kind":         rec.Kind,
		"batch":        rec.IsBatch,
	}).Info("Submission registered for review")

	if err != nil {
		s.editPrompt(submitterID, promptMsgID,
			"⚠️ Your submission reached the review group, but setting up the review controls failed. A reviewer will handle it shortly.")
	} else {
		s.editPrompt(submitterID, promptMsgID, "✅ Thanks! Your submission has been sent for review.")
	}
	return nil
}

func (s *IntakeService) editPrompt(submitterID int64, promptMsgID int, text string) {
	_, err := s.client.EditMessageText(tg.Dest(submitterID), promptMsgID, text, nil)
	if err != nil {
		s.log.WithError(err).WithField("submitter_id", submitterID).Debug("Failed to edit choice prompt")
	}
}
