package app

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"submission_bot/internal/domain/archive"
	"submission_bot/internal/domain/review"
	"submission_bot/internal/domain/submission"
	tg "submission_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// Publisher turns decisions into channel posts and terminal record
// state. Both Publish and Reject leave the record terminal exactly once;
// the decision archive write is best-effort and never blocks the flow.
type Publisher struct {
	cfg     ConfigStore
	repo    submission.Repository
	client  tg.Client
	archive archive.Repository
	log     *logrus.Entry
}

func NewPublisher(cfg ConfigStore, repo submission.Repository, client tg.Client, arch archive.Repository, log *logrus.Entry) *Publisher {
	return &Publisher{
		cfg:     cfg,
		repo:    repo,
		client:  client,
		archive: arch,
		log:     log,
	}
}

// Publish posts the approved submission to the publish channel. A
// posting failure is itself terminal (failed_posting): the group is told
// and nothing is retried.
func (p *Publisher) Publish(key submission.Key, rec *submission.Record, content submission.Content, reviewer review.Reviewer, comment string) error {
	channel := p.cfg.PublishChannel()
	if channel == "" {
		return ErrChannelNotSet
	}

	caption := p.composeCaption(rec, content, reviewer, comment)

	var (
		posted *tg.Message
		err    error
	)
	if rec.IsBatch {
		var sent []tg.Message
		sent, err = p.client.SendAlbum(channel, rec.UsableItems(), caption, true)
		if err == nil && len(sent) > 0 {
			posted = &sent[0]
		}
	} else {
		posted, err = p.publishSingle(channel, content, caption)
	}
	if err != nil {
		p.log.WithError(err).WithField("key", key).Error("Publishing to channel failed")
		rec.Outcome = submission.OutcomeApproved
		rec.StatusDetail = submission.StatusFailedPosting
		p.storeTerminal(key, rec)
		p.updateStatus(key, rec, fmt.Sprintf("⚠️ Approved by %s, but posting to the channel failed. Not retried.",
			userLink(reviewer.ID, reviewer.Name)))
		p.archiveDecision(key, rec, reviewer, comment, 0)
		return err
	}

	rec.Outcome = submission.OutcomeApproved
	if rec.Kind == submission.KindAnonymous {
		rec.StatusDetail = submission.StatusApprovedAnonymous
	} else {
		rec.StatusDetail = submission.StatusApprovedAttributed
	}
	p.storeTerminal(key, rec)

	postedID := 0
	if posted != nil {
		postedID = posted.ID
	}
	p.log.WithFields(logrus.Fields{
		"key":         key,
		"reviewer_id": reviewer.ID,
		"message_id":  postedID,
	}).Info("Submission published")

	summary := fmt.Sprintf("✅ Approved by %s and published.\n<b>Submitter:</b> %s",
		userLink(reviewer.ID, reviewer.Name), userLink(rec.SubmitterID, rec.SubmitterName))
	if strings.TrimSpace(comment) != "" {
		summary += "\n<b>Comment:</b> " + html.EscapeString(comment)
	}
	p.updateStatus(key, rec, summary)
	p.notifyApproved(rec, channel, postedID, comment)
	p.archiveDecision(key, rec, reviewer, comment, postedID)
	return nil
}

// publishSingle picks the type-specific send. Stickers cannot carry a
// caption, so their caption text follows as a reply.
func (p *Publisher) publishSingle(channel string, content submission.Content, caption string) (*tg.Message, error) {
	if content.Kind == submission.ContentText {
		return p.client.SendMessage(channel, caption, &tg.SendOptions{HTML: true, NoWebPreview: true})
	}
	if content.Kind == submission.ContentSticker {
		posted, err := p.client.SendContent(channel, content, "", nil)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(caption) != "" {
			_, err = p.client.SendMessage(channel, "[About this sticker]\n"+caption, &tg.SendOptions{
				ReplyTo:         posted.ID,
				BestEffortReply: true,
				HTML:            true,
				NoWebPreview:    true,
			})
			if err != nil {
				p.log.WithError(err).Warn("Sticker follow-up text failed to send")
			}
		}
		return posted, nil
	}
	return p.client.SendContent(channel, content, caption, &tg.SendOptions{HTML: true})
}

// composeCaption builds the channel text: the submitter's own words,
// the editor's comment, the attribution line and the optional footer.
// The submitter text is escaped here; everything appended after it is
// trusted markup.
func (p *Publisher) composeCaption(rec *submission.Record, content submission.Content, reviewer review.Reviewer, comment string) string {
	body := content.Body()
	if rec.IsBatch {
		body = ""
		if usable := rec.UsableItems(); len(usable) > 0 {
			body = usable[0].Caption
		}
	}

	var b strings.Builder
	b.WriteString(html.EscapeString(body))

	if strings.TrimSpace(comment) != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "<b>Editor (%s):</b> %s", html.EscapeString(reviewer.Name), html.EscapeString(comment))
	}

	if rec.Kind == submission.KindAttributed {
		if link := attributionLink(rec); link != "" {
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString("via " + link)
		} else {
			p.log.WithField("submitter_id", rec.SubmitterID).Warn("No renderable attribution for attributed submission")
		}
	}

	if p.cfg.FooterEnabled() {
		if chatLink := p.cfg.ChatLink(); chatLink != "" {
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, `<a href="%s">💬 Chat with us</a>`, chatLink)
		}
	}
	return b.String()
}

// attributionLink renders the provenance of an attributed submission.
// Original content credits the submitter; forwarded content credits the
// forward origin. Unknown origin variants render nothing.
func attributionLink(rec *submission.Record) string {
	o := rec.ForwardOrigin
	if o == nil {
		return userLink(rec.SubmitterID, rec.SubmitterName)
	}
	switch o.Type {
	case submission.OriginUser:
		return userLink(o.SenderUserID, o.SenderUserName)
	case submission.OriginHiddenUser:
		return html.EscapeString(o.SenderUserName)
	case submission.OriginChat:
		if o.SenderChatUsername != "" {
			return fmt.Sprintf(`<a href="https://t.me/%s">%s</a>`,
				o.SenderChatUsername, html.EscapeString(o.SenderChatTitle))
		}
		return fmt.Sprintf("group: %s", html.EscapeString(o.SenderChatTitle))
	case submission.OriginChannel:
		if o.ChatUsername != "" {
			return fmt.Sprintf(`<a href="https://t.me/%s/%d">%s</a>`,
				o.ChatUsername, o.MessageID, html.EscapeString(o.ChatTitle))
		}
		internal := strings.TrimPrefix(fmt.Sprintf("%d", o.ChatID), "-100")
		return fmt.Sprintf(`<a href="https://t.me/c/%s/%d">%s</a>`,
			internal, o.MessageID, html.EscapeString(o.ChatTitle))
	default:
		return ""
	}
}

// Reject marks the submission rejected and tells the submitter.
func (p *Publisher) Reject(key submission.Key, rec *submission.Record, reviewer review.Reviewer, comment string) error {
	rec.Outcome = submission.OutcomeRejected
	rec.StatusDetail = submission.StatusRejected
	p.storeTerminal(key, rec)

	p.log.WithFields(logrus.Fields{
		"key":         key,
		"reviewer_id": reviewer.ID,
	}).Info("Submission rejected")

	summary := fmt.Sprintf("❌ Rejected by %s.\n<b>Submitter:</b> %s",
		userLink(reviewer.ID, reviewer.Name), userLink(rec.SubmitterID, rec.SubmitterName))
	if strings.TrimSpace(comment) != "" {
		summary += "\n<b>Reason:</b> " + html.EscapeString(comment)
	}
	p.updateStatus(key, rec, summary)

	text := "😔 Sorry, your submission was not accepted."
	if strings.TrimSpace(comment) != "" {
		text += "\n\nReviewer note: " + comment
	}
	p.notifySubmitter(rec, text)
	p.archiveDecision(key, rec, reviewer, comment, 0)
	return nil
}

func (p *Publisher) storeTerminal(key submission.Key, rec *submission.Record) {
	if err := p.repo.Put(key, rec); err != nil {
		p.log.WithError(err).WithField("key", key).Error("Failed to store terminal record")
	}
}

// updateStatus replaces the decision prompt with the outcome summary.
// When the prompt was never delivered the summary is sent fresh, as a
// reply to the anchor.
func (p *Publisher) updateStatus(key submission.Key, rec *submission.Record, text string) {
	groupID := p.cfg.GroupID()
	if groupID == 0 {
		return
	}
	if rec.ReviewPromptID != 0 && !rec.PendingMarkup {
		_, err := p.client.EditMessageText(tg.Dest(groupID), rec.ReviewPromptID, text, &tg.SendOptions{HTML: true})
		if err == nil {
			return
		}
		p.log.WithError(err).WithField("key", key).Debug("Editing decision prompt failed, sending status fresh")
	}
	_, err := p.client.SendMessage(tg.Dest(groupID), text, &tg.SendOptions{
		ReplyTo:         key.AnchorMessageID(),
		BestEffortReply: true,
		HTML:            true,
	})
	if err != nil {
		p.log.WithError(err).WithField("key", key).Warn("Failed to post status summary")
	}
}

func (p *Publisher) notifyApproved(rec *submission.Record, channel string, postedID int, comment string) {
	text := "🎉 Your submission was approved and published!"
	if link := postLink(channel, postedID); link != "" {
		text += "\n" + link
	}
	if strings.TrimSpace(comment) != "" {
		text += "\n\nEditor note: " + comment
	}
	p.notifySubmitter(rec, text)
}

func (p *Publisher) notifySubmitter(rec *submission.Record, text string) {
	_, err := p.client.SendMessage(tg.Dest(rec.SubmitterID), text,
		&tg.SendOptions{ReplyTo: rec.OriginMessageID, BestEffortReply: true, NoWebPreview: true})
	if err != nil {
		p.log.WithError(err).WithField("submitter_id", rec.SubmitterID).Warn("Failed to notify submitter of outcome")
	}
}

// postLink builds the public t.me link to a channel post, or "" when the
// channel form does not support one.
func postLink(channel string, messageID int) string {
	if messageID == 0 {
		return ""
	}
	if strings.HasPrefix(channel, "@") {
		return fmt.Sprintf("https://t.me/%s/%d", strings.TrimPrefix(channel, "@"), messageID)
	}
	if strings.HasPrefix(channel, "-100") {
		return fmt.Sprintf("https://t.me/c/%s/%d", strings.TrimPrefix(channel, "-100"), messageID)
	}
	return ""
}

func (p *Publisher) archiveDecision(key submission.Key, rec *submission.Record, reviewer review.Reviewer, comment string, postedID int) {
	if p.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := p.archive.Record(ctx, &archive.Entry{
		SubmissionKey:      key,
		SubmitterID:        rec.SubmitterID,
		SubmitterName:      rec.SubmitterName,
		Kind:               rec.Kind,
		Outcome:            rec.Outcome,
		StatusDetail:       rec.StatusDetail,
		ReviewerID:         reviewer.ID,
		ReviewerName:       reviewer.Name,
		Comment:            comment,
		PublishedMessageID: postedID,
		DecidedAt:          time.Now().UTC(),
	})
	if err != nil {
		p.log.WithError(err).WithField("key", key).Warn("Decision archive write failed")
	}
}
