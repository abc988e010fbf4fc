package telegram

import (
	"errors"
	"strconv"
	"strings"

	"submission_bot/internal/app"
	"submission_bot/internal/domain/review"
	"submission_bot/internal/domain/submission"
	"submission_bot/internal/infra/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// BotHandlers wires telebot updates into the application services. One
// instance handles all three surfaces: the submitter's private chat, the
// review group and the admin commands.
type BotHandlers struct {
	bot     *telebot.Bot
	cfg     *config.Store
	intake  *app.IntakeService
	reviews *app.ReviewService
	log     *logrus.Entry
}

func NewBotHandlers(cfg *config.Store, intake *app.IntakeService, reviews *app.ReviewService, log *logrus.Entry) *BotHandlers {
	return &BotHandlers{cfg: cfg, intake: intake, reviews: reviews, log: log}
}

// Register attaches every endpoint to the bot.
func (h *BotHandlers) Register(b *telebot.Bot) {
	h.bot = b

	b.Handle("/start", h.handleStart)
	b.Handle("/help", h.handleHelp)
	b.Handle("/version", h.handleVersion)
	b.Handle("/about", h.handleAbout)
	b.Handle("/status", h.handleStatus)
	b.Handle("/setgroup", h.handleSetGroup)
	b.Handle("/setchannel", h.handleSetChannel)
	b.Handle("/setchatlink", h.handleSetChatLink)
	b.Handle("/togglefooter", h.handleToggleFooter)

	b.Handle("/ok", h.handleApprove)
	b.Handle("/no", h.handleReject)
	b.Handle("/re", h.handleStartReply)
	b.Handle("/unre", h.handleEndReply)
	b.Handle("/echo", h.handleEcho)
	b.Handle("/ban", h.handleBan)
	b.Handle("/unban", h.handleUnban)
	b.Handle("/warn", h.handleWarn)
	b.Handle("/resetwarn", h.handleResetWarn)
	b.Handle("/pwshelp", h.handleReviewHelp)

	b.Handle(telebot.OnText, h.onText)
	for _, ep := range []string{
		telebot.OnPhoto, telebot.OnVideo, telebot.OnAnimation,
		telebot.OnAudio, telebot.OnVoice, telebot.OnDocument,
		telebot.OnSticker,
	} {
		b.Handle(ep, h.onMedia)
	}
	b.Handle(telebot.OnCallback, h.onCallback)
}

func (h *BotHandlers) isReviewGroup(chat *telebot.Chat) bool {
	return chat != nil && h.cfg.GroupID() != 0 && chat.ID == h.cfg.GroupID()
}

// onText routes plain text: in a private chat it is a submission, in the
// review group it may be a reply-session relay.
func (h *BotHandlers) onText(c telebot.Context) error {
	m := c.Message()
	if m == nil || c.Sender() == nil {
		return nil
	}

	if m.Private() {
		h.intake.HandleSingle(c.Sender().ID, displayName(c.Sender()), m.ID, originFromMessage(m))
		return nil
	}

	if !h.isReviewGroup(c.Chat()) || strings.HasPrefix(m.Text, "/") {
		return nil
	}
	err := h.reviews.Relay(c.Sender().ID, m.Text)
	switch {
	case err == nil, errors.Is(err, app.ErrNoSession):
		return nil
	case errors.Is(err, app.ErrSubmitterBlocked):
		return c.Reply("The submitter is banned; nothing was delivered. Use /unre to exit reply mode.")
	default:
		return c.Reply("Delivery failed; you are still in reply mode. Use /unre to exit.")
	}
}

// onMedia routes media messages from private chats; album members are
// buffered, everything else goes through the single-message flow.
func (h *BotHandlers) onMedia(c telebot.Context) error {
	m := c.Message()
	if m == nil || c.Sender() == nil {
		return nil
	}
	if !m.Private() {
		// The relay is text-only.
		if h.isReviewGroup(c.Chat()) && h.reviews.InReplySession(c.Sender().ID) {
			return c.Reply("Reply mode relays text only. Send plain text, or /unre to exit.")
		}
		return nil
	}
	if m.AlbumID != "" {
		h.intake.CollectBatchItem(c.Sender().ID, displayName(c.Sender()), m.AlbumID,
			mediaItemFromMessage(m), originFromMessage(m))
		return nil
	}
	h.intake.HandleSingle(c.Sender().ID, displayName(c.Sender()), m.ID, originFromMessage(m))
	return nil
}

// onCallback dispatches all inline buttons: the submitter's attribution
// choice in private chats and the decision buttons in the review group.
func (h *BotHandlers) onCallback(c telebot.Context) error {
	cb := c.Callback()
	if cb == nil || cb.Message == nil || c.Sender() == nil {
		return nil
	}
	data := strings.TrimSpace(strings.TrimPrefix(cb.Data, "\f"))

	switch data {
	case app.CallbackApproveAttributed:
		return h.decisionCallback(c, submission.KindAttributed, true)
	case app.CallbackApproveAnonymous:
		return h.decisionCallback(c, submission.KindAnonymous, true)
	case app.CallbackReject:
		return h.decisionCallback(c, "", false)
	}

	parts := strings.Split(data, ":")
	if len(parts) < 3 {
		return c.Respond(&telebot.CallbackResponse{})
	}
	action, scope := parts[0], parts[1]
	userID := c.Sender().ID
	name := displayName(c.Sender())
	promptID := cb.Message.ID

	var err error
	switch {
	case scope == "sm":
		msgID, aerr := strconv.Atoi(parts[2])
		if aerr != nil {
			return c.Respond(&telebot.CallbackResponse{})
		}
		switch action {
		case app.ChoiceCancel:
			h.intake.Cancel(userID, promptID, false)
		case app.ChoiceAttributed:
			err = h.intake.ConfirmSingle(userID, name, submission.KindAttributed, msgID, promptID)
		case app.ChoiceAnonymous:
			err = h.intake.ConfirmSingle(userID, name, submission.KindAnonymous, msgID, promptID)
		}
	case scope == "mg" && len(parts) >= 4:
		batchID := parts[2]
		switch action {
		case app.ChoiceCancel:
			h.intake.Cancel(userID, promptID, true)
		case app.ChoiceAttributed:
			err = h.intake.ConfirmBatch(userID, name, submission.KindAttributed, batchID, promptID)
		case app.ChoiceAnonymous:
			err = h.intake.ConfirmBatch(userID, name, submission.KindAnonymous, batchID, promptID)
		}
	}
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Debug("Attribution choice failed")
	}
	return c.Respond(&telebot.CallbackResponse{})
}

// decisionCallback runs the approve and reject buttons. The decision
// prompt is a reply to the anchor, so the anchor and its content come
// from the prompt's reply target.
func (h *BotHandlers) decisionCallback(c telebot.Context, kind submission.Kind, approve bool) error {
	cb := c.Callback()
	if !h.isReviewGroup(c.Chat()) {
		return c.Respond(&telebot.CallbackResponse{})
	}
	if cb.Message.ReplyTo == nil {
		return c.Respond(&telebot.CallbackResponse{Text: "The submission this prompt refers to is gone."})
	}

	anchor := cb.Message.ReplyTo
	reviewer := review.Reviewer{ID: c.Sender().ID, Name: displayName(c.Sender())}

	var err error
	if approve {
		err = h.reviews.ApproveViaButton(c.Chat().ID, anchor.ID, contentFromMessage(anchor), kind, reviewer)
	} else {
		err = h.reviews.Reject(c.Chat().ID, anchor.ID, reviewer, "")
	}
	if err != nil {
		return c.Respond(&telebot.CallbackResponse{Text: reviewErrText(err)})
	}
	return c.Respond(&telebot.CallbackResponse{Text: "Done."})
}

// reviewErrText maps service errors to reviewer-facing notices.
func reviewErrText(err error) string {
	var decided *app.AlreadyDecidedError
	switch {
	case errors.As(err, &decided):
		return "Already processed (" + decided.Status + ")."
	case errors.Is(err, app.ErrNoSubmission):
		return "No submission found. Reply to a submission message."
	case errors.Is(err, app.ErrSubmitterBlocked):
		return "The submitter is banned."
	case errors.Is(err, app.ErrKindMismatch):
		return "This button no longer matches the submission's mode."
	case errors.Is(err, app.ErrChannelNotSet):
		return "No publish channel configured. Set one with /setchannel."
	default:
		return "Action failed: " + err.Error()
	}
}
