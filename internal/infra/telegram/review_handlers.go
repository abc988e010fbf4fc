package telegram

import (
	"strings"

	"submission_bot/internal/domain/review"

	"gopkg.in/telebot.v3"
)

const reviewHelpText = `Review commands (reply to a submission):
/ok [comment] - approve and publish, with an optional editor comment
/no [comment] - reject, with an optional note to the submitter
/re - enter reply mode: your plain messages go to the submitter
/unre - leave reply mode
/echo <text> - send one message to the submitter
/ban - ban the submitter
/unban - unban the submitter
/warn - warn the submitter (ban at 3 warnings)
/resetwarn - clear the submitter's warnings`

func (h *BotHandlers) reviewerOf(c telebot.Context) review.Reviewer {
	return review.Reviewer{ID: c.Sender().ID, Name: displayName(c.Sender())}
}

// repliedTo returns the reply target of a review command, or nil after
// telling the reviewer a reply is required.
func (h *BotHandlers) repliedTo(c telebot.Context) *telebot.Message {
	if !h.isReviewGroup(c.Chat()) {
		return nil
	}
	if c.Message().ReplyTo == nil {
		_ = c.Reply("Reply to a submission message to use this command.")
		return nil
	}
	return c.Message().ReplyTo
}

func (h *BotHandlers) handleApprove(c telebot.Context) error {
	target := h.repliedTo(c)
	if target == nil {
		return nil
	}
	err := h.reviews.Approve(c.Chat().ID, target.ID, contentFromMessage(target),
		h.reviewerOf(c), c.Message().Payload)
	if err != nil {
		return c.Reply(reviewErrText(err))
	}
	return nil
}

func (h *BotHandlers) handleReject(c telebot.Context) error {
	target := h.repliedTo(c)
	if target == nil {
		return nil
	}
	err := h.reviews.Reject(c.Chat().ID, target.ID, h.reviewerOf(c), c.Message().Payload)
	if err != nil {
		return c.Reply(reviewErrText(err))
	}
	return nil
}

func (h *BotHandlers) handleStartReply(c telebot.Context) error {
	target := h.repliedTo(c)
	if target == nil {
		return nil
	}
	if err := h.reviews.StartReply(c.Chat().ID, target.ID, h.reviewerOf(c)); err != nil {
		return c.Reply(reviewErrText(err))
	}
	// Text given with the command is relayed right away.
	if text := strings.TrimSpace(c.Message().Payload); text != "" {
		if err := h.reviews.Relay(c.Sender().ID, text); err != nil {
			return c.Reply("Delivery failed; you are still in reply mode. Use /unre to exit.")
		}
	}
	return nil
}

func (h *BotHandlers) handleEndReply(c telebot.Context) error {
	if !h.isReviewGroup(c.Chat()) {
		return nil
	}
	if !h.reviews.EndReply(c.Sender().ID) {
		return c.Reply("You are not in reply mode.")
	}
	return nil
}

func (h *BotHandlers) handleEcho(c telebot.Context) error {
	target := h.repliedTo(c)
	if target == nil {
		return nil
	}
	text := strings.TrimSpace(c.Message().Payload)
	if text == "" {
		return c.Reply("Usage: /echo <text>")
	}
	if err := h.reviews.EchoReply(c.Chat().ID, target.ID, h.reviewerOf(c), text); err != nil {
		return c.Reply(reviewErrText(err))
	}
	return nil
}

func (h *BotHandlers) handleBan(c telebot.Context) error {
	target := h.repliedTo(c)
	if target == nil {
		return nil
	}
	if err := h.reviews.Ban(c.Chat().ID, target.ID, h.reviewerOf(c)); err != nil {
		return c.Reply(reviewErrText(err))
	}
	return nil
}

func (h *BotHandlers) handleUnban(c telebot.Context) error {
	target := h.repliedTo(c)
	if target == nil {
		return nil
	}
	if err := h.reviews.Unban(c.Chat().ID, target.ID, h.reviewerOf(c)); err != nil {
		return c.Reply(reviewErrText(err))
	}
	return nil
}

func (h *BotHandlers) handleWarn(c telebot.Context) error {
	target := h.repliedTo(c)
	if target == nil {
		return nil
	}
	if err := h.reviews.Warn(c.Chat().ID, target.ID, h.reviewerOf(c)); err != nil {
		return c.Reply(reviewErrText(err))
	}
	return nil
}

func (h *BotHandlers) handleResetWarn(c telebot.Context) error {
	target := h.repliedTo(c)
	if target == nil {
		return nil
	}
	if err := h.reviews.ResetWarnings(c.Chat().ID, target.ID, h.reviewerOf(c)); err != nil {
		return c.Reply(reviewErrText(err))
	}
	return nil
}

func (h *BotHandlers) handleReviewHelp(c telebot.Context) error {
	if !h.isReviewGroup(c.Chat()) {
		return nil
	}
	return c.Reply(reviewHelpText)
}
