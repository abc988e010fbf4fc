package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"submission_bot/internal/app"

	"gopkg.in/telebot.v3"
)

const startText = `Hi! Send me a text, photo, video or album and I will pass it to the editors for review.
If they approve it, it gets published to the channel. You choose whether your submission carries your name or stays anonymous.`

const helpText = `Send me anything you want published: text, photos, videos, albums, stickers and more.
After you send it, pick "Keep source" or "Send anonymously". Forwarded posts keep their original source.
You will be notified here once the editors decide.`

func (h *BotHandlers) isAdmin(c telebot.Context) bool {
	return c.Sender() != nil && c.Sender().ID == h.cfg.AdminID()
}

func (h *BotHandlers) handleStart(c telebot.Context) error {
	if !c.Message().Private() {
		return nil
	}
	return c.Send(startText)
}

const adminHelpText = `

Admin commands:
/status - pending count, blocklist size, current config
/setgroup - run inside the review group to bind it
/setchannel @name - set the publish channel
/setchatlink <url> - set the footer chat link
/togglefooter - toggle the footer on published posts`

func (h *BotHandlers) handleHelp(c telebot.Context) error {
	if !c.Message().Private() {
		return nil
	}
	if h.isAdmin(c) {
		return c.Send(helpText + adminHelpText)
	}
	return c.Send(helpText)
}

func (h *BotHandlers) handleVersion(c telebot.Context) error {
	return c.Send("submission_bot " + app.Version)
}

func (h *BotHandlers) handleAbout(c telebot.Context) error {
	return c.Send("A submission relay bot: private submissions, group review, channel publishing.\nVersion " + app.Version)
}

func (h *BotHandlers) handleStatus(c telebot.Context) error {
	if !h.isAdmin(c) {
		return nil
	}
	group := "not set"
	if id := h.cfg.GroupID(); id != 0 {
		group = strconv.FormatInt(id, 10)
	}
	channel := h.cfg.PublishChannel()
	if channel == "" {
		channel = "not set"
	}
	footer := "off"
	if h.cfg.FooterEnabled() {
		footer = "on"
	}
	return c.Send(fmt.Sprintf(
		"Pending submissions: %d\nBlocked users: %d\nReview group: %s\nPublish channel: %s\nFooter: %s",
		h.reviews.PendingCount(), h.cfg.BlockedCount(), group, channel, footer))
}

// handleSetGroup binds the chat it is issued in as the review group.
func (h *BotHandlers) handleSetGroup(c telebot.Context) error {
	if !h.isAdmin(c) {
		return nil
	}
	chat := c.Chat()
	if chat == nil || chat.Type == telebot.ChatPrivate {
		return c.Send("Run /setgroup inside the group that should receive submissions.")
	}
	h.cfg.SetGroupID(chat.ID)
	h.cfg.Save()
	h.log.WithField("group_id", chat.ID).Info("Review group configured")
	return c.Send("✅ This group now receives submissions for review.")
}

// handleSetChannel sets the publish destination, accepting "@username"
// or a numeric chat id. Usernames are resolved once to catch typos.
func (h *BotHandlers) handleSetChannel(c telebot.Context) error {
	if !h.isAdmin(c) {
		return nil
	}
	dest := strings.TrimSpace(c.Message().Payload)
	if dest == "" {
		return c.Send("Usage: /setchannel @channelname or /setchannel -100xxxxxxxxxx")
	}
	if strings.HasPrefix(dest, "@") {
		if _, err := h.bot.ChatByUsername(dest); err != nil {
			return c.Send("I cannot see that channel. Add me to it first, then retry.")
		}
	} else if _, err := strconv.ParseInt(dest, 10, 64); err != nil {
		return c.Send("That does not look like a channel. Use @channelname or a numeric chat id.")
	}
	h.cfg.SetPublishChannel(dest)
	h.cfg.Save()
	h.log.WithField("channel", dest).Info("Publish channel configured")
	return c.Send("✅ Publish channel set to " + dest)
}

func (h *BotHandlers) handleSetChatLink(c telebot.Context) error {
	if !h.isAdmin(c) {
		return nil
	}
	link := strings.TrimSpace(c.Message().Payload)
	if link == "" {
		return c.Send("Usage: /setchatlink https://t.me/yourchat")
	}
	h.cfg.SetChatLink(link)
	h.cfg.Save()
	return c.Send("✅ Footer chat link updated.")
}

func (h *BotHandlers) handleToggleFooter(c telebot.Context) error {
	if !h.isAdmin(c) {
		return nil
	}
	on := !h.cfg.FooterEnabled()
	h.cfg.SetFooterEnabled(on)
	h.cfg.Save()
	if on {
		return c.Send("✅ Footer enabled. Posts link to: " + h.cfg.ChatLink())
	}
	return c.Send("✅ Footer disabled.")
}
