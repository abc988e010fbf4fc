package telegram

import (
	"strconv"

	"submission_bot/internal/domain/submission"
)

// Message is the minimal view of a sent message the core needs back from
// the transport.
type Message struct {
	ID     int
	ChatID int64
}

// Button is one inline keyboard button.
type Button struct {
	Text string
	Data string
}

// SendOptions mirrors the send parameters the core cares about. Nil is a
// valid value meaning defaults.
type SendOptions struct {
	// ReplyTo anchors the message as a reply within the destination chat.
	ReplyTo int
	// BestEffortReply sends anyway when the reply target is gone.
	BestEffortReply bool
	HTML            bool
	NoWebPreview    bool
	Keyboard        [][]Button
}

// Client is the transport collaborator contract. It decouples the core
// from the bot library; all errors it returns are transport errors and
// are handled locally at call sites, never propagated as crashes.
type Client interface {
	SendMessage(dest string, text string, opts *SendOptions) (*Message, error)
	// SendContent re-emits a single submission payload with the given
	// caption, choosing the type-specific send from c.Kind. Stickers
	// ignore the caption; callers handle the follow-up themselves.
	SendContent(dest string, c submission.Content, caption string, opts *SendOptions) (*Message, error)
	// SendAlbum sends the items as one grouped send; the caption is
	// carried by the first item only.
	SendAlbum(dest string, items []submission.MediaItem, caption string, html bool) ([]Message, error)
	EditMessageText(dest string, messageID int, text string, opts *SendOptions) (*Message, error)
	// Forward copies a message preserving Telegram's forward header and
	// reports the provenance observed on the forwarded copy, if any.
	Forward(dest string, fromChatID int64, messageID int) (*Message, *submission.ForwardOrigin, error)
}

// Dest formats a chat or user id as a transport destination. Channel
// usernames ("@name") are already valid destinations as-is.
func Dest(id int64) string {
	return strconv.FormatInt(id, 10)
}
