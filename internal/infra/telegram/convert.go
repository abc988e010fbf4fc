package telegram

import (
	"strings"

	"submission_bot/internal/domain/submission"

	"gopkg.in/telebot.v3"
)

func displayName(u *telebot.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		name = u.Username
	}
	return name
}

// originFromMessage maps telebot's forward header onto the provenance
// variants. Nil means the message was not a forward.
func originFromMessage(m *telebot.Message) *submission.ForwardOrigin {
	if m == nil {
		return nil
	}
	switch {
	case m.OriginalChat != nil && m.OriginalChat.Type == telebot.ChatChannel:
		return &submission.ForwardOrigin{
			Type:         submission.OriginChannel,
			ChatID:       m.OriginalChat.ID,
			ChatTitle:    m.OriginalChat.Title,
			ChatUsername: m.OriginalChat.Username,
			MessageID:    m.OriginalMessageID,
		}
	case m.OriginalChat != nil:
		return &submission.ForwardOrigin{
			Type:               submission.OriginChat,
			SenderChatID:       m.OriginalChat.ID,
			SenderChatTitle:    m.OriginalChat.Title,
			SenderChatUsername: m.OriginalChat.Username,
		}
	case m.OriginalSender != nil:
		return &submission.ForwardOrigin{
			Type:           submission.OriginUser,
			SenderUserID:   m.OriginalSender.ID,
			SenderUserName: displayName(m.OriginalSender),
		}
	case m.OriginalSenderName != "":
		return &submission.ForwardOrigin{
			Type:           submission.OriginHiddenUser,
			SenderUserName: m.OriginalSenderName,
		}
	default:
		return nil
	}
}

// contentFromMessage extracts the republishable payload of a message.
func contentFromMessage(m *telebot.Message) submission.Content {
	switch {
	case m.Photo != nil:
		return submission.Content{Kind: submission.ContentPhoto, FileID: m.Photo.FileID, Caption: m.Caption}
	case m.Video != nil:
		return submission.Content{Kind: submission.ContentVideo, FileID: m.Video.FileID, Caption: m.Caption}
	case m.Animation != nil:
		return submission.Content{Kind: submission.ContentAnimation, FileID: m.Animation.FileID, Caption: m.Caption}
	case m.Audio != nil:
		return submission.Content{Kind: submission.ContentAudio, FileID: m.Audio.FileID, Caption: m.Caption}
	case m.Voice != nil:
		return submission.Content{Kind: submission.ContentVoice, FileID: m.Voice.FileID, Caption: m.Caption}
	case m.Document != nil:
		return submission.Content{Kind: submission.ContentDocument, FileID: m.Document.FileID, Caption: m.Caption}
	case m.Sticker != nil:
		return submission.Content{Kind: submission.ContentSticker, FileID: m.Sticker.FileID}
	case m.Text != "":
		return submission.Content{Kind: submission.ContentText, Text: m.Text}
	default:
		return submission.Content{Kind: submission.ContentUnsupported}
	}
}

// mediaItemFromMessage extracts one album member. Anything that is not a
// photo or video is recorded as unsupported so the batch keeps its true
// size.
func mediaItemFromMessage(m *telebot.Message) submission.MediaItem {
	item := submission.MediaItem{MessageID: m.ID, Caption: m.Caption}
	switch {
	case m.Photo != nil:
		item.Type = submission.MediaPhoto
		item.FileID = m.Photo.FileID
	case m.Video != nil:
		item.Type = submission.MediaVideo
		item.FileID = m.Video.FileID
	default:
		item.Type = submission.MediaUnsupported
	}
	return item
}
