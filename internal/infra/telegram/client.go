package telegram

import (
	"fmt"
	"strconv"

	"submission_bot/internal/domain/submission"
	tg "submission_bot/internal/domain/telegram"

	"gopkg.in/telebot.v3"
)

// recipient lets a plain destination string ("@channel" or a decimal
// chat id) act as a telebot recipient without resolving it first.
type recipient string

func (r recipient) Recipient() string { return string(r) }

// TelebotAdapter implements the transport contract on top of
// gopkg.in/telebot.v3.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

func toSendOptions(opts *tg.SendOptions) *telebot.SendOptions {
	out := &telebot.SendOptions{}
	if opts == nil {
		return out
	}
	if opts.ReplyTo != 0 {
		out.ReplyTo = &telebot.Message{ID: opts.ReplyTo}
		out.AllowWithoutReply = opts.BestEffortReply
	}
	if opts.HTML {
		out.ParseMode = telebot.ModeHTML
	}
	out.DisableWebPagePreview = opts.NoWebPreview
	if len(opts.Keyboard) > 0 {
		rows := make([][]telebot.InlineButton, len(opts.Keyboard))
		for i, row := range opts.Keyboard {
			rows[i] = make([]telebot.InlineButton, len(row))
			for j, btn := range row {
				rows[i][j] = telebot.InlineButton{Text: btn.Text, Data: btn.Data}
			}
		}
		out.ReplyMarkup = &telebot.ReplyMarkup{InlineKeyboard: rows}
	}
	return out
}

func fromTelebot(m *telebot.Message) *tg.Message {
	if m == nil {
		return nil
	}
	out := &tg.Message{ID: m.ID}
	if m.Chat != nil {
		out.ChatID = m.Chat.ID
	}
	return out
}

func (a *TelebotAdapter) SendMessage(dest string, text string, opts *tg.SendOptions) (*tg.Message, error) {
	m, err := a.bot.Send(recipient(dest), text, toSendOptions(opts))
	if err != nil {
		return nil, err
	}
	return fromTelebot(m), nil
}

func (a *TelebotAdapter) SendContent(dest string, c submission.Content, caption string, opts *tg.SendOptions) (*tg.Message, error) {
	var what interface{}
	switch c.Kind {
	case submission.ContentText:
		what = caption
	case submission.ContentPhoto:
		what = &telebot.Photo{File: telebot.File{FileID: c.FileID}, Caption: caption}
	case submission.ContentVideo:
		what = &telebot.Video{File: telebot.File{FileID: c.FileID}, Caption: caption}
	case submission.ContentAnimation:
		what = &telebot.Animation{File: telebot.File{FileID: c.FileID}, Caption: caption}
	case submission.ContentAudio:
		what = &telebot.Audio{File: telebot.File{FileID: c.FileID}, Caption: caption}
	case submission.ContentDocument:
		what = &telebot.Document{File: telebot.File{FileID: c.FileID}, Caption: caption}
	case submission.ContentVoice:
		what = &telebot.Voice{File: telebot.File{FileID: c.FileID}, Caption: caption}
	case submission.ContentSticker:
		what = &telebot.Sticker{File: telebot.File{FileID: c.FileID}}
	default:
		return nil, fmt.Errorf("content kind %q cannot be sent", c.Kind)
	}
	m, err := a.bot.Send(recipient(dest), what, toSendOptions(opts))
	if err != nil {
		return nil, err
	}
	return fromTelebot(m), nil
}

func (a *TelebotAdapter) SendAlbum(dest string, items []submission.MediaItem, caption string, html bool) ([]tg.Message, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("empty album")
	}
	album := make(telebot.Album, 0, len(items))
	for i, it := range items {
		itemCaption := ""
		if i == 0 {
			itemCaption = caption
		}
		switch it.Type {
		case submission.MediaPhoto:
			album = append(album, &telebot.Photo{File: telebot.File{FileID: it.FileID}, Caption: itemCaption})
		case submission.MediaVideo:
			album = append(album, &telebot.Video{File: telebot.File{FileID: it.FileID}, Caption: itemCaption})
		default:
			return nil, fmt.Errorf("media type %q cannot join an album", it.Type)
		}
	}

	var sent []telebot.Message
	var err error
	if html {
		sent, err = a.bot.SendAlbum(recipient(dest), album, telebot.ModeHTML)
	} else {
		sent, err = a.bot.SendAlbum(recipient(dest), album)
	}
	if err != nil {
		return nil, err
	}
	out := make([]tg.Message, len(sent))
	for i := range sent {
		out[i] = *fromTelebot(&sent[i])
	}
	return out, nil
}

func (a *TelebotAdapter) EditMessageText(dest string, messageID int, text string, opts *tg.SendOptions) (*tg.Message, error) {
	chatID, err := strconv.ParseInt(dest, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("edit needs a numeric chat id, got %q: %w", dest, err)
	}
	ref := &telebot.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chatID}
	m, err := a.bot.Edit(ref, text, toSendOptions(opts))
	if err != nil {
		return nil, err
	}
	return fromTelebot(m), nil
}

func (a *TelebotAdapter) Forward(dest string, fromChatID int64, messageID int) (*tg.Message, *submission.ForwardOrigin, error) {
	ref := &telebot.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: fromChatID}
	m, err := a.bot.Forward(recipient(dest), ref)
	if err != nil {
		return nil, nil, err
	}
	return fromTelebot(m), originFromMessage(m), nil
}
