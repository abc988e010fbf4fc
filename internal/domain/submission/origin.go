package submission

// OriginType tags the variant of a forwarded message's provenance.
type OriginType string

const (
	OriginUser       OriginType = "user"
	OriginHiddenUser OriginType = "hidden_user"
	OriginChat       OriginType = "chat"
	OriginChannel    OriginType = "channel"
)

// ForwardOrigin is the provenance of forwarded content, captured when the
// submission itself was a forward. Only the fields for the tagged variant
// are populated; rendering sites must switch on Type exhaustively and
// degrade gracefully on unknown variants.
type ForwardOrigin struct {
	Type OriginType `json:"type"`

	// user / hidden_user
	SenderUserID   int64  `json:"sender_user_id,omitempty"`
	SenderUserName string `json:"sender_user_name,omitempty"`

	// chat
	SenderChatID       int64  `json:"sender_chat_id,omitempty"`
	SenderChatTitle    string `json:"sender_chat_title,omitempty"`
	SenderChatUsername string `json:"sender_chat_username,omitempty"`

	// channel
	ChatID       int64  `json:"chat_id,omitempty"`
	ChatTitle    string `json:"chat_title,omitempty"`
	ChatUsername string `json:"chat_username,omitempty"`
	MessageID    int    `json:"origin_message_id,omitempty"`
}

// ForcesAttribution reports whether this origin removes the submitter's
// anonymous option: content from a chat or channel, or from a user other
// than the submitter, must be published attributed.
func (o *ForwardOrigin) ForcesAttribution(submitterID int64) bool {
	if o == nil {
		return false
	}
	switch o.Type {
	case OriginChat, OriginChannel:
		return true
	case OriginUser:
		return o.SenderUserID != submitterID
	default:
		return false
	}
}
