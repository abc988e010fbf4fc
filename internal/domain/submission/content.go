package submission

// ContentKind is the payload type of a single (non-batch) submission,
// inspected by the publisher to pick the type-specific send.
type ContentKind string

const (
	ContentText        ContentKind = "text"
	ContentPhoto       ContentKind = "photo"
	ContentVideo       ContentKind = "video"
	ContentAnimation   ContentKind = "animation"
	ContentAudio       ContentKind = "audio"
	ContentDocument    ContentKind = "document"
	ContentVoice       ContentKind = "voice"
	ContentSticker     ContentKind = "sticker"
	ContentUnsupported ContentKind = "unsupported"
)

// Content is the republishable payload of the anchor message in the
// review group, extracted at decision time.
type Content struct {
	Kind    ContentKind
	Text    string
	Caption string
	FileID  string
	Spoiler bool
}

// Body returns the submitter-authored text of the content: the message
// text for text content, the caption otherwise.
func (c Content) Body() string {
	if c.Kind == ContentText {
		return c.Text
	}
	return c.Caption
}
