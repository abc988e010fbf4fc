package app

import (
	"testing"

	"submission_bot/internal/domain/submission"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributionLinkVariants(t *testing.T) {
	base := &submission.Record{SubmitterID: 7, SubmitterName: "Sam <s>"}

	tests := []struct {
		name   string
		origin *submission.ForwardOrigin
		want   string
	}{
		{
			name:   "own content credits the submitter",
			origin: nil,
			want:   `<a href="tg://user?id=7">Sam &lt;s&gt;</a>`,
		},
		{
			name: "forwarded from another user",
			origin: &submission.ForwardOrigin{
				Type: submission.OriginUser, SenderUserID: 11, SenderUserName: "Orig",
			},
			want: `<a href="tg://user?id=11">Orig</a>`,
		},
		{
			name: "hidden user renders plain text",
			origin: &submission.ForwardOrigin{
				Type: submission.OriginHiddenUser, SenderUserName: "Hidden & Co",
			},
			want: "Hidden &amp; Co",
		},
		{
			name: "public group links by username",
			origin: &submission.ForwardOrigin{
				Type: submission.OriginChat, SenderChatUsername: "somegroup", SenderChatTitle: "Some Group",
			},
			want: `<a href="https://t.me/somegroup">Some Group</a>`,
		},
		{
			name: "private group renders title only",
			origin: &submission.ForwardOrigin{
				Type: submission.OriginChat, SenderChatTitle: "Secret Group",
			},
			want: "group: Secret Group",
		},
		{
			name: "public channel links to the post",
			origin: &submission.ForwardOrigin{
				Type: submission.OriginChannel, ChatUsername: "chan", ChatTitle: "Chan", MessageID: 33,
			},
			want: `<a href="https://t.me/chan/33">Chan</a>`,
		},
		{
			name: "private channel uses the internal link form",
			origin: &submission.ForwardOrigin{
				Type: submission.OriginChannel, ChatID: -1001234567, ChatTitle: "Chan", MessageID: 33,
			},
			want: `<a href="https://t.me/c/1234567/33">Chan</a>`,
		},
		{
			name:   "unknown variant renders nothing",
			origin: &submission.ForwardOrigin{Type: "something_new"},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := *base
			rec.ForwardOrigin = tt.origin
			assert.Equal(t, tt.want, attributionLink(&rec))
		})
	}
}

func TestPublishAppendsCommentAndFooter(t *testing.T) {
	f := newReviewFixture()
	f.cfg.footer = true
	f.cfg.chatLink = "https://t.me/ourchat"
	f.seed(500, pendingRecord(submission.KindAnonymous))

	err := f.svc.Approve(testGroupID, 500, textContent("body"), testReviewer, "nice <find>")
	require.NoError(t, err)

	posts := f.client.sentTo("@testchannel")
	require.Len(t, posts, 1)
	assert.Contains(t, posts[0].Text, "body")
	assert.Contains(t, posts[0].Text, "<b>Editor (Rita):</b> nice &lt;find&gt;")
	assert.Contains(t, posts[0].Text, `<a href="https://t.me/ourchat">`)
}

func TestPublishFailureIsTerminal(t *testing.T) {
	f := newReviewFixture()
	key := f.seed(500, pendingRecord(submission.KindAttributed))
	f.client.sendErr = assert.AnError

	err := f.svc.Approve(testGroupID, 500, textContent("body"), testReviewer, "")
	require.Error(t, err)

	rec, gerr := f.repo.Get(key)
	require.NoError(t, gerr)
	assert.Equal(t, submission.StatusFailedPosting, rec.StatusDetail)
	assert.True(t, rec.Decided())

	// The failure is final: a retry is refused as already processed.
	f.client.sendErr = nil
	err = f.svc.Approve(testGroupID, 500, textContent("body"), testReviewer, "")
	var decided *AlreadyDecidedError
	require.ErrorAs(t, err, &decided)
	assert.Equal(t, submission.StatusFailedPosting, decided.Status)
}

func TestPublishWithoutChannelIsRefused(t *testing.T) {
	f := newReviewFixture()
	f.cfg.channel = ""
	key := f.seed(500, pendingRecord(submission.KindAttributed))

	err := f.svc.Approve(testGroupID, 500, textContent("body"), testReviewer, "")
	assert.ErrorIs(t, err, ErrChannelNotSet)

	// Refusal leaves the submission pending for a later attempt.
	rec, _ := f.repo.Get(key)
	assert.False(t, rec.Decided())
}

func TestPublishBatchSendsUsableItemsWithCaption(t *testing.T) {
	f := newReviewFixture()
	rec := pendingRecord(submission.KindAnonymous)
	rec.IsBatch = true
	rec.Items = []submission.MediaItem{
		{MessageID: 1, Type: submission.MediaPhoto, FileID: "p1", Caption: "first caption"},
		{MessageID: 2, Type: submission.MediaUnsupported},
		{MessageID: 3, Type: submission.MediaVideo, FileID: "v1"},
	}
	rec.BatchMessageIDs = []int{500, 501, 502}
	f.seed(500, rec)

	require.NoError(t, f.svc.Approve(testGroupID, 500, submission.Content{}, testReviewer, ""))

	require.Len(t, f.client.albums, 1)
	require.Len(t, f.client.albums[0], 2)
	assert.Equal(t, "p1", f.client.albums[0][0].FileID)
	assert.Equal(t, "v1", f.client.albums[0][1].FileID)

	posts := f.client.sentTo("@testchannel")
	require.NotEmpty(t, posts)
	assert.Contains(t, posts[0].Text, "first caption")
}

func TestPublishStickerSendsCaptionAsFollowUp(t *testing.T) {
	f := newReviewFixture()
	f.seed(500, pendingRecord(submission.KindAnonymous))

	content := submission.Content{Kind: submission.ContentSticker, FileID: "stk", Caption: "look at this"}
	require.NoError(t, f.svc.Approve(testGroupID, 500, content, testReviewer, ""))

	require.Len(t, f.client.content, 1)
	assert.Equal(t, submission.ContentSticker, f.client.content[0].Kind)

	posts := f.client.sentTo("@testchannel")
	require.Len(t, posts, 2)
	assert.Contains(t, posts[1].Text, "[About this sticker]")
	assert.Contains(t, posts[1].Text, "look at this")
	require.NotNil(t, posts[1].Opts)
	assert.Equal(t, posts[0].ID, posts[1].Opts.ReplyTo)
}

func TestStatusFallsBackToFreshMessageWhenPromptLost(t *testing.T) {
	f := newReviewFixture()
	rec := pendingRecord(submission.KindAttributed)
	rec.ReviewPromptID = 0
	rec.PendingMarkup = true
	f.seed(500, rec)

	require.NoError(t, f.svc.Approve(testGroupID, 500, textContent("body"), testReviewer, ""))

	assert.Empty(t, f.client.edits)
	groupMsgs := f.client.sentTo("-100200")
	require.NotEmpty(t, groupMsgs)
	found := false
	for _, m := range groupMsgs {
		if m.Opts != nil && m.Opts.ReplyTo == 500 {
			found = true
		}
	}
	assert.True(t, found, "status summary should reply to the anchor")
}

func TestPostLinkForms(t *testing.T) {
	assert.Equal(t, "https://t.me/chan/12", postLink("@chan", 12))
	assert.Equal(t, "https://t.me/c/987/12", postLink("-100987", 12))
	assert.Equal(t, "", postLink("12345", 12))
	assert.Equal(t, "", postLink("@chan", 0))
}
