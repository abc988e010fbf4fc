package app

import (
	"fmt"
	"testing"

	"submission_bot/internal/domain/submission"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type intakeFixture struct {
	cfg    *fakeConfig
	repo   *memRepo
	client *fakeClient
	svc    *IntakeService
}

func newIntakeFixture() *intakeFixture {
	cfg := newFakeConfig()
	repo := newMemRepo()
	client := newFakeClient()
	return &intakeFixture{
		cfg:    cfg,
		repo:   repo,
		client: client,
		svc:    NewIntakeService(cfg, repo, client, testLog()),
	}
}

func TestHandleSingleOffersBothModes(t *testing.T) {
	f := newIntakeFixture()

	f.svc.HandleSingle(testSubmitter, "Sam", 55, nil)

	prompts := f.client.sentTo("7")
	require.Len(t, prompts, 1)
	require.NotNil(t, prompts[0].Opts)
	assert.Equal(t, 55, prompts[0].Opts.ReplyTo)

	kb := prompts[0].Opts.Keyboard
	require.Len(t, kb, 2)
	require.Len(t, kb[0], 2)
	assert.Equal(t, "attr:sm:55", kb[0][0].Data)
	assert.Equal(t, "anon:sm:55", kb[0][1].Data)
	assert.Equal(t, "cancel:sm:55", kb[1][0].Data)
}

func TestForwardedContentForcesAttribution(t *testing.T) {
	f := newIntakeFixture()
	origin := &submission.ForwardOrigin{Type: submission.OriginChannel, ChatID: -100123, ChatTitle: "Chan"}

	f.svc.HandleSingle(testSubmitter, "Sam", 55, origin)

	prompts := f.client.sentTo("7")
	require.Len(t, prompts, 1)
	kb := prompts[0].Opts.Keyboard
	require.Len(t, kb, 2)
	// No anonymous option is offered.
	require.Len(t, kb[0], 1)
	assert.Equal(t, "attr:sm:55", kb[0][0].Data)
	assert.Equal(t, "cancel:sm:55", kb[1][0].Data)
}

func TestBlockedSubmitterIsDroppedSilently(t *testing.T) {
	f := newIntakeFixture()
	f.cfg.AddBlocked(testSubmitter)

	f.svc.HandleSingle(testSubmitter, "Sam", 55, nil)
	f.svc.CollectBatchItem(testSubmitter, "Sam", "b1", item(55, submission.MediaPhoto), nil)

	assert.Empty(t, f.client.sent)
}

func TestConfirmSingleCreatesPendingRecord(t *testing.T) {
	f := newIntakeFixture()
	f.client.forwardOrigin = &submission.ForwardOrigin{
		Type: submission.OriginUser, SenderUserID: 11, SenderUserName: "Orig",
	}

	err := f.svc.ConfirmSingle(testSubmitter, "Sam", submission.KindAttributed, 55, 200)
	require.NoError(t, err)

	// The forward landed in the review group and anchors the record.
	groupMsgs := f.client.sentTo("-100200")
	require.Len(t, groupMsgs, 2)
	anchorID := groupMsgs[0].ID

	rec, gerr := f.repo.Get(submission.MakeKey(testGroupID, anchorID))
	require.NoError(t, gerr)
	assert.Equal(t, submission.KindAttributed, rec.Kind)
	assert.Equal(t, testSubmitter, rec.SubmitterID)
	assert.Equal(t, 55, rec.OriginMessageID)
	assert.False(t, rec.Decided())
	require.NotNil(t, rec.ForwardOrigin)
	assert.Equal(t, int64(11), rec.ForwardOrigin.SenderUserID)

	// The decision prompt replies to the anchor and carries the matching
	// approve button.
	prompt := groupMsgs[1]
	require.NotNil(t, prompt.Opts)
	assert.Equal(t, anchorID, prompt.Opts.ReplyTo)
	require.Len(t, prompt.Opts.Keyboard, 2)
	assert.Equal(t, CallbackApproveAttributed, prompt.Opts.Keyboard[0][0].Data)
	assert.Equal(t, CallbackReject, prompt.Opts.Keyboard[1][0].Data)
	assert.Equal(t, prompt.ID, rec.ReviewPromptID)

	// The submitter's choice prompt turned into a confirmation.
	require.Len(t, f.client.edits, 1)
	assert.Equal(t, 200, f.client.edits[0].MessageID)
	assert.Contains(t, f.client.edits[0].Text, "review")
}

func TestConfirmSingleAnonymousButton(t *testing.T) {
	f := newIntakeFixture()

	require.NoError(t, f.svc.ConfirmSingle(testSubmitter, "Sam", submission.KindAnonymous, 55, 200))

	groupMsgs := f.client.sentTo("-100200")
	require.Len(t, groupMsgs, 2)
	assert.Equal(t, CallbackApproveAnonymous, groupMsgs[1].Opts.Keyboard[0][0].Data)
}

func TestConfirmSingleForwardFailure(t *testing.T) {
	f := newIntakeFixture()
	f.client.forwardErr = assert.AnError

	err := f.svc.ConfirmSingle(testSubmitter, "Sam", submission.KindAttributed, 55, 200)
	require.Error(t, err)

	assert.Equal(t, 0, f.repo.CountPending())
	require.Len(t, f.client.edits, 1)
	assert.Contains(t, f.client.edits[0].Text, "could not be forwarded")
}

func TestPromptSendFailureKeepsSubmission(t *testing.T) {
	f := newIntakeFixture()
	f.client.sendErr = assert.AnError

	err := f.svc.ConfirmSingle(testSubmitter, "Sam", submission.KindAttributed, 55, 200)
	require.NoError(t, err)

	// The record exists, flagged for markup recovery at decision time.
	assert.Equal(t, 1, f.repo.CountPending())
	var stored *submission.Record
	for anchor := 1000; anchor < 1010; anchor++ {
		if rec, gerr := f.repo.Get(submission.MakeKey(testGroupID, anchor)); gerr == nil {
			stored = rec
			break
		}
	}
	require.NotNil(t, stored)
	assert.True(t, stored.PendingMarkup)
	assert.Zero(t, stored.ReviewPromptID)
}

func TestFinalizedBatchAwaitsChoiceThenConfirms(t *testing.T) {
	f := newIntakeFixture()

	b := &Batch{
		ChatID:        testSubmitter,
		BatchID:       "777",
		SubmitterID:   testSubmitter,
		SubmitterName: "Sam",
		Items: []submission.MediaItem{
			{MessageID: 60, Type: submission.MediaPhoto, FileID: "p1", Caption: "cap"},
			{MessageID: 61, Type: submission.MediaVideo, FileID: "v1"},
		},
	}
	f.svc.finalizeBatch(b)

	prompts := f.client.sentTo("7")
	require.Len(t, prompts, 1)
	kb := prompts[0].Opts.Keyboard
	require.Len(t, kb[0], 2)
	assert.Equal(t, fmt.Sprintf("attr:mg:777:%d", 60), kb[0][0].Data)

	err := f.svc.ConfirmBatch(testSubmitter, "Sam", submission.KindAnonymous, "777", prompts[0].ID)
	require.NoError(t, err)

	require.Len(t, f.client.albums, 1)
	assert.Len(t, f.client.albums[0], 2)

	groupMsgs := f.client.sentTo("-100200")
	require.Len(t, groupMsgs, 3) // two album members plus the decision prompt
	anchorID := groupMsgs[0].ID

	rec, gerr := f.repo.Get(submission.MakeKey(testGroupID, anchorID))
	require.NoError(t, gerr)
	assert.True(t, rec.IsBatch)
	assert.Equal(t, []int{groupMsgs[0].ID, groupMsgs[1].ID}, rec.BatchMessageIDs)
	assert.Equal(t, 60, rec.OriginMessageID)
}

func TestConfirmBatchAfterExpiryIsRefused(t *testing.T) {
	f := newIntakeFixture()

	err := f.svc.ConfirmBatch(testSubmitter, "Sam", submission.KindAttributed, "777", 300)
	assert.ErrorIs(t, err, ErrNoSubmission)

	require.Len(t, f.client.edits, 1)
	assert.Contains(t, f.client.edits[0].Text, "expired")
}

func TestBatchWithoutUsableMediaIsAborted(t *testing.T) {
	f := newIntakeFixture()

	b := &Batch{
		ChatID:      testSubmitter,
		BatchID:     "777",
		SubmitterID: testSubmitter,
		Items: []submission.MediaItem{
			{MessageID: 60, Type: submission.MediaUnsupported},
		},
	}
	f.svc.finalizeBatch(b)

	prompts := f.client.sentTo("7")
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0].Text, "no photos or videos")
	assert.Nil(t, prompts[0].Opts.Keyboard)

	// Nothing reached the review group and no record was created.
	assert.Empty(t, f.client.sentTo("-100200"))
	assert.Equal(t, 0, f.repo.CountPending())
}

func TestCancelDiscardsBatch(t *testing.T) {
	f := newIntakeFixture()
	b := &Batch{
		ChatID:      testSubmitter,
		BatchID:     "777",
		SubmitterID: testSubmitter,
		Items:       []submission.MediaItem{{MessageID: 60, Type: submission.MediaPhoto, FileID: "p1"}},
	}
	f.svc.finalizeBatch(b)
	prompts := f.client.sentTo("7")
	require.Len(t, prompts, 1)

	f.svc.Cancel(testSubmitter, prompts[0].ID, true)

	err := f.svc.ConfirmBatch(testSubmitter, "Sam", submission.KindAttributed, "777", prompts[0].ID)
	assert.ErrorIs(t, err, ErrNoSubmission)
}
