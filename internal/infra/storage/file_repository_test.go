package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"submission_bot/internal/domain/submission"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func sampleRecord() *submission.Record {
	return &submission.Record{
		Kind:            submission.KindAttributed,
		SubmitterID:     7,
		SubmitterName:   "Sam",
		OriginMessageID: 55,
		ReviewPromptID:  600,
		Outcome:         submission.OutcomePending,
	}
}

func TestFileRepositoryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")

	repo := NewFileRepository(path, testLog())
	key := submission.MakeKey(-100200, 500)
	require.NoError(t, repo.Put(key, sampleRecord()))
	require.NoError(t, repo.Flush())
	require.NoError(t, repo.Close())

	reloaded := NewFileRepository(path, testLog())
	defer reloaded.Close()
	rec, err := reloaded.Get(key)
	require.NoError(t, err)
	assert.Equal(t, submission.KindAttributed, rec.Kind)
	assert.Equal(t, int64(7), rec.SubmitterID)
	assert.Equal(t, 600, rec.ReviewPromptID)
	assert.Equal(t, submission.OutcomePending, rec.Outcome)
}

func TestFileRepositoryMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.json")
	repo := NewFileRepository(path, testLog())
	defer repo.Close()

	_, err := repo.Get(submission.MakeKey(-100200, 500))
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
	assert.Equal(t, 0, repo.CountPending())
}

func TestFileRepositoryMalformedFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	repo := NewFileRepository(path, testLog())
	defer repo.Close()
	assert.Equal(t, 0, repo.CountPending())

	// The store is still usable and overwrites the bad file on flush.
	key := submission.MakeKey(-100200, 500)
	require.NoError(t, repo.Put(key, sampleRecord()))
	require.NoError(t, repo.Flush())

	reloaded := NewFileRepository(path, testLog())
	defer reloaded.Close()
	_, err := reloaded.Get(key)
	assert.NoError(t, err)
}

func TestFileRepositoryReturnsCopies(t *testing.T) {
	repo := NewFileRepository(filepath.Join(t.TempDir(), "data.json"), testLog())
	defer repo.Close()

	key := submission.MakeKey(-100200, 500)
	original := sampleRecord()
	require.NoError(t, repo.Put(key, original))

	// Mutating what we put in or got out must not touch the store.
	original.SubmitterName = "changed"
	got, err := repo.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "Sam", got.SubmitterName)

	got.Outcome = submission.OutcomeRejected
	again, err := repo.Get(key)
	require.NoError(t, err)
	assert.Equal(t, submission.OutcomePending, again.Outcome)
}

func TestFindByBatchMember(t *testing.T) {
	repo := NewFileRepository(filepath.Join(t.TempDir(), "data.json"), testLog())
	defer repo.Close()

	rec := sampleRecord()
	rec.IsBatch = true
	rec.BatchMessageIDs = []int{500, 501, 502}
	key := submission.MakeKey(-100200, 500)
	require.NoError(t, repo.Put(key, rec))

	foundKey, found, err := repo.FindByBatchMember(-100200, 502)
	require.NoError(t, err)
	assert.Equal(t, key, foundKey)
	assert.True(t, found.IsBatch)

	// Same message id in a different group does not match.
	_, _, err = repo.FindByBatchMember(-100999, 502)
	assert.ErrorIs(t, err, ErrSubmissionNotFound)

	_, _, err = repo.FindByBatchMember(-100200, 999)
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestCountPendingSkipsDecided(t *testing.T) {
	repo := NewFileRepository(filepath.Join(t.TempDir(), "data.json"), testLog())
	defer repo.Close()

	require.NoError(t, repo.Put(submission.MakeKey(-100200, 1), sampleRecord()))

	decided := sampleRecord()
	decided.Outcome = submission.OutcomeRejected
	decided.StatusDetail = submission.StatusRejected
	require.NoError(t, repo.Put(submission.MakeKey(-100200, 2), decided))

	assert.Equal(t, 1, repo.CountPending())
}

func TestRemoveReportsExistence(t *testing.T) {
	repo := NewFileRepository(filepath.Join(t.TempDir(), "data.json"), testLog())
	defer repo.Close()

	key := submission.MakeKey(-100200, 500)
	require.NoError(t, repo.Put(key, sampleRecord()))

	assert.True(t, repo.Remove(key))
	assert.False(t, repo.Remove(key))
	_, err := repo.Get(key)
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestSnapshotWriterCoalescesAndWritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snap.json")

	payload := []byte(`{"v":1}`)
	w := NewSnapshotWriter(path, func() ([]byte, error) { return payload, nil }, testLog())

	for i := 0; i < 100; i++ {
		w.Kick()
	}
	require.NoError(t, w.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	require.NoError(t, w.Close())

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, "snap.json", e.Name())
	}
}
