package app

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"submission_bot/internal/domain/submission"
	tg "submission_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// fakeConfig implements ConfigStore in memory.
type fakeConfig struct {
	mu       sync.Mutex
	admin    int64
	group    int64
	channel  string
	chatLink string
	footer   bool
	blocked  map[int64]bool
	warnings map[int64]int
	saves    int
}

func newFakeConfig() *fakeConfig {
	return &fakeConfig{
		admin:    99,
		group:    -100200,
		channel:  "@testchannel",
		blocked:  make(map[int64]bool),
		warnings: make(map[int64]int),
	}
}

func (f *fakeConfig) AdminID() int64         { return f.admin }
func (f *fakeConfig) GroupID() int64         { return f.group }
func (f *fakeConfig) PublishChannel() string { return f.channel }
func (f *fakeConfig) ChatLink() string       { return f.chatLink }
func (f *fakeConfig) FooterEnabled() bool    { return f.footer }

func (f *fakeConfig) IsBlocked(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blocked[id]
}

func (f *fakeConfig) AddBlocked(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.blocked[id] {
		return false
	}
	f.blocked[id] = true
	return true
}

func (f *fakeConfig) RemoveBlocked(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.blocked[id] {
		return false
	}
	delete(f.blocked, id)
	return true
}

func (f *fakeConfig) WarningCount(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.warnings[id]
}

func (f *fakeConfig) IncrementWarning(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warnings[id]++
	return f.warnings[id]
}

func (f *fakeConfig) ResetWarnings(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	had := f.warnings[id] > 0
	delete(f.warnings, id)
	return had
}

func (f *fakeConfig) Save() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
}

// memRepo implements submission.Repository in memory.
type memRepo struct {
	mu      sync.Mutex
	records map[submission.Key]*submission.Record
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[submission.Key]*submission.Record)}
}

func (r *memRepo) Get(key submission.Key) (*submission.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok {
		return nil, submission.ErrNotFound
	}
	return rec.Clone(), nil
}

func (r *memRepo) Put(key submission.Key, rec *submission.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[key] = rec.Clone()
	return nil
}

func (r *memRepo) Remove(key submission.Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.records[key]
	delete(r.records, key)
	return ok
}

func (r *memRepo) CountPending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if !rec.Decided() {
			n++
		}
	}
	return n
}

func (r *memRepo) FindByBatchMember(groupID int64, messageID int) (submission.Key, *submission.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prefix := fmt.Sprintf("%d:", groupID)
	for key, rec := range r.records {
		if len(key) > len(prefix) && string(key)[:len(prefix)] == prefix && rec.HasBatchMember(messageID) {
			return key, rec.Clone(), nil
		}
	}
	return "", nil, submission.ErrNotFound
}

func (r *memRepo) Flush() error { return nil }

type sentMessage struct {
	Dest string
	Text string
	Opts *tg.SendOptions
	ID   int
}

type editedMessage struct {
	Dest      string
	MessageID int
	Text      string
}

// fakeClient records every outgoing transport call and can be told to
// fail.
type fakeClient struct {
	mu     sync.Mutex
	nextID int

	sent    []sentMessage
	edits   []editedMessage
	albums  [][]submission.MediaItem
	content []submission.Content

	sendErr    error
	editErr    error
	forwardErr error

	forwardOrigin *submission.ForwardOrigin
}

func newFakeClient() *fakeClient { return &fakeClient{nextID: 1000} }

func (f *fakeClient) id() int {
	f.nextID++
	return f.nextID
}

func destChatID(dest string) int64 {
	id, _ := strconv.ParseInt(dest, 10, 64)
	return id
}

func (f *fakeClient) SendMessage(dest string, text string, opts *tg.SendOptions) (*tg.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	id := f.id()
	f.sent = append(f.sent, sentMessage{Dest: dest, Text: text, Opts: opts, ID: id})
	return &tg.Message{ID: id, ChatID: destChatID(dest)}, nil
}

func (f *fakeClient) SendContent(dest string, c submission.Content, caption string, opts *tg.SendOptions) (*tg.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	id := f.id()
	f.content = append(f.content, c)
	f.sent = append(f.sent, sentMessage{Dest: dest, Text: caption, Opts: opts, ID: id})
	return &tg.Message{ID: id, ChatID: destChatID(dest)}, nil
}

func (f *fakeClient) SendAlbum(dest string, items []submission.MediaItem, caption string, html bool) ([]tg.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.albums = append(f.albums, items)
	out := make([]tg.Message, len(items))
	for i := range items {
		id := f.id()
		f.sent = append(f.sent, sentMessage{Dest: dest, Text: caption, ID: id})
		out[i] = tg.Message{ID: id, ChatID: destChatID(dest)}
	}
	return out, nil
}

func (f *fakeClient) EditMessageText(dest string, messageID int, text string, opts *tg.SendOptions) (*tg.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return nil, f.editErr
	}
	f.edits = append(f.edits, editedMessage{Dest: dest, MessageID: messageID, Text: text})
	return &tg.Message{ID: messageID, ChatID: destChatID(dest)}, nil
}

func (f *fakeClient) Forward(dest string, fromChatID int64, messageID int) (*tg.Message, *submission.ForwardOrigin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forwardErr != nil {
		return nil, nil, f.forwardErr
	}
	id := f.id()
	f.sent = append(f.sent, sentMessage{Dest: dest, Text: "<forward>", ID: id})
	return &tg.Message{ID: id, ChatID: destChatID(dest)}, f.forwardOrigin, nil
}

func (f *fakeClient) lastSent() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

func (f *fakeClient) sentTo(dest string) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.Dest == dest {
			out = append(out, m)
		}
	}
	return out
}
