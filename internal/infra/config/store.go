package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"

	"submission_bot/internal/infra/storage"

	"github.com/sirupsen/logrus"
)

// TokenPlaceholder is written into the materialized default config; the
// bot refuses to start until it is replaced.
const TokenPlaceholder = "YOUR_BOT_TOKEN"

// ErrFirstRun signals that no config file existed; a default template was
// materialized and the operator must fill it in before the bot will run.
var ErrFirstRun = fmt.Errorf("config file created, fill in Token and Admin before restarting")

// fileSchema is the on-disk shape of the bot config.
type fileSchema struct {
	Token          string         `json:"Token"`
	Admin          int64          `json:"Admin"`
	GroupID        int64          `json:"Group_ID"`
	PublishChannel string         `json:"Publish_Channel_ID"`
	BlockedUsers   []int64        `json:"BlockedUsers"`
	Warnings       map[string]int `json:"Warnings,omitempty"`
	FooterEnabled  bool           `json:"FooterEnabled,omitempty"`
	ChatLink       string         `json:"ChatLink,omitempty"`
	BotID          int64          `json:"ID,omitempty"`
	BotUsername    string         `json:"Username,omitempty"`
}

// Store is the process-wide mutable bot configuration: identities of the
// admin, review group and publish channel, the blocklist and warning
// counters, and feature toggles. Mutations change memory only; callers
// trigger persistence explicitly with Save (fire-and-forget) and the
// whole file is rewritten, same strategy as the submission snapshot.
type Store struct {
	mu   sync.RWMutex
	data fileSchema

	writer *storage.SnapshotWriter
	log    *logrus.Entry
}

// LoadStore reads the config file at path. On first run it writes a
// default template and returns ErrFirstRun; a malformed file is a fatal
// error (unlike the data snapshot, running with empty config is useless).
func LoadStore(path string, log *logrus.Entry) (*Store, error) {
	s := &Store{log: log}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.data = fileSchema{
			Token:        TokenPlaceholder,
			BlockedUsers: []int64{},
			Warnings:     map[string]int{},
		}
		tpl, merr := json.MarshalIndent(s.data, "", "  ")
		if merr != nil {
			return nil, fmt.Errorf("marshal default config: %w", merr)
		}
		if werr := os.WriteFile(path, tpl, 0o600); werr != nil {
			return nil, fmt.Errorf("write default config %s: %w", path, werr)
		}
		log.WithField("path", path).Warn("Default config file created")
		return nil, ErrFirstRun
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("config %s is not valid JSON: %w", path, err)
	}
	if s.data.BlockedUsers == nil {
		s.data.BlockedUsers = []int64{}
	}
	if s.data.Warnings == nil {
		s.data.Warnings = map[string]int{}
	}

	s.writer = storage.NewSnapshotWriter(path, s.snapshot, log)
	return s, nil
}

// Validate checks the fields the bot cannot run without.
func (s *Store) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.Token == "" || s.data.Token == TokenPlaceholder {
		return fmt.Errorf("no valid 'Token' set in config")
	}
	if s.data.Admin == 0 {
		return fmt.Errorf("no valid 'Admin' user id set in config")
	}
	return nil
}

func (s *Store) snapshot() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.MarshalIndent(s.data, "", "  ")
}

// Save schedules a durable write of the current config.
func (s *Store) Save() { s.writer.Kick() }

// Close flushes the final config snapshot.
func (s *Store) Close() error { return s.writer.Close() }

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Token
}

func (s *Store) AdminID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Admin
}

func (s *Store) GroupID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GroupID
}

func (s *Store) SetGroupID(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.GroupID = id
}

// PublishChannel returns the publish destination: either "@username" or a
// numeric chat id in decimal form. Empty means unset.
func (s *Store) PublishChannel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.PublishChannel
}

func (s *Store) SetPublishChannel(dest string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.PublishChannel = dest
}

func (s *Store) ChatLink() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ChatLink
}

func (s *Store) SetChatLink(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.ChatLink = url
}

func (s *Store) FooterEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.FooterEnabled
}

func (s *Store) SetFooterEnabled(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.FooterEnabled = on
}

func (s *Store) BotIdentity() (int64, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.BotID, s.data.BotUsername
}

func (s *Store) SetBotIdentity(id int64, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.BotID = id
	s.data.BotUsername = username
}

func (s *Store) IsBlocked(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.data.BlockedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// AddBlocked adds userID to the blocklist, reporting whether the list
// changed.
func (s *Store) AddBlocked(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.data.BlockedUsers {
		if id == userID {
			return false
		}
	}
	s.data.BlockedUsers = append(s.data.BlockedUsers, userID)
	return true
}

// RemoveBlocked removes userID from the blocklist, reporting whether the
// list changed.
func (s *Store) RemoveBlocked(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, id := range s.data.BlockedUsers {
		if id == userID {
			s.data.BlockedUsers = append(s.data.BlockedUsers[:i], s.data.BlockedUsers[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Store) BlockedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.BlockedUsers)
}

func (s *Store) WarningCount(userID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Warnings[strconv.FormatInt(userID, 10)]
}

// IncrementWarning bumps the submitter's warning count and returns the
// new value.
func (s *Store) IncrementWarning(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strconv.FormatInt(userID, 10)
	s.data.Warnings[key]++
	return s.data.Warnings[key]
}

// ResetWarnings zeroes the submitter's warning count, reporting whether
// anything changed.
func (s *Store) ResetWarnings(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strconv.FormatInt(userID, 10)
	if s.data.Warnings[key] == 0 {
		delete(s.data.Warnings, key)
		return false
	}
	delete(s.data.Warnings, key)
	return true
}
