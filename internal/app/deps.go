package app

import (
	"errors"
	"fmt"
	"html"
)

// Version reported by /version and the boot notice.
const Version = "1.4.2"

// ConfigStore is the configuration collaborator the core depends on.
// Mutations change memory; Save triggers fire-and-forget persistence.
type ConfigStore interface {
	AdminID() int64
	GroupID() int64
	PublishChannel() string
	ChatLink() string
	FooterEnabled() bool
	IsBlocked(userID int64) bool
	AddBlocked(userID int64) bool
	RemoveBlocked(userID int64) bool
	WarningCount(userID int64) int
	IncrementWarning(userID int64) int
	ResetWarnings(userID int64) bool
	Save()
}

// Resolution and permission errors. All are reported to the actor and
// are non-fatal; none of them changes submission state.
var (
	ErrNoSubmission     = errors.New("no matching submission")
	ErrSubmitterBlocked = errors.New("submitter is blocked")
	ErrKindMismatch     = errors.New("button kind does not match the submission")
	ErrNoSession        = errors.New("no active reply session")
	ErrGroupNotSet      = errors.New("review group is not configured")
	ErrChannelNotSet    = errors.New("publish channel is not configured")
)

// AlreadyDecidedError means the submission already reached a terminal
// outcome; further approve/reject actions are idempotent no-ops.
type AlreadyDecidedError struct {
	Status string
}

func (e *AlreadyDecidedError) Error() string {
	return fmt.Sprintf("submission already processed (state: %s)", e.Status)
}

func userLink(id int64, name string) string {
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, id, html.EscapeString(name))
}
