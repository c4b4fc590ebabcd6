// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/google/uuid"

	"github.com/danielhkuo/votechain/errs"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Source tells who initiated the change being reported.
type Source string

const (
	SourceUser   Source = "user"
	SourceWallet Source = "wallet"
	SourceSystem Source = "system"
)

// DefaultRecent is how many notifications a Feed keeps when no limit is given.
const DefaultRecent = 50

// Notification is one user-facing message.
type Notification struct {
	ID      string    `json:"id"`
	Level   Level     `json:"level"`
	Kind    errs.Kind `json:"kind,omitempty"`
	Message string    `json:"message"`
	Source  Source    `json:"source"`
	At      time.Time `json:"at"`
}

// Notifier receives user-facing messages.
type Notifier interface {
	Notify(n Notification)
}

// Success builds a success notification for a user-initiated action.
func Success(message string) Notification {
	return Notification{Level: LevelSuccess, Message: message, Source: SourceUser}
}

// Failure builds an error notification from a categorized error. The message
// reads "<prefix> because <reason>" when prefix is set.
func Failure(source Source, prefix string, err error) Notification {
	kind := errs.KindOf(err)
	reason := errs.ReasonOf(err)
	if reason == "" {
		reason = kind.Label()
	}
	msg := reason
	if prefix != "" {
		msg = prefix + " because " + reason
	}
	return Notification{Level: LevelError, Kind: kind, Message: msg, Source: source}
}

// Feed fans notifications out to subscribers, keeps the most recent ones and
// logs each of them.
type Feed struct {
	limit int
	now   func() time.Time

	mu     sync.Mutex
	recent []Notification
	feed   event.Feed
}

func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = DefaultRecent
	}
	return &Feed{limit: limit, now: time.Now}
}

func (f *Feed) Notify(n Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.At.IsZero() {
		n.At = f.now()
	}
	if n.Source == "" {
		n.Source = SourceSystem
	}

	attrs := []any{"id", n.ID, "source", n.Source, "message", n.Message}
	if n.Kind != "" {
		attrs = append(attrs, "kind", n.Kind)
	}
	switch n.Level {
	case LevelError:
		slog.Error("notification", attrs...)
	case LevelWarning:
		slog.Warn("notification", attrs...)
	default:
		slog.Info("notification", attrs...)
	}

	f.mu.Lock()
	f.recent = append(f.recent, n)
	if len(f.recent) > f.limit {
		f.recent = append([]Notification(nil), f.recent[len(f.recent)-f.limit:]...)
	}
	f.mu.Unlock()

	f.feed.Send(n)
}

// Recent returns the kept notifications, newest first.
func (f *Feed) Recent() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Notification, len(f.recent))
	for i, n := range f.recent {
		out[len(f.recent)-1-i] = n
	}
	return out
}

// Subscribe delivers every later notification to ch. Send blocks until each
// subscriber has received, so ch should be buffered or drained.
func (f *Feed) Subscribe(ch chan<- Notification) event.Subscription {
	return f.feed.Subscribe(ch)
}
