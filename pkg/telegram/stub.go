package telegram

import (
	"context"
	"errors"
	"sync"
)

// Stub is an in-memory gateway for tests and token-less development. It records
// outbound sends and answers membership from a configurable set.
type Stub struct {
	mu        sync.Mutex
	Messages  []StubMessage
	Documents []StubDocument
	// Members maps "chatID:userID" presence; when AllMembers is set every check
	// passes. FailOracle forces membership checks to error (fail-closed path).
	Members    map[string]map[int64]bool
	AllMembers bool
	FailOracle bool
	// FailSend forces SendDocument to fail, for delivery-failure paths.
	FailSend bool
}

type StubMessage struct {
	ChatID int64
	Text   string
	Markup interface{}
}

type StubDocument struct {
	ChatID  int64
	FileID  string
	Caption string
}

func NewStub() *Stub {
	return &Stub{Members: make(map[string]map[int64]bool)}
}

func (s *Stub) SendMessage(ctx context.Context, chatID int64, text string, markup interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, StubMessage{ChatID: chatID, Text: text, Markup: markup})
	return nil
}

func (s *Stub) SendDocument(ctx context.Context, chatID int64, fileID, caption string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSend {
		return errors.New("stub: send failure")
	}
	s.Documents = append(s.Documents, StubDocument{ChatID: chatID, FileID: fileID, Caption: caption})
	return nil
}

func (s *Stub) IsChatMember(ctx context.Context, chatID string, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailOracle {
		return false, errors.New("stub: oracle unavailable")
	}
	if s.AllMembers {
		return true, nil
	}
	return s.Members[chatID][userID], nil
}

func (s *Stub) Join(chatID string, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Members[chatID] == nil {
		s.Members[chatID] = make(map[int64]bool)
	}
	s.Members[chatID][userID] = true
}

func (s *Stub) AnswerCallbackQuery(ctx context.Context, callbackID string) error { return nil }

func (s *Stub) SetWebhook(ctx context.Context, url string) error { return nil }

// LastMessageTo returns the most recent text sent to the chat, or "".
func (s *Stub) LastMessageTo(chatID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].ChatID == chatID {
			return s.Messages[i].Text
		}
	}
	return ""
}
