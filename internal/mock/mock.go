// Package mock provides func-field test doubles for external clients.
package mock

import (
	"context"
	"io"
	"sync"

	"github.com/briefdesk/brief-service/internal/domain"
	"github.com/briefdesk/brief-service/internal/email"
	"github.com/briefdesk/brief-service/internal/llm"
)

// Transport is an email.Transport that records every message.
type Transport struct {
	SendFn func(ctx context.Context, msg *email.Message) (*email.Result, error)

	mu    sync.Mutex
	Calls []*email.Message
}

func (m *Transport) Send(ctx context.Context, msg *email.Message) (*email.Result, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, msg)
	m.mu.Unlock()
	if m.SendFn == nil {
		return &email.Result{MessageID: "msg-" + msg.OperationID, Status: domain.EmailStatusSucceeded}, nil
	}
	return m.SendFn(ctx, msg)
}

// CallCount returns how many sends were attempted.
func (m *Transport) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Sender stands in for the email dispatcher.
type Sender struct {
	SendBriefEmailFn func(ctx context.Context, contact domain.ContactInfo, brief domain.Brief, conversationID string) (*email.Result, error)

	mu    sync.Mutex
	calls int
}

func (m *Sender) SendBriefEmail(ctx context.Context, contact domain.ContactInfo, brief domain.Brief, conversationID string) (*email.Result, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.SendBriefEmailFn == nil {
		return &email.Result{MessageID: "msg-" + conversationID, Status: domain.EmailStatusSucceeded}, nil
	}
	return m.SendBriefEmailFn(ctx, contact, brief, conversationID)
}

// CallCount returns how many dispatches were requested.
func (m *Sender) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// ChatStreamer stands in for the model client.
type ChatStreamer struct {
	StreamChatFn func(ctx context.Context, messages []llm.ChatMessage) (io.ReadCloser, error)

	mu   sync.Mutex
	Last []llm.ChatMessage
}

func (m *ChatStreamer) StreamChat(ctx context.Context, messages []llm.ChatMessage) (io.ReadCloser, error) {
	m.mu.Lock()
	m.Last = messages
	m.mu.Unlock()
	if m.StreamChatFn == nil {
		return llm.SyntheticStream("ok"), nil
	}
	return m.StreamChatFn(ctx, messages)
}
