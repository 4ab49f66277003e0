package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/briefdesk/brief-service/internal/domain"
	"github.com/briefdesk/brief-service/internal/mock"
	"github.com/briefdesk/brief-service/internal/persistence"
	"github.com/briefdesk/brief-service/internal/repository"
	apperrors "github.com/briefdesk/brief-service/pkg/util/errorutil"
)

const transcriptBrief = `Perfect! Here is your creative brief.

PROJECT OVERVIEW
Project Name: Siam Coffee Rebrand
Project Type: Logo Design
Client: Siam Coffee Co.

SCOPE OF WORK
Primary Deliverables:
- Primary logo

BUDGET & INVESTMENT
Client's Initial Budget Range: 15,000 - 50,000 THB
Recommended Project Value: 45,000 THB
`

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()
	db, err := persistence.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return repository.NewSQLiteStore(db)
}

type testServices struct {
	store         *repository.Store
	sender        *mock.Sender
	conversations *ConversationService
	tracking      *EmailTrackingService
	intake        *IntakeService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	store := newTestStore(t)
	sender := &mock.Sender{}

	guard := NewGuard(nil, time.Minute, nil)
	conversations := NewConversationService(ConversationDependencies{Store: store})
	conversations.now = func() time.Time { return fixedNow }
	tracking := NewEmailTrackingService(EmailTrackingDependencies{
		Store:         store,
		Conversations: conversations,
		Sender:        sender,
		Locker:        guard,
	})
	tracking.now = func() time.Time { return fixedNow }
	intake := NewIntakeService(IntakeDependencies{
		Conversations: conversations,
		Tracking:      tracking,
		Locker:        guard,
	})
	return &testServices{
		store:         store,
		sender:        sender,
		conversations: conversations,
		tracking:      tracking,
		intake:        intake,
	}
}

func interviewMessages() []domain.Message {
	return []domain.Message{
		{Role: domain.RoleUser, Content: "I need a logo for my coffee shop"},
		{Role: domain.RoleAssistant, Content: "Great, how can we reach you?"},
		{Role: domain.RoleUser, Content: "Mai@Example.com, 081-234-5678"},
		{Role: domain.RoleAssistant, Content: transcriptBrief},
	}
}

func completeTestConversation(t *testing.T, s *testServices, id, email string) *domain.Conversation {
	t.Helper()
	ctx := context.Background()
	if _, err := s.conversations.EnsureConversation(ctx, id, interviewMessages()); err != nil {
		t.Fatalf("ensure conversation: %v", err)
	}
	brief := domain.Brief{ProjectName: "Siam Coffee Rebrand", ProjectType: "Logo Design"}
	brief.Normalize()
	conv, err := s.conversations.CompleteConversation(ctx, id, brief, domain.ContactInfo{Email: email})
	if err != nil {
		t.Fatalf("complete conversation: %v", err)
	}
	return conv
}

func assertStatus(t *testing.T, err error, want int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", want)
	}
	if got := apperrors.ToDomainError(err).HTTPStatus; got != want {
		t.Fatalf("status = %d, want %d (err: %v)", got, want, err)
	}
}
