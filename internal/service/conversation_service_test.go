package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/briefdesk/brief-service/internal/domain"
)

func TestEnsureConversation_CreatesThenReplacesTranscript(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(t)

	conv, err := s.conversations.EnsureConversation(ctx, "conv-1", interviewMessages()[:1])
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if conv.Status != domain.ConversationStatusActive || conv.UserID != domain.AnonymousUserID {
		t.Errorf("new conversation = %+v", conv)
	}
	if conv.Messages[0].ID == "" || conv.Messages[0].Timestamp.IsZero() {
		t.Errorf("message not normalized: %+v", conv.Messages[0])
	}

	if _, err := s.conversations.EnsureConversation(ctx, "conv-1", interviewMessages()); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	stored, err := s.conversations.GetConversation(ctx, "conv-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(stored.Messages) != len(interviewMessages()) {
		t.Errorf("messages = %d, want %d", len(stored.Messages), len(interviewMessages()))
	}
}

func TestCompleteConversation_LinksUserOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(t)

	completeTestConversation(t, s, "conv-1", "Mai@Example.com")
	conv := completeTestConversation(t, s, "conv-1", "mai@example.com")
	if conv.Status != domain.ConversationStatusCompleted {
		t.Errorf("status = %s", conv.Status)
	}

	user, err := s.store.Users.GetByEmail(ctx, "mai@example.com")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if conv.UserID != user.ID {
		t.Errorf("conversation owner = %s, want %s", conv.UserID, user.ID)
	}
	if len(user.ConversationIDs) != 1 || user.ConversationIDs[0] != "conv-1" || user.TotalBriefs != 1 {
		t.Errorf("user links = %v total=%d", user.ConversationIDs, user.TotalBriefs)
	}
}

func TestCompleteConversation_KeepsKnownContactDetails(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(t)

	if _, err := s.conversations.EnsureConversation(ctx, "conv-1", interviewMessages()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.conversations.CompleteConversation(ctx, "conv-1", domain.Brief{ProjectName: "A"},
		domain.ContactInfo{Email: "mai@example.com", Phone: "0812345678"}); err != nil {
		t.Fatal(err)
	}

	if _, err := s.conversations.EnsureConversation(ctx, "conv-2", interviewMessages()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.conversations.CompleteConversation(ctx, "conv-2", domain.Brief{ProjectName: "B", Company: "Siam Coffee Co."},
		domain.ContactInfo{Email: "mai@example.com"}); err != nil {
		t.Fatal(err)
	}

	user, err := s.store.Users.GetByEmail(ctx, "mai@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if user.Phone != "0812345678" || user.Company != "Siam Coffee Co." {
		t.Errorf("user = %+v", user)
	}
	if user.TotalBriefs != 2 {
		t.Errorf("totalBriefs = %d, want 2", user.TotalBriefs)
	}
}

func TestCompleteConversation_UnknownIDLeavesUsersAlone(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(t)

	_, err := s.conversations.CompleteConversation(ctx, "missing", domain.Brief{ProjectName: "A"},
		domain.ContactInfo{Email: "new@example.com"})
	assertStatus(t, err, http.StatusNotFound)
	if _, err := s.store.Users.GetByEmail(ctx, "new@example.com"); err == nil {
		t.Error("user created for unknown conversation")
	}

	completeTestConversation(t, s, "conv-1", "mai@example.com")
	before, err := s.store.Users.GetByEmail(ctx, "mai@example.com")
	if err != nil {
		t.Fatal(err)
	}
	s.conversations.now = func() time.Time { return fixedNow.Add(time.Hour) }
	_, err = s.conversations.CompleteConversation(ctx, "missing", domain.Brief{Company: "Other Co."},
		domain.ContactInfo{Email: "mai@example.com", Phone: "0899999999"})
	assertStatus(t, err, http.StatusNotFound)

	after, err := s.store.Users.GetByEmail(ctx, "mai@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !after.LastActiveAt.Equal(before.LastActiveAt) || after.Phone != before.Phone || after.Company != before.Company {
		t.Errorf("user changed: before %+v after %+v", before, after)
	}
}

func TestGetPublicBrief(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(t)

	if _, err := s.conversations.EnsureConversation(ctx, "active-1", interviewMessages()); err != nil {
		t.Fatal(err)
	}
	conv := completeTestConversation(t, s, "done-1", "mai@example.com")
	doc, err := s.conversations.EnsureBrief(ctx, conv.ID, conv.UserID, *conv.Brief)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{name: "completed conversation id", id: "done-1"},
		{name: "brief document id", id: doc.ID},
		{name: "active conversation", id: "active-1", wantErr: true},
		{name: "unknown id", id: "missing", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.conversations.GetPublicBrief(ctx, tt.id)
			if tt.wantErr {
				assertStatus(t, err, http.StatusNotFound)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ID != "done-1" || got.Brief == nil {
				t.Errorf("got %+v", got)
			}
		})
	}
}

func TestEnsureBrief_CreatesOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(t)
	conv := completeTestConversation(t, s, "conv-1", "mai@example.com")

	first, err := s.conversations.EnsureBrief(ctx, conv.ID, conv.UserID, *conv.Brief)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.conversations.EnsureBrief(ctx, conv.ID, conv.UserID, domain.Brief{ProjectName: "Other"})
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID || second.Brief.ProjectName != "Siam Coffee Rebrand" {
		t.Errorf("first=%s second=%s name=%q", first.ID, second.ID, second.Brief.ProjectName)
	}
	if first.Status != domain.BriefStatusDraft || first.Version != 1 {
		t.Errorf("new brief = %+v", first)
	}
	if got := s.conversations.BriefIDFor(ctx, conv.ID); got != first.ID {
		t.Errorf("BriefIDFor = %q", got)
	}
	if got := s.conversations.BriefIDFor(ctx, "missing"); got != "" {
		t.Errorf("BriefIDFor(missing) = %q", got)
	}
}

func TestMarkBriefViewed_SkipsMissingDocument(t *testing.T) {
	ctx := context.Background()
	s := newTestServices(t)
	conv := completeTestConversation(t, s, "conv-1", "mai@example.com")

	if err := s.conversations.MarkBriefViewed(ctx, conv.ID); err != nil {
		t.Fatalf("no document: %v", err)
	}
	doc, err := s.conversations.EnsureBrief(ctx, conv.ID, conv.UserID, *conv.Brief)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.conversations.MarkBriefViewed(ctx, conv.ID); err != nil {
		t.Fatal(err)
	}
	stored, err := s.store.Briefs.GetByID(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != domain.BriefStatusViewed {
		t.Errorf("status = %s, want viewed", stored.Status)
	}
}

func TestUpdateStatus_Transitions(t *testing.T) {
	tests := []struct {
		name       string
		complete   bool
		steps      []domain.ConversationStatus
		wantStatus int
	}{
		{name: "completed to contacted", complete: true, steps: []domain.ConversationStatus{domain.ConversationStatusContacted}},
		{name: "completed to converted", complete: true, steps: []domain.ConversationStatus{domain.ConversationStatusConverted}},
		{name: "contacted to converted", complete: true, steps: []domain.ConversationStatus{domain.ConversationStatusContacted, domain.ConversationStatusConverted}},
		{name: "active cannot be contacted", steps: []domain.ConversationStatus{domain.ConversationStatusContacted}, wantStatus: http.StatusBadRequest},
		{name: "contacted cannot go back", complete: true, steps: []domain.ConversationStatus{domain.ConversationStatusContacted, domain.ConversationStatusCompleted}, wantStatus: http.StatusBadRequest},
		{name: "converted is final", complete: true, steps: []domain.ConversationStatus{domain.ConversationStatusConverted, domain.ConversationStatusContacted}, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := newTestServices(t)
			if tt.complete {
				completeTestConversation(t, s, "conv-1", "mai@example.com")
			} else if _, err := s.conversations.EnsureConversation(ctx, "conv-1", interviewMessages()); err != nil {
				t.Fatal(err)
			}

			var err error
			var conv *domain.Conversation
			for _, next := range tt.steps {
				if conv, err = s.conversations.UpdateStatus(ctx, "conv-1", next); err != nil {
					break
				}
			}
			if tt.wantStatus != 0 {
				assertStatus(t, err, tt.wantStatus)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := tt.steps[len(tt.steps)-1]
			if conv.Status != want {
				t.Errorf("status = %s, want %s", conv.Status, want)
			}
		})
	}

	t.Run("unknown conversation", func(t *testing.T) {
		s := newTestServices(t)
		_, err := s.conversations.UpdateStatus(context.Background(), "missing", domain.ConversationStatusContacted)
		assertStatus(t, err, http.StatusNotFound)
	})
}
