package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/briefdesk/brief-service/internal/api/http/handlers"
	"github.com/briefdesk/brief-service/internal/auth"
	"github.com/briefdesk/brief-service/internal/config"
	"github.com/briefdesk/brief-service/internal/email"
	"github.com/briefdesk/brief-service/internal/mock"
	"github.com/briefdesk/brief-service/internal/observability"
	"github.com/briefdesk/brief-service/internal/persistence"
	"github.com/briefdesk/brief-service/internal/prompts"
	"github.com/briefdesk/brief-service/internal/repository"
	"github.com/briefdesk/brief-service/internal/service"
)

const assistantBrief = `PROJECT OVERVIEW
Project Name: Siam Coffee Rebrand
Project Type: Logo Design

BUDGET & INVESTMENT
Client's Initial Budget Range: 15,000 - 50,000 THB
`

type testApp struct {
	app    *fiber.App
	sender *mock.Sender
	tokens *auth.TokenManager
}

func newTestApp(t *testing.T, withStore, operatorAuth bool) *testApp {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	sender := &mock.Sender{}

	set, err := prompts.Default()
	if err != nil {
		t.Fatal(err)
	}
	renderer, err := email.NewRenderer("https://briefs.example.com")
	if err != nil {
		t.Fatal(err)
	}
	chat := service.NewChatService(service.ChatDependencies{Client: &mock.ChatStreamer{}, Prompts: set})

	var (
		conversations *service.ConversationService
		tracking      *service.EmailTrackingService
		intake        *service.IntakeService
	)
	if withStore {
		db, err := persistence.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { db.Close() })
		store := repository.NewSQLiteStore(db)
		guard := service.NewGuard(nil, time.Minute, nil)
		conversations = service.NewConversationService(service.ConversationDependencies{Store: store})
		tracking = service.NewEmailTrackingService(service.EmailTrackingDependencies{
			Store:         store,
			Conversations: conversations,
			Sender:        sender,
			Locker:        guard,
			Metrics:       metrics,
		})
		intake = service.NewIntakeService(service.IntakeDependencies{
			Conversations: conversations,
			Tracking:      tracking,
			Locker:        guard,
		})
	}

	tokens := auth.NewTokenManager("test-secret", 30)
	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, MiddlewareConfig{Timeout: 5 * time.Second})
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("brief-service", "test", metrics),
		Chat:           handlers.NewChatHandler(chat, time.Second, logger),
		Intake:         handlers.NewIntakeHandler(intake, conversations),
		Briefs:         handlers.NewBriefHandler(conversations, renderer, logger),
		Email:          handlers.NewEmailHandler(tracking),
		Operator:       handlers.NewOperatorHandler(service.NewOperatorService(config.AuthConfig{}, tokens), conversations),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, operatorAuth),
	})
	return &testApp{app: app, sender: sender, tokens: tokens}
}

func (a *testApp) do(t *testing.T, method, path string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := a.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func saveBody(id string) map[string]any {
	return map[string]any{
		"conversationId": id,
		"messages": []map[string]string{
			{"role": "user", "content": "I need a logo"},
			{"role": "user", "content": "reach me at mai@example.com"},
			{"role": "assistant", "content": assistantBrief},
		},
	}
}

func TestSaveThenFetchBrief(t *testing.T) {
	a := newTestApp(t, true, false)

	resp, body := a.do(t, http.MethodPost, "/save-conversation", saveBody("conv-1"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save status = %d body = %s", resp.StatusCode, body)
	}
	var saved struct {
		Success     bool   `json:"success"`
		BriefID     string `json:"briefId"`
		EmailStatus string `json:"emailStatus"`
	}
	if err := json.Unmarshal(body, &saved); err != nil {
		t.Fatal(err)
	}
	if !saved.Success || saved.EmailStatus != "Succeeded" || saved.BriefID == "" {
		t.Errorf("save response = %s", body)
	}

	for _, id := range []string{"conv-1", saved.BriefID} {
		resp, body = a.do(t, http.MethodGet, "/brief/"+id, nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET /brief/%s status = %d body = %s", id, resp.StatusCode, body)
		}
		var got struct {
			Brief struct {
				ProjectName string `json:"projectName"`
				Budget      struct {
					ClientRange string `json:"clientRange"`
				} `json:"budget"`
			} `json:"brief"`
			CreatedAt *time.Time `json:"createdAt"`
		}
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatal(err)
		}
		if got.Brief.Budget.ClientRange != "15,000 - 50,000 THB" || got.Brief.ProjectName != "Siam Coffee Rebrand" || got.CreatedAt == nil {
			t.Errorf("brief response = %s", body)
		}
	}

	resp, body = a.do(t, http.MethodGet, "/brief/conv-1/html", nil, nil)
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Errorf("html status = %d type = %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(string(body), "Siam Coffee Rebrand") {
		t.Error("html page does not contain the project name")
	}

	resp, body = a.do(t, http.MethodPost, "/save-conversation", saveBody("conv-1"), nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"emailStatus":"already_sent"`) {
		t.Errorf("second save = %d %s", resp.StatusCode, body)
	}
	if a.sender.CallCount() != 1 {
		t.Errorf("sends = %d", a.sender.CallCount())
	}
}

func TestErrorEnvelope(t *testing.T) {
	a := newTestApp(t, true, false)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
		code   string
	}{
		{name: "unknown brief", method: http.MethodGet, path: "/brief/missing", want: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "unknown route", method: http.MethodGet, path: "/nope", want: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "missing fields", method: http.MethodPost, path: "/save-conversation", body: map[string]any{}, want: http.StatusBadRequest, code: "VALIDATION_FAILED"},
		{name: "bad language", method: http.MethodPost, path: "/conversations", body: map[string]any{"language": "fr"}, want: http.StatusBadRequest, code: "VALIDATION_FAILED"},
		{name: "bad period", method: http.MethodGet, path: "/email-status?period=abc", want: http.StatusBadRequest, code: "VALIDATION_FAILED"},
		{name: "login not configured", method: http.MethodPost, path: "/operator/login", body: map[string]string{"email": "a@b.co", "password": "x"}, want: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := a.do(t, tt.method, tt.path, tt.body, nil)
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d body = %s", resp.StatusCode, tt.want, body)
			}
			var envelope struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.Unmarshal(body, &envelope); err != nil {
				t.Fatalf("decode %s: %v", body, err)
			}
			if envelope.Error.Message == "" || (tt.code != "" && envelope.Error.Code != tt.code) {
				t.Errorf("envelope = %s", body)
			}
		})
	}
}

func TestWithoutDatabase(t *testing.T) {
	a := newTestApp(t, false, false)
	for _, path := range []string{"/brief/conv-1", "/email-status"} {
		resp, body := a.do(t, http.MethodGet, path, nil, nil)
		if resp.StatusCode != http.StatusServiceUnavailable || !strings.Contains(string(body), "Database not configured") {
			t.Errorf("%s = %d %s", path, resp.StatusCode, body)
		}
	}
	resp, _ := a.do(t, http.MethodPost, "/brief/preview", map[string]string{"content": "hello"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("preview status = %d", resp.StatusCode)
	}
}

func TestOperatorRoutesRequireToken(t *testing.T) {
	a := newTestApp(t, true, true)
	if resp, _ := a.do(t, http.MethodPost, "/save-conversation", saveBody("conv-1"), nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("save status = %d", resp.StatusCode)
	}

	resp, _ := a.do(t, http.MethodGet, "/email-status?conversationId=conv-1", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("without token = %d", resp.StatusCode)
	}

	token, _, err := a.tokens.GenerateToken("ops@studio.co")
	if err != nil {
		t.Fatal(err)
	}
	authz := map[string]string{"Authorization": "Bearer " + token}

	resp, body := a.do(t, http.MethodGet, "/email-status?conversationId=conv-1", nil, authz)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"emailStatus":"Succeeded"`) {
		t.Errorf("status lookup = %d %s", resp.StatusCode, body)
	}

	resp, body = a.do(t, http.MethodPost, "/retry-email", map[string]string{"conversationId": "conv-1"}, authz)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"emailStatus":"already_sent"`) {
		t.Errorf("retry = %d %s", resp.StatusCode, body)
	}

	resp, body = a.do(t, http.MethodPatch, "/conversations/conv-1/status", map[string]string{"status": "contacted"}, authz)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"status":"contacted"`) {
		t.Errorf("status update = %d %s", resp.StatusCode, body)
	}

	resp, body = a.do(t, http.MethodGet, "/email-status?period=7&details=true", nil, authz)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"period":"7 days"`) || !strings.Contains(string(body), `"details":[`) {
		t.Errorf("stats = %d %s", resp.StatusCode, body)
	}
}

func TestChatStreamsEvents(t *testing.T) {
	a := newTestApp(t, false, false)
	resp, body := a.do(t, http.MethodPost, "/chat", map[string]any{
		"messages":    []map[string]string{{"role": "user", "content": "hi"}},
		"currentStep": 0,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body = %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(string(body), `"content":"ok"`) || !strings.Contains(string(body), "data: [DONE]") {
		t.Errorf("body = %s", body)
	}
}
