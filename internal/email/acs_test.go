package email

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/briefdesk/brief-service/internal/config"
)

func TestACSClient_SendAndPoll(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/emails:send":
			if r.URL.Query().Get("api-version") != "2023-03-31" {
				t.Errorf("api-version = %q", r.URL.Query().Get("api-version"))
			}
			if !strings.HasPrefix(r.Header.Get("Authorization"), "HMAC-SHA256 SignedHeaders=x-ms-date;host;x-ms-content-sha256&Signature=") {
				t.Errorf("authorization = %q", r.Header.Get("Authorization"))
			}
			if r.Header.Get("x-ms-content-sha256") == "" || r.Header.Get("x-ms-date") == "" {
				t.Error("missing signing headers")
			}
			var body sendRequest
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode body: %v", err)
			}
			if body.Recipients.To[0].Address != "client@example.com" || body.Content.Subject != "Hello" {
				t.Errorf("body = %+v", body)
			}
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(map[string]string{"id": r.Header.Get("Operation-Id"), "status": "Running"})
		case r.Method == http.MethodGet && r.URL.Path == "/emails/operations/op-1":
			status := "Running"
			if polls.Add(1) >= 2 {
				status = "Succeeded"
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "op-1", "status": status})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	key := base64.StdEncoding.EncodeToString([]byte("secret"))
	transport, err := NewTransport(context.Background(), config.EmailConfig{
		ConnectionString: "endpoint=" + srv.URL + "/;accesskey=" + key,
		APIVersion:       "2023-03-31",
		PollIntervalMs:   1,
	}, config.AzureIdentityConfig{}, zap.NewNop())
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}

	result, err := transport.Send(context.Background(), &Message{
		From: "a@b.co", To: "client@example.com", Subject: "Hello", HTML: "<p>x</p>", OperationID: "op-1",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if result.MessageID != "op-1" || result.Status != "Succeeded" {
		t.Errorf("result = %+v", result)
	}
	if polls.Load() != 2 {
		t.Errorf("polls = %d, want 2", polls.Load())
	}
}

func TestACSClient_Errors(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		retryable bool
		contains  string
	}{
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":{"code":"Denied","message":"Denied by the resource provider."}}`))
			},
			retryable: false,
			contains:  "authentication failed",
		},
		{
			name: "throttled",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			retryable: true,
			contains:  "429",
		},
		{
			name: "operation failed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusAccepted)
				_, _ = w.Write([]byte(`{"id":"op","status":"Failed","error":{"code":"EmailDroppedAllRecipientsSuppressed","message":"suppressed"}}`))
			},
			retryable: true,
			contains:  "Failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			client := NewACSClient(srv.URL, "2023-03-31", srv.Client(), time.Millisecond, zap.NewNop())
			_, err := client.Send(context.Background(), &Message{From: "a@b.co", To: "c@d.co", Subject: "s"})
			if err == nil {
				t.Fatal("expected error")
			}
			if IsRetryable(err) != tt.retryable {
				t.Errorf("retryable = %v for %v", IsRetryable(err), err)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("err = %v, want it to contain %q", err, tt.contains)
			}
		})
	}
}

func TestACSClient_HonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusAccepted)
		}
		_, _ = w.Write([]byte(`{"id":"op","status":"Running"}`))
	}))
	defer srv.Close()

	client := NewACSClient(srv.URL, "2023-03-31", srv.Client(), time.Millisecond, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := client.Send(ctx, &Message{From: "a@b.co", To: "c@d.co"}); err != context.DeadlineExceeded {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestNewTransport_ConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.EmailConfig
		azure   config.AzureIdentityConfig
		mention string
	}{
		{"nothing", config.EmailConfig{}, config.AzureIdentityConfig{}, "AZURE_COMMUNICATION_CONNECTION_STRING"},
		{"key without endpoint", config.EmailConfig{AccessKey: "a2V5"}, config.AzureIdentityConfig{}, "AZURE_COMMUNICATION_EMAIL_ENDPOINT"},
		{"endpoint without credentials", config.EmailConfig{Endpoint: "https://acs.example"}, config.AzureIdentityConfig{}, "AZURE_COMMUNICATION_KEY"},
		{"bad connection string", config.EmailConfig{ConnectionString: "endpoint=https://acs.example"}, config.AzureIdentityConfig{}, "accesskey"},
		{"bad key", config.EmailConfig{Endpoint: "https://acs.example", AccessKey: "%%%"}, config.AzureIdentityConfig{}, "base64"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTransport(context.Background(), tt.cfg, tt.azure, zap.NewNop())
			if !IsConfigError(err) {
				t.Fatalf("err = %v, want ConfigError", err)
			}
			if !strings.Contains(err.Error(), tt.mention) {
				t.Errorf("err = %q, want mention of %q", err.Error(), tt.mention)
			}
			if IsRetryable(err) {
				t.Error("config errors must not be retryable")
			}
		})
	}

	_, err := NewTransport(context.Background(), config.EmailConfig{Endpoint: "https://acs.example"},
		config.AzureIdentityConfig{TenantID: "t", ClientID: "c", ClientSecret: "s"}, zap.NewNop())
	if err != nil {
		t.Errorf("entra id transport: %v", err)
	}
}
