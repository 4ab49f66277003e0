package parser

import (
	"testing"

	"github.com/briefdesk/brief-service/internal/domain"
)

func userMsg(content string) domain.Message {
	return domain.Message{Role: domain.RoleUser, Content: content}
}

func assistantMsg(content string) domain.Message {
	return domain.Message{Role: domain.RoleAssistant, Content: content}
}

func TestParseContactInfo(t *testing.T) {
	tests := []struct {
		name      string
		messages  []domain.Message
		wantNil   bool
		wantEmail string
		wantPhone string
	}{
		{
			name:     "no email",
			messages: []domain.Message{userMsg("call me on 081-234-5678")},
			wantNil:  true,
		},
		{
			name:      "email only",
			messages:  []domain.Message{userMsg("I need a logo"), userMsg("reach me at jane.doe@example.com")},
			wantEmail: "jane.doe@example.com",
		},
		{
			name:      "email and phone in one message",
			messages:  []domain.Message{userMsg("I need a logo"), userMsg("my.email@example.com, 081-234-5678")},
			wantEmail: "my.email@example.com",
			wantPhone: "081-234-5678",
		},
		{
			name: "fields found in different messages",
			messages: []domain.Message{
				userMsg("phone is +66 81 234 5678"),
				userMsg("email: client@studio.co.th"),
			},
			wantEmail: "client@studio.co.th",
			wantPhone: "+66 81 234 5678",
		},
		{
			name: "most recent email wins",
			messages: []domain.Message{
				userMsg("old@example.com"),
				userMsg("actually use new@example.com"),
			},
			wantEmail: "new@example.com",
		},
		{
			name: "assistant messages ignored",
			messages: []domain.Message{
				assistantMsg("Contact us at hello@agency.com or 02-123-4567-89"),
				userMsg("sure"),
			},
			wantNil: true,
		},
		{
			name:      "short numbers are not phones",
			messages:  []domain.Message{userMsg("budget 15,000 - 50,000 THB, me@example.com")},
			wantEmail: "me@example.com",
		},
		{
			name:      "later candidate with enough digits",
			messages:  []domain.Message{userMsg("me@example.com ref (1) - - - - 1 then 0812345678")},
			wantEmail: "me@example.com",
			wantPhone: "0812345678",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseContactInfo(tt.messages)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("expected nil, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("expected contact info, got nil")
			}
			if got.Email != tt.wantEmail {
				t.Errorf("email = %q, want %q", got.Email, tt.wantEmail)
			}
			if got.Phone != tt.wantPhone {
				t.Errorf("phone = %q, want %q", got.Phone, tt.wantPhone)
			}
		})
	}
}

func TestParseContactInfo_PreferredTime(t *testing.T) {
	got := ParseContactInfo([]domain.Message{
		userMsg("a@b.co"),
		userMsg("ช่วงเวลาบ่าย สะดวกครับ"),
	})
	if got == nil {
		t.Fatal("expected contact info")
	}
	if got.PreferredContactTime != "ช่วงเวลาบ่าย สะดวกครับ" {
		t.Errorf("preferredContactTime = %q", got.PreferredContactTime)
	}
}

func TestValidEmail(t *testing.T) {
	tests := map[string]bool{
		"user@example.com":      true,
		"first.last@sub.co.th":  true,
		"":                      false,
		"no-at-sign.com":        false,
		"spaces in@example.com": false,
		"user@nodot":            false,
	}
	for input, want := range tests {
		if got := ValidEmail(input); got != want {
			t.Errorf("ValidEmail(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestDetectLanguage(t *testing.T) {
	if got := DetectLanguage([]domain.Message{userMsg("hello")}); got != domain.LanguageEnglish {
		t.Errorf("DetectLanguage = %q, want en", got)
	}
	if got := DetectLanguage([]domain.Message{userMsg("สวัสดีครับ")}); got != domain.LanguageThai {
		t.Errorf("DetectLanguage = %q, want th", got)
	}
	if !IsNonEnglish("ต้องการโลโก้") {
		t.Error("expected Thai text to be non-English")
	}
	if IsNonEnglish("Café logo, 2024!") {
		t.Error("expected Latin text to be English")
	}
}
