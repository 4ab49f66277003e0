package parser

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/briefdesk/brief-service/internal/domain"
)

const minPhoneDigits = 9

var (
	emailPattern      = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern      = regexp.MustCompile(`\+?[\d\s\-()]{10,}`)
	validEmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ParseContactInfo scans user messages newest first. Email and phone are
// searched independently; the result is nil when no email is present.
func ParseContactInfo(messages []domain.Message) *domain.ContactInfo {
	var email, phone, preferredTime string

	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.Role != domain.RoleUser {
			continue
		}
		if email == "" {
			email = emailPattern.FindString(msg.Content)
		}
		if phone == "" {
			phone = findPhone(msg.Content)
		}
		if preferredTime == "" && mentionsContactTime(msg.Content) {
			preferredTime = strings.TrimSpace(msg.Content)
		}
	}

	if email == "" {
		return nil
	}
	return &domain.ContactInfo{
		Email:                email,
		Phone:                phone,
		PreferredContactTime: preferredTime,
	}
}

func findPhone(content string) string {
	for _, candidate := range phonePattern.FindAllString(content, -1) {
		if countDigits(candidate) >= minPhoneDigits {
			return strings.TrimSpace(candidate)
		}
	}
	return ""
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func mentionsContactTime(content string) bool {
	lower := strings.ToLower(content)
	return strings.Contains(lower, "time") || strings.Contains(content, "เวลา")
}

// ValidEmail is the address check shared by request validation and email dispatch.
func ValidEmail(email string) bool {
	return validEmailPattern.MatchString(email)
}

// DetectLanguage returns Thai when any user message contains Thai script.
func DetectLanguage(messages []domain.Message) domain.Language {
	for _, msg := range messages {
		if msg.Role != domain.RoleUser {
			continue
		}
		for _, r := range msg.Content {
			if unicode.Is(unicode.Thai, r) {
				return domain.LanguageThai
			}
		}
	}
	return domain.LanguageEnglish
}

// IsNonEnglish reports whether text contains letters outside the Latin script.
func IsNonEnglish(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) && !unicode.Is(unicode.Latin, r) {
			return true
		}
	}
	return false
}
