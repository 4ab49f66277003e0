package parser

import (
	"strings"

	"github.com/briefdesk/brief-service/internal/domain"
)

var briefMarkers = []string{
	"# Creative Brief:",
	"## Project Overview",
	string(SectionProjectOverview),
	"Perfect! Let me create your comprehensive creative brief",
}

var projectTypeKeywords = []string{
	"Logo", "Branding", "Website", "Video", "Marketing",
	"Social Media", "Print", "Digital", "Campaign",
}

// FindBriefMessage returns the newest assistant message that carries a brief marker.
func FindBriefMessage(messages []domain.Message) (domain.Message, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.Role != domain.RoleAssistant {
			continue
		}
		for _, marker := range briefMarkers {
			if strings.Contains(msg.Content, marker) {
				return msg, true
			}
		}
	}
	return domain.Message{}, false
}

// ParseBriefFromMessages locates the brief in a transcript, trying the
// structured format first and the legacy markdown format second.
func ParseBriefFromMessages(messages []domain.Message) *domain.Brief {
	msg, ok := FindBriefMessage(messages)
	if !ok {
		return nil
	}
	if brief := ParseBrief(msg.Content); brief != nil {
		return brief
	}
	return ParseLegacyBrief(msg.Content)
}

// ExtractProjectType guesses a coarse project category from the transcript.
func ExtractProjectType(messages []domain.Message) string {
	for _, msg := range messages {
		lower := strings.ToLower(msg.Content)
		for _, keyword := range projectTypeKeywords {
			if strings.Contains(lower, strings.ToLower(keyword)) {
				return keyword
			}
		}
	}
	return domain.DefaultProjectType
}
