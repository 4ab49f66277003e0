package parser

import (
	"testing"

	"github.com/briefdesk/brief-service/internal/domain"
)

func TestParseBriefFromMessages(t *testing.T) {
	t.Run("newest structured brief", func(t *testing.T) {
		messages := []domain.Message{
			userMsg("I need a logo"),
			assistantMsg("PROJECT OVERVIEW\nProject Name: Draft"),
			userMsg("change the name"),
			assistantMsg(sampleBrief),
		}
		brief := ParseBriefFromMessages(messages)
		if brief == nil {
			t.Fatal("expected brief")
		}
		if brief.ProjectName != "Siam Coffee Rebrand" {
			t.Errorf("projectName = %q", brief.ProjectName)
		}
	})

	t.Run("legacy fallback", func(t *testing.T) {
		messages := []domain.Message{
			assistantMsg("# Creative Brief: Harbor\n**Project Name:** Harbor Identity\n**Budget Range:** 10,000 THB"),
		}
		brief := ParseBriefFromMessages(messages)
		if brief == nil {
			t.Fatal("expected brief")
		}
		if brief.ProjectName != "Harbor Identity" || brief.Budget.ClientRange != "10,000 THB" {
			t.Errorf("unexpected brief %+v", brief)
		}
	})

	t.Run("user text is never a brief", func(t *testing.T) {
		messages := []domain.Message{userMsg(sampleBrief), assistantMsg("Thanks!")}
		if brief := ParseBriefFromMessages(messages); brief != nil {
			t.Errorf("expected nil, got %+v", brief)
		}
	})
}

func TestExtractProjectType(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"I need a new logo for my cafe", "Logo"},
		{"We want a promo VIDEO", "Video"},
		{"something else entirely", domain.DefaultProjectType},
	}
	for _, tt := range tests {
		if got := ExtractProjectType([]domain.Message{userMsg(tt.text)}); got != tt.want {
			t.Errorf("ExtractProjectType(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}
