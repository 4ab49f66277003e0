package parser

import (
	"regexp"
	"strings"

	"github.com/briefdesk/brief-service/internal/domain"
)

const legacyDefaultProjectType = "General"

var (
	bulletItemPattern = regexp.MustCompile(`^\s*(?:[-*•+]|\d+[.)])\s*(.+)$`)
	formatSeparators  = regexp.MustCompile(`[,;\n]`)
)

// ParseLegacyBrief reads briefs written with markdown headings and bold labels
// instead of plain section headers. Every field is looked up independently.
func ParseLegacyBrief(text string) *domain.Brief {
	brief := &domain.Brief{
		ProjectName: legacyValue(text, "Project Name"),
		ProjectType: legacyValue(text, "Project Type"),
		Company:     firstNonEmpty(legacyValue(text, "Client:"), legacyValue(text, "Company:")),
		Industry:    legacyValue(text, "Industry:"),
		BusinessContext: domain.BusinessContext{
			Description:      legacyBlock(text, "Company Description:"),
			Objective:        legacyBlock(text, "Project Objective:"),
			StrategicContext: legacyBlock(text, "Strategic Context:"),
		},
		ScopeOfWork: domain.ScopeOfWork{
			Deliverables: legacyList(text, "Primary Deliverables:"),
			TechnicalSpecs: domain.TechnicalSpecs{
				Formats:           legacyFormats(text, "File formats:"),
				Dimensions:        legacyValue(text, "Dimensions/Orientation:"),
				Resolution:        legacyValue(text, "Resolution:"),
				FrameRate:         legacyValue(text, "Frame rate:"),
				Duration:          legacyValue(text, "Duration:"),
				ColorRequirements: legacyValue(text, "Color requirements:"),
				PlatformSpecs:     legacyValue(text, "Platform specifications:"),
			},
		},
		Timeline: domain.Timeline{
			ProjectStart:      legacyValue(text, "Project Start:"),
			FirstPresentation: legacyValue(text, "First Concept Presentation:"),
			FeedbackDue:       legacyValue(text, "Client Feedback Due:"),
			RevisionDeadline:  legacyValue(text, "Revision Deadline:"),
			FinalDelivery:     legacyValue(text, "Final Delivery:"),
		},
		Budget: domain.Budget{
			ClientRange:      firstNonEmpty(legacyValue(text, "Client's Initial Budget Range:"), legacyValue(text, "Budget Range:")),
			RecommendedValue: legacyValue(text, "Recommended Project Value:"),
			Justification:    legacyBlock(text, "Budget Justification:"),
			PaymentSchedule:  legacyValue(text, "Payment Schedule:"),
		},
		CreativeDirection: domain.CreativeDirection{
			Style:        legacyValue(text, "Style Preferences:"),
			ColorPalette: legacyValue(text, "Color Palette:"),
			Typography:   legacyValue(text, "Typography:"),
			Mood:         legacyValue(text, "Mood/Tone:"),
			References:   legacyList(text, "References:"),
		},
		AdditionalNotes: legacyBlock(text, "Additional Notes:"),
	}

	if primary := legacyBlock(text, "Primary Audience:"); primary != "" {
		brief.TargetAudience = &domain.TargetAudience{
			Primary:   primary,
			Secondary: legacyBlock(text, "Secondary Audience:"),
			Behavior:  legacyBlock(text, "User Behavior:"),
		}
	}
	if brief.ProjectType == "" {
		brief.ProjectType = legacyDefaultProjectType
	}
	if len(brief.CreativeDirection.References) == 0 {
		brief.CreativeDirection.References = nil
	}

	brief.Normalize()
	return brief
}

// labelPattern matches the label case-insensitively, an optional ':' or '-'
// separator and markdown emphasis, and captures the rest of that line.
func labelPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) + `[ \t]*[:\-]?[ \t*]*([^\n]*)`)
}

func legacyValue(text, label string) string {
	m := labelPattern(label).FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return cleanValue(m[1])
}

// legacyBlock returns the labelled line plus its continuation lines. A line
// that starts with a letter, a dash, a heading or a bold label ends the block.
func legacyBlock(text, label string) string {
	loc := labelPattern(label).FindStringSubmatchIndex(text)
	if loc == nil {
		return ""
	}
	parts := []string{cleanValue(text[loc[2]:loc[3]])}

	rest := text[loc[1]:]
	for _, line := range strings.Split(strings.TrimPrefix(rest, "\n"), "\n") {
		if endsBlock(line) {
			break
		}
		parts = append(parts, strings.TrimSpace(line))
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func endsBlock(line string) bool {
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "**") || strings.HasPrefix(line, "-") {
		return true
	}
	r := []rune(line)[0]
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// legacyList collects bullet or numbered items following the label, stopping
// at the first non-empty line that is not a list item.
func legacyList(text, label string) []string {
	loc := labelPattern(label).FindStringSubmatchIndex(text)
	if loc == nil {
		return []string{}
	}
	inline := cleanValue(text[loc[2]:loc[3]])

	items := []string{}
	rest := strings.TrimPrefix(text[loc[1]:], "\n")
	for _, line := range strings.Split(rest, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(items) > 0 {
				break
			}
			continue
		}
		m := bulletItemPattern.FindStringSubmatch(line)
		if m == nil || strings.HasPrefix(strings.TrimSpace(line), "**") {
			break
		}
		items = append(items, cleanValue(m[1]))
	}
	if len(items) == 0 && inline != "" {
		items = splitList(inline, ",")
	}
	return items
}

func legacyFormats(text, label string) []string {
	value := legacyValue(text, label)
	if value == "" {
		return nil
	}
	var formats []string
	for _, part := range formatSeparators.Split(value, -1) {
		if part = strings.TrimSpace(part); part != "" {
			formats = append(formats, part)
		}
	}
	return formats
}

func cleanValue(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
