// Package parser extracts structured briefs and contact details from interview transcripts.
package parser

import (
	"strings"

	"github.com/briefdesk/brief-service/internal/domain"
)

// Section is a brief section header as emitted by the interview model.
type Section string

const (
	SectionNone              Section = ""
	SectionProjectOverview   Section = "PROJECT OVERVIEW"
	SectionBusinessContext   Section = "BUSINESS CONTEXT"
	SectionScopeOfWork       Section = "SCOPE OF WORK"
	SectionTimeline          Section = "TIMELINE & MILESTONES"
	SectionBudget            Section = "BUDGET & INVESTMENT"
	SectionCreativeDirection Section = "CREATIVE DIRECTION"
	SectionTargetAudience    Section = "TARGET AUDIENCE"
	SectionAdditionalNotes   Section = "ADDITIONAL NOTES"
)

var sectionHeaders = []Section{
	SectionProjectOverview,
	SectionBusinessContext,
	SectionScopeOfWork,
	SectionTimeline,
	SectionBudget,
	SectionCreativeDirection,
	SectionTargetAudience,
	SectionAdditionalNotes,
}

// ParseBrief converts the model's final brief text into a Brief.
// It returns nil only when the PROJECT OVERVIEW section is missing.
func ParseBrief(text string) *domain.Brief {
	sections := splitSections(text)
	overview, ok := sections[SectionProjectOverview]
	if !ok {
		return nil
	}

	brief := &domain.Brief{
		ProjectName: labelValue(overview, "Project Name"),
		ProjectType: labelValue(overview, "Project Type"),
		Company:     labelValue(overview, "Client"),
		Industry:    labelValue(overview, "Industry"),
		BusinessContext: domain.BusinessContext{
			Description:      labelValue(sections[SectionBusinessContext], "Company Description"),
			Objective:        labelValue(sections[SectionBusinessContext], "Project Objective"),
			StrategicContext: labelValue(sections[SectionBusinessContext], "Strategic Context"),
		},
		ScopeOfWork:       parseScopeOfWork(sections[SectionScopeOfWork]),
		Timeline:          parseTimeline(sections[SectionTimeline]),
		Budget:            parseBudget(sections[SectionBudget]),
		CreativeDirection: parseCreativeDirection(sections[SectionCreativeDirection]),
		TargetAudience:    parseTargetAudience(sections[SectionTargetAudience]),
		AdditionalNotes:   strings.TrimSpace(strings.Join(sections[SectionAdditionalNotes], "\n")),
	}
	brief.Normalize()
	return brief
}

// splitSections walks the text line by line. A line equal to a header opens
// that section; every following non-empty line belongs to it until the next header.
func splitSections(text string) map[Section][]string {
	sections := make(map[Section][]string)
	current := SectionNone

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if header, ok := matchHeader(line); ok {
			current = header
			sections[current] = []string{}
			continue
		}
		if current == SectionNone || line == "" {
			continue
		}
		sections[current] = append(sections[current], line)
	}
	return sections
}

func matchHeader(line string) (Section, bool) {
	upper := strings.ToUpper(line)
	for _, header := range sectionHeaders {
		if upper == string(header) {
			return header, true
		}
	}
	return SectionNone, false
}

// labelValue returns the text after the first colon of the first line
// containing "<label>:". Later labels are fallbacks for earlier ones.
func labelValue(lines []string, labels ...string) string {
	for _, label := range labels {
		needle := strings.ToLower(label) + ":"
		for _, line := range lines {
			if !strings.Contains(strings.ToLower(line), needle) {
				continue
			}
			idx := strings.Index(line, ":")
			return strings.TrimSpace(line[idx+1:])
		}
	}
	return ""
}

type scopeState int

const (
	scopeOther scopeState = iota
	scopeDeliverables
	scopeTechSpecs
)

func parseScopeOfWork(lines []string) domain.ScopeOfWork {
	scope := domain.ScopeOfWork{Deliverables: []string{}}
	state := scopeOther

	for _, line := range lines {
		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "primary deliverables:"):
			state = scopeDeliverables
			continue
		case strings.Contains(lower, "technical specifications:"):
			state = scopeTechSpecs
			continue
		}

		item, ok := listItem(line)
		if !ok {
			continue
		}
		switch state {
		case scopeDeliverables:
			scope.Deliverables = append(scope.Deliverables, item)
		case scopeTechSpecs:
			applyTechSpec(&scope.TechnicalSpecs, item)
		}
	}
	return scope
}

func applyTechSpec(specs *domain.TechnicalSpecs, item string) {
	idx := strings.Index(item, ":")
	if idx < 0 {
		return
	}
	key := strings.ToLower(strings.TrimSpace(item[:idx]))
	value := strings.TrimSpace(item[idx+1:])
	if value == "" {
		return
	}

	switch key {
	case "file formats", "formats":
		specs.Formats = splitList(value, ",")
	case "dimensions", "dimensions/orientation", "dimensions/resolution":
		specs.Dimensions = value
	case "resolution":
		specs.Resolution = value
	case "frame rate":
		specs.FrameRate = value
	case "duration":
		specs.Duration = value
	case "color requirements":
		specs.ColorRequirements = value
	case "platform specifications", "platform requirements":
		specs.PlatformSpecs = value
	}
}

func parseTimeline(lines []string) domain.Timeline {
	return domain.Timeline{
		ProjectStart:      labelValue(lines, "Project Start"),
		FirstPresentation: labelValue(lines, "First Concept Presentation"),
		FeedbackDue:       labelValue(lines, "Client Feedback Due"),
		RevisionDeadline:  labelValue(lines, "Revision Deadline"),
		FinalDelivery:     labelValue(lines, "Final Delivery"),
	}
}

func parseBudget(lines []string) domain.Budget {
	return domain.Budget{
		ClientRange:      labelValue(lines, "Client's Initial Budget Range", "Client's Budget Range", "Budget Range"),
		RecommendedValue: labelValue(lines, "Recommended Project Value"),
		Justification:    labelValue(lines, "Budget Justification"),
		PaymentSchedule:  labelValue(lines, "Payment Schedule"),
		AdditionalCosts:  itemsAfter(lines, "additional costs:"),
	}
}

func parseCreativeDirection(lines []string) domain.CreativeDirection {
	return domain.CreativeDirection{
		Style:        labelValue(lines, "Style Preferences", "Style"),
		ColorPalette: labelValue(lines, "Color Palette"),
		Typography:   labelValue(lines, "Typography"),
		Mood:         labelValue(lines, "Mood/Tone"),
		References:   splitList(labelValue(lines, "References"), ","),
	}
}

func parseTargetAudience(lines []string) *domain.TargetAudience {
	primary := labelValue(lines, "Primary Audience")
	if primary == "" {
		return nil
	}
	return &domain.TargetAudience{
		Primary:   primary,
		Secondary: labelValue(lines, "Secondary Audience"),
		Behavior:  labelValue(lines, "User Behavior"),
	}
}

// itemsAfter collects "- " items that directly follow the line holding the sub-label.
func itemsAfter(lines []string, subLabel string) []string {
	var items []string
	collecting := false
	for _, line := range lines {
		if strings.Contains(strings.ToLower(line), subLabel) {
			collecting = true
			continue
		}
		if !collecting {
			continue
		}
		item, ok := listItem(line)
		if !ok {
			break
		}
		items = append(items, item)
	}
	return items
}

func listItem(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "- ") {
		return "", false
	}
	return strings.TrimSpace(trimmed[2:]), true
}

func splitList(value, sep string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
