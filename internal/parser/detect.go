package parser

import "strings"

// BriefIndicatorThreshold is how many indicator phrases a message must contain
// before it is treated as the final brief rather than an interview turn.
const BriefIndicatorThreshold = 3

var briefIndicators = []string{
	string(SectionProjectOverview),
	string(SectionBusinessContext),
	string(SectionScopeOfWork),
	string(SectionTimeline),
	string(SectionBudget),
	"Project Name:",
	"Project Type:",
	"Primary Deliverables:",
}

// CountBriefIndicators returns how many distinct indicator phrases appear in text.
func CountBriefIndicators(text string) int {
	lower := strings.ToLower(text)
	count := 0
	for _, indicator := range briefIndicators {
		if strings.Contains(lower, strings.ToLower(indicator)) {
			count++
		}
	}
	return count
}

// IsBriefContent reports whether text looks like a finished brief.
func IsBriefContent(text string) bool {
	return CountBriefIndicators(text) >= BriefIndicatorThreshold
}
