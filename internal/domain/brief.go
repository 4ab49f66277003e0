package domain

const (
	DefaultProjectName   = "Untitled Project"
	DefaultProjectType   = "Creative Project"
	DefaultFinalDelivery = "To be determined"
	DefaultClientRange   = "Not specified"
)

// Brief is the structured creative brief produced at the end of an interview.
type Brief struct {
	ProjectName       string            `json:"projectName"`
	ProjectType       string            `json:"projectType"`
	Company           string            `json:"company,omitempty"`
	Industry          string            `json:"industry,omitempty"`
	BusinessContext   BusinessContext   `json:"businessContext"`
	ScopeOfWork       ScopeOfWork       `json:"scopeOfWork"`
	Timeline          Timeline          `json:"timeline"`
	Budget            Budget            `json:"budget"`
	CreativeDirection CreativeDirection `json:"creativeDirection"`
	TargetAudience    *TargetAudience   `json:"targetAudience,omitempty"`
	AdditionalNotes   string            `json:"additionalNotes,omitempty"`
}

type BusinessContext struct {
	Description      string `json:"description"`
	Objective        string `json:"objective"`
	StrategicContext string `json:"strategicContext"`
}

type ScopeOfWork struct {
	Deliverables   []string       `json:"deliverables"`
	TechnicalSpecs TechnicalSpecs `json:"technicalSpecs"`
}

type TechnicalSpecs struct {
	Formats           []string `json:"formats,omitempty"`
	Dimensions        string   `json:"dimensions,omitempty"`
	Resolution        string   `json:"resolution,omitempty"`
	FrameRate         string   `json:"frameRate,omitempty"`
	Duration          string   `json:"duration,omitempty"`
	ColorRequirements string   `json:"colorRequirements,omitempty"`
	PlatformSpecs     string   `json:"platformSpecs,omitempty"`
}

// IsEmpty reports whether no technical specification was captured.
func (t TechnicalSpecs) IsEmpty() bool {
	return len(t.Formats) == 0 && t.Dimensions == "" && t.Resolution == "" && t.FrameRate == "" &&
		t.Duration == "" && t.ColorRequirements == "" && t.PlatformSpecs == ""
}

type Timeline struct {
	ProjectStart      string `json:"projectStart,omitempty"`
	FirstPresentation string `json:"firstPresentation,omitempty"`
	FeedbackDue       string `json:"feedbackDue,omitempty"`
	RevisionDeadline  string `json:"revisionDeadline,omitempty"`
	FinalDelivery     string `json:"finalDelivery"`
}

type Budget struct {
	ClientRange      string   `json:"clientRange"`
	RecommendedValue string   `json:"recommendedValue,omitempty"`
	Justification    string   `json:"justification,omitempty"`
	PaymentSchedule  string   `json:"paymentSchedule,omitempty"`
	AdditionalCosts  []string `json:"additionalCosts,omitempty"`
}

type CreativeDirection struct {
	Style        string   `json:"style,omitempty"`
	ColorPalette string   `json:"colorPalette,omitempty"`
	Typography   string   `json:"typography,omitempty"`
	Mood         string   `json:"mood,omitempty"`
	References   []string `json:"references,omitempty"`
}

type TargetAudience struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary,omitempty"`
	Behavior  string `json:"behavior,omitempty"`
}

// Normalize fills the fields that must always carry a value.
func (b *Brief) Normalize() {
	if b == nil {
		return
	}
	if b.ProjectName == "" {
		b.ProjectName = DefaultProjectName
	}
	if b.ProjectType == "" {
		b.ProjectType = DefaultProjectType
	}
	if b.Timeline.FinalDelivery == "" {
		b.Timeline.FinalDelivery = DefaultFinalDelivery
	}
	if b.Budget.ClientRange == "" {
		b.Budget.ClientRange = DefaultClientRange
	}
	if b.ScopeOfWork.Deliverables == nil {
		b.ScopeOfWork.Deliverables = []string{}
	}
	if b.TargetAudience != nil && b.TargetAudience.Primary == "" {
		b.TargetAudience = nil
	}
}
