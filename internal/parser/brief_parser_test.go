package parser

import (
	"reflect"
	"testing"

	"github.com/briefdesk/brief-service/internal/domain"
)

const sampleBrief = `Perfect! Here is your creative brief.

PROJECT OVERVIEW
Project Name: Siam Coffee Rebrand
Project Type: Logo Design
Client: Siam Coffee Co.
Industry: Food & Beverage

BUSINESS CONTEXT
Company Description: Specialty roaster in Chiang Mai
Project Objective: Refresh the brand for export markets
Strategic Context: Entering Japanese retail: Q3 launch

SCOPE OF WORK
Primary Deliverables:
- Primary logo
- Secondary mark
Technical Specifications:
- File Formats: AI, SVG, PNG
- Dimensions/Orientation: Square and horizontal
- Color Requirements: CMYK and RGB
- Platform Specifications: Packaging, web
Notes on scope are free text.
- stray bullet after notes

TIMELINE & MILESTONES
Project Start: 1 March
First Concept Presentation: 15 March
Final Delivery: 30 April

BUDGET & INVESTMENT
Client's Initial Budget Range: 15,000 - 50,000 THB
Recommended Project Value: 45,000 THB
Payment Schedule: 50% upfront
Additional Costs:
- Printing proofs
- Rush fee

CREATIVE DIRECTION
Style Preferences: Minimal, warm
Color Palette: Earth tones
Mood/Tone: Friendly
References: Blue Bottle, % Arabica

TARGET AUDIENCE
Primary Audience: Urban professionals 25-40
User Behavior: Buys coffee online weekly

ADDITIONAL NOTES
Client prefers Thai-language packaging copy.
Keep the existing bean motif.
`

func TestParseBrief_FullDocument(t *testing.T) {
	brief := ParseBrief(sampleBrief)
	if brief == nil {
		t.Fatal("expected brief, got nil")
	}

	checks := []struct {
		name string
		got  string
		want string
	}{
		{"projectName", brief.ProjectName, "Siam Coffee Rebrand"},
		{"projectType", brief.ProjectType, "Logo Design"},
		{"company", brief.Company, "Siam Coffee Co."},
		{"industry", brief.Industry, "Food & Beverage"},
		{"description", brief.BusinessContext.Description, "Specialty roaster in Chiang Mai"},
		{"strategicContext", brief.BusinessContext.StrategicContext, "Entering Japanese retail: Q3 launch"},
		{"dimensions", brief.ScopeOfWork.TechnicalSpecs.Dimensions, "Square and horizontal"},
		{"colorRequirements", brief.ScopeOfWork.TechnicalSpecs.ColorRequirements, "CMYK and RGB"},
		{"platformSpecs", brief.ScopeOfWork.TechnicalSpecs.PlatformSpecs, "Packaging, web"},
		{"projectStart", brief.Timeline.ProjectStart, "1 March"},
		{"firstPresentation", brief.Timeline.FirstPresentation, "15 March"},
		{"revisionDeadline", brief.Timeline.RevisionDeadline, ""},
		{"finalDelivery", brief.Timeline.FinalDelivery, "30 April"},
		{"clientRange", brief.Budget.ClientRange, "15,000 - 50,000 THB"},
		{"recommendedValue", brief.Budget.RecommendedValue, "45,000 THB"},
		{"style", brief.CreativeDirection.Style, "Minimal, warm"},
		{"mood", brief.CreativeDirection.Mood, "Friendly"},
		{"additionalNotes", brief.AdditionalNotes, "Client prefers Thai-language packaging copy.\nKeep the existing bean motif."},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.name, c.got, c.want)
		}
	}

	wantDeliverables := []string{"Primary logo", "Secondary mark"}
	if !reflect.DeepEqual(brief.ScopeOfWork.Deliverables, wantDeliverables) {
		t.Errorf("deliverables = %v, want %v", brief.ScopeOfWork.Deliverables, wantDeliverables)
	}
	wantFormats := []string{"AI", "SVG", "PNG"}
	if !reflect.DeepEqual(brief.ScopeOfWork.TechnicalSpecs.Formats, wantFormats) {
		t.Errorf("formats = %v, want %v", brief.ScopeOfWork.TechnicalSpecs.Formats, wantFormats)
	}
	wantRefs := []string{"Blue Bottle", "% Arabica"}
	if !reflect.DeepEqual(brief.CreativeDirection.References, wantRefs) {
		t.Errorf("references = %v, want %v", brief.CreativeDirection.References, wantRefs)
	}
	wantCosts := []string{"Printing proofs", "Rush fee"}
	if !reflect.DeepEqual(brief.Budget.AdditionalCosts, wantCosts) {
		t.Errorf("additionalCosts = %v, want %v", brief.Budget.AdditionalCosts, wantCosts)
	}
	if brief.TargetAudience == nil || brief.TargetAudience.Primary != "Urban professionals 25-40" {
		t.Fatalf("targetAudience = %+v", brief.TargetAudience)
	}
	if brief.TargetAudience.Behavior != "Buys coffee online weekly" {
		t.Errorf("behavior = %q", brief.TargetAudience.Behavior)
	}
}

func TestParseBrief_ProjectNameIsTrimmedValue(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"plain", "Project Name: Aurora", "Aurora"},
		{"extra spaces", "Project Name:    Aurora Campaign   ", "Aurora Campaign"},
		{"colon in value", "Project Name: Aurora: Phase 2", "Aurora: Phase 2"},
		{"empty value", "Project Name:", domain.DefaultProjectName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			brief := ParseBrief("PROJECT OVERVIEW\n" + tt.line + "\n")
			if brief == nil {
				t.Fatal("expected brief, got nil")
			}
			if brief.ProjectName != tt.want {
				t.Errorf("projectName = %q, want %q", brief.ProjectName, tt.want)
			}
		})
	}
}

func TestParseBrief_MissingOverviewReturnsNil(t *testing.T) {
	inputs := map[string]string{
		"empty":            "",
		"question":         "What is your Project Type: logo, website or video?",
		"other sections":   "BUSINESS CONTEXT\nCompany Description: x\n\nBUDGET & INVESTMENT\nClient's Initial Budget Range: 1 THB",
		"header not alone": "Here is the PROJECT OVERVIEW for you\nProject Name: X",
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			if got := ParseBrief(input); got != nil {
				t.Errorf("expected nil, got %+v", got)
			}
		})
	}
}

func TestParseBrief_DefaultsForMissingSections(t *testing.T) {
	brief := ParseBrief("  project overview  \nClient: Acme\n")
	if brief == nil {
		t.Fatal("expected brief, got nil")
	}
	if brief.ProjectName != domain.DefaultProjectName {
		t.Errorf("projectName = %q", brief.ProjectName)
	}
	if brief.ProjectType != domain.DefaultProjectType {
		t.Errorf("projectType = %q", brief.ProjectType)
	}
	if brief.Timeline.FinalDelivery != domain.DefaultFinalDelivery {
		t.Errorf("finalDelivery = %q", brief.Timeline.FinalDelivery)
	}
	if brief.Budget.ClientRange != domain.DefaultClientRange {
		t.Errorf("clientRange = %q", brief.Budget.ClientRange)
	}
	if brief.ScopeOfWork.Deliverables == nil || len(brief.ScopeOfWork.Deliverables) != 0 {
		t.Errorf("deliverables = %#v, want empty list", brief.ScopeOfWork.Deliverables)
	}
	if brief.TargetAudience != nil {
		t.Errorf("targetAudience = %+v, want nil", brief.TargetAudience)
	}
	if brief.Company != "Acme" {
		t.Errorf("company = %q", brief.Company)
	}
}

func TestParseBrief_BudgetRangeFallback(t *testing.T) {
	brief := ParseBrief("PROJECT OVERVIEW\nProject Name: X\nBUDGET & INVESTMENT\nBudget Range: 20,000 THB\n")
	if brief == nil {
		t.Fatal("expected brief")
	}
	if brief.Budget.ClientRange != "20,000 THB" {
		t.Errorf("clientRange = %q", brief.Budget.ClientRange)
	}
}

func TestParseLegacyBrief(t *testing.T) {
	text := `# Creative Brief: Harbor Festival

## Project Overview
**Project Name:** Harbor Festival Identity
**Project Type:** Event Branding
**Client:** Harbor Council

## Scope of Work
**Primary Deliverables:**
- Festival logo
- Poster series
1. Wristband design

**File formats:** AI; PDF, PNG
**Final Delivery:** June 1

**Budget Range:** 80,000 THB
**Company Description:** Coastal city council
that runs a yearly festival
Next paragraph starts here.
`
	if ParseBrief(text) != nil {
		t.Fatal("structured parser must not accept markdown headings")
	}

	brief := ParseLegacyBrief(text)
	if brief.ProjectName != "Harbor Festival Identity" {
		t.Errorf("projectName = %q", brief.ProjectName)
	}
	if brief.ProjectType != "Event Branding" {
		t.Errorf("projectType = %q", brief.ProjectType)
	}
	if brief.Company != "Harbor Council" {
		t.Errorf("company = %q", brief.Company)
	}
	wantDeliverables := []string{"Festival logo", "Poster series", "Wristband design"}
	if !reflect.DeepEqual(brief.ScopeOfWork.Deliverables, wantDeliverables) {
		t.Errorf("deliverables = %v, want %v", brief.ScopeOfWork.Deliverables, wantDeliverables)
	}
	wantFormats := []string{"AI", "PDF", "PNG"}
	if !reflect.DeepEqual(brief.ScopeOfWork.TechnicalSpecs.Formats, wantFormats) {
		t.Errorf("formats = %v, want %v", brief.ScopeOfWork.TechnicalSpecs.Formats, wantFormats)
	}
	if brief.Timeline.FinalDelivery != "June 1" {
		t.Errorf("finalDelivery = %q", brief.Timeline.FinalDelivery)
	}
	if brief.Budget.ClientRange != "80,000 THB" {
		t.Errorf("clientRange = %q", brief.Budget.ClientRange)
	}
	if brief.BusinessContext.Description != "Coastal city council" {
		t.Errorf("description = %q", brief.BusinessContext.Description)
	}
}

func TestParseLegacyBrief_Defaults(t *testing.T) {
	brief := ParseLegacyBrief("# Creative Brief: Empty")
	if brief.ProjectName != domain.DefaultProjectName {
		t.Errorf("projectName = %q", brief.ProjectName)
	}
	if brief.ProjectType != legacyDefaultProjectType {
		t.Errorf("projectType = %q", brief.ProjectType)
	}
	if brief.Timeline.FinalDelivery != domain.DefaultFinalDelivery {
		t.Errorf("finalDelivery = %q", brief.Timeline.FinalDelivery)
	}
	if brief.Budget.ClientRange != domain.DefaultClientRange {
		t.Errorf("clientRange = %q", brief.Budget.ClientRange)
	}
	if brief.TargetAudience != nil {
		t.Errorf("targetAudience = %+v", brief.TargetAudience)
	}
}

func TestMatchHeader(t *testing.T) {
	tests := []struct {
		line string
		want Section
		ok   bool
	}{
		{line: "PROJECT OVERVIEW", want: SectionProjectOverview, ok: true},
		{line: "Project Overview", want: SectionProjectOverview, ok: true},
		{line: "budget & investment", want: SectionBudget, ok: true},
		{line: "PROJECT OVERVIEW:", ok: false},
		{line: "## PROJECT OVERVIEW", ok: false},
		{line: "Project Overview of the rebrand", ok: false},
		{line: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := matchHeader(tt.line)
			if ok != tt.ok || got != tt.want {
				t.Errorf("matchHeader(%q) = %q, %v; want %q, %v", tt.line, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseBrief_MixedCaseHeaders(t *testing.T) {
	brief := ParseBrief("Project Overview\nProject Name: Harbor\n\nBudget & Investment\nClient's Initial Budget Range: 20,000 THB\n")
	if brief == nil {
		t.Fatal("expected a brief")
	}
	if brief.ProjectName != "Harbor" || brief.Budget.ClientRange != "20,000 THB" {
		t.Errorf("brief = %+v", brief)
	}
}
