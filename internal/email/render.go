package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/briefdesk/brief-service/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Renderer turns a brief into email bodies and a standalone page. Every brief
// value goes through html/template escaping.
type Renderer struct {
	publicURL string
	html      *htmltemplate.Template
	text      *texttemplate.Template
	now       func() time.Time
}

type techSpec struct {
	Label string
	Value string
}

type briefView struct {
	Brief       domain.Brief
	TechSpecs   []techSpec
	BriefURL    string
	GeneratedOn string
	Year        int
}

// NewRenderer parses the embedded templates. publicURL prefixes the
// "view brief online" link.
func NewRenderer(publicURL string) (*Renderer, error) {
	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	return &Renderer{
		publicURL: strings.TrimRight(publicURL, "/"),
		html:      html,
		text:      text,
		now:       time.Now,
	}, nil
}

// Subject is the email subject line for the brief.
func (r *Renderer) Subject(brief domain.Brief) string {
	return fmt.Sprintf("Your %s Project Brief - FLOWORK", brief.ProjectType)
}

// BriefURL is the public link to the brief of a conversation.
func (r *Renderer) BriefURL(conversationID string) string {
	return r.publicURL + "/brief/" + conversationID
}

func (r *Renderer) HTML(brief domain.Brief, conversationID string) (string, error) {
	var buf bytes.Buffer
	if err := r.html.ExecuteTemplate(&buf, "brief_email.html.tmpl", r.view(brief, conversationID)); err != nil {
		return "", fmt.Errorf("render html email: %w", err)
	}
	return buf.String(), nil
}

func (r *Renderer) PlainText(brief domain.Brief, conversationID string) (string, error) {
	var buf bytes.Buffer
	if err := r.text.ExecuteTemplate(&buf, "brief_email.txt.tmpl", r.view(brief, conversationID)); err != nil {
		return "", fmt.Errorf("render text email: %w", err)
	}
	return buf.String(), nil
}

// Page renders the full brief as a standalone HTML document.
func (r *Renderer) Page(brief domain.Brief, conversationID string) (string, error) {
	var buf bytes.Buffer
	if err := r.html.ExecuteTemplate(&buf, "brief_page.html.tmpl", r.view(brief, conversationID)); err != nil {
		return "", fmt.Errorf("render brief page: %w", err)
	}
	return buf.String(), nil
}

func (r *Renderer) view(brief domain.Brief, conversationID string) briefView {
	now := r.now()
	return briefView{
		Brief:       brief,
		TechSpecs:   techSpecList(brief.ScopeOfWork.TechnicalSpecs),
		BriefURL:    r.BriefURL(conversationID),
		GeneratedOn: now.Format("January 2, 2006"),
		Year:        now.Year(),
	}
}

func techSpecList(specs domain.TechnicalSpecs) []techSpec {
	entries := []techSpec{
		{"File Formats", strings.Join(specs.Formats, ", ")},
		{"Dimensions/Orientation", specs.Dimensions},
		{"Resolution", specs.Resolution},
		{"Frame Rate", specs.FrameRate},
		{"Duration", specs.Duration},
		{"Color Requirements", specs.ColorRequirements},
		{"Platform Specifications", specs.PlatformSpecs},
	}
	out := entries[:0]
	for _, e := range entries {
		if e.Value != "" {
			out = append(out, e)
		}
	}
	return out
}
