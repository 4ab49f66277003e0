// Package prompts holds the interview instructions sent to the chat model.
package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Set is the prompt configuration. Sections are joined in field order to
// build the system prompt.
type Set struct {
	System                string `yaml:"system"`
	Interview             string `yaml:"interview"`
	BriefTemplate         string `yaml:"brief_template"`
	ContactCollection     string `yaml:"contact_collection"`
	ContentFilterFallback string `yaml:"content_filter_fallback"`
}

// Default returns the embedded prompt set.
func Default() (*Set, error) {
	var set Set
	if err := yaml.Unmarshal(defaultYAML, &set); err != nil {
		return nil, fmt.Errorf("parse embedded prompts: %w", err)
	}
	return &set, nil
}

// Load reads path over the embedded defaults; keys missing from the file keep
// their default text. An empty path returns the defaults.
func Load(path string) (*Set, error) {
	set, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return set, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}
	var override Set
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse prompts file %s: %w", path, err)
	}
	set.merge(override)
	return set, nil
}

func (s *Set) merge(o Set) {
	if o.System != "" {
		s.System = o.System
	}
	if o.Interview != "" {
		s.Interview = o.Interview
	}
	if o.BriefTemplate != "" {
		s.BriefTemplate = o.BriefTemplate
	}
	if o.ContactCollection != "" {
		s.ContactCollection = o.ContactCollection
	}
	if o.ContentFilterFallback != "" {
		s.ContentFilterFallback = o.ContentFilterFallback
	}
}

// SystemPrompt is the full instruction text for the given 1-based interview step.
func (s *Set) SystemPrompt(step int) string {
	var parts []string
	for _, section := range []string{s.System, s.Interview, s.BriefTemplate, s.ContactCollection} {
		if section = strings.TrimSpace(section); section != "" {
			parts = append(parts, section)
		}
	}
	return fmt.Sprintf("%s\n\nCurrent interview step: %d", strings.Join(parts, "\n\n"), step)
}

// Fallback is the reply used when the model provider rejects the input.
func (s *Set) Fallback() string {
	return strings.TrimSpace(s.ContentFilterFallback)
}
