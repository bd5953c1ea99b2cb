package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// GuidanceProfile carries the jurisdiction-specific output configuration
// used when composing advisory responses: disclaimers, escalation contacts,
// retention policy. Profiles are content for the advisory layer, never
// logic; the router decides which one applies.
type GuidanceProfile struct {
	Name              string   `yaml:"name" json:"name"`
	Code              string   `yaml:"code" json:"code"`
	Disclaimers       []string `yaml:"disclaimers" json:"disclaimers"`
	EscalationContact string   `yaml:"escalation_contact,omitempty" json:"escalation_contact,omitempty"`
	RetentionDays     int      `yaml:"retention_days" json:"retention_days"`
	HandlingNotes     []string `yaml:"handling_notes,omitempty" json:"handling_notes,omitempty"`
}

// FallbackCode names the jurisdiction-agnostic profile used when routing
// yields UNKNOWN.
const FallbackCode = "DEFAULT"

// LoadProfile loads a guidance profile by jurisdiction code from dir,
// looking for profile_<code>.yaml. Codes are matched case-insensitively.
func LoadProfile(dir, code string) (*GuidanceProfile, error) {
	name := fmt.Sprintf("profile_%s.yaml", strings.ToLower(code))
	path := filepath.Join(dir, name)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("guidance profile %s unavailable: %w", code, err)
	}

	var p GuidanceProfile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("guidance profile %s malformed: %w", code, err)
	}
	if p.Code == "" {
		p.Code = strings.ToUpper(code)
	}
	return &p, nil
}

// LoadProfileOrFallback loads the profile for code, falling back to the
// jurisdiction-agnostic DEFAULT profile, and finally to a built-in minimal
// profile so advisory output is never blocked on missing configuration.
func LoadProfileOrFallback(dir, code string) *GuidanceProfile {
	if p, err := LoadProfile(dir, code); err == nil {
		return p
	}
	if p, err := LoadProfile(dir, FallbackCode); err == nil {
		return p
	}
	return &GuidanceProfile{
		Name: "Jurisdiction-agnostic guidance",
		Code: FallbackCode,
		Disclaimers: []string{
			"Guidance is informational and jurisdiction-neutral; consult local counsel.",
		},
		RetentionDays: 365,
	}
}
