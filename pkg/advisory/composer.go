package advisory

import (
	"context"
	"fmt"

	"github.com/caseproof/custody-core/pkg/config"
	"github.com/caseproof/custody-core/pkg/contract"
	"github.com/caseproof/custody-core/pkg/jurisdiction"
)

// GuidanceComposer is a minimal Composer that derives recommendations from
// finding categories and severities plus the jurisdiction guidance profile.
// It works exclusively on abstracted inputs; a richer composer can replace
// it without touching the pipeline.
type GuidanceComposer struct{}

// NewGuidanceComposer creates the default composer.
func NewGuidanceComposer() *GuidanceComposer {
	return &GuidanceComposer{}
}

func (c *GuidanceComposer) Compose(_ context.Context, summary *contract.SealedSummary, assignment jurisdiction.Assignment, profile *config.GuidanceProfile) (*Response, error) {
	resp := &Response{
		Recommendations: []string{},
		NextSteps:       []string{},
		RiskFactors:     []string{},
		Disclaimers:     append([]string{}, profile.Disclaimers...),
	}

	critical := 0
	for _, f := range summary.Findings {
		resp.Recommendations = append(resp.Recommendations,
			fmt.Sprintf("Preserve sealed evidence for %s (%d items, severity %s)", f.Category, f.EvidenceCount, f.Severity))
		if f.Severity == contract.SeverityCritical || f.Severity == contract.SeverityHigh {
			critical++
		}
	}

	if critical > 0 {
		resp.RiskFactors = append(resp.RiskFactors,
			fmt.Sprintf("%d high-severity findings require priority handling", critical))
		if profile.EscalationContact != "" {
			resp.NextSteps = append(resp.NextSteps, "Escalate to "+profile.EscalationContact)
		}
	}
	if assignment.CrossBorder {
		resp.RiskFactors = append(resp.RiskFactors,
			"Evidence spans multiple jurisdictions; cross-border disclosure rules apply")
	}
	if assignment.Primary == jurisdiction.CodeUnknown {
		resp.NextSteps = append(resp.NextSteps,
			"Jurisdiction could not be determined from coordinates; apply jurisdiction-neutral procedure")
	}

	resp.NextSteps = append(resp.NextSteps, profile.HandlingNotes...)
	resp.NextSteps = append(resp.NextSteps,
		fmt.Sprintf("Retain records for %d days per applicable policy", profile.RetentionDays))

	return resp, nil
}
