// config/overlay.go
package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// OverlayRubric replaces the sections present in the override document and
// keeps the base for everything else. base is not modified.
func OverlayRubric(base *Rubric, override []byte) (*Rubric, error) {
	var ov Rubric
	if err := yaml.Unmarshal(override, &ov); err != nil {
		return nil, fmt.Errorf("parse rubric override: %w", err)
	}

	out := *base
	if len(ov.Platforms) > 0 {
		out.Platforms = ov.Platforms
	}
	if len(ov.RedFlags.Critical) > 0 {
		out.RedFlags.Critical = ov.RedFlags.Critical
	}
	if len(ov.RedFlags.High) > 0 {
		out.RedFlags.High = ov.RedFlags.High
	}
	if len(ov.RedFlags.Medium) > 0 {
		out.RedFlags.Medium = ov.RedFlags.Medium
	}
	if len(ov.PositiveSignals) > 0 {
		out.PositiveSignals = ov.PositiveSignals
	}
	if len(ov.Mail.InclusionPatterns) > 0 {
		out.Mail.InclusionPatterns = ov.Mail.InclusionPatterns
	}
	if len(ov.Mail.URLPatterns) > 0 {
		out.Mail.URLPatterns = ov.Mail.URLPatterns
	}
	if len(ov.Mail.JobPathIndicators) > 0 {
		out.Mail.JobPathIndicators = ov.Mail.JobPathIndicators
	}
	if len(ov.Mail.TitlePatterns) > 0 {
		out.Mail.TitlePatterns = ov.Mail.TitlePatterns
	}
	if len(ov.Mail.CompanyPatterns) > 0 {
		out.Mail.CompanyPatterns = ov.Mail.CompanyPatterns
	}
	if len(ov.Mail.StatusRules) > 0 {
		out.Mail.StatusRules = ov.Mail.StatusRules
	}
	if ov.Mail.DefaultStatus != "" {
		out.Mail.DefaultStatus = ov.Mail.DefaultStatus
	}

	if errs := ValidateRubric(&out); len(errs) > 0 {
		return nil, fmt.Errorf("rubric validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return &out, nil
}
