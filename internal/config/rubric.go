package config

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rubric.yml
var defaultRubric []byte

type Platform struct {
	Domain string `yaml:"domain" json:"domain"`
	Name   string `yaml:"name" json:"name"`
}

type StatusRule struct {
	Status  string `yaml:"status" json:"status"`
	Pattern string `yaml:"pattern" json:"pattern"`
}

type RedFlags struct {
	Critical []string `yaml:"critical" json:"critical"`
	High     []string `yaml:"high" json:"high"`
	Medium   []string `yaml:"medium" json:"medium"`
}

type MailRules struct {
	InclusionPatterns []string     `yaml:"inclusion_patterns" json:"inclusion_patterns"`
	URLPatterns       []string     `yaml:"url_patterns" json:"url_patterns"`
	JobPathIndicators []string     `yaml:"job_path_indicators" json:"job_path_indicators"`
	TitlePatterns     []string     `yaml:"title_patterns" json:"title_patterns"`
	CompanyPatterns   []string     `yaml:"company_patterns" json:"company_patterns"`
	StatusRules       []StatusRule `yaml:"status_rules" json:"status_rules"`
	DefaultStatus     string       `yaml:"default_status" json:"default_status"`
}

// Rubric is the immutable heuristic data shared by the classifier, the
// prompt composer and the mail scanner. Treat a loaded *Rubric as read-only.
type Rubric struct {
	Platforms       []Platform `yaml:"platforms" json:"platforms"`
	RedFlags        RedFlags   `yaml:"red_flags" json:"red_flags"`
	PositiveSignals []string   `yaml:"positive_signals" json:"positive_signals"`
	Mail            MailRules  `yaml:"mail" json:"mail"`
}

// DefaultRubric parses the embedded rubric. It panics on a broken build.
func DefaultRubric() *Rubric {
	r, err := ParseRubric(defaultRubric)
	if err != nil {
		panic(fmt.Sprintf("embedded rubric: %v", err))
	}
	return r
}

func ParseRubric(b []byte) (*Rubric, error) {
	var r Rubric
	if err := yaml.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("parse rubric: %w", err)
	}
	if errs := ValidateRubric(&r); len(errs) > 0 {
		return nil, fmt.Errorf("rubric validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return &r, nil
}

// LoadRubric returns the embedded rubric with any override file overlaid.
// An empty path means no override.
func LoadRubric(overridePath string) (*Rubric, error) {
	base := DefaultRubric()
	if strings.TrimSpace(overridePath) == "" {
		return base, nil
	}
	b, err := os.ReadFile(overridePath)
	if err != nil {
		return nil, fmt.Errorf("read rubric override: %w", err)
	}
	return OverlayRubric(base, b)
}

// ValidateRubric checks the tables the rest of the engine relies on.
func ValidateRubric(r *Rubric) []string {
	var errs []string

	if len(r.Platforms) == 0 {
		errs = append(errs, "platforms must not be empty")
	}
	for i, p := range r.Platforms {
		d := strings.ToLower(strings.TrimSpace(p.Domain))
		if d == "" || strings.TrimSpace(p.Name) == "" {
			errs = append(errs, fmt.Sprintf("platforms[%d] needs domain and name", i))
			continue
		}
		if p.Name == OtherPlatform {
			errs = append(errs, fmt.Sprintf("platforms[%d].name %q is reserved", i, OtherPlatform))
		}
		// No domain may contain another, so classification never depends on order.
		for j, q := range r.Platforms {
			if i == j {
				continue
			}
			e := strings.ToLower(strings.TrimSpace(q.Domain))
			if e != "" && d != e && strings.Contains(e, d) {
				errs = append(errs, fmt.Sprintf("platform domain %q overlaps %q", p.Domain, q.Domain))
			}
			if i < j && d == e {
				errs = append(errs, fmt.Sprintf("platform domain %q listed twice", p.Domain))
			}
		}
	}

	if len(r.RedFlags.Critical) == 0 {
		errs = append(errs, "red_flags.critical must not be empty")
	}

	checkPatterns := func(name string, pats []string) {
		for i, p := range pats {
			if _, err := regexp.Compile(p); err != nil {
				errs = append(errs, fmt.Sprintf("%s[%d]: %v", name, i, err))
			}
		}
	}
	checkPatterns("mail.inclusion_patterns", r.Mail.InclusionPatterns)
	checkPatterns("mail.url_patterns", r.Mail.URLPatterns)
	checkPatterns("mail.title_patterns", r.Mail.TitlePatterns)
	checkPatterns("mail.company_patterns", r.Mail.CompanyPatterns)
	for i, s := range r.Mail.StatusRules {
		if s.Status == "" {
			errs = append(errs, fmt.Sprintf("mail.status_rules[%d].status is required", i))
		}
		if _, err := regexp.Compile(s.Pattern); err != nil {
			errs = append(errs, fmt.Sprintf("mail.status_rules[%d]: %v", i, err))
		}
	}
	if r.Mail.DefaultStatus == "" {
		errs = append(errs, "mail.default_status is required")
	}
	return errs
}

// OtherPlatform is the classifier result for URLs outside the table.
const OtherPlatform = "Other"
