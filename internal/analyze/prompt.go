package analyze

import (
	"fmt"
	"strings"

	"jobsentry-engine/internal/config"
	"jobsentry-engine/internal/domain"
	"jobsentry-engine/internal/platform"
	"jobsentry-engine/internal/scrape/util"
)

const maxPastedJD = 2000

// Composer turns a listing into the instruction text sent to the model.
// The rubric section is rendered once and reused for every prompt.
type Composer struct {
	rubricText string
}

func NewComposer(r *config.Rubric) *Composer {
	return &Composer{rubricText: renderRubric(r)}
}

// RubricText is the fixed red-flag and positive-signal section.
func (c *Composer) RubricText() string { return c.rubricText }

// Compose is deterministic for equal inputs.
func (c *Composer) Compose(url, platformName string, page domain.ScrapedPage, manual domain.ManualFields) string {
	var b strings.Builder

	b.WriteString("You are an expert in detecting fraudulent job listings. Your analysis must be thorough and accurate.\n\n")

	b.WriteString("=== JOB LISTING DATA ===\n")
	field(&b, "URL", url)
	field(&b, "Platform", platformName)
	field(&b, "Page Title", orNA(page.Title, manual.Title))
	field(&b, "OG Title", orNA(page.OGTitle))
	field(&b, "OG Description", orNA(page.OGDescription))
	field(&b, "Manual Title", orNA(manual.Title))
	field(&b, "Company", orNA(manual.Company))
	field(&b, "Salary", orNA(manual.Salary))
	field(&b, "Location", orNA(manual.Location))
	if manual.Description != "" {
		field(&b, "Pasted JD", util.Truncate(manual.Description, maxPastedJD))
	} else {
		field(&b, "Pasted JD", "Not provided")
	}
	if page.BodyText != "" {
		field(&b, "Scraped Text", page.BodyText)
	} else {
		reason := page.Error
		if reason == "" {
			reason = "unknown error"
		}
		field(&b, "Scraped Text", "Could not scrape: "+reason)
	}
	b.WriteString("\n")

	if page.LoginWall {
		b.WriteString(loginWallNotice(platformName))
		b.WriteString("\n")
	}

	b.WriteString(c.rubricText)
	b.WriteString("\n")
	b.WriteString(outputFormat)
	return b.String()
}

func loginWallNotice(platformName string) string {
	var b strings.Builder
	b.WriteString("=== LOGIN WALL NOTICE ===\n")
	fmt.Fprintf(&b, "The listing page requires sign-in (platform: %s), so no page content could be scraped.\n", platformName)
	b.WriteString("  - Do NOT treat the missing scraped content as a red flag.\n")
	b.WriteString("  - Prefer the manual data above when it is provided.\n")
	if platformName == platform.Other {
		b.WriteString("  - This is not a recognized job platform. If manual data is also absent, return verdict SUSPICIOUS with riskScore between 40 and 60.\n")
	} else {
		b.WriteString("  - If manual data is also absent, return verdict UNKNOWN (not FAKE) with riskScore between 10 and 20.\n")
	}
	return b.String()
}

func renderRubric(r *config.Rubric) string {
	var b strings.Builder
	b.WriteString("=== ANALYZE FOR THESE RED FLAGS ===\n")
	list(&b, "CRITICAL (each alone = FAKE):", r.RedFlags.Critical)
	list(&b, "HIGH RISK:", r.RedFlags.High)
	list(&b, "MEDIUM RISK:", r.RedFlags.Medium)
	b.WriteString("\n=== POSITIVE SIGNALS ===\n")
	list(&b, "", r.PositiveSignals)
	return b.String()
}

const outputFormat = `=== OUTPUT FORMAT ===
Respond ONLY with a raw JSON object (no markdown, no backticks, no explanation outside JSON):
{
  "verdict": "REAL" | "FAKE" | "SUSPICIOUS" | "UNKNOWN",
  "confidence": <integer 0-100>,
  "riskScore": <integer 0-100>,
  "summary": "<2-3 concise sentences explaining your verdict>",
  "redFlags": ["<specific flag found>", ...],
  "positiveSignals": ["<specific positive>", ...],
  "recommendation": "<1-2 sentences of actionable advice for the job seeker>",
  "extractedTitle": "<job title from page or manual data>",
  "extractedCompany": "<company name from page or manual data>"
}
Every field is required. Use [] for an empty list.
`

func field(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%-16s%s\n", label+":", value)
}

func list(b *strings.Builder, heading string, items []string) {
	if heading != "" {
		b.WriteString(heading + "\n")
	}
	for _, it := range items {
		b.WriteString("  - " + it + "\n")
	}
}

func orNA(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return "N/A"
}
