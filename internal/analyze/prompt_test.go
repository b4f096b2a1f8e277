package analyze

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobsentry-engine/internal/config"
	"jobsentry-engine/internal/domain"
)

func TestRubricTextMatchesGolden(t *testing.T) {
	want, err := os.ReadFile("testdata/rubric.golden")
	require.NoError(t, err)

	c := NewComposer(config.DefaultRubric())
	assert.Equal(t, string(want), c.RubricText())
}

func TestComposeIncludesListingData(t *testing.T) {
	c := NewComposer(config.DefaultRubric())
	page := domain.ScrapedPage{Title: "Backend Engineer", BodyText: "We build payments."}
	manual := domain.ManualFields{Company: "Acme", Salary: "$120k"}

	p := c.Compose("https://boards.greenhouse.io/acme/jobs/1", "Greenhouse", page, manual)

	assert.Contains(t, p, "Platform:       Greenhouse\n")
	assert.Contains(t, p, "Page Title:     Backend Engineer\n")
	assert.Contains(t, p, "Company:        Acme\n")
	assert.Contains(t, p, "Manual Title:   N/A\n")
	assert.Contains(t, p, "Pasted JD:      Not provided\n")
	assert.Contains(t, p, "Scraped Text:   We build payments.\n")
	assert.Contains(t, p, c.RubricText())
	assert.Contains(t, p, `"verdict": "REAL" | "FAKE" | "SUSPICIOUS" | "UNKNOWN"`)
	assert.NotContains(t, p, "LOGIN WALL NOTICE")
}

func TestComposeReportsScrapeFailure(t *testing.T) {
	c := NewComposer(config.DefaultRubric())
	p := c.Compose("https://x.example/1", "Other", domain.ScrapedPage{Error: "http 500"}, domain.ManualFields{})
	assert.Contains(t, p, "Scraped Text:   Could not scrape: http 500\n")
}

func TestComposeTruncatesPastedDescription(t *testing.T) {
	c := NewComposer(config.DefaultRubric())
	jd := strings.Repeat("x", 2500)
	p := c.Compose("u", "Other", domain.ScrapedPage{}, domain.ManualFields{Description: jd})
	assert.Contains(t, p, "Pasted JD:      "+strings.Repeat("x", 2000)+"\n")
}

func TestComposeLoginWallRecognizedPlatform(t *testing.T) {
	c := NewComposer(config.DefaultRubric())
	page := domain.ScrapedPage{LoginWall: true, Error: domain.LoginRequired}

	p := c.Compose("https://www.linkedin.com/jobs/view/1", "LinkedIn", page, domain.ManualFields{})

	assert.Contains(t, p, "LOGIN WALL NOTICE")
	assert.Contains(t, p, "Do NOT treat the missing scraped content as a red flag")
	assert.Contains(t, p, "verdict UNKNOWN")
	assert.Contains(t, p, "riskScore between 10 and 20")
	assert.NotContains(t, p, "riskScore between 40 and 60")
}

func TestComposeLoginWallUnknownPlatform(t *testing.T) {
	c := NewComposer(config.DefaultRubric())
	page := domain.ScrapedPage{LoginWall: true, Error: domain.LoginRequired}

	p := c.Compose("https://jobs.example.net/1", "Other", page, domain.ManualFields{})

	assert.Contains(t, p, "verdict SUSPICIOUS")
	assert.Contains(t, p, "riskScore between 40 and 60")
	assert.NotContains(t, p, "riskScore between 10 and 20")
}

func TestComposeIsDeterministic(t *testing.T) {
	c := NewComposer(config.DefaultRubric())
	page := domain.ScrapedPage{Title: "t", BodyText: "b"}
	m := domain.ManualFields{Title: "x"}
	assert.Equal(t, c.Compose("u", "Dice", page, m), c.Compose("u", "Dice", page, m))
}
