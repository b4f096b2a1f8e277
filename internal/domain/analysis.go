package domain

import "time"

type Verdict string

const (
	VerdictReal       Verdict = "REAL"
	VerdictFake       Verdict = "FAKE"
	VerdictSuspicious Verdict = "SUSPICIOUS"
	VerdictUnknown    Verdict = "UNKNOWN"
)

func (v Verdict) Valid() bool {
	switch v {
	case VerdictReal, VerdictFake, VerdictSuspicious, VerdictUnknown:
		return true
	}
	return false
}

// Alarming reports whether the verdict should notify the user.
func (v Verdict) Alarming() bool {
	return v == VerdictFake || v == VerdictSuspicious
}

type AnalysisResult struct {
	Verdict          Verdict   `json:"verdict"`
	Confidence       int       `json:"confidence"`
	RiskScore        int       `json:"riskScore"`
	Summary          string    `json:"summary"`
	RedFlags         []string  `json:"redFlags"`
	PositiveSignals  []string  `json:"positiveSignals"`
	Recommendation   string    `json:"recommendation"`
	ExtractedTitle   string    `json:"extractedTitle,omitempty"`
	ExtractedCompany string    `json:"extractedCompany,omitempty"`
	Platform         string    `json:"platform"`
	ScrapedOK        bool      `json:"scrapedOk"`
	LoginWall        bool      `json:"loginWall"`
	AnalyzedAt       time.Time `json:"analyzedAt"`
}

// UnknownAnalysis is the record callers substitute when a completion fails.
func UnknownAnalysis(platform string, at time.Time) AnalysisResult {
	return AnalysisResult{
		Verdict:         VerdictUnknown,
		Confidence:      0,
		RiskScore:       0,
		Summary:         "Analysis failed. Please try again or analyze manually.",
		RedFlags:        []string{},
		PositiveSignals: []string{},
		Recommendation:  "Verify the company independently before sharing personal details.",
		Platform:        platform,
		AnalyzedAt:      at,
	}
}

// ManualFields are user-supplied listing details that supplement scraping.
type ManualFields struct {
	Title       string `json:"title,omitempty"`
	Company     string `json:"company,omitempty"`
	Description string `json:"description,omitempty"`
	Salary      string `json:"salary,omitempty"`
	Location    string `json:"location,omitempty"`
}

func (m ManualFields) Empty() bool {
	return m.Title == "" && m.Company == "" && m.Description == "" && m.Salary == "" && m.Location == ""
}

// ScrapedPage is the fetcher output. LoginWall implies Error == LoginRequired
// and every text field empty.
type ScrapedPage struct {
	Title         string `json:"title"`
	OGTitle       string `json:"ogTitle"`
	OGDescription string `json:"ogDescription"`
	BodyText      string `json:"bodyText"`
	LoginWall     bool   `json:"loginWall"`
	Error         string `json:"error,omitempty"`
}

const LoginRequired = "LOGIN_REQUIRED"

// EmailApplication is one classified job-application email.
type EmailApplication struct {
	Subject      string    `json:"subject"`
	EmailFrom    string    `json:"emailFrom"`
	ReceivedDate time.Time `json:"receivedDate"`
	URLs         []string  `json:"urls"`
	Title        string    `json:"title,omitempty"`
	Company      string    `json:"company,omitempty"`
	Status       Status    `json:"status"`
}
