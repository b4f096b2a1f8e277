package domain

import "time"

type Status string

const (
	StatusSaved     Status = "Saved"
	StatusApplied   Status = "Applied"
	StatusInterview Status = "Interview"
	StatusOffer     Status = "Offer"
	StatusRejected  Status = "Rejected"
	StatusGhosted   Status = "Ghosted"
)

var Statuses = []Status{StatusSaved, StatusApplied, StatusInterview, StatusOffer, StatusRejected, StatusGhosted}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

type Source string

const (
	SourceManual    Source = "manual"
	SourceExtension Source = "extension"
	SourceEmail     Source = "email"
	SourceSearch    Source = "search"
)

type StatusChange struct {
	Status    Status    `json:"status"`
	Note      string    `json:"note,omitempty"`
	ChangedAt time.Time `json:"changedAt"`
}

// Job is the persisted application record.
type Job struct {
	ID             int64           `json:"id"`
	Title          string          `json:"title"`
	Company        string          `json:"company"`
	URL            string          `json:"url"`
	Platform       string          `json:"platform"`
	Status         Status          `json:"status"`
	Salary         string          `json:"salary,omitempty"`
	Location       string          `json:"location,omitempty"`
	JobType        string          `json:"jobType,omitempty"`
	Description    string          `json:"description,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	AppliedDate    *time.Time      `json:"appliedDate,omitempty"`
	FollowUpDate   *time.Time      `json:"followUpDate,omitempty"`
	RecruiterName  string          `json:"recruiterName,omitempty"`
	RecruiterEmail string          `json:"recruiterEmail,omitempty"`
	UserEmail      string          `json:"userEmail,omitempty"`
	Analysis       *AnalysisResult `json:"analysis,omitempty"`
	StatusHistory  []StatusChange  `json:"statusHistory"`
	Source         Source          `json:"source"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// SetStatus moves the job to s and records the change. It is a no-op when
// the status is unchanged.
func (j *Job) SetStatus(s Status, note string, at time.Time) bool {
	if j.Status == s {
		return false
	}
	j.Status = s
	j.StatusHistory = append(j.StatusHistory, StatusChange{Status: s, Note: note, ChangedAt: at})
	return true
}

// Placeholders used when an imported application has no extracted fields.
const (
	ImportedTitle   = "Imported from Email"
	ImportedCompany = "Unknown Company"
)
