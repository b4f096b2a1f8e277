package httpapi

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"jobsentry-engine/internal/config"
	"jobsentry-engine/internal/domain"
	"jobsentry-engine/internal/events"
	"jobsentry-engine/internal/store"
)

type JobsHandler struct {
	Store    store.JobStore
	Hub      *events.Hub
	Classify func(url string) string
	Alerts   Alerter
	CfgVal   *atomic.Value // config.Config
}

type createJobReq struct {
	Title          string                 `json:"title" validate:"required,max=300"`
	Company        string                 `json:"company" validate:"required,max=300"`
	URL            string                 `json:"url" validate:"required,url,max=2048"`
	Status         string                 `json:"status" validate:"omitempty,oneof=Saved Applied Interview Offer Rejected Ghosted"`
	Salary         string                 `json:"salary" validate:"max=200"`
	Location       string                 `json:"location" validate:"max=200"`
	JobType        string                 `json:"jobType" validate:"max=100"`
	Description    string                 `json:"description" validate:"max=20000"`
	Notes          string                 `json:"notes" validate:"max=5000"`
	UserEmail      string                 `json:"userEmail" validate:"omitempty,email"`
	RecruiterName  string                 `json:"recruiterName" validate:"max=200"`
	RecruiterEmail string                 `json:"recruiterEmail" validate:"omitempty,email"`
	AppliedDate    *time.Time             `json:"appliedDate"`
	FollowUpDate   *time.Time             `json:"followUpDate"`
	Analysis       *domain.AnalysisResult `json:"analysis"`
	Source         string                 `json:"source" validate:"omitempty,oneof=manual extension email search"`
}

type patchJobReq struct {
	Title          *string                `json:"title" validate:"omitempty,min=1,max=300"`
	Company        *string                `json:"company" validate:"omitempty,min=1,max=300"`
	URL            *string                `json:"url" validate:"omitempty,url,max=2048"`
	Status         *string                `json:"status" validate:"omitempty,oneof=Saved Applied Interview Offer Rejected Ghosted"`
	StatusNote     string                 `json:"statusNote" validate:"max=500"`
	Salary         *string                `json:"salary" validate:"omitempty,max=200"`
	Location       *string                `json:"location" validate:"omitempty,max=200"`
	JobType        *string                `json:"jobType" validate:"omitempty,max=100"`
	Description    *string                `json:"description" validate:"omitempty,max=20000"`
	Notes          *string                `json:"notes" validate:"omitempty,max=5000"`
	RecruiterName  *string                `json:"recruiterName" validate:"omitempty,max=200"`
	RecruiterEmail *string                `json:"recruiterEmail" validate:"omitempty,email"`
	AppliedDate    *time.Time             `json:"appliedDate"`
	FollowUpDate   *time.Time             `json:"followUpDate"`
	Analysis       *domain.AnalysisResult `json:"analysis"`
}

type extensionJobReq struct {
	URL         string `json:"url" validate:"required,url,max=2048"`
	Title       string `json:"title" validate:"required,max=300"`
	Company     string `json:"company" validate:"max=300"`
	Description string `json:"description" validate:"max=20000"`
	Salary      string `json:"salary" validate:"max=200"`
	Location    string `json:"location" validate:"max=200"`
}

func (h JobsHandler) emit(r *http.Request, typ string, data any) {
	if h.Hub != nil {
		h.Hub.Emit(RequestIDFrom(r.Context()), typ, data)
	}
}

func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	jobs, err := h.Store.List(r.Context(), store.JobFilter{
		Status:   q.Get("status"),
		Platform: q.Get("platform"),
		Verdict:  q.Get("verdict"),
		Search:   q.Get("search"),
		Sort:     q.Get("sort"),
		Limit:    limit,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, jobs)
}

func (h JobsHandler) GetByPath(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(r.URL.Path, "/api/jobs/")
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	job, err := h.Store.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, job)
}

func (h JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createJobReq
	if !decodeBody(w, r, &req) {
		return
	}

	status := domain.Status(req.Status)
	if status == "" {
		status = domain.StatusApplied
	}
	source := domain.Source(req.Source)
	if source == "" {
		source = domain.SourceManual
	}
	url := strings.TrimSpace(req.URL)
	plat := h.Classify(url)

	job := domain.Job{
		Title:          req.Title,
		Company:        req.Company,
		URL:            url,
		Platform:       plat,
		Status:         status,
		Salary:         req.Salary,
		Location:       req.Location,
		JobType:        req.JobType,
		Description:    req.Description,
		Notes:          req.Notes,
		AppliedDate:    req.AppliedDate,
		FollowUpDate:   req.FollowUpDate,
		RecruiterName:  req.RecruiterName,
		RecruiterEmail: req.RecruiterEmail,
		UserEmail:      req.UserEmail,
		Source:         source,
		StatusHistory:  []domain.StatusChange{{Status: status, Note: "Initial save", ChangedAt: time.Now().UTC()}},
	}
	if req.Analysis != nil && req.Analysis.Verdict.Valid() {
		a := *req.Analysis
		a.Platform = plat
		job.Analysis = &a
	}

	if err := h.Store.Create(r.Context(), &job); err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.emit(r, events.TypeJobCreated, map[string]any{"id": job.ID})
	if h.Alerts != nil && job.Analysis != nil && job.Analysis.Verdict.Alarming() {
		h.Alerts.JobFlagged(r.Context(), job)
	}
	WriteJSON(w, http.StatusCreated, job)
}

func (h JobsHandler) PatchByPath(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(r.URL.Path, "/api/jobs/")
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	var req patchJobReq
	if !decodeBody(w, r, &req) {
		return
	}

	job, err := h.Store.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&job.Title, req.Title)
	set(&job.Company, req.Company)
	set(&job.Salary, req.Salary)
	set(&job.Location, req.Location)
	set(&job.JobType, req.JobType)
	set(&job.Description, req.Description)
	set(&job.Notes, req.Notes)
	set(&job.RecruiterName, req.RecruiterName)
	set(&job.RecruiterEmail, req.RecruiterEmail)
	if req.URL != nil {
		job.URL = strings.TrimSpace(*req.URL)
		job.Platform = h.Classify(job.URL)
	}
	if req.AppliedDate != nil {
		job.AppliedDate = req.AppliedDate
	}
	if req.FollowUpDate != nil {
		job.FollowUpDate = req.FollowUpDate
	}
	if req.Analysis != nil && req.Analysis.Verdict.Valid() {
		a := *req.Analysis
		a.Platform = job.Platform
		job.Analysis = &a
	}

	prev := job.Status
	changed := false
	if req.Status != nil {
		changed = job.SetStatus(domain.Status(*req.Status), req.StatusNote, time.Now().UTC())
	}

	if err := h.Store.Update(r.Context(), job); err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.emit(r, events.TypeJobUpdated, map[string]any{"id": job.ID, "status": job.Status})
	if changed && h.Alerts != nil {
		h.Alerts.StatusChanged(r.Context(), *job, prev)
	}
	writeJSON(w, job)
}

func (h JobsHandler) DeleteByPath(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(r.URL.Path, "/api/jobs/")
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}

	if err := h.Store.Delete(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.emit(r, events.TypeJobDeleted, map[string]any{"id": id})
	writeJSON(w, map[string]any{"ok": true, "id": id})
}

// FromExtension saves a listing captured by the browser extension. It is
// authenticated by the shared X-Extension-Secret header and deduplicated by URL.
func (h JobsHandler) FromExtension(w http.ResponseWriter, r *http.Request) {
	cfg := h.CfgVal.Load().(config.Config)
	want := cfg.App.ExtensionSecret
	got := r.Header.Get("X-Extension-Secret")
	if want == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		WriteError(w, r, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	var req extensionJobReq
	if !decodeBody(w, r, &req) {
		return
	}
	url := strings.TrimSpace(req.URL)

	existing, err := h.Store.FindByURL(r.Context(), url)
	if err == nil {
		writeJSON(w, map[string]any{"message": "Already tracked", "job": existing, "duplicate": true})
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		writeDomainError(w, r, err)
		return
	}

	company := req.Company
	if company == "" {
		company = "Unknown"
	}
	job := domain.Job{
		Title:         req.Title,
		Company:       company,
		URL:           url,
		Platform:      h.Classify(url),
		Status:        domain.StatusSaved,
		Description:   req.Description,
		Salary:        req.Salary,
		Location:      req.Location,
		Source:        domain.SourceExtension,
		StatusHistory: []domain.StatusChange{{Status: domain.StatusSaved, Note: "Added via browser extension", ChangedAt: time.Now().UTC()}},
	}
	if err := h.Store.Create(r.Context(), &job); err != nil {
		if errors.Is(err, store.ErrDuplicateURL) {
			if existing, ferr := h.Store.FindByURL(r.Context(), url); ferr == nil {
				writeJSON(w, map[string]any{"message": "Already tracked", "job": existing, "duplicate": true})
				return
			}
		}
		writeDomainError(w, r, err)
		return
	}

	h.emit(r, events.TypeJobCreated, map[string]any{"id": job.ID, "source": job.Source})
	WriteJSON(w, http.StatusCreated, map[string]any{"job": job, "duplicate": false})
}

func (h JobsHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	st, err := h.Store.Stats(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, st)
}
