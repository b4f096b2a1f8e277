package httpapi

import (
	"errors"
	"log"
	"net/http"
	"time"

	"jobsentry-engine/internal/analyze"
	"jobsentry-engine/internal/domain"
	"jobsentry-engine/internal/events"
	"jobsentry-engine/internal/scrape/util"
)

type AnalyzeHandler struct {
	Analyzer Analyzer
	Hub      *events.Hub
}

type analyzeReq struct {
	URL         string `json:"url" validate:"required,url,max=2048"`
	Title       string `json:"title" validate:"max=300"`
	Company     string `json:"company" validate:"max=300"`
	Description string `json:"description" validate:"max=20000"`
	Salary      string `json:"salary" validate:"max=200"`
	Location    string `json:"location" validate:"max=200"`
}

func (req analyzeReq) manual() domain.ManualFields {
	return domain.ManualFields{
		Title:       req.Title,
		Company:     req.Company,
		Description: req.Description,
		Salary:      req.Salary,
		Location:    req.Location,
	}
}

// analysisFailure is returned with 502 so clients can still render a card.
type analysisFailure struct {
	APIError
	Fallback domain.AnalysisResult `json:"fallback"`
}

func (h AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeReq
	if !decodeBody(w, r, &req) {
		return
	}
	url, err := util.ValidateListingURL(req.URL)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_url", "A valid URL starting with http is required")
		return
	}

	res, err := h.Analyzer.Analyze(r.Context(), url, req.manual())
	if err != nil {
		if !errors.Is(err, analyze.ErrAnalysisFailed) {
			writeDomainError(w, r, err)
			return
		}
		log.Printf("[analyze] request_id=%s url=%s: %v", RequestIDFrom(r.Context()), url, err)
		var body analysisFailure
		body.Error.Code = "analysis_failed"
		body.Error.Message = "Analysis failed. Check the model API key or try again."
		body.Error.RequestID = RequestIDFrom(r.Context())
		body.Fallback = domain.UnknownAnalysis(h.Analyzer.Classify(url), time.Now().UTC())
		WriteJSON(w, http.StatusBadGateway, body)
		return
	}

	if h.Hub != nil {
		h.Hub.Emit(RequestIDFrom(r.Context()), events.TypeAnalysisDone, map[string]any{
			"url":     url,
			"verdict": res.Verdict,
		})
	}
	writeJSON(w, res)
}
