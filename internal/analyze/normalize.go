package analyze

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"jobsentry-engine/internal/domain"
	"jobsentry-engine/internal/llm"
	"jobsentry-engine/internal/scrape/util"
)

//go:embed verdict.schema.json
var verdictSchemaJSON string

var verdictSchema = mustSchema(verdictSchemaJSON)

func mustSchema(s string) *gojsonschema.Schema {
	sch, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("verdict schema: %v", err))
	}
	return sch
}

const maxSummary = 400

type rawVerdict struct {
	Verdict          string   `json:"verdict"`
	Confidence       float64  `json:"confidence"`
	RiskScore        float64  `json:"riskScore"`
	Summary          string   `json:"summary"`
	RedFlags         []string `json:"redFlags"`
	PositiveSignals  []string `json:"positiveSignals"`
	Recommendation   string   `json:"recommendation"`
	ExtractedTitle   *string  `json:"extractedTitle"`
	ExtractedCompany *string  `json:"extractedCompany"`
}

// ParseCompletion turns model text into an AnalysisResult. Pipeline-owned
// fields (platform, scrapedOk, loginWall, analyzedAt) are left zero; any
// platform the model volunteers is discarded.
func ParseCompletion(text string) (domain.AnalysisResult, error) {
	cleaned := llm.CleanJSONBlock(text)

	var doc map[string]any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return domain.AnalysisResult{}, &CompletionError{Stage: "parse", Err: err, Raw: text}
	}
	if v, ok := doc["verdict"].(string); ok {
		doc["verdict"] = strings.ToUpper(strings.TrimSpace(v))
	}

	res, err := verdictSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return domain.AnalysisResult{}, &CompletionError{Stage: "schema", Err: err, Raw: text}
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
		}
		return domain.AnalysisResult{}, &CompletionError{
			Stage: "schema",
			Err:   errors.New(strings.Join(msgs, "; ")),
			Raw:   text,
		}
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return domain.AnalysisResult{}, &CompletionError{Stage: "parse", Err: err, Raw: text}
	}
	var rv rawVerdict
	if err := json.Unmarshal(normalized, &rv); err != nil {
		return domain.AnalysisResult{}, &CompletionError{Stage: "parse", Err: err, Raw: text}
	}

	out := domain.AnalysisResult{
		Verdict:         domain.Verdict(rv.Verdict),
		Confidence:      clampScore(rv.Confidence),
		RiskScore:       clampScore(rv.RiskScore),
		Summary:         util.Truncate(strings.TrimSpace(rv.Summary), maxSummary),
		RedFlags:        cleanList(rv.RedFlags),
		PositiveSignals: cleanList(rv.PositiveSignals),
		Recommendation:  strings.TrimSpace(rv.Recommendation),
	}
	if rv.ExtractedTitle != nil {
		out.ExtractedTitle = strings.TrimSpace(*rv.ExtractedTitle)
	}
	if rv.ExtractedCompany != nil {
		out.ExtractedCompany = strings.TrimSpace(*rv.ExtractedCompany)
	}
	return out, nil
}

func clampScore(f float64) int {
	n := int(math.Round(f))
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

func cleanList(xs []string) []string {
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		if x = strings.TrimSpace(x); x != "" {
			out = append(out, x)
		}
	}
	return out
}
