package analyze

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strings"
	"time"

	"jobsentry-engine/internal/domain"
	"jobsentry-engine/internal/llm"
	"jobsentry-engine/internal/metrics"
	"jobsentry-engine/internal/platform"
)

type PageFetcher interface {
	Fetch(ctx context.Context, url string) domain.ScrapedPage
}

// Cache stores successful analyses. Implementations must tolerate concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (domain.AnalysisResult, bool, error)
	Set(ctx context.Context, key string, r domain.AnalysisResult) error
}

type Options struct {
	Fetcher    PageFetcher
	Classifier *platform.Classifier
	Composer   *Composer
	Client     llm.Client
	Cache      Cache // optional
	Timeout    time.Duration
	Now        func() time.Time
}

// Pipeline runs fetch, compose, complete and normalize for one listing.
type Pipeline struct {
	fetcher    PageFetcher
	classifier *platform.Classifier
	composer   *Composer
	client     llm.Client
	cache      Cache
	timeout    time.Duration
	now        func() time.Time
}

func NewPipeline(o Options) *Pipeline {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return &Pipeline{
		fetcher:    o.Fetcher,
		classifier: o.Classifier,
		composer:   o.Composer,
		client:     o.Client,
		cache:      o.Cache,
		timeout:    o.Timeout,
		now:        o.Now,
	}
}

// Classify exposes the shared platform table to callers of the pipeline.
func (p *Pipeline) Classify(url string) string { return p.classifier.Classify(url) }

// Analyze returns a CompletionError (matching ErrAnalysisFailed) when the
// model call fails or its output is unusable. Callers decide the fallback.
func (p *Pipeline) Analyze(ctx context.Context, url string, manual domain.ManualFields) (domain.AnalysisResult, error) {
	plat := p.classifier.Classify(url)
	key := CacheKey(url, manual)

	if p.cache != nil {
		if cached, ok, err := p.cache.Get(ctx, key); err != nil {
			log.Printf("[analyze] cache get: %v", err)
		} else if ok {
			metrics.AnalysisCacheHits.Inc()
			cached.Platform = plat
			return cached, nil
		}
	}

	page := p.fetcher.Fetch(ctx, url)
	prompt := p.composer.Compose(url, plat, page, manual)

	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	text, err := p.client.Complete(cctx, prompt)
	if err != nil {
		metrics.Analyses.WithLabelValues("failed").Inc()
		return domain.AnalysisResult{}, &CompletionError{Stage: "complete", Err: err}
	}

	res, err := ParseCompletion(text)
	if err != nil {
		metrics.Analyses.WithLabelValues("failed").Inc()
		log.Printf("[analyze] unusable completion for %s: %v", url, err)
		return domain.AnalysisResult{}, err
	}

	res.Platform = plat
	res.LoginWall = page.LoginWall
	res.ScrapedOK = page.Error == "" && !page.LoginWall
	res.AnalyzedAt = p.now().UTC()

	if page.LoginWall && manual.Empty() {
		checkLoginWallBand(url, plat, res)
	}
	metrics.Analyses.WithLabelValues(string(res.Verdict)).Inc()

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, res); err != nil {
			log.Printf("[analyze] cache set: %v", err)
		}
	}
	return res, nil
}

// The bands are advisory prompt guidance; results outside them are logged,
// not rewritten.
func checkLoginWallBand(url, plat string, r domain.AnalysisResult) {
	want, lo, hi := domain.VerdictUnknown, 10, 20
	if plat == platform.Other {
		want, lo, hi = domain.VerdictSuspicious, 40, 60
	}
	if r.Verdict != want || r.RiskScore < lo || r.RiskScore > hi {
		log.Printf("[analyze] login-wall result outside guidance url=%s platform=%s verdict=%s risk=%d want=%s %d-%d",
			url, plat, r.Verdict, r.RiskScore, want, lo, hi)
	}
}

// CacheKey identifies an analysis request by URL and manual fields.
func CacheKey(url string, m domain.ManualFields) string {
	h := sha256.New()
	for _, s := range []string{url, m.Title, m.Company, m.Description, m.Salary, m.Location} {
		h.Write([]byte(strings.TrimSpace(s)))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
