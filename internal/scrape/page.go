package scrape

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobsentry-engine/internal/config"
	"jobsentry-engine/internal/domain"
	"jobsentry-engine/internal/scrape/util"
)

const maxPageBytes = 5 << 20

// Ordered: the first selector yielding more than minSelectorText wins.
var contentSelectors = []string{
	".job-description",
	".jobsearch-JobComponent-description",
	`[data-testid="job-description"]`,
	".description__text",
	".show-more-less-html",
	"#job-content",
	".jobDescriptionText",
	".job__description",
	".posting-page",
	`[data-automation-id="jobDescription"]`,
}

const minSelectorText = 100

// maxBodyChars caps ScrapedPage.BodyText.
const maxBodyChars = 4000

const noiseSelector = `script, style, noscript, nav, footer, header, aside, .cookie-banner, [class*="popup"]`

var loginPhrases = []string{"sign in", "log in", "join to view"}

var loginActions = []string{"login", "signin", "sign-in", "authwall"}

// Fetcher downloads a listing page and reduces it to a ScrapedPage.
type Fetcher struct {
	client    *http.Client
	limiter   *util.HostLimiter
	userAgent string
	maxChars  int
	timeout   time.Duration

	greenhouseAPI string
	leverAPI      string
}

func NewFetcher(cfg config.Config) *Fetcher {
	timeout := time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second
	if timeout <= 0 || timeout > 10*time.Second {
		timeout = 10 * time.Second
	}
	maxChars := cfg.Fetch.MaxChars
	if maxChars <= 0 || maxChars > maxBodyChars {
		maxChars = maxBodyChars
	}
	rps := cfg.Fetch.ReqPerSec
	if rps <= 0 {
		rps = 1
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		limiter:   util.NewHostLimiter(rps, cfg.Fetch.Burst),
		userAgent: cfg.Fetch.UserAgent,
		maxChars:  maxChars,
		timeout:   timeout,

		greenhouseAPI: greenhouseAPI,
		leverAPI:      leverAPI,
	}
}

// Fetch never returns an error; failures are reported in ScrapedPage.Error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) domain.ScrapedPage {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := f.limiter.WaitURL(ctx, rawURL); err != nil {
		return domain.ScrapedPage{Error: fmt.Sprintf("rate limit wait: %v", err)}
	}

	if page, ok := f.fetchATS(ctx, rawURL); ok {
		return page
	}

	doc, err := f.get(ctx, rawURL)
	if err != nil {
		log.Printf("[fetch] %s: %v", rawURL, err)
		return domain.ScrapedPage{Error: err.Error()}
	}
	return f.extract(doc)
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func (f *Fetcher) extract(doc *goquery.Document) domain.ScrapedPage {
	// Markup signals are read before chrome is stripped. Phrases are read
	// after, so a "Sign in" link in the site header does not count.
	walled := doc.Find(`input[type="password"]`).Length() > 0 || hasLoginForm(doc)

	doc.Find(noiseSelector).Remove()

	if walled || hasLoginText(doc) {
		return domain.ScrapedPage{LoginWall: true, Error: domain.LoginRequired}
	}

	page := domain.ScrapedPage{
		Title:         util.CleanText(doc.Find("title").First().Text()),
		OGTitle:       strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", "")),
		OGDescription: strings.TrimSpace(doc.Find(`meta[property="og:description"]`).AttrOr("content", "")),
	}

	var body string
	for _, sel := range contentSelectors {
		txt := util.CleanText(doc.Find(sel).Text())
		if len(txt) > minSelectorText {
			body = txt
			break
		}
	}
	if body == "" {
		body = util.CleanText(doc.Find("body").Text())
	}
	page.BodyText = util.Truncate(body, f.maxChars)
	return page
}

func hasLoginForm(doc *goquery.Document) bool {
	found := false
	doc.Find("form").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		action := strings.ToLower(s.AttrOr("action", ""))
		for _, a := range loginActions {
			if strings.Contains(action, a) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

func hasLoginText(doc *goquery.Document) bool {
	title := strings.ToLower(doc.Find("title").Text())
	text := strings.ToLower(util.CleanText(doc.Find("body").Text()))
	for _, p := range loginPhrases {
		if strings.Contains(title, p) || strings.Contains(text, p) {
			return true
		}
	}
	return false
}
