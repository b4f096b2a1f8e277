package email_scrape

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/emersion/go-message/mail"

	"jobsentry-engine/internal/config"
	"jobsentry-engine/internal/domain"
	"jobsentry-engine/internal/platform"
	"jobsentry-engine/internal/scrape/util"
)

const maxFieldLen = 100

// Platform URL shapes are matched together with any scheme and subdomains
// in front of them, so the link is kept whole.
const urlPrefix = `(?i)(?:https?://)?\b(?:[a-z0-9-]+\.)*`

var (
	reGenericURL     = regexp.MustCompile(`(?i)https?://[^\s<>"']+`)
	reTrailingPunct  = regexp.MustCompile(`[.,;!?)\]}>]+$`)
	reWhitespaceRuns = regexp.MustCompile(`\s+`)
)

type statusRule struct {
	status domain.Status
	re     *regexp.Regexp
}

// Heuristics holds the compiled mail rules. Build it once per rubric.
type Heuristics struct {
	classifier    *platform.Classifier
	inclusion     []*regexp.Regexp
	urlShapes     []*regexp.Regexp
	pathHints     []string
	titles        []*regexp.Regexp
	companies     []*regexp.Regexp
	statuses      []statusRule
	defaultStatus domain.Status
}

func NewHeuristics(r *config.Rubric, c *platform.Classifier) (*Heuristics, error) {
	h := &Heuristics{
		classifier:    c,
		pathHints:     r.Mail.JobPathIndicators,
		defaultStatus: domain.Status(r.Mail.DefaultStatus),
	}

	compile := func(prefix string, pats []string) ([]*regexp.Regexp, error) {
		out := make([]*regexp.Regexp, 0, len(pats))
		for _, p := range pats {
			re, err := regexp.Compile(prefix + p)
			if err != nil {
				return nil, fmt.Errorf("compile %q: %w", p, err)
			}
			out = append(out, re)
		}
		return out, nil
	}

	var err error
	if h.inclusion, err = compile("(?i)", r.Mail.InclusionPatterns); err != nil {
		return nil, err
	}
	if h.urlShapes, err = compile(urlPrefix, r.Mail.URLPatterns); err != nil {
		return nil, err
	}
	if h.titles, err = compile("(?i)", r.Mail.TitlePatterns); err != nil {
		return nil, err
	}
	if h.companies, err = compile("", r.Mail.CompanyPatterns); err != nil {
		return nil, err
	}
	for _, s := range r.Mail.StatusRules {
		re, err := regexp.Compile("(?i)" + s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile status rule %q: %w", s.Pattern, err)
		}
		h.statuses = append(h.statuses, statusRule{status: domain.Status(s.Status), re: re})
	}
	return h, nil
}

// normalizedText is lowercase subject + " " + body with whitespace collapsed.
func normalizedText(subject, body string) string {
	return strings.ToLower(reWhitespaceRuns.ReplaceAllString(strings.TrimSpace(subject+" "+body), " "))
}

// Include reports whether a message looks like job-application mail.
func (h *Heuristics) Include(from, subject, body string) bool {
	if h.classifier.KnownHost(senderDomain(from)) {
		return true
	}
	text := normalizedText(subject, body)
	for _, re := range h.inclusion {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// senderDomain returns the domain of a From header value, or "".
func senderDomain(from string) string {
	addr := strings.TrimSpace(from)
	if a, err := mail.ParseAddress(from); err == nil {
		addr = a.Address
	}
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(strings.Trim(addr[at+1:], "<> "))
}

// DetectStatus is an ordered decision list; the first matching rule wins.
func (h *Heuristics) DetectStatus(subject, body string) domain.Status {
	text := normalizedText(subject, body)
	for _, r := range h.statuses {
		if r.re.MatchString(text) {
			return r.status
		}
	}
	return h.defaultStatus
}

// ExtractURLs returns listing links in first-seen order, deduplicated by
// exact string.
func (h *Heuristics) ExtractURLs(subject, text, htmlBody string) []string {
	src := htmlBody
	if src == "" {
		src = text
	}
	src += " " + subject

	var out []string
	seen := map[string]bool{}
	add := func(u string) {
		if u != "" && !seen[u] && !isAssetURL(u) {
			seen[u] = true
			out = append(out, u)
		}
	}

	for _, re := range h.urlShapes {
		for _, m := range re.FindAllString(src, -1) {
			u := cleanURL(m)
			if !hasScheme(u) {
				u = "https://" + u
			}
			add(u)
		}
	}

	for _, m := range reGenericURL.FindAllString(src, -1) {
		u := cleanURL(m)
		if h.isJobPlatformURL(u) {
			add(u)
		}
	}
	return out
}

func (h *Heuristics) isJobPlatformURL(raw string) bool {
	pu, err := url.Parse(raw)
	if err != nil || pu.Host == "" {
		return false
	}
	if !h.classifier.KnownHost(pu.Hostname()) {
		return false
	}
	rest := strings.ToLower(pu.RequestURI())
	for _, hint := range h.pathHints {
		if strings.Contains(rest, strings.ToLower(hint)) {
			return true
		}
	}
	return false
}

var assetExts = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico", ".css", ".js"}

// isAssetURL reports links to images, stylesheets and scripts.
func isAssetURL(raw string) bool {
	pu, err := url.Parse(raw)
	if err != nil {
		return false
	}
	p := strings.ToLower(pu.Path)
	for _, ext := range assetExts {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

func cleanURL(s string) string {
	s = html.UnescapeString(strings.TrimSpace(s))
	return reTrailingPunct.ReplaceAllString(s, "")
}

func hasScheme(u string) bool {
	l := strings.ToLower(u)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// ExtractTitle returns the first non-empty capture of the title patterns.
func (h *Heuristics) ExtractTitle(subject, body string) string {
	return firstCapture(h.titles, subject+" "+body)
}

// ExtractCompany returns the first non-empty capture of the company patterns.
func (h *Heuristics) ExtractCompany(subject, body string) string {
	return firstCapture(h.companies, subject+" "+body)
}

func firstCapture(res []*regexp.Regexp, text string) string {
	for _, re := range res {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		v := strings.TrimSpace(reTags.ReplaceAllString(m[1], ""))
		v = util.Truncate(util.CleanText(html.UnescapeString(v)), maxFieldLen)
		if v != "" {
			return v
		}
	}
	return ""
}

// Details is everything the heuristics derive from one message.
type Details struct {
	URLs    []string
	Title   string
	Company string
	Status  domain.Status
}

func (h *Heuristics) ExtractJobDetails(subject, text, htmlBody string) Details {
	return Details{
		URLs:    h.ExtractURLs(subject, text, htmlBody),
		Title:   h.ExtractTitle(subject, text),
		Company: h.ExtractCompany(subject, text),
		Status:  h.DetectStatus(subject, text),
	}
}
