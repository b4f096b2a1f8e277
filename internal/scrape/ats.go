package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobsentry-engine/internal/domain"
	"jobsentry-engine/internal/scrape/util"
)

// Greenhouse and Lever render listings client-side, so the HTML page holds
// little text. Their public posting APIs return the same listing as JSON.
const (
	greenhouseAPI = "https://boards-api.greenhouse.io/v1/boards"
	leverAPI      = "https://api.lever.co/v0/postings"
)

type greenhousePosting struct {
	Title    string `json:"title"`
	Content  string `json:"content"` // entity-escaped html
	Location struct {
		Name string `json:"name"`
	} `json:"location"`
	CompanyName string `json:"company_name"`
}

type leverPosting struct {
	Text             string `json:"text"` // title
	DescriptionPlain string `json:"descriptionPlain"`
	AdditionalPlain  string `json:"additionalPlain"`
	Categories       struct {
		Location   string `json:"location"`
		Team       string `json:"team"`
		Commitment string `json:"commitment"`
	} `json:"categories"`
}

// atsEndpoint maps a hosted listing URL to its posting API URL.
func (f *Fetcher) atsEndpoint(rawURL string) (api string, kind string, ok bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", false
	}
	host := strings.ToLower(u.Hostname())
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")

	switch {
	case host == "boards.greenhouse.io" || host == "job-boards.greenhouse.io":
		// /<slug>/jobs/<id>
		if len(parts) >= 3 && parts[1] == "jobs" && isDigits(parts[2]) {
			return fmt.Sprintf("%s/%s/jobs/%s", f.greenhouseAPI, parts[0], parts[2]), "greenhouse", true
		}
	case host == "jobs.lever.co":
		// /<slug>/<posting id>[/apply]
		if len(parts) >= 2 && parts[1] != "" {
			return fmt.Sprintf("%s/%s/%s", f.leverAPI, parts[0], parts[1]), "lever", true
		}
	}
	return "", "", false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// fetchATS returns the posting from the board API. ok is false when the URL
// is not a supported board or the API did not answer usefully; the caller
// then scrapes the HTML page.
func (f *Fetcher) fetchATS(ctx context.Context, rawURL string) (domain.ScrapedPage, bool) {
	api, kind, ok := f.atsEndpoint(rawURL)
	if !ok {
		return domain.ScrapedPage{}, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, api, nil)
	if err != nil {
		return domain.ScrapedPage{}, false
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.ScrapedPage{}, false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.ScrapedPage{}, false
	}

	var title, location, body string
	switch kind {
	case "greenhouse":
		var p greenhousePosting
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
			return domain.ScrapedPage{}, false
		}
		title, location = p.Title, p.Location.Name
		if p.CompanyName != "" {
			title += " at " + p.CompanyName
		}
		body = htmlText(html.UnescapeString(p.Content))
	case "lever":
		var p leverPosting
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
			return domain.ScrapedPage{}, false
		}
		title, location = p.Text, p.Categories.Location
		body = util.CleanText(p.DescriptionPlain + " " + p.AdditionalPlain)
	}
	if strings.TrimSpace(title) == "" {
		return domain.ScrapedPage{}, false
	}

	if location != "" {
		body = "Location: " + location + ". " + body
	}
	return domain.ScrapedPage{
		Title:    util.CleanText(title),
		OGTitle:  util.CleanText(title),
		BodyText: util.Truncate(util.CleanText(body), f.maxChars),
	}, true
}

func htmlText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return util.CleanText(fragment)
	}
	return util.CleanText(doc.Text())
}
