package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestATSEndpoint(t *testing.T) {
	f := testFetcher()
	cases := []struct {
		url, api, kind string
		ok             bool
	}{
		{"https://boards.greenhouse.io/acme/jobs/4012345", greenhouseAPI + "/acme/jobs/4012345", "greenhouse", true},
		{"https://job-boards.greenhouse.io/acme/jobs/77?gh_src=x", greenhouseAPI + "/acme/jobs/77", "greenhouse", true},
		{"https://boards.greenhouse.io/acme", "", "", false},
		{"https://jobs.lever.co/globex/5f1c-uuid/apply", leverAPI + "/globex/5f1c-uuid", "lever", true},
		{"https://jobs.lever.co/globex", "", "", false},
		{"https://www.linkedin.com/jobs/view/1", "", "", false},
	}
	for _, tc := range cases {
		api, kind, ok := f.atsEndpoint(tc.url)
		assert.Equal(t, tc.ok, ok, tc.url)
		assert.Equal(t, tc.api, api, tc.url)
		assert.Equal(t, tc.kind, kind, tc.url)
	}
}

func TestFetchUsesGreenhouseAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/boards/acme/jobs/42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"Platform Engineer","company_name":"Acme",
"location":{"name":"Remote"},
"content":"&lt;p&gt;Run our &lt;b&gt;Kubernetes&lt;/b&gt; fleet.&lt;/p&gt;"}`))
	}))
	defer srv.Close()

	f := testFetcher()
	f.greenhouseAPI = srv.URL + "/v1/boards"

	page := f.Fetch(context.Background(), "https://boards.greenhouse.io/acme/jobs/42")
	assert.Empty(t, page.Error)
	assert.Equal(t, "Platform Engineer at Acme", page.Title)
	assert.Equal(t, "Location: Remote. Run our Kubernetes fleet.", page.BodyText)
}

func TestFetchUsesLeverAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/postings/globex/abc-123", r.URL.Path)
		_, _ = w.Write([]byte(`{"text":"Data Analyst","descriptionPlain":"Build  dashboards.\n","additionalPlain":"Benefits included.",
"categories":{"location":"Berlin"}}`))
	}))
	defer srv.Close()

	f := testFetcher()
	f.leverAPI = srv.URL + "/v0/postings"

	page := f.Fetch(context.Background(), "https://jobs.lever.co/globex/abc-123")
	assert.Equal(t, "Data Analyst", page.Title)
	assert.Equal(t, "Location: Berlin. Build dashboards. Benefits included.", page.BodyText)
}

func TestFetchATSNotFoundIsNotUsed(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := testFetcher()
	f.greenhouseAPI = srv.URL

	_, ok := f.fetchATS(context.Background(), "https://boards.greenhouse.io/acme/jobs/42")
	assert.False(t, ok)
}
