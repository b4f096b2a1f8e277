package email_scrape

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const multipartMsg = "From: Acme Careers <careers@acme.com>\r\n" +
	"To: me@example.com\r\n" +
	"Subject: =?UTF-8?Q?Your_application_for_Backend_Engineer?=\r\n" +
	"Date: Mon, 02 Mar 2026 10:00:00 +0000\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=\"b1\"\r\n" +
	"\r\n" +
	"--b1\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"Content-Transfer-Encoding: quoted-printable\r\n" +
	"\r\n" +
	"Thanks for applying!=0AView: https://jobs.acme.com/job/12345\r\n" +
	"--b1\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Thanks for applying!</p><a href=\"https://jobs.acme.com/job/12345\">View</a>\r\n" +
	"--b1--\r\n"

func TestParseMessageMultipart(t *testing.T) {
	pm, err := parseMessage(RawMessage{UID: 7, Raw: []byte(multipartMsg)})
	require.NoError(t, err)

	assert.Equal(t, "Your application for Backend Engineer", pm.Subject)
	assert.Equal(t, "Acme Careers <careers@acme.com>", pm.From)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), pm.Date.UTC())
	assert.Contains(t, pm.Text, "Thanks for applying!\nView: https://jobs.acme.com/job/12345")
	assert.Contains(t, pm.HTML, `<a href="https://jobs.acme.com/job/12345">`)
}

func TestParseMessageHTMLOnly(t *testing.T) {
	raw := "From: x@linkedin.com\r\nSubject: Jobs\r\nContent-Type: text/html\r\n\r\n" +
		"<html><body><p>Position: Go Dev</p><p>Company: Initech</p><style>p{}</style></body></html>"

	pm, err := parseMessage(RawMessage{Raw: []byte(raw)})
	require.NoError(t, err)

	assert.Equal(t, "Position: Go Dev\nCompany: Initech", pm.Text)
	assert.NotEmpty(t, pm.HTML)
}

func TestParseMessageFallsBackToEnvelope(t *testing.T) {
	env := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	raw := "Content-Type: text/plain\r\n\r\nhello"

	pm, err := parseMessage(RawMessage{Subject: "Env subject", From: "env@x.com", Date: env, Raw: []byte(raw)})
	require.NoError(t, err)

	assert.Equal(t, "Env subject", pm.Subject)
	assert.Equal(t, "env@x.com", pm.From)
	assert.Equal(t, env, pm.Date)
	assert.Equal(t, "hello", strings.TrimSpace(pm.Text))
}

func TestParseMessageEmpty(t *testing.T) {
	_, err := parseMessage(RawMessage{})
	assert.Error(t, err)
}
