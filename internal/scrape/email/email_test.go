package email_scrape

import (
	"errors"
	"fmt"
	"testing"

	"github.com/emersion/go-imap/v2"
	"github.com/stretchr/testify/assert"
)

func TestIsAuthError(t *testing.T) {
	no := func(code imap.ResponseCode, text string) error {
		return &imap.Error{Type: imap.StatusResponseTypeNo, Code: code, Text: text}
	}
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"authentication failed", no(imap.ResponseCodeAuthenticationFailed, "Invalid credentials (Failure)"), true},
		{"authorization failed", no(imap.ResponseCodeAuthorizationFailed, "not authorized"), true},
		{"plain NO", no("", "LOGIN failed"), true},
		{"wrapped", fmt.Errorf("login: %w", no(imap.ResponseCodeAuthenticationFailed, "bad")), true},
		{"imap disabled alert", no(imap.ResponseCodeAlert, "Your account is not enabled for IMAP use. Please visit your settings."), false},
		{"imap disabled no code", no("", "IMAP access is disabled for this account"), false},
		{"BAD response", &imap.Error{Type: imap.StatusResponseTypeBad, Text: "syntax error"}, false},
		{"network", errors.New("read tcp: connection reset by peer"), false},
		{"text only", errors.New("AUTHENTICATIONFAILED invalid credentials"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isAuthError(tc.err))
		})
	}
}
