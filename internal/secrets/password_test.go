package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"jobsentry-engine/internal/config"
)

func TestIMAPPasswordRoundTrip(t *testing.T) {
	keyring.MockInit()

	cfg := config.Default()
	cfg.Email.Username = " Me@Example.com "
	acct := IMAPKeyringAccount(cfg)
	assert.Equal(t, "jobsentry:imap:me@example.com@imap.gmail.com", acct)

	_, err := GetIMAPPassword(acct)
	assert.ErrorIs(t, err, ErrNoIMAPPassword)

	require.NoError(t, SetIMAPPassword(acct, "abcd efgh ijkl mnop"))
	pw, err := GetIMAPPassword(acct)
	require.NoError(t, err)
	assert.Equal(t, "abcdefghijklmnop", pw)

	require.NoError(t, DeleteIMAPPassword(acct))
	require.NoError(t, DeleteIMAPPassword(acct))
	_, err = GetIMAPPassword(acct)
	assert.ErrorIs(t, err, ErrNoIMAPPassword)
}

func TestSetIMAPPasswordValidates(t *testing.T) {
	keyring.MockInit()
	assert.Error(t, SetIMAPPassword("", "x"))
	assert.Error(t, SetIMAPPassword("acct", "   "))
}
