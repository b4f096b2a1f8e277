package util

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b c", CleanText("  a\n\t b  c  "))
	assert.Equal(t, "", CleanText(" \n "))
}

func TestTruncateIsRuneSafe(t *testing.T) {
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "abc", Truncate("abc", 0))
}

func TestValidateListingURL(t *testing.T) {
	got, err := ValidateListingURL("  https://jobs.lever.co/acme/1 ")
	require.NoError(t, err)
	assert.Equal(t, "https://jobs.lever.co/acme/1", got)

	for _, bad := range []string{"", "ftp://x.com/a", "/relative", "https://", "javascript:alert(1)"} {
		_, err := ValidateListingURL(bad)
		assert.ErrorIs(t, err, ErrBadURL, bad)
	}
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "www.indeed.com", HostOf("https://WWW.Indeed.com:443/viewjob"))
	assert.Equal(t, "", HostOf("nope"))
}

func TestHostLimiterSeparatesHosts(t *testing.T) {
	hl := NewHostLimiter(0.001, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, hl.WaitURL(ctx, "https://a.example/1"))
	require.NoError(t, hl.WaitURL(ctx, "https://b.example/1"))
	// second call on the same host would wait far past the deadline
	assert.Error(t, hl.WaitURL(ctx, "https://a.example/2"))
}
