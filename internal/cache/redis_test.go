package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobsentry-engine/internal/domain"
)

func TestRedisRoundTrip(t *testing.T) {
	url := os.Getenv("JOBSENTRY_TEST_REDIS")
	if url == "" {
		t.Skip("JOBSENTRY_TEST_REDIS not set")
	}
	ctx := context.Background()
	c, err := NewRedis(ctx, url, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	key := "test-" + time.Now().Format(time.RFC3339Nano)
	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	want := domain.AnalysisResult{
		Verdict:         domain.VerdictReal,
		Confidence:      80,
		RiskScore:       12,
		RedFlags:        []string{},
		PositiveSignals: []string{"Named recruiter"},
		Platform:        "LinkedIn",
	}
	require.NoError(t, c.Set(ctx, key, want))

	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "not-a-url", time.Minute)
	assert.Error(t, err)
}
