package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRubricLoads(t *testing.T) {
	r := DefaultRubric()
	require.NotEmpty(t, r.Platforms)
	assert.NotEmpty(t, r.RedFlags.Critical)
	assert.NotEmpty(t, r.PositiveSignals)
	assert.Equal(t, "Applied", r.Mail.DefaultStatus)
	assert.Equal(t, "Interview", r.Mail.StatusRules[0].Status)
}

func TestValidateRubricRejectsOverlappingDomains(t *testing.T) {
	r := DefaultRubric()
	bad := *r
	bad.Platforms = append([]Platform{}, r.Platforms...)
	bad.Platforms = append(bad.Platforms, Platform{Domain: "in.com", Name: "Broken"})

	errs := ValidateRubric(&bad)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0], "overlaps")
}

func TestValidateRubricRejectsReservedName(t *testing.T) {
	r := &Rubric{
		Platforms: []Platform{{Domain: "example.com", Name: OtherPlatform}},
		RedFlags:  RedFlags{Critical: []string{"x"}},
		Mail:      MailRules{DefaultStatus: "Applied"},
	}
	assert.NotEmpty(t, ValidateRubric(r))
}

func TestOverlayRubricReplacesOnlyGivenSections(t *testing.T) {
	base := DefaultRubric()
	out, err := OverlayRubric(base, []byte("positive_signals: [\"Has a careers page\"]\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Has a careers page"}, out.PositiveSignals)
	assert.Equal(t, base.Platforms, out.Platforms)
	assert.NotEqual(t, base.PositiveSignals, out.PositiveSignals)
}

func TestOverlayRubricRejectsBadPattern(t *testing.T) {
	_, err := OverlayRubric(DefaultRubric(), []byte("mail:\n  url_patterns: ['([']\n"))
	require.Error(t, err)
}

func TestNormalizeAndValidateDefaults(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = "k"
	cfg.App.ExtensionSecret = "s"

	out, v := NormalizeAndValidate(cfg)
	assert.True(t, v.OK(), v.Errors)
	assert.Empty(t, v.Warnings)
	assert.Equal(t, 10, out.Fetch.TimeoutSeconds)
}

func TestNormalizeAndValidateCapsTimeouts(t *testing.T) {
	cfg := Default()
	cfg.Fetch.TimeoutSeconds = 30
	cfg.LLM.TimeoutSeconds = 60

	out, v := NormalizeAndValidate(cfg)
	assert.True(t, v.OK())
	assert.Equal(t, 10, out.Fetch.TimeoutSeconds)
	assert.Equal(t, 10, out.LLM.TimeoutSeconds)
	assert.NotEmpty(t, v.Warnings)
}

func TestNormalizeAndValidateCapsMaxChars(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = "k"
	cfg.App.ExtensionSecret = "s"
	cfg.Fetch.MaxChars = 20000

	out, v := NormalizeAndValidate(cfg)
	assert.True(t, v.OK())
	assert.Equal(t, 4000, out.Fetch.MaxChars)
	require.Len(t, v.Warnings, 1)
	assert.Contains(t, v.Warnings[0], "fetch.max_chars")
}

func TestNormalizeAndValidateErrors(t *testing.T) {
	cfg := Default()
	cfg.LLM.Provider = "claude"
	cfg.Store.Driver = "postgres"
	cfg.Schedule.ImportCron = "not a cron"
	cfg.Email.DaysBack = 0

	_, v := NormalizeAndValidate(cfg)
	assert.False(t, v.OK())
	assert.Len(t, v.Errors, 4)
}

func TestSaveAtomicAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	cfg := Default()
	cfg.App.Port = 4000
	require.NoError(t, SaveAtomic(path, cfg))

	cfg.App.Port = 4001
	require.NoError(t, SaveAtomic(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4001, got.App.Port)

	_, err = os.Stat(path + ".bak")
	assert.NoError(t, err)
}

func TestSaveAtomicRejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.App.Port = 0
	assert.Error(t, SaveAtomic(filepath.Join(t.TempDir(), "c.yml"), cfg))
}

func TestEnsureUserConfigSeedsDefault(t *testing.T) {
	dir := t.TempDir()
	path, err := EnsureUserConfig(dir, "")
	require.NoError(t, err)

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, dir, got.App.DataDir)
	assert.Equal(t, "imap.gmail.com", got.Email.IMAPHost)
}

func TestRedactedMasksSecrets(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = "secret"
	red := cfg.Redacted()
	assert.Equal(t, "********", red.LLM.APIKey)
	assert.Equal(t, "", red.SMTP.Password)
	assert.Equal(t, "secret", cfg.LLM.APIKey)
}

func TestUnredactRestoresMaskedSecrets(t *testing.T) {
	cur := Default()
	cur.LLM.APIKey = "secret"
	cur.SMTP.Password = "pw"

	in := cur.Redacted()
	in.SMTP.Password = "new"
	out := in.Unredact(cur)

	assert.Equal(t, "secret", out.LLM.APIKey)
	assert.Equal(t, "new", out.SMTP.Password)
}
