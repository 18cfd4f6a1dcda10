package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range KnownKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, c.BatchSize)
	assert.Equal(t, DefaultCandidateLimit, c.CandidateLimit)
	assert.Equal(t, DefaultDumpURL, c.DumpURL)
	assert.Equal(t, "wiki-titles.db", filepath.Base(c.IndexPath))
	assert.Equal(t, "RuWikiSearch/1.0.0", c.UserAgent())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("WIKISEARCH_BATCH_SIZE", "10")
	t.Setenv("WIKISEARCH_CONTACT_EMAIL", "ops@example.org")
	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, c.BatchSize)
	assert.Equal(t, "RuWikiSearch/1.0.0 (ops@example.org)", c.UserAgent())
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("WIKISEARCH_BATCH_SIZE", "-1")
	_, err := Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("WIKISEARCH_CONTACT_EMAIL", "not-an-address")
	_, err = Load()
	assert.ErrorIs(t, err, ErrInvalidContact)
}

func TestApplyFromYAMLKeepsEnvPrecedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	yml := "wikisearch_batch_size: 1000\nWIKISEARCH_DUMP_URL: \"http://mirror.local/titles.gz\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yml), 0o644))
	t.Setenv("WIKISEARCH_DUMP_URL", "http://env.local/titles.gz")

	require.NoError(t, ApplyFrom(dir))
	assert.Equal(t, "1000", os.Getenv("WIKISEARCH_BATCH_SIZE"))
	assert.Equal(t, "http://env.local/titles.gz", os.Getenv("WIKISEARCH_DUMP_URL"))
}

func TestApplyFromJSON(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"WIKISEARCH_CANDIDATE_LIMIT": 250}`), 0o644))
	require.NoError(t, ApplyFrom(dir))
	assert.Equal(t, "250", os.Getenv("WIKISEARCH_CANDIDATE_LIMIT"))
}

func TestApplyFromMissingDir(t *testing.T) {
	assert.NoError(t, ApplyFrom(filepath.Join(t.TempDir(), "absent")))
}
