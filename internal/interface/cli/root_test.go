package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootInvalidFormat(t *testing.T) {
	_, err := run(t, "--format", "xml", "levels", "10")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLevelsText(t *testing.T) {
	out, err := run(t, "levels", "0", "250")
	require.NoError(t, err)
	assert.Contains(t, out, "level 1")
	assert.Contains(t, out, "Novice")
	assert.Contains(t, out, "Apprentice")
}

func TestLevelsJSON(t *testing.T) {
	out, err := run(t, "--format", "json", "levels", "100", "30000")
	require.NoError(t, err)

	var results []LevelResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, 2, results[0].Level)
	assert.Equal(t, 15, results[1].Level)
	assert.Equal(t, 100, results[1].Percent)
}

func TestLevelsRejectsBadPoints(t *testing.T) {
	_, err := run(t, "levels", "ten")
	assert.Error(t, err)

	_, err = run(t, "levels")
	assert.Error(t, err)
}

func TestCatalogExportThenValidate(t *testing.T) {
	out, err := run(t, "catalog", "export")
	require.NoError(t, err)
	assert.Contains(t, out, "FIRST_STEPS")

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o644))

	out, err = run(t, "--format", "json", "catalog", "validate", path)
	require.NoError(t, err)

	var summary CatalogSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.True(t, summary.Valid)
	assert.Equal(t, 15, summary.Levels)
	assert.Equal(t, 11, summary.Badges)
}

func TestCatalogValidateRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("levels:\n  thresholds: [5]\n"), 0o644))

	_, err := run(t, "catalog", "validate", path)
	assert.Error(t, err)
}

func TestLevelsWithCustomCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("levels:\n  thresholds: [0, 10]\n  titles: [Rookie, Pro]\n"), 0o644))

	out, err := run(t, "--catalog", path, "levels", "12")
	require.NoError(t, err)
	assert.Contains(t, out, "Pro")
}

func TestMigrateSQLite(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	path := filepath.Join(t.TempDir(), "progress.db")

	out, err := run(t, "migrate", "--sqlite", path)
	require.NoError(t, err)
	assert.Contains(t, out, "up to date")

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestMigrateRequiresTarget(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := run(t, "migrate")
	assert.Error(t, err)
}

func TestHashKey(t *testing.T) {
	out, err := run(t, "hash-key", "s3cret")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))

	_, err = run(t, "hash-key")
	assert.Error(t, err)
}

func TestMigrateStatusNeedsPostgres(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := run(t, "migrate", "--sqlite", filepath.Join(t.TempDir(), "p.db"), "--status")
	assert.ErrorContains(t, err, "Postgres")

	_, err = run(t, "migrate", "--database-url", "postgres://localhost/x", "--status", "--rollback")
	assert.ErrorContains(t, err, "mutually exclusive")
}

func TestWatchUnreachableRedis(t *testing.T) {
	_, err := run(t, "watch", "--redis-addr", "127.0.0.1:1", "--count", "1")
	assert.Error(t, err)
}
