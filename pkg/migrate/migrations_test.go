package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected one %s migration", suffix)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	embeddedNames, err := fs.Glob(embedded, "migrations/*.sql")
	require.NoError(t, err)
	diskNames, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	assert.Len(t, embeddedNames, len(diskNames))
}

func TestEnumMigrationDeclaresClosedSets(t *testing.T) {
	content := readMigration(t, "create_attribution_enums")
	for _, sub := range []string{
		"CREATE TYPE identity_source_enum AS ENUM ('user_id', 'session_id', 'device_id', 'event_id')",
		"CREATE TYPE attribution_model_type_enum AS ENUM ('first_touch', 'last_touch', 'linear', 'time_decay', 'position_based')",
		"DROP TYPE IF EXISTS attribution_model_type_enum",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestSnapshotMigrationsContainKeys(t *testing.T) {
	paths := readMigration(t, "create_attribution_paths")
	assert.Contains(t, paths, "id uuid PRIMARY KEY")
	assert.Contains(t, paths, "CHECK (touchpoint_count > 0)")
	assert.Contains(t, paths, "DROP TABLE IF EXISTS attribution_paths")

	results := readMigration(t, "create_attribution_results")
	assert.Contains(t, results, "CONSTRAINT attribution_results_run_key UNIQUE (tenant_id, campaign_id, model_type, calculated_at)")
	assert.Contains(t, results, "unallocated_value numeric(14,2)")
	assert.Contains(t, results, "CHECK (confidence_score >= 0 AND confidence_score <= 1)")

	events := readMigration(t, "create_touchpoint_events")
	assert.Contains(t, events, "CREATE INDEX IF NOT EXISTS idx_touchpoint_events_scope_occurred")
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 5, 1, 12, 30, 45, 0, time.UTC)

	path, err := createSQLMigrationAt(dir, "  Add Campaign Index! ", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20260501123045_add_campaign_index.sql"), path)
	require.NoError(t, ValidateDir(dir))

	_, err = createSQLMigrationAt(dir, "add campaign index", now)
	assert.ErrorContains(t, err, "already exists")

	_, err = createSQLMigrationAt(dir, "!!!", now)
	assert.Error(t, err)
	_, err = createSQLMigrationAt("", "x", now)
	assert.Error(t, err)
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Error(t, ValidateDir(t.TempDir()))
	})
	t.Run("bad name", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "create.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
		assert.ErrorContains(t, ValidateDir(dir), "invalid migration filename")
	})
	t.Run("duplicate version", func(t *testing.T) {
		dir := t.TempDir()
		body := []byte("-- +goose Up\n-- +goose Down\n")
		require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_a.sql"), body, 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_b.sql"), body, 0o644))
		assert.ErrorContains(t, ValidateDir(dir), "duplicate migration version")
	})
	t.Run("missing down", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_a.sql"), []byte("-- +goose Up\n"), 0o644))
		assert.ErrorContains(t, ValidateDir(dir), "+goose Down")
	})
	t.Run("unbalanced statements", func(t *testing.T) {
		dir := t.TempDir()
		body := strings.Join([]string{"-- +goose Up", "-- +goose StatementBegin", "-- +goose Down"}, "\n")
		require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_a.sql"), []byte(body), 0o644))
		assert.ErrorContains(t, ValidateDir(dir), "unbalanced")
	})
}
