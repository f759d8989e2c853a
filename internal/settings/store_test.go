package settings

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore creates a migrated in-memory store for testing.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoad_EmptyDatabaseReturnsDefaults(t *testing.T) {
	store := openTestStore(t)

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.Domains)
	assert.NotNil(t, got.Domains, "domains should be an empty list, not nil")
	assert.True(t, got.SkipHomepageRedirect, "missing skip key defaults to true")
}

func TestSaveDomains_PreservesOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveDomains(ctx, []string{"wsj.com", "bloomberg.com", "ft.com"}))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"wsj.com", "bloomberg.com", "ft.com"}, got.Domains)
}

func TestSaveDomains_NilStoresEmptyList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveDomains(ctx, []string{"a.com"}))
	require.NoError(t, store.SaveDomains(ctx, nil))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{}, got.Domains)
}

func TestSaveSkipHomepage_Overwrites(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSkipHomepage(ctx, false))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, got.SkipHomepageRedirect)

	require.NoError(t, store.SaveSkipHomepage(ctx, true))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, got.SkipHomepageRedirect)
}

func TestSeedDefaults_OnlyAbsentKeys(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSkipHomepage(ctx, false))

	seeded, err := store.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyDomains}, seeded)

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, got.SkipHomepageRedirect, "existing value must not be overwritten")
	assert.Equal(t, []string{}, got.Domains)

	seeded, err = store.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Empty(t, seeded, "second seed is a no-op")
}

func TestPersistedLayout_UsesTwoJSONKeys(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveDomains(ctx, []string{"example.com"}))
	require.NoError(t, store.SaveSkipHomepage(ctx, true))

	rows, err := store.db.Query("SELECT key, value FROM settings ORDER BY key")
	require.NoError(t, err)
	defer rows.Close()

	got := map[string]string{}
	for rows.Next() {
		var k, v string
		require.NoError(t, rows.Scan(&k, &v))
		got[k] = v
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, map[string]string{
		"domains":                     `["example.com"]`,
		"skipHomepageRedirectEnabled": "true",
	}, got)
}

func TestOpen_FileDatabaseSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveDomains(ctx, []string{"nytimes.com"}))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"nytimes.com"}, got.Domains)
}

func TestMigrationRunner_Idempotent(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	require.NoError(t, NewMigrationRunner(db).Run())
	require.NoError(t, NewMigrationRunner(db).Run())

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
}
