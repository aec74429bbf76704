package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekorekillian57-star/spendo/pkg/migrate"
)

func embeddedMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := fs.Glob(migrate.Migrations(), pattern)
	require.NoError(t, err)
	require.Len(t, matches, 1, "migration %s", pattern)
	data, err := fs.ReadFile(migrate.Migrations(), matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, migrate.Validate(migrate.Migrations()))
}

func TestEmbeddedSetMatchesSourceDir(t *testing.T) {
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	embedded, err := fs.Glob(migrate.Migrations(), "*.sql")
	require.NoError(t, err)
	assert.Len(t, embedded, len(onDisk))
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := embeddedMigration(t, "*_create_payment_intents_and_orders.sql")
	for _, stmt := range []string{
		"CREATE TABLE IF NOT EXISTS payment_intents",
		"CONSTRAINT payment_intents_reference_key UNIQUE (reference)",
		"CREATE TABLE IF NOT EXISTS orders",
		"user_id uuid NULL REFERENCES users(id) ON DELETE SET NULL",
		"CONSTRAINT orders_payment_ref_line_key UNIQUE (payment_ref, line_no)",
		"USING gin (recipients jsonb_path_ops)",
		"DROP TABLE IF EXISTS orders",
	} {
		assert.Contains(t, content, stmt)
	}
}

func TestCartMigrationKeepsOneLinePerPackage(t *testing.T) {
	content := embeddedMigration(t, "*_create_cart_items.sql")
	for _, stmt := range []string{
		"CONSTRAINT cart_items_user_package_key UNIQUE (user_id, package_id)",
		"CHECK (quantity >= 1)",
		"REFERENCES users(id) ON DELETE CASCADE",
	} {
		assert.Contains(t, content, stmt)
	}
}

func TestCreateSQLMigrationSlugsName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Package Notes!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_package_notes.sql"), path)
	require.NoError(t, migrate.ValidateDir(dir))

	_, err = migrate.CreateSQLMigration(dir, "!!!")
	assert.Error(t, err)
}

func TestValidateRejectsBrokenSets(t *testing.T) {
	good := "-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n"
	cases := map[string]fstest.MapFS{
		"bad name": {"add_table.sql": {Data: []byte(good)}},
		"duplicate version": {
			"20260301090000_a.sql": {Data: []byte(good)},
			"20260301090000_b.sql": {Data: []byte(good)},
		},
		"missing down": {"20260301090000_a.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")}},
		"concurrent index in tx": {"20260301090000_a.sql": {Data: []byte(
			"-- +goose Up\nCREATE INDEX CONCURRENTLY idx ON orders (status);\n-- +goose Down\nDROP INDEX idx;\n")}},
		"empty": {},
	}
	for name, set := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, migrate.Validate(set))
		})
	}

	ok := fstest.MapFS{"20260301090000_a.sql": {Data: []byte(
		"-- +goose NO TRANSACTION\n-- +goose Up\nCREATE INDEX CONCURRENTLY idx ON orders (status);\n-- +goose Down\nDROP INDEX idx;\n")}}
	assert.NoError(t, migrate.Validate(ok))
}

func TestValidateDirMissing(t *testing.T) {
	assert.Error(t, migrate.ValidateDir(filepath.Join(os.TempDir(), "spendo-no-such-dir")))
}
