package database

import (
	"errors"
	"io"
	"io/fs"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readMigration(t *testing.T, r io.ReadCloser) string {
	t.Helper()
	defer r.Close()
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(body)
}

func TestEmbeddedMigrationsOpen(t *testing.T) {
	src, err := iofs.New(migrationFiles, "migrations")
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	_, err = src.Next(first)
	assert.True(t, errors.Is(err, fs.ErrNotExist), "expected a single migration, got %v", err)

	up, _, err := src.ReadUp(first)
	require.NoError(t, err)
	upSQL := readMigration(t, up)
	for _, table := range []string{"users", "scholarships", "applications", "reviews"} {
		assert.Contains(t, upSQL, "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Contains(t, upSQL, "transaction_id      TEXT UNIQUE")

	down, _, err := src.ReadDown(first)
	require.NoError(t, err)
	downSQL := readMigration(t, down)
	for _, table := range []string{"users", "scholarships", "applications", "reviews"} {
		assert.Contains(t, downSQL, "DROP TABLE IF EXISTS "+table)
	}
}

func TestMigrateReportsDriverFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("SELECT CURRENT_DATABASE").WillReturnError(errors.New("connection reset"))
	log, _ := test.NewNullLogger()

	err = Migrate(db, log)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration driver")
}
