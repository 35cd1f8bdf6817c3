package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMigrations(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}
	return dir
}

func TestMigrateSkipsApplied(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"001_init.sql":  "CREATE TABLE a (id TEXT);",
		"002_more.sql":  "CREATE TABLE b (id TEXT);",
		"003_empty.sql": "   ",
		"README.md":     "ignored",
	})

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS newsletter_schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version FROM newsletter_schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("001_init.sql"))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE b").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO newsletter_schema_migrations").
		WithArgs("002_more.sql").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, failed, err := migrate(db, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.Equal(t, 0, failed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateRollsBackFailure(t *testing.T) {
	dir := writeMigrations(t, map[string]string{"001_bad.sql": "CREATE TABLE broken ("})

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS newsletter_schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version FROM newsletter_schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE broken").WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	applied, failed, err := migrate(db, dir)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
	assert.Equal(t, 1, failed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT tablename FROM pg_tables").
		WillReturnRows(sqlmock.NewRows([]string{"tablename"}).
			AddRow("newsletter_campaigns").
			AddRow("newsletter_subscribers"))

	tables, err := listTables(db)
	require.NoError(t, err)
	assert.Equal(t, []string{"newsletter_campaigns", "newsletter_subscribers"}, tables)
}
