package cmd

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"testing"

	"db-graph/internal/dialect"
	"db-graph/internal/graph"
	"db-graph/internal/run"
	"db-graph/internal/schema"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTable(schemaName, name string, refs ...string) *schema.Table {
	t := &schema.Table{
		Schema:  schemaName,
		Name:    name,
		Columns: []*schema.Column{{Name: "id", IsPK: true}},
	}
	for _, ref := range refs {
		t.Columns = append(t.Columns, &schema.Column{Name: ref + "_id", IsNullable: true})
		t.ForeignKeys = append(t.ForeignKeys, &schema.ForeignKey{
			Name:       "fk_" + name + "_" + ref,
			Columns:    []string{ref + "_id"},
			RefTable:   ref,
			RefColumns: []string{"id"},
		})
	}
	return t
}

// cyclic returns X <-> Y, Z -> Y and a table in another schema.
func cyclic(t *testing.T) *graph.Snapshot {
	t.Helper()
	r, err := run.New(context.Background(), &run.StaticSource{
		Database: "shop",
		Schema:   "public",
		Tables: []*schema.Table{
			newTable("public", "X", "Y"),
			newTable("public", "Y", "X"),
			newTable("public", "Z", "Y"),
			newTable("audit", "events"),
		},
	}, 0)
	require.NoError(t, err)
	return r.Snapshot
}

func setViper(t *testing.T, key string, value any) {
	t.Helper()
	viper.Set(key, value)
	t.Cleanup(func() { viper.Set(key, nil) })
}

func TestDetectDriver(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"root:root@tcp(127.0.0.1:3306)/sakila", "mysql"},
		{"postgres://user@localhost/db", "postgres"},
		{"host=localhost dbname=x sslmode=disable", "postgres"},
		{"sqlserver://sa:pw@localhost?database=x", "sqlserver"},
		{"oracle://user:pw@localhost:1521/XE", "oracle"},
		{"file:test.db?cache=shared", "sqlite"},
		{"/tmp/company.sqlite", "sqlite"},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			assert.Equal(t, tt.want, detectDriver(tt.dsn))
		})
	}
}

func TestResolveDBConfig_FlagsOverrideConfigFile(t *testing.T) {
	setViper(t, "databases", []map[string]any{
		{"name": "local", "driver": "mysql", "dsn": "root@tcp(localhost)/a", "active": true},
	})
	setViper(t, "database.dsn", "postgres://localhost/b")
	setViper(t, "database.schema", "inventory")

	cfg, err := ResolveDBConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Driver)
	assert.Equal(t, "postgres://localhost/b", cfg.DSN)
	assert.Equal(t, "inventory", cfg.Schema)
}

func TestResolveDBConfig_ActiveDatabase(t *testing.T) {
	setViper(t, "databases", []map[string]any{
		{"name": "old", "driver": "mysql", "dsn": "a", "active": false},
		{"name": "prod", "driver": "pgx", "dsn": "b", "schema": "sales", "active": true},
	})

	cfg, err := ResolveDBConfig()
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Name)
	assert.Equal(t, "pgx", cfg.Driver)
	assert.Equal(t, "sales", cfg.Schema)
}

func TestGetActiveDBConfig_Errors(t *testing.T) {
	setViper(t, "databases", []map[string]any{
		{"name": "a", "active": true},
		{"name": "b", "active": true},
	})
	_, err := GetActiveDBConfig()
	assert.ErrorContains(t, err, "multiple active databases")

	setViper(t, "databases", []map[string]any{{"name": "a"}})
	_, err = GetActiveDBConfig()
	assert.ErrorContains(t, err, "no active database")
}

func TestGetSettings_Defaults(t *testing.T) {
	s, err := GetSettings()
	require.NoError(t, err)
	assert.Equal(t, "db-graph-out", s.Output)
	assert.Positive(t, s.Timeout)
	assert.Positive(t, s.Workers)
}

func TestPrintOrder(t *testing.T) {
	snap := cyclic(t)

	var buf bytes.Buffer
	require.NoError(t, printOrder(&buf, snap, false, true))
	assert.Equal(t, "audit.events\nX\nY\nZ\n", buf.String())

	buf.Reset()
	require.NoError(t, printOrder(&buf, snap, true, true))
	assert.Equal(t, "Z\nY\nX\naudit.events\n", buf.String())

	buf.Reset()
	require.NoError(t, printOrder(&buf, snap, true, false))
	out := buf.String()
	assert.Contains(t, out, "Deletion Order")
	assert.Contains(t, out, "audit.events")
	assert.Contains(t, out, "fk_X_Y")
	assert.Contains(t, out, "deferred to break reference cycles")
}

func TestCleanStatements_SkipsOtherSchemas(t *testing.T) {
	got := cleanStatements(cyclic(t), &dialect.PostgresDialect{})
	assert.Equal(t, []string{
		`DELETE FROM "Z"`,
		`DELETE FROM "Y"`,
		`DELETE FROM "X"`,
	}, got)
}

func TestCleanDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET FOREIGN_KEY_CHECKS = 0")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `Z`")).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `Y`")).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `X`")).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("SET FOREIGN_KEY_CHECKS = 1")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, cleanDatabase(context.Background(), db, &dialect.MysqlDialect{}, cyclic(t)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanDatabase_RollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("lock wait timeout")
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET FOREIGN_KEY_CHECKS = 0")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `Z`")).WillReturnError(boom)
	mock.ExpectRollback()

	err = cleanDatabase(context.Background(), db, &dialect.MysqlDialect{}, cyclic(t))
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
