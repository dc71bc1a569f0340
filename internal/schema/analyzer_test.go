package schema_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"db-graph/internal/dialect"
	"db-graph/internal/graph"
	"db-graph/internal/schema"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

var columnHeader = []string{"TABLE_NAME", "COLUMN_NAME", "DATA_TYPE", "COLUMN_TYPE", "CHARACTER_MAXIMUM_LENGTH", "IS_NULLABLE", "COLUMN_KEY", "EXTRA", "IS_UNIQUE", "COLUMN_COMMENT"}

var fkHeader = []string{"TABLE_NAME", "CONSTRAINT_NAME", "COLUMN_NAME", "REFERENCED_TABLE_SCHEMA", "REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME", "ORDINAL_POSITION", "DELETE_RULE"}

func TestAnalyze_MySQLCatalog(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.MatchExpectationsInOrder(false)

	mock.ExpectQuery("FROM information_schema.TABLES").
		WithArgs("htmlit").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "TABLE_COMMENT"}).
			AddRow("department", "").
			AddRow("employee", "staff members").
			AddRow("project", ""))

	mock.ExpectQuery("FROM information_schema.COLUMNS").
		WithArgs("htmlit").
		WillReturnRows(sqlmock.NewRows(columnHeader).
			AddRow("department", "id", "INT", "int(11)", nil, "NO", "PRI", "auto_increment", nil, "").
			AddRow("department", "name", "VARCHAR", "varchar(64)", "64", "NO", "UNI", "", "UNIQUE", "display name").
			AddRow("employee", "id", "INT", "int(11)", nil, "NO", "PRI", "auto_increment", nil, "").
			AddRow("employee", "department_id", "INT", "int(11)", nil, "NO", "MUL", "", nil, "").
			AddRow("employee", "manager_id", "INT", "int(11)", nil, "YES", "MUL", "", nil, "").
			AddRow("project", "id", "INT", "int(11)", nil, "NO", "PRI", "", nil, "").
			AddRow("project", "lead_id", "INT", "int(11)", nil, "YES", "", "", nil, "").
			AddRow("project", "lead_department", "INT", "int(11)", nil, "YES", "", "", nil, "").
			AddRow("ghost", "id", "INT", "int(11)", nil, "NO", "PRI", "", nil, ""))

	mock.ExpectQuery("FROM information_schema.KEY_COLUMN_USAGE").
		WithArgs("htmlit").
		WillReturnRows(sqlmock.NewRows(fkHeader).
			AddRow("employee", "fk_employee_department", "department_id", "htmlit", "department", "id", 1, "CASCADE").
			AddRow("employee", "fk_employee_manager", "manager_id", "htmlit", "employee", "id", 1, "SET NULL").
			AddRow("project", "fk_project_lead", "lead_department", "htmlit", "employee", "department_id", 2, "RESTRICT").
			AddRow("project", "fk_project_lead", "lead_id", "htmlit", "employee", "id", 1, "RESTRICT").
			AddRow("project", "fk_project_audit", "id", "audit", "events", "id", 1, "NO ACTION"))

	model, err := schema.Analyze(context.Background(), db, &dialect.MysqlDialect{}, "", "htmlit")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "htmlit", model.Name)
	assert.Equal(t, "htmlit", model.Schema)
	require.Len(t, model.Tables, 3)

	dept := model.Table(schema.TableKey{Schema: "htmlit", Name: "department"})
	require.NotNil(t, dept)
	require.Len(t, dept.Columns, 2)
	assert.True(t, dept.Columns[0].IsPK)
	assert.True(t, dept.Columns[0].IsAutoInc)
	assert.Equal(t, "int", dept.Columns[0].DataType)
	assert.True(t, dept.Columns[1].IsUnique)
	assert.Equal(t, 64, dept.Columns[1].Length)
	assert.Equal(t, "display name", dept.Columns[1].Comment)

	emp := model.Table(schema.TableKey{Schema: "htmlit", Name: "employee"})
	require.NotNil(t, emp)
	assert.Equal(t, "staff members", emp.Comment)
	require.Len(t, emp.ForeignKeys, 2)
	assert.Equal(t, "CASCADE", emp.ForeignKeys[0].OnDelete)
	assert.True(t, emp.ForeignKeys[1].IsSelfReference())
	assert.True(t, emp.ForeignKeys[1].IsOptional())

	proj := model.Table(schema.TableKey{Schema: "htmlit", Name: "project"})
	require.NotNil(t, proj)
	require.Len(t, proj.ForeignKeys, 1, "constraint into another schema is skipped")
	lead := proj.ForeignKeys[0]
	assert.Equal(t, []string{"lead_id", "lead_department"}, lead.Columns)
	assert.Equal(t, []string{"id", "department_id"}, lead.RefColumns)
}

func TestAnalyze_ResolvesCurrentSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.MatchExpectationsInOrder(false)

	mock.ExpectQuery("SELECT DATABASE").
		WillReturnRows(sqlmock.NewRows([]string{"DATABASE()"}).AddRow("sakila"))
	mock.ExpectQuery("FROM information_schema.TABLES").
		WithArgs("sakila").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "TABLE_COMMENT"}).AddRow("actor", ""))
	mock.ExpectQuery("FROM information_schema.COLUMNS").
		WithArgs("sakila").
		WillReturnRows(sqlmock.NewRows(columnHeader).
			AddRow("actor", "actor_id", "SMALLINT", "smallint(5)", nil, "NO", "PRI", "auto_increment", nil, ""))
	mock.ExpectQuery("FROM information_schema.KEY_COLUMN_USAGE").
		WithArgs("sakila").
		WillReturnRows(sqlmock.NewRows(fkHeader))

	model, err := schema.Analyze(context.Background(), db, &dialect.MysqlDialect{}, "", "")
	require.NoError(t, err)
	assert.Equal(t, "sakila", model.Schema)
	assert.Equal(t, "sakila", model.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyze_ForeignKeyQueryFailureAborts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.MatchExpectationsInOrder(false)

	mock.ExpectQuery("FROM information_schema.TABLES").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "TABLE_COMMENT"}).AddRow("actor", ""))
	mock.ExpectQuery("FROM information_schema.COLUMNS").
		WillReturnRows(sqlmock.NewRows(columnHeader))
	mock.ExpectQuery("FROM information_schema.KEY_COLUMN_USAGE").
		WillReturnError(sql.ErrConnDone)

	model, err := schema.Analyze(context.Background(), db, &dialect.MysqlDialect{}, "", "sakila")
	assert.Nil(t, model)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Contains(t, err.Error(), "failed to query foreign keys")
}

var sqliteDDL = []string{
	`CREATE TABLE department (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
	`CREATE TABLE employee (
		id INTEGER PRIMARY KEY,
		department_id INTEGER NOT NULL REFERENCES department(id) ON DELETE CASCADE,
		manager_id INTEGER REFERENCES employee,
		UNIQUE (id, department_id)
	)`,
	`CREATE TABLE project (
		id INTEGER PRIMARY KEY,
		lead_id INTEGER,
		lead_department INTEGER,
		FOREIGN KEY (lead_id, lead_department) REFERENCES employee(id, department_id)
	)`,
	`CREATE TABLE note (id INTEGER PRIMARY KEY, body VARCHAR(200))`,
}

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "company.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	for _, stmt := range sqliteDDL {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return db
}

func TestAnalyze_SQLite(t *testing.T) {
	db := openSQLite(t)

	model, err := schema.Analyze(context.Background(), db, &dialect.SQLiteDialect{}, "company", "")
	require.NoError(t, err)
	assert.Equal(t, "company", model.Name)
	assert.Equal(t, "main", model.Schema)
	require.Len(t, model.Tables, 4)

	emp := model.Table(schema.TableKey{Schema: "main", Name: "employee"})
	require.NotNil(t, emp)
	require.Len(t, emp.ForeignKeys, 2)
	for _, fk := range emp.ForeignKeys {
		switch fk.RefTable {
		case "department":
			assert.Equal(t, []string{"department_id"}, fk.Columns)
			assert.Equal(t, "CASCADE", fk.OnDelete)
			assert.False(t, fk.IsOptional())
		case "employee":
			// REFERENCES without a column list targets the primary key.
			assert.Equal(t, []string{"id"}, fk.RefColumns)
			assert.True(t, fk.IsOptional())
		default:
			t.Fatalf("unexpected constraint %s", fk)
		}
	}

	proj := model.Table(schema.TableKey{Schema: "main", Name: "project"})
	require.Len(t, proj.ForeignKeys, 1)
	assert.Equal(t, []string{"lead_id", "lead_department"}, proj.ForeignKeys[0].Columns)
	assert.Equal(t, []string{"id", "department_id"}, proj.ForeignKeys[0].RefColumns)

	note := model.Table(schema.TableKey{Schema: "main", Name: "note"})
	require.Len(t, note.Columns, 2)
	assert.Equal(t, "varchar", note.Columns[1].DataType)
	assert.True(t, note.Columns[1].IsNullable)

	snap, err := graph.Resolve(model)
	require.NoError(t, err)

	var order []string
	for _, k := range snap.InsertionOrder() {
		order = append(order, k.Name)
	}
	assert.Equal(t, []string{"department", "employee", "note", "project"}, order)
	require.Len(t, snap.Deferred(), 1)
	assert.True(t, snap.Deferred()[0].SelfLoop())
}

func TestAnalyze_CaseDistinctTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.MatchExpectationsInOrder(false)

	mock.ExpectQuery("FROM information_schema.tables").
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "obj_description"}).
			AddRow("Item", "quoted").
			AddRow("item", "").
			AddRow("order_line", ""))
	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows(columnHeader).
			AddRow("Item", "id", "int4", "integer", nil, "NO", "PRI", "", nil, "").
			AddRow("item", "id", "int4", "integer", nil, "NO", "PRI", "", nil, "").
			AddRow("order_line", "id", "int4", "integer", nil, "NO", "PRI", "", nil, "").
			AddRow("order_line", "item_id", "int4", "integer", nil, "YES", "", "", nil, ""))
	mock.ExpectQuery("FROM pg_constraint").
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows(fkHeader).
			AddRow("order_line", "order_line_item_fkey", "item_id", "public", "Item", "id", 1, "NO ACTION"))

	model, err := schema.Analyze(context.Background(), db, &dialect.PostgresDialect{}, "shop", "public")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	require.Len(t, model.Tables, 3)

	upper := model.Table(schema.TableKey{Schema: "public", Name: "Item"})
	lower := model.Table(schema.TableKey{Schema: "public", Name: "item"})
	require.NotNil(t, upper)
	require.NotNil(t, lower)
	assert.Len(t, upper.Columns, 1)
	assert.Len(t, lower.Columns, 1)
	assert.Equal(t, "quoted", upper.Comment)

	line := model.Table(schema.TableKey{Schema: "public", Name: "order_line"})
	require.Len(t, line.ForeignKeys, 1)
	assert.Equal(t, "Item", line.ForeignKeys[0].RefTable)
	assert.Len(t, upper.Referenced, 1)
	assert.Empty(t, lower.Referenced)
}

func TestAnalyze_FoldsCaseWhenUnambiguous(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.MatchExpectationsInOrder(false)

	mock.ExpectQuery("FROM information_schema.TABLES").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "TABLE_COMMENT"}).
			AddRow("department", "").
			AddRow("employee", ""))
	mock.ExpectQuery("FROM information_schema.COLUMNS").
		WillReturnRows(sqlmock.NewRows(columnHeader).
			AddRow("department", "id", "INT", "int(11)", nil, "NO", "PRI", "", nil, "").
			AddRow("employee", "id", "INT", "int(11)", nil, "NO", "PRI", "", nil, "").
			AddRow("EMPLOYEE", "department_id", "INT", "int(11)", nil, "NO", "", "", nil, ""))
	mock.ExpectQuery("FROM information_schema.KEY_COLUMN_USAGE").
		WillReturnRows(sqlmock.NewRows(fkHeader).
			AddRow("Employee", "fk_employee_department", "department_id", "hr", "DEPARTMENT", "id", 1, "RESTRICT"))

	model, err := schema.Analyze(context.Background(), db, &dialect.MysqlDialect{}, "", "hr")
	require.NoError(t, err)

	emp := model.Table(schema.TableKey{Schema: "hr", Name: "employee"})
	require.NotNil(t, emp)
	require.Len(t, emp.Columns, 2)
	require.Len(t, emp.ForeignKeys, 1)
	assert.Equal(t, "department", emp.ForeignKeys[0].RefTable)
}
