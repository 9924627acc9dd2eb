package dbgateway

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SchemaFile is the declarative schema description parsed by
// BootstrapSchema: one entry per table, naming its columns, foreign
// keys, and indexes.
type SchemaFile struct {
	Tables map[string]SchemaTable `yaml:"tables"`
}

type SchemaTable struct {
	Columns     map[string]SchemaColumn `yaml:"columns"`
	ForeignKeys []ForeignKey            `yaml:"foreign_keys"`
	Indexes     []Index                 `yaml:"indexes"`
}

type SchemaColumn struct {
	Type          string `yaml:"type"`
	PrimaryKey    bool   `yaml:"primary_key"`
	AutoIncrement bool   `yaml:"auto_increment"`
	Nullable      bool   `yaml:"nullable"`
	Default       *string `yaml:"default"`
}

type ForeignKey struct {
	Column     string     `yaml:"column"`
	References Reference  `yaml:"references"`
}

type Reference struct {
	Table  string `yaml:"table"`
	Column string `yaml:"column"`
}

type Index struct {
	Columns []string `yaml:"columns"`
}

// readingsTableName must match registry.ReadingsTable; duplicated here
// to avoid a dependency from dbgateway onto registry for one constant.
const readingsTableName = "object_readings"

const partitionStartYear, partitionStartMonth = 2026, 1
const partitionEndYear, partitionEndMonth = 2035, 12

var sqlTypeAliases = map[string]string{
	"INTEGER": "INTEGER",
	"INT":     "INTEGER",
	"BIGINT":  "BIGINT",
	"TEXT":    "TEXT",
	"STRING":  "TEXT",
	"DOUBLE":  "DOUBLE PRECISION",
	"FLOAT":   "REAL",
	"BOOLEAN": "BOOLEAN",
	"BOOL":    "BOOLEAN",
	"TIMESTAMP": "TIMESTAMP",
	"DATETIME":  "TIMESTAMP",
}

func sqlType(declared string) string {
	if t, ok := sqlTypeAliases[strings.ToUpper(declared)]; ok {
		return t
	}
	return strings.ToUpper(declared)
}

// ReadSchemaFile reads and parses path into a SchemaFile. Exposed
// separately from BootstrapSchema so callers that only need the table
// list (for example, to find which tables have seed rows waiting)
// don't have to re-run the bootstrap itself.
func ReadSchemaFile(path string) (*SchemaFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dbgateway: read schema file: %w", err)
	}
	var schema SchemaFile
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("dbgateway: malformed schema file: %w", err)
	}
	return &schema, nil
}

// BootstrapSchema reads schemaPath and issues CREATE TABLE IF NOT
// EXISTS for every declared table, including composite primary keys,
// foreign keys, secondary indexes, and — for the readings table
// specifically — a monthly range-partitioning scheme from 2026-01
// through 2035-12 plus a catch-all partition. All DDL runs inside a
// single transaction; any failure rolls back.
func (g *Gateway) BootstrapSchema(ctx context.Context, schemaPath string) bool {
	schema, err := ReadSchemaFile(schemaPath)
	if err != nil {
		g.logger.Error("dbgateway: bootstrap_schema", "error", err)
		return false
	}

	pool, err := g.currentPool()
	if err != nil {
		g.logger.Error("dbgateway: bootstrap_schema on closed gateway", "error", err)
		return false
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		g.logger.Error("dbgateway: begin failed", "error", newError("bootstrap_schema", err))
		return false
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	for name, table := range schema.Tables {
		stmt := createTableStatement(name, table)
		if _, err := tx.Exec(ctx, stmt); err != nil {
			g.logger.Error("dbgateway: create table failed", "table", name, "error", newError("bootstrap_schema", err))
			return false
		}
		if name == readingsTableName {
			for _, stmt := range readingsPartitionStatements() {
				if _, err := tx.Exec(ctx, stmt); err != nil {
					g.logger.Error("dbgateway: create partition failed", "table", name, "error", newError("bootstrap_schema", err))
					return false
				}
			}
		}
		for _, idx := range table.Indexes {
			stmt := createIndexStatement(name, idx)
			if _, err := tx.Exec(ctx, stmt); err != nil {
				g.logger.Error("dbgateway: create index failed", "table", name, "error", newError("bootstrap_schema", err))
				return false
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		g.logger.Error("dbgateway: commit failed", "error", newError("bootstrap_schema", err))
		return false
	}
	committed = true
	return true
}

// InsertStaticRows pre-seeds table with rows inside a single
// transaction, one parameterised INSERT per row with ON CONFLICT DO
// NOTHING so a re-run of bootstrap_schema never duplicates a row
// already seeded. Column order per row is sorted for a deterministic
// statement; rows with different column sets issue different
// statements, since a static reference table's rows are expected to
// share the same columns but nothing here requires it.
func (g *Gateway) InsertStaticRows(ctx context.Context, table string, rows []map[string]any) bool {
	if len(rows) == 0 {
		return true
	}

	pool, err := g.currentPool()
	if err != nil {
		g.logger.Error("dbgateway: insert_static_rows on closed gateway", "error", err)
		return false
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		g.logger.Error("dbgateway: begin failed", "error", newError("insert_static_rows", err))
		return false
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	for _, row := range rows {
		cols := make([]string, 0, len(row))
		for col := range row {
			cols = append(cols, col)
		}
		sort.Strings(cols)

		placeholders := make([]string, len(cols))
		args := make([]any, len(cols))
		for i, col := range cols {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args[i] = row[col]
		}

		stmt := fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
			table, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
		)
		if _, err := tx.Exec(ctx, stmt, args...); err != nil {
			g.logger.Error("dbgateway: insert static row failed", "table", table, "error", newError("insert_static_rows", err))
			return false
		}
	}

	if err := tx.Commit(ctx); err != nil {
		g.logger.Error("dbgateway: commit failed", "error", newError("insert_static_rows", err))
		return false
	}
	committed = true
	return true
}

func createTableStatement(name string, table SchemaTable) string {
	var cols []string
	var pks []string

	for colName, col := range table.Columns {
		def := fmt.Sprintf("%s %s", colName, sqlType(col.Type))
		if col.AutoIncrement {
			def = fmt.Sprintf("%s GENERATED ALWAYS AS IDENTITY", def)
		}
		if !col.Nullable && !col.PrimaryKey {
			def += " NOT NULL"
		}
		if col.Default != nil {
			def += " DEFAULT " + *col.Default
		}
		cols = append(cols, def)
		if col.PrimaryKey {
			pks = append(pks, colName)
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	for _, fk := range table.ForeignKeys {
		cols = append(cols, fmt.Sprintf(
			"FOREIGN KEY (%s) REFERENCES %s (%s)",
			fk.Column, fk.References.Table, fk.References.Column,
		))
	}

	partitionClause := ""
	if name == readingsTableName {
		partitionClause = " PARTITION BY RANGE (reading_timestamp)"
	}

	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n)%s",
		name, strings.Join(cols, ",\n  "), partitionClause,
	)
}

func createIndexStatement(table string, idx Index) string {
	name := fmt.Sprintf("idx_%s_%s", table, strings.Join(idx.Columns, "_"))
	return fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
		name, table, strings.Join(idx.Columns, ", "),
	)
}

// readingsPartitionStatements generates one monthly partition for the
// readings table from 2026-01 through 2035-12 plus a catch-all default
// partition standing in for the original's pMax bucket.
func readingsPartitionStatements() []string {
	var stmts []string

	start := time.Date(partitionStartYear, time.Month(partitionStartMonth), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(partitionEndYear, time.Month(partitionEndMonth), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)

	for cur := start; cur.Before(end); cur = cur.AddDate(0, 1, 0) {
		next := cur.AddDate(0, 1, 0)
		partName := fmt.Sprintf("%s_p%04d%02d", readingsTableName, cur.Year(), int(cur.Month()))
		stmts = append(stmts, fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s PARTITION OF %s FOR VALUES FROM ('%s') TO ('%s')",
			partName, readingsTableName, cur.Format("2006-01-02"), next.Format("2006-01-02"),
		))
	}

	stmts = append(stmts, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s_pmax PARTITION OF %s DEFAULT",
		readingsTableName, readingsTableName,
	))

	return stmts
}
