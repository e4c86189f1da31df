package writer

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/daysim/daysim/internal/model"
	simerrors "github.com/daysim/daysim/pkg/errors"
)

// DuckDBExporter writes the four tables into one DuckDB database file.
type DuckDBExporter struct {
	cfg    Config
	path   string
	db     *sql.DB
	stmts  map[string]*sql.Stmt
	totals map[string]int64
	closed bool
}

func sqlType(k columnKind) string {
	switch k {
	case kindString:
		return "VARCHAR"
	case kindBool:
		return "BOOLEAN"
	default:
		return "BIGINT"
	}
}

func createTableSQL(t table) string {
	cols := make([]string, len(t.columns))
	for i, c := range t.columns {
		cols[i] = fmt.Sprintf("%s %s NOT NULL", c.name, sqlType(c.kind))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", t.name, strings.Join(cols, ", "))
}

func insertSQL(t table) string {
	names := make([]string, len(t.columns))
	marks := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, strings.Join(names, ", "), strings.Join(marks, ", "))
}

// NewDuckDBExporter creates daysim.duckdb under cfg.Dir.
func NewDuckDBExporter(cfg Config) (*DuckDBExporter, error) {
	path := filepath.Join(cfg.Dir, "daysim.duckdb")
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, simerrors.Wrap(err, simerrors.CodeWriteFailed, "open duckdb").WithContext("path", path)
	}

	e := &DuckDBExporter{
		cfg:    cfg,
		path:   path,
		db:     db,
		stmts:  make(map[string]*sql.Stmt, len(tables)),
		totals: make(map[string]int64, len(tables)),
	}
	for _, t := range tables {
		if _, err := db.Exec(createTableSQL(t)); err != nil {
			db.Close()
			return nil, simerrors.Wrap(err, simerrors.CodeWriteFailed, "create table").WithContext("table", t.name)
		}
		stmt, err := db.Prepare(insertSQL(t))
		if err != nil {
			db.Close()
			return nil, simerrors.Wrap(err, simerrors.CodeWriteFailed, "prepare insert").WithContext("table", t.name)
		}
		e.stmts[t.name] = stmt
	}
	return e, nil
}

// Export implements Exporter. Each call is one transaction.
func (e *DuckDBExporter) Export(ctx context.Context, days []*model.HouseholdDay) error {
	if len(days) == 0 {
		return nil
	}
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return simerrors.Wrap(err, simerrors.CodeWriteFailed, "begin transaction")
	}

	added := make(map[string]int64, len(tables))
	for _, d := range days {
		projected := rows(d)
		for _, t := range tables {
			stmt := tx.StmtContext(ctx, e.stmts[t.name])
			for _, row := range projected[t.name] {
				if _, err := stmt.ExecContext(ctx, row...); err != nil {
					tx.Rollback()
					return simerrors.Wrap(err, simerrors.CodeWriteFailed, "insert row").
						WithContext("table", t.name).
						WithContext(simerrors.KeyHousehold, d.Household.ID)
				}
				added[t.name]++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return simerrors.Wrap(err, simerrors.CodeWriteFailed, "commit transaction")
	}
	for name, n := range added {
		e.totals[name] += n
	}
	return nil
}

// Close implements Exporter.
func (e *DuckDBExporter) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	for _, stmt := range e.stmts {
		stmt.Close()
	}
	if _, err := e.db.Exec("CHECKPOINT"); err != nil {
		e.db.Close()
		return simerrors.Wrap(err, simerrors.CodeWriteFailed, "checkpoint duckdb").WithContext("path", e.path)
	}
	return e.db.Close()
}

// Files implements Exporter.
func (e *DuckDBExporter) Files() []string {
	return []string{e.path}
}

// RowsWritten implements Exporter.
func (e *DuckDBExporter) RowsWritten() map[string]int64 {
	out := make(map[string]int64, len(e.totals))
	for name, n := range e.totals {
		out[name] = n
	}
	return out
}
