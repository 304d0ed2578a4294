package assistant

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

const listTablesSQL = "SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename"

// Result holds the rows returned by a query, with values ready for JSON encoding.
type Result struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// RunSQL executes query against the SEAD database inside a read-only transaction.
func (s *Service) RunSQL(ctx context.Context, query string) (*Result, error) {
	if !IsSQLValid(query) {
		return nil, ErrNotSQL
	}
	tx, err := s.DB.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin read-only transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := scanResult(ctx, tx, query)
	if err != nil {
		return nil, err
	}
	return res, tx.Commit()
}

func scanResult(ctx context.Context, tx *sqlx.Tx, query string) (*Result, error) {
	rows, err := tx.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to run sql: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	res := &Result{Columns: columns, Rows: make([][]interface{}, 0)}
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			values[i] = normalize(v)
		}
		res.Rows = append(res.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// ListTables returns the tables of the public schema.
func (s *Service) ListTables(ctx context.Context) ([]string, error) {
	tables := make([]string, 0)
	if err := s.DB.SelectContext(ctx, &tables, listTablesSQL); err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return tables, nil
}

func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	}
	return v
}

// Markdown renders at most limit rows as a markdown table.
func (r *Result) Markdown(limit int) string {
	var b strings.Builder
	b.WriteString("| " + strings.Join(r.Columns, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(r.Columns)) + "\n")
	for i, row := range r.Rows {
		if i == limit {
			break
		}
		cells := make([]string, len(row))
		for j, v := range row {
			if v == nil {
				cells[j] = ""
				continue
			}
			cells[j] = strings.ReplaceAll(fmt.Sprint(v), "|", `\|`)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return b.String()
}

// Strings renders every row as text, header first.
func (r *Result) Strings() [][]string {
	out := make([][]string, 0, len(r.Rows)+1)
	out = append(out, r.Columns)
	for _, row := range r.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}
		out = append(out, cells)
	}
	return out
}
