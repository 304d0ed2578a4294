package training

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const informationSchemaSQL = `
SELECT
	table_catalog,
	table_schema,
	table_name,
	column_name,
	data_type,
	is_nullable,
	ordinal_position,
	col_description(format('%I.%I', table_schema, table_name)::regclass, ordinal_position) AS comment
FROM information_schema.columns
WHERE table_schema = 'public'
ORDER BY table_catalog, table_schema, table_name, ordinal_position
`

// Querier is satisfied by *sqlx.DB.
type Querier interface {
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Column is one row of information_schema.columns.
type Column struct {
	Catalog  string         `db:"table_catalog"`
	Schema   string         `db:"table_schema"`
	Table    string         `db:"table_name"`
	Name     string         `db:"column_name"`
	DataType string         `db:"data_type"`
	Nullable string         `db:"is_nullable"`
	Position int            `db:"ordinal_position"`
	Comment  sql.NullString `db:"comment"`
}

// PlanItem is a schema fragment ready for ingestion as documentation.
type PlanItem struct {
	Group string
	Name  string
	Value string
}

// Introspect reads the column metadata of the public schema.
func Introspect(ctx context.Context, db Querier) ([]Column, error) {
	var columns []Column
	if err := db.SelectContext(ctx, &columns, informationSchemaSQL); err != nil {
		return nil, fmt.Errorf("failed to query information schema: %w", err)
	}
	return columns, nil
}

// BuildPlan splits column metadata into one item per catalog, schema and table, in the
// order tables first appear.
func BuildPlan(columns []Column) []PlanItem {
	type key struct{ catalog, schema, table string }

	var order []key
	byTable := make(map[key][]Column)
	for _, c := range columns {
		k := key{c.Catalog, c.Schema, c.Table}
		if _, ok := byTable[k]; !ok {
			order = append(order, k)
		}
		byTable[k] = append(byTable[k], c)
	}

	plan := make([]PlanItem, 0, len(order))
	for _, k := range order {
		doc := fmt.Sprintf("The following columns are in the %s table in the %s database:\n\n", k.table, k.catalog)
		doc += columnsMarkdown(byTable[k])
		plan = append(plan, PlanItem{
			Group: k.catalog + "." + k.schema,
			Name:  k.table,
			Value: doc,
		})
	}
	return plan
}

func columnsMarkdown(columns []Column) string {
	withComments := false
	for _, c := range columns {
		if c.Comment.Valid && c.Comment.String != "" {
			withComments = true
			break
		}
	}

	header := []string{"table_catalog", "table_schema", "table_name", "column_name", "data_type", "is_nullable"}
	if withComments {
		header = append(header, "comment")
	}

	var b strings.Builder
	writeRow(&b, header)
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = ":---"
	}
	writeRow(&b, sep)
	for _, c := range columns {
		row := []string{c.Catalog, c.Schema, c.Table, c.Name, c.DataType, c.Nullable}
		if withComments {
			row = append(row, strings.ReplaceAll(c.Comment.String, "\n", " "))
		}
		writeRow(&b, row)
	}
	return b.String()
}

func writeRow(b *strings.Builder, cells []string) {
	b.WriteString("| ")
	for i, cell := range cells {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(strings.ReplaceAll(cell, "|", `\|`))
	}
	b.WriteString(" |\n")
}
