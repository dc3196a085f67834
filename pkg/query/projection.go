// Package query builds parameterized Postgres SELECT statements over a
// projection of logical field names onto qualified columns.
package query

import "strings"

// Projection maps logical field names to alias-qualified columns of one table.
type Projection struct {
	table   string
	alias   string
	columns map[string]string
	order   []string
}

// NewProjection creates a Projection over table with the given alias.
func NewProjection(table, alias string) *Projection {
	return &Projection{
		table:   table,
		alias:   alias,
		columns: make(map[string]string),
	}
}

// Project maps field to column. Columns are selected in projection order.
func (p *Projection) Project(column, field string) *Projection {
	qualified := p.alias + "." + column
	p.columns[field] = qualified
	p.order = append(p.order, qualified)
	return p
}

// Column returns the qualified column for field.
func (p *Projection) Column(field string) (string, bool) {
	col, ok := p.columns[field]
	return col, ok
}

// Columns returns the selected columns as a comma-separated list.
func (p *Projection) Columns() string {
	return strings.Join(p.order, ", ")
}

// From returns the table reference with its alias.
func (p *Projection) From() string {
	return p.table + " " + p.alias
}
