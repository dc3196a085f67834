package query

import (
	"fmt"
	"reflect"
	"strings"
)

// SortField is one ORDER BY term over a logical field name.
type SortField struct {
	Field      string
	Descending bool
}

// ParseSort parses a comma-separated sort expression such as "title,-id".
// A leading "-" sorts descending.
func ParseSort(s string) []SortField {
	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if after, ok := strings.CutPrefix(part, "-"); ok {
			fields = append(fields, SortField{Field: after, Descending: true})
			continue
		}
		fields = append(fields, SortField{Field: part})
	}
	return fields
}

// condition renders its clause given the number of its first placeholder.
type condition struct {
	render func(first int) string
	args   []any
}

// Builder assembles a SELECT with numbered placeholders. Unknown fields are
// ignored rather than interpolated.
type Builder struct {
	projection  *Projection
	conditions  []condition
	sort        []SortField
	defaultSort []SortField
}

// NewBuilder creates a Builder over p with optional default ordering.
func NewBuilder(p *Projection, defaultSort ...SortField) *Builder {
	return &Builder{projection: p, defaultSort: defaultSort}
}

// WhereEquals adds "field = value". A nil value or nil pointer adds nothing;
// a non-nil pointer is dereferenced.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	col, ok := b.projection.Column(field)
	if !ok || value == nil {
		return b
	}
	if v := reflect.ValueOf(value); v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return b
		}
		value = v.Elem().Interface()
	}
	b.conditions = append(b.conditions, condition{
		render: func(n int) string { return fmt.Sprintf("%s = $%d", col, n) },
		args:   []any{value},
	})
	return b
}

// WhereSearch adds a case-insensitive substring match across fields, OR-ed
// together. An empty search adds nothing.
func (b *Builder) WhereSearch(search string, fields ...string) *Builder {
	if search == "" {
		return b
	}

	var cols []string
	for _, f := range fields {
		if col, ok := b.projection.Column(f); ok {
			cols = append(cols, col)
		}
	}
	if len(cols) == 0 {
		return b
	}

	pattern := "%" + search + "%"
	args := make([]any, len(cols))
	for i := range cols {
		args[i] = pattern
	}

	b.conditions = append(b.conditions, condition{
		render: func(n int) string {
			parts := make([]string, len(cols))
			for i, col := range cols {
				parts[i] = fmt.Sprintf("%s ILIKE $%d", col, n+i)
			}
			return "(" + strings.Join(parts, " OR ") + ")"
		},
		args: args,
	})
	return b
}

// OrderBy replaces the default ordering.
func (b *Builder) OrderBy(fields []SortField) *Builder {
	b.sort = fields
	return b
}

// Build returns the SELECT over every matching row.
func (b *Builder) Build() (string, []any) {
	where, args := b.where()
	return fmt.Sprintf("SELECT %s FROM %s%s%s",
		b.projection.Columns(), b.projection.From(), where, b.orderBy()), args
}

// BuildCount returns a COUNT(*) over the matching rows.
func (b *Builder) BuildCount() (string, []any) {
	where, args := b.where()
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", b.projection.From(), where), args
}

// BuildPage returns the SELECT for one 1-based page.
func (b *Builder) BuildPage(page, size int) (string, []any) {
	q, args := b.Build()
	return fmt.Sprintf("%s LIMIT %d OFFSET %d", q, size, (page-1)*size), args
}

// BuildSingle returns the SELECT for the row whose field equals id.
func (b *Builder) BuildSingle(field string, id any) (string, []any) {
	col, ok := b.projection.Column(field)
	if !ok {
		col = field
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		b.projection.Columns(), b.projection.From(), col), []any{id}
}

func (b *Builder) where() (string, []any) {
	if len(b.conditions) == 0 {
		return "", nil
	}

	clauses := make([]string, len(b.conditions))
	var args []any
	for i, c := range b.conditions {
		clauses[i] = c.render(len(args) + 1)
		args = append(args, c.args...)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (b *Builder) orderBy() string {
	fields := b.sort
	if len(fields) == 0 {
		fields = b.defaultSort
	}

	var parts []string
	for _, f := range fields {
		col, ok := b.projection.Column(f.Field)
		if !ok {
			continue
		}
		dir := "ASC"
		if f.Descending {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}

	if len(parts) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
