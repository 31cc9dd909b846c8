// Package planner builds the SQL query shapes for fetch-plan resolution,
// pagination, and batched relation loading. It emits parameterized statements
// only; execution belongs to the resolver and pager.
package planner

import (
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"catalog-core/internal/schema"
	"catalog-core/internal/sqlutil"
)

// ErrUnknownColumn indicates a filter or sort references a column the entity
// does not declare (or a binary column, which is never queryable here).
var ErrUnknownColumn = errors.New("unknown column")

// BatchParentAlias is the extra column alias used to carry the parent key back
// from batched to-many queries.
const BatchParentAlias = "__batch_parent_id"

// SQLQuery represents a planned SQL statement with bound args.
type SQLQuery struct {
	SQL  string
	Args []interface{}
}

// Filter is a conjunction of equality predicates over root entity columns.
type Filter map[string]interface{}

// OrderBy is an ordered column list with a single shared direction.
type OrderBy struct {
	Columns   []string
	Direction string // "ASC" or "DESC"; empty means ASC
}

func (o *OrderBy) direction() string {
	if o != nil && strings.EqualFold(o.Direction, "DESC") {
		return "DESC"
	}
	return "ASC"
}

// DefaultOrder returns the table's default ordering: primary key ascending.
func DefaultOrder(table schema.Table) *OrderBy {
	return &OrderBy{Columns: []string{table.PrimaryKey().Name}}
}

// BuildFilter converts a filter into a qualified squirrel condition, validating
// every column against the table. Binary columns are rejected: they are not
// queryable outside the blob gateway.
func BuildFilter(table schema.Table, alias string, filter Filter) (sq.Sqlizer, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	eq := sq.Eq{}
	for name, value := range filter {
		col, ok := table.Column(name)
		if !ok || col.IsBinary {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table.Entity, name)
		}
		eq[qualify(alias, name)] = value
	}
	return eq, nil
}

// ValidateSortColumns checks that every sort column exists on the table and is
// not a binary column.
func ValidateSortColumns(table schema.Table, columns []string) error {
	for _, name := range columns {
		col, ok := table.Column(name)
		if !ok || col.IsBinary {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table.Entity, name)
		}
	}
	return nil
}

// PlanCount builds the total-count query for a filter, ignoring any window.
func PlanCount(table schema.Table, filter Filter) (SQLQuery, error) {
	cond, err := BuildFilter(table, RootAlias, filter)
	if err != nil {
		return SQLQuery{}, err
	}
	builder := sq.Select("COUNT(*)").From(fromClause(table, RootAlias))
	if cond != nil {
		builder = builder.Where(cond)
	}
	query, args, err := builder.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return SQLQuery{}, err
	}
	return SQLQuery{SQL: query, Args: args}, nil
}

// BuildSeekCondition creates a SQL row comparison for cursor-based seek.
// For ASC: (col1, col2) > (?, ?); for DESC the comparison flips.
func BuildSeekCondition(alias string, columns []string, values []interface{}, direction string) sq.Sqlizer {
	qualified := make([]string, len(columns))
	for i, col := range columns {
		qualified[i] = qualify(alias, col)
	}
	lhs := "(" + strings.Join(qualified, ", ") + ")"
	placeholders := make([]string, len(values))
	for i := range values {
		placeholders[i] = "?"
	}
	rhs := "(" + strings.Join(placeholders, ", ") + ")"

	op := ">"
	if strings.EqualFold(direction, "DESC") {
		op = "<"
	}
	return sq.Expr(lhs+" "+op+" "+rhs, values...)
}

// Qualified returns a quoted alias-qualified column reference.
func Qualified(alias, column string) string {
	return qualify(alias, column)
}

func qualify(alias, column string) string {
	return sqlutil.QuoteIdentifier(alias) + "." + sqlutil.QuoteIdentifier(column)
}

func fromClause(table schema.Table, alias string) string {
	return sqlutil.QuoteIdentifier(table.Name) + " AS " + sqlutil.QuoteIdentifier(alias)
}

func orderClauses(alias string, orderBy *OrderBy) []string {
	if orderBy == nil || len(orderBy.Columns) == 0 {
		return nil
	}
	direction := orderBy.direction()
	clauses := make([]string, len(orderBy.Columns))
	for i, col := range orderBy.Columns {
		clauses[i] = qualify(alias, col) + " " + direction
	}
	return clauses
}
