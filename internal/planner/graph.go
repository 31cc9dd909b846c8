package planner

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"catalog-core/internal/fetchplan"
	"catalog-core/internal/schema"
)

// RootAlias is the table alias of the root entity in every graph query.
const RootAlias = "t0"

// SelectColumn describes one projected column of a graph query, in scan order.
type SelectColumn struct {
	// Path is the relation path from the root; empty for root columns.
	Path   []string
	Column schema.Column
}

// JoinedRelation records a to-one relation materialized as a LEFT JOIN.
type JoinedRelation struct {
	// Path is the full relation path including the relation's own name.
	Path     []string
	Relation schema.Relation
}

// ToManyEdge records a to-many relation deferred to a batched secondary fetch.
type ToManyEdge struct {
	// ParentPath locates the parent records inside the joined graph.
	ParentPath []string
	Relation   schema.Relation
	Subtree    fetchplan.Tree
}

// GraphQuery is a planned joined select: the SQL, the projected columns in
// scan order, the to-one joins it materializes, and the to-many edges left
// for batched secondary fetches.
type GraphQuery struct {
	SQL     SQLQuery
	Columns []SelectColumn
	Joins   []JoinedRelation
	Edges   []ToManyEdge
	// HasParentKey reports whether the select carries a trailing
	// BatchParentAlias column (batched child fetches only).
	HasParentKey bool
}

// SelectOption adjusts the window and shape of a graph select.
type SelectOption func(*selectOptions)

type selectOptions struct {
	orderBy      *OrderBy
	limit        int
	hasLimit     bool
	offset       int
	hasOffset    bool
	seek         sq.Sqlizer
	parentKeyCol string
}

// WithOrderBy orders the root rows. Columns refer to the root table.
func WithOrderBy(orderBy *OrderBy) SelectOption {
	return func(o *selectOptions) { o.orderBy = orderBy }
}

// WithLimit bounds the number of root rows.
func WithLimit(limit int) SelectOption {
	return func(o *selectOptions) { o.limit = limit; o.hasLimit = true }
}

// WithOffset skips leading root rows (offset pagination).
func WithOffset(offset int) SelectOption {
	return func(o *selectOptions) { o.offset = offset; o.hasOffset = true }
}

// WithSeek applies a keyset seek condition (cursor pagination).
func WithSeek(seek sq.Sqlizer) SelectOption {
	return func(o *selectOptions) { o.seek = seek }
}

// WithParentKey projects the named root column as BatchParentAlias, used by
// batched to-many fetches to group children back onto parents.
func WithParentKey(column string) SelectOption {
	return func(o *selectOptions) { o.parentKeyCol = column }
}

// PlanGraphSelect builds the joined select for a root table and the to-one
// portion of a fetch plan. To-many relations anywhere in the tree are not
// joined (a join would multiply root rows); they are returned as Edges for the
// resolver's batched secondary fetches. Binary columns never appear in the
// projection.
func PlanGraphSelect(
	catalog *schema.Catalog,
	table schema.Table,
	tree fetchplan.Tree,
	where sq.Sqlizer,
	opts ...SelectOption,
) (*GraphQuery, error) {
	options := &selectOptions{}
	for _, opt := range opts {
		opt(options)
	}

	b := &graphBuilder{catalog: catalog}
	b.project(table, RootAlias, nil)
	if err := b.walk(table, RootAlias, tree, nil); err != nil {
		return nil, err
	}

	selects := make([]string, 0, len(b.selects)+1)
	selects = append(selects, b.selects...)
	hasParentKey := false
	if options.parentKeyCol != "" {
		if _, ok := table.Column(options.parentKeyCol); !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table.Entity, options.parentKeyCol)
		}
		selects = append(selects, qualify(RootAlias, options.parentKeyCol)+" AS "+BatchParentAlias)
		hasParentKey = true
	}

	builder := sq.Select(selects...).From(fromClause(table, RootAlias))
	for _, join := range b.joinClauses {
		builder = builder.LeftJoin(join)
	}
	if where != nil {
		builder = builder.Where(where)
	}
	if options.seek != nil {
		builder = builder.Where(options.seek)
	}
	if clauses := orderClauses(RootAlias, options.orderBy); len(clauses) > 0 {
		builder = builder.OrderBy(clauses...)
	}
	if options.hasLimit {
		if options.limit < 0 {
			return nil, fmt.Errorf("limit must be non-negative")
		}
		builder = builder.Limit(uint64(options.limit))
	}
	if options.hasOffset {
		if options.offset < 0 {
			return nil, fmt.Errorf("offset must be non-negative")
		}
		builder = builder.Offset(uint64(options.offset))
	}

	query, args, err := builder.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return nil, err
	}

	return &GraphQuery{
		SQL:          SQLQuery{SQL: query, Args: args},
		Columns:      b.columns,
		Joins:        b.joins,
		Edges:        b.edges,
		HasParentKey: hasParentKey,
	}, nil
}

type graphBuilder struct {
	catalog     *schema.Catalog
	aliasN      int
	selects     []string
	columns     []SelectColumn
	joinClauses []string
	joins       []JoinedRelation
	edges       []ToManyEdge
}

func (b *graphBuilder) nextAlias() string {
	b.aliasN++
	return fmt.Sprintf("t%d", b.aliasN)
}

// project appends every non-binary column of the table at the given path.
func (b *graphBuilder) project(table schema.Table, alias string, path []string) {
	for _, col := range table.ProjectionColumns() {
		resultAlias := alias + "__" + col.Name
		b.selects = append(b.selects, qualify(alias, col.Name)+" AS "+resultAlias)
		b.columns = append(b.columns, SelectColumn{Path: path, Column: col})
	}
}

func (b *graphBuilder) walk(table schema.Table, alias string, tree fetchplan.Tree, path []string) error {
	for _, node := range tree {
		rel, ok := table.Relation(node.Relation)
		if !ok {
			return fmt.Errorf("%w: %s has no relation %q", fetchplan.ErrUnknownRelation, table.Entity, node.Relation)
		}
		nodePath := appendPath(path, rel.Name)

		if rel.Kind == schema.ToMany {
			b.edges = append(b.edges, ToManyEdge{
				ParentPath: path,
				Relation:   rel,
				Subtree:    node.Children,
			})
			continue
		}

		remote, ok := b.catalog.Table(rel.RemoteEntity)
		if !ok {
			return fmt.Errorf("%w: relation %q targets unknown entity %q", fetchplan.ErrUnknownRelation, rel.Name, rel.RemoteEntity)
		}
		remoteAlias := b.nextAlias()
		b.joinClauses = append(b.joinClauses, fmt.Sprintf(
			"%s ON %s = %s",
			fromClause(remote, remoteAlias),
			qualify(alias, rel.LocalColumn),
			qualify(remoteAlias, rel.RemoteColumn),
		))
		b.joins = append(b.joins, JoinedRelation{Path: nodePath, Relation: rel})
		b.project(remote, remoteAlias, nodePath)

		if err := b.walk(remote, remoteAlias, node.Children, nodePath); err != nil {
			return err
		}
	}
	return nil
}

func appendPath(path []string, name string) []string {
	out := make([]string, 0, len(path)+1)
	out = append(out, path...)
	return append(out, name)
}

// PathKey joins a relation path for map keys and error messages.
func PathKey(path []string) string {
	return strings.Join(path, ".")
}
