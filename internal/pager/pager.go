// Package pager executes windowed queries over catalog entities. It supports
// two strategies: offset pagination with a separate COUNT query (total pages
// up front, cost grows with page depth) and cursor pagination with a keyset
// seek (no total, stable under concurrent inserts, constant cost per page).
package pager

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"catalog-core/internal/cursor"
	"catalog-core/internal/dbexec"
	"catalog-core/internal/fetchplan"
	"catalog-core/internal/planner"
	"catalog-core/internal/resolver"
	"catalog-core/internal/schema"
)

var (
	// ErrInvalidPageSize indicates a page size outside [1, max]. Oversized
	// requests are rejected outright rather than silently clamped.
	ErrInvalidPageSize = errors.New("invalid page size")

	// ErrInvalidPageIndex indicates a negative page index.
	ErrInvalidPageIndex = errors.New("invalid page index")

	// ErrInvalidCursor indicates a cursor that is malformed or was minted for
	// a different entity, sort key, or direction.
	ErrInvalidCursor = errors.New("invalid cursor")
)

const defaultMaxPageSize = 500

// Mode selects the pagination strategy.
type Mode int

const (
	// ModeOffset pages by index with a COUNT query for totals.
	ModeOffset Mode = iota
	// ModeCursor pages by keyset seek with opaque cursors and no totals.
	ModeCursor
)

// Request describes one page fetch.
type Request struct {
	// Mode selects offset or cursor pagination for Page. The strategy-specific
	// entry points ignore it.
	Mode Mode
	// PageIndex is the zero-based page number (offset mode only).
	PageIndex int
	// PageSize is the number of rows per page. Required, in [1, max].
	PageSize int
	// Cursor is the opaque cursor returned by a previous page (cursor mode
	// only). Empty means the first page.
	Cursor string
	// Sort names root entity columns to order by. The primary key is always
	// appended as a tie-breaker when absent. Empty sorts by primary key.
	Sort []string
	// Direction is "ASC" (default) or "DESC", shared by all sort columns.
	Direction string
	// Filter restricts the root rows.
	Filter planner.Filter
	// Plan hydrates relations on the returned records.
	Plan fetchplan.Tree
}

// Metadata describes the returned page.
type Metadata struct {
	PageIndex    int
	PageSize     int
	ElementCount int
	HasNext      bool
	// TotalElements and TotalPages are populated in offset mode only.
	TotalElements int64
	TotalPages    int
	// NextCursor is populated in cursor mode when a further page exists.
	NextCursor string
}

// Page is one window of hydrated records plus its metadata.
type Page struct {
	Records  []*resolver.Record
	Metadata Metadata
}

// Pager plans and executes paginated fetches.
type Pager struct {
	catalog     *schema.Catalog
	resolver    *resolver.Resolver
	maxPageSize int
}

// Option configures a Pager.
type Option func(*Pager)

// WithMaxPageSize sets the upper bound on accepted page sizes.
func WithMaxPageSize(n int) Option {
	return func(p *Pager) {
		if n > 0 {
			p.maxPageSize = n
		}
	}
}

// New creates a pager over a catalog, delegating record hydration to the
// resolver.
func New(catalog *schema.Catalog, r *resolver.Resolver, opts ...Option) *Pager {
	p := &Pager{catalog: catalog, resolver: r, maxPageSize: defaultMaxPageSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Page fetches one page using the strategy the request selects.
func (p *Pager) Page(
	ctx context.Context,
	exec dbexec.QueryExecutor,
	entity string,
	req Request,
) (*Page, error) {
	if req.Mode == ModeCursor {
		return p.CursorPage(ctx, exec, entity, req)
	}
	return p.OffsetPage(ctx, exec, entity, req)
}

// OffsetPage fetches one page by page index: a COUNT query for the total plus
// one windowed graph fetch. Deep pages pay the database's offset scan cost.
func (p *Pager) OffsetPage(
	ctx context.Context,
	exec dbexec.QueryExecutor,
	entity string,
	req Request,
) (*Page, error) {
	table, order, err := p.prepare(entity, req)
	if err != nil {
		return nil, err
	}
	if req.PageIndex < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPageIndex, req.PageIndex)
	}

	total, err := p.count(ctx, exec, table, req.Filter)
	if err != nil {
		return nil, err
	}

	records, err := p.resolver.Resolve(ctx, exec, entity, req.Filter, req.Plan,
		planner.WithOrderBy(order),
		planner.WithLimit(req.PageSize),
		planner.WithOffset(req.PageIndex*req.PageSize),
	)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(req.PageSize) - 1) / int64(req.PageSize))
	return &Page{
		Records: records,
		Metadata: Metadata{
			PageIndex:     req.PageIndex,
			PageSize:      req.PageSize,
			ElementCount:  len(records),
			HasNext:       int64(req.PageIndex+1)*int64(req.PageSize) < total,
			TotalElements: total,
			TotalPages:    totalPages,
		},
	}, nil
}

// CursorPage fetches one page by keyset seek. The request's cursor, when set,
// must have been minted for the same entity, sort, and direction. One extra
// row beyond the page size is probed to decide whether a next page exists; no
// COUNT query runs.
func (p *Pager) CursorPage(
	ctx context.Context,
	exec dbexec.QueryExecutor,
	entity string,
	req Request,
) (*Page, error) {
	table, order, err := p.prepare(entity, req)
	if err != nil {
		return nil, err
	}

	opts := []planner.SelectOption{
		planner.WithOrderBy(order),
		planner.WithLimit(req.PageSize + 1),
	}
	if req.Cursor != "" {
		seek, err := p.seekCondition(table, order, req.Cursor)
		if err != nil {
			return nil, err
		}
		opts = append(opts, planner.WithSeek(seek))
	}

	records, err := p.resolver.Resolve(ctx, exec, entity, req.Filter, req.Plan, opts...)
	if err != nil {
		return nil, err
	}

	hasNext := len(records) > req.PageSize
	if hasNext {
		records = records[:req.PageSize]
	}

	meta := Metadata{
		PageSize:     req.PageSize,
		ElementCount: len(records),
		HasNext:      hasNext,
	}
	if hasNext {
		last := records[len(records)-1]
		values := make([]interface{}, len(order.Columns))
		for i, col := range order.Columns {
			values[i] = last.Field(col)
		}
		meta.NextCursor = cursor.Encode(entity, order.Columns, order.Direction, values...)
	}
	return &Page{Records: records, Metadata: meta}, nil
}

// prepare validates the shared request parts and derives the effective sort:
// the requested columns with the primary key appended as tie-breaker.
func (p *Pager) prepare(entity string, req Request) (schema.Table, *planner.OrderBy, error) {
	table, ok := p.catalog.Table(entity)
	if !ok {
		return schema.Table{}, nil, fmt.Errorf("%w: %q", resolver.ErrUnknownEntity, entity)
	}
	if req.PageSize < 1 || req.PageSize > p.maxPageSize {
		return schema.Table{}, nil, fmt.Errorf("%w: %d (must be 1..%d)", ErrInvalidPageSize, req.PageSize, p.maxPageSize)
	}
	if err := planner.ValidateSortColumns(table, req.Sort); err != nil {
		return schema.Table{}, nil, err
	}

	pk := table.PrimaryKey().Name
	columns := make([]string, 0, len(req.Sort)+1)
	hasPK := false
	for _, col := range req.Sort {
		columns = append(columns, col)
		if col == pk {
			hasPK = true
		}
	}
	if !hasPK {
		columns = append(columns, pk)
	}

	direction := "ASC"
	if req.Direction != "" {
		direction = req.Direction
	}
	return table, &planner.OrderBy{Columns: columns, Direction: direction}, nil
}

// seekCondition decodes, validates, and type-parses a cursor into the keyset
// comparison for the next page.
func (p *Pager) seekCondition(table schema.Table, order *planner.OrderBy, raw string) (sq.Sqlizer, error) {
	entity, sortKey, direction, stringVals, err := cursor.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if err := cursor.Validate(table.Entity, order.Columns, order.Direction, entity, sortKey, direction); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	columns := make([]schema.Column, len(order.Columns))
	for i, name := range order.Columns {
		col, ok := table.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown sort column %q", ErrInvalidCursor, name)
		}
		columns[i] = col
	}
	values, err := cursor.ParseValues(stringVals, columns)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return planner.BuildSeekCondition(planner.RootAlias, order.Columns, values, order.Direction), nil
}

// count runs the COUNT query for offset metadata.
func (p *Pager) count(
	ctx context.Context,
	exec dbexec.QueryExecutor,
	table schema.Table,
	filter planner.Filter,
) (int64, error) {
	q, err := planner.PlanCount(table, filter)
	if err != nil {
		return 0, err
	}
	rows, err := exec.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return 0, dbexec.WrapExec("count", err)
	}
	defer func() { _ = rows.Close() }()

	var total int64
	if rows.Next() {
		if err := rows.Scan(&total); err != nil {
			return 0, dbexec.WrapExec("count", err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, dbexec.WrapExec("count", err)
	}
	return total, nil
}
