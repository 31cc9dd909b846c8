// Package resolver turns fetch plans into executed queries and hydrated entity
// graphs. Plans touching only to-one relations resolve in a single joined
// query; any to-many relation switches to a root query plus one batched
// IN (...) query per to-many relation, keeping the total round-trip count
// independent of how many rows match.
package resolver

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"catalog-core/internal/dbexec"
	"catalog-core/internal/fetchplan"
	"catalog-core/internal/observability"
	"catalog-core/internal/planner"
	"catalog-core/internal/schema"
)

// ErrUnknownEntity indicates the requested entity is not declared in the catalog.
var ErrUnknownEntity = errors.New("unknown entity")

const defaultMaxInClause = 1000

// Resolver executes fetch plans against a query session.
type Resolver struct {
	catalog     *schema.Catalog
	maxInClause int
	metrics     *observability.QueryMetrics
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMaxInClause caps the number of values per IN (...) list; larger parent
// sets are chunked into multiple queries.
func WithMaxInClause(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxInClause = n
		}
	}
}

// WithMetrics attaches query metrics recording.
func WithMetrics(m *observability.QueryMetrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// New creates a resolver over a catalog.
func New(catalog *schema.Catalog, opts ...Option) *Resolver {
	r := &Resolver{catalog: catalog, maxInClause: defaultMaxInClause}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve fetches every entity matching the filter, hydrated per the fetch
// plan. A nil tree loads the root entity only, leaving all relations as
// explicit not-loaded markers. Extra select options (ordering, windowing,
// seek) apply to the root query; the default order is primary key ascending.
func (r *Resolver) Resolve(
	ctx context.Context,
	exec dbexec.QueryExecutor,
	entity string,
	filter planner.Filter,
	tree fetchplan.Tree,
	opts ...planner.SelectOption,
) ([]*Record, error) {
	table, ok := r.catalog.Table(entity)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}
	if err := fetchplan.Validate(r.catalog, entity, tree); err != nil {
		return nil, err
	}

	where, err := planner.BuildFilter(table, planner.RootAlias, filter)
	if err != nil {
		return nil, err
	}

	selectOpts := make([]planner.SelectOption, 0, len(opts)+1)
	selectOpts = append(selectOpts, planner.WithOrderBy(planner.DefaultOrder(table)))
	selectOpts = append(selectOpts, opts...)

	roots, _, err := r.fetchGraph(ctx, exec, table, tree, where, "resolve", selectOpts...)
	return roots, err
}

// ResolveByKey fetches one entity by primary key. A missing row is not an
// error: the record is nil.
func (r *Resolver) ResolveByKey(
	ctx context.Context,
	exec dbexec.QueryExecutor,
	entity string,
	key interface{},
	tree fetchplan.Tree,
) (*Record, error) {
	table, ok := r.catalog.Table(entity)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}
	records, err := r.Resolve(ctx, exec, entity, planner.Filter{table.PrimaryKey().Name: key}, tree)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// fetchGraph runs one joined select and all batched secondary fetches its
// plan requires, returning hydrated roots plus the parent-key value per root
// when the query carried a batch parent key.
func (r *Resolver) fetchGraph(
	ctx context.Context,
	exec dbexec.QueryExecutor,
	table schema.Table,
	tree fetchplan.Tree,
	where sq.Sqlizer,
	op string,
	opts ...planner.SelectOption,
) ([]*Record, []interface{}, error) {
	gq, err := planner.PlanGraphSelect(r.catalog, table, tree, where, opts...)
	if err != nil {
		return nil, nil, err
	}

	rows, err := exec.QueryContext(ctx, gq.SQL.SQL, gq.SQL.Args...)
	if err != nil {
		return nil, nil, dbexec.WrapExec(op, err)
	}
	scanned, err := r.scanGraph(rows, gq, table)
	closeErr := rows.Close()
	if err != nil {
		return nil, nil, dbexec.WrapExec(op, err)
	}
	if closeErr != nil {
		return nil, nil, dbexec.WrapExec(op, closeErr)
	}
	r.metrics.RecordQuery(ctx, op, table.Entity, len(scanned.roots))

	for _, edge := range gq.Edges {
		parents := scanned.roots
		if len(edge.ParentPath) > 0 {
			parents = scanned.byPath[planner.PathKey(edge.ParentPath)]
		}
		if err := r.loadToMany(ctx, exec, edge.Relation, edge.Subtree, parents, op); err != nil {
			return nil, nil, err
		}
	}

	return scanned.roots, scanned.parentKeys, nil
}

// loadToMany performs one batched secondary fetch: all parents' children in a
// single IN (...) query (chunked at maxInClause), grouped back onto their
// parents in memory.
func (r *Resolver) loadToMany(
	ctx context.Context,
	exec dbexec.QueryExecutor,
	rel schema.Relation,
	subtree fetchplan.Tree,
	parents []*Record,
	op string,
) error {
	// Mark the relation loaded (empty) on every parent up front so parents
	// without children still dereference to an empty collection.
	byKey := make(map[string][]*Record)
	keys := make([]interface{}, 0, len(parents))
	seen := make(map[string]struct{})
	for _, parent := range parents {
		parent.setMany(rel.Name, nil)
		raw := parent.Field(rel.LocalColumn)
		if raw == nil {
			continue
		}
		key := fmt.Sprint(raw)
		byKey[key] = append(byKey[key], parent)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, raw)
	}
	if len(keys) == 0 {
		return nil
	}
	r.metrics.RecordBatch(ctx, rel.Name, len(keys))

	remote, ok := r.catalog.Table(rel.RemoteEntity)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, rel.RemoteEntity)
	}
	order := planner.DefaultOrder(remote)
	if len(rel.OrderBy) > 0 {
		order = &planner.OrderBy{Columns: rel.OrderBy}
	}

	for _, chunk := range chunkValues(keys, r.maxInClause) {
		where := sq.Eq{planner.Qualified(planner.RootAlias, rel.RemoteColumn): chunk}
		children, parentKeys, err := r.fetchGraph(ctx, exec, remote, subtree, where, op,
			planner.WithOrderBy(order),
			planner.WithParentKey(rel.RemoteColumn),
		)
		if err != nil {
			return err
		}
		for i, child := range children {
			for _, parent := range byKey[fmt.Sprint(parentKeys[i])] {
				parent.appendMany(rel.Name, child)
			}
		}
	}
	return nil
}

func chunkValues(values []interface{}, max int) [][]interface{} {
	if len(values) == 0 {
		return nil
	}
	if max <= 0 || len(values) <= max {
		return [][]interface{}{values}
	}
	chunks := make([][]interface{}, 0, (len(values)+max-1)/max)
	for start := 0; start < len(values); start += max {
		end := start + max
		if end > len(values) {
			end = len(values)
		}
		chunks = append(chunks, values[start:end])
	}
	return chunks
}
