// Package blob is the only path to binary entity columns. Entity projections
// never include binary data; existence and size checks push OCTET_LENGTH down
// to the database so no bytes cross the wire until a caller explicitly fetches
// the content.
package blob

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"catalog-core/internal/dbexec"
	"catalog-core/internal/observability"
	"catalog-core/internal/planner"
	"catalog-core/internal/schema"
	"catalog-core/internal/sqlutil"
)

var (
	// ErrNoBinaryColumn indicates the entity declares no binary column.
	ErrNoBinaryColumn = errors.New("entity has no binary column")

	// ErrNotFound indicates no row exists for the given key.
	ErrNotFound = errors.New("row not found")

	// ErrNoContent indicates the row exists but its binary column is NULL.
	ErrNoContent = errors.New("no binary content")
)

// Metadata describes a binary column's state for one row without transferring
// its content.
type Metadata struct {
	// Present is false when the column is NULL.
	Present bool
	// SizeBytes is the content length; zero when absent.
	SizeBytes int64
}

// Gateway serves binary column access for catalog entities.
type Gateway struct {
	catalog *schema.Catalog
	metrics *observability.QueryMetrics
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithMetrics attaches blob transfer metrics.
func WithMetrics(m *observability.QueryMetrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// New creates a gateway over a catalog.
func New(catalog *schema.Catalog, opts ...Option) *Gateway {
	g := &Gateway{catalog: catalog}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Exists reports whether the row identified by key carries non-null, non-empty
// binary content. The check runs entirely in the database.
func (g *Gateway) Exists(ctx context.Context, exec dbexec.QueryExecutor, entity string, key interface{}) (bool, error) {
	meta, err := g.Metadata(ctx, exec, entity, key)
	if err != nil {
		return false, err
	}
	return meta.Present && meta.SizeBytes > 0, nil
}

// Metadata returns presence and byte size of the binary content for one row.
// A missing row is ErrNotFound; a present row with a NULL column reports
// Present=false with no error.
func (g *Gateway) Metadata(ctx context.Context, exec dbexec.QueryExecutor, entity string, key interface{}) (Metadata, error) {
	table, col, err := g.binaryColumn(entity)
	if err != nil {
		return Metadata{}, err
	}

	qualified := planner.Qualified(planner.RootAlias, col.Name)
	query, args, err := sq.
		Select("COALESCE(OCTET_LENGTH(" + qualified + "), -1)").
		From(fromClause(table)).
		Where(sq.Eq{planner.Qualified(planner.RootAlias, table.PrimaryKey().Name): key}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return Metadata{}, err
	}

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return Metadata{}, dbexec.WrapExec("blob-metadata", err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Metadata{}, dbexec.WrapExec("blob-metadata", err)
		}
		return Metadata{}, fmt.Errorf("%w: %s key %v", ErrNotFound, entity, key)
	}
	var size int64
	if err := rows.Scan(&size); err != nil {
		return Metadata{}, dbexec.WrapExec("blob-metadata", err)
	}
	// -1 is the NULL sentinel from COALESCE: the row exists, the content
	// does not.
	if size < 0 {
		return Metadata{Present: false}, nil
	}
	return Metadata{Present: true, SizeBytes: size}, nil
}

// Fetch transfers the binary content for one row. A missing row is
// ErrNotFound; a row whose column is NULL is ErrNoContent, so callers can tell
// the two apart.
func (g *Gateway) Fetch(ctx context.Context, exec dbexec.QueryExecutor, entity string, key interface{}) ([]byte, error) {
	table, col, err := g.binaryColumn(entity)
	if err != nil {
		return nil, err
	}

	query, args, err := sq.
		Select(planner.Qualified(planner.RootAlias, col.Name)).
		From(fromClause(table)).
		Where(sq.Eq{planner.Qualified(planner.RootAlias, table.PrimaryKey().Name): key}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbexec.WrapExec("blob-fetch", err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, dbexec.WrapExec("blob-fetch", err)
		}
		return nil, fmt.Errorf("%w: %s key %v", ErrNotFound, entity, key)
	}
	var content []byte
	if err := rows.Scan(&content); err != nil {
		return nil, dbexec.WrapExec("blob-fetch", err)
	}
	if content == nil {
		return nil, fmt.Errorf("%w: %s key %v", ErrNoContent, entity, key)
	}
	g.metrics.RecordBlobBytes(ctx, entity, len(content))
	return content, nil
}

func (g *Gateway) binaryColumn(entity string) (schema.Table, schema.Column, error) {
	table, ok := g.catalog.Table(entity)
	if !ok {
		return schema.Table{}, schema.Column{}, fmt.Errorf("unknown entity %q", entity)
	}
	col, ok := table.BinaryColumn()
	if !ok {
		return schema.Table{}, schema.Column{}, fmt.Errorf("%w: %s", ErrNoBinaryColumn, entity)
	}
	return table, col, nil
}

func fromClause(table schema.Table) string {
	return sqlutil.QuoteIdentifier(table.Name) + " AS " + sqlutil.QuoteIdentifier(planner.RootAlias)
}
