// Package store is the composed entry point over the fetch-plan registry,
// resolver, pager, and blob gateway. Every operation takes an explicit query
// session and is traced and metered.
package store

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"catalog-core/internal/blob"
	"catalog-core/internal/dbexec"
	"catalog-core/internal/fetchplan"
	"catalog-core/internal/observability"
	"catalog-core/internal/pager"
	"catalog-core/internal/planner"
	"catalog-core/internal/resolver"
	"catalog-core/internal/schema"
)

const tracerName = "catalog-core/internal/store"

// PlanRef names the fetch plan for an operation: a registered plan by name, an
// inline tree, or no plan at all (root entity only).
type PlanRef struct {
	name string
	tree fetchplan.Tree
}

// NamedPlan refers to a plan registered under the given name.
func NamedPlan(name string) PlanRef { return PlanRef{name: name} }

// InlinePlan carries an ad-hoc tree; it is validated on use.
func InlinePlan(tree fetchplan.Tree) PlanRef { return PlanRef{tree: tree} }

// NoPlan loads the root entity only, leaving every relation unloaded.
func NoPlan() PlanRef { return PlanRef{} }

// Store composes the read-path components over one entity catalog.
type Store struct {
	catalog  *schema.Catalog
	registry *fetchplan.Registry
	resolver *resolver.Resolver
	pager    *pager.Pager
	blobs    *blob.Gateway
	tracer   trace.Tracer
}

// Config tunes the composed components.
type Config struct {
	// MaxPageSize bounds accepted page sizes; zero keeps the pager default.
	MaxPageSize int
	// MaxInClause chunks batched IN (...) lists; zero keeps the resolver default.
	MaxInClause int
	// Metrics records query, batch, and blob instrumentation when set.
	Metrics *observability.QueryMetrics
}

// New builds a store over a catalog.
func New(catalog *schema.Catalog, cfg Config) *Store {
	resolverOpts := []resolver.Option{}
	if cfg.MaxInClause > 0 {
		resolverOpts = append(resolverOpts, resolver.WithMaxInClause(cfg.MaxInClause))
	}
	if cfg.Metrics != nil {
		resolverOpts = append(resolverOpts, resolver.WithMetrics(cfg.Metrics))
	}
	r := resolver.New(catalog, resolverOpts...)

	pagerOpts := []pager.Option{}
	if cfg.MaxPageSize > 0 {
		pagerOpts = append(pagerOpts, pager.WithMaxPageSize(cfg.MaxPageSize))
	}

	blobOpts := []blob.Option{}
	if cfg.Metrics != nil {
		blobOpts = append(blobOpts, blob.WithMetrics(cfg.Metrics))
	}

	return &Store{
		catalog:  catalog,
		registry: fetchplan.NewRegistry(catalog),
		resolver: r,
		pager:    pager.New(catalog, r, pagerOpts...),
		blobs:    blob.New(catalog, blobOpts...),
		tracer:   otel.Tracer(tracerName),
	}
}

// RegisterPlan stores a named fetch plan, validated against the catalog.
func (s *Store) RegisterPlan(entity, name string, tree fetchplan.Tree) error {
	return s.registry.Register(entity, name, tree)
}

// GetByKey fetches one entity by primary key, hydrated per the plan. A missing
// row returns (nil, nil).
func (s *Store) GetByKey(
	ctx context.Context,
	exec dbexec.QueryExecutor,
	entity string,
	key interface{},
	plan PlanRef,
) (*resolver.Record, error) {
	ctx, span := s.startSpan(ctx, "store.GetByKey", entity)
	defer span.End()

	tree, err := s.planTree(entity, plan)
	if err != nil {
		return nil, s.fail(span, err)
	}
	rec, err := s.resolver.ResolveByKey(ctx, exec, entity, key, tree)
	if err != nil {
		return nil, s.fail(span, err)
	}
	return rec, nil
}

// Query fetches every entity matching the filter, hydrated per the plan.
func (s *Store) Query(
	ctx context.Context,
	exec dbexec.QueryExecutor,
	entity string,
	filter planner.Filter,
	plan PlanRef,
) ([]*resolver.Record, error) {
	ctx, span := s.startSpan(ctx, "store.Query", entity)
	defer span.End()

	tree, err := s.planTree(entity, plan)
	if err != nil {
		return nil, s.fail(span, err)
	}
	recs, err := s.resolver.Resolve(ctx, exec, entity, filter, tree)
	if err != nil {
		return nil, s.fail(span, err)
	}
	return recs, nil
}

// GetPage fetches one page of entities. The plan reference overrides any tree
// already set on the request.
func (s *Store) GetPage(
	ctx context.Context,
	exec dbexec.QueryExecutor,
	entity string,
	req pager.Request,
	plan PlanRef,
) (*pager.Page, error) {
	ctx, span := s.startSpan(ctx, "store.GetPage", entity)
	defer span.End()

	tree, err := s.planTree(entity, plan)
	if err != nil {
		return nil, s.fail(span, err)
	}
	req.Plan = tree
	page, err := s.pager.Page(ctx, exec, entity, req)
	if err != nil {
		return nil, s.fail(span, err)
	}
	return page, nil
}

// BlobExists reports whether the row carries non-null binary content.
func (s *Store) BlobExists(ctx context.Context, exec dbexec.QueryExecutor, entity string, key interface{}) (bool, error) {
	ctx, span := s.startSpan(ctx, "store.BlobExists", entity)
	defer span.End()

	ok, err := s.blobs.Exists(ctx, exec, entity, key)
	if err != nil {
		return false, s.fail(span, err)
	}
	return ok, nil
}

// BlobMetadata returns presence and byte size without transferring content.
func (s *Store) BlobMetadata(ctx context.Context, exec dbexec.QueryExecutor, entity string, key interface{}) (blob.Metadata, error) {
	ctx, span := s.startSpan(ctx, "store.BlobMetadata", entity)
	defer span.End()

	meta, err := s.blobs.Metadata(ctx, exec, entity, key)
	if err != nil {
		return blob.Metadata{}, s.fail(span, err)
	}
	return meta, nil
}

// BlobFetch transfers the binary content for one row.
func (s *Store) BlobFetch(ctx context.Context, exec dbexec.QueryExecutor, entity string, key interface{}) ([]byte, error) {
	ctx, span := s.startSpan(ctx, "store.BlobFetch", entity)
	defer span.End()

	content, err := s.blobs.Fetch(ctx, exec, entity, key)
	if err != nil {
		return nil, s.fail(span, err)
	}
	return content, nil
}

func (s *Store) planTree(entity string, plan PlanRef) (fetchplan.Tree, error) {
	if plan.name != "" {
		return s.registry.Resolve(entity, plan.name)
	}
	return plan.tree, nil
}

func (s *Store) startSpan(ctx context.Context, name, entity string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("entity", entity)))
}

func (s *Store) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
