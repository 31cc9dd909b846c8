// Package fetchplan holds named, reusable fetch plans: per-entity trees of
// relation names to load eagerly alongside a root entity. Plans are pure
// metadata; no query execution happens here.
package fetchplan

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"catalog-core/internal/schema"
)

var (
	// ErrPlanExists indicates a plan name is already registered for the entity.
	ErrPlanExists = errors.New("fetch plan already registered")
	// ErrPlanNotFound indicates no plan with the requested name exists.
	ErrPlanNotFound = errors.New("fetch plan not found")
	// ErrUnknownRelation indicates a plan names a relation the entity does not declare.
	ErrUnknownRelation = errors.New("unknown relation")
)

// Node is one relation in a fetch plan, with optional nested sub-plans.
type Node struct {
	Relation string
	Children []Node
}

// Tree is an ordered list of relations to include. Order matters: batched
// secondary fetches execute in declaration order.
type Tree []Node

// Rel builds a plan node, optionally with nested children.
func Rel(name string, children ...Node) Node {
	return Node{Relation: name, Children: children}
}

// Validate checks every relation path in the tree against the entity's
// declared relation set.
func Validate(catalog *schema.Catalog, entity string, tree Tree) error {
	table, ok := catalog.Table(entity)
	if !ok {
		return fmt.Errorf("%w: unknown entity %q", ErrUnknownRelation, entity)
	}
	return validateTree(catalog, table, tree, nil)
}

func validateTree(catalog *schema.Catalog, table schema.Table, tree Tree, path []string) error {
	seen := make(map[string]struct{}, len(tree))
	for _, node := range tree {
		nodePath := append(append([]string(nil), path...), node.Relation)
		rel, ok := table.Relation(node.Relation)
		if !ok {
			return fmt.Errorf("%w: %s has no relation %q", ErrUnknownRelation, table.Entity, strings.Join(nodePath, "."))
		}
		if _, dup := seen[node.Relation]; dup {
			return fmt.Errorf("%w: relation %q listed twice", ErrUnknownRelation, strings.Join(nodePath, "."))
		}
		seen[node.Relation] = struct{}{}

		remote, ok := catalog.Table(rel.RemoteEntity)
		if !ok {
			return fmt.Errorf("%w: relation %q targets unknown entity %q", ErrUnknownRelation, strings.Join(nodePath, "."), rel.RemoteEntity)
		}
		if err := validateTree(catalog, remote, node.Children, nodePath); err != nil {
			return err
		}
	}
	return nil
}

// Registry stores named fetch plans per entity. Registration happens once at
// startup; lookups are read-only afterwards, so a single RWMutex suffices.
type Registry struct {
	catalog *schema.Catalog

	mu    sync.RWMutex
	plans map[string]map[string]Tree
}

// NewRegistry creates an empty registry bound to a catalog.
func NewRegistry(catalog *schema.Catalog) *Registry {
	return &Registry{
		catalog: catalog,
		plans:   make(map[string]map[string]Tree),
	}
}

// Register stores a named plan for an entity. The tree is validated and the
// name must not already be taken; there is no silent overwrite.
func (r *Registry) Register(entity, name string, tree Tree) error {
	if name == "" {
		return fmt.Errorf("fetch plan name must not be empty")
	}
	if err := Validate(r.catalog, entity, tree); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	byName, ok := r.plans[entity]
	if !ok {
		byName = make(map[string]Tree)
		r.plans[entity] = byName
	}
	if _, exists := byName[name]; exists {
		return fmt.Errorf("%w: %s/%s", ErrPlanExists, entity, name)
	}
	byName[name] = tree
	return nil
}

// Resolve looks up a named plan for an entity.
func (r *Registry) Resolve(entity, name string) (Tree, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if tree, ok := r.plans[entity][name]; ok {
		return tree, nil
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrPlanNotFound, entity, name)
}
