// Package schema declares the static entity-graph metadata for the catalog/order
// domain: tables, columns, and the relations between them. The graph is fixed and
// known at compile time, so metadata is declared in code rather than discovered
// from the database.
package schema

import "fmt"

// ColumnType classifies a column's Go-side value for scanning and cursor parsing.
type ColumnType int

const (
	TypeInt ColumnType = iota
	TypeString
	TypeDecimal
	TypeTime
	TypeBytes
)

// Column represents a database column.
type Column struct {
	Name         string
	Type         ColumnType
	IsPrimaryKey bool
	IsNullable   bool
	// IsBinary marks large binary payload columns (images, invoice PDFs).
	// Binary columns are excluded from every entity projection and are only
	// reachable through the blob gateway.
	IsBinary bool
}

// RelationKind distinguishes to-one references from to-many collections.
type RelationKind int

const (
	ToOne RelationKind = iota
	ToMany
)

// Relation represents one navigable edge of the entity graph.
type Relation struct {
	// Name is the relation name used in fetch plans, e.g. "user" or "items".
	Name string
	Kind RelationKind
	// LocalColumn is the FK column on this table for ToOne relations, or the
	// key column referenced by the remote FK for ToMany relations.
	LocalColumn string
	// RemoteEntity names the related entity.
	RemoteEntity string
	// RemoteColumn is the referenced key on the remote table for ToOne
	// relations, or the FK column on the remote table for ToMany relations.
	RemoteColumn string
	// OrderBy is the default ordering for ToMany results. Empty means the
	// remote table's primary key ascending.
	OrderBy []string
}

// Table represents one entity's table metadata.
type Table struct {
	// Entity is the logical entity name, e.g. "Order".
	Entity    string
	Name      string
	Columns   []Column
	Relations []Relation
}

// Column returns the named column.
func (t Table) Column(name string) (Column, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// Relation returns the named relation.
func (t Table) Relation(name string) (Relation, bool) {
	for _, rel := range t.Relations {
		if rel.Name == name {
			return rel, true
		}
	}
	return Relation{}, false
}

// PrimaryKey returns the table's primary key column. Every entity in this
// domain has a single surrogate integer key.
func (t Table) PrimaryKey() Column {
	for _, col := range t.Columns {
		if col.IsPrimaryKey {
			return col
		}
	}
	return Column{}
}

// ProjectionColumns returns the columns loaded by entity queries. Binary
// columns are excluded by construction; only the blob gateway selects them.
func (t Table) ProjectionColumns() []Column {
	cols := make([]Column, 0, len(t.Columns))
	for _, col := range t.Columns {
		if col.IsBinary {
			continue
		}
		cols = append(cols, col)
	}
	return cols
}

// BinaryColumn returns the table's binary payload column, if it has one.
func (t Table) BinaryColumn() (Column, bool) {
	for _, col := range t.Columns {
		if col.IsBinary {
			return col, true
		}
	}
	return Column{}, false
}

// Catalog is the set of entity tables, looked up by entity name.
type Catalog struct {
	tables map[string]Table
	order  []string
}

// NewCatalog builds a catalog from table declarations. Entity names must be
// unique and every relation must point at a declared entity and existing
// columns; a malformed declaration is a programming error and panics at
// startup.
func NewCatalog(tables ...Table) *Catalog {
	c := &Catalog{tables: make(map[string]Table, len(tables))}
	for _, table := range tables {
		if _, ok := c.tables[table.Entity]; ok {
			panic(fmt.Sprintf("schema: duplicate entity %q", table.Entity))
		}
		c.tables[table.Entity] = table
		c.order = append(c.order, table.Entity)
	}
	for _, table := range tables {
		for _, rel := range table.Relations {
			remote, ok := c.tables[rel.RemoteEntity]
			if !ok {
				panic(fmt.Sprintf("schema: relation %s.%s references unknown entity %q", table.Entity, rel.Name, rel.RemoteEntity))
			}
			if _, ok := table.Column(rel.LocalColumn); !ok {
				panic(fmt.Sprintf("schema: relation %s.%s references unknown local column %q", table.Entity, rel.Name, rel.LocalColumn))
			}
			if _, ok := remote.Column(rel.RemoteColumn); !ok {
				panic(fmt.Sprintf("schema: relation %s.%s references unknown remote column %q", table.Entity, rel.Name, rel.RemoteColumn))
			}
		}
	}
	return c
}

// Table returns the table metadata for an entity.
func (c *Catalog) Table(entity string) (Table, bool) {
	table, ok := c.tables[entity]
	return table, ok
}

// Entities returns the declared entity names in declaration order.
func (c *Catalog) Entities() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}
