package resolver

import (
	"errors"
	"fmt"
)

// ErrRelationNotLoaded indicates a relation was dereferenced without having
// been included in the fetch plan. The core never falls back to a hidden
// per-row query; callers must request the relation in a plan or issue a
// follow-up load.
var ErrRelationNotLoaded = errors.New("relation not loaded")

// Record is one hydrated entity row. Relations are either explicitly loaded
// (possibly to a nil reference or an empty collection) or absent; dereferencing
// an absent relation fails loudly instead of issuing a query.
type Record struct {
	Entity string
	Fields map[string]interface{}

	one    map[string]*Record
	many   map[string][]*Record
	loaded map[string]bool
}

func newRecord(entity string) *Record {
	return &Record{
		Entity: entity,
		Fields: make(map[string]interface{}),
		loaded: make(map[string]bool),
	}
}

// Field returns a scanned column value by name.
func (r *Record) Field(name string) interface{} {
	return r.Fields[name]
}

// Loaded reports whether the named relation was loaded by the fetch plan.
func (r *Record) Loaded(name string) bool {
	return r.loaded[name]
}

// One returns a loaded to-one relation. The record may be nil when the
// reference itself is null.
func (r *Record) One(name string) (*Record, error) {
	if !r.loaded[name] {
		return nil, fmt.Errorf("%w: %s.%s", ErrRelationNotLoaded, r.Entity, name)
	}
	return r.one[name], nil
}

// Many returns a loaded to-many relation.
func (r *Record) Many(name string) ([]*Record, error) {
	if !r.loaded[name] {
		return nil, fmt.Errorf("%w: %s.%s", ErrRelationNotLoaded, r.Entity, name)
	}
	return r.many[name], nil
}

// MustOne is One for callers that treat a missing plan entry as a programming
// error; it panics instead of returning ErrRelationNotLoaded.
func (r *Record) MustOne(name string) *Record {
	rec, err := r.One(name)
	if err != nil {
		panic(err)
	}
	return rec
}

// MustMany is Many with panic-on-unloaded semantics.
func (r *Record) MustMany(name string) []*Record {
	recs, err := r.Many(name)
	if err != nil {
		panic(err)
	}
	return recs
}

func (r *Record) setOne(name string, rec *Record) {
	if r.one == nil {
		r.one = make(map[string]*Record)
	}
	r.one[name] = rec
	r.loaded[name] = true
}

func (r *Record) setMany(name string, recs []*Record) {
	if r.many == nil {
		r.many = make(map[string][]*Record)
	}
	r.many[name] = recs
	r.loaded[name] = true
}

func (r *Record) appendMany(name string, rec *Record) {
	if r.many == nil {
		r.many = make(map[string][]*Record)
	}
	r.many[name] = append(r.many[name], rec)
	r.loaded[name] = true
}
