package entity

import "errors"

// ErrNotLoaded indicates a relation was dereferenced on a typed entity without
// having been included in the fetch plan.
var ErrNotLoaded = errors.New("relation not loaded")

// Ref is a to-one relation on a typed entity. It is either unloaded (the plan
// did not cover it) or loaded, possibly to nil when the reference is null.
type Ref[T any] struct {
	loaded bool
	value  *T
}

// LoadedRef wraps an already-resolved reference, nil included.
func LoadedRef[T any](v *T) Ref[T] {
	return Ref[T]{loaded: true, value: v}
}

// Loaded reports whether the reference was resolved by the fetch plan.
func (r Ref[T]) Loaded() bool { return r.loaded }

// Get returns the referenced entity, or ErrNotLoaded when the plan did not
// cover this relation. A nil entity with a nil error means the reference is
// null in the database.
func (r Ref[T]) Get() (*T, error) {
	if !r.loaded {
		return nil, ErrNotLoaded
	}
	return r.value, nil
}

// Must is Get for callers that treat an unloaded relation as a programming
// error.
func (r Ref[T]) Must() *T {
	v, err := r.Get()
	if err != nil {
		panic(err)
	}
	return v
}

// List is a to-many relation on a typed entity, with the same explicit
// loaded/unloaded distinction as Ref.
type List[T any] struct {
	loaded bool
	items  []*T
}

// LoadedList wraps an already-resolved collection; empty is a valid loaded
// state.
func LoadedList[T any](items []*T) List[T] {
	return List[T]{loaded: true, items: items}
}

// Loaded reports whether the collection was resolved by the fetch plan.
func (l List[T]) Loaded() bool { return l.loaded }

// Get returns the collection, or ErrNotLoaded when the plan did not cover it.
func (l List[T]) Get() ([]*T, error) {
	if !l.loaded {
		return nil, ErrNotLoaded
	}
	return l.items, nil
}

// Must is Get with panic-on-unloaded semantics.
func (l List[T]) Must() []*T {
	items, err := l.Get()
	if err != nil {
		panic(err)
	}
	return items
}
