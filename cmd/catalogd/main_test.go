package main

import (
	"testing"

	"catalog-core/internal/schema"
	"catalog-core/internal/store"
)

func TestRegisterDefaultPlans(t *testing.T) {
	st := store.New(schema.DefaultCatalog(), store.Config{})
	if err := registerDefaultPlans(st); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Registering twice must fail: names are taken, never overwritten.
	if err := registerDefaultPlans(st); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}
