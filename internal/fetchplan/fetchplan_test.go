package fetchplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-core/internal/schema"
)

func TestRegistry(t *testing.T) {
	catalog := schema.DefaultCatalog()

	t.Run("register and resolve", func(t *testing.T) {
		reg := NewRegistry(catalog)
		tree := Tree{Rel("user", Rel("department"))}
		require.NoError(t, reg.Register(schema.EntityOrder, "order-with-customer", tree))

		resolved, err := reg.Resolve(schema.EntityOrder, "order-with-customer")
		require.NoError(t, err)
		assert.Equal(t, tree, resolved)
	})

	t.Run("duplicate name fails", func(t *testing.T) {
		reg := NewRegistry(catalog)
		require.NoError(t, reg.Register(schema.EntityOrder, "base", Tree{Rel("user")}))
		err := reg.Register(schema.EntityOrder, "base", Tree{Rel("items")})
		assert.ErrorIs(t, err, ErrPlanExists)
	})

	t.Run("same name on different entities is allowed", func(t *testing.T) {
		reg := NewRegistry(catalog)
		require.NoError(t, reg.Register(schema.EntityOrder, "base", Tree{Rel("user")}))
		require.NoError(t, reg.Register(schema.EntityUser, "base", Tree{Rel("department")}))
	})

	t.Run("missing plan fails with ErrPlanNotFound", func(t *testing.T) {
		reg := NewRegistry(catalog)
		_, err := reg.Resolve(schema.EntityOrder, "nope")
		assert.ErrorIs(t, err, ErrPlanNotFound)
	})

	t.Run("unknown relation is rejected at registration", func(t *testing.T) {
		reg := NewRegistry(catalog)
		err := reg.Register(schema.EntityOrder, "bad", Tree{Rel("invoice")})
		assert.ErrorIs(t, err, ErrUnknownRelation)
	})
}

func TestValidate(t *testing.T) {
	catalog := schema.DefaultCatalog()

	tests := []struct {
		name    string
		entity  string
		tree    Tree
		wantErr bool
	}{
		{"empty tree", schema.EntityUser, nil, false},
		{"single to-one", schema.EntityUser, Tree{Rel("department")}, false},
		{"nested path", schema.EntityOrder, Tree{Rel("user", Rel("department"))}, false},
		{"mixed relations", schema.EntityOrder, Tree{Rel("user"), Rel("items", Rel("product"))}, false},
		{"unknown root relation", schema.EntityUser, Tree{Rel("manager")}, true},
		{"unknown nested relation", schema.EntityOrder, Tree{Rel("user", Rel("friends"))}, true},
		{"duplicate relation", schema.EntityOrder, Tree{Rel("user"), Rel("user")}, true},
		{"unknown entity", "Widget", Tree{Rel("parts")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(catalog, tt.entity, tt.tree)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownRelation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
