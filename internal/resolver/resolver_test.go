package resolver

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-core/internal/dbexec"
	"catalog-core/internal/fetchplan"
	"catalog-core/internal/planner"
	"catalog-core/internal/schema"
)

func newMockExecutor(t *testing.T) (*dbexec.StandardExecutor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return dbexec.NewStandardExecutor(db), mock
}

var (
	orderColumns = []string{"t0__id", "t0__order_number", "t0__order_date", "t0__total_amount", "t0__status", "t0__user_id"}
	userColumns  = []string{"id", "name", "email", "created_at", "department_id"}
	deptColumns  = []string{"id", "name", "description", "budget"}
	itemColumns  = []string{"id", "quantity", "unit_price", "total_price", "order_id", "product_id"}
)

func TestResolveByKeyJoinStrategy(t *testing.T) {
	catalog := schema.DefaultCatalog()
	exec, mock := newMockExecutor(t)
	r := New(catalog)

	// Order -> user -> department touches only to-one relations: one joined
	// query, no secondary fetches.
	columns := append(append(append([]string{}, orderColumns...), userColumns...), deptColumns...)
	mock.ExpectQuery("SELECT .+ FROM `orders` AS `t0` LEFT JOIN `users` AS `t1` .+ LEFT JOIN `departments` AS `t2`").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			int64(10), "ORD-0010", "2026-02-01T10:00:00Z", "149.90", "SHIPPED", int64(7),
			int64(7), "Dana", "dana@example.com", "2025-06-01T00:00:00Z", int64(3),
			int64(3), "Sales", "field sales", "250000.00",
		))

	tree := fetchplan.Tree{fetchplan.Rel("user", fetchplan.Rel("department"))}
	rec, err := r.ResolveByKey(context.Background(), exec, schema.EntityOrder, int64(10), tree)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, int64(10), rec.Field("id"))
	assert.Equal(t, "ORD-0010", rec.Field("order_number"))

	user, err := rec.One("user")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Dana", user.Field("name"))

	dept, err := user.One("department")
	require.NoError(t, err)
	require.NotNil(t, dept)
	assert.Equal(t, "Sales", dept.Field("name"))

	// Relations outside the plan stay unloaded and fail loudly.
	_, err = rec.Many("items")
	assert.ErrorIs(t, err, ErrRelationNotLoaded)
	_, err = user.Many("orders")
	assert.ErrorIs(t, err, ErrRelationNotLoaded)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveBatchedToMany(t *testing.T) {
	catalog := schema.DefaultCatalog()
	exec, mock := newMockExecutor(t)
	r := New(catalog)

	mock.ExpectQuery("SELECT .+ FROM `departments` AS `t0` ORDER BY `t0`.`id` ASC").
		WillReturnRows(sqlmock.NewRows(deptColumns).
			AddRow(int64(1), "Sales", nil, "250000.00").
			AddRow(int64(2), "Legal", nil, "90000.00"))
	mock.ExpectQuery("SELECT .+ __batch_parent_id FROM `users` AS `t0` WHERE `t0`.`department_id` IN \\(\\?,\\?\\)").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows(append(append([]string{}, userColumns...), "__batch_parent_id")).
			AddRow(int64(4), "Ada", "ada@example.com", "2025-01-01T00:00:00Z", int64(1), int64(1)).
			AddRow(int64(5), "Ben", "ben@example.com", "2025-01-02T00:00:00Z", int64(1), int64(1)))

	recs, err := r.Resolve(context.Background(), exec, schema.EntityDepartment, nil, fetchplan.Tree{fetchplan.Rel("users")})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	sales, err := recs[0].Many("users")
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, "Ada", sales[0].Field("name"))
	assert.Equal(t, "Ben", sales[1].Field("name"))

	// A parent with no children is still explicitly loaded, as empty.
	legal, err := recs[1].Many("users")
	require.NoError(t, err)
	assert.Empty(t, legal)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBoundedRoundTrips(t *testing.T) {
	catalog := schema.DefaultCatalog()

	// One root query plus one query per to-many relation, regardless of how
	// many roots match.
	for _, rootCount := range []int{0, 1, 25, 400} {
		t.Run(fmt.Sprintf("%d roots", rootCount), func(t *testing.T) {
			exec, mock := newMockExecutor(t)
			counting := dbexec.NewCountingExecutor(exec)
			r := New(catalog)

			deptRows := sqlmock.NewRows(deptColumns)
			userArgs := make([]driver.Value, 0, rootCount)
			for i := 1; i <= rootCount; i++ {
				deptRows.AddRow(int64(i), fmt.Sprintf("dept-%d", i), nil, "1000.00")
				userArgs = append(userArgs, int64(i))
			}
			mock.ExpectQuery("SELECT .+ FROM `departments` AS `t0`").WillReturnRows(deptRows)
			if rootCount > 0 {
				mock.ExpectQuery("SELECT .+ FROM `users` AS `t0` WHERE `t0`.`department_id` IN").
					WithArgs(userArgs...).
					WillReturnRows(sqlmock.NewRows(append(append([]string{}, userColumns...), "__batch_parent_id")))
			}

			_, err := r.Resolve(context.Background(), counting, schema.EntityDepartment, nil, fetchplan.Tree{fetchplan.Rel("users")})
			require.NoError(t, err)

			expected := int64(1)
			if rootCount > 0 {
				expected = 2
			}
			assert.Equal(t, expected, counting.Count())
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestNullToOneReferenceLoadsNil(t *testing.T) {
	catalog := schema.DefaultCatalog()
	exec, mock := newMockExecutor(t)
	r := New(catalog)

	columns := append([]string{"t0__id", "t0__name", "t0__email", "t0__created_at", "t0__department_id"},
		"t1__id", "t1__name", "t1__description", "t1__budget")
	mock.ExpectQuery("SELECT .+ FROM `users` AS `t0` LEFT JOIN `departments` AS `t1`").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			int64(9), "Free Agent", "fa@example.com", "2025-03-01T00:00:00Z", nil,
			nil, nil, nil, nil,
		))

	rec, err := r.ResolveByKey(context.Background(), exec, schema.EntityUser, int64(9), fetchplan.Tree{fetchplan.Rel("department")})
	require.NoError(t, err)
	require.NotNil(t, rec)

	dept, err := rec.One("department")
	require.NoError(t, err)
	assert.Nil(t, dept, "null reference is loaded, and loaded as nil")
	assert.True(t, rec.Loaded("department"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToManyUnderJoinedToOne(t *testing.T) {
	catalog := schema.DefaultCatalog()
	exec, mock := newMockExecutor(t)
	counting := dbexec.NewCountingExecutor(exec)
	r := New(catalog)

	// Order -> user (joined) -> orders (batched under the joined user).
	columns := append(append([]string{}, orderColumns...), "t1__id", "t1__name", "t1__email", "t1__created_at", "t1__department_id")
	mock.ExpectQuery("SELECT .+ FROM `orders` AS `t0` LEFT JOIN `users` AS `t1`").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			int64(10), "ORD-0010", "2026-02-01T10:00:00Z", "149.90", "SHIPPED", int64(7),
			int64(7), "Dana", "dana@example.com", "2025-06-01T00:00:00Z", nil,
		))
	mock.ExpectQuery("SELECT .+ FROM `orders` AS `t0` WHERE `t0`.`user_id` IN \\(\\?\\)").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(append(append([]string{}, orderColumns...), "__batch_parent_id")).
			AddRow(int64(10), "ORD-0010", "2026-02-01T10:00:00Z", "149.90", "SHIPPED", int64(7), int64(7)).
			AddRow(int64(11), "ORD-0011", "2026-02-02T10:00:00Z", "19.90", "PENDING", int64(7), int64(7)))

	tree := fetchplan.Tree{fetchplan.Rel("user", fetchplan.Rel("orders"))}
	rec, err := r.ResolveByKey(context.Background(), counting, schema.EntityOrder, int64(10), tree)
	require.NoError(t, err)
	require.NotNil(t, rec)

	user := rec.MustOne("user")
	orders := user.MustMany("orders")
	require.Len(t, orders, 2)
	assert.Equal(t, "ORD-0011", orders[1].Field("order_number"))

	assert.EqualValues(t, 2, counting.Count())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNestedToOneInsideBatch(t *testing.T) {
	catalog := schema.DefaultCatalog()
	exec, mock := newMockExecutor(t)
	counting := dbexec.NewCountingExecutor(exec)
	r := New(catalog)

	// Order -> items (batched) -> product (joined inside the batch query).
	// Still 1 + 1 queries: the to-one hop rides along in the batch join.
	mock.ExpectQuery("SELECT .+ FROM `orders` AS `t0` WHERE `t0`.`id` = \\?").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(orderColumns).
			AddRow(int64(10), "ORD-0010", "2026-02-01T10:00:00Z", "149.90", "SHIPPED", int64(7)))
	productCols := []string{"t1__id", "t1__name", "t1__description", "t1__price", "t1__stock_quantity", "t1__category_id"}
	batchCols := append(append(append([]string{}, itemColumns...), productCols...), "__batch_parent_id")
	mock.ExpectQuery("SELECT .+ FROM `order_items` AS `t0` LEFT JOIN `products` AS `t1` .+ WHERE `t0`.`order_id` IN \\(\\?\\)").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(batchCols).
			AddRow(int64(100), int64(2), "74.95", "149.90", int64(10), int64(55),
				int64(55), "Keyboard", nil, "74.95", int64(12), int64(6), int64(10)))

	tree := fetchplan.Tree{fetchplan.Rel("items", fetchplan.Rel("product"))}
	rec, err := r.ResolveByKey(context.Background(), counting, schema.EntityOrder, int64(10), tree)
	require.NoError(t, err)
	require.NotNil(t, rec)

	items := rec.MustMany("items")
	require.Len(t, items, 1)
	product := items[0].MustOne("product")
	require.NotNil(t, product)
	assert.Equal(t, "Keyboard", product.Field("name"))

	assert.EqualValues(t, 2, counting.Count())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveNoPlanLeavesRelationsUnloaded(t *testing.T) {
	catalog := schema.DefaultCatalog()
	exec, mock := newMockExecutor(t)
	r := New(catalog)

	mock.ExpectQuery("SELECT .+ FROM `orders` AS `t0`").
		WillReturnRows(sqlmock.NewRows(orderColumns).
			AddRow(int64(10), "ORD-0010", "2026-02-01T10:00:00Z", "149.90", "SHIPPED", int64(7)))

	rec, err := r.ResolveByKey(context.Background(), exec, schema.EntityOrder, int64(10), nil)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.False(t, rec.Loaded("user"))
	_, err = rec.One("user")
	assert.ErrorIs(t, err, ErrRelationNotLoaded)
	assert.Panics(t, func() { rec.MustOne("user") })
}

func TestResolveByKeyMissingRowIsNotAnError(t *testing.T) {
	catalog := schema.DefaultCatalog()
	exec, mock := newMockExecutor(t)
	r := New(catalog)

	mock.ExpectQuery("SELECT .+ FROM `orders` AS `t0`").
		WillReturnRows(sqlmock.NewRows(orderColumns))

	rec, err := r.ResolveByKey(context.Background(), exec, schema.EntityOrder, int64(404), nil)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestResolveErrors(t *testing.T) {
	catalog := schema.DefaultCatalog()
	r := New(catalog)

	t.Run("unknown entity", func(t *testing.T) {
		exec, _ := newMockExecutor(t)
		_, err := r.Resolve(context.Background(), exec, "Widget", nil, nil)
		assert.ErrorIs(t, err, ErrUnknownEntity)
	})

	t.Run("invalid inline plan", func(t *testing.T) {
		exec, _ := newMockExecutor(t)
		_, err := r.Resolve(context.Background(), exec, schema.EntityOrder, nil, fetchplan.Tree{fetchplan.Rel("lines")})
		assert.ErrorIs(t, err, fetchplan.ErrUnknownRelation)
	})

	t.Run("unknown filter column", func(t *testing.T) {
		exec, _ := newMockExecutor(t)
		_, err := r.Resolve(context.Background(), exec, schema.EntityOrder, planner.Filter{"color": "red"}, nil)
		assert.ErrorIs(t, err, planner.ErrUnknownColumn)
	})

	t.Run("session failure wraps as ExecError", func(t *testing.T) {
		exec, mock := newMockExecutor(t)
		mock.ExpectQuery("SELECT .+ FROM `orders` AS `t0`").
			WillReturnError(errors.New("deadline exceeded"))

		_, err := r.Resolve(context.Background(), exec, schema.EntityOrder, nil, nil)
		var execErr *dbexec.ExecError
		assert.ErrorAs(t, err, &execErr)
	})
}

func TestBlobColumnsNeverProjected(t *testing.T) {
	catalog := schema.DefaultCatalog()
	exec, mock := newMockExecutor(t)
	r := New(catalog)

	// Match any query that names a binary column: none may run.
	mock.ExpectQuery(regexp.QuoteMeta("invoice")).WillReturnError(errors.New("binary column selected"))
	mock.ExpectQuery("SELECT .+ FROM `orders` AS `t0`").
		WillReturnRows(sqlmock.NewRows(orderColumns).
			AddRow(int64(10), "ORD-0010", "2026-02-01T10:00:00Z", "149.90", "SHIPPED", int64(7)))

	mock.MatchExpectationsInOrder(false)
	rec, err := r.ResolveByKey(context.Background(), exec, schema.EntityOrder, int64(10), nil)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.NotContains(t, rec.Fields, "invoice")
}
