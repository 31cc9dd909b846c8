package entity

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"catalog-core/internal/resolver"
)

// DecodeDepartment converts a hydrated record into a typed department. A nil
// record decodes to nil.
func DecodeDepartment(rec *resolver.Record) (*Department, error) {
	if rec == nil {
		return nil, nil
	}
	d := &Department{}
	var err error
	if d.ID, err = fieldInt64(rec, "id"); err != nil {
		return nil, err
	}
	if d.Name, err = fieldString(rec, "name"); err != nil {
		return nil, err
	}
	if d.Description, err = fieldNullString(rec, "description"); err != nil {
		return nil, err
	}
	if d.Budget, err = fieldNullDecimal(rec, "budget"); err != nil {
		return nil, err
	}
	if rec.Loaded("users") {
		users, err := decodeMany(rec, "users", DecodeUser)
		if err != nil {
			return nil, err
		}
		d.Users = LoadedList(users)
	}
	return d, nil
}

// DecodeUser converts a hydrated record into a typed user.
func DecodeUser(rec *resolver.Record) (*User, error) {
	if rec == nil {
		return nil, nil
	}
	u := &User{}
	var err error
	if u.ID, err = fieldInt64(rec, "id"); err != nil {
		return nil, err
	}
	if u.Name, err = fieldString(rec, "name"); err != nil {
		return nil, err
	}
	if u.Email, err = fieldString(rec, "email"); err != nil {
		return nil, err
	}
	if u.CreatedAt, err = fieldTime(rec, "created_at"); err != nil {
		return nil, err
	}
	if u.DepartmentID, err = fieldNullInt64(rec, "department_id"); err != nil {
		return nil, err
	}
	if rec.Loaded("department") {
		dept, err := decodeOne(rec, "department", DecodeDepartment)
		if err != nil {
			return nil, err
		}
		u.Department = LoadedRef(dept)
	}
	if rec.Loaded("orders") {
		orders, err := decodeMany(rec, "orders", DecodeOrder)
		if err != nil {
			return nil, err
		}
		u.Orders = LoadedList(orders)
	}
	return u, nil
}

// DecodeCategory converts a hydrated record into a typed category.
func DecodeCategory(rec *resolver.Record) (*Category, error) {
	if rec == nil {
		return nil, nil
	}
	c := &Category{}
	var err error
	if c.ID, err = fieldInt64(rec, "id"); err != nil {
		return nil, err
	}
	if c.Name, err = fieldString(rec, "name"); err != nil {
		return nil, err
	}
	if c.Description, err = fieldNullString(rec, "description"); err != nil {
		return nil, err
	}
	if rec.Loaded("products") {
		products, err := decodeMany(rec, "products", DecodeProduct)
		if err != nil {
			return nil, err
		}
		c.Products = LoadedList(products)
	}
	return c, nil
}

// DecodeProduct converts a hydrated record into a typed product.
func DecodeProduct(rec *resolver.Record) (*Product, error) {
	if rec == nil {
		return nil, nil
	}
	p := &Product{}
	var err error
	if p.ID, err = fieldInt64(rec, "id"); err != nil {
		return nil, err
	}
	if p.Name, err = fieldString(rec, "name"); err != nil {
		return nil, err
	}
	if p.Description, err = fieldNullString(rec, "description"); err != nil {
		return nil, err
	}
	if p.Price, err = fieldDecimal(rec, "price"); err != nil {
		return nil, err
	}
	if p.StockQuantity, err = fieldInt64(rec, "stock_quantity"); err != nil {
		return nil, err
	}
	if p.CategoryID, err = fieldInt64(rec, "category_id"); err != nil {
		return nil, err
	}
	if rec.Loaded("category") {
		cat, err := decodeOne(rec, "category", DecodeCategory)
		if err != nil {
			return nil, err
		}
		p.Category = LoadedRef(cat)
	}
	if rec.Loaded("items") {
		items, err := decodeMany(rec, "items", DecodeOrderItem)
		if err != nil {
			return nil, err
		}
		p.Items = LoadedList(items)
	}
	return p, nil
}

// DecodeOrder converts a hydrated record into a typed order. The status value
// is validated against the known lifecycle states.
func DecodeOrder(rec *resolver.Record) (*Order, error) {
	if rec == nil {
		return nil, nil
	}
	o := &Order{}
	var err error
	if o.ID, err = fieldInt64(rec, "id"); err != nil {
		return nil, err
	}
	if o.OrderNumber, err = fieldString(rec, "order_number"); err != nil {
		return nil, err
	}
	if o.OrderDate, err = fieldTime(rec, "order_date"); err != nil {
		return nil, err
	}
	if o.TotalAmount, err = fieldDecimal(rec, "total_amount"); err != nil {
		return nil, err
	}
	rawStatus, err := fieldString(rec, "status")
	if err != nil {
		return nil, err
	}
	if o.Status, err = ParseOrderStatus(rawStatus); err != nil {
		return nil, err
	}
	if o.UserID, err = fieldInt64(rec, "user_id"); err != nil {
		return nil, err
	}
	if rec.Loaded("user") {
		user, err := decodeOne(rec, "user", DecodeUser)
		if err != nil {
			return nil, err
		}
		o.User = LoadedRef(user)
	}
	if rec.Loaded("items") {
		items, err := decodeMany(rec, "items", DecodeOrderItem)
		if err != nil {
			return nil, err
		}
		o.Items = LoadedList(items)
	}
	return o, nil
}

// DecodeOrderItem converts a hydrated record into a typed order line.
func DecodeOrderItem(rec *resolver.Record) (*OrderItem, error) {
	if rec == nil {
		return nil, nil
	}
	i := &OrderItem{}
	var err error
	if i.ID, err = fieldInt64(rec, "id"); err != nil {
		return nil, err
	}
	if i.Quantity, err = fieldInt64(rec, "quantity"); err != nil {
		return nil, err
	}
	if i.UnitPrice, err = fieldDecimal(rec, "unit_price"); err != nil {
		return nil, err
	}
	if i.TotalPrice, err = fieldDecimal(rec, "total_price"); err != nil {
		return nil, err
	}
	if i.OrderID, err = fieldInt64(rec, "order_id"); err != nil {
		return nil, err
	}
	if i.ProductID, err = fieldInt64(rec, "product_id"); err != nil {
		return nil, err
	}
	if rec.Loaded("order") {
		order, err := decodeOne(rec, "order", DecodeOrder)
		if err != nil {
			return nil, err
		}
		i.Order = LoadedRef(order)
	}
	if rec.Loaded("product") {
		product, err := decodeOne(rec, "product", DecodeProduct)
		if err != nil {
			return nil, err
		}
		i.Product = LoadedRef(product)
	}
	return i, nil
}

// DecodeAll maps a record slice through a decoder, e.g. a page of orders.
func DecodeAll[T any](recs []*resolver.Record, decode func(*resolver.Record) (*T, error)) ([]*T, error) {
	out := make([]*T, 0, len(recs))
	for _, rec := range recs {
		v, err := decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeOne[T any](rec *resolver.Record, name string, decode func(*resolver.Record) (*T, error)) (*T, error) {
	child, err := rec.One(name)
	if err != nil {
		return nil, err
	}
	return decode(child)
}

func decodeMany[T any](rec *resolver.Record, name string, decode func(*resolver.Record) (*T, error)) ([]*T, error) {
	children, err := rec.Many(name)
	if err != nil {
		return nil, err
	}
	return DecodeAll(children, decode)
}

func fieldInt64(rec *resolver.Record, name string) (int64, error) {
	switch v := rec.Field(name).(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, decodeErr(rec, name, v)
		}
		return n, nil
	default:
		return 0, decodeErr(rec, name, v)
	}
}

func fieldNullInt64(rec *resolver.Record, name string) (*int64, error) {
	if rec.Field(name) == nil {
		return nil, nil
	}
	v, err := fieldInt64(rec, name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func fieldString(rec *resolver.Record, name string) (string, error) {
	if v, ok := rec.Field(name).(string); ok {
		return v, nil
	}
	return "", decodeErr(rec, name, rec.Field(name))
}

func fieldNullString(rec *resolver.Record, name string) (*string, error) {
	if rec.Field(name) == nil {
		return nil, nil
	}
	v, err := fieldString(rec, name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func fieldDecimal(rec *resolver.Record, name string) (decimal.Decimal, error) {
	switch v := rec.Field(name).(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Decimal{}, decodeErr(rec, name, v)
		}
		return d, nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	default:
		return decimal.Decimal{}, decodeErr(rec, name, v)
	}
}

func fieldNullDecimal(rec *resolver.Record, name string) (*decimal.Decimal, error) {
	if rec.Field(name) == nil {
		return nil, nil
	}
	v, err := fieldDecimal(rec, name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// fieldTime accepts time.Time from drivers configured with parseTime, and the
// common textual encodings otherwise.
func fieldTime(rec *resolver.Record, name string) (time.Time, error) {
	switch v := rec.Field(name).(type) {
	case time.Time:
		return v, nil
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999", "2006-01-02 15:04:05", "2006-01-02"} {
			if ts, err := time.Parse(layout, v); err == nil {
				return ts, nil
			}
		}
		return time.Time{}, decodeErr(rec, name, v)
	default:
		return time.Time{}, decodeErr(rec, name, v)
	}
}

func decodeErr(rec *resolver.Record, name string, value interface{}) error {
	return fmt.Errorf("decode %s.%s: unexpected value %v (%T)", rec.Entity, name, value, value)
}
