package schema

// Entity names for the catalog/order domain.
const (
	EntityDepartment = "Department"
	EntityUser       = "User"
	EntityCategory   = "Category"
	EntityProduct    = "Product"
	EntityOrder      = "Order"
	EntityOrderItem  = "OrderItem"
)

// DefaultCatalog declares the fixed entity graph: departments own users, users
// place orders, orders own their items, items reference products, products
// belong to categories. Product images and order invoices are binary payloads.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Table{
			Entity: EntityDepartment,
			Name:   "departments",
			Columns: []Column{
				{Name: "id", Type: TypeInt, IsPrimaryKey: true},
				{Name: "name", Type: TypeString},
				{Name: "description", Type: TypeString, IsNullable: true},
				{Name: "budget", Type: TypeDecimal, IsNullable: true},
			},
			Relations: []Relation{
				{Name: "users", Kind: ToMany, LocalColumn: "id", RemoteEntity: EntityUser, RemoteColumn: "department_id"},
			},
		},
		Table{
			Entity: EntityUser,
			Name:   "users",
			Columns: []Column{
				{Name: "id", Type: TypeInt, IsPrimaryKey: true},
				{Name: "name", Type: TypeString},
				{Name: "email", Type: TypeString},
				{Name: "created_at", Type: TypeTime},
				{Name: "department_id", Type: TypeInt, IsNullable: true},
			},
			Relations: []Relation{
				{Name: "department", Kind: ToOne, LocalColumn: "department_id", RemoteEntity: EntityDepartment, RemoteColumn: "id"},
				{Name: "orders", Kind: ToMany, LocalColumn: "id", RemoteEntity: EntityOrder, RemoteColumn: "user_id"},
			},
		},
		Table{
			Entity: EntityCategory,
			Name:   "categories",
			Columns: []Column{
				{Name: "id", Type: TypeInt, IsPrimaryKey: true},
				{Name: "name", Type: TypeString},
				{Name: "description", Type: TypeString, IsNullable: true},
			},
			Relations: []Relation{
				{Name: "products", Kind: ToMany, LocalColumn: "id", RemoteEntity: EntityProduct, RemoteColumn: "category_id"},
			},
		},
		Table{
			Entity: EntityProduct,
			Name:   "products",
			Columns: []Column{
				{Name: "id", Type: TypeInt, IsPrimaryKey: true},
				{Name: "name", Type: TypeString},
				{Name: "description", Type: TypeString, IsNullable: true},
				{Name: "price", Type: TypeDecimal},
				{Name: "stock_quantity", Type: TypeInt},
				{Name: "category_id", Type: TypeInt},
				{Name: "image", Type: TypeBytes, IsNullable: true, IsBinary: true},
			},
			Relations: []Relation{
				{Name: "category", Kind: ToOne, LocalColumn: "category_id", RemoteEntity: EntityCategory, RemoteColumn: "id"},
				{Name: "items", Kind: ToMany, LocalColumn: "id", RemoteEntity: EntityOrderItem, RemoteColumn: "product_id"},
			},
		},
		Table{
			Entity: EntityOrder,
			Name:   "orders",
			Columns: []Column{
				{Name: "id", Type: TypeInt, IsPrimaryKey: true},
				{Name: "order_number", Type: TypeString},
				{Name: "order_date", Type: TypeTime},
				{Name: "total_amount", Type: TypeDecimal},
				{Name: "status", Type: TypeString},
				{Name: "user_id", Type: TypeInt},
				{Name: "invoice", Type: TypeBytes, IsNullable: true, IsBinary: true},
			},
			Relations: []Relation{
				{Name: "user", Kind: ToOne, LocalColumn: "user_id", RemoteEntity: EntityUser, RemoteColumn: "id"},
				{Name: "items", Kind: ToMany, LocalColumn: "id", RemoteEntity: EntityOrderItem, RemoteColumn: "order_id"},
			},
		},
		Table{
			Entity: EntityOrderItem,
			Name:   "order_items",
			Columns: []Column{
				{Name: "id", Type: TypeInt, IsPrimaryKey: true},
				{Name: "quantity", Type: TypeInt},
				{Name: "unit_price", Type: TypeDecimal},
				{Name: "total_price", Type: TypeDecimal},
				{Name: "order_id", Type: TypeInt},
				{Name: "product_id", Type: TypeInt},
			},
			Relations: []Relation{
				{Name: "order", Kind: ToOne, LocalColumn: "order_id", RemoteEntity: EntityOrder, RemoteColumn: "id"},
				{Name: "product", Kind: ToOne, LocalColumn: "product_id", RemoteEntity: EntityProduct, RemoteColumn: "id"},
			},
		},
	)
}
