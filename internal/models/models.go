package models

import "time"

// Role is the access level carried in the auth token.
type Role string

const (
	RoleUser     Role = "USER"
	RoleMerchant Role = "MERCHANT"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether the role is one of the fixed enumeration.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleMerchant, RoleAdmin:
		return true
	}
	return false
}

// Order status enumeration. PENDING exists only inside the creation
// transaction; COMPLETED and CANCELED are terminal.
const (
	OrderStatusPending   = "PENDING"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCanceled  = "CANCELED"
)

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCanceled:
		return true
	}
	return false
}

// Payment status enumeration.
const (
	PaymentStatusPending  = "PENDING"
	PaymentStatusPaid     = "PAID"
	PaymentStatusFailed   = "FAILED"
	PaymentStatusRefunded = "REFUNDED"
)

// User represents a user account
type User struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Category groups products
type Category struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Product represents a product in the catalog
type Product struct {
	ID          int64          `json:"id" db:"id"`
	MerchantID  int64          `json:"merchant_id" db:"merchant_id"`
	CategoryID  int64          `json:"category_id" db:"category_id"`
	Name        string         `json:"name" db:"name"`
	Description *string        `json:"description,omitempty" db:"description"`
	Price       float64        `json:"price" db:"price"`
	Stock       int            `json:"stock" db:"stock"`
	Images      []ProductImage `json:"images,omitempty"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// ProductImage is a hosted image attached to a product
type ProductImage struct {
	ID        int64     `json:"id" db:"id"`
	ProductID int64     `json:"product_id" db:"product_id"`
	URL       string    `json:"url" db:"url"`
	Name      string    `json:"name" db:"name"`
	IsMain    bool      `json:"is_main" db:"is_main"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Cart represents a shopping cart, one per user
type Cart struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CartItem represents an item in a cart. At most one row exists per
// (cart, product) pair.
type CartItem struct {
	ID        int64     `json:"id" db:"id"`
	CartID    int64     `json:"cart_id" db:"cart_id"`
	ProductID int64     `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CartItemView is a cart line carrying the current product snapshot.
type CartItemView struct {
	CartItem
	Product ProductSnapshot `json:"product"`
}

// ProductSnapshot is the live product state shown on a cart line.
type ProductSnapshot struct {
	Name   string         `json:"name"`
	Price  float64        `json:"price"`
	Stock  int            `json:"stock"`
	Images []ProductImage `json:"images,omitempty"`
}

// CartResponse is a cart with its items and derived totals. Totals are
// computed on every read, never stored.
type CartResponse struct {
	Cart       *Cart          `json:"cart"`
	Items      []CartItemView `json:"items"`
	TotalItems int            `json:"total_items"`
	TotalPrice float64        `json:"total_price"`
}

// Order represents an order
type Order struct {
	ID        int64      `json:"id" db:"id"`
	UserID    int64      `json:"user_id" db:"user_id"`
	Status    string     `json:"status" db:"status"`
	Total     float64    `json:"total" db:"total"`
	IsDeleted bool       `json:"is_deleted" db:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	Items     []OrderItem `json:"items,omitempty"`
	Payment   *Payment    `json:"payment,omitempty"`
}

// OrderItem is a line of an order. Price is captured at order time and
// never recomputed from the live product.
type OrderItem struct {
	ID        int64     `json:"id" db:"id"`
	OrderID   int64     `json:"order_id" db:"order_id"`
	ProductID int64     `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Price     float64   `json:"price" db:"price"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// ProductName is joined in for responses and emails, not stored on
	// the order item row.
	ProductName string `json:"product_name,omitempty" db:"-"`
}

// Payment belongs to exactly one order
type Payment struct {
	ID        int64      `json:"id" db:"id"`
	OrderID   int64      `json:"order_id" db:"order_id"`
	Method    string     `json:"method" db:"method"`
	Amount    float64    `json:"amount" db:"amount"`
	Status    string     `json:"status" db:"status"`
	PaidAt    *time.Time `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Notification is a per-user message written as a side effect of order and
// stock events.
type Notification struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Message   string    `json:"message" db:"message"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ListMeta describes a paginated listing
type ListMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

// OrderList is a page of orders with its meta
type OrderList struct {
	Data []Order  `json:"data"`
	Meta ListMeta `json:"meta"`
}

// ProductList is a page of products with its meta
type ProductList struct {
	Data []Product `json:"data"`
	Meta ListMeta  `json:"meta"`
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenPair is returned on successful login
type TokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// AddCartItemRequest is the body of POST /cart
type AddCartItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// SetCartItemRequest is the body of PATCH /cart/set
type SetCartItemRequest struct {
	CartItemID int64 `json:"cart_item_id"`
	Quantity   int   `json:"quantity"`
}

// AdjustCartItemRequest is the body of the increment/decrement endpoints
type AdjustCartItemRequest struct {
	Amount int `json:"amount"`
}

// OrderLine is a (product, quantity) pair in a create-order request
type OrderLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// CreateOrderRequest is the body of POST /orders
type CreateOrderRequest struct {
	Items         []OrderLine `json:"items"`
	PaymentMethod string      `json:"payment_method"`
}

// UpdateOrderStatusRequest is the body of the order status endpoints
type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

// CreateProductRequest is the body of the admin product endpoints
type CreateProductRequest struct {
	CategoryID  int64   `json:"category_id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
}

// CreateCategoryRequest is the body of POST /categories
type CreateCategoryRequest struct {
	Name string `json:"name"`
}
