package goShop

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Category groups products.
type Category struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Supplier struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   *string   `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Inventory is the stock level of one product.
type Inventory struct {
	ID                int       `json:"id"`
	Quantity          int       `json:"quantity"`
	ReservedQuantity  int       `json:"reserved_quantity"`
	ReorderLevel      int       `json:"reorder_level"`
	AvailableQuantity int       `json:"available_quantity"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Product as listed by the catalog endpoints.
type Product struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Category    Category   `json:"category"`
	Suppliers   []Supplier `json:"suppliers"`
	Description *string    `json:"description,omitempty"`
	Price       Decimal    `json:"price"`
	SKU         *string    `json:"sku,omitempty"`
	IsActive    bool       `json:"is_active"`
	InStock     bool       `json:"in_stock"`
	Inventory   *Inventory `json:"inventory,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type User struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// ProfileUpdate carries the fields of a partial profile update. Nil fields are omitted.
type ProfileUpdate struct {
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

type Cart struct {
	ID         int        `json:"id"`
	User       User       `json:"user"`
	TotalItems int        `json:"total_items"`
	TotalPrice Decimal    `json:"total_price"`
	Items      []CartItem `json:"items"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type CartItem struct {
	ID         int       `json:"id"`
	Cart       Ref       `json:"cart"`
	Product    Product   `json:"product"`
	Quantity   int       `json:"quantity"`
	TotalPrice Decimal   `json:"total_price"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// OrderStatus is the backend's short status code.
type OrderStatus string

const (
	OrderPending    OrderStatus = "P"
	OrderConfirmed  OrderStatus = "C"
	OrderProcessing OrderStatus = "PR"
	OrderShipped    OrderStatus = "S"
	OrderDelivered  OrderStatus = "D"
	OrderCancelled  OrderStatus = "CA"
	OrderReturned   OrderStatus = "R"
)

var orderStatusLabels = map[OrderStatus]string{
	OrderPending:    "Pending",
	OrderConfirmed:  "Confirmed",
	OrderProcessing: "Processing",
	OrderShipped:    "Shipped",
	OrderDelivered:  "Delivered",
	OrderCancelled:  "Cancelled",
	OrderReturned:   "Returned",
}

// Valid reports whether s is a known status code.
func (s OrderStatus) Valid() bool {
	_, ok := orderStatusLabels[s]
	return ok
}

// Label returns the display name, or the raw code for unknown statuses.
func (s OrderStatus) Label() string {
	if l, ok := orderStatusLabels[s]; ok {
		return l
	}
	return string(s)
}

// ParseOrderStatus accepts a status code ("PR") or its label ("processing").
func ParseOrderStatus(v string) (OrderStatus, bool) {
	if s := OrderStatus(v); s.Valid() {
		return s, true
	}
	for code, label := range orderStatusLabels {
		if strings.EqualFold(label, v) {
			return code, true
		}
	}
	return "", false
}

type Order struct {
	ID              int         `json:"id"`
	User            *User       `json:"user"`
	OrderNumber     string      `json:"order_number"`
	Status          OrderStatus `json:"status"`
	ShippingAddress *string     `json:"shipping_address,omitempty"`
	ShippingPhone   string      `json:"shipping_phone"`
	Subtotal        Decimal     `json:"subtotal"`
	ShippingCost    Decimal     `json:"shipping_cost"`
	TaxAmount       Decimal     `json:"tax_amount"`
	TotalAmount     Decimal     `json:"total_amount"`
	OrderDate       time.Time   `json:"order_date"`
	ShippedDate     *time.Time  `json:"shipped_date,omitempty"`
	DeliveredDate   *time.Time  `json:"delivered_date,omitempty"`
	UpdatedAt       time.Time   `json:"updated_at"`
	Notes           *string     `json:"notes,omitempty"`
	TotalItems      int         `json:"total_items"`
	Items           []OrderItem `json:"items"`
}

type OrderItem struct {
	ID         int       `json:"id"`
	Order      Ref       `json:"order"`
	Product    Product   `json:"product"`
	Quantity   int       `json:"quantity"`
	UnitPrice  Decimal   `json:"unit_price"`
	TotalPrice Decimal   `json:"total_price"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateOrderRequest is the checkout payload.
type CreateOrderRequest struct {
	ShippingAddress string   `json:"shipping_address"`
	ShippingPhone   string   `json:"shipping_phone"`
	ShippingCost    *float64 `json:"shipping_cost,omitempty"`
	TaxAmount       *float64 `json:"tax_amount,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}

type OrderStats struct {
	TotalOrders     int     `json:"total_orders"`
	PendingOrders   int     `json:"pending_orders"`
	CompletedOrders int     `json:"completed_orders"`
	TotalSpent      float64 `json:"total_spent"`
}

type DashboardStats struct {
	TotalOrders      int     `json:"total_orders"`
	PendingOrders    int     `json:"pending_orders"`
	TotalRevenue     float64 `json:"total_revenue"`
	TotalUsers       int     `json:"total_users"`
	TotalProducts    int     `json:"total_products"`
	LowStockProducts int     `json:"low_stock_products"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// AuthResponse is returned by login and registration.
type AuthResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    *User  `json:"user,omitempty"`
}

// Ref is a foreign key the backend serializes either as an id or as an expanded object
// with an "id" field.
type Ref int

func (r *Ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = 0
		return nil
	}
	if len(b) > 0 && b[0] == '{' {
		var obj struct {
			ID int `json:"id"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		*r = Ref(obj.ID)
		return nil
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return fmt.Errorf("ref: %w", err)
	}
	*r = Ref(n)
	return nil
}
