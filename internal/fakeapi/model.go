package fakeapi

import (
	"strconv"
	"time"
)

type account struct {
	ID           int
	Username     string
	Email        string
	FirstName    string
	LastName     string
	Role         string
	PasswordHash string
}

type categoryJSON struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type supplierJSON struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   *string   `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type inventoryJSON struct {
	ID                int       `json:"id"`
	Quantity          int       `json:"quantity"`
	ReservedQuantity  int       `json:"reserved_quantity"`
	ReorderLevel      int       `json:"reorder_level"`
	AvailableQuantity int       `json:"available_quantity"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type product struct {
	ID          int
	Name        string
	CategoryID  int
	Description string
	PriceCents  int64
	SKU         string
	Active      bool
	Quantity    int
	Reserved    int
	Reorder     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type productJSON struct {
	ID          int            `json:"id"`
	Name        string         `json:"name"`
	Category    categoryJSON   `json:"category"`
	Suppliers   []supplierJSON `json:"suppliers"`
	Description *string        `json:"description"`
	Price       string         `json:"price"`
	SKU         *string        `json:"sku"`
	IsActive    bool           `json:"is_active"`
	InStock     bool           `json:"in_stock"`
	Inventory   *inventoryJSON `json:"inventory,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type userJSON struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type cartItem struct {
	ID        int
	ProductID int
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type cart struct {
	ID        int
	UserID    int
	Items     []*cartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

type cartItemJSON struct {
	ID         int         `json:"id"`
	Cart       int         `json:"cart"`
	Product    productJSON `json:"product"`
	Quantity   int         `json:"quantity"`
	TotalPrice string      `json:"total_price"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

type cartJSON struct {
	ID         int            `json:"id"`
	User       userJSON       `json:"user"`
	TotalItems int            `json:"total_items"`
	TotalPrice string         `json:"total_price"`
	Items      []cartItemJSON `json:"items"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type orderItem struct {
	ID        int
	ProductID int
	Quantity  int
	UnitCents int64
	CreatedAt time.Time
}

type order struct {
	ID              int
	UserID          int
	Number          string
	Status          string
	ShippingAddress string
	ShippingPhone   string
	Notes           string
	SubtotalCents   int64
	ShippingCents   int64
	TaxCents        int64
	TotalCents      int64
	Items           []orderItem
	OrderDate       time.Time
	ShippedDate     *time.Time
	DeliveredDate   *time.Time
	UpdatedAt       time.Time
}

type orderItemJSON struct {
	ID         int         `json:"id"`
	Order      int         `json:"order"`
	Product    productJSON `json:"product"`
	Quantity   int         `json:"quantity"`
	UnitPrice  string      `json:"unit_price"`
	TotalPrice string      `json:"total_price"`
	CreatedAt  time.Time   `json:"created_at"`
}

type orderJSON struct {
	ID              int             `json:"id"`
	User            *userJSON       `json:"user"`
	OrderNumber     string          `json:"order_number"`
	Status          string          `json:"status"`
	ShippingAddress *string         `json:"shipping_address"`
	ShippingPhone   string          `json:"shipping_phone"`
	Subtotal        string          `json:"subtotal"`
	ShippingCost    string          `json:"shipping_cost"`
	TaxAmount       string          `json:"tax_amount"`
	TotalAmount     string          `json:"total_amount"`
	OrderDate       time.Time       `json:"order_date"`
	ShippedDate     *time.Time      `json:"shipped_date"`
	DeliveredDate   *time.Time      `json:"delivered_date"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Notes           *string         `json:"notes"`
	TotalItems      int             `json:"total_items"`
	Items           []orderItemJSON `json:"items"`
}

var orderStatuses = map[string]bool{"P": true, "C": true, "PR": true, "S": true, "D": true, "CA": true, "R": true}

func (a *account) json() userJSON {
	return userJSON{ID: a.ID, Username: a.Username, Email: a.Email, FirstName: a.FirstName, LastName: a.LastName}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	frac := strconv.FormatInt(cents%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	return sign + strconv.FormatInt(cents/100, 10) + "." + frac
}
