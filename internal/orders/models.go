package orders

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const CategoryAccessories = "Accessories"

type Product struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	ImageRef  string          `json:"image_ref"`
	CreatedAt time.Time       `json:"created_at"`
}

// IsAccessory reports whether units of the product are tracked by count
// instead of per serial number.
func (p Product) IsAccessory() bool { return IsAccessoryCategory(p.Category) }

func IsAccessoryCategory(category string) bool {
	return strings.EqualFold(strings.TrimSpace(category), CategoryAccessories)
}

// Order is one line of the ledger. Rows placed together share OrderID.
type Order struct {
	ID                int64     `json:"id"`
	OrderID           string    `json:"order_id"`
	ProductID         int64     `json:"product_id"`
	ProductName       string    `json:"product_name,omitempty"` // join
	Category          string    `json:"category,omitempty"`     // join
	Quantity          int       `json:"quantity"`               // remaining
	ConfirmedQuantity int       `json:"confirmed_quantity"`
	OrderDate         string    `json:"order_date"` // YYYY-MM-DD
	OrderedBy         string    `json:"ordered_by"`
	Comment           Comment   `json:"comment"`
	ItemComment       Comment   `json:"item_comment"`
	SerialNumbers     []string  `json:"serial_numbers"` // legacy, read-only
	CreatedAt         time.Time `json:"created_at"`
}

type ConfirmedItem struct {
	ID           int64     `json:"id"`
	OrderRowID   int64     `json:"order_row_id"`
	OrderID      string    `json:"order_id"`
	ProductID    int64     `json:"product_id"`
	ProductName  string    `json:"product_name,omitempty"`
	Category     string    `json:"category,omitempty"`
	SerialNumber *string   `json:"serial_number"` // nil for accessories
	ItemComment  Comment   `json:"item_comment"`
	ConfirmedAt  time.Time `json:"confirmed_at"`
	Deployed     bool      `json:"deployed"`
}

type DeployedItem struct {
	ID                 int64     `json:"id"`
	ConfirmedItemID    int64     `json:"confirmed_item_id"`
	OrderID            string    `json:"order_id"`
	ProductID          int64     `json:"product_id"`
	ProductName        string    `json:"product_name,omitempty"`
	Category           string    `json:"category,omitempty"`
	SerialNumber       *string   `json:"serial_number"`
	ItemComment        Comment   `json:"item_comment"`
	DeployedBy         string    `json:"deployed_by"`
	DeploymentLocation string    `json:"deployment_location"`
	DeployedAt         time.Time `json:"deployed_at"`
	ConfirmedAt        time.Time `json:"confirmed_at"`
}

// ProductInput carries the editable catalog fields.
type ProductInput struct {
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	ImageRef string          `json:"image_ref"`
}

type OrderLineInput struct {
	ProductID   int64   `json:"product_id"`
	Quantity    int     `json:"quantity"`
	ItemComment Comment `json:"item_comment"`
}

type CreateOrderInput struct {
	OrderID   string           `json:"order_id"`
	OrderDate string           `json:"order_date"`
	OrderedBy string           `json:"ordered_by"`
	Comment   Comment          `json:"comment"`
	Lines     []OrderLineInput `json:"items"`
}

// OrderCorrection is an administrative edit of an order row. Nil fields are
// left untouched.
type OrderCorrection struct {
	Quantity  *int    `json:"quantity"`
	OrderedBy *string `json:"ordered_by"`
	OrderDate *string `json:"order_date"`
}

// Unit is one physical unit presented for confirmation.
type Unit struct {
	SerialNumber string  `json:"serial_number"`
	ItemComment  Comment `json:"item_comment"`
}

// ConfirmTarget identifies the order row being confirmed against, either by
// row id or by basket id plus product.
type ConfirmTarget struct {
	RowID     int64
	OrderID   string
	ProductID int64
}

type DeployInput struct {
	ConfirmedItemID    int64  `json:"confirmed_item_id"`
	DeployedBy         string `json:"deployed_by"`
	DeploymentLocation string `json:"deployment_location"`
}
