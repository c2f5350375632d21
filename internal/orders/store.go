package orders

import "context"

// Store is the persistence contract shared by the Postgres repo and the
// in-memory store. Implementations must make ConfirmUnits, Deploy and
// Undeploy atomic: either every row change of the call lands or none does.
type Store interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	CreateProduct(ctx context.Context, in ProductInput) (Product, error)
	UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	ListOrders(ctx context.Context) ([]Order, error)
	GetOrder(ctx context.Context, id int64) (Order, error)
	// FindOrderRow resolves the row of a basket holding the given product.
	FindOrderRow(ctx context.Context, orderID string, productID int64) (Order, error)
	// CreateOrder inserts all lines under one order id. An empty OrderID is
	// assigned with NextOrderID from the last stored one, serialized against
	// concurrent creations.
	CreateOrder(ctx context.Context, in CreateOrderInput) ([]Order, error)
	LastOrderID(ctx context.Context) (string, error)
	CorrectOrder(ctx context.Context, id int64, c OrderCorrection) (Order, error)
	DeleteOrder(ctx context.Context, id int64) error
	UpdateBasketComment(ctx context.Context, orderID string, c Comment) (int64, error)
	UpdateItemComment(ctx context.Context, rowID int64, c Comment) (Order, error)

	// ConfirmUnits records one confirmed item per unit, each decrementing
	// quantity and incrementing confirmed_quantity of the row.
	ConfirmUnits(ctx context.Context, rowID int64, units []Unit) ([]ConfirmedItem, error)
	ListConfirmed(ctx context.Context, includeDeployed bool) ([]ConfirmedItem, error)
	SearchConfirmed(ctx context.Context, serial string) ([]ConfirmedItem, error)

	Deploy(ctx context.Context, in DeployInput) (DeployedItem, error)
	Undeploy(ctx context.Context, deployedItemID int64) (ConfirmedItem, error)
	ListDeployed(ctx context.Context) ([]DeployedItem, error)

	Snapshot(ctx context.Context) (Snapshot, error)
}

// Snapshot is a consistent-enough read of all four tables for the
// aggregation views. Confirmed includes deployed rows.
type Snapshot struct {
	Products  []Product
	Orders    []Order
	Confirmed []ConfirmedItem
	Deployed  []DeployedItem
}
