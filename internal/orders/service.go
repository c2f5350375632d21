package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/assettrack/internal/obs"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Publisher ships lifecycle events. Failures are logged, never retried.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// ViewInvalidator drops cached aggregation views after a write.
type ViewInvalidator interface {
	InvalidateViews(ctx context.Context) error
}

// Service runs the order -> confirm -> deploy pipeline on top of a Store.
// Events and Views are optional.
type Service struct {
	Store       Store
	Events      Publisher
	Views       ViewInvalidator
	ServiceName string
}

// ConfirmRequest is a batch of units confirmed against one order row.
// For accessory products Quantity (or the number of Units) is the unit
// count and serial numbers are not recorded.
type ConfirmRequest struct {
	Target      ConfirmTarget
	Units       []Unit
	Quantity    int
	ItemComment Comment // default for units without their own comment
}

type ConfirmResult struct {
	Order Order           `json:"order"`
	Items []ConfirmedItem `json:"confirmed_items"`
}

// ---- catalog ----

func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	return s.Store.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.Store.GetProduct(ctx, id)
}

func validateProduct(in *ProductInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if in.Name == "" {
		return validationf("name is required")
	}
	if in.Price.IsNegative() {
		return validationf("price must be >= 0")
	}
	in.Price = in.Price.Round(2)
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	if err := validateProduct(&in); err != nil {
		return Product{}, err
	}
	p, err := s.Store.CreateProduct(ctx, in)
	if err != nil {
		return Product{}, err
	}
	s.afterWrite(ctx, EventProductChanged, "", ProductChangedPayload{ProductID: p.ID, Action: "created"})
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error) {
	if err := validateProduct(&in); err != nil {
		return Product{}, err
	}
	p, err := s.Store.UpdateProduct(ctx, id, in)
	if err != nil {
		return Product{}, err
	}
	s.afterWrite(ctx, EventProductChanged, "", ProductChangedPayload{ProductID: p.ID, Action: "updated"})
	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.Store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.afterWrite(ctx, EventProductChanged, "", ProductChangedPayload{ProductID: id, Action: "deleted"})
	return nil
}

// ---- ledger ----

// ListOrders returns order rows, optionally restricted to an order_date range.
func (s *Service) ListOrders(ctx context.Context, from, to string) ([]Order, error) {
	from, to, err := NormalizeRange(from, to)
	if err != nil {
		return nil, err
	}
	rows, err := s.Store.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByDate(rows, from, to), nil
}

// NormalizeRange validates optional from/to query bounds.
func NormalizeRange(from, to string) (string, string, error) {
	var err error
	if from != "" {
		if from, err = NormalizeDate(from); err != nil {
			return "", "", validationf("from must be YYYY-MM-DD")
		}
	}
	if to != "" {
		if to, err = NormalizeDate(to); err != nil {
			return "", "", validationf("to must be YYYY-MM-DD")
		}
	}
	return from, to, nil
}

func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) ([]Order, error) {
	in.OrderID = strings.TrimSpace(in.OrderID)
	in.OrderedBy = strings.TrimSpace(in.OrderedBy)
	if len(in.Lines) == 0 {
		return nil, validationf("product_id and quantity are required")
	}
	for i, l := range in.Lines {
		if l.ProductID <= 0 {
			return nil, validationf("line %d: product_id is required", i+1)
		}
		if l.Quantity <= 0 {
			return nil, validationf("line %d: quantity must be > 0", i+1)
		}
	}
	if strings.TrimSpace(in.OrderDate) == "" {
		return nil, validationf("order_date is required")
	}
	date, err := NormalizeDate(in.OrderDate)
	if err != nil {
		return nil, err
	}
	in.OrderDate = date

	rows, err := s.Store.CreateOrder(ctx, in)
	if err != nil {
		return nil, err
	}
	p := OrderCreatedPayload{OrderID: rows[0].OrderID, OrderedBy: in.OrderedBy}
	for _, o := range rows {
		p.RowIDs = append(p.RowIDs, o.ID)
		p.Units += o.Quantity
	}
	obs.Logger.Info("order_created", "order_id", p.OrderID, "rows", len(rows), "units", p.Units)
	s.afterWrite(ctx, EventOrderCreated, p.OrderID, p)
	return rows, nil
}

// NextOrderID previews the id the next basket without an explicit id gets.
func (s *Service) NextOrderID(ctx context.Context) (string, error) {
	last, err := s.Store.LastOrderID(ctx)
	if err != nil {
		return "", err
	}
	return NextOrderID(last), nil
}

// CorrectOrder is the administrative edit path; it is the only way besides
// confirmation that quantity changes.
func (s *Service) CorrectOrder(ctx context.Context, id int64, c OrderCorrection) (Order, error) {
	if c.Quantity != nil && *c.Quantity < 0 {
		return Order{}, validationf("quantity must be >= 0")
	}
	if c.OrderDate != nil {
		d, err := NormalizeDate(*c.OrderDate)
		if err != nil {
			return Order{}, err
		}
		c.OrderDate = &d
	}
	o, err := s.Store.CorrectOrder(ctx, id, c)
	if err != nil {
		return Order{}, err
	}
	obs.Logger.Info("order_corrected", "row_id", id, "order_id", o.OrderID, "quantity", o.Quantity)
	s.invalidate(ctx)
	return o, nil
}

func (s *Service) DeleteOrder(ctx context.Context, id int64) error {
	if err := s.Store.DeleteOrder(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) UpdateBasketComment(ctx context.Context, orderID string, c Comment) (int64, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return 0, validationf("order_id is required")
	}
	n, err := s.Store.UpdateBasketComment(ctx, orderID, c)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx)
	return n, nil
}

func (s *Service) UpdateItemComment(ctx context.Context, rowID int64, c Comment) (Order, error) {
	if rowID <= 0 {
		return Order{}, validationf("id is required")
	}
	o, err := s.Store.UpdateItemComment(ctx, rowID, c)
	if err != nil {
		return Order{}, err
	}
	s.invalidate(ctx)
	return o, nil
}

// ---- confirmation ----

func (s *Service) resolveRow(ctx context.Context, t ConfirmTarget) (Order, error) {
	switch {
	case t.RowID > 0:
		return s.Store.GetOrder(ctx, t.RowID)
	case strings.TrimSpace(t.OrderID) != "" && t.ProductID > 0:
		return s.Store.FindOrderRow(ctx, strings.TrimSpace(t.OrderID), t.ProductID)
	default:
		return Order{}, validationf("id or order_id and product_id are required")
	}
}

// ConfirmUnit confirms a single serialized unit against an order row.
func (s *Service) ConfirmUnit(ctx context.Context, rowID int64, serial string, comment Comment) (ConfirmedItem, error) {
	res, err := s.Confirm(ctx, ConfirmRequest{
		Target: ConfirmTarget{RowID: rowID},
		Units:  []Unit{{SerialNumber: serial, ItemComment: comment}},
	})
	if err != nil {
		return ConfirmedItem{}, err
	}
	return res.Items[0], nil
}

func (s *Service) Confirm(ctx context.Context, req ConfirmRequest) (ConfirmResult, error) {
	row, err := s.resolveRow(ctx, req.Target)
	if err != nil {
		return ConfirmResult{}, err
	}
	units, err := buildUnits(row, req)
	if err != nil {
		return ConfirmResult{}, err
	}

	items, err := s.Store.ConfirmUnits(ctx, row.ID, units)
	if err != nil {
		return ConfirmResult{}, err
	}
	row, err = s.Store.GetOrder(ctx, row.ID)
	if err != nil {
		return ConfirmResult{}, err
	}

	p := ItemsConfirmedPayload{OrderID: row.OrderID, OrderRowID: row.ID, ProductID: row.ProductID}
	for _, it := range items {
		p.ItemIDs = append(p.ItemIDs, it.ID)
		if it.SerialNumber != nil {
			p.Serials = append(p.Serials, *it.SerialNumber)
		}
	}
	obs.Logger.Info("units_confirmed",
		"order_id", row.OrderID,
		"row_id", row.ID,
		"units", len(items),
		"remaining", row.Quantity,
		"confirmed_quantity", row.ConfirmedQuantity,
	)
	s.afterWrite(ctx, EventItemsConfirmed, row.OrderID, p)
	return ConfirmResult{Order: row, Items: items}, nil
}

// buildUnits applies the unit policy: serialized products need one non-empty
// serial per unit; accessories always get one row per unit with no serial.
func buildUnits(row Order, req ConfirmRequest) ([]Unit, error) {
	withDefault := func(c Comment) Comment {
		if c.IsZero() {
			return req.ItemComment
		}
		return c
	}

	if IsAccessoryCategory(row.Category) {
		n := req.Quantity
		if n == 0 {
			n = len(req.Units)
		}
		if n <= 0 {
			return nil, ErrMissingIdentifier
		}
		// the store re-checks atomically; this only bounds the allocation
		if n > row.Quantity {
			return nil, fmt.Errorf("%w: %d requested, %d remaining", ErrAlreadyFullyConfirmed, n, row.Quantity)
		}
		units := make([]Unit, n)
		for i := range units {
			var c Comment
			if i < len(req.Units) {
				c = req.Units[i].ItemComment
			}
			units[i] = Unit{ItemComment: withDefault(c)}
		}
		return units, nil
	}

	if len(req.Units) == 0 {
		return nil, ErrMissingIdentifier
	}
	seen := make(map[string]bool, len(req.Units))
	units := make([]Unit, 0, len(req.Units))
	for _, u := range req.Units {
		serial := strings.TrimSpace(u.SerialNumber)
		if serial == "" {
			return nil, ErrMissingIdentifier
		}
		key := strings.ToLower(serial)
		if seen[key] {
			return nil, fmt.Errorf("%w: %s repeated in request", ErrDuplicateSerial, serial)
		}
		seen[key] = true
		units = append(units, Unit{SerialNumber: serial, ItemComment: withDefault(u.ItemComment)})
	}
	return units, nil
}

func (s *Service) ListConfirmed(ctx context.Context, includeDeployed bool) ([]ConfirmedItem, error) {
	return s.Store.ListConfirmed(ctx, includeDeployed)
}

// SearchConfirmed finds confirmed units whose serial contains the needle.
// No match is ErrNotFound.
func (s *Service) SearchConfirmed(ctx context.Context, serial string) ([]ConfirmedItem, error) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return nil, validationf("serial number is required")
	}
	items, err := s.Store.SearchConfirmed(ctx, serial)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: serial %s", ErrConfirmedItemNotFound, serial)
	}
	return items, nil
}

// ---- deployment ----

func (s *Service) Deploy(ctx context.Context, in DeployInput) (DeployedItem, error) {
	in.DeployedBy = strings.TrimSpace(in.DeployedBy)
	in.DeploymentLocation = strings.TrimSpace(in.DeploymentLocation)
	if in.ConfirmedItemID <= 0 {
		return DeployedItem{}, validationf("confirmed_item_id is required")
	}
	if in.DeployedBy == "" || in.DeploymentLocation == "" {
		return DeployedItem{}, validationf("deployed_by and deployment_location are required")
	}
	d, err := s.Store.Deploy(ctx, in)
	if err != nil {
		return DeployedItem{}, err
	}
	obs.Logger.Info("item_deployed",
		"deployed_item_id", d.ID,
		"confirmed_item_id", d.ConfirmedItemID,
		"order_id", d.OrderID,
		"location", d.DeploymentLocation,
	)
	s.afterWrite(ctx, EventItemDeployed, d.OrderID, ItemDeployedPayload{
		OrderID:            d.OrderID,
		ConfirmedItemID:    d.ConfirmedItemID,
		DeployedItemID:     d.ID,
		ProductID:          d.ProductID,
		SerialNumber:       deref(d.SerialNumber),
		DeployedBy:         d.DeployedBy,
		DeploymentLocation: d.DeploymentLocation,
	})
	return d, nil
}

func (s *Service) Undeploy(ctx context.Context, deployedItemID int64) (ConfirmedItem, error) {
	if deployedItemID <= 0 {
		return ConfirmedItem{}, validationf("deployed_item_id is required")
	}
	c, err := s.Store.Undeploy(ctx, deployedItemID)
	if err != nil {
		return ConfirmedItem{}, err
	}
	obs.Logger.Info("item_undeployed", "deployed_item_id", deployedItemID, "confirmed_item_id", c.ID, "order_id", c.OrderID)
	s.afterWrite(ctx, EventItemUndeployed, c.OrderID, ItemUndeployedPayload{
		OrderID:         c.OrderID,
		ConfirmedItemID: c.ID,
		DeployedItemID:  deployedItemID,
		SerialNumber:    deref(c.SerialNumber),
	})
	return c, nil
}

func (s *Service) ListDeployed(ctx context.Context) ([]DeployedItem, error) {
	return s.Store.ListDeployed(ctx)
}

// ---- side effects ----

func (s *Service) afterWrite(ctx context.Context, eventType, correlationID string, payload any) {
	s.invalidate(ctx)
	if s.Events == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		obs.Logger.Error("event_marshal_failed", "event_type", eventType, "error", err)
		return
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: correlationID,
		Payload:       body,
	}
	if err := s.Events.Publish(ctx, env); err != nil {
		obs.Logger.Warn("event_publish_failed", "event_type", eventType, "event_id", env.EventID, "error", err)
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.Views == nil {
		return
	}
	if err := s.Views.InvalidateViews(ctx); err != nil {
		obs.Logger.Warn("view_invalidate_failed", "error", err)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ParsePrice reads a price form value; blank means zero.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, validationf("price %q is not a number", s)
	}
	return d, nil
}
