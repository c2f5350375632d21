// Package reports derives the read-only aggregation views from a snapshot of
// the four stores. Every function here is pure.
package reports

import (
	"sort"
	"strings"
	"time"

	"github.com/ariefcatur/assettrack/internal/orders"
)

const (
	LineOrder    = "order"
	LineDeployed = "deployed"
)

type ProductSummary struct {
	ProductID     int64  `json:"product_id"`
	Name          string `json:"name"`
	Category      string `json:"category"`
	TotalOrdered  int    `json:"total_ordered"`
	InStock       int    `json:"in_stock"`
	TotalDeployed int    `json:"total_deployed"`
}

// InventorySummary reports, per catalog product, everything ever ordered
// (remaining + confirmed), units confirmed but not deployed, and units deployed.
func InventorySummary(s orders.Snapshot) []ProductSummary {
	idx := map[int64]*ProductSummary{}
	out := make([]*ProductSummary, 0, len(s.Products))
	get := func(id int64, name, category string) *ProductSummary {
		if ps, ok := idx[id]; ok {
			return ps
		}
		ps := &ProductSummary{ProductID: id, Name: name, Category: category}
		idx[id] = ps
		out = append(out, ps)
		return ps
	}
	for _, p := range s.Products {
		get(p.ID, p.Name, p.Category)
	}
	for _, o := range s.Orders {
		get(o.ProductID, o.ProductName, o.Category).TotalOrdered += o.Quantity + o.ConfirmedQuantity
	}
	for _, c := range s.Confirmed {
		if !c.Deployed {
			get(c.ProductID, c.ProductName, c.Category).InStock++
		}
	}
	for _, d := range s.Deployed {
		get(d.ProductID, d.ProductName, d.Category).TotalDeployed++
	}

	res := make([]ProductSummary, len(out))
	for i, ps := range out {
		res[i] = *ps
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ProductID < res[j].ProductID })
	return res
}

// OrderLine is one row of a comprehensive order group: either an order
// ledger row or a deployed unit that came from the basket.
type OrderLine struct {
	Status      string         `json:"status"`
	ID          int64          `json:"id"`
	ProductID   int64          `json:"product_id"`
	ProductName string         `json:"product_name"`
	Category    string         `json:"category"`
	ItemComment orders.Comment `json:"item_comment"`

	// counters are zero on deployed lines
	Remaining          int `json:"remaining"`
	ConfirmedQuantity  int `json:"confirmed_quantity"`
	ConfirmedRemaining int `json:"confirmed_remaining"`
	Deployed           int `json:"deployed"`

	// deployed lines
	SerialNumber       *string    `json:"serial_number,omitempty"`
	DeployedBy         string     `json:"deployed_by,omitempty"`
	DeploymentLocation string     `json:"deployment_location,omitempty"`
	DeployedAt         *time.Time `json:"deployed_at,omitempty"`
}

type OrderGroup struct {
	OrderID            string         `json:"order_id"`
	OrderDate          string         `json:"order_date"`
	OrderedBy          string         `json:"ordered_by"`
	Comment            orders.Comment `json:"comment"`
	Remaining          int            `json:"remaining"`
	ConfirmedRemaining int            `json:"confirmed_remaining"`
	Deployed           int            `json:"deployed"`
	Lines              []OrderLine    `json:"items"`
}

// ComprehensiveOrders groups order rows and deployed units by order_id.
// Per row, confirmed_remaining = max(0, confirmed_quantity - deployed units
// that came from that row). Groups sort by order_date, then order_id, newest
// first. from/to restrict on order_date and may be empty.
func ComprehensiveOrders(s orders.Snapshot, from, to string) []OrderGroup {
	rowOf := make(map[int64]int64, len(s.Confirmed)) // confirmed item -> order row
	for _, c := range s.Confirmed {
		rowOf[c.ID] = c.OrderRowID
	}
	deployedPerRow := map[int64]int{}
	for _, d := range s.Deployed {
		deployedPerRow[rowOf[d.ConfirmedItemID]]++
	}

	rows := orders.FilterByDate(s.Orders, from, to)
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	groups := map[string]*OrderGroup{}
	var keys []string
	for _, o := range rows {
		g, ok := groups[o.OrderID]
		if !ok {
			g = &OrderGroup{OrderID: o.OrderID, OrderDate: o.OrderDate, OrderedBy: o.OrderedBy, Comment: o.Comment}
			groups[o.OrderID] = g
			keys = append(keys, o.OrderID)
		}
		dep := deployedPerRow[o.ID]
		line := OrderLine{
			Status:             LineOrder,
			ID:                 o.ID,
			ProductID:          o.ProductID,
			ProductName:        o.ProductName,
			Category:           o.Category,
			ItemComment:        o.ItemComment,
			Remaining:          o.Quantity,
			ConfirmedQuantity:  o.ConfirmedQuantity,
			ConfirmedRemaining: max(0, o.ConfirmedQuantity-dep),
			Deployed:           dep,
		}
		g.Lines = append(g.Lines, line)
		g.Remaining += line.Remaining
		g.ConfirmedRemaining += line.ConfirmedRemaining
		g.Deployed += line.Deployed
	}

	deployed := append([]orders.DeployedItem(nil), s.Deployed...)
	sort.Slice(deployed, func(i, j int) bool { return deployed[i].ID < deployed[j].ID })
	for _, d := range deployed {
		g, ok := groups[d.OrderID]
		if !ok {
			continue // basket filtered out by date
		}
		at := d.DeployedAt
		g.Lines = append(g.Lines, OrderLine{
			Status:             LineDeployed,
			ID:                 d.ID,
			ProductID:          d.ProductID,
			ProductName:        d.ProductName,
			Category:           d.Category,
			ItemComment:        d.ItemComment,
			SerialNumber:       d.SerialNumber,
			DeployedBy:         d.DeployedBy,
			DeploymentLocation: d.DeploymentLocation,
			DeployedAt:         &at,
		})
	}

	out := make([]OrderGroup, 0, len(keys))
	for _, k := range keys {
		out = append(out, *groups[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OrderDate != out[j].OrderDate {
			return out[i].OrderDate > out[j].OrderDate
		}
		return out[i].OrderID > out[j].OrderID
	})
	return out
}

type ProductPopularity struct {
	ProductID    int64  `json:"product_id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	OrderCount   int    `json:"order_count"`
	UnitsOrdered int    `json:"units_ordered"`
}

// PopularProducts counts order rows per product, most ordered first.
func PopularProducts(s orders.Snapshot) []ProductPopularity {
	idx := map[int64]*ProductPopularity{}
	for _, o := range s.Orders {
		pp, ok := idx[o.ProductID]
		if !ok {
			pp = &ProductPopularity{ProductID: o.ProductID, Name: o.ProductName, Category: o.Category}
			idx[o.ProductID] = pp
		}
		pp.OrderCount++
		pp.UnitsOrdered += o.Quantity + o.ConfirmedQuantity
	}
	out := make([]ProductPopularity, 0, len(idx))
	for _, pp := range idx {
		out = append(out, *pp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderCount != out[j].OrderCount {
			return out[i].OrderCount > out[j].OrderCount
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

type StatusCounts struct {
	Ordered  int `json:"ordered"`
	Pending  int `json:"pending"`
	InStock  int `json:"in_stock"`
	Deployed int `json:"deployed"`
}

type CategoryCounts struct {
	Category string `json:"category"`
	StatusCounts
}

type Dashboard struct {
	Products   int              `json:"products"`
	Orders     int              `json:"orders"`
	Totals     StatusCounts     `json:"totals"`
	Categories []CategoryCounts `json:"categories"`
}

const uncategorized = "Uncategorized"

// BuildDashboard sums unit counts per category. Ordered counts every unit
// ever ordered, pending the units still waiting for confirmation.
func BuildDashboard(s orders.Snapshot) Dashboard {
	cats := map[string]*CategoryCounts{}
	get := func(category string) *CategoryCounts {
		category = strings.TrimSpace(category)
		if category == "" {
			category = uncategorized
		}
		cc, ok := cats[category]
		if !ok {
			cc = &CategoryCounts{Category: category}
			cats[category] = cc
		}
		return cc
	}

	baskets := map[string]bool{}
	for _, o := range s.Orders {
		baskets[o.OrderID] = true
		cc := get(o.Category)
		cc.Ordered += o.Quantity + o.ConfirmedQuantity
		cc.Pending += o.Quantity
	}
	for _, c := range s.Confirmed {
		if !c.Deployed {
			get(c.Category).InStock++
		}
	}
	for _, d := range s.Deployed {
		get(d.Category).Deployed++
	}

	db := Dashboard{Products: len(s.Products), Orders: len(baskets)}
	for _, cc := range cats {
		db.Categories = append(db.Categories, *cc)
		db.Totals.Ordered += cc.Ordered
		db.Totals.Pending += cc.Pending
		db.Totals.InStock += cc.InStock
		db.Totals.Deployed += cc.Deployed
	}
	sort.Slice(db.Categories, func(i, j int) bool { return db.Categories[i].Category < db.Categories[j].Category })
	return db
}
