package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ariefcatur/assettrack/internal/images"
	"github.com/ariefcatur/assettrack/internal/orders"
	"github.com/ariefcatur/assettrack/internal/reports"
	"github.com/go-chi/chi/v5"
)

// ActivityFeed is implemented by redisx.Cache.
type ActivityFeed interface {
	RecentActivity(ctx context.Context, n int) ([]json.RawMessage, error)
}

// API serves the asset lifecycle endpoints. Images and Activity are optional.
type API struct {
	Orders   *orders.Service
	Reports  *reports.Service
	Images   *images.Store
	Activity ActivityFeed
}

func (a *API) Register(r chi.Router) {
	r.Get("/products", a.listProducts)
	r.Get("/products/{id}", a.getProduct)
	r.Post("/products", a.createProduct)
	r.Put("/products/{id}", a.updateProduct)
	r.Delete("/products/{id}", a.deleteProduct)

	r.Get("/orders", a.listOrders)
	r.Post("/orders", a.createOrder)
	r.Get("/orders/next-id", a.nextOrderID)
	r.Put("/orders/{id}", a.correctOrder)
	r.Delete("/orders/{id}", a.deleteOrder)
	r.Put("/update-order-comment", a.updateOrderComment)

	r.Post("/confirm", a.confirm)
	r.Get("/confirmed-items", a.listConfirmed)
	r.Get("/search-confirmed/{serialNumber}", a.searchConfirmed)

	r.Get("/deployed-items", a.listDeployed)
	r.Post("/deploy-item", a.deploy)
	r.Post("/undeploy-item", a.undeploy)

	r.Get("/inventory-summary", a.inventorySummary)
	r.Get("/comprehensive-orders", a.comprehensiveOrders)
	r.Get("/popular-products", a.popularProducts)
	r.Get("/dashboard", a.dashboard)
	r.Get("/activity", a.activity)
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
		return 0, false
	}
	return id, true
}
