package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ariefcatur/assettrack/internal/redisx"
)

func (a *API) inventorySummary(w http.ResponseWriter, r *http.Request) {
	v, err := a.Reports.InventorySummary(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *API) comprehensiveOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v, err := a.Reports.ComprehensiveOrders(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *API) popularProducts(w http.ResponseWriter, r *http.Request) {
	v, err := a.Reports.PopularProducts(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *API) dashboard(w http.ResponseWriter, r *http.Request) {
	v, err := a.Reports.Dashboard(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// activity returns the projector's feed; without Redis it is always empty.
func (a *API) activity(w http.ResponseWriter, r *http.Request) {
	if a.Activity == nil {
		writeJSON(w, http.StatusOK, []json.RawMessage{})
		return
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = redisx.ActivityLimit
	}
	v, err := a.Activity.RecentActivity(r.Context(), limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
