package httpx

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ariefcatur/assettrack/internal/orders"
	"github.com/go-chi/chi/v5"
)

// confirmReq is what the receiving desk posts. Units come from
// serial_numbers and/or confirmed_items; accessories use quantity instead.
type confirmReq struct {
	ID             int64          `json:"id"`
	OrderID        string         `json:"order_id"`
	ProductID      int64          `json:"product_id"`
	SerialNumbers  []string       `json:"serial_numbers"`
	SerialNumber   string         `json:"serial_number"`
	ConfirmedItems []orders.Unit  `json:"confirmed_items"`
	Quantity       int            `json:"quantity"`
	ItemComment    orders.Comment `json:"item_comment"`
}

func (req confirmReq) toRequest() orders.ConfirmRequest {
	out := orders.ConfirmRequest{
		Target:      orders.ConfirmTarget{RowID: req.ID, OrderID: req.OrderID, ProductID: req.ProductID},
		Quantity:    req.Quantity,
		ItemComment: req.ItemComment,
	}
	// first position of each serial from serial_number(s)
	pos := map[string]int{}
	addSerial := func(s string) {
		if k := serialKey(s); k != "" {
			if _, ok := pos[k]; !ok {
				pos[k] = len(out.Units)
			}
		}
		out.Units = append(out.Units, orders.Unit{SerialNumber: s})
	}
	if req.SerialNumber != "" {
		addSerial(req.SerialNumber)
	}
	for _, s := range req.SerialNumbers {
		addSerial(s)
	}

	// a confirmed_items entry naming a listed serial only adds its comment
	for _, u := range req.ConfirmedItems {
		k := serialKey(u.SerialNumber)
		if i, ok := pos[k]; ok && k != "" {
			if out.Units[i].ItemComment.IsZero() {
				out.Units[i].ItemComment = u.ItemComment
			}
			delete(pos, k)
			continue
		}
		out.Units = append(out.Units, u)
	}
	return out
}

func serialKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (a *API) confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmReq
	if err := decodeBody(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	res, err := a.Orders.Confirm(r.Context(), req.toRequest())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (a *API) listConfirmed(w http.ResponseWriter, r *http.Request) {
	include, _ := strconv.ParseBool(r.URL.Query().Get("include_deployed"))
	items, err := a.Orders.ListConfirmed(r.Context(), include)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) searchConfirmed(w http.ResponseWriter, r *http.Request) {
	items, err := a.Orders.SearchConfirmed(r.Context(), chi.URLParam(r, "serialNumber"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) listDeployed(w http.ResponseWriter, r *http.Request) {
	items, err := a.Orders.ListDeployed(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) deploy(w http.ResponseWriter, r *http.Request) {
	var in orders.DeployInput
	if err := decodeBody(r, &in); err != nil {
		fail(w, r, err)
		return
	}
	d, err := a.Orders.Deploy(r.Context(), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

type undeployReq struct {
	DeployedItemID int64 `json:"deployed_item_id"`
	ID             int64 `json:"id"`
}

func (a *API) undeploy(w http.ResponseWriter, r *http.Request) {
	var req undeployReq
	if err := decodeBody(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	id := req.DeployedItemID
	if id == 0 {
		id = req.ID
	}
	c, err := a.Orders.Undeploy(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
