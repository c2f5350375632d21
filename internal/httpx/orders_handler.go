package httpx

import (
	"net/http"

	"github.com/ariefcatur/assettrack/internal/orders"
)

// createOrderReq accepts either a single line (product_id, quantity,
// item_comment) or a basket in items.
type createOrderReq struct {
	OrderID     string                  `json:"order_id"`
	OrderDate   string                  `json:"order_date"`
	OrderedBy   string                  `json:"ordered_by"`
	Comment     orders.Comment          `json:"comment"`
	ProductID   int64                   `json:"product_id"`
	Quantity    int                     `json:"quantity"`
	ItemComment orders.Comment          `json:"item_comment"`
	Items       []orders.OrderLineInput `json:"items"`
}

func (a *API) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rows, err := a.Orders.ListOrders(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (a *API) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := decodeBody(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	lines := req.Items
	if len(lines) == 0 && (req.ProductID != 0 || req.Quantity != 0) {
		lines = []orders.OrderLineInput{{ProductID: req.ProductID, Quantity: req.Quantity, ItemComment: req.ItemComment}}
	}
	rows, err := a.Orders.CreateOrder(r.Context(), orders.CreateOrderInput{
		OrderID:   req.OrderID,
		OrderDate: req.OrderDate,
		OrderedBy: req.OrderedBy,
		Comment:   req.Comment,
		Lines:     lines,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"order_id": rows[0].OrderID, "orders": rows})
}

func (a *API) nextOrderID(w http.ResponseWriter, r *http.Request) {
	next, err := a.Orders.NextOrderID(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"order_id": next})
}

func (a *API) correctOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var c orders.OrderCorrection
	if err := decodeBody(r, &c); err != nil {
		fail(w, r, err)
		return
	}
	o, err := a.Orders.CorrectOrder(r.Context(), id, c)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (a *API) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := a.Orders.DeleteOrder(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// updateCommentReq: {order_id, comment} updates the basket comment on every
// row of the order; {id, item_comment} updates one row.
type updateCommentReq struct {
	OrderID     string          `json:"order_id"`
	Comment     *orders.Comment `json:"comment"`
	ID          int64           `json:"id"`
	ItemComment *orders.Comment `json:"item_comment"`
}

func (a *API) updateOrderComment(w http.ResponseWriter, r *http.Request) {
	var req updateCommentReq
	if err := decodeBody(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	switch {
	case req.ID > 0:
		c := req.ItemComment
		if c == nil {
			c = req.Comment
		}
		if c == nil {
			fail(w, r, invalid("item_comment is required"))
			return
		}
		o, err := a.Orders.UpdateItemComment(r.Context(), req.ID, *c)
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	case req.OrderID != "":
		if req.Comment == nil {
			fail(w, r, invalid("comment is required"))
			return
		}
		n, err := a.Orders.UpdateBasketComment(r.Context(), req.OrderID, *req.Comment)
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"order_id": req.OrderID, "updated": n})
	default:
		fail(w, r, invalid("order_id or id is required"))
	}
}
