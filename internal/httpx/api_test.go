package httpx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ariefcatur/assettrack/internal/images"
	"github.com/ariefcatur/assettrack/internal/orders"
	"github.com/ariefcatur/assettrack/internal/reports"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := orders.NewMemoryStore()
	dir := t.TempDir()
	api := &API{
		Orders:  &orders.Service{Store: store, ServiceName: "test"},
		Reports: &reports.Service{Source: store},
		Images:  &images.Store{Dir: dir},
	}
	r := NewRouter([]string{"http://localhost:3000"})
	api.Register(r)
	MountImages(r, dir)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func expect(t *testing.T, resp *http.Response, body []byte, status int) {
	t.Helper()
	if resp.StatusCode != status {
		t.Fatalf("%s %s: status %d, want %d: %s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, status, body)
	}
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, body := do(t, srv, http.MethodGet, "/healthz", nil)
	expect(t, resp, body, http.StatusOK)
	if string(body) != "ok" {
		t.Fatalf("body = %q", body)
	}
}

func TestLifecycleEndToEnd(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, srv, http.MethodPost, "/products", map[string]any{"name": "Laptop", "category": "Notebooks", "price": "1499.50"})
	expect(t, resp, body, http.StatusCreated)
	product := decode[orders.Product](t, body)

	resp, body = do(t, srv, http.MethodPost, "/orders", map[string]any{
		"product_id": product.ID,
		"quantity":   3,
		"order_date": "2024-01-15",
		"ordered_by": "it-desk",
		"comment":    map[string]any{"po": "PO-77"},
	})
	expect(t, resp, body, http.StatusCreated)
	created := decode[struct {
		OrderID string         `json:"order_id"`
		Orders  []orders.Order `json:"orders"`
	}](t, body)
	if created.OrderID != "1" || len(created.Orders) != 1 {
		t.Fatalf("created = %+v", created)
	}

	resp, body = do(t, srv, http.MethodPost, "/confirm", map[string]any{
		"order_id":       created.OrderID,
		"product_id":     product.ID,
		"serial_numbers": []string{"SN-1"},
		"item_comment":   "boxed",
	})
	expect(t, resp, body, http.StatusCreated)
	confirmed := decode[orders.ConfirmResult](t, body)
	if confirmed.Order.Quantity != 2 || confirmed.Order.ConfirmedQuantity != 1 {
		t.Fatalf("after confirm: %+v", confirmed.Order)
	}
	if len(confirmed.Items) != 1 || *confirmed.Items[0].SerialNumber != "SN-1" || confirmed.Items[0].ItemComment.Text != "boxed" {
		t.Fatalf("confirmed items = %+v", confirmed.Items)
	}

	resp, body = do(t, srv, http.MethodPost, "/deploy-item", map[string]any{
		"confirmed_item_id":   confirmed.Items[0].ID,
		"deployed_by":         "alice",
		"deployment_location": "HQ",
	})
	expect(t, resp, body, http.StatusCreated)
	deployed := decode[orders.DeployedItem](t, body)
	if *deployed.SerialNumber != "SN-1" || deployed.DeploymentLocation != "HQ" || deployed.DeployedBy != "alice" {
		t.Fatalf("deployed = %+v", deployed)
	}

	resp, body = do(t, srv, http.MethodPost, "/deploy-item", map[string]any{
		"confirmed_item_id":   confirmed.Items[0].ID,
		"deployed_by":         "alice",
		"deployment_location": "HQ",
	})
	expect(t, resp, body, http.StatusConflict)
	if e := decode[errorResponse](t, body); e.Code != "CONFLICT" || e.RequestID == "" {
		t.Fatalf("error body = %+v", e)
	}

	resp, body = do(t, srv, http.MethodGet, "/confirmed-items", nil)
	expect(t, resp, body, http.StatusOK)
	if items := decode[[]orders.ConfirmedItem](t, body); len(items) != 0 {
		t.Fatalf("deployed unit still listed as in stock: %+v", items)
	}

	resp, body = do(t, srv, http.MethodGet, "/inventory-summary", nil)
	expect(t, resp, body, http.StatusOK)
	summary := decode[[]reports.ProductSummary](t, body)
	if len(summary) != 1 || summary[0].TotalOrdered != 3 || summary[0].InStock != 0 || summary[0].TotalDeployed != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	resp, body = do(t, srv, http.MethodPost, "/undeploy-item", map[string]any{"deployed_item_id": deployed.ID})
	expect(t, resp, body, http.StatusOK)
	back := decode[orders.ConfirmedItem](t, body)
	if *back.SerialNumber != "SN-1" || back.Deployed {
		t.Fatalf("undeployed = %+v", back)
	}

	resp, body = do(t, srv, http.MethodGet, "/search-confirmed/sn-", nil)
	expect(t, resp, body, http.StatusOK)
	if found := decode[[]orders.ConfirmedItem](t, body); len(found) != 1 {
		t.Fatalf("search = %+v", found)
	}

	resp, body = do(t, srv, http.MethodGet, "/comprehensive-orders", nil)
	expect(t, resp, body, http.StatusOK)
	groups := decode[[]reports.OrderGroup](t, body)
	if len(groups) != 1 || groups[0].Remaining != 2 || groups[0].ConfirmedRemaining != 1 || groups[0].Deployed != 0 {
		t.Fatalf("groups = %+v", groups)
	}
	if groups[0].Comment.Fields["po"] != "PO-77" {
		t.Fatalf("basket comment = %+v", groups[0].Comment)
	}
}

func TestErrorStatuses(t *testing.T) {
	srv := newTestServer(t)
	resp, body := do(t, srv, http.MethodPost, "/products", map[string]any{"name": "Dock", "category": "Docks"})
	expect(t, resp, body, http.StatusCreated)
	product := decode[orders.Product](t, body)

	resp, body = do(t, srv, http.MethodPost, "/orders", map[string]any{"product_id": product.ID, "quantity": 1, "order_date": "2024-02-01"})
	expect(t, resp, body, http.StatusCreated)
	row := decode[struct {
		Orders []orders.Order `json:"orders"`
	}](t, body).Orders[0]

	tests := []struct {
		name, method, path string
		body               any
		status             int
	}{
		{"missing order_date", http.MethodPost, "/orders", map[string]any{"product_id": product.ID, "quantity": 1}, http.StatusBadRequest},
		{"missing quantity", http.MethodPost, "/orders", map[string]any{"product_id": product.ID, "order_date": "2024-02-01"}, http.StatusBadRequest},
		{"unknown product", http.MethodGet, "/products/999", nil, http.StatusNotFound},
		{"bad product id", http.MethodGet, "/products/abc", nil, http.StatusBadRequest},
		{"confirm without serial", http.MethodPost, "/confirm", map[string]any{"id": row.ID}, http.StatusBadRequest},
		{"confirm unknown row", http.MethodPost, "/confirm", map[string]any{"id": 999, "serial_numbers": []string{"X"}}, http.StatusNotFound},
		{"deploy unknown item", http.MethodPost, "/deploy-item", map[string]any{"confirmed_item_id": 999, "deployed_by": "a", "deployment_location": "b"}, http.StatusNotFound},
		{"deploy missing location", http.MethodPost, "/deploy-item", map[string]any{"confirmed_item_id": 1, "deployed_by": "a"}, http.StatusBadRequest},
		{"undeploy unknown", http.MethodPost, "/undeploy-item", map[string]any{"deployed_item_id": 999}, http.StatusNotFound},
		{"search miss", http.MethodGet, "/search-confirmed/nothing", nil, http.StatusNotFound},
		{"bad range", http.MethodGet, "/orders?from=01-02-2024", nil, http.StatusBadRequest},
		{"comment without target", http.MethodPut, "/update-order-comment", map[string]any{"comment": "x"}, http.StatusBadRequest},
		{"delete product in use", http.MethodDelete, fmt.Sprintf("/products/%d", product.ID), nil, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, srv, tt.method, tt.path, tt.body)
			expect(t, resp, body, tt.status)
		})
	}

	// confirm the only unit, then once more
	resp, body = do(t, srv, http.MethodPost, "/confirm", map[string]any{"id": row.ID, "serial_numbers": []string{"D-1"}})
	expect(t, resp, body, http.StatusCreated)
	resp, body = do(t, srv, http.MethodPost, "/confirm", map[string]any{"id": row.ID, "serial_numbers": []string{"D-2"}})
	expect(t, resp, body, http.StatusConflict)
}

func TestConfirmMergesSerialsAndItems(t *testing.T) {
	srv := newTestServer(t)
	resp, body := do(t, srv, http.MethodPost, "/products", map[string]any{"name": "Laptop", "category": "Notebooks"})
	expect(t, resp, body, http.StatusCreated)
	product := decode[orders.Product](t, body)

	resp, body = do(t, srv, http.MethodPost, "/orders", map[string]any{"product_id": product.ID, "quantity": 3, "order_date": "2024-03-01"})
	expect(t, resp, body, http.StatusCreated)
	row := decode[struct {
		Orders []orders.Order `json:"orders"`
	}](t, body).Orders[0]

	// SN-1 appears in both lists; SN-2 only in confirmed_items
	resp, body = do(t, srv, http.MethodPost, "/confirm", map[string]any{
		"id":             row.ID,
		"serial_numbers": []string{"SN-1"},
		"confirmed_items": []map[string]any{
			{"serial_number": "sn-1", "item_comment": "boxed"},
			{"serial_number": "SN-2", "item_comment": "open box"},
		},
	})
	expect(t, resp, body, http.StatusCreated)
	res := decode[orders.ConfirmResult](t, body)
	if len(res.Items) != 2 {
		t.Fatalf("expected 2 units, got %+v", res.Items)
	}
	if *res.Items[0].SerialNumber != "SN-1" || res.Items[0].ItemComment.Text != "boxed" {
		t.Fatalf("first unit = %+v", res.Items[0])
	}
	if *res.Items[1].SerialNumber != "SN-2" || res.Items[1].ItemComment.Text != "open box" {
		t.Fatalf("second unit = %+v", res.Items[1])
	}
	if res.Order.Quantity != 1 || res.Order.ConfirmedQuantity != 2 {
		t.Fatalf("counts = %d / %d", res.Order.Quantity, res.Order.ConfirmedQuantity)
	}

	// a serial repeated within serial_numbers is still rejected
	resp, body = do(t, srv, http.MethodPost, "/confirm", map[string]any{"id": row.ID, "serial_numbers": []string{"SN-9", "sn-9"}})
	expect(t, resp, body, http.StatusConflict)
}

func TestConfirmAccessoryQuantityTooLarge(t *testing.T) {
	srv := newTestServer(t)
	resp, body := do(t, srv, http.MethodPost, "/products", map[string]any{"name": "Cable", "category": "Accessories"})
	expect(t, resp, body, http.StatusCreated)
	product := decode[orders.Product](t, body)

	resp, body = do(t, srv, http.MethodPost, "/orders", map[string]any{"product_id": product.ID, "quantity": 2, "order_date": "2024-03-01"})
	expect(t, resp, body, http.StatusCreated)
	row := decode[struct {
		Orders []orders.Order `json:"orders"`
	}](t, body).Orders[0]

	resp, body = do(t, srv, http.MethodPost, "/confirm", map[string]any{"id": row.ID, "quantity": int64(1) << 50})
	expect(t, resp, body, http.StatusConflict)
	if e := decode[map[string]any](t, body); e["code"] != "CONFLICT" {
		t.Fatalf("error body = %s", body)
	}
}

func TestOrderBasketAndComments(t *testing.T) {
	srv := newTestServer(t)
	resp, body := do(t, srv, http.MethodPost, "/products", map[string]any{"name": "Mouse", "category": "Accessories"})
	expect(t, resp, body, http.StatusCreated)
	mouse := decode[orders.Product](t, body)

	resp, body = do(t, srv, http.MethodGet, "/orders/next-id", nil)
	expect(t, resp, body, http.StatusOK)
	if next := decode[map[string]string](t, body)["order_id"]; next != "1" {
		t.Fatalf("next id = %q", next)
	}

	resp, body = do(t, srv, http.MethodPost, "/orders", map[string]any{
		"order_id":   "ORD041",
		"order_date": "2024-03-01T08:30:00Z",
		"items": []map[string]any{
			{"product_id": mouse.ID, "quantity": 10},
			{"product_id": mouse.ID, "quantity": 5, "item_comment": "left-handed"},
		},
	})
	expect(t, resp, body, http.StatusCreated)
	rows := decode[struct {
		Orders []orders.Order `json:"orders"`
	}](t, body).Orders
	if len(rows) != 2 || rows[0].OrderDate != "2024-03-01" {
		t.Fatalf("rows = %+v", rows)
	}

	resp, body = do(t, srv, http.MethodGet, "/orders/next-id", nil)
	expect(t, resp, body, http.StatusOK)
	if next := decode[map[string]string](t, body)["order_id"]; next != "ORD042" {
		t.Fatalf("next id = %q", next)
	}

	resp, body = do(t, srv, http.MethodPut, "/update-order-comment", map[string]any{"order_id": "ORD041", "comment": `{"ticket":"IT-9"}`})
	expect(t, resp, body, http.StatusOK)
	if n := decode[map[string]any](t, body)["updated"]; n != float64(2) {
		t.Fatalf("updated = %v", n)
	}
	resp, body = do(t, srv, http.MethodPut, "/update-order-comment", map[string]any{"id": rows[0].ID, "item_comment": "desk 4"})
	expect(t, resp, body, http.StatusOK)
	o := decode[orders.Order](t, body)
	if o.Comment.Fields["ticket"] != "IT-9" || o.ItemComment.Text != "desk 4" {
		t.Fatalf("comments = %+v / %+v", o.Comment, o.ItemComment)
	}

	// accessories confirm by count
	resp, body = do(t, srv, http.MethodPost, "/confirm", map[string]any{"id": rows[0].ID, "quantity": 3})
	expect(t, resp, body, http.StatusCreated)
	if res := decode[orders.ConfirmResult](t, body); len(res.Items) != 3 || res.Order.Quantity != 7 {
		t.Fatalf("accessory confirm = %+v", res)
	}

	resp, body = do(t, srv, http.MethodPut, fmt.Sprintf("/orders/%d", rows[1].ID), map[string]any{"quantity": 4})
	expect(t, resp, body, http.StatusOK)
	resp, body = do(t, srv, http.MethodDelete, fmt.Sprintf("/orders/%d", rows[1].ID), nil)
	expect(t, resp, body, http.StatusOK)
	resp, body = do(t, srv, http.MethodDelete, fmt.Sprintf("/orders/%d", rows[0].ID), nil)
	expect(t, resp, body, http.StatusConflict)

	resp, body = do(t, srv, http.MethodGet, "/orders?from=2024-03-01&to=2024-03-01", nil)
	expect(t, resp, body, http.StatusOK)
	if list := decode[[]orders.Order](t, body); len(list) != 1 {
		t.Fatalf("orders in range = %d", len(list))
	}

	resp, body = do(t, srv, http.MethodGet, "/popular-products", nil)
	expect(t, resp, body, http.StatusOK)
	resp, body = do(t, srv, http.MethodGet, "/dashboard", nil)
	expect(t, resp, body, http.StatusOK)
	if db := decode[reports.Dashboard](t, body); db.Totals.InStock != 3 {
		t.Fatalf("dashboard = %+v", db)
	}
	resp, body = do(t, srv, http.MethodGet, "/activity", nil)
	expect(t, resp, body, http.StatusOK)
	if strings.TrimSpace(string(body)) != "[]" {
		t.Fatalf("activity without redis = %s", body)
	}
}

func TestProductMultipartUpload(t *testing.T) {
	srv := newTestServer(t)

	var img bytes.Buffer
	if err := png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 1000, 500))); err != nil {
		t.Fatal(err)
	}
	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	_ = mw.WriteField("name", "Monitor")
	_ = mw.WriteField("category", "Monitors")
	_ = mw.WriteField("price", "249.99")
	fw, err := mw.CreateFormFile("image", "monitor.png")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write(img.Bytes())
	_ = mw.Close()

	resp, err := http.Post(srv.URL+"/products", mw.FormDataContentType(), &form)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var p orders.Product
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(p.ImageRef, "/images/") || p.Price.String() != "249.99" {
		t.Fatalf("product = %+v", p)
	}

	imgResp, err := http.Get(srv.URL + p.ImageRef)
	if err != nil {
		t.Fatal(err)
	}
	defer imgResp.Body.Close()
	if imgResp.StatusCode != http.StatusOK {
		t.Fatalf("image status = %d", imgResp.StatusCode)
	}
	cfg, _, err := image.DecodeConfig(imgResp.Body)
	if err != nil || cfg.Width != images.MaxWidth {
		t.Fatalf("served image = %+v, %v", cfg, err)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)
	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/orders", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent || resp.Header.Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("preflight = %d %v", resp.StatusCode, resp.Header)
	}

	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.Header.Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("foreign origin allowed")
	}
}
