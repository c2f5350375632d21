package httpx

import (
	"net/http"
	"strings"

	"github.com/ariefcatur/assettrack/internal/obs"
	"github.com/ariefcatur/assettrack/internal/orders"
)

const maxMultipartMemory = 10 << 20

func (a *API) listProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := a.Orders.ListProducts(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (a *API) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	p, err := a.Orders.GetProduct(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// productInput reads a product from a multipart form (with optional "image"
// file) or from a JSON body.
func (a *API) productInput(r *http.Request) (orders.ProductInput, error) {
	var in orders.ProductInput
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return in, decodeBody(r, &in)
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return in, invalid("invalid multipart form: %v", err)
	}
	in.Name = r.FormValue("name")
	in.Category = r.FormValue("category")
	price, err := orders.ParsePrice(r.FormValue("price"))
	if err != nil {
		return in, err
	}
	in.Price = price

	file, header, err := r.FormFile("image")
	if err != nil {
		return in, nil // image is optional
	}
	defer file.Close()
	if a.Images == nil {
		return in, invalid("image uploads are disabled")
	}
	ref, err := a.Images.Save(file, header.Filename)
	if err != nil {
		return in, err
	}
	in.ImageRef = ref
	return in, nil
}

func (a *API) createProduct(w http.ResponseWriter, r *http.Request) {
	in, err := a.productInput(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	p, err := a.Orders.CreateProduct(r.Context(), in)
	if err != nil {
		a.discardImage(in.ImageRef)
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	in, err := a.productInput(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var oldRef string
	if in.ImageRef != "" {
		if old, err := a.Orders.GetProduct(r.Context(), id); err == nil {
			oldRef = old.ImageRef
		}
	}
	p, err := a.Orders.UpdateProduct(r.Context(), id, in)
	if err != nil {
		a.discardImage(in.ImageRef)
		fail(w, r, err)
		return
	}
	if oldRef != "" && oldRef != p.ImageRef {
		a.discardImage(oldRef)
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	p, err := a.Orders.GetProduct(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := a.Orders.DeleteProduct(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	a.discardImage(p.ImageRef)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (a *API) discardImage(ref string) {
	if a.Images == nil || ref == "" {
		return
	}
	if err := a.Images.Remove(ref); err != nil {
		obs.Logger.Warn("image_remove_failed", "ref", ref, "error", err)
	}
}
