package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/tienda-labs/storefront/internal/cart"
)

// StockChecker is the slice of the catalog the cart surface needs: the
// stock-aware add refuses to grow a line past what the shelf holds.
type StockChecker interface {
	HasStock(ctx context.Context, id int64, qty int) (bool, error)
}

type CartHandler struct {
	Catalog StockChecker
}

func (h *CartHandler) Register(r chi.Router) {
	r.Get("/carrito", h.view)
	r.Post("/carrito/agregar", h.add)
	r.Post("/carrito/actualizar", h.update)
	r.Post("/carrito/eliminar", h.remove)
	r.Post("/carrito/vaciar", h.clear)
}

type cartView struct {
	Lines []cart.Line     `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

func viewOf(c *cart.Cart) cartView {
	lines := c.Lines
	if lines == nil {
		lines = []cart.Line{}
	}
	return cartView{Lines: lines, Total: c.Total()}
}

func (h *CartHandler) view(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	writeJSON(w, http.StatusOK, viewOf(sess.Cart))
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	id, err := strconv.ParseInt(r.PostFormValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid id")
		return
	}
	nombre := r.PostFormValue("nombre")
	precio, err := decimal.NewFromString(r.PostFormValue("precio"))
	if err != nil || precio.IsNegative() {
		writeError(w, http.StatusBadRequest, "missing or invalid precio")
		return
	}
	qty := 1
	if v := r.PostFormValue("cantidad"); v != "" {
		qty, err = strconv.Atoi(v)
		if err != nil || qty < 1 {
			writeError(w, http.StatusBadRequest, "invalid cantidad")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	sess := SessionFrom(r.Context())

	// Check the merged quantity, not just the increment: three clicks on a
	// two-unit product must stop at the shelf.
	wanted := sess.Cart.Quantity(id) + qty
	ok, err := h.Catalog.HasStock(ctx, id, wanted)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, "insufficient stock")
		return
	}

	sess.Cart.AddOrIncrement(id, nombre, precio, qty)
	writeJSON(w, http.StatusOK, viewOf(sess.Cart))
}

func (h *CartHandler) update(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	id, err := strconv.ParseInt(r.PostFormValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid id")
		return
	}
	qty, err := strconv.Atoi(r.PostFormValue("cantidad"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid cantidad")
		return
	}

	sess := SessionFrom(r.Context())
	sess.Cart.SetQuantity(id, qty)
	writeJSON(w, http.StatusOK, viewOf(sess.Cart))
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	id, err := strconv.ParseInt(r.PostFormValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid id")
		return
	}

	sess := SessionFrom(r.Context())
	sess.Cart.Remove(id)
	writeJSON(w, http.StatusOK, viewOf(sess.Cart))
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	sess.Cart.Clear()
	writeJSON(w, http.StatusOK, viewOf(sess.Cart))
}
