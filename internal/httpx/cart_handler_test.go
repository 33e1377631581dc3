package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tienda-labs/storefront/internal/session"
)

type memKV map[string]string

func (m memKV) Get(_ context.Context, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", session.ErrMiss
	}
	return v, nil
}

func (m memKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	m[key] = value
	return nil
}

func (m memKV) Del(_ context.Context, key string) error {
	delete(m, key)
	return nil
}

// stubCatalog answers HasStock from a fixed stock table.
type stubCatalog struct {
	stock map[int64]int
}

func (s stubCatalog) HasStock(_ context.Context, id int64, qty int) (bool, error) {
	return s.stock[id] >= qty, nil
}

func newCartRouter(stock map[int64]int) (*chi.Mux, *session.Store) {
	store := session.NewStore(memKV{})
	r := chi.NewRouter()
	r.Use(WithSession(store))
	h := &CartHandler{Catalog: stubCatalog{stock: stock}}
	h.Register(r)
	return r, store
}

func postForm(t *testing.T, r http.Handler, path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCartHandler_AddCreatesSessionAndLine(t *testing.T) {
	r, _ := newCartRouter(map[int64]int{1: 10})

	rec := postForm(t, r, "/carrito/agregar", url.Values{
		"id":     {"1"},
		"nombre": {"Widget"},
		"precio": {"10.00"},
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies, "first contact sets the sid cookie")
	assert.Contains(t, rec.Body.String(), `"quantity":1`)
}

func TestCartHandler_AddTwiceMergesLine(t *testing.T) {
	r, store := newCartRouter(map[int64]int{1: 10})

	first := postForm(t, r, "/carrito/agregar", url.Values{
		"id": {"1"}, "nombre": {"Widget"}, "precio": {"10.00"},
	}, nil)
	require.Equal(t, http.StatusOK, first.Code)
	cookies := first.Result().Cookies()

	second := postForm(t, r, "/carrito/agregar", url.Values{
		"id": {"1"}, "nombre": {"Widget"}, "precio": {"10.00"},
	}, cookies)
	require.Equal(t, http.StatusOK, second.Code)

	sess, err := store.Load(context.Background(), cookies[0].Value)
	require.NoError(t, err)
	require.Len(t, sess.Cart.Lines, 1, "same product merges into one line")
	assert.Equal(t, 2, sess.Cart.Lines[0].Quantity)
	assert.True(t, sess.Cart.Total().Equal(decimal.RequireFromString("20.00")))
}

func TestCartHandler_AddBeyondStockRejected(t *testing.T) {
	r, store := newCartRouter(map[int64]int{1: 2})

	first := postForm(t, r, "/carrito/agregar", url.Values{
		"id": {"1"}, "nombre": {"Widget"}, "precio": {"10.00"}, "cantidad": {"2"},
	}, nil)
	require.Equal(t, http.StatusOK, first.Code)
	cookies := first.Result().Cookies()

	// a third unit exceeds the shelf
	third := postForm(t, r, "/carrito/agregar", url.Values{
		"id": {"1"}, "nombre": {"Widget"}, "precio": {"10.00"},
	}, cookies)
	assert.Equal(t, http.StatusConflict, third.Code)

	sess, err := store.Load(context.Background(), cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, 2, sess.Cart.Quantity(1), "rejected add leaves the cart as it was")
}

func TestCartHandler_UpdateToZeroRemovesLine(t *testing.T) {
	r, store := newCartRouter(map[int64]int{1: 10})

	first := postForm(t, r, "/carrito/agregar", url.Values{
		"id": {"1"}, "nombre": {"Widget"}, "precio": {"10.00"},
	}, nil)
	cookies := first.Result().Cookies()

	rec := postForm(t, r, "/carrito/actualizar", url.Values{
		"id": {"1"}, "cantidad": {"0"},
	}, cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	sess, err := store.Load(context.Background(), cookies[0].Value)
	require.NoError(t, err)
	assert.True(t, sess.Cart.IsEmpty())
}

func TestCartHandler_UpdateUnknownProductIsNoop(t *testing.T) {
	r, store := newCartRouter(map[int64]int{1: 10})

	first := postForm(t, r, "/carrito/agregar", url.Values{
		"id": {"1"}, "nombre": {"Widget"}, "precio": {"10.00"},
	}, nil)
	cookies := first.Result().Cookies()

	rec := postForm(t, r, "/carrito/actualizar", url.Values{
		"id": {"99"}, "cantidad": {"5"},
	}, cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	sess, err := store.Load(context.Background(), cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.Cart.Quantity(1))
}

func TestCartHandler_ClearEmptiesCart(t *testing.T) {
	r, store := newCartRouter(map[int64]int{1: 10, 2: 10})

	first := postForm(t, r, "/carrito/agregar", url.Values{
		"id": {"1"}, "nombre": {"Widget"}, "precio": {"10.00"},
	}, nil)
	cookies := first.Result().Cookies()
	postForm(t, r, "/carrito/agregar", url.Values{
		"id": {"2"}, "nombre": {"Gadget"}, "precio": {"3.25"},
	}, cookies)

	rec := postForm(t, r, "/carrito/vaciar", url.Values{}, cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	sess, err := store.Load(context.Background(), cookies[0].Value)
	require.NoError(t, err)
	assert.True(t, sess.Cart.IsEmpty())
}

func TestCartHandler_ViewEmptyCart(t *testing.T) {
	r, _ := newCartRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/carrito", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"lines":[]`)
	assert.Contains(t, rec.Body.String(), `"total":"0"`)
}

func TestCartHandler_AddRejectsBadInput(t *testing.T) {
	r, _ := newCartRouter(map[int64]int{1: 10})

	rec := postForm(t, r, "/carrito/agregar", url.Values{
		"nombre": {"Widget"}, "precio": {"10.00"},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing id")

	rec = postForm(t, r, "/carrito/agregar", url.Values{
		"id": {"1"}, "nombre": {"Widget"}, "precio": {"-1"},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "negative price")
}
