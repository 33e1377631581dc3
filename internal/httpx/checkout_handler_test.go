package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tienda-labs/storefront/internal/cart"
	"github.com/tienda-labs/storefront/internal/catalog"
	"github.com/tienda-labs/storefront/internal/checkout"
	"github.com/tienda-labs/storefront/internal/session"
	"github.com/tienda-labs/storefront/internal/users"
)

type stubProducts map[int64]*catalog.Product

func (s stubProducts) FindByID(_ context.Context, id int64) (*catalog.Product, error) {
	p, ok := s[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p, nil
}

type stubDirectory struct {
	info    *users.Information
	addr    *users.Address
	methods []users.PaymentMethod
}

func (s stubDirectory) InformationByUserID(context.Context, int64) (*users.Information, error) {
	if s.info == nil {
		return nil, users.ErrNotFound
	}
	return s.info, nil
}

func (s stubDirectory) AddressByUserID(context.Context, int64) (*users.Address, error) {
	if s.addr == nil {
		return nil, users.ErrNotFound
	}
	return s.addr, nil
}

func (s stubDirectory) PaymentMethodsByUserID(context.Context, int64) ([]users.PaymentMethod, error) {
	return s.methods, nil
}

func (s stubDirectory) PaymentMethodByID(_ context.Context, id int64) (*users.PaymentMethod, error) {
	for i := range s.methods {
		if s.methods[i].ID == id {
			return &s.methods[i], nil
		}
	}
	return nil, users.ErrNotFound
}

// stubSettler applies the all-or-nothing contract over in-memory counters.
type stubSettler struct {
	balance decimal.Decimal
	stock   map[int64]int
}

func (s *stubSettler) Settle(_ context.Context, _ *users.PaymentMethod, total decimal.Decimal, lines []cart.Line) error {
	if s.balance.LessThan(total) {
		return checkout.ErrPaymentDeclined
	}
	for _, l := range lines {
		if s.stock[l.ProductID] < l.Quantity {
			return &checkout.StockShortage{ProductID: l.ProductID, Name: l.Name, Requested: l.Quantity, Available: s.stock[l.ProductID]}
		}
	}
	s.balance = s.balance.Sub(total)
	for _, l := range lines {
		s.stock[l.ProductID] -= l.Quantity
	}
	return nil
}

type checkoutFixture struct {
	router  *chi.Mux
	store   *session.Store
	settler *stubSettler
}

func newCheckoutFixture(balance string, stock int) *checkoutFixture {
	store := session.NewStore(memKV{})
	dir := stubDirectory{
		info: &users.Information{UserID: 42, FullName: "Ana Lopez", Cedula: "1-2345-6789"},
		addr: &users.Address{UserID: 42, Line1: "Calle 1", City: "San Jose"},
		methods: []users.PaymentMethod{
			{ID: 5, UserID: 42, CardNumber: "4111111111111111", Brand: "Visa", ExpMonth: 12, ExpYear: 2028},
		},
	}
	settler := &stubSettler{
		balance: decimal.RequireFromString(balance),
		stock:   map[int64]int{1: stock},
	}
	o := &checkout.Orchestrator{
		Catalog: stubProducts{
			1: {ID: 1, Name: "Widget", UnitPrice: decimal.RequireFromString("10.00"), StockQuantity: stock, Active: true},
		},
		Methods: dir,
		Settler: settler,
	}

	r := chi.NewRouter()
	r.Use(WithSession(store))
	h := &CheckoutHandler{Users: dir, Orchestrator: o, Service: "test"}
	h.Register(r)
	return &checkoutFixture{router: r, store: store, settler: settler}
}

// seedSession plants a session with a logged-in user and a stocked cart,
// returning the cookie the requests must carry.
func (f *checkoutFixture) seedSession(t *testing.T, qty int) *http.Cookie {
	t.Helper()
	sess := f.store.New()
	sess.UserID = 42
	if qty > 0 {
		sess.Cart.AddOrIncrement(1, "Widget", decimal.RequireFromString("10.00"), qty)
	}
	require.NoError(t, f.store.Save(context.Background(), sess))
	return &http.Cookie{Name: "sid", Value: sess.ID}
}

func TestCheckoutForm_EmptyCart(t *testing.T) {
	f := newCheckoutFixture("100.00", 5)
	cookie := f.seedSession(t, 0)

	req := httptest.NewRequest(http.MethodGet, "/carrito/finalizar", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCheckoutForm_AnonymousRedirectedToLogin(t *testing.T) {
	f := newCheckoutFixture("100.00", 5)

	sess := f.store.New()
	sess.Cart.AddOrIncrement(1, "Widget", decimal.RequireFromString("10.00"), 1)
	require.NoError(t, f.store.Save(context.Background(), sess))

	req := httptest.NewRequest(http.MethodGet, "/carrito/finalizar", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: sess.ID})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Body.String(), "/credenciales/ingresar")
}

func TestCheckoutForm_MasksBillingMethods(t *testing.T) {
	f := newCheckoutFixture("100.00", 5)
	cookie := f.seedSession(t, 1)

	req := httptest.NewRequest(http.MethodGet, "/carrito/finalizar", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "41**********1111")
	assert.NotContains(t, rec.Body.String(), "4111111111111111", "raw card number must not render")
}

func TestFinalize_Success(t *testing.T) {
	f := newCheckoutFixture("100.00", 5)
	cookie := f.seedSession(t, 2)

	rec := postForm(t, f.router, "/carrito/finalizar", url.Values{
		"metodoPago": {"5"},
		"fullName":   {"Ana Lopez"},
		"cedula":     {"1-2345-6789"},
		"line1":      {"Calle 1"},
		"city":       {"San Jose"},
	}, []*http.Cookie{cookie})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got checkout.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, checkout.StatusConfirmed, got.Status)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("20.00")))
	assert.Equal(t, "41**********1111", got.MaskedCard)

	assert.True(t, f.settler.balance.Equal(decimal.RequireFromString("80.00")))
	assert.Equal(t, 3, f.settler.stock[1])

	sess, err := f.store.Load(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.True(t, sess.Cart.IsEmpty(), "cart cleared and saved after checkout")
}

func TestFinalize_InsufficientFunds(t *testing.T) {
	f := newCheckoutFixture("5.00", 5)
	cookie := f.seedSession(t, 2)

	rec := postForm(t, f.router, "/carrito/finalizar", url.Values{
		"metodoPago": {"5"},
	}, []*http.Cookie{cookie})

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, 5, f.settler.stock[1], "stock untouched on declined payment")

	sess, err := f.store.Load(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, 2, sess.Cart.Quantity(1), "cart survives the failure")
}

func TestFinalize_StockShortageNamesProduct(t *testing.T) {
	f := newCheckoutFixture("100.00", 2)
	cookie := f.seedSession(t, 2)
	// simulate another checkout draining the shared counter after the cart
	// was filled
	f.settler.stock[1] = 1

	rec := postForm(t, f.router, "/carrito/finalizar", url.Values{
		"metodoPago": {"5"},
	}, []*http.Cookie{cookie})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Widget")
	assert.Contains(t, rec.Body.String(), `"available":1`)
	assert.True(t, f.settler.balance.Equal(decimal.RequireFromString("100.00")), "ledger debit rolled back")
}

func TestFinalize_UnknownPaymentMethod(t *testing.T) {
	f := newCheckoutFixture("100.00", 5)
	cookie := f.seedSession(t, 1)

	rec := postForm(t, f.router, "/carrito/finalizar", url.Values{
		"metodoPago": {"99"},
	}, []*http.Cookie{cookie})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
