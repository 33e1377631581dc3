package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/tienda-labs/storefront/internal/checkout"
	kafkax "github.com/tienda-labs/storefront/internal/kafka"
	"github.com/tienda-labs/storefront/internal/users"
)

// UserDirectory is the profile surface the checkout form needs: personal
// data, shipping address, and the user's registered cards.
type UserDirectory interface {
	InformationByUserID(ctx context.Context, userID int64) (*users.Information, error)
	AddressByUserID(ctx context.Context, userID int64) (*users.Address, error)
	PaymentMethodsByUserID(ctx context.Context, userID int64) ([]users.PaymentMethod, error)
}

type CheckoutHandler struct {
	Users          UserDirectory
	Orchestrator   *checkout.Orchestrator
	ProducerOK     *kafkax.Producer // checkout.confirmed
	ProducerReject *kafkax.Producer // checkout.rejected
	Service        string
}

func (h *CheckoutHandler) Register(r chi.Router) {
	r.Get("/carrito/finalizar", h.form)
	r.Post("/carrito/finalizar", h.finalize)
}

/// form renders the checkout form payload after enforcing the preconditions:
// non-empty cart, logged-in user, complete personal information. Failing a
// precondition routes the user to the view that fixes it.
func (h *CheckoutHandler) form(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	if sess.Cart.IsEmpty() {
		writeError(w, http.StatusConflict, "cart is empty")
		return
	}
	auth, ok := AuthFrom(r.Context())
	if !ok {
		writeRedirect(w, "/credenciales/ingresar")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	info, err := h.Users.InformationByUserID(ctx, auth.UserID)
	if errors.Is(err, users.ErrNotFound) {
		// profile must exist before checkout
		writeRedirect(w, "/perfil/datos")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	addr, err := h.Users.AddressByUserID(ctx, auth.UserID)
	if err != nil && !errors.Is(err, users.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	methods, err := h.Users.PaymentMethodsByUserID(ctx, auth.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	masked := make([]users.PaymentMethod, 0, len(methods))
	for _, m := range methods {
		masked = append(masked, m.Masked())
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"usuario_info":    info,
		"usuario_addr":    addr,
		"billing_methods": masked,
		"carrito":         viewOf(sess.Cart),
	})
}

func (h *CheckoutHandler) finalize(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	auth, ok := AuthFrom(r.Context())
	if !ok {
		writeRedirect(w, "/credenciales/ingresar")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	methodID, err := strconv.ParseInt(r.PostFormValue("metodoPago"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid metodoPago")
		return
	}
	buyer := checkout.Buyer{
		FullName:   r.PostFormValue("fullName"),
		Cedula:     r.PostFormValue("cedula"),
		Label:      r.PostFormValue("label"),
		Line1:      r.PostFormValue("line1"),
		City:       r.PostFormValue("city"),
		State:      r.PostFormValue("state"),
		PostalCode: r.PostFormValue("postalCode"),
		Phone:      r.PostFormValue("phone"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rec, err := h.Orchestrator.Finalize(ctx, auth.UserID, sess.Cart, methodID, buyer)
	if err != nil {
		h.rejected(r, sess.ID, auth.UserID, err)

		var short *checkout.StockShortage
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			writeError(w, http.StatusConflict, "cart is empty")
		case errors.As(err, &short):
			// back to the checkout form, cart intact, with the short product named
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":    short.Error(),
				"shortage": short,
				"redirect": "/carrito/finalizar",
			})
		case errors.Is(err, checkout.ErrPaymentMethodNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, checkout.ErrPaymentDeclined):
			writeJSON(w, http.StatusPaymentRequired, map[string]any{
				"error":    "no se pudo realizar la compra: falta dinero o fallo conexion banco",
				"redirect": "/carrito/finalizar",
			})
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	h.confirmed(r, sess.ID, rec, buyer)
	writeJSON(w, http.StatusOK, rec)
}

func (h *CheckoutHandler) confirmed(r *http.Request, sessionID string, rec *checkout.Record, buyer checkout.Buyer) {
	if h.ProducerOK == nil {
		return
	}
	ev := checkout.Envelope{
		EventID:       uuid.NewString(),
		EventType:     checkout.EventCheckoutConfirmed,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: rec.ID,
		Payload: kafkax.MustMarshal(checkout.ConfirmedPayload{
			CheckoutID: rec.ID,
			UserID:     rec.UserID,
			BuyerName:  buyer.FullName,
			MaskedCard: rec.MaskedCard,
			Lines:      rec.Lines,
			Total:      rec.Total,
		}),
	}
	h.ProducerOK.Publish(checkout.PartitionKey(sessionID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(checkout.EventCheckoutConfirmed)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *CheckoutHandler) rejected(r *http.Request, sessionID string, userID int64, cause error) {
	if h.ProducerReject == nil {
		return
	}
	var short *checkout.StockShortage
	var payload checkout.RejectedPayload
	switch {
	case errors.As(cause, &short):
		payload = checkout.RejectedPayload{UserID: userID, Reason: checkout.ReasonOutOfStock, Shortage: short}
	case errors.Is(cause, checkout.ErrPaymentDeclined):
		payload = checkout.RejectedPayload{UserID: userID, Reason: checkout.ReasonPaymentDeclined}
	default:
		// precondition failures are not settlement rejections
		return
	}
	ev := checkout.Envelope{
		EventID:      uuid.NewString(),
		EventType:    checkout.EventCheckoutRejected,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     h.Service,
		TraceID:      r.Header.Get("X-Request-Id"),
		Payload:      kafkax.MustMarshal(payload),
	}
	h.ProducerReject.Publish(checkout.PartitionKey(sessionID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(checkout.EventCheckoutRejected)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
