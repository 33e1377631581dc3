package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tienda-labs/storefront/internal/users"
)

// ProfileStore is the user directory slice behind the profile pages.
type ProfileStore interface {
	InformationByUserID(ctx context.Context, userID int64) (*users.Information, error)
	SaveInformation(ctx context.Context, info *users.Information) error
	AddressByUserID(ctx context.Context, userID int64) (*users.Address, error)
	SaveAddress(ctx context.Context, a *users.Address) error
	PaymentMethodsByUserID(ctx context.Context, userID int64) ([]users.PaymentMethod, error)
	AddPaymentMethod(ctx context.Context, m *users.PaymentMethod) error
	DeletePaymentMethod(ctx context.Context, id, userID int64) error
}

// BankDirectory verifies that a card a user registers actually exists at
// the bank.
type BankDirectory interface {
	Exists(ctx context.Context, cardNumber string) (bool, error)
}

type ProfileHandler struct {
	Users ProfileStore
	Bank  BankDirectory
}

func (h *ProfileHandler) Register(r chi.Router) {
	r.With(RequireAuth).Get("/perfil/datos", h.getProfile)
	r.With(RequireAuth).Post("/perfil/datos", h.saveProfile)
	r.With(RequireAuth).Get("/perfil/tarjetas", h.listCards)
	r.With(RequireAuth).Post("/perfil/tarjetas", h.addCard)
	r.With(RequireAuth).Post("/perfil/tarjetas/eliminar", h.deleteCard)
}

func (h *ProfileHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	auth, _ := AuthFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	info, err := h.Users.InformationByUserID(ctx, auth.UserID)
	if err != nil && !errors.Is(err, users.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	addr, err := h.Users.AddressByUserID(ctx, auth.UserID)
	if err != nil && !errors.Is(err, users.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"usuario_info": info,
		"usuario_addr": addr,
	})
}

// saveProfile upserts personal information and address in one submit, the
// way the profile page posts them.
func (h *ProfileHandler) saveProfile(w http.ResponseWriter, r *http.Request) {
	auth, _ := AuthFrom(r.Context())
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	info := &users.Information{
		UserID:   auth.UserID,
		FullName: r.PostFormValue("fullName"),
		Cedula:   r.PostFormValue("cedula"),
		Phone:    r.PostFormValue("phone"),
	}
	if info.FullName == "" || info.Cedula == "" {
		writeError(w, http.StatusBadRequest, "fullName and cedula required")
		return
	}
	addr := &users.Address{
		UserID:     auth.UserID,
		Label:      r.PostFormValue("label"),
		Line1:      r.PostFormValue("line1"),
		City:       r.PostFormValue("city"),
		State:      r.PostFormValue("state"),
		PostalCode: r.PostFormValue("postalCode"),
		Phone:      r.PostFormValue("addrPhone"),
	}
	if addr.Line1 == "" || addr.City == "" {
		writeError(w, http.StatusBadRequest, "line1 and city required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.SaveInformation(ctx, info); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.Users.SaveAddress(ctx, addr); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"usuario_info": info,
		"usuario_addr": addr,
	})
}

func (h *ProfileHandler) listCards(w http.ResponseWriter, r *http.Request) {
	auth, _ := AuthFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	methods, err := h.Users.PaymentMethodsByUserID(ctx, auth.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	masked := make([]users.PaymentMethod, 0, len(methods))
	for _, m := range methods {
		masked = append(masked, m.Masked())
	}
	writeJSON(w, http.StatusOK, masked)
}

func (h *ProfileHandler) addCard(w http.ResponseWriter, r *http.Request) {
	auth, _ := AuthFrom(r.Context())
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	expMonth, err1 := strconv.Atoi(r.PostFormValue("expMonth"))
	expYear, err2 := strconv.Atoi(r.PostFormValue("expYear"))
	m := &users.PaymentMethod{
		UserID:     auth.UserID,
		CardNumber: r.PostFormValue("cardNumber"),
		Brand:      r.PostFormValue("brand"),
		ExpMonth:   expMonth,
		ExpYear:    expYear,
		NameOnCard: r.PostFormValue("nameOnCard"),
	}
	if m.CardNumber == "" || m.Brand == "" || err1 != nil || err2 != nil ||
		expMonth < 1 || expMonth > 12 {
		writeError(w, http.StatusBadRequest, "invalid card fields")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	known, err := h.Bank.Exists(ctx, m.CardNumber)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !known {
		writeError(w, http.StatusUnprocessableEntity, "card not recognized by the bank")
		return
	}

	if err := h.Users.AddPaymentMethod(ctx, m); err != nil {
		if errors.Is(err, users.ErrDuplicateCard) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, m.Masked())
}

func (h *ProfileHandler) deleteCard(w http.ResponseWriter, r *http.Request) {
	auth, _ := AuthFrom(r.Context())
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	id, err := strconv.ParseInt(r.PostFormValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Users.DeletePaymentMethod(ctx, id, auth.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
