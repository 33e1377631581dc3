package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tienda-labs/storefront/internal/users"
)

// CredentialStore is the user directory slice that handles login state.
type CredentialStore interface {
	Register(ctx context.Context, email, password string) (*users.Credential, error)
	Authenticate(ctx context.Context, email, password string) (*users.Credential, error)
	Delete(ctx context.Context, userID int64) error
}

type AuthHandler struct {
	Users CredentialStore
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/credenciales/registrar", h.register)
	r.Post("/credenciales/ingresar", h.login)
	r.Post("/credenciales/salir", h.logout)
	r.With(RequireAuth).Post("/credenciales/eliminar", h.deleteAccount)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")
	if email == "" || password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cred, err := h.Users.Register(ctx, email, password)
	if errors.Is(err, users.ErrEmailTaken) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sess := SessionFrom(r.Context())
	sess.UserID = cred.ID
	writeJSON(w, http.StatusCreated, cred)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cred, err := h.Users.Authenticate(ctx, r.PostFormValue("email"), r.PostFormValue("password"))
	if errors.Is(err, users.ErrInvalidLogin) {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sess := SessionFrom(r.Context())
	sess.UserID = cred.ID
	writeJSON(w, http.StatusOK, cred)
}

// logout drops the user reference but keeps the visitor's cart, matching the
// session semantics of the storefront.
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	sess.UserID = 0
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *AuthHandler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	auth, _ := AuthFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Delete(ctx, auth.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sess := SessionFrom(r.Context())
	sess.UserID = 0
	writeJSON(w, http.StatusOK, map[string]string{"status": "account deleted"})
}
