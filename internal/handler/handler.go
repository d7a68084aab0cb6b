// Package handler exposes the HTTP API. Handlers decode JSON, delegate to the
// domain services, and map domain errors to status codes; no business rules
// live here.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/medkart/pharma-backend/internal/auth"
	"github.com/medkart/pharma-backend/internal/domain/cart"
	"github.com/medkart/pharma-backend/internal/domain/order"
	"github.com/medkart/pharma-backend/internal/domain/product"
	"github.com/medkart/pharma-backend/internal/domain/user"
	"github.com/medkart/pharma-backend/internal/otp"
)

// Handler wires the domain services to HTTP routes.
type Handler struct {
	products     product.Repository
	carts        *cart.Service
	orders       *order.Service
	registration *user.RegistrationService
	tokens       *auth.Tokens
}

// New constructs a Handler with the required domain dependencies.
func New(
	products product.Repository,
	carts *cart.Service,
	orders *order.Service,
	registration *user.RegistrationService,
	tokens *auth.Tokens,
) *Handler {
	return &Handler{
		products:     products,
		carts:        carts,
		orders:       orders,
		registration: registration,
		tokens:       tokens,
	}
}

// Routes mounts all API routes on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/send-otp", h.sendOTP)
			r.Post("/resend-otp", h.resendOTP)
			r.Post("/verify-otp", h.verifyOTP)
			r.Post("/login", h.login)
		})

		r.Get("/products", h.listProducts)
		r.Get("/products/{id}", h.getProduct)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Get("/cart", h.getCart)
			r.Post("/cart/items", h.addCartItem)
			r.Put("/cart/items/{id}", h.updateCartItem)
			r.Delete("/cart/items/{id}", h.removeCartItem)

			r.Post("/orders", h.checkout)
			r.Get("/orders", h.listOrders)
			r.Get("/orders/{id}", h.getOrder)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.requireAuth, h.requireAdmin)

			r.Get("/orders", h.adminListOrders)
			r.Put("/orders/{id}/status", h.adminUpdateOrderStatus)

			r.Post("/products", h.adminCreateProduct)
			r.Put("/products/{id}", h.adminUpdateProduct)
			r.Delete("/products/{id}", h.adminDeleteProduct)
		})
	})

	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Error("encoding response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.writeJSON(w, r, status, errorResponse{Error: msg})
}

// writeDomainError maps known domain errors to status codes. Unrecognized
// errors become 500 with a generic message; the cause is logged.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		stockErr      *product.InsufficientStockError
		transitionErr *order.InvalidTransitionError
	)
	switch {
	case errors.As(err, &stockErr):
		h.writeError(w, r, http.StatusUnprocessableEntity, stockErr.Error())
	case errors.As(err, &transitionErr):
		h.writeError(w, r, http.StatusConflict, transitionErr.Error())
	case errors.Is(err, order.ErrEmptyCart):
		h.writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, user.ErrNotFound):
		h.writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, cart.ErrNotOwner):
		h.writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, user.ErrEmailInUse):
		h.writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, user.ErrBadCredentials):
		h.writeError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, otp.ErrNoPending),
		errors.Is(err, otp.ErrExpired),
		errors.Is(err, otp.ErrInvalidCode):
		h.writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		zctx.From(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		h.writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, "invalid request body")
	}
	return nil
}
