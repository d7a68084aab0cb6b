package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/medkart/pharma-backend/internal/domain/order"
	"github.com/medkart/pharma-backend/internal/domain/user"
)

type orderItemResponse struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	FreeQuantity int             `json:"free_quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	UserID          string              `json:"user_id"`
	ShippingAddress string              `json:"shipping_address"`
	PaymentMethod   string              `json:"payment_method"`
	Status          string              `json:"status"`
	PaymentStatus   string              `json:"payment_status"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	OrderedAt       time.Time           `json:"ordered_at"`
	Items           []orderItemResponse `json:"items"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemResponse{
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			FreeQuantity: item.FreeQuantity,
			Subtotal:     item.Subtotal,
		})
	}
	return orderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod,
		Status:          string(o.Status),
		PaymentStatus:   string(o.PaymentStatus),
		TotalAmount:     o.TotalAmount,
		OrderedAt:       o.OrderedAt,
		Items:           items,
	}
}

func toOrderListResponse(orders []order.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResponse(&orders[i]))
	}
	return out
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var req struct {
		ShippingAddress string `json:"shipping_address"`
		PaymentMethod   string `json:"payment_method"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.ShippingAddress == "" {
		h.writeError(w, r, http.StatusBadRequest, "shipping address is required")
		return
	}
	if req.PaymentMethod == "" {
		h.writeError(w, r, http.StatusBadRequest, "payment method is required")
		return
	}

	o, err := h.orders.Checkout(r.Context(), order.CheckoutRequest{
		UserID:          claims.UserID,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	orders, err := h.orders.ListByUser(r.Context(), claims.UserID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toOrderListResponse(orders))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	// Customers only see their own orders; hide others behind 404.
	if o.UserID != claims.UserID && claims.Role != string(user.RoleAdmin) {
		h.writeError(w, r, http.StatusNotFound, order.ErrNotFound.Error())
		return
	}
	h.writeJSON(w, r, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) adminListOrders(w http.ResponseWriter, r *http.Request) {
	var status *order.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := order.ParseStatus(raw)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		status = &st
	}

	orders, err := h.orders.List(r.Context(), status)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toOrderListResponse(orders))
}

func (h *Handler) adminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	next, err := order.ParseStatus(req.Status)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), next)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toOrderResponse(o))
}
