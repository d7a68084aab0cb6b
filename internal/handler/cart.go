package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/medkart/pharma-backend/internal/domain/cart"
	"github.com/medkart/pharma-backend/internal/domain/product"
)

type cartLineResponse struct {
	ItemID      int64           `json:"item_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	// Charged and FreeQuantity preview the bundle pricing that checkout will
	// apply to this line.
	Charged      decimal.Decimal `json:"charged"`
	FreeQuantity int             `json:"free_quantity"`
}

type cartResponse struct {
	Items []cartLineResponse `json:"items"`
	Total decimal.Decimal    `json:"total"`
}

func toCartResponse(lines []cart.Line) cartResponse {
	out := cartResponse{Items: make([]cartLineResponse, 0, len(lines))}
	total := decimal.Zero
	for _, line := range lines {
		charged, free := product.LinePrice(line.Product, line.Item.Quantity)
		out.Items = append(out.Items, cartLineResponse{
			ItemID:       line.Item.ID,
			ProductID:    line.Product.ID,
			ProductName:  line.Product.Name,
			UnitPrice:    line.Product.Price,
			Quantity:     line.Item.Quantity,
			Charged:      charged,
			FreeQuantity: free,
		})
		total = total.Add(charged)
	}
	out.Total = total.Round(2)
	return out
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	lines, err := h.carts.Lines(r.Context(), claims.UserID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toCartResponse(lines))
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Quantity <= 0 {
		h.writeError(w, r, http.StatusBadRequest, "quantity must be greater than 0")
		return
	}

	if err := h.carts.Add(r.Context(), claims.UserID, req.ProductID, req.Quantity); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	lines, err := h.carts.Lines(r.Context(), claims.UserID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toCartResponse(lines))
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid cart item id")
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Quantity <= 0 {
		h.writeError(w, r, http.StatusBadRequest, "quantity must be greater than 0")
		return
	}

	if err := h.carts.UpdateQuantity(r.Context(), claims.UserID, itemID, req.Quantity); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	lines, err := h.carts.Lines(r.Context(), claims.UserID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toCartResponse(lines))
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid cart item id")
		return
	}

	if err := h.carts.Remove(r.Context(), claims.UserID, itemID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
