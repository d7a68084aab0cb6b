package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/medkart/pharma-backend/internal/domain/product"
)

type productResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	BundleOffer   bool            `json:"is_bundle_offer"`
	BundleBuyQty  int             `json:"bundle_buy_quantity,omitempty"`
	BundleFreeQty int             `json:"bundle_free_quantity,omitempty"`
	BundlePrice   decimal.Decimal `json:"bundle_price,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type productRequest struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	BundleOffer   bool            `json:"is_bundle_offer"`
	BundleBuyQty  int             `json:"bundle_buy_quantity"`
	BundleFreeQty int             `json:"bundle_free_quantity"`
	BundlePrice   decimal.Decimal `json:"bundle_price"`
}

func toProductResponse(p product.Product) productResponse {
	return productResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Category:      p.Category,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		BundleOffer:   p.BundleOffer,
		BundleBuyQty:  p.BundleBuyQty,
		BundleFreeQty: p.BundleFreeQty,
		BundlePrice:   p.BundlePrice,
		CreatedAt:     p.CreatedAt,
	}
}

func (r productRequest) toProduct(id string) product.Product {
	return product.Product{
		ID:            id,
		Name:          r.Name,
		Description:   r.Description,
		Category:      r.Category,
		Price:         r.Price,
		StockQuantity: r.StockQuantity,
		BundleOffer:   r.BundleOffer,
		BundleBuyQty:  r.BundleBuyQty,
		BundleFreeQty: r.BundleFreeQty,
		BundlePrice:   r.BundlePrice,
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	filter := product.Filter{
		Category: r.URL.Query().Get("category"),
		Query:    r.URL.Query().Get("q"),
	}

	products, err := h.products.List(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	h.writeJSON(w, r, http.StatusOK, out)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toProductResponse(*p))
}

func (h *Handler) adminCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID == "" || req.Name == "" {
		h.writeError(w, r, http.StatusBadRequest, "id and name are required")
		return
	}

	p := req.toProduct(req.ID)
	if err := p.ValidateBundle(); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.products.Create(r.Context(), &p); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, toProductResponse(p))
}

func (h *Handler) adminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	p := req.toProduct(chi.URLParam(r, "id"))
	if err := p.ValidateBundle(); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.products.Update(r.Context(), &p); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toProductResponse(p))
}

func (h *Handler) adminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
