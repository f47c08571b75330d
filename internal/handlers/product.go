package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/crypto-vantro/apiserver/internal/services"
	"github.com/crypto-vantro/apiserver/types"
)

// productIDHeader carries the target product id for update and delete.
const productIDHeader = "productId"

// ProductHandler provides HTTP handlers for the caller's catalog.
type ProductHandler struct {
	productService *services.ProductService
}

// NewProductHandler constructs a handler with the provided service.
func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// ProductRouter registers product routes on the given router. Every route
// sits behind the auth guard.
func ProductRouter(r chi.Router, productService *services.ProductService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewProductHandler(productService)

	r.With(authMiddleware).Post("/addproduct", handler.AddProduct)
	r.With(authMiddleware).Put("/updateproduct", handler.UpdateProduct)
	r.With(authMiddleware).Delete("/deleteproduct", handler.DeleteProduct)
	r.With(authMiddleware).Get("/getproduct", handler.GetProducts)
}

// AddProduct creates a product owned by the authenticated subject.
func (h *ProductHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	subjectID, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.productService.Add(r.Context(), types.Product{
		Name:        req.Name,
		Description: req.Description,
		Image:       req.Image,
		Price:       req.Price,
		Amount:      req.Amount,
	}, subjectID)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// UpdateProduct applies a partial update to a product the subject owns. The
// target id travels in the productId header.
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	subjectID, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	productID := strings.TrimSpace(r.Header.Get(productIDHeader))
	if productID == "" {
		writeError(w, http.StatusBadRequest, "productId header is required")
		return
	}

	var patch types.ProductPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := validatePatch(patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.productService.Update(r.Context(), subjectID, productID, patch)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// DeleteProduct removes a product the subject owns and returns the
// confirmation message.
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	subjectID, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	productID := strings.TrimSpace(r.Header.Get(productIDHeader))
	if productID == "" {
		writeError(w, http.StatusBadRequest, "productId header is required")
		return
	}

	confirmation, err := h.productService.Delete(r.Context(), subjectID, productID)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, confirmation)
}

// GetProducts lists the products owned by the authenticated subject.
func (h *ProductHandler) GetProducts(w http.ResponseWriter, r *http.Request) {
	subjectID, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	products, err := h.productService.ListByOwner(r.Context(), subjectID)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

// ProductRequest is the payload for creating a product.
type ProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Price       float64 `json:"price"`
	Amount      int     `json:"amount"`
}

func (req ProductRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(req.Description) == "" {
		return errors.New("description is required")
	}
	if strings.TrimSpace(req.Image) == "" {
		return errors.New("image is required")
	}
	if req.Price < 0 {
		return errors.New("price must not be negative")
	}
	if req.Amount < 0 {
		return errors.New("amount must not be negative")
	}
	return nil
}

func validatePatch(patch types.ProductPatch) error {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return errors.New("name must not be empty")
	}
	if patch.Description != nil && strings.TrimSpace(*patch.Description) == "" {
		return errors.New("description must not be empty")
	}
	if patch.Image != nil && strings.TrimSpace(*patch.Image) == "" {
		return errors.New("image must not be empty")
	}
	if patch.Price != nil && *patch.Price < 0 {
		return errors.New("price must not be negative")
	}
	if patch.Amount != nil && *patch.Amount < 0 {
		return errors.New("amount must not be negative")
	}
	return nil
}
