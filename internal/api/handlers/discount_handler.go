package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/merchantkit/voucher-service/internal/models"
	"github.com/merchantkit/voucher-service/internal/service"
)

// --- Request / Response DTOs ---

type DiscountRequest struct {
	Name               string            `json:"name"`
	Description        string            `json:"description,omitempty"`
	Kind               string            `json:"kind"`
	Type               string            `json:"type"`
	Value              decimal.Decimal   `json:"value"`
	Scope              string            `json:"scope,omitempty"`
	Code               string            `json:"code,omitempty"`
	MinOrderAmount     *decimal.Decimal  `json:"min_order_amount,omitempty"`
	MinQuantity        *int              `json:"min_quantity,omitempty"`
	UsageLimit         *int              `json:"usage_limit,omitempty"`
	MaxUsesPerCustomer *int              `json:"max_uses_per_customer,omitempty"`
	SingleUse          bool              `json:"single_use,omitempty"`
	StartsAt           *time.Time        `json:"starts_at,omitempty"`
	EndsAt             *time.Time        `json:"ends_at,omitempty"`
	IsActive           *bool             `json:"is_active,omitempty"`
	ProductIDs         []string          `json:"product_ids,omitempty"`
	CollectionIDs      []string          `json:"collection_ids,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

func (req *DiscountRequest) toInput() service.DiscountInput {
	scope := models.DiscountScope(req.Scope)
	if req.Scope == "" {
		scope = models.ScopeEntireOrder
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return service.DiscountInput{
		Name:               req.Name,
		Description:        req.Description,
		Kind:               models.DiscountKind(req.Kind),
		Type:               models.DiscountType(req.Type),
		Value:              req.Value,
		Scope:              scope,
		Code:               req.Code,
		MinOrderAmount:     req.MinOrderAmount,
		MinQuantity:        req.MinQuantity,
		UsageLimit:         req.UsageLimit,
		MaxUsesPerCustomer: req.MaxUsesPerCustomer,
		SingleUse:          req.SingleUse,
		StartsAt:           req.StartsAt,
		EndsAt:             req.EndsAt,
		IsActive:           active,
		ProductIDs:         req.ProductIDs,
		CollectionIDs:      req.CollectionIDs,
		Metadata:           models.Metadata(req.Metadata),
	}
}

type DiscountResponse struct {
	Discount *models.Discount    `json:"discount"`
	Code     *models.VoucherCode `json:"code,omitempty"`
}

type GenerateCodesRequest struct {
	Quantity   int    `json:"quantity"`
	Prefix     string `json:"prefix,omitempty"`
	UsageLimit *int   `json:"usage_limit,omitempty"`
}

// --- Handler ---

type DiscountHandler struct {
	svc    *service.DiscountService
	logger *slog.Logger
}

func NewDiscountHandler(svc *service.DiscountService, logger *slog.Logger) *DiscountHandler {
	return &DiscountHandler{svc: svc, logger: logger}
}

// Create handles POST /discounts
func (h *DiscountHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	var req DiscountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	d, code, err := h.svc.Create(r.Context(), tenantID, req.toInput())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, DiscountResponse{Discount: d, Code: code})
}

// List handles GET /discounts
func (h *DiscountHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	out, err := h.svc.List(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"discounts": out})
}

// Get handles GET /discounts/{discountID}
func (h *DiscountHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, chi.URLParam(r, "discountID"))
	if !ok {
		return
	}
	d, err := h.svc.Get(r.Context(), tenantID, id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, DiscountResponse{Discount: d})
}

// Update handles PUT /discounts/{discountID}
func (h *DiscountHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, chi.URLParam(r, "discountID"))
	if !ok {
		return
	}
	var req DiscountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	d, err := h.svc.Update(r.Context(), tenantID, id, req.toInput())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, DiscountResponse{Discount: d})
}

// Delete handles DELETE /discounts/{discountID}
func (h *DiscountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, chi.URLParam(r, "discountID"))
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), tenantID, id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "discount_deleted"})
}

// Toggle handles POST /discounts/{discountID}/toggle
func (h *DiscountHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, chi.URLParam(r, "discountID"))
	if !ok {
		return
	}
	active, err := h.svc.ToggleActive(r.Context(), tenantID, id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"is_active": active})
}

// Duplicate handles POST /discounts/{discountID}/duplicate
func (h *DiscountHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, chi.URLParam(r, "discountID"))
	if !ok {
		return
	}
	d, code, err := h.svc.Duplicate(r.Context(), tenantID, id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, DiscountResponse{Discount: d, Code: code})
}

// GenerateCodes handles POST /discounts/{discountID}/codes/generate
func (h *DiscountHandler) GenerateCodes(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, chi.URLParam(r, "discountID"))
	if !ok {
		return
	}
	var req GenerateCodesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	codes, err := h.svc.GenerateCodes(r.Context(), tenantID, id, req.Quantity, req.Prefix, req.UsageLimit)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"codes": codes})
}

// ListCodes handles GET /discounts/{discountID}/codes
func (h *DiscountHandler) ListCodes(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, chi.URLParam(r, "discountID"))
	if !ok {
		return
	}
	codes, err := h.svc.ListCodes(r.Context(), tenantID, id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"codes": codes})
}

// DeactivateCode handles POST /codes/{codeID}/deactivate
func (h *DiscountHandler) DeactivateCode(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, chi.URLParam(r, "codeID"))
	if !ok {
		return
	}
	if err := h.svc.DeactivateCode(r.Context(), tenantID, id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "code_deactivated"})
}
