package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/merchantkit/voucher-service/internal/models"
	"github.com/merchantkit/voucher-service/internal/service"
)

type RedemptionRequestBody struct {
	Code       string          `json:"code"`
	OrderTotal decimal.Decimal `json:"order_total"`
	ItemCount  int             `json:"item_count"`
	CustomerID *string         `json:"customer_id,omitempty"`
	OrderID    *string         `json:"order_id,omitempty"`
}

type RedemptionHandler struct {
	svc    *service.RedemptionService
	logger *slog.Logger
}

func NewRedemptionHandler(svc *service.RedemptionService, logger *slog.Logger) *RedemptionHandler {
	return &RedemptionHandler{svc: svc, logger: logger}
}

func (h *RedemptionHandler) decode(w http.ResponseWriter, r *http.Request) (models.RedemptionRequest, bool) {
	tenantID, ok := tenantFrom(w, r)
	if !ok {
		return models.RedemptionRequest{}, false
	}
	var body RedemptionRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return models.RedemptionRequest{}, false
	}
	if body.Code == "" {
		writeError(w, http.StatusBadRequest, "code required")
		return models.RedemptionRequest{}, false
	}
	return models.RedemptionRequest{
		TenantID:   tenantID,
		Code:       body.Code,
		OrderTotal: body.OrderTotal,
		ItemCount:  body.ItemCount,
		CustomerID: body.CustomerID,
		OrderID:    body.OrderID,
	}, true
}

// Validate handles POST /redemptions/validate. Pure: counters are never
// touched here.
func (h *RedemptionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Validate(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Redeem handles POST /redemptions: validate, then record the usage row and
// counter increments atomically.
func (h *RedemptionHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Redeem(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	status := http.StatusOK
	if res.Valid {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

// ListUsages handles GET /discounts/{discountID}/usages
func (h *RedemptionHandler) ListUsages(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, chi.URLParam(r, "discountID"))
	if !ok {
		return
	}
	usages, err := h.svc.ListUsages(r.Context(), tenantID, id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"usages": usages})
}
