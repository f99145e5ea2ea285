package cart

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/lock"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/voucher"
)

// Handler wires cart services to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type addLinePayload struct {
	VariantID   string  `json:"variantId" validate:"required"`
	Quantity    int     `json:"quantity"`
	ManualPrice *string `json:"manualPrice" validate:"omitempty,numeric"`
}

type updateLinePayload struct {
	Quantity    int     `json:"quantity"`
	ManualPrice *string `json:"manualPrice" validate:"omitempty,numeric"`
}

type promoCodePayload struct {
	Code string `json:"code" validate:"required,max=64"`
}

type shippingPayload struct {
	MethodID string `json:"methodId" validate:"required"`
}

type invalidatePayload struct {
	CartIDs []string `json:"cartIds" validate:"max=1000,dive,required"`
	All     bool     `json:"all"`
}

// Create creates an empty cart for a channel.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload CreateInput
	if err := common.DecodeJSON(r, h.Validate, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	c, err := h.Svc.Create(r.Context(), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": c})
}

// Get returns the cart with fresh totals.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := h.Svc.Totals(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	c, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// Totals returns only the computed totals of the cart.
func (h *Handler) Totals(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	totals, err := h.Svc.Totals(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": totals})
}

// AddLine adds a variant to the cart.
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload addLinePayload
	if err := common.DecodeJSON(r, h.Validate, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	manual, err := parseManualPrice(payload.ManualPrice)
	if err != nil {
		h.writeError(w, err)
		return
	}
	c, err := h.Svc.AddLine(r.Context(), chi.URLParam(r, "id"), payload.VariantID, payload.Quantity, manual)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// UpdateLine changes the quantity or manual price of a line.
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload updateLinePayload
	if err := common.DecodeJSON(r, h.Validate, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	manual, err := parseManualPrice(payload.ManualPrice)
	if err != nil {
		h.writeError(w, err)
		return
	}
	c, err := h.Svc.UpdateLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineId"), payload.Quantity, manual)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// DeleteLine removes a line from the cart.
func (h *Handler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	c, err := h.Svc.DeleteLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// AddPromoCode attaches a voucher code to the cart.
func (h *Handler) AddPromoCode(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload promoCodePayload
	if err := common.DecodeJSON(r, h.Validate, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	c, err := h.Svc.AddPromoCode(r.Context(), chi.URLParam(r, "id"), payload.Code)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// RemovePromoCode detaches the voucher code.
func (h *Handler) RemovePromoCode(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	c, err := h.Svc.RemovePromoCode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// InvalidatePrices forces recalculation of the listed carts, or of every cart
// when all is set, after catalogue prices or rules changed.
func (h *Handler) InvalidatePrices(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload invalidatePayload
	if err := common.DecodeJSON(r, h.Validate, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	var (
		n   int
		err error
	)
	switch {
	case payload.All:
		n, err = h.Svc.InvalidateAllPrices(r.Context())
	case len(payload.CartIDs) > 0:
		n, err = len(payload.CartIDs), h.Svc.InvalidatePrices(r.Context(), payload.CartIDs...)
	default:
		h.writeError(w, fmt.Errorf("cartIds or all is required: %w", ErrInvalidInput))
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]int{"invalidated": n}})
}

// SetShippingMethod selects the shipping method for the cart.
func (h *Handler) SetShippingMethod(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload shippingPayload
	if err := common.DecodeJSON(r, h.Validate, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	c, err := h.Svc.SetShippingMethod(r.Context(), chi.URLParam(r, "id"), payload.MethodID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

func parseManualPrice(raw *string) (*pricing.Money, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	m, err := pricing.ParseExactMoney(*raw)
	if errors.Is(err, pricing.ErrInvalidPrice) {
		return nil, err
	}
	if err != nil {
		return nil, common.NewAppError("BAD_REQUEST", "manualPrice must be a decimal amount", http.StatusBadRequest, err)
	}
	return &m, nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	WriteError(w, err)
}

// WriteError maps cart, pricing and voucher errors onto the API error shape.
func WriteError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	if common.WriteAppError(w, err) {
		return
	}
	switch {
	case errors.Is(err, voucher.ErrInvalidPromoCode):
		common.JSONError(w, http.StatusBadRequest, "INVALID_PROMO_CODE", err.Error(), nil)
	case errors.Is(err, voucher.ErrVoucherNotApplicable):
		common.JSONError(w, http.StatusBadRequest, "VOUCHER_NOT_APPLICABLE", err.Error(), nil)
	case errors.Is(err, pricing.ErrInvalidQuantity):
		common.JSONError(w, http.StatusBadRequest, "INVALID_QUANTITY", err.Error(), nil)
	case errors.Is(err, pricing.ErrInvalidPrice):
		common.JSONError(w, http.StatusBadRequest, "INVALID_PRICE", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, lock.ErrTimeout):
		common.JSONError(w, http.StatusConflict, "CART_BUSY", "cart is being updated, retry shortly", nil)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrLineNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
