package checkout

import (
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// Handler exposes checkout completion over HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type completePayload struct {
	CartID  string `json:"cartId" validate:"required"`
	Payment struct {
		Amount    string `json:"amount" validate:"required,numeric"`
		Reference string `json:"reference" validate:"max=128"`
	} `json:"payment"`
}

// Complete places an order for the cart.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var payload completePayload
	if err := common.DecodeJSON(r, h.Validate, &payload); err != nil {
		writeError(w, err)
		return
	}
	authorized, err := pricing.ParseMoney(payload.Payment.Amount)
	if err != nil {
		writeError(w, common.NewAppError("BAD_REQUEST", "payment.amount must be a decimal amount", http.StatusBadRequest, err))
		return
	}
	o, err := h.Svc.Complete(r.Context(), Input{
		CartID: payload.CartID,
		Payment: Payment{
			Authorized: authorized,
			Reference:  payload.Payment.Reference,
		},
	})
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": o})
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrPaymentInsufficient) {
		common.JSONError(w, http.StatusPaymentRequired, "PAYMENT_INSUFFICIENT", err.Error(), nil)
		return
	}
	cart.WriteError(w, err)
}
