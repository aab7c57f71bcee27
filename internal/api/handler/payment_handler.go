package handler

import (
	"net/http"
	"scholarstream/internal/app/service"
	"scholarstream/internal/common"

	"github.com/go-chi/chi/v5"
)

type PaymentHandler struct {
	paymentService *service.PaymentService
	guards         Guards
}

func NewPaymentHandler(ps *service.PaymentService, guards Guards) *PaymentHandler {
	return &PaymentHandler{paymentService: ps, guards: guards}
}

// RegisterRoutes mounts on the root router; both routes are authenticated
// and throttled per caller.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(pay chi.Router) {
		pay.Use(h.guards.Authenticate, h.guards.throttle())
		pay.Post("/create-checkout-session", h.createCheckoutSession)
		pay.Patch("/payment-success", h.paymentSuccess)
	})
}

func (h *PaymentHandler) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req service.InitiateCheckoutRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	resp, err := h.paymentService.InitiateCheckout(r.Context(), caller(r), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *PaymentHandler) paymentSuccess(w http.ResponseWriter, r *http.Request) {
	result, err := h.paymentService.FinalizeCheckout(r.Context(), caller(r), r.URL.Query().Get("session_id"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	common.RespondWithJSON(w, status, result)
}
