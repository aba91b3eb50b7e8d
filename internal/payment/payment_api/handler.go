package payment_api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"eventhub/internal/auth"
	"eventhub/internal/errs"
	"eventhub/internal/models"
	"eventhub/internal/payment"
	"eventhub/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *payment.Service
}

func NewHandler(s *payment.Service) *Handler {
	return &Handler{Service: s}
}

func (h *Handler) CreatePaymentOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		utils.WriteError(w, errs.New(errs.KindUnauthorized, "Unauthorized"))
		return
	}

	var req models.CreatePaymentOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errs.Validation("Invalid request body"))
		return
	}

	resp, err := h.Service.CreatePaymentOrder(actor, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Payment order created", resp)
}

// VerifyPayment is the gateway callback. It is authenticated by the
// HMAC signature in the body, not by a user token.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errs.Validation("Invalid request body"))
		return
	}

	resp, err := h.Service.VerifyPayment(req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Payment verified successfully", resp)
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		utils.WriteError(w, errs.New(errs.KindUnauthorized, "Unauthorized"))
		return
	}

	resp, err := h.Service.GetPayment(actor, chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Payment fetched successfully", resp)
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		utils.WriteError(w, errs.New(errs.KindUnauthorized, "Unauthorized"))
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	resp, err := h.Service.ListMyPayments(actor, page, limit)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Payments fetched successfully", resp)
}
