package order_api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"eventhub/internal/auth"
	"eventhub/internal/errs"
	"eventhub/internal/models"
	"eventhub/internal/order"
	"eventhub/internal/tickets/qr"
	"eventhub/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *order.Service
	QR      *qr.Generator
}

func NewHandler(s *order.Service, qrGen *qr.Generator) *Handler {
	return &Handler{Service: s, QR: qrGen}
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		utils.WriteError(w, errs.New(errs.KindUnauthorized, "Unauthorized"))
		return
	}

	var req models.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errs.Validation("Invalid request body"))
		return
	}

	resp, err := h.Service.CreateOrder(actor, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Order created successfully", resp)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		utils.WriteError(w, errs.New(errs.KindUnauthorized, "Unauthorized"))
		return
	}

	orderID := chi.URLParam(r, "orderId")
	resp, err := h.Service.GetOrder(actor, orderID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Order fetched successfully", resp)
}

func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		utils.WriteError(w, errs.New(errs.KindUnauthorized, "Unauthorized"))
		return
	}

	orderID := chi.URLParam(r, "orderId")
	var req models.UpdateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errs.Validation("Invalid request body"))
		return
	}

	resp, err := h.Service.UpdateOrder(actor, orderID, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Order updated successfully", resp)
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		utils.WriteError(w, errs.New(errs.KindUnauthorized, "Unauthorized"))
		return
	}

	orderID := chi.URLParam(r, "orderId")
	if err := h.Service.DeleteOrder(actor, orderID); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Order cancelled successfully", nil)
}

// TicketQR serves the entry pass for a completed order as a PNG.
func (h *Handler) TicketQR(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		utils.WriteError(w, errs.New(errs.KindUnauthorized, "Unauthorized"))
		return
	}

	orderID := chi.URLParam(r, "orderId")
	resp, err := h.Service.GetOrder(actor, orderID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if resp.Order.PaymentStatus != models.OrderCompleted {
		utils.WriteError(w, errs.Validation("QR codes are only issued for completed orders"))
		return
	}

	png, err := h.QR.GenerateEncryptedQR(qr.Pass{
		OrderID:  resp.Order.ID,
		EventID:  resp.Order.EventID,
		UserID:   resp.Order.UserID,
		Tickets:  resp.Lines,
		IssuedAt: time.Now(),
	})
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	h.listByStatus(w, r, models.OrderPending)
}

func (h *Handler) ListCompleted(w http.ResponseWriter, r *http.Request) {
	h.listByStatus(w, r, models.OrderCompleted)
}

func (h *Handler) listByStatus(w http.ResponseWriter, r *http.Request, status models.OrderStatus) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		utils.WriteError(w, errs.New(errs.KindUnauthorized, "Unauthorized"))
		return
	}

	orders, err := h.Service.ListMyOrders(actor, status)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Orders fetched successfully", orders)
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		utils.WriteError(w, errs.New(errs.KindUnauthorized, "Unauthorized"))
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	resp, err := h.Service.ListAll(actor, page, limit)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Orders fetched successfully", resp)
}
