package promo_api

import (
	"encoding/json"
	"net/http"

	"eventhub/internal/auth"
	"eventhub/internal/errs"
	"eventhub/internal/models"
	"eventhub/internal/promo"
	"eventhub/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *promo.Service
}

func NewHandler(s *promo.Service) *Handler {
	return &Handler{Service: s}
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (auth.Actor, bool) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		utils.WriteError(w, errs.New(errs.KindUnauthorized, "Unauthorized"))
		return auth.Actor{}, false
	}
	return actor, true
}

func (h *Handler) manager(w http.ResponseWriter, r *http.Request) (auth.Actor, bool) {
	actor, ok := h.actor(w, r)
	if !ok {
		return auth.Actor{}, false
	}
	if !auth.Can(actor, auth.PromoManage, auth.Resource{CompanyID: actor.CompanyID}) {
		utils.WriteError(w, errs.New(errs.KindForbidden, "Only admins can manage promo codes"))
		return auth.Actor{}, false
	}
	return actor, true
}

func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req models.ApplyPromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errs.Validation("Invalid request body"))
		return
	}

	result, err := h.Service.Apply(actor, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Promo code applied successfully", result)
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req models.PromoPreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errs.Validation("Invalid request body"))
		return
	}

	result, err := h.Service.Preview(actor, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Order preview", result)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.manager(w, r)
	if !ok {
		return
	}

	var req models.CreatePromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errs.Validation("Invalid request body"))
		return
	}

	created, err := h.Service.Create(actor, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Promo code created successfully", created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.manager(w, r)
	if !ok {
		return
	}

	var req models.UpdatePromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errs.Validation("Invalid request body"))
		return
	}

	updated, err := h.Service.Update(actor, chi.URLParam(r, "id"), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Promo code updated successfully", updated)
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.manager(w, r)
	if !ok {
		return
	}

	var req struct {
		IsActive *bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsActive == nil {
		utils.WriteError(w, errs.Validation("is_active is required"))
		return
	}

	updated, err := h.Service.SetActive(actor, chi.URLParam(r, "id"), *req.IsActive)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Promo status updated", updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.manager(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(actor, chi.URLParam(r, "id")); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Promo code deleted", nil)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	found, err := h.Service.Get(actor, chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Promo code fetched successfully", found)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	promos, err := h.Service.List(actor)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Promo codes fetched successfully", promos)
}

func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	promos, err := h.Service.ListActive(actor)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Active promo codes fetched successfully", promos)
}
