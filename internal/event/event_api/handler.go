package event_api

import (
	"encoding/json"
	"net/http"

	"eventhub/internal/auth"
	"eventhub/internal/errs"
	"eventhub/internal/event"
	"eventhub/internal/models"
	"eventhub/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *event.Service
}

func NewHandler(s *event.Service) *Handler {
	return &Handler{Service: s}
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		utils.WriteError(w, errs.New(errs.KindUnauthorized, "Unauthorized"))
		return
	}
	if !auth.Can(actor, auth.EventManage, auth.Resource{CompanyID: actor.CompanyID}) {
		utils.WriteError(w, errs.New(errs.KindForbidden, "Only admins and managers can create events"))
		return
	}

	var req models.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errs.Validation("Invalid request body"))
		return
	}

	created, err := h.Service.CreateEvent(actor, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Event created successfully", created)
}

func (h *Handler) AddEventDetails(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		utils.WriteError(w, errs.New(errs.KindUnauthorized, "Unauthorized"))
		return
	}
	if !auth.Can(actor, auth.EventManage, auth.Resource{CompanyID: actor.CompanyID}) {
		utils.WriteError(w, errs.New(errs.KindForbidden, "Only admins and managers can update events"))
		return
	}

	var req models.EventDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errs.Validation("Invalid request body"))
		return
	}

	updated, err := h.Service.AddEventDetails(req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event details updated", updated)
}

func (h *Handler) AddTiers(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		utils.WriteError(w, errs.New(errs.KindUnauthorized, "Unauthorized"))
		return
	}
	if !auth.Can(actor, auth.EventManage, auth.Resource{CompanyID: actor.CompanyID}) {
		utils.WriteError(w, errs.New(errs.KindForbidden, "Only admins and managers can add tickets"))
		return
	}

	var req models.AddTiersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errs.Validation("Invalid request body"))
		return
	}

	result, err := h.Service.AddTiers(req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Tickets added successfully", result)
}

func (h *Handler) BuyTicket(w http.ResponseWriter, r *http.Request) {
	var req models.BuyTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errs.Validation("Invalid request body"))
		return
	}

	tier, err := h.Service.BuyTicket(req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Ticket purchased successfully", tier)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	if eventID == "" {
		utils.WriteError(w, errs.Validation("Event ID is required"))
		return
	}

	result, err := h.Service.GetEvent(eventID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event fetched successfully", result)
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		utils.WriteError(w, errs.New(errs.KindUnauthorized, "Unauthorized"))
		return
	}

	events, err := h.Service.ListCompanyEvents(actor)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Events fetched successfully", events)
}
