package task_api

import (
	"encoding/json"
	"net/http"

	"eventhub/internal/auth"
	"eventhub/internal/errs"
	"eventhub/internal/models"
	"eventhub/internal/task"
	"eventhub/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *task.Service
}

func NewHandler(s *task.Service) *Handler {
	return &Handler{Service: s}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		utils.WriteError(w, errs.New(errs.KindUnauthorized, "Unauthorized"))
		return
	}

	var req models.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errs.Validation("Invalid request body"))
		return
	}

	created, err := h.Service.Create(actor, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Task created successfully", created)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		utils.WriteError(w, errs.New(errs.KindUnauthorized, "Unauthorized"))
		return
	}

	updated, err := h.Service.Complete(actor, chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Task completed", updated)
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		utils.WriteError(w, errs.New(errs.KindUnauthorized, "Unauthorized"))
		return
	}

	updated, err := h.Service.Verify(actor, chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Task verified", updated)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		utils.WriteError(w, errs.New(errs.KindUnauthorized, "Unauthorized"))
		return
	}

	tasks, err := h.Service.List(actor)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Tasks fetched successfully", tasks)
}
