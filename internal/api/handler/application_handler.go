package handler

import (
	"net/http"
	"scholarstream/internal/app/service"
	"scholarstream/internal/common"
	"scholarstream/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type ApplicationHandler struct {
	applicationService *service.ApplicationService
	guards             Guards
}

func NewApplicationHandler(as *service.ApplicationService, guards Guards) *ApplicationHandler {
	return &ApplicationHandler{applicationService: as, guards: guards}
}

func (h *ApplicationHandler) RegisterRoutes(r chi.Router) {
	r.Use(h.guards.Authenticate)

	r.Post("/", h.createApplication)
	r.Get("/user/{email}", h.listMine)
	r.Patch("/update/{id}", h.ownerUpdate) // owner, pending only
	r.Delete("/{id}", h.ownerDelete)

	r.Group(func(staff chi.Router) {
		staff.Use(h.guards.Staff)
		staff.Get("/", h.listAll)
		staff.Patch("/{id}", h.staffUpdate)
	})
}

func (h *ApplicationHandler) createApplication(w http.ResponseWriter, r *http.Request) {
	var req service.CreateApplicationRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	app, err := h.applicationService.Create(r.Context(), caller(r), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, app)
}

func (h *ApplicationHandler) listAll(w http.ResponseWriter, r *http.Request) {
	apps, err := h.applicationService.ListAll(r.Context(), caller(r))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, apps)
}

func (h *ApplicationHandler) listMine(w http.ResponseWriter, r *http.Request) {
	email, ok := emailParam(w, r, "email")
	if !ok {
		return
	}
	apps, err := h.applicationService.ListForOwner(r.Context(), caller(r), email)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, apps)
}

func (h *ApplicationHandler) staffUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var patch model.ApplicationPatch
	if !decodeJSON(w, r, &patch, false) {
		return
	}
	app, err := h.applicationService.StaffUpdate(r.Context(), caller(r), id, patch)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, app)
}

func (h *ApplicationHandler) ownerUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var patch model.ApplicationOwnerPatch
	if !decodeJSON(w, r, &patch, true) {
		return
	}
	app, err := h.applicationService.OwnerUpdate(r.Context(), caller(r), id, patch)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, app)
}

func (h *ApplicationHandler) ownerDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.applicationService.OwnerDelete(r.Context(), caller(r), id); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, common.MessageResponse{Message: "Application deleted"})
}
