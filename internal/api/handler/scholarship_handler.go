package handler

import (
	"net/http"
	"strconv"
	"scholarstream/internal/app/service"
	"scholarstream/internal/common"
	"scholarstream/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type ScholarshipHandler struct {
	scholarshipService *service.ScholarshipService
	guards             Guards
}

func NewScholarshipHandler(ss *service.ScholarshipService, guards Guards) *ScholarshipHandler {
	return &ScholarshipHandler{scholarshipService: ss, guards: guards}
}

func (h *ScholarshipHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listScholarships)
	r.Get("/{id}", h.getScholarship)

	r.Group(func(admin chi.Router) {
		admin.Use(h.guards.Authenticate, h.guards.Admin)
		admin.Post("/", h.createScholarship)
		admin.Patch("/{id}", h.updateScholarship)
		admin.Delete("/{id}", h.deleteScholarship)
	})
}

func (h *ScholarshipHandler) listScholarships(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))

	result, err := h.scholarshipService.List(r.Context(), service.ListScholarshipsRequest{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Country:  q.Get("country"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}

func (h *ScholarshipHandler) getScholarship(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	sch, err := h.scholarshipService.Get(r.Context(), id)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, sch)
}

func (h *ScholarshipHandler) createScholarship(w http.ResponseWriter, r *http.Request) {
	var req service.CreateScholarshipRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	sch, err := h.scholarshipService.Create(r.Context(), caller(r), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, sch)
}

func (h *ScholarshipHandler) updateScholarship(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var patch model.ScholarshipPatch
	if !decodeJSON(w, r, &patch, false) {
		return
	}
	sch, err := h.scholarshipService.Update(r.Context(), caller(r), id, patch)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, sch)
}

func (h *ScholarshipHandler) deleteScholarship(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.scholarshipService.Delete(r.Context(), caller(r), id); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, common.MessageResponse{Message: "Scholarship deleted"})
}
