package handler

import (
	"net/http"
	"scholarstream/internal/app/service"
	"scholarstream/internal/common"
	"scholarstream/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type ReviewHandler struct {
	reviewService *service.ReviewService
	guards        Guards
}

func NewReviewHandler(rs *service.ReviewService, guards Guards) *ReviewHandler {
	return &ReviewHandler{reviewService: rs, guards: guards}
}

func (h *ReviewHandler) RegisterRoutes(r chi.Router) {
	r.Get("/public", h.publicRecent)
	// {id} is a scholarship id on GET and a review id on PATCH and DELETE.
	r.Get("/{id}", h.listForScholarship)

	r.Group(func(authed chi.Router) {
		authed.Use(h.guards.Authenticate)
		authed.Post("/", h.createReview)
		authed.Get("/user/{email}", h.listMine)
		authed.Patch("/{id}", h.updateReview)
		authed.Delete("/{id}", h.deleteReview)
		authed.With(h.guards.Staff).Get("/", h.listAll)
	})
}

func (h *ReviewHandler) createReview(w http.ResponseWriter, r *http.Request) {
	var req service.CreateReviewRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	review, err := h.reviewService.Create(r.Context(), caller(r), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, review)
}

func (h *ReviewHandler) publicRecent(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviewService.PublicRecent(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, reviews)
}

func (h *ReviewHandler) listForScholarship(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviewService.ListForScholarship(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, reviews)
}

func (h *ReviewHandler) listMine(w http.ResponseWriter, r *http.Request) {
	email, ok := emailParam(w, r, "email")
	if !ok {
		return
	}
	reviews, err := h.reviewService.ListForOwner(r.Context(), caller(r), email)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, reviews)
}

func (h *ReviewHandler) listAll(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviewService.ListAll(r.Context(), caller(r))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, reviews)
}

func (h *ReviewHandler) updateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var patch model.ReviewPatch
	if !decodeJSON(w, r, &patch, false) {
		return
	}
	review, err := h.reviewService.Update(r.Context(), caller(r), id, patch)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, review)
}

func (h *ReviewHandler) deleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.reviewService.Delete(r.Context(), caller(r), id); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, common.MessageResponse{Message: "Review deleted"})
}
