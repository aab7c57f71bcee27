package handler

import (
	"net/http"
	"scholarstream/internal/app/service"
	"scholarstream/internal/common"
	"scholarstream/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	userService *service.UserService
	guards      Guards
}

func NewUserHandler(us *service.UserService, guards Guards) *UserHandler {
	return &UserHandler{userService: us, guards: guards}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/role", h.getRole) // GET /users/role?email=

	r.Group(func(authed chi.Router) {
		authed.Use(h.guards.Authenticate)
		authed.Post("/", h.register)

		authed.Group(func(admin chi.Router) {
			admin.Use(h.guards.Admin)
			admin.Get("/", h.listUsers)
			admin.Patch("/role/{id}", h.updateRole)
			admin.Delete("/{id}", h.deleteUser)
		})
	})
}

func (h *UserHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterUserRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	user, created, err := h.userService.Register(r.Context(), caller(r), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	if !created {
		common.RespondWithJSON(w, http.StatusOK, common.MessageResponse{Message: "User already exists"})
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context(), caller(r))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, users)
}

type roleResponse struct {
	Role model.Role `json:"role"`
}

func (h *UserHandler) getRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.userService.RoleFor(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, roleResponse{Role: role})
}

func (h *UserHandler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Role string `json:"role"`
	}
	if !decodeJSON(w, r, &req, false) {
		return
	}

	user, err := h.userService.UpdateRole(r.Context(), caller(r), id, req.Role)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}

func (h *UserHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.userService.Delete(r.Context(), caller(r), id); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, common.MessageResponse{Message: "User deleted"})
}
