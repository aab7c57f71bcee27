package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"scholarstream/internal/api/middleware"
	"scholarstream/internal/common"
	"scholarstream/internal/domain/model"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

// Guards are the route middlewares handlers attach to their protected routes.
// Admin and Staff expect Authenticate to have run first.
type Guards struct {
	Authenticate func(http.Handler) http.Handler
	Admin        func(http.Handler) http.Handler
	Staff        func(http.Handler) http.Handler
	Throttle     func(http.Handler) http.Handler
}

func (g Guards) throttle() func(http.Handler) http.Handler {
	if g.Throttle == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return g.Throttle
}

func caller(r *http.Request) *model.Identity {
	return middleware.GetIdentityFromContext(r.Context())
}

// decodeJSON reads the request body into dst. An empty body leaves dst as is
// when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return false
	}
	return true
}

// idParam returns the named path parameter when it is a well-formed UUID.
func idParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid "+name+": "+raw)
		return "", false
	}
	return id.String(), true
}

// emailParam returns the named path parameter percent-decoded. chi matches on
// the escaped path, so "alice%40example.com" arrives undecoded.
func emailParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	raw := chi.URLParam(r, name)
	email, err := url.PathUnescape(raw)
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid "+name+": "+raw)
		return "", false
	}
	return email, true
}
