package handler

import (
	"net/http"

	"go-school-admin/internal/data"
	"go-school-admin/internal/logger"
	"go-school-admin/internal/middleware"
	"go-school-admin/internal/service"

	"github.com/go-chi/chi/v5"
)

// MediaHandler holds the dependencies for the shared media handlers.
type MediaHandler struct {
	svc *service.MediaService
	log logger.Logger
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(svc *service.MediaService, log logger.Logger) *MediaHandler {
	return &MediaHandler{svc: svc, log: log}
}

// Routes registers the media routes on r, which is scoped to a {kind}.
func (h *MediaHandler) Routes(r chi.Router, wrap func(middleware.AppHandler) http.Handler) {
	r.Method(http.MethodGet, "/", wrap(h.listHandler))
	r.Method(http.MethodPost, "/", wrap(h.createHandler))
	r.Method(http.MethodGet, "/{mediaID}", wrap(h.getHandler))
	r.Method(http.MethodDelete, "/{mediaID}", wrap(h.deleteHandler))
}

func kindParam(r *http.Request) data.MediaKind {
	return data.MediaKind(chi.URLParam(r, "kind"))
}

func (h *MediaHandler) listHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	deleted, appErr := includeDeleted(r)
	if appErr != nil {
		return appErr
	}
	media, err := h.svc.List(r.Context(), kindParam(r), deleted)
	return respond(w, http.StatusOK, media, err)
}

func (h *MediaHandler) createHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var fm data.FileMetadata
	if appErr := decode(w, r, &fm); appErr != nil {
		return appErr
	}
	m, err := h.svc.Create(r.Context(), kindParam(r), fm)
	return respond(w, http.StatusCreated, m, err)
}

func (h *MediaHandler) getHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	m, err := h.svc.Get(r.Context(), kindParam(r), chi.URLParam(r, "mediaID"))
	return respond(w, http.StatusOK, m, err)
}

func (h *MediaHandler) deleteHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return noContent(w, h.svc.Delete(r.Context(), kindParam(r), chi.URLParam(r, "mediaID")))
}
