package handler

import (
	"net/http"

	"go-school-admin/internal/data"
	"go-school-admin/internal/middleware"
	"go-school-admin/internal/service"

	"github.com/go-chi/chi/v5"
)

// subRecordHandler serves one sub-record kind of owner type E.
type subRecordHandler[E data.Owner, R any, PR service.SubRecordPtr[R]] struct {
	svc *service.SubRecordService[E, R, PR]
}

// mountSubRecords registers the routes of one sub-record kind on r, which is
// already scoped to an owner's {id}.
func mountSubRecords[E data.Owner, R any, PR service.SubRecordPtr[R]](r chi.Router, wrap func(middleware.AppHandler) http.Handler, svc *service.SubRecordService[E, R, PR]) {
	h := &subRecordHandler[E, R, PR]{svc: svc}
	r.Method(http.MethodGet, "/", wrap(h.listHandler))
	r.Method(http.MethodPost, "/", wrap(h.attachHandler))
	r.Method(http.MethodGet, "/default", wrap(h.defaultHandler))
	r.Method(http.MethodGet, "/{recordID}", wrap(h.getHandler))
	r.Method(http.MethodPut, "/{recordID}", wrap(h.updateHandler))
	r.Method(http.MethodPut, "/{recordID}/default", wrap(h.setDefaultHandler))
	r.Method(http.MethodDelete, "/{recordID}", wrap(h.detachHandler))
}

func (h *subRecordHandler[E, R, PR]) listHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	owner, appErr := ownerParam[E](r)
	if appErr != nil {
		return appErr
	}
	deleted, appErr := includeDeleted(r)
	if appErr != nil {
		return appErr
	}
	recs, err := h.svc.List(r.Context(), owner, deleted)
	return respond(w, http.StatusOK, recs, err)
}

func (h *subRecordHandler[E, R, PR]) attachHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	owner, appErr := ownerParam[E](r)
	if appErr != nil {
		return appErr
	}
	var rec R
	if appErr := decode(w, r, &rec); appErr != nil {
		return appErr
	}
	if err := h.svc.Attach(r.Context(), owner, PR(&rec)); err != nil {
		return middleware.NewAppError(err)
	}
	return respond(w, http.StatusCreated, &rec, nil)
}

func (h *subRecordHandler[E, R, PR]) defaultHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	owner, appErr := ownerParam[E](r)
	if appErr != nil {
		return appErr
	}
	rec, err := h.svc.Default(r.Context(), owner)
	return respond(w, http.StatusOK, rec, err)
}

func (h *subRecordHandler[E, R, PR]) getHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	owner, appErr := ownerParam[E](r)
	if appErr != nil {
		return appErr
	}
	rec, err := h.svc.Get(r.Context(), owner, chi.URLParam(r, "recordID"))
	return respond(w, http.StatusOK, rec, err)
}

func (h *subRecordHandler[E, R, PR]) updateHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	owner, appErr := ownerParam[E](r)
	if appErr != nil {
		return appErr
	}
	var rec R
	if appErr := decode(w, r, &rec); appErr != nil {
		return appErr
	}
	if err := h.svc.Update(r.Context(), owner, chi.URLParam(r, "recordID"), PR(&rec)); err != nil {
		return middleware.NewAppError(err)
	}
	return respond(w, http.StatusOK, &rec, nil)
}

func (h *subRecordHandler[E, R, PR]) setDefaultHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	owner, appErr := ownerParam[E](r)
	if appErr != nil {
		return appErr
	}
	id := chi.URLParam(r, "recordID")
	if err := h.svc.SetDefault(r.Context(), owner, id); err != nil {
		return middleware.NewAppError(err)
	}
	rec, err := h.svc.Get(r.Context(), owner, id)
	return respond(w, http.StatusOK, rec, err)
}

func (h *subRecordHandler[E, R, PR]) detachHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	owner, appErr := ownerParam[E](r)
	if appErr != nil {
		return appErr
	}
	return noContent(w, h.svc.Detach(r.Context(), owner, chi.URLParam(r, "recordID")))
}
