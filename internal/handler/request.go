package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"go-school-admin/internal/data"
	"go-school-admin/internal/middleware"
	"go-school-admin/internal/service"

	"github.com/go-chi/chi/v5"
)

// maxBody bounds every JSON request body.
const maxBody = 1 << 20

// decode reads a JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) *middleware.AppError {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return middleware.NewAppError(fmt.Errorf("malformed request body: %v: %w", err, service.ErrInvalidInput))
	}
	return nil
}

// includeDeleted reads the includeDeleted query flag.
func includeDeleted(r *http.Request) (bool, *middleware.AppError) {
	raw := r.URL.Query().Get("includeDeleted")
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, middleware.NewAppError(fmt.Errorf("includeDeleted=%q: %w", raw, service.ErrInvalidInput))
	}
	return v, nil
}

// ownerParam parses the {id} path parameter as an owner id of type E.
func ownerParam[E data.Owner](r *http.Request) (data.OwnerID[E], *middleware.AppError) {
	id, err := data.ParseOwnerID[E](chi.URLParam(r, "id"))
	if err != nil {
		return "", middleware.NewAppError(err)
	}
	return id, nil
}

// categoryParam parses the named path parameter as a category id of type E.
func categoryParam[E data.Owner](r *http.Request, name string) (data.CategoryID[E], *middleware.AppError) {
	id, err := data.ParseCategoryID[E](chi.URLParam(r, name))
	if err != nil {
		return "", middleware.NewAppError(err)
	}
	return id, nil
}

// optionalCategory parses a possibly empty category id from a request body.
func optionalCategory[E data.Owner](raw *string) (*data.CategoryID[E], *middleware.AppError) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := data.ParseCategoryID[E](*raw)
	if err != nil {
		return nil, middleware.NewAppError(err)
	}
	return &id, nil
}

// respond writes v as JSON, or maps err to an error response.
func respond(w http.ResponseWriter, status int, v interface{}, err error) *middleware.AppError {
	if err != nil {
		return middleware.NewAppError(err)
	}
	middleware.WriteJSON(w, status, v)
	return nil
}

func noContent(w http.ResponseWriter, err error) *middleware.AppError {
	if err != nil {
		return middleware.NewAppError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
