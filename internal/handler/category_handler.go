package handler

import (
	"net/http"

	"go-school-admin/internal/data"
	"go-school-admin/internal/middleware"
	"go-school-admin/internal/service"

	"github.com/go-chi/chi/v5"
)

// categoryRoutes serves the category tree of owner type E.
type categoryRoutes[E data.Owner] struct {
	categories *service.CategoryService[E]
	owners     *service.OwnerService[E]
}

func newCategoryRoutes[E data.Owner](categories *service.CategoryService[E], owners *service.OwnerService[E]) *categoryRoutes[E] {
	return &categoryRoutes[E]{categories: categories, owners: owners}
}

func (h *categoryRoutes[E]) routes(r chi.Router, wrap func(middleware.AppHandler) http.Handler) {
	r.Method(http.MethodGet, "/", wrap(h.listHandler))
	r.Method(http.MethodPost, "/", wrap(h.createHandler))
	r.Method(http.MethodGet, "/tree", wrap(h.treeHandler))
	r.Method(http.MethodGet, "/search", wrap(h.searchHandler))
	r.Method(http.MethodGet, "/roots", wrap(h.rootsHandler))

	r.Route("/{categoryID}", func(r chi.Router) {
		r.Method(http.MethodGet, "/", wrap(h.getHandler))
		r.Method(http.MethodPut, "/", wrap(h.updateHandler))
		r.Method(http.MethodDelete, "/", wrap(h.deleteHandler))
		r.Method(http.MethodPost, "/restore", wrap(h.restoreHandler))
		r.Method(http.MethodPut, "/parent", wrap(h.moveHandler))
		r.Method(http.MethodGet, "/children", wrap(h.childrenHandler))
		r.Method(http.MethodGet, "/path", wrap(h.pathHandler))
		r.Method(http.MethodGet, "/members", wrap(h.membersHandler))
	})
}

type categoryRequest struct {
	service.CategoryInput
	ParentID   *string `json:"parentId"`
	RowVersion int64   `json:"rowVersion"`
}

func (h *categoryRoutes[E]) listHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	deleted, appErr := includeDeleted(r)
	if appErr != nil {
		return appErr
	}
	cats, err := h.categories.List(r.Context(), deleted)
	return respond(w, http.StatusOK, cats, err)
}

func (h *categoryRoutes[E]) createHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req categoryRequest
	if appErr := decode(w, r, &req); appErr != nil {
		return appErr
	}
	parent, appErr := optionalCategory[E](req.ParentID)
	if appErr != nil {
		return appErr
	}
	c, err := h.categories.Create(r.Context(), parent, req.CategoryInput)
	return respond(w, http.StatusCreated, c, err)
}

func (h *categoryRoutes[E]) treeHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	tree, err := h.categories.Tree(r.Context())
	return respond(w, http.StatusOK, tree, err)
}

func (h *categoryRoutes[E]) searchHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	cats, err := h.categories.Search(r.Context(), r.URL.Query().Get("q"))
	return respond(w, http.StatusOK, cats, err)
}

func (h *categoryRoutes[E]) rootsHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	deleted, appErr := includeDeleted(r)
	if appErr != nil {
		return appErr
	}
	cats, err := h.categories.Children(r.Context(), nil, deleted)
	return respond(w, http.StatusOK, cats, err)
}

func (h *categoryRoutes[E]) getHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := categoryParam[E](r, "categoryID")
	if appErr != nil {
		return appErr
	}
	c, err := h.categories.Get(r.Context(), id)
	return respond(w, http.StatusOK, c, err)
}

func (h *categoryRoutes[E]) updateHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := categoryParam[E](r, "categoryID")
	if appErr != nil {
		return appErr
	}
	var req categoryRequest
	if appErr := decode(w, r, &req); appErr != nil {
		return appErr
	}
	c, err := h.categories.Update(r.Context(), id, req.RowVersion, req.CategoryInput)
	return respond(w, http.StatusOK, c, err)
}

func (h *categoryRoutes[E]) moveHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := categoryParam[E](r, "categoryID")
	if appErr != nil {
		return appErr
	}
	var req struct {
		ParentID   *string `json:"parentId"`
		RowVersion int64   `json:"rowVersion"`
	}
	if appErr := decode(w, r, &req); appErr != nil {
		return appErr
	}
	parent, appErr := optionalCategory[E](req.ParentID)
	if appErr != nil {
		return appErr
	}
	if err := h.categories.Move(r.Context(), id, parent, req.RowVersion); err != nil {
		return middleware.NewAppError(err)
	}
	c, err := h.categories.Get(r.Context(), id)
	return respond(w, http.StatusOK, c, err)
}

func (h *categoryRoutes[E]) deleteHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := categoryParam[E](r, "categoryID")
	if appErr != nil {
		return appErr
	}
	mode, err := service.ParseDeleteMode(r.URL.Query().Get("mode"))
	if err != nil {
		return middleware.NewAppError(err)
	}
	return noContent(w, h.categories.Delete(r.Context(), id, mode))
}

func (h *categoryRoutes[E]) restoreHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := categoryParam[E](r, "categoryID")
	if appErr != nil {
		return appErr
	}
	if err := h.categories.Restore(r.Context(), id); err != nil {
		return middleware.NewAppError(err)
	}
	c, err := h.categories.Get(r.Context(), id)
	return respond(w, http.StatusOK, c, err)
}

func (h *categoryRoutes[E]) childrenHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := categoryParam[E](r, "categoryID")
	if appErr != nil {
		return appErr
	}
	deleted, appErr := includeDeleted(r)
	if appErr != nil {
		return appErr
	}
	cats, err := h.categories.Children(r.Context(), &id, deleted)
	return respond(w, http.StatusOK, cats, err)
}

func (h *categoryRoutes[E]) pathHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := categoryParam[E](r, "categoryID")
	if appErr != nil {
		return appErr
	}
	path, err := h.categories.Path(r.Context(), id)
	return respond(w, http.StatusOK, path, err)
}

func (h *categoryRoutes[E]) membersHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := categoryParam[E](r, "categoryID")
	if appErr != nil {
		return appErr
	}
	deleted, appErr := includeDeleted(r)
	if appErr != nil {
		return appErr
	}
	members, err := h.owners.Members(r.Context(), id, deleted)
	return respond(w, http.StatusOK, members, err)
}
