package handler

import (
	"net/http"

	"go-school-admin/internal/data"
	"go-school-admin/internal/logger"
	"go-school-admin/internal/middleware"
	"go-school-admin/internal/service"

	"github.com/go-chi/chi/v5"
)

// OwnerServices groups the services an OwnerHandler serves.
type OwnerServices[E data.Owner] struct {
	Owners         *service.OwnerService[E]
	Categories     *service.CategoryService[E]
	Addresses      *service.SubRecordService[E, data.Address, *data.Address]
	ContactNumbers *service.SubRecordService[E, data.ContactNumber, *data.ContactNumber]
	EmailAddresses *service.SubRecordService[E, data.EmailAddress, *data.EmailAddress]
}

// OwnerHandler holds the dependencies for the handlers of owner type E.
type OwnerHandler[E data.Owner] struct {
	svc    OwnerServices[E]
	plural string
	log    logger.Logger
}

var _ Mounter = (*OwnerHandler[data.Product])(nil)

// NewOwnerHandler creates a new OwnerHandler served under /api/<plural>.
func NewOwnerHandler[E data.Owner](svc OwnerServices[E], plural string, log logger.Logger) *OwnerHandler[E] {
	return &OwnerHandler[E]{svc: svc, plural: plural, log: log}
}

// Plural returns the path segment of owner type E.
func (h *OwnerHandler[E]) Plural() string { return h.plural }

// Routes registers every route of owner type E on r.
func (h *OwnerHandler[E]) Routes(r chi.Router, wrap func(middleware.AppHandler) http.Handler) {
	r.Method(http.MethodGet, "/", wrap(h.listHandler))
	r.Method(http.MethodPost, "/", wrap(h.createHandler))

	r.Route("/categories", func(r chi.Router) {
		newCategoryRoutes(h.svc.Categories, h.svc.Owners).routes(r, wrap)
	})

	r.Route("/{id}", func(r chi.Router) {
		r.Method(http.MethodGet, "/", wrap(h.getHandler))
		r.Method(http.MethodPut, "/", wrap(h.renameHandler))
		r.Method(http.MethodDelete, "/", wrap(h.deleteHandler))
		r.Method(http.MethodPost, "/restore", wrap(h.restoreHandler))

		r.Route("/addresses", func(r chi.Router) { mountSubRecords(r, wrap, h.svc.Addresses) })
		r.Route("/contact-numbers", func(r chi.Router) { mountSubRecords(r, wrap, h.svc.ContactNumbers) })
		r.Route("/email-addresses", func(r chi.Router) { mountSubRecords(r, wrap, h.svc.EmailAddresses) })

		r.Route("/metadata", func(r chi.Router) {
			r.Method(http.MethodGet, "/", wrap(h.listMetadataHandler))
			r.Method(http.MethodGet, "/{key}", wrap(h.getMetadataHandler))
			r.Method(http.MethodPut, "/{key}", wrap(h.setMetadataHandler))
			r.Method(http.MethodDelete, "/{key}", wrap(h.removeMetadataHandler))
		})

		r.Route("/attachments/{kind}", func(r chi.Router) {
			r.Method(http.MethodGet, "/", wrap(h.listAttachmentsHandler))
			r.Method(http.MethodPost, "/", wrap(h.attachHandler))
			r.Method(http.MethodPut, "/order", wrap(h.reorderHandler))
			r.Method(http.MethodDelete, "/{attachmentID}", wrap(h.detachHandler))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Method(http.MethodGet, "/", wrap(h.listCategoriesHandler))
			r.Method(http.MethodPut, "/{categoryID}", wrap(h.addToCategoryHandler))
			r.Method(http.MethodDelete, "/{categoryID}", wrap(h.removeFromCategoryHandler))
		})
	})
}

type displayNameRequest struct {
	DisplayName string `json:"displayName"`
	RowVersion  int64  `json:"rowVersion"`
}

func (h *OwnerHandler[E]) listHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	deleted, appErr := includeDeleted(r)
	if appErr != nil {
		return appErr
	}
	owners, err := h.svc.Owners.List(r.Context(), deleted)
	return respond(w, http.StatusOK, owners, err)
}

func (h *OwnerHandler[E]) createHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req displayNameRequest
	if appErr := decode(w, r, &req); appErr != nil {
		return appErr
	}
	owner, err := h.svc.Owners.Create(r.Context(), req.DisplayName)
	return respond(w, http.StatusCreated, owner, err)
}

func (h *OwnerHandler[E]) getHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := ownerParam[E](r)
	if appErr != nil {
		return appErr
	}
	deleted, appErr := includeDeleted(r)
	if appErr != nil {
		return appErr
	}
	owner, err := h.svc.Owners.Get(r.Context(), id, deleted)
	return respond(w, http.StatusOK, owner, err)
}

func (h *OwnerHandler[E]) renameHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := ownerParam[E](r)
	if appErr != nil {
		return appErr
	}
	var req displayNameRequest
	if appErr := decode(w, r, &req); appErr != nil {
		return appErr
	}
	owner, err := h.svc.Owners.Rename(r.Context(), id, req.DisplayName, req.RowVersion)
	return respond(w, http.StatusOK, owner, err)
}

func (h *OwnerHandler[E]) deleteHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := ownerParam[E](r)
	if appErr != nil {
		return appErr
	}
	return noContent(w, h.svc.Owners.Delete(r.Context(), id))
}

func (h *OwnerHandler[E]) restoreHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := ownerParam[E](r)
	if appErr != nil {
		return appErr
	}
	if err := h.svc.Owners.Restore(r.Context(), id); err != nil {
		return middleware.NewAppError(err)
	}
	owner, err := h.svc.Owners.Get(r.Context(), id, false)
	return respond(w, http.StatusOK, owner, err)
}

func (h *OwnerHandler[E]) listMetadataHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := ownerParam[E](r)
	if appErr != nil {
		return appErr
	}
	deleted, appErr := includeDeleted(r)
	if appErr != nil {
		return appErr
	}
	pairs, err := h.svc.Owners.ListMetadata(r.Context(), id, deleted)
	return respond(w, http.StatusOK, pairs, err)
}

func (h *OwnerHandler[E]) getMetadataHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := ownerParam[E](r)
	if appErr != nil {
		return appErr
	}
	pair, err := h.svc.Owners.Metadata(r.Context(), id, chi.URLParam(r, "key"))
	return respond(w, http.StatusOK, pair, err)
}

func (h *OwnerHandler[E]) setMetadataHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := ownerParam[E](r)
	if appErr != nil {
		return appErr
	}
	var req struct {
		Value string `json:"value"`
	}
	if appErr := decode(w, r, &req); appErr != nil {
		return appErr
	}
	pair, err := h.svc.Owners.SetMetadata(r.Context(), id, chi.URLParam(r, "key"), req.Value)
	return respond(w, http.StatusOK, pair, err)
}

func (h *OwnerHandler[E]) removeMetadataHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := ownerParam[E](r)
	if appErr != nil {
		return appErr
	}
	return noContent(w, h.svc.Owners.RemoveMetadata(r.Context(), id, chi.URLParam(r, "key")))
}

func (h *OwnerHandler[E]) listAttachmentsHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := ownerParam[E](r)
	if appErr != nil {
		return appErr
	}
	deleted, appErr := includeDeleted(r)
	if appErr != nil {
		return appErr
	}
	kind := data.MediaKind(chi.URLParam(r, "kind"))
	list, err := h.svc.Owners.Attachments(r.Context(), kind, id, r.URL.Query().Get("selector"), deleted)
	return respond(w, http.StatusOK, list, err)
}

func (h *OwnerHandler[E]) attachHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := ownerParam[E](r)
	if appErr != nil {
		return appErr
	}
	var req struct {
		MediaID  string  `json:"mediaId"`
		Order    int     `json:"order"`
		Selector *string `json:"selector"`
	}
	if appErr := decode(w, r, &req); appErr != nil {
		return appErr
	}
	kind := data.MediaKind(chi.URLParam(r, "kind"))
	a, err := h.svc.Owners.Attach(r.Context(), kind, id, req.MediaID, req.Order, req.Selector)
	return respond(w, http.StatusCreated, a, err)
}

func (h *OwnerHandler[E]) reorderHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := ownerParam[E](r)
	if appErr != nil {
		return appErr
	}
	var req struct {
		IDs []string `json:"ids"`
	}
	if appErr := decode(w, r, &req); appErr != nil {
		return appErr
	}
	kind := data.MediaKind(chi.URLParam(r, "kind"))
	if err := h.svc.Owners.Reorder(r.Context(), kind, id, req.IDs); err != nil {
		return middleware.NewAppError(err)
	}
	list, err := h.svc.Owners.Attachments(r.Context(), kind, id, "", false)
	return respond(w, http.StatusOK, list, err)
}

func (h *OwnerHandler[E]) detachHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := ownerParam[E](r)
	if appErr != nil {
		return appErr
	}
	kind := data.MediaKind(chi.URLParam(r, "kind"))
	return noContent(w, h.svc.Owners.Detach(r.Context(), kind, id, chi.URLParam(r, "attachmentID")))
}

func (h *OwnerHandler[E]) listCategoriesHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := ownerParam[E](r)
	if appErr != nil {
		return appErr
	}
	deleted, appErr := includeDeleted(r)
	if appErr != nil {
		return appErr
	}
	cats, err := h.svc.Owners.Categories(r.Context(), id, deleted)
	return respond(w, http.StatusOK, cats, err)
}

func (h *OwnerHandler[E]) addToCategoryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := ownerParam[E](r)
	if appErr != nil {
		return appErr
	}
	cat, appErr := categoryParam[E](r, "categoryID")
	if appErr != nil {
		return appErr
	}
	m, err := h.svc.Owners.AddToCategory(r.Context(), id, cat)
	return respond(w, http.StatusOK, m, err)
}

func (h *OwnerHandler[E]) removeFromCategoryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := ownerParam[E](r)
	if appErr != nil {
		return appErr
	}
	cat, appErr := categoryParam[E](r, "categoryID")
	if appErr != nil {
		return appErr
	}
	return noContent(w, h.svc.Owners.RemoveFromCategory(r.Context(), id, cat))
}
