package app

import (
	"context"
	"fmt"
	"time"

	"go-school-admin/internal/cache"
	"go-school-admin/internal/data"
	"go-school-admin/internal/handler"
	"go-school-admin/internal/logger"
	"go-school-admin/internal/metrics"
	"go-school-admin/internal/seed"
	"go-school-admin/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

// Deps holds what every owner type's services are built from.
type Deps struct {
	DB    *sqlx.DB
	Cache cache.Cache
	TTL   time.Duration
	Log   logger.Logger
}

// OwnerSummary is an owner row of any type.
type OwnerSummary struct {
	ID          string
	DisplayName string
	IsDeleted   bool
}

// Binding is one owner type wired through every layer.
type Binding struct {
	OwnerType string
	Plural    string
	Handler   handler.Mounter
	Import    func(ctx context.Context, section *seed.TypeYAML) (seed.Result, error)
	List      func(ctx context.Context, includeDeleted bool) ([]OwnerSummary, error)
}

// Bind wires owner type E, served under /api/<plural>.
func Bind[E data.Owner](d Deps, plural string) Binding {
	m := data.NewModule[E](d.DB)
	owners := service.NewOwnerService[E](service.RepositoriesOf[E](m))
	categories := service.NewCategoryService[E](m.Categories, d.Cache, d.TTL, d.Log)
	h := handler.NewOwnerHandler[E](handler.OwnerServices[E]{
		Owners:         owners,
		Categories:     categories,
		Addresses:      service.NewSubRecordService[E, data.Address, *data.Address](m.Addresses, "AddressService"),
		ContactNumbers: service.NewSubRecordService[E, data.ContactNumber, *data.ContactNumber](m.ContactNumbers, "ContactNumberService"),
		EmailAddresses: service.NewSubRecordService[E, data.EmailAddress, *data.EmailAddress](m.EmailAddresses, "EmailAddressService"),
	}, plural, d.Log)

	return Binding{
		OwnerType: m.OwnerType(),
		Plural:    plural,
		Handler:   h,
		Import: func(ctx context.Context, section *seed.TypeYAML) (seed.Result, error) {
			return seed.Import[E](ctx, owners, categories, section)
		},
		List: func(ctx context.Context, includeDeleted bool) ([]OwnerSummary, error) {
			recs, err := owners.List(ctx, includeDeleted)
			if err != nil {
				return nil, err
			}
			out := make([]OwnerSummary, 0, len(recs))
			for _, r := range recs {
				out = append(out, OwnerSummary{ID: string(r.ID), DisplayName: r.DisplayName, IsDeleted: r.IsDeleted})
			}
			return out, nil
		},
	}
}

// Bindings wires every owner type.
func Bindings(d Deps) []Binding {
	return []Binding{
		Bind[data.Product](d, "products"),
		Bind[data.Learner](d, "learners"),
		Bind[data.Parent](d, "parents"),
		Bind[data.Teacher](d, "teachers"),
		Bind[data.BlogPost](d, "blog-posts"),
		Bind[data.Advertisement](d, "advertisements"),
		Bind[data.BusinessListing](d, "business-listings"),
		Bind[data.ActivityGroup](d, "activity-groups"),
		Bind[data.Event](d, "events"),
	}
}

// Find returns the binding of ownerType.
func Find(bindings []Binding, ownerType string) (Binding, error) {
	for _, b := range bindings {
		if b.OwnerType == ownerType || b.Plural == ownerType {
			return b, nil
		}
	}
	return Binding{}, fmt.Errorf("unknown owner type %q", ownerType)
}

// NewRouter builds the HTTP API over every owner type.
func NewRouter(d Deps, m *metrics.Metrics) *chi.Mux {
	bindings := Bindings(d)
	mounters := make([]handler.Mounter, 0, len(bindings))
	for _, b := range bindings {
		mounters = append(mounters, b.Handler)
	}
	media := handler.NewMediaHandler(service.NewMediaService(data.NewMediaRepository(d.DB)), d.Log)
	return handler.NewRouter(d.Log, m, media, mounters...)
}

// Seed imports every section of doc into its owner type.
func Seed(ctx context.Context, d Deps, doc seed.DocumentYAML) (map[string]seed.Result, error) {
	bindings := Bindings(d)
	out := make(map[string]seed.Result, len(doc))
	for ownerType, section := range doc {
		b, err := Find(bindings, ownerType)
		if err != nil {
			return out, err
		}
		res, err := b.Import(ctx, section)
		if err != nil {
			return out, fmt.Errorf("seeding %s: %w", b.OwnerType, err)
		}
		out[b.OwnerType] = res
	}
	return out, nil
}
