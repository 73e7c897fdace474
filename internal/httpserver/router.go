package httpserver

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"product-catalog/internal/domain"
	"product-catalog/internal/export"
	"product-catalog/internal/importer"
	"product-catalog/internal/service/product"
)

// ReferenceService manages categories, departments and manufacturers.
type ReferenceService interface {
	List(ctx context.Context, kind domain.ReferenceKind) ([]domain.Reference, error)
	Rename(ctx context.Context, kind domain.ReferenceKind, id int64, name string) (*domain.Reference, error)
	Delete(ctx context.Context, kind domain.ReferenceKind, id int64) error
	CategoryProducts(ctx context.Context, categoryID int64) ([]domain.Product, error)
}

type ProductService interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
	Update(ctx context.Context, id int64, in product.UpdateInput) (*domain.Product, error)
	Delete(ctx context.Context, id int64) error
	Export(ctx context.Context, categoryID int64, format export.Format) (string, error)
}

type ImportService interface {
	Upload(ctx context.Context, filename string, r io.Reader) (importer.Snapshot, error)
	Status(ctx context.Context, id string) (importer.Snapshot, error)
	Cancel(ctx context.Context, id string) (importer.Snapshot, error)
}

// RequestObserver records per-route request metrics.
type RequestObserver interface {
	ObserveRequest(method, route string, code int, d time.Duration)
}

// Deps are the services behind the routes. Nil services leave their routes
// unregistered.
type Deps struct {
	References ReferenceService
	Products   ProductService
	Imports    ImportService
	DB         Pinger
	Metrics    RequestObserver
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

// buildRouter wires routes for the API.
func buildRouter(opts Options, deps Deps, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	router := gin.New()
	router.Use(requestLogger(logger), recovery(logger))
	if deps.Metrics != nil {
		router.Use(observeRequests(deps.Metrics))
	}
	if len(opts.CORSOrigins) > 0 {
		cfg := cors.DefaultConfig()
		cfg.AllowOrigins = opts.CORSOrigins
		cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
		router.Use(cors.New(cfg))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.DB))
	if deps.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}
	if opts.ExportDir != "" {
		router.Static("/storage/csv", opts.ExportDir)
	}

	if deps.References != nil {
		h := &catalogHandler{refs: deps.References, logger: logger}
		categories := router.Group("/categories")
		categories.GET("", h.list(domain.KindCategory))
		categories.PUT("/:id", h.rename(domain.KindCategory))
		categories.DELETE("/:id", h.delete(domain.KindCategory))
		categories.GET("/:id/products", h.categoryProducts)

		router.GET("/departments", h.list(domain.KindDepartment))
		router.GET("/manufacturers", h.list(domain.KindManufacturer))
	}

	if deps.Products != nil {
		h := &productHandler{products: deps.Products, logger: logger}
		products := router.Group("/products")
		products.GET("", h.list)
		products.GET("/:id", h.get)
		products.PUT("/:id", h.update)
		products.DELETE("/:id", h.delete)
		products.GET("/generate-csv/:categoryId", h.export)
	}

	if deps.Imports != nil {
		maxUpload := opts.MaxUploadBytes
		if maxUpload <= 0 {
			maxUpload = 64 << 20
		}
		h := &importHandler{imports: deps.Imports, logger: logger, maxUpload: maxUpload}
		imports := router.Group("/imports")
		imports.POST("", h.upload)
		imports.GET("/:id", h.status)
		imports.DELETE("/:id", h.cancel)
	}

	return router
}
