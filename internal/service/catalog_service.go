package service

import (
	"context"

	"github.com/spec-kit/catalog-gate/internal/catalog"
	"github.com/spec-kit/catalog-gate/internal/domain"
)

// MaxPageSize caps the page size a caller may request.
const MaxPageSize = 100

// CatalogService serves the product screens.
type CatalogService struct {
	client   catalog.Client
	pageSize int
}

// NewCatalogService builds the service. pageSize falls back to
// catalog.DefaultLimit when not positive.
func NewCatalogService(client catalog.Client, pageSize int) *CatalogService {
	if pageSize <= 0 {
		pageSize = catalog.DefaultLimit
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return &CatalogService{client: client, pageSize: pageSize}
}

// Home returns one page of products. A zero limit selects the configured
// page size.
func (s *CatalogService) Home(ctx context.Context, limit, skip int) (*domain.ProductPage, error) {
	if limit < 0 || skip < 0 || limit > MaxPageSize {
		return nil, catalog.ErrInvalidArgument
	}
	if limit == 0 {
		limit = s.pageSize
	}
	return s.client.List(ctx, limit, skip)
}

// Product returns a single product.
func (s *CatalogService) Product(ctx context.Context, id int) (*domain.Product, error) {
	if id <= 0 {
		return nil, catalog.ErrInvalidArgument
	}
	return s.client.GetByID(ctx, id)
}
