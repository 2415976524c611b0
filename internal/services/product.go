package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/altmarkt/altmarkt-backend/internal/data/repos"
	"github.com/altmarkt/altmarkt-backend/internal/platform/logger"
	"github.com/altmarkt/altmarkt-backend/internal/types"
)

var ErrProductNotFound = errors.New("product not found")

// ProductService is the read side of the exchange-synced catalog; writes go
// through the exchange pipeline only.
type ProductService interface {
	GetProduct(ctx context.Context, productID uint) (*types.Product, error)
	ListProducts(ctx context.Context, companyID uint, offset, limit int) ([]*types.Product, int64, error)
	ListProductIDs(ctx context.Context) ([]*types.Product, error)
}

type productService struct {
	db          *gorm.DB
	log         *logger.Logger
	productRepo repos.ProductRepo
}

func NewProductService(db *gorm.DB, log *logger.Logger, productRepo repos.ProductRepo) ProductService {
	return &productService{
		db:          db,
		log:         log.With("service", "ProductService"),
		productRepo: productRepo,
	}
}

func (ps *productService) GetProduct(ctx context.Context, productID uint) (*types.Product, error) {
	product, err := ps.productRepo.GetByID(ctx, nil, productID)
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

func (ps *productService) ListProducts(ctx context.Context, companyID uint, offset, limit int) ([]*types.Product, int64, error) {
	return ps.productRepo.List(ctx, nil, companyID, offset, limit)
}

// ListProductIDs returns id and updated_at only, for sitemap generation.
func (ps *productService) ListProductIDs(ctx context.Context) ([]*types.Product, error) {
	return ps.productRepo.ListIDs(ctx, nil)
}
