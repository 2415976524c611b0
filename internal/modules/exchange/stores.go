package exchange

import (
	"context"

	"github.com/altmarkt/altmarkt-backend/internal/types"
)

// ProductStore is the pipeline's view of the product table.
type ProductStore interface {
	// FetchImages returns the current image descriptor lists for the given
	// external ids. Missing ids are simply absent from the map.
	FetchImages(ctx context.Context, externalIDs []string) (map[string][]types.ProductImage, error)
	// Upsert inserts or updates the scalar fields of one product, keyed by
	// external id. It must never touch the image column.
	Upsert(ctx context.Context, product *types.Product) error
	// ReplaceImages overwrites the image column of one product.
	ReplaceImages(ctx context.Context, externalID string, images []types.ProductImage) error
}

// ImageStore is the opaque image-hosting collaborator.
type ImageStore interface {
	Upload(ctx context.Context, localPath string) (types.ProductImage, error)
	Delete(ctx context.Context, imageID string) error
}

// CompanyGate answers whether a tenant exists; orphaned exchange folders are
// skipped and left for external cleanup.
type CompanyGate interface {
	Exists(ctx context.Context, companyID uint) (bool, error)
}
