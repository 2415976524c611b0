package exchange

import (
	"context"
	"fmt"

	"github.com/altmarkt/altmarkt-backend/internal/data/repos"
	"github.com/altmarkt/altmarkt-backend/internal/platform/gcs"
	"github.com/altmarkt/altmarkt-backend/internal/types"
)

// Production adapters binding the pipeline's collaborator interfaces to the
// GORM repos and the bucket service.

type gormProductStore struct {
	products repos.ProductRepo
}

func NewGormProductStore(products repos.ProductRepo) ProductStore {
	return &gormProductStore{products: products}
}

func (s *gormProductStore) FetchImages(ctx context.Context, externalIDs []string) (map[string][]types.ProductImage, error) {
	rows, err := s.products.GetByExternalIDs(ctx, nil, externalIDs)
	if err != nil {
		return nil, &RunError{Kind: KindPersistence, Err: fmt.Errorf("fetch image baseline: %w", err)}
	}
	baseline := make(map[string][]types.ProductImage, len(rows))
	for _, row := range rows {
		images, err := row.DecodeImages()
		if err != nil {
			return nil, &RunError{Kind: KindPersistence, Err: fmt.Errorf("decode images of %s: %w", row.ExternalID, err)}
		}
		baseline[row.ExternalID] = images
	}
	return baseline, nil
}

func (s *gormProductStore) Upsert(ctx context.Context, product *types.Product) error {
	if err := s.products.Upsert(ctx, nil, product); err != nil {
		return &RunError{Kind: KindPersistence, Err: fmt.Errorf("upsert %s: %w", product.ExternalID, err)}
	}
	return nil
}

func (s *gormProductStore) ReplaceImages(ctx context.Context, externalID string, images []types.ProductImage) error {
	encoded, err := types.EncodeImages(images)
	if err != nil {
		return &RunError{Kind: KindPersistence, Err: fmt.Errorf("encode images of %s: %w", externalID, err)}
	}
	if err := s.products.UpdateImages(ctx, nil, externalID, encoded); err != nil {
		return &RunError{Kind: KindPersistence, Err: fmt.Errorf("update images of %s: %w", externalID, err)}
	}
	return nil
}

type bucketImageStore struct {
	bucket    gcs.BucketService
	keyPrefix string
}

func NewBucketImageStore(bucket gcs.BucketService) ImageStore {
	return &bucketImageStore{bucket: bucket, keyPrefix: "products"}
}

func (s *bucketImageStore) Upload(ctx context.Context, localPath string) (types.ProductImage, error) {
	obj, err := s.bucket.UploadLocalFile(ctx, s.keyPrefix, localPath)
	if err != nil {
		return types.ProductImage{}, &RunError{Kind: KindAsset, Err: fmt.Errorf("upload %q: %w", localPath, err)}
	}
	return types.ProductImage{ID: obj.ID, URL: obj.URL, Exchange: true}, nil
}

func (s *bucketImageStore) Delete(ctx context.Context, imageID string) error {
	return s.bucket.DeleteFile(ctx, imageID)
}

type gormCompanyGate struct {
	companies repos.CompanyRepo
}

func NewGormCompanyGate(companies repos.CompanyRepo) CompanyGate {
	return &gormCompanyGate{companies: companies}
}

func (g *gormCompanyGate) Exists(ctx context.Context, companyID uint) (bool, error) {
	company, err := g.companies.GetByID(ctx, nil, companyID)
	if err != nil {
		return false, &RunError{Kind: KindPersistence, Err: fmt.Errorf("find company %d: %w", companyID, err)}
	}
	return company != nil, nil
}
