package repos

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/altmarkt/altmarkt-backend/internal/platform/logger"
	"github.com/altmarkt/altmarkt-backend/internal/types"
)

type ProductRepo interface {
	// GetByExternalIDs projects only the external id and the image column;
	// it is the diff baseline for the exchange image sync.
	GetByExternalIDs(ctx context.Context, tx *gorm.DB, externalIDs []string) ([]*types.Product, error)
	// Upsert inserts by external id or updates all scalar fields. The image
	// column is deliberately excluded so a partial run never loses
	// previously synced asset metadata.
	Upsert(ctx context.Context, tx *gorm.DB, product *types.Product) error
	// UpdateImages overwrites the image column only.
	UpdateImages(ctx context.Context, tx *gorm.DB, externalID string, images datatypes.JSON) error
	GetByID(ctx context.Context, tx *gorm.DB, productID uint) (*types.Product, error)
	List(ctx context.Context, tx *gorm.DB, companyID uint, offset, limit int) ([]*types.Product, int64, error)
	ListIDs(ctx context.Context, tx *gorm.DB) ([]*types.Product, error)
}

type productRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
	repoLog := baseLog.With("repo", "ProductRepo")
	return &productRepo{db: db, log: repoLog}
}

func (pr *productRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return pr.db
}

func (pr *productRepo) GetByExternalIDs(ctx context.Context, tx *gorm.DB, externalIDs []string) ([]*types.Product, error) {
	var results []*types.Product
	if len(externalIDs) == 0 {
		return results, nil
	}
	if err := pr.conn(tx).WithContext(ctx).
		Select("external_id", "images").
		Where("external_id IN ?", externalIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

var productScalarColumns = []string{
	"company_id", "product_id", "characteristic_id", "number", "barcode",
	"name", "unit", "vat", "sell_price", "in_stock", "updated_at",
}

func (pr *productRepo) Upsert(ctx context.Context, tx *gorm.DB, product *types.Product) error {
	return pr.conn(tx).WithContext(ctx).
		Omit("images").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns(productScalarColumns),
		}).
		Create(product).Error
}

func (pr *productRepo) UpdateImages(ctx context.Context, tx *gorm.DB, externalID string, images datatypes.JSON) error {
	return pr.conn(tx).WithContext(ctx).
		Model(&types.Product{}).
		Where("external_id = ?", externalID).
		Update("images", images).Error
}

func (pr *productRepo) GetByID(ctx context.Context, tx *gorm.DB, productID uint) (*types.Product, error) {
	var results []*types.Product
	if err := pr.conn(tx).WithContext(ctx).
		Preload("Company").
		Where("id = ?", productID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (pr *productRepo) List(ctx context.Context, tx *gorm.DB, companyID uint, offset, limit int) ([]*types.Product, int64, error) {
	query := pr.conn(tx).WithContext(ctx).Model(&types.Product{})
	if companyID != 0 {
		query = query.Where("company_id = ?", companyID)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var results []*types.Product
	if err := query.
		Order("name DESC").
		Offset(offset).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (pr *productRepo) ListIDs(ctx context.Context, tx *gorm.DB) ([]*types.Product, error) {
	var results []*types.Product
	if err := pr.conn(tx).WithContext(ctx).
		Select("id", "updated_at").
		Order("id").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
