package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/altmarkt/altmarkt-backend/internal/platform/logger"
	"github.com/altmarkt/altmarkt-backend/internal/types"
)

type ItemRepo interface {
	Create(ctx context.Context, tx *gorm.DB, items []*types.Item) ([]*types.Item, error)
	GetByExternalIDs(ctx context.Context, tx *gorm.DB, externalIDs []string) ([]*types.Item, error)
	List(ctx context.Context, tx *gorm.DB, companyID uint, offset, limit int) ([]*types.Item, int64, error)
}

type itemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewItemRepo(db *gorm.DB, baseLog *logger.Logger) ItemRepo {
	repoLog := baseLog.With("repo", "ItemRepo")
	return &itemRepo{db: db, log: repoLog}
}

func (ir *itemRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return ir.db
}

func (ir *itemRepo) Create(ctx context.Context, tx *gorm.DB, items []*types.Item) ([]*types.Item, error) {
	if len(items) == 0 {
		return []*types.Item{}, nil
	}
	if err := ir.conn(tx).WithContext(ctx).Create(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (ir *itemRepo) GetByExternalIDs(ctx context.Context, tx *gorm.DB, externalIDs []string) ([]*types.Item, error) {
	var results []*types.Item
	if len(externalIDs) == 0 {
		return results, nil
	}
	if err := ir.conn(tx).WithContext(ctx).
		Where("external_id IN ?", externalIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ir *itemRepo) List(ctx context.Context, tx *gorm.DB, companyID uint, offset, limit int) ([]*types.Item, int64, error) {
	query := ir.conn(tx).WithContext(ctx).Model(&types.Item{})
	if companyID != 0 {
		query = query.Where("company_id = ?", companyID)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var results []*types.Item
	if err := query.
		Order("name DESC").
		Offset(offset).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}
