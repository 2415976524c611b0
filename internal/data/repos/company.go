package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/altmarkt/altmarkt-backend/internal/platform/logger"
	"github.com/altmarkt/altmarkt-backend/internal/types"
)

type CompanyRepo interface {
	Create(ctx context.Context, tx *gorm.DB, company *types.Company) (*types.Company, error)
	GetByID(ctx context.Context, tx *gorm.DB, companyID uint) (*types.Company, error)
	GetByIDWithUsers(ctx context.Context, tx *gorm.DB, companyID uint) (*types.Company, error)
	TinExists(ctx context.Context, tx *gorm.DB, tin string) (bool, error)
	List(ctx context.Context, tx *gorm.DB, offset, limit int) ([]*types.Company, int64, error)
	ListIDs(ctx context.Context, tx *gorm.DB) ([]*types.Company, error)
	Update(ctx context.Context, tx *gorm.DB, company *types.Company) (*types.Company, error)
	Delete(ctx context.Context, tx *gorm.DB, companyID uint) error
	AddMember(ctx context.Context, tx *gorm.DB, companyID uint, userID uuid.UUID) error
	IsMember(ctx context.Context, tx *gorm.DB, companyID uint, userID uuid.UUID) (bool, error)
	MemberCompanyIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]uint, error)
	MemberCount(ctx context.Context, tx *gorm.DB, companyID uint) (int64, error)
}

type companyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCompanyRepo(db *gorm.DB, baseLog *logger.Logger) CompanyRepo {
	repoLog := baseLog.With("repo", "CompanyRepo")
	return &companyRepo{db: db, log: repoLog}
}

func (cr *companyRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return cr.db
}

func (cr *companyRepo) Create(ctx context.Context, tx *gorm.DB, company *types.Company) (*types.Company, error) {
	if err := cr.conn(tx).WithContext(ctx).Create(company).Error; err != nil {
		return nil, err
	}
	return company, nil
}

func (cr *companyRepo) GetByID(ctx context.Context, tx *gorm.DB, companyID uint) (*types.Company, error) {
	var results []*types.Company
	if err := cr.conn(tx).WithContext(ctx).
		Where("id = ?", companyID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (cr *companyRepo) GetByIDWithUsers(ctx context.Context, tx *gorm.DB, companyID uint) (*types.Company, error) {
	var results []*types.Company
	if err := cr.conn(tx).WithContext(ctx).
		Preload("Users").
		Where("id = ?", companyID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (cr *companyRepo) TinExists(ctx context.Context, tx *gorm.DB, tin string) (bool, error) {
	var count int64
	if err := cr.conn(tx).WithContext(ctx).
		Model(&types.Company{}).
		Where("tin = ?", tin).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (cr *companyRepo) List(ctx context.Context, tx *gorm.DB, offset, limit int) ([]*types.Company, int64, error) {
	var total int64
	if err := cr.conn(tx).WithContext(ctx).
		Model(&types.Company{}).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var results []*types.Company
	if err := cr.conn(tx).WithContext(ctx).
		Order("name DESC").
		Offset(offset).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (cr *companyRepo) ListIDs(ctx context.Context, tx *gorm.DB) ([]*types.Company, error) {
	var results []*types.Company
	if err := cr.conn(tx).WithContext(ctx).
		Select("id", "updated_at").
		Order("name DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *companyRepo) Update(ctx context.Context, tx *gorm.DB, company *types.Company) (*types.Company, error) {
	if err := cr.conn(tx).WithContext(ctx).Save(company).Error; err != nil {
		return nil, err
	}
	return company, nil
}

func (cr *companyRepo) Delete(ctx context.Context, tx *gorm.DB, companyID uint) error {
	return cr.conn(tx).WithContext(ctx).
		Where("id = ?", companyID).
		Delete(&types.Company{}).Error
}

func (cr *companyRepo) AddMember(ctx context.Context, tx *gorm.DB, companyID uint, userID uuid.UUID) error {
	member := types.CompanyMember{CompanyID: companyID, UserID: userID}
	return cr.conn(tx).WithContext(ctx).Create(&member).Error
}

func (cr *companyRepo) IsMember(ctx context.Context, tx *gorm.DB, companyID uint, userID uuid.UUID) (bool, error) {
	var count int64
	if err := cr.conn(tx).WithContext(ctx).
		Model(&types.CompanyMember{}).
		Where("company_id = ? AND user_id = ?", companyID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (cr *companyRepo) MemberCompanyIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]uint, error) {
	var ids []uint
	if err := cr.conn(tx).WithContext(ctx).
		Model(&types.CompanyMember{}).
		Where("user_id = ?", userID).
		Pluck("company_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (cr *companyRepo) MemberCount(ctx context.Context, tx *gorm.DB, companyID uint) (int64, error) {
	var count int64
	if err := cr.conn(tx).WithContext(ctx).
		Model(&types.CompanyMember{}).
		Where("company_id = ?", companyID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
