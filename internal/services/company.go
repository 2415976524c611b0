package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/altmarkt/altmarkt-backend/internal/data/repos"
	"github.com/altmarkt/altmarkt-backend/internal/platform/gcs"
	"github.com/altmarkt/altmarkt-backend/internal/platform/logger"
	"github.com/altmarkt/altmarkt-backend/internal/types"
)

var (
	ErrCompanyNotFound = errors.New("company not found")
	ErrTinTaken        = errors.New("tin already registered")
	ErrNotMember       = errors.New("user is not a member of the company")
)

type CompanyService interface {
	CreateCompany(ctx context.Context, userID uuid.UUID, company *types.Company) (*types.Company, error)
	GetCompany(ctx context.Context, companyID uint) (*types.Company, error)
	ListCompanies(ctx context.Context, offset, limit int) ([]*types.Company, int64, error)
	UpdateCompany(ctx context.Context, userID uuid.UUID, company *types.Company) (*types.Company, error)
	UploadLogo(ctx context.Context, userID uuid.UUID, companyID uint, filename string, file io.Reader) (*types.Company, error)
	RequireMember(ctx context.Context, companyID uint, userID uuid.UUID) error
}

type companyService struct {
	db          *gorm.DB
	log         *logger.Logger
	companyRepo repos.CompanyRepo
	bucket      gcs.BucketService
}

func NewCompanyService(db *gorm.DB, log *logger.Logger, companyRepo repos.CompanyRepo, bucket gcs.BucketService) CompanyService {
	return &companyService{
		db:          db,
		log:         log.With("service", "CompanyService"),
		companyRepo: companyRepo,
		bucket:      bucket,
	}
}

func (cs *companyService) CreateCompany(ctx context.Context, userID uuid.UUID, company *types.Company) (*types.Company, error) {
	company.Name = strings.TrimSpace(company.Name)
	company.Tin = strings.TrimSpace(company.Tin)
	if company.Name == "" || company.Tin == "" {
		return nil, fmt.Errorf("name and tin are required")
	}
	if company.EntityType != types.EntityTypePhysical && company.EntityType != types.EntityTypeLegal {
		return nil, fmt.Errorf("unknown entity type %q", company.EntityType)
	}

	taken, err := cs.companyRepo.TinExists(ctx, nil, company.Tin)
	if err != nil {
		return nil, fmt.Errorf("check tin: %w", err)
	}
	if taken {
		return nil, ErrTinTaken
	}

	err = cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := cs.companyRepo.Create(ctx, tx, company)
		if err != nil {
			return fmt.Errorf("create company: %w", err)
		}
		company = created
		return cs.companyRepo.AddMember(ctx, tx, created.ID, userID)
	})
	if err != nil {
		return nil, err
	}
	return company, nil
}

func (cs *companyService) GetCompany(ctx context.Context, companyID uint) (*types.Company, error) {
	company, err := cs.companyRepo.GetByIDWithUsers(ctx, nil, companyID)
	if err != nil {
		return nil, fmt.Errorf("find company: %w", err)
	}
	if company == nil {
		return nil, ErrCompanyNotFound
	}
	return company, nil
}

func (cs *companyService) ListCompanies(ctx context.Context, offset, limit int) ([]*types.Company, int64, error) {
	return cs.companyRepo.List(ctx, nil, offset, limit)
}

func (cs *companyService) UpdateCompany(ctx context.Context, userID uuid.UUID, company *types.Company) (*types.Company, error) {
	if err := cs.RequireMember(ctx, company.ID, userID); err != nil {
		return nil, err
	}

	existing, err := cs.companyRepo.GetByID(ctx, nil, company.ID)
	if err != nil {
		return nil, fmt.Errorf("find company: %w", err)
	}
	if existing == nil {
		return nil, ErrCompanyNotFound
	}

	if tin := strings.TrimSpace(company.Tin); tin != "" && tin != existing.Tin {
		taken, err := cs.companyRepo.TinExists(ctx, nil, tin)
		if err != nil {
			return nil, fmt.Errorf("check tin: %w", err)
		}
		if taken {
			return nil, ErrTinTaken
		}
		existing.Tin = tin
	}
	if name := strings.TrimSpace(company.Name); name != "" {
		existing.Name = name
	}
	if company.EntityType != "" {
		existing.EntityType = company.EntityType
	}
	if company.Description != "" {
		existing.Description = company.Description
	}
	if company.ShortDescription != "" {
		existing.ShortDescription = company.ShortDescription
	}
	if len(company.Contacts) > 0 {
		existing.Contacts = company.Contacts
	}
	if len(company.Socials) > 0 {
		existing.Socials = company.Socials
	}

	updated, err := cs.companyRepo.Update(ctx, nil, existing)
	if err != nil {
		return nil, fmt.Errorf("update company: %w", err)
	}
	return updated, nil
}

func (cs *companyService) UploadLogo(ctx context.Context, userID uuid.UUID, companyID uint, filename string, file io.Reader) (*types.Company, error) {
	if err := cs.RequireMember(ctx, companyID, userID); err != nil {
		return nil, err
	}
	existing, err := cs.companyRepo.GetByID(ctx, nil, companyID)
	if err != nil {
		return nil, fmt.Errorf("find company: %w", err)
	}
	if existing == nil {
		return nil, ErrCompanyNotFound
	}

	key := fmt.Sprintf("companies/%d/%s", companyID, filename)
	obj, err := cs.bucket.UploadFile(ctx, key, file)
	if err != nil {
		return nil, fmt.Errorf("upload logo: %w", err)
	}

	encoded, err := types.EncodeImages([]types.ProductImage{{ID: obj.ID, URL: obj.URL}})
	if err != nil {
		return nil, fmt.Errorf("encode logo descriptor: %w", err)
	}
	existing.Image = encoded

	updated, err := cs.companyRepo.Update(ctx, nil, existing)
	if err != nil {
		return nil, fmt.Errorf("update company image: %w", err)
	}
	return updated, nil
}

func (cs *companyService) RequireMember(ctx context.Context, companyID uint, userID uuid.UUID) error {
	member, err := cs.companyRepo.IsMember(ctx, nil, companyID, userID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return ErrNotMember
	}
	return nil
}
