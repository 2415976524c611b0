package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/altmarkt/altmarkt-backend/internal/data/repos"
	"github.com/altmarkt/altmarkt-backend/internal/platform/logger"
	"github.com/altmarkt/altmarkt-backend/internal/types"
)

var ErrDuplicateItems = errors.New("items with these external ids already exist")

type ItemService interface {
	CreateItems(ctx context.Context, userID uuid.UUID, companyID uint, items []*types.Item) ([]*types.Item, error)
	ListItems(ctx context.Context, companyID uint, offset, limit int) ([]*types.Item, int64, error)
}

type itemService struct {
	db       *gorm.DB
	log      *logger.Logger
	itemRepo repos.ItemRepo
	company  CompanyService
}

func NewItemService(db *gorm.DB, log *logger.Logger, itemRepo repos.ItemRepo, company CompanyService) ItemService {
	return &itemService{
		db:       db,
		log:      log.With("service", "ItemService"),
		itemRepo: itemRepo,
		company:  company,
	}
}

// CreateItems bulk-creates manual catalog entries. External ids are
// tenant-scoped: the stored key is "{companyId}_{externalId}".
func (is *itemService) CreateItems(ctx context.Context, userID uuid.UUID, companyID uint, items []*types.Item) ([]*types.Item, error) {
	if err := is.company.RequireMember(ctx, companyID, userID); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no items provided")
	}

	externalIDs := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item.CompanyID = companyID
		key := strings.TrimSpace(item.ExternalID)
		if key == "" {
			return nil, fmt.Errorf("item %q: external id is required", item.Name)
		}
		item.ExternalID = fmt.Sprintf("%d_%s", companyID, key)
		if seen[item.ExternalID] {
			return nil, fmt.Errorf("duplicate external id %q in request", key)
		}
		seen[item.ExternalID] = true
		externalIDs = append(externalIDs, item.ExternalID)
	}

	existing, err := is.itemRepo.GetByExternalIDs(ctx, nil, externalIDs)
	if err != nil {
		return nil, fmt.Errorf("check existing items: %w", err)
	}
	if len(existing) > 0 {
		return nil, ErrDuplicateItems
	}

	var created []*types.Item
	err = is.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err = is.itemRepo.Create(ctx, tx, items)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create items: %w", err)
	}
	return created, nil
}

func (is *itemService) ListItems(ctx context.Context, companyID uint, offset, limit int) ([]*types.Item, int64, error) {
	return is.itemRepo.List(ctx, nil, companyID, offset, limit)
}
