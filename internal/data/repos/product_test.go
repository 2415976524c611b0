package repos

import (
	"context"
	"os"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/altmarkt/altmarkt-backend/internal/platform/logger"
	"github.com/altmarkt/altmarkt-backend/internal/types"
)

// testDB connects to the database named by TEST_POSTGRES_DSN; tests that
// need a live database are skipped when it is unset.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.AutoMigrate(&types.Company{}, &types.Product{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		db.Exec(`DELETE FROM "product"`)
		db.Exec(`DELETE FROM "company"`)
	})
	return db
}

func TestProductUpsertPreservesImages(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	log := logger.NewNop()
	repo := NewProductRepo(db, log)

	company := types.Company{Name: "Test Co", Tin: "7700000001", EntityType: types.EntityTypeLegal}
	if err := db.Create(&company).Error; err != nil {
		t.Fatalf("create company: %v", err)
	}

	product := &types.Product{
		CompanyID:  company.ID,
		ExternalID: "1#55X",
		ProductID:  "1#55",
		Name:       "Widget",
		SellPrice:  1000,
		InStock:    10,
	}
	if err := repo.Upsert(ctx, nil, product); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	images, err := types.EncodeImages([]types.ProductImage{{ID: "obj-1", URL: "https://cdn.test/obj-1", Exchange: true}})
	if err != nil {
		t.Fatalf("encode images: %v", err)
	}
	if err := repo.UpdateImages(ctx, nil, "1#55X", images); err != nil {
		t.Fatalf("update images: %v", err)
	}

	// A second upsert for the same external id updates scalars but must
	// leave the image column alone.
	second := &types.Product{
		CompanyID:  company.ID,
		ExternalID: "1#55X",
		ProductID:  "1#55",
		Name:       "Widget v2",
		SellPrice:  1200,
		InStock:    5,
	}
	if err := repo.Upsert(ctx, nil, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	rows, err := repo.GetByExternalIDs(ctx, nil, []string{"1#55X"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	decoded, err := rows[0].DecodeImages()
	if err != nil {
		t.Fatalf("decode images: %v", err)
	}
	if len(decoded) != 1 || decoded[0].ID != "obj-1" || !decoded[0].Exchange {
		t.Errorf("images after upsert = %+v, want the prior descriptor intact", decoded)
	}

	// The baseline projection carries no primary key; fetch the full row
	// through List to check the scalar update.
	listed, _, err := repo.List(ctx, nil, company.ID, 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("got %d rows, want 1", len(listed))
	}
	full := listed[0]
	if full.Name != "Widget v2" || full.SellPrice != 1200 || full.InStock != 5 {
		t.Errorf("scalars not updated: %+v", full)
	}
}

func TestProductList(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	log := logger.NewNop()
	repo := NewProductRepo(db, log)

	company := types.Company{Name: "Test Co", Tin: "7700000002", EntityType: types.EntityTypePhysical}
	if err := db.Create(&company).Error; err != nil {
		t.Fatalf("create company: %v", err)
	}
	for i, ext := range []string{"2#1", "2#2", "2#3"} {
		p := &types.Product{CompanyID: company.ID, ExternalID: ext, ProductID: ext, Name: "P", SellPrice: i}
		if err := repo.Upsert(ctx, nil, p); err != nil {
			t.Fatalf("upsert %s: %v", ext, err)
		}
	}

	products, total, err := repo.List(ctx, nil, company.ID, 0, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(products) != 2 {
		t.Errorf("page size = %d, want 2", len(products))
	}
}
