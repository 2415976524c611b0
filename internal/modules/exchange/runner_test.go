package exchange

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/altmarkt/altmarkt-backend/internal/platform/logger"
	"github.com/altmarkt/altmarkt-backend/internal/types"
)

type fakeProductStore struct {
	mu       sync.Mutex
	images   map[string][]types.ProductImage
	upserts  []types.Product
	replaced map[string][]types.ProductImage
	failOn   string
}

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{
		images:   make(map[string][]types.ProductImage),
		replaced: make(map[string][]types.ProductImage),
	}
}

func (s *fakeProductStore) FetchImages(_ context.Context, externalIDs []string) (map[string][]types.ProductImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]types.ProductImage)
	for _, id := range externalIDs {
		if imgs, ok := s.images[id]; ok {
			out[id] = imgs
		}
	}
	return out, nil
}

func (s *fakeProductStore) Upsert(_ context.Context, product *types.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != "" && product.ExternalID == s.failOn {
		return &RunError{Kind: KindPersistence, Err: fmt.Errorf("forced upsert failure")}
	}
	s.upserts = append(s.upserts, *product)
	return nil
}

func (s *fakeProductStore) ReplaceImages(_ context.Context, externalID string, images []types.ProductImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaced[externalID] = images
	return nil
}

type fakeImageStore struct {
	mu      sync.Mutex
	uploads []string
	deletes []string
	failAll bool
}

func (s *fakeImageStore) Upload(_ context.Context, localPath string) (types.ProductImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return types.ProductImage{}, &RunError{Kind: KindAsset, Err: fmt.Errorf("forced upload failure")}
	}
	s.uploads = append(s.uploads, localPath)
	id := fmt.Sprintf("obj-%d", len(s.uploads))
	return types.ProductImage{ID: id, URL: "https://cdn.test/" + id, Exchange: true}, nil
}

func (s *fakeImageStore) Delete(_ context.Context, imageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, imageID)
	return nil
}

type fakeCompanyGate struct {
	known map[uint]bool
}

func (g *fakeCompanyGate) Exists(_ context.Context, companyID uint) (bool, error) {
	return g.known[companyID], nil
}

type testEnv struct {
	root     string
	co       *Coordinator
	products *fakeProductStore
	images   *fakeImageStore
}

func newTestEnv(t *testing.T, companies ...uint) *testEnv {
	t.Helper()
	root := t.TempDir()
	log := logger.NewNop()
	known := make(map[uint]bool)
	for _, id := range companies {
		known[id] = true
	}
	products := newFakeProductStore()
	images := &fakeImageStore{}
	co := NewCoordinator(CoordinatorConfig{
		Scanner:   NewScanner(root, log),
		Lock:      NewFolderLock(time.Hour, log),
		Products:  products,
		Images:    images,
		Companies: &fakeCompanyGate{known: known},
	}, log)
	return &testEnv{root: root, co: co, products: products, images: images}
}

func (e *testEnv) writeTenantFile(t *testing.T, companyID uint, name, content string) {
	t.Helper()
	path := filepath.Join(e.root, fmt.Sprint(companyID), name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) folderExists(companyID uint) bool {
	_, err := os.Stat(filepath.Join(e.root, fmt.Sprint(companyID)))
	return err == nil
}

const runnerImportDoc = `<КоммерческаяИнформация><Каталог><Товары>
  <Товар>
    <Ид>55#X</Ид>
    <Наименование>Widget</Наименование>
    <Картинка>import_files/widget.jpg</Картинка>
  </Товар>
</Товары></Каталог></КоммерческаяИнформация>`

const runnerOffersDoc = `<КоммерческаяИнформация><ПакетПредложений><Предложения>
  <Предложение>
    <Ид>55#X</Ид>
    <Цены><Цена><ЦенаЗаЕдиницу>1000</ЦенаЗаЕдиницу></Цена></Цены>
    <Количество>10</Количество>
  </Предложение>
</Предложения></ПакетПредложений></КоммерческаяИнформация>`

func TestRunTenantSuccess(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 7)
	env.writeTenantFile(t, 7, "import0_1.xml", runnerImportDoc)
	env.writeTenantFile(t, 7, "offers0_1.xml", runnerOffersDoc)
	env.writeTenantFile(t, 7, filepath.Join("import_files", "widget.jpg"), "jpegdata")

	res := env.co.RunTenant(context.Background(), 7)
	if res.Status != StatusSuccess {
		t.Fatalf("Status = %q (err %v), want success", res.Status, res.Err)
	}
	if res.Products != 1 {
		t.Errorf("Products = %d, want 1", res.Products)
	}

	if len(env.products.upserts) != 1 {
		t.Fatalf("got %d upserts, want 1", len(env.products.upserts))
	}
	p := env.products.upserts[0]
	if p.ExternalID != "7#55X" || p.Name != "Widget" || p.SellPrice != 1000 || p.InStock != 10 {
		t.Errorf("unexpected upserted product: %+v", p)
	}

	if len(env.images.uploads) != 1 {
		t.Fatalf("got %d uploads, want 1", len(env.images.uploads))
	}
	final := env.products.replaced["7#55X"]
	if len(final) != 1 || !final[0].Exchange {
		t.Errorf("replaced images = %+v, want one pipeline image", final)
	}

	if env.folderExists(7) {
		t.Error("tenant folder survived a successful run")
	}
}

func TestRunTenantWithoutImageFiles(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 7)
	env.products.images["7#55X"] = []types.ProductImage{{ID: "old", URL: "u", Exchange: true}}
	noImages := `<КоммерческаяИнформация><Каталог СодержитТолькоИзменения="true"><Товары>
	  <Товар><Ид>55#X</Ид><Наименование>Widget</Наименование></Товар>
	</Товары></Каталог></КоммерческаяИнформация>`
	env.writeTenantFile(t, 7, "import0_1.xml", noImages)
	env.writeTenantFile(t, 7, "offers0_1.xml", runnerOffersDoc)

	res := env.co.RunTenant(context.Background(), 7)
	if res.Status != StatusSuccess {
		t.Fatalf("Status = %q (err %v), want success", res.Status, res.Err)
	}
	if res.Products != 1 {
		t.Errorf("Products = %d, want 1", res.Products)
	}
	if len(env.products.upserts) != 1 {
		t.Fatalf("got %d upserts, want 1", len(env.products.upserts))
	}

	// An entry without picture elements must leave the image state alone
	// entirely, even on a delta feed with replaceable pipeline images.
	if len(env.images.uploads) != 0 {
		t.Errorf("image-less entry uploaded %d images", len(env.images.uploads))
	}
	if len(env.images.deletes) != 0 {
		t.Errorf("image-less entry deleted %d images", len(env.images.deletes))
	}
	if _, ok := env.products.replaced["7#55X"]; ok {
		t.Error("image column rewritten for an entry without picture elements")
	}

	if env.folderExists(7) {
		t.Error("tenant folder survived a successful run")
	}
}

func TestRunTenantOrphanSkipped(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t) // no companies known
	env.writeTenantFile(t, 42, "import0_1.xml", runnerImportDoc)

	res := env.co.RunTenant(context.Background(), 42)
	if res.Status != StatusSkipped {
		t.Fatalf("Status = %q, want skipped", res.Status)
	}
	if !env.folderExists(42) {
		t.Error("orphaned folder was deleted; it must be left in place")
	}
	if len(env.products.upserts) != 0 {
		t.Errorf("orphan run wrote %d products", len(env.products.upserts))
	}
}

func TestRunTenantContention(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 7)
	env.writeTenantFile(t, 7, "import0_1.xml", runnerImportDoc)
	env.writeTenantFile(t, 7, "offers0_1.xml", runnerOffersDoc)
	if err := os.Mkdir(filepath.Join(env.root, "7", MarkerName), 0o755); err != nil {
		t.Fatal(err)
	}

	res := env.co.RunTenant(context.Background(), 7)
	if res.Status != StatusProgress {
		t.Fatalf("Status = %q, want progress", res.Status)
	}
	if len(env.products.upserts) != 0 {
		t.Errorf("contended run wrote %d products", len(env.products.upserts))
	}
	if !env.folderExists(7) {
		t.Error("tenant folder deleted while another run held the lock")
	}

	held, err := env.co.InProgress(7)
	if err != nil {
		t.Fatalf("InProgress: %v", err)
	}
	if !held {
		t.Error("InProgress = false while marker exists")
	}
}

func TestRunTenantParseFailureCleansUp(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 7)
	env.writeTenantFile(t, 7, "import0_1.xml", "<Каталог>")
	env.writeTenantFile(t, 7, "offers0_1.xml", runnerOffersDoc)

	res := env.co.RunTenant(context.Background(), 7)
	if res.Status != StatusError {
		t.Fatalf("Status = %q, want error", res.Status)
	}
	if res.Code != KindParse {
		t.Errorf("Code = %q, want %q", res.Code, KindParse)
	}
	if env.folderExists(7) {
		t.Error("tenant folder survived a failed run")
	}
}

func TestRunTenantUploadFailureCleansUp(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 7)
	env.images.failAll = true
	env.writeTenantFile(t, 7, "import0_1.xml", runnerImportDoc)
	env.writeTenantFile(t, 7, "offers0_1.xml", runnerOffersDoc)

	res := env.co.RunTenant(context.Background(), 7)
	if res.Status != StatusError || res.Code != KindAsset {
		t.Fatalf("Status = %q Code = %q, want error/%s", res.Status, res.Code, KindAsset)
	}
	if env.folderExists(7) {
		t.Error("tenant folder survived a failed run")
	}
	// The scalar upsert preceding the image stage still happened.
	if len(env.products.upserts) != 1 {
		t.Errorf("got %d upserts, want 1", len(env.products.upserts))
	}
}

func TestRunTenantImageEligibility(t *testing.T) {
	t.Parallel()

	t.Run("existing pipeline image blocks full feed", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, 7)
		env.products.images["7#55X"] = []types.ProductImage{{ID: "old", URL: "u", Exchange: true}}
		env.writeTenantFile(t, 7, "import0_1.xml", runnerImportDoc)
		env.writeTenantFile(t, 7, "offers0_1.xml", runnerOffersDoc)

		res := env.co.RunTenant(context.Background(), 7)
		if res.Status != StatusSuccess {
			t.Fatalf("Status = %q (err %v)", res.Status, res.Err)
		}
		if len(env.images.uploads) != 0 {
			t.Errorf("ineligible product uploaded %d images", len(env.images.uploads))
		}
		if _, ok := env.products.replaced["7#55X"]; ok {
			t.Error("image column replaced for ineligible product")
		}
	})

	t.Run("delta feed replaces pipeline images and keeps manual ones", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, 7)
		env.products.images["7#55X"] = []types.ProductImage{
			{ID: "old", URL: "u", Exchange: true},
			{ID: "manual", URL: "m", Exchange: false},
		}
		delta := `<КоммерческаяИнформация><Каталог СодержитТолькоИзменения="true"><Товары>
		  <Товар><Ид>55#X</Ид><Наименование>Widget</Наименование><Картинка>import_files/widget.jpg</Картинка></Товар>
		</Товары></Каталог></КоммерческаяИнформация>`
		env.writeTenantFile(t, 7, "import0_1.xml", delta)
		env.writeTenantFile(t, 7, "offers0_1.xml", runnerOffersDoc)
		env.writeTenantFile(t, 7, filepath.Join("import_files", "widget.jpg"), "jpegdata")

		res := env.co.RunTenant(context.Background(), 7)
		if res.Status != StatusSuccess {
			t.Fatalf("Status = %q (err %v)", res.Status, res.Err)
		}
		if len(env.images.deletes) != 1 || env.images.deletes[0] != "old" {
			t.Errorf("deletes = %v, want only the stale pipeline image", env.images.deletes)
		}
		final := env.products.replaced["7#55X"]
		if len(final) != 2 {
			t.Fatalf("final images = %+v, want manual + new", final)
		}
		if final[0].ID != "manual" || final[0].Exchange {
			t.Errorf("manual image not preserved first: %+v", final[0])
		}
		if !final[1].Exchange {
			t.Errorf("new image missing pipeline origin: %+v", final[1])
		}
	})
}

func TestRunAll(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, 7, 8)
	env.writeTenantFile(t, 7, "import0_1.xml", runnerImportDoc)
	env.writeTenantFile(t, 7, "offers0_1.xml", runnerOffersDoc)
	env.writeTenantFile(t, 7, filepath.Join("import_files", "widget.jpg"), "jpegdata")
	env.writeTenantFile(t, 8, "import0_1.xml", "<Каталог>") // fails to parse
	env.writeTenantFile(t, 8, "offers0_1.xml", runnerOffersDoc)
	env.writeTenantFile(t, 9, "import0_1.xml", runnerImportDoc) // orphan

	results, err := env.co.RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	byCompany := make(map[uint]RunResult, len(results))
	for _, r := range results {
		byCompany[r.CompanyID] = r
	}
	if got := byCompany[7].Status; got != StatusSuccess {
		t.Errorf("company 7: Status = %q, want success", got)
	}
	if got := byCompany[8].Status; got != StatusError {
		t.Errorf("company 8: Status = %q, want error", got)
	}
	if got := byCompany[9].Status; got != StatusSkipped {
		t.Errorf("company 9: Status = %q, want skipped", got)
	}
	if !env.folderExists(9) {
		t.Error("orphaned folder removed by sweep")
	}
}
