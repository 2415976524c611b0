package exchange

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/altmarkt/altmarkt-backend/internal/platform/logger"
	"github.com/altmarkt/altmarkt-backend/internal/types"
)

// Coordinator drives a tenant's exchange run end to end: lock, parse,
// reconcile, persist, image sync, cleanup. One Coordinator serves all
// tenants; per-tenant isolation comes from the folder lock.
type Coordinator struct {
	log       *logger.Logger
	scanner   *Scanner
	lock      *FolderLock
	products  ProductStore
	images    ImageStore
	companies CompanyGate
	sweep     SweepLock

	// sweepConcurrency caps parallel tenant runs inside RunAll.
	sweepConcurrency int
}

type CoordinatorConfig struct {
	Scanner          *Scanner
	Lock             *FolderLock
	Products         ProductStore
	Images           ImageStore
	Companies        CompanyGate
	Sweep            SweepLock
	SweepConcurrency int
}

func NewCoordinator(cfg CoordinatorConfig, baseLog *logger.Logger) *Coordinator {
	conc := cfg.SweepConcurrency
	if conc <= 0 {
		conc = 4
	}
	return &Coordinator{
		log:              baseLog.With("service", "ExchangeCoordinator"),
		scanner:          cfg.Scanner,
		lock:             cfg.Lock,
		products:         cfg.Products,
		images:           cfg.Images,
		companies:        cfg.Companies,
		sweep:            cfg.Sweep,
		sweepConcurrency: conc,
	}
}

// InProgress reports whether a run currently holds the tenant's folder lock.
func (c *Coordinator) InProgress(companyID uint) (bool, error) {
	return c.lock.Held(c.scanner.TenantDir(companyID))
}

// RunTenant processes every pending file pair for one tenant. The tenant
// folder is deleted on both success and failure; it survives only when the
// run never started (orphaned folder, or another run holds the lock).
func (c *Coordinator) RunTenant(ctx context.Context, companyID uint) RunResult {
	log := c.log.With("company_id", companyID)

	exists, err := c.companies.Exists(ctx, companyID)
	if err != nil {
		return RunResult{CompanyID: companyID, Status: StatusError, Code: KindOf(err), Err: err}
	}
	if !exists {
		log.Warn("Skipping exchange folder with no matching company")
		return RunResult{CompanyID: companyID, Status: StatusSkipped}
	}

	dir := c.scanner.TenantDir(companyID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return RunResult{CompanyID: companyID, Status: StatusSuccess}
	}
	acquired, err := c.lock.Acquire(dir)
	if err != nil {
		return RunResult{CompanyID: companyID, Status: StatusError, Code: KindOf(err), Err: err}
	}
	if !acquired {
		log.Info("Exchange run already in progress")
		return RunResult{CompanyID: companyID, Status: StatusProgress}
	}

	processed, err := c.processTenant(ctx, companyID, dir, log)

	// Terminal either way: the folder, marker included, goes away so the
	// next upload starts clean.
	if rmErr := os.RemoveAll(dir); rmErr != nil {
		log.Error("Failed to remove exchange folder after run", "error", rmErr)
	}

	if err != nil {
		log.Error("Exchange run failed", "error", err)
		return RunResult{CompanyID: companyID, Status: StatusError, Code: KindOf(err), Err: err, Products: processed}
	}
	log.Info("Exchange run finished", "products", processed)
	return RunResult{CompanyID: companyID, Status: StatusSuccess, Products: processed}
}

func (c *Coordinator) processTenant(ctx context.Context, companyID uint, dir string, log *logger.Logger) (int, error) {
	pairs, err := c.scanner.FindPairs(companyID)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, pair := range pairs {
		n, err := c.processPair(ctx, companyID, dir, pair, log)
		processed += n
		if err != nil {
			// Fail fast: remaining pairs are abandoned with the folder.
			return processed, err
		}
	}
	return processed, nil
}

func (c *Coordinator) processPair(ctx context.Context, companyID uint, dir string, pair FilePair, log *logger.Logger) (int, error) {
	impRaw, err := os.ReadFile(pair.ImportPath)
	if err != nil {
		return 0, &RunError{Kind: KindDiscovery, Err: fmt.Errorf("read %q: %w", pair.ImportPath, err)}
	}
	offRaw, err := os.ReadFile(pair.OffersPath)
	if err != nil {
		return 0, &RunError{Kind: KindDiscovery, Err: fmt.Errorf("read %q: %w", pair.OffersPath, err)}
	}

	imp, err := ParseImport(impRaw)
	if err != nil {
		return 0, err
	}
	off, err := ParseOffers(offRaw)
	if err != nil {
		return 0, err
	}

	synced := Reconcile(companyID, imp, off)
	if len(synced) == 0 {
		log.Info("Exchange pair produced no matched products", "import", filepath.Base(pair.ImportPath))
		return 0, nil
	}

	externalIDs := make([]string, 0, len(synced))
	for _, s := range synced {
		externalIDs = append(externalIDs, s.Product.ExternalID)
	}

	// Baseline before any write: image eligibility is judged against the
	// state preceding this run, not against rows the run itself upserted.
	baseline, err := c.products.FetchImages(ctx, externalIDs)
	if err != nil {
		return 0, err
	}

	for _, s := range synced {
		if err := c.products.Upsert(ctx, &s.Product); err != nil {
			return 0, err
		}
	}

	for _, s := range synced {
		if err := c.syncImages(ctx, dir, s, baseline[s.Product.ExternalID], imp.ContainsOnlyChanges, log); err != nil {
			return 0, err
		}
	}

	return len(synced), nil
}

// syncImages replaces a product's pipeline-origin images when eligible.
// Manually managed images (Exchange=false) are never counted or removed.
func (c *Coordinator) syncImages(ctx context.Context, dir string, s SyncProduct, existing []types.ProductImage, delta bool, log *logger.Logger) error {
	if len(s.ImageFiles) == 0 {
		return nil
	}

	var manual, pipeline []types.ProductImage
	for _, img := range existing {
		if img.Exchange {
			pipeline = append(pipeline, img)
		} else {
			manual = append(manual, img)
		}
	}

	if len(pipeline) > 0 && !delta {
		return nil
	}

	for _, old := range pipeline {
		// Best effort: an unreachable stale object must not sink the run.
		if err := c.images.Delete(ctx, old.ID); err != nil {
			log.Warn("Failed to delete stale exchange image", "image_id", old.ID, "error", err)
		}
	}

	uploaded := make([]types.ProductImage, 0, len(s.ImageFiles))
	for _, rel := range s.ImageFiles {
		img, err := c.images.Upload(ctx, filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return err
		}
		uploaded = append(uploaded, img)
	}

	final := append(manual, uploaded...)
	return c.products.ReplaceImages(ctx, s.Product.ExternalID, final)
}

// RunAll sweeps every tenant folder under the exchange root. The sweep lock
// keeps concurrent scheduler ticks and replicas from overlapping; individual
// tenant failures are collected, not fatal to the sweep.
func (c *Coordinator) RunAll(ctx context.Context) ([]RunResult, error) {
	if c.sweep != nil {
		ok, err := c.sweep.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			c.log.Info("Exchange sweep already running elsewhere")
			return nil, nil
		}
		defer func() {
			if err := c.sweep.Release(ctx); err != nil {
				c.log.Error("Failed to release sweep lock", "error", err)
			}
		}()
	}

	companyIDs, err := c.scanner.TenantFolders()
	if err != nil {
		return nil, err
	}
	if len(companyIDs) == 0 {
		return nil, nil
	}

	results := make([]RunResult, len(companyIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.sweepConcurrency)
	for i, id := range companyIDs {
		g.Go(func() error {
			results[i] = c.RunTenant(gctx, id)
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}
