package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/altmarkt/altmarkt-backend/internal/modules/exchange"
	"github.com/altmarkt/altmarkt-backend/internal/platform/logger"
)

// ExchangeService is the HTTP-facing side of the exchange integration: it
// receives uploaded feed files and triggers ingestion runs.
type ExchangeService interface {
	ReceiveFile(ctx context.Context, companyID uint, filename string, body io.Reader) (int64, error)
	RunTenant(ctx context.Context, companyID uint) exchange.RunResult
	RunAll(ctx context.Context) ([]exchange.RunResult, error)
	InProgress(companyID uint) (bool, error)
	FileLimit() int64
}

type exchangeService struct {
	log       *logger.Logger
	scanner   *exchange.Scanner
	runner    *exchange.Coordinator
	fileLimit int64
}

func NewExchangeService(log *logger.Logger, scanner *exchange.Scanner, runner *exchange.Coordinator, fileLimit int64) ExchangeService {
	if fileLimit <= 0 {
		fileLimit = 100 << 20
	}
	return &exchangeService{
		log:       log.With("service", "ExchangeService"),
		scanner:   scanner,
		runner:    runner,
		fileLimit: fileLimit,
	}
}

func (es *exchangeService) FileLimit() int64 {
	return es.fileLimit
}

// ReceiveFile streams one uploaded feed file into the tenant's exchange
// folder. Relative subpaths are allowed (image payloads arrive as
// "import_files/..."), traversal outside the folder is not. A body larger
// than the configured limit rejects the upload; a truncated feed or image
// must never be accepted as a success.
func (es *exchangeService) ReceiveFile(ctx context.Context, companyID uint, filename string, body io.Reader) (int64, error) {
	rel, err := sanitizeRelPath(filename)
	if err != nil {
		return 0, err
	}

	dir := es.scanner.TenantDir(companyID)
	dest := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("create exchange folder: %w", err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create %q: %w", dest, err)
	}
	defer f.Close()

	// Read one byte past the limit so an oversized body is detected rather
	// than silently cut off at the boundary.
	n, err := io.Copy(f, io.LimitReader(body, es.fileLimit+1))
	if err != nil {
		return n, fmt.Errorf("write %q: %w", dest, err)
	}
	if n > es.fileLimit {
		f.Close()
		if rmErr := os.Remove(dest); rmErr != nil {
			es.log.Error("Failed to remove oversized upload", "path", dest, "error", rmErr)
		}
		return 0, fmt.Errorf("file %q exceeds the %d byte limit", rel, es.fileLimit)
	}
	es.log.Info("Received exchange file", "company_id", companyID, "filename", rel, "bytes", n)
	return n, nil
}

func (es *exchangeService) RunTenant(ctx context.Context, companyID uint) exchange.RunResult {
	return es.runner.RunTenant(ctx, companyID)
}

func (es *exchangeService) RunAll(ctx context.Context) ([]exchange.RunResult, error) {
	return es.runner.RunAll(ctx)
}

func (es *exchangeService) InProgress(companyID uint) (bool, error) {
	return es.runner.InProgress(companyID)
}

func sanitizeRelPath(filename string) (string, error) {
	rel := filepath.FromSlash(strings.TrimSpace(filename))
	if rel == "" {
		return "", fmt.Errorf("filename is required")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("absolute filename %q rejected", filename)
	}
	clean := filepath.Clean(rel)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("filename %q escapes the exchange folder", filename)
	}
	return clean, nil
}
