package gcs

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/altmarkt/altmarkt-backend/internal/platform/logger"
	"github.com/google/uuid"
)

// StoredObject describes one uploaded asset: the storage key used for later
// deletion and the public URL served to clients.
type StoredObject struct {
	ID  string
	URL string
}

// BucketService is the opaque image store. The exchange pipeline and the CRUD
// API only ever upload, delete and resolve public URLs.
type BucketService interface {
	UploadFile(ctx context.Context, key string, file io.Reader) (*StoredObject, error)
	UploadLocalFile(ctx context.Context, keyPrefix, localPath string) (*StoredObject, error)
	DeleteFile(ctx context.Context, key string) error
	GetPublicURL(key string) string
}

type bucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
	bucketName    string
	publicBaseURL string
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
	serviceLog := log.With("service", "BucketService")

	bucketName := strings.TrimSpace(os.Getenv("MEDIA_GCS_BUCKET_NAME"))
	if bucketName == "" {
		return nil, fmt.Errorf("missing env var MEDIA_GCS_BUCKET_NAME")
	}

	publicBaseURL, err := resolvePublicBaseURL()
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	var opts []option.ClientOption
	if emulator := strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")); emulator != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimRight(emulator, "/")+"/storage/v1/"), option.WithoutAuthentication())
	}
	stClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info(
		"Object storage initialized",
		"bucket", bucketName,
		"public_base_url", publicBaseURL,
	)

	return &bucketService{
		log:           serviceLog,
		storageClient: stClient,
		bucketName:    bucketName,
		publicBaseURL: publicBaseURL,
	}, nil
}

func resolvePublicBaseURL() (string, error) {
	raw := strings.TrimSpace(os.Getenv("MEDIA_PUBLIC_BASE_URL"))
	if raw == "" {
		return "", nil
	}
	parsed, err := url.Parse(raw)
	if err != nil || strings.TrimSpace(parsed.Scheme) == "" || strings.TrimSpace(parsed.Host) == "" {
		return "", fmt.Errorf("invalid MEDIA_PUBLIC_BASE_URL=%q; expected absolute URL", raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

func (bs *bucketService) UploadFile(ctx context.Context, key string, file io.Reader) (*StoredObject, error) {
	uploadCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := bs.storageClient.Bucket(bs.bucketName).Object(key).NewWriter(uploadCtx)
	if ct := contentTypeForKey(key); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return &StoredObject{ID: key, URL: bs.GetPublicURL(key)}, nil
}

// UploadLocalFile uploads a file from the local filesystem under a random key
// that keeps the original extension.
func (bs *bucketService) UploadLocalFile(ctx context.Context, keyPrefix, localPath string) (*StoredObject, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", localPath, err)
	}
	defer f.Close()

	key := strings.TrimSuffix(keyPrefix, "/") + "/" + uuid.New().String() + strings.ToLower(path.Ext(localPath))
	return bs.UploadFile(ctx, key, f)
}

func (bs *bucketService) DeleteFile(ctx context.Context, key string) error {
	deleteCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	o := bs.storageClient.Bucket(bs.bucketName).Object(key)
	if err := o.Delete(deleteCtx); err != nil {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, bs.bucketName, err)
	}
	return nil
}

func (bs *bucketService) GetPublicURL(key string) string {
	if bs.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", bs.publicBaseURL, bs.bucketName, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bs.bucketName, key)
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	case strings.HasSuffix(s, ".gif"):
		return "image/gif"
	case strings.HasSuffix(s, ".svg"):
		return "image/svg+xml"
	default:
		return ""
	}
}
