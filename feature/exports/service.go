package exports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ipocket/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service builds export bundles and archives them to object storage.
// Exports never mutate the inventory.
type Service struct {
	db     *gorm.DB
	client storage.Client
	bucket string
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates an export service. The storage client may be nil
// when archiving is not configured.
func NewService(db *gorm.DB, client storage.Client, bucket string, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		client: client,
		bucket: bucket,
		logger: logger,
		now:    time.Now,
	}
}

// BuildBundle assembles an export document from current inventory.
func (s *Service) BuildBundle(ctx context.Context, opts Options) (*Bundle, error) {
	return BuildBundle(ctx, s.db, opts, s.now())
}

// Archive serializes a bundle and stores it under exports/ in the
// configured bucket. It returns the object name.
func (s *Service) Archive(ctx context.Context, bundle *Bundle) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("object storage is not configured")
	}

	payload, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize bundle: %w", err)
	}
	payload = append(payload, '\n')

	objectName := fmt.Sprintf("exports/bundle-%s.json", s.now().UTC().Format("20060102T150405Z"))
	_, err = s.client.PutObject(ctx, s.bucket, objectName,
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("failed to archive bundle: %w", err)
	}

	s.logger.Info("Bundle archived",
		zap.String("object", objectName),
		zap.Int("bytes", len(payload)),
		zap.Int("assets", len(bundle.Data.IPAssets)),
	)
	return objectName, nil
}
