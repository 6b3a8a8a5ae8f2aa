// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bierstube/storefront/internal/config"
)

// StorageService writes collection backups to S3. Without AWS credentials it
// is disabled and callers keep the payload inline.
type StorageService struct {
	s3Client s3iface.S3API
	cfg      config.AWSConfig
}

type UploadResult struct {
	URL  string `json:"url"`
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

func NewStorageService(cfg config.AWSConfig) (*StorageService, error) {
	if cfg.AccessKeyID == "" || cfg.BackupBucket == "" {
		return &StorageService{cfg: cfg}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		cfg:      cfg,
	}, nil
}

// NewStorageServiceWithClient is used when the caller already has an S3 client.
func NewStorageServiceWithClient(client s3iface.S3API, cfg config.AWSConfig) *StorageService {
	return &StorageService{s3Client: client, cfg: cfg}
}

func (s *StorageService) Enabled() bool {
	return s != nil && s.s3Client != nil
}

func (s *StorageService) UploadBackup(ctx context.Context, collection string, payload []byte, now time.Time) (*UploadResult, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("backup storage is not configured")
	}

	key := s.backupKey(collection, now)
	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.BackupBucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(payload),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(payload))),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"bucket": s.cfg.BackupBucket,
		"key":    key,
		"size":   len(payload),
	}).Info("Backup uploaded")

	return &UploadResult{
		URL:  s.objectURL(key),
		Key:  key,
		Size: int64(len(payload)),
	}, nil
}

func (s *StorageService) backupKey(collection string, now time.Time) string {
	filename := fmt.Sprintf("%s_%s.json", now.UTC().Format("20060102T150405Z"), uuid.New().String()[:8])
	return path.Join(s.cfg.BackupPrefix, collection, filename)
}

func (s *StorageService) objectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.BackupBucket, s.cfg.Region, key)
}
