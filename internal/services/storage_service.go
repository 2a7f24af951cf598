// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tradebook/tradebook-backend/internal/config"
	"github.com/tradebook/tradebook-backend/internal/utils"
)

// StoredObject is an archived file ready for download. Local objects carry their bytes,
// S3 objects a presigned URL.
type StoredObject struct {
	Key  string
	Data []byte
	URL  string
}

// StorageService archives generated files to S3, or to a local directory when no AWS
// credentials are configured.
type StorageService struct {
	s3Client s3iface.S3API
	config   config.AWSConfig
}

// checksumSuffix names the file kept next to a locally archived object.
const checksumSuffix = ".sha256"

type UploadResult struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
	Checksum string `json:"checksum"`
	Backend  string `json:"backend"`
}

func NewStorageService(cfg config.AWSConfig) (*StorageService, error) {
	if cfg.AccessKeyID == "" {
		// Return service without S3 for local development
		return &StorageService{config: cfg}, nil
	}

	// Create AWS session
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
		config:   cfg,
	}, nil
}

// NewStorageServiceWithClient is used when the S3 client is built elsewhere.
func NewStorageServiceWithClient(client s3iface.S3API, cfg config.AWSConfig) *StorageService {
	return &StorageService{s3Client: client, config: cfg}
}

// Store writes data under folder with a unique, date-prefixed name keeping ext.
func (s *StorageService) Store(ctx context.Context, folder, ext string, data []byte, contentType string) (*UploadResult, error) {
	key := s.generateFileName(folder, ext)

	if s.s3Client != nil {
		return s.uploadToS3(ctx, data, key, contentType)
	}
	return s.uploadToLocal(data, key, contentType)
}

func (s *StorageService) uploadToS3(ctx context.Context, data []byte, key, contentType string) (*UploadResult, error) {
	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.config.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata:      map[string]*string{"sha256": aws.String(utils.Checksum(data))},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	logrus.WithFields(logrus.Fields{"bucket": s.config.S3Bucket, "key": key}).Info("Report archived to S3")
	return &UploadResult{
		URL:      fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.config.S3Bucket, s.config.Region, key),
		Key:      key,
		Size:     int64(len(data)),
		MimeType: contentType,
		Checksum: utils.Checksum(data),
		Backend:  "s3",
	}, nil
}

func (s *StorageService) uploadToLocal(data []byte, key, contentType string) (*UploadResult, error) {
	path := filepath.Join(s.config.ReportDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}
	checksum := utils.Checksum(data)
	if err := os.WriteFile(path+checksumSuffix, []byte(checksum), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write report checksum: %w", err)
	}

	logrus.WithField("path", path).Info("Report archived locally")
	return &UploadResult{
		URL:      "file://" + filepath.ToSlash(path),
		Key:      key,
		Size:     int64(len(data)),
		MimeType: contentType,
		Checksum: checksum,
		Backend:  "local",
	}, nil
}

// PresignedURL returns a temporary download link for an archived S3 object.
func (s *StorageService) PresignedURL(key string, expiration time.Duration) (string, error) {
	if s.s3Client == nil {
		return "", fmt.Errorf("S3 client not configured")
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.S3Bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiration)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url, nil
}

// Fetch returns an archived object. Local files are checked against the checksum written
// when they were stored.
func (s *StorageService) Fetch(key string, expiration time.Duration) (*StoredObject, error) {
	if s.s3Client != nil {
		url, err := s.PresignedURL(key, expiration)
		if err != nil {
			return nil, err
		}
		return &StoredObject{Key: key, URL: url}, nil
	}

	path := filepath.Join(s.config.ReportDir, filepath.FromSlash(key))
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("report %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	expected, err := os.ReadFile(path + checksumSuffix)
	if err != nil {
		return nil, fmt.Errorf("failed to read report checksum: %w", err)
	}
	if !utils.VerifyChecksum(data, strings.TrimSpace(string(expected))) {
		return nil, fmt.Errorf("report %s: %w", key, ErrChecksumMismatch)
	}
	return &StoredObject{Key: key, Data: data}, nil
}

func (s *StorageService) generateFileName(folder, ext string) string {
	filename := fmt.Sprintf("%s_%s%s", time.Now().Format("20060102-150405"), uuid.NewString()[:8], ext)
	if folder != "" {
		return folder + "/" + filename
	}
	return filename
}
