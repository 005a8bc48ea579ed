package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// PhotoStorage handles report photo uploads to an S3-compatible bucket.
type PhotoStorage struct {
	client         *minio.Client
	bucketName     string
	publicEndpoint string
}

// NewPhotoStorage creates a new object storage client and makes sure the
// bucket exists.
func NewPhotoStorage(endpoint, publicEndpoint, accessKey, secretKey, bucketName string, useSSL bool) (*PhotoStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	if publicEndpoint == "" {
		publicEndpoint = endpoint
	}
	publicEndpoint = strings.TrimSuffix(strings.TrimSpace(publicEndpoint), "/")

	storage := &PhotoStorage{
		client:         client,
		bucketName:     bucketName,
		publicEndpoint: publicEndpoint,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		log.Warn().Err(err).Msgf("Failed to check bucket existence for %s (will continue)", bucketName)
	} else if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			log.Error().Err(err).Msgf("Failed to create bucket %s", bucketName)
		} else {
			log.Info().Msgf("Bucket %s created", bucketName)

			policy := fmt.Sprintf(`{"Version": "2012-10-17","Statement": [{"Action": ["s3:GetObject"],"Effect": "Allow","Principal": {"AWS": ["*"]},"Resource": ["arn:aws:s3:::%s/*"],"Sid": ""}]}`, bucketName)
			if err := client.SetBucketPolicy(ctx, bucketName, policy); err != nil {
				log.Error().Err(err).Msg("Failed to set bucket policy")
			}
		}
	}

	log.Info().
		Str("endpoint", endpoint).
		Str("bucket", bucketName).
		Msg("Photo storage initialized")

	return storage, nil
}

// UploadPhoto stores one report photo and returns its public URL. Objects are
// keyed by report so deletion can sweep a whole report with one prefix.
func (s *PhotoStorage) UploadPhoto(ctx context.Context, reader io.Reader, reportID, filename, contentType string, size int64) (string, error) {
	ext := filepath.Ext(filename)
	key := fmt.Sprintf("reports/%s/%s_%s%s",
		reportID, time.Now().UTC().Format("20060102_150405"), uuid.New().String(), ext)

	_, err := s.client.PutObject(ctx, s.bucketName, key, reader, size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload photo: %w", err)
	}

	url := s.photoURL(key)
	log.Info().
		Str("report_id", reportID).
		Str("key", key).
		Msg("Photo uploaded")
	return url, nil
}

// DeleteReportPhotos removes every photo stored under a report's prefix and
// returns how many objects were deleted.
func (s *PhotoStorage) DeleteReportPhotos(ctx context.Context, reportID string) (int, error) {
	prefix := fmt.Sprintf("reports/%s/", reportID)
	objects := s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	deleted := 0
	for obj := range objects {
		if obj.Err != nil {
			return deleted, fmt.Errorf("failed to list photos: %w", obj.Err)
		}
		if err := s.client.RemoveObject(ctx, s.bucketName, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return deleted, fmt.Errorf("failed to delete photo %s: %w", obj.Key, err)
		}
		deleted++
	}

	log.Info().
		Str("report_id", reportID).
		Int("deleted", deleted).
		Msg("Report photos deleted")
	return deleted, nil
}

func (s *PhotoStorage) photoURL(key string) string {
	if strings.Contains(s.publicEndpoint, "://") {
		return fmt.Sprintf("%s/%s/%s", s.publicEndpoint, s.bucketName, key)
	}
	return fmt.Sprintf("https://%s/%s/%s", s.publicEndpoint, s.bucketName, key)
}

// HealthCheck verifies the object storage connection.
func (s *PhotoStorage) HealthCheck(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("object storage health check failed: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", s.bucketName)
	}
	return nil
}
