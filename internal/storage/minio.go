package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"talentvault/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
)

// ObjectStorage archives raw referral emails and interview transcripts.
// The vault database never stores either; it only holds object keys.
type ObjectStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, fileSize int64, contentType string) (string, error)
	DownloadFile(ctx context.Context, objectName string) ([]byte, error)
	GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
	DeleteFile(ctx context.Context, objectName string) error

	// Intake-specific operations.
	UploadRawEmailStreaming(ctx context.Context, submissionUUID string, reader io.Reader, fileSize int64) (string, string, error)
	GetRawEmail(ctx context.Context, objectKey string) ([]byte, error)
	UploadTranscript(ctx context.Context, candidateID string, text string) (string, error)
	GetTranscript(ctx context.Context, objectKey string) (string, error)
}

var _ ObjectStorage = (*MinIO)(nil)

// MinIO provides object storage over two buckets: raw emails and
// transcripts.
type MinIO struct {
	client            *minio.Client
	cfg               *config.MinIOConfig
	rawEmailsBucket   string
	transcriptsBucket string
	logger            *log.Logger
}

// NewMinIO builds the client, ensures both buckets exist, and installs
// expiry lifecycle rules when configured.
func NewMinIO(cfg *config.MinIOConfig, logger *log.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("minio config cannot be nil")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	rawEmailsBucket := cfg.RawEmailsBucket
	if rawEmailsBucket == "" {
		rawEmailsBucket = "raw-emails"
	}
	transcriptsBucket := cfg.TranscriptsBucket
	if transcriptsBucket == "" {
		transcriptsBucket = "transcripts"
	}

	m := &MinIO{
		client:            client,
		cfg:               cfg,
		rawEmailsBucket:   rawEmailsBucket,
		transcriptsBucket: transcriptsBucket,
		logger:            logger,
	}

	if err := m.ensureBucketExists(rawEmailsBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("ensuring raw emails bucket %s: %w", rawEmailsBucket, err)
	}
	if err := m.ensureBucketExists(transcriptsBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("ensuring transcripts bucket %s: %w", transcriptsBucket, err)
	}

	if cfg.RawEmailExpireDays > 0 || cfg.TranscriptExpireDays > 0 {
		if err := m.setupLifecycleRules(context.Background()); err != nil {
			m.logger.Printf("[MinIO] warning: setting lifecycle rules failed: %v", err)
		}
	}

	m.logger.Printf("[MinIO] client initialized for endpoint %s", cfg.Endpoint)
	return m, nil
}

func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", bucketName, err)
	}
	if !exists {
		if err := m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
			return fmt.Errorf("creating bucket %s: %w", bucketName, err)
		}
		m.logger.Printf("[MinIO] bucket %s created", bucketName)
	}
	return nil
}

func (m *MinIO) setupLifecycleRules(ctx context.Context) error {
	if m.cfg.RawEmailExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.rawEmailsBucket, "expire-raw-emails", m.cfg.RawEmailExpireDays); err != nil {
			return fmt.Errorf("setting lifecycle for %s: %w", m.rawEmailsBucket, err)
		}
	}
	if m.cfg.TranscriptExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.transcriptsBucket, "expire-transcripts", m.cfg.TranscriptExpireDays); err != nil {
			return fmt.Errorf("setting lifecycle for %s: %w", m.transcriptsBucket, err)
		}
	}
	return nil
}

func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	config := lifecycle.NewConfiguration()
	config.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}
	return m.client.SetBucketLifecycle(ctx, bucketName, config)
}

// UploadFile uploads to the raw emails bucket unless objectName carries a
// known bucket prefix.
func (m *MinIO) UploadFile(ctx context.Context, objectName string, reader io.Reader, fileSize int64, contentType string) (string, error) {
	bucketToUse := m.rawEmailsBucket
	actualObjectName := objectName
	if strings.Contains(objectName, "/") {
		parts := strings.SplitN(objectName, "/", 2)
		if len(parts) == 2 && (parts[0] == m.rawEmailsBucket || parts[0] == m.transcriptsBucket) {
			bucketToUse = parts[0]
			actualObjectName = parts[1]
		}
	}

	_, err := m.client.PutObject(ctx, bucketToUse, actualObjectName, reader, fileSize,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("uploading object %s/%s: %w", bucketToUse, actualObjectName, err)
	}
	return actualObjectName, nil
}

func (m *MinIO) uploadFileFromBytes(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	return m.UploadFile(ctx, objectName, bytes.NewReader(data), int64(len(data)), contentType)
}

// UploadRawEmailStreaming streams one raw referral email into the archive
// while computing its MD5 in the same pass. Returns the object key and the
// hex MD5.
func (m *MinIO) UploadRawEmailStreaming(ctx context.Context, submissionUUID string, reader io.Reader, fileSize int64) (string, string, error) {
	objectName := fmt.Sprintf("intake/%s/raw.eml", submissionUUID)

	md5Hash := md5.New()
	teeReader := io.TeeReader(reader, md5Hash)

	info, err := m.client.PutObject(ctx, m.rawEmailsBucket, objectName, teeReader,
		fileSize, minio.PutObjectOptions{ContentType: "message/rfc822"})
	if err != nil {
		return "", "", fmt.Errorf("streaming raw email upload: %w", err)
	}

	md5Hex := hex.EncodeToString(md5Hash.Sum(nil))
	m.logger.Printf("[MinIO] raw email archived: %s, ETag: %s, Size: %d", objectName, info.ETag, info.Size)
	return objectName, md5Hex, nil
}

// GetRawEmail fetches an archived raw email by object key.
func (m *MinIO) GetRawEmail(ctx context.Context, objectKey string) ([]byte, error) {
	return m.DownloadFile(ctx, fmt.Sprintf("%s/%s", m.rawEmailsBucket, objectKey))
}

// UploadTranscript stores an interview transcript for one candidate.
func (m *MinIO) UploadTranscript(ctx context.Context, candidateID string, text string) (string, error) {
	objectName := fmt.Sprintf("candidate/%s/transcript.txt", candidateID)
	_, err := m.client.PutObject(ctx, m.transcriptsBucket, objectName,
		strings.NewReader(text), int64(len(text)),
		minio.PutObjectOptions{ContentType: "text/plain"})
	if err != nil {
		return "", fmt.Errorf("uploading transcript %s to bucket %s: %w", objectName, m.transcriptsBucket, err)
	}
	return objectName, nil
}

// GetTranscript fetches a stored transcript by object key.
func (m *MinIO) GetTranscript(ctx context.Context, objectKey string) (string, error) {
	data, err := m.DownloadFile(ctx, fmt.Sprintf("%s/%s", m.transcriptsBucket, objectKey))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DownloadFile fetches an object; objectName may carry a bucket prefix.
func (m *MinIO) DownloadFile(ctx context.Context, objectName string) ([]byte, error) {
	bucketName := m.rawEmailsBucket
	actualObjectName := objectName

	if strings.Contains(objectName, "/") {
		parts := strings.SplitN(objectName, "/", 2)
		if len(parts) == 2 && (parts[0] == m.rawEmailsBucket || parts[0] == m.transcriptsBucket) {
			bucketName = parts[0]
			actualObjectName = parts[1]
		}
	}

	obj, err := m.client.GetObject(ctx, bucketName, actualObjectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("getting object %s/%s: %w", bucketName, actualObjectName, err)
	}
	defer obj.Close()

	if _, err := obj.Stat(); err != nil {
		return nil, fmt.Errorf("stat on object %s/%s: %w", bucketName, actualObjectName, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("reading object %s/%s: %w", bucketName, actualObjectName, err)
	}
	return data, nil
}

// GetPresignedURL generates a short-lived download link for a raw email.
func (m *MinIO) GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	presignedURL, err := m.client.PresignedGetObject(ctx, m.rawEmailsBucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("generating presigned URL: %w", err)
	}
	return presignedURL.String(), nil
}

// DeleteFile removes an object from the raw emails bucket.
func (m *MinIO) DeleteFile(ctx context.Context, objectName string) error {
	if err := m.client.RemoveObject(ctx, m.rawEmailsBucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("deleting object %s: %w", objectName, err)
	}
	return nil
}

// StatObject exposes the underlying StatObject for tests.
func (m *MinIO) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return m.client.StatObject(ctx, bucketName, objectName, opts)
}
