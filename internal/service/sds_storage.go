package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nanotrace/certification-backend/internal/observability"
)

const sdsPathPrefix = "sds"

var (
	ErrFileTooBig      = errors.New("file exceeds the upload size limit")
	ErrInvalidFileType = errors.New("file type is not allowed")
	ErrEmptyFile       = errors.New("file is empty")
)

// SDSStorage stores safety data sheet documents and returns object keys.
type SDSStorage interface {
	Upload(ctx context.Context, ownerID uint, certificateID string, file io.Reader, size int64) (string, error)
	Delete(ctx context.Context, objectKey string) error
}

type MinIOSDSStorage struct {
	client   *minio.Client
	bucket   string
	maxBytes int64
	allowed  map[string]struct{}

	initOnce sync.Once
	initErr  error
}

func NewMinIOClient(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return client, nil
}

// NewMinIOSDSStorage defers bucket creation to the first upload so startup
// does not block on object storage.
func NewMinIOSDSStorage(client *minio.Client, bucket string, maxBytes int64, allowedTypes []string) *MinIOSDSStorage {
	allowed := make(map[string]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			allowed[t] = struct{}{}
		}
	}
	return &MinIOSDSStorage{client: client, bucket: bucket, maxBytes: maxBytes, allowed: allowed}
}

func (s *MinIOSDSStorage) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = fmt.Errorf("check bucket %q: %w", s.bucket, err)
			return
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
				s.initErr = fmt.Errorf("create bucket %q: %w", s.bucket, err)
			}
		}
	})
	return s.initErr
}

// Upload validates size and sniffed content type before touching storage.
// The client-declared content type is ignored.
func (s *MinIOSDSStorage) Upload(ctx context.Context, ownerID uint, certificateID string, file io.Reader, size int64) (string, error) {
	outcome := "success"
	defer func() { observability.RecordStorageOperation(ctx, "sds_upload", outcome) }()

	if size <= 0 {
		outcome = "rejected"
		return "", ErrEmptyFile
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		outcome = "rejected"
		return "", ErrFileTooBig
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		outcome = "error"
		return "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	contentType := sniffContentType(head)
	if _, ok := s.allowed[contentType]; !ok {
		outcome = "rejected"
		return "", fmt.Errorf("%w: %s", ErrInvalidFileType, contentType)
	}

	if err := s.ensureBucket(ctx); err != nil {
		outcome = "error"
		return "", err
	}
	key := fmt.Sprintf("%s/%s/%s%s", sdsPathPrefix, certificateID, uuid.NewString(), extensionFor(contentType))
	_, err = s.client.PutObject(ctx, s.bucket, key, io.MultiReader(bytes.NewReader(head), file), size, minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"Owner-ID":       strconv.FormatUint(uint64(ownerID), 10),
			"Certificate-ID": certificateID,
			"Uploaded-At":    time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		outcome = "error"
		return "", fmt.Errorf("put object: %w", err)
	}
	return key, nil
}

func (s *MinIOSDSStorage) Delete(ctx context.Context, objectKey string) error {
	if strings.TrimSpace(objectKey) == "" {
		return nil
	}
	err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{})
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	observability.RecordStorageOperation(ctx, "sds_delete", outcome)
	return err
}

func sniffContentType(head []byte) string {
	mediaType, _, err := mime.ParseMediaType(http.DetectContentType(head))
	if err != nil {
		return "application/octet-stream"
	}
	return mediaType
}

func extensionFor(contentType string) string {
	switch contentType {
	case "application/pdf":
		return ".pdf"
	case "text/plain":
		return ".txt"
	default:
		return ""
	}
}
