package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// ErrUnsupportedType is returned for uploads that are not an accepted image.
var ErrUnsupportedType = errors.New("unsupported file type")

// FileStore keeps uploaded files and returns a retrievable path. contentType
// must be one of the accepted image types.
type FileStore interface {
	Save(ctx context.Context, contentType string, size int64, r io.Reader) (string, error)
	Remove(ctx context.Context, storedPath string) error
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageExtension maps an accepted image type to its stored extension.
func ImageExtension(contentType string) (string, bool) {
	ext, ok := imageExtensions[contentType]
	return ext, ok
}

// SniffImage detects the type of r from its leading bytes. It returns the
// detected type and a reader that still yields the whole content.
func SniffImage(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	if _, ok := ImageExtension(contentType); !ok {
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	return contentType, io.MultiReader(bytes.NewReader(head), r), nil
}

// ObjectName builds a dated, collision-free object name whose extension
// follows the content type, never the client's file name.
func ObjectName(prefix, contentType string, now time.Time) (string, error) {
	ext, ok := ImageExtension(contentType)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	return fmt.Sprintf("%s/%s/%s%s", prefix, now.Format("2006/01"), uuid.NewString(), ext), nil
}

// MinioConfig describes an S3-compatible bucket.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the base URL objects are served from. Defaults to the
	// endpoint.
	PublicURL string
}

// MinioStore stores files in a MinIO or other S3-compatible bucket.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinioStore connects to the bucket, creating it with a public read
// policy when it does not exist yet.
func NewMinioStore(ctx context.Context, cfg MinioConfig, log logrus.FieldLogger) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		log.WithField("bucket", cfg.Bucket).Info("created storage bucket")

		if err := client.SetBucketPolicy(ctx, cfg.Bucket, publicReadPolicy(cfg.Bucket)); err != nil {
			log.WithError(err).WithField("bucket", cfg.Bucket).Warn("failed to set bucket policy")
		}
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)
	}

	return &MinioStore{client: client, bucket: cfg.Bucket, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func publicReadPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    []string{"s3:GetObject"},
				"Resource":  []string{"arn:aws:s3:::" + bucket + "/*"},
			},
		},
	}
	body, _ := json.Marshal(policy)
	return string(body)
}

// Save implements FileStore and returns the public URL of the object.
func (s *MinioStore) Save(ctx context.Context, contentType string, size int64, r io.Reader) (string, error) {
	name, err := ObjectName("modifications", contentType, time.Now())
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, s.bucket, name, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	return s.URL(name), nil
}

// URL is the public address of an object.
func (s *MinioStore) URL(name string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, (&url.URL{Path: name}).EscapedPath())
}

// Remove implements FileStore.
func (s *MinioStore) Remove(ctx context.Context, storedPath string) error {
	prefix := s.publicURL + "/" + s.bucket + "/"
	escaped := strings.TrimPrefix(storedPath, prefix)
	name, err := url.PathUnescape(escaped)
	if err != nil {
		name = escaped
	}
	return s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{})
}

// DiskStore keeps files on the local filesystem under Root and serves them
// from URLPrefix. Used when no bucket is configured.
type DiskStore struct {
	Root      string
	URLPrefix string
}

// Save implements FileStore.
func (s *DiskStore) Save(_ context.Context, contentType string, _ int64, r io.Reader) (string, error) {
	name, err := ObjectName("modifications", contentType, time.Now())
	if err != nil {
		return "", err
	}
	full := filepath.Join(s.Root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(full)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return path.Join(s.URLPrefix, name), nil
}

// Remove implements FileStore.
func (s *DiskStore) Remove(_ context.Context, storedPath string) error {
	rel := strings.TrimPrefix(storedPath, s.URLPrefix)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" || strings.Contains(rel, "..") {
		return fmt.Errorf("refusing to remove %q", storedPath)
	}
	err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(rel)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
