package service

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ==================== Interface ====================

// StorageProvider stores listing photos and hands back public URLs.
type StorageProvider interface {
	Upload(ctx context.Context, data []byte, filename string, contentType string) (url string, err error)
	Delete(ctx context.Context, url string) error
	GetSignedURL(ctx context.Context, url string, expires time.Duration) (signedURL string, err error)
}

// ==================== Config ====================

type StorageConfig struct {
	Provider  string // "s3" | "local"
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string
	CDNDomain string
	BasePath  string
}

// ==================== Factory ====================

func NewStorageProvider(cfg *StorageConfig) (StorageProvider, error) {
	switch cfg.Provider {
	case "s3":
		return NewS3Storage(cfg)
	case "local":
		return NewLocalStorage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.Provider)
	}
}

// ==================== StorageService ====================

// StorageService wraps a provider and owns the key naming policy.
type StorageService struct {
	provider StorageProvider
	config   *StorageConfig
}

func NewStorageService(cfg *StorageConfig) (*StorageService, error) {
	provider, err := NewStorageProvider(cfg)
	if err != nil {
		return nil, err
	}
	return &StorageService{
		provider: provider,
		config:   cfg,
	}, nil
}

func (s *StorageService) Upload(ctx context.Context, data []byte, filename string, contentType string) (string, error) {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return s.provider.Upload(ctx, data, filename, contentType)
}

func (s *StorageService) Delete(ctx context.Context, url string) error {
	return s.provider.Delete(ctx, url)
}

func (s *StorageService) GetSignedURL(ctx context.Context, url string, expires time.Duration) (string, error) {
	return s.provider.GetSignedURL(ctx, url, expires)
}

// ==================== S3 ====================

type S3Storage struct {
	client    *s3.Client
	bucket    string
	region    string
	cdnDomain string
	basePath  string
}

func NewS3Storage(cfg *StorageConfig) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{
		client:    client,
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		cdnDomain: cfg.CDNDomain,
		basePath:  cfg.BasePath,
	}, nil
}

func (s *S3Storage) Upload(ctx context.Context, data []byte, filename string, contentType string) (string, error) {
	key := generateKey(s.basePath, filename)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload: %w", err)
	}

	return s.getPublicURL(key), nil
}

func (s *S3Storage) Delete(ctx context.Context, url string) error {
	key := s.extractKey(url)
	if key == "" {
		return fmt.Errorf("cannot map url to object key: %s", url)
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (s *S3Storage) GetSignedURL(ctx context.Context, url string, expires time.Duration) (string, error) {
	key := s.extractKey(url)
	if key == "" {
		return "", fmt.Errorf("cannot map url to object key: %s", url)
	}

	presignClient := s3.NewPresignClient(s.client)
	presigned, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", err
	}

	return presigned.URL, nil
}

func (s *S3Storage) getPublicURL(key string) string {
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

func (s *S3Storage) extractKey(url string) string {
	if s.cdnDomain != "" && strings.Contains(url, s.cdnDomain) {
		return strings.TrimPrefix(url, fmt.Sprintf("https://%s/", s.cdnDomain))
	}
	prefix := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", s.bucket, s.region)
	return strings.TrimPrefix(url, prefix)
}

// ==================== Local (dev) ====================

// LocalStorage writes under a directory served by the API itself.
type LocalStorage struct {
	dir     string
	baseURL string
}

func NewLocalStorage(cfg *StorageConfig) (*LocalStorage, error) {
	dir := cfg.BasePath
	if dir == "" {
		dir = "./uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = "http://localhost:8080/uploads"
	}

	return &LocalStorage{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

func (s *LocalStorage) Upload(ctx context.Context, data []byte, filename string, contentType string) (string, error) {
	name := randomFilename(filename)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("local upload: %w", err)
	}
	return s.baseURL + "/" + name, nil
}

func (s *LocalStorage) Delete(ctx context.Context, url string) error {
	name := filepath.Base(url)
	err := os.Remove(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *LocalStorage) GetSignedURL(ctx context.Context, url string, expires time.Duration) (string, error) {
	return url, nil
}

// ==================== Helpers ====================

func generateKey(basePath, filename string) string {
	name := randomFilename(filename)
	datePath := time.Now().Format("2006/01/02")
	if basePath != "" {
		return fmt.Sprintf("%s/%s/%s", basePath, datePath, name)
	}
	return fmt.Sprintf("%s/%s", datePath, name)
}

func randomFilename(original string) string {
	ext := filepath.Ext(original)
	if ext == "" {
		ext = ".jpg"
	}
	return uuid.New().String() + ext
}
