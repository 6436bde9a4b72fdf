package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the configuration for the S3 durable-storage adapter.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional: for custom S3-compatible endpoints
	AccessKeyID     string // Optional: AWS access key ID
	SecretAccessKey string // Optional: AWS secret access key
	Prefix          string // Optional: key prefix for uploaded assets
}

// S3Storage is the S3 implementation of the Durable port, for operators who
// would rather keep the long-lived copies in their own bucket than on
// Cloudinary.
type S3Storage struct {
	client *s3.Client
	bucket string
	region string
	prefix string
}

// NewS3Storage creates a new S3 durable-storage adapter.
func NewS3Storage(cfg S3Config) (*S3Storage, error) {
	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(cfg.Region))

	// Use static credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), configOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, clientOpts...)

	return &S3Storage{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Upload stores the asset with PutObject and returns its public URL.
func (s *S3Storage) Upload(ctx context.Context, name string, r io.Reader, size int64, params UploadParams, onProgress func(float64)) (DurableResult, error) {
	publicID := params.PublicID
	if publicID == "" {
		publicID = strings.TrimSuffix(name, path.Ext(name))
	}
	key := s.objectKey(params.Folder, publicID, path.Ext(name))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   wrapProgress(r, size, onProgress),
	})
	if err != nil {
		return DurableResult{}, fmt.Errorf("%w: %v", ErrDurableUpload, err)
	}

	if onProgress != nil {
		onProgress(100)
	}

	return DurableResult{
		SecureURL: s.objectURL(key),
		PublicID:  publicID,
		Bytes:     size,
	}, nil
}

// PlaybackURL returns the public URL for a stored asset.
func (s *S3Storage) PlaybackURL(publicID string) string {
	return s.objectURL(s.objectKey("", publicID, ".mp4"))
}

// objectKey builds the S3 key from the configured prefix, an optional folder
// and the asset id.
func (s *S3Storage) objectKey(folder, publicID, ext string) string {
	parts := make([]string, 0, 3)
	if s.prefix != "" {
		parts = append(parts, s.prefix)
	}
	if folder != "" {
		parts = append(parts, folder)
	}
	parts = append(parts, publicID+ext)
	return path.Join(parts...)
}

// objectURL builds the virtual-hosted URL for a key.
func (s *S3Storage) objectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// Compile-time check that S3Storage implements Durable.
var _ Durable = (*S3Storage)(nil)
