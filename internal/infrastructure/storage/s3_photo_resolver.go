// Package storage resolves studio photos in object storage into the
// URLs and hashes that print labs download.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/photolab/backend/internal/domain/fulfillment"
	"github.com/photolab/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const defaultPresignExpiration = 24 * time.Hour

// S3PhotoResolver implements fulfillment.PhotoResolver on any S3-compatible store.
// Labs fetch images asynchronously, so presigned URLs are long-lived.
type S3PhotoResolver struct {
	client            *s3.Client
	presignClient     *s3.PresignClient
	bucket            string
	keyPrefix         string
	presignExpiration time.Duration
	logger            *zap.Logger
}

// S3Option configures an S3PhotoResolver
type S3Option func(*S3PhotoResolver)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3Option {
	return func(r *S3PhotoResolver) {
		r.logger = logger
	}
}

// NewS3PhotoResolver creates a resolver from storage configuration
func NewS3PhotoResolver(ctx context.Context, cfg *config.StorageConfig, opts ...S3Option) (*S3PhotoResolver, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	r := &S3PhotoResolver{
		client:            client,
		presignClient:     s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		keyPrefix:         strings.Trim(cfg.KeyPrefix, "/"),
		presignExpiration: cfg.PresignExpiration,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.presignExpiration <= 0 {
		r.presignExpiration = defaultPresignExpiration
	}
	return r, nil
}

// Resolve looks the photo up and returns a presigned download URL and its MD5.
// Multipart uploads have no content MD5; MD5 is empty for them.
func (r *S3PhotoResolver) Resolve(ctx context.Context, photoID string) (*fulfillment.PhotoAsset, error) {
	if photoID == "" {
		return nil, fulfillment.ErrMissingPhoto
	}
	key := r.objectKey(photoID)

	head, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", fulfillment.ErrPhotoNotFound, photoID)
		}
		return nil, fmt.Errorf("failed to stat photo %s: %w", photoID, err)
	}

	req, err := r.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(r.presignExpiration))
	if err != nil {
		return nil, fmt.Errorf("failed to presign photo %s: %w", photoID, err)
	}

	asset := &fulfillment.PhotoAsset{
		PhotoID:  photoID,
		URL:      req.URL,
		MD5:      etagMD5(aws.ToString(head.ETag)),
		FileName: path.Base(key),
	}
	r.logger.Debug("photo resolved",
		zap.String("photo_id", photoID),
		zap.String("key", key),
		zap.Bool("has_md5", asset.MD5 != ""),
	)
	return asset, nil
}

func (r *S3PhotoResolver) objectKey(photoID string) string {
	if r.keyPrefix == "" {
		return photoID
	}
	return r.keyPrefix + "/" + photoID
}

// etagMD5 returns the hex MD5 carried by a single-part ETag
func etagMD5(etag string) string {
	etag = strings.Trim(etag, `"`)
	if len(etag) != 32 || strings.Contains(etag, "-") {
		return ""
	}
	return strings.ToLower(etag)
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}
	// Some S3-compatible services report the code without a typed error
	msg := err.Error()
	return strings.Contains(msg, "NotFound") || strings.Contains(msg, "NoSuchKey")
}

// Ensure S3PhotoResolver implements PhotoResolver
var _ fulfillment.PhotoResolver = (*S3PhotoResolver)(nil)
