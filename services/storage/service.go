// Package storage hands out presigned S3 PUT URLs so clients upload CVs and
// company logos straight to the bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	appconfig "github.com/Blukstak/OxideExpo-sub000/config"
	"github.com/Blukstak/OxideExpo-sub000/services"
	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind is the category of an uploaded object, also the first key segment
type Kind string

const (
	KindCV   Kind = "cv"
	KindLogo Kind = "logo"
)

// allowedTypes maps each kind to its accepted content types and the
// extension used when the filename carries none that fits
var allowedTypes = map[Kind]map[string]string{
	KindCV: {
		"application/pdf":    ".pdf",
		"application/msword": ".doc",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	},
	KindLogo: {
		"image/png":  ".png",
		"image/jpeg": ".jpg",
		"image/webp": ".webp",
	},
}

// ErrNotConfigured is returned when no bucket is configured
var ErrNotConfigured = errors.New("object storage not configured")

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// UploadRequest describes the object a client wants to upload
type UploadRequest struct {
	Kind        Kind
	Filename    string
	ContentType string
	Size        int64
}

// Upload is a presigned PUT the client performs directly against the bucket
type Upload struct {
	Key       string            `json:"key"`
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// Service presigns uploads against a single bucket
type Service struct {
	presigner *s3.PresignClient
	bucket    string
	ttl       time.Duration
	maxBytes  int64
	logger    *zap.Logger
	now       func() time.Time
}

// NewService builds the S3 presign client from static credentials.
// Endpoint and path-style addressing target MinIO and other S3-compatible stores.
func NewService(ctx context.Context, cfg appconfig.StorageConfig, logger *zap.Logger) (*Service, error) {
	if cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	logger.Info("object storage configured",
		zap.String("bucket", cfg.Bucket),
		zap.String("region", cfg.Region),
		zap.Bool("custom_endpoint", cfg.Endpoint != ""))

	return &Service{
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		ttl:       ttl,
		maxBytes:  cfg.MaxUploadBytes,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// PresignUpload validates req and returns a PUT URL for a fresh key under
// <kind>/<owner>/<yyyy/mm/dd>/. The signed request pins content type and length.
func (s *Service) PresignUpload(ctx context.Context, ownerID uuid.UUID, req UploadRequest) (*Upload, error) {
	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	ext, err := s.validate(req.Kind, req.Filename, contentType, req.Size)
	if err != nil {
		return nil, err
	}

	key := objectKey(req.Kind, ownerID, s.now(), ext)
	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(req.Size),
	}

	presigned, err := presignPutObject(s.presigner, ctx, in, s3.WithPresignExpires(s.ttl))
	if err != nil {
		s.logger.Error("failed to presign upload",
			zap.Error(err),
			zap.String("kind", string(req.Kind)),
			zap.String("owner_id", ownerID.String()))
		return nil, services.WrapExternal("failed to presign upload", err)
	}

	headers := map[string]string{"Content-Type": contentType}
	for name, values := range presigned.SignedHeader {
		if len(values) > 0 && !strings.EqualFold(name, "host") {
			headers[name] = values[0]
		}
	}

	return &Upload{
		Key:       key,
		URL:       presigned.URL,
		Method:    presigned.Method,
		Headers:   headers,
		ExpiresAt: s.now().Add(s.ttl).UTC(),
	}, nil
}

func (s *Service) validate(kind Kind, filename, contentType string, size int64) (string, error) {
	types, ok := allowedTypes[kind]
	if !ok {
		return "", services.ErrUnsupportedUpload.WithDetail("kind", string(kind))
	}
	defaultExt, ok := types[contentType]
	if !ok {
		return "", services.ErrUnsupportedUpload.WithDetail("content_type", contentType)
	}
	if size <= 0 {
		return "", services.ErrInvalidInput.WithDetail("size", "must be positive")
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return "", services.ErrInvalidInput.WithDetail("size", fmt.Sprintf("must not exceed %d bytes", s.maxBytes))
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	for _, allowed := range types {
		if ext == allowed {
			return ext, nil
		}
	}
	return defaultExt, nil
}

func objectKey(kind Kind, ownerID uuid.UUID, at time.Time, ext string) string {
	at = at.UTC()
	return fmt.Sprintf("%s/%s/%04d/%02d/%02d/%s%s",
		kind, ownerID, at.Year(), int(at.Month()), at.Day(), uuid.New(), ext)
}
