package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/bazaar/internal/logging"
	sc "github.com/dmitrijs2005/bazaar/internal/server/config"
	"github.com/dmitrijs2005/bazaar/internal/server/models"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	MaxUploadSize = 5 << 20

	presignExpiry = 15 * time.Minute
)

// imageTypes maps accepted content types to the extension used in keys.
var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	now = time.Now
)

type UploadService struct {
	config *sc.Config
	logger logging.Logger
}

func NewUploadService(config *sc.Config, logger logging.Logger) *UploadService {
	return &UploadService{config: config, logger: logger.With("module", "upload")}
}

// StorageKey returns a fresh object key for an image uploaded by userID.
func StorageKey(userID, ext string) string {
	d := now()
	return fmt.Sprintf("products/%s/%04d/%02d/%v%s", userID, d.Year(), int(d.Month()), uuid.New(), ext)
}

func (s *UploadService) publicURL(key string) string {
	return strings.TrimRight(s.config.S3PublicBaseURL, "/") + "/" + key
}

func (s *UploadService) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		// MinIO serves buckets by path, not by virtual host
		o.UsePathStyle = true
	}), nil
}

// Upload stores an image read from r. The content type is taken from the
// bytes themselves; the declared type only has to agree when it is set.
func (s *UploadService) Upload(ctx context.Context, userID, filename, contentType string, r io.Reader) (*models.UploadResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, validationError("file is empty")
	}
	if len(data) > MaxUploadSize {
		return nil, validationError("file is larger than %d bytes", MaxUploadSize)
	}

	sniffed := http.DetectContentType(data)
	ext, ok := imageTypes[sniffed]
	if !ok {
		return nil, validationError("unsupported file type %q", sniffed)
	}
	if declared := normalizeContentType(contentType); declared != "" && declared != sniffed && declared != "application/octet-stream" {
		return nil, validationError("declared type %q does not match content", declared)
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}

	bucket := s.config.S3Bucket
	key := StorageKey(userID, ext)
	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:        &bucket,
		Key:           &key,
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(sniffed),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	s.logger.Info(ctx, "image uploaded", "key", key, "filename", filename, "size", len(data))
	return &models.UploadResult{Key: key, URL: s.publicURL(key)}, nil
}

// PresignUpload returns a URL the client can PUT an image of contentType to
// directly, plus the public URL the image will have afterwards. size is
// signed into the request, so storage rejects a body of any other length.
func (s *UploadService) PresignUpload(ctx context.Context, userID, contentType string, size int64) (*models.UploadResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	ct := normalizeContentType(contentType)
	ext, ok := imageTypes[ct]
	if !ok {
		return nil, validationError("unsupported file type %q", contentType)
	}
	if size <= 0 || size > MaxUploadSize {
		return nil, validationError("size must be between 1 and %d bytes", MaxUploadSize)
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}

	bucket := s.config.S3Bucket
	key := StorageKey(userID, ext)
	req, err := presignPutObject(newS3PresignClient(client), ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType:   aws.String(ct),
		ContentLength: aws.Int64(size),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return nil, err
	}

	return &models.UploadResult{Key: key, URL: s.publicURL(key), UploadURL: req.URL}, nil
}

func normalizeContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
