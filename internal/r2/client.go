package r2

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"quizgenai/internal/config"
)

// putter is the part of *s3.Client the archive needs.
type putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Client archives uploaded source material in a Cloudflare R2 bucket.
// A nil *Client is valid; uploads through it return an error.
type Client struct {
	s3Client   putter
	bucketName string
	publicURL  string
	log        *zap.Logger
}

// NewClient returns (nil, nil) when R2 is not fully configured, so the
// service runs with archiving disabled.
func NewClient(ctx context.Context, cfg config.R2Config, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if !cfg.Enabled() {
		log.Warn("Cloudflare R2 not fully configured (CLOUDFLARE_ACCOUNT_ID, R2_BUCKET_NAME, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_PUBLIC_URL), source archiving disabled")
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config for R2: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
	})

	log.Info("R2 client initialized", zap.String("bucket", cfg.Bucket))
	return newClient(s3Client, cfg.Bucket, cfg.PublicURL, log), nil
}

func newClient(p putter, bucket, publicURL string, log *zap.Logger) *Client {
	return &Client{s3Client: p, bucketName: bucket, publicURL: publicURL, log: log}
}

// ObjectKey is sources/<userID>/<sourceID>/<filename>.
func ObjectKey(userID, sourceID uuid.UUID, filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return fmt.Sprintf("sources/%s/%s/%s", userID, sourceID, name)
}

// UploadSource stores content and returns its public URL.
func (c *Client) UploadSource(ctx context.Context, userID, sourceID uuid.UUID, filename string, content io.Reader) (string, error) {
	if c == nil || c.s3Client == nil {
		return "", fmt.Errorf("R2 client not initialized, skipping upload")
	}

	objectKey := ObjectKey(userID, sourceID, filename)
	contentType := mime.TypeByExtension(filepath.Ext(objectKey))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucketName),
		Key:         aws.String(objectKey),
		Body:        content,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to R2 (key: %s): %w", objectKey, err)
	}

	baseURL, err := url.Parse(c.publicURL)
	if err != nil {
		return "", fmt.Errorf("invalid R2 public base URL configured: %w", err)
	}
	baseURL.Path = path.Join(baseURL.Path, objectKey)

	publicFileURL := baseURL.String()
	c.log.Info("archived source file", zap.String("url", publicFileURL))
	return publicFileURL, nil
}
