package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/trustedcore/attestation-gateway/interfaces"
)

// DefaultPreSignTTL bounds how long a generated download URL stays valid.
const DefaultPreSignTTL = 15 * time.Minute

// S3Backend implements CloudStorage against Amazon S3 or compatible
// services. Pre-signed URLs are generated with the backend's credentials,
// so callers never see them.
type S3Backend struct {
	client     *s3.S3
	bucketName string
	prefix     string
	preSignTTL time.Duration
	log        *slog.Logger
}

// NewS3Backend creates a new S3 storage backend. accessKey and secretKey
// may be empty when the environment provides credentials (instance roles).
func NewS3Backend(bucketName, prefix, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3Backend, error) {
	cfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Backend{
		client:     s3.New(sess),
		bucketName: bucketName,
		prefix:     strings.Trim(prefix, "/"),
		preSignTTL: DefaultPreSignTTL,
		log:        log,
	}, nil
}

// Download retrieves an object from S3 by path.
// Returns ErrObjectNotFound if the object doesn't exist.
func (b *S3Backend) Download(ctx context.Context, objectPath string) ([]byte, error) {
	start := time.Now()
	key := b.objectKey(objectPath)

	result, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "404") {
			b.log.Debug("Object not found in S3",
				slog.String("bucket", b.bucketName),
				slog.String("key", key),
				slog.Duration("duration", time.Since(start)))
			return nil, interfaces.ErrObjectNotFound
		}

		b.log.Error("Failed to get object from S3",
			slog.String("bucket", b.bucketName),
			slog.String("key", key),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		b.log.Error("Failed to read object body",
			slog.String("bucket", b.bucketName),
			slog.String("key", key),
			"err", err)
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	b.log.Debug("Downloaded object from S3",
		slog.String("bucket", b.bucketName),
		slog.String("key", key),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// PreSignURL generates a time-limited GET URL for the given object path.
// The signature differs between calls but the target path does not.
func (b *S3Backend) PreSignURL(objectPath string) (string, error) {
	key := b.objectKey(objectPath)

	req, _ := b.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(key),
	})

	url, err := req.Presign(b.preSignTTL)
	if err != nil {
		b.log.Error("Failed to pre-sign S3 URL",
			slog.String("bucket", b.bucketName),
			slog.String("key", key),
			"err", err)
		return "", fmt.Errorf("failed to pre-sign URL: %w", err)
	}

	return url, nil
}

// Available checks if the S3 backend is accessible by heading the bucket.
func (b *S3Backend) Available(ctx context.Context) bool {
	_, err := b.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucketName),
	})
	if err != nil {
		b.log.Warn("S3 backend unavailable", slog.String("bucket", b.bucketName), "err", err)
		return false
	}
	return true
}

// objectKey joins the configured prefix with an object path.
func (b *S3Backend) objectKey(objectPath string) string {
	objectPath = strings.TrimPrefix(objectPath, "/")
	if b.prefix == "" {
		return objectPath
	}
	return path.Join(b.prefix, objectPath)
}
