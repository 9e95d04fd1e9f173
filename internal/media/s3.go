// internal/media/s3.go
// Package media provides S3-compatible archival for session photos.
// Photos live in the store as inline data URLs; archival copies the decoded
// bytes to an object store so an event crew can pull originals later.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Archiver wraps the AWS S3 client for photo archival operations.
type Archiver struct {
	client *s3.Client // AWS S3 client
	bucket string     // S3 bucket name for photo storage
}

// NewArchiver creates a new S3-backed photo archiver.
// It supports both AWS S3 and S3-compatible services like MinIO.
// Parameters:
//   - endpoint: S3 service endpoint URL
//   - region: AWS region (or equivalent for S3-compatible services)
//   - bucket: S3 bucket name for photo storage
//   - accessKey: Access key for authentication
//   - secretKey: Secret key for authentication
// Returns:
//   - *Archiver: Initialized archiver
//   - error: Any error that occurred during initialization
func NewArchiver(endpoint, region, bucket, accessKey, secretKey string) (*Archiver, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(region),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(aws.CredentialsProviderFunc(
			func(ctx context.Context) (aws.Credentials, error) {
				return aws.Credentials{
					AccessKeyID:     accessKey,
					SecretAccessKey: secretKey,
				}, nil
			})),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Path-style addressing is required for MinIO and other S3-compatible services
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return &Archiver{
		client: client,
		bucket: bucket,
	}, nil
}

// ArchivePhoto decodes an inline data URL and writes the image bytes to the
// bucket under a session-scoped key.
// Parameters:
//   - ctx: Context for the operation
//   - sessionID: Booth session the photo belongs to
//   - photoKey: Unique key component for the object name
//   - imageData: Inline encoded image (data URL or bare base64)
// Returns:
//   - string: Object URI of the archived photo (s3://bucket/key)
//   - error: Any error that occurred during decoding or upload
func (a *Archiver) ArchivePhoto(ctx context.Context, sessionID, photoKey, imageData string) (string, error) {
	raw, contentType, err := decodeDataURL(imageData)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("sessions/%s/photo-%s%s", sessionID, photoKey, extensionFor(contentType))

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive photo: %w", err)
	}

	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}

// GenerateDownloadURL generates a presigned GET URL for a previously archived
// photo so it can be shared without exposing bucket credentials.
// Parameters:
//   - ctx: Context for the operation
//   - key: S3 object key of the archived photo
//   - expires: Duration until the presigned URL expires
// Returns:
//   - string: Presigned URL for downloading
//   - error: Any error that occurred during URL generation
func (a *Archiver) GenerateDownloadURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(a.client)

	presignResult, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expires
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return presignResult.URL, nil
}

// decodeDataURL splits a "data:<type>;base64,<payload>" URL into raw bytes and
// a content type. Bare base64 input is accepted and treated as PNG.
func decodeDataURL(imageData string) ([]byte, string, error) {
	contentType := "image/png"
	payload := imageData

	if strings.HasPrefix(imageData, "data:") {
		rest := strings.TrimPrefix(imageData, "data:")
		meta, encoded, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", fmt.Errorf("malformed data URL")
		}
		if ct, _, ok := strings.Cut(meta, ";"); ok && ct != "" {
			contentType = ct
		} else if meta != "" && !strings.Contains(meta, ";") {
			contentType = meta
		}
		payload = encoded
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image data: %w", err)
	}

	return raw, contentType, nil
}

// extensionFor maps a content type to a file extension for the object key.
func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
