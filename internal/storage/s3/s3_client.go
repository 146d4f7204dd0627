// Package s3 archives filing exchanges in an S3-compatible bucket.
package s3

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"borderdesk/internal/config"
	"borderdesk/internal/port"
)

// partSize keeps a typical archive to a single part.
const partSize = 5 << 20

type archiveStore struct {
	presigner *s3.PresignClient
	uploader  *manager.Uploader
	// encrypt is false for custom endpoints (MinIO, LocalStack) that may not
	// support server-side encryption.
	encrypt bool
}

// NewS3Client creates an S3-backed ObjectStorage. A custom endpoint switches
// to path-style addressing for MinIO and LocalStack.
func NewS3Client(cfg *config.S3Config) (port.ObjectStorage, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	customEndpoint := cfg.Endpoint != ""
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if customEndpoint {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	log.Printf("s3.NewS3Client: archiving to bucket %q (custom endpoint: %t)", cfg.Bucket, customEndpoint)
	return &archiveStore{
		presigner: s3.NewPresignClient(client),
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = partSize
			u.Concurrency = 1
		}),
		encrypt: !customEndpoint,
	}, nil
}

// Upload writes one archive object with its metadata and a SHA-256 checksum.
func (a *archiveStore) Upload(ctx context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	put := &s3.PutObjectInput{
		Bucket:            aws.String(input.Bucket),
		Key:               aws.String(input.Key),
		Body:              input.Body,
		ContentType:       aws.String(input.ContentType),
		Metadata:          input.Metadata,
		ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
	}
	if input.Size > 0 {
		put.ContentLength = aws.Int64(input.Size)
	}
	if a.encrypt {
		put.ServerSideEncryption = types.ServerSideEncryptionAes256
	}

	result, err := a.uploader.Upload(ctx, put)
	if err != nil {
		return nil, fmt.Errorf("s3.Upload %s: %w", input.Key, err)
	}

	return &port.UploadOutput{Location: result.Location, ETag: aws.ToString(result.ETag)}, nil
}

// GetPresignedURL returns a time-limited GET link that renders the archive
// inline in a browser.
func (a *archiveStore) GetPresignedURL(ctx context.Context, bucket, key string, expirySeconds int64) (string, error) {
	req, err := a.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(bucket),
		Key:                        aws.String(key),
		ResponseContentType:        aws.String("application/json"),
		ResponseContentDisposition: aws.String("inline"),
	}, s3.WithPresignExpires(time.Duration(expirySeconds)*time.Second))
	if err != nil {
		return "", fmt.Errorf("s3.GetPresignedURL %s: %w", key, err)
	}
	return req.URL, nil
}
