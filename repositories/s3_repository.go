package repositories

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Repository struct {
	uploader *manager.Uploader
}

// NewS3Repository uploads through the transfer manager, splitting files larger than
// partSize into a multipart upload with up to concurrency parts in flight.
func NewS3Repository(client manager.UploadAPIClient, partSize int64, concurrency int) *S3Repository {
	return &S3Repository{
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			if partSize > 0 {
				u.PartSize = partSize
			}
			if concurrency > 0 {
				u.Concurrency = concurrency
			}
		}),
	}
}

// NewS3Client builds a path-style client, pointed at endpointURL when it is set
// (e.g. localstack or another S3-compatible store).
func NewS3Client(cfg aws.Config, endpointURL string) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if endpointURL != "" {
			o.BaseEndpoint = aws.String(endpointURL)
		}
	})
}

func (r *S3Repository) UploadFile(ctx context.Context, bucket, key, path, contentType string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for upload: %w", path, err)
	}
	defer file.Close()

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   file,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := r.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload %s to bucket %s: %w", key, bucket, err)
	}
	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}
