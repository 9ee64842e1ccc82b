package repositories

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureS3Middleware short-circuits the request, recording the PutObject input.
func captureS3Middleware(captured **s3.PutObjectInput, output any, err error) func(*middleware.Stack) error {
	return func(stack *middleware.Stack) error {
		return stack.Initialize.Add(
			middleware.InitializeMiddlewareFunc("CaptureInput", func(ctx context.Context, in middleware.InitializeInput, next middleware.InitializeHandler) (middleware.InitializeOutput, middleware.Metadata, error) {
				if input, ok := in.Parameters.(*s3.PutObjectInput); ok {
					*captured = input
				}
				return middleware.InitializeOutput{Result: output}, middleware.Metadata{}, err
			}),
			middleware.Before,
		)
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestS3Repository_UploadFile(t *testing.T) {
	var captured *s3.PutObjectInput
	client := s3.NewFromConfig(aws.Config{Region: "us-east-1"}, func(o *s3.Options) {
		o.APIOptions = append(o.APIOptions, captureS3Middleware(&captured, &s3.PutObjectOutput{}, nil))
	})
	repo := NewS3Repository(client, 5*1024*1024, 4)
	path := writeTempFile(t, "1.jpg", "jpeg-bytes")

	location, err := repo.UploadFile(context.TODO(), "mirrors", "b/1.jpg", path, "image/jpeg")

	require.NoError(t, err)
	assert.Equal(t, "s3://mirrors/b/1.jpg", location)
	require.NotNil(t, captured)
	assert.Equal(t, "mirrors", aws.ToString(captured.Bucket))
	assert.Equal(t, "b/1.jpg", aws.ToString(captured.Key))
	assert.Equal(t, "image/jpeg", aws.ToString(captured.ContentType))
}

func TestS3Repository_UploadFile_Error(t *testing.T) {
	var captured *s3.PutObjectInput
	client := s3.NewFromConfig(aws.Config{Region: "us-east-1"}, func(o *s3.Options) {
		o.APIOptions = append(o.APIOptions, captureS3Middleware(&captured, nil, errors.New("access denied")))
	})
	repo := NewS3Repository(client, 0, 0)
	path := writeTempFile(t, "1.jpg", "jpeg-bytes")

	_, err := repo.UploadFile(context.TODO(), "mirrors", "1.jpg", path, "")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upload 1.jpg to bucket mirrors")
	require.NotNil(t, captured)
	assert.Nil(t, captured.ContentType)
}

func TestS3Repository_UploadFile_MissingFile(t *testing.T) {
	repo := NewS3Repository(s3.NewFromConfig(aws.Config{Region: "us-east-1"}), 0, 0)

	_, err := repo.UploadFile(context.TODO(), "mirrors", "1.jpg", filepath.Join(t.TempDir(), "absent"), "")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "for upload")
}

func TestNewS3Client_Endpoint(t *testing.T) {
	client := NewS3Client(aws.Config{Region: "us-east-1"}, "http://localstack:4566")

	assert.Equal(t, "http://localstack:4566", aws.ToString(client.Options().BaseEndpoint))
	assert.True(t, client.Options().UsePathStyle)
}
