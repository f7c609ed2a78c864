package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
)

// S3Store implements Store against an S3 client.
type S3Store struct {
	client *s3.Client
}

var _ Store = (*S3Store)(nil)

// NewS3Store wraps an S3 client as a Store.
func NewS3Store(client *s3.Client) *S3Store {
	return &S3Store{client: client}
}

// Get returns the full contents of an object.
func (s *S3Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket, Key: &key,
	})
	if err != nil {
		return nil, wrapNotFound(err, key)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Put writes an object, overwriting any existing value at the key.
func (s *S3Store) Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        body,
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("S3 PutObject %s: %w", key, err)
	}
	return nil
}

// Copy duplicates an object server-side within the bucket.
func (s *S3Store) Copy(ctx context.Context, bucket, srcKey, dstKey string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     &bucket,
		CopySource: aws.String(bucket + "/" + srcKey),
		Key:        &dstKey,
	})
	if err != nil {
		return fmt.Errorf("S3 CopyObject %s -> %s: %w", srcKey, dstKey, err)
	}
	return nil
}

// List returns the keys under a prefix, following pagination.
func (s *S3Store) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: &bucket,
		Prefix: &prefix,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("S3 ListObjectsV2 %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, *obj.Key)
		}
	}
	return keys, nil
}

// Delete removes an object. S3 treats deleting a missing key as success.
func (s *S3Store) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &bucket, Key: &key,
	})
	if err != nil {
		return fmt.Errorf("S3 DeleteObject %s: %w", key, err)
	}
	return nil
}

// Download streams an object to a local file path.
func (s *S3Store) Download(ctx context.Context, bucket, key, localPath string) error {
	log.Debug().Str("bucket", bucket).Str("key", key).Str("localPath", localPath).Msg("Downloading from S3")
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket, Key: &key,
	})
	if err != nil {
		return wrapNotFound(err, key)
	}
	defer result.Body.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, result.Body); err != nil {
		return fmt.Errorf("download %s: %w", key, err)
	}
	return nil
}

// wrapNotFound maps the S3 missing-key error onto ErrNotFound so callers can
// test with blob.IsNotFound.
func wrapNotFound(err error, key string) error {
	var noSuchKey *s3types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return fmt.Errorf("S3 GetObject %s: %w", key, err)
}
