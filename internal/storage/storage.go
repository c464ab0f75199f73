// Package storage keeps downloaded media bytes in an S3-compatible bucket.
// Objects are keyed by a digest of the media URL so arbitrary URLs map to
// valid object keys.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var ErrNotFound = errors.New("object not found")

type Cache struct {
	client *s3.Client
	bucket string
}

type Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
}

func New(ctx context.Context, cfg Config) (*Cache, error) {
	if cfg.Region == "" {
		cfg.Region = "eu-central-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return &Cache{client: client, bucket: cfg.Bucket}, nil
}

// mediaKey maps a media URL to a stable object key.
func mediaKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "media/" + hex.EncodeToString(sum[:])
}

// uploadKey maps an admin-uploaded file name to its object key. Names are
// generated server-side, so they are used as-is.
func uploadKey(name string) string {
	return "uploads/" + name
}

func (c *Cache) putObject(ctx context.Context, key, contentType string, body io.Reader) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := c.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (c *Cache) getObject(ctx context.Context, key string) (io.ReadCloser, string, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("get object: %w", err)
	}

	contentType := ""
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	return out.Body, contentType, nil
}

// Put streams the body into the bucket under the URL's key. An existing
// object for the same URL is overwritten.
func (c *Cache) Put(ctx context.Context, url string, contentType string, body io.Reader) error {
	return c.putObject(ctx, mediaKey(url), contentType, body)
}

// Match returns the cached bytes and content type for the URL, or ErrNotFound
// when nothing is cached. The caller owns the returned body.
func (c *Cache) Match(ctx context.Context, url string) (io.ReadCloser, string, error) {
	return c.getObject(ctx, mediaKey(url))
}

// Upload stores an admin-uploaded media file under its generated name.
func (c *Cache) Upload(ctx context.Context, name, contentType string, body io.Reader) error {
	return c.putObject(ctx, uploadKey(name), contentType, body)
}

// OpenUpload returns an uploaded file's bytes and content type, or
// ErrNotFound for a name that was never uploaded.
func (c *Cache) OpenUpload(ctx context.Context, name string) (io.ReadCloser, string, error) {
	return c.getObject(ctx, uploadKey(name))
}

func (c *Cache) Delete(ctx context.Context, url string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(mediaKey(url)),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (c *Cache) EnsureBucket(ctx context.Context) error {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = c.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}
