// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"identity-sync-service/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// R2Client writes objects to a Cloudflare R2 (or any S3-compatible) bucket.
type R2Client struct {
	client *s3.Client
	bucket string
}

func NewR2Client(ctx context.Context, cfg config.ArchiveConfig) (*R2Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("archive bucket is not configured")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	endpoint := cfg.ResolvedEndpoint()
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &R2Client{client: client, bucket: cfg.Bucket}, nil
}

func (r *R2Client) Bucket() string {
	return r.bucket
}

// PutObject uploads body under key.
func (r *R2Client) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to R2: %w", key, err)
	}
	return nil
}
