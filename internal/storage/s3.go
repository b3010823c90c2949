package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultRegion = "us-east-1"

// S3Client implements Client using the AWS SDK.
// A custom endpoint switches to path-style addressing for S3-compatible services.
type S3Client struct {
	client *s3.Client
	bucket string
}

// NewS3Client creates a new S3 client with static credentials
func NewS3Client(ctx context.Context, cfg Config) (*S3Client, error) {
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(awscreds.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(withScheme(cfg.Endpoint, cfg.Secure))
			o.UsePathStyle = true
		}
	})

	return &S3Client{client: client, bucket: cfg.Bucket}, nil
}

// Save uploads an object with PutObject.
// S3 does not echo the key, so the requested key is returned.
func (c *S3Client) Save(ctx context.Context, key string, r io.Reader, size int64, opts PutOptions) (SaveResult, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentLength: aws.Int64(size),
		Metadata:      opts.Metadata,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}

	out, err := c.client.PutObject(ctx, input)
	if err != nil {
		return SaveResult{}, err
	}

	return SaveResult{
		Key:  key,
		ETag: aws.ToString(out.ETag),
		Size: size,
	}, nil
}
