package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/hpungsan/tabstash/internal/config"
)

// S3Sink stores backups as objects in one bucket under a key prefix.
type S3Sink struct {
	client *s3.Client
	bucket string
	prefix string
}

// S3Option adjusts the AWS config or the S3 client before the sink is built.
type S3Option struct {
	Load   []func(*awsconfig.LoadOptions) error
	Client func(*s3.Options)
}

// NewS3Sink builds a sink from cfg using the default AWS credential chain.
func NewS3Sink(ctx context.Context, cfg config.S3Config, opts ...S3Option) (*S3Sink, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	for _, o := range opts {
		loadOpts = append(loadOpts, o.Load...)
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		for _, opt := range opts {
			if opt.Client != nil {
				opt.Client(o)
			}
		}
	})
	return &S3Sink{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Bucket returns the target bucket.
func (s *S3Sink) Bucket() string { return s.bucket }

func (s *S3Sink) key(name string) string { return s.prefix + name }

func (s *S3Sink) Put(ctx context.Context, name string, data []byte) error {
	key := s.key(name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	return err
}

// List returns object names under the prefix with the prefix removed.
func (s *S3Sink) List(ctx context.Context) ([]string, error) {
	var names []string
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &s.prefix, ContinuationToken: token})
		if err != nil {
			return nil, err
		}
		for _, obj := range out.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if name != "" && !strings.Contains(name, "/") {
				names = append(names, name)
			}
		}
		if aws.ToBool(out.IsTruncated) && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	return names, nil
}

func (s *S3Sink) Read(ctx context.Context, name string) ([]byte, error) {
	key := s.key(name)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// WithHTTPClient routes S3 requests through c.
func WithHTTPClient(c *http.Client) S3Option {
	return S3Option{Client: func(o *s3.Options) { o.HTTPClient = c }}
}
