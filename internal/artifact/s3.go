package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrObjectNotFound is returned when a requested object does not exist.
var ErrObjectNotFound = errors.New("artifact: object not found")

// S3Config holds the settings for an S3-compatible artifact store.
type S3Config struct {
	// Endpoint is the S3 endpoint URL. Leave empty for default AWS S3.
	Endpoint string
	// Region is the AWS region ("auto" works for most S3-compatible stores).
	Region string
	// AccessKeyID and SecretAccessKey are static credentials; leave both
	// empty to use the ambient credential chain.
	AccessKeyID     string
	SecretAccessKey string
	// Bucket is the bucket artifacts are written to.
	Bucket string
	// PublicURL, when set, is the base URL reported for stored artifacts.
	PublicURL string
	// UsePathStyle enables path-style addressing (required for gofakes3).
	UsePathStyle bool
}

// S3 stores artifacts in an S3-compatible bucket.
type S3 struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewS3 creates an S3 artifact store.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewS3FromClient(client, cfg.Bucket, cfg.PublicURL), nil
}

// NewS3FromClient wraps an existing S3 client. Used by tests with gofakes3.
func NewS3FromClient(client *s3.Client, bucket, publicURL string) *S3 {
	return &S3{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

func (s *S3) Put(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %q: %w", key, err)
	}
	return s.location(key), nil
}

// Get retrieves a stored artifact. Returns ErrObjectNotFound for unknown keys.
func (s *S3) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrObjectNotFound
		}
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("get object %q: %w", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %q: %w", key, err)
	}
	return data, nil
}

func (s *S3) location(key string) string {
	if s.publicURL != "" {
		return s.publicURL + "/" + strings.TrimPrefix(key, "/")
	}
	return "s3://" + s.bucket + "/" + strings.TrimPrefix(key, "/")
}
