// Package s3 stores statements in an S3-compatible bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/neomorfeo/reportcycle/internal/domain"
)

// DefaultListLimit caps a listing at one page.
const DefaultListLimit = 1000

// Compile-time check: Store implements domain.ObjectStore.
var _ domain.ObjectStore = (*Store)(nil)

// API is the subset of the S3 client the store uses.
type API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config selects the bucket and endpoint.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string // S3-compatible endpoint, empty for AWS
	PathStyle bool
	ListLimit int
}

// Store is a domain.ObjectStore over one bucket. Objects live at the bucket
// root under their artifact name.
type Store struct {
	api       API
	bucket    string
	listLimit int32
}

// New creates a store using api.
func New(api API, bucket string, listLimit int) *Store {
	if listLimit <= 0 {
		listLimit = DefaultListLimit
	}
	return &Store{api: api, bucket: bucket, listLimit: int32(min(listLimit, DefaultListLimit))}
}

// NewFromConfig builds the S3 client from the default credential chain.
func NewFromConfig(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, &domain.ConfigurationError{Field: "storage.bucket", Reason: "required for the s3 backend"}
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return New(client, cfg.Bucket, cfg.ListLimit), nil
}

// List returns the names starting with prefix from a single page.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	out, err := s.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(s.listLimit),
	})
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", prefix, err)
	}

	names := make([]string, 0, len(out.Contents))
	for _, obj := range out.Contents {
		names = append(names, aws.ToString(obj.Key))
	}
	return names, nil
}

// Upload writes object. Without upsert the write is conditional on the key
// being absent.
func (s *Store) Upload(ctx context.Context, object domain.Object, upsert bool) error {
	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(object.Name),
		Body:          bytes.NewReader(object.Content),
		ContentLength: aws.Int64(int64(len(object.Content))),
		ContentType:   aws.String(object.ContentType),
	}
	if !upsert {
		in.IfNoneMatch = aws.String("*")
	}

	if _, err := s.api.PutObject(ctx, in); err != nil {
		if isConflict(err) {
			return fmt.Errorf("uploading %q: %w", object.Name, domain.ErrObjectExists)
		}
		return fmt.Errorf("uploading %q: %w", object.Name, err)
	}
	return nil
}

// isConflict reports whether err is a failed If-None-Match precondition.
func isConflict(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == http.StatusPreconditionFailed
	}
	return false
}
