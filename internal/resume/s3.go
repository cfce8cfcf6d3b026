package resume

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Client is the subset of the S3 API used by S3Source.
type S3Client interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config describes the bucket holding the resume.
type S3Config struct {
	Bucket         string
	Region         string
	Prefix         string // prepended to every decoded candidate key
	Endpoint       string // S3-compatible services
	BaseURL        string // public URL used for the direct-open fallback
	AccessKeyID    string
	SecretKey      string
	ForcePathStyle bool
}

// S3Source looks candidates up as object keys in a bucket.
type S3Source struct {
	client  S3Client
	bucket  string
	prefix  string
	baseURL string
}

// NewS3Source loads AWS configuration and builds a client, unless client is
// non-nil, in which case it is used as-is.
func NewS3Source(ctx context.Context, cfg S3Config, client S3Client) (*S3Source, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("resume: s3 bucket is required")
	}

	if client == nil {
		opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			opts = append(opts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
			))
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.UsePathStyle = cfg.ForcePathStyle
		})
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Endpoint != "" {
			baseURL = fmt.Sprintf("%s/%s", strings.TrimSuffix(cfg.Endpoint, "/"), cfg.Bucket)
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	return &S3Source{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

func (s *S3Source) key(p string) (string, error) {
	key, err := cleanKey(p)
	if err != nil {
		return "", err
	}
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}
	return key, nil
}

func (s *S3Source) Exists(ctx context.Context, p string) error {
	key, err := s.key(p)
	if err != nil {
		return err
	}
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return classifyS3Error(err, p)
}

func (s *S3Source) Fetch(ctx context.Context, p string) (*Blob, error) {
	key, err := s.key(p)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		ResponseCacheControl: aws.String("no-store"),
	})
	if err != nil {
		return nil, classifyS3Error(err, p)
	}
	defer out.Body.Close()

	data, err := readLimited(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return &Blob{Data: data, ContentType: aws.ToString(out.ContentType)}, nil
}

// URL points at the object under the public base URL. The key keeps the
// candidate's encoding.
func (s *S3Source) URL(p string) string {
	p = strings.TrimLeft(p, "/")
	if s.prefix != "" {
		p = s.prefix + "/" + p
	}
	return s.baseURL + "/" + p
}

func classifyS3Error(err error, p string) error {
	if err == nil {
		return nil
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("%w: %s", ErrMissing, p)
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return fmt.Errorf("%w: %s", ErrMissing, p)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %s", ErrMissing, p)
		default:
			return fmt.Errorf("s3 %s (code: %s): %w", p, apiErr.ErrorCode(), err)
		}
	}
	return fmt.Errorf("s3 %s: %w", p, err)
}
