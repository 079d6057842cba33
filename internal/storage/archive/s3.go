// internal/storage/archive/s3.go
package archive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/newthinker/archivist/internal/core"
)

// S3Config holds S3 connection configuration
type S3Config struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Prefix    string
}

// S3Storage implements Store for S3-compatible backends
type S3Storage struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3 creates a new S3 storage client. Static credentials are used when
// given, otherwise the default AWS credential chain.
func NewS3(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("s3 bucket must be provided"))
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	configure := func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO and most S3-compatible services
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	}

	var client *s3.Client
	if cfg.AccessKey != "" {
		opts := s3.Options{
			Region:      region,
			Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		}
		configure(&opts)
		client = s3.New(opts)
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
		if err != nil {
			return nil, core.WrapError(core.ErrStoreUnavailable, fmt.Errorf("loading aws config: %w", err))
		}
		client = s3.NewFromConfig(awsCfg, configure)
	}

	return &S3Storage{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

func (s *S3Storage) Bucket() string { return s.bucket }

func (s *S3Storage) Key(localPath string) string {
	return KeyFor(s.prefix, localPath)
}

func (s *S3Storage) Upload(ctx context.Context, localPath string, meta map[string]string) (*core.UploadReceipt, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, core.WrapError(core.ErrUploadFailed, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, core.WrapError(core.ErrUploadFailed, err)
	}

	key := s.Key(localPath)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		Metadata:      meta,
	})
	if err != nil {
		return nil, core.WrapError(core.ErrUploadFailed, fmt.Errorf("put %s: %w", key, err))
	}

	// The put response carries no size; read back what the store holds.
	receipt, err := s.Stat(ctx, key)
	if err != nil {
		return nil, core.WrapError(core.ErrUploadFailed, fmt.Errorf("head %s: %w", key, err))
	}
	return receipt, nil
}

func (s *S3Storage) Stat(ctx context.Context, key string) (*core.UploadReceipt, error) {
	output, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, core.WrapError(core.ErrObjectNotFound, fmt.Errorf("%s", key))
		}
		return nil, err
	}

	return &core.UploadReceipt{
		Bucket:   s.bucket,
		Key:      key,
		ETag:     aws.ToString(output.ETag),
		Size:     aws.ToInt64(output.ContentLength),
		Metadata: output.Metadata,
	}, nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	if errors.As(err, &nf) || errors.As(err, &nsk) {
		return true
	}
	// HeadObject has no body, so some S3-compatible services only
	// surface the status code
	var re *smithyhttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
