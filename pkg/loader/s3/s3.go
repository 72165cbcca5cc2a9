package s3

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/OFFIS-RIT/amrlink/pkg/loader"
)

// ObjectGetter is the part of the S3 API the loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3DocumentLoader is a DocumentLoader implementation that loads documents
// from an S3 bucket. It uses the AWS SDK v2 for Go.
type S3DocumentLoader struct {
	bucket string
	client ObjectGetter
	cache  *loader.Cache
}

// NewS3DocumentLoaderWithClient creates a new S3DocumentLoader using an
// existing client. This is useful to share one preconfigured client between
// the loader and the uploads.
func NewS3DocumentLoaderWithClient(bucket string, client ObjectGetter) *S3DocumentLoader {
	return &S3DocumentLoader{
		bucket: bucket,
		client: client,
		cache:  loader.NewCache(),
	}
}

// NewS3DocumentLoaderParams defines the configuration parameters for
// creating a new S3DocumentLoader.
//
// Endpoint allows overriding the S3 endpoint (useful for S3-compatible
// storage like MinIO). AccessKey and SecretKey provide static credentials.
type NewS3DocumentLoaderParams struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// NewS3DocumentLoader creates a new S3DocumentLoader with a client built from
// static credentials and the given endpoint and region.
func NewS3DocumentLoader(ctx context.Context, params NewS3DocumentLoaderParams) (*S3DocumentLoader, error) {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(params.Region),
		config.WithBaseEndpoint(params.Endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKey,
			params.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return NewS3DocumentLoaderWithClient(params.Bucket, client), nil
}

// GetDocumentBytes retrieves the object stored under path. Results are
// cached per bucket and key.
func (l *S3DocumentLoader) GetDocumentBytes(ctx context.Context, path string) ([]byte, error) {
	return l.cache.Get(l.bucket+"/"+path, func() ([]byte, error) {
		out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(l.bucket),
			Key:    aws.String(path),
		})
		if err != nil {
			return nil, err
		}
		defer out.Body.Close()

		buf := new(bytes.Buffer)
		if _, err := io.Copy(buf, out.Body); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
}
