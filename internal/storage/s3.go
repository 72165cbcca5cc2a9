package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/OFFIS-RIT/amrlink/internal/util"
	"github.com/OFFIS-RIT/amrlink/pkg/common"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectClient is the part of the S3 API used for documents and graph
// exports. *s3.Client implements it.
type ObjectClient interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Presigner signs download links for graph exports.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Store keeps uploaded documents and exported graphs under
// documents/<key>/ in one bucket.
type Store struct {
	client    ObjectClient
	bucket    string
	presigner Presigner
	// pathPrefix is prepended to presigned URL paths when the public endpoint
	// sits behind a reverse proxy path.
	pathPrefix string
}

func NewStore(client ObjectClient, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// NewS3Client builds a path-style client from AWS_REGION, AWS_ENDPOINT,
// AWS_ACCESS_KEY and AWS_SECRET_KEY.
func NewS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(util.GetEnv("AWS_REGION")),
		config.WithBaseEndpoint(util.GetEnv("AWS_ENDPOINT")),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			util.GetEnv("AWS_ACCESS_KEY"),
			util.GetEnv("AWS_SECRET_KEY"),
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	}), nil
}

// NewStoreFromEnv returns a store for AWS_BUCKET. When AWS_PUBLIC_ENDPOINT
// is set, download links are signed for that endpoint.
func NewStoreFromEnv(ctx context.Context, client *s3.Client) (*Store, error) {
	bucket := util.GetEnv("AWS_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("AWS_BUCKET is not set")
	}
	s := NewStore(client, bucket)

	if publicEndpoint := util.GetEnv("AWS_PUBLIC_ENDPOINT"); publicEndpoint != "" {
		publicURL, err := url.Parse(publicEndpoint)
		if err != nil || publicURL.Scheme == "" || publicURL.Host == "" {
			return nil, fmt.Errorf("invalid AWS_PUBLIC_ENDPOINT: %s", publicEndpoint)
		}
		base := fmt.Sprintf("%s://%s", publicURL.Scheme, publicURL.Host)

		// the signature must match the Host header the downloader sends
		public := s3.NewFromConfig(
			aws.Config{
				Region:      client.Options().Region,
				Credentials: client.Options().Credentials,
				HTTPClient:  client.Options().HTTPClient,
			},
			func(o *s3.Options) {
				o.BaseEndpoint = aws.String(base)
				o.UsePathStyle = true
			},
		)
		s.presigner = s3.NewPresignClient(public)
		s.pathPrefix = strings.TrimSuffix(publicURL.Path, "/")
	} else {
		s.presigner = s3.NewPresignClient(client)
	}
	return s, nil
}

// WithPresigner replaces the presigner used for download links.
func (s *Store) WithPresigner(p Presigner, pathPrefix string) *Store {
	s.presigner = p
	s.pathPrefix = strings.TrimSuffix(pathPrefix, "/")
	return s
}

func (s *Store) Bucket() string { return s.bucket }

func DocumentFolder(key string) string {
	return fmt.Sprintf("documents/%s/", key)
}

// DocumentPath is the object key of an uploaded document.
func DocumentPath(key string) string {
	return DocumentFolder(key) + "document.json"
}

// GraphPath is the object key of an exported document graph.
func GraphPath(key string, format common.Format) string {
	return DocumentFolder(key) + "graph." + string(format)
}

// PutDocument uploads the JSON body of a document and returns its path.
func (s *Store) PutDocument(ctx context.Context, key string, body []byte) (string, error) {
	path := DocumentPath(key)
	return path, s.put(ctx, path, "application/json", body)
}

// PutGraph uploads a serialized document graph and returns its path.
func (s *Store) PutGraph(ctx context.Context, key string, format common.Format, body []byte) (string, error) {
	path := GraphPath(key, format)
	return path, s.put(ctx, path, format.MediaType(), body)
}

func (s *Store) put(ctx context.Context, path, mimeType string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(path),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to S3: %w", path, err)
	}
	return nil
}

func (s *Store) GetFile(ctx context.Context, path string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s from S3: %w", path, err)
	}
	defer result.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, result.Body); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

// DownloadLink returns a presigned link to path, valid for 15 minutes.
func (s *Store) DownloadLink(ctx context.Context, path string) (string, error) {
	if s.presigner == nil {
		return "", fmt.Errorf("download links are not configured")
	}
	out, err := s.presigner.PresignGetObject(
		ctx,
		&s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(path),
		},
		s3.WithPresignExpires(15*time.Minute),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate download link: %w", err)
	}
	if s.pathPrefix == "" {
		return out.URL, nil
	}

	signedURL, err := url.Parse(out.URL)
	if err != nil {
		return "", fmt.Errorf("failed to parse presigned url: %w", err)
	}
	signedURL.Path = s.pathPrefix + signedURL.Path
	return signedURL.String(), nil
}

// DeleteDocument removes every object stored for key.
func (s *Store) DeleteDocument(ctx context.Context, key string) error {
	return s.DeleteFolder(ctx, DocumentFolder(key))
}

func (s *Store) DeleteFolder(ctx context.Context, prefix string) error {
	listInput := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}

	for {
		listOutput, err := s.client.ListObjectsV2(ctx, listInput)
		if err != nil {
			return fmt.Errorf("failed to list objects in folder %s: %w", prefix, err)
		}
		if len(listOutput.Contents) == 0 {
			break
		}

		objects := make([]types.ObjectIdentifier, 0, len(listOutput.Contents))
		for _, obj := range listOutput.Contents {
			objects = append(objects, types.ObjectIdentifier{Key: obj.Key})
		}

		_, err = s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects in folder %s: %w", prefix, err)
		}

		if listOutput.IsTruncated == nil || !*listOutput.IsTruncated {
			break
		}
		listInput.ContinuationToken = listOutput.NextContinuationToken
	}

	return nil
}
