package staging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/subtrack/internal/core"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Object metadata keys. S3 lower-cases user metadata keys on read and only
// carries ASCII values, so the original name is escaped.
const (
	metaOriginalName = "original-name"
	metaKind         = "kind"
	metaCreatedAt    = "created-at"
)

// S3Config configures the S3 staging backend.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional, e.g. http://localhost:9000 for MinIO
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	UsePathStyle    bool
}

// S3 is a StagingArea backed by an S3-compatible bucket.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3 builds an S3 client from cfg. Static credentials are used when both
// keys are set; otherwise the default AWS credential chain applies.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 staging requires a bucket")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewS3WithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3WithClient wraps an existing client.
func NewS3WithClient(client *s3.Client, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: normalizePrefix(prefix)}
}

// Ping verifies the bucket is reachable.
func (s *S3) Ping(ctx context.Context) error {
	_, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to S3: %w", err)
	}
	return nil
}

// Put uploads the file with its metadata as object headers.
func (s *S3) Put(ctx context.Context, file core.UploadedFile, data []byte) (core.UploadedFile, error) {
	if err := validHandle(file.Handle); err != nil {
		return core.UploadedFile{}, err
	}

	key := s.key(file.Handle)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata:      encodeMetadata(file),
	})
	if err != nil {
		return core.UploadedFile{}, fmt.Errorf("put staged object %s: %w", key, err)
	}

	file.StoragePath = "s3://" + s.bucket + "/" + key
	return file, nil
}

// Open downloads the staged bytes.
func (s *S3) Open(ctx context.Context, file core.UploadedFile) ([]byte, error) {
	if err := validHandle(file.Handle); err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(file.Handle)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, file.Handle)
		}
		return nil, fmt.Errorf("get staged object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read staged object: %w", err)
	}
	return data, nil
}

// Delete removes the object. S3 reports success for missing keys.
func (s *S3) Delete(ctx context.Context, file core.UploadedFile) error {
	if err := validHandle(file.Handle); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(file.Handle)),
	})
	if err != nil {
		return fmt.Errorf("delete staged object: %w", err)
	}
	return nil
}

// ListExpired lists objects under the prefix last modified before cutoff.
// Only the key and timestamps are needed for deletion, so object metadata is
// not fetched.
func (s *S3) ListExpired(ctx context.Context, cutoff time.Time) ([]core.UploadedFile, error) {
	var expired []core.UploadedFile

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			handle := strings.TrimPrefix(key, s.prefix)
			if validHandle(handle) != nil {
				continue
			}
			modified := aws.ToTime(obj.LastModified)
			if !modified.Before(cutoff) {
				continue
			}
			expired = append(expired, core.UploadedFile{
				Handle:      handle,
				SizeBytes:   aws.ToInt64(obj.Size),
				StoragePath: "s3://" + s.bucket + "/" + key,
				CreatedAt:   modified,
			})
		}
	}
	return expired, nil
}

func (s *S3) key(handle string) string {
	return s.prefix + handle
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return path.Clean(prefix) + "/"
}

func encodeMetadata(file core.UploadedFile) map[string]string {
	return map[string]string{
		metaOriginalName: url.PathEscape(file.OriginalName),
		metaKind:         string(file.MimeKind),
		metaCreatedAt:    strconv.FormatInt(file.CreatedAt.Unix(), 10),
	}
}
