package bookmark

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/geoportal-dev/hashsync/internal/errors"
)

// S3API is the subset of the S3 client used by S3Store. *s3.Client
// implements it.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store stores each bookmark as a JSON object under prefix+id.
//
// Example usage:
//
//	client := bookmark.NewS3Client(bookmark.S3Config{Region: "eu-central-1"})
//	store := bookmark.NewS3Store(client, "geoportal-views", "bookmarks/")
type S3Store struct {
	client S3API
	bucket string
	prefix string
	closed atomic.Bool
}

// NewS3Store creates a new S3 bookmark store.
func NewS3Store(client S3API, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

// S3Config describes how to reach an S3 compatible endpoint.
type S3Config struct {
	Region string

	// Endpoint overrides the AWS endpoint, e.g. for MinIO.
	Endpoint string

	// PathStyle addresses buckets as endpoint/bucket instead of
	// bucket.endpoint.
	PathStyle bool

	// AccessKeyID and SecretAccessKey are static credentials. When empty,
	// requests are sent anonymously.
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Client builds an S3 client from cfg.
func NewS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.PathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKeyID != "" {
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) {
				return aws.Credentials{
					AccessKeyID:     cfg.AccessKeyID,
					SecretAccessKey: cfg.SecretAccessKey,
					Source:          "hashsync",
				}, nil
			}))
	} else {
		opts.Credentials = aws.AnonymousCredentials{}
	}
	return s3.New(opts)
}

func (s *S3Store) key(id string) string {
	return s.prefix + id + ".json"
}

// Save implements Store.
func (s *S3Store) Save(ctx context.Context, b *Bookmark) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if err := Prepare(b); err != nil {
		return err
	}
	body, err := json.Marshal(b)
	if err != nil {
		return errors.New("H081").Wrap(err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(b.ID)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return errors.New("H081").Wrap(err)
	}
	return nil
}

// Get implements Store.
func (s *S3Store) Get(ctx context.Context, id string) (*Bookmark, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if stderrors.As(err, &noSuchKey) {
			return nil, ErrNotFound
		}
		return nil, errors.New("H081").Wrap(err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, 64<<10))
	if err != nil {
		return nil, errors.New("H081").Wrap(err)
	}
	var b Bookmark
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, errors.New("H081").Wrap(err)
	}
	return &b, nil
}

// Delete implements Store.
func (s *S3Store) Delete(ctx context.Context, id string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		return errors.New("H081").Wrap(err)
	}
	return nil
}

// Close implements Store.
func (s *S3Store) Close() error {
	s.closed.Store(true)
	return nil
}
