package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/dmitrijs2005/savegamesync/internal/common"
	"github.com/dmitrijs2005/savegamesync/internal/models"
	"github.com/google/uuid"
)

// S3Options configures the client for an S3-compatible endpoint such as MinIO.
type S3Options struct {
	User         string
	Password     string
	Region       string
	BaseEndpoint string
	UsePathStyle bool
}

// NewS3Client builds an S3 client with static credentials.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.User,
			opts.Password,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
		// S3-compatible servers often reject aws-chunked trailing checksums
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	}), nil
}

// S3Store keeps every blob under Prefix. A blob named n with id i is stored
// at key Prefix+n+"/"+uuid, and that key without Prefix is the blob id, so
// colliding names still get distinct keys.
type S3Store struct {
	Client *s3.Client
	Bucket string
	Prefix string
}

func NewS3Store(client *s3.Client, bucket, prefix string) *S3Store {
	return &S3Store{Client: client, Bucket: bucket, Prefix: prefix}
}

func (s *S3Store) key(id string) string {
	return s.Prefix + id
}

// blobFromKey splits a full key into a Blob. Keys outside the layout are
// reported as not ok.
func (s *S3Store) blobFromKey(key string, size int64) (models.Blob, bool) {
	id, ok := strings.CutPrefix(key, s.Prefix)
	if !ok {
		return models.Blob{}, false
	}
	slash := strings.LastIndex(id, "/")
	if slash <= 0 || slash == len(id)-1 {
		return models.Blob{}, false
	}
	return models.Blob{ID: id, Name: id[:slash], Size: size}, true
}

func (s *S3Store) ListByName(ctx context.Context, name string) ([]models.Blob, error) {
	all, err := s.list(ctx, s.Prefix+name+"/")
	if err != nil {
		return nil, common.NewStoreError("list", name, err)
	}
	out := make([]models.Blob, 0, len(all))
	for _, b := range all {
		if b.Name == name {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *S3Store) ListAll(ctx context.Context) ([]models.Blob, error) {
	all, err := s.list(ctx, s.Prefix)
	if err != nil {
		return nil, common.NewStoreError("list", "", err)
	}
	return all, nil
}

func (s *S3Store) list(ctx context.Context, prefix string) ([]models.Blob, error) {
	items := make([]models.Blob, 0)
	var token *string

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, err := s.Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.Bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list objects for prefix %s: %w", prefix, err)
		}

		for _, obj := range out.Contents {
			if b, ok := s.blobFromKey(aws.ToString(obj.Key), aws.ToInt64(obj.Size)); ok {
				items = append(items, b)
			}
		}

		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			break
		}
		token = out.NextContinuationToken
	}

	return items, nil
}

func (s *S3Store) Create(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", common.NewStoreError("create", name, errors.New("empty blob name"))
	}
	id := name + "/" + uuid.NewString()

	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(id)),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return "", common.NewStoreError("create", name, err)
	}
	return id, nil
}

func (s *S3Store) Delete(ctx context.Context, id string) error {
	if err := s.exists(ctx, id); err != nil {
		return common.NewStoreError("delete", id, err)
	}

	_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(id)),
	})
	return common.NewStoreError("delete", id, err)
}

// Upload only overwrites blobs made by Create. The body is buffered when r
// cannot seek, since the SDK signs the payload.
func (s *S3Store) Upload(ctx context.Context, id string, r io.Reader) error {
	if err := s.exists(ctx, id); err != nil {
		return common.NewStoreError("upload", id, err)
	}

	body, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return common.NewStoreError("upload", id, err)
		}
		body = bytes.NewReader(data)
	}

	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(id)),
		Body:   body,
	})
	return common.NewStoreError("upload", id, err)
}

func (s *S3Store) Download(ctx context.Context, id string, w io.Writer) error {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		if isNotFound(err) {
			err = fmt.Errorf("%w: %s", common.ErrBlobNotFound, id)
		}
		return common.NewStoreError("download", id, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return common.NewStoreError("download", id, err)
	}
	return nil
}

func (s *S3Store) exists(ctx context.Context, id string) error {
	_, err := s.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", common.ErrBlobNotFound, id)
		}
		return fmt.Errorf("head object %s: %w", id, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}
	var responseErr *smithyhttp.ResponseError
	return errors.As(err, &responseErr) && responseErr.HTTPStatusCode() == http.StatusNotFound
}
