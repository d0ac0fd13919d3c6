package dataservice

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dd0wney/cluso-orderviz/pkg/actions"
	"github.com/dd0wney/cluso-orderviz/pkg/logging"
)

// DefaultLinkTTL is how long presigned links stay valid
const DefaultLinkTTL = 15 * time.Minute

// S3Config locates the bucket that stores document files
type S3Config struct {
	Bucket string
	Region string
	Prefix string
	// Endpoint overrides the S3 endpoint, for MinIO and similar stores.
	// Path-style addressing is used when it is set.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	LinkTTL         time.Duration
}

// Presigner signs GetObject requests. *s3.PresignClient implements it.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Links answers download-link requests by presigning the document's object
// directly. Metadata and order detail still go to the wrapped service, and
// the metadata record names the object.
type S3Links struct {
	actions.DataService

	presigner Presigner
	bucket    string
	prefix    string
	ttl       time.Duration
	logger    logging.Logger
	now       func() time.Time
}

var _ actions.DataService = (*S3Links)(nil)

// NewS3Links loads AWS configuration and wraps base. Static credentials are
// used when both keys are set, the default chain otherwise.
func NewS3Links(ctx context.Context, base actions.DataService, cfg S3Config, logger logging.Logger) (*S3Links, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return NewS3LinksWithPresigner(base, newPresigner(awsCfg, cfg.Endpoint), cfg, logger), nil
}

func newPresigner(awsCfg aws.Config, endpoint string) *s3.PresignClient {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return s3.NewPresignClient(client)
}

// NewS3LinksWithPresigner wraps base using an existing presigner
func NewS3LinksWithPresigner(base actions.DataService, p Presigner, cfg S3Config, logger logging.Logger) *S3Links {
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = DefaultLinkTTL
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &S3Links{
		DataService: base,
		presigner:   p,
		bucket:      cfg.Bucket,
		prefix:      strings.Trim(cfg.Prefix, "/"),
		ttl:         cfg.LinkTTL,
		logger:      logger.With(logging.Component("s3links")),
		now:         time.Now,
	}
}

// GetDocumentDownloadLink presigns the document's object
func (l *S3Links) GetDocumentDownloadLink(ctx context.Context, id string) (*actions.DownloadLink, error) {
	rec, err := l.GetDocumentMetadata(ctx, id)
	if err != nil {
		return nil, err
	}
	key, filename := l.objectFor(id, rec)

	issued := l.now()
	req, err := l.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(l.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", filename)),
	}, s3.WithPresignExpires(l.ttl))
	if err != nil {
		return nil, fmt.Errorf("presigning %s: %w", key, err)
	}

	l.logger.Debug("presigned download link",
		logging.NodeID(id),
		logging.String("key", key),
		logging.RequestID(actions.RequestID(ctx)))

	return &actions.DownloadLink{
		URL:       req.URL,
		Filename:  filename,
		ExpiresAt: issued.Add(l.ttl).UTC().Truncate(time.Second),
	}, nil
}

// objectFor derives the object key and download filename from a metadata
// record, falling back to the document id
func (l *S3Links) objectFor(id string, rec actions.Record) (key, filename string) {
	key = stringField(rec, "storage_key", "s3_key", "object_key")
	if key == "" {
		name := stringField(rec, "filename", "name")
		if name == "" {
			name = id
		}
		key = name
		if l.prefix != "" {
			key = l.prefix + "/" + name
		}
	}
	filename = stringField(rec, "filename", "name")
	if filename == "" {
		filename = path.Base(key)
	}
	return key, filename
}

func stringField(rec actions.Record, keys ...string) string {
	for _, k := range keys {
		if s, ok := rec[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
