package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/afero"

	"github.com/sampic/sampic/internal/codec"
	"github.com/sampic/sampic/internal/config"
)

// ObjectStore stores images in an S3-compatible bucket. Every save first
// stages a local copy, which survives a failed upload.
type ObjectStore struct {
	client   *minio.Client
	bucket   string
	endpoint string
	staging  *Local
	hash     Hasher
	logger   *slog.Logger
}

// StagingOption places the local copies ObjectStore makes before uploading.
// The default is the OS temp directory.
func StagingOption(fs afero.Fs, dir string) Option {
	return func(o *options) {
		o.stagingFs = fs
		o.stagingDir = dir
	}
}

// WithTransport sets the HTTP transport used for object storage and relay
// requests. Share one transport between backends built per request.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithLogger sets the backend logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewObjectStore builds an ObjectStore from cfg. Both API keys must be set.
// No network I/O happens until the first Save or ReadTo.
func NewObjectStore(cfg *config.Config, opts ...Option) (*ObjectStore, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, fmt.Errorf("object store: %w: %w", ErrConfig, err)
	}
	return newObjectStore(cfg, opts...)
}

// newObjectStore allows empty credentials, which sign requests anonymously.
func newObjectStore(cfg *config.Config, opts ...Option) (*ObjectStore, error) {
	o := buildOptions(opts)

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("object store: %w: bucket is not defined", ErrConfig)
	}
	host, secure, err := splitEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("object store: %w: %w", ErrConfig, err)
	}

	client, err := minio.New(host, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.APIKey, cfg.APISecretKey, ""),
		Secure:    secure,
		Region:    cfg.Region,
		Transport: o.transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w: %w", ErrConfig, err)
	}

	stagingFs, stagingDir := o.stagingFs, o.stagingDir
	if stagingFs == nil {
		stagingFs = afero.NewOsFs()
	}
	if stagingDir == "" {
		stagingDir = os.TempDir()
	}

	return &ObjectStore{
		client:   client,
		bucket:   cfg.Bucket,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		staging:  NewLocalFs(stagingFs, stagingDir, WithHasher(o.hash)),
		hash:     o.hash,
		logger:   o.loggerOr().With("component", "storage/object", "bucket", cfg.Bucket),
	}, nil
}

// Save stages buf locally, then uploads the staged file publicly readable.
func (s *ObjectStore) Save(ctx context.Context, buf []byte, extension string, width, height uint32) (string, error) {
	name := ObjectName(s, buf, extension)
	link := s.Link(name)

	localPath, err := s.staging.Save(ctx, buf, extension, width, height)
	if err != nil {
		return "", err
	}
	s.logger.Debug("staged local copy", "path", localPath)

	var body bytes.Buffer
	if err := s.staging.ReadTo(ctx, name, &body); err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, s.bucket, name, &body, int64(body.Len()), minio.PutObjectOptions{
		ContentType:  codec.ContentType(extension),
		UserMetadata: map[string]string{"x-amz-acl": "public-read"},
	})
	if err != nil {
		return "", fmt.Errorf("put object %q: %w", name, classify(err))
	}
	s.logger.Info("uploaded object", "name", name, "link", link)
	return link, nil
}

// ReadTo downloads the object called name into w.
func (s *ObjectStore) ReadTo(ctx context.Context, name string, w io.Writer) error {
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("get object %q: %w", name, readError(err))
	}
	defer obj.Close()

	if _, err := io.Copy(w, obj); err != nil {
		return fmt.Errorf("get object %q: %w", name, readError(err))
	}
	return nil
}

// Link returns the virtual-hosted-style URL of name:
// "https://s3.fr-par.scw.cloud" + bucket "shots" → "https://shots.s3.fr-par.scw.cloud/{name}".
func (s *ObjectStore) Link(name string) string {
	return strings.Replace(s.endpoint, "://", "://"+s.bucket+".", 1) + "/" + name
}

// Hash returns the digest of buf.
func (s *ObjectStore) Hash(buf []byte) string {
	return s.hash(buf)
}

// EnsureBucket creates the bucket if it does not exist and applies a
// public-read policy to it.
func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", classify(err))
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %q: %w", s.bucket, classify(err))
		}
		s.logger.Info("created bucket")
	}

	if err := s.client.SetBucketPolicy(ctx, s.bucket, publicReadPolicy(s.bucket)); err != nil {
		return fmt.Errorf("set bucket policy: %w", classify(err))
	}
	return nil
}

// publicReadPolicy returns an S3 bucket policy JSON that allows anonymous GET on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}

// splitEndpoint turns "https://host:port" into the host and TLS flag minio expects.
// A bare host means TLS.
func splitEndpoint(endpoint string) (string, bool, error) {
	if endpoint == "" {
		return "", false, errors.New("endpoint is not defined")
	}
	if !strings.Contains(endpoint, "://") {
		return endpoint, true, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("parse endpoint: %w", err)
	}
	switch u.Scheme {
	case "https":
		return u.Host, true, nil
	case "http":
		return u.Host, false, nil
	default:
		return "", false, fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
}

var credentialCodes = map[string]bool{
	"AccessDenied":          true,
	"InvalidAccessKeyId":    true,
	"SignatureDoesNotMatch": true,
	"InvalidToken":          true,
	"ExpiredToken":          true,
}

// classify wraps a minio error with its kind.
func classify(err error) error {
	code := minio.ToErrorResponse(err).Code
	switch {
	case credentialCodes[code]:
		return fmt.Errorf("%w: %w", ErrCredentials, err)
	case code != "":
		return fmt.Errorf("%w: %w", ErrUnknown, err)
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return fmt.Errorf("%w: %w", ErrUnknown, err)
}

// readError is classify for downloads: anything but a credential problem is a read error.
func readError(err error) error {
	if credentialCodes[minio.ToErrorResponse(err).Code] {
		return fmt.Errorf("%w: %w", ErrCredentials, err)
	}
	return fmt.Errorf("%w: %w", ErrRead, err)
}
