// Package blob reads source data blobs from local disk or S3.
package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"mlprep/internal/common"
	"mlprep/pkg/errors"
)

// Opener opens a blob for streaming.
type Opener interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// Config configures a Store.
type Config struct {
	// Region is the S3 region. Empty falls back to the AWS environment.
	Region string
	// S3 overrides the S3 API client, mainly for tests.
	S3 s3iface.S3API
}

// Store resolves local paths, file:// and s3:// URIs.
type Store struct {
	region string

	once  sync.Once
	s3    s3iface.S3API
	s3Err error
}

var _ Opener = (*Store)(nil)

// NewStore creates a Store. The S3 client is created on first use.
func NewStore(cfg Config) *Store {
	st := &Store{region: cfg.Region}
	if cfg.S3 != nil {
		st.s3 = cfg.S3
		st.once.Do(func() {})
	}
	return st
}

// LocalPath returns the filesystem path of uri when it refers to local disk.
func LocalPath(uri string) (string, bool) {
	if strings.HasPrefix(uri, "file://") {
		u, err := url.Parse(uri)
		if err != nil {
			return "", false
		}
		return u.Path, true
	}
	if strings.Contains(uri, "://") || strings.HasPrefix(uri, "@") {
		return "", false
	}
	return uri, true
}

// ParseS3 splits "s3://bucket/key" into bucket and key.
func ParseS3(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", errors.New(errors.ErrCodeBlobUnsupported, "Not an s3:// URI").WithContext("uri", uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", errors.New(errors.ErrCodeInvalidInput, "S3 URI must name a bucket and a key").
			WithContext("uri", uri)
	}
	return bucket, key, nil
}

// Open returns a reader over the blob at uri.
func (st *Store) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	if p, ok := LocalPath(uri); ok {
		f, err := os.Open(p) // #nosec G304 - the source path is operator supplied
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.Wrap(err, errors.ErrCodeBlobNotFound, "Source blob not found").WithContext("uri", uri)
			}
			return nil, errors.Wrap(err, errors.ErrCodeBlobAccess, "Failed to open source blob").WithContext("uri", uri)
		}
		return f, nil
	}

	if strings.HasPrefix(uri, "s3://") {
		return st.openS3(ctx, uri)
	}

	return nil, errors.New(errors.ErrCodeBlobUnsupported, "Unsupported blob URI scheme").
		WithContext("uri", uri).
		WithSuggestions("Use a local path, file:// or s3:// URI")
}

func (st *Store) openS3(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, key, err := ParseS3(uri)
	if err != nil {
		return nil, err
	}

	api, err := st.client()
	if err != nil {
		return nil, err
	}

	out, err := api.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if awsErr, ok := err.(awserr.Error); ok && awsErr.Code() == s3.ErrCodeNoSuchKey {
			return nil, errors.Wrap(err, errors.ErrCodeBlobNotFound, "Source blob not found").WithContext("uri", uri)
		}
		return nil, errors.Wrap(err, errors.ErrCodeBlobAccess, "Failed to read source blob").WithContext("uri", uri)
	}
	return out.Body, nil
}

func (st *Store) client() (s3iface.S3API, error) {
	st.once.Do(func() {
		awsConfig := aws.NewConfig()
		if st.region != "" {
			awsConfig.Region = aws.String(st.region)
		}
		sess, err := session.NewSession(awsConfig)
		if err != nil {
			st.s3Err = errors.Wrap(err, errors.ErrCodeBlobAccess, "Failed to create AWS session")
			return
		}
		st.s3 = s3.New(sess)
	})
	return st.s3, st.s3Err
}

// Localize returns a local file path holding the blob. Remote blobs are
// downloaded into a temporary directory that cleanup removes.
func Localize(ctx context.Context, o Opener, uri string) (p string, cleanup func(), err error) {
	if p, ok := LocalPath(uri); ok {
		return p, func() {}, nil
	}

	dir, err := os.MkdirTemp("", "mlprep-blob-")
	if err != nil {
		return "", nil, errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to create temporary directory")
	}
	cleanup = func() { _ = os.RemoveAll(dir) }

	p, err = Download(ctx, o, uri, dir)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	return p, cleanup, nil
}

// Download copies the blob at uri into dir, keeping its base name.
func Download(ctx context.Context, o Opener, uri, dir string) (string, error) {
	r, err := o.Open(ctx, uri)
	if err != nil {
		return "", err
	}
	defer r.Close()

	name := path.Base(uri)
	if name == "" || name == "." || name == "/" {
		name = "blob"
	}
	dst, err := common.JoinPath(dir, name)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInvalidInput, "Blob name escapes the download directory").
			WithContext("uri", uri)
	}

	f, err := os.Create(dst) // #nosec G304 - dst is inside a directory we created
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to create local copy")
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", errors.Wrap(err, errors.ErrCodeBlobAccess, fmt.Sprintf("Failed to download %s", uri))
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to write local copy")
	}
	return dst, nil
}
