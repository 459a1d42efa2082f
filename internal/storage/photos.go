// Package storage keeps photo bytes in a gocloud.dev blob bucket.
//
// The bucket URL picks the backend: file:///var/lib/muzz/photos in dev,
// mem:// in tests. Other gocloud drivers can be linked in by importing them.
package storage

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"
)

// ErrNotFound is returned by Open when the key does not exist.
var ErrNotFound = errors.New("photo not found")

// PhotoStore writes, reads and deletes photo objects.
type PhotoStore struct {
	bucket     *blob.Bucket
	publicBase string
}

// Open opens the bucket at bucketURL. publicBase is the URL prefix that
// serves keys back to clients (see the HTTP /photos route).
func Open(ctx context.Context, bucketURL, publicBase string) (*PhotoStore, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, errors.Wrapf(err, "open photo bucket %s", bucketURL)
	}
	return &PhotoStore{bucket: bucket, publicBase: strings.TrimRight(publicBase, "/")}, nil
}

// Put writes data under key and returns its public URL.
func (s *PhotoStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	err := s.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: contentType})
	if err != nil {
		return "", errors.Wrapf(err, "write photo %s", key)
	}
	return s.URL(key), nil
}

// URL is the public address of key.
func (s *PhotoStore) URL(key string) string {
	return s.publicBase + "/" + key
}

// Delete removes key. A missing key is not an error.
func (s *PhotoStore) Delete(ctx context.Context, key string) error {
	err := s.bucket.Delete(ctx, key)
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return errors.Wrapf(err, "delete photo %s", key)
	}
	return nil
}

// Open returns a reader for key and its content type. Missing key → ErrNotFound.
func (s *PhotoStore) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	r, err := s.bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, "", ErrNotFound
		}
		return nil, "", errors.Wrapf(err, "read photo %s", key)
	}
	return r, r.ContentType(), nil
}

func (s *PhotoStore) Close() error {
	return s.bucket.Close()
}
