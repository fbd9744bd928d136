package source

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/thanos-io/objstore"
)

// BucketSource reads mapping tables from object storage.
type BucketSource struct {
	bucket  objstore.BucketReader
	pattern string
}

func NewBucketSource(bucket objstore.BucketReader, pattern string) *BucketSource {
	return &BucketSource{bucket: bucket, pattern: pattern}
}

func (s *BucketSource) Open(ctx context.Context, version string) (io.ReadCloser, error) {
	name := (&Config{Pattern: s.pattern}).Name(version)
	rc, err := s.bucket.Get(ctx, name)
	if err != nil {
		if s.bucket.IsObjNotFoundErr(err) {
			return nil, errors.Wrapf(ErrNotFound, "object not found: %s", name)
		}
		return nil, errors.Wrapf(err, "get %s", name)
	}
	return rc, nil
}
