package storagesvc

import (
	"context"
	"io"

	"github.com/kurin/blazer/b2"
	"github.com/pkg/errors"

	"github.com/trezcool/classboard/core"
)

// B2Storage stores files in a Backblaze B2 bucket.
type B2Storage struct {
	client *b2.Client
	bucket *b2.Bucket
}

var _ core.FileStorage = (*B2Storage)(nil)

func NewB2Storage(ctx context.Context, conf *core.Config) (*B2Storage, error) {
	client, err := b2.NewClient(ctx, conf.Storage.B2AccountID, conf.Storage.B2AppKey)
	if err != nil {
		return nil, errors.Wrap(err, "creating b2 client")
	}
	bucket, err := client.Bucket(ctx, conf.Storage.B2Bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "getting bucket %s", conf.Storage.B2Bucket)
	}
	return &B2Storage{client: client, bucket: bucket}, nil
}

// Upload streams r to the object key and returns its download URL.
func (s *B2Storage) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	obj := s.bucket.Object(key)

	var opts []b2.WriterOption
	if contentType != "" {
		opts = append(opts, b2.WithAttrsOption(&b2.Attrs{ContentType: contentType}))
	}
	w := obj.NewWriter(ctx, opts...)

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", errors.Wrap(err, "writing object")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "closing object writer")
	}
	return obj.URL(), nil
}
