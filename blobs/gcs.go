package blobs

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
)

type GCS struct {
	bucket    string
	prefix    string
	publicURL string
	client    *storage.Client
}

func NewGCS(ctx context.Context, bucket, prefix, publicURL string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not create storage client")
	}
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://storage.googleapis.com/%s", bucket)
	}
	return &GCS{
		bucket:    bucket,
		prefix:    prefix,
		publicURL: publicURL,
		client:    client,
	}, nil
}

func (g *GCS) Store(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	key, err := ObjectKey(g.prefix, filename)
	if err != nil {
		return "", err
	}

	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		w.Close()
		return "", errors.Wrapf(err, "could not write %s", key)
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrapf(err, "could not finalize %s", key)
	}
	return g.publicURL + "/" + key, nil
}

func (g *GCS) Delete(ctx context.Context, url string) error {
	key, err := keyFromURL(g.publicURL, url)
	if err != nil {
		return err
	}
	err = g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if err == storage.ErrObjectNotExist {
		return nil
	}
	return errors.Wrapf(err, "could not delete %s", key)
}

func (g *GCS) Close() error {
	return g.client.Close()
}
