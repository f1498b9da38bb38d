package blobs

import (
	"context"
	"path"
	"strings"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
)

// Store is durable object storage addressed by public URL.
type Store interface {
	Store(ctx context.Context, data []byte, filename, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// ObjectKey builds a collision free key that keeps the file extension.
func ObjectKey(prefix, filename string) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", errors.Wrap(err, "could not generate object key")
	}
	return path.Join(prefix, id.String()+strings.ToLower(path.Ext(filename))), nil
}

func keyFromURL(publicURL, url string) (string, error) {
	base := strings.TrimRight(publicURL, "/") + "/"
	if !strings.HasPrefix(url, base) || len(url) == len(base) {
		return "", errors.Errorf("url %q is not under %q", url, base)
	}
	return strings.TrimPrefix(url, base), nil
}
