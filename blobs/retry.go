package blobs

import (
	"context"
	"io"
	"time"

	"github.com/avast/retry-go"
	"github.com/sirupsen/logrus"
)

// Retrying retries transient failures of the wrapped store with exponential
// backoff. The wrapped store is always called at least once.
type Retrying struct {
	Next     Store
	Attempts uint
	Delay    time.Duration
	Log      *logrus.Logger
}

func (r *Retrying) options(op, target string) []retry.Option {
	attempts := r.Attempts
	if attempts == 0 {
		attempts = 1
	}
	return []retry.Option{
		retry.Attempts(attempts),
		retry.Delay(r.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			r.Log.WithFields(logrus.Fields{
				"op":      op,
				"target":  target,
				"attempt": n + 1,
			}).WithError(err).Warn("blob store retry")
		}),
	}
}

func (r *Retrying) Store(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	var url string
	err := retry.Do(
		func() error {
			var err error
			url, err = r.Next.Store(ctx, data, filename, contentType)
			return err
		},
		r.options("store", filename)...,
	)
	return url, err
}

func (r *Retrying) Delete(ctx context.Context, url string) error {
	return retry.Do(
		func() error {
			return r.Next.Delete(ctx, url)
		},
		r.options("delete", url)...,
	)
}

// Close releases the wrapped store if it holds a client.
func (r *Retrying) Close() error {
	if closer, ok := r.Next.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
