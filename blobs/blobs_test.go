package blobs

import (
	"context"
	"io/ioutil"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type flakyStore struct {
	failures int
	calls    int
	closed   bool
}

func (f *flakyStore) Store(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("transient")
	}
	return "https://blobs.example/" + filename, nil
}

func (f *flakyStore) Delete(ctx context.Context, url string) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("transient")
	}
	return nil
}

func (f *flakyStore) Close() error {
	f.closed = true
	return nil
}

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.Out = ioutil.Discard
	return log
}

func TestRetryingStoreRecovers(t *testing.T) {
	next := &flakyStore{failures: 2}
	r := &Retrying{Next: next, Attempts: 3, Delay: time.Millisecond, Log: quietLog()}

	url, err := r.Store(context.Background(), []byte("jpeg"), "a.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if url != "https://blobs.example/a.jpg" {
		t.Fatalf("Store: got=%q", url)
	}
	if next.calls != 3 {
		t.Fatalf("calls: want=3 got=%d", next.calls)
	}
}

func TestRetryingDeleteGivesUp(t *testing.T) {
	next := &flakyStore{failures: 5}
	r := &Retrying{Next: next, Attempts: 2, Delay: time.Millisecond, Log: quietLog()}

	if err := r.Delete(context.Background(), "https://blobs.example/a.jpg"); err == nil {
		t.Fatalf("Delete: expected error")
	}
	if next.calls != 2 {
		t.Fatalf("calls: want=2 got=%d", next.calls)
	}
}

func TestRetryingWithoutRetries(t *testing.T) {
	next := &flakyStore{failures: 5}
	r := &Retrying{Next: next, Delay: time.Millisecond, Log: quietLog()}

	url, err := r.Store(context.Background(), []byte("jpeg"), "a.jpg", "image/jpeg")
	if err == nil {
		t.Fatalf("Store: expected error, got url=%q", url)
	}
	if next.calls != 1 {
		t.Fatalf("Store calls: want=1 got=%d", next.calls)
	}

	if err := r.Delete(context.Background(), "https://blobs.example/a.jpg"); err == nil {
		t.Fatalf("Delete: expected error")
	}
	if next.calls != 2 {
		t.Fatalf("Delete calls: want=1 got=%d", next.calls-1)
	}
}

func TestRetryingClose(t *testing.T) {
	next := &flakyStore{}
	r := &Retrying{Next: next, Attempts: 1, Log: quietLog()}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !next.closed {
		t.Fatalf("Close: wrapped store not closed")
	}
}

func TestObjectKey(t *testing.T) {
	a, err := ObjectKey("photos", "IMG_0001.JPG")
	if err != nil {
		t.Fatalf("ObjectKey: %v", err)
	}
	b, _ := ObjectKey("photos", "IMG_0001.JPG")
	if a == b {
		t.Fatalf("ObjectKey: keys collide %q", a)
	}
	if !strings.HasPrefix(a, "photos/") || !strings.HasSuffix(a, ".jpg") {
		t.Fatalf("ObjectKey: got=%q", a)
	}
}

func TestKeyFromURL(t *testing.T) {
	key, err := keyFromURL("https://storage.googleapis.com/bucket/", "https://storage.googleapis.com/bucket/photos/x.jpg")
	if err != nil {
		t.Fatalf("keyFromURL: %v", err)
	}
	if key != "photos/x.jpg" {
		t.Fatalf("keyFromURL: want=%q got=%q", "photos/x.jpg", key)
	}
	if _, err := keyFromURL("https://storage.googleapis.com/bucket", "https://elsewhere/x.jpg"); err == nil {
		t.Fatalf("keyFromURL: expected error for foreign url")
	}
}
