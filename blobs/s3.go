package blobs

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/pkg/errors"
)

type S3 struct {
	bucket    string
	prefix    string
	publicURL string
	client    *s3.S3
	uploader  *s3manager.Uploader
}

// NewS3 uses the default aws credential chain. An empty publicURL means the
// virtual hosted bucket address.
func NewS3(region, bucket, prefix, publicURL string) (*S3, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not create aws session")
	}
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &S3{
		bucket:    bucket,
		prefix:    prefix,
		publicURL: publicURL,
		client:    s3.New(sess),
		uploader:  s3manager.NewUploader(sess),
	}, nil
}

func (s *S3) Store(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	key, err := ObjectKey(s.prefix, filename)
	if err != nil {
		return "", err
	}
	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", errors.Wrapf(err, "could not upload %s", key)
	}
	return s.publicURL + "/" + key, nil
}

func (s *S3) Delete(ctx context.Context, url string) error {
	key, err := keyFromURL(s.publicURL, url)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return errors.Wrapf(err, "could not delete %s", key)
}
