package photos

import (
	"context"
	"strings"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/matematik7/journal-go/apierr"
	"github.com/matematik7/journal-go/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const localLayout = "2006-01-02T15:04:05"

type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Meta describes one uploaded file. The client reads it from EXIF.
type Meta struct {
	OriginalName string   `json:"originalName"`
	TakenAt      string   `json:"takenAt"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
}

// ParseTakenAt reads an RFC 3339 time or a zone-less local time. The wall
// clock is kept as written, the offset is dropped.
func ParseTakenAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.ParseInLocation(localLayout, s, time.UTC)
		if err != nil {
			return time.Time{}, apierr.Validation("invalid taken-at time %q", s)
		}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
}

// Upload stores every file in the blob store and registers the photos
// unassigned. files and metas pair up by index.
func (c *Photos) Upload(ctx context.Context, files []File, metas []Meta, requester models.User) ([]Info, error) {
	if len(files) == 0 {
		return nil, apierr.Validation("no files uploaded")
	}
	if len(files) != len(metas) {
		return nil, apierr.Validation("got %d files but %d metadata entries", len(files), len(metas))
	}

	photos := make([]models.Photo, len(files))
	for i, meta := range metas {
		var takenAt time.Time
		if meta.TakenAt != "" {
			var err error
			takenAt, err = ParseTakenAt(meta.TakenAt)
			if err != nil {
				return nil, err
			}
		}
		name := meta.OriginalName
		if name == "" {
			name = files[i].Name
		}
		photos[i] = models.Photo{
			UserID:       requester.ID,
			OriginalName: name,
			TakenAt:      takenAt,
		}
		if meta.Latitude != nil && meta.Longitude != nil {
			photos[i].Latitude = meta.Latitude
			photos[i].Longitude = meta.Longitude
		}
	}

	stored := make([]string, 0, len(files))
	for i, file := range files {
		url, err := c.blobs.Store(ctx, file.Data, file.Name, file.ContentType)
		if err != nil {
			c.discard(ctx, stored)
			return nil, errors.Wrapf(err, "could not store %s", file.Name)
		}
		stored = append(stored, url)
		photos[i].FilePath = url
	}

	err := models.Transaction(c.DB, func(tx *gorm.DB) error {
		for i := range photos {
			if err := tx.Create(&photos[i]).Error; err != nil {
				return errors.Wrapf(err, "could not create photo %s", photos[i].OriginalName)
			}
		}
		return nil
	})
	if err != nil {
		c.discard(ctx, stored)
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"user":   requester.ID,
		"photos": len(photos),
	}).Info("photos uploaded")

	infos := make([]Info, len(photos))
	for i := range photos {
		infos[i] = infoOf(photos[i])
	}
	return infos, nil
}

// discard removes blobs of a failed upload.
func (c *Photos) discard(ctx context.Context, urls []string) {
	for _, url := range urls {
		if err := c.blobs.Delete(ctx, url); err != nil {
			c.log.WithField("url", url).WithError(err).Warn("could not discard uploaded blob")
		}
	}
}
