package photos

import (
	"context"
	"net/http"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/matematik7/journal-go/apierr"
	"github.com/matematik7/journal-go/blobs"
	"github.com/matematik7/journal-go/models"
	"github.com/matematik7/journal-go/render"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DayMover re-parents a photo into a day of its owner's travel within the
// given transaction.
type DayMover interface {
	MovePhotoToDayTx(ctx context.Context, tx *gorm.DB, photoID, dayID uint, requester models.User) error
}

type Photos struct {
	DB       *gorm.DB
	render   *render.Render
	log      *logrus.Logger
	blobs    blobs.Store
	days     DayMover
	comments http.Handler
}

func New(DB *gorm.DB, render *render.Render, log *logrus.Logger, store blobs.Store, days DayMover) *Photos {
	return &Photos{
		DB:     DB,
		render: render,
		log:    log,
		blobs:  store,
		days:   days,
	}
}

// MountComments serves h under /{photoID}/comments.
func (c *Photos) MountComments(h http.Handler) {
	c.comments = h
}

func (c Photos) Resources() []interface{} {
	return []interface{}{
		&models.Photo{},
	}
}

type Info struct {
	ID           uint      `json:"photoId"`
	URL          string    `json:"fileUrl"`
	OriginalName string    `json:"originalName"`
	TakenAt      time.Time `json:"takenAt"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	DayID        *uint     `json:"dayId"`
}

func infoOf(photo models.Photo) Info {
	return Info{
		ID:           photo.ID,
		URL:          photo.FilePath,
		OriginalName: photo.OriginalName,
		TakenAt:      photo.TakenAt.UTC(),
		Latitude:     photo.Latitude,
		Longitude:    photo.Longitude,
		DayID:        photo.DayID,
	}
}

type Marker struct {
	ID           uint    `json:"photoId"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	ThumbnailURL string  `json:"thumbnailUrl"`
}

func (c *Photos) find(DB *gorm.DB, photoID uint) (models.Photo, error) {
	var photo models.Photo
	query := DB.First(&photo, photoID)
	if query.RecordNotFound() {
		return photo, apierr.NotFound("photo %d not found", photoID)
	} else if query.Error != nil {
		return photo, errors.Wrapf(query.Error, "could not get photo %d", photoID)
	}
	return photo, nil
}

func (c *Photos) findOwned(DB *gorm.DB, photoID uint, requester models.User) (models.Photo, error) {
	photo, err := c.find(DB, photoID)
	if err != nil {
		return photo, err
	}
	if photo.UserID != requester.ID {
		return photo, apierr.Forbidden("photo %d belongs to another user", photoID)
	}
	return photo, nil
}

// List returns the photos of requester in shooting order. With unassigned
// set only photos outside of any day are returned.
func (c *Photos) List(ctx context.Context, requester models.User, unassigned bool) ([]Info, error) {
	query := c.DB.Where("user_id = ?", requester.ID)
	if unassigned {
		query = query.Where("day_id IS NULL")
	}
	var photos []models.Photo
	if err := query.Order("taken_at, id").Find(&photos).Error; err != nil {
		return nil, errors.Wrap(err, "could not list photos")
	}

	infos := make([]Info, len(photos))
	for i := range photos {
		infos[i] = infoOf(photos[i])
	}
	return infos, nil
}

func (c *Photos) Get(ctx context.Context, photoID uint) (Info, error) {
	photo, err := c.find(c.DB, photoID)
	if err != nil {
		return Info{}, err
	}
	return infoOf(photo), nil
}

// MapMarkers returns every located photo of requester.
func (c *Photos) MapMarkers(ctx context.Context, requester models.User) ([]Marker, error) {
	var photos []models.Photo
	err := c.DB.Where("user_id = ? AND latitude IS NOT NULL AND longitude IS NOT NULL", requester.ID).
		Order("id").Find(&photos).Error
	if err != nil {
		return nil, errors.Wrap(err, "could not get map photos")
	}

	markers := make([]Marker, 0, len(photos))
	for _, photo := range photos {
		lat, lon, ok := photo.Coordinates()
		if !ok {
			continue
		}
		markers = append(markers, Marker{
			ID:           photo.ID,
			Latitude:     lat,
			Longitude:    lon,
			ThumbnailURL: photo.FilePath,
		})
	}
	return markers, nil
}

type UpdateRequest struct {
	TakenAt   *time.Time
	DayID     *uint
	Latitude  *float64
	Longitude *float64
}

// Update changes the given fields of a photo. Coordinates change only when
// both are present.
func (c *Photos) Update(ctx context.Context, photoID uint, req UpdateRequest, requester models.User) error {
	columns := map[string]interface{}{}
	if req.TakenAt != nil {
		columns["taken_at"] = *req.TakenAt
	}
	if req.Latitude != nil && req.Longitude != nil {
		columns["latitude"] = *req.Latitude
		columns["longitude"] = *req.Longitude
	}

	return models.Transaction(c.DB, func(tx *gorm.DB) error {
		if _, err := c.findOwned(tx, photoID, requester); err != nil {
			return err
		}
		if req.DayID != nil {
			if err := c.days.MovePhotoToDayTx(ctx, tx, photoID, *req.DayID, requester); err != nil {
				return err
			}
		}
		if len(columns) == 0 {
			return nil
		}

		photo, err := c.find(tx, photoID)
		if err != nil {
			return err
		}
		err = tx.Model(&photo).UpdateColumns(columns).Error
		return errors.Wrapf(err, "could not update photo %d", photoID)
	})
}

// Move reassigns a photo to a day of the requester's travel.
func (c *Photos) Move(ctx context.Context, photoID, dayID uint, requester models.User) error {
	return models.Transaction(c.DB, func(tx *gorm.DB) error {
		return c.days.MovePhotoToDayTx(ctx, tx, photoID, dayID, requester)
	})
}

// Delete removes the photo with its comments. The blob goes last and a
// failure there is only logged.
func (c *Photos) Delete(ctx context.Context, photoID uint, requester models.User) error {
	var photo models.Photo
	err := models.Transaction(c.DB, func(tx *gorm.DB) error {
		var err error
		photo, err = c.findOwned(tx, photoID, requester)
		if err != nil {
			return err
		}
		err = tx.Model(&models.Travel{}).
			Where("representative_photo_id = ?", photo.ID).
			UpdateColumn("representative_photo_id", gorm.Expr("NULL")).Error
		if err != nil {
			return errors.Wrap(err, "could not clear representative photo")
		}
		if err := tx.Where("photo_id = ?", photo.ID).Delete(&models.Comment{}).Error; err != nil {
			return errors.Wrapf(err, "could not delete comments of photo %d", photo.ID)
		}
		return errors.Wrapf(tx.Delete(&photo).Error, "could not delete photo %d", photo.ID)
	})
	if err != nil {
		return err
	}

	if err := c.blobs.Delete(ctx, photo.FilePath); err != nil {
		c.log.WithFields(logrus.Fields{
			"photo": photo.ID,
			"url":   photo.FilePath,
		}).WithError(err).Error("could not delete photo blob")
	}
	return nil
}
