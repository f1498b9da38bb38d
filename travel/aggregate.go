package travel

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

type CreateRequest struct {
	Title                 string     `json:"title" valid:"required"`
	Region                string     `json:"trvRegion"`
	StartDate             *time.Time `json:"-"`
	EndDate               *time.Time `json:"-"`
	PhotoIDs              []uint     `json:"photoIds" valid:"required"`
	RepresentativePhotoID *uint      `json:"representativePhotoId"`
}

// Create builds a travel from uploaded photos. Photos without a taken-at
// time are skipped; every remaining distinct date becomes a day.
func (c *Travel) Create(ctx context.Context, req CreateRequest, requester models.User) (uint, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return 0, apierr.Validation("title is required")
	}
	if len(req.PhotoIDs) == 0 {
		return 0, apierr.Validation("select at least one photo")
	}
	if (req.StartDate == nil) != (req.EndDate == nil) {
		return 0, apierr.Validation("start and end date must be given together")
	}

	var found []models.Photo
	if err := c.DB.Where("id IN (?)", req.PhotoIDs).Find(&found).Error; err != nil {
		return 0, errors.Wrap(err, "could not get photos")
	}
	byID := map[uint]models.Photo{}
	for _, photo := range found {
		byID[photo.ID] = photo
	}

	photos := []models.Photo{}
	seen := map[uint]bool{}
	for _, id := range req.PhotoIDs {
		photo, ok := byID[id]
		if !ok || seen[id] || photo.TakenAt.IsZero() {
			continue
		}
		if photo.UserID != requester.ID {
			return 0, apierr.Forbidden("photo %d belongs to another user", id)
		}
		seen[id] = true
		photos = append(photos, photo)
	}
	if len(photos) == 0 {
		return 0, apierr.Validation("no photos with taken date")
	}
	if req.RepresentativePhotoID != nil && !seen[*req.RepresentativePhotoID] {
		return 0, apierr.Validation("representative photo %d is not part of the travel", *req.RepresentativePhotoID)
	}

	dates := distinctDates(photos)
	start, end := dates[0], dates[len(dates)-1]
	if req.StartDate != nil {
		start, end = models.DateOf(*req.StartDate), models.DateOf(*req.EndDate)
		if end.Before(start) {
			return 0, apierr.Validation("start date is after end date")
		}
	}

	labels := c.labelsOf(ctx, photos)
	region := strings.TrimSpace(req.Region)
	if region == "" {
		region = UnspecifiedRegion
		if majority := majorityOf(photos, labels); majority != nil {
			region = *majority
		}
		c.log.WithFields(logrus.Fields{
			"title":  title,
			"region": region,
		}).Info("travel region resolved")
	}

	travel := models.Travel{
		UserID:                requester.ID,
		Title:                 title,
		Region:                &region,
		StartDate:             start,
		EndDate:               end,
		RepresentativePhotoID: req.RepresentativePhotoID,
	}
	err := models.Transaction(c.DB, func(tx *gorm.DB) error {
		if err := tx.Create(&travel).Error; err != nil {
			return errors.Wrap(err, "could not create travel")
		}
		_, err := c.bucket(tx, travel.ID, photos, labels)
		return err
	})
	if err != nil {
		return 0, err
	}
	return travel.ID, nil
}

// Delete removes the travel with its whole graph. Blobs are removed first
// and best effort, a failing blob only gets logged.
func (c *Travel) Delete(ctx context.Context, travelID uint, requester models.User) error {
	travel, err := findOwnedTravel(c.DB, travelID, requester)
	if err != nil {
		return err
	}
	days, err := daysOf(c.DB, travel.ID)
	if err != nil {
		return err
	}
	photos, err := photosOf(c.DB, dayIDs(days)...)
	if err != nil {
		return err
	}

	for _, photo := range photos {
		if err := c.blobs.Delete(ctx, photo.FilePath); err != nil {
			c.log.WithFields(logrus.Fields{
				"travel": travel.ID,
				"photo":  photo.ID,
				"url":    photo.FilePath,
			}).WithError(err).Error("could not delete photo blob")
		}
	}

	return models.Transaction(c.DB, func(tx *gorm.DB) error {
		// refetch inside the transaction, photos may have moved meanwhile
		days, err := daysOf(tx, travel.ID)
		if err != nil {
			return err
		}
		ids := dayIDs(days)
		photos, err := photosOf(tx, ids...)
		if err != nil {
			return err
		}
		if pids := photoIDs(photos); len(pids) > 0 {
			if err := tx.Where("photo_id IN (?)", pids).Delete(&models.Comment{}).Error; err != nil {
				return errors.Wrap(err, "could not delete comments")
			}
			err := tx.Model(&models.Travel{}).
				Where("representative_photo_id IN (?)", pids).
				UpdateColumn("representative_photo_id", gorm.Expr("NULL")).Error
			if err != nil {
				return errors.Wrap(err, "could not clear representative photos")
			}
			if err := tx.Where("id IN (?)", pids).Delete(&models.Photo{}).Error; err != nil {
				return errors.Wrap(err, "could not delete photos")
			}
		}
		if len(ids) > 0 {
			if err := tx.Where("day_id IN (?)", ids).Delete(&models.DiaryLog{}).Error; err != nil {
				return errors.Wrap(err, "could not delete diary logs")
			}
			if err := tx.Where("id IN (?)", ids).Delete(&models.Day{}).Error; err != nil {
				return errors.Wrap(err, "could not delete days")
			}
		}
		if err := tx.Delete(&travel).Error; err != nil {
			return errors.Wrapf(err, "could not delete travel %d", travel.ID)
		}
		return nil
	})
}

// UpdateRepresentativePhoto points the travel at photoID, or clears the
// pointer for nil. Only the existence of the photo is checked.
func (c *Travel) UpdateRepresentativePhoto(ctx context.Context, travelID uint, photoID *uint, requester models.User) error {
	return models.Transaction(c.DB, func(tx *gorm.DB) error {
		travel, err := findOwnedTravel(tx, travelID, requester)
		if err != nil {
			return err
		}
		return setRepresentative(tx, travel, photoID)
	})
}

func setRepresentative(tx *gorm.DB, travel models.Travel, photoID *uint) error {
	var value interface{} = gorm.Expr("NULL")
	if photoID != nil {
		if _, err := findPhoto(tx, *photoID); err != nil {
			return err
		}
		value = *photoID
	}
	err := tx.Model(&travel).UpdateColumn("representative_photo_id", value).Error
	return errors.Wrapf(err, "could not set representative photo of travel %d", travel.ID)
}

type UpdateRequest struct {
	Title                 *string `json:"title"`
	RepresentativePhotoID *uint   `json:"representativePhotoId"`
	ClearRepresentative   bool    `json:"clearRepresentativePhoto"`
}

func (c *Travel) Update(ctx context.Context, travelID uint, req UpdateRequest, requester models.User) error {
	return models.Transaction(c.DB, func(tx *gorm.DB) error {
		travel, err := findOwnedTravel(tx, travelID, requester)
		if err != nil {
			return err
		}
		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				return apierr.Validation("title must not be empty")
			}
			if err := tx.Model(&travel).UpdateColumn("title", title).Error; err != nil {
				return errors.Wrapf(err, "could not update title of travel %d", travel.ID)
			}
		}
		if req.RepresentativePhotoID != nil || req.ClearRepresentative {
			return setRepresentative(tx, travel, req.RepresentativePhotoID)
		}
		return nil
	})
}

type Info struct {
	ID                     uint    `json:"travelId"`
	Title                  string  `json:"title"`
	Region                 *string `json:"trvRegion"`
	StartDate              string  `json:"startDate"`
	EndDate                string  `json:"endDate"`
	RepresentativeImageURL *string `json:"representativeImageUrl"`
}

// List returns the travels of requester, newest first.
func (c *Travel) List(ctx context.Context, requester models.User) ([]Info, error) {
	var travels []models.Travel
	if err := c.DB.Where("user_id = ?", requester.ID).Order("id desc").Find(&travels).Error; err != nil {
		return nil, errors.Wrap(err, "could not list travels")
	}

	repIDs := []uint{}
	for _, travel := range travels {
		if travel.RepresentativePhotoID != nil {
			repIDs = append(repIDs, *travel.RepresentativePhotoID)
		}
	}
	urls := map[uint]string{}
	if len(repIDs) > 0 {
		var photos []models.Photo
		if err := c.DB.Where("id IN (?)", repIDs).Find(&photos).Error; err != nil {
			return nil, errors.Wrap(err, "could not get representative photos")
		}
		for _, photo := range photos {
			urls[photo.ID] = photo.FilePath
		}
	}

	infos := make([]Info, 0, len(travels))
	for _, travel := range travels {
		info := Info{
			ID:        travel.ID,
			Title:     travel.Title,
			Region:    travel.Region,
			StartDate: models.DateKey(travel.StartDate),
			EndDate:   models.DateKey(travel.EndDate),
		}
		if travel.RepresentativePhotoID != nil {
			if url, ok := urls[*travel.RepresentativePhotoID]; ok {
				info.RepresentativeImageURL = &url
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}
