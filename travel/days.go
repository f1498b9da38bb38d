package travel

import (
	"context"
	"sort"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/matematik7/journal-go/apierr"
	"github.com/matematik7/journal-go/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// distinctDates returns the sorted calendar dates of photos.
func distinctDates(photos []models.Photo) []time.Time {
	seen := map[string]bool{}
	dates := []time.Time{}
	for _, photo := range photos {
		date := photo.Date()
		key := models.DateKey(date)
		if seen[key] {
			continue
		}
		seen[key] = true
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
	return dates
}

// bucket makes sure the travel has exactly one day per distinct photo date
// and moves every photo into the day matching its own date. Existing days
// are reused, so bucketing the same photos twice changes nothing. Day
// numbers of the whole travel end up as 1..N in date order.
func (c *Travel) bucket(tx *gorm.DB, travelID uint, photos []models.Photo, labels map[uint]string) ([]models.Day, error) {
	dated := photos[:0:0]
	for _, photo := range photos {
		if !photo.TakenAt.IsZero() {
			dated = append(dated, photo)
		}
	}
	if len(dated) == 0 {
		return nil, apierr.Validation("no photos with taken-at info")
	}

	days, err := daysOf(tx, travelID)
	if err != nil {
		return nil, err
	}
	byDate := map[string]int{}
	for i := range days {
		byDate[models.DateKey(days[i].Date)] = i
	}
	for _, date := range distinctDates(dated) {
		if _, ok := byDate[models.DateKey(date)]; ok {
			continue
		}
		days = append(days, models.Day{
			TravelID: travelID,
			Date:     date,
		})
	}
	sortDays(days)

	for i := range days {
		byDate[models.DateKey(days[i].Date)] = i
		if days[i].ID == 0 {
			days[i].DayNumber = i + 1
			if err := tx.Create(&days[i]).Error; err != nil {
				return nil, errors.Wrap(err, "could not create day")
			}
		} else if days[i].DayNumber != i+1 {
			if err := tx.Model(&days[i]).UpdateColumn("day_number", i+1).Error; err != nil {
				return nil, errors.Wrapf(err, "could not renumber day %d", days[i].ID)
			}
			days[i].DayNumber = i + 1
		}
	}

	members := map[int][]models.Photo{}
	for _, photo := range dated {
		i := byDate[models.DateKey(photo.Date())]
		members[i] = append(members[i], photo)
		if photo.DayID != nil && *photo.DayID == days[i].ID {
			continue
		}
		if err := tx.Model(&photo).UpdateColumn("day_id", days[i].ID).Error; err != nil {
			return nil, errors.Wrapf(err, "could not assign photo %d", photo.ID)
		}
	}

	for i, dayPhotos := range members {
		region := majorityOf(dayPhotos, labels)
		if region == nil {
			continue
		}
		if err := tx.Model(&days[i]).UpdateColumn("region", *region).Error; err != nil {
			return nil, errors.Wrapf(err, "could not set region of day %d", days[i].ID)
		}
		days[i].Region = region
		c.log.WithFields(logrus.Fields{
			"day":    days[i].DayNumber,
			"region": *region,
		}).Debug("day region set")
	}

	return days, nil
}

// insertDay adds an empty day at its date position and shifts the numbers of
// all later days by one.
func (c *Travel) insertDay(tx *gorm.DB, travel models.Travel, date time.Time) (models.Day, error) {
	date = models.DateOf(date)
	days, err := daysOf(tx, travel.ID)
	if err != nil {
		return models.Day{}, err
	}

	number := 1
	for _, day := range days {
		if models.SameDate(day.Date, date) {
			return models.Day{}, apierr.Conflict("date %s already exists", models.DateKey(date))
		}
		if day.Date.Before(date) {
			number++
		}
	}

	for i := len(days) - 1; i >= 0; i-- {
		if !days[i].Date.After(date) {
			continue
		}
		err := tx.Model(&days[i]).UpdateColumn("day_number", days[i].DayNumber+1).Error
		if err != nil {
			return models.Day{}, errors.Wrapf(err, "could not renumber day %d", days[i].ID)
		}
	}

	day := models.Day{
		TravelID:  travel.ID,
		DayNumber: number,
		Date:      date,
	}
	if err := tx.Create(&day).Error; err != nil {
		return models.Day{}, errors.Wrap(err, "could not create day")
	}

	start, end := travel.StartDate, travel.EndDate
	if start.IsZero() || date.Before(start) {
		start = date
	}
	if end.IsZero() || date.After(end) {
		end = date
	}
	if err := updateDates(tx, travel, start, end); err != nil {
		return models.Day{}, err
	}

	return day, nil
}

// removeDay detaches the photos of a day, drops its diary log and the day
// itself, then shrinks the travel range to the remaining days. Later days
// keep their numbers.
func (c *Travel) removeDay(tx *gorm.DB, day models.Day, travel models.Travel) error {
	err := tx.Model(&models.Photo{}).Where("day_id = ?", day.ID).UpdateColumn("day_id", gorm.Expr("NULL")).Error
	if err != nil {
		return errors.Wrapf(err, "could not detach photos of day %d", day.ID)
	}
	if err := tx.Where("day_id = ?", day.ID).Delete(&models.DiaryLog{}).Error; err != nil {
		return errors.Wrapf(err, "could not delete diary log of day %d", day.ID)
	}
	if err := tx.Delete(&day).Error; err != nil {
		return errors.Wrapf(err, "could not delete day %d", day.ID)
	}
	return c.refreshDates(tx, travel)
}

// refreshDates sets the travel range to the min and max day date. A travel
// without days keeps its last range.
func (c *Travel) refreshDates(tx *gorm.DB, travel models.Travel) error {
	days, err := daysOf(tx, travel.ID)
	if err != nil {
		return err
	}
	if len(days) == 0 {
		c.log.WithField("travel", travel.ID).Warn("travel has no days left")
		return nil
	}
	return updateDates(tx, travel, days[0].Date, days[len(days)-1].Date)
}

func updateDates(tx *gorm.DB, travel models.Travel, start, end time.Time) error {
	if models.SameDate(start, travel.StartDate) && models.SameDate(end, travel.EndDate) {
		return nil
	}
	err := tx.Model(&travel).UpdateColumns(map[string]interface{}{
		"start_date": start,
		"end_date":   end,
	}).Error
	return errors.Wrapf(err, "could not update dates of travel %d", travel.ID)
}

// refreshDayRegion votes over every photo currently in the day. No usable
// label leaves the previous region.
func (c *Travel) refreshDayRegion(ctx context.Context, tx *gorm.DB, day models.Day) error {
	photos, err := photosOf(tx, day.ID)
	if err != nil {
		return err
	}
	region := majorityOf(photos, c.labelsOf(ctx, photos))
	if region == nil {
		c.log.WithField("day", day.ID).Debug("no located photos, day region kept")
		return nil
	}
	err = tx.Model(&day).UpdateColumn("region", *region).Error
	return errors.Wrapf(err, "could not set region of day %d", day.ID)
}

// AddDay inserts an empty day into the travel.
func (c *Travel) AddDay(ctx context.Context, travelID uint, date time.Time, requester models.User) (uint, error) {
	if date.IsZero() {
		return 0, apierr.Validation("date is required")
	}
	var day models.Day
	err := models.Transaction(c.DB, func(tx *gorm.DB) error {
		travel, err := findOwnedTravel(tx, travelID, requester)
		if err != nil {
			return err
		}
		day, err = c.insertDay(tx, travel, date)
		return err
	})
	if err != nil {
		return 0, err
	}
	return day.ID, nil
}

func (c *Travel) DeleteDay(ctx context.Context, dayID uint, requester models.User) error {
	return models.Transaction(c.DB, func(tx *gorm.DB) error {
		day, travel, err := findOwnedDay(tx, dayID, requester)
		if err != nil {
			return err
		}
		return c.removeDay(tx, day, travel)
	})
}

// MovePhotoToDayTx reassigns a photo to another day. The photo and the day's
// travel must both belong to requester. It runs inside the caller's
// transaction.
func (c *Travel) MovePhotoToDayTx(ctx context.Context, tx *gorm.DB, photoID, dayID uint, requester models.User) error {
	photo, err := findPhoto(tx, photoID)
	if err != nil {
		return err
	}
	day, travel, err := findOwnedDay(tx, dayID, requester)
	if err != nil {
		return err
	}
	if photo.UserID != travel.UserID {
		return apierr.Forbidden("photo %d and day %d have different owners", photoID, dayID)
	}

	err = tx.Model(&photo).UpdateColumn("day_id", day.ID).Error
	if err != nil {
		return errors.Wrapf(err, "could not move photo %d", photoID)
	}
	return c.refreshDayRegion(ctx, tx, day)
}

// AddPhotosToDay moves all photos into the day in one step and returns how
// many were added.
func (c *Travel) AddPhotosToDay(ctx context.Context, dayID uint, photoIDs []uint, requester models.User) (int, error) {
	if len(photoIDs) == 0 {
		return 0, apierr.Validation("no photos selected")
	}
	err := models.Transaction(c.DB, func(tx *gorm.DB) error {
		day, _, err := findOwnedDay(tx, dayID, requester)
		if err != nil {
			return err
		}
		for _, photoID := range photoIDs {
			photo, err := findPhoto(tx, photoID)
			if err != nil {
				return err
			}
			if photo.UserID != requester.ID {
				return apierr.Forbidden("photo %d belongs to another user", photoID)
			}
			if err := tx.Model(&photo).UpdateColumn("day_id", day.ID).Error; err != nil {
				return errors.Wrapf(err, "could not add photo %d", photoID)
			}
		}
		return c.refreshDayRegion(ctx, tx, day)
	})
	if err != nil {
		return 0, err
	}
	return len(photoIDs), nil
}

type DayInfo struct {
	ID        uint    `json:"dayId"`
	DayNumber int     `json:"dayNumber"`
	Date      string  `json:"date"`
	Region    *string `json:"dayRegion"`
}

// GetDay finds a day by its number within the travel.
func (c *Travel) GetDay(ctx context.Context, travelID uint, dayNumber int, requester models.User) (DayInfo, error) {
	if _, err := findOwnedTravel(c.DB, travelID, requester); err != nil {
		return DayInfo{}, err
	}

	var day models.Day
	query := c.DB.Where("travel_id = ? AND day_number = ?", travelID, dayNumber).Order("date").First(&day)
	if query.RecordNotFound() {
		return DayInfo{}, apierr.NotFound("travel %d has no day %d", travelID, dayNumber)
	} else if query.Error != nil {
		return DayInfo{}, errors.Wrap(query.Error, "could not get day")
	}

	return DayInfo{
		ID:        day.ID,
		DayNumber: day.DayNumber,
		Date:      models.DateKey(day.Date),
		Region:    day.Region,
	}, nil
}
