package travel

import (
	"sort"

	"github.com/jinzhu/gorm"
	"github.com/matematik7/journal-go/apierr"
	"github.com/matematik7/journal-go/models"
	"github.com/pkg/errors"
)

func findTravel(DB *gorm.DB, travelID uint) (models.Travel, error) {
	var travel models.Travel
	query := DB.First(&travel, travelID)
	if query.RecordNotFound() {
		return travel, apierr.NotFound("travel %d not found", travelID)
	} else if query.Error != nil {
		return travel, errors.Wrapf(query.Error, "could not get travel %d", travelID)
	}
	return travel, nil
}

// findOwnedTravel loads a travel and checks that requester owns it.
func findOwnedTravel(DB *gorm.DB, travelID uint, requester models.User) (models.Travel, error) {
	travel, err := findTravel(DB, travelID)
	if err != nil {
		return travel, err
	}
	if travel.UserID != requester.ID {
		return travel, apierr.Forbidden("travel %d belongs to another user", travelID)
	}
	return travel, nil
}

func findDay(DB *gorm.DB, dayID uint) (models.Day, error) {
	var day models.Day
	query := DB.First(&day, dayID)
	if query.RecordNotFound() {
		return day, apierr.NotFound("day %d not found", dayID)
	} else if query.Error != nil {
		return day, errors.Wrapf(query.Error, "could not get day %d", dayID)
	}
	return day, nil
}

// findOwnedDay loads a day with its travel and checks that requester owns
// the travel.
func findOwnedDay(DB *gorm.DB, dayID uint, requester models.User) (models.Day, models.Travel, error) {
	day, err := findDay(DB, dayID)
	if err != nil {
		return day, models.Travel{}, err
	}
	travel, err := findTravel(DB, day.TravelID)
	if err != nil {
		return day, travel, err
	}
	if travel.UserID != requester.ID {
		return day, travel, apierr.Forbidden("day %d belongs to another user", dayID)
	}
	return day, travel, nil
}

func findPhoto(DB *gorm.DB, photoID uint) (models.Photo, error) {
	var photo models.Photo
	query := DB.First(&photo, photoID)
	if query.RecordNotFound() {
		return photo, apierr.NotFound("photo %d not found", photoID)
	} else if query.Error != nil {
		return photo, errors.Wrapf(query.Error, "could not get photo %d", photoID)
	}
	return photo, nil
}

// daysOf returns the days of a travel sorted by date.
func daysOf(DB *gorm.DB, travelID uint) ([]models.Day, error) {
	var days []models.Day
	if err := DB.Where("travel_id = ?", travelID).Find(&days).Error; err != nil {
		return nil, errors.Wrapf(err, "could not get days of travel %d", travelID)
	}
	sortDays(days)
	return days, nil
}

func sortDays(days []models.Day) {
	sort.SliceStable(days, func(i, j int) bool {
		return days[i].Date.Before(days[j].Date)
	})
}

// photosOf returns the photos of the given days in creation order.
func photosOf(DB *gorm.DB, dayIDs ...uint) ([]models.Photo, error) {
	var photos []models.Photo
	if len(dayIDs) == 0 {
		return photos, nil
	}
	err := DB.Where("day_id IN (?)", dayIDs).Order("created_at, id").Find(&photos).Error
	if err != nil {
		return nil, errors.Wrap(err, "could not get photos of days")
	}
	return photos, nil
}

func commentsOf(DB *gorm.DB, photoIDs ...uint) ([]models.Comment, error) {
	var comments []models.Comment
	if len(photoIDs) == 0 {
		return comments, nil
	}
	err := DB.Where("photo_id IN (?)", photoIDs).Order("created_at, id").Find(&comments).Error
	if err != nil {
		return nil, errors.Wrap(err, "could not get comments of photos")
	}
	return comments, nil
}

func logsOf(DB *gorm.DB, dayIDs ...uint) ([]models.DiaryLog, error) {
	var logs []models.DiaryLog
	if len(dayIDs) == 0 {
		return logs, nil
	}
	if err := DB.Where("day_id IN (?)", dayIDs).Find(&logs).Error; err != nil {
		return nil, errors.Wrap(err, "could not get diary logs of days")
	}
	return logs, nil
}

func dayIDs(days []models.Day) []uint {
	ids := make([]uint, len(days))
	for i := range days {
		ids[i] = days[i].ID
	}
	return ids
}

func photoIDs(photos []models.Photo) []uint {
	ids := make([]uint, len(photos))
	for i := range photos {
		ids[i] = photos[i].ID
	}
	return ids
}
