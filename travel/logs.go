package travel

import (
	"context"
	"strings"

	"github.com/jinzhu/gorm"
	"github.com/matematik7/journal-go/apierr"
	"github.com/matematik7/journal-go/models"
	"github.com/pkg/errors"
)

func findOwnedLog(tx *gorm.DB, logID uint, requester models.User) (models.DiaryLog, error) {
	var log models.DiaryLog
	query := tx.First(&log, logID)
	if query.RecordNotFound() {
		return log, apierr.NotFound("diary log %d not found", logID)
	} else if query.Error != nil {
		return log, errors.Wrapf(query.Error, "could not get diary log %d", logID)
	}
	if _, _, err := findOwnedDay(tx, log.DayID, requester); err != nil {
		return log, err
	}
	return log, nil
}

// CreateLog writes the diary entry of a day. A day holds at most one.
func (c *Travel) CreateLog(ctx context.Context, dayID uint, content string, requester models.User) (uint, error) {
	if strings.TrimSpace(content) == "" {
		return 0, apierr.Validation("diary content is required")
	}
	var log models.DiaryLog
	err := models.Transaction(c.DB, func(tx *gorm.DB) error {
		day, _, err := findOwnedDay(tx, dayID, requester)
		if err != nil {
			return err
		}
		existing, err := logsOf(tx, day.ID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return apierr.Conflict("day %d already has a diary log", day.ID)
		}
		log = models.DiaryLog{
			DayID:   day.ID,
			Content: content,
		}
		return errors.Wrap(tx.Create(&log).Error, "could not create diary log")
	})
	if err != nil {
		return 0, err
	}
	return log.ID, nil
}

func (c *Travel) UpdateLog(ctx context.Context, logID uint, content string, requester models.User) error {
	if strings.TrimSpace(content) == "" {
		return apierr.Validation("diary content is required")
	}
	return models.Transaction(c.DB, func(tx *gorm.DB) error {
		log, err := findOwnedLog(tx, logID, requester)
		if err != nil {
			return err
		}
		return errors.Wrap(tx.Model(&log).Update("content", content).Error, "could not update diary log")
	})
}

func (c *Travel) DeleteLog(ctx context.Context, logID uint, requester models.User) error {
	return models.Transaction(c.DB, func(tx *gorm.DB) error {
		log, err := findOwnedLog(tx, logID, requester)
		if err != nil {
			return err
		}
		return errors.Wrap(tx.Delete(&log).Error, "could not delete diary log")
	})
}
