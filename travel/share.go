package travel

import (
	"context"

	"github.com/jinzhu/gorm"
	"github.com/matematik7/journal-go/models"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
)

func (c *Travel) shareLink(token string) string {
	return c.shareURL + "/" + token
}

// ShareURL returns the public link of the travel, creating its token on
// first use. A token is never replaced once stored.
func (c *Travel) ShareURL(ctx context.Context, travelID uint, requester models.User) (string, error) {
	var token string
	err := models.Transaction(c.DB, func(tx *gorm.DB) error {
		travel, err := findOwnedTravel(tx, travelID, requester)
		if err != nil {
			return err
		}
		if travel.ShareToken != nil && *travel.ShareToken != "" {
			token = *travel.ShareToken
			return nil
		}

		id, err := uuid.NewV4()
		if err != nil {
			return errors.Wrap(err, "could not generate share token")
		}
		token = id.String()
		// guard against a concurrent first share of the same travel
		query := tx.Model(&models.Travel{}).
			Where("id = ? AND share_token IS NULL", travel.ID).
			UpdateColumn("share_token", token)
		if query.Error != nil {
			return errors.Wrapf(query.Error, "could not store share token of travel %d", travel.ID)
		}
		if query.RowsAffected == 0 {
			stored, err := findTravel(tx, travel.ID)
			if err != nil {
				return err
			}
			token = *stored.ShareToken
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return c.shareLink(token), nil
}
