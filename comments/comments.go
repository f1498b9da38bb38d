package comments

import (
	"context"
	"strings"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/matematik7/journal-go/apierr"
	"github.com/matematik7/journal-go/models"
	"github.com/matematik7/journal-go/render"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Comments struct {
	DB     *gorm.DB
	render *render.Render
	log    *logrus.Logger
}

func New(DB *gorm.DB, render *render.Render, log *logrus.Logger) *Comments {
	return &Comments{
		DB:     DB,
		render: render,
		log:    log,
	}
}

func (c Comments) Resources() []interface{} {
	return []interface{}{
		&models.Comment{},
	}
}

type Info struct {
	ID        uint      `json:"commentId"`
	PhotoID   uint      `json:"photoId"`
	WriterID  uint      `json:"writerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
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

func findComment(DB *gorm.DB, commentID uint) (models.Comment, error) {
	var comment models.Comment
	query := DB.First(&comment, commentID)
	if query.RecordNotFound() {
		return comment, apierr.NotFound("comment %d not found", commentID)
	} else if query.Error != nil {
		return comment, errors.Wrapf(query.Error, "could not get comment %d", commentID)
	}
	return comment, nil
}

func content(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apierr.Validation("comment must not be empty")
	}
	return s, nil
}

// Create adds a comment to any existing photo.
func (c *Comments) Create(ctx context.Context, photoID uint, text string, requester models.User) (uint, error) {
	text, err := content(text)
	if err != nil {
		return 0, err
	}
	var comment models.Comment
	err = models.Transaction(c.DB, func(tx *gorm.DB) error {
		photo, err := findPhoto(tx, photoID)
		if err != nil {
			return err
		}
		comment = models.Comment{
			PhotoID:  photo.ID,
			WriterID: requester.ID,
			Content:  text,
		}
		return errors.Wrap(tx.Create(&comment).Error, "could not create comment")
	})
	if err != nil {
		return 0, err
	}
	return comment.ID, nil
}

// List returns the comments of a photo, oldest first.
func (c *Comments) List(ctx context.Context, photoID uint) ([]Info, error) {
	if _, err := findPhoto(c.DB, photoID); err != nil {
		return nil, err
	}
	var comments []models.Comment
	if err := c.DB.Where("photo_id = ?", photoID).Order("created_at, id").Find(&comments).Error; err != nil {
		return nil, errors.Wrapf(err, "could not get comments of photo %d", photoID)
	}

	infos := make([]Info, len(comments))
	for i, comment := range comments {
		infos[i] = Info{
			ID:        comment.ID,
			PhotoID:   comment.PhotoID,
			WriterID:  comment.WriterID,
			Content:   comment.Content,
			CreatedAt: comment.CreatedAt,
		}
	}
	return infos, nil
}

// Update replaces the text of a comment. Only its writer may do that.
func (c *Comments) Update(ctx context.Context, commentID uint, text string, requester models.User) error {
	text, err := content(text)
	if err != nil {
		return err
	}
	return models.Transaction(c.DB, func(tx *gorm.DB) error {
		comment, err := findComment(tx, commentID)
		if err != nil {
			return err
		}
		if comment.WriterID != requester.ID {
			return apierr.Forbidden("comment %d was written by another user", commentID)
		}
		return errors.Wrap(tx.Model(&comment).Update("content", text).Error, "could not update comment")
	})
}

// Delete removes a comment on behalf of its writer or the owner of the
// commented photo.
func (c *Comments) Delete(ctx context.Context, commentID uint, requester models.User) error {
	return models.Transaction(c.DB, func(tx *gorm.DB) error {
		comment, err := findComment(tx, commentID)
		if err != nil {
			return err
		}
		if comment.WriterID != requester.ID {
			photo, err := findPhoto(tx, comment.PhotoID)
			if err != nil {
				return err
			}
			if photo.UserID != requester.ID {
				return apierr.Forbidden("comment %d can not be deleted by user %d", commentID, requester.ID)
			}
		}
		c.log.WithFields(logrus.Fields{
			"comment": comment.ID,
			"user":    requester.ID,
		}).Debug("deleting comment")
		return errors.Wrap(tx.Delete(&comment).Error, "could not delete comment")
	})
}
