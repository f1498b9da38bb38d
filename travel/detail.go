package travel

import (
	"context"
	"sort"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/matematik7/journal-go/apierr"
	"github.com/matematik7/journal-go/models"
	"github.com/pkg/errors"
	"github.com/twpayne/go-polyline"
)

type Detail struct {
	ID                    uint        `json:"travelId"`
	Title                 string      `json:"title"`
	Region                *string     `json:"trvRegion"`
	RepresentativePhotoID *uint       `json:"representativePhotoId"`
	ShareURL              *string     `json:"shareUrl"`
	StartDate             string      `json:"startDate"`
	EndDate               string      `json:"endDate"`
	Days                  []DayDetail `json:"days"`
}

type DayDetail struct {
	ID        uint          `json:"dayId"`
	DayNumber int           `json:"dayNumber"`
	Date      string        `json:"date"`
	Region    *string       `json:"dayRegion"`
	Route     string        `json:"route,omitempty"`
	Photos    []PhotoDetail `json:"photos"`
	Diary     *DiaryDetail  `json:"diary"`
}

type PhotoDetail struct {
	ID        uint            `json:"photoId"`
	URL       string          `json:"url"`
	TakenAt   time.Time       `json:"takenAt"`
	Latitude  *float64        `json:"latitude"`
	Longitude *float64        `json:"longitude"`
	Comments  []CommentDetail `json:"comments"`
}

type CommentDetail struct {
	ID        uint      `json:"commentId"`
	WriterID  uint      `json:"writerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type DiaryDetail struct {
	ID        uint      `json:"logId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"logCreated"`
}

// Detail assembles the travel graph for its owner.
func (c *Travel) Detail(ctx context.Context, travelID uint, requester models.User) (*Detail, error) {
	travel, err := findOwnedTravel(c.DB, travelID, requester)
	if err != nil {
		return nil, err
	}
	return c.assemble(c.DB, travel)
}

func (c *Travel) assemble(DB *gorm.DB, travel models.Travel) (*Detail, error) {
	days, err := daysOf(DB, travel.ID)
	if err != nil {
		return nil, err
	}
	photos, err := photosOf(DB, dayIDs(days)...)
	if err != nil {
		return nil, err
	}
	comments, err := commentsOf(DB, photoIDs(photos)...)
	if err != nil {
		return nil, err
	}
	logs, err := logsOf(DB, dayIDs(days)...)
	if err != nil {
		return nil, err
	}

	commentsByPhoto := map[uint][]CommentDetail{}
	for _, comment := range comments {
		commentsByPhoto[comment.PhotoID] = append(commentsByPhoto[comment.PhotoID], CommentDetail{
			ID:        comment.ID,
			WriterID:  comment.WriterID,
			Content:   comment.Content,
			CreatedAt: comment.CreatedAt,
		})
	}
	photosByDay := map[uint][]models.Photo{}
	for _, photo := range photos {
		photosByDay[*photo.DayID] = append(photosByDay[*photo.DayID], photo)
	}
	logByDay := map[uint]models.DiaryLog{}
	for _, log := range logs {
		logByDay[log.DayID] = log
	}

	detail := &Detail{
		ID:                    travel.ID,
		Title:                 travel.Title,
		Region:                travel.Region,
		RepresentativePhotoID: travel.RepresentativePhotoID,
		StartDate:             models.DateKey(travel.StartDate),
		EndDate:               models.DateKey(travel.EndDate),
		Days:                  make([]DayDetail, 0, len(days)),
	}
	if travel.ShareToken != nil {
		url := c.shareLink(*travel.ShareToken)
		detail.ShareURL = &url
	}

	for _, day := range days {
		dd := DayDetail{
			ID:        day.ID,
			DayNumber: day.DayNumber,
			Date:      models.DateKey(day.Date),
			Region:    day.Region,
			Route:     route(photosByDay[day.ID]),
			Photos:    []PhotoDetail{},
		}
		for _, photo := range photosByDay[day.ID] {
			pd := PhotoDetail{
				ID:        photo.ID,
				URL:       photo.FilePath,
				TakenAt:   photo.TakenAt.UTC(),
				Latitude:  photo.Latitude,
				Longitude: photo.Longitude,
				Comments:  commentsByPhoto[photo.ID],
			}
			if pd.Comments == nil {
				pd.Comments = []CommentDetail{}
			}
			dd.Photos = append(dd.Photos, pd)
		}
		if log, ok := logByDay[day.ID]; ok {
			dd.Diary = &DiaryDetail{
				ID:        log.ID,
				Content:   log.Content,
				CreatedAt: log.CreatedAt,
			}
		}
		detail.Days = append(detail.Days, dd)
	}

	return detail, nil
}

// route encodes the located photos of a day, in shooting order, as a
// Google polyline. Fewer than two points give no route.
func route(photos []models.Photo) string {
	located := make([]models.Photo, 0, len(photos))
	for _, photo := range photos {
		if _, _, ok := photo.Coordinates(); ok {
			located = append(located, photo)
		}
	}
	if len(located) < 2 {
		return ""
	}
	sort.SliceStable(located, func(i, j int) bool {
		return located[i].TakenAt.Before(located[j].TakenAt)
	})

	coords := make([][]float64, len(located))
	for i, photo := range located {
		lat, lon, _ := photo.Coordinates()
		coords[i] = []float64{lat, lon}
	}
	return string(polyline.EncodeCoords(coords))
}

// ResolveShareToken returns the detail of the travel holding token without
// any owner check.
func (c *Travel) ResolveShareToken(ctx context.Context, token string) (*Detail, error) {
	if token == "" {
		return nil, apierr.NotFound("share token not found")
	}
	var travel models.Travel
	query := c.DB.Where("share_token = ?", token).First(&travel)
	if query.RecordNotFound() {
		return nil, apierr.NotFound("share token not found")
	} else if query.Error != nil {
		return nil, errors.Wrap(query.Error, "could not get shared travel")
	}
	return c.assemble(c.DB, travel)
}
