package models

import (
	"time"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

// Model replaces gorm.Model for the journal tables. Rows are removed with
// explicit ordered deletes, so there is no DeletedAt column.
type Model struct {
	ID        uint `gorm:"primary_key"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	Model
	Email    string `gorm:"unique_index" valid:"email,required"`
	Name     string
	Password string `json:"-"`
}

type Photo struct {
	Model
	UserID       uint  `gorm:"index"`
	DayID        *uint `gorm:"index"`
	FilePath     string
	OriginalName string
	Latitude     *float64
	Longitude    *float64
	TakenAt      time.Time
}

// Coordinates reports the photo's GPS position when both halves are known.
func (p Photo) Coordinates() (float64, float64, bool) {
	if p.Latitude == nil || p.Longitude == nil {
		return 0, 0, false
	}
	return *p.Latitude, *p.Longitude, true
}

func (p Photo) Date() time.Time {
	return DateOf(p.TakenAt)
}

type Travel struct {
	Model
	UserID                uint `gorm:"index"`
	Title                 string
	Region                *string
	StartDate             time.Time `gorm:"type:date"`
	EndDate               time.Time `gorm:"type:date"`
	RepresentativePhotoID *uint
	ShareToken            *string `gorm:"unique_index"`
}

type Day struct {
	Model
	TravelID  uint      `gorm:"unique_index:idx_day_travel_date"`
	DayNumber int
	Date      time.Time `gorm:"type:date;unique_index:idx_day_travel_date"`
	Region    *string
}

type DiaryLog struct {
	Model
	DayID   uint   `gorm:"unique_index"`
	Content string `gorm:"type:text"`
}

type Comment struct {
	Model
	PhotoID  uint `gorm:"index"`
	WriterID uint
	Content  string `gorm:"type:text"`
}

func Resources() []interface{} {
	return []interface{}{
		&User{},
		&Photo{},
		&Travel{},
		&Day{},
		&DiaryLog{},
		&Comment{},
	}
}

func Migrate(DB *gorm.DB, resources ...interface{}) error {
	if err := DB.AutoMigrate(resources...).Error; err != nil {
		return errors.Wrap(err, "could not migrate")
	}
	return nil
}
