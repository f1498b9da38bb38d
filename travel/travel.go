package travel

import (
	"context"
	"strings"

	"github.com/jinzhu/gorm"
	"github.com/matematik7/journal-go/blobs"
	"github.com/matematik7/journal-go/models"
	"github.com/matematik7/journal-go/regions"
	"github.com/matematik7/journal-go/render"
	"github.com/sirupsen/logrus"
)

// UnspecifiedRegion labels a travel none of whose photos could be located.
const UnspecifiedRegion = "unspecified"

type Travel struct {
	DB       *gorm.DB
	render   *render.Render
	log      *logrus.Logger
	regions  *regions.Aggregator
	blobs    blobs.Store
	shareURL string
}

func New(DB *gorm.DB, render *render.Render, log *logrus.Logger, resolver regions.Resolver, store blobs.Store, shareURL string) *Travel {
	return &Travel{
		DB:     DB,
		render: render,
		log:    log,
		regions: &regions.Aggregator{
			Resolver: resolver,
			Log:      log,
		},
		blobs:    store,
		shareURL: strings.TrimRight(shareURL, "/"),
	}
}

func (c Travel) Resources() []interface{} {
	return []interface{}{
		&models.Travel{},
		&models.Day{},
		&models.DiaryLog{},
	}
}

// labelsOf resolves the district label of every located photo, keyed by
// photo id.
func (c *Travel) labelsOf(ctx context.Context, photos []models.Photo) map[uint]string {
	labels := map[uint]string{}
	for _, photo := range photos {
		lat, lon, ok := photo.Coordinates()
		if !ok {
			continue
		}
		if label := c.regions.Label(ctx, regions.Point{Latitude: lat, Longitude: lon}); label != nil {
			labels[photo.ID] = *label
		}
	}
	return labels
}

// majorityOf votes over the labels of photos, in photo order.
func majorityOf(photos []models.Photo, labels map[uint]string) *string {
	votes := make([]string, 0, len(photos))
	for _, photo := range photos {
		if label, ok := labels[photo.ID]; ok {
			votes = append(votes, label)
		}
	}
	return regions.Majority(votes)
}
