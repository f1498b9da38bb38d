package travel

import (
	"context"
	"testing"

	"github.com/jinzhu/gorm"
	"github.com/matematik7/journal-go/apierr"
	"github.com/matematik7/journal-go/models"
	"github.com/matematik7/journal-go/render"
	"github.com/matematik7/journal-go/testutil"
)

type fixture struct {
	c        *Travel
	DB       *gorm.DB
	resolver *testutil.Resolver
	blobs    *testutil.Blobs
	owner    models.User
	other    models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, testutil.OpenDB(t))
}

func newFixtureOn(t *testing.T, DB *gorm.DB) *fixture {
	t.Helper()
	log := testutil.QuietLog()
	resolver := testutil.NewResolver()
	blobs := testutil.NewBlobs()
	return &fixture{
		c:        New(DB, render.New(log), log, resolver, blobs, "https://journal.test/share/"),
		DB:       DB,
		resolver: resolver,
		blobs:    blobs,
		owner:    testutil.SeedUser(t, DB, "owner@journal.test"),
		other:    testutil.SeedUser(t, DB, "other@journal.test"),
	}
}

func (f *fixture) create(t *testing.T, photos ...models.Photo) uint {
	t.Helper()
	ids := make([]uint, len(photos))
	for i := range photos {
		ids[i] = photos[i].ID
	}
	id, err := f.c.Create(context.Background(), CreateRequest{Title: "trip", PhotoIDs: ids}, f.owner)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return id
}

func (f *fixture) days(t *testing.T, travelID uint) []models.Day {
	t.Helper()
	days, err := daysOf(f.DB, travelID)
	if err != nil {
		t.Fatalf("daysOf: %v", err)
	}
	return days
}

func (f *fixture) travel(t *testing.T, travelID uint) models.Travel {
	t.Helper()
	travel, err := findTravel(f.DB, travelID)
	if err != nil {
		t.Fatalf("findTravel: %v", err)
	}
	return travel
}

func (f *fixture) photo(t *testing.T, photoID uint) models.Photo {
	t.Helper()
	photo, err := findPhoto(f.DB, photoID)
	if err != nil {
		t.Fatalf("findPhoto: %v", err)
	}
	return photo
}

func (f *fixture) move(photoID, dayID uint, requester models.User) error {
	return models.Transaction(f.DB, func(tx *gorm.DB) error {
		return f.c.MovePhotoToDayTx(context.Background(), tx, photoID, dayID, requester)
	})
}

func count(t *testing.T, DB *gorm.DB, model interface{}, where string, args ...interface{}) int {
	t.Helper()
	var n int
	query := DB.Model(model)
	if where != "" {
		query = query.Where(where, args...)
	}
	if err := query.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func wantKind(t *testing.T, err error, kind apierr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("want %v error, got nil", kind)
	}
	if apierr.KindOf(err) != kind {
		t.Fatalf("want %v error, got %v (%v)", kind, apierr.KindOf(err), err)
	}
}

func wantDays(t *testing.T, days []models.Day, want ...string) {
	t.Helper()
	if len(days) != len(want) {
		t.Fatalf("days: want=%d got=%d", len(want), len(days))
	}
	for i, day := range days {
		if got := models.DateKey(day.Date); got != want[i] {
			t.Fatalf("day %d date: want=%s got=%s", i, want[i], got)
		}
		if day.DayNumber != i+1 {
			t.Fatalf("day %s number: want=%d got=%d", want[i], i+1, day.DayNumber)
		}
	}
}
