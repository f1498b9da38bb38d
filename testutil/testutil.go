// Package testutil holds fixtures shared by the package tests.
package testutil

import (
	"context"
	"fmt"
	"io/ioutil"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/matematik7/journal-go/models"
	"github.com/matematik7/journal-go/regions"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// OpenDB returns a migrated in-memory database. A single connection keeps
// every query on the same memory database.
func OpenDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	return openDB(tb, ":memory:")
}

// OpenDBIn is OpenDB with the driver handing timestamps back in zone.
func OpenDBIn(tb testing.TB, zone string) *gorm.DB {
	tb.Helper()
	return openDB(tb, "file::memory:?_loc="+zone)
}

func openDB(tb testing.TB, dsn string) *gorm.DB {
	tb.Helper()
	DB, err := gorm.Open("sqlite3", dsn)
	if err != nil {
		tb.Fatalf("open db: %v", err)
	}
	DB.DB().SetMaxOpenConns(1)
	if err := models.Migrate(DB, models.Resources()...); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	tb.Cleanup(func() { DB.Close() })
	return DB
}

func QuietLog() *logrus.Logger {
	log := logrus.New()
	log.Out = ioutil.Discard
	return log
}

func SeedUser(tb testing.TB, DB *gorm.DB, email string) models.User {
	tb.Helper()
	u := models.User{Email: email, Name: email}
	if err := DB.Create(&u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// Loc is a shorthand for optional photo coordinates.
type Loc struct {
	Lat float64
	Lon float64
}

func SeedPhoto(tb testing.TB, DB *gorm.DB, userID uint, takenAt time.Time, loc *Loc) models.Photo {
	tb.Helper()
	p := models.Photo{
		UserID:       userID,
		FilePath:     fmt.Sprintf("https://blobs.test/photos/%d-%d.jpg", userID, takenAt.UnixNano()),
		OriginalName: "IMG.jpg",
		TakenAt:      takenAt,
	}
	if loc != nil {
		lat, lon := loc.Lat, loc.Lon
		p.Latitude = &lat
		p.Longitude = &lon
	}
	if err := DB.Create(&p).Error; err != nil {
		tb.Fatalf("seed photo: %v", err)
	}
	return p
}

func Date(s string) time.Time {
	t, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// At parses "2006-01-02 15:04" in UTC.
func At(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

// Resolver answers lookups from a fixed table keyed by coordinates. Unknown
// coordinates resolve to nil.
type Resolver struct {
	mu      sync.Mutex
	Regions map[regions.Point]*regions.Region
	Calls   int
}

func NewResolver() *Resolver {
	return &Resolver{Regions: map[regions.Point]*regions.Region{}}
}

func (r *Resolver) Set(loc Loc, province, district string) *Resolver {
	r.Regions[regions.Point{Latitude: loc.Lat, Longitude: loc.Lon}] = &regions.Region{
		Province: province,
		District: district,
	}
	return r
}

func (r *Resolver) Lookup(ctx context.Context, latitude, longitude float64) (*regions.Region, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls++
	return r.Regions[regions.Point{Latitude: latitude, Longitude: longitude}], nil
}

// Blobs is an in-memory blob store recording deletions. URLs listed in
// Failing make Delete fail.
type Blobs struct {
	mu      sync.Mutex
	Stored  []string
	Deleted []string
	Failing map[string]bool
	next    int
}

func NewBlobs() *Blobs {
	return &Blobs{Failing: map[string]bool{}}
}

func (b *Blobs) Store(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	url := fmt.Sprintf("https://blobs.test/photos/%d-%s", b.next, filename)
	b.Stored = append(b.Stored, url)
	return url, nil
}

func (b *Blobs) Delete(ctx context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Failing[url] {
		return errors.Errorf("delete %s: unavailable", url)
	}
	b.Deleted = append(b.Deleted, url)
	return nil
}
