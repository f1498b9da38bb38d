package stats

import (
	"context"
	"math"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/jinzhu/gorm"
	"github.com/matematik7/journal-go/apierr"
	"github.com/matematik7/journal-go/auth"
	"github.com/matematik7/journal-go/models"
	"github.com/matematik7/journal-go/render"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const earthRadiusKm = 6371.0

type Stats struct {
	DB     *gorm.DB
	render *render.Render
	log    *logrus.Logger
}

func New(DB *gorm.DB, render *render.Render, log *logrus.Logger) *Stats {
	return &Stats{
		DB:     DB,
		render: render,
		log:    log,
	}
}

func (c *Stats) ServeMux() http.Handler {
	router := chi.NewRouter()

	router.Get("/", c.YearsHandler)
	router.Get("/{year:[0-9]+}", c.ViewHandler)

	return router
}

type TravelStats struct {
	ID         uint     `json:"travelId"`
	Title      string   `json:"title"`
	Days       int      `json:"days"`
	Photos     int      `json:"photos"`
	DistanceKm float64  `json:"distanceKm"`
	Regions    []string `json:"regions"`
}

type YearStats struct {
	Year       int           `json:"year"`
	Days       int           `json:"days"`
	Photos     int           `json:"photos"`
	DistanceKm float64       `json:"distanceKm"`
	Regions    []string      `json:"regions"`
	Travels    []TravelStats `json:"travels"`
}

// Distance is the length in km of the path through points, in order.
func Distance(points [][2]float64) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += haversine(points[i-1], points[i])
	}
	return total
}

func haversine(a, b [2]float64) float64 {
	lat1, lat2 := a[0]*math.Pi/180, b[0]*math.Pi/180
	dLat := lat2 - lat1
	dLon := (b[1] - a[1]) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// track returns the located photos in shooting order.
func track(photos []models.Photo) [][2]float64 {
	sorted := append([]models.Photo(nil), photos...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TakenAt.Before(sorted[j].TakenAt)
	})
	points := [][2]float64{}
	for _, photo := range sorted {
		if lat, lon, ok := photo.Coordinates(); ok {
			points = append(points, [2]float64{lat, lon})
		}
	}
	return points
}

func appendNew(list []string, seen map[string]bool, label *string) []string {
	if label == nil || *label == "" || seen[*label] {
		return list
	}
	seen[*label] = true
	return append(list, *label)
}

// Years lists the years in which requester started a travel, latest first.
func (c *Stats) Years(ctx context.Context, requester models.User) ([]int, error) {
	var travels []models.Travel
	if err := c.DB.Where("user_id = ?", requester.ID).Find(&travels).Error; err != nil {
		return nil, errors.Wrap(err, "could not get travels")
	}
	seen := map[int]bool{}
	years := []int{}
	for _, travel := range travels {
		year := travel.StartDate.UTC().Year()
		if travel.StartDate.IsZero() || seen[year] {
			continue
		}
		seen[year] = true
		years = append(years, year)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

// Year sums up the travels of requester that started in year.
func (c *Stats) Year(ctx context.Context, year int, requester models.User) (YearStats, error) {
	stats := YearStats{
		Year:    year,
		Regions: []string{},
		Travels: []TravelStats{},
	}

	var travels []models.Travel
	if err := c.DB.Where("user_id = ?", requester.ID).Order("start_date, id").Find(&travels).Error; err != nil {
		return stats, errors.Wrap(err, "could not get travels")
	}

	yearSeen := map[string]bool{}
	for _, travel := range travels {
		if travel.StartDate.IsZero() || travel.StartDate.UTC().Year() != year {
			continue
		}

		var days []models.Day
		if err := c.DB.Where("travel_id = ?", travel.ID).Order("date").Find(&days).Error; err != nil {
			return stats, errors.Wrapf(err, "could not get days of travel %d", travel.ID)
		}
		ts := TravelStats{
			ID:      travel.ID,
			Title:   travel.Title,
			Days:    len(days),
			Regions: []string{},
		}
		seen := map[string]bool{}
		for _, day := range days {
			var photos []models.Photo
			if err := c.DB.Where("day_id = ?", day.ID).Find(&photos).Error; err != nil {
				return stats, errors.Wrapf(err, "could not get photos of day %d", day.ID)
			}
			ts.Photos += len(photos)
			ts.DistanceKm += Distance(track(photos))
			ts.Regions = appendNew(ts.Regions, seen, day.Region)
			stats.Regions = appendNew(stats.Regions, yearSeen, day.Region)
		}

		stats.Days += ts.Days
		stats.Photos += ts.Photos
		stats.DistanceKm += ts.DistanceKm
		stats.Travels = append(stats.Travels, ts)
	}

	c.log.WithFields(logrus.Fields{
		"user":    requester.ID,
		"year":    year,
		"travels": len(stats.Travels),
	}).Debug("stats computed")

	return stats, nil
}

func (c *Stats) YearsHandler(w http.ResponseWriter, r *http.Request) {
	user := auth.User(r.Context())
	if user == nil {
		c.render.Unauthorized(w, r)
		return
	}
	years, err := c.Years(r.Context(), *user)
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.JSON(w, r, http.StatusOK, map[string][]int{"years": years})
}

func (c *Stats) ViewHandler(w http.ResponseWriter, r *http.Request) {
	user := auth.User(r.Context())
	if user == nil {
		c.render.Unauthorized(w, r)
		return
	}
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		c.render.Error(w, r, apierr.Validation("invalid year"))
		return
	}
	stats, err := c.Year(r.Context(), year, *user)
	if err != nil {
		c.render.Error(w, r, err)
		return
	}
	c.render.JSON(w, r, http.StatusOK, stats)
}
