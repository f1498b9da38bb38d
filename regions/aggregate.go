package regions

import (
	"context"

	"github.com/sirupsen/logrus"
)

type Point struct {
	Latitude  float64
	Longitude float64
}

type Aggregator struct {
	Resolver Resolver
	Log      *logrus.Logger
}

// Label resolves the district label of a single point. Resolver errors and
// empty answers count as no opinion.
func (a *Aggregator) Label(ctx context.Context, p Point) *string {
	region, err := a.Resolver.Lookup(ctx, p.Latitude, p.Longitude)
	if err != nil {
		a.Log.WithFields(logrus.Fields{
			"lat": p.Latitude,
			"lon": p.Longitude,
		}).WithError(err).Warn("region lookup failed")
		return nil
	}
	if region == nil || region.District == "" {
		return nil
	}
	return &region.District
}

// Majority returns the most frequent label. On a tie the label seen first
// wins. Returns nil for no labels.
func Majority(labels []string) *string {
	counts := map[string]int{}
	order := []string{}
	for _, label := range labels {
		if _, ok := counts[label]; !ok {
			order = append(order, label)
		}
		counts[label]++
	}

	var best *string
	bestCount := 0
	for i := range order {
		if counts[order[i]] > bestCount {
			best = &order[i]
			bestCount = counts[order[i]]
		}
	}
	return best
}
