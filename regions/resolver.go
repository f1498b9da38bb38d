package regions

import (
	"context"

	"github.com/pkg/errors"
	"googlemaps.github.io/maps"
)

// Region is a two level label: the country subdivision and the district
// inside it.
type Region struct {
	Province string
	District string
}

type Resolver interface {
	// Lookup returns nil without error when nothing is known about the
	// coordinates.
	Lookup(ctx context.Context, latitude, longitude float64) (*Region, error)
}

type GoogleResolver struct {
	maps     *maps.Client
	language string
}

func NewGoogleResolver(apiKey, language string, options ...maps.ClientOption) (*GoogleResolver, error) {
	options = append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, options...)
	client, err := maps.NewClient(options...)
	if err != nil {
		return nil, errors.Wrap(err, "could not get maps client")
	}
	return &GoogleResolver{
		maps:     client,
		language: language,
	}, nil
}

func (g *GoogleResolver) Lookup(ctx context.Context, latitude, longitude float64) (*Region, error) {
	result, err := g.maps.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{
			Lat: latitude,
			Lng: longitude,
		},
		Language: g.language,
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not get reverse geocode result")
	}
	if len(result) < 1 {
		return nil, nil
	}

	region := Region{}
	for _, ac := range result[0].AddressComponents {
		for _, typ := range ac.Types {
			switch typ {
			case "administrative_area_level_1":
				if region.Province == "" {
					region.Province = ac.LongName
				}
			case "sublocality_level_1", "locality", "administrative_area_level_2":
				if region.District == "" {
					region.District = ac.LongName
				}
			}
		}
	}
	if region.Province == "" && region.District == "" {
		return nil, nil
	}
	return &region, nil
}

// Offline knows nothing about any coordinates. It stands in when no maps key
// is configured.
type Offline struct{}

func (Offline) Lookup(ctx context.Context, latitude, longitude float64) (*Region, error) {
	return nil, nil
}
