// README: Reverse geocoding to fill a location's administrative hierarchy.
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"pickmeup/internal/config"
	"pickmeup/internal/types"
)

type geocodeAPI interface {
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

type Geocoder struct {
	client   geocodeAPI
	language string
}

func NewGeocoder(client *maps.Client, cfg config.MapsConfig) *Geocoder {
	return &Geocoder{client: client, language: cfg.Language}
}

// Complete fills blank hierarchy fields from the first reverse geocoding
// result. Fields the caller already set are kept.
func (g *Geocoder) Complete(ctx context.Context, loc types.Location) (types.Location, error) {
	results, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng:   &maps.LatLng{Lat: loc.Position.Lat, Lng: loc.Position.Lng},
		Language: g.language,
	})
	if err != nil {
		return loc, fmt.Errorf("reverse geocode: %w", err)
	}
	if len(results) == 0 {
		return loc, nil
	}
	return applyComponents(loc, results[0]), nil
}

func applyComponents(loc types.Location, res maps.GeocodingResult) types.Location {
	fill := func(dst *string, v string) {
		if types.Blank(*dst) && v != "" {
			*dst = v
		}
	}
	fill(&loc.ReadableAddress, res.FormattedAddress)
	for _, c := range res.AddressComponents {
		for _, kind := range c.Types {
			switch kind {
			case "route":
				fill(&loc.Street, c.LongName)
			case "street_number":
				fill(&loc.Number, c.LongName)
			case "locality":
				fill(&loc.City, c.LongName)
			case "postal_code":
				fill(&loc.PostalCode, c.LongName)
			case "administrative_area_level_2":
				fill(&loc.Province, c.LongName)
			case "administrative_area_level_1":
				fill(&loc.Region, c.LongName)
			case "country":
				fill(&loc.Country, c.LongName)
			}
		}
	}
	return loc
}
