// README: Google Directions adapter producing one driving route through ordered waypoints.
package maps

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"googlemaps.github.io/maps"

	"pickmeup/internal/config"
	"pickmeup/internal/types"
)

var ErrNoRoute = errors.New("maps: no route found")

type directionsAPI interface {
	Directions(ctx context.Context, r *maps.DirectionsRequest) ([]maps.Route, []maps.GeocodedWaypoint, error)
}

// RouteService handles interactions with the Google Directions API.
type RouteService struct {
	client   directionsAPI
	language string
	region   string
}

func NewClient(cfg config.MapsConfig) (*maps.Client, error) {
	client, err := maps.NewClient(
		maps.WithAPIKey(cfg.APIKey),
		maps.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return client, nil
}

func NewRouteService(client *maps.Client, cfg config.MapsConfig) *RouteService {
	return &RouteService{client: client, language: cfg.Language, region: cfg.Region}
}

// GetRoute returns the driving route from origin to destination visiting
// waypoints in the given order.
func (s *RouteService) GetRoute(ctx context.Context, origin, destination types.Point, waypoints []types.Point) (*types.Route, error) {
	r := &maps.DirectionsRequest{
		Origin:      latLng(origin),
		Destination: latLng(destination),
		Mode:        maps.TravelModeDriving,
		Language:    s.language,
		Region:      s.region,
	}
	for _, w := range waypoints {
		r.Waypoints = append(r.Waypoints, latLng(w))
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("maps api error: %w", err)
	}
	return summarize(routes)
}

func summarize(routes []maps.Route) (*types.Route, error) {
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, ErrNoRoute
	}
	first := routes[0]
	out := &types.Route{EncodedPolyline: first.OverviewPolyline.Points}
	var total time.Duration
	for _, leg := range first.Legs {
		if leg == nil {
			continue
		}
		out.DistanceMeters += leg.Distance.Meters
		total += leg.Duration
	}
	out.Duration = total
	return out, nil
}

func latLng(p types.Point) string {
	return strconv.FormatFloat(p.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lng, 'f', 6, 64)
}
