// Package geo resolves delivery addresses to map coordinates.
package geo

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"googlemaps.github.io/maps"

	"github.com/fjod/butchershop/internal/domain"
	"github.com/fjod/butchershop/pkg/circuitbreaker"
)

var ErrNoResults = errors.New("address not found")

type Geocoder interface {
	Geocode(ctx context.Context, address string) (domain.Location, error)
}

// GoogleGeocoder calls the Google Maps Geocoding API through a circuit breaker.
type GoogleGeocoder struct {
	client  *maps.Client
	region  string
	breaker *circuitbreaker.Breaker[domain.Location]
}

func NewGoogleGeocoder(apiKey, region string, log *zap.Logger) (*GoogleGeocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	cfg := circuitbreaker.DefaultConfig("geocoder")
	cfg.Ignore = []error{ErrNoResults}
	return &GoogleGeocoder{
		client:  client,
		region:  region,
		breaker: circuitbreaker.New[domain.Location](cfg, log),
	}, nil
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (domain.Location, error) {
	return g.breaker.Execute(func() (domain.Location, error) {
		results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
			Address: address,
			Region:  g.region,
		})
		if err != nil {
			return domain.Location{}, fmt.Errorf("geocode: %w", err)
		}
		if len(results) == 0 {
			return domain.Location{}, ErrNoResults
		}
		loc := results[0].Geometry.Location
		return domain.Location{Lat: loc.Lat, Lng: loc.Lng}, nil
	})
}
