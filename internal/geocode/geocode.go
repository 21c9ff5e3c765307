package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"fieldforce/m/internal/logger"
)

// Resolver turns coordinates into a human-readable address. Implementations
// never fail: a missing or unusable address is reported as ok=false.
type Resolver interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (address string, ok bool)
}

// Google resolves addresses through the Google Maps reverse-geocoding API.
// With no API key configured every lookup reports ok=false.
type Google struct {
	apiKey string
	client *http.Client
	log    zerolog.Logger
}

// NewGoogle builds a resolver with an internal request timeout.
func NewGoogle(apiKey string) *Google {
	return &Google{
		apiKey: apiKey,
		client: &http.Client{Timeout: 5 * time.Second},
		log:    logger.WithComponent("geocode"),
	}
}

type geocodeResponse struct {
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
}

// ReverseGeocode looks up the formatted address for lat/lon. Any failure
// (missing key, transport error, empty result) degrades to ok=false so
// callers can leave the address unset.
func (g *Google) ReverseGeocode(ctx context.Context, lat, lon float64) (string, bool) {
	if g.apiKey == "" {
		return "", false
	}

	url := fmt.Sprintf("https://maps.googleapis.com/maps/api/geocode/json?latlng=%f,%f&key=%s", lat, lon, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false
	}

	resp, err := g.client.Do(req)
	if err != nil {
		g.log.Warn().Err(err).Msg("reverse geocode request failed")
		return "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		g.log.Warn().Int("status", resp.StatusCode).Msg("reverse geocode returned non-200")
		return "", false
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", false
	}
	if len(body.Results) == 0 || body.Results[0].FormattedAddress == "" {
		return "", false
	}
	return body.Results[0].FormattedAddress, true
}

// Static returns a fixed address for every lookup; used in tests and as a
// stand-in when no provider is configured.
type Static struct {
	Address string
}

func (s Static) ReverseGeocode(context.Context, float64, float64) (string, bool) {
	return s.Address, s.Address != ""
}
