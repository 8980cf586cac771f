package geocode

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/trialsite/trial-importer/internal/config"
	apperrors "github.com/trialsite/trial-importer/internal/errors"
	"github.com/trialsite/trial-importer/internal/httpclient"
)

// Address component kinds returned by the provider.
const (
	ComponentSubpremise   = "subpremise"
	ComponentStreetNumber = "street_number"
	ComponentRoute        = "route"
	ComponentLocality     = "locality"
	ComponentAdminArea    = "administrative_area_level_1"
	ComponentPostalCode   = "postal_code"
	ComponentCountry      = "country"
)

// Result is a resolved geocode: coordinates plus typed address components.
type Result struct {
	Latitude   string
	Longitude  string
	Components map[string]string
}

type geocodeResponse struct {
	Results      []geocodeResult `json:"results"`
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

type geocodeResult struct {
	AddressComponents []addressComponent `json:"address_components"`
	Geometry          geometry           `json:"geometry"`
}

type addressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

type geometry struct {
	Location latLng `json:"location"`
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Client calls the external geocode provider.
type Client struct {
	http    *httpclient.Client
	baseURL string
	apiKey  string
	logger  *logrus.Logger
}

// NewClient creates a geocode provider client.
func NewClient(cfg *config.GeocodeConfig, logger *logrus.Logger) *Client {
	return &Client{
		http:    httpclient.New(cfg.RequestTimeout, logger),
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		logger:  logger,
	}
}

// Geocode resolves a free-text address string into coordinates and address
// components. Zero results or a non-OK provider status is a geocode error.
func (c *Client) Geocode(ctx context.Context, address string) (*Result, error) {
	params := url.Values{}
	params.Set("address", address)
	params.Set("key", c.apiKey)

	c.logger.WithField("address", address).Debug("Calling geocode provider")

	var resp geocodeResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"?"+params.Encode(), &resp); err != nil {
		return nil, apperrors.NewGeocodeError("geocode request failed", err)
	}

	if resp.Status != "OK" || len(resp.Results) == 0 {
		msg := fmt.Sprintf("geocode provider returned status %s", resp.Status)
		if resp.ErrorMessage != "" {
			msg += ": " + resp.ErrorMessage
		}
		return nil, apperrors.NewGeocodeError(msg, nil)
	}

	best := resp.Results[0]
	result := &Result{
		Latitude:   strconv.FormatFloat(best.Geometry.Location.Lat, 'f', -1, 64),
		Longitude:  strconv.FormatFloat(best.Geometry.Location.Lng, 'f', -1, 64),
		Components: make(map[string]string),
	}
	for _, comp := range best.AddressComponents {
		for _, kind := range comp.Types {
			switch kind {
			case ComponentSubpremise, ComponentStreetNumber, ComponentRoute,
				ComponentLocality, ComponentAdminArea, ComponentPostalCode, ComponentCountry:
				if _, seen := result.Components[kind]; !seen {
					result.Components[kind] = comp.LongName
				}
			}
		}
	}

	return result, nil
}
