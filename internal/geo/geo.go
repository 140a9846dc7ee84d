// Package geo turns a device-reported coordinate into a postal address. Every failure here is best-effort:
// it may produce a notice but never blocks checkout.
package geo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Skotchmaster/checkout/internal/notify"
	"github.com/Skotchmaster/checkout/internal/validate"
	"github.com/Skotchmaster/checkout/pkg/logging"
)

var (
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrInvalidCoordinate   = errors.New("invalid coordinate")
	ErrNoResults           = errors.New("no geocode results")
	ErrGeocodeStatus       = errors.New("geocode status not ok")
	ErrGeocodeTransport    = errors.New("geocode transport")
)

const (
	StatusOK             = "OK"
	StatusTransportError = "TRANSPORT_ERROR"

	noticeTitle       = "Address"
	noResultsText     = "No results found"
	geocodeFailedText = "Geocoder failed due to: "
)

type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinate) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: %v,%v", ErrInvalidCoordinate, c.Latitude, c.Longitude)
	}
	return nil
}

func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}

type ResolvedAddress struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formatted_address"`
}

type Locator interface {
	CurrentPosition(ctx context.Context) (Coordinate, error)
}

// StaticLocator reports a position the client already obtained. A nil position means denied or unavailable.
type StaticLocator struct {
	Position *Coordinate
}

func (s StaticLocator) CurrentPosition(ctx context.Context) (Coordinate, error) {
	if s.Position == nil {
		return Coordinate{}, ErrPositionUnavailable
	}
	return *s.Position, nil
}

type GeocodeMatch struct {
	FormattedAddress string `json:"formatted_address"`
}

type GeocodeResult struct {
	Status  string         `json:"status"`
	Results []GeocodeMatch `json:"results"`
}

type Geocoder interface {
	ReverseGeocode(ctx context.Context, c Coordinate) (GeocodeResult, error)
}

type Resolver struct {
	Geocoder Geocoder
}

func NewResolver(g Geocoder) *Resolver {
	return &Resolver{Geocoder: g}
}

// Locate asks the device for its position and geocodes it. A missing position is silent.
func (r *Resolver) Locate(ctx context.Context, loc Locator) (*ResolvedAddress, error) {
	pos, err := loc.CurrentPosition(ctx)
	if err != nil {
		logging.FromContext(ctx).Debug("geolocation_unavailable", "error", err)
		return nil, err
	}
	return r.ResolveAt(ctx, pos)
}

// ResolveAt returns the best match for c. No match and non-OK statuses raise an info notice.
func (r *Resolver) ResolveAt(ctx context.Context, c Coordinate) (*ResolvedAddress, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	l := logging.FromContext(ctx).With("component", "address_resolver")
	nt := notify.FromContext(ctx)

	res, err := r.Geocoder.ReverseGeocode(ctx, c)
	if err != nil {
		l.Warn("reverse_geocode_failed", "error", err)
		notify.Info(ctx, nt, noticeTitle, geocodeFailedText+StatusTransportError)
		return nil, err
	}

	if res.Status != StatusOK {
		l.Info("reverse_geocode_status", "status", res.Status)
		notify.Info(ctx, nt, noticeTitle, geocodeFailedText+res.Status)
		return nil, fmt.Errorf("%w: %s", ErrGeocodeStatus, res.Status)
	}
	if len(res.Results) == 0 || res.Results[0].FormattedAddress == "" {
		notify.Info(ctx, nt, noticeTitle, noResultsText)
		return nil, ErrNoResults
	}

	return &ResolvedAddress{
		Latitude:         c.Latitude,
		Longitude:        c.Longitude,
		FormattedAddress: res.Results[0].FormattedAddress,
	}, nil
}

// Prefill offers the resolved address as the form's default. The user's own input always wins.
func (r *Resolver) Prefill(ctx context.Context, loc Locator, form *validate.FormState) (*ResolvedAddress, error) {
	addr, err := r.Locate(ctx, loc)
	if err != nil {
		return nil, err
	}
	form.SetDefault(validate.FieldAddress, addr.FormattedAddress)
	return addr, nil
}
