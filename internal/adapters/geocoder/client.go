// Package geocoder resolves free-text place names to coordinates through a
// Nominatim-compatible search API.
//
// Lookups are paced, time-bounded and never retried. Every failure becomes an
// unresolved result at the Resolve boundary.
package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/capmap/internal/domain/model"
	"github.com/okian/capmap/pkg/logger"
	"github.com/okian/capmap/pkg/metrics"
	"golang.org/x/time/rate"
)

// Defaults follow the public Nominatim usage policy.
const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "capmap/1.0"
	DefaultTimeout   = 5 * time.Second

	maxBodyBytes = 1 << 20
)

// Resolver turns place text into a coordinate.
type Resolver interface {
	Resolve(ctx context.Context, text string) (model.Coordinate, bool)
}

// Client is a Resolver backed by the Nominatim /search endpoint.
type Client struct {
	baseURL    string
	userAgent  string
	email      string
	timeout    time.Duration
	limiter    *rate.Limiter
	httpClient *http.Client
	logger     logger.Logger
}

var _ Resolver = (*Client)(nil)

// candidate is one search hit. Nominatim encodes coordinates as decimal strings.
type candidate struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// New creates a Client for baseURL. An empty baseURL uses DefaultBaseURL.
// Pacing defaults to one request per second.
func New(baseURL string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 60 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  DefaultUserAgent,
		timeout:    DefaultTimeout,
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
		httpClient: &http.Client{Transport: tr},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Named("geocoder")
	}
	return c
}

// Resolve returns the first candidate for text, or false when the text is
// blank or the lookup fails for any reason.
func (c *Client) Resolve(ctx context.Context, text string) (model.Coordinate, bool) {
	if strings.TrimSpace(text) == "" {
		metrics.RecordGeocoderRequest(metrics.OutcomeSkipped)
		return model.Coordinate{}, false
	}

	coord, err := c.lookup(ctx, text)
	if err != nil {
		outcome := outcomeOf(err)
		metrics.RecordGeocoderRequest(outcome)
		metrics.RecordErrorByComponent("geocoder", outcome)
		c.logger.Warn(ctx, "geocoding failed",
			logger.String("query", text),
			logger.String("outcome", outcome),
			logger.Error(err))
		return model.Coordinate{}, false
	}

	metrics.RecordGeocoderRequest(metrics.OutcomeResolved)
	c.logger.Debug(ctx, "geocoded",
		logger.String("query", text),
		logger.Float64("lat", coord.Lat),
		logger.Float64("lng", coord.Lng))
	return coord, true
}

// lookup performs one paced search. Errors wrap the package sentinels.
func (c *Client) lookup(ctx context.Context, text string) (model.Coordinate, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return model.Coordinate{}, fmt.Errorf("%w: %w", ErrPacing, err)
		}
	}

	q := url.Values{}
	q.Set("q", text)
	q.Set("format", "json")
	q.Set("limit", "1")
	if c.email != "" {
		q.Set("email", c.email)
	}
	u := fmt.Sprintf("%s/search?%s", c.baseURL, q.Encode())

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("%w: build request: %w", ErrTransport, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	defer func() {
		metrics.RecordGeocoderLatency(float64(time.Since(start).Milliseconds()))
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return model.Coordinate{}, fmt.Errorf("%w (HTTP %d)", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode/100 != 2:
		return model.Coordinate{}, fmt.Errorf("%w: HTTP %d", ErrStatus, resp.StatusCode)
	}

	var hits []json.RawMessage
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&hits); err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return model.Coordinate{}, fmt.Errorf("%w: read body: %w", ErrTransport, err)
		}
		return model.Coordinate{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(hits) == 0 {
		return model.Coordinate{}, ErrNoResults
	}

	// Only the best match is used; later candidates are never parsed.
	var best candidate
	if err := json.Unmarshal(hits[0], &best); err != nil {
		return model.Coordinate{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return best.coordinate()
}

func (h candidate) coordinate() (model.Coordinate, error) {
	lat, err := parseDegrees(h.Lat, 90)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("%w: lat: %w", ErrMalformed, err)
	}
	lng, err := parseDegrees(h.Lon, 180)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("%w: lon: %w", ErrMalformed, err)
	}
	return model.Coordinate{Lat: lat, Lng: lng}, nil
}

func parseDegrees(s string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > limit {
		return 0, fmt.Errorf("%q out of range", s)
	}
	return v, nil
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrPacing):
		return metrics.OutcomePacing
	case errors.Is(err, ErrRateLimited):
		return metrics.OutcomeRateLimited
	case errors.Is(err, ErrStatus):
		return metrics.OutcomeBadStatus
	case errors.Is(err, ErrNoResults):
		return metrics.OutcomeNoResults
	case errors.Is(err, ErrMalformed):
		return metrics.OutcomeMalformed
	default:
		return metrics.OutcomeTransport
	}
}
