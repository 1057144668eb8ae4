package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/bathroom-finder/internal/resilience"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api"

// DefaultTypes are the business categories likely to have a public restroom.
var DefaultTypes = []string{"restaurant", "cafe", "shopping_mall", "store", "establishment"}

// DefaultRadiusM is the nearby search radius in meters.
const DefaultRadiusM = 500

// Places API status values.
const (
	StatusOK             = "OK"
	StatusZeroResults    = "ZERO_RESULTS"
	StatusOverQueryLimit = "OVER_QUERY_LIMIT"
)

// Client performs Google Places API operations.
type Client interface {
	NearbySearch(ctx context.Context, req NearbySearchRequest) (*NearbySearchResponse, error)
}

// NearbySearchRequest is a Places Nearby Search query.
type NearbySearchRequest struct {
	Location  LatLng
	RadiusM   int
	Types     []string
	PageToken string
}

// NearbySearchResponse is the response from Places Nearby Search.
type NearbySearchResponse struct {
	Status        string  `json:"status"`
	ErrorMessage  string  `json:"error_message,omitempty"`
	Results       []Place `json:"results"`
	NextPageToken string  `json:"next_page_token,omitempty"`
}

// Place represents a place returned by the API.
type Place struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Vicinity         string   `json:"vicinity"`
	Types            []string `json:"types"`
	Geometry         Geometry `json:"geometry"`
	Rating           float64  `json:"rating,omitempty"`
	UserRatingsTotal int      `json:"user_ratings_total,omitempty"`
}

// Geometry holds a place's location.
type Geometry struct {
	Location LatLng `json:"location"`
}

// LatLng is a WGS84 point as the Places API encodes it.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// APIError is returned when the API answers with a status other than OK or
// ZERO_RESULTS.
type APIError struct {
	Status  string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("google: status %s", e.Status)
	}
	return fmt.Sprintf("google: status %s: %s", e.Status, e.Message)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing requests per second. A non-positive rate
// disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *httpClient) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a Google Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(10), 10),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("google", "nearbysearch")
	}
	return c
}

func (c *httpClient) NearbySearch(ctx context.Context, req NearbySearchRequest) (*NearbySearchResponse, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*NearbySearchResponse, error) {
		return c.nearbySearchOnce(ctx, req)
	})
}

func (c *httpClient) nearbySearchOnce(ctx context.Context, req NearbySearchRequest) (*NearbySearchResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "google: rate limit wait")
		}
	}

	radius := req.RadiusM
	if radius <= 0 {
		radius = DefaultRadiusM
	}
	types := req.Types
	if len(types) == 0 {
		types = DefaultTypes
	}

	q := url.Values{}
	q.Set("location", strconv.FormatFloat(req.Location.Lat, 'f', -1, 64)+","+strconv.FormatFloat(req.Location.Lng, 'f', -1, 64))
	q.Set("radius", strconv.Itoa(radius))
	q.Set("type", strings.Join(types, "|"))
	q.Set("key", c.apiKey)
	if req.PageToken != "" {
		q.Set("pagetoken", req.PageToken)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/place/nearbysearch/json?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "google: create request")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "google: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "google: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("google: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var result NearbySearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "google: unmarshal response")
	}

	switch result.Status {
	case StatusOK:
	case StatusZeroResults:
		result.Results = []Place{}
	case StatusOverQueryLimit:
		return nil, resilience.NewTransientError(&APIError{Status: result.Status, Message: result.ErrorMessage}, http.StatusTooManyRequests)
	default:
		return nil, &APIError{Status: result.Status, Message: result.ErrorMessage}
	}
	return &result, nil
}
