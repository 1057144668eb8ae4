package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bathroom-finder/internal/resilience"
)

func fastRetry() Option {
	return WithRetry(resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})
}

func TestNearbySearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/place/nearbysearch/json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "30.2672,-97.7431", q.Get("location"))
		assert.Equal(t, "500", q.Get("radius"))
		assert.Equal(t, "restaurant|cafe|shopping_mall|store|establishment", q.Get("type"))
		assert.Equal(t, "test-key", q.Get("key"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(NearbySearchResponse{
			Status: StatusOK,
			Results: []Place{{
				PlaceID:  "ChIJ-1",
				Name:     "Jo's Coffee",
				Vicinity: "1300 S Congress Ave",
				Types:    []string{"cafe", "food"},
				Geometry: Geometry{Location: LatLng{Lat: 30.2500, Lng: -97.7490}},
			}},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.NearbySearch(context.Background(), NearbySearchRequest{
		Location: LatLng{Lat: 30.2672, Lng: -97.7431},
	})

	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "ChIJ-1", resp.Results[0].PlaceID)
	assert.Equal(t, "Jo's Coffee", resp.Results[0].Name)
	assert.InDelta(t, 30.25, resp.Results[0].Geometry.Location.Lat, 1e-9)
}

func TestNearbySearch_CustomRadiusTypesAndPageToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "1200", q.Get("radius"))
		assert.Equal(t, "cafe", q.Get("type"))
		assert.Equal(t, "tok", q.Get("pagetoken"))
		_, _ = w.Write([]byte(`{"status":"OK","results":[]}`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL+"/"))
	_, err := client.NearbySearch(context.Background(), NearbySearchRequest{
		RadiusM:   1200,
		Types:     []string{"cafe"},
		PageToken: "tok",
	})
	require.NoError(t, err)
}

func TestNearbySearch_ZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":null}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.NearbySearch(context.Background(), NearbySearchRequest{})

	require.NoError(t, err)
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
}

func TestNearbySearch_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid."}`))
	}))
	defer srv.Close()

	client := NewClient("bad-key", WithBaseURL(srv.URL), fastRetry())
	resp, err := client.NearbySearch(context.Background(), NearbySearchRequest{})

	require.Error(t, err)
	assert.Nil(t, resp)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "REQUEST_DENIED", apiErr.Status)
	assert.Contains(t, err.Error(), "API key is invalid")
}

func TestNearbySearch_RetriesTransientHTTP(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"place_id":"p","name":"N"}]}`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL), fastRetry())
	resp, err := client.NearbySearch(context.Background(), NearbySearchRequest{})

	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNearbySearch_OverQueryLimitIsTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"status":"OVER_QUERY_LIMIT"}`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL), fastRetry())
	_, err := client.NearbySearch(context.Background(), NearbySearchRequest{})

	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestNearbySearch_ForbiddenNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`forbidden`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL), fastRetry())
	_, err := client.NearbySearch(context.Background(), NearbySearchRequest{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Equal(t, int32(1), calls.Load())
}

func TestNearbySearch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient("k", WithBaseURL(srv.URL), WithRateLimit(0, 0))
	resp, err := client.NearbySearch(ctx, NearbySearchRequest{})

	assert.Error(t, err)
	assert.Nil(t, resp)
}

func TestAPIError_Message(t *testing.T) {
	assert.Equal(t, "google: status INVALID_REQUEST", (&APIError{Status: "INVALID_REQUEST"}).Error())
}
