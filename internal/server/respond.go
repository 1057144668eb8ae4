package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/bathroom-finder/internal/explore"
	"github.com/sells-group/bathroom-finder/internal/geo"
	"github.com/sells-group/bathroom-finder/internal/model"
	"github.com/sells-group/bathroom-finder/internal/review"
	"github.com/sells-group/bathroom-finder/internal/store"
)

type errorBody struct {
	Error string `json:"error"`
}

type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *review.ValidationError
	var re *requestError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: ve.Error()})
	case errors.As(err, &re):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: re.Error()})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	default:
		zap.L().Error("server: request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// locationDTO renders non-finite distances as null.
type locationDTO struct {
	model.DerivedLocation
	DistanceKm *float64 `json:"distance_km"`
}

func toLocationDTO(d model.DerivedLocation) locationDTO {
	out := locationDTO{DerivedLocation: d}
	if !math.IsNaN(d.DistanceKm) && !math.IsInf(d.DistanceKm, 0) {
		km := d.DistanceKm
		out.DistanceKm = &km
	}
	if out.Reviews == nil {
		out.Reviews = []model.Review{}
	}
	return out
}

func hasPosition(r *http.Request) bool {
	q := r.URL.Query()
	return q.Get("lat") != "" || q.Get("lng") != ""
}

func parsePosition(r *http.Request) (geo.Coordinate, error) {
	q := r.URL.Query()
	if q.Get("lat") == "" || q.Get("lng") == "" {
		return geo.Coordinate{}, badRequest("lat and lng are required")
	}
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		return geo.Coordinate{}, badRequest("invalid lat %q", q.Get("lat"))
	}
	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil || lng < -180 || lng > 180 {
		return geo.Coordinate{}, badRequest("invalid lng %q", q.Get("lng"))
	}
	return geo.Coordinate{Latitude: lat, Longitude: lng}, nil
}

func floatParam(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || v < 0 {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return v, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return v, nil
}

func parseViewQuery(r *http.Request, defaultSort model.SortKey) (explore.Query, error) {
	position, err := parsePosition(r)
	if err != nil {
		return explore.Query{}, err
	}

	filters := model.DefaultFilters()
	if filters.MinRating, err = floatParam(r, "min_rating", 0); err != nil {
		return explore.Query{}, err
	}
	if filters.MaxDistanceKm, err = floatParam(r, "max_distance_km", model.AnyDistance); err != nil {
		return explore.Query{}, err
	}
	if raw := r.URL.Query().Get("amenities"); raw != "" {
		filters.RequiredAmenities = model.NewAmenitySet(strings.Split(raw, ",")...)
	}

	sortKey := defaultSort
	if raw := r.URL.Query().Get("sort"); raw != "" {
		if sortKey, err = model.ParseSortKey(raw); err != nil {
			return explore.Query{}, badRequest("invalid sort %q", raw)
		}
	}

	return explore.Query{Position: position, Filters: filters, Sort: sortKey}, nil
}
