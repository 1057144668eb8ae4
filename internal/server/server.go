// Package server exposes bathroom search, detail and submission over HTTP.
package server

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/bathroom-finder/internal/discovery"
	"github.com/sells-group/bathroom-finder/internal/explore"
	"github.com/sells-group/bathroom-finder/internal/geo"
	"github.com/sells-group/bathroom-finder/internal/model"
	"github.com/sells-group/bathroom-finder/internal/review"
)

const maxBodyBytes = 1 << 20

// Viewer builds ranked views and single-location details.
type Viewer interface {
	View(ctx context.Context, q explore.Query) ([]model.DerivedLocation, error)
	Detail(ctx context.Context, id string, position geo.Coordinate) (*model.DerivedLocation, error)
}

// Writer commits reviews and bathrooms.
type Writer interface {
	Submit(ctx context.Context, sub review.Submission) (*review.Result, error)
	AddBathroom(ctx context.Context, nb review.NewBathroom) (*model.Location, error)
}

// PlaceFinder looks up candidate places near a point.
type PlaceFinder interface {
	Nearby(ctx context.Context, center geo.Coordinate, radiusM int) ([]discovery.Candidate, error)
}

// Server holds the HTTP handlers' dependencies.
type Server struct {
	viewer         Viewer
	writer         Writer
	finder         PlaceFinder
	defaultSort    model.SortKey
	allowedOrigins []string
}

// Option configures a Server.
type Option func(*Server)

// WithFinder enables GET /places/nearby.
func WithFinder(f PlaceFinder) Option {
	return func(s *Server) {
		s.finder = f
	}
}

// WithDefaultSort sets the sort used when a request omits one.
func WithDefaultSort(k model.SortKey) Option {
	return func(s *Server) {
		s.defaultSort = k
	}
}

// WithAllowedOrigins sets the CORS origins. Defaults to "*".
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// New creates a Server.
func New(viewer Viewer, writer Writer, opts ...Option) *Server {
	s := &Server{
		viewer:         viewer,
		writer:         writer,
		defaultSort:    model.SortDistance,
		allowedOrigins: []string{"*"},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/amenities", s.handleAmenities)
	r.Route("/bathrooms", func(r chi.Router) {
		r.Get("/", s.handleListBathrooms)
		r.Post("/", s.handleAddBathroom)
		r.Get("/{id}", s.handleGetBathroom)
	})
	r.Post("/reviews", s.handleSubmitReview)
	r.Get("/places/nearby", s.handleNearbyPlaces)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type amenityDTO struct {
	Key   model.Amenity `json:"key"`
	Label string        `json:"label"`
}

func (s *Server) handleAmenities(w http.ResponseWriter, _ *http.Request) {
	out := make([]amenityDTO, 0, len(model.KnownAmenities))
	for _, a := range model.KnownAmenities {
		out = append(out, amenityDTO{Key: a, Label: a.Label()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListBathrooms(w http.ResponseWriter, r *http.Request) {
	q, err := parseViewQuery(r, s.defaultSort)
	if err != nil {
		writeError(w, r, err)
		return
	}

	view, err := s.viewer.View(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]locationDTO, len(view))
	for i, d := range view {
		out[i] = toLocationDTO(d)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetBathroom(w http.ResponseWriter, r *http.Request) {
	// Without a fix the distance is unknown and rendered as null.
	position := geo.Coordinate{Latitude: math.NaN(), Longitude: math.NaN()}
	if hasPosition(r) {
		p, err := parsePosition(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		position = p
	}

	d, err := s.viewer.Detail(r.Context(), chi.URLParam(r, "id"), position)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLocationDTO(*d))
}

func (s *Server) handleAddBathroom(w http.ResponseWriter, r *http.Request) {
	var nb review.NewBathroom
	if err := decodeBody(w, r, &nb); err != nil {
		writeError(w, r, err)
		return
	}

	loc, err := s.writer.AddBathroom(r.Context(), nb)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, loc)
}

func (s *Server) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	var sub review.Submission
	if err := decodeBody(w, r, &sub); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.writer.Submit(r.Context(), sub)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleNearbyPlaces(w http.ResponseWriter, r *http.Request) {
	if s.finder == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "place discovery is not configured"})
		return
	}

	center, err := parsePosition(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	radius, err := intParam(r, "radius_m", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	found, err := s.finder.Nearby(r.Context(), center, radius)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return badRequest("invalid request body")
	}
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
