// Package server exposes the conversion pipeline over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kiesman99/relief/internal/convert"
	"github.com/kiesman99/relief/internal/geotiff"
	"github.com/kiesman99/relief/internal/heightmap"
	"github.com/kiesman99/relief/internal/hgt"
	"github.com/kiesman99/relief/pkg/raster"
	"github.com/kiesman99/relief/pkg/srtm"
)

// Uploads larger than a full SRTM1 tile plus slack are rejected.
const maxBodyBytes = srtm.TileSize*srtm.TileSize*2 + 1<<20

// Server implements the conversion API.
type Server struct {
	converter *convert.Converter
	startTime time.Time
	version   string
}

// NewServer creates a server instance around a converter.
func NewServer(converter *convert.Converter, version string) *Server {
	return &Server{
		converter: converter,
		startTime: time.Now(),
		version:   version,
	}
}

// Routes mounts the API endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.GetHealth)
	r.Post("/geotiff", s.CreateGeoTIFF)
	r.Post("/heightmap", s.CreateHeightmap)
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    int       `json:"uptime"`
	Version   string    `json:"version"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error     string  `json:"error"`
	Message   string  `json:"message"`
	RequestID *string `json:"request_id,omitempty"`
}

// GetHealth implements the health check endpoint.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Uptime:    int(time.Since(s.startTime).Seconds()),
		Version:   s.version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error encoding health response: %v", err)
	}
}

// CreateGeoTIFF converts a raw HGT body into a GeoTIFF. The tile
// identifier comes from the "tile" query parameter, e.g.
// POST /geotiff?tile=S27E152.
func (s *Server) CreateGeoTIFF(w http.ResponseWriter, r *http.Request) {
	requestID := generateRequestID()

	tile := r.URL.Query().Get("tile")
	if tile == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "MISSING_TILE",
			"query parameter 'tile' is required (e.g. ?tile=S27E152)", &requestID)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_BODY",
			fmt.Sprintf("reading request body: %v", err), &requestID)
		return
	}

	result, err := s.converter.HGTToGeoTIFF(r.Context(), tile, body)
	if err != nil {
		s.handleConversionError(w, err, &requestID)
		return
	}

	w.Header().Set("Content-Type", "image/tiff")
	w.Header().Set("X-Request-ID", requestID)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.TIFFData)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.TIFFData); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

// CreateHeightmap converts a GeoTIFF body into a grayscale PNG.
func (s *Server) CreateHeightmap(w http.ResponseWriter, r *http.Request) {
	requestID := generateRequestID()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_BODY",
			fmt.Sprintf("reading request body: %v", err), &requestID)
		return
	}

	result, err := s.converter.GeoTIFFToHeightmap(r.Context(), body)
	if err != nil {
		s.handleConversionError(w, err, &requestID)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Request-ID", requestID)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.PNGData)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.PNGData); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

// handleConversionError maps pipeline errors onto HTTP responses.
// Input problems are the client's fault; everything else is a 500.
func (s *Server) handleConversionError(w http.ResponseWriter, err error, requestID *string) {
	switch {
	case errors.Is(err, srtm.ErrMalformedName):
		s.writeErrorResponse(w, http.StatusBadRequest, "MALFORMED_TILE_NAME", err.Error(), requestID)
	case errors.Is(err, hgt.ErrTruncated):
		s.writeErrorResponse(w, http.StatusBadRequest, "TRUNCATED_INPUT", err.Error(), requestID)
	case errors.Is(err, raster.ErrInvalidDimensions):
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_DIMENSIONS", err.Error(), requestID)
	case errors.Is(err, geotiff.ErrUnsupported):
		s.writeErrorResponse(w, http.StatusBadRequest, "UNSUPPORTED_RASTER", err.Error(), requestID)
	case errors.Is(err, heightmap.ErrNoValidSamples):
		s.writeErrorResponse(w, http.StatusUnprocessableEntity, "NO_VALID_SAMPLES", err.Error(), requestID)
	default:
		log.Printf("conversion error: %v", err)
		s.writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"Internal server error", requestID)
	}
}

// writeErrorResponse writes a standard error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string, requestID *string) {
	response := ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestID: requestID,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// generateRequestID generates a unique request ID.
func generateRequestID() string {
	return fmt.Sprintf("req_%d", time.Now().UnixNano())
}
