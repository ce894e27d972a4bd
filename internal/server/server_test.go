package server

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kiesman99/relief/internal/convert"
	"github.com/kiesman99/relief/internal/geotiff"
	"github.com/kiesman99/relief/pkg/raster"
	"github.com/kiesman99/relief/pkg/srtm"
)

const testTileSize = 16

// Test server setup
func setupTestServer() *httptest.Server {
	r := chi.NewRouter()

	// Add middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(30 * time.Second))

	converter := convert.New(convert.Options{TileSize: testTileSize})
	apiServer := NewServer(converter, "1.0.0-test")

	r.Route("/api/v1", func(r chi.Router) {
		apiServer.Routes(r)
	})

	return httptest.NewServer(r)
}

// testHGT builds a south-up big-endian HGT buffer of the test tile
// size with every sample set to fill.
func testHGT(fill int16) []byte {
	buf := make([]byte, testTileSize*testTileSize*2)
	for i := 0; i < testTileSize*testTileSize; i++ {
		binary.BigEndian.PutUint16(buf[i*2:], uint16(fill))
	}
	return buf
}

func decodeError(t *testing.T, resp *http.Response) ErrorResponse {
	t.Helper()
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	return errResp
}

func TestHealthEndpoint(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", contentType)
	}

	var healthResp HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if healthResp.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got %s", healthResp.Status)
	}

	if healthResp.Version != "1.0.0-test" {
		t.Errorf("Expected version '1.0.0-test', got %s", healthResp.Version)
	}

	if time.Since(healthResp.Timestamp) > time.Minute {
		t.Errorf("Timestamp seems too old: %v", healthResp.Timestamp)
	}
}

func TestGeoTIFFEndpoint_Success(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/v1/geotiff?tile=S27E152",
		"application/octet-stream", bytes.NewReader(testHGT(500)))
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "image/tiff" {
		t.Errorf("Expected Content-Type image/tiff, got %s", ct)
	}

	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header")
	}

	// The body must be a decodable GeoTIFF carrying the tile's bounds.
	body := new(bytes.Buffer)
	if _, err := body.ReadFrom(resp.Body); err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	grid, err := geotiff.Decode(body.Bytes())
	if err != nil {
		t.Fatalf("Response is not a decodable GeoTIFF: %v", err)
	}
	if grid.Rows != testTileSize || grid.Cols != testTileSize {
		t.Errorf("Expected %dx%d grid, got %dx%d", testTileSize, testTileSize, grid.Cols, grid.Rows)
	}
	if grid.Transform.OriginX != 152 || grid.Transform.OriginY != -26 {
		t.Errorf("Unexpected origin: %v, %v", grid.Transform.OriginX, grid.Transform.OriginY)
	}
}

func TestGeoTIFFEndpoint_MissingTile(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/v1/geotiff",
		"application/octet-stream", bytes.NewReader(testHGT(0)))
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", resp.StatusCode)
	}
	if errResp := decodeError(t, resp); errResp.Error != "MISSING_TILE" {
		t.Errorf("Expected MISSING_TILE, got %s", errResp.Error)
	}
}

func TestGeoTIFFEndpoint_MalformedTileName(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/v1/geotiff?tile=bogus",
		"application/octet-stream", bytes.NewReader(testHGT(0)))
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", resp.StatusCode)
	}
	if errResp := decodeError(t, resp); errResp.Error != "MALFORMED_TILE_NAME" {
		t.Errorf("Expected MALFORMED_TILE_NAME, got %s", errResp.Error)
	}
}

func TestGeoTIFFEndpoint_TruncatedBody(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/v1/geotiff?tile=N00E000",
		"application/octet-stream", bytes.NewReader(make([]byte, 10)))
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", resp.StatusCode)
	}
	if errResp := decodeError(t, resp); errResp.Error != "TRUNCATED_INPUT" {
		t.Errorf("Expected TRUNCATED_INPUT, got %s", errResp.Error)
	}
}

func TestHeightmapEndpoint_Success(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	// Build a small GeoTIFF with a real elevation range.
	samples := make([]int16, 8*8)
	for i := range samples {
		samples[i] = int16(i * 10)
	}
	tr, _ := raster.NewTransform(srtm.Bounds{West: 0, South: 0, East: 1, North: 1}, 8, 8)
	grid, err := raster.NewGrid(8, 8, samples, srtm.Nodata, tr, srtm.CRS)
	if err != nil {
		t.Fatalf("Failed to build grid: %v", err)
	}
	var tiffData bytes.Buffer
	if err := geotiff.Encode(&tiffData, grid); err != nil {
		t.Fatalf("Failed to encode GeoTIFF: %v", err)
	}

	resp, err := http.Post(server.URL+"/api/v1/heightmap", "image/tiff", &tiffData)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected Content-Type image/png, got %s", ct)
	}

	// PNG magic bytes.
	magic := make([]byte, 4)
	if _, err := io.ReadFull(resp.Body, magic); err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	if !bytes.Equal(magic, []byte{0x89, 0x50, 0x4E, 0x47}) {
		t.Errorf("Response is not a PNG, got magic %x", magic)
	}
}

func TestHeightmapEndpoint_UnsupportedRaster(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/v1/heightmap", "image/tiff",
		bytes.NewReader([]byte("not a tiff")))
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", resp.StatusCode)
	}
	if errResp := decodeError(t, resp); errResp.Error != "UNSUPPORTED_RASTER" {
		t.Errorf("Expected UNSUPPORTED_RASTER, got %s", errResp.Error)
	}
}

func TestHeightmapEndpoint_AllNodata(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	samples := make([]int16, 8*8)
	for i := range samples {
		samples[i] = srtm.Nodata
	}
	tr, _ := raster.NewTransform(srtm.Bounds{West: 0, South: 0, East: 1, North: 1}, 8, 8)
	grid, err := raster.NewGrid(8, 8, samples, srtm.Nodata, tr, srtm.CRS)
	if err != nil {
		t.Fatalf("Failed to build grid: %v", err)
	}
	var tiffData bytes.Buffer
	if err := geotiff.Encode(&tiffData, grid); err != nil {
		t.Fatalf("Failed to encode GeoTIFF: %v", err)
	}

	resp, err := http.Post(server.URL+"/api/v1/heightmap", "image/tiff", &tiffData)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d", resp.StatusCode)
	}
	if errResp := decodeError(t, resp); errResp.Error != "NO_VALID_SAMPLES" {
		t.Errorf("Expected NO_VALID_SAMPLES, got %s", errResp.Error)
	}
}
