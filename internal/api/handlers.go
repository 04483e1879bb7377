package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ilias-t/griblet/internal/acquisition"
	"github.com/ilias-t/griblet/internal/config"
	"github.com/ilias-t/griblet/internal/grib"
	"github.com/ilias-t/griblet/internal/storage/sqlite"
	"github.com/ilias-t/griblet/internal/websocket"
	"github.com/ilias-t/griblet/pkg/logger"
)

// Handler contains the API handlers
type Handler struct {
	parser      *grib.Parser
	cache       *grib.Cache
	limiter     *grib.Limiter
	storage     *sqlite.RecordStorage
	acquisition *acquisition.Client
	wsServer    *websocket.Server
	config      *config.Config
	logger      *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(parser *grib.Parser, cache *grib.Cache, limiter *grib.Limiter, storage *sqlite.RecordStorage, acq *acquisition.Client, wsServer *websocket.Server, cfg *config.Config, log *logger.Logger) *Handler {
	return &Handler{
		parser:      parser,
		cache:       cache,
		limiter:     limiter,
		storage:     storage,
		acquisition: acq,
		wsServer:    wsServer,
		config:      cfg,
		logger:      log.Named("api-handler"),
	}
}

// PreviewGrib parses an uploaded GRIB file ad hoc and returns the velocity
// series without persisting anything. The parse runs under the concurrency
// governor; excess load is rejected with a retry-later response.
func (h *Handler) PreviewGrib(w http.ResponseWriter, r *http.Request) {
	data, _, err := h.readUpload(r)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.parser.ParseBuffer(r.Context(), data, refTimeOverride(r))
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// UploadGrib stores an uploaded GRIB file, parses it, caches the assembled
// series next to the file, and catalogues the record.
func (h *Handler) UploadGrib(w http.ResponseWriter, r *http.Request) {
	data, name, err := h.readUpload(r)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	release, err := h.limiter.Acquire()
	if err != nil {
		h.writePipelineError(w, err)
		return
	}
	defer release()

	record, result, err := h.ingest(r, data, name)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{
		"record": record,
		"wind":   result,
	})
}

// FetchGrib downloads a GRIB file from the configured provider and ingests
// it like an upload. The request body carries the provider query parameters.
func (h *Handler) FetchGrib(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string            `json:"name"`
		Params map[string]string `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		req.Name = "fetched.grib2"
	}

	release, err := h.limiter.Acquire()
	if err != nil {
		h.writePipelineError(w, err)
		return
	}
	defer release()

	params := url.Values{}
	for k, v := range req.Params {
		params.Set(k, v)
	}

	id := uuid.NewString()
	sourcePath, err := h.acquisition.Fetch(r.Context(), params, h.config.Storage.DataDir, id+".grib2")
	if err != nil {
		writeErrorJSON(w, http.StatusBadGateway, fmt.Sprintf("download failed: %v", err))
		return
	}

	record, result, err := h.ingestPath(r, id, sourcePath, req.Name)
	if err != nil {
		os.Remove(sourcePath)
		h.writePipelineError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{
		"record": record,
		"wind":   result,
	})
}

// ListRecords returns all catalogued records, newest first
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.storage.List()
	if err != nil {
		h.logger.Error("Failed to list records", logger.Error(err))
		writeErrorJSON(w, http.StatusInternalServerError, "failed to list records")
		return
	}
	if records == nil {
		records = []*sqlite.GribRecord{}
	}
	WriteJSON(w, http.StatusOK, records)
}

// GetWindData returns the assembled velocity series for a catalogued record,
// served from the on-disk cache when present.
func (h *Handler) GetWindData(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.storage.GetByID(id)
	if err != nil {
		h.logger.Error("Failed to load record", logger.String("id", id), logger.Error(err))
		writeErrorJSON(w, http.StatusInternalServerError, "failed to load record")
		return
	}
	if record == nil {
		writeErrorJSON(w, http.StatusNotFound, "record not found")
		return
	}

	result, err := h.cache.GetOrCompute(r.Context(), record.SourcePath, record.CachePath, record.RefTime)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// DeleteRecord removes a record and its files
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.storage.GetByID(id)
	if err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, "failed to load record")
		return
	}
	if record == nil {
		writeErrorJSON(w, http.StatusNotFound, "record not found")
		return
	}

	if _, err := h.storage.Delete(id); err != nil {
		h.logger.Error("Failed to delete record", logger.String("id", id), logger.Error(err))
		writeErrorJSON(w, http.StatusInternalServerError, "failed to delete record")
		return
	}

	// File cleanup is best effort; the catalog row is already gone.
	for _, path := range []string{record.SourcePath, record.CachePath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			h.logger.Warn("Failed to remove record file",
				logger.String("path", path), logger.Error(err))
		}
	}

	h.wsServer.Broadcast(websocket.MessageTypeRecordDeleted, map[string]any{"id": id})
	WriteJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// GetHealth reports service liveness and limiter occupancy
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"parses_in_use":   h.limiter.InUse(),
		"parses_capacity": h.limiter.Capacity(),
		"time":            time.Now().UTC(),
	})
}

// ingest writes the uploaded bytes into the data directory and runs ingestPath
func (h *Handler) ingest(r *http.Request, data []byte, name string) (*sqlite.GribRecord, *grib.MultiTimeVelocityData, error) {
	id := uuid.NewString()
	sourcePath := filepath.Join(h.config.Storage.DataDir, id+".grib2")
	if err := os.WriteFile(sourcePath, data, 0644); err != nil {
		return nil, nil, fmt.Errorf("failed to store upload: %w", err)
	}

	record, result, err := h.ingestPath(r, id, sourcePath, name)
	if err != nil {
		os.Remove(sourcePath)
		return nil, nil, err
	}
	return record, result, nil
}

// ingestPath parses the stored file, caches the series next to it, and
// inserts the catalog record. Parse lifecycle events go out over WebSocket.
func (h *Handler) ingestPath(r *http.Request, id, sourcePath, name string) (*sqlite.GribRecord, *grib.MultiTimeVelocityData, error) {
	cachePath := sourcePath + ".wind.json"
	h.wsServer.Broadcast(websocket.MessageTypeParseStarted, map[string]any{"id": id, "name": name})

	result, err := h.cache.GetOrCompute(r.Context(), sourcePath, cachePath, refTimeOverride(r))
	if err != nil {
		h.wsServer.Broadcast(websocket.MessageTypeParseFailed, map[string]any{"id": id, "error": err.Error()})
		return nil, nil, err
	}

	info, statErr := os.Stat(sourcePath)
	var size int64
	if statErr == nil {
		size = info.Size()
	}

	refTime := result.RefTime
	record := &sqlite.GribRecord{
		ID:         id,
		Name:       name,
		SourcePath: sourcePath,
		CachePath:  cachePath,
		RefTime:    &refTime,
		SizeBytes:  size,
	}
	if err := h.storage.Insert(record); err != nil {
		return nil, nil, err
	}

	h.wsServer.Broadcast(websocket.MessageTypeParseCompleted, map[string]any{
		"id":         id,
		"name":       name,
		"time_steps": len(result.TimeSteps),
	})
	return record, result, nil
}

// readUpload extracts the GRIB payload from a multipart form, enforcing the
// configured size cap.
func (h *Handler) readUpload(r *http.Request) (data []byte, name string, err error) {
	maxBytes := int64(h.config.Server.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", fmt.Errorf("missing file field: %w", err)
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty upload")
	}

	name = header.Filename
	if name == "" {
		name = "upload.grib2"
	}
	return data, name, nil
}

// refTimeOverride reads an optional explicit reference time from the query
// string (RFC 3339). Absent or malformed values mean "derive from metadata".
func refTimeOverride(r *http.Request) *time.Time {
	raw := r.URL.Query().Get("ref_time")
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}

// writePipelineError maps the parse pipeline error taxonomy onto HTTP
// status codes. Pipeline errors reach this boundary unmodified.
func (h *Handler) writePipelineError(w http.ResponseWriter, err error) {
	var decodeErr *grib.DecodeError
	var notFoundErr *grib.ComponentNotFoundError

	switch {
	case errors.Is(err, grib.ErrServerBusy):
		w.Header().Set("Retry-After", "5")
		writeErrorJSON(w, http.StatusServiceUnavailable,
			"server is busy parsing other files, please retry shortly")
	case errors.Is(err, grib.ErrDecoderUnavailable):
		writeErrorJSON(w, http.StatusInternalServerError,
			"GRIB decoder tools are not installed on this server")
	case errors.As(err, &notFoundErr):
		writeErrorJSON(w, http.StatusUnprocessableEntity, notFoundErr.Error())
	case errors.Is(err, grib.ErrEmptySeries):
		writeErrorJSON(w, http.StatusUnprocessableEntity,
			"file has no forecast hour with both wind components")
	case errors.As(err, &decodeErr):
		writeErrorJSON(w, http.StatusBadGateway, decodeErr.Error())
	default:
		h.logger.Error("Unexpected pipeline error", logger.Error(err))
		writeErrorJSON(w, http.StatusInternalServerError, "internal error")
	}
}

// WriteJSON writes data as a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func writeErrorJSON(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]any{"error": message})
}
