package pantry

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
)

// maxUploadSize covers high-resolution phone photos
const maxUploadSize = int64(50 << 20)

const defaultExpiringDays = 3

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

// errorStatus maps service errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrItemNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// handleHealth reports liveness and the configured vision providers
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	providers := s.service.Providers()
	if providers == nil {
		providers = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.version,
		"providers": providers,
	})
}

// handleScan accepts a multipart "file" upload or a JSON {"photo_base64"} body
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		s.handleScanUpload(w, r)
		return
	}

	var req struct {
		PhotoBase64 string `json:"photo_base64"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, "Photo is too large. Maximum size is 50MB.", http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	scan, err := s.service.ScanBase64(r.Context(), req.PhotoBase64)
	if err != nil {
		slog.Error("Error scanning photo", "error", err)
		writeError(w, err.Error(), errorStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, scan)
}

func (s *Server) handleScanUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, "Photo is too large. Maximum size is 50MB.", http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			errorMsg = "No file was selected. Please choose a photo to upload."
		}
		writeError(w, errorMsg, http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	scan, err := s.service.ScanPhoto(r.Context(), header.Filename, data)
	if err != nil {
		slog.Error("Error scanning photo", "filename", header.Filename, "error", err)
		writeError(w, err.Error(), errorStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, scan)
}

// handleCategorize classifies a single item name
func (s *Server) handleCategorize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	info, err := s.service.Categorize(req.Name)
	if err != nil {
		writeError(w, err.Error(), errorStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// handleListItems returns all pantry items
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListItems()
	if err != nil {
		slog.Error("Error listing items", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

// handleAddItems adds confirmed items to the pantry
func (s *Server) handleAddItems(w http.ResponseWriter, r *http.Request) {
	var items []*Item
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	saved, err := s.service.AddItems(items)
	if err != nil {
		slog.Error("Error adding items", "error", err)
		writeError(w, err.Error(), errorStatus(err))
		return
	}

	writeJSON(w, http.StatusCreated, saved)
}

// handleExpiringItems returns the items expiring within ?days=N
func (s *Server) handleExpiringItems(w http.ResponseWriter, r *http.Request) {
	days := defaultExpiringDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, "days must be a whole number", http.StatusBadRequest)
			return
		}
		days = n
	}

	items, err := s.service.ExpiringItems(days)
	if err != nil {
		slog.Error("Error listing expiring items", "error", err)
		writeError(w, err.Error(), errorStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, items)
}

// handleGetItem returns a single item
func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.service.GetItem(r.PathValue("id"))
	if err != nil {
		status := errorStatus(err)
		message := "Error getting item"
		if status == http.StatusNotFound {
			message = "Item not found"
		} else {
			slog.Error("Error getting item", "error", err)
		}
		writeError(w, message, status)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// handleDeleteItem deletes an item
func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteItem(r.PathValue("id")); err != nil {
		slog.Error("Error deleting item", "error", err)
		status := errorStatus(err)
		message := "Error deleting item"
		if status == http.StatusNotFound {
			message = "Item not found"
		}
		writeError(w, message, status)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGetPhoto returns a stored photo
func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetPhoto(r.PathValue("filename"))
	if err != nil {
		writeError(w, "Photo not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}
