package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"hogar_scrooper/logging"
	"hogar_scrooper/models"
	"hogar_scrooper/parsers"
	"hogar_scrooper/services"
	"hogar_scrooper/storage"
)

// maxBody caps pasted listing pages; full portal pages run to a few MB.
const maxBody = 10 << 20

// Server is the JSON backend for the listing tracker UI.
type Server struct {
	imports  *services.ImportService
	media    *services.MediaService
	registry *parsers.Registry
	relay    http.Handler
}

func NewServer(imports *services.ImportService, media *services.MediaService, registry *parsers.Registry, relay http.Handler) *Server {
	return &Server{imports: imports, media: media, registry: registry, relay: relay}
}

// Router wires every endpoint under /api.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/platforms", s.handlePlatforms).Methods(http.MethodGet)
	r.HandleFunc("/api/parse", s.handleParse).Methods(http.MethodPost)
	r.HandleFunc("/api/import", s.handleImport).Methods(http.MethodPost)
	r.HandleFunc("/api/properties", s.handleListProperties).Methods(http.MethodGet)
	r.HandleFunc("/api/properties/{id}", s.handleGetProperty).Methods(http.MethodGet)
	r.HandleFunc("/api/properties/{id}/status", s.handleUpdateStatus).Methods(http.MethodPatch)
	r.HandleFunc("/api/media/queue", s.handleQueueDepth).Methods(http.MethodGet)
	r.HandleFunc("/api/logs", s.handleLogs).Methods(http.MethodGet)
	if s.relay != nil {
		r.Handle("/api/image", s.relay).Methods(http.MethodGet)
	}
	return r
}

func (s *Server) handlePlatforms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.ListOptions())
}

type parseResponse struct {
	Platform string          `json:"platform"`
	Listing  *models.Listing `json:"listing"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req services.ImportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	listing, platform, err := s.imports.Parse(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, parseResponse{Platform: platform, Listing: listing})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req services.ImportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.imports.Import(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if res.IsNew {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.PropertyFilter{
		Status:   models.Status(q.Get("status")),
		Platform: q.Get("platform"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = n
	}
	props, err := s.imports.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if props == nil {
		props = []models.Property{}
	}
	writeJSON(w, http.StatusOK, props)
}

type propertyResponse struct {
	*models.Property
	Media []models.Media `json:"media"`
}

func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := s.imports.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	media, err := s.media.ForProperty(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if media == nil {
		media = []models.Media{}
	}
	writeJSON(w, http.StatusOK, propertyResponse{Property: p, Media: media})
}

type statusRequest struct {
	Status models.Status `json:"status"`
	Notes  *string       `json:"notes"`
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := s.imports.UpdateStatus(r.Context(), id, req.Status, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleQueueDepth(w http.ResponseWriter, r *http.Request) {
	depth, err := s.media.QueueDepth(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, depth)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := s.imports.RecentLogs(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if logs == nil {
		logs = []models.ImportLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid property id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrUnknownPlatform), errors.Is(err, services.ErrInvalidStatus):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrExtractionFailed):
		status = http.StatusUnprocessableEntity
	default:
		logging.Errorf("API: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warnf("API: encode response: %v", err)
	}
}
