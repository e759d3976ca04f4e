// Package api exposes the metadata service over a small JSON HTTP surface:
// folder tracking, tagging, tag groups, file queries and a server-sent event
// stream of change notifications.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"tagdex/internal/metadata"
)

// Server wires the metadata service to HTTP handlers.
type Server struct {
	svc            *metadata.Service
	metricsEnabled bool
}

// New returns a Server over svc.
func New(svc *metadata.Service, metricsEnabled bool) *Server {
	return &Server{svc: svc, metricsEnabled: metricsEnabled}
}

// Handler builds the routed handler with logging and metrics middleware
// applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.health).Methods("GET")
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/folders", s.getFolders).Methods("GET")
	apiRouter.HandleFunc("/folders", s.trackFolders).Methods("POST")
	apiRouter.HandleFunc("/folders", s.untrackFolders).Methods("DELETE")
	apiRouter.HandleFunc("/files", s.getFiles).Methods("GET")
	apiRouter.HandleFunc("/files/description", s.updateDescription).Methods("PUT")
	apiRouter.HandleFunc("/tags", s.getTags).Methods("GET")
	apiRouter.HandleFunc("/tags", s.addTag).Methods("POST")
	apiRouter.HandleFunc("/tags", s.deleteTags).Methods("DELETE")
	apiRouter.HandleFunc("/taggroups", s.getTagGroups).Methods("GET")
	apiRouter.HandleFunc("/taggroups", s.createTagGroup).Methods("POST")
	apiRouter.HandleFunc("/taggroups", s.updateTagGroup).Methods("PUT")
	apiRouter.HandleFunc("/events", s.streamEvents).Methods("GET")

	return requestLogger(r)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
