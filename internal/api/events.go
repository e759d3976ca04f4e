package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"tagdex/internal/events"
)

// streamEvents pushes the change event stream to the client as server-sent
// events, one JSON-encoded Change per message, until the client disconnects.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// The bus delivers synchronously; buffer generously so a slow client
	// stalls its own stream, not the publisher.
	ch := make(chan events.Change, 256)
	cancel := s.svc.Subscribe(func(c events.Change) {
		select {
		case ch <- c:
		default:
			log.Debug("event stream client behind, dropping change")
		}
	})
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case c := <-ch:
			payload, err := json.Marshal(c)
			if err != nil {
				log.Errorf("failed to encode change event: %v", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
