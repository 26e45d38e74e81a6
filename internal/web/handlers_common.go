package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/JonMunkholm/subtrack/internal/core"
)

// maxJSONBody bounds JSON request bodies. A mapping is a few hundred bytes.
const maxJSONBody = 1 << 20

// decodeJSON decodes a single JSON object from the request body.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status         string             `json:"status"`
	ActiveSessions int                `json:"activeSessions"`
	Executions     core.LimiterStatus `json:"executions"`
}

// handleHealth reports liveness and current load.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:         "ok",
		ActiveSessions: s.service.ActiveSessions(),
		Executions:     s.service.LimiterStatus(),
	})
}
