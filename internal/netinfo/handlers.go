package netinfo

import (
	"encoding/json"
	"net/http"

	"github.com/HerbHall/netbridge/pkg/models"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// handleConnection answers a one-shot connection type query.
//
//	GET /api/v1/netinfo/connection -> {"type": "wifi"}
func (m *Module) handleConnection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.ConnectionReport{Type: m.ConnectionInfo(r.Context())})
}
