package netmanager

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/HerbHall/netbridge/internal/netinfo"
	"github.com/HerbHall/netbridge/pkg/models"
	"github.com/HerbHall/netbridge/pkg/plugin"
)

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/info", Handler: m.handleInfo},
		{Method: "GET", Path: "/channels", Handler: m.handleListChannels},
		{Method: "GET", Path: "/channels/{freq}", Handler: m.handleGetChannel},
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an RFC 7807 problem detail response.
func writeError(w http.ResponseWriter, r *http.Request, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.APIProblem{
		Type:     "https://netbridge.dev/problems/" + strconv.Itoa(status),
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	})
}

// handleInfo returns the last reported snapshot. Before the first report,
// or with ?refresh=true, it assembles a fresh one without reporting it.
func (m *Module) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") != "true" {
		if snap, ok := m.Last(); ok {
			writeJSON(w, http.StatusOK, snap)
			return
		}
	}
	writeJSON(w, http.StatusOK, netinfo.BuildSnapshot(m.Assemble(r.Context()), m.nr.Available()))
}

// handleListChannels returns the static channel table.
func (m *Module) handleListChannels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, netinfo.Channels())
}

// handleGetChannel looks up the channel for a frequency in MHz.
func (m *Module) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	freq, err := strconv.ParseFloat(r.PathValue("freq"), 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "frequency must be a number in MHz")
		return
	}
	entry := netinfo.ChannelFor(freq)
	if entry.Channel == 0 {
		writeError(w, r, http.StatusNotFound, "no channel for frequency "+r.PathValue("freq"))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
