// Package api implements the optional status HTTP API served in listen mode.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/draeath/s76-kbd-led-statemgr/internal/leds"
	"github.com/draeath/s76-kbd-led-statemgr/internal/manager"
)

// AttributeState is one attribute's view in a state response.
type AttributeState struct {
	Path    string `json:"path"`
	Current string `json:"current,omitempty"`
	Saved   string `json:"saved,omitempty"`
	Default string `json:"default"`
}

// Handlers holds dependencies for the HTTP handlers. The manager is fetched
// per request because a config reload swaps it out under the listener.
type Handlers struct {
	current func() *manager.Manager
}

// NewRouter builds the status router. current must return the active manager.
func NewRouter(current func() *manager.Manager) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	h := &Handlers{current: current}
	r.Get("/healthz", h.healthz)
	r.Get("/api/state", h.getState)
	return r
}

func (h *Handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (h *Handlers) getState(w http.ResponseWriter, _ *http.Request) {
	mgr := h.current()
	states := make(map[string]AttributeState)
	for _, attr := range mgr.Config().Attributes() {
		st := AttributeState{
			Path:    attr.Device.Path,
			Default: attr.Device.Default,
		}
		if value, err := (leds.Node{Path: attr.Device.Path}).Read(); err == nil {
			st.Current = value
		}
		if value, err := mgr.Store().Load(attr.Name); err == nil {
			st.Saved = value
		}
		states[attr.Name] = st
	}
	writeJSON(w, http.StatusOK, states)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
