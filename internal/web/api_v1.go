package web

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/rook-computer/msgboard/internal/state"
)

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type queuesResponse struct {
	Text    int `json:"text"`
	Message int `json:"message"`
	Evicted int `json:"evicted"`
}

type networkResponse struct {
	SSID string `json:"ssid"`
	IP   string `json:"ip"`
	MAC  string `json:"mac"`
}

type pollResponse struct {
	ID      string     `json:"id,omitempty"`
	At      *time.Time `json:"at,omitempty"`
	Items   int        `json:"items"`
	Error   string     `json:"error,omitempty"`
	Breaker string     `json:"breaker,omitempty"`
}

type renderResponse struct {
	Font              string `json:"font"`
	Color             string `json:"color"`
	Background        string `json:"background"`
	Wallpaper         string `json:"wallpaper"`
	Effect            string `json:"effect"`
	BackgroundEnabled bool   `json:"backgroundEnabled"`
	IconLoaded        bool   `json:"iconLoaded"`
}

type statusResponse struct {
	Phase         string          `json:"phase"`
	Enabled       bool            `json:"enabled"`
	StartedAt     time.Time       `json:"startedAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	UptimeSeconds int64           `json:"uptimeSeconds"`
	FreeMemory    uint64          `json:"freeMemory"`
	Queues        queuesResponse  `json:"queues"`
	Network       networkResponse `json:"network"`
	Poll          pollResponse    `json:"poll"`
	Render        renderResponse  `json:"render"`
}

type healthResponse struct {
	OK    bool   `json:"ok"`
	Phase string `json:"phase"`
}

func handleStatus(w http.ResponseWriter, _ *http.Request, src StatusSource, now func() time.Time) {
	if src == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "status not configured")
		return
	}
	writeJSON(w, http.StatusOK, toStatusResponse(src.Snapshot(), now()))
}

// handleHealth reports 503 once the board is halted.
func handleHealth(w http.ResponseWriter, _ *http.Request, src StatusSource) {
	if src == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "status not configured")
		return
	}
	snap := src.Snapshot()
	status := http.StatusOK
	if snap.Phase == state.HALTED {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{OK: status == http.StatusOK, Phase: snap.Phase.String()})
}

func toStatusResponse(s state.State, now time.Time) statusResponse {
	resp := statusResponse{
		Phase:      s.Phase.String(),
		Enabled:    s.Enabled,
		StartedAt:  s.StartedAt,
		UpdatedAt:  s.UpdatedAt,
		FreeMemory: s.FreeMemory,
		Queues:     queuesResponse(s.Queues),
		Network:    networkResponse(s.Network),
		Poll: pollResponse{
			ID:      s.Poll.ID,
			Items:   s.Poll.Items,
			Error:   s.Poll.Err,
			Breaker: s.Poll.Breaker,
		},
		Render: renderResponse(s.Render),
	}
	if !s.StartedAt.IsZero() {
		resp.UptimeSeconds = int64(now.Sub(s.StartedAt) / time.Second)
	}
	if !s.Poll.At.IsZero() {
		at := s.Poll.At
		resp.Poll.At = &at
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: code, Message: message})
}
