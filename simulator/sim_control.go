package main

import (
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/rook-computer/msgboard/internal/feeds/feedstest"
)

// SimFaults are the injected failures, by protocol route. A status of 0
// means the route answers normally.
type SimFaults struct {
	GroupStatus  int `json:"groupStatus"`
	ListStatus   int `json:"listStatus"`
	DeleteStatus int `json:"deleteStatus"`
	// DropList closes the connection on the next n list requests.
	DropList int `json:"dropList"`
}

type SimState struct {
	Group    string         `json:"group"`
	Pending  map[string]int `json:"pending"`
	Deleted  []string       `json:"deleted"`
	Requests map[string]int `json:"requests"`
	Faults   SimFaults      `json:"faults"`
}

// SimControl injects items, settings and faults into the fake remote queue
// service.
type SimControl struct {
	Server      *feedstest.Server
	Group       string
	TextFeed    string
	MessageFeed string

	faults struct {
		mu sync.RWMutex
		v  SimFaults
	}
}

func NewSimControl(server *feedstest.Server, group, textFeed, messageFeed string) *SimControl {
	return &SimControl{Server: server, Group: group, TextFeed: textFeed, MessageFeed: messageFeed}
}

func (c *SimControl) feedKey(name string) string { return c.Group + "." + name }

func (c *SimControl) PushText(value string) feedstest.Item {
	return c.Server.Push(c.feedKey(c.TextFeed), value)
}

func (c *SimControl) PushMessage(value string) feedstest.Item {
	return c.Server.Push(c.feedKey(c.MessageFeed), value)
}

// SetSetting sets the last value of a settings feed such as "font".
func (c *SimControl) SetSetting(key, value string) {
	c.Server.SetValue(c.feedKey(key), value)
}

func (c *SimControl) Faults() SimFaults {
	c.faults.mu.RLock()
	defer c.faults.mu.RUnlock()
	return c.faults.v
}

func (c *SimControl) SetFaults(f SimFaults) {
	c.faults.mu.Lock()
	defer c.faults.mu.Unlock()
	c.faults.v = f
	c.Server.Fail(feedstest.RouteGroup, f.GroupStatus)
	c.Server.Fail(feedstest.RouteList, f.ListStatus)
	c.Server.Fail(feedstest.RouteDelete, f.DeleteStatus)
	c.Server.Drop(feedstest.RouteList, f.DropList)
}

func (c *SimControl) State() SimState {
	routes := []feedstest.Route{feedstest.RouteGroup, feedstest.RouteList, feedstest.RouteDelete, feedstest.RouteCreate}
	requests := make(map[string]int, len(routes))
	for _, r := range routes {
		requests[string(r)] = c.Server.Requests(r)
	}
	return SimState{
		Group: c.Group,
		Pending: map[string]int{
			c.TextFeed:    len(c.Server.Pending(c.feedKey(c.TextFeed))),
			c.MessageFeed: len(c.Server.Pending(c.feedKey(c.MessageFeed))),
		},
		Deleted:  c.Server.Deleted(),
		Requests: requests,
		Faults:   c.Faults(),
	}
}

type valueRequest struct {
	// Value is a JSON string, or for messages any JSON document.
	Value json.RawMessage `json:"value"`
}

// text returns a JSON string unquoted and anything else verbatim.
func (v valueRequest) text() string {
	var s string
	if err := json.Unmarshal(v.Value, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(v.Value))
}

// Routes serves the control API mounted under /sim.
func (c *SimControl) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/text", func(w http.ResponseWriter, r *http.Request) {
		var req valueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Value) == 0 {
			writeSimError(w, http.StatusBadRequest, "invalid json")
			return
		}
		writeSimJSON(w, http.StatusCreated, c.PushText(req.text()))
	})
	r.Post("/message", func(w http.ResponseWriter, r *http.Request) {
		var req valueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Value) == 0 {
			writeSimError(w, http.StatusBadRequest, "invalid json")
			return
		}
		writeSimJSON(w, http.StatusCreated, c.PushMessage(req.text()))
	})
	r.Put("/settings/{key}", func(w http.ResponseWriter, r *http.Request) {
		var req valueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Value) == 0 {
			writeSimError(w, http.StatusBadRequest, "invalid json")
			return
		}
		key := chi.URLParam(r, "key")
		c.SetSetting(key, req.text())
		writeSimJSON(w, http.StatusOK, map[string]any{"ok": true, "key": c.feedKey(key)})
	})
	r.Get("/faults", func(w http.ResponseWriter, r *http.Request) {
		writeSimJSON(w, http.StatusOK, c.Faults())
	})
	r.Post("/faults", func(w http.ResponseWriter, r *http.Request) {
		var patch struct {
			GroupStatus  *int `json:"groupStatus"`
			ListStatus   *int `json:"listStatus"`
			DeleteStatus *int `json:"deleteStatus"`
			DropList     *int `json:"dropList"`
		}
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeSimError(w, http.StatusBadRequest, "invalid json")
			return
		}
		current := c.Faults()
		if patch.GroupStatus != nil {
			current.GroupStatus = *patch.GroupStatus
		}
		if patch.ListStatus != nil {
			current.ListStatus = *patch.ListStatus
		}
		if patch.DeleteStatus != nil {
			current.DeleteStatus = *patch.DeleteStatus
		}
		if patch.DropList != nil {
			current.DropList = *patch.DropList
		}
		c.SetFaults(current)
		writeSimJSON(w, http.StatusOK, current)
	})
	r.Post("/reset", func(w http.ResponseWriter, r *http.Request) {
		c.SetFaults(SimFaults{})
		writeSimJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Get("/state", func(w http.ResponseWriter, r *http.Request) {
		writeSimJSON(w, http.StatusOK, c.State())
	})
	return r
}

func writeSimJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSimError(w http.ResponseWriter, status int, message string) {
	writeSimJSON(w, status, map[string]any{"error": message})
}
