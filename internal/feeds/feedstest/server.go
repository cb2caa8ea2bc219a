// Package feedstest is an in-memory implementation of the remote queue
// service protocol, for tests and the simulator.
package feedstest

import (
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Route names the protocol endpoints for fault injection and counting.
type Route string

const (
	RouteGroup  Route = "group"
	RouteList   Route = "list"
	RouteDelete Route = "delete"
	RouteCreate Route = "create"
)

const APIKeyHeader = "X-AIO-Key"

type Item struct {
	ID           string  `json:"id"`
	Value        string  `json:"value"`
	CreatedEpoch float64 `json:"created_epoch"`
}

type feed struct {
	items     []Item
	lastValue *string
}

// Server holds feeds keyed by their full key ("group.name").
type Server struct {
	// APIKey, when set, must match the request header.
	APIKey string

	mu       sync.Mutex
	feeds    map[string]*feed
	faults   map[Route]int
	drops    map[Route]int
	requests map[Route]int
	deleted  []string
}

func New() *Server {
	return &Server{
		feeds:    make(map[string]*feed),
		faults:   make(map[Route]int),
		drops:    make(map[Route]int),
		requests: make(map[Route]int),
	}
}

func (s *Server) feedLocked(key string) *feed {
	f, ok := s.feeds[key]
	if !ok {
		f = &feed{}
		s.feeds[key] = f
	}
	return f
}

// Push appends value to the feed and returns the stored item.
func (s *Server) Push(feedKey, value string) Item {
	return s.PushItem(feedKey, Item{Value: value})
}

// PushItem appends it, filling in a missing id or creation time.
func (s *Server) PushItem(feedKey string, it Item) Item {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.CreatedEpoch == 0 {
		it.CreatedEpoch = float64(time.Now().UnixNano()) / 1e9
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.feedLocked(feedKey)
	f.items = append(f.items, it)
	v := it.Value
	f.lastValue = &v
	return it
}

// SetValue sets a feed's last value without queuing an item, the way a
// dashboard control does.
func (s *Server) SetValue(feedKey, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := value
	s.feedLocked(feedKey).lastValue = &v
}

// Pending returns the items still queued on a feed.
func (s *Server) Pending(feedKey string) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.feeds[feedKey]
	if !ok {
		return nil
	}
	return append([]Item(nil), f.items...)
}

// Deleted returns the ids of deleted items in order.
func (s *Server) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

// Fail makes route answer with code until cleared with code 0.
func (s *Server) Fail(route Route, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code == 0 {
		delete(s.faults, route)
		return
	}
	s.faults[route] = code
}

// Drop makes the next n requests to route fail at the transport level.
func (s *Server) Drop(route Route, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drops[route] = n
}

// Requests returns how many requests reached route.
func (s *Server) Requests(route Route) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[route]
}

// Handler serves the protocol under /api/v2/{user}.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route("/api/v2/{user}", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/groups/{group}", s.route(RouteGroup, s.handleGroup))
		r.Get("/feeds/{feed}/data", s.route(RouteList, s.handleList))
		r.Post("/feeds/{feed}/data", s.route(RouteCreate, s.handleCreate))
		r.Delete("/feeds/{feed}/data/{id}", s.route(RouteDelete, s.handleDelete))
	})
	return r
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.APIKey != "" && r.Header.Get(APIKeyHeader) != s.APIKey {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) route(name Route, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[name]++
		drop := s.drops[name] > 0
		if drop {
			s.drops[name]--
		}
		code := s.faults[name]
		s.mu.Unlock()

		if drop {
			hijackAndClose(w)
			return
		}
		if code != 0 {
			writeError(w, code, http.StatusText(code))
			return
		}
		h(w, r)
	}
}

// hijackAndClose closes the connection without a response.
func hijackAndClose(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		panic(http.ErrAbortHandler)
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		panic(http.ErrAbortHandler)
	}
	conn.Close()
}

type groupFeed struct {
	Key       string  `json:"key"`
	Name      string  `json:"name"`
	LastValue *string `json:"last_value"`
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")
	prefix := group + "."

	s.mu.Lock()
	feeds := make([]groupFeed, 0)
	for key, f := range s.feeds {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		feeds = append(feeds, groupFeed{Key: key, Name: strings.TrimPrefix(key, prefix), LastValue: f.lastValue})
	}
	s.mu.Unlock()
	sort.Slice(feeds, func(i, j int) bool { return feeds[i].Key < feeds[j].Key })

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":  group,
		"key":   group,
		"feeds": feeds,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	items := s.Pending(chi.URLParam(r, "feed"))
	if items == nil {
		items = []Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body")
		return
	}
	var in struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(body, &in); err != nil || len(in.Value) == 0 {
		writeError(w, http.StatusBadRequest, "value required")
		return
	}
	value := string(in.Value)
	var str string
	if err := json.Unmarshal(in.Value, &str); err == nil {
		value = str
	}
	it := s.Push(chi.URLParam(r, "feed"), value)
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key, id := chi.URLParam(r, "feed"), chi.URLParam(r, "id")

	s.mu.Lock()
	found := false
	if f, ok := s.feeds[key]; ok {
		for i, it := range f.items {
			if it.ID == id {
				f.items = append(f.items[:i], f.items[i+1:]...)
				found = true
				break
			}
		}
	}
	if found {
		s.deleted = append(s.deleted, id)
	}
	s.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
