// Package state holds the read-only status snapshot the coordinator
// publishes for the status server.
package state

import (
	"sync"
	"time"
)

type Phase int

const (
	INITIALIZING Phase = iota
	RUNNING
	HALTED
)

func (p Phase) String() string {
	switch p {
	case INITIALIZING:
		return "initializing"
	case RUNNING:
		return "running"
	case HALTED:
		return "halted"
	}
	return "unknown"
}

type QueueInfo struct {
	Text    int
	Message int
	Evicted int
}

type NetworkInfo struct {
	SSID string
	IP   string
	MAC  string
}

type PollInfo struct {
	ID      string
	At      time.Time
	Items   int
	Err     string
	Breaker string
}

type RenderInfo struct {
	Font              string
	Color             string
	Background        string
	Wallpaper         string
	Effect            string
	BackgroundEnabled bool
	IconLoaded        bool
}

type State struct {
	Phase      Phase
	Enabled    bool
	StartedAt  time.Time
	UpdatedAt  time.Time
	FreeMemory uint64
	Queues     QueueInfo
	Network    NetworkInfo
	Poll       PollInfo
	Render     RenderInfo
}

type Store struct {
	mu    sync.RWMutex
	state State
}

func NewStore() *Store {
	return &Store{state: State{Phase: INITIALIZING, Enabled: true, StartedAt: time.Now()}}
}

func (store *Store) Snapshot() State {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.state
}

func (store *Store) SetPhase(phase Phase) {
	store.mu.Lock()
	store.state.Phase = phase
	store.state.UpdatedAt = time.Now()
	store.mu.Unlock()
}

func (store *Store) SetEnabled(enabled bool) {
	store.mu.Lock()
	store.state.Enabled = enabled
	store.mu.Unlock()
}

func (store *Store) UpdateQueues(queues QueueInfo, freeMemory uint64) {
	store.mu.Lock()
	store.state.Queues = queues
	store.state.FreeMemory = freeMemory
	store.state.UpdatedAt = time.Now()
	store.mu.Unlock()
}

func (store *Store) UpdateNetwork(network NetworkInfo) {
	store.mu.Lock()
	store.state.Network = network
	store.mu.Unlock()
}

func (store *Store) UpdatePoll(poll PollInfo) {
	store.mu.Lock()
	store.state.Poll = poll
	store.mu.Unlock()
}

func (store *Store) UpdateRender(render RenderInfo) {
	store.mu.Lock()
	store.state.Render = render
	store.mu.Unlock()
}
