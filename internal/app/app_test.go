package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/rook-computer/msgboard/internal/display"
	"github.com/rook-computer/msgboard/internal/feeds"
	"github.com/rook-computer/msgboard/internal/feeds/feedstest"
	"github.com/rook-computer/msgboard/internal/icon"
	"github.com/rook-computer/msgboard/internal/render"
	"github.com/rook-computer/msgboard/internal/state"
)

type fakeFont string

func (f fakeFont) ID() string { return string(f) }

type fakeMessage struct{ texts []string }

func (m *fakeMessage) AddText(text string, rgb uint32) { m.texts = append(m.texts, text) }
func (m *fakeMessage) AddImage(r io.Reader) error {
	_, err := io.ReadAll(r)
	return err
}
func (m *fakeMessage) Clear() { m.texts = nil }

type played struct {
	class, name, text string
}

type fakeDisplay struct{ played []played }

func (d *fakeDisplay) FindFont(id string) render.Font          { return fakeFont(id) }
func (d *fakeDisplay) NewMessage(f render.Font) render.Message { return &fakeMessage{} }
func (d *fakeDisplay) SetBackground(path string) error         { return nil }
func (d *fakeDisplay) Animate(msg render.Message, class, name string, params render.Params) error {
	d.played = append(d.played, played{class, name, strings.Join(msg.(*fakeMessage).texts, "")})
	return nil
}

// scrolled returns the text of every message that entered the screen.
func (d *fakeDisplay) scrolled() []string {
	var out []string
	for _, p := range d.played {
		if p.class == render.ClassScroll && strings.HasPrefix(p.name, "in_") {
			out = append(out, p.text)
		}
	}
	return out
}

type fakeNetwork struct {
	connectOK bool
	checkOK   bool
	connects  int
	checks    []int
}

func (n *fakeNetwork) Connect(ctx context.Context) bool {
	n.connects++
	return n.connectOK
}

func (n *fakeNetwork) CheckConnectivity(ctx context.Context, maxAttempts int) bool {
	n.checks = append(n.checks, maxAttempts)
	return n.checkOK
}

func (n *fakeNetwork) Info(ctx context.Context) state.NetworkInfo {
	return state.NetworkInfo{SSID: "home", IP: "10.0.0.5"}
}

type fakeRemote struct {
	group      *feeds.Group
	groupErr   error
	groupPanic bool
	items      map[string][]feeds.Item
	fetchErr   error
	deleteErr  error
	deleted    []string
	fetches    int
}

func (r *fakeRemote) FetchGroupSettings(ctx context.Context) (*feeds.Group, error) {
	if r.groupPanic {
		panic("boom")
	}
	if r.groupErr != nil {
		return nil, r.groupErr
	}
	if r.group == nil {
		return &feeds.Group{}, nil
	}
	return r.group, nil
}

func (r *fakeRemote) FetchFeedItems(ctx context.Context, url string, limit int) ([]feeds.Item, error) {
	r.fetches++
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	items := r.items[url]
	delete(r.items, url)
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (r *fakeRemote) DeleteItem(ctx context.Context, url, id string) error {
	r.deleted = append(r.deleted, url+"/"+id)
	return r.deleteErr
}

func (r *fakeRemote) TextFeedURL() string    { return "text" }
func (r *fakeRemote) MessageFeedURL() string { return "message" }
func (r *fakeRemote) BreakerState() string   { return "closed" }

type feedCounter struct{ n int }

func (f *feedCounter) Feed() { f.n++ }

type fixture struct {
	app     *App
	display *fakeDisplay
	network *fakeNetwork
	remote  *fakeRemote
	lives   *feedCounter
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		display: &fakeDisplay{},
		network: &fakeNetwork{connectOK: true, checkOK: true},
		remote:  &fakeRemote{items: map[string][]feeds.Item{}},
		lives:   &feedCounter{},
		now:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	icons := icon.New()
	interp := display.New(f.display, icons, 128)
	interp.Sleep = func(context.Context, time.Duration) {}

	f.app = New(DefaultConfig(), state.NewStore(), f.network, f.remote, interp, icons)
	f.app.Display.Lifeline = f.lives
	f.app.Lifeline = f.lives
	f.app.Now = func() time.Time { return f.now }
	f.app.Sleep = func(context.Context, time.Duration) {}
	f.app.started = f.now
	return f
}

func setting(key, value string) feeds.GroupFeed {
	raw, _ := json.Marshal(value)
	return feeds.GroupFeed{Key: key, LastValue: raw}
}

func TestPolledTextItemIsDeletedThenRendered(t *testing.T) {
	f := newFixture(t)
	f.remote.items["text"] = []feeds.Item{{ID: "1", Value: "Hello", CreatedEpoch: 0}}
	ctx := context.Background()

	if f.app.iterate(ctx) {
		t.Fatal("nothing should be rendered before the poll")
	}
	if f.app.text.Len() != 1 {
		t.Fatalf("text queue = %d, want 1", f.app.text.Len())
	}
	if len(f.remote.deleted) != 1 || f.remote.deleted[0] != "text/1" {
		t.Fatalf("deleted = %v", f.remote.deleted)
	}

	if !f.app.iterate(ctx) {
		t.Fatal("second iteration should render")
	}
	if got := f.display.scrolled(); len(got) != 1 || got[0] != "Hello" {
		t.Fatalf("rendered %v", got)
	}
	if f.app.text.Len() != 0 {
		t.Fatal("queue should be drained")
	}
}

func TestGroupSettingsServerErrorKeepsLoopRunning(t *testing.T) {
	f := newFixture(t)
	f.remote.groupErr = &feeds.StatusError{Method: "GET", URL: "groups/scroller", Code: 500}
	f.remote.items["message"] = []feeds.Item{{ID: "7", Value: `{"elements":[{"kind":"text","data":"Hi"}]}`}}
	before := f.app.Display.State()

	f.app.iterate(context.Background())

	if f.app.Display.State() != before {
		t.Fatal("no settings should have been applied")
	}
	if f.app.messages.Len() != 1 {
		t.Fatal("feeds should still be polled after a settings failure")
	}
	snap := f.app.Store.Snapshot()
	if !strings.Contains(snap.Poll.Err, "HTTP 500") || snap.Poll.Items != 1 {
		t.Fatalf("poll info = %+v", snap.Poll)
	}

	if !f.app.iterate(context.Background()) {
		t.Fatal("structured item should render on the next iteration")
	}
}

func TestOneItemPerQueuePerIteration(t *testing.T) {
	f := newFixture(t)
	for _, s := range []string{"a", "b", "c"} {
		f.app.EnqueueText(s)
		f.app.EnqueueMessage(`{"elements":[{"kind":"text","data":"` + s + `"}]}`)
	}
	f.app.polled = true
	f.app.lastPoll = f.now

	f.app.iterate(context.Background())

	if f.app.text.Len() != 2 || f.app.messages.Len() != 2 {
		t.Fatalf("queues = %d/%d, want 2/2", f.app.text.Len(), f.app.messages.Len())
	}
	if got := f.display.scrolled(); len(got) != 2 || got[0] != "a" || got[1] != "a" {
		t.Fatalf("rendered %v", got)
	}
}

func TestRejectedItemsDoNotCountAsProcessed(t *testing.T) {
	f := newFixture(t)
	f.app.polled, f.app.lastPoll = true, f.now
	f.app.EnqueueText("   ")
	f.app.EnqueueMessage(`{"elements":[{"kind":"text"}]}`)

	if f.app.iterate(context.Background()) {
		t.Fatal("invalid items should not count as processed")
	}
	if len(f.display.scrolled()) != 0 {
		t.Fatal("nothing should render")
	}
}

func TestSystemDisabledStillPolls(t *testing.T) {
	f := newFixture(t)
	f.remote.group = &feeds.Group{Feeds: []feeds.GroupFeed{setting("scroller.system-enabled", "false")}}
	f.app.EnqueueText("queued")
	ctx := context.Background()

	// The item is rendered before the poll disables the board.
	f.app.iterate(ctx)
	if f.app.Enabled() {
		t.Fatal("board should be disabled")
	}

	f.app.EnqueueText("held")
	f.now = f.now.Add(31 * time.Second)
	f.remote.group = &feeds.Group{Feeds: []feeds.GroupFeed{setting("scroller.system-on", "true")}}
	if f.app.iterate(ctx) {
		t.Fatal("disabled board should not render")
	}
	if !f.app.Enabled() {
		t.Fatal("poll should re-enable the board")
	}
	if f.app.text.Len() != 1 {
		t.Fatal("held item should stay queued")
	}
	if !f.app.Store.Snapshot().Enabled {
		t.Fatal("status should report enabled")
	}
}

func TestIconSettingLoadsCache(t *testing.T) {
	f := newFixture(t)
	blob := base64.StdEncoding.EncodeToString([]byte("BMfake-bitmap"))
	f.remote.group = &feeds.Group{Feeds: []feeds.GroupFeed{
		setting("scroller.icon", blob),
		setting("scroller.font", "arial"),
	}}

	f.app.iterate(context.Background())

	if !f.app.Icons.Loaded() {
		t.Fatal("icon setting should load the cache")
	}
	if f.app.Display.State().Font != "arial" {
		t.Fatal("generic settings should still apply")
	}
	f.app.EnqueueText("with icon")
	f.now = f.now.Add(time.Second)
	f.app.iterate(context.Background())
	if got := f.display.scrolled(); len(got) != 1 || got[0] != "with icon" {
		t.Fatalf("rendered %v", got)
	}
	if !f.app.Store.Snapshot().Render.IconLoaded {
		t.Fatal("status should report the icon")
	}

	f.remote.group = &feeds.Group{Feeds: []feeds.GroupFeed{setting("scroller.icon", "not an icon")}}
	f.now = f.now.Add(f.app.cfg.PollInterval)
	f.app.iterate(context.Background())
	if !f.app.Icons.Loaded() || !f.app.Store.Snapshot().Render.IconLoaded {
		t.Fatal("an invalid icon setting must keep the current icon")
	}
}

func TestFailedDeletesKeepBothFeedsPolling(t *testing.T) {
	srv := feedstest.New()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	client := feeds.New(feeds.Config{BaseURL: ts.URL + "/api/v2", Username: "board"})
	client.Sleep = func(context.Context, time.Duration) {}
	client.NewTransport = func() http.RoundTripper { return &http.Transport{DisableKeepAlives: true} }

	for i := 0; i < 5; i++ {
		srv.Push("scroller.text-queue", fmt.Sprintf("text %d", i))
	}
	srv.Push("scroller.message-queue", `{"elements":[{"kind":"text","data":"Hi"}]}`)
	srv.Fail(feedstest.RouteDelete, http.StatusInternalServerError)

	f := newFixture(t)
	f.app.Remote = client
	ctx := context.Background()

	f.app.poll(ctx)
	if f.app.text.Len() != 5 || f.app.messages.Len() != 1 {
		t.Fatalf("queues = %d/%d, want 5/1", f.app.text.Len(), f.app.messages.Len())
	}
	if poll := f.app.Store.Snapshot().Poll; poll.Err != "" || poll.Breaker != "closed" {
		t.Fatalf("poll = %+v", poll)
	}

	f.now = f.now.Add(f.app.cfg.PollInterval)
	f.app.poll(ctx)
	if poll := f.app.Store.Snapshot().Poll; poll.Err != "" || poll.Items != 6 {
		t.Fatalf("second poll = %+v, undeleted items should be fetched again", poll)
	}
}

func TestDeleteFailureStillEnqueues(t *testing.T) {
	f := newFixture(t)
	f.remote.deleteErr = errors.New("gone away")
	f.remote.items["text"] = []feeds.Item{{ID: "1", Value: "one"}, {ID: "", Value: "no id"}, {ID: "3", Value: ""}}

	f.app.iterate(context.Background())

	if f.app.text.Len() != 1 {
		t.Fatalf("text queue = %d, want 1", f.app.text.Len())
	}
	if len(f.remote.deleted) != 1 {
		t.Fatalf("deleted = %v", f.remote.deleted)
	}
}

func TestPollRateLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.app.iterate(ctx)
	f.now = f.now.Add(10 * time.Second)
	f.app.iterate(ctx)
	if f.remote.fetches != 2 {
		t.Fatalf("fetches = %d, want one poll (2 feeds)", f.remote.fetches)
	}

	f.now = f.now.Add(20 * time.Second)
	f.app.iterate(ctx)
	if f.remote.fetches != 4 {
		t.Fatalf("fetches = %d, want a second poll after the interval", f.remote.fetches)
	}
	for _, n := range f.network.checks {
		if n != 1 {
			t.Fatalf("poll should check connectivity once, got %v", f.network.checks)
		}
	}
}

func TestPollSkippedWhenOffline(t *testing.T) {
	f := newFixture(t)
	f.network.checkOK = false
	ctx := context.Background()

	f.app.iterate(ctx)
	if f.remote.fetches != 0 {
		t.Fatal("offline poll should not fetch")
	}
	if f.app.Store.Snapshot().Poll.Err != "offline" {
		t.Fatalf("poll = %+v", f.app.Store.Snapshot().Poll)
	}

	f.network.checkOK = true
	f.app.iterate(ctx)
	if f.remote.fetches != 2 {
		t.Fatal("poll should be retried on the next iteration")
	}
}

func TestCircuitOpenIsReported(t *testing.T) {
	f := newFixture(t)
	f.remote.groupErr = feeds.ErrCircuitOpen
	f.remote.fetchErr = feeds.ErrCircuitOpen

	f.app.iterate(context.Background())

	if !strings.Contains(f.app.Store.Snapshot().Poll.Err, "circuit open") {
		t.Fatalf("poll = %+v", f.app.Store.Snapshot().Poll)
	}
}

func TestIterationRecoversFromPanic(t *testing.T) {
	f := newFixture(t)
	f.remote.groupPanic = true
	f.app.EnqueueText("before the panic")

	if !f.app.iterate(context.Background()) {
		t.Fatal("work done before the panic should still be reported")
	}
}

func TestServeRunsAndResumes(t *testing.T) {
	f := newFixture(t)
	f.remote.items["text"] = []feeds.Item{{ID: "1", Value: "Hello"}}

	ctx, cancel := context.WithCancel(context.Background())
	var waits []time.Duration
	f.app.Sleep = func(_ context.Context, d time.Duration) {
		waits = append(waits, d)
		if len(waits) == 2 {
			cancel()
		}
	}

	if err := f.app.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Serve = %v", err)
	}
	if f.app.Phase() != state.RUNNING {
		t.Fatalf("phase = %v", f.app.Phase())
	}
	if len(waits) != 2 || waits[0] != 10*time.Second || waits[1] != 2*time.Second {
		t.Fatalf("waits = %v, want idle then busy", waits)
	}
	if f.lives.n < 4 {
		t.Fatalf("liveness fed %d times, want at least before and after each sleep", f.lives.n)
	}
	if f.app.Store.Snapshot().Network.IP != "10.0.0.5" {
		t.Fatal("network info should be published after connecting")
	}

	ctx2, cancel2 := context.WithCancel(context.Background())
	cancel2()
	_ = f.app.Serve(ctx2)
	if f.network.connects != 1 {
		t.Fatalf("connects = %d, a resumed Serve must not initialize again", f.network.connects)
	}
}

func TestStartupFailureHalts(t *testing.T) {
	tests := []struct {
		name      string
		connectOK bool
		checkOK   bool
	}{
		{"connect fails", false, true},
		{"connectivity check fails", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.network.connectOK = tt.connectOK
			f.network.checkOK = tt.checkOK

			ctx, cancel := context.WithCancel(context.Background())
			var waits []time.Duration
			f.app.Sleep = func(_ context.Context, d time.Duration) {
				waits = append(waits, d)
				if len(waits) == 3 {
					cancel()
				}
			}

			_ = f.app.Serve(ctx)
			if f.app.Phase() != state.HALTED || f.app.Store.Snapshot().Phase != state.HALTED {
				t.Fatalf("phase = %v", f.app.Phase())
			}
			for _, w := range waits {
				if w != 60*time.Second {
					t.Fatalf("halted waits = %v", waits)
				}
			}
			if f.network.connects != 1 {
				t.Fatalf("connects = %d, initialization must not be retried", f.network.connects)
			}
			if f.remote.fetches != 0 || f.lives.n != 0 {
				t.Fatal("halted board must not poll or feed liveness")
			}

			ctx2, cancel2 := context.WithCancel(context.Background())
			cancel2()
			_ = f.app.Serve(ctx2)
			if f.network.connects != 1 || f.app.Phase() != state.HALTED {
				t.Fatal("halted stays halted across restarts")
			}
		})
	}
}

func TestReadySplashShowsStatusQRCode(t *testing.T) {
	f := newFixture(t)
	f.app.cfg.StatusURL = "http://10.0.0.5:8080/api/v1/status"
	var splashWaits int
	f.app.Sleep = func(_ context.Context, d time.Duration) {
		if d == f.app.cfg.ReadySplash {
			splashWaits++
		}
	}

	if !f.app.initialize(context.Background()) {
		t.Fatal("initialize failed")
	}
	var ready bool
	for _, p := range f.display.played {
		if p.class == render.ClassStatic && p.name == "show" && p.text == "Ready" {
			ready = true
		}
	}
	if !ready || splashWaits != 1 {
		t.Fatalf("ready splash not shown: %+v", f.display.played)
	}
	last := f.display.played[len(f.display.played)-1]
	if last.name != "hide" {
		t.Fatalf("splash should be hidden, last = %+v", last)
	}
}

func TestStatusIsPublished(t *testing.T) {
	f := newFixture(t)
	f.app.FreeMemory = func() uint64 { return 2048 * 1024 }
	f.app.polled, f.app.lastPoll = true, f.now
	f.app.EnqueueText("a")
	f.app.EnqueueText("b")
	f.now = f.now.Add(90 * time.Second)

	f.app.iterate(context.Background())

	snap := f.app.Store.Snapshot()
	if snap.Queues.Text != 1 || snap.FreeMemory != 2048*1024 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Render.Color != "#FFFFFF" || snap.Render.Font != render.DefaultFont {
		t.Fatalf("render = %+v", snap.Render)
	}
}

func TestQueueOverflowCountsEvictions(t *testing.T) {
	f := newFixture(t)
	f.app = New(Config{QueueCapacity: 2}, nil, f.network, f.remote, f.app.Display, icon.New())
	for _, s := range []string{"1", "2", "3"} {
		f.app.EnqueueText(s)
	}
	if f.app.text.Len() != 2 || f.app.evicted != 1 {
		t.Fatalf("len=%d evicted=%d", f.app.text.Len(), f.app.evicted)
	}
	if v, _ := f.app.text.Pop(); v != "2" {
		t.Fatalf("oldest item should have been evicted, got %q", v)
	}
}

func TestStatusURL(t *testing.T) {
	tests := []struct {
		name, url, addr, ip, want string
	}{
		{"explicit", "http://board.local/api/v1/status", ":8080", "10.0.0.5", "http://board.local/api/v1/status"},
		{"derived", "", ":8080", "10.0.0.5", "http://10.0.0.5:8080/api/v1/status"},
		{"derived with host", "", "0.0.0.0:9000", "10.0.0.5", "http://10.0.0.5:9000/api/v1/status"},
		{"no address", "", ":8080", "", ""},
		{"no server", "", "", "10.0.0.5", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.app.cfg.StatusURL = tt.url
			f.app.cfg.StatusAddr = tt.addr
			if got := f.app.statusURL(tt.ip); got != tt.want {
				t.Fatalf("statusURL = %q, want %q", got, tt.want)
			}
		})
	}
}
