// Package app is the board coordinator: it brings the link up once, then
// drains the local queues, polls the remote service and reports status on a
// fixed duty cycle.
package app

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rook-computer/msgboard/internal/display"
	"github.com/rook-computer/msgboard/internal/feeds"
	"github.com/rook-computer/msgboard/internal/icon"
	"github.com/rook-computer/msgboard/internal/logging"
	"github.com/rook-computer/msgboard/internal/metrics"
	"github.com/rook-computer/msgboard/internal/payload"
	"github.com/rook-computer/msgboard/internal/queue"
	"github.com/rook-computer/msgboard/internal/render"
	"github.com/rook-computer/msgboard/internal/state"
	"github.com/rook-computer/msgboard/internal/system"
)

// Network is the link supervisor.
type Network interface {
	Connect(ctx context.Context) bool
	CheckConnectivity(ctx context.Context, maxAttempts int) bool
	Info(ctx context.Context) state.NetworkInfo
}

// Remote is the layered queue service client.
type Remote interface {
	FetchGroupSettings(ctx context.Context) (*feeds.Group, error)
	FetchFeedItems(ctx context.Context, url string, limit int) ([]feeds.Item, error)
	DeleteItem(ctx context.Context, url, id string) error
	TextFeedURL() string
	MessageFeedURL() string
	BreakerState() string
}

type Config struct {
	PollInterval  time.Duration
	BusyWait      time.Duration
	IdleWait      time.Duration
	QueueCapacity int
	FetchLimit    int
	// HaltInterval is the sleep chunk used once initialization failed.
	HaltInterval time.Duration
	// StatusURL is encoded in the ready splash. When empty it is derived
	// from the board's address and StatusAddr; with neither the splash is
	// skipped.
	StatusURL   string
	StatusAddr  string
	ReadySplash time.Duration
	SplashSize  int
}

func DefaultConfig() Config {
	return Config{
		PollInterval:  30 * time.Second,
		BusyWait:      2 * time.Second,
		IdleWait:      10 * time.Second,
		QueueCapacity: 250,
		FetchLimit:    feeds.DefaultFetchLimit,
		HaltInterval:  60 * time.Second,
		ReadySplash:   5 * time.Second,
		SplashSize:    render.DefaultHeight,
	}
}

// App owns the work queues, the enabled flag and the startup phase. Serve
// is called from a single goroutine at a time; the status store is the
// only state shared with other goroutines.
type App struct {
	Store    *state.Store
	Network  Network
	Remote   Remote
	Display  *display.Interpreter
	Icons    *icon.Cache
	Lifeline system.Lifeline
	Logger   logging.Logger

	// Now, Sleep and FreeMemory are replaced by tests.
	Now        func() time.Time
	Sleep      func(ctx context.Context, d time.Duration)
	FreeMemory func() uint64

	cfg      Config
	text     *queue.Ring[string]
	messages *queue.Ring[string]
	enabled  bool
	phase    state.Phase
	started  time.Time
	lastPoll time.Time
	polled   bool
	evicted  int
}

func New(cfg Config, store *state.Store, network Network, remote Remote, interp *display.Interpreter, icons *icon.Cache) *App {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.BusyWait <= 0 {
		cfg.BusyWait = def.BusyWait
	}
	if cfg.IdleWait <= 0 {
		cfg.IdleWait = def.IdleWait
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = def.QueueCapacity
	}
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = def.FetchLimit
	}
	if cfg.HaltInterval <= 0 {
		cfg.HaltInterval = def.HaltInterval
	}
	if cfg.SplashSize <= 0 {
		cfg.SplashSize = def.SplashSize
	}
	if store == nil {
		store = state.NewStore()
	}
	return &App{
		Store:    store,
		Network:  network,
		Remote:   remote,
		Display:  interp,
		Icons:    icons,
		Logger:   logging.NoopLogger{},
		cfg:      cfg,
		text:     queue.New[string](cfg.QueueCapacity),
		messages: queue.New[string](cfg.QueueCapacity),
		enabled:  true,
		phase:    state.INITIALIZING,
	}
}

func (app *App) log() logging.Logger { return logging.OrNoop(app.Logger) }

func (app *App) now() time.Time {
	if app.Now != nil {
		return app.Now()
	}
	return time.Now()
}

func (app *App) feed() {
	if app.Lifeline != nil {
		app.Lifeline.Feed()
	}
}

func (app *App) sleep(ctx context.Context, d time.Duration) {
	if app.Sleep != nil {
		app.Sleep(ctx, d)
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// Phase is the current startup phase.
func (app *App) Phase() state.Phase { return app.phase }

// Enabled reports whether queued items are rendered.
func (app *App) Enabled() bool { return app.enabled }

// EnqueueText adds a raw work item as if it had been fetched.
func (app *App) EnqueueText(raw string) { app.push(app.text, "text", raw) }

func (app *App) EnqueueMessage(raw string) { app.push(app.messages, "message", raw) }

func (app *App) push(q *queue.Ring[string], name, raw string) {
	if q.Push(raw) {
		app.evicted++
		metrics.QueueEvictions.WithLabelValues(name).Inc()
	}
}

func (app *App) setPhase(p state.Phase) {
	app.phase = p
	app.Store.SetPhase(p)
	app.log().Infof("app", "phase: %s", p)
}

// Serve runs the board until ctx is done. A restarted Serve resumes the
// current phase: Running keeps looping, Halted stays halted.
func (app *App) Serve(ctx context.Context) error {
	if app.started.IsZero() {
		app.started = app.now()
	}
	if app.phase == state.INITIALIZING {
		if app.initialize(ctx) {
			app.setPhase(state.RUNNING)
		} else {
			app.setPhase(state.HALTED)
		}
	}
	if app.phase == state.HALTED {
		return app.halt(ctx)
	}
	return app.run(ctx)
}

// initialize makes exactly one connect-then-check attempt.
func (app *App) initialize(ctx context.Context) bool {
	app.Display.ShowSplash(ctx, "Connecting...", nil)

	if !app.Network.Connect(ctx) {
		app.log().Errorf("app", "WiFi initialization failed")
		return false
	}
	if !app.Network.CheckConnectivity(ctx, 0) {
		app.log().Errorf("app", "connectivity check failed")
		return false
	}
	info := app.Network.Info(ctx)
	app.Store.UpdateNetwork(info)

	app.Display.HideSplash(ctx)
	app.showReady(ctx, app.statusURL(info.IP))
	app.log().Infof("app", "initialization complete")
	return true
}

func (app *App) statusURL(ip string) string {
	if app.cfg.StatusURL != "" {
		return app.cfg.StatusURL
	}
	if ip == "" || app.cfg.StatusAddr == "" {
		return ""
	}
	_, port, err := net.SplitHostPort(app.cfg.StatusAddr)
	if err != nil || port == "" {
		return ""
	}
	return "http://" + net.JoinHostPort(ip, port) + "/api/v1/status"
}

func (app *App) showReady(ctx context.Context, url string) {
	if url == "" || app.cfg.ReadySplash <= 0 {
		return
	}
	img, err := render.QRCodeBMP(url, app.cfg.SplashSize)
	if err != nil {
		app.log().Errorf("app", "status QR code: %v", err)
		return
	}
	app.Display.ShowSplash(ctx, "Ready", bytes.NewReader(img))
	app.feed()
	app.sleep(ctx, app.cfg.ReadySplash)
	app.feed()
	app.Display.HideSplash(ctx)
}

// halt idles until ctx is done. Liveness is not fed, so a hardware
// watchdog will eventually restart the board.
func (app *App) halt(ctx context.Context) error {
	app.log().Errorf("app", "initialization failed; check WiFi credentials and network")
	for ctx.Err() == nil {
		app.sleep(ctx, app.cfg.HaltInterval)
	}
	return ctx.Err()
}

func (app *App) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		processed := app.iterate(ctx)

		wait := app.cfg.IdleWait
		if processed {
			wait = app.cfg.BusyWait
		}
		app.feed()
		app.sleep(ctx, wait)
		app.feed()
	}
}

// iterate runs one duty cycle. A panic aborts only the current cycle.
func (app *App) iterate(ctx context.Context) (processed bool) {
	defer func() {
		if r := recover(); r != nil {
			metrics.LoopPanics.Inc()
			app.log().Errorf("app", "loop error: %v", r)
		}
	}()

	if app.enabled {
		if app.processText(ctx) {
			processed = true
		}
		if app.processMessage(ctx) {
			processed = true
		}
	}
	app.poll(ctx)
	app.reportStatus()
	return processed
}

// processText renders at most one text item.
func (app *App) processText(ctx context.Context) bool {
	raw, ok := app.text.Pop()
	if !ok {
		return false
	}
	text, ok := payload.ParseText(raw)
	if !ok {
		metrics.ItemsRejected.WithLabelValues("text").Inc()
		app.log().Debugf("app", "discarding empty text item")
		return false
	}
	app.Display.RenderText(ctx, text, app.Display.State().Color)
	metrics.Renders.WithLabelValues("text").Inc()
	return true
}

// processMessage renders at most one structured item.
func (app *App) processMessage(ctx context.Context) bool {
	raw, ok := app.messages.Pop()
	if !ok {
		return false
	}
	cmd, ok := payload.ParseStructured(raw)
	if !ok {
		metrics.ItemsRejected.WithLabelValues("message").Inc()
		app.log().Errorf("app", "discarding malformed structured item")
		return false
	}
	app.Display.RenderStructured(ctx, cmd)
	metrics.Renders.WithLabelValues("structured").Inc()
	return true
}

func (app *App) setEnabled(enabled bool) {
	if enabled != app.enabled {
		app.log().Infof("app", "system enabled: %v", enabled)
	}
	app.enabled = enabled
}

func (app *App) reportStatus() {
	var free uint64
	if app.FreeMemory != nil {
		free = app.FreeMemory()
	}
	up := app.now().Sub(app.started)
	app.log().Infof("status", "%s", StatusLine(app.text.Len(), app.messages.Len(), free, up))

	app.Store.UpdateQueues(state.QueueInfo{
		Text:    app.text.Len(),
		Message: app.messages.Len(),
		Evicted: app.evicted,
	}, free)
	app.Store.SetEnabled(app.enabled)

	rs := app.Display.State()
	app.Store.UpdateRender(state.RenderInfo{
		Font:              rs.Font,
		Color:             fmt.Sprintf("#%06X", rs.Color),
		Background:        rs.Background,
		Wallpaper:         rs.Wallpaper,
		Effect:            rs.Effect,
		BackgroundEnabled: rs.BackgroundEnabled,
		IconLoaded:        app.Icons != nil && app.Icons.Loaded(),
	})

	metrics.QueueDepth.WithLabelValues("text").Set(float64(app.text.Len()))
	metrics.QueueDepth.WithLabelValues("message").Set(float64(app.messages.Len()))
	metrics.FreeMemoryBytes.Set(float64(free))
	if app.enabled {
		metrics.Enabled.Set(1)
	} else {
		metrics.Enabled.Set(0)
	}
}
