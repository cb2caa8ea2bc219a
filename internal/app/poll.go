package app

import (
	"context"
	"errors"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/rook-computer/msgboard/internal/display"
	"github.com/rook-computer/msgboard/internal/feeds"
	"github.com/rook-computer/msgboard/internal/metrics"
	"github.com/rook-computer/msgboard/internal/queue"
	"github.com/rook-computer/msgboard/internal/state"
)

const previewLength = 25

// poll fetches settings and new items when the poll interval has elapsed.
// The interval restarts only after a poll got past the connectivity check.
func (app *App) poll(ctx context.Context) {
	now := app.now()
	if app.polled && now.Sub(app.lastPoll) < app.cfg.PollInterval {
		return
	}

	if !app.Network.CheckConnectivity(ctx, 1) {
		app.log().Errorf("poll", "connectivity lost, skipping poll")
		metrics.Polls.WithLabelValues("offline").Inc()
		app.Store.UpdatePoll(state.PollInfo{At: now, Err: "offline", Breaker: app.Remote.BreakerState()})
		return
	}

	id := uuid.NewString()
	app.log().Infof("poll", "[%s] polling remote queue", id)
	info := state.PollInfo{ID: id, At: now}
	var errs []error

	group, err := app.Remote.FetchGroupSettings(ctx)
	if err != nil {
		app.log().Errorf("poll", "[%s] group settings: %v", id, err)
		errs = append(errs, err)
	} else {
		app.applyGroupSettings(group)
	}

	n, err := app.fetchFeed(ctx, app.Remote.TextFeedURL(), app.text, "text")
	if err != nil {
		app.log().Errorf("poll", "[%s] text feed: %v", id, err)
		errs = append(errs, err)
	}
	info.Items += n

	n, err = app.fetchFeed(ctx, app.Remote.MessageFeedURL(), app.messages, "message")
	if err != nil {
		app.log().Errorf("poll", "[%s] message feed: %v", id, err)
		errs = append(errs, err)
	}
	info.Items += n

	app.lastPoll = now
	app.polled = true

	result := "ok"
	if err := errors.Join(errs...); err != nil {
		info.Err = err.Error()
		result = "error"
		if errors.Is(err, feeds.ErrCircuitOpen) {
			result = "circuit_open"
		}
	}
	info.Breaker = app.Remote.BreakerState()
	metrics.Polls.WithLabelValues(result).Inc()
	app.Store.UpdatePoll(info)
}

// applyGroupSettings handles the coordinator-owned keys and hands the full
// map to the interpreter.
func (app *App) applyGroupSettings(group *feeds.Group) {
	settings := group.Settings()
	for key, value := range settings {
		app.feed()
		switch display.SettingKey(app.Display.Group, key) {
		case display.SettingIcon:
			if app.Icons != nil && !app.Icons.SetFromEncoded(value) {
				app.log().Errorf("poll", "ignoring invalid icon setting")
			}
		case display.SettingSystemEnabled:
			app.setEnabled(display.IsTrue(value))
		}
	}
	app.Display.ApplyGroupSettings(settings)
}

// fetchFeed enqueues every fetched item and then deletes it remotely. A
// failed delete is only logged; the item may come back on the next poll.
func (app *App) fetchFeed(ctx context.Context, url string, q *queue.Ring[string], kind string) (int, error) {
	items, err := app.Remote.FetchFeedItems(ctx, url, app.cfg.FetchLimit)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, it := range items {
		app.feed()
		if it.ID == "" || it.Value == "" {
			continue
		}
		app.log().Infof("poll", "[%s] +%s %s", createdClock(it), kind, Preview(it.Value))
		app.push(q, kind, it.Value)
		n++

		if err := app.Remote.DeleteItem(ctx, url, it.ID); err != nil {
			app.log().Errorf("poll", "failed to delete %s item %s: %v", kind, it.ID, err)
		}
	}
	return n, nil
}

func createdClock(it feeds.Item) string {
	t := it.Created()
	if t.IsZero() {
		return "--:--:--"
	}
	return t.Format("15:04:05")
}

// Preview names an item for the log: the "name" field of a JSON object, or
// the first characters of anything else.
func Preview(value string) string {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(value), &doc); err == nil && doc != nil {
		var name string
		if raw, ok := doc["name"]; ok && json.Unmarshal(raw, &name) == nil && name != "" {
			return name
		}
		return "Unnamed"
	}
	if runes := []rune(value); len(runes) > previewLength {
		return string(runes[:previewLength])
	}
	return value
}
