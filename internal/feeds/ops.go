package feeds

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/rook-computer/msgboard/internal/metrics"
)

// GroupFeed is one settings entry of a group.
type GroupFeed struct {
	Key       string          `json:"key"`
	LastValue json.RawMessage `json:"last_value"`
}

type Group struct {
	Name  string      `json:"name"`
	Key   string      `json:"key"`
	Feeds []GroupFeed `json:"feeds"`
}

// Settings returns key → last value for every feed that has a key and a
// non-null value. String values are unquoted; other JSON values keep their
// literal text.
func (g *Group) Settings() map[string]string {
	out := make(map[string]string, len(g.Feeds))
	for _, f := range g.Feeds {
		if f.Key == "" {
			continue
		}
		v, ok := scalar(f.LastValue)
		if !ok {
			continue
		}
		out[f.Key] = v
	}
	return out
}

// Item is one pending entry of a feed.
type Item struct {
	ID           string
	Value        string
	CreatedEpoch float64
}

// Created returns the item's creation time, or the zero time when unknown.
func (it Item) Created() time.Time {
	if it.CreatedEpoch <= 0 {
		return time.Time{}
	}
	sec := int64(it.CreatedEpoch)
	nsec := int64((it.CreatedEpoch - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

type wireItem struct {
	ID           json.RawMessage `json:"id"`
	Value        json.RawMessage `json:"value"`
	CreatedEpoch float64         `json:"created_epoch"`
}

func scalar(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s, true
	}
	return string(trimmed), true
}

func newBreaker(c *Client) *gobreaker.CircuitBreaker[interface{}] {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	return gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger().Infof("feeds", "circuit %s: %s -> %s", name, from, to)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var se *StatusError
			return errors.As(err, &se) && se.Code < 500
		},
	})
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// BreakerState reports the circuit breaker state for the status surface.
func (c *Client) BreakerState() string { return c.breaker.State().String() }

// expect performs one request. Statuses not listed in accept become a
// *StatusError.
func (c *Client) expect(ctx context.Context, method, url string, accept ...int) (*Response, error) {
	resp, err := c.Request(ctx, method, url)
	if err != nil {
		return nil, err
	}
	for _, code := range accept {
		if resp.StatusCode == code {
			return resp, nil
		}
	}
	return nil, &StatusError{Method: method, URL: url, Code: resp.StatusCode}
}

// call runs expect through the circuit breaker. Only an unreachable service
// or a 5xx status counts against the circuit.
func (c *Client) call(ctx context.Context, method, url string, accept ...int) (*Response, error) {
	v, err := c.breaker.Execute(func() (interface{}, error) {
		return c.expect(ctx, method, url, accept...)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}
	return v.(*Response), nil
}

// FetchGroupSettings fetches the settings group.
func (c *Client) FetchGroupSettings(ctx context.Context) (*Group, error) {
	resp, err := c.call(ctx, "GET", c.GroupURL(), 200)
	if err != nil {
		return nil, err
	}
	var g Group
	if err := json.Unmarshal(resp.Body, &g); err != nil || !bytes.HasPrefix(bytes.TrimSpace(resp.Body), []byte("{")) {
		return nil, fmt.Errorf("group %s: %w", c.cfg.Group, ErrUnexpectedPayload)
	}
	return &g, nil
}

// FetchFeedItems fetches pending items from url, keeping at most limit of
// them. A limit of zero or less uses the configured fetch limit.
func (c *Client) FetchFeedItems(ctx context.Context, url string, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = c.cfg.FetchLimit
	}
	resp, err := c.call(ctx, "GET", url, 200)
	if err != nil {
		return nil, err
	}
	wire, err := decodeItems(resp.Body, limit)
	if err != nil {
		// A capped body still yields the items that arrived whole.
		if !resp.Truncated || len(wire) == 0 {
			return nil, fmt.Errorf("feed %s: %w", url, ErrUnexpectedPayload)
		}
		c.logger().Errorf("feeds", "feed %s: response over %d bytes, using first %d items", url, maxBodyBytes, len(wire))
	}
	items := make([]Item, 0, len(wire))
	for _, w := range wire {
		id, _ := scalar(w.ID)
		value, _ := scalar(w.Value)
		items = append(items, Item{ID: id, Value: value, CreatedEpoch: w.CreatedEpoch})
	}
	return items, nil
}

// decodeItems reads at most limit elements of a JSON array, leaving the rest
// of the body unread.
func decodeItems(body []byte, limit int) ([]wireItem, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, errors.New("not an array")
	}
	var wire []wireItem
	for len(wire) < limit && dec.More() {
		var w wireItem
		if err := dec.Decode(&w); err != nil {
			return wire, err
		}
		wire = append(wire, w)
	}
	return wire, nil
}

// DeleteItem removes an item from a feed. A missing item counts as deleted.
// Deletes do not go through the circuit breaker.
func (c *Client) DeleteItem(ctx context.Context, url, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("delete: empty item id")
	}
	_, err := c.expect(ctx, "DELETE", url+"/"+id, 200, 404)
	return err
}
